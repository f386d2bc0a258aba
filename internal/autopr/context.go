package autopr

import (
	"context"
	"fmt"
	"strings"

	"github.com/vbvictor/acp/internal/githubcli"
	"github.com/vbvictor/acp/internal/gitrepo"
)

const (
	repositoryMetadataErrorTemplateConstant = "failed to resolve repository metadata: %w"
	parentMetadataErrorTemplateConstant     = "failed to resolve upstream repository %s: %w"
)

// RepoContext is the immutable snapshot of repository state taken at pipeline start.
type RepoContext struct {
	OriginalBranch string
	Remote         gitrepo.RemoteURL
	Username       string
	IsFork         bool
	HeadRepository string
	BaseRepository string
	BaseBranch     string
}

// RepositoryInspector exposes the read-only git queries context resolution requires.
type RepositoryInspector interface {
	GetCurrentBranch(executionContext context.Context, repositoryPath string) (string, error)
	GetRemoteURL(executionContext context.Context, repositoryPath string, remoteName string) (string, error)
}

// TopologyResolver exposes the hosting-platform queries context resolution requires.
type TopologyResolver interface {
	ResolveAuthenticatedUsername(executionContext context.Context, repositoryPath string) (string, error)
	ResolveRepoMetadata(executionContext context.Context, repositoryPath string, repository string) (githubcli.RepositoryMetadata, error)
}

// ResolveRepoContext constructs the RepoContext for a single pipeline invocation.
//
// The authenticated identity and fork topology are resolved exactly once here;
// every later component reads them from the returned snapshot.
func ResolveRepoContext(executionContext context.Context, inspector RepositoryInspector, resolver TopologyResolver, repositoryPath string, remoteName string) (RepoContext, error) {
	originalBranch, branchError := inspector.GetCurrentBranch(executionContext, repositoryPath)
	if branchError != nil {
		return RepoContext{}, branchError
	}

	remoteURLText, remoteError := inspector.GetRemoteURL(executionContext, repositoryPath, remoteName)
	if remoteError != nil {
		return RepoContext{}, remoteError
	}

	parsedRemote, parseError := gitrepo.ParseRemoteURL(remoteURLText)
	if parseError != nil {
		return RepoContext{}, parseError
	}

	username, usernameError := resolver.ResolveAuthenticatedUsername(executionContext, repositoryPath)
	if usernameError != nil {
		return RepoContext{}, usernameError
	}

	repositoryMetadata, metadataError := resolver.ResolveRepoMetadata(executionContext, repositoryPath, "")
	if metadataError != nil {
		return RepoContext{}, fmt.Errorf(repositoryMetadataErrorTemplateConstant, metadataError)
	}

	repoContext := RepoContext{
		OriginalBranch: originalBranch,
		Remote:         parsedRemote,
		Username:       username,
		IsFork:         repositoryMetadata.IsFork,
		HeadRepository: repositoryMetadata.NameWithOwner,
		BaseRepository: repositoryMetadata.NameWithOwner,
		BaseBranch:     repositoryMetadata.DefaultBranch,
	}

	if len(strings.TrimSpace(repoContext.HeadRepository)) == 0 {
		repoContext.HeadRepository = parsedRemote.OwnerAndRepository()
		repoContext.BaseRepository = parsedRemote.OwnerAndRepository()
	}

	if repositoryMetadata.IsFork && repositoryMetadata.Parent != nil {
		repoContext.BaseRepository = repositoryMetadata.Parent.NameWithOwner
		repoContext.BaseBranch = repositoryMetadata.Parent.DefaultBranch

		if len(strings.TrimSpace(repoContext.BaseBranch)) == 0 {
			parentMetadata, parentError := resolver.ResolveRepoMetadata(executionContext, repositoryPath, repositoryMetadata.Parent.NameWithOwner)
			if parentError != nil {
				return RepoContext{}, fmt.Errorf(parentMetadataErrorTemplateConstant, repositoryMetadata.Parent.NameWithOwner, parentError)
			}
			repoContext.BaseBranch = parentMetadata.DefaultBranch
		}
	}

	return repoContext, nil
}

// BaseOwnerAndRepository splits the base repository identifier into owner and repository names.
func (repoContext RepoContext) BaseOwnerAndRepository() (string, string) {
	segments := strings.SplitN(repoContext.BaseRepository, "/", 2)
	if len(segments) != 2 {
		return repoContext.BaseRepository, ""
	}
	return segments[0], segments[1]
}
