package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vbvictor/acp/internal/execshell"
)

const (
	gitExecutorMissingMessageConstant           = "git executor not configured"
	detachedHeadMessageConstant                 = "repository is in a detached HEAD state"
	branchNameRequiredMessageConstant           = "branch name must be provided"
	commitMessageRequiredMessageConstant        = "commit message must be provided"
	remoteNameRequiredMessageConstant           = "remote name must be provided"
	missingRemoteErrorTemplateConstant          = "remote %s is not configured: %s"
	stagedChangesQueryErrorTemplateConstant     = "failed to inspect staged changes: %w"
	currentBranchQueryErrorTemplateConstant     = "failed to identify current branch: %w"
	remoteBranchProbeErrorTemplateConstant      = "failed to probe remote branch %s: %w"
	gitDiffSubcommandConstant                   = "diff"
	gitDiffCachedFlagConstant                   = "--cached"
	gitDiffQuietFlagConstant                    = "--quiet"
	gitRevParseSubcommandConstant               = "rev-parse"
	gitAbbrevRefFlagConstant                    = "--abbrev-ref"
	gitHeadReferenceConstant                    = "HEAD"
	gitHeadParentReferenceConstant              = "HEAD^"
	gitRemoteSubcommandConstant                 = "remote"
	gitRemoteGetURLSubcommandConstant           = "get-url"
	gitAddSubcommandConstant                    = "add"
	gitAddAllFlagConstant                       = "--all"
	gitCheckoutSubcommandConstant               = "checkout"
	gitCheckoutNewBranchFlagConstant            = "-b"
	gitBranchSubcommandConstant                 = "branch"
	gitBranchForceDeleteFlagConstant            = "-D"
	gitCommitSubcommandConstant                 = "commit"
	gitCommitMessageFlagConstant                = "-m"
	gitPushSubcommandConstant                   = "push"
	gitPushSetUpstreamFlagConstant              = "-u"
	gitPushDeleteFlagConstant                   = "--delete"
	gitResetSubcommandConstant                  = "reset"
	gitResetSoftFlagConstant                    = "--soft"
	gitLSRemoteSubcommandConstant               = "ls-remote"
	gitLSRemoteHeadsFlagConstant                = "--heads"
	gitTerminalPromptEnvironmentNameConstant    = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptEnvironmentDisableConstant = "0"
	stagedChangesAbsentExitCodeConstant         = 0
	stagedChangesPresentExitCodeConstant        = 1
)

// ErrGitExecutorNotConfigured indicates the repository manager was constructed without an executor.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)

// ErrDetachedHead indicates the repository has no symbolic branch checked out.
var ErrDetachedHead = errors.New(detachedHeadMessageConstant)

// ErrBranchNameRequired indicates a branch operation received an empty branch name.
var ErrBranchNameRequired = errors.New(branchNameRequiredMessageConstant)

// ErrCommitMessageRequired indicates a commit was requested without a message.
var ErrCommitMessageRequired = errors.New(commitMessageRequiredMessageConstant)

// ErrRemoteNameRequired indicates a remote operation received an empty remote name.
var ErrRemoteNameRequired = errors.New(remoteNameRequiredMessageConstant)

// NoRemoteError indicates the requested remote is not configured for the repository.
type NoRemoteError struct {
	RemoteName string
	Cause      error
}

// Error describes the missing remote.
func (remoteError NoRemoteError) Error() string {
	return fmt.Sprintf(missingRemoteErrorTemplateConstant, remoteError.RemoteName, remoteError.Cause)
}

// Unwrap exposes the underlying lookup failure.
func (remoteError NoRemoteError) Unwrap() error {
	return remoteError.Cause
}

// GitExecutor exposes the subset of shell execution required by the repository manager.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteGitWithResult(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RepositoryManager performs git operations for the pull-request pipeline.
type RepositoryManager struct {
	executor GitExecutor
}

// NewRepositoryManager constructs a RepositoryManager backed by the provided executor.
func NewRepositoryManager(executor GitExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// HasStagedChanges reports whether the index contains changes ready to commit.
func (manager *RepositoryManager) HasStagedChanges(executionContext context.Context, repositoryPath string) (bool, error) {
	executionResult, executionError := manager.executor.ExecuteGitWithResult(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitDiffSubcommandConstant, gitDiffCachedFlagConstant, gitDiffQuietFlagConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return false, fmt.Errorf(stagedChangesQueryErrorTemplateConstant, executionError)
	}

	switch executionResult.ExitCode {
	case stagedChangesAbsentExitCodeConstant:
		return false, nil
	case stagedChangesPresentExitCodeConstant:
		return true, nil
	default:
		return false, fmt.Errorf(stagedChangesQueryErrorTemplateConstant, execshell.CommandFailedError{
			Command: execshell.ShellCommand{Name: execshell.CommandGit, Details: execshell.CommandDetails{Arguments: []string{gitDiffSubcommandConstant, gitDiffCachedFlagConstant, gitDiffQuietFlagConstant}}},
			Result:  executionResult,
		})
	}
}

// GetCurrentBranch resolves the branch currently checked out.
func (manager *RepositoryManager) GetCurrentBranch(executionContext context.Context, repositoryPath string) (string, error) {
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitAbbrevRefFlagConstant, gitHeadReferenceConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return "", fmt.Errorf(currentBranchQueryErrorTemplateConstant, executionError)
	}

	branchName := strings.TrimSpace(executionResult.StandardOutput)
	if branchName == gitHeadReferenceConstant {
		return "", ErrDetachedHead
	}

	return branchName, nil
}

// GetRemoteURL resolves the URL configured for the named remote.
func (manager *RepositoryManager) GetRemoteURL(executionContext context.Context, repositoryPath string, remoteName string) (string, error) {
	trimmedRemoteName := strings.TrimSpace(remoteName)
	if len(trimmedRemoteName) == 0 {
		return "", ErrRemoteNameRequired
	}

	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRemoteSubcommandConstant, gitRemoteGetURLSubcommandConstant, trimmedRemoteName},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return "", NoRemoteError{RemoteName: trimmedRemoteName, Cause: executionError}
	}

	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// StageAllChanges stages every pending change in the working tree.
func (manager *RepositoryManager) StageAllChanges(executionContext context.Context, repositoryPath string) error {
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitAddSubcommandConstant, gitAddAllFlagConstant},
		WorkingDirectory: repositoryPath,
	})
	return executionError
}

// CreateBranch creates the named branch from the current HEAD and checks it out.
func (manager *RepositoryManager) CreateBranch(executionContext context.Context, repositoryPath string, branchName string) error {
	trimmedBranchName := strings.TrimSpace(branchName)
	if len(trimmedBranchName) == 0 {
		return ErrBranchNameRequired
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitCheckoutSubcommandConstant, gitCheckoutNewBranchFlagConstant, trimmedBranchName},
		WorkingDirectory: repositoryPath,
	})
	return executionError
}

// CheckoutBranch switches the working tree to the named branch.
func (manager *RepositoryManager) CheckoutBranch(executionContext context.Context, repositoryPath string, branchName string) error {
	trimmedBranchName := strings.TrimSpace(branchName)
	if len(trimmedBranchName) == 0 {
		return ErrBranchNameRequired
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitCheckoutSubcommandConstant, trimmedBranchName},
		WorkingDirectory: repositoryPath,
	})
	return executionError
}

// DeleteLocalBranch force-removes the named local branch.
func (manager *RepositoryManager) DeleteLocalBranch(executionContext context.Context, repositoryPath string, branchName string) error {
	trimmedBranchName := strings.TrimSpace(branchName)
	if len(trimmedBranchName) == 0 {
		return ErrBranchNameRequired
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitBranchSubcommandConstant, gitBranchForceDeleteFlagConstant, trimmedBranchName},
		WorkingDirectory: repositoryPath,
	})
	return executionError
}

// CommitStagedChanges commits the staged changes with the supplied message.
//
// The commit runs with the invoking terminal's streams attached so local
// commit hooks can prompt.
func (manager *RepositoryManager) CommitStagedChanges(executionContext context.Context, repositoryPath string, commitMessage string) error {
	if len(strings.TrimSpace(commitMessage)) == 0 {
		return ErrCommitMessageRequired
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:             []string{gitCommitSubcommandConstant, gitCommitMessageFlagConstant, commitMessage},
		WorkingDirectory:      repositoryPath,
		UseInteractiveStreams: true,
	})
	return executionError
}

// PushBranch publishes the named branch to the remote with upstream tracking.
func (manager *RepositoryManager) PushBranch(executionContext context.Context, repositoryPath string, remoteName string, branchName string) error {
	trimmedBranchName := strings.TrimSpace(branchName)
	if len(trimmedBranchName) == 0 {
		return ErrBranchNameRequired
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            []string{gitPushSubcommandConstant, gitPushSetUpstreamFlagConstant, remoteName, trimmedBranchName},
		WorkingDirectory:     repositoryPath,
		EnvironmentVariables: map[string]string{gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptEnvironmentDisableConstant},
	})
	return executionError
}

// DeleteRemoteBranch removes the named branch from the remote.
func (manager *RepositoryManager) DeleteRemoteBranch(executionContext context.Context, repositoryPath string, remoteName string, branchName string) error {
	trimmedBranchName := strings.TrimSpace(branchName)
	if len(trimmedBranchName) == 0 {
		return ErrBranchNameRequired
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            []string{gitPushSubcommandConstant, remoteName, gitPushDeleteFlagConstant, trimmedBranchName},
		WorkingDirectory:     repositoryPath,
		EnvironmentVariables: map[string]string{gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptEnvironmentDisableConstant},
	})
	return executionError
}

// ResetSoftToParent moves the current branch back one commit while keeping the changes staged.
func (manager *RepositoryManager) ResetSoftToParent(executionContext context.Context, repositoryPath string) error {
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitResetSubcommandConstant, gitResetSoftFlagConstant, gitHeadParentReferenceConstant},
		WorkingDirectory: repositoryPath,
	})
	return executionError
}

// RemoteBranchExists reports whether the named branch already exists on the remote.
func (manager *RepositoryManager) RemoteBranchExists(executionContext context.Context, repositoryPath string, remoteName string, branchName string) (bool, error) {
	trimmedBranchName := strings.TrimSpace(branchName)
	if len(trimmedBranchName) == 0 {
		return false, ErrBranchNameRequired
	}

	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            []string{gitLSRemoteSubcommandConstant, gitLSRemoteHeadsFlagConstant, remoteName, trimmedBranchName},
		WorkingDirectory:     repositoryPath,
		EnvironmentVariables: map[string]string{gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptEnvironmentDisableConstant},
	})
	if executionError != nil {
		return false, fmt.Errorf(remoteBranchProbeErrorTemplateConstant, trimmedBranchName, executionError)
	}

	return len(strings.TrimSpace(executionResult.StandardOutput)) > 0, nil
}
