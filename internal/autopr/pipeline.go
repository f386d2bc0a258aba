package autopr

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/vbvictor/acp/internal/githubcli"
	"github.com/vbvictor/acp/internal/gitrepo"
)

const (
	repositoryMissingMessageConstant        = "git repository manager not configured"
	hostingClientMissingMessageConstant     = "hosting client not configured"
	loggerMissingMessageConstant            = "logger not configured"
	commitMessageMissingMessageConstant     = "commit message must be provided"
	noStagedChangesMessageConstant          = "no staged changes; stage files or pass --add first"
	interactiveMergeMessageConstant         = "interactive mode cannot merge the pull request it has not submitted"
	conflictingMergeRequestsMessageConstant = "choose either an immediate merge or auto-merge, not both"
	stateEnteredLogMessageConstant          = "pipeline state entered"
	rollbackStartedLogMessageConstant       = "rolling back pipeline state"
	rollbackFailedLogMessageConstant        = "rollback action failed"
	cleanupFailedLogMessageConstant         = "branch cleanup failed"
	logFieldStateConstant                   = "state"
	logFieldBranchConstant                  = "branch"
	commitTitleSeparatorConstant            = "\n"
	repositorySegmentSeparatorConstant      = "/"
)

// PipelineState tracks progress through the pull-request pipeline.
type PipelineState int

// Pipeline states in forward order.
const (
	PipelineStateValidated PipelineState = iota
	PipelineStateBranchCreated
	PipelineStateCommitted
	PipelineStatePushed
	PipelineStatePRCreated
	PipelineStateRestored
	PipelineStateMerged
	PipelineStateCleanedUp
)

var pipelineStateNames = map[PipelineState]string{
	PipelineStateValidated:     "validated",
	PipelineStateBranchCreated: "branch_created",
	PipelineStateCommitted:     "committed",
	PipelineStatePushed:        "pushed",
	PipelineStatePRCreated:     "pr_created",
	PipelineStateRestored:      "restored",
	PipelineStateMerged:        "merged",
	PipelineStateCleanedUp:     "cleaned_up",
}

// String renders the state name.
func (state PipelineState) String() string {
	stateName, known := pipelineStateNames[state]
	if !known {
		return "unknown"
	}
	return stateName
}

// MergeOutcome describes what happened to the pull request after creation.
type MergeOutcome string

// Possible merge outcomes.
const (
	MergeOutcomeNotRequested     MergeOutcome = MergeOutcome("not_requested")
	MergeOutcomeMerged           MergeOutcome = MergeOutcome("merged")
	MergeOutcomeAutoMergeEnabled MergeOutcome = MergeOutcome("auto_merge_enabled")
)

// Request describes one pull-request pipeline invocation.
type Request struct {
	RepositoryPath  string
	RemoteName      string
	BranchPrefix    string
	CommitMessage   string
	Body            string
	StageAll        bool
	Interactive     bool
	Draft           bool
	Merge           bool
	EnableAutoMerge bool
	MergeMethod     githubcli.MergeMethod
	Reviewers       []string
}

// PipelineResult captures the terminal outcome of a pipeline run.
type PipelineResult struct {
	PullRequestURL   string
	ComparePageURL   string
	BranchName       string
	OriginalBranch   string
	MergeOutcome     MergeOutcome
	CleanupPerformed bool
}

// GitRepository exposes the git operations the pipeline drives.
type GitRepository interface {
	RepositoryInspector
	RemoteBranchProber
	HasStagedChanges(executionContext context.Context, repositoryPath string) (bool, error)
	StageAllChanges(executionContext context.Context, repositoryPath string) error
	CreateBranch(executionContext context.Context, repositoryPath string, branchName string) error
	CheckoutBranch(executionContext context.Context, repositoryPath string, branchName string) error
	DeleteLocalBranch(executionContext context.Context, repositoryPath string, branchName string) error
	CommitStagedChanges(executionContext context.Context, repositoryPath string, commitMessage string) error
	PushBranch(executionContext context.Context, repositoryPath string, remoteName string, branchName string) error
	DeleteRemoteBranch(executionContext context.Context, repositoryPath string, remoteName string, branchName string) error
	ResetSoftToParent(executionContext context.Context, repositoryPath string) error
}

// HostingClient exposes the hosting-platform operations the pipeline drives.
type HostingClient interface {
	TopologyResolver
	CreatePullRequest(executionContext context.Context, repositoryPath string, details githubcli.PullRequestDetails) (string, error)
	MergePullRequest(executionContext context.Context, repositoryPath string, pullRequestURL string, options githubcli.MergeOptions) error
}

// Dependencies enumerates the collaborators required by the pipeline service.
type Dependencies struct {
	Repository GitRepository
	Hosting    HostingClient
	Logger     *zap.Logger
}

var (
	// ErrRepositoryNotConfigured indicates the repository dependency was missing.
	ErrRepositoryNotConfigured = errors.New(repositoryMissingMessageConstant)
	// ErrHostingClientNotConfigured indicates the hosting client dependency was missing.
	ErrHostingClientNotConfigured = errors.New(hostingClientMissingMessageConstant)
	// ErrLoggerNotConfigured indicates the logger dependency was missing.
	ErrLoggerNotConfigured = errors.New(loggerMissingMessageConstant)
	// ErrCommitMessageRequired indicates the request carried no commit message.
	ErrCommitMessageRequired = errors.New(commitMessageMissingMessageConstant)
	// ErrNoStagedChanges indicates the index holds nothing to commit.
	ErrNoStagedChanges = errors.New(noStagedChangesMessageConstant)
	// ErrInteractiveMergeUnsupported indicates interactive mode was combined with a merge request.
	ErrInteractiveMergeUnsupported = errors.New(interactiveMergeMessageConstant)
	// ErrConflictingMergeRequests indicates immediate merge and auto-merge were both requested.
	ErrConflictingMergeRequests = errors.New(conflictingMergeRequestsMessageConstant)
)

// Service orchestrates the pull-request pipeline.
type Service struct {
	repository GitRepository
	hosting    HostingClient
	planner    *BranchPlanner
	logger     *zap.Logger
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.Repository == nil {
		return nil, ErrRepositoryNotConfigured
	}
	if dependencies.Hosting == nil {
		return nil, ErrHostingClientNotConfigured
	}
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}

	planner, plannerError := NewBranchPlanner(dependencies.Repository)
	if plannerError != nil {
		return nil, plannerError
	}

	return &Service{
		repository: dependencies.Repository,
		hosting:    dependencies.Hosting,
		planner:    planner,
		logger:     dependencies.Logger,
	}, nil
}

// pipelineRun is the mutable bookkeeping for a single invocation. It records
// every state entered so rollback can replay the undo actions in reverse.
type pipelineRun struct {
	request       Request
	repoContext   RepoContext
	branchName    string
	enteredStates []PipelineState
}

func (run *pipelineRun) enter(state PipelineState, logger *zap.Logger) {
	run.enteredStates = append(run.enteredStates, state)
	logger.Debug(
		stateEnteredLogMessageConstant,
		zap.Stringer(logFieldStateConstant, state),
		zap.String(logFieldBranchConstant, run.branchName),
	)
}

// Execute runs the pipeline for the supplied request.
//
// Failures before the pull request exists roll back every mutating state in
// reverse order; once the pull request is a remote fact the run stops rolling
// back and surfaces errors directly, leaving the operator informed.
func (service *Service) Execute(executionContext context.Context, request Request) (PipelineResult, error) {
	if validationError := validateRequest(request); validationError != nil {
		return PipelineResult{}, validationError
	}

	if request.StageAll {
		if stageError := service.repository.StageAllChanges(executionContext, request.RepositoryPath); stageError != nil {
			return PipelineResult{}, stageError
		}
	}

	stagedChangesPresent, stagedQueryError := service.repository.HasStagedChanges(executionContext, request.RepositoryPath)
	if stagedQueryError != nil {
		return PipelineResult{}, stagedQueryError
	}
	if !stagedChangesPresent {
		return PipelineResult{}, ErrNoStagedChanges
	}

	repoContext, contextError := ResolveRepoContext(executionContext, service.repository, service.hosting, request.RepositoryPath, request.RemoteName)
	if contextError != nil {
		return PipelineResult{}, contextError
	}

	run := &pipelineRun{request: request, repoContext: repoContext}
	run.enter(PipelineStateValidated, service.logger)

	branchPlan, planError := service.planner.PlanBranch(executionContext, request.RepositoryPath, request.RemoteName, request.BranchPrefix, repoContext.Username)
	if planError != nil {
		return PipelineResult{}, planError
	}
	run.branchName = branchPlan.BranchName

	if createError := service.repository.CreateBranch(executionContext, request.RepositoryPath, run.branchName); createError != nil {
		return service.fail(executionContext, run, createError)
	}
	run.enter(PipelineStateBranchCreated, service.logger)

	if commitError := service.repository.CommitStagedChanges(executionContext, request.RepositoryPath, request.CommitMessage); commitError != nil {
		return service.fail(executionContext, run, commitError)
	}
	run.enter(PipelineStateCommitted, service.logger)

	if pushError := service.repository.PushBranch(executionContext, request.RepositoryPath, request.RemoteName, run.branchName); pushError != nil {
		return service.fail(executionContext, run, pushError)
	}
	run.enter(PipelineStatePushed, service.logger)

	result := PipelineResult{
		BranchName:     run.branchName,
		OriginalBranch: repoContext.OriginalBranch,
		MergeOutcome:   MergeOutcomeNotRequested,
	}

	if request.Interactive {
		result.ComparePageURL = buildComparePageURL(repoContext, run.branchName)
	} else {
		pullRequestURL, createError := service.hosting.CreatePullRequest(executionContext, request.RepositoryPath, githubcli.PullRequestDetails{
			BaseRepository: repoContext.BaseRepository,
			BaseBranch:     repoContext.BaseBranch,
			Title:          commitTitle(request.CommitMessage),
			Body:           request.Body,
			HeadBranch:     run.branchName,
			Draft:          request.Draft,
			Reviewers:      request.Reviewers,
		})
		if createError != nil {
			return service.fail(executionContext, run, createError)
		}
		result.PullRequestURL = pullRequestURL
	}
	run.enter(PipelineStatePRCreated, service.logger)

	if restoreError := service.repository.CheckoutBranch(executionContext, request.RepositoryPath, repoContext.OriginalBranch); restoreError != nil {
		return result, restoreError
	}
	run.enter(PipelineStateRestored, service.logger)

	return service.finishWithMerge(executionContext, run, result)
}

func validateRequest(request Request) error {
	if len(strings.TrimSpace(request.CommitMessage)) == 0 {
		return ErrCommitMessageRequired
	}
	if request.Interactive && (request.Merge || request.EnableAutoMerge) {
		return ErrInteractiveMergeUnsupported
	}
	if request.Merge && request.EnableAutoMerge {
		return ErrConflictingMergeRequests
	}
	return nil
}

// fail rolls back every recorded state in reverse order and surfaces the
// originating error. Rollback failures are logged and never mask it.
func (service *Service) fail(executionContext context.Context, run *pipelineRun, originatingError error) (PipelineResult, error) {
	for stateIndex := len(run.enteredStates) - 1; stateIndex >= 0; stateIndex-- {
		rolledBackState := run.enteredStates[stateIndex]
		service.logger.Debug(
			rollbackStartedLogMessageConstant,
			zap.Stringer(logFieldStateConstant, rolledBackState),
			zap.String(logFieldBranchConstant, run.branchName),
		)

		for _, rollbackError := range service.rollbackState(executionContext, run, rolledBackState) {
			service.logger.Warn(
				rollbackFailedLogMessageConstant,
				zap.Stringer(logFieldStateConstant, rolledBackState),
				zap.String(logFieldBranchConstant, run.branchName),
				zap.Error(rollbackError),
			)
		}
	}

	return PipelineResult{}, originatingError
}

// rollbackState performs the undo actions for a single state and collects
// their best-effort failures.
func (service *Service) rollbackState(executionContext context.Context, run *pipelineRun, state PipelineState) []error {
	repositoryPath := run.request.RepositoryPath
	var rollbackErrors []error

	switch state {
	case PipelineStatePushed:
		if deleteError := service.repository.DeleteRemoteBranch(executionContext, repositoryPath, run.request.RemoteName, run.branchName); deleteError != nil {
			rollbackErrors = append(rollbackErrors, deleteError)
		}
	case PipelineStateCommitted:
		if resetError := service.repository.ResetSoftToParent(executionContext, repositoryPath); resetError != nil {
			rollbackErrors = append(rollbackErrors, resetError)
		}
	case PipelineStateBranchCreated:
		if checkoutError := service.repository.CheckoutBranch(executionContext, repositoryPath, run.repoContext.OriginalBranch); checkoutError != nil {
			rollbackErrors = append(rollbackErrors, checkoutError)
		}
		if deleteError := service.repository.DeleteLocalBranch(executionContext, repositoryPath, run.branchName); deleteError != nil {
			rollbackErrors = append(rollbackErrors, deleteError)
		}
	}

	return rollbackErrors
}

func commitTitle(commitMessage string) string {
	titleLine, _, _ := strings.Cut(commitMessage, commitTitleSeparatorConstant)
	return strings.TrimSpace(titleLine)
}

func buildComparePageURL(repoContext RepoContext, branchName string) string {
	baseOwner, baseRepository := repoContext.BaseOwnerAndRepository()
	compareRemote := gitrepo.RemoteURL{
		Protocol:   repoContext.Remote.Protocol,
		Host:       repoContext.Remote.Host,
		Owner:      baseOwner,
		Repository: baseRepository,
	}

	headReference := branchName
	if repoContext.IsFork {
		headOwner, _, ownerFound := strings.Cut(repoContext.HeadRepository, repositorySegmentSeparatorConstant)
		if ownerFound {
			headReference = headOwner + ":" + branchName
		}
	}

	return gitrepo.BuildComparePageURL(compareRemote, repoContext.BaseBranch, headReference)
}
