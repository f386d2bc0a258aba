package autopr

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vbvictor/acp/internal/execshell"
	"github.com/vbvictor/acp/internal/githubcli"
	"github.com/vbvictor/acp/internal/gitrepo"
	"github.com/vbvictor/acp/internal/ui"
)

const (
	commandUseConstant                    = "pr <commit message>"
	commandShortDescriptionConstant       = "Publish staged changes as a pull request"
	commandLongDescriptionConstant        = "pr commits the staged changes on a temporary branch, pushes it, opens a pull request against the upstream default branch, and returns the repository to the branch it started on."
	commandExecutionErrorTemplateConstant = "pull request pipeline failed: %w"
	missingMessageArgumentConstant        = "provide the commit message as the single positional argument"
	flagBodyNameConstant                  = "body"
	flagBodyShorthandConstant             = "b"
	flagBodyDescriptionConstant           = "Pull request body text"
	flagAddNameConstant                   = "add"
	flagAddShorthandConstant              = "a"
	flagAddDescriptionConstant            = "Stage all pending changes before committing"
	flagInteractiveNameConstant           = "interactive"
	flagInteractiveDescriptionConstant    = "Print the compare page URL instead of submitting the pull request"
	flagDraftNameConstant                 = "draft"
	flagDraftDescriptionConstant          = "Create the pull request as a draft"
	flagMergeNameConstant                 = "merge"
	flagMergeDescriptionConstant          = "Merge the pull request immediately after creation"
	flagAutoMergeNameConstant             = "auto-merge"
	flagAutoMergeDescriptionConstant      = "Enable auto-merge so the platform merges once checks pass"
	flagMergeMethodNameConstant           = "merge-method"
	flagMergeMethodDescriptionConstant    = "Merge method to use: merge, squash, or rebase"
	flagReviewerNameConstant              = "reviewer"
	flagReviewerDescriptionConstant       = "Reviewer to request on the pull request (repeatable)"
	pullRequestOutputTemplateConstant     = "Pull request: %s\n"
	comparePageOutputTemplateConstant     = "Open to create the pull request: %s\n"
	mergedOutputTemplateConstant          = "Merged: %s\n"
	autoMergeOutputTemplateConstant       = "Auto-merge enabled: %s\n"
)

var errMissingMessageArgument = errors.New(missingMessageArgumentConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current pull-request command configuration.
type ConfigurationProvider func() CommandConfiguration

// CommandBuilder assembles the Cobra command that publishes staged changes.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        ConfigurationProvider
	HumanReadableLoggingProvider func() bool
	Repository                   GitRepository
	Hosting                      HostingClient
	WorkingDirectory             string
}

// Build constructs the pr command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().StringP(flagBodyNameConstant, flagBodyShorthandConstant, "", flagBodyDescriptionConstant)
	command.Flags().BoolP(flagAddNameConstant, flagAddShorthandConstant, false, flagAddDescriptionConstant)
	command.Flags().Bool(flagInteractiveNameConstant, false, flagInteractiveDescriptionConstant)
	command.Flags().Bool(flagDraftNameConstant, false, flagDraftDescriptionConstant)
	command.Flags().Bool(flagMergeNameConstant, false, flagMergeDescriptionConstant)
	command.Flags().Bool(flagAutoMergeNameConstant, false, flagAutoMergeDescriptionConstant)
	command.Flags().String(flagMergeMethodNameConstant, "", flagMergeMethodDescriptionConstant)
	command.Flags().StringArray(flagReviewerNameConstant, nil, flagReviewerDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) != 1 {
		return errMissingMessageArgument
	}

	request, requestError := builder.buildRequest(command, arguments[0])
	if requestError != nil {
		return requestError
	}

	logger := builder.resolveLogger()

	repository, hosting, dependenciesError := builder.resolveDependencies(logger)
	if dependenciesError != nil {
		return dependenciesError
	}

	service, serviceError := NewService(Dependencies{
		Repository: repository,
		Hosting:    hosting,
		Logger:     logger,
	})
	if serviceError != nil {
		return serviceError
	}

	result, executionError := service.Execute(command.Context(), request)
	if executionError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, executionError)
	}

	builder.reportResult(command, result)

	return nil
}

func (builder *CommandBuilder) buildRequest(command *cobra.Command, commitMessage string) (Request, error) {
	configuration := builder.resolveConfiguration()

	bodyValue, _ := command.Flags().GetString(flagBodyNameConstant)
	stageAllValue, _ := command.Flags().GetBool(flagAddNameConstant)
	interactiveValue, _ := command.Flags().GetBool(flagInteractiveNameConstant)
	draftValue, _ := command.Flags().GetBool(flagDraftNameConstant)
	mergeValue, _ := command.Flags().GetBool(flagMergeNameConstant)
	autoMergeValue, _ := command.Flags().GetBool(flagAutoMergeNameConstant)
	mergeMethodValue, _ := command.Flags().GetString(flagMergeMethodNameConstant)
	reviewerValues, _ := command.Flags().GetStringArray(flagReviewerNameConstant)

	if len(mergeMethodValue) == 0 {
		mergeMethodValue = configuration.MergeMethod
	}
	mergeMethod, mergeMethodError := githubcli.ParseMergeMethod(mergeMethodValue)
	if mergeMethodError != nil {
		return Request{}, mergeMethodError
	}

	reviewers := configuration.Reviewers
	if command.Flags().Changed(flagReviewerNameConstant) {
		reviewers = sanitizeReviewers(reviewerValues)
	}

	return Request{
		RepositoryPath:  builder.WorkingDirectory,
		RemoteName:      configuration.RemoteName,
		BranchPrefix:    configuration.BranchPrefix,
		CommitMessage:   commitMessage,
		Body:            bodyValue,
		StageAll:        stageAllValue,
		Interactive:     interactiveValue,
		Draft:           draftValue,
		Merge:           mergeValue,
		EnableAutoMerge: autoMergeValue,
		MergeMethod:     mergeMethod,
		Reviewers:       reviewers,
	}, nil
}

func (builder *CommandBuilder) reportResult(command *cobra.Command, result PipelineResult) {
	if len(result.ComparePageURL) > 0 {
		fmt.Fprintf(command.OutOrStdout(), comparePageOutputTemplateConstant, result.ComparePageURL)
		return
	}

	switch result.MergeOutcome {
	case MergeOutcomeMerged:
		fmt.Fprintf(command.OutOrStdout(), mergedOutputTemplateConstant, result.PullRequestURL)
	case MergeOutcomeAutoMergeEnabled:
		fmt.Fprintf(command.OutOrStdout(), autoMergeOutputTemplateConstant, result.PullRequestURL)
	default:
		fmt.Fprintf(command.OutOrStdout(), pullRequestOutputTemplateConstant, result.PullRequestURL)
	}
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// resolveDependencies builds the production git and hosting collaborators when
// the builder was not given test doubles.
func (builder *CommandBuilder) resolveDependencies(logger *zap.Logger) (GitRepository, HostingClient, error) {
	repository := builder.Repository
	hosting := builder.Hosting
	if repository != nil && hosting != nil {
		return repository, hosting, nil
	}

	executor, executorError := builder.buildShellExecutor(logger)
	if executorError != nil {
		return nil, nil, executorError
	}

	if repository == nil {
		repositoryManager, managerError := gitrepo.NewRepositoryManager(executor)
		if managerError != nil {
			return nil, nil, managerError
		}
		repository = repositoryManager
	}

	if hosting == nil {
		hostingClient, clientError := githubcli.NewClient(executor)
		if clientError != nil {
			return nil, nil, clientError
		}
		hosting = hostingClient
	}

	return repository, hosting, nil
}

func (builder *CommandBuilder) buildShellExecutor(logger *zap.Logger) (*execshell.ShellExecutor, error) {
	commandRunner := execshell.NewOSCommandRunner()

	humanReadableLogging := false
	if builder.HumanReadableLoggingProvider != nil {
		humanReadableLogging = builder.HumanReadableLoggingProvider()
	}

	if humanReadableLogging {
		return execshell.NewShellExecutorWithObserver(logger, commandRunner, ui.NewConsoleCommandEventLogger(logger))
	}

	return execshell.NewShellExecutor(logger, commandRunner)
}
