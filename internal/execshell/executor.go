package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	gitToolNameConstant                         = "git"
	githubCLIToolNameConstant                   = "gh"
	loggerNotConfiguredMessageConstant          = "shell executor logger not configured"
	commandRunnerNotConfiguredMessageConstant   = "shell executor command runner not configured"
	commandFailedMessageTemplateConstant        = "%s failed with exit code %d"
	commandFailedStderrSuffixTemplateConstant   = ": %s"
	commandExecutionFailedTemplateConstant      = "%s execution failed: %s"
	commandStartedLogMessageConstant            = "external command started"
	commandCompletedLogMessageConstant          = "external command completed"
	commandFailedLogMessageConstant             = "external command failed"
	commandExecutionFailedLogMessageConstant    = "external command could not be executed"
	logFieldCommandNameConstant                 = "command"
	logFieldCommandArgumentsConstant            = "arguments"
	logFieldWorkingDirectoryConstant            = "working_directory"
	logFieldExitCodeConstant                    = "exit_code"
	logFieldStandardErrorConstant               = "standard_error"
	logFieldInteractiveConstant                 = "interactive"
	commandArgumentsDisplaySeparatorConstant    = " "
	commandLabelDisplayTemplateConstant         = "%s %s"
	commandLabelWithoutArgumentsDisplayConstant = "%s"
)

// CommandName identifies a supported external executable.
type CommandName string

// Supported executable enumerations.
const (
	CommandGit    CommandName = CommandName(gitToolNameConstant)
	CommandGitHub CommandName = CommandName(githubCLIToolNameConstant)
)

// CommandDetails describes a single external tool invocation.
type CommandDetails struct {
	Arguments             []string
	WorkingDirectory      string
	EnvironmentVariables  map[string]string
	StandardInput         []byte
	UseInteractiveStreams bool
}

// ShellCommand combines a CommandName with specific invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable results of executing a command.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner represents the ability to run shell commands.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

var (
	// ErrLoggerNotConfigured indicates the executor was constructed without a logger.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrCommandRunnerNotConfigured indicates the executor was constructed without a runner.
	ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)
)

// CommandFailedError reports a command that completed with a non-zero exit code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the command failure including captured standard error output.
func (failureError CommandFailedError) Error() string {
	baseMessage := fmt.Sprintf(commandFailedMessageTemplateConstant, describeCommand(failureError.Command), failureError.Result.ExitCode)
	trimmedStandardError := strings.TrimSpace(failureError.Result.StandardError)
	if len(trimmedStandardError) == 0 {
		return baseMessage
	}
	return baseMessage + fmt.Sprintf(commandFailedStderrSuffixTemplateConstant, trimmedStandardError)
}

// CommandExecutionError reports a command that could not be executed at all.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the execution failure.
func (executionError CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionFailedTemplateConstant, describeCommand(executionError.Command), executionError.Cause)
}

// Unwrap exposes the underlying cause.
func (executionError CommandExecutionError) Unwrap() error {
	return executionError.Cause
}

func describeCommand(command ShellCommand) string {
	if len(command.Details.Arguments) == 0 {
		return fmt.Sprintf(commandLabelWithoutArgumentsDisplayConstant, command.Name)
	}
	return fmt.Sprintf(commandLabelDisplayTemplateConstant, command.Name, strings.Join(command.Details.Arguments, commandArgumentsDisplaySeparatorConstant))
}

// ShellExecutor coordinates command execution, logging, and event observation.
type ShellExecutor struct {
	logger   *zap.Logger
	runner   CommandRunner
	observer CommandEventObserver
}

// NewShellExecutor constructs a ShellExecutor from the provided logger and runner.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner) (*ShellExecutor, error) {
	return NewShellExecutorWithObserver(logger, runner, noopCommandEventObserver{})
}

// NewShellExecutorWithObserver constructs a ShellExecutor that additionally notifies the supplied observer.
func NewShellExecutorWithObserver(logger *zap.Logger, runner CommandRunner, observer CommandEventObserver) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	if observer == nil {
		observer = noopCommandEventObserver{}
	}
	return &ShellExecutor{logger: logger, runner: runner, observer: observer}, nil
}

// Execute runs the supplied command and converts non-zero exits into typed errors.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executor.logger.Debug(
		commandStartedLogMessageConstant,
		zap.String(logFieldCommandNameConstant, string(command.Name)),
		zap.Strings(logFieldCommandArgumentsConstant, command.Details.Arguments),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
		zap.Bool(logFieldInteractiveConstant, command.Details.UseInteractiveStreams),
	)
	executor.observer.CommandStarted(command)

	executionResult, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executor.logger.Error(
			commandExecutionFailedLogMessageConstant,
			zap.String(logFieldCommandNameConstant, string(command.Name)),
			zap.Error(runError),
		)
		executor.observer.CommandExecutionFailed(command, runError)
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: runError}
	}

	executor.observer.CommandCompleted(command, executionResult)

	if executionResult.ExitCode != 0 {
		executor.logger.Debug(
			commandFailedLogMessageConstant,
			zap.String(logFieldCommandNameConstant, string(command.Name)),
			zap.Int(logFieldExitCodeConstant, executionResult.ExitCode),
			zap.String(logFieldStandardErrorConstant, strings.TrimSpace(executionResult.StandardError)),
		)
		return ExecutionResult{}, CommandFailedError{Command: command, Result: executionResult}
	}

	executor.logger.Debug(
		commandCompletedLogMessageConstant,
		zap.String(logFieldCommandNameConstant, string(command.Name)),
		zap.Int(logFieldExitCodeConstant, executionResult.ExitCode),
	)
	return executionResult, nil
}

// ExecuteWithResult runs the supplied command and returns its result without treating non-zero exits as errors.
func (executor *ShellExecutor) ExecuteWithResult(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executionResult, executionError := executor.Execute(executionContext, command)
	if executionError != nil {
		failureError := CommandFailedError{}
		if errors.As(executionError, &failureError) {
			return failureError.Result, nil
		}
		return ExecutionResult{}, executionError
	}
	return executionResult, nil
}

// ExecuteGit runs git with the provided details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

// ExecuteGitWithResult runs git and reports the execution result even for non-zero exits.
func (executor *ShellExecutor) ExecuteGitWithResult(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.ExecuteWithResult(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

// ExecuteGitHubCLI runs the GitHub CLI with the provided details.
func (executor *ShellExecutor) ExecuteGitHubCLI(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGitHub, Details: details})
}
