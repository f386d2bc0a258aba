package ui_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vbvictor/acp/internal/execshell"
	"github.com/vbvictor/acp/internal/ui"
)

const (
	testStartedCaseNameConstant          = "command_started"
	testCompletedCaseNameConstant        = "command_completed"
	testFailedExitCodeCaseNameConstant   = "command_failed_exit_code"
	testExecutionFailureCaseNameConstant = "command_execution_failure"
)

func buildTestCommand() execshell.ShellCommand {
	return execshell.ShellCommand{
		Name: execshell.CommandGit,
		Details: execshell.CommandDetails{
			Arguments:        []string{"push", "-u", "origin", "acp/alice/1234567890123456"},
			WorkingDirectory: "/tmp/repo",
		},
	}
}

func TestConsoleCommandEventLoggerMessages(testInstance *testing.T) {
	testCases := []struct {
		name            string
		emit            func(eventLogger *ui.ConsoleCommandEventLogger)
		expectedMessage string
	}{
		{
			name: testStartedCaseNameConstant,
			emit: func(eventLogger *ui.ConsoleCommandEventLogger) {
				eventLogger.CommandStarted(buildTestCommand())
			},
			expectedMessage: "Running git push -u origin acp/alice/1234567890123456 (in /tmp/repo)",
		},
		{
			name: testCompletedCaseNameConstant,
			emit: func(eventLogger *ui.ConsoleCommandEventLogger) {
				eventLogger.CommandCompleted(buildTestCommand(), execshell.ExecutionResult{ExitCode: 0})
			},
			expectedMessage: "Completed git push -u origin acp/alice/1234567890123456 (in /tmp/repo)",
		},
		{
			name: testFailedExitCodeCaseNameConstant,
			emit: func(eventLogger *ui.ConsoleCommandEventLogger) {
				eventLogger.CommandCompleted(buildTestCommand(), execshell.ExecutionResult{ExitCode: 1, StandardError: "remote rejected"})
			},
			expectedMessage: "git push -u origin acp/alice/1234567890123456 (in /tmp/repo) failed with exit code 1: remote rejected",
		},
		{
			name: testExecutionFailureCaseNameConstant,
			emit: func(eventLogger *ui.ConsoleCommandEventLogger) {
				eventLogger.CommandExecutionFailed(buildTestCommand(), errors.New("binary missing"))
			},
			expectedMessage: "git push -u origin acp/alice/1234567890123456 (in /tmp/repo) failed: binary missing",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			observerCore, observedLogs := observer.New(zap.DebugLevel)
			eventLogger := ui.NewConsoleCommandEventLogger(zap.New(observerCore))

			testCase.emit(eventLogger)

			logEntries := observedLogs.All()
			require.Len(testInstance, logEntries, 1)
			require.Equal(testInstance, testCase.expectedMessage, logEntries[0].Message)
		})
	}
}

func TestConsoleCommandEventLoggerToleratesNilLogger(testInstance *testing.T) {
	eventLogger := ui.NewConsoleCommandEventLogger(nil)
	require.NotPanics(testInstance, func() {
		eventLogger.CommandStarted(buildTestCommand())
		eventLogger.CommandCompleted(buildTestCommand(), execshell.ExecutionResult{})
		eventLogger.CommandExecutionFailed(buildTestCommand(), nil)
	})
}
