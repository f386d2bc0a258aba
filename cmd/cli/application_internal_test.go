package cli

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func changeWorkingDirectory(t *testing.T, directoryPath string) {
	t.Helper()

	originalWorkingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(t, workingDirectoryError)
	require.NoError(t, os.Chdir(directoryPath))
	t.Cleanup(func() {
		require.NoError(t, os.Chdir(originalWorkingDirectory))
	})
}

const (
	pullRequestCommandNameConstant = "pr"
	debugLogLevelValueConstant     = "debug"
	consoleLogFormatValueConstant  = "console"
)

func TestNewApplicationRegistersPullRequestCommand(t *testing.T) {
	application := NewApplication()

	commandNames := make([]string, 0, len(application.rootCommand.Commands()))
	for _, registeredCommand := range application.rootCommand.Commands() {
		commandNames = append(commandNames, registeredCommand.Name())
	}

	require.Contains(t, commandNames, pullRequestCommandNameConstant)
}

func TestInitializeConfigurationAppliesFlagOverrides(t *testing.T) {
	changeWorkingDirectory(t, t.TempDir())

	application := NewApplication()
	rootCommand := application.rootCommand
	rootCommand.SetContext(context.Background())

	require.NoError(t, rootCommand.PersistentFlags().Set(logLevelFlagNameConstant, debugLogLevelValueConstant))
	require.NoError(t, rootCommand.PersistentFlags().Set(logFormatFlagNameConstant, consoleLogFormatValueConstant))

	initializationError := application.initializeConfiguration(rootCommand)
	require.NoError(t, initializationError)

	require.Equal(t, debugLogLevelValueConstant, application.configuration.Common.LogLevel)
	require.Equal(t, consoleLogFormatValueConstant, application.configuration.Common.LogFormat)
	require.True(t, application.humanReadableLoggingEnabled())

	_, configurationPathAttached := application.commandContextAccessor.ConfigurationFilePath(rootCommand.Context())
	require.True(t, configurationPathAttached)
}

func TestInitializeConfigurationVerboseFlagForcesDebugLevel(t *testing.T) {
	changeWorkingDirectory(t, t.TempDir())

	application := NewApplication()
	rootCommand := application.rootCommand
	rootCommand.SetContext(context.Background())

	require.NoError(t, rootCommand.PersistentFlags().Set(verboseFlagNameConstant, "true"))

	initializationError := application.initializeConfiguration(rootCommand)
	require.NoError(t, initializationError)

	require.Equal(t, debugLogLevelValueConstant, application.configuration.Common.LogLevel)
}

func TestExecuteWithoutArgumentsShowsHelp(t *testing.T) {
	changeWorkingDirectory(t, t.TempDir())

	application := NewApplication()
	application.rootCommand.SetArgs([]string{})

	require.NoError(t, application.Execute())
}

func TestInitializeConfigurationAppliesEmbeddedDefaults(t *testing.T) {
	changeWorkingDirectory(t, t.TempDir())

	application := NewApplication()
	rootCommand := application.rootCommand
	rootCommand.SetContext(context.Background())

	initializationError := application.initializeConfiguration(rootCommand)
	require.NoError(t, initializationError)

	pullRequestConfiguration := application.configuration.Tools.PullRequest.Sanitize()
	require.Equal(t, "origin", pullRequestConfiguration.RemoteName)
	require.Equal(t, "acp", pullRequestConfiguration.BranchPrefix)
	require.Equal(t, "merge", pullRequestConfiguration.MergeMethod)
}
