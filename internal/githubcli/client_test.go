package githubcli_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vbvictor/acp/internal/execshell"
	"github.com/vbvictor/acp/internal/githubcli"
)

const (
	testRepositoryPathConstant   = "/tmp/repo"
	testPullRequestURLConstant   = "https://github.com/acme/widgets/pull/42"
	testUserResponseConstant     = `{"login":"alice","id":1}`
	testForkViewResponseConstant = `{
		"nameWithOwner": "alice/widgets",
		"defaultBranchRef": {"name": "develop"},
		"parent": {
			"nameWithOwner": "acme/widgets",
			"defaultBranchRef": {"name": "main"}
		}
	}`
	testNonForkViewResponseConstant = `{
		"nameWithOwner": "acme/widgets",
		"defaultBranchRef": {"name": "main"},
		"parent": null
	}`
)

type stubGitHubExecutor struct {
	executionResult  execshell.ExecutionResult
	executionError   error
	recordedCommands []execshell.CommandDetails
}

func (executor *stubGitHubExecutor) ExecuteGitHubCLI(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedCommands = append(executor.recordedCommands, details)
	return executor.executionResult, executor.executionError
}

func commandFailure(standardError string) error {
	return execshell.CommandFailedError{
		Command: execshell.ShellCommand{Name: execshell.CommandGitHub},
		Result:  execshell.ExecutionResult{StandardError: standardError, ExitCode: 1},
	}
}

func TestNewClientValidatesExecutor(testInstance *testing.T) {
	client, creationError := githubcli.NewClient(nil)
	require.ErrorIs(testInstance, creationError, githubcli.ErrExecutorNotConfigured)
	require.Nil(testInstance, client)
}

func TestResolveAuthenticatedUsername(testInstance *testing.T) {
	testCases := []struct {
		name             string
		executionResult  execshell.ExecutionResult
		executionError   error
		expectedUsername string
		expectError      bool
	}{
		{
			name:             "AuthenticatedUser",
			executionResult:  execshell.ExecutionResult{StandardOutput: testUserResponseConstant},
			expectedUsername: "alice",
		},
		{
			name:           "IdentityQueryFailure",
			executionError: commandFailure("gh: Not logged in"),
			expectError:    true,
		},
		{
			name:            "EmptyLogin",
			executionResult: execshell.ExecutionResult{StandardOutput: `{"login":""}`},
			expectError:     true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &stubGitHubExecutor{executionResult: testCase.executionResult, executionError: testCase.executionError}
			client, creationError := githubcli.NewClient(executor)
			require.NoError(testInstance, creationError)

			username, usernameError := client.ResolveAuthenticatedUsername(context.Background(), testRepositoryPathConstant)
			if testCase.expectError {
				require.Error(testInstance, usernameError)
				require.IsType(testInstance, githubcli.NotAuthenticatedError{}, usernameError)
				return
			}

			require.NoError(testInstance, usernameError)
			require.Equal(testInstance, testCase.expectedUsername, username)
			require.Equal(testInstance, []string{"api", "user"}, executor.recordedCommands[0].Arguments)
		})
	}
}

func TestResolveRepoMetadata(testInstance *testing.T) {
	testCases := []struct {
		name             string
		viewResponse     string
		expectedMetadata githubcli.RepositoryMetadata
	}{
		{
			name:         "ForkWithParent",
			viewResponse: testForkViewResponseConstant,
			expectedMetadata: githubcli.RepositoryMetadata{
				NameWithOwner: "alice/widgets",
				DefaultBranch: "develop",
				IsFork:        true,
				Parent:        &githubcli.ParentRepository{NameWithOwner: "acme/widgets", DefaultBranch: "main"},
			},
		},
		{
			name:         "RepositoryWithoutParent",
			viewResponse: testNonForkViewResponseConstant,
			expectedMetadata: githubcli.RepositoryMetadata{
				NameWithOwner: "acme/widgets",
				DefaultBranch: "main",
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &stubGitHubExecutor{executionResult: execshell.ExecutionResult{StandardOutput: testCase.viewResponse}}
			client, creationError := githubcli.NewClient(executor)
			require.NoError(testInstance, creationError)

			repositoryMetadata, metadataError := client.ResolveRepoMetadata(context.Background(), testRepositoryPathConstant, "")
			require.NoError(testInstance, metadataError)
			require.Equal(testInstance, testCase.expectedMetadata, repositoryMetadata)
			require.Equal(testInstance, []string{"repo", "view", "--json", "nameWithOwner,defaultBranchRef,parent"}, executor.recordedCommands[0].Arguments)
		})
	}
}

func TestResolveRepoMetadataTargetsExplicitRepository(testInstance *testing.T) {
	executor := &stubGitHubExecutor{executionResult: execshell.ExecutionResult{StandardOutput: testNonForkViewResponseConstant}}
	client, creationError := githubcli.NewClient(executor)
	require.NoError(testInstance, creationError)

	_, metadataError := client.ResolveRepoMetadata(context.Background(), testRepositoryPathConstant, "acme/widgets")
	require.NoError(testInstance, metadataError)
	require.Equal(testInstance, []string{"repo", "view", "acme/widgets", "--json", "nameWithOwner,defaultBranchRef,parent"}, executor.recordedCommands[0].Arguments)
}

func TestCreatePullRequest(testInstance *testing.T) {
	executor := &stubGitHubExecutor{executionResult: execshell.ExecutionResult{StandardOutput: testPullRequestURLConstant + "\n"}}
	client, creationError := githubcli.NewClient(executor)
	require.NoError(testInstance, creationError)

	pullRequestURL, createError := client.CreatePullRequest(context.Background(), testRepositoryPathConstant, githubcli.PullRequestDetails{
		BaseRepository: "acme/widgets",
		BaseBranch:     "main",
		Title:          "docs: add notes",
		Body:           "Closes #123",
		HeadBranch:     "acp/alice/1234567890123456",
		Reviewers:      []string{"bob", " "},
	})
	require.NoError(testInstance, createError)
	require.Equal(testInstance, testPullRequestURLConstant, pullRequestURL)

	expectedArguments := []string{
		"pr", "create",
		"--repo", "acme/widgets",
		"--title", "docs: add notes",
		"--body", "Closes #123",
		"--head", "acp/alice/1234567890123456",
		"--base", "main",
		"--reviewer", "bob",
	}
	require.Equal(testInstance, expectedArguments, executor.recordedCommands[0].Arguments)
}

func TestCreatePullRequestMarksDraft(testInstance *testing.T) {
	executor := &stubGitHubExecutor{executionResult: execshell.ExecutionResult{StandardOutput: testPullRequestURLConstant + "\n"}}
	client, creationError := githubcli.NewClient(executor)
	require.NoError(testInstance, creationError)

	_, createError := client.CreatePullRequest(context.Background(), testRepositoryPathConstant, githubcli.PullRequestDetails{
		BaseRepository: "acme/widgets",
		BaseBranch:     "main",
		Title:          "docs: add notes",
		HeadBranch:     "acp/alice/1234567890123456",
		Draft:          true,
	})
	require.NoError(testInstance, createError)
	require.Contains(testInstance, executor.recordedCommands[0].Arguments, "--draft")
}

func TestCreatePullRequestValidatesInputs(testInstance *testing.T) {
	executor := &stubGitHubExecutor{}
	client, creationError := githubcli.NewClient(executor)
	require.NoError(testInstance, creationError)

	_, createError := client.CreatePullRequest(context.Background(), testRepositoryPathConstant, githubcli.PullRequestDetails{Title: "title", HeadBranch: "head"})
	require.IsType(testInstance, githubcli.InvalidInputError{}, createError)

	_, createError = client.CreatePullRequest(context.Background(), testRepositoryPathConstant, githubcli.PullRequestDetails{BaseRepository: "acme/widgets", HeadBranch: "head"})
	require.IsType(testInstance, githubcli.InvalidInputError{}, createError)

	_, createError = client.CreatePullRequest(context.Background(), testRepositoryPathConstant, githubcli.PullRequestDetails{BaseRepository: "acme/widgets", Title: "title"})
	require.IsType(testInstance, githubcli.InvalidInputError{}, createError)
	require.Empty(testInstance, executor.recordedCommands)
}

func TestCreatePullRequestRejectsEmptyURL(testInstance *testing.T) {
	executor := &stubGitHubExecutor{executionResult: execshell.ExecutionResult{StandardOutput: "\n"}}
	client, creationError := githubcli.NewClient(executor)
	require.NoError(testInstance, creationError)

	_, createError := client.CreatePullRequest(context.Background(), testRepositoryPathConstant, githubcli.PullRequestDetails{
		BaseRepository: "acme/widgets",
		Title:          "docs: add notes",
		HeadBranch:     "acp/alice/1234567890123456",
	})
	require.ErrorIs(testInstance, createError, githubcli.ErrEmptyPullRequestURL)
}

func TestParseMergeMethod(testInstance *testing.T) {
	testCases := []struct {
		name           string
		input          string
		expectedMethod githubcli.MergeMethod
		expectError    bool
	}{
		{name: "Merge", input: "merge", expectedMethod: githubcli.MergeMethodMerge},
		{name: "SquashUppercase", input: "SQUASH", expectedMethod: githubcli.MergeMethodSquash},
		{name: "RebasePadded", input: " rebase ", expectedMethod: githubcli.MergeMethodRebase},
		{name: "Unsupported", input: "fast-forward", expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			mergeMethod, parseError := githubcli.ParseMergeMethod(testCase.input)
			if testCase.expectError {
				require.Error(testInstance, parseError)
				return
			}

			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedMethod, mergeMethod)
		})
	}
}

func TestMergePullRequest(testInstance *testing.T) {
	testCases := []struct {
		name              string
		options           githubcli.MergeOptions
		executionError    error
		expectedArguments []string
		expectedErrorType any
	}{
		{
			name:              "SquashMerge",
			options:           githubcli.MergeOptions{Method: githubcli.MergeMethodSquash},
			expectedArguments: []string{"pr", "merge", testPullRequestURLConstant, "--squash"},
		},
		{
			name:              "AutoMerge",
			options:           githubcli.MergeOptions{Method: githubcli.MergeMethodRebase, EnableAutoMerge: true},
			expectedArguments: []string{"pr", "merge", testPullRequestURLConstant, "--rebase", "--auto"},
		},
		{
			name:              "MergeConflict",
			options:           githubcli.MergeOptions{Method: githubcli.MergeMethodMerge},
			executionError:    commandFailure("GraphQL: Pull Request is not mergeable (mergePullRequest)"),
			expectedErrorType: githubcli.MergeConflictError{},
		},
		{
			name:              "BranchProtectionRejection",
			options:           githubcli.MergeOptions{Method: githubcli.MergeMethodMerge},
			executionError:    commandFailure("GraphQL: Base branch policy prevents this merge"),
			expectedErrorType: githubcli.MergeNotAllowedError{},
		},
		{
			name:              "UnclassifiedFailure",
			options:           githubcli.MergeOptions{Method: githubcli.MergeMethodMerge},
			executionError:    commandFailure("something unexpected"),
			expectedErrorType: githubcli.OperationError{},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &stubGitHubExecutor{executionError: testCase.executionError}
			client, creationError := githubcli.NewClient(executor)
			require.NoError(testInstance, creationError)

			mergeError := client.MergePullRequest(context.Background(), testRepositoryPathConstant, testPullRequestURLConstant, testCase.options)
			if testCase.expectedErrorType != nil {
				require.Error(testInstance, mergeError)
				require.IsType(testInstance, testCase.expectedErrorType, mergeError)
				return
			}

			require.NoError(testInstance, mergeError)
			require.Equal(testInstance, testCase.expectedArguments, executor.recordedCommands[0].Arguments)
		})
	}
}

func TestMergePullRequestValidatesInputs(testInstance *testing.T) {
	executor := &stubGitHubExecutor{}
	client, creationError := githubcli.NewClient(executor)
	require.NoError(testInstance, creationError)

	mergeError := client.MergePullRequest(context.Background(), testRepositoryPathConstant, " ", githubcli.MergeOptions{Method: githubcli.MergeMethodMerge})
	require.IsType(testInstance, githubcli.InvalidInputError{}, mergeError)

	mergeError = client.MergePullRequest(context.Background(), testRepositoryPathConstant, testPullRequestURLConstant, githubcli.MergeOptions{Method: githubcli.MergeMethod("fast-forward")})
	require.IsType(testInstance, githubcli.InvalidInputError{}, mergeError)
	require.Empty(testInstance, executor.recordedCommands)
}
