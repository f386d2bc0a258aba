package githubcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vbvictor/acp/internal/execshell"
)

const (
	apiSubcommandConstant                   = "api"
	userEndpointConstant                    = "user"
	repoSubcommandConstant                  = "repo"
	viewSubcommandConstant                  = "view"
	pullRequestSubcommandConstant           = "pr"
	createSubcommandConstant                = "create"
	mergeSubcommandConstant                 = "merge"
	jsonFlagConstant                        = "--json"
	repoFlagConstant                        = "--repo"
	titleFlagConstant                       = "--title"
	bodyFlagConstant                        = "--body"
	headFlagConstant                        = "--head"
	draftFlagConstant                       = "--draft"
	baseBranchFlagConstant                  = "--base"
	reviewerFlagConstant                    = "--reviewer"
	autoFlagConstant                        = "--auto"
	mergeMethodMergeFlagConstant            = "--merge"
	mergeMethodSquashFlagConstant           = "--squash"
	mergeMethodRebaseFlagConstant           = "--rebase"
	repoViewJSONFieldsConstant              = "nameWithOwner,defaultBranchRef,parent"
	titleFieldNameConstant                  = "title"
	headBranchFieldNameConstant             = "head_branch"
	baseRepositoryFieldNameConstant         = "base_repository"
	pullRequestFieldNameConstant            = "pull_request"
	mergeMethodFieldNameConstant            = "merge_method"
	requiredValueMessageConstant            = "value required"
	unsupportedValueMessageConstant         = "unsupported value"
	executorNotConfiguredMessageConstant    = "github cli executor not configured"
	notAuthenticatedMessageTemplateConstant = "github cli is not authenticated: %s"
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant   = "%s response decoding failed: %s"
	mergeConflictErrorTemplateConstant      = "pull request %s cannot be merged cleanly: %s"
	mergeNotAllowedErrorTemplateConstant    = "merging pull request %s is not allowed: %s"
	emptyPullRequestURLMessageConstant      = "pull request creation returned no URL"
	resolveUsernameOperationNameConstant    = OperationName("ResolveAuthenticatedUsername")
	repositoryMetadataOperationNameConstant = OperationName("ResolveRepoMetadata")
	createPullRequestOperationNameConstant  = OperationName("CreatePullRequest")
	mergePullRequestOperationNameConstant   = OperationName("MergePullRequest")
)

// OperationName describes a named GitHub CLI workflow supported by the client.
type OperationName string

// MergeMethod enumerates supported pull-request merge strategies.
type MergeMethod string

// Supported merge methods.
const (
	MergeMethodMerge  MergeMethod = MergeMethod("merge")
	MergeMethodSquash MergeMethod = MergeMethod("squash")
	MergeMethodRebase MergeMethod = MergeMethod("rebase")
)

var mergeMethodFlagMapping = map[MergeMethod]string{
	MergeMethodMerge:  mergeMethodMergeFlagConstant,
	MergeMethodSquash: mergeMethodSquashFlagConstant,
	MergeMethodRebase: mergeMethodRebaseFlagConstant,
}

// ParseMergeMethod validates a textual merge method selection.
func ParseMergeMethod(candidate string) (MergeMethod, error) {
	normalizedCandidate := MergeMethod(strings.ToLower(strings.TrimSpace(candidate)))
	if _, supported := mergeMethodFlagMapping[normalizedCandidate]; !supported {
		return "", InvalidInputError{FieldName: mergeMethodFieldNameConstant, Message: unsupportedValueMessageConstant}
	}
	return normalizedCandidate, nil
}

// RepositoryMetadata contains key details resolved from GitHub.
type RepositoryMetadata struct {
	NameWithOwner string
	DefaultBranch string
	IsFork        bool
	Parent        *ParentRepository
}

// ParentRepository identifies the upstream repository of a fork.
type ParentRepository struct {
	NameWithOwner string
	DefaultBranch string
}

// PullRequestDetails describes a pull request to create.
type PullRequestDetails struct {
	BaseRepository string
	BaseBranch     string
	Title          string
	Body           string
	HeadBranch     string
	Draft          bool
	Reviewers      []string
}

// MergeOptions configures a pull-request merge invocation.
type MergeOptions struct {
	Method          MergeMethod
	EnableAutoMerge bool
}

// GitHubCommandExecutor is the minimal interface required from execshell.ShellExecutor.
type GitHubCommandExecutor interface {
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Client coordinates GitHub CLI invocations through execshell.
type Client struct {
	executor GitHubCommandExecutor
}

// ErrExecutorNotConfigured indicates the client was constructed without an executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// ErrEmptyPullRequestURL indicates pull-request creation produced no URL on standard output.
var ErrEmptyPullRequestURL = errors.New(emptyPullRequestURLMessageConstant)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s", inputError.FieldName, inputError.Message)
}

// OperationError wraps execution issues for GitHub CLI operations.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// NotAuthenticatedError indicates the GitHub CLI holds no usable credentials.
type NotAuthenticatedError struct {
	Cause error
}

// Error describes the authentication failure.
func (authenticationError NotAuthenticatedError) Error() string {
	return fmt.Sprintf(notAuthenticatedMessageTemplateConstant, authenticationError.Cause)
}

// Unwrap exposes the underlying identity-query failure.
func (authenticationError NotAuthenticatedError) Unwrap() error {
	return authenticationError.Cause
}

// MergeConflictError indicates the pull request cannot be merged because of conflicts.
type MergeConflictError struct {
	PullRequestURL string
	Cause          error
}

// Error describes the merge conflict.
func (conflictError MergeConflictError) Error() string {
	return fmt.Sprintf(mergeConflictErrorTemplateConstant, conflictError.PullRequestURL, conflictError.Cause)
}

// Unwrap exposes the underlying merge failure.
func (conflictError MergeConflictError) Unwrap() error {
	return conflictError.Cause
}

// MergeNotAllowedError indicates branch protection or repository policy rejected the merge.
type MergeNotAllowedError struct {
	PullRequestURL string
	Cause          error
}

// Error describes the rejected merge.
func (rejectionError MergeNotAllowedError) Error() string {
	return fmt.Sprintf(mergeNotAllowedErrorTemplateConstant, rejectionError.PullRequestURL, rejectionError.Cause)
}

// Unwrap exposes the underlying merge failure.
func (rejectionError MergeNotAllowedError) Unwrap() error {
	return rejectionError.Cause
}

// NewClient constructs a GitHub CLI client.
func NewClient(executor GitHubCommandExecutor) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Client{executor: executor}, nil
}

// ResolveAuthenticatedUsername returns the login of the user the CLI is authenticated as.
func (client *Client) ResolveAuthenticatedUsername(executionContext context.Context, repositoryPath string) (string, error) {
	commandDetails := execshell.CommandDetails{
		Arguments:        []string{apiSubcommandConstant, userEndpointConstant},
		WorkingDirectory: repositoryPath,
	}

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return "", NotAuthenticatedError{Cause: executionError}
	}

	var response struct {
		Login string `json:"login"`
	}

	decodingError := json.Unmarshal([]byte(executionResult.StandardOutput), &response)
	if decodingError != nil {
		return "", ResponseDecodingError{Operation: resolveUsernameOperationNameConstant, Cause: decodingError}
	}

	if len(strings.TrimSpace(response.Login)) == 0 {
		return "", NotAuthenticatedError{Cause: OperationError{Operation: resolveUsernameOperationNameConstant}}
	}

	return response.Login, nil
}

// ResolveRepoMetadata retrieves canonical metadata for a repository using gh repo view.
//
// An empty repository identifier resolves the repository containing
// repositoryPath; fork parentage is reported through the Parent field.
func (client *Client) ResolveRepoMetadata(executionContext context.Context, repositoryPath string, repository string) (RepositoryMetadata, error) {
	commandArguments := []string{repoSubcommandConstant, viewSubcommandConstant}
	repositoryIdentifier := strings.TrimSpace(repository)
	if len(repositoryIdentifier) > 0 {
		commandArguments = append(commandArguments, repositoryIdentifier)
	}
	commandArguments = append(commandArguments, jsonFlagConstant, repoViewJSONFieldsConstant)

	commandDetails := execshell.CommandDetails{
		Arguments:        commandArguments,
		WorkingDirectory: repositoryPath,
	}

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return RepositoryMetadata{}, OperationError{Operation: repositoryMetadataOperationNameConstant, Cause: executionError}
	}

	var response struct {
		NameWithOwner    string `json:"nameWithOwner"`
		DefaultBranchRef struct {
			Name string `json:"name"`
		} `json:"defaultBranchRef"`
		Parent *struct {
			NameWithOwner    string `json:"nameWithOwner"`
			DefaultBranchRef struct {
				Name string `json:"name"`
			} `json:"defaultBranchRef"`
		} `json:"parent"`
	}

	decodingError := json.Unmarshal([]byte(executionResult.StandardOutput), &response)
	if decodingError != nil {
		return RepositoryMetadata{}, ResponseDecodingError{Operation: repositoryMetadataOperationNameConstant, Cause: decodingError}
	}

	repositoryMetadata := RepositoryMetadata{
		NameWithOwner: response.NameWithOwner,
		DefaultBranch: response.DefaultBranchRef.Name,
	}

	if response.Parent != nil && len(strings.TrimSpace(response.Parent.NameWithOwner)) > 0 {
		repositoryMetadata.IsFork = true
		repositoryMetadata.Parent = &ParentRepository{
			NameWithOwner: response.Parent.NameWithOwner,
			DefaultBranch: response.Parent.DefaultBranchRef.Name,
		}
	}

	return repositoryMetadata, nil
}

// CreatePullRequest opens a pull request using gh pr create and returns its URL.
func (client *Client) CreatePullRequest(executionContext context.Context, repositoryPath string, details PullRequestDetails) (string, error) {
	if len(strings.TrimSpace(details.BaseRepository)) == 0 {
		return "", InvalidInputError{FieldName: baseRepositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(details.Title)) == 0 {
		return "", InvalidInputError{FieldName: titleFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(details.HeadBranch)) == 0 {
		return "", InvalidInputError{FieldName: headBranchFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandArguments := []string{
		pullRequestSubcommandConstant,
		createSubcommandConstant,
		repoFlagConstant,
		details.BaseRepository,
		titleFlagConstant,
		details.Title,
		bodyFlagConstant,
		details.Body,
		headFlagConstant,
		details.HeadBranch,
	}

	if len(strings.TrimSpace(details.BaseBranch)) > 0 {
		commandArguments = append(commandArguments, baseBranchFlagConstant, details.BaseBranch)
	}

	if details.Draft {
		commandArguments = append(commandArguments, draftFlagConstant)
	}

	for _, reviewer := range details.Reviewers {
		trimmedReviewer := strings.TrimSpace(reviewer)
		if len(trimmedReviewer) == 0 {
			continue
		}
		commandArguments = append(commandArguments, reviewerFlagConstant, trimmedReviewer)
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        commandArguments,
		WorkingDirectory: repositoryPath,
	}

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return "", OperationError{Operation: createPullRequestOperationNameConstant, Cause: executionError}
	}

	pullRequestURL := lastNonEmptyLine(executionResult.StandardOutput)
	if len(pullRequestURL) == 0 {
		return "", OperationError{Operation: createPullRequestOperationNameConstant, Cause: ErrEmptyPullRequestURL}
	}

	return pullRequestURL, nil
}

// MergePullRequest merges the pull request or enables auto-merge using gh pr merge.
func (client *Client) MergePullRequest(executionContext context.Context, repositoryPath string, pullRequestURL string, options MergeOptions) error {
	trimmedPullRequestURL := strings.TrimSpace(pullRequestURL)
	if len(trimmedPullRequestURL) == 0 {
		return InvalidInputError{FieldName: pullRequestFieldNameConstant, Message: requiredValueMessageConstant}
	}

	mergeMethodFlag, methodSupported := mergeMethodFlagMapping[options.Method]
	if !methodSupported {
		return InvalidInputError{FieldName: mergeMethodFieldNameConstant, Message: unsupportedValueMessageConstant}
	}

	commandArguments := []string{pullRequestSubcommandConstant, mergeSubcommandConstant, trimmedPullRequestURL, mergeMethodFlag}
	if options.EnableAutoMerge {
		commandArguments = append(commandArguments, autoFlagConstant)
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        commandArguments,
		WorkingDirectory: repositoryPath,
	}

	_, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return classifyMergeFailure(trimmedPullRequestURL, executionError)
	}

	return nil
}

func classifyMergeFailure(pullRequestURL string, executionError error) error {
	failureError := execshell.CommandFailedError{}
	if !errors.As(executionError, &failureError) {
		return OperationError{Operation: mergePullRequestOperationNameConstant, Cause: executionError}
	}

	loweredStandardError := strings.ToLower(failureError.Result.StandardError)
	switch {
	case strings.Contains(loweredStandardError, mergeConflictMarkerConstant) || strings.Contains(loweredStandardError, notMergeableMarkerConstant):
		return MergeConflictError{PullRequestURL: pullRequestURL, Cause: executionError}
	case strings.Contains(loweredStandardError, protectedBranchMarkerConstant) || strings.Contains(loweredStandardError, notAllowedMarkerConstant) || strings.Contains(loweredStandardError, basePolicyMarkerConstant):
		return MergeNotAllowedError{PullRequestURL: pullRequestURL, Cause: executionError}
	default:
		return OperationError{Operation: mergePullRequestOperationNameConstant, Cause: executionError}
	}
}

const (
	mergeConflictMarkerConstant   = "conflict"
	notMergeableMarkerConstant    = "not mergeable"
	protectedBranchMarkerConstant = "protected branch"
	notAllowedMarkerConstant      = "not allowed"
	basePolicyMarkerConstant      = "base branch policy"
)

func lastNonEmptyLine(output string) string {
	outputLines := strings.Split(strings.TrimSpace(output), "\n")
	for lineIndex := len(outputLines) - 1; lineIndex >= 0; lineIndex-- {
		trimmedLine := strings.TrimSpace(outputLines[lineIndex])
		if len(trimmedLine) > 0 {
			return trimmedLine
		}
	}
	return ""
}
