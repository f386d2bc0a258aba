package autopr

import (
	"context"

	"go.uber.org/zap"

	"github.com/vbvictor/acp/internal/githubcli"
)

// finishWithMerge applies the requested merge behavior after the original
// branch has been restored and the run can no longer roll back.
//
// A merge failure leaves the pull request open for manual resolution; the
// temporary branches are kept because the pull request still references them.
func (service *Service) finishWithMerge(executionContext context.Context, run *pipelineRun, result PipelineResult) (PipelineResult, error) {
	mergeRequested := run.request.Merge || run.request.EnableAutoMerge
	if run.request.Interactive || !mergeRequested {
		return result, nil
	}

	mergeOptions := githubcli.MergeOptions{
		Method:          run.request.MergeMethod,
		EnableAutoMerge: run.request.EnableAutoMerge,
	}

	if mergeError := service.hosting.MergePullRequest(executionContext, run.request.RepositoryPath, result.PullRequestURL, mergeOptions); mergeError != nil {
		return result, mergeError
	}

	if run.request.EnableAutoMerge {
		result.MergeOutcome = MergeOutcomeAutoMergeEnabled
		return result, nil
	}

	result.MergeOutcome = MergeOutcomeMerged
	run.enter(PipelineStateMerged, service.logger)

	result.CleanupPerformed = service.cleanupBranches(executionContext, run)
	if result.CleanupPerformed {
		run.enter(PipelineStateCleanedUp, service.logger)
	}

	return result, nil
}

// cleanupBranches removes the temporary branch locally and on the remote once
// the pull request is confirmed merged. Failures are logged and tolerated; a
// leftover branch after a merged pull request is an inconvenience, not a defect.
func (service *Service) cleanupBranches(executionContext context.Context, run *pipelineRun) bool {
	cleanupComplete := true
	repositoryPath := run.request.RepositoryPath

	if deleteError := service.repository.DeleteLocalBranch(executionContext, repositoryPath, run.branchName); deleteError != nil {
		cleanupComplete = false
		service.logger.Warn(
			cleanupFailedLogMessageConstant,
			zap.String(logFieldBranchConstant, run.branchName),
			zap.Error(deleteError),
		)
	}

	if deleteError := service.repository.DeleteRemoteBranch(executionContext, repositoryPath, run.request.RemoteName, run.branchName); deleteError != nil {
		cleanupComplete = false
		service.logger.Warn(
			cleanupFailedLogMessageConstant,
			zap.String(logFieldBranchConstant, run.branchName),
			zap.Error(deleteError),
		)
	}

	return cleanupComplete
}
