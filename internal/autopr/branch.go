package autopr

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	branchNameTemplateConstant             = "%s/%s/%s"
	branchSuffixDigitCountConstant         = 16
	branchPlanAttemptLimitConstant         = 5
	branchPrefixRequiredMessageConstant    = "branch prefix must be provided"
	branchUsernameRequiredMessageConstant  = "username must be provided"
	branchProberMissingMessageConstant     = "remote branch prober not configured"
	branchCandidatesExhaustedMessageFormat = "could not find an unused branch name after %d attempts"
)

// ErrBranchPrefixRequired indicates a branch plan was requested without a prefix.
var ErrBranchPrefixRequired = errors.New(branchPrefixRequiredMessageConstant)

// ErrBranchUsernameRequired indicates a branch plan was requested without a username.
var ErrBranchUsernameRequired = errors.New(branchUsernameRequiredMessageConstant)

// ErrBranchProberNotConfigured indicates the planner was constructed without a prober.
var ErrBranchProberNotConfigured = errors.New(branchProberMissingMessageConstant)

// BranchPlan describes the temporary branch generated for a single pipeline run.
type BranchPlan struct {
	Prefix     string
	Username   string
	Suffix     string
	BranchName string
}

// RemoteBranchProber reports whether a branch already exists on the remote.
type RemoteBranchProber interface {
	RemoteBranchExists(executionContext context.Context, repositoryPath string, remoteName string, branchName string) (bool, error)
}

// BranchPlanner generates collision-checked temporary branch names.
type BranchPlanner struct {
	prober RemoteBranchProber
}

// NewBranchPlanner constructs a BranchPlanner backed by the provided prober.
func NewBranchPlanner(prober RemoteBranchProber) (*BranchPlanner, error) {
	if prober == nil {
		return nil, ErrBranchProberNotConfigured
	}
	return &BranchPlanner{prober: prober}, nil
}

// PlanBranch produces a branch name of the form prefix/username/<16 random digits>.
//
// Candidates already present on the remote are discarded and regenerated; a
// failing remote probe does not abort the plan because the later push would
// surface any real collision.
func (planner *BranchPlanner) PlanBranch(executionContext context.Context, repositoryPath string, remoteName string, prefix string, username string) (BranchPlan, error) {
	trimmedPrefix := strings.TrimSpace(prefix)
	if len(trimmedPrefix) == 0 {
		return BranchPlan{}, ErrBranchPrefixRequired
	}

	trimmedUsername := strings.TrimSpace(username)
	if len(trimmedUsername) == 0 {
		return BranchPlan{}, ErrBranchUsernameRequired
	}

	for attemptIndex := 0; attemptIndex < branchPlanAttemptLimitConstant; attemptIndex++ {
		suffix, suffixError := generateBranchSuffix()
		if suffixError != nil {
			return BranchPlan{}, suffixError
		}

		candidatePlan := BranchPlan{
			Prefix:     trimmedPrefix,
			Username:   trimmedUsername,
			Suffix:     suffix,
			BranchName: fmt.Sprintf(branchNameTemplateConstant, trimmedPrefix, trimmedUsername, suffix),
		}

		branchExists, probeError := planner.prober.RemoteBranchExists(executionContext, repositoryPath, remoteName, candidatePlan.BranchName)
		if probeError != nil {
			return candidatePlan, nil
		}
		if !branchExists {
			return candidatePlan, nil
		}
	}

	return BranchPlan{}, fmt.Errorf(branchCandidatesExhaustedMessageFormat, branchPlanAttemptLimitConstant)
}

// generateBranchSuffix returns sixteen random decimal digits with a non-zero leading digit.
func generateBranchSuffix() (string, error) {
	suffixDigits := make([]byte, 0, branchSuffixDigitCountConstant)
	for digitIndex := 0; digitIndex < branchSuffixDigitCountConstant; digitIndex++ {
		upperBound := int64(10)
		lowerBound := int64(0)
		if digitIndex == 0 {
			upperBound = 9
			lowerBound = 1
		}

		randomValue, randomError := rand.Int(rand.Reader, big.NewInt(upperBound))
		if randomError != nil {
			return "", randomError
		}

		digit := randomValue.Int64() + lowerBound
		suffixDigits = append(suffixDigits, byte('0'+digit))
	}

	return string(suffixDigits), nil
}
