// Package autopr turns staged changes into a published pull request.
//
// It offers CommandBuilder for the acp pr Cobra command and Service for the
// pipeline itself: an explicit state machine that creates a temporary branch,
// commits, pushes, opens the pull request, restores the original branch, and
// optionally merges and cleans up, with a rollback action defined for every
// mutating state so a failure leaves the repository where the run found it.
package autopr
