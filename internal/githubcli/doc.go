// Package githubcli wraps the GitHub CLI (gh) behind a typed client.
//
// It resolves the authenticated user, repository metadata including fork
// parentage, and performs pull-request creation and merge operations, decoding
// the CLI's JSON output into structured results with typed operation errors.
package githubcli
