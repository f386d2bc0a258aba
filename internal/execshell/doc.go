// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with logging via ShellExecutor, exposes OSCommandRunner for
// default process execution, and defines the abstractions acp uses to run git
// and the GitHub CLI in a testable manner. Commands that must reach the
// invoking terminal (for example commits that trigger local hooks) request
// interactive streams through CommandDetails.
package execshell
