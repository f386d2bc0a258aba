// Package ui renders human-readable progress for external command execution.
//
// ConsoleCommandEventLogger implements execshell.CommandEventObserver and
// narrates every git and GitHub CLI invocation through a zap logger configured
// for console output, which acp enables for verbose runs.
package ui
