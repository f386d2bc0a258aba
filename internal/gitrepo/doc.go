// Package gitrepo contains helpers for interrogating and manipulating Git repositories.
//
// It exposes RepositoryManager for inspecting staged changes, branches, and
// remotes and for performing the branch, commit, and push mutations the
// pull-request pipeline orchestrates, along with a structured remote URL
// parser covering SSH and HTTPS remote forms.
package gitrepo
