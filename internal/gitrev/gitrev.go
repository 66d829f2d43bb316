// Package gitrev resolves the commit of the working tree that produced a
// run, for provenance stamping. Resolution is best-effort: registry events
// record an empty sha rather than fail when no repository is found.
package gitrev

import (
	git "github.com/go-git/go-git/v5"
)

// HeadSHA returns the full hex sha of HEAD for the repository containing
// path, walking up to find the .git directory. It returns "" when path is
// not inside a repository or HEAD cannot be resolved.
func HeadSHA(path string) string {
	if path == "" {
		path = "."
	}
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	return head.Hash().String()
}

// ShortSHA is HeadSHA truncated to the conventional 7 characters.
func ShortSHA(path string) string {
	sha := HeadSHA(path)
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
