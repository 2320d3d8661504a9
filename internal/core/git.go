// Package core provides the git plumbing the review pipeline sits on:
// diff extraction, commit messages, file content, and the tracked-file
// universe used to resolve context requests.
package core

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	git "gopkg.in/src-d/go-git.v4"
)

// GetDiff returns the unified diff between baseRef and headRef.
func GetDiff(repoPath, baseRef, headRef string) (string, error) {
	diffRange := fmt.Sprintf("%s...%s", baseRef, headRef)
	return runGit(repoPath, "diff", diffRange)
}

// GetStagedDiff returns the unified diff of the staged changes.
func GetStagedDiff(repoPath string) (string, error) {
	return runGit(repoPath, "diff", "--cached")
}

// GetCommitMessages returns the subject+body of every commit in
// baseRef..headRef, newest first.
func GetCommitMessages(repoPath, baseRef, headRef string) (string, error) {
	commitRange := fmt.Sprintf("%s..%s", baseRef, headRef)
	return runGit(repoPath, "log", "--format=%s%n%b", commitRange)
}

// GetDiffStat returns the `git diff --stat` summary between two refs.
func GetDiffStat(repoPath, baseRef, headRef string) (string, error) {
	diffRange := fmt.Sprintf("%s...%s", baseRef, headRef)
	return runGit(repoPath, "diff", "--stat", diffRange)
}

func runGit(repoPath string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", repoPath}, args...)
	cmd := exec.Command("git", fullArgs...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git command failed: %s", string(exitErr.Stderr))
		}
		return "", fmt.Errorf("git command failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// ReadWorktreeFile returns the working-tree content of a repo-relative
// path. A missing file is a normal outcome, reported via ok=false.
func ReadWorktreeFile(repoPath, relPath string) (content string, ok bool) {
	data, err := os.ReadFile(filepath.Join(repoPath, filepath.FromSlash(relPath)))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// FindRepoRoot locates the repository worktree root for any path inside
// it, walking up to the enclosing .git directory.
func FindRepoRoot(path string) (string, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("not a git repository (or any parent): %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to resolve worktree: %w", err)
	}
	return wt.Filesystem.Root(), nil
}

// ListTrackedFiles returns every path in the git index, sorted and
// slash-separated. This is the closed file universe the context builder
// resolves requests against: untracked and ignored files never enter it.
func ListTrackedFiles(repoPath string) ([]string, error) {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}
	idx, err := repo.Storer.Index()
	if err != nil {
		return nil, fmt.Errorf("failed to read git index: %w", err)
	}

	paths := make([]string, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		paths = append(paths, e.Name)
	}
	sort.Strings(paths)
	return paths, nil
}

// CurrentBranch returns the short name of the checked-out branch, or ""
// on a detached HEAD.
func CurrentBranch(repoPath string) string {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil || !head.Name().IsBranch() {
		return ""
	}
	return head.Name().Short()
}
