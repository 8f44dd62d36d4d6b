package project

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ShayCichocki/jiro/internal/git"
)

// execGit opens the git binary on the repository at dir.
func execGit(dir string) git.RepoOperations {
	return git.NewRunner(dir)
}

// FindRepoRoot walks up from dir to the nearest directory containing .git
// (a directory, or a file for worktrees and submodules).
func FindRepoRoot(dir string) (string, bool) {
	current := filepath.Clean(dir)
	for {
		if _, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			return current, true
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// DetectName derives a project name: the last component of the origin
// remote URL without ".git", falling back to the repository directory name.
func DetectName(repo git.RepoOperations, repoRoot string) string {
	if url, err := repo.RemoteURL("origin"); err == nil && url != "" {
		url = strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
		// Handles both https://host/org/repo and git@host:org/repo
		if i := strings.LastIndexAny(url, "/:"); i >= 0 {
			url = url[i+1:]
		}
		if name := SanitizeName(url); name != "" {
			return name
		}
	}
	return SanitizeName(filepath.Base(repoRoot))
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// reservedNames are entries of the home namespace itself. A project with one
// of these names would share a directory with the global tier or config.
var reservedNames = []string{"assets", "config.yaml", "logs"}

// SanitizeName makes a project name safe to use as a single path component
// under the home namespace. Reserved names get a "-project" suffix.
func SanitizeName(name string) string {
	name = unsafeNameChars.ReplaceAllString(strings.TrimSpace(name), "-")
	name = strings.Trim(name, "-.")
	for _, reserved := range reservedNames {
		if strings.EqualFold(name, reserved) {
			return name + "-project"
		}
	}
	return name
}
