package git

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNotInstalled is returned when no git binary is on PATH.
var ErrNotInstalled = errors.New("git not found in PATH")

// Installed checks if git is installed.
func Installed() error {
	if _, err := exec.LookPath("git"); err != nil {
		return ErrNotInstalled
	}
	return nil
}

// ExecRunner implements RepoOperations using exec.Command.
type ExecRunner struct {
	repoPath string
}

var _ RepoOperations = (*ExecRunner)(nil)

// NewRunner creates a new git runner for the repository at the given path.
func NewRunner(repoPath string) *ExecRunner {
	return &ExecRunner{repoPath: repoPath}
}

// run executes a git command and returns its trimmed stdout.
func (r *ExecRunner) run(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.repoPath
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(string(out)), nil
}

// TopLevel returns the absolute path of the working tree root.
func (r *ExecRunner) TopLevel() (string, error) {
	return r.run("rev-parse", "--show-toplevel")
}

// RemoteURL returns the URL of the named remote.
func (r *ExecRunner) RemoteURL(remote string) (string, error) {
	out, err := r.run("config", "--get", "remote."+remote+".url")
	if err != nil {
		// Exit code 1 means the key is not set (not an error)
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", nil
		}
		return "", err
	}
	return out, nil
}
