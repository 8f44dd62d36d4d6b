package main

import (
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/jiro/internal/assets"
	"github.com/ShayCichocki/jiro/internal/config"
	"github.com/ShayCichocki/jiro/internal/defaults"
	"github.com/ShayCichocki/jiro/internal/git"
	"github.com/ShayCichocki/jiro/internal/log"
	"github.com/ShayCichocki/jiro/internal/project"
)

var doctorFix bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the jiro installation and project setup",
	Long: `Check that jiro can find everything it needs.

Checks:
  - git is installed
  - the working directory is inside a repository
  - the project is initialized for its mode
  - which config files are in effect
  - the configured test and lint commands are on PATH
  - every asset tier root exists
  - the bundled defaults are complete

With --fix, missing directories are created and the bundled defaults are
restored.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Create missing directories and restore bundled defaults")
}

type checkState int

const (
	checkOK checkState = iota
	checkWarn
	checkFail
)

// doctorCheck is one line of the doctor report.
type doctorCheck struct {
	state   checkState
	message string
}

func (c doctorCheck) print(w io.Writer) {
	switch c.state {
	case checkOK:
		printStatus(w, "✓", c.message, color.FgGreen)
	case checkWarn:
		printStatus(w, "⚠", c.message, color.FgYellow)
	default:
		printStatus(w, "✗", c.message, color.FgRed)
	}
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	env, err := loadEnv("")
	if err != nil {
		return err
	}
	defer env.Close()

	if doctorFix {
		if err := fixProject(out, env); err != nil {
			return err
		}
	}

	checks, err := diagnose(env)
	if err != nil {
		return err
	}

	problems := 0
	for _, c := range checks {
		c.print(out)
		if c.state == checkFail {
			problems++
		}
	}
	env.logger.Info(log.CatCLI, "doctor finished", "checks", len(checks), "problems", problems)
	if id := env.logger.RunID(); id != "" {
		fmt.Fprintf(out, "\nRun id: %s (search 'jiro logs' for it)\n", id)
	}

	if problems > 0 {
		if !doctorFix {
			fmt.Fprintln(out, "\nRun 'jiro doctor --fix' to repair what can be repaired.")
		}
		return fmt.Errorf("%d problem(s) found", problems)
	}
	return nil
}

func fixProject(out io.Writer, env *appEnv) error {
	if env.layout.InRepo() || env.layout.Mode == project.ModeStealth {
		created, err := project.EnsureDirs(env.fs, env.layout)
		if err != nil {
			return fmt.Errorf("creating directories: %w", err)
		}
		for _, dir := range created {
			printStatus(out, "✓", "Created "+dir, color.FgGreen)
		}
	}

	if env.layout.Bundled {
		n, err := defaults.Materialize(env.fs, env.layout.PackageDir)
		if err != nil {
			return fmt.Errorf("restore bundled defaults: %w", err)
		}
		if n > 0 {
			printStatus(out, "✓", fmt.Sprintf("Restored %d bundled asset(s)", n), color.FgGreen)
		}
	}
	return env.refresh()
}

// diagnose inspects the environment without changing anything.
func diagnose(env *appEnv) ([]doctorCheck, error) {
	var checks []doctorCheck
	layout := env.layout

	gitErr := git.Installed()
	if gitErr != nil {
		checks = append(checks, doctorCheck{checkFail, "git not found in PATH"})
	} else {
		checks = append(checks, doctorCheck{checkOK, "git found"})
	}

	if layout.InRepo() {
		checks = append(checks, repoCheck(git.NewRunner(layout.RepoRoot), layout.RepoRoot, gitErr == nil))
	} else {
		checks = append(checks, doctorCheck{checkWarn, "Not inside a git repository; using " + layout.WorkDir})
	}

	checks = append(checks, doctorCheck{checkOK,
		fmt.Sprintf("Project: %s (%s mode, name from %s)", layout.ProjectName, layout.Mode, layout.NameSource)})

	if layout.Initialized() {
		checks = append(checks, doctorCheck{checkOK, "Data directory: " + layout.DataDir()})
	} else {
		checks = append(checks, doctorCheck{checkWarn, "Not initialized (run 'jiro init')"})
	}

	checks = append(checks, configFileChecks(env.fs, env.store.Paths())...)
	checks = append(checks,
		commandCheck("commands.test", env.cfg.Commands.Test, layout.ProjectRoot()),
		commandCheck("commands.lint", env.cfg.Commands.Lint, layout.ProjectRoot()),
	)

	statuses, err := env.resolver.Tiers()
	if err != nil {
		return nil, fmt.Errorf("inspect tiers: %w", err)
	}
	for _, ts := range statuses {
		checks = append(checks, tierCheck(env.fs, ts))
	}

	if layout.Bundled {
		missing, err := defaults.Verify(env.fs, layout.PackageDir)
		if err != nil {
			return nil, fmt.Errorf("verify bundled defaults: %w", err)
		}
		if len(missing) > 0 {
			checks = append(checks, doctorCheck{checkFail,
				fmt.Sprintf("Bundled defaults missing %d file(s): %s", len(missing), strings.Join(missing, ", "))})
		} else {
			checks = append(checks, doctorCheck{checkOK, "Bundled defaults complete"})
		}
	}
	return checks, nil
}

// repoCheck confirms git agrees with the .git directory jiro found.
func repoCheck(repo git.RepoOperations, root string, haveGit bool) doctorCheck {
	if !haveGit {
		return doctorCheck{checkOK, "Repository: " + root}
	}
	top, err := repo.TopLevel()
	if err != nil {
		return doctorCheck{checkWarn, "Repository: " + root + " (git does not recognize it)"}
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil && top != root && top != resolved {
		return doctorCheck{checkWarn, fmt.Sprintf("Repository: %s (git reports %s)", root, top)}
	}
	return doctorCheck{checkOK, "Repository: " + root}
}

// configFileChecks reports the file behind each config scope.
func configFileChecks(fsys afero.Fs, paths config.Paths) []doctorCheck {
	var checks []doctorCheck
	for _, scope := range []config.Scope{config.ScopeGlobal, config.ScopeProject, config.ScopeLocal} {
		name := fmt.Sprintf("%-7s config", scope)
		path, err := paths.For(scope)
		switch {
		case err != nil:
			checks = append(checks, doctorCheck{checkOK, name + ": disabled in stealth mode"})
		case fileExists(fsys, path):
			checks = append(checks, doctorCheck{checkOK, name + ": " + path})
		default:
			checks = append(checks, doctorCheck{checkOK, name + ": none (" + path + ")"})
		}
	}
	return checks
}

// commandCheck verifies that the program a configured command runs can be
// found. Relative program paths are taken from the project root.
func commandCheck(key, command, root string) doctorCheck {
	prog := commandProgram(command)
	if prog == "" {
		return doctorCheck{checkWarn, fmt.Sprintf("%s: not set (run 'jiro init --interactive' or 'jiro config set %s ...')", key, key)}
	}
	if strings.ContainsRune(prog, filepath.Separator) && !filepath.IsAbs(prog) {
		prog = filepath.Join(root, prog)
	}
	if _, err := exec.LookPath(prog); err != nil {
		return doctorCheck{checkFail, fmt.Sprintf("%s: %s not found in PATH (%s)", key, commandProgram(command), command)}
	}
	return doctorCheck{checkOK, key + ": " + command}
}

// commandProgram returns the program a shell command line starts, skipping
// leading VAR=value assignments.
func commandProgram(command string) string {
	for _, field := range strings.Fields(command) {
		if i := strings.IndexByte(field, '='); i > 0 && !strings.ContainsAny(field[:i], "/-.") {
			continue
		}
		return field
	}
	return ""
}

func tierCheck(fsys afero.Fs, ts assets.TierStatus) doctorCheck {
	name := fmt.Sprintf("%-7s tier", ts.Level)
	switch {
	case !ts.Enabled():
		return doctorCheck{checkOK, name + ": disabled in stealth mode"}
	case ts.Level == assets.LevelPackage && !dirExists(fsys, ts.Root):
		return doctorCheck{checkFail, name + ": missing " + ts.Root}
	case !ts.Exists:
		return doctorCheck{checkWarn, name + ": not created yet (" + ts.Root + ")"}
	default:
		return doctorCheck{checkOK, name + ": " + ts.Root}
	}
}

func dirExists(fsys afero.Fs, dir string) bool {
	ok, err := afero.DirExists(fsys, dir)
	return err == nil && ok
}

func fileExists(fsys afero.Fs, path string) bool {
	ok, err := afero.Exists(fsys, path)
	return err == nil && ok
}
