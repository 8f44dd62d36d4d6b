package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/jiro/internal/config"
	"github.com/ShayCichocki/jiro/internal/git"
	"github.com/ShayCichocki/jiro/internal/log"
	"github.com/ShayCichocki/jiro/internal/project"
)

var (
	initStealth     bool
	initProjectName string
	initForce       bool
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize jiro for the current repository",
	Long: `Initialize the current git repository for use with jiro.

This command:
  - Verifies git is installed and the directory is inside a repository
  - Creates the data directory for the chosen mode
  - Creates the local, project and global asset directories
  - Records the mode in the project config
  - Adds the log directory to .gitignore (local mode only)
  - With --interactive, asks for the project's test and lint commands

Stealth mode keeps everything under ~/.jiro-dreams-of-code/<project> and
leaves the working tree untouched.

Examples:
  jiro init                        # Local mode
  jiro init --stealth              # Nothing written to the repository
  jiro init --project-name widgets # Override the detected project name
  jiro init --interactive          # Also configure test and lint commands`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initStealth, "stealth", false, "Keep all project data outside the repository")
	initCmd.Flags().StringVar(&initProjectName, "project-name", "", "Override auto-detected project name")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize even if already set up")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Prompt for the test and lint commands")
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	// Stealth mode never reads the working tree, so nothing could record the name.
	if initStealth && initProjectName != "" {
		return fmt.Errorf("--project-name cannot be combined with --stealth: %w; export JIRO_PROJECT_NAME=%s instead",
			project.ErrNameNotPersistent, initProjectName)
	}

	if err := checkGitInstalled(); err != nil {
		printStatus(out, "✗", "Git not found", color.FgRed)
		return err
	}
	printStatus(out, "✓", "Git found", color.FgGreen)

	env, err := loadEnv(initProjectName)
	if err != nil {
		return err
	}
	defer env.Close()

	layout := env.layout
	if !layout.InRepo() {
		printStatus(out, "✗", "Not inside a git repository", color.FgRed)
		return fmt.Errorf("%s is not inside a git repository (run 'git init' first)", layout.WorkDir)
	}
	printStatus(out, "✓", "Repository found at "+layout.RepoRoot, color.FgGreen)

	target := project.ModeLocal
	if initStealth {
		target = project.ModeStealth
	}

	if layout.Initialized() && layout.Mode == target && !initForce {
		fmt.Fprintf(out, "Already initialized in %s mode. Use --force to reinitialize.\n", target)
		return nil
	}

	migration, err := project.SwitchMode(env.fs, layout, env.store, target)
	if err != nil {
		return fmt.Errorf("switch to %s mode: %w", target, err)
	}
	if migration.Changed() {
		printStatus(out, "✓", fmt.Sprintf("Switched from %s to %s mode", migration.From, migration.To), color.FgGreen)
	}
	if err := env.store.Set(config.ScopeProject, "mode", string(target)); err != nil {
		return fmt.Errorf("record mode: %w", err)
	}

	created, err := project.EnsureDirs(env.fs, layout)
	if err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}
	printStatus(out, "✓", fmt.Sprintf("Created jiro directory structure (%d new)", len(created)), color.FgGreen)

	if initProjectName != "" {
		if err := env.store.Set(config.ScopeLocal, "project.name", layout.ProjectName); err != nil {
			return fmt.Errorf("record project name: %w", err)
		}
		printStatus(out, "✓", "Recorded project name in local config", color.FgGreen)
	}

	if initInteractive {
		scope := config.ScopeLocal
		if target == project.ModeStealth {
			scope = config.ScopeProject
		}
		if err := promptCommands(cmd.InOrStdin(), out, env.store, scope, layout.RepoRoot); err != nil {
			return err
		}
	}

	if target == project.ModeLocal {
		if err := updateGitignore(layout.RepoRoot); err != nil {
			return fmt.Errorf("updating .gitignore: %w", err)
		}
		printStatus(out, "✓", "Updated .gitignore with jiro entries", color.FgGreen)
	}

	if err := env.refresh(); err != nil {
		return err
	}
	env.logger.Info(log.CatCLI, "initialized project",
		"name", layout.ProjectName, "mode", target, "created", len(created))

	printInitSummary(out, env)
	return nil
}

func printInitSummary(out io.Writer, env *appEnv) {
	layout := env.layout
	fmt.Fprintf(out, "\n%s jiro initialization complete!\n\n", color.GreenString("✓"))
	fmt.Fprintln(out, "Project details:")
	fmt.Fprintf(out, "  Project name: %s\n", layout.ProjectName)
	fmt.Fprintf(out, "  Repository:   %s\n", layout.RepoRoot)
	fmt.Fprintf(out, "  Mode:         %s\n", layout.Mode)
	fmt.Fprintf(out, "  Data:         %s\n", layout.DataDir())
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  jiro assets list                                 # see every asset and where it comes from")
	fmt.Fprintln(out, "  jiro assets customize prompts/dreaming_agent.md  # copy a default for editing")
}

// promptCommands asks for commands.test and commands.lint and records the
// answers in scope. An empty answer keeps the offered default.
func promptCommands(in io.Reader, out io.Writer, store *config.Store, scope config.Scope, root string) error {
	reader := bufio.NewReader(in)
	suggested := suggestCommands(root)

	for _, q := range []struct{ key, label string }{
		{"commands.test", "Test command"},
		{"commands.lint", "Lint command"},
	} {
		current, err := store.Get(q.key)
		if err != nil {
			return err
		}
		def := current.Value
		if def == "" {
			def = suggested[q.key]
		}

		if def != "" {
			fmt.Fprintf(out, "%s [%s]: ", q.label, def)
		} else {
			fmt.Fprintf(out, "%s: ", q.label)
		}
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read %s: %w", q.key, err)
		}
		fmt.Fprintln(out)

		answer := strings.TrimSpace(line)
		if answer == "" {
			answer = def
		}
		if answer == "" {
			printStatus(out, "⚠", q.key+" left unset", color.FgYellow)
			continue
		}
		if err := store.Set(scope, q.key, answer); err != nil {
			return fmt.Errorf("record %s: %w", q.key, err)
		}
		printStatus(out, "✓", fmt.Sprintf("Set %s = %s (%s)", q.key, answer, scope), color.FgGreen)
	}
	return nil
}

// commandHints maps a marker file at the repository root to the usual test
// and lint commands of that ecosystem. The first marker found wins.
var commandHints = []struct {
	marker, test, lint string
}{
	{"go.mod", "go test ./...", "go vet ./..."},
	{"package.json", "npm test", "npm run lint"},
	{"Cargo.toml", "cargo test", "cargo clippy"},
	{"pyproject.toml", "pytest", "ruff check ."},
	{"Makefile", "make test", "make lint"},
}

// suggestCommands guesses commands.test and commands.lint from the files at root.
func suggestCommands(root string) map[string]string {
	for _, hint := range commandHints {
		if _, err := os.Stat(filepath.Join(root, hint.marker)); err == nil {
			return map[string]string{"commands.test": hint.test, "commands.lint": hint.lint}
		}
	}
	return map[string]string{}
}

const gitInstallHelp = "jiro requires git to locate your repository.\n\n" +
	"Install git with:\n" +
	"  - macOS: brew install git\n" +
	"  - Ubuntu/Debian: sudo apt-get install git\n" +
	"  - Other: https://git-scm.com/downloads"

// checkGitInstalled checks if git is installed
func checkGitInstalled() error {
	if err := git.Installed(); err != nil {
		return fmt.Errorf("%w\n\n%s", err, gitInstallHelp)
	}
	return nil
}

// gitignoreEntries are added to the repository's .gitignore in local mode.
var gitignoreEntries = []string{
	project.DirName + "/logs/",
}

// updateGitignore adds jiro entries to .gitignore if not present
func updateGitignore(repoPath string) error {
	gitignorePath := filepath.Join(repoPath, ".gitignore")

	var existingContent string
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existingContent = string(data)
	} else if !os.IsNotExist(err) {
		return err
	}

	present := make(map[string]bool)
	for _, line := range strings.Split(existingContent, "\n") {
		present[strings.TrimSpace(line)] = true
	}

	var missing []string
	for _, entry := range gitignoreEntries {
		if !present[entry] {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var newContent strings.Builder
	newContent.WriteString(existingContent)
	if len(existingContent) > 0 && !strings.HasSuffix(existingContent, "\n") {
		newContent.WriteString("\n")
	}
	newContent.WriteString("\n# jiro\n")
	for _, entry := range missing {
		newContent.WriteString(entry + "\n")
	}

	return os.WriteFile(gitignorePath, []byte(newContent.String()), 0644)
}
