package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/jiro/internal/log"
	"github.com/ShayCichocki/jiro/internal/project"
)

var modeCmd = &cobra.Command{
	Use:   "mode [local|stealth]",
	Short: "Show or switch the storage mode",
	Long: `Show or switch where jiro keeps project data.

  local   - <repo>/.jiro-dreams-of-code (assets, config and logs in the working tree)
  stealth - ~/.jiro-dreams-of-code/<project> (nothing in the working tree)

Switching to stealth moves local assets and local config into the project
namespace and removes the working-tree directory. Switching back to local
creates the working-tree directory; project-level data is kept.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(project.ModeLocal), string(project.ModeStealth)},
	RunE:      runMode,
}

func runMode(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	env, err := loadEnv("")
	if err != nil {
		return err
	}
	defer env.Close()

	if len(args) == 0 {
		fmt.Fprintf(out, "%s (data in %s)\n", env.layout.Mode, env.layout.DataDir())
		return nil
	}

	target, err := project.ParseMode(args[0])
	if err != nil {
		return err
	}
	if target == project.ModeLocal && !env.layout.InRepo() {
		return fmt.Errorf("local mode needs a git repository; %s is not inside one", env.layout.WorkDir)
	}

	migration, err := project.SwitchMode(env.fs, env.layout, env.store, target)
	if err != nil {
		env.logger.Error(log.CatProject, "mode switch failed", err, "target", target)
		return fmt.Errorf("switch to %s mode: %w", target, err)
	}
	if !migration.Changed() {
		fmt.Fprintf(out, "Already in %s mode.\n", target)
		return nil
	}

	if err := env.refresh(); err != nil {
		return err
	}
	env.logger.Info(log.CatProject, "switched mode",
		"from", migration.From, "to", migration.To,
		"moved", len(migration.Moved), "overwritten", len(migration.Overwritten))

	printMigration(out, migration)
	return nil
}

func printMigration(out io.Writer, m *project.Migration) {
	printStatus(out, "✓", fmt.Sprintf("Switched from %s to %s mode", m.From, m.To), color.FgGreen)
	if len(m.Moved) > 0 {
		printStatus(out, "✓", fmt.Sprintf("Moved %d file(s) to the project directory", len(m.Moved)), color.FgGreen)
	}
	for _, f := range m.Overwritten {
		printStatus(out, "⚠", "Replaced project copy of "+f, color.FgYellow)
	}
	if len(m.ConfigKeys) > 0 {
		printStatus(out, "✓", fmt.Sprintf("Moved %d local config key(s) to project config", len(m.ConfigKeys)), color.FgGreen)
	}
}
