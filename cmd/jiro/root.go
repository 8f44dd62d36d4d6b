package main

import (
	"fmt"
	"os"

	"github.com/ShayCichocki/jiro/internal/version"
	"github.com/spf13/cobra"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:   "jiro",
	Short: "Customizable prompts and templates for jiro-dreams-of-code",
	Long: `jiro manages the prompts and templates used by jiro-dreams-of-code.

Every asset is looked up across four tiers, first match wins:
  1. Local   - <repo>/.jiro-dreams-of-code/assets/
  2. Project - ~/.jiro-dreams-of-code/<project>/assets/
  3. Global  - ~/.jiro-dreams-of-code/assets/
  4. Package - defaults bundled with jiro

Use 'jiro assets customize' to copy a default into a tier and edit it there.`,
	Version:       version.Get(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate("jiro-dreams-of-code version {{.Version}}\n")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Write debug-level entries to the log file")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(modeCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(assetsCmd)
	rootCmd.AddCommand(logsCmd)
}
