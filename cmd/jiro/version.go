package main

import (
	"fmt"

	"github.com/ShayCichocki/jiro/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "jiro-dreams-of-code version %s\n", version.Get())
	},
}
