package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/jiro/internal/log"
)

var (
	logsFollow bool
	logsTail   int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the jiro debug log",
	Long: `Print the last lines of the debug log.

The log lives in <data dir>/logs/jiro-debug.log unless log.file is set.
Use --debug (or JIRO_DEBUG=1) on any command to record debug entries.`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Keep printing new entries")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of lines to show (0 for all)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	if logsTail < 0 {
		return fmt.Errorf("--tail must not be negative")
	}

	env, err := loadEnv("")
	if err != nil {
		return err
	}
	// The log file stays open for writing only until the tail is printed.
	env.Close()

	out := cmd.OutOrStdout()
	path := env.layout.LogPath(env.cfg)

	lines, err := log.Tail(path, logsTail)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(out, "No log file at %s\n", path)
			return nil
		}
		return err
	}
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}

	if !logsFollow {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return log.Follow(ctx, path, out)
}
