// Command ckptctl inspects and verifies checkpoint files on disk without
// running a live job: decode a FileMeta header and block chain, re-hash
// a file's body against its stored checksum, or run a single-process
// level scan over a directory. It is a debugging tool for the engine
// itself, not the application-facing register/checkpoint/recover API.
//
// Logging is configured once here; everything below main passes its
// *slog.Logger down rather than reading a global.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ckptctl",
		Short: "Inspect and verify multi-level checkpoint files",
	}
	cmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
	cmd.AddCommand(
		newInspectCmd(),
		newVerifyCmd(),
		newScanCmd(),
		newWatchCmd(),
	)
	return cmd
}

func loggerFromCmd(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
