package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"multickpt/internal/level"
)

func newWatchCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a checkpoint directory and print a line each time a checkpoint file lands",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				return fmt.Errorf("ckptctl: --dir is required")
			}
			logger := loggerFromCmd(cmd)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			err := level.Watch(ctx, dir, logger, func() {
				fmt.Println("checkpoint change detected")
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "checkpoint directory to watch")
	return cmd
}
