package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"multickpt/internal/ckptconfig"
	"multickpt/internal/erasure"
	"multickpt/internal/level"
	"multickpt/internal/topology"
)

func newScanCmd() *cobra.Command {
	var levelFlag int
	var dir string
	var parityShards int

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a single-process level scan and report the recoverability verdict",
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl := ckptconfig.Level(levelFlag)
			if !lvl.Valid() {
				return fmt.Errorf("ckptctl: --level must be 1-4, got %d", levelFlag)
			}
			if dir == "" {
				return fmt.Errorf("ckptctl: --dir is required")
			}

			group := topology.NewLocalWorld(1)[0]
			cfg := ckptconfig.Config{CkptLevel: lvl}

			var verdict level.Verdict
			var err error
			switch lvl {
			case ckptconfig.L1:
				verdict, err = level.ScanL1(context.Background(), dir, group, cfg)
			case ckptconfig.L2:
				verdict, err = level.ScanL2(context.Background(), dir, group, cfg)
			case ckptconfig.L4:
				verdict, err = level.ScanL4(context.Background(), dir, group, cfg)
			case ckptconfig.L3:
				codec, cerr := erasure.NewReedSolomon(1, parityShards)
				if cerr != nil {
					return cerr
				}
				verdict, err = level.ScanL3(context.Background(), dir, group, codec, 0, cfg)
			}
			if err != nil {
				return err
			}

			p := newPrinter()
			p.kv([][2]string{
				{"level", lvl.String()},
				{"recoverable", fmt.Sprint(verdict.Recoverable)},
				{"ckptID", fmt.Sprint(verdict.CkptID)},
			})
			if len(verdict.Reasons) > 0 {
				fmt.Println()
				var rows [][]string
				for rank, reason := range verdict.Reasons {
					rows = append(rows, []string{fmt.Sprint(rank), reason.Error()})
				}
				p.table([]string{"rank", "reason"}, rows)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&levelFlag, "level", 1, "level to scan (1-4)")
	cmd.Flags().StringVar(&dir, "dir", "", "checkpoint directory to scan")
	cmd.Flags().IntVar(&parityShards, "parity-shards", 1, "L3 parity shard count")
	return cmd
}
