package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"multickpt/internal/ckptfile"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Decode and print a checkpoint file's header and block chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, blocks, err := ckptfile.Inspect(args[0])
			if err != nil {
				return err
			}

			p := newPrinter()
			p.kv([][2]string{
				{"checksum", meta.Checksum},
				{"timestamp", time.Unix(0, meta.Timestamp).Format(time.RFC3339Nano)},
				{"ckptSize", fmt.Sprint(meta.CkptSize)},
				{"fs", fmt.Sprint(meta.Fs)},
				{"ptFs", fmt.Sprint(meta.PtFs)},
				{"maxFs", fmt.Sprint(meta.MaxFs)},
				{"blocks", fmt.Sprint(len(blocks))},
			})

			fmt.Println()
			var rows [][]string
			for bi, b := range blocks {
				for _, c := range b.Vars {
					rows = append(rows, []string{
						fmt.Sprint(bi),
						fmt.Sprint(c.ID),
						fmt.Sprint(c.Idx),
						fmt.Sprint(c.Dptr),
						fmt.Sprint(c.Fptr),
						fmt.Sprint(c.ChunkSize),
					})
				}
			}
			p.table([]string{"block", "id", "idx", "dptr", "fptr", "chunksize"}, rows)
			return nil
		},
	}
}
