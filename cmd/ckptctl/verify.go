package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"multickpt/internal/ckptfile"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Re-hash a checkpoint file's body and report whether it matches its stored checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, ok, err := ckptfile.Verify(args[0])
			if err != nil {
				return err
			}
			if ok {
				fmt.Printf("OK: checksum %s matches (fs=%d)\n", meta.Checksum, meta.Fs)
				return nil
			}
			fmt.Printf("MISMATCH: stored checksum %s does not match recomputed body hash\n", meta.Checksum)
			return fmt.Errorf("ckptctl: %s failed checksum verification", args[0])
		},
	}
}
