package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bitsmith/internal/layout"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List known targets",
	RunE: func(cmd *cobra.Command, args []string) error {
		extra, err := loadExtraTargets(cmd)
		if err != nil {
			return err
		}
		all := append(extra, layout.X86_64Linux(), layout.PPC64Linux())
		out := cmd.OutOrStdout()
		for _, t := range all {
			order := "little-endian"
			if t.BigEndian {
				order = "big-endian"
			}
			fmt.Fprintf(out, "%-16s %s, %d bit pointers, max scalar align %d\n",
				t.Name, order, t.PtrBits, t.MaxScalarAlignBits)
		}
		return nil
	},
}
