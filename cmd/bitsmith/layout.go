package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"bitsmith/internal/layout"
	"bitsmith/internal/script"
	"bitsmith/internal/types"
)

var (
	layoutTarget string
	layoutScript string
)

func init() {
	layoutCmd.Flags().StringVar(&layoutTarget, "target", "x86_64-linux", "target to lay out for")
	layoutCmd.Flags().StringVar(&layoutScript, "script", "", "script file providing struct declarations")
}

var layoutCmd = &cobra.Command{
	Use:   "layout <type>...",
	Short: "Show size, alignment and field offsets of types",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		targets, err := loadExtraTargets(cmd)
		if err != nil {
			return err
		}
		target, ok := layout.FindTarget(targets, layoutTarget)
		if !ok {
			return fmt.Errorf("unknown target %q", layoutTarget)
		}

		var f script.File
		if layoutScript != "" {
			if _, err := toml.DecodeFile(layoutScript, &f); err != nil {
				return fmt.Errorf("%s: failed to parse TOML: %w", layoutScript, err)
			}
		}
		in, ids, err := f.ResolveTypes(args)
		if err != nil {
			return err
		}

		eng := layout.New(target, in)
		out := cmd.OutOrStdout()
		for _, id := range ids {
			tl := eng.LayoutOf(id)
			fmt.Fprintf(out, "%s: store %d, alloc %d, align %d bits\n",
				in.String(id), tl.StoreBits, tl.AllocBits, tl.AlignBits)
			if tt := in.MustLookup(id); tt.Kind == types.KindStruct {
				for j, off := range tl.FieldOffsets {
					fmt.Fprintf(out, "  field %d at bit %d\n", j, off)
				}
			}
		}
		return nil
	},
}
