package main

import (
	"fmt"

	"github.com/chazu/pointyard/pkg/formats"
	"github.com/chazu/pointyard/pkg/workspace"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/spf13/cobra"
)

func newInfoCmd(opts *options) *cobra.Command {
	var recenter bool
	cmd := &cobra.Command{
		Use:   "info [file]",
		Short: "Display general information about a point cloud file",
		Long:  "Show the items a file imports as, with point counts, attributes and bounds.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, _, err := opts.session()
			if err != nil {
				return err
			}
			res, err := o.Import(cmd.Context(), args[0], formats.Options{Recenter: recenter})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "File: %s\n", args[0])
			for _, key := range res.Created {
				p, err := o.Describe(key)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "\n%s (%s)\n", key.Item, p.Kind)
				fmt.Fprintf(w, "  Points: %d\n", p.Points)
				if p.Lines > 0 {
					fmt.Fprintf(w, "  Lines: %d\n", p.Lines)
				}
				if p.Triangles > 0 {
					fmt.Fprintf(w, "  Triangles: %d\n", p.Triangles)
				}
				fmt.Fprintf(w, "  Colors: %s  Normals: %s\n", yesNo(p.HasColors), yesNo(p.HasNormals))
				fmt.Fprintf(w, "  Min: %s\n", formatVec(p.Min))
				fmt.Fprintf(w, "  Max: %s\n", formatVec(p.Max))
				if x, ok := p.Metadata[workspace.MetaOffsetX]; ok {
					fmt.Fprintf(w, "  Offset: %.0f, %.0f\n", x, p.Metadata[workspace.MetaOffsetY])
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&recenter, "recenter", false, "show bounds after re-centering")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatVec(v v3.Vec) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}
