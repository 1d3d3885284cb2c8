package main

import (
	"fmt"

	"github.com/chazu/pointyard/pkg/formats"
	"github.com/chazu/pointyard/pkg/scene"
	"github.com/spf13/cobra"
)

func newConvertCmd(opts *options) *cobra.Command {
	var item string
	cmd := &cobra.Command{
		Use:   "convert [input] [output]",
		Short: "Convert a point cloud between XYZ and GeoJSON",
		Long: `Convert imports input and writes one of its point sets to output. The
format of each file follows its extension. Coordinates are re-centered while
in memory and restored on write.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, _, err := opts.session()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			res, err := o.Import(ctx, args[0], formats.Options{Recenter: true})
			if err != nil {
				return err
			}

			var key scene.Key
			for _, k := range res.Created {
				if p, err := o.Describe(k); err == nil && p.Kind == scene.KindPointSet.String() && (item == "" || k.Item == item) {
					key = k
					break
				}
			}
			if key == (scene.Key{}) {
				return fmt.Errorf("%s holds no point set to convert", args[0])
			}

			if _, err := o.Export(ctx, key, args[1]); err != nil {
				return err
			}
			p, _ := o.Describe(key)
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d points from %s to %s\n", p.Points, key, args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&item, "item", "", "name of the point set to write when the file holds several")
	return cmd
}
