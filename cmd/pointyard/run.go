package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chazu/pointyard/pkg/engine"
	"github.com/chazu/pointyard/pkg/formats"
	"github.com/chazu/pointyard/pkg/ops"
	"github.com/spf13/cobra"
)

func newRunCmd(opts *options) *cobra.Command {
	var (
		loads    []string
		recenter bool
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "run [script]",
		Short: "Run a workspace script",
		Long: `Run evaluates a script of workspace operations. Files given with --load
are imported first; the script can also import files itself with (load ...).
The command fails when the script has errors or any operation failed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			o, log, err := opts.session()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			for _, path := range loads {
				if _, err := o.Import(ctx, path, formats.Options{Recenter: recenter}); err != nil {
					return err
				}
			}

			rep, err := engine.NewEngine(o, log).Run(ctx, string(src))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(rep); err != nil {
					return err
				}
			} else {
				printReport(out, rep)
				printTree(out, o)
			}

			if len(rep.Errors) > 0 {
				return fmt.Errorf("script: %w", rep.Errors[0])
			}
			if failed := rep.Failed(); len(failed) > 0 {
				return fmt.Errorf("%d of %d steps failed", len(failed), len(rep.Steps))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&loads, "load", "l", nil, "import `file` before running (repeatable)")
	cmd.Flags().BoolVar(&recenter, "recenter", true, "subtract a 1000-unit aligned XY offset on import")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func printReport(w io.Writer, rep *engine.Report) {
	fmt.Fprintln(w, "Steps:")
	for i, s := range rep.Steps {
		fmt.Fprintf(w, "  %d. %s", i+1, s.Op)
		if s.Err != "" {
			fmt.Fprintf(w, ": FAILED: %s\n", s.Err)
			continue
		}
		var parts []string
		if len(s.Result.Created) > 0 {
			parts = append(parts, fmt.Sprintf("created %d", len(s.Result.Created)))
		}
		if len(s.Result.Updated) > 0 {
			parts = append(parts, fmt.Sprintf("updated %d", len(s.Result.Updated)))
		}
		if len(s.Result.Skipped) > 0 {
			parts = append(parts, fmt.Sprintf("skipped %d", len(s.Result.Skipped)))
		}
		if len(parts) > 0 {
			fmt.Fprintf(w, ": %s", strings.Join(parts, ", "))
		}
		fmt.Fprintln(w)
		for _, sk := range s.Result.Skipped {
			fmt.Fprintf(w, "     skipped %s: %s\n", sk.Key, sk.Reason)
		}
	}
	for _, e := range rep.Errors {
		fmt.Fprintf(w, "Error: %s\n", e)
	}
}

func printTree(w io.Writer, o *ops.Engine) {
	fmt.Fprintln(w, "\nWorkspace:")
	for _, d := range o.Tree() {
		fmt.Fprintf(w, "  %s\n", d.Name)
		for _, it := range d.Items {
			vis := ""
			if !it.Visible {
				vis = " (hidden)"
			}
			fmt.Fprintf(w, "    %s  %s, %d%s\n", it.Name, it.Kind, it.Size, vis)
		}
	}
}
