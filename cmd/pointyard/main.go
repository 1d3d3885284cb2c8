package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/chazu/pointyard/pkg/config"
	"github.com/chazu/pointyard/pkg/kernel/native"
	"github.com/chazu/pointyard/pkg/ops"
	"github.com/chazu/pointyard/pkg/viewer"
	"github.com/chazu/pointyard/pkg/workspace"
	"github.com/spf13/cobra"
)

// options are the flags shared by every command.
type options struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "pointyard",
		Short: "Filter, transform and convert point clouds from the command line",
		Long: `pointyard runs workspace operations without the desktop viewer.
It imports XYZ and GeoJSON files, runs scripts of spatial filters,
transforms and clustering against them, and writes the results back out.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "TOML settings file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every operation to stderr")

	root.AddCommand(newRunCmd(opts), newInfoCmd(opts), newConvertCmd(opts))
	return root
}

// session builds a headless workspace: the viewer is an in-memory
// recorder and the log goes to stderr.
func (o *options) session() (*ops.Engine, *slog.Logger, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, nil, err
		}
	}
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	ws := workspace.New(viewer.NewBinding(viewer.NewRecorder(), log), log)
	return ops.New(ws, native.New(), ops.Options{Logger: log, Config: &cfg}), log, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
