// Command nnbench benchmarks nearest-neighbour point locators and manages
// the stored reports.
package main

import (
	"fmt"
	"os"

	"github.com/dshills/nnbench/config"
	"github.com/dshills/nnbench/core"
	"github.com/dshills/nnbench/index"
	"github.com/dshills/nnbench/logging"
	"github.com/dshills/nnbench/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries state shared by every subcommand
type app struct {
	configPath string
	verbose    bool

	cfg     *config.Config
	logger  *zap.Logger
	factory *index.DefaultFactory
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree
func newRootCmd() *cobra.Command {
	a := &app{
		logger:  zap.NewNop(),
		factory: index.NewDefaultFactory(),
	}

	root := &cobra.Command{
		Use:   "nnbench",
		Short: "Nearest-neighbour locator benchmark",
		Long: `nnbench builds a synthetic point cloud, indexes it with several
nearest-neighbour locators (gonum k-d tree and vp-tree, bucket grids,
brute force) and times the build and query phases.

Reports can be stored in BoltDB or BadgerDB and served over HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg

			logCfg := cfg.Logging
			if a.verbose {
				logCfg = logging.Verbose(logCfg)
			}
			a.logger, err = logging.New(logCfg)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/"+config.DefaultFileName+")")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newRunCmd(a),
		newReportsCmd(a),
		newServeCmd(a),
		newLocatorsCmd(a),
	)
	return root
}

// openStore opens the configured report store
func (a *app) openStore() (core.ReportStore, error) {
	store, err := persistence.NewDefaultFactory().CreateStore(a.cfg.Persistence)
	if err != nil {
		return nil, fmt.Errorf("failed to open report store: %w", err)
	}
	a.logger.Debug("opened report store",
		zap.String("type", string(a.cfg.Persistence.Type)),
		zap.String("path", a.cfg.Persistence.Path))
	return store, nil
}

func newLocatorsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "locators",
		Short: "List the available locators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults := make(map[string]bool)
			for _, name := range a.cfg.Benchmark.Locators {
				defaults[name] = true
			}
			for _, name := range a.factory.Names() {
				marker := " "
				if defaults[name] {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
			}
			return nil
		},
	}
}
