// Command spool turns isometric pipe sketches into fabrication centerlines.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chazu/spool/pkg/adjust"
	"github.com/chazu/spool/pkg/catalog"
	"github.com/chazu/spool/pkg/config"
	"github.com/chazu/spool/pkg/logging"
	"github.com/chazu/spool/pkg/pipeline"
	"github.com/chazu/spool/pkg/planner"
	"github.com/chazu/spool/pkg/topology"
)

// errInfeasible makes the process exit with status 1 without printing
// anything beyond the report itself.
var errInfeasible = errors.New("sketch has infeasible branches")

var (
	// Global flags
	configPath string
	catalogs   []string
	verbose    bool
	workers    int
	singleCut  bool
	endFitting string
	logFormat  string

	cfg    *config.Config
	logger *zap.Logger
	app    *App
)

var rootCmd = &cobra.Command{
	Use:   "spool",
	Short: "Isometric pipe sketch to fabrication centerline",
	Long: `spool reads a 2D isometric pipe sketch, reconstructs the 3D pipe network,
fits catalog components (bends, tees, reducers, clamps) at every junction
and reconciles drawn lengths against fitting take-up.

Sketches are Lisp scripts or JSON documents (.json).`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "spool.yaml", "configuration file")
	pf.StringSliceVar(&catalogs, "catalog", nil, "catalog files (overrides config)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.IntVar(&workers, "workers", 0, "branches processed concurrently (0: one per CPU)")
	pf.BoolVar(&singleCut, "single-cut", false, "take comfort cuts from a single fitting when possible")
	pf.StringVar(&endFitting, "end-fitting", "", "catalog key fitted to open ends, e.g. SMS_CLAMP")
	pf.StringVar(&logFormat, "log-format", "", "log format: json or console")

	rootCmd.AddCommand(buildCmd, checkCmd, catalogCmd, watchCmd, serveCmd)
}

// setup loads the configuration, applies flag overrides and creates the
// logger, the catalog and the App shared by every command.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("catalog") {
		cfg.Catalog.Paths = catalogs
	}
	if flags.Changed("workers") {
		cfg.Pipeline.Workers = workers
	}
	if flags.Changed("single-cut") {
		cfg.Adjuster.SingleCut = singleCut
	}
	if flags.Changed("end-fitting") {
		cfg.Planner.EndFitting = endFitting
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err = logging.New(cfg.Log)
	if err != nil {
		return err
	}

	cat, err := catalog.Load(cfg.Catalog.Paths...)
	if err != nil {
		return err
	}
	logger.Debug("catalog loaded",
		zap.Strings("paths", cfg.Catalog.Paths),
		zap.Int("specs", cat.Len()))

	app = NewApp(cat, logger, pipelineOptions(cfg)...)
	return nil
}

// pipelineOptions translates the configuration into stage options.
// The pipeline hands its own logger to every stage.
func pipelineOptions(c *config.Config) []pipeline.Option {
	return []pipeline.Option{
		pipeline.WithWorkers(c.Pipeline.Workers),
		pipeline.WithBuilderOptions(topology.WithSnapWarnDegrees(c.Builder.SnapWarnDegrees)),
		pipeline.WithPlannerOptions(planner.WithEndFitting(c.Planner.EndFitting)),
		pipeline.WithAdjusterOptions(adjust.WithSingleCut(c.Adjuster.SingleCut)),
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errInfeasible) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
