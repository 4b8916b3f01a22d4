package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chazu/spool/pkg/config"
	"github.com/chazu/spool/pkg/mcpserver"
	"github.com/chazu/spool/pkg/sink"
	"github.com/chazu/spool/pkg/sink/dxf"
	"github.com/chazu/spool/pkg/sink/sdfx"
)

var (
	outputPath   string
	outputFormat string
	dxfPath      string
	meshPath     string
	meshRadius   float64
	debounce     time.Duration
)

// buildCmd evaluates a sketch and writes its centerline.
var buildCmd = &cobra.Command{
	Use:   "build <sketch>",
	Short: "Build the centerline of a sketch",
	Long: `Evaluates a sketch and writes every branch's lines and arcs as JSON
(the full report by default, only the primitives with --format primitives,
or a text report with --format text). A DXF drawing and a tube mesh can be
written alongside. Infeasible branches are skipped and the command exits 1.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

// checkCmd prints a feasibility report.
var checkCmd = &cobra.Command{
	Use:   "check <sketch>",
	Short: "Report whether every branch of a sketch can be built",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return check(cmd.Context(), cmd.OutOrStdout(), args[0])
	},
}

// catalogCmd lists the loaded specs.
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the pipe specs and components of the loaded catalogs",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		writeCatalog(cmd.OutOrStdout(), app.Catalog())
	},
}

// watchCmd re-runs check whenever the sketch changes.
var watchCmd = &cobra.Command{
	Use:   "watch <sketch>",
	Short: "Re-check a sketch every time it is saved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		out := cmd.OutOrStdout()
		return watch(ctx, args[0], debounce, logger, func() {
			_ = check(ctx, out, args[0])
		})
	},
}

// serveCmd runs the MCP server on stdio.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline as MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eval := func(ctx context.Context, source, format string) any {
			return app.EvaluateContext(ctx, source, format)
		}
		return mcpserver.Serve(mcpserver.New(eval, app.Catalog(), logger))
	},
}

func init() {
	f := buildCmd.Flags()
	f.StringVarP(&outputPath, "output", "o", "", "write to file instead of stdout")
	f.StringVar(&outputFormat, "format", "", "output format: json, primitives or text (default from config)")
	f.StringVar(&dxfPath, "dxf", "", "also write an isometric DXF drawing")
	f.StringVar(&meshPath, "mesh", "", "also write tube meshes as JSON")
	f.Float64Var(&meshRadius, "mesh-radius", 0, "tube radius in mm (default from config)")

	watchCmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "delay before re-checking after a change")
}

// evaluateFile reads and evaluates a sketch file.
func evaluateFile(ctx context.Context, path string) (EvalResult, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return EvalResult{}, fmt.Errorf("failed to read sketch: %w", err)
	}
	return app.EvaluateContext(ctx, string(src), SourceFormat(path)), nil
}

func check(ctx context.Context, w io.Writer, path string) error {
	r, err := evaluateFile(ctx, path)
	if err != nil {
		return err
	}
	writeReport(w, r)
	if !r.Feasible {
		return errInfeasible
	}
	return nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	c := *cfg
	out := &c.Output
	if cmd.Flags().Changed("format") {
		out.Format = outputFormat
	}
	if dxfPath != "" {
		out.DXF = dxfPath
	}
	if meshPath != "" {
		out.Mesh = meshPath
	}
	if meshRadius > 0 {
		out.MeshRadius = meshRadius
	}
	if err := c.Validate(); err != nil {
		return err
	}

	r, err := evaluateFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(r.Errors) > 0 {
		writeReport(cmd.ErrOrStderr(), r)
		return errInfeasible
	}

	w := cmd.OutOrStdout()
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	sinks, closers, err := openSinks(*out)
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()
	if err != nil {
		return err
	}

	switch out.Format {
	case config.FormatText:
		writeReport(w, r)
	case config.FormatPrimitives:
		sinks = append(sinks, sink.NewJSON(w, true))
	default:
		if err := writeJSON(w, r); err != nil {
			return err
		}
	}
	if len(sinks) > 0 {
		if err := Realize(r, sink.Multi(sinks...)); err != nil {
			return err
		}
	}
	if !r.Feasible {
		writeReport(cmd.ErrOrStderr(), EvalResult{Branches: failed(r.Branches)})
		return errInfeasible
	}
	return nil
}

// openSinks creates the optional drawing and mesh sinks.
func openSinks(out config.OutputConfig) ([]sink.Sink, []io.Closer, error) {
	var (
		sinks   []sink.Sink
		closers []io.Closer
	)
	if out.DXF != "" {
		sinks = append(sinks, dxf.New(out.DXF, dxf.DefaultChord))
	}
	if out.Mesh != "" {
		f, err := os.Create(out.Mesh)
		if err != nil {
			return nil, closers, fmt.Errorf("failed to create mesh output: %w", err)
		}
		closers = append(closers, f)
		sinks = append(sinks, sdfx.New(f, out.MeshRadius))
	}
	return sinks, closers, nil
}

func writeJSON(w io.Writer, r EvalResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}

func failed(bs []BranchData) []BranchData {
	var out []BranchData
	for _, b := range bs {
		if b.Failed() {
			out = append(out, b)
		}
	}
	return out
}
