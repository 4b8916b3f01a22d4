package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/chazu/spool/pkg/adjust"
	"github.com/chazu/spool/pkg/catalog"
	"github.com/chazu/spool/pkg/engine"
	"github.com/chazu/spool/pkg/geom"
	"github.com/chazu/spool/pkg/pipeline"
	"github.com/chazu/spool/pkg/sink"
	"github.com/chazu/spool/pkg/sketch"
	"github.com/chazu/spool/pkg/topology"
)

// Source formats accepted by Evaluate.
const (
	SourceLisp = "lisp"
	SourceJSON = "json"
)

// SourceFormat picks the source format from a file name: .json files are
// JSON sketches, everything else is Lisp.
func SourceFormat(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return SourceJSON
	}
	return SourceLisp
}

// App is the backend shared by the CLI commands, the file watcher and the
// MCP server.
type App struct {
	engine   *engine.Engine
	catalog  *catalog.Catalog
	pipeline *pipeline.Pipeline
	log      *zap.Logger
}

// EvalErrorData is a JSON-serializable error or warning.
type EvalErrorData struct {
	Line     int    `json:"line,omitempty"`
	Col      int    `json:"col,omitempty"`
	Segment  string `json:"segment,omitempty"`
	Node     string `json:"node,omitempty"`
	Branch   *int   `json:"branch,omitempty"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// CutData is the JSON form of the cuts made to one fitting.
type CutData struct {
	Item     int     `json:"item"`
	Key      string  `json:"key"`
	CutStart float64 `json:"cut_start"`
	CutEnd   float64 `json:"cut_end"`
}

// BranchData is the JSON form of one branch.
type BranchData struct {
	Index       int              `json:"index"`
	Path        []string         `json:"path"`
	State       string           `json:"state,omitempty"`
	Geometric   float64          `json:"geometric"`
	Consumption float64          `json:"consumption"`
	Discrepancy float64          `json:"discrepancy"`
	Shortfall   float64          `json:"shortfall,omitempty"`
	Cuts        []CutData        `json:"cuts,omitempty"`
	Primitives  []geom.Primitive `json:"primitives"`
	Error       string           `json:"error,omitempty"`
}

// Failed reports whether the branch produced no centerline.
func (b BranchData) Failed() bool { return b.Error != "" }

// EvalResult is the full result of evaluating one sketch.
type EvalResult struct {
	Branches []BranchData    `json:"branches"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
	// Feasible is false when the sketch could not be run or at least one
	// branch cannot be built.
	Feasible bool `json:"feasible"`
}

// NewApp creates an App over a loaded catalog. Pipeline options are passed
// through unchanged; the logger is added to them.
func NewApp(cat *catalog.Catalog, log *zap.Logger, opts ...pipeline.Option) *App {
	if log == nil {
		log = zap.NewNop()
	}
	opts = append([]pipeline.Option{pipeline.WithLogger(log)}, opts...)
	return &App{
		engine:   engine.NewEngine(),
		catalog:  cat,
		pipeline: pipeline.New(cat, opts...),
		log:      log,
	}
}

// Catalog returns the catalog the app was built with.
func (a *App) Catalog() *catalog.Catalog { return a.catalog }

// Evaluate runs source through the whole pipeline.
func (a *App) Evaluate(source, format string) EvalResult {
	return a.EvaluateContext(context.Background(), source, format)
}

// EvaluateContext is Evaluate with a caller-supplied context.
func (a *App) EvaluateContext(ctx context.Context, source, format string) EvalResult {
	result := EvalResult{
		Branches: []BranchData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	// Step 1: Turn the source into a sketch.
	sk, ok := a.parse(source, format, &result)
	if !ok {
		return result
	}
	for _, w := range sk.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{
			Line:     w.Line,
			Segment:  w.SegmentID,
			Severity: "warning",
			Message:  w.Message,
		})
	}

	// Step 2: Run the pipeline.
	res, err := a.pipeline.Run(ctx, sk)
	if res == nil {
		a.log.Error("pipeline failed", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{
			Severity: "error",
			Message:  err.Error(),
		})
		return result
	}
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{
			Segment:  w.SegmentID,
			Node:     string(w.NodeID),
			Severity: w.Severity.String(),
			Message:  w.Message,
		})
	}
	for _, v := range topology.Validate(res.Graph) {
		result.Warnings = append(result.Warnings, EvalErrorData{
			Node:     string(v.NodeID),
			Severity: v.Severity.String(),
			Message:  v.Message,
		})
	}

	// Step 3: Convert branches to the serializable form.
	result.Feasible = err == nil
	for _, b := range res.Branches {
		bd := branchData(b)
		for _, w := range b.Warnings {
			result.Warnings = append(result.Warnings, EvalErrorData{
				Branch:   &bd.Index,
				Severity: "warning",
				Message:  w.String(),
			})
		}
		result.Branches = append(result.Branches, bd)
	}
	return result
}

// parse turns source into a sketch. Parse failures are recorded in result.
func (a *App) parse(source, format string, result *EvalResult) (*sketch.Sketch, bool) {
	switch format {
	case SourceLisp, "":
		sk, evalErrs, err := a.engine.Evaluate(source)
		if err != nil {
			// Fatal error (panic, timeout, superseded).
			a.log.Error("evaluate fatal error", zap.Error(err))
			result.Errors = append(result.Errors, EvalErrorData{Severity: "error", Message: err.Error()})
			return nil, false
		}
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:     e.Line,
				Col:      e.Col,
				Segment:  e.Segment,
				Severity: "error",
				Message:  e.Message,
			})
		}
		return sk, len(evalErrs) == 0
	case SourceJSON:
		sk, err := sketch.DecodeJSON(strings.NewReader(source))
		if err != nil {
			result.Errors = append(result.Errors, EvalErrorData{Severity: "error", Message: err.Error()})
			return nil, false
		}
		return sk, true
	}
	result.Errors = append(result.Errors, EvalErrorData{
		Severity: "error",
		Message:  fmt.Sprintf("unknown source format %q", format),
	})
	return nil, false
}

func branchData(b pipeline.Branch) BranchData {
	bd := BranchData{Index: b.Index, Path: []string{}, Primitives: b.Primitives}
	if bd.Primitives == nil {
		bd.Primitives = []geom.Primitive{}
	}
	if b.Plan != nil {
		for _, id := range b.Plan.Path {
			bd.Path = append(bd.Path, string(id))
		}
	}
	if adj := b.Adjustment; adj != nil {
		bd.State = adj.State.String()
		bd.Geometric = adj.Geometric
		bd.Consumption = adj.Consumption
		bd.Discrepancy = adj.Discrepancy
		items := make([]int, 0, len(adj.Tangents))
		for i := range adj.Tangents {
			items = append(items, i)
		}
		sort.Ints(items)
		for _, i := range items {
			t := adj.Tangents[i]
			if t.CutStart == 0 && t.CutEnd == 0 {
				continue
			}
			bd.Cuts = append(bd.Cuts, CutData{Item: t.Item, Key: t.Key, CutStart: t.CutStart, CutEnd: t.CutEnd})
		}
	}
	if b.Err != nil {
		bd.Error = b.Err.Error()
		var ibe *adjust.ImpossibleBuildError
		if errors.As(b.Err, &ibe) {
			bd.Shortfall = ibe.Shortfall
		}
	}
	return bd
}

// Realize sends every drawn branch of result to s and closes it.
func Realize(result EvalResult, s sink.Sink) error {
	for _, b := range result.Branches {
		if b.Failed() {
			continue
		}
		if err := s.Branch(b.Index, b.Primitives); err != nil {
			_ = s.Close()
			return err
		}
	}
	return s.Close()
}
