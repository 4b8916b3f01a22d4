// Package pipeline runs a sketch through every stage: topology, planning,
// length reconciliation and centerline assembly. Branches are processed
// concurrently and fail independently of each other.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/spool/pkg/adjust"
	"github.com/chazu/spool/pkg/catalog"
	"github.com/chazu/spool/pkg/centerline"
	"github.com/chazu/spool/pkg/geom"
	"github.com/chazu/spool/pkg/planner"
	"github.com/chazu/spool/pkg/sketch"
	"github.com/chazu/spool/pkg/topology"
)

// BranchError is an input defect that stopped one branch.
type BranchError struct {
	Branch int
	Err    error
}

func (e *BranchError) Error() string {
	return fmt.Sprintf("branch %d: %v", e.Branch, e.Err)
}

func (e *BranchError) Unwrap() error { return e.Err }

// Branch is the outcome of one branch. Err is set when the branch could not
// be drawn; Primitives is empty in that case.
type Branch struct {
	Index      int                  `json:"index"`
	Plan       *planner.BuildPlan   `json:"plan,omitempty"`
	Adjustment *adjust.Adjustment   `json:"adjustment,omitempty"`
	Primitives []geom.Primitive     `json:"primitives"`
	Warnings   []centerline.Warning `json:"warnings,omitempty"`
	Err        error                `json:"-"`
}

// Result holds every branch of a run, failed ones included.
type Result struct {
	Graph    *topology.Graph
	Warnings []topology.Warning
	Branches []Branch
}

// Primitives returns the primitive list of every branch in order.
func (r *Result) Primitives() [][]geom.Primitive {
	out := make([][]geom.Primitive, len(r.Branches))
	for i, b := range r.Branches {
		out[i] = b.Primitives
	}
	return out
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger passed to every stage.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithWorkers limits the number of branches processed at once. Values
// below 1 mean one worker per CPU.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithBuilderOptions adds options for the topology builder.
func WithBuilderOptions(opts ...topology.Option) Option {
	return func(p *Pipeline) { p.builderOpts = append(p.builderOpts, opts...) }
}

// WithPlannerOptions adds options for the planner.
func WithPlannerOptions(opts ...planner.Option) Option {
	return func(p *Pipeline) { p.plannerOpts = append(p.plannerOpts, opts...) }
}

// WithAdjusterOptions adds options for the adjuster.
func WithAdjusterOptions(opts ...adjust.Option) Option {
	return func(p *Pipeline) { p.adjustOpts = append(p.adjustOpts, opts...) }
}

// Pipeline is safe for concurrent use once constructed.
type Pipeline struct {
	log     *zap.Logger
	workers int

	builderOpts []topology.Option
	plannerOpts []planner.Option
	adjustOpts  []adjust.Option

	builder  *topology.Builder
	planner  *planner.Planner
	adjuster *adjust.Adjuster
}

// New returns a Pipeline resolving fittings in cat.
func New(cat catalog.SpecCatalog, opts ...Option) *Pipeline {
	p := &Pipeline{log: zap.NewNop()}
	for _, o := range opts {
		o(p)
	}
	if p.workers < 1 {
		p.workers = runtime.GOMAXPROCS(0)
	}
	p.builder = topology.NewBuilder(append([]topology.Option{topology.WithLogger(p.log)}, p.builderOpts...)...)
	p.planner = planner.New(append([]planner.Option{planner.WithLogger(p.log)}, p.plannerOpts...)...)
	p.adjuster = adjust.New(cat, append([]adjust.Option{adjust.WithLogger(p.log)}, p.adjustOpts...)...)
	return p
}

// Run processes sk. The returned Result always lists every branch. The
// error is the lowest-index *adjust.ImpossibleBuildError if any branch is
// infeasible; other per-branch failures only appear in Branch.Err. An
// unsupported junction or a cancelled context aborts the run.
func (p *Pipeline) Run(ctx context.Context, sk *sketch.Sketch) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g, warns, err := p.builder.Build(sk)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	plans := p.planner.Plan(g)
	res := &Result{Graph: g, Warnings: warns, Branches: make([]Branch, len(plans))}

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(p.workers)
	for i, cp := range plans {
		eg.Go(func() error {
			if err := ectx.Err(); err != nil {
				return err
			}
			res.Branches[i] = p.branch(g, cp, i)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	p.log.Info("pipeline finished",
		zap.Int("branches", len(res.Branches)),
		zap.Int("warnings", len(warns)))

	for _, b := range res.Branches {
		var ibe *adjust.ImpossibleBuildError
		if errors.As(b.Err, &ibe) {
			return res, ibe
		}
	}
	return res, nil
}

func (p *Pipeline) branch(g *topology.Graph, cp planner.ConceptualPlan, i int) Branch {
	b := Branch{Index: i}
	fail := func(err error) Branch {
		b.Err = &BranchError{Branch: i, Err: err}
		p.log.Warn("branch failed", zap.Int("branch", i), zap.Error(err))
		return b
	}

	bp, err := p.planner.Encode(g, cp, i)
	if err != nil {
		return fail(err)
	}
	b.Plan = bp

	adj, err := p.adjuster.Adjust(g, bp)
	b.Adjustment = adj
	if err != nil {
		return fail(err)
	}

	prims, warns, err := centerline.Assemble(bp, adj)
	if err != nil {
		return fail(err)
	}
	b.Primitives, b.Warnings = prims, warns
	for _, w := range warns {
		p.log.Warn("centerline", zap.Int("branch", i), zap.String("detail", w.String()))
	}
	return b
}
