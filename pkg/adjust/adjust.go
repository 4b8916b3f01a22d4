package adjust

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/chazu/spool/pkg/catalog"
	"github.com/chazu/spool/pkg/factory"
	"github.com/chazu/spool/pkg/planner"
	"github.com/chazu/spool/pkg/topology"
)

// tolerance absorbs floating point noise when comparing lengths in mm.
const tolerance = 1e-9

// State is the outcome of adjusting one branch.
type State int

const (
	StateSurplus      State = iota // drawn length covers every fitting
	StateComfortCut                // tangents cut within their comfort margin
	StateNecessityCut              // tangents cut below comfort, above the physical floor
	StateInfeasible                // not buildable
)

func (s State) String() string {
	switch s {
	case StateSurplus:
		return "surplus"
	case StateComfortCut:
		return "comfort-cut"
	case StateNecessityCut:
		return "necessity-cut"
	case StateInfeasible:
		return "infeasible"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ImpossibleBuildError reports a branch whose fittings do not fit in the
// drawn length even with every tangent cut to its physical floor.
type ImpossibleBuildError struct {
	Branch    int
	Shortfall float64 // mm still missing after all cuts
}

func (e *ImpossibleBuildError) Error() string {
	return fmt.Sprintf("adjust: branch %d cannot be built: %.3f mm short", e.Branch, e.Shortfall)
}

// AdjustedTangent records the cuts made to one fitting. Start and End are
// the final tangent lengths on the incoming and outgoing side.
type AdjustedTangent struct {
	Item     int     `json:"item"`
	Key      string  `json:"key"`
	CutStart float64 `json:"cut_tangent_start"`
	CutEnd   float64 `json:"cut_tangent_end"`
	Start    float64 `json:"tangent_start"`
	End      float64 `json:"tangent_end"`
}

// Adjustment is the result of reconciling one build plan. Maps are keyed
// by item index in the plan.
type Adjustment struct {
	Branch      int                     `json:"branch"`
	State       State                   `json:"-"`
	Geometric   float64                 `json:"geometric"`
	Consumption float64                 `json:"consumption"`
	Discrepancy float64                 `json:"discrepancy"`
	Straights   map[int]float64         `json:"straights"`
	Tangents    map[int]AdjustedTangent `json:"tangents"`
	Fittings    map[int]factory.Fitting `json:"-"`
}

// Tangent returns the final tangent lengths of component item i.
func (a *Adjustment) Tangent(i int) (start, end float64) {
	if t, ok := a.Tangents[i]; ok {
		return t.Start, t.End
	}
	f := a.Fittings[i]
	return f.In.Tangent, f.Out.Tangent
}

// Option configures an Adjuster.
type Option func(*Adjuster)

// WithLogger sets the logger used for adjustment diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adjuster) { a.log = l }
}

// WithSingleCut makes the adjuster cut a single tangent when its comfort
// margin alone covers the shortfall, instead of spreading the cut.
func WithSingleCut(on bool) Option {
	return func(a *Adjuster) { a.singleCut = on }
}

// Adjuster reconciles build plans against a catalog. It is safe for
// concurrent use.
type Adjuster struct {
	cat       catalog.SpecCatalog
	log       *zap.Logger
	singleCut bool
}

// New returns an Adjuster that resolves fittings in cat.
func New(cat catalog.SpecCatalog, opts ...Option) *Adjuster {
	a := &Adjuster{cat: cat, log: zap.NewNop()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// tangent is one cuttable side in the leeway pools.
type tangent struct {
	item     int
	out      bool
	comfort  float64
	physical float64
}

// Adjust reconciles bp. Catalog problems are returned as errors; an
// unbuildable branch returns its Adjustment together with an
// *ImpossibleBuildError.
func (a *Adjuster) Adjust(g *topology.Graph, bp *planner.BuildPlan) (*Adjustment, error) {
	res := factory.NewResolver(a.cat, g)
	adj := &Adjustment{
		Branch:    bp.Branch,
		Straights: make(map[int]float64),
		Tangents:  make(map[int]AdjustedTangent),
		Fittings:  make(map[int]factory.Fitting),
	}

	for i := 1; i < len(bp.Path); i++ {
		adj.Geometric += g.Distance(bp.Path[i-1], bp.Path[i])
	}

	var pool []tangent
	for _, i := range bp.Components() {
		f, err := res.Resolve(bp.Items[i])
		if err != nil {
			return nil, fmt.Errorf("adjust: branch %d: %w", bp.Branch, err)
		}
		adj.Fittings[i] = f
		adj.Consumption += f.Consumption()
		for _, s := range f.Sides() {
			pool = append(pool, leeway(i, s == &f.Out, s))
		}
	}
	adj.Discrepancy = adj.Geometric - adj.Consumption

	straights := bp.Straights()
	if adj.Discrepancy >= -tolerance {
		adj.State = StateSurplus
		for _, i := range straights {
			adj.Straights[i] = math.Max(0, adj.Discrepancy) / float64(len(straights))
		}
		a.logResult(adj, 0)
		return adj, nil
	}

	for _, i := range straights {
		adj.Straights[i] = 0
	}
	shortfall := -adj.Discrepancy
	cuts := make([]float64, len(pool))

	var comfort, physical float64
	for _, t := range pool {
		comfort += t.comfort
		physical += t.physical
	}

	switch {
	case a.singleCut && singleCut(pool, shortfall, cuts):
		adj.State = StateComfortCut
	case shortfall <= comfort+tolerance:
		adj.State = StateComfortCut
		for k, t := range pool {
			cuts[k] = shortfall * t.comfort / comfort
		}
	case shortfall-comfort <= physical+tolerance:
		adj.State = StateNecessityCut
		remaining := shortfall - comfort
		for k, t := range pool {
			cuts[k] = t.comfort + remaining*t.physical/physical
		}
	default:
		adj.State = StateInfeasible
		residual := shortfall - comfort - physical
		a.logResult(adj, residual)
		return adj, &ImpossibleBuildError{Branch: bp.Branch, Shortfall: residual}
	}

	for k, t := range pool {
		at, ok := adj.Tangents[t.item]
		if !ok {
			f := adj.Fittings[t.item]
			at = AdjustedTangent{
				Item:  t.item,
				Key:   f.Key,
				Start: f.In.Tangent,
				End:   f.Out.Tangent,
			}
		}
		if t.out {
			at.CutEnd += cuts[k]
			at.End -= cuts[k]
		} else {
			at.CutStart += cuts[k]
			at.Start -= cuts[k]
		}
		adj.Tangents[t.item] = at
	}
	a.logResult(adj, 0)
	return adj, nil
}

// leeway splits the nominal tangent of s into its comfort margin and the
// margin between the comfort floor and the physical floor. The comfort
// floor never lies below the physical floor.
func leeway(item int, out bool, s *factory.Side) tangent {
	physFloor := math.Min(s.Tangent, s.Physical)
	prefFloor := math.Min(s.Tangent, math.Max(s.Preferred, s.Physical))
	return tangent{
		item:     item,
		out:      out,
		comfort:  s.Tangent - prefFloor,
		physical: prefFloor - physFloor,
	}
}

// singleCut puts the whole shortfall on the tangent with the largest
// comfort margin if that margin covers it. Ties go to the first.
func singleCut(pool []tangent, shortfall float64, cuts []float64) bool {
	best := -1
	for k, t := range pool {
		if best < 0 || t.comfort > pool[best].comfort {
			best = k
		}
	}
	if best < 0 || pool[best].comfort+tolerance < shortfall {
		return false
	}
	cuts[best] = shortfall
	return true
}

func (a *Adjuster) logResult(adj *Adjustment, residual float64) {
	fields := []zap.Field{
		zap.Int("branch", adj.Branch),
		zap.String("state", adj.State.String()),
		zap.Float64("geometric", adj.Geometric),
		zap.Float64("consumption", adj.Consumption),
		zap.Float64("discrepancy", adj.Discrepancy),
	}
	if adj.State == StateInfeasible {
		a.log.Warn("branch infeasible", append(fields, zap.Float64("residual", residual))...)
		return
	}
	a.log.Debug("branch adjusted", fields...)
}

// Lengths returns the final length of every straight, in plan order, for
// reports.
func (a *Adjustment) Lengths() []float64 {
	out := make([]float64, 0, len(a.Straights))
	for i := 0; len(out) < len(a.Straights); i++ {
		if l, ok := a.Straights[i]; ok {
			out = append(out, l)
		}
	}
	return out
}
