package topology

import (
	"fmt"
	"math"

	"github.com/chazu/spool/pkg/catalog"
	"github.com/chazu/spool/pkg/geom"
	"github.com/chazu/spool/pkg/sketch"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// coordPlaces is the precision 3D coordinates are rounded to before nodes
// are merged.
const coordPlaces = 6

// DefaultSnapWarnDegrees is the bearing deviation above which snapping is
// reported.
const DefaultSnapWarnDegrees = 1.0

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for build diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) { b.log = l }
}

// WithSnapWarnDegrees sets the snapping deviation that is reported.
func WithSnapWarnDegrees(deg float64) Option {
	return func(b *Builder) { b.snapWarn = deg }
}

// WithIDFunc replaces the node ID generator.
func WithIDFunc(f func() NodeID) Option {
	return func(b *Builder) { b.newID = f }
}

// NewNodeID returns a random node ID of the form node_1a2b3c4d.
func NewNodeID() NodeID {
	return NodeID("node_" + uuid.NewString()[:8])
}

// Builder turns sketch segments into a classified Graph. A Builder holds no
// per-build state and may be reused.
type Builder struct {
	log      *zap.Logger
	snapWarn float64
	newID    func() NodeID
}

// NewBuilder returns a Builder with the given options applied.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		log:      zap.NewNop(),
		snapWarn: DefaultSnapWarnDegrees,
		newID:    NewNodeID,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// point2 keys the preliminary graph by exact sketch coordinate.
type point2 struct{ X, Y float64 }

func key2(p geom.Point2) point2 { return point2{X: p.X, Y: p.Y} }

type half2 struct {
	to  point2
	seg int
}

// build holds the state of one Build call.
type build struct {
	*Builder
	sk       *sketch.Sketch
	skip     map[int]bool // segments already reported and dropped
	warnings []Warning
}

func (b *build) warn(segID string, sev Severity, format string, args ...any) {
	w := Warning{SegmentID: segID, Message: fmt.Sprintf(format, args...), Severity: sev}
	b.warnings = append(b.warnings, w)
	if sev == SeverityWarning {
		b.log.Warn("sketch defect", zap.String("segment", segID), zap.String("detail", w.Message))
	} else {
		b.log.Info("sketch note", zap.String("segment", segID), zap.String("detail", w.Message))
	}
}

// Build lifts the sketch into 3D and classifies every node. Sketch defects
// are returned as warnings; only an unsupported junction is an error.
func (b *Builder) Build(sk *sketch.Sketch) (*Graph, []Warning, error) {
	st := &build{Builder: b, sk: sk, skip: make(map[int]bool)}

	dimensioned, shortcuts := st.partition()
	pos3 := st.place(dimensioned)

	g := NewGraph()
	st.merge(g, pos3, shortcuts)

	removed := g.removeEdgesWhere(func(e *Edge) bool { return e.Construction })
	pruned := g.pruneIsolated()
	b.log.Debug("cleanup",
		zap.Int("construction_edges", removed),
		zap.Int("isolated_nodes", pruned))

	if err := classify(g); err != nil {
		return nil, st.warnings, err
	}

	b.log.Info("topology built",
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()),
		zap.Int("warnings", len(st.warnings)))
	return g, st.warnings, nil
}

// partition splits usable segments into dimensioned ones and shortcuts.
func (b *build) partition() (dimensioned, shortcuts []int) {
	for i, s := range b.sk.Segments {
		if !s.Dimensioned() {
			shortcuts = append(shortcuts, i)
			continue
		}
		if l := *s.Length; math.IsNaN(l) || math.IsInf(l, 0) || l <= 0 {
			b.warn(s.ID, SeverityWarning, "length %v is not a usable dimension, segment skipped", l)
			b.skip[i] = true
			continue
		}
		dimensioned = append(dimensioned, i)
	}
	return dimensioned, shortcuts
}

// place builds the preliminary 2D graph from dimensioned segments and
// assigns 3D coordinates breadth-first from the root.
func (b *build) place(dimensioned []int) map[point2]geom.Vec {
	var order []point2
	adj := make(map[point2][]half2)
	seen := make(map[[2]point2]bool)

	for _, i := range dimensioned {
		s := b.sk.Segments[i]
		p, q := key2(s.Start), key2(s.End)
		if p == q {
			b.warn(s.ID, SeverityWarning, "start and end coincide, segment skipped")
			b.skip[i] = true
			continue
		}
		pair := [2]point2{p, q}
		if q.X < p.X || (q.X == p.X && q.Y < p.Y) {
			pair = [2]point2{q, p}
		}
		if seen[pair] {
			b.warn(s.ID, SeverityWarning, "parallel to an earlier segment, skipped")
			b.skip[i] = true
			continue
		}
		seen[pair] = true
		for _, k := range []point2{p, q} {
			if _, ok := adj[k]; !ok {
				order = append(order, k)
				adj[k] = nil
			}
		}
		adj[p] = append(adj[p], half2{to: q, seg: i})
		adj[q] = append(adj[q], half2{to: p, seg: i})
	}

	pos3 := make(map[point2]geom.Vec, len(order))
	if len(order) == 0 {
		return pos3
	}

	root := b.root(order, adj)
	pos3[root] = geom.Vec{}
	queue := []point2{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, h := range adj[cur] {
			if _, done := pos3[h.to]; done {
				continue
			}
			s := b.sk.Segments[h.seg]
			bearing := geom.Bearing(geom.Point2(cur), geom.Point2(h.to))
			axis, dev := geom.Snap(bearing)
			if dev > b.snapWarn {
				b.warn(s.ID, SeverityInfo, "bearing %.2f° snapped to %s (%.2f° off)", bearing, axis.Name, dev)
			}
			pos3[h.to] = geom.Round(pos3[cur].Add(axis.Dir.MulScalar(*s.Length)), coordPlaces)
			queue = append(queue, h.to)
		}
	}

	for _, k := range order {
		if _, ok := pos3[k]; ok {
			continue
		}
		for _, h := range adj[k] {
			if key2(b.sk.Segments[h.seg].Start) == k {
				b.warn(b.sk.Segments[h.seg].ID, SeverityWarning, "not connected to the root run, segment skipped")
				b.skip[h.seg] = true
			}
		}
	}
	return pos3
}

// root picks the BFS start: the sketch origin if it lies on the graph,
// else the first leaf, else the first point.
func (b *build) root(order []point2, adj map[point2][]half2) point2 {
	if o := b.sk.Origin; o != nil {
		if _, ok := adj[key2(*o)]; ok {
			return key2(*o)
		}
		b.warn("", SeverityWarning, "origin (%g, %g) is not on a dimensioned segment, ignored", o.X, o.Y)
	}
	for _, k := range order {
		if len(adj[k]) == 1 {
			return k
		}
	}
	return order[0]
}

// merge creates one node per distinct 3D point and one edge per resolved
// segment, in sketch order.
func (b *build) merge(g *Graph, pos3 map[point2]geom.Vec, shortcuts []int) {
	isShortcut := make(map[int]bool, len(shortcuts))
	for _, i := range shortcuts {
		isShortcut[i] = true
	}

	for i, s := range b.sk.Segments {
		if b.skip[i] {
			continue
		}
		p, okP := pos3[key2(s.Start)]
		q, okQ := pos3[key2(s.End)]
		if !okP || !okQ {
			if isShortcut[i] {
				b.warn(s.ID, SeverityWarning, "shortcut end points are not placed by any dimensioned run, segment dropped")
			}
			continue
		}
		if p == q {
			b.warn(s.ID, SeverityWarning, "resolves to zero length in 3D, segment skipped")
			continue
		}
		if s.Dimensioned() {
			if d := geom.Distance(p, q); math.Abs(d-*s.Length) > 1e-3 {
				b.warn(s.ID, SeverityInfo, "dimension %g disagrees with placed length %.3f", *s.Length, d)
			}
		}

		u := g.nodeAt(p, b.newID)
		v := g.nodeAt(q, b.newID)
		e := &Edge{
			U:            u.ID,
			V:            v.ID,
			SegmentID:    s.ID,
			Spec:         catalog.CleanName(s.Spec),
			Construction: s.Construction,
			Length:       s.Length,
		}
		if !g.addEdge(e) {
			b.warn(s.ID, SeverityWarning, "duplicates an earlier pipe between the same points, segment skipped")
		}
	}
}
