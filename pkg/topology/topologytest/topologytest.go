// Package topologytest provides sketch and graph fixtures for tests of the
// packages downstream of topology.
package topologytest

import (
	"fmt"
	"testing"

	"github.com/chazu/spool/pkg/geom"
	"github.com/chazu/spool/pkg/sketch"
	"github.com/chazu/spool/pkg/topology"
)

// Isometric bearings in sketch degrees.
const (
	PlusX  = 30.0
	MinusZ = 90.0
	MinusY = 150.0
	MinusX = 210.0
	PlusZ  = 270.0
	PlusY  = 330.0
)

// Pen draws a sketch by walking isometric bearings from the sketch origin.
type Pen struct {
	sk   sketch.Sketch
	at   geom.Point2
	spec string
	n    int
}

// NewPen returns a pen at (0, 0) drawing segments of the given spec.
func NewPen(spec string) *Pen {
	return &Pen{spec: spec}
}

func (p *Pen) nextID(suffix string) string {
	p.n++
	return fmt.Sprintf("line_%d%s", p.n, suffix)
}

// At returns the pen position.
func (p *Pen) At() geom.Point2 { return p.at }

// MoveTo lifts the pen to pt.
func (p *Pen) MoveTo(pt geom.Point2) *Pen {
	p.at = pt
	return p
}

// Spec switches the spec of subsequent segments.
func (p *Pen) Spec(spec string) *Pen {
	p.spec = spec
	return p
}

// Draw adds a dimensioned segment from the pen position.
func (p *Pen) Draw(bearing, length float64) *Pen {
	return p.draw(bearing, length, false)
}

// Construction adds a dimensioned construction segment.
func (p *Pen) Construction(bearing, length float64) *Pen {
	return p.draw(bearing, length, true)
}

func (p *Pen) draw(bearing, length float64, construction bool) *Pen {
	end := geom.IsoStep(p.at, bearing, length)
	l := length
	p.sk.Add(sketch.Segment{
		ID:           p.nextID(""),
		Start:        p.at,
		End:          end,
		Length:       &l,
		Spec:         p.spec,
		Construction: construction,
	})
	p.at = end
	return p
}

// Shortcut adds an undimensioned segment between two sketch points.
func (p *Pen) Shortcut(from, to geom.Point2) *Pen {
	p.sk.Add(sketch.Segment{
		ID:    p.nextID("_shortcut"),
		Start: from,
		End:   to,
		Spec:  p.spec,
	})
	p.at = to
	return p
}

// Sketch returns a copy of the drawn sketch.
func (p *Pen) Sketch() *sketch.Sketch {
	sk := p.sk
	sk.Segments = append([]sketch.Segment(nil), p.sk.Segments...)
	return &sk
}

// SeqIDs returns a deterministic node ID generator: node_0001, node_0002...
func SeqIDs() func() topology.NodeID {
	n := 0
	return func() topology.NodeID {
		n++
		return topology.NodeID(fmt.Sprintf("node_%04d", n))
	}
}

// L draws a run along +X for a, then a right-angle turn along +Y for b.
// The bend lands at (a, 0, 0).
func L(spec string, a, b float64) *sketch.Sketch {
	return NewPen(spec).Draw(PlusX, a).Draw(PlusY, b).Sketch()
}

// Tee draws a run of 200 along +X in runSpec with a branch of 100 along +Y
// in branchSpec from its midpoint. The tee lands at (100, 0, 0).
func Tee(runSpec, branchSpec string) *sketch.Sketch {
	p := NewPen(runSpec).Draw(PlusX, 100)
	mid := p.At()
	p.Draw(PlusX, 100)
	return p.MoveTo(mid).Spec(branchSpec).Draw(PlusY, 100).Sketch()
}

// FedTee draws a run along +X through (0, 0, 0), (100, 0, 0), (200, 0, 0)
// and (300, 0, 0) with a branch of 100 along +Y at the tee (200, 0, 0).
// The leg beyond the tee is large; every other segment is small. The large
// leg is drawn second, so the tee takes the large spec while the walk from
// the first end enters it through the small run.
func FedTee(small, large string) *sketch.Sketch {
	p := NewPen(small).Draw(PlusX, 100)
	inline := p.At()
	tee := geom.IsoStep(inline, PlusX, 100)
	p.MoveTo(tee).Spec(large).Draw(PlusX, 100)
	p.MoveTo(inline).Spec(small).Draw(PlusX, 100)
	return p.MoveTo(tee).Draw(PlusY, 100).Sketch()
}

// Build builds sk with sequential node IDs and fails the test on error.
func Build(t testing.TB, sk *sketch.Sketch, opts ...topology.Option) *topology.Graph {
	t.Helper()
	opts = append([]topology.Option{topology.WithIDFunc(SeqIDs())}, opts...)
	g, _, err := topology.NewBuilder(opts...).Build(sk)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return g
}

// NodeAt returns the node at pos or fails the test.
func NodeAt(t testing.TB, g *topology.Graph, x, y, z float64) *topology.Node {
	t.Helper()
	n, ok := g.NodeAt(geom.Vec{X: x, Y: y, Z: z})
	if !ok {
		t.Fatalf("no node at (%g, %g, %g)", x, y, z)
	}
	return n
}
