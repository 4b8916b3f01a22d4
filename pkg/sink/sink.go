// Package sink defines where finished centerlines go. Implementations
// (JSON, DXF drawing, tube mesh) receive every branch's primitives in
// order and write their output on Close. The sink abstraction keeps the
// pipeline free of file formats.
package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/chazu/spool/pkg/geom"
)

// Sink receives the centerline of each branch.
type Sink interface {
	// Branch records the primitives of branch index. Branches arrive in
	// index order; failed branches are skipped.
	Branch(index int, prims []geom.Primitive) error

	// Close writes the output and releases resources.
	Close() error
}

// Multi fans every call out to all sinks. Close closes all of them and
// returns the first error.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

type multi []Sink

func (m multi) Branch(index int, prims []geom.Primitive) error {
	for _, s := range m {
		if err := s.Branch(index, prims); err != nil {
			return err
		}
	}
	return nil
}

func (m multi) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ---------------------------------------------------------------------------
// JSON
// ---------------------------------------------------------------------------

// BranchRecord is the JSON form of one branch.
type BranchRecord struct {
	Index      int              `json:"index"`
	Primitives []geom.Primitive `json:"primitives"`
}

// JSON writes {"branches": [{"index", "primitives"}]} to w on Close.
type JSON struct {
	w        io.Writer
	indent   bool
	branches []BranchRecord
}

// NewJSON returns a JSON sink writing to w.
func NewJSON(w io.Writer, indent bool) *JSON {
	return &JSON{w: w, indent: indent}
}

func (j *JSON) Branch(index int, prims []geom.Primitive) error {
	j.branches = append(j.branches, BranchRecord{Index: index, Primitives: prims})
	return nil
}

func (j *JSON) Close() error {
	enc := json.NewEncoder(j.w)
	if j.indent {
		enc.SetIndent("", "  ")
	}
	doc := struct {
		Branches []BranchRecord `json:"branches"`
	}{Branches: j.branches}
	if doc.Branches == nil {
		doc.Branches = []BranchRecord{}
	}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("sink: json: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Flattening
// ---------------------------------------------------------------------------

// Flatten converts primitives into a polyline per primitive. Arcs are split
// into chords no longer than maxChord.
func Flatten(prims []geom.Primitive, maxChord float64) [][]geom.Vec {
	out := make([][]geom.Vec, 0, len(prims))
	for _, p := range prims {
		if p.Kind == geom.KindLine {
			out = append(out, []geom.Vec{p.Start, p.End})
			continue
		}
		out = append(out, flattenArc(p, maxChord))
	}
	return out
}

func flattenArc(p geom.Primitive, maxChord float64) []geom.Vec {
	n := 2
	if maxChord > 0 {
		n = max(n, int(math.Ceil(p.Length()/maxChord)))
	}
	// Interpolate through the midpoint: first half from Start to Mid, second
	// half from Mid to End, each projected onto the circle.
	center, radius, ok := circumcircle(p.Start, p.Mid, p.End)
	if !ok {
		return []geom.Vec{p.Start, p.End}
	}
	pts := make([]geom.Vec, 0, n+1)
	pts = append(pts, p.Start)
	half := n / 2
	for i := 1; i < half; i++ {
		pts = append(pts, onCircle(center, radius, p.Start, p.Mid, float64(i)/float64(half)))
	}
	pts = append(pts, p.Mid)
	for i := 1; i < n-half; i++ {
		pts = append(pts, onCircle(center, radius, p.Mid, p.End, float64(i)/float64(n-half)))
	}
	return append(pts, p.End)
}

// onCircle returns the point a fraction t along the minor arc from a to b.
func onCircle(c geom.Vec, r float64, a, b geom.Vec, t float64) geom.Vec {
	ua := geom.Normalize(a.Sub(c))
	ub := geom.Normalize(b.Sub(c))
	theta := math.Acos(geom.Clamp(ua.Dot(ub), -1, 1))
	if theta < geom.Epsilon {
		return a
	}
	s := math.Sin(theta)
	wa := math.Sin((1-t)*theta) / s
	wb := math.Sin(t*theta) / s
	return c.Add(ua.MulScalar(wa * r)).Add(ub.MulScalar(wb * r))
}

func circumcircle(a, b, c geom.Vec) (geom.Vec, float64, bool) {
	ab, ac := b.Sub(a), c.Sub(a)
	n := ab.Cross(ac)
	n2 := n.Dot(n)
	if n2 < geom.Epsilon {
		return geom.Vec{}, 0, false
	}
	t1 := n.Cross(ab).MulScalar(ac.Dot(ac))
	t2 := ac.Cross(n).MulScalar(ab.Dot(ab))
	center := a.Add(t1.Add(t2).DivScalar(2 * n2))
	return center, geom.Distance(center, a), true
}
