// Package dxf writes centerlines as an isometric 2D DXF drawing, the same
// projection the sketch was drawn in.
package dxf

import (
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/spool/pkg/geom"
	"github.com/chazu/spool/pkg/sink"
)

// DefaultChord is the longest chord used when flattening arcs, in mm.
const DefaultChord = 5.0

var _ sink.Sink = (*Sink)(nil)

// Sink accumulates projected lines and saves them on Close.
type Sink struct {
	path  string
	chord float64
	lines int
	d     *render.DXF
}

// New returns a DXF sink writing to path. A chord <= 0 selects
// DefaultChord.
func New(path string, chord float64) *Sink {
	if chord <= 0 {
		chord = DefaultChord
	}
	return &Sink{path: path, chord: chord, d: render.NewDXF(path)}
}

func (s *Sink) Branch(_ int, prims []geom.Primitive) error {
	for _, poly := range sink.Flatten(prims, s.chord) {
		for i := 1; i < len(poly); i++ {
			s.d.Line(&sdf.Line2{geom.Project(poly[i-1]), geom.Project(poly[i])})
			s.lines++
		}
	}
	return nil
}

// Lines returns the number of line entities written so far.
func (s *Sink) Lines() int { return s.lines }

func (s *Sink) Close() error {
	if err := s.d.Save(); err != nil {
		return fmt.Errorf("sink: dxf %s: %w", s.path, err)
	}
	return nil
}
