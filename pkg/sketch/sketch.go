// Package sketch defines the segment records a 2D isometric pipe sketch is
// made of, and decodes them from JSON.
package sketch

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/chazu/spool/pkg/catalog"
	"github.com/chazu/spool/pkg/geom"
)

// Segment is one drawn line of the sketch.
type Segment struct {
	ID           string
	Start        geom.Point2
	End          geom.Point2
	Length       *float64 // dimension written on the sketch; nil for shortcuts
	Spec         string
	Construction bool
}

// Dimensioned reports whether the segment carries a length dimension.
func (s Segment) Dimensioned() bool { return s.Length != nil }

// Warning is a non-fatal problem found while reading a sketch.
type Warning struct {
	SegmentID string
	Line      int
	Message   string
}

func (w Warning) String() string {
	switch {
	case w.SegmentID != "":
		return fmt.Sprintf("segment %s: %s", w.SegmentID, w.Message)
	case w.Line > 0:
		return fmt.Sprintf("line %d: %s", w.Line, w.Message)
	}
	return w.Message
}

// Sketch is the full input to the topology builder.
type Sketch struct {
	Segments []Segment
	Origin   *geom.Point2
	Warnings []Warning
}

// Len returns the number of segments.
func (s *Sketch) Len() int { return len(s.Segments) }

// Add appends a segment after normalising its spec name. Segments without
// an id or spec are skipped and recorded as warnings.
func (s *Sketch) Add(seg Segment) bool {
	seg.Spec = catalog.CleanName(seg.Spec)
	if seg.ID == "" || seg.Spec == "" {
		s.Warnings = append(s.Warnings, Warning{
			SegmentID: seg.ID,
			Message:   "missing id or spec, segment skipped",
		})
		return false
	}
	s.Segments = append(s.Segments, seg)
	return true
}

// ---------------------------------------------------------------------------
// JSON
// ---------------------------------------------------------------------------

type segmentJSON struct {
	ID           string     `json:"id"`
	Start        [2]float64 `json:"start"`
	End          [2]float64 `json:"end"`
	Length       *float64   `json:"length,omitempty"`
	Spec         string     `json:"spec"`
	Construction bool       `json:"construction,omitempty"`
}

type sketchJSON struct {
	Origin   *[2]float64   `json:"origin,omitempty"`
	Segments []segmentJSON `json:"segments"`
}

// DecodeJSON reads a sketch of the form
//
//	{"origin": [0, 0], "segments": [{"id": "l1", "start": [0, 0],
//	  "end": [86.6, 50], "length": 100, "spec": "SMS-25"}]}
func DecodeJSON(r io.Reader) (*Sketch, error) {
	var in sketchJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("sketch: decode json: %w", err)
	}

	sk := &Sketch{}
	if in.Origin != nil {
		sk.Origin = &geom.Point2{X: in.Origin[0], Y: in.Origin[1]}
	}
	for _, sj := range in.Segments {
		sk.Add(Segment{
			ID:           sj.ID,
			Start:        geom.Point2{X: sj.Start[0], Y: sj.Start[1]},
			End:          geom.Point2{X: sj.End[0], Y: sj.End[1]},
			Length:       sj.Length,
			Spec:         sj.Spec,
			Construction: sj.Construction,
		})
	}
	return sk, nil
}

// EncodeJSON writes the sketch in the form read by DecodeJSON.
func EncodeJSON(w io.Writer, sk *Sketch) error {
	out := sketchJSON{Segments: make([]segmentJSON, 0, len(sk.Segments))}
	if sk.Origin != nil {
		out.Origin = &[2]float64{sk.Origin.X, sk.Origin.Y}
	}
	for _, s := range sk.Segments {
		out.Segments = append(out.Segments, segmentJSON{
			ID:           s.ID,
			Start:        [2]float64{s.Start.X, s.Start.Y},
			End:          [2]float64{s.End.X, s.End.Y},
			Length:       s.Length,
			Spec:         s.Spec,
			Construction: s.Construction,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
