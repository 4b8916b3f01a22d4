package geom

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Vector helpers
// ---------------------------------------------------------------------------

func TestNormalizeZeroVector(t *testing.T) {
	assert.Equal(t, Vec{}, Normalize(Vec{}))
	assert.InDelta(t, 1.0, Normalize(Vec{X: 3, Y: 4}).Length(), 1e-12)
}

func TestAngleBetween(t *testing.T) {
	tests := []struct {
		name string
		a, b Vec
		want float64
	}{
		{"same", Vec{X: 1}, Vec{X: 2}, 0},
		{"right", Vec{X: 1}, Vec{Y: 1}, 90},
		{"opposite", Vec{X: 1}, Vec{X: -1}, 180},
		{"diagonal", Vec{X: 1}, Vec{X: 1, Y: 1}, 45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, AngleBetween(tt.a, tt.b), 1e-9)
		})
	}
}

func TestRoundDropsNegativeZero(t *testing.T) {
	v := Round(Vec{X: -0.0000001, Y: 1.23456789, Z: 99.9999999}, 6)
	assert.Equal(t, Vec{X: 0, Y: 1.234568, Z: 100}, v)
	assert.False(t, math.Signbit(v.X))
}

// ---------------------------------------------------------------------------
// Isometric snapping
// ---------------------------------------------------------------------------

func TestSnapExactAxes(t *testing.T) {
	for _, ax := range IsoAxes {
		t.Run(ax.Name, func(t *testing.T) {
			got, dev := Snap(ax.Bearing)
			assert.Equal(t, ax.Name, got.Name)
			assert.InDelta(t, 0, dev, 1e-9)
		})
	}
}

func TestSnapDeviationAndWrap(t *testing.T) {
	got, dev := Snap(359)
	assert.Equal(t, "+Y", got.Name)
	assert.InDelta(t, 29, dev, 1e-9)

	got, dev = Snap(31.5)
	assert.Equal(t, "+X", got.Name)
	assert.InDelta(t, 1.5, dev, 1e-9)
}

func TestBearingOfSketchSegment(t *testing.T) {
	b := Bearing(Point2{X: 0, Y: 0}, Point2{X: 86.6, Y: 50})
	assert.InDelta(t, 30, b, 0.01)
	b = Bearing(Point2{X: 86.6, Y: 50}, Point2{X: 173.2, Y: 0})
	assert.InDelta(t, 330, b, 0.01)
}

func TestProjectInvertsSnap(t *testing.T) {
	for _, ax := range IsoAxes {
		p := Project(ax.Dir.MulScalar(10))
		snapped, dev := Snap(Bearing(Point2{}, p))
		assert.Equal(t, ax.Name, snapped.Name)
		assert.InDelta(t, 0, dev, 1e-9)
		assert.InDelta(t, 10, math.Hypot(p.X, p.Y), 1e-9)
	}
}

func TestIsoStep(t *testing.T) {
	p := IsoStep(Point2{}, 30, 100)
	assert.InDelta(t, 86.6025, p.X, 1e-4)
	assert.InDelta(t, 50, p.Y, 1e-9)
}

// ---------------------------------------------------------------------------
// Primitives
// ---------------------------------------------------------------------------

func TestArcLengthQuarterCircle(t *testing.T) {
	r := 38.0
	s := 1 / math.Sqrt2
	arc := Arc(Vec{X: r}, Vec{X: r * s, Y: r * s}, Vec{Y: r})
	assert.InDelta(t, math.Pi*r/2, arc.Length(), 1e-9)
}

func TestPrimitiveJSON(t *testing.T) {
	line := Line(Vec{X: 1}, Vec{X: 2, Y: 3})
	data, err := json.Marshal(line)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"LINE","start":[1,0,0],"end":[2,3,0]}`, string(data))

	arc := Arc(Vec{}, Vec{X: 1, Y: 1}, Vec{X: 2})
	data, err = json.Marshal(arc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"mid":[1,1,0]`)

	var back Primitive
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, arc, back)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"SPLINE"}`), &back))
}

func TestExtent(t *testing.T) {
	prims := []Primitive{
		Line(Vec{}, Vec{X: 100}),
		Arc(Vec{X: 100}, Vec{X: 120, Y: 5}, Vec{X: 130, Y: 30, Z: -4}),
	}
	box := Extent(prims)
	assert.Equal(t, Vec{X: 0, Y: 0, Z: -4}, box.Min)
	assert.Equal(t, Vec{X: 130, Y: 30, Z: 0}, box.Max)
	assert.InDelta(t, 100, PathLength(prims[:1]), 1e-12)
}
