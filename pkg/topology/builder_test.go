package topology_test

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chazu/spool/pkg/geom"
	"github.com/chazu/spool/pkg/sketch"
	"github.com/chazu/spool/pkg/topology"
	tt "github.com/chazu/spool/pkg/topology/topologytest"
)

func length(v float64) *float64 { return &v }

func seg(id string, x1, y1, x2, y2 float64, l *float64, spec string) sketch.Segment {
	return sketch.Segment{
		ID:     id,
		Start:  geom.Point2{X: x1, Y: y1},
		End:    geom.Point2{X: x2, Y: y2},
		Length: l,
		Spec:   spec,
	}
}

func build(t *testing.T, sk *sketch.Sketch, opts ...topology.Option) (*topology.Graph, []topology.Warning) {
	t.Helper()
	opts = append([]topology.Option{topology.WithIDFunc(tt.SeqIDs())}, opts...)
	g, warns, err := topology.NewBuilder(opts...).Build(sk)
	require.NoError(t, err)
	return g, warns
}

func TestBuildSimpleBend(t *testing.T) {
	sk := &sketch.Sketch{}
	sk.Add(seg("l1", 0, 0, 86.6, 50, length(100), "SMS_25"))
	sk.Add(seg("l2", 86.6, 50, 86.6, 150, length(100), "SMS_25"))

	g, warns := build(t, sk)
	assert.Empty(t, warns)
	require.Equal(t, 3, g.NodeCount())
	require.Equal(t, 2, g.EdgeCount())

	start := tt.NodeAt(t, g, 0, 0, 0)
	assert.Equal(t, topology.NodeEndpoint, start.Kind)

	bend := tt.NodeAt(t, g, 100, 0, 0)
	require.Equal(t, topology.NodeBend, bend.Kind)
	bd := bend.Data.(topology.BendData)
	assert.InDelta(t, 90, bd.Angle, 1e-9)
	assert.Equal(t, "SMS_25", bend.Spec)
	assert.False(t, bend.RequiresReducer)

	end := tt.NodeAt(t, g, 100, 0, -100)
	ed := end.Data.(topology.EndpointData)
	assert.Equal(t, bend.ID, ed.Neighbor)
	assert.True(t, geom.Near(geom.Vec{Z: 1}, ed.Direction, 1e-9))
}

func TestBuildTee(t *testing.T) {
	sk := &sketch.Sketch{}
	sk.Add(seg("line_1", 0, 0, 86.6, 50, length(100), "SMS_38"))
	sk.Add(seg("line_2", 86.6, 50, 173.2, 100, length(100), "SMS_38"))
	sk.Add(seg("line_3", 86.6, 50, 173.2, 0, length(100), "SMS_25"))

	g, warns := build(t, sk)
	assert.Empty(t, warns)
	require.Equal(t, 4, g.NodeCount())

	tee := tt.NodeAt(t, g, 100, 0, 0)
	require.Equal(t, topology.NodeTee, tee.Kind)
	td := tee.Data.(topology.TeeData)

	left := tt.NodeAt(t, g, 0, 0, 0)
	right := tt.NodeAt(t, g, 200, 0, 0)
	branch := tt.NodeAt(t, g, 100, 100, 0)
	assert.ElementsMatch(t, []topology.NodeID{left.ID, right.ID}, td.Run[:])
	assert.Equal(t, branch.ID, td.Branch)
	assert.False(t, td.RunReducer)
	assert.Equal(t, "SMS_38", tee.Spec, "tee takes the run spec")
	assert.True(t, tee.RequiresReducer)
}

func TestBuildTeeRunReducer(t *testing.T) {
	sk := tt.NewPen("SMS_38").Draw(tt.PlusX, 100).Spec("SMS_25").Draw(tt.PlusX, 100).Sketch()
	mid := sk.Segments[0].End
	sk.Add(seg("branch", mid.X, mid.Y, mid.X, mid.Y-100, length(100), "SMS_25"))

	g, _ := build(t, sk)
	tee := tt.NodeAt(t, g, 100, 0, 0)
	td := tee.Data.(topology.TeeData)
	assert.True(t, td.RunReducer)
}

// Two construction legs place the far end of a dimensioned run; the
// shortcut then closes the gap with a non-isometric pipe.
func shortcutSketch() *sketch.Sketch {
	sk := &sketch.Sketch{}
	sk.Add(seg("l1", 311.7691, 580, 311.7691, 300, length(500), "SMS-38"))
	l2 := seg("l2", 311.7691, 300, 519.6152, 180, length(400), "SMS-38")
	l2.Construction = true
	sk.Add(l2)
	l3 := seg("l3", 519.6152, 180, 692.8203, 280, length(300), "SMS-38")
	l3.Construction = true
	sk.Add(l3)
	sk.Add(seg("l4", 692.8203, 280, 1004.5895, 100, length(500), "SMS-38"))
	sk.Add(seg("l5_shortcut", 311.7691, 300, 692.8203, 280, nil, "SMS-38"))
	return sk
}

func TestBuildShortcutThroughConstruction(t *testing.T) {
	g, warns := build(t, shortcutSketch())
	assert.Empty(t, warns)
	require.Equal(t, 4, g.NodeCount())
	require.Equal(t, 3, g.EdgeCount())

	var segs []string
	for _, e := range g.Edges() {
		segs = append(segs, e.SegmentID)
		assert.False(t, e.Construction)
		assert.Equal(t, "SMS_38", e.Spec)
	}
	assert.ElementsMatch(t, []string{"l1", "l4", "l5_shortcut"}, segs)

	tt.NodeAt(t, g, 0, 0, 0)
	b1 := tt.NodeAt(t, g, 0, 0, 500)
	b2 := tt.NodeAt(t, g, 300, 400, 500)
	tt.NodeAt(t, g, 300, 900, 500)
	_, ok := g.NodeAt(geom.Vec{Y: 400, Z: 500})
	assert.False(t, ok, "construction-only node is pruned")

	assert.InDelta(t, 90, b1.Data.(topology.BendData).Angle, 1e-3)
	assert.InDelta(t, 36.8699, b2.Data.(topology.BendData).Angle, 1e-3)
}

func TestBuildOriginOption(t *testing.T) {
	sk := tt.Tee("SMS_25", "SMS_25")
	far := sk.Segments[1].End
	sk.Origin = &far

	g, warns := build(t, sk)
	assert.Empty(t, warns)
	tt.NodeAt(t, g, 0, 0, 0)
	tee := tt.NodeAt(t, g, -100, 0, 0)
	assert.Equal(t, topology.NodeTee, tee.Kind)
}

func TestBuildOriginOffGraphFallsBack(t *testing.T) {
	sk := tt.L("SMS_25", 100, 100)
	sk.Origin = &geom.Point2{X: -5, Y: -5}

	g, warns := build(t, sk)
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0].Message, "origin")
	tt.NodeAt(t, g, 100, 0, 0)
}

func TestBuildSnapDeviationIsReported(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sk := &sketch.Sketch{}
	r := geom.Radians(35)
	sk.Add(seg("skew", 0, 0, 100*math.Cos(r), 100*math.Sin(r), length(100), "SMS_25"))

	g, warns := build(t, sk, topology.WithLogger(zap.New(core)))
	require.Len(t, warns, 1)
	assert.Equal(t, topology.SeverityInfo, warns[0].Severity)
	assert.Equal(t, "skew", warns[0].SegmentID)
	assert.Equal(t, 1, logs.FilterMessage("sketch note").Len())

	// Snapped to +X regardless.
	tt.NodeAt(t, g, 100, 0, 0)
}

func TestBuildSnapThresholdOption(t *testing.T) {
	sk := &sketch.Sketch{}
	r := geom.Radians(35)
	sk.Add(seg("skew", 0, 0, 100*math.Cos(r), 100*math.Sin(r), length(100), "SMS_25"))

	_, warns := build(t, sk, topology.WithSnapWarnDegrees(10))
	assert.Empty(t, warns)
}

func TestBuildSkipsDefectiveSegments(t *testing.T) {
	sk := tt.L("SMS_25", 100, 100)
	a, b := sk.Segments[0].Start, sk.Segments[0].End
	sk.Add(seg("bad_length", a.X, a.Y, b.X, b.Y, length(-3), "SMS_25"))
	sk.Add(seg("loop", a.X, a.Y, a.X, a.Y, length(10), "SMS_25"))
	sk.Add(seg("parallel", b.X, b.Y, a.X, a.Y, length(100), "SMS_25"))
	sk.Add(seg("stray_shortcut", 500, 500, 600, 500, nil, "SMS_25"))

	g, warns := build(t, sk)
	assert.Equal(t, 2, g.EdgeCount())

	got := map[string]bool{}
	for _, w := range warns {
		got[w.SegmentID] = true
		assert.Equal(t, topology.SeverityWarning, w.Severity)
	}
	assert.Equal(t, map[string]bool{
		"bad_length": true, "loop": true, "parallel": true, "stray_shortcut": true,
	}, got)
}

func TestBuildDisconnectedSegmentWarns(t *testing.T) {
	sk := tt.L("SMS_25", 100, 100)
	sk.Add(seg("island", 1000, 1000, 1086.6, 1050, length(100), "SMS_25"))

	g, warns := build(t, sk)
	require.Len(t, warns, 1)
	assert.Equal(t, "island", warns[0].SegmentID)
	assert.Equal(t, 3, g.NodeCount())
}

func TestBuildRejectsFourWayJunction(t *testing.T) {
	p := tt.NewPen("SMS_25")
	for _, bearing := range []float64{tt.PlusX, tt.MinusX, tt.PlusZ, tt.MinusZ} {
		p.MoveTo(geom.Point2{}).Draw(bearing, 100)
	}

	_, _, err := topology.NewBuilder().Build(p.Sketch())
	require.Error(t, err)
	assert.True(t, errors.Is(err, topology.ErrUnsupportedJunction))
}

func TestBuildIsDeterministic(t *testing.T) {
	g1, _ := build(t, tt.Tee("SMS_38", "SMS_25"))
	g2, _ := build(t, tt.Tee("SMS_38", "SMS_25"))

	if diff := cmp.Diff(g1.Nodes(), g2.Nodes()); diff != "" {
		t.Errorf("node mismatch (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(g1.Edges(), g2.Edges()); diff != "" {
		t.Errorf("edge mismatch (-first +second):\n%s", diff)
	}
}

func TestDefaultNodeIDs(t *testing.T) {
	g, _, err := topology.NewBuilder().Build(tt.L("SMS_25", 100, 100))
	require.NoError(t, err)
	for _, n := range g.Nodes() {
		assert.Regexp(t, `^node_[0-9a-f]{8}$`, string(n.ID))
	}
}

func TestValidateBuiltGraph(t *testing.T) {
	g, _ := build(t, shortcutSketch())
	assert.Empty(t, topology.Validate(g))

	bend := tt.NodeAt(t, g, 0, 0, 500)
	bend.Kind = topology.NodeTee
	errs := topology.Validate(g)
	require.Len(t, errs, 1)
	assert.Equal(t, bend.ID, errs[0].NodeID)
	assert.Equal(t, topology.SeverityError, errs[0].Severity)
}
