package planner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/spool/pkg/catalog"
	"github.com/chazu/spool/pkg/geom"
	"github.com/chazu/spool/pkg/planner"
	"github.com/chazu/spool/pkg/sketch"
	"github.com/chazu/spool/pkg/topology"
	tt "github.com/chazu/spool/pkg/topology/topologytest"
)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

// loop closes a three-sided square back to the start with a shortcut, so
// every node is a bend and there is no open end to start from.
func loop() *sketch.Sketch {
	return tt.NewPen("SMS_25").
		Draw(tt.PlusX, 100).Draw(tt.PlusY, 100).Draw(tt.MinusX, 100).
		Shortcut(geom.Point2{}, geom.Point2{}).Sketch()
}

// closedLoop is loop with the shortcut drawn from the last point back to
// the origin.
func closedLoop() *sketch.Sketch {
	p := tt.NewPen("SMS_25").Draw(tt.PlusX, 100).Draw(tt.PlusY, 100).Draw(tt.MinusX, 100)
	return p.Shortcut(p.At(), geom.Point2{}).Sketch()
}

// twoTees joins the run midpoints of two tees with their shared branch.
func twoTees() *sketch.Sketch {
	p := tt.NewPen("SMS_25").Draw(tt.PlusX, 100)
	a := p.At()
	p.Draw(tt.PlusX, 100)
	p.MoveTo(a).Draw(tt.PlusY, 100)
	b := p.At()
	p.Draw(tt.PlusX, 100)
	return p.MoveTo(b).Draw(tt.MinusX, 100).Sketch()
}

// diagonal ends in a 45° shortcut placed by two construction legs.
func diagonal() *sketch.Sketch {
	p := tt.NewPen("SMS_25").Draw(tt.PlusX, 100)
	a := p.At()
	p.Construction(tt.PlusX, 100).Construction(tt.PlusY, 100)
	return p.Shortcut(a, p.At()).Sketch()
}

func keys(bp *planner.BuildPlan) []string {
	var out []string
	for _, it := range bp.Items {
		if it.IsComponent() {
			out = append(out, it.Key)
		} else {
			out = append(out, "|")
		}
	}
	return out
}

func encodeAll(t *testing.T, p *planner.Planner, g *topology.Graph) []*planner.BuildPlan {
	t.Helper()
	var out []*planner.BuildPlan
	for i, cp := range p.Plan(g) {
		bp, err := p.Encode(g, cp, i)
		require.NoError(t, err)
		out = append(out, bp)
	}
	return out
}

// ---------------------------------------------------------------------------
// Walk
// ---------------------------------------------------------------------------

func TestPlanSingleBend(t *testing.T) {
	g := tt.Build(t, tt.L("SMS_25", 100, 100))
	plans := planner.New().Plan(g)
	require.Len(t, plans, 1)
	assert.Equal(t, []topology.NodeID{"node_0001", "node_0002", "node_0003"}, plans[0].Nodes())
	assert.Len(t, plans[0].Edges(), 2)
}

func TestPlanTeeFollowsRun(t *testing.T) {
	g := tt.Build(t, tt.Tee("SMS_25", "SMS_25"))
	plans := planner.New().Plan(g)
	require.Len(t, plans, 2)

	start := tt.NodeAt(t, g, 0, 0, 0)
	tee := tt.NodeAt(t, g, 100, 0, 0)
	end := tt.NodeAt(t, g, 200, 0, 0)
	branch := tt.NodeAt(t, g, 100, 100, 0)

	assert.Equal(t, []topology.NodeID{start.ID, tee.ID, end.ID}, plans[0].Nodes())
	assert.Equal(t, []topology.NodeID{branch.ID, tee.ID}, plans[1].Nodes())
}

func TestPlanCoversEveryEdgeOnce(t *testing.T) {
	tests := []struct {
		name  string
		sk    *sketch.Sketch
		plans int
	}{
		{"bend", tt.L("SMS_25", 100, 100), 1},
		{"tee", tt.Tee("SMS_38", "SMS_25"), 2},
		{"two tees", twoTees(), 3},
		{"closed loop", closedLoop(), 1},
		{"diagonal", diagonal(), 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := tt.Build(t, tc.sk)
			plans := planner.New().Plan(g)
			assert.Len(t, plans, tc.plans)

			seen := map[topology.EdgeKey]int{}
			for _, cp := range plans {
				for _, k := range cp.Edges() {
					seen[k]++
				}
			}
			require.Len(t, seen, g.EdgeCount())
			for _, e := range g.Edges() {
				assert.Equal(t, 1, seen[e.Key()], "edge %s", e.SegmentID)
			}
		})
	}
}

func TestPlanClosedLoopReturnsToStart(t *testing.T) {
	g := tt.Build(t, closedLoop())
	for _, n := range g.Nodes() {
		require.Equal(t, topology.NodeBend, n.Kind)
	}
	plans := planner.New().Plan(g)
	require.Len(t, plans, 1)
	nodes := plans[0].Nodes()
	require.Len(t, nodes, 5)
	assert.Equal(t, nodes[0], nodes[4])
}

func TestPlanDegenerateShortcutIsIgnored(t *testing.T) {
	g, warns, err := topology.NewBuilder().Build(loop())
	require.NoError(t, err)
	require.Len(t, warns, 1, "zero-length shortcut is reported")
	assert.Len(t, planner.New().Plan(g), 1)
}

// ---------------------------------------------------------------------------
// Encode
// ---------------------------------------------------------------------------

func TestEncodeBend(t *testing.T) {
	g := tt.Build(t, tt.L("SMS_25", 100, 100))
	bps := encodeAll(t, planner.New(), g)
	require.Len(t, bps, 1)
	bp := bps[0]

	assert.Equal(t, []string{"ENDPOINT", "|", "BEND_90", "|", "ENDPOINT"}, keys(bp))
	assert.Equal(t, "BEND_90_SMS_25", bp.Items[2].Name)
	assert.Equal(t, bp.Path[0], bp.Items[2].Prev)
	assert.Equal(t, bp.Path[2], bp.Items[2].Next)
	assert.Equal(t, []int{1, 3}, bp.Straights())
	assert.Equal(t, []int{0, 2, 4}, bp.Components())

	require.NotNil(t, bp.Items[1].Drawn)
	assert.Equal(t, 100.0, *bp.Items[1].Drawn)
}

func TestEncodeEndFitting(t *testing.T) {
	g := tt.Build(t, tt.L("SMS_25", 100, 100))
	bps := encodeAll(t, planner.New(planner.WithEndFitting(catalog.KeyClamp)), g)
	bp := bps[0]
	assert.Equal(t, []string{"SMS_CLAMP", "|", "BEND_90", "|", "SMS_CLAMP"}, keys(bp))
	assert.Equal(t, "SMS_CLAMP_SMS_25", bp.Items[0].Name)
}

func TestEncodeBendKeys(t *testing.T) {
	t.Run("inline", func(t *testing.T) {
		g := tt.Build(t, tt.NewPen("SMS_25").Draw(tt.PlusX, 100).Draw(tt.PlusX, 50).Sketch())
		assert.Equal(t, []string{"ENDPOINT", "|", "INLINE", "|", "ENDPOINT"}, keys(encodeAll(t, planner.New(), g)[0]))
	})
	t.Run("45", func(t *testing.T) {
		g := tt.Build(t, diagonal())
		assert.Equal(t, []string{"ENDPOINT", "|", "BEND_45", "|", "ENDPOINT"}, keys(encodeAll(t, planner.New(), g)[0]))
	})
	t.Run("custom", func(t *testing.T) {
		p := tt.NewPen("SMS_25").Draw(tt.PlusX, 100)
		a := p.At()
		p.Construction(tt.PlusX, 300).Construction(tt.PlusY, 400)
		g := tt.Build(t, p.Shortcut(a, p.At()).Sketch())
		assert.Equal(t, []string{"ENDPOINT", "|", "BEND_CUSTOM", "|", "ENDPOINT"}, keys(encodeAll(t, planner.New(), g)[0]))
	})
}

func TestEncodeReducerAfterBend(t *testing.T) {
	sk := tt.NewPen("SMS_38").Draw(tt.PlusX, 100).Spec("SMS_25").Draw(tt.PlusY, 100).Sketch()
	g := tt.Build(t, sk)
	bp := encodeAll(t, planner.New(), g)[0]

	assert.Equal(t, []string{"ENDPOINT", "|", "BEND_90", "REDUCER", "|", "ENDPOINT"}, keys(bp))
	bend, red := bp.Items[2], bp.Items[3]
	assert.Equal(t, "SMS_38", bend.Spec)
	assert.Equal(t, "REDUCER_SMS_38_SMS_25", red.Name)
	assert.Equal(t, "SMS_38", red.Spec)
	assert.Equal(t, "SMS_25", red.ToSpec)
	assert.Equal(t, bend.Next, red.Next)
	assert.Equal(t, "SMS_25", bp.Items[4].Spec)
}

func TestEncodeReducedTeeHasNoReducer(t *testing.T) {
	g := tt.Build(t, tt.Tee("SMS_38", "SMS_25"))
	bps := encodeAll(t, planner.New(), g)
	require.Len(t, bps, 2)

	assert.Equal(t, []string{"ENDPOINT", "|", "TEE", "|", "ENDPOINT"}, keys(bps[0]))
	assert.Equal(t, []string{"ENDPOINT", "|", "TEE"}, keys(bps[1]))
	assert.Equal(t, "TEE_SMS_38", bps[1].Items[2].Name)
	assert.Equal(t, "SMS_25", bps[1].Items[0].Spec)
}

func TestEncodeTeeRunReducer(t *testing.T) {
	sk := tt.NewPen("SMS_38").Draw(tt.PlusX, 100).Spec("SMS_25").Draw(tt.PlusX, 100).Sketch()
	mid := sk.Segments[0].End
	p := tt.NewPen("SMS_25").MoveTo(mid).Draw(tt.PlusZ, 100)
	sk.Segments = append(sk.Segments, p.Sketch().Segments[0])
	sk.Segments[2].ID = "branch"

	g := tt.Build(t, sk)
	bp := encodeAll(t, planner.New(), g)[0]
	assert.Equal(t, []string{"ENDPOINT", "|", "TEE", "REDUCER", "|", "ENDPOINT"}, keys(bp))
}

func TestEncodeTeeFedFromSmallerRun(t *testing.T) {
	g := tt.Build(t, tt.FedTee("SMS_25", "SMS_38"))
	tee := tt.NodeAt(t, g, 200, 0, 0)
	require.Equal(t, "SMS_38", tee.Spec)

	bps := encodeAll(t, planner.New(), g)
	require.Len(t, bps, 2)
	bp := bps[0]
	assert.Equal(t, []string{"ENDPOINT", "|", "INLINE", "|", "REDUCER", "TEE", "|", "ENDPOINT"}, keys(bp))

	red, teeItem := bp.Items[4], bp.Items[5]
	assert.Equal(t, "SMS_25", bp.Items[3].Spec, "straight into the reducer")
	assert.Equal(t, "REDUCER_SMS_25_SMS_38", red.Name)
	assert.True(t, red.Upstream)
	assert.Equal(t, tee.ID, red.NodeID)
	assert.Equal(t, tee.ID, red.Next)
	assert.Equal(t, "SMS_25", red.Spec)
	assert.Equal(t, "SMS_38", red.ToSpec)
	assert.Equal(t, "TEE_SMS_38", teeItem.Name)
	assert.Equal(t, "SMS_38", bp.Items[6].Spec, "straight out of the tee")

	// The branch passes the tee through its branch port only.
	assert.NotContains(t, keys(bps[1]), "REDUCER")
}

func TestEncodeRejectsForeignPlan(t *testing.T) {
	g := tt.Build(t, tt.L("SMS_25", 100, 100))
	cp := planner.ConceptualPlan{Items: []planner.Item{
		{Kind: planner.ItemNode, Node: "node_0001"},
		{Kind: planner.ItemEdge},
		{Kind: planner.ItemNode, Node: "node_0003"},
	}}
	_, err := planner.New().Encode(g, cp, 0)
	assert.Error(t, err)
}
