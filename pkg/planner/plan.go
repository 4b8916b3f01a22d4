package planner

import (
	"strings"

	"github.com/chazu/spool/pkg/topology"
)

// ItemKind distinguishes the two kinds of conceptual plan item.
type ItemKind int

const (
	ItemNode ItemKind = iota
	ItemEdge
)

// Item is one step of a conceptual plan: a node, or the edge between the
// nodes on either side of it.
type Item struct {
	Kind ItemKind
	Node topology.NodeID  // ItemNode only
	Edge topology.EdgeKey // ItemEdge only
}

// ConceptualPlan is one branch as an alternating node, edge, node... walk.
type ConceptualPlan struct {
	Items []Item
}

// Nodes returns the node IDs of the walk in order.
func (p ConceptualPlan) Nodes() []topology.NodeID {
	out := make([]topology.NodeID, 0, len(p.Items)/2+1)
	for _, it := range p.Items {
		if it.Kind == ItemNode {
			out = append(out, it.Node)
		}
	}
	return out
}

// Edges returns the edge keys of the walk in order.
func (p ConceptualPlan) Edges() []topology.EdgeKey {
	out := make([]topology.EdgeKey, 0, len(p.Items)/2)
	for _, it := range p.Items {
		if it.Kind == ItemEdge {
			out = append(out, it.Edge)
		}
	}
	return out
}

func (p ConceptualPlan) String() string {
	ids := p.Nodes()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, " -> ")
}

// ---------------------------------------------------------------------------
// Build plan
// ---------------------------------------------------------------------------

// Kind distinguishes fittings from straight pipe in a build plan.
type Kind int

const (
	KindComponent Kind = iota
	KindStraight
)

func (k Kind) String() string {
	if k == KindStraight {
		return "STRAIGHT"
	}
	return "COMPONENT"
}

// Component keys that are not catalog entries.
const (
	KeyEndpoint   = "ENDPOINT"    // open pipe end, no fitting
	KeyInline     = "INLINE"      // straight pass-through, no fitting
	KeyBendCustom = "BEND_CUSTOM" // non-standard angle, cut from a 90° bend
	KeyReducer    = "REDUCER"     // resolved against the catalog by diameter
)

// BuildItem is one entry of a build plan. Component fields are set for
// KindComponent, straight fields for KindStraight.
type BuildItem struct {
	Kind Kind `json:"type"`

	// Component
	Key    string          `json:"key,omitempty"`
	Name   string          `json:"name,omitempty"`
	NodeID topology.NodeID `json:"node_id,omitempty"`
	Prev   topology.NodeID `json:"prev,omitempty"` // zero at the start of a plan
	Next   topology.NodeID `json:"next,omitempty"` // zero at the end of a plan
	ToSpec string          `json:"to_spec,omitempty"`
	// Upstream marks a reducer that feeds NodeID instead of following it.
	// Next is then NodeID itself.
	Upstream bool `json:"upstream,omitempty"`

	// Shared
	Spec string `json:"spec"`

	// Straight
	Drawn        *float64         `json:"drawn,omitempty"` // sketch dimension
	Construction bool             `json:"construction,omitempty"`
	Edge         topology.EdgeKey `json:"edge,omitempty"`
}

// IsComponent reports whether the item is a fitting.
func (it BuildItem) IsComponent() bool { return it.Kind == KindComponent }

// BuildPlan is the fabrication recipe of one branch. It is never mutated
// after encoding; adjustments are kept alongside it.
type BuildPlan struct {
	Branch int               `json:"branch"`
	Path   []topology.NodeID `json:"path"`
	Items  []BuildItem       `json:"items"`
}

// Straights returns the indices of all straight items.
func (p *BuildPlan) Straights() []int {
	var out []int
	for i, it := range p.Items {
		if it.Kind == KindStraight {
			out = append(out, i)
		}
	}
	return out
}

// Components returns the indices of all component items.
func (p *BuildPlan) Components() []int {
	var out []int
	for i, it := range p.Items {
		if it.Kind == KindComponent {
			out = append(out, i)
		}
	}
	return out
}
