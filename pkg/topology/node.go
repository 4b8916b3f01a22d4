package topology

import (
	"fmt"

	"github.com/chazu/spool/pkg/geom"
)

// NodeID identifies a node within one build.
type NodeID string

// ZeroID is the empty node ID.
const ZeroID NodeID = ""

// IsZero reports whether the ID is unset.
func (id NodeID) IsZero() bool { return id == ZeroID }

// NodeKind enumerates the classification of a graph node.
type NodeKind int

const (
	NodeEndpoint NodeKind = iota // degree 1: open pipe end
	NodeBend                     // degree 2: change of direction
	NodeTee                      // degree 3: branch point
)

func (k NodeKind) String() string {
	switch k {
	case NodeEndpoint:
		return "endpoint"
	case NodeBend:
		return "bend"
	case NodeTee:
		return "tee"
	default:
		return "unknown"
	}
}

// Node is a point of the 3D pipe graph.
type Node struct {
	ID              NodeID   `json:"id"`
	Pos             geom.Vec `json:"pos"`
	Kind            NodeKind `json:"kind"`
	Spec            string   `json:"spec,omitempty"`
	RequiresReducer bool     `json:"requires_reducer,omitempty"`
	Data            NodeData `json:"data"`
}

func (n *Node) String() string {
	return fmt.Sprintf("%s %s (%g, %g, %g)", n.Kind, n.ID, n.Pos.X, n.Pos.Y, n.Pos.Z)
}

// NodeData is the interface for kind-specific node payloads.
type NodeData interface {
	nodeData() // marker method restricting implementations to this package
}

// EndpointData describes a degree-1 node.
type EndpointData struct {
	Direction geom.Vec `json:"direction"` // unit vector into the single edge
	Neighbor  NodeID   `json:"neighbor"`
}

// BendData describes a degree-2 node. Angle is the deflection in degrees:
// 0 is a straight pass-through, 90 a right-angle turn.
type BendData struct {
	Angle     float64     `json:"angle"`
	Vectors   [2]geom.Vec `json:"vectors"` // unit vectors towards Neighbors
	Neighbors [2]NodeID   `json:"neighbors"`
}

// Vector returns the unit vector from the bend towards neighbour id.
func (b BendData) Vector(id NodeID) (geom.Vec, bool) {
	for i, n := range b.Neighbors {
		if n == id {
			return b.Vectors[i], true
		}
	}
	return geom.Vec{}, false
}

// TeeData describes a degree-3 node. Run holds the two most nearly opposite
// neighbours; Branch is the remaining one.
type TeeData struct {
	Run        [2]NodeID `json:"run"`
	Branch     NodeID    `json:"branch"`
	RunReducer bool      `json:"run_reducer,omitempty"` // run edges carry different specs
}

// IsRun reports whether id is one of the tee's run neighbours.
func (t TeeData) IsRun(id NodeID) bool {
	return id == t.Run[0] || id == t.Run[1]
}

func (EndpointData) nodeData() {}
func (BendData) nodeData()     {}
func (TeeData) nodeData()      {}
