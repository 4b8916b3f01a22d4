package topology

import (
	"fmt"
	"math"
)

// ValidationError describes a single structural finding on a built graph.
type ValidationError struct {
	NodeID   NodeID
	Message  string
	Severity Severity
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID, e.Message)
}

// Validate runs read-only structural checks on a classified graph and
// returns every finding. An empty slice means the graph can be planned.
func Validate(g *Graph) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateEdges(g)...)
	errs = append(errs, validateKinds(g)...)
	return errs
}

func validateEdges(g *Graph) []ValidationError {
	var errs []ValidationError
	for _, e := range g.Edges() {
		if e.Construction {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("construction segment %s survived cleanup", e.SegmentID),
				Severity: SeverityError,
			})
		}
		if g.Node(e.U) == nil || g.Node(e.V) == nil {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("segment %s references a missing node", e.SegmentID),
				Severity: SeverityError,
			})
			continue
		}
		if g.Distance(e.U, e.V) < 1e-6 {
			errs = append(errs, ValidationError{
				NodeID:   e.U,
				Message:  fmt.Sprintf("segment %s has zero length", e.SegmentID),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

func validateKinds(g *Graph) []ValidationError {
	var errs []ValidationError
	for _, n := range g.Nodes() {
		deg := g.Degree(n.ID)
		var want NodeKind
		switch deg {
		case 0:
			errs = append(errs, ValidationError{NodeID: n.ID, Message: "isolated node", Severity: SeverityError})
			continue
		case 1:
			want = NodeEndpoint
		case 2:
			want = NodeBend
		case 3:
			want = NodeTee
		default:
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  fmt.Sprintf("degree %d junction", deg),
				Severity: SeverityError,
			})
			continue
		}
		if n.Kind != want || n.Data == nil {
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  fmt.Sprintf("classified as %s but has degree %d", n.Kind, deg),
				Severity: SeverityError,
			})
			continue
		}
		if bd, ok := n.Data.(BendData); ok && math.Abs(bd.Angle-180) < 1e-6 {
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  "pipe folds back on itself",
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}
