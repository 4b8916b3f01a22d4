package topology

import (
	"errors"
	"fmt"
)

// ErrUnsupportedJunction is returned when a node has more than three
// incident pipes. Run and branch cannot be assigned reliably for such a
// junction, so the build stops instead of guessing.
var ErrUnsupportedJunction = errors.New("unsupported junction")

// Severity ranks a builder finding.
type Severity int

const (
	SeverityError   Severity = iota // graph is unusable
	SeverityWarning                 // input was skipped
	SeverityInfo                    // input was accepted as-is
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Warning describes a sketch defect the builder recovered from.
type Warning struct {
	SegmentID string   // which segment (empty if node-level)
	NodeID    NodeID   // which node (zero if segment-level)
	Message   string   // human-readable description
	Severity  Severity // warning or info
}

func (w Warning) Error() string {
	switch {
	case w.SegmentID != "":
		return fmt.Sprintf("[%s] segment %s: %s", w.Severity, w.SegmentID, w.Message)
	case !w.NodeID.IsZero():
		return fmt.Sprintf("[%s] node %s: %s", w.Severity, w.NodeID, w.Message)
	}
	return fmt.Sprintf("[%s] %s", w.Severity, w.Message)
}
