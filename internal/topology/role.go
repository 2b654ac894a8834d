// Package topology implements boot-time discovery: coordinator election and
// chain-ordered self-numbering of participants.
//
// Wiring: every node has an inbound Start line from its predecessor and an
// outbound Notify line to its successor. The chain loops back to the
// coordinator, whose Start line doubles as loop sense:
//
//	coordinator ─Notify→ P1 ─Notify→ P2 ─ … ─ Pn ─Notify→ coordinator.Start
//
// The operator presses the button on the node that should coordinate. The
// coordinator raises Notify, then answers each REQUEST with ASSIGN<n> until
// its Start line goes high again. Each participant waits for its Start line,
// requests an index over the radio, then raises its own Notify to wake the
// next node. Only one node is awake and requesting at any moment, so the
// indices come out contiguous and in physical chain order.
package topology

// Role is the part a node plays after discovery. Fixed once discovery returns.
type Role int

const (
	// Undecided is the zero value, held only until discovery finishes.
	Undecided Role = iota
	// Coordinator computes the canvas and drives every tick. Screen index 0.
	Coordinator
	// Participant renders the tile for its assigned screen index.
	Participant
)

// String returns a human-readable representation of the role.
func (r Role) String() string {
	switch r {
	case Coordinator:
		return "coordinator"
	case Participant:
		return "participant"
	default:
		return "undecided"
	}
}

// Result is what discovery yields for one node.
type Result struct {
	Role Role

	// Index is the node's screen index; 0 for the coordinator.
	Index int

	// Nodes is the discovered node count including the coordinator.
	// Only the coordinator learns it; participants report 0.
	Nodes int
}
