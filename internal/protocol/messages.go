// Package protocol holds the textual control messages exchanged over the radio.
//
// Tile data has its own codec (internal/codec). Control messages are literal
// ASCII so any board or tool on the group can read them.
package protocol

import (
	"bytes"
	"strconv"
)

const (
	// RequestMsg is broadcast by a freshly woken participant asking for a screen index.
	RequestMsg = "REQUEST"

	// AssignPrefix precedes the decimal screen index handed out by the coordinator.
	AssignPrefix = "ASSIGN"

	// RenderMsg tells every participant to draw the tile it holds.
	RenderMsg = "RENDER"
)

// Request returns the discovery request message.
func Request() []byte { return []byte(RequestMsg) }

// Render returns the render trigger message.
func Render() []byte { return []byte(RenderMsg) }

// Assign builds the assignment message for screen index n.
func Assign(n int) []byte {
	return strconv.AppendInt([]byte(AssignPrefix), int64(n), 10)
}

// IsRequest reports whether msg is exactly a discovery request.
func IsRequest(msg []byte) bool { return string(msg) == RequestMsg }

// IsRender reports whether msg is exactly a render trigger.
func IsRender(msg []byte) bool { return string(msg) == RenderMsg }

// ParseAssign extracts the screen index from an assignment message.
//
// Only AssignPrefix followed by one or more decimal digits is accepted;
// anything else (other traffic, a truncated message) reports ok=false.
func ParseAssign(msg []byte) (n int, ok bool) {
	if !bytes.HasPrefix(msg, []byte(AssignPrefix)) {
		return 0, false
	}
	digits := msg[len(AssignPrefix):]
	if len(digits) == 0 {
		return 0, false
	}
	for _, b := range digits {
		if b < '0' || b > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(string(digits))
	if err != nil {
		return 0, false
	}
	return n, true
}
