// Package hal defines the hardware collaborators a tilesync node drives.
//
// The protocol core only ever talks to these interfaces. Real boards, the
// in-memory simulation (package sim) and the MQTT-backed radio all plug in
// here.
package hal

import "time"

// Line is one digital I/O line.
//
// A node owns two: the inbound start / loop-sense line from its predecessor
// and the outbound notify line to its successor.
type Line interface {
	// Read returns true when the line is high.
	Read() bool

	// Write drives the line high (true) or low (false).
	Write(high bool)
}

// Button is the local push button used to elect the coordinator.
type Button interface {
	IsPressed() bool
}

// Radio is a half-duplex broadcast transceiver that delivers whole messages
// or nothing.
//
// Contract:
//   - Receive never blocks: ok is false when nothing is queued
//   - a sender never receives its own broadcast
//   - Send may silently lose the message (lossy medium)
type Radio interface {
	// Configure selects the radio group. Only peers on the same group hear
	// each other.
	Configure(group uint8) error

	// Enable switches the transceiver on. Send and Receive are only valid
	// after Enable.
	Enable() error

	// Send broadcasts msg to every other node in the group.
	Send(msg []byte) error

	// Receive pops the oldest queued message.
	Receive() (msg []byte, ok bool)
}

// Display is the small LED matrix of one node.
type Display interface {
	// SetPixel sets the intensity (0-9) at column x, row y.
	SetPixel(x, y int, intensity uint8)

	// ShowText shows a short status value (screen index, role marker).
	ShowText(s string)

	// Clear switches every pixel off and removes any text.
	Clear()
}

// Sleeper is the injected delay strategy behind every poll loop.
type Sleeper interface {
	Sleep(d time.Duration)
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(d time.Duration)

// Sleep implements Sleeper.
func (f SleeperFunc) Sleep(d time.Duration) { f(d) }

// RealSleeper blocks the calling goroutine with time.Sleep.
var RealSleeper Sleeper = SleeperFunc(time.Sleep)
