// Package tilesync runs a cluster of small LED-matrix nodes as one wide
// display.
//
// # Philosophy
//
// "One node computes, everyone renders together."
//
// The nodes are daisy-chained by two digital lines and share a lossy
// broadcast radio. At boot the operator presses a button on one node, which
// becomes the coordinator (screen 0). The chain then numbers every other
// node in physical order. After that the coordinator animates a sprite
// across a canvas of Nodes × TileWidth columns and, every tick, radios each
// participant its slice followed by a RENDER broadcast so all screens flip
// at the same moment.
//
// # Architecture
//
//	coordinator ─Notify→ P1 ─Notify→ P2 ─ … ─ Pn ─Notify→ coordinator.Start
//	     │                 ▲          ▲               ▲
//	     └──── radio: ASSIGN<n>, "<n><cells>", RENDER ┘
//
// Discovery (internal/topology) runs once. The tick protocol
// (internal/distribution) runs forever. Both talk to hardware only through
// the interfaces in package hal, so the same node runs against real pins,
// the in-memory sim, or an MQTT-backed radio.
//
// # Basic Usage
//
//	n, err := tilesync.New(tilesync.Config{ID: "node-a"}, tilesync.Hardware{
//	    Pins:    tilesync.Pins{Start: startLine, Notify: notifyLine},
//	    Button:  button,
//	    Radio:   radio,
//	    Display: display,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	go n.Run(ctx) // blocks until ctx is cancelled
//
//	...
//	id := n.Identity() // role, screen index, node count
//
// # Failure model
//
// Lost, misdirected or garbled radio messages are never errors. They show up
// in Stats and the node keeps waiting. There are no timeouts: use ctx to
// bound a run.
package tilesync
