package tilesync

import (
	"github.com/e7canasta/tilesync/internal/canvas"
	"github.com/e7canasta/tilesync/internal/codec"
	"github.com/e7canasta/tilesync/internal/distribution"
	"github.com/e7canasta/tilesync/internal/node"
	"github.com/e7canasta/tilesync/internal/topology"
)

// Config is re-exported from internal/node. See node.Config.
type Config = node.Config

// Hardware is re-exported from internal/node. See node.Hardware.
type Hardware = node.Hardware

// Pins are the two chain lines of a node.
type Pins = topology.Pins

// Node is a runnable cluster member.
type Node = node.Node

// Identity is what discovery established about a node.
type Identity = node.Identity

// Stats is a snapshot of a node's tick counters.
type Stats = distribution.Stats

// Role is the part a node plays after discovery.
type Role = topology.Role

// Roles.
const (
	Undecided   = topology.Undecided
	Coordinator = topology.Coordinator
	Participant = topology.Participant
)

// Sprite is the coordinator's animated bitmap.
type Sprite = canvas.Sprite

// Codec encodes tiles for the radio.
type Codec = codec.Codec

// ErrAlreadyStarted is returned by a second Run on the same node.
var ErrAlreadyStarted = node.ErrAlreadyStarted

// New creates an unstarted node.
//
// Lifecycle:
//  1. n, err := tilesync.New(cfg, hw)
//  2. go n.Run(ctx)  // discovery, then ticks until ctx ends
//  3. n.Identity() / n.Stats() from any goroutine
func New(cfg Config, hw Hardware) (*Node, error) {
	return node.New(cfg, hw)
}

// CodecByName resolves "text" or "msgpack".
func CodecByName(name string) (Codec, error) {
	return codec.ByName(name)
}
