package distribution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/e7canasta/tilesync/hal"
	"github.com/e7canasta/tilesync/internal/canvas"
	"github.com/e7canasta/tilesync/internal/codec"
	"github.com/e7canasta/tilesync/internal/poll"
	"github.com/e7canasta/tilesync/internal/protocol"
)

// ReceiverConfig wires the participant side of a tick.
type ReceiverConfig struct {
	Radio   hal.Radio
	Display hal.Display
	Sleeper hal.Sleeper
	Codec   codec.Codec

	// Index is the screen index assigned during discovery (≥ 1).
	Index int

	TileWidth  int
	TileHeight int

	PollInterval time.Duration
}

// Receiver renders one participant's tile each tick.
type Receiver struct {
	cfg   ReceiverConfig
	tile  *canvas.Tile
	stats counters
}

// NewReceiver validates cfg and allocates the local tile.
func NewReceiver(cfg ReceiverConfig) (*Receiver, error) {
	switch {
	case cfg.Radio == nil || cfg.Display == nil:
		return nil, fmt.Errorf("distribution: radio and display are required")
	case cfg.Index < 1:
		return nil, fmt.Errorf("distribution: participant screen index %d < 1", cfg.Index)
	case cfg.PollInterval < 0:
		return nil, fmt.Errorf("distribution: negative poll interval")
	}
	if cfg.Codec == nil {
		cfg.Codec = codec.Text{}
	}
	if cfg.Sleeper == nil {
		cfg.Sleeper = hal.RealSleeper
	}

	tile, err := canvas.NewTile(cfg.TileWidth, cfg.TileHeight)
	if err != nil {
		return nil, fmt.Errorf("distribution: %w", err)
	}
	return &Receiver{cfg: cfg, tile: tile}, nil
}

// Tick waits for this screen's tile, then for RENDER, then draws the tile.
//
// Both waits are unbounded; a lost RENDER stalls the node until the next
// one arrives.
func (r *Receiver) Tick(ctx context.Context) error {
	if _, err := poll.Receive(ctx, r.cfg.Sleeper, r.cfg.PollInterval, r.cfg.Radio, r.acceptTile); err != nil {
		return fmt.Errorf("distribution: waiting for tile: %w", err)
	}

	_, err := poll.Receive(ctx, r.cfg.Sleeper, r.cfg.PollInterval, r.cfg.Radio, func(msg []byte) bool {
		if protocol.IsRender(msg) {
			return true
		}
		r.stats.discarded.Add(1)
		return false
	})
	if err != nil {
		return fmt.Errorf("distribution: waiting for render: %w", err)
	}

	render(r.cfg.Display, r.tile)
	r.stats.rendered(time.Now())
	r.stats.ticks.Add(1)
	return nil
}

func (r *Receiver) acceptTile(msg []byte) bool {
	err := r.cfg.Codec.Decode(msg, r.cfg.Index, r.tile)
	switch {
	case err == nil:
		r.stats.tilesApplied.Add(1)
		return true
	case errors.Is(err, codec.ErrMisdirected):
		r.stats.misdirected.Add(1)
	default:
		r.stats.malformed.Add(1)
		slog.Debug("distribution: dropped malformed tile",
			"screen", r.cfg.Index,
			"bytes", len(msg),
			"error", err,
		)
	}
	return false
}

// Tile returns the tile drawn by the last tick.
func (r *Receiver) Tile() *canvas.Tile { return r.tile }

// Stats returns a snapshot of the participant's counters.
func (r *Receiver) Stats() Stats { return r.stats.snapshot() }
