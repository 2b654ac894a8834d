// Package distribution runs the per-tick frame protocol once discovery is done.
//
// Every tick the coordinator computes the whole canvas, sends each
// participant its tile, waits a short render lead and broadcasts RENDER so
// all screens switch together. Participants wait for their tile, then for
// RENDER, then draw.
//
// Nothing here fails on protocol trouble: lost, misdirected or garbled
// messages are counted in Stats and the wait carries on. Only ctx
// cancellation makes Tick return an error.
package distribution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/e7canasta/tilesync/hal"
	"github.com/e7canasta/tilesync/internal/canvas"
	"github.com/e7canasta/tilesync/internal/codec"
	"github.com/e7canasta/tilesync/internal/protocol"
)

// BroadcasterConfig wires the coordinator side of a tick.
type BroadcasterConfig struct {
	Radio    hal.Radio
	Display  hal.Display
	Sleeper  hal.Sleeper
	Codec    codec.Codec
	Producer *canvas.Producer

	// Nodes is the discovered node count, coordinator included.
	Nodes int

	TileWidth  int
	TileHeight int

	// RenderLead is the pause between the last tile and RENDER.
	RenderLead time.Duration
}

// Broadcaster computes the canvas and drives the tick for every screen.
type Broadcaster struct {
	cfg     BroadcasterConfig
	canvas  *canvas.Canvas
	local   *canvas.Tile // screen 0
	scratch *canvas.Tile
	stats   counters
}

// NewBroadcaster validates cfg and allocates a canvas of Nodes × TileWidth columns.
func NewBroadcaster(cfg BroadcasterConfig) (*Broadcaster, error) {
	switch {
	case cfg.Radio == nil || cfg.Display == nil:
		return nil, fmt.Errorf("distribution: radio and display are required")
	case cfg.Producer == nil:
		return nil, fmt.Errorf("distribution: producer is required")
	case cfg.Nodes < 1:
		return nil, fmt.Errorf("distribution: node count %d < 1", cfg.Nodes)
	case cfg.RenderLead < 0:
		return nil, fmt.Errorf("distribution: negative render lead")
	}
	if cfg.Codec == nil {
		cfg.Codec = codec.Text{}
	}
	if cfg.Sleeper == nil {
		cfg.Sleeper = hal.RealSleeper
	}

	c, err := canvas.New(cfg.Nodes*cfg.TileWidth, cfg.TileHeight)
	if err != nil {
		return nil, fmt.Errorf("distribution: %w", err)
	}
	local, err := canvas.NewTile(cfg.TileWidth, cfg.TileHeight)
	if err != nil {
		return nil, fmt.Errorf("distribution: %w", err)
	}
	scratch, _ := canvas.NewTile(cfg.TileWidth, cfg.TileHeight)

	return &Broadcaster{cfg: cfg, canvas: c, local: local, scratch: scratch}, nil
}

// Tick runs one coordinator frame: compute, send tiles, RENDER, draw.
func (b *Broadcaster) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.canvas.Reset()
	b.cfg.Producer.Advance(b.canvas)

	if err := b.canvas.CopyTile(0, b.local); err != nil {
		return fmt.Errorf("distribution: %w", err)
	}

	for screen := 1; screen < b.cfg.Nodes; screen++ {
		if err := b.canvas.CopyTile(screen, b.scratch); err != nil {
			return fmt.Errorf("distribution: %w", err)
		}
		b.send(b.cfg.Codec.Encode(screen, b.scratch), "screen", screen)
	}

	b.cfg.Sleeper.Sleep(b.cfg.RenderLead)
	b.send(protocol.Render(), "message", protocol.RenderMsg)

	render(b.cfg.Display, b.local)
	b.stats.rendered(time.Now())
	b.stats.ticks.Add(1)
	return nil
}

func (b *Broadcaster) send(msg []byte, attrs ...any) {
	if err := b.cfg.Radio.Send(msg); err != nil {
		b.stats.sendErrors.Add(1)
		slog.Warn("distribution: send failed", append(attrs, "error", err)...)
		return
	}
	if !protocol.IsRender(msg) {
		b.stats.tilesSent.Add(1)
	}
}

// Canvas exposes the canvas computed by the last tick. Read-only.
func (b *Broadcaster) Canvas() *canvas.Canvas { return b.canvas }

// Tile returns the coordinator's own tile from the last tick.
func (b *Broadcaster) Tile() *canvas.Tile { return b.local }

// Stats returns a snapshot of the coordinator's counters.
func (b *Broadcaster) Stats() Stats { return b.stats.snapshot() }

// render pushes every cell of t to the display.
func render(d hal.Display, t *canvas.Tile) {
	for y := 0; y < t.Height(); y++ {
		for x := 0; x < t.Width(); x++ {
			d.SetPixel(x, y, t.At(x, y))
		}
	}
}
