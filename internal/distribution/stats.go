package distribution

import (
	"sync/atomic"
	"time"
)

// idleThreshold is how long a node may go without rendering before Stats
// reports it idle.
//
// At the default 100ms tick a healthy node renders ten times a second, so
// five seconds of silence means the coordinator is gone or the radio is
// losing every RENDER.
const idleThreshold = 5 * time.Second

// Stats is a snapshot of a node's per-tick traffic.
//
// A coordinator only moves Ticks, TilesSent, SendErrors and Renders. A
// participant moves everything except TilesSent and SendErrors.
type Stats struct {
	// Ticks counts completed ticks.
	Ticks uint64 `json:"ticks"`

	// TilesSent counts tile messages handed to the radio without error.
	TilesSent uint64 `json:"tiles_sent"`

	// SendErrors counts radio Send failures. Never fatal.
	SendErrors uint64 `json:"send_errors"`

	// TilesApplied counts tile messages decoded into the local tile.
	TilesApplied uint64 `json:"tiles_applied"`

	// Misdirected counts messages skipped while waiting for a tile because
	// they were addressed to another screen (normal broadcast traffic).
	Misdirected uint64 `json:"misdirected"`

	// Malformed counts messages addressed to this screen that failed to decode.
	Malformed uint64 `json:"malformed"`

	// Discarded counts messages dropped while waiting for RENDER.
	Discarded uint64 `json:"discarded"`

	// Renders counts frames pushed to the display.
	Renders uint64 `json:"renders"`

	// LastRenderAt is the time of the last render; zero before the first.
	LastRenderAt time.Time `json:"last_render_at"`

	// IsIdle is true when nothing was rendered for longer than idleThreshold.
	IsIdle bool `json:"is_idle"`
}

// counters backs Stats. Every field is updated atomically so Stats can be
// read from another goroutine (the viewer) while the tick loop runs.
type counters struct {
	ticks        atomic.Uint64
	tilesSent    atomic.Uint64
	sendErrors   atomic.Uint64
	tilesApplied atomic.Uint64
	misdirected  atomic.Uint64
	malformed    atomic.Uint64
	discarded    atomic.Uint64
	renders      atomic.Uint64
	lastRender   atomic.Int64 // unix nanos, 0 = never
}

func (c *counters) rendered(now time.Time) {
	c.renders.Add(1)
	c.lastRender.Store(now.UnixNano())
}

func (c *counters) snapshot() Stats {
	s := Stats{
		Ticks:        c.ticks.Load(),
		TilesSent:    c.tilesSent.Load(),
		SendErrors:   c.sendErrors.Load(),
		TilesApplied: c.tilesApplied.Load(),
		Misdirected:  c.misdirected.Load(),
		Malformed:    c.malformed.Load(),
		Discarded:    c.discarded.Load(),
		Renders:      c.renders.Load(),
	}
	if ns := c.lastRender.Load(); ns != 0 {
		s.LastRenderAt = time.Unix(0, ns)
	}
	s.IsIdle = time.Since(s.LastRenderAt) > idleThreshold
	return s
}
