// Package node ties discovery and the tick protocol into one runnable node.
//
// Lifecycle: New() → Run(ctx). Run switches the radio on, runs discovery
// once, then ticks until ctx is cancelled. The role chosen by discovery
// never changes afterwards.
package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/e7canasta/tilesync/hal"
	"github.com/e7canasta/tilesync/internal/canvas"
	"github.com/e7canasta/tilesync/internal/codec"
	"github.com/e7canasta/tilesync/internal/distribution"
	"github.com/e7canasta/tilesync/internal/topology"
)

// ErrAlreadyStarted is returned by a second call to Run.
var ErrAlreadyStarted = errors.New("node: already started")

// Defaults applied by New for zero-valued Config fields.
const (
	DefaultTileWidth    = 5
	DefaultTileHeight   = 5
	DefaultRadioGroup   = 1
	DefaultSpriteX      = 2
	DefaultSpriteY      = 1
	DefaultPollInterval = 10 * time.Millisecond
	DefaultRenderLead   = 20 * time.Millisecond
	DefaultTickInterval = 100 * time.Millisecond
	DefaultIdentityHold = time.Second
)

// Config holds the per-node protocol parameters. Every node of a cluster
// must agree on tile size, codec and radio group.
type Config struct {
	// ID names the node in logs and snapshots. Not used on the wire.
	ID string

	TileWidth  int
	TileHeight int

	// Codec encodes tiles; nil means codec.Text.
	Codec codec.Codec

	// RadioGroup is passed to Radio.Configure before Enable.
	RadioGroup uint8

	// Sprite is the coordinator's animation. A nil Bitmap selects
	// canvas.DefaultSprite at (DefaultSpriteX, DefaultSpriteY).
	Sprite canvas.Sprite

	PollInterval time.Duration
	RenderLead   time.Duration
	TickInterval time.Duration
	IdentityHold time.Duration
}

// Hardware is what the node drives.
type Hardware struct {
	Pins    topology.Pins
	Button  hal.Button
	Radio   hal.Radio
	Display hal.Display
	Sleeper hal.Sleeper
}

// Identity is what discovery established about the node.
type Identity struct {
	ID   string
	Role topology.Role

	// Index is the screen index; valid once Role is not Undecided.
	Index int

	// Nodes is the cluster size, known only to the coordinator.
	Nodes int
}

// Node is one member of a tilesync cluster.
type Node struct {
	cfg Config
	hw  Hardware

	started atomic.Bool

	mu       sync.RWMutex
	identity Identity
	ticker   interface{ Stats() distribution.Stats }
}

// New fills defaults, validates cfg and hw, and returns an unstarted node.
func New(cfg Config, hw Hardware) (*Node, error) {
	if cfg.TileWidth == 0 {
		cfg.TileWidth = DefaultTileWidth
	}
	if cfg.TileHeight == 0 {
		cfg.TileHeight = DefaultTileHeight
	}
	if cfg.TileWidth < 0 || cfg.TileHeight < 0 {
		return nil, fmt.Errorf("node: invalid tile %dx%d", cfg.TileWidth, cfg.TileHeight)
	}
	if cfg.Codec == nil {
		cfg.Codec = codec.Text{}
	}
	if cfg.RadioGroup == 0 {
		cfg.RadioGroup = DefaultRadioGroup
	}
	if cfg.Sprite.Bitmap == nil {
		cfg.Sprite = canvas.Sprite{Bitmap: canvas.DefaultSprite, X: DefaultSpriteX, Y: DefaultSpriteY}
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.RenderLead == 0 {
		cfg.RenderLead = DefaultRenderLead
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.IdentityHold == 0 {
		cfg.IdentityHold = DefaultIdentityHold
	}
	if hw.Sleeper == nil {
		hw.Sleeper = hal.RealSleeper
	}

	// Fail fast on hardware and sprite problems rather than after discovery.
	if _, err := topology.New(discoveryConfig(cfg, hw)); err != nil {
		return nil, fmt.Errorf("node: %w", err)
	}
	if _, err := canvas.NewProducer(cfg.Sprite); err != nil {
		return nil, fmt.Errorf("node: %w", err)
	}

	return &Node{
		cfg:      cfg,
		hw:       hw,
		identity: Identity{ID: cfg.ID},
	}, nil
}

func discoveryConfig(cfg Config, hw Hardware) topology.Config {
	return topology.Config{
		Pins:         hw.Pins,
		Button:       hw.Button,
		Radio:        hw.Radio,
		Display:      hw.Display,
		Sleeper:      hw.Sleeper,
		PollInterval: cfg.PollInterval,
		IdentityHold: cfg.IdentityHold,
	}
}

// Run brings the radio up, runs discovery, then ticks forever.
//
// Returns only on ctx cancellation (wrapped ctx.Err()), or on a startup
// error from the radio.
func (n *Node) Run(ctx context.Context) error {
	if n.started.Swap(true) {
		return ErrAlreadyStarted
	}

	if err := n.hw.Radio.Configure(n.cfg.RadioGroup); err != nil {
		return fmt.Errorf("node: configure radio: %w", err)
	}
	if err := n.hw.Radio.Enable(); err != nil {
		return fmt.Errorf("node: enable radio: %w", err)
	}

	d, err := topology.New(discoveryConfig(n.cfg, n.hw))
	if err != nil {
		return fmt.Errorf("node: %w", err)
	}
	res, err := d.Run(ctx)
	if err != nil {
		return fmt.Errorf("node %s: %w", n.cfg.ID, err)
	}

	slog.Info("node: discovery complete",
		"node", n.cfg.ID,
		"role", res.Role,
		"screen", res.Index,
		"nodes", res.Nodes,
		"codec", n.cfg.Codec.Name(),
	)

	if res.Role == topology.Coordinator {
		return n.runCoordinator(ctx, res)
	}
	return n.runParticipant(ctx, res)
}

func (n *Node) runCoordinator(ctx context.Context, res topology.Result) error {
	producer, err := canvas.NewProducer(n.cfg.Sprite)
	if err != nil {
		return fmt.Errorf("node: %w", err)
	}
	b, err := distribution.NewBroadcaster(distribution.BroadcasterConfig{
		Radio:      n.hw.Radio,
		Display:    n.hw.Display,
		Sleeper:    n.hw.Sleeper,
		Codec:      n.cfg.Codec,
		Producer:   producer,
		Nodes:      res.Nodes,
		TileWidth:  n.cfg.TileWidth,
		TileHeight: n.cfg.TileHeight,
		RenderLead: n.cfg.RenderLead,
	})
	if err != nil {
		return fmt.Errorf("node: %w", err)
	}
	n.settle(res, b)

	for {
		if err := b.Tick(ctx); err != nil {
			return fmt.Errorf("node %s: %w", n.cfg.ID, err)
		}
		n.hw.Sleeper.Sleep(n.cfg.TickInterval)
	}
}

func (n *Node) runParticipant(ctx context.Context, res topology.Result) error {
	r, err := distribution.NewReceiver(distribution.ReceiverConfig{
		Radio:        n.hw.Radio,
		Display:      n.hw.Display,
		Sleeper:      n.hw.Sleeper,
		Codec:        n.cfg.Codec,
		Index:        res.Index,
		TileWidth:    n.cfg.TileWidth,
		TileHeight:   n.cfg.TileHeight,
		PollInterval: n.cfg.PollInterval,
	})
	if err != nil {
		return fmt.Errorf("node: %w", err)
	}
	n.settle(res, r)

	for {
		if err := r.Tick(ctx); err != nil {
			return fmt.Errorf("node %s: %w", n.cfg.ID, err)
		}
	}
}

func (n *Node) settle(res topology.Result, ticker interface{ Stats() distribution.Stats }) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.identity.Role = res.Role
	n.identity.Index = res.Index
	n.identity.Nodes = res.Nodes
	n.ticker = ticker
}

// Identity returns the node's discovered identity. Role is Undecided until
// discovery completes.
func (n *Node) Identity() Identity {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.identity
}

// Stats returns the tick counters. Zero until discovery completes.
func (n *Node) Stats() distribution.Stats {
	n.mu.RLock()
	t := n.ticker
	n.mu.RUnlock()
	if t == nil {
		return distribution.Stats{IsIdle: true}
	}
	return t.Stats()
}
