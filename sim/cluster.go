package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/e7canasta/tilesync/hal"
	"github.com/e7canasta/tilesync/internal/distribution"
	"github.com/e7canasta/tilesync/internal/node"
	"github.com/e7canasta/tilesync/internal/topology"
	"github.com/e7canasta/tilesync/radio/ether"
)

// RadioFactory returns the radio for member i. The default joins the
// cluster's in-memory ether.
type RadioFactory func(i int, id string) (hal.Radio, error)

// ClusterConfig describes a simulated deployment.
type ClusterConfig struct {
	// Nodes is the number of members, coordinator included.
	Nodes int

	// Node is the template every member is built from. ID is overwritten
	// per member with "node-<i>".
	Node node.Config

	// Sleeper is shared by every member; nil means hal.RealSleeper.
	Sleeper hal.Sleeper

	// Radio overrides the transport. Nil uses the ether below.
	Radio RadioFactory

	// Ether options for the default transport.
	Ether []ether.Option
}

// Member is one simulated node and its devices.
type Member struct {
	ID      string
	Node    *node.Node
	Pins    topology.Pins
	Button  *Button
	Display *Framebuffer
	Radio   hal.Radio
}

// Snapshot is what the viewer shows for one member.
type Snapshot struct {
	ID     string             `json:"id"`
	Role   string             `json:"role"`
	Screen int                `json:"screen"`
	Nodes  int                `json:"nodes,omitempty"`
	Frame  Frame              `json:"frame"`
	Stats  distribution.Stats `json:"stats"`
}

// Cluster is N members on one chain and one radio medium. Member 0's
// button is pressed so it becomes the coordinator.
type Cluster struct {
	members []*Member
	ether   *ether.Ether
}

// NewCluster builds every member; nothing runs until Run.
func NewCluster(cfg ClusterConfig) (*Cluster, error) {
	if cfg.Nodes < 1 {
		return nil, fmt.Errorf("sim: cluster needs at least one node, got %d", cfg.Nodes)
	}
	if cfg.Sleeper == nil {
		cfg.Sleeper = hal.RealSleeper
	}

	c := &Cluster{}
	factory := cfg.Radio
	if factory == nil {
		c.ether = ether.New(cfg.Ether...)
		factory = func(_ int, id string) (hal.Radio, error) { return c.ether.Join(id) }
	}

	width, height := cfg.Node.TileWidth, cfg.Node.TileHeight
	if width == 0 {
		width = node.DefaultTileWidth
	}
	if height == 0 {
		height = node.DefaultTileHeight
	}

	chain := Chain(cfg.Nodes)
	for i := 0; i < cfg.Nodes; i++ {
		id := fmt.Sprintf("node-%d", i)
		radio, err := factory(i, id)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("sim: radio for %s: %w", id, err)
		}

		m := &Member{
			ID:      id,
			Pins:    chain[i],
			Button:  &Button{},
			Display: NewFramebuffer(width, height),
			Radio:   radio,
		}
		ncfg := cfg.Node
		ncfg.ID = id
		m.Node, err = node.New(ncfg, node.Hardware{
			Pins:    chain[i],
			Button:  m.Button,
			Radio:   radio,
			Display: m.Display,
			Sleeper: cfg.Sleeper,
		})
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("sim: %w", err)
		}
		c.members = append(c.members, m)
	}

	c.members[0].Button.Press()
	return c, nil
}

// Run runs every member in its own goroutine until ctx ends or one member
// fails. Cancellation is not reported as an error.
func (c *Cluster) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, m := range c.members {
		m := m
		g.Go(func() error {
			err := m.Node.Run(ctx)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		})
	}
	slog.Info("sim: cluster running", "nodes", len(c.members))
	return g.Wait()
}

// Members returns the members in chain order.
func (c *Cluster) Members() []*Member { return c.members }

// Snapshots returns the current state of every member in chain order.
func (c *Cluster) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(c.members))
	for _, m := range c.members {
		id := m.Node.Identity()
		out = append(out, Snapshot{
			ID:     m.ID,
			Role:   id.Role.String(),
			Screen: id.Index,
			Nodes:  id.Nodes,
			Frame:  m.Display.Snapshot(),
			Stats:  m.Node.Stats(),
		})
	}
	return out
}

// EtherStats returns per-port radio counters, nil with a custom transport.
func (c *Cluster) EtherStats() map[string]ether.PortStats {
	if c.ether == nil {
		return nil
	}
	return c.ether.Stats()
}

// Close releases every radio and the medium. Call after Run returns.
func (c *Cluster) Close() {
	for _, m := range c.members {
		switch r := m.Radio.(type) {
		case interface{ Close() }:
			r.Close()
		case interface{ Close() error }:
			_ = r.Close()
		}
	}
	if c.ether != nil {
		c.ether.Close()
	}
}
