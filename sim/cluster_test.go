package sim

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/e7canasta/tilesync/internal/codec"
	"github.com/e7canasta/tilesync/internal/node"
	"github.com/e7canasta/tilesync/internal/topology"
)

func fastNode() node.Config {
	return node.Config{
		PollInterval: time.Millisecond,
		RenderLead:   time.Millisecond,
		TickInterval: 5 * time.Millisecond,
		IdentityHold: 5 * time.Millisecond,
	}
}

// runCluster starts c and waits until every member has rendered at least
// once, or fails the test after a generous deadline.
func runCluster(t *testing.T, c *Cluster) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	stop = func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("cluster Run returned %v", err)
		}
		c.Close()
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		ready := true
		for _, m := range c.Members() {
			if m.Node.Stats().Renders == 0 {
				ready = false
				break
			}
		}
		if ready {
			return stop
		}
		time.Sleep(5 * time.Millisecond)
	}
	stop()
	t.Fatalf("cluster did not render on every node: %+v", c.Snapshots())
	return nil
}

// TestDiscoveryNumbersChainInOrder checks one run hands out exactly
// {0..N-1}, in physical chain order, with only the coordinator knowing N.
func TestDiscoveryNumbersChainInOrder(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("%d_nodes", n), func(t *testing.T) {
			c, err := NewCluster(ClusterConfig{Nodes: n, Node: fastNode()})
			if err != nil {
				t.Fatalf("NewCluster failed: %v", err)
			}
			stop := runCluster(t, c)
			defer stop()

			for i, m := range c.Members() {
				id := m.Node.Identity()
				if id.Index != i {
					t.Errorf("%s: screen %d, want %d", m.ID, id.Index, i)
				}
				wantRole := topology.Participant
				if i == 0 {
					wantRole = topology.Coordinator
				}
				if id.Role != wantRole {
					t.Errorf("%s: role %v, want %v", m.ID, id.Role, wantRole)
				}
			}
			if got := c.Members()[0].Node.Identity().Nodes; got != n {
				t.Errorf("coordinator counted %d nodes, want %d", got, n)
			}
		})
	}
}

// TestSpriteCrossesScreens lets the sprite travel long enough to reach the
// last screen and checks something lit up there over the run.
func TestSpriteCrossesScreens(t *testing.T) {
	for _, name := range []string{codec.TextName, codec.MsgpackName} {
		t.Run(name, func(t *testing.T) {
			cfg := fastNode()
			cfg.Codec, _ = codec.ByName(name)
			c, err := NewCluster(ClusterConfig{Nodes: 3, Node: cfg})
			if err != nil {
				t.Fatalf("NewCluster failed: %v", err)
			}
			stop := runCluster(t, c)
			defer stop()

			last := c.Members()[2].Display
			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				if lit(last.Snapshot()) {
					s := c.Members()[2].Node.Stats()
					if s.TilesApplied == 0 {
						t.Errorf("screen 2 lit without applying a tile: %+v", s)
					}
					return
				}
				time.Sleep(2 * time.Millisecond)
			}
			t.Fatalf("sprite never reached screen 2: %+v", c.Snapshots())
		})
	}
}

func lit(f Frame) bool {
	for _, row := range f.Rows {
		for _, ch := range row {
			if ch != '0' {
				return true
			}
		}
	}
	return false
}

func TestChainWiring(t *testing.T) {
	pins := Chain(3)
	pins[0].Notify.Write(true)
	if !pins[1].Start.Read() {
		t.Error("node 0 Notify does not drive node 1 Start")
	}
	pins[2].Notify.Write(true)
	if !pins[0].Start.Read() {
		t.Error("chain does not loop back to node 0")
	}
	if pins[2].Start.Read() {
		t.Error("node 2 Start high without node 1 Notify")
	}

	single := Chain(1)
	single[0].Notify.Write(true)
	if !single[0].Start.Read() {
		t.Error("single node chain must loop onto itself")
	}
	if Chain(0) != nil {
		t.Error("Chain(0) should be nil")
	}
}

func TestFramebuffer(t *testing.T) {
	fb := NewFramebuffer(3, 2)
	fb.ShowText("7")
	fb.SetPixel(1, 1, 9)
	fb.SetPixel(5, 5, 9) // off matrix

	snap := fb.Snapshot()
	if snap.Rows[0] != "000" || snap.Rows[1] != "090" {
		t.Errorf("rows = %v", snap.Rows)
	}
	if snap.Text != "" {
		t.Errorf("pixel write should replace text, got %q", snap.Text)
	}
	if fb.Pixel(1, 1) != 9 || fb.Pixel(-1, 0) != 0 {
		t.Error("Pixel readback wrong")
	}

	fb.ShowText("3")
	fb.Clear()
	if snap := fb.Snapshot(); snap.Text != "" || snap.Rows[1] != "000" {
		t.Errorf("Clear left %+v", snap)
	}
}

func TestNewClusterRejectsEmpty(t *testing.T) {
	if _, err := NewCluster(ClusterConfig{}); err == nil {
		t.Fatal("NewCluster with zero nodes should fail")
	}
}
