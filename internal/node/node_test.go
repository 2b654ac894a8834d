package node_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/e7canasta/tilesync/internal/canvas"
	"github.com/e7canasta/tilesync/internal/node"
	"github.com/e7canasta/tilesync/internal/topology"
	"github.com/e7canasta/tilesync/radio/ether"
	"github.com/e7canasta/tilesync/sim"
)

func hardware(t *testing.T, e *ether.Ether, id string, pins topology.Pins) (node.Hardware, *sim.Button, *sim.Framebuffer) {
	t.Helper()
	port, err := e.Join(id)
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	button := &sim.Button{}
	fb := sim.NewFramebuffer(5, 5)
	return node.Hardware{
		Pins:    pins,
		Button:  button,
		Radio:   port,
		Display: fb,
		Sleeper: sim.InstantSleeper,
	}, button, fb
}

// TestLoneCoordinator: one node, its Notify looped onto its own Start. It
// must become coordinator of a one-screen cluster and start rendering.
func TestLoneCoordinator(t *testing.T) {
	e := ether.New()
	defer e.Close()

	hw, button, fb := hardware(t, e, "solo", sim.Chain(1)[0])
	button.Press()

	n, err := node.New(node.Config{ID: "solo"}, hw)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if id := n.Identity(); id.Role != topology.Undecided {
		t.Errorf("role before Run = %v, want undecided", id.Role)
	}
	if !n.Stats().IsIdle {
		t.Error("node that never ran should report idle")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for n.Stats().Renders < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}

	id := n.Identity()
	if id.Role != topology.Coordinator || id.Index != 0 || id.Nodes != 1 {
		t.Errorf("identity = %+v, want coordinator 0 of 1", id)
	}
	if n.Stats().Renders < 3 {
		t.Errorf("only %d renders before deadline", n.Stats().Renders)
	}
	t.Logf("frame after run: %v", fb.Snapshot().Rows)
}

func TestRunTwice(t *testing.T) {
	e := ether.New()
	defer e.Close()

	hw, _, _ := hardware(t, e, "a", sim.Chain(1)[0])
	n, _ := node.New(node.Config{}, hw)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = n.Run(ctx)
	if err := n.Run(ctx); !errors.Is(err, node.ErrAlreadyStarted) {
		t.Fatalf("second Run: err = %v, want ErrAlreadyStarted", err)
	}
}

func TestNewValidates(t *testing.T) {
	e := ether.New()
	defer e.Close()

	if _, err := node.New(node.Config{}, node.Hardware{}); err == nil {
		t.Error("New accepted missing hardware")
	}

	hw, _, _ := hardware(t, e, "a", sim.Chain(1)[0])
	bad := canvas.Sprite{Bitmap: [][]uint8{{1, 2}, {3}}}
	if _, err := node.New(node.Config{Sprite: bad}, hw); err == nil {
		t.Error("New accepted ragged sprite")
	}
	if _, err := node.New(node.Config{TileWidth: -1}, hw); err == nil {
		t.Error("New accepted negative tile width")
	}
}

// TestRadioStartupFailure: a radio that cannot be configured is the one
// hardware error Run reports.
func TestRadioStartupFailure(t *testing.T) {
	e := ether.New()
	hw, _, _ := hardware(t, e, "a", sim.Chain(1)[0])
	e.Close() // closes the port too

	n, _ := node.New(node.Config{}, hw)
	if err := n.Run(context.Background()); !errors.Is(err, ether.ErrPortClosed) {
		t.Fatalf("Run: err = %v, want ErrPortClosed", err)
	}
}
