package topology

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/e7canasta/tilesync/hal"
	"github.com/e7canasta/tilesync/internal/poll"
	"github.com/e7canasta/tilesync/internal/protocol"
)

// WaitingIndicator is shown while a node waits to learn its role.
const WaitingIndicator = "?"

// Pins are the two chain lines of one node.
type Pins struct {
	// Start is the inbound line from the predecessor. On the coordinator it
	// senses the chain looping back.
	Start hal.Line

	// Notify is the outbound line that wakes the successor.
	Notify hal.Line
}

// Config wires discovery to the node's hardware.
type Config struct {
	Pins    Pins
	Button  hal.Button
	Radio   hal.Radio
	Display hal.Display
	Sleeper hal.Sleeper

	// PollInterval is the delay between polls of a line or the radio.
	PollInterval time.Duration

	// IdentityHold is how long a participant shows its index before clearing.
	IdentityHold time.Duration
}

// Discovery runs the one-time startup protocol for one node.
type Discovery struct {
	cfg Config
}

// New validates cfg and returns a Discovery.
func New(cfg Config) (*Discovery, error) {
	switch {
	case cfg.Pins.Start == nil || cfg.Pins.Notify == nil:
		return nil, fmt.Errorf("topology: both chain lines are required")
	case cfg.Button == nil:
		return nil, fmt.Errorf("topology: button is required")
	case cfg.Radio == nil:
		return nil, fmt.Errorf("topology: radio is required")
	case cfg.Display == nil:
		return nil, fmt.Errorf("topology: display is required")
	}
	if cfg.Sleeper == nil {
		cfg.Sleeper = hal.RealSleeper
	}
	if cfg.PollInterval < 0 || cfg.IdentityHold < 0 {
		return nil, fmt.Errorf("topology: negative timing")
	}
	return &Discovery{cfg: cfg}, nil
}

// Run selects the role and completes the matching half of the protocol.
//
// Blocks until discovery completes; only ctx cancellation returns early.
func (d *Discovery) Run(ctx context.Context) (Result, error) {
	role, err := d.SelectRole(ctx)
	if err != nil {
		return Result{}, err
	}

	switch role {
	case Coordinator:
		nodes, err := d.RunCoordinator(ctx)
		if err != nil {
			return Result{}, err
		}
		return Result{Role: Coordinator, Index: 0, Nodes: nodes}, nil
	default:
		index, err := d.RunParticipant(ctx)
		if err != nil {
			return Result{}, err
		}
		return Result{Role: Participant, Index: index}, nil
	}
}

// SelectRole shows the waiting indicator and polls until either the button
// is pressed (Coordinator) or the Start line goes high (Participant).
// The button wins when both hold on the same poll.
func (d *Discovery) SelectRole(ctx context.Context) (Role, error) {
	d.cfg.Display.ShowText(WaitingIndicator)

	role := Undecided
	err := poll.Until(ctx, d.cfg.Sleeper, d.cfg.PollInterval, func() bool {
		switch {
		case d.cfg.Button.IsPressed():
			role = Coordinator
		case d.cfg.Pins.Start.Read():
			role = Participant
		}
		return role != Undecided
	})
	if err != nil {
		return Undecided, fmt.Errorf("topology: role selection: %w", err)
	}

	slog.Info("topology: role selected", "role", role)
	return role, nil
}

// RunCoordinator hands out screen indices 1, 2, … in answer to REQUEST
// messages until the Start line reads high, and returns the node count.
//
// The loop-sense read is a raw level check: the chain is assumed to be a
// clean physical loop.
func (d *Discovery) RunCoordinator(ctx context.Context) (int, error) {
	d.cfg.Pins.Start.Write(false)
	d.cfg.Display.ShowText("0")
	d.cfg.Pins.Notify.Write(true)

	next := 1
	pending := false // a REQUEST whose ASSIGN failed to leave the radio

	err := poll.Until(ctx, d.cfg.Sleeper, d.cfg.PollInterval, func() bool {
		if d.cfg.Pins.Start.Read() {
			return true
		}
		for {
			if !pending {
				msg, ok := d.cfg.Radio.Receive()
				if !ok {
					return false
				}
				if !protocol.IsRequest(msg) {
					continue
				}
				pending = true
			}

			if err := d.cfg.Radio.Send(protocol.Assign(next)); err != nil {
				slog.Warn("topology: assign send failed, retrying",
					"screen", next,
					"error", err,
				)
				return false
			}
			slog.Info("topology: assigned screen index", "screen", next)
			pending = false
			next++
		}
	})
	if err != nil {
		return 0, fmt.Errorf("topology: coordinator discovery: %w", err)
	}

	slog.Info("topology: chain closed, discovery complete", "nodes", next)
	return next, nil
}

// RunParticipant waits for the Start line, requests a screen index and wakes
// the successor. Returns the assigned index.
//
// REQUEST goes out once; a retry is only made when Send reports the message
// never left. With no ASSIGN ever arriving the node waits until ctx ends.
func (d *Discovery) RunParticipant(ctx context.Context) (int, error) {
	if err := poll.Until(ctx, d.cfg.Sleeper, d.cfg.PollInterval, d.cfg.Pins.Start.Read); err != nil {
		return 0, fmt.Errorf("topology: waiting for start: %w", err)
	}

	// Stale traffic from earlier in discovery (other nodes' ASSIGNs) must not
	// be read as this node's assignment.
	if n := poll.Drain(d.cfg.Radio); n > 0 {
		slog.Debug("topology: discarded queued messages", "count", n)
	}

	err := poll.Until(ctx, d.cfg.Sleeper, d.cfg.PollInterval, func() bool {
		if err := d.cfg.Radio.Send(protocol.Request()); err != nil {
			slog.Warn("topology: request send failed, retrying", "error", err)
			return false
		}
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("topology: sending request: %w", err)
	}

	var index int
	_, err = poll.Receive(ctx, d.cfg.Sleeper, d.cfg.PollInterval, d.cfg.Radio, func(msg []byte) bool {
		n, ok := protocol.ParseAssign(msg)
		index = n
		return ok
	})
	if err != nil {
		return 0, fmt.Errorf("topology: waiting for assignment: %w", err)
	}

	d.cfg.Pins.Notify.Write(true)
	slog.Info("topology: received screen index", "screen", index)

	d.cfg.Display.ShowText(strconv.Itoa(index))
	d.cfg.Sleeper.Sleep(d.cfg.IdentityHold)
	d.cfg.Display.Clear()

	return index, nil
}
