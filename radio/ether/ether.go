// Package ether simulates the shared broadcast radio medium in memory.
//
// Every node joins the ether and gets a Port, which implements hal.Radio.
// A Send fans out to every other enabled port on the same group:
//
//	node A ──Send──▶ Ether ──▶ port B inbox (FIFO, bounded)
//	                       ──▶ port C inbox (FIFO, bounded)
//	                       ✗   port A (a sender never hears itself)
//
// Delivery is non-blocking. If a receiver's inbox is full the message is
// dropped for that receiver and counted, like a real transceiver whose
// receive queue overflows. Optional random loss models a noisy channel.
package ether

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
)

// DefaultQueueLength is the per-port inbox capacity.
const DefaultQueueLength = 32

var (
	ErrEtherClosed = errors.New("ether: ether is closed")
	ErrPortExists  = errors.New("ether: port id already joined")
	ErrRadioOff    = errors.New("ether: radio not enabled")
	ErrPortClosed  = errors.New("ether: port is closed")
)

// PortStats tracks traffic through one port.
type PortStats struct {
	// Sent counts broadcasts from this port.
	Sent uint64
	// Delivered counts messages queued into this port's inbox.
	Delivered uint64
	// Dropped counts messages lost because this port's inbox was full.
	Dropped uint64
	// Lost counts messages removed by random loss before reaching this port.
	Lost uint64
}

// Option configures an Ether.
type Option func(*Ether)

// WithQueueLength sets the inbox capacity of every port joined afterwards.
func WithQueueLength(n int) Option {
	return func(e *Ether) {
		if n > 0 {
			e.queueLength = n
		}
	}
}

// WithLoss drops each delivery independently with probability rate.
// seed makes the loss pattern reproducible.
func WithLoss(rate float64, seed int64) Option {
	return func(e *Ether) {
		e.lossRate = rate
		e.rng = rand.New(rand.NewSource(seed))
	}
}

// Ether is the shared medium. Safe for concurrent use.
type Ether struct {
	mu     sync.RWMutex
	ports  map[string]*Port
	closed bool

	queueLength int

	lossMu   sync.Mutex
	lossRate float64
	rng      *rand.Rand
}

// New creates an empty ether.
func New(opts ...Option) *Ether {
	e := &Ether{
		ports:       make(map[string]*Port),
		queueLength: DefaultQueueLength,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Join attaches a new port. The port starts disabled on group 0.
func (e *Ether) Join(id string) (*Port, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEtherClosed
	}
	if _, exists := e.ports[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrPortExists, id)
	}

	p := &Port{
		id:    id,
		ether: e,
		inbox: make(chan []byte, e.queueLength),
	}
	e.ports[id] = p
	return p, nil
}

// Stats returns a snapshot of every joined port.
func (e *Ether) Stats() map[string]PortStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]PortStats, len(e.ports))
	for id, p := range e.ports {
		out[id] = p.Stats()
	}
	return out
}

// Close detaches every port. Further Send calls fail with ErrEtherClosed.
func (e *Ether) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	for _, p := range e.ports {
		p.closed.Store(true)
	}
	e.ports = nil
}

func (e *Ether) broadcast(from *Port, msg []byte) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return ErrEtherClosed
	}

	atomic.AddUint64(&from.stats.Sent, 1)
	group := from.group.Load()

	for _, p := range e.ports {
		if p == from || !p.enabled.Load() || p.closed.Load() || p.group.Load() != group {
			continue
		}
		if e.lose() {
			atomic.AddUint64(&p.stats.Lost, 1)
			continue
		}

		// Each receiver owns its copy.
		delivered := append([]byte(nil), msg...)
		select {
		case p.inbox <- delivered:
			atomic.AddUint64(&p.stats.Delivered, 1)
		default:
			atomic.AddUint64(&p.stats.Dropped, 1)
		}
	}
	return nil
}

func (e *Ether) lose() bool {
	if e.lossRate <= 0 || e.rng == nil {
		return false
	}
	e.lossMu.Lock()
	defer e.lossMu.Unlock()
	return e.rng.Float64() < e.lossRate
}

func (e *Ether) leave(p *Port) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ports != nil && e.ports[p.id] == p {
		delete(e.ports, p.id)
	}
}
