package ether

import (
	"sync/atomic"

	"github.com/e7canasta/tilesync/hal"
)

// Port is one node's transceiver on the ether.
type Port struct {
	id    string
	ether *Ether
	inbox chan []byte

	group   atomic.Uint32
	enabled atomic.Bool
	closed  atomic.Bool

	stats PortStats
}

var _ hal.Radio = (*Port)(nil)

// ID returns the id the port joined with.
func (p *Port) ID() string { return p.id }

// Configure implements hal.Radio.
func (p *Port) Configure(group uint8) error {
	if p.closed.Load() {
		return ErrPortClosed
	}
	p.group.Store(uint32(group))
	return nil
}

// Enable implements hal.Radio.
func (p *Port) Enable() error {
	if p.closed.Load() {
		return ErrPortClosed
	}
	p.enabled.Store(true)
	return nil
}

// Send implements hal.Radio.
func (p *Port) Send(msg []byte) error {
	if p.closed.Load() {
		return ErrPortClosed
	}
	if !p.enabled.Load() {
		return ErrRadioOff
	}
	return p.ether.broadcast(p, msg)
}

// Receive implements hal.Radio. Never blocks.
func (p *Port) Receive() ([]byte, bool) {
	if !p.enabled.Load() {
		return nil, false
	}
	select {
	case msg := <-p.inbox:
		return msg, true
	default:
		return nil, false
	}
}

// Stats returns a snapshot of this port's counters.
func (p *Port) Stats() PortStats {
	return PortStats{
		Sent:      atomic.LoadUint64(&p.stats.Sent),
		Delivered: atomic.LoadUint64(&p.stats.Delivered),
		Dropped:   atomic.LoadUint64(&p.stats.Dropped),
		Lost:      atomic.LoadUint64(&p.stats.Lost),
	}
}

// Close detaches the port from the ether. Idempotent.
func (p *Port) Close() {
	if p.closed.Swap(true) {
		return
	}
	p.ether.leave(p)
}
