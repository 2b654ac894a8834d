// Package poll expresses the node's busy-wait loops as explicit blocking calls.
//
// Every suspension point of a node (waiting for a line edge, waiting for a
// matching radio message) goes through here. The delay between attempts is an
// injected hal.Sleeper so tests can swap in an instant clock.
//
// There is no timeout: a wait ends when its condition holds or when ctx is
// cancelled. Callers that want a deadline put it on ctx.
package poll

import (
	"context"
	"time"

	"github.com/e7canasta/tilesync/hal"
)

// Until calls cond until it returns true, sleeping interval between attempts.
//
// Returns ctx.Err() if ctx is cancelled first.
func Until(ctx context.Context, sleeper hal.Sleeper, interval time.Duration, cond func() bool) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if cond() {
			return nil
		}
		sleeper.Sleep(interval)
	}
}

// Receive polls radio until accept returns true for a message, and returns it.
//
// Messages rejected by accept are dropped. An empty queue is the normal
// outcome of a poll, not an error.
func Receive(ctx context.Context, sleeper hal.Sleeper, interval time.Duration, radio hal.Radio, accept func(msg []byte) bool) ([]byte, error) {
	var got []byte
	err := Until(ctx, sleeper, interval, func() bool {
		// Drain everything already queued before sleeping again.
		for {
			msg, ok := radio.Receive()
			if !ok {
				return false
			}
			if accept(msg) {
				got = msg
				return true
			}
		}
	})
	return got, err
}

// Drain discards every message currently queued on radio and returns how many
// were dropped.
func Drain(radio hal.Radio) int {
	n := 0
	for {
		if _, ok := radio.Receive(); !ok {
			return n
		}
		n++
	}
}
