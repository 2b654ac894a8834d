// Package codec converts tiles to and from addressed radio messages.
//
// Protocol code depends only on the Codec interface, so the literal text
// encoding and the compact msgpack encoding are interchangeable.
package codec

import (
	"errors"
	"fmt"

	"github.com/e7canasta/tilesync/internal/canvas"
)

var (
	// ErrMisdirected means the message carries another screen's tile (or is
	// not tile data at all). Normal broadcast traffic, not a failure.
	ErrMisdirected = errors.New("codec: message addressed to another screen")

	// ErrMalformed means the message claims to be for this screen but cannot
	// be decoded. The destination tile is left untouched.
	ErrMalformed = errors.New("codec: malformed tile payload")
)

// Codec encodes a tile together with its screen index.
type Codec interface {
	// Encode returns the wire message for the tile at screen index.
	// Cell values above canvas.MaxIntensity are a caller contract violation.
	Encode(index int, t *canvas.Tile) []byte

	// Decode checks msg is addressed to index and, on success, overwrites dst.
	// Returns ErrMisdirected or ErrMalformed (wrapped) otherwise; dst is only
	// written when the whole payload is valid.
	Decode(msg []byte, index int, dst *canvas.Tile) error

	// Name identifies the codec in configuration and logs.
	Name() string
}

// ByName resolves a configured codec name.
func ByName(name string) (Codec, error) {
	switch name {
	case "", TextName:
		return Text{}, nil
	case MsgpackName:
		return Msgpack{}, nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}
