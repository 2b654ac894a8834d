package codec

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/e7canasta/tilesync/internal/canvas"
)

// TextName is the configuration name of the Text codec.
const TextName = "text"

// Text is the literal encoding: the decimal screen index followed by one
// ASCII digit per cell in row-major order. A 5×5 tile for screen 2 is
// "2" + 25 digits.
type Text struct{}

// Name implements Codec.
func (Text) Name() string { return TextName }

// Encode implements Codec.
func (Text) Encode(index int, t *canvas.Tile) []byte {
	buf := make([]byte, 0, 3+t.Len())
	buf = strconv.AppendInt(buf, int64(index), 10)
	for _, v := range t.Cells() {
		buf = append(buf, '0'+v)
	}
	return buf
}

// Decode implements Codec.
//
// The length check also separates screen 1 from screen 12: "12"+25 digits
// matches the prefix "1" but leaves 26 cells, which is rejected as malformed.
func (Text) Decode(msg []byte, index int, dst *canvas.Tile) error {
	prefix := strconv.AppendInt(nil, int64(index), 10)
	if !bytes.HasPrefix(msg, prefix) {
		return ErrMisdirected
	}

	body := msg[len(prefix):]
	if len(body) != dst.Len() {
		return fmt.Errorf("%w: %d cells, want %d", ErrMalformed, len(body), dst.Len())
	}
	for i, b := range body {
		if b < '0' || b > '9' {
			return fmt.Errorf("%w: byte %q at cell %d", ErrMalformed, b, i)
		}
	}

	cells := dst.Cells()
	for i, b := range body {
		cells[i] = b - '0'
	}
	return nil
}
