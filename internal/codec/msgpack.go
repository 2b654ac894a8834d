package codec

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/e7canasta/tilesync/internal/canvas"
)

// MsgpackName is the configuration name of the Msgpack codec.
const MsgpackName = "msgpack"

// Msgpack is the compact binary encoding: a msgpack array
// [screen, rows, cols, cells] with two cells packed per byte (high nibble first).
// A 5×5 tile costs 13 bytes of cells instead of 25.
type Msgpack struct{}

type tilePayload struct {
	_msgpack struct{} `msgpack:",as_array"`

	Screen int
	Rows   int
	Cols   int
	Cells  []byte
}

// Name implements Codec.
func (Msgpack) Name() string { return MsgpackName }

// Encode implements Codec.
func (Msgpack) Encode(index int, t *canvas.Tile) []byte {
	cells := t.Cells()
	packed := make([]byte, (len(cells)+1)/2)
	for i, v := range cells {
		if i%2 == 0 {
			packed[i/2] = v << 4
		} else {
			packed[i/2] |= v & 0x0f
		}
	}

	data, err := msgpack.Marshal(&tilePayload{
		Screen: index,
		Rows:   t.Height(),
		Cols:   t.Width(),
		Cells:  packed,
	})
	if err != nil {
		// Marshal of a fixed struct of ints and bytes cannot fail.
		panic(fmt.Sprintf("codec: msgpack marshal: %v", err))
	}
	return data
}

// Decode implements Codec.
func (Msgpack) Decode(msg []byte, index int, dst *canvas.Tile) error {
	var p tilePayload
	if err := msgpack.Unmarshal(msg, &p); err != nil {
		// Control messages such as RENDER land here too.
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if p.Screen != index {
		return ErrMisdirected
	}
	if p.Rows != dst.Height() || p.Cols != dst.Width() {
		return fmt.Errorf("%w: tile %dx%d, want %dx%d", ErrMalformed, p.Cols, p.Rows, dst.Width(), dst.Height())
	}

	n := dst.Len()
	if len(p.Cells) != (n+1)/2 {
		return fmt.Errorf("%w: %d packed bytes, want %d", ErrMalformed, len(p.Cells), (n+1)/2)
	}
	for i := 0; i < n; i++ {
		if cellAt(p.Cells, i) > canvas.MaxIntensity {
			return fmt.Errorf("%w: intensity %d at cell %d", ErrMalformed, cellAt(p.Cells, i), i)
		}
	}

	cells := dst.Cells()
	for i := 0; i < n; i++ {
		cells[i] = cellAt(p.Cells, i)
	}
	return nil
}

func cellAt(packed []byte, i int) uint8 {
	if i%2 == 0 {
		return packed[i/2] >> 4
	}
	return packed[i/2] & 0x0f
}
