// Package canvas holds the pixel buffers of a tiled animation.
//
// A Canvas is the full logical frame owned by the coordinator: H rows by
// tileWidth × nodes columns. A Tile is the H × tileWidth slice one node
// displays. Every cell is an intensity in 0-9.
package canvas

import "fmt"

// MaxIntensity is the brightest value a cell may hold.
const MaxIntensity = 9

// Canvas is a fixed-height, variable-width grid of intensities.
//
// Single owner: the coordinator resets and repopulates it once per tick.
type Canvas struct {
	width  int
	height int
	cells  []uint8 // row-major
}

// New allocates a cleared canvas.
func New(width, height int) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas: invalid dimensions %dx%d", width, height)
	}
	return &Canvas{
		width:  width,
		height: height,
		cells:  make([]uint8, width*height),
	}, nil
}

// Width returns the number of columns.
func (c *Canvas) Width() int { return c.width }

// Height returns the number of rows.
func (c *Canvas) Height() int { return c.height }

// Reset clears every cell to zero.
func (c *Canvas) Reset() {
	clear(c.cells)
}

// Set writes one cell. Out-of-range coordinates are ignored.
func (c *Canvas) Set(x, y int, v uint8) {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return
	}
	c.cells[y*c.width+x] = v
}

// At reads one cell. Out-of-range coordinates read as zero.
func (c *Canvas) At(x, y int) uint8 {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return 0
	}
	return c.cells[y*c.width+x]
}

// Tiles returns how many tiles of the given width the canvas holds.
func (c *Canvas) Tiles(tileWidth int) int {
	if tileWidth <= 0 {
		return 0
	}
	return c.width / tileWidth
}

// CopyTile copies the tile at screen index into dst.
//
// dst must have the canvas height; its width is the tile width.
func (c *Canvas) CopyTile(index int, dst *Tile) error {
	if dst.height != c.height {
		return fmt.Errorf("canvas: tile height %d does not match canvas height %d", dst.height, c.height)
	}
	offset := index * dst.width
	if index < 0 || offset+dst.width > c.width {
		return fmt.Errorf("canvas: screen %d out of range for width %d", index, c.width)
	}
	for row := 0; row < c.height; row++ {
		src := c.cells[row*c.width+offset : row*c.width+offset+dst.width]
		copy(dst.cells[row*dst.width:(row+1)*dst.width], src)
	}
	return nil
}

// Tile is the H × tileWidth slice of the canvas shown by one node.
type Tile struct {
	width  int
	height int
	cells  []uint8 // row-major
}

// NewTile allocates a cleared tile.
func NewTile(width, height int) (*Tile, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas: invalid tile dimensions %dx%d", width, height)
	}
	return &Tile{
		width:  width,
		height: height,
		cells:  make([]uint8, width*height),
	}, nil
}

// Width returns the number of columns.
func (t *Tile) Width() int { return t.width }

// Height returns the number of rows.
func (t *Tile) Height() int { return t.height }

// Len returns the number of cells.
func (t *Tile) Len() int { return len(t.cells) }

// Reset clears every cell to zero.
func (t *Tile) Reset() {
	clear(t.cells)
}

// Set writes one cell. Out-of-range coordinates are ignored.
func (t *Tile) Set(x, y int, v uint8) {
	if x < 0 || x >= t.width || y < 0 || y >= t.height {
		return
	}
	t.cells[y*t.width+x] = v
}

// At reads one cell. Out-of-range coordinates read as zero.
func (t *Tile) At(x, y int) uint8 {
	if x < 0 || x >= t.width || y < 0 || y >= t.height {
		return 0
	}
	return t.cells[y*t.width+x]
}

// Cells exposes the row-major backing slice. Callers must not retain it
// across ticks.
func (t *Tile) Cells() []uint8 { return t.cells }

// CopyFrom overwrites t with src. Dimensions must match.
func (t *Tile) CopyFrom(src *Tile) error {
	if src.width != t.width || src.height != t.height {
		return fmt.Errorf("canvas: tile %dx%d cannot take %dx%d", t.width, t.height, src.width, src.height)
	}
	copy(t.cells, src.cells)
	return nil
}

// Equal reports whether both tiles have the same dimensions and cells.
func (t *Tile) Equal(o *Tile) bool {
	if t.width != o.width || t.height != o.height {
		return false
	}
	for i, v := range t.cells {
		if o.cells[i] != v {
			return false
		}
	}
	return true
}
