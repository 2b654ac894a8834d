package canvas

import "fmt"

// DefaultSprite is the 3×4 block that drives across the canvas.
var DefaultSprite = [][]uint8{
	{5, 9, 9, 5},
	{9, 9, 9, 9},
	{5, 9, 9, 5},
}

// Sprite is a small bitmap with a signed horizontal offset (leading edge)
// and a fixed vertical offset.
type Sprite struct {
	Bitmap [][]uint8
	X      int
	Y      int
}

// Width returns the bitmap width.
func (s *Sprite) Width() int {
	if len(s.Bitmap) == 0 {
		return 0
	}
	return len(s.Bitmap[0])
}

// Height returns the bitmap height.
func (s *Sprite) Height() int { return len(s.Bitmap) }

// Producer advances one sprite across the canvas each tick.
type Producer struct {
	sprite Sprite
}

// NewProducer validates the sprite and returns a producer that owns a copy of it.
//
// Every bitmap row must have the same width and every value must be 0-9.
func NewProducer(s Sprite) (*Producer, error) {
	if len(s.Bitmap) == 0 || len(s.Bitmap[0]) == 0 {
		return nil, fmt.Errorf("canvas: empty sprite")
	}
	if s.Y < 0 {
		return nil, fmt.Errorf("canvas: negative sprite row offset %d", s.Y)
	}
	width := len(s.Bitmap[0])
	bitmap := make([][]uint8, len(s.Bitmap))
	for row, cells := range s.Bitmap {
		if len(cells) != width {
			return nil, fmt.Errorf("canvas: sprite row %d has width %d, want %d", row, len(cells), width)
		}
		for col, v := range cells {
			if v > MaxIntensity {
				return nil, fmt.Errorf("canvas: sprite cell (%d,%d) intensity %d > %d", col, row, v, MaxIntensity)
			}
		}
		bitmap[row] = append([]uint8(nil), cells...)
	}
	s.Bitmap = bitmap
	return &Producer{sprite: s}, nil
}

// X returns the sprite's current leading-edge offset.
func (p *Producer) X() int { return p.sprite.X }

// Advance moves the sprite one column right and stamps its visible part into c.
//
// The caller clears c first. Once the offset passes the canvas width the
// sprite restarts fully off the left edge (-width) so it slides back in.
// Rows below the canvas are skipped.
func (p *Producer) Advance(c *Canvas) {
	s := &p.sprite
	width := s.Width()

	s.X++
	if s.X > c.Width() {
		s.X = -width
	}

	startCol := 0
	endCol := width
	if s.X < 0 {
		startCol = -s.X
	}
	if s.X+width > c.Width() {
		endCol = c.Width() - s.X
	}

	for row := 0; row < s.Height(); row++ {
		y := row + s.Y
		if y >= c.Height() {
			break
		}
		for col := startCol; col < endCol; col++ {
			c.Set(col+s.X, y, s.Bitmap[row][col])
		}
	}
}
