package canvas

import "testing"

func newCanvas(t *testing.T, width, height int) *Canvas {
	t.Helper()
	c, err := New(width, height)
	if err != nil {
		t.Fatalf("New(%d, %d) failed: %v", width, height, err)
	}
	return c
}

func newProducer(t *testing.T, x int) *Producer {
	t.Helper()
	p, err := NewProducer(Sprite{Bitmap: DefaultSprite, X: x, Y: 1})
	if err != nil {
		t.Fatalf("NewProducer failed: %v", err)
	}
	return p
}

// TestAdvanceScenario: canvas 15 wide (3 tiles of 5), sprite width 4 at offset 2.
// After one tick the offset is 3 and the sprite sits in columns [3,7) of rows [1,4).
func TestAdvanceScenario(t *testing.T) {
	c := newCanvas(t, 15, 5)
	p := newProducer(t, 2)

	p.Advance(c)

	if p.X() != 3 {
		t.Fatalf("offset = %d, want 3", p.X())
	}

	for y := 0; y < c.Height(); y++ {
		for x := 0; x < c.Width(); x++ {
			want := uint8(0)
			if y >= 1 && y < 4 && x >= 3 && x < 7 {
				want = DefaultSprite[y-1][x-3]
			}
			if got := c.At(x, y); got != want {
				t.Errorf("cell (%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
}

// TestAdvanceClipsLeftEdge verifies nothing is written left of column 0
// while the sprite slides in.
func TestAdvanceClipsLeftEdge(t *testing.T) {
	c := newCanvas(t, 10, 5)
	p := newProducer(t, -3) // next offset -2: only bitmap columns 2,3 visible

	p.Advance(c)

	if p.X() != -2 {
		t.Fatalf("offset = %d, want -2", p.X())
	}
	for row := 0; row < 3; row++ {
		if got := c.At(0, row+1); got != DefaultSprite[row][2] {
			t.Errorf("row %d col 0 = %d, want %d", row+1, got, DefaultSprite[row][2])
		}
		if got := c.At(1, row+1); got != DefaultSprite[row][3] {
			t.Errorf("row %d col 1 = %d, want %d", row+1, got, DefaultSprite[row][3])
		}
		for x := 2; x < c.Width(); x++ {
			if got := c.At(x, row+1); got != 0 {
				t.Errorf("row %d col %d = %d, want 0", row+1, x, got)
			}
		}
	}
}

// TestAdvanceClipsRightEdge verifies nothing is written at or beyond the canvas width.
func TestAdvanceClipsRightEdge(t *testing.T) {
	c := newCanvas(t, 10, 5)
	p := newProducer(t, 7) // next offset 8: bitmap columns 0,1 visible at 8,9

	p.Advance(c)

	for row := 0; row < 3; row++ {
		for x := 0; x < 8; x++ {
			if got := c.At(x, row+1); got != 0 {
				t.Errorf("row %d col %d = %d, want 0", row+1, x, got)
			}
		}
		if got := c.At(8, row+1); got != DefaultSprite[row][0] {
			t.Errorf("row %d col 8 = %d, want %d", row+1, got, DefaultSprite[row][0])
		}
		if got := c.At(9, row+1); got != DefaultSprite[row][1] {
			t.Errorf("row %d col 9 = %d, want %d", row+1, got, DefaultSprite[row][1])
		}
	}
}

// TestAdvanceWrapsFullyOffLeft checks the reset goes to -width, not zero.
func TestAdvanceWrapsFullyOffLeft(t *testing.T) {
	c := newCanvas(t, 10, 5)
	p := newProducer(t, 10)

	p.Advance(c)

	if p.X() != -4 {
		t.Fatalf("offset after wrap = %d, want -4", p.X())
	}
	for y := 0; y < c.Height(); y++ {
		for x := 0; x < c.Width(); x++ {
			if c.At(x, y) != 0 {
				t.Fatalf("cell (%d,%d) written while sprite fully off-canvas", x, y)
			}
		}
	}
}

// TestAdvancePeriodic: offsets run -S..W, so W+S+1 ticks return to the same
// offset and the same stamped frame.
func TestAdvancePeriodic(t *testing.T) {
	const width = 15
	c := newCanvas(t, width, 5)
	p := newProducer(t, 2)
	period := width + p.sprite.Width() + 1

	c.Reset()
	p.Advance(c)
	startX := p.X()
	start := snapshot(c)

	for i := 0; i < period; i++ {
		c.Reset()
		p.Advance(c)
	}

	if p.X() != startX {
		t.Fatalf("offset after %d ticks = %d, want %d", period, p.X(), startX)
	}
	got := snapshot(c)
	for i := range start {
		if got[i] != start[i] {
			t.Fatalf("frame after one period differs at cell %d", i)
		}
	}
}

func TestNewProducerRejectsBadSprites(t *testing.T) {
	cases := map[string]Sprite{
		"empty":    {},
		"ragged":   {Bitmap: [][]uint8{{1, 2}, {3}}},
		"too hot":  {Bitmap: [][]uint8{{10}}},
		"negative": {Bitmap: [][]uint8{{1}}, Y: -1},
	}
	for name, s := range cases {
		if _, err := NewProducer(s); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func snapshot(c *Canvas) []uint8 {
	return append([]uint8(nil), c.cells...)
}
