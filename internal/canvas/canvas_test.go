package canvas

import "testing"

func TestResetClearsEveryCell(t *testing.T) {
	c := newCanvas(t, 10, 5)
	for y := 0; y < 5; y++ {
		for x := 0; x < 10; x++ {
			c.Set(x, y, uint8((x+y)%10))
		}
	}

	c.Reset()

	for y := 0; y < 5; y++ {
		for x := 0; x < 10; x++ {
			if c.At(x, y) != 0 {
				t.Fatalf("cell (%d,%d) = %d after Reset", x, y, c.At(x, y))
			}
		}
	}
}

// TestCopyTileSlicesColumns checks tile i is columns [i*w, (i+1)*w) of every row.
func TestCopyTileSlicesColumns(t *testing.T) {
	const tileWidth, height, screens = 5, 5, 3
	c := newCanvas(t, tileWidth*screens, height)
	for y := 0; y < height; y++ {
		for x := 0; x < c.Width(); x++ {
			c.Set(x, y, uint8((x+y*c.Width())%10))
		}
	}
	if got := c.Tiles(tileWidth); got != screens {
		t.Fatalf("Tiles = %d, want %d", got, screens)
	}

	tile, err := NewTile(tileWidth, height)
	if err != nil {
		t.Fatalf("NewTile failed: %v", err)
	}
	for screen := 0; screen < screens; screen++ {
		if err := c.CopyTile(screen, tile); err != nil {
			t.Fatalf("CopyTile(%d) failed: %v", screen, err)
		}
		for y := 0; y < height; y++ {
			for x := 0; x < tileWidth; x++ {
				if got, want := tile.At(x, y), c.At(screen*tileWidth+x, y); got != want {
					t.Errorf("screen %d cell (%d,%d) = %d, want %d", screen, x, y, got, want)
				}
			}
		}
	}
}

func TestCopyTileRejectsOutOfRange(t *testing.T) {
	c := newCanvas(t, 10, 5)
	tile, _ := NewTile(5, 5)

	if err := c.CopyTile(2, tile); err == nil {
		t.Error("CopyTile(2) on a two-tile canvas should fail")
	}
	if err := c.CopyTile(-1, tile); err == nil {
		t.Error("CopyTile(-1) should fail")
	}

	short, _ := NewTile(5, 4)
	if err := c.CopyTile(0, short); err == nil {
		t.Error("CopyTile into a tile of the wrong height should fail")
	}
}

func TestTileCopyFromAndEqual(t *testing.T) {
	a, _ := NewTile(5, 5)
	b, _ := NewTile(5, 5)
	a.Set(2, 3, 7)

	if a.Equal(b) {
		t.Fatal("tiles with different cells reported equal")
	}
	if err := b.CopyFrom(a); err != nil {
		t.Fatalf("CopyFrom failed: %v", err)
	}
	if !a.Equal(b) {
		t.Fatal("tiles differ after CopyFrom")
	}

	other, _ := NewTile(4, 5)
	if err := other.CopyFrom(a); err == nil {
		t.Error("CopyFrom across dimensions should fail")
	}
}
