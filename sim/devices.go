// Package sim provides in-memory hardware for running a whole tilesync
// cluster inside one process.
//
// Every device is safe for concurrent use: the node goroutine drives it
// while the viewer or a test reads it.
package sim

import (
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/e7canasta/tilesync/hal"
	"github.com/e7canasta/tilesync/internal/topology"
)

// Wire is a digital level shared by a driving end and a sensing end.
type Wire struct {
	level atomic.Bool
}

var _ hal.Line = (*Wire)(nil)

// Read implements hal.Line.
func (w *Wire) Read() bool { return w.level.Load() }

// Write implements hal.Line.
func (w *Wire) Write(high bool) { w.level.Store(high) }

// Chain wires n nodes into a loop: node i's Notify drives node (i+1)%n's
// Start. With n == 1 the node's Notify feeds straight back into its own Start.
func Chain(n int) []topology.Pins {
	if n <= 0 {
		return nil
	}
	wires := make([]*Wire, n)
	for i := range wires {
		wires[i] = &Wire{}
	}
	pins := make([]topology.Pins, n)
	for i := range pins {
		pins[i].Notify = wires[i]
		pins[(i+1)%n].Start = wires[i]
	}
	return pins
}

// Button is a latching push button.
type Button struct {
	pressed atomic.Bool
}

// Press holds the button down.
func (b *Button) Press() { b.pressed.Store(true) }

// Release lets it go.
func (b *Button) Release() { b.pressed.Store(false) }

// IsPressed implements hal.Button.
func (b *Button) IsPressed() bool { return b.pressed.Load() }

// Frame is a point-in-time copy of a Framebuffer.
type Frame struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// Rows holds one digit (0-9) per pixel, top row first.
	Rows []string `json:"rows"`

	// Text is the status text currently shown, "" when none.
	Text string `json:"text,omitempty"`
}

// Framebuffer is a hal.Display backed by memory.
type Framebuffer struct {
	mu     sync.Mutex
	width  int
	height int
	pixels []uint8
	text   string
}

var _ hal.Display = (*Framebuffer)(nil)

// NewFramebuffer returns a dark width × height display.
func NewFramebuffer(width, height int) *Framebuffer {
	return &Framebuffer{
		width:  width,
		height: height,
		pixels: make([]uint8, width*height),
	}
}

// SetPixel implements hal.Display. Writes outside the matrix are ignored.
// Setting a pixel replaces any status text.
func (f *Framebuffer) SetPixel(x, y int, v uint8) {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return
	}
	f.mu.Lock()
	f.pixels[y*f.width+x] = v
	f.text = ""
	f.mu.Unlock()
}

// ShowText implements hal.Display.
func (f *Framebuffer) ShowText(s string) {
	f.mu.Lock()
	f.text = s
	f.mu.Unlock()
}

// Clear implements hal.Display.
func (f *Framebuffer) Clear() {
	f.mu.Lock()
	clear(f.pixels)
	f.text = ""
	f.mu.Unlock()
}

// Pixel returns the intensity at (x, y), 0 outside the matrix.
func (f *Framebuffer) Pixel(x, y int) uint8 {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pixels[y*f.width+x]
}

// Snapshot copies the current contents.
func (f *Framebuffer) Snapshot() Frame {
	f.mu.Lock()
	defer f.mu.Unlock()

	rows := make([]string, f.height)
	var sb strings.Builder
	for y := 0; y < f.height; y++ {
		sb.Reset()
		for _, v := range f.pixels[y*f.width : (y+1)*f.width] {
			sb.WriteByte('0' + v)
		}
		rows[y] = sb.String()
	}
	return Frame{Width: f.width, Height: f.height, Rows: rows, Text: f.text}
}

// InstantSleeper yields the processor instead of sleeping, so poll loops
// spin without wall-clock delay.
var InstantSleeper hal.Sleeper = hal.SleeperFunc(func(time.Duration) { runtime.Gosched() })
