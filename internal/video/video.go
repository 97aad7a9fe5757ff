// Package video implements the VideoBuffer component: a view over the
// 6912 bytes of screen RAM (pixel + attribute areas), and the
// scanline-accurate border-colour timeline the host blitter walks at
// the end of every frame. Structured the way the teacher's PPU splits
// "the pixel store" from "the scanline/timing model" (ppu.go vs
// scanline.go), generalised from a tile/sprite PPU down to the
// Spectrum's bitmap + attribute + border model.
package video

import "fmt"

// ScreenWidth/ScreenHeight are the visible pixel dimensions of the
// Spectrum's bitmap area (32 character columns x 24 rows of 8x8 cells).
const (
	ScreenWidth  = 256
	ScreenHeight = 192
	Columns      = 32
	Rows         = 24
)

// Reader is the minimal byte-addressable view VideoBuffer needs into
// memory; internal/memory.Memory satisfies it.
type Reader interface {
	ReadByte(addr uint16) uint8
	WriteByte(addr uint16, value uint8)
}

// BorderEvent records a border colour change at a given T-state offset
// within the current frame.
type BorderEvent struct {
	FrameTState uint32
	Colour      uint8
}

// VideoBuffer is a view into the screen region of Memory; it owns no
// pixel storage of its own beyond the border timeline.
type VideoBuffer struct {
	mem      Reader
	timeline []BorderEvent
	lastColour uint8
}

// New creates a VideoBuffer over the given memory.
func New(mem Reader) *VideoBuffer {
	return &VideoBuffer{mem: mem, timeline: []BorderEvent{{0, 0}}}
}

// pixelAddr implements the screen-coordinate formula from the spec: the
// interleaved, non-linear layout real Spectrum hardware uses so that
// scanlines stay contiguous within each third of the screen.
func pixelAddr(x, y int) uint16 {
	return uint16(y&0b0000_0111)<<8 |
		uint16(y&0b0011_1000)<<2 |
		uint16(y&0b1100_0000)<<5 |
		uint16(x&0b0001_1111)
}

// GetPixelByte returns the 8-pixel byte at character-column x (0..31),
// scanline y (0..191).
func (v *VideoBuffer) GetPixelByte(x, y int) uint8 {
	if x < 0 || x > 31 || y < 0 || y > 191 {
		panic(fmt.Sprintf("video: pixel byte out of range (x=%d y=%d)", x, y))
	}
	return v.mem.ReadByte(0x4000 + pixelAddr(x, y))
}

// SetPixelByte writes the 8-pixel byte at character-column x, scanline y.
func (v *VideoBuffer) SetPixelByte(x, y int, value uint8) {
	if x < 0 || x > 31 || y < 0 || y > 191 {
		panic(fmt.Sprintf("video: pixel byte out of range (x=%d y=%d)", x, y))
	}
	v.mem.WriteByte(0x4000+pixelAddr(x, y), value)
}

// GetAttribute returns the attribute byte (ink/paper/bright/flash) for
// character cell (cx, cy).
func (v *VideoBuffer) GetAttribute(cx, cy int) uint8 {
	if cx < 0 || cx > 31 || cy < 0 || cy > 23 {
		panic(fmt.Sprintf("video: attribute out of range (cx=%d cy=%d)", cx, cy))
	}
	return v.mem.ReadByte(0x5800 + uint16(cy)*32 + uint16(cx))
}

// SetAttribute writes the attribute byte for character cell (cx, cy).
func (v *VideoBuffer) SetAttribute(cx, cy int, value uint8) {
	if cx < 0 || cx > 31 || cy < 0 || cy > 23 {
		panic(fmt.Sprintf("video: attribute out of range (cx=%d cy=%d)", cx, cy))
	}
	v.mem.WriteByte(0x5800+uint16(cy)*32+uint16(cx), value)
}

// SetBorderColour appends a (frame_tstate, colour) event to the
// timeline; the host blitter walks these in T-state order to draw
// scanline-accurate border strips.
func (v *VideoBuffer) SetBorderColour(colour uint8, frameTState uint32) {
	colour &= 0x07
	v.lastColour = colour
	v.timeline = append(v.timeline, BorderEvent{FrameTState: frameTState, Colour: colour})
}

// BeginFrame resets the border timeline to a single entry carrying the
// border colour the previous frame ended on, so a program that never
// touches the border again during this frame still renders correctly.
func (v *VideoBuffer) BeginFrame() {
	v.timeline = []BorderEvent{{FrameTState: 0, Colour: v.lastColour}}
}

// BorderTimeline returns the current frame's border-colour events, in
// the order they were recorded (and therefore in T-state order).
func (v *VideoBuffer) BorderTimeline() []BorderEvent {
	return v.timeline
}

// Framebuffer returns a row-major snapshot of the 192x32 pixel bytes,
// descrambled from the Spectrum's interleaved screen layout, for a host
// blitter that wants a flat view rather than per-cell GetPixelByte calls.
func (v *VideoBuffer) Framebuffer() *[ScreenHeight][Columns]byte {
	var fb [ScreenHeight][Columns]byte
	for y := 0; y < ScreenHeight; y++ {
		for x := 0; x < Columns; x++ {
			fb[y][x] = v.GetPixelByte(x, y)
		}
	}
	return &fb
}

// Attributes returns a row-major snapshot of the 24x32 attribute grid.
func (v *VideoBuffer) Attributes() *[Rows][Columns]byte {
	var attrs [Rows][Columns]byte
	for cy := 0; cy < Rows; cy++ {
		for cx := 0; cx < Columns; cx++ {
			attrs[cy][cx] = v.GetAttribute(cx, cy)
		}
	}
	return &attrs
}

// Attribute bit layout, per the spec's data model.
const (
	AttrInkMask    = 0x07
	AttrPaperShift = 3
	AttrPaperMask  = 0x07 << AttrPaperShift
	AttrBright     = 0x40
	AttrFlash      = 0x80
)
