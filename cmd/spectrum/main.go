// Command spectrum is the SDL2 host frontend: it blits the machine's
// framebuffer and border, pumps keyboard input, and streams
// audio through an SDL audio device. Flag parsing and the SDL
// init/window/renderer/texture/audio-device lifecycle follow the
// teacher's cmd/emulator and internal/ui.UI (NewUI/Run/Cleanup), scaled
// down from its Fyne-hosted SDL canvas to a bare SDL2 window since this
// spec's host surface is one emulator window, not a devkit shell.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"

	"zxspectrum/internal/debug"
	"zxspectrum/internal/machine"
	"zxspectrum/internal/video"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "spectrum:", err)
		os.Exit(1)
	}
}

func run() error {
	var romPath, tapePath, snapshotPath string
	var fastLoad, debugLog bool
	var scale int

	flag.StringVar(&romPath, "rom", "", "path to the 16KB Spectrum ROM image")
	flag.StringVar(&romPath, "r", "", "shorthand for -rom")
	flag.StringVar(&tapePath, "tape", "", "path to a .tzx tape image")
	flag.StringVar(&tapePath, "t", "", "shorthand for -tape")
	flag.StringVar(&snapshotPath, "snapshot", "", "path to a .sna or .z80 snapshot")
	flag.StringVar(&snapshotPath, "s", "", "shorthand for -snapshot")
	flag.BoolVar(&fastLoad, "fast-load", false, "record the fast-load setting (tape playback still uses real pulse timing)")
	flag.BoolVar(&fastLoad, "f", false, "shorthand for -fast-load")
	flag.BoolVar(&debugLog, "debug", false, "enable verbose component logging to stderr")
	flag.BoolVar(&debugLog, "d", false, "shorthand for -debug")
	flag.IntVar(&scale, "scale", 2, "display scale (1-4)")
	flag.Parse()

	if romPath == "" {
		flag.Usage()
		return errors.New("spectrum: -rom is required")
	}
	if scale < 1 || scale > 4 {
		return errors.Errorf("spectrum: scale must be 1-4, got %d", scale)
	}

	romData, err := os.ReadFile(romPath)
	if err != nil {
		return errors.Wrap(err, "spectrum: reading ROM")
	}

	m := machine.New()
	if err := m.LoadROM(romData); err != nil {
		return errors.Wrap(err, "spectrum: loading ROM")
	}

	if debugLog {
		enableAllLogging(m.Logger)
	}

	if snapshotPath != "" {
		if err := m.LoadSnapshot(snapshotPath); err != nil {
			return errors.Wrap(err, "spectrum: loading snapshot")
		}
	}
	if tapePath != "" {
		if err := m.InsertTape(tapePath); err != nil {
			return errors.Wrap(err, "spectrum: inserting tape")
		}
		if m.Tape != nil {
			m.Tape.SetFastLoad(fastLoad)
		}
	}

	host, err := newHost(m, scale, debugLog)
	if err != nil {
		return err
	}
	defer host.Close()

	m.Start()
	return host.Run()
}

// enableAllLogging turns on every component at debug level, the
// behaviour -debug/-d enables on the logger that's wired into Machine
// but otherwise sits idle with every component disabled.
func enableAllLogging(l *debug.Logger) {
	l.SetMinLevel(debug.LogLevelDebug)
	for _, c := range []debug.Component{
		debug.ComponentCPU, debug.ComponentMemory, debug.ComponentVideo, debug.ComponentKeyboard,
		debug.ComponentTape, debug.ComponentAudio, debug.ComponentULA, debug.ComponentSnapshot, debug.ComponentSystem,
	} {
		l.SetComponentEnabled(c, true)
	}
}

const (
	borderPixels = 32
	totalWidth   = video.ScreenWidth + 2*borderPixels
	totalHeight  = video.ScreenHeight + 2*borderPixels
)

// borderPalette maps the Spectrum's 3-bit border/ink colour codes to
// 0xRRGGBB, non-bright set.
var borderPalette = [8]uint32{
	0x000000, 0x0000D7, 0xD70000, 0xD700D7,
	0x00D700, 0x00D7D7, 0xD7D700, 0xD7D7D7,
}

type host struct {
	m        *machine.Machine
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	audioDev sdl.AudioDeviceID
	scale    int

	debug       bool
	loggedCount int
}

func newHost(m *machine.Machine, scale int, debugLog bool) (*host, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO | sdl.INIT_EVENTS); err != nil {
		return nil, errors.Wrap(err, "spectrum: sdl.Init")
	}

	window, err := sdl.CreateWindow(
		"ZX Spectrum 48K",
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(totalWidth*scale), int32(totalHeight*scale),
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "spectrum: creating window")
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return nil, errors.Wrap(err, "spectrum: creating renderer")
	}

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888, sdl.TEXTUREACCESS_STREAMING, totalWidth, totalHeight)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.Quit()
		return nil, errors.Wrap(err, "spectrum: creating texture")
	}

	audioSpec := sdl.AudioSpec{
		Freq:     44100,
		Format:   sdl.AUDIO_S16SYS,
		Channels: 1,
		Samples:  1024,
	}
	audioDev, err := sdl.OpenAudioDevice("", false, &audioSpec, nil, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "spectrum: warning: no audio device: %v\n", err)
		audioDev = 0
	} else {
		sdl.PauseAudioDevice(audioDev, false)
	}

	return &host{m: m, window: window, renderer: renderer, texture: texture, audioDev: audioDev, scale: scale, debug: debugLog}, nil
}

func (h *host) Close() {
	if h.debug {
		h.m.Logger.Shutdown()
	}
	if h.audioDev != 0 {
		sdl.CloseAudioDevice(h.audioDev)
	}
	h.texture.Destroy()
	h.renderer.Destroy()
	h.window.Destroy()
	sdl.Quit()
}

// frameInterval is the Spectrum's 50Hz frame period. The host paces
// itself to this explicitly rather than relying on SDL_RENDERER_PRESENTVSYNC,
// which locks to the display's native refresh rate (commonly 60Hz) and
// would run emulation noticeably fast on most monitors.
const frameInterval = 20 * time.Millisecond

func (h *host) Run() error {
	running := true
	for running {
		frameStart := time.Now()

		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				running = false
			case *sdl.KeyboardEvent:
				h.handleKey(e)
			}
		}

		result, err := h.m.Frame()
		if err != nil {
			return errors.Wrap(err, "spectrum: running frame")
		}

		h.blit(result)
		h.pushAudio(result)
		if h.debug {
			h.drainLog()
		}

		if elapsed := time.Since(frameStart); elapsed < frameInterval {
			time.Sleep(frameInterval - elapsed)
		}
	}
	return nil
}

// drainLog prints any log entries recorded since the last frame to
// stderr, the sink -debug/-d enables.
func (h *host) drainLog() {
	entries := h.m.Logger.GetEntries()
	if h.loggedCount > len(entries) {
		h.loggedCount = 0 // buffer was cleared or wrapped
	}
	for _, e := range entries[h.loggedCount:] {
		fmt.Fprintln(os.Stderr, e.Format())
	}
	h.loggedCount = len(entries)
}

// blit paints one machine.FrameResult into the SDL texture, reading
// only the framebuffer/attribute/border-timeline views Frame returns
// rather than reaching back into Video/ULA directly.
func (h *host) blit(result machine.FrameResult) {
	pixels := make([]uint32, totalWidth*totalHeight)

	borderColour := uint8(0)
	if n := len(result.BorderTimeline); n > 0 {
		borderColour = result.BorderTimeline[n-1].Colour
	}
	borderRGB := borderPalette[borderColour&0x07] | 0xFF000000

	for y := 0; y < totalHeight; y++ {
		for x := 0; x < totalWidth; x++ {
			pixels[y*totalWidth+x] = borderRGB
		}
	}

	for cy := 0; cy < video.Rows; cy++ {
		for cx := 0; cx < video.Columns; cx++ {
			attr := result.Attributes[cy][cx]
			ink := borderPalette[attr&video.AttrInkMask] | 0xFF000000
			paper := borderPalette[(attr&video.AttrPaperMask)>>video.AttrPaperShift] | 0xFF000000

			for row := 0; row < 8; row++ {
				y := cy*8 + row
				bits := result.Framebuffer[y][cx]
				for bit := 0; bit < 8; bit++ {
					x := cx*8 + bit
					set := bits&(0x80>>uint(bit)) != 0
					colour := paper
					if set {
						colour = ink
					}
					px := borderPixels + x
					py := borderPixels + y
					pixels[py*totalWidth+px] = colour
				}
			}
		}
	}

	h.texture.Update(nil, pixelsToBytes(pixels), totalWidth*4)
	h.renderer.Clear()
	h.renderer.Copy(h.texture, nil, nil)
	h.renderer.Present()
}

func pixelsToBytes(pixels []uint32) []byte {
	out := make([]byte, len(pixels)*4)
	for i, p := range pixels {
		out[i*4+0] = byte(p)
		out[i*4+1] = byte(p >> 8)
		out[i*4+2] = byte(p >> 16)
		out[i*4+3] = byte(p >> 24)
	}
	return out
}

// pushAudio queues the PCM chunk Frame already pulled from the mixer,
// rather than reading the mixer again itself.
func (h *host) pushAudio(result machine.FrameResult) {
	if h.audioDev == 0 {
		return
	}
	sdl.QueueAudio(h.audioDev, int16SliceToBytes(result.Audio))
}

func int16SliceToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// keyMap maps SDL scancodes to (row, col) Spectrum matrix positions
// for the common letter/number/shift keys.
var keyMap = map[sdl.Scancode][2]int{
	sdl.SCANCODE_LSHIFT: {0, 0}, sdl.SCANCODE_Z: {0, 1}, sdl.SCANCODE_X: {0, 2}, sdl.SCANCODE_C: {0, 3}, sdl.SCANCODE_V: {0, 4},
	sdl.SCANCODE_A: {1, 0}, sdl.SCANCODE_S: {1, 1}, sdl.SCANCODE_D: {1, 2}, sdl.SCANCODE_F: {1, 3}, sdl.SCANCODE_G: {1, 4},
	sdl.SCANCODE_Q: {2, 0}, sdl.SCANCODE_W: {2, 1}, sdl.SCANCODE_E: {2, 2}, sdl.SCANCODE_R: {2, 3}, sdl.SCANCODE_T: {2, 4},
	sdl.SCANCODE_1: {3, 0}, sdl.SCANCODE_2: {3, 1}, sdl.SCANCODE_3: {3, 2}, sdl.SCANCODE_4: {3, 3}, sdl.SCANCODE_5: {3, 4},
	sdl.SCANCODE_0: {4, 0}, sdl.SCANCODE_9: {4, 1}, sdl.SCANCODE_8: {4, 2}, sdl.SCANCODE_7: {4, 3}, sdl.SCANCODE_6: {4, 4},
	sdl.SCANCODE_P: {5, 0}, sdl.SCANCODE_O: {5, 1}, sdl.SCANCODE_I: {5, 2}, sdl.SCANCODE_U: {5, 3}, sdl.SCANCODE_Y: {5, 4},
	sdl.SCANCODE_RETURN: {6, 0}, sdl.SCANCODE_L: {6, 1}, sdl.SCANCODE_K: {6, 2}, sdl.SCANCODE_J: {6, 3}, sdl.SCANCODE_H: {6, 4},
	sdl.SCANCODE_SPACE: {7, 0}, sdl.SCANCODE_RSHIFT: {7, 1}, sdl.SCANCODE_M: {7, 2}, sdl.SCANCODE_N: {7, 3}, sdl.SCANCODE_B: {7, 4},
}

func (h *host) handleKey(e *sdl.KeyboardEvent) {
	pos, ok := keyMap[e.Keysym.Scancode]
	if !ok {
		return
	}
	pressed := e.Type == sdl.KEYDOWN
	h.m.SetKey(pos[0], pos[1], pressed)
}
