// Package machine assembles CPU, memory, video, keyboard, tape, audio
// and the ULA into a runnable Spectrum and drives it one frame at a
// time. Grounded on the teacher's Emulator type (internal/emulator):
// same role as the top-level orchestrator owning every subsystem with
// no back-references between them, same Start/Stop/Pause/Resume/Reset
// lifecycle, generalized from the teacher's dot-by-dot clock-stepped
// loop to the Spectrum's single-clock-domain frame scheduler.
package machine

import (
	"os"

	"github.com/pkg/errors"

	"zxspectrum/internal/audio"
	"zxspectrum/internal/clock"
	"zxspectrum/internal/debug"
	"zxspectrum/internal/keyboard"
	"zxspectrum/internal/memory"
	"zxspectrum/internal/snapshot"
	"zxspectrum/internal/tape"
	"zxspectrum/internal/ula"
	"zxspectrum/internal/video"
	"zxspectrum/internal/z80"
)

// samplesPerFrame is the host PCM chunk size Frame pulls each call: one
// 50th of a second at the mixer's sample rate.
const samplesPerFrame = audio.SampleRate / 50

// FrameResult reports what happened during one Frame call: the video
// framebuffer and attribute views, the border timeline, and a pulled
// PCM chunk, so the host loop never has to reach into the subsystems
// directly to blit video or push audio.
type FrameResult struct {
	TStates        int
	Framebuffer    *[video.ScreenHeight][video.Columns]byte
	Attributes     *[video.Rows][video.Columns]byte
	BorderTimeline []video.BorderEvent
	Audio          []int16
}

// Machine owns every Spectrum subsystem.
type Machine struct {
	CPU      *z80.CPU
	Memory   *memory.Memory
	Video    *video.VideoBuffer
	Keyboard *keyboard.Keyboard
	Tape     *tape.Player
	Audio    *audio.Mixer
	ULA      *ula.ULA
	Logger   *debug.Logger

	scheduler *clock.Scheduler

	running bool
	paused  bool
}

// New creates a fully wired Machine. The caller must still call
// LoadROM before running any frames.
func New() *Machine {
	mem := memory.New()
	vid := video.New(mem)
	kb := keyboard.New()
	mixer := audio.NewMixer()
	logger := debug.NewLogger(10000)

	bus := ula.New(mem, vid, kb)
	bus.Audio = mixer

	cpu := z80.NewCPU(bus)
	cpu.SetLogger(logger)

	m := &Machine{
		CPU:      cpu,
		Memory:   mem,
		Video:    vid,
		Keyboard: kb,
		Audio:    mixer,
		ULA:      bus,
		Logger:   logger,
	}
	m.scheduler = clock.New(cpu, mixer)
	return m
}

// LoadROM loads the 16KB Spectrum ROM image and resets the CPU so
// execution begins at its entry point (0x0000).
func (m *Machine) LoadROM(rom []byte) error {
	if err := m.Memory.LoadROM(rom); err != nil {
		return errors.Wrap(err, "machine: loading ROM")
	}
	m.CPU.Reset()
	return nil
}

// InsertTape loads a TZX image and makes it playable; it does not
// start playback. The tape plays only once PlayTape is called.
func (m *Machine) InsertTape(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "machine: opening tape image")
	}
	defer f.Close()

	t, err := tape.Load(f)
	if err != nil {
		return errors.Wrap(err, "machine: loading tape image")
	}
	m.Tape = tape.NewPlayer(t)
	m.ULA.Tape = m.Tape
	m.scheduler = clock.New(m.CPU, m.Audio, m.Tape)
	return nil
}

// PlayTape starts (or resumes) tape playback.
func (m *Machine) PlayTape() {
	if m.Tape != nil {
		m.Tape.Play()
	}
}

// StopTape halts tape playback.
func (m *Machine) StopTape() {
	if m.Tape != nil {
		m.Tape.Stop()
	}
}

// LoadSnapshot loads a .SNA or .Z80 file (selected by extension) into
// the machine's CPU registers and memory.
func (m *Machine) LoadSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "machine: reading snapshot file")
	}

	var result snapshot.Result
	if isZ80Extension(path) {
		result, err = snapshot.LoadZ80(data, &m.CPU.Regs, m.Memory)
	} else {
		result, err = snapshot.LoadSNA(data, &m.CPU.Regs, m.Memory)
	}
	if err != nil {
		if m.Logger != nil {
			m.Logger.Logf(debug.ComponentSnapshot, debug.LogLevelError, "snapshot load failed: %v", err)
		}
		return err
	}
	m.Video.SetBorderColour(result.BorderColour, 0)
	m.ULA.SetBorderColourFromSnapshot(result.BorderColour)
	return nil
}

func isZ80Extension(path string) bool {
	return len(path) >= 4 && (path[len(path)-4:] == ".z80" || path[len(path)-4:] == ".Z80")
}

// Frame runs exactly one 69,888 T-state frame: it resets the video
// border timeline, steps the CPU and its followers until the frame's
// T-state budget is consumed, and raises a maskable interrupt at the
// frame boundary if the CPU has interrupts enabled, matching the real
// ULA's once-per-frame 50Hz interrupt line.
func (m *Machine) Frame() (FrameResult, error) {
	if !m.running || m.paused {
		return FrameResult{}, nil
	}

	m.Video.BeginFrame()

	total, err := m.scheduler.Frame(func(tStatesIntoFrame uint32) {
		m.ULA.FrameTState = tStatesIntoFrame
		if m.Tape != nil {
			m.Audio.SetEAR(m.Tape.EAR())
		}
	})
	if err != nil {
		return FrameResult{}, errors.Wrap(err, "machine: running frame")
	}

	if _, ok := m.CPU.AcceptMaskableInterrupt(); ok {
		// interrupt accepted; its T-state cost is not charged to this
		// frame or to the next (the scheduler's carry holds only the
		// overshoot of the last CPU step).
	}

	audioBuf := make([]int16, samplesPerFrame)
	if m.Audio != nil {
		m.Audio.EndFrame()
		m.Audio.ReadSamples(audioBuf)
	}

	return FrameResult{
		TStates:        total,
		Framebuffer:    m.Video.Framebuffer(),
		Attributes:     m.Video.Attributes(),
		BorderTimeline: m.Video.BorderTimeline(),
		Audio:          audioBuf,
	}, nil
}

// Start marks the machine as running.
func (m *Machine) Start() { m.running = true; m.paused = false }

// Stop halts execution.
func (m *Machine) Stop() { m.running = false }

// Pause suspends frame execution without resetting state.
func (m *Machine) Pause() { m.paused = true }

// Resume resumes a paused machine.
func (m *Machine) Resume() { m.paused = false }

// Step executes a single CPU instruction regardless of the running
// flag, for single-step debugging.
func (m *Machine) Step() (int, error) {
	return m.CPU.Step()
}

// Reset reinitializes CPU registers and the frame scheduler's carry,
// leaving loaded ROM/RAM contents untouched.
func (m *Machine) Reset() {
	m.CPU.Reset()
	m.scheduler.Reset()
	m.Audio.Reset()
}

// SetKey presses or releases a keyboard matrix key.
func (m *Machine) SetKey(row, col int, pressed bool) {
	m.Keyboard.SetKey(row, col, pressed)
}

// SetKempstonKey presses or releases a Kempston joystick bit.
func (m *Machine) SetKempstonKey(bit uint8, pressed bool) {
	m.Keyboard.SetKempston(bit, pressed)
}
