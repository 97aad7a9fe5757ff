package machine

import (
	"bytes"
	"encoding/gob"

	"github.com/pkg/errors"

	"zxspectrum/internal/audio"
	"zxspectrum/internal/z80"
)

func init() {
	gob.Register(SaveState{})
	gob.Register(z80.Registers{})
}

// SaveState is the native save-state format: CPU registers, the full
// 64 KiB of memory, the tape's block index and playing flag, and the
// audio mixer state. The tape position is kept only to the block, so a
// restored tape re-enters that block at its pilot tone. This is distinct from the .SNA/.Z80
// import formats in internal/snapshot, which only carry CPU registers
// and memory and are meant for loading tapes' machine-code programs,
// not for suspending an in-progress emulation session.
type SaveState struct {
	Version uint16

	Registers z80.Registers
	Memory    [65536]byte

	TapeBlockIndex int
	TapePlaying    bool

	Audio audio.MixerState
}

const saveStateVersion = 1

// SaveState serializes the machine's current state with gob, following
// the teacher's savestate.go pattern of a single versioned struct
// encoded via gob.Encoder.
func (m *Machine) SaveState() ([]byte, error) {
	state := SaveState{
		Version:   saveStateVersion,
		Registers: m.CPU.Regs,
		Memory:    m.Memory.Snapshot(),
	}
	if m.Tape != nil {
		state.TapePlaying = m.Tape.Playing()
		state.TapeBlockIndex = m.Tape.BlockIndex()
	}
	if m.Audio != nil {
		state.Audio = m.Audio.State()
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, errors.Wrap(err, "machine: encoding save state")
	}
	return buf.Bytes(), nil
}

// LoadState restores machine state previously produced by SaveState.
func (m *Machine) LoadState(data []byte) error {
	var state SaveState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return errors.Wrap(err, "machine: decoding save state")
	}
	if state.Version != saveStateVersion {
		return errors.Errorf("machine: unsupported save state version %d (expected %d)", state.Version, saveStateVersion)
	}

	m.CPU.Regs = state.Registers
	if err := m.Memory.LoadRaw(state.Memory[:], 0); err != nil {
		return errors.Wrap(err, "machine: restoring memory")
	}
	if m.Tape != nil {
		m.Tape.SeekBlock(state.TapeBlockIndex)
		if state.TapePlaying {
			m.Tape.Play()
		}
	}
	if m.Audio != nil {
		m.Audio.SetState(state.Audio)
	}
	return nil
}
