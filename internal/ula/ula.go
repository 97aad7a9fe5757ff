// Package ula implements the Spectrum's I/O port decoding: the ULA
// itself on even ports (border/MIC/speaker out, keyboard/EAR in) and
// the Kempston joystick interface on port 0x1F. This is the z80.Bus
// implementation the CPU talks to; it fans reads and writes out to
// memory, video, keyboard, tape and audio rather than owning any state
// of its own, the same collaborator-routing shape the teacher's memory
// bus uses to fan out to cartridge/PPU/APU/input.
package ula

// Memory is the minimal byte-addressable interface the ULA forwards
// CPU memory accesses to.
type Memory interface {
	ReadByte(addr uint16) uint8
	WriteByte(addr uint16, value uint8)
}

// Video receives border colour changes, stamped with the T-state
// offset within the current frame.
type Video interface {
	SetBorderColour(colour uint8, frameTState uint32)
}

// Keyboard answers port reads for the keyboard matrix and the
// Kempston joystick.
type Keyboard interface {
	ReadPort(highByte uint8) uint8
	ReadKempstonPort() uint8
}

// Tape is the EAR bit source; nil is valid (no tape inserted) and
// reads as EAR high, the idle level.
type Tape interface {
	EAR() bool
}

// Audio receives the speaker and EAR levels for mixing into the host
// PCM stream.
type Audio interface {
	SetSpeaker(on bool)
	SetEAR(on bool)
}

// ULA wires the CPU's memory and I/O space to the rest of the machine.
// It satisfies internal/z80.Bus.
type ULA struct {
	Memory   Memory
	Video    Video
	Keyboard Keyboard
	Tape     Tape
	Audio    Audio

	// FrameTState is the current T-state offset within the frame,
	// updated by the frame scheduler before each CPU step so OUT to
	// port 0xFE can stamp the video border timeline accurately.
	FrameTState uint32

	borderColour uint8
	micOut       bool
	speakerOut   bool
}

// New creates a ULA wired to the given collaborators.
func New(mem Memory, video Video, kb Keyboard) *ULA {
	return &ULA{Memory: mem, Video: video, Keyboard: kb}
}

// ReadByte forwards to memory.
func (u *ULA) ReadByte(addr uint16) uint8 {
	return u.Memory.ReadByte(addr)
}

// WriteByte forwards to memory.
func (u *ULA) WriteByte(addr uint16, value uint8) {
	u.Memory.WriteByte(addr, value)
}

// In dispatches a CPU IN instruction to the matching port.
func (u *ULA) In(port uint16) uint8 {
	if port&0x01 == 0 {
		return u.readULAPort(port)
	}
	if port&0xFF == 0x1F {
		if u.Keyboard != nil {
			return u.Keyboard.ReadKempstonPort()
		}
		return 0
	}
	// Unrecognised port: floating bus convention.
	return 0xFF
}

// Out dispatches a CPU OUT instruction to the matching port.
func (u *ULA) Out(port uint16, value uint8) {
	if port&0x01 == 0 {
		u.writeULAPort(value)
	}
	// Other even/odd ports (AY-3-8912 etc.) are out of scope.
}

func (u *ULA) readULAPort(port uint16) uint8 {
	highByte := uint8(port >> 8)
	result := uint8(0xFF)
	if u.Keyboard != nil {
		result = u.Keyboard.ReadPort(highByte)
	}
	ear := true
	if u.Tape != nil {
		ear = u.Tape.EAR()
	}
	if ear {
		result |= 0x40
	} else {
		result &^= 0x40
	}
	return result
}

func (u *ULA) writeULAPort(value uint8) {
	u.borderColour = value & 0x07
	u.micOut = value&0x08 != 0
	u.speakerOut = value&0x10 != 0

	if u.Video != nil {
		u.Video.SetBorderColour(u.borderColour, u.FrameTState)
	}
	if u.Audio != nil {
		u.Audio.SetSpeaker(u.speakerOut)
	}
}

// BorderColour returns the last border colour written via port 0xFE.
func (u *ULA) BorderColour() uint8 {
	return u.borderColour
}

// SetBorderColourFromSnapshot sets the cached border colour directly,
// without going through a port write, for restoring the border field
// a .SNA/.Z80 snapshot carries in its header.
func (u *ULA) SetBorderColourFromSnapshot(colour uint8) {
	u.borderColour = colour & 0x07
}

// MIC returns the last MIC output level written via port 0xFE.
func (u *ULA) MIC() bool {
	return u.micOut
}
