// Package memory implements the Spectrum's flat 64 KiB address space:
// ROM write-protection, the raw write path snapshot loading needs, and
// little-endian word access.
package memory

import "github.com/pkg/errors"

// Layout constants for the fixed memory map.
const (
	ROMSize        = 0x4000
	ScreenStart    = 0x4000
	AttributeStart = 0x5800
	RAMStart       = 0x5B00
)

// Memory is the Spectrum's 64 KiB address space. 0x0000-0x3FFF is ROM and
// silently discards writes from the CPU; everything above is RAM,
// including the pixel and attribute areas the video component reads.
type Memory struct {
	bytes [65536]byte
}

// New creates a zeroed 64 KiB memory.
func New() *Memory {
	return &Memory{}
}

// LoadROM copies exactly 16384 bytes into 0x0000-0x3FFF.
func (m *Memory) LoadROM(rom []byte) error {
	if len(rom) != ROMSize {
		return errors.Errorf("memory: ROM must be exactly %d bytes, got %d", ROMSize, len(rom))
	}
	copy(m.bytes[0:ROMSize], rom)
	return nil
}

// ReadByte returns the stored byte at addr; every address in 0..0xFFFF is valid.
func (m *Memory) ReadByte(addr uint16) uint8 {
	return m.bytes[addr]
}

// WriteByte writes through the CPU's legitimate path: ROM addresses
// silently discard the write.
func (m *Memory) WriteByte(addr uint16, value uint8) {
	if addr < ROMSize {
		return
	}
	m.bytes[addr] = value
}

// WriteRaw writes a single byte unconditionally, including into ROM.
// The snapshot loader and save-state restore use LoadRaw instead.
func (m *Memory) WriteRaw(addr uint16, value uint8) {
	m.bytes[addr] = value
}

// ReadWord / WriteWord are little-endian: low byte at the lower address.
func (m *Memory) ReadWord(addr uint16) uint16 {
	lo := m.ReadByte(addr)
	hi := m.ReadByte(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

func (m *Memory) WriteWord(addr uint16, value uint16) {
	m.WriteByte(addr, uint8(value))
	m.WriteByte(addr+1, uint8(value>>8))
}

// Snapshot returns a copy of the full 64 KiB address space, for the
// native gob-based save state.
func (m *Memory) Snapshot() [65536]byte {
	return m.bytes
}

// LoadRaw overwrites len(data) bytes starting at offset, unconditionally
// (including through ROM) — used by SNA/Z80 snapshot loading and
// native save-state restore.
func (m *Memory) LoadRaw(data []byte, offset int) error {
	if offset < 0 || offset+len(data) > len(m.bytes) {
		return errors.Errorf("memory: LoadRaw out of range (offset=%d len=%d)", offset, len(data))
	}
	copy(m.bytes[offset:], data)
	return nil
}
