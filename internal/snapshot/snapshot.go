// Package snapshot loads .SNA and .Z80 snapshot files into a running
// machine's CPU registers and memory. Behaviour follows the reference
// loader in original_source/src/spectrum/SnapshotLoader.cpp byte for
// byte (header offsets, the PC-on-stack trick for SNA, the ED ED RLE
// scheme and page-ID mapping for Z80), re-expressed with Go's
// struct-returning, error-returning conventions instead of the
// reference's logger-and-early-return style.
package snapshot

import (
	"github.com/pkg/errors"

	"zxspectrum/internal/z80"
)

const (
	snaHeaderSize = 27
	sna48KRAMSize = 49152
	sna48KSize    = snaHeaderSize + sna48KRAMSize

	z80HeaderSize = 30
)

// Memory is the minimal interface snapshot loading needs: unconditional
// writes (even into the ROM region, since a snapshot's RAM image
// starts at 0x4000 and never touches ROM, but ROM write-protection
// must not interfere with anything above it) and border colour
// plumbing is left to the caller via BorderColour.
type Memory interface {
	LoadRaw(data []byte, offset int) error
}

// Result carries the pieces of machine state a loader produced besides
// the CPU registers and memory image, for the caller to apply.
type Result struct {
	BorderColour uint8
}

// LoadSNA parses a 48K .SNA file (exactly 49179 bytes) into regs and
// mem. SP is advanced by 2 and PC is popped from the stack, per the
// SNA format's convention of storing PC as the top word of the saved
// stack rather than in the header.
func LoadSNA(data []byte, regs *z80.Registers, mem Memory) (Result, error) {
	if len(data) != sna48KSize {
		return Result{}, errors.Errorf("snapshot: SNA must be exactly %d bytes, got %d", sna48KSize, len(data))
	}

	regs.I = data[0]
	regs.SetHL2(uint16(data[2])<<8 | uint16(data[1]))
	regs.SetDE2(uint16(data[4])<<8 | uint16(data[3]))
	regs.SetBC2(uint16(data[6])<<8 | uint16(data[5]))
	regs.SetAF2(uint16(data[8])<<8 | uint16(data[7]))

	regs.L = data[9]
	regs.H = data[10]
	regs.E = data[11]
	regs.D = data[12]
	regs.C = data[13]
	regs.B = data[14]

	regs.IX = uint16(data[16])<<8 | uint16(data[15])
	regs.IY = uint16(data[18])<<8 | uint16(data[17])

	regs.IFF2 = data[19]&0x04 != 0
	regs.IFF1 = regs.IFF2

	regs.R = data[20]
	regs.F = data[21]
	regs.A = data[22]

	regs.SP = uint16(data[24])<<8 | uint16(data[23])
	regs.IM = data[25] & 0x03

	border := data[26] & 0x07

	if err := mem.LoadRaw(data[snaHeaderSize:], 0x4000); err != nil {
		return Result{}, errors.Wrap(err, "snapshot: loading SNA RAM image")
	}

	pcLow := data[snaHeaderSize+int(regs.SP)-0x4000]
	pcHigh := data[snaHeaderSize+int(regs.SP)-0x4000+1]
	regs.PC = uint16(pcHigh)<<8 | uint16(pcLow)
	regs.SP += 2

	return Result{BorderColour: border}, nil
}

// LoadZ80 parses a .Z80 file (v1, v2, or v3 48K) into regs and mem.
func LoadZ80(data []byte, regs *z80.Registers, mem Memory) (Result, error) {
	if len(data) < z80HeaderSize {
		return Result{}, errors.Errorf("snapshot: Z80 file too small for header (%d bytes)", len(data))
	}

	regs.A = data[0]
	regs.F = data[1]
	regs.C = data[2]
	regs.B = data[3]
	regs.L = data[4]
	regs.H = data[5]

	pc := uint16(data[7])<<8 | uint16(data[6])
	isV2OrV3 := pc == 0

	regs.SP = uint16(data[9])<<8 | uint16(data[8])
	regs.I = data[10]
	regs.R = data[11]

	flags1 := data[12]
	if flags1 == 0xFF {
		flags1 = 0x01 // historical convention: 0xFF means "1" for compat
	}
	border := (flags1 >> 1) & 0x07
	if flags1&0x01 != 0 {
		regs.R |= 0x80
	}
	compressed := flags1&0x20 != 0

	regs.E = data[13]
	regs.D = data[14]

	regs.SetBC2(uint16(data[16])<<8 | uint16(data[15]))
	regs.SetDE2(uint16(data[18])<<8 | uint16(data[17]))
	regs.SetHL2(uint16(data[20])<<8 | uint16(data[19]))
	regs.SetAF2(uint16(data[21])<<8 | uint16(data[22]))

	regs.IY = uint16(data[24])<<8 | uint16(data[23])
	regs.IX = uint16(data[26])<<8 | uint16(data[25])

	regs.IFF1 = data[27] != 0
	regs.IFF2 = data[28] != 0

	flags2 := data[29]
	regs.IM = flags2 & 0x03

	dataStart := z80HeaderSize

	if isV2OrV3 {
		if len(data) < 34 {
			return Result{}, errors.Errorf("snapshot: Z80 v2/v3 file too small for extended header")
		}
		extraHeaderLen := int(uint16(data[31])<<8 | uint16(data[30]))
		dataStart = 32 + extraHeaderLen
		if extraHeaderLen < 2 || len(data) < dataStart {
			return Result{}, errors.Errorf("snapshot: Z80 v2/v3 extended header overruns file")
		}
		pc = uint16(data[33])<<8 | uint16(data[32])
	}
	regs.PC = pc

	if isV2OrV3 {
		if err := loadZ80Pages(data, dataStart, mem); err != nil {
			return Result{}, err
		}
	} else {
		if err := loadZ80V1Body(data, dataStart, compressed, mem); err != nil {
			return Result{}, err
		}
	}

	return Result{BorderColour: border}, nil
}

func pageTargetAddress(pageID uint8) (int, bool) {
	switch pageID {
	case 8:
		return 0x4000, true
	case 4:
		return 0x8000, true
	case 5:
		return 0xC000, true
	default:
		return 0, false
	}
}

func loadZ80Pages(data []byte, start int, mem Memory) error {
	fileIndex := start
	for fileIndex+3 <= len(data) {
		blockLen := int(uint16(data[fileIndex+1])<<8 | uint16(data[fileIndex]))
		pageID := data[fileIndex+2]
		fileIndex += 3

		if blockLen == 0 {
			break
		}

		target, known := pageTargetAddress(pageID)
		if !known {
			if blockLen == 0xFFFF {
				fileIndex += 16384
			} else {
				fileIndex += blockLen
			}
			continue
		}

		compressed := blockLen != 0xFFFF
		dataEnd := fileIndex + blockLen
		if !compressed {
			dataEnd = fileIndex + 16384
		}
		if dataEnd > len(data) {
			dataEnd = len(data)
		}

		page := make([]byte, 0, 16384)
		for fileIndex < dataEnd && len(page) < 16384 {
			b := data[fileIndex]
			if compressed && b == 0xED && fileIndex+3 < dataEnd && data[fileIndex+1] == 0xED {
				count := int(data[fileIndex+2])
				val := data[fileIndex+3]
				fileIndex += 4
				for k := 0; k < count && len(page) < 16384; k++ {
					page = append(page, val)
				}
			} else {
				page = append(page, b)
				fileIndex++
			}
		}
		if err := mem.LoadRaw(page, target); err != nil {
			return errors.Wrap(err, "snapshot: loading Z80 page")
		}
		fileIndex = dataEnd
	}
	return nil
}

func loadZ80V1Body(data []byte, dataStart int, compressed bool, mem Memory) error {
	if !compressed {
		end := dataStart + 49152
		if end > len(data) {
			end = len(data)
		}
		return mem.LoadRaw(data[dataStart:end], 0x4000)
	}

	ram := make([]byte, 0, 49152)
	fileIndex := dataStart
	for fileIndex < len(data) && len(ram) < 49152 {
		b := data[fileIndex]
		if b == 0xED && fileIndex+3 < len(data) && data[fileIndex+1] == 0xED {
			count := int(data[fileIndex+2])
			val := data[fileIndex+3]
			fileIndex += 4
			for k := 0; k < count && len(ram) < 49152; k++ {
				ram = append(ram, val)
			}
		} else {
			ram = append(ram, b)
			fileIndex++
		}
	}
	return mem.LoadRaw(ram, 0x4000)
}
