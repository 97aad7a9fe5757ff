// Package z80 implements a cycle-approximate interpreter for the Zilog
// Z80 CPU as wired into a ZX Spectrum 48K: the full documented
// instruction set plus the undocumented forms widely relied upon by
// Spectrum software (IXH/IXL/IYH/IYL, SLL, the X/Y flag copies).
package z80

// Registers holds the complete Z80 register file: the main and shadow
// 8-bit banks (aliased in pairs via accessors, not a type-punned union),
// the index registers, PC/SP, the interrupt latches and refresh counter.
type Registers struct {
	A, F, B, C, D, E, H, L     uint8
	A2, F2, B2, C2, D2, E2, H2, L2 uint8

	IX, IY uint16
	PC, SP uint16

	I, R uint8 // R's bit 7 is preserved across M1 increments

	IFF1, IFF2 bool
	IM         uint8 // 0, 1, or 2

	Halted bool
}

// Flag bits within F: S Z Y H X P/V N C.
const (
	FlagC  = 0x01
	FlagN  = 0x02
	FlagPV = 0x04
	FlagX  = 0x08
	FlagH  = 0x10
	FlagY  = 0x20
	FlagZ  = 0x40
	FlagS  = 0x80
)

func (r *Registers) AF() uint16 { return uint16(r.A)<<8 | uint16(r.F) }
func (r *Registers) BC() uint16 { return uint16(r.B)<<8 | uint16(r.C) }
func (r *Registers) DE() uint16 { return uint16(r.D)<<8 | uint16(r.E) }
func (r *Registers) HL() uint16 { return uint16(r.H)<<8 | uint16(r.L) }

func (r *Registers) SetAF(v uint16) { r.A = uint8(v >> 8); r.F = uint8(v) }
func (r *Registers) SetBC(v uint16) { r.B = uint8(v >> 8); r.C = uint8(v) }
func (r *Registers) SetDE(v uint16) { r.D = uint8(v >> 8); r.E = uint8(v) }
func (r *Registers) SetHL(v uint16) { r.H = uint8(v >> 8); r.L = uint8(v) }

func (r *Registers) AF2() uint16 { return uint16(r.A2)<<8 | uint16(r.F2) }
func (r *Registers) BC2() uint16 { return uint16(r.B2)<<8 | uint16(r.C2) }
func (r *Registers) DE2() uint16 { return uint16(r.D2)<<8 | uint16(r.E2) }
func (r *Registers) HL2() uint16 { return uint16(r.H2)<<8 | uint16(r.L2) }

func (r *Registers) SetAF2(v uint16) { r.A2 = uint8(v >> 8); r.F2 = uint8(v) }
func (r *Registers) SetBC2(v uint16) { r.B2 = uint8(v >> 8); r.C2 = uint8(v) }
func (r *Registers) SetDE2(v uint16) { r.D2 = uint8(v >> 8); r.E2 = uint8(v) }
func (r *Registers) SetHL2(v uint16) { r.H2 = uint8(v >> 8); r.L2 = uint8(v) }

func (r *Registers) IXH() uint8 { return uint8(r.IX >> 8) }
func (r *Registers) IXL() uint8 { return uint8(r.IX) }
func (r *Registers) IYH() uint8 { return uint8(r.IY >> 8) }
func (r *Registers) IYL() uint8 { return uint8(r.IY) }

func (r *Registers) SetIXH(v uint8) { r.IX = uint16(v)<<8 | (r.IX & 0x00FF) }
func (r *Registers) SetIXL(v uint8) { r.IX = (r.IX & 0xFF00) | uint16(v) }
func (r *Registers) SetIYH(v uint8) { r.IY = uint16(v)<<8 | (r.IY & 0x00FF) }
func (r *Registers) SetIYL(v uint8) { r.IY = (r.IY & 0xFF00) | uint16(v) }

// GetFlag reports whether the given bit of F is set.
func (r *Registers) GetFlag(mask uint8) bool { return r.F&mask != 0 }

// SetFlag sets or clears the given bit of F, leaving every other bit untouched.
func (r *Registers) SetFlag(mask uint8, set bool) {
	if set {
		r.F |= mask
	} else {
		r.F &^= mask
	}
}

// Reset restores the power-on register state.
func (r *Registers) Reset() {
	*r = Registers{}
	r.SP = 0xFFFF
	r.IX = 0xFFFF
	r.IY = 0xFFFF
	r.F = 0xFF
	r.A = 0xFF
}
