package z80

// rotateShift applies one of the 8 CB-prefix rotate/shift operations
// (quadrant 00) selected by the 3-bit op field.
func rotateShift(op uint8, v uint8, carryIn bool) (uint8, uint8) {
	switch op {
	case 0:
		return rlc(v)
	case 1:
		return rrc(v)
	case 2:
		return rl(v, carryIn)
	case 3:
		return rr(v, carryIn)
	case 4:
		return sla(v)
	case 5:
		return sra(v)
	case 6:
		return sll(v)
	default:
		return srl(v)
	}
}

// executeCB decodes an unindexed 0xCB-prefixed opcode.
func (c *CPU) executeCB() (int, error) {
	op := c.fetchByte()
	c.bumpR()

	quadrant := op >> 6
	bitIdx := (op >> 3) & 0x07
	reg := op & 0x07

	v, extra := c.readR8(reg)
	cost := 8 + extra
	if reg != 6 {
		cost = 8
	}

	switch quadrant {
	case 0: // rotate/shift family
		result, f := rotateShift(bitIdx, v, c.Regs.GetFlag(FlagC))
		c.Regs.F = f
		extra2 := c.writeR8(reg, result)
		if reg == 6 {
			return 15 + extra2, nil
		}
		return cost, nil
	case 1: // BIT b,r
		c.Regs.F = bitTest(uint(bitIdx), v, c.Regs.F)
		if reg == 6 {
			return 12, nil
		}
		return cost, nil
	case 2: // RES b,r
		result := v &^ (1 << bitIdx)
		extra2 := c.writeR8(reg, result)
		if reg == 6 {
			return 15 + extra2, nil
		}
		return cost, nil
	default: // SET b,r
		result := v | (1 << bitIdx)
		extra2 := c.writeR8(reg, result)
		if reg == 6 {
			return 15 + extra2, nil
		}
		return cost, nil
	}
}

// executeIndexedCB decodes a DD CB d op / FD CB d op instruction: the
// displacement precedes the opcode byte, the operand is always
// (IX+d)/(IY+d), and for every register field other than (HL) the
// result is also copied into that register — the well-known
// undocumented "shadow write" behaviour of the indexed bit-shift group.
func (c *CPU) executeIndexedCB() (int, error) {
	d := c.fetchDisplacement()
	op := c.fetchByte()
	// R is not incremented again here: the indexed-CB form only fetches
	// one M1 cycle (for the DD/FD prefix already accounted for by the caller).

	addr := uint16(int32(c.indexReg()) + int32(d))
	v := c.Bus.ReadByte(addr)

	quadrant := op >> 6
	bitIdx := (op >> 3) & 0x07
	reg := op & 0x07

	switch quadrant {
	case 1: // BIT b,(IX+d)/(IY+d)
		f := bitTest(uint(bitIdx), v, c.Regs.F)
		// X/Y in the indexed BIT form come from the high byte of the
		// effective address rather than from v.
		f = f&^(FlagX|FlagY) | uint8(addr>>8)&(FlagX|FlagY)
		c.Regs.F = f
		return 20, nil
	case 0: // rotate/shift family
		result, f := rotateShift(bitIdx, v, c.Regs.GetFlag(FlagC))
		c.Regs.F = f
		c.Bus.WriteByte(addr, result)
		if reg != 6 {
			c.writeR8NoIndex(reg, result)
		}
		return 23, nil
	case 2: // RES b,(IX+d)/(IY+d)
		result := v &^ (1 << bitIdx)
		c.Bus.WriteByte(addr, result)
		if reg != 6 {
			c.writeR8NoIndex(reg, result)
		}
		return 23, nil
	default: // SET b,(IX+d)/(IY+d)
		result := v | (1 << bitIdx)
		c.Bus.WriteByte(addr, result)
		if reg != 6 {
			c.writeR8NoIndex(reg, result)
		}
		return 23, nil
	}
}

// writeR8NoIndex writes one of B,C,D,E,H,L,A directly, ignoring any
// active DD/FD index substitution — used for the indexed-CB shadow write,
// which always targets the plain register, never IXH/IYL etc.
func (c *CPU) writeR8NoIndex(idx uint8, v uint8) {
	switch idx {
	case 0:
		c.Regs.B = v
	case 1:
		c.Regs.C = v
	case 2:
		c.Regs.D = v
	case 3:
		c.Regs.E = v
	case 4:
		c.Regs.H = v
	case 5:
		c.Regs.L = v
	case 7:
		c.Regs.A = v
	}
}
