package z80

// readR8 reads the 3-bit register-field operand. Index 6 is (HL), or
// (IX+d)/(IY+d) when a DD/FD prefix is active; indices 4 and 5 become
// IXH/IXL or IYH/IYL under a prefix (the documented undocumented forms).
// The second return value is the addressing overhead in T-states beyond
// the equivalent (HL) access, which is folded in by the caller.
func (c *CPU) readR8(idx uint8) (uint8, int) {
	switch idx {
	case 0:
		return c.Regs.B, 0
	case 1:
		return c.Regs.C, 0
	case 2:
		return c.Regs.D, 0
	case 3:
		return c.Regs.E, 0
	case 4:
		switch c.index {
		case indexIX:
			return c.Regs.IXH(), 0
		case indexIY:
			return c.Regs.IYH(), 0
		default:
			return c.Regs.H, 0
		}
	case 5:
		switch c.index {
		case indexIX:
			return c.Regs.IXL(), 0
		case indexIY:
			return c.Regs.IYL(), 0
		default:
			return c.Regs.L, 0
		}
	case 7:
		return c.Regs.A, 0
	default: // 6: (HL) / (IX+d) / (IY+d)
		if c.index != indexNone {
			addr := c.indexedAddr()
			return c.Bus.ReadByte(addr), 8
		}
		return c.Bus.ReadByte(c.Regs.HL()), 0
	}
}

func (c *CPU) writeR8(idx uint8, v uint8) int {
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
		switch c.index {
		case indexIX:
			c.Regs.SetIXH(v)
		case indexIY:
			c.Regs.SetIYH(v)
		default:
			c.Regs.H = v
		}
	case 5:
		switch c.index {
		case indexIX:
			c.Regs.SetIXL(v)
		case indexIY:
			c.Regs.SetIYL(v)
		default:
			c.Regs.L = v
		}
	case 7:
		c.Regs.A = v
	default:
		if c.index != indexNone {
			addr := c.indexedAddr()
			c.Bus.WriteByte(addr, v)
			return 8
		}
		c.Bus.WriteByte(c.Regs.HL(), v)
	}
	return 0
}

// readR8NoIndex reads B,C,D,E,H,L,A directly, ignoring any active DD/FD
// index substitution.
func (c *CPU) readR8NoIndex(idx uint8) uint8 {
	switch idx {
	case 0:
		return c.Regs.B
	case 1:
		return c.Regs.C
	case 2:
		return c.Regs.D
	case 3:
		return c.Regs.E
	case 4:
		return c.Regs.H
	case 5:
		return c.Regs.L
	default:
		return c.Regs.A
	}
}

// execLDRR implements the 01 ddd sss LD r,r' block. When one side
// addresses (HL)/(IX+d)/(IY+d), the other register-field operand (if it
// would otherwise be H/L) refers to the real H/L register, not
// IXH/IXL/IYH/IYL — the Z80's well-known indexed-LD quirk.
func (c *CPU) execLDRR(dst, src uint8) int {
	switch {
	case dst == 6:
		v := c.readR8NoIndex(src)
		if c.index != indexNone {
			addr := c.indexedAddr()
			c.Bus.WriteByte(addr, v)
			return 19
		}
		c.Bus.WriteByte(c.Regs.HL(), v)
		return 7
	case src == 6:
		var v uint8
		if c.index != indexNone {
			addr := c.indexedAddr()
			v = c.Bus.ReadByte(addr)
		} else {
			v = c.Bus.ReadByte(c.Regs.HL())
		}
		c.writeR8NoIndex(dst, v)
		if c.index != indexNone {
			return 19
		}
		return 7
	default:
		v, _ := c.readR8(src)
		c.writeR8(dst, v)
		return 4
	}
}

// regPair16 reads one of BC/DE/HL(or index)/SP selected by the 2-bit dd field.
func (c *CPU) regPair16(dd uint8) uint16 {
	switch dd {
	case 0:
		return c.Regs.BC()
	case 1:
		return c.Regs.DE()
	case 2:
		return c.indexReg()
	default:
		return c.Regs.SP
	}
}

func (c *CPU) setRegPair16(dd uint8, v uint16) {
	switch dd {
	case 0:
		c.Regs.SetBC(v)
	case 1:
		c.Regs.SetDE(v)
	case 2:
		c.setIndexReg(v)
	default:
		c.Regs.SP = v
	}
}

// testCondition evaluates one of the 8 flag conditions used by
// conditional JR/JP/CALL/RET: NZ Z NC C PO PE P M.
func (c *CPU) testCondition(cc uint8) bool {
	switch cc {
	case 0:
		return !c.Regs.GetFlag(FlagZ)
	case 1:
		return c.Regs.GetFlag(FlagZ)
	case 2:
		return !c.Regs.GetFlag(FlagC)
	case 3:
		return c.Regs.GetFlag(FlagC)
	case 4:
		return !c.Regs.GetFlag(FlagPV)
	case 5:
		return c.Regs.GetFlag(FlagPV)
	case 6:
		return !c.Regs.GetFlag(FlagS)
	default:
		return c.Regs.GetFlag(FlagS)
	}
}

// aluOp applies one of the 8 accumulator operations (ADD,ADC,SUB,SBC,
// AND,XOR,OR,CP) to A and operand, returning the new A and F. CP
// computes subByte's flags but the caller discards the result byte.
func (c *CPU) aluOp(op uint8, operand uint8) (uint8, uint8) {
	a := c.Regs.A
	switch op {
	case 0:
		return addByte(a, operand, false)
	case 1:
		return addByte(a, operand, c.Regs.GetFlag(FlagC))
	case 2:
		return subByte(a, operand, false)
	case 3:
		return subByte(a, operand, c.Regs.GetFlag(FlagC))
	case 4:
		return andByte(a, operand)
	case 5:
		return xorByte(a, operand)
	case 6:
		return orByte(a, operand)
	default: // CP
		result, f := subByte(a, operand, false)
		return result, f
	}
}

// executeUnprefixed decodes and runs a non-prefixed opcode, returning its
// T-state cost.
func (c *CPU) executeUnprefixed(op uint8) (int, error) {
	switch op {
	case 0x00: // NOP
		return 4, nil
	case 0x08: // EX AF,AF'
		af, af2 := c.Regs.AF(), c.Regs.AF2()
		c.Regs.SetAF(af2)
		c.Regs.SetAF2(af)
		return 4, nil
	case 0x10: // DJNZ e
		c.Regs.B--
		d := c.fetchDisplacement()
		if c.Regs.B != 0 {
			c.Regs.PC = uint16(int32(c.Regs.PC) + int32(d))
			return 13, nil
		}
		return 8, nil
	case 0x18: // JR e
		d := c.fetchDisplacement()
		c.Regs.PC = uint16(int32(c.Regs.PC) + int32(d))
		return 12, nil
	case 0x20, 0x28, 0x30, 0x38: // JR cc,e
		cc := (op >> 3) & 0x03
		d := c.fetchDisplacement()
		if c.testCondition(cc) {
			c.Regs.PC = uint16(int32(c.Regs.PC) + int32(d))
			return 12, nil
		}
		return 7, nil
	case 0x27: // DAA
		a, f := daa(c.Regs.A, c.Regs.F)
		c.Regs.A, c.Regs.F = a, f
		return 4, nil
	case 0x2F: // CPL
		c.Regs.A = ^c.Regs.A
		c.Regs.F = c.Regs.F&(FlagS|FlagZ|FlagPV|FlagC) | FlagH | FlagN | (c.Regs.A & (FlagX | FlagY))
		return 4, nil
	case 0x37: // SCF
		c.Regs.F = c.Regs.F&(FlagS|FlagZ|FlagPV) | FlagC | (c.Regs.A & (FlagX | FlagY))
		return 4, nil
	case 0x3F: // CCF
		carry := c.Regs.GetFlag(FlagC)
		f := c.Regs.F & (FlagS | FlagZ | FlagPV)
		if carry {
			f |= FlagH
		} else {
			f |= FlagC
		}
		f |= c.Regs.A & (FlagX | FlagY)
		c.Regs.F = f
		return 4, nil
	case 0x76: // HALT
		c.Regs.Halted = true
		c.Regs.PC--
		return 4, nil
	case 0x07: // RLCA
		carry := c.Regs.A&0x80 != 0
		c.Regs.A = c.Regs.A<<1 | c.Regs.A>>7
		c.Regs.F = c.Regs.F&(FlagS|FlagZ|FlagPV) | flagC(carry) | (c.Regs.A & (FlagX | FlagY))
		return 4, nil
	case 0x0F: // RRCA
		carry := c.Regs.A&0x01 != 0
		c.Regs.A = c.Regs.A>>1 | c.Regs.A<<7
		c.Regs.F = c.Regs.F&(FlagS|FlagZ|FlagPV) | flagC(carry) | (c.Regs.A & (FlagX | FlagY))
		return 4, nil
	case 0x17: // RLA
		carry := c.Regs.A&0x80 != 0
		var a uint8 = c.Regs.A << 1
		if c.Regs.GetFlag(FlagC) {
			a |= 0x01
		}
		c.Regs.A = a
		c.Regs.F = c.Regs.F&(FlagS|FlagZ|FlagPV) | flagC(carry) | (c.Regs.A & (FlagX | FlagY))
		return 4, nil
	case 0x1F: // RRA
		carry := c.Regs.A&0x01 != 0
		a := c.Regs.A >> 1
		if c.Regs.GetFlag(FlagC) {
			a |= 0x80
		}
		c.Regs.A = a
		c.Regs.F = c.Regs.F&(FlagS|FlagZ|FlagPV) | flagC(carry) | (c.Regs.A & (FlagX | FlagY))
		return 4, nil
	case 0xC3: // JP nn
		c.Regs.PC = c.fetchWord()
		return 10, nil
	case 0xC9: // RET
		c.Regs.PC = c.pop()
		return 10, nil
	case 0xCD: // CALL nn
		target := c.fetchWord()
		c.push(c.Regs.PC)
		c.Regs.PC = target
		return 17, nil
	case 0xD3: // OUT (n),A
		n := c.fetchByte()
		port := uint16(c.Regs.A)<<8 | uint16(n)
		c.Bus.Out(port, c.Regs.A)
		return 11, nil
	case 0xD9: // EXX
		bc, de, hl := c.Regs.BC(), c.Regs.DE(), c.Regs.HL()
		c.Regs.SetBC(c.Regs.BC2())
		c.Regs.SetDE(c.Regs.DE2())
		c.Regs.SetHL(c.Regs.HL2())
		c.Regs.SetBC2(bc)
		c.Regs.SetDE2(de)
		c.Regs.SetHL2(hl)
		return 4, nil
	case 0xDB: // IN A,(n)
		n := c.fetchByte()
		port := uint16(c.Regs.A)<<8 | uint16(n)
		c.Regs.A = c.Bus.In(port)
		return 11, nil
	case 0xE3: // EX (SP),HL
		v := c.readWord(c.Regs.SP)
		c.writeWord(c.Regs.SP, c.indexReg())
		c.setIndexReg(v)
		if c.index != indexNone {
			return 23, nil
		}
		return 19, nil
	case 0xE9: // JP (HL)
		c.Regs.PC = c.indexReg()
		return 4, nil
	case 0xEB: // EX DE,HL
		de, hl := c.Regs.DE(), c.Regs.HL()
		c.Regs.SetDE(hl)
		c.Regs.SetHL(de)
		return 4, nil
	case 0xF3: // DI
		c.Regs.IFF1 = false
		c.Regs.IFF2 = false
		return 4, nil
	case 0xF9: // LD SP,HL
		c.Regs.SP = c.indexReg()
		return 6, nil
	case 0xFB: // EI
		c.eiPendingSteps = 2 // one to finish this instr, one to cover the next Step
		return 4, nil
	}

	quadrant := op >> 6
	switch quadrant {
	case 0:
		return c.executeQuadrant0(op)
	case 1: // 01 ddd sss: LD r,r' (0x76 handled above as HALT)
		dst := (op >> 3) & 0x07
		src := op & 0x07
		return c.execLDRR(dst, src), nil
	case 2: // 10 ooo sss: ALU A,r
		aluIdx := (op >> 3) & 0x07
		src := op & 0x07
		operand, extra := c.readR8(src)
		result, f := c.aluOp(aluIdx, operand)
		c.Regs.F = f
		if aluIdx != 7 { // not CP
			c.Regs.A = result
		}
		if src == 6 {
			return 7 + extra, nil
		}
		return 4 + extra, nil
	default:
		return c.executeQuadrant3(op)
	}
}

func flagC(v bool) uint8 {
	if v {
		return FlagC
	}
	return 0
}

// executeQuadrant0 handles the 0x00-0x3F block not already special-cased:
// 16-bit LD/INC/DEC/ADD, 8-bit INC/DEC/LD n, and the memory-indirect forms.
func (c *CPU) executeQuadrant0(op uint8) (int, error) {
	field := (op >> 3) & 0x07
	lowBits := op & 0x07

	switch op & 0x0F {
	case 0x01: // 00dd0001 LD dd,nn / 00dd1001 handled separately below
		if op&0x08 == 0 {
			dd := (op >> 4) & 0x03
			nn := c.fetchWord()
			c.setRegPair16(dd, nn)
			if dd == 2 && c.index != indexNone {
				return 14, nil
			}
			return 10, nil
		}
	case 0x02: // LD (BC),A / LD (DE),A / LD (nn),HL / LD (nn),A
		switch (op >> 4) & 0x03 {
		case 0:
			c.Bus.WriteByte(c.Regs.BC(), c.Regs.A)
			return 7, nil
		case 1:
			c.Bus.WriteByte(c.Regs.DE(), c.Regs.A)
			return 7, nil
		case 2:
			addr := c.fetchWord()
			c.writeWord(addr, c.indexReg())
			if c.index != indexNone {
				return 20, nil
			}
			return 16, nil
		default:
			addr := c.fetchWord()
			c.Bus.WriteByte(addr, c.Regs.A)
			return 13, nil
		}
	case 0x03, 0x0B: // INC dd / DEC dd
		dd := (op >> 4) & 0x03
		if op&0x08 == 0 {
			c.setRegPair16(dd, c.regPair16(dd)+1)
		} else {
			c.setRegPair16(dd, c.regPair16(dd)-1)
		}
		if dd == 2 && c.index != indexNone {
			return 10, nil
		}
		return 6, nil
	case 0x04, 0x0C: // INC r
		if field == 6 && c.index != indexNone {
			addr := c.indexedAddr()
			result, f := incByte(c.Bus.ReadByte(addr), c.Regs.F)
			c.Regs.F = f
			c.Bus.WriteByte(addr, result)
			return 19, nil
		}
		v, extra := c.readR8(field)
		result, f := incByte(v, c.Regs.F)
		c.Regs.F = f
		extra2 := c.writeR8(field, result)
		if field == 6 {
			return 11 + extra + extra2, nil
		}
		return 4, nil
	case 0x05, 0x0D: // DEC r
		if field == 6 && c.index != indexNone {
			addr := c.indexedAddr()
			result, f := decByte(c.Bus.ReadByte(addr), c.Regs.F)
			c.Regs.F = f
			c.Bus.WriteByte(addr, result)
			return 19, nil
		}
		v, extra := c.readR8(field)
		result, f := decByte(v, c.Regs.F)
		c.Regs.F = f
		extra2 := c.writeR8(field, result)
		if field == 6 {
			return 11 + extra + extra2, nil
		}
		return 4, nil
	case 0x06, 0x0E: // LD r,n
		if field == 6 {
			if c.index != indexNone {
				addr := c.indexedAddr() // displacement precedes the immediate in the byte stream
				n := c.fetchByte()
				c.Bus.WriteByte(addr, n)
				return 19, nil
			}
			n := c.fetchByte()
			c.Bus.WriteByte(c.Regs.HL(), n)
			return 10, nil
		}
		n := c.fetchByte()
		c.writeR8(field, n)
		return 7, nil
	case 0x0A: // LD A,(BC) / LD A,(DE) / LD HL,(nn) / LD A,(nn)
		switch (op >> 4) & 0x03 {
		case 0:
			c.Regs.A = c.Bus.ReadByte(c.Regs.BC())
			return 7, nil
		case 1:
			c.Regs.A = c.Bus.ReadByte(c.Regs.DE())
			return 7, nil
		case 2:
			addr := c.fetchWord()
			c.setIndexReg(c.readWord(addr))
			if c.index != indexNone {
				return 20, nil
			}
			return 16, nil
		default:
			addr := c.fetchWord()
			c.Regs.A = c.Bus.ReadByte(addr)
			return 13, nil
		}
	}

	// Remaining lowBits patterns: 0x09 ADD HL,dd
	if lowBits == 0x01 && op&0x08 != 0 {
		dd := (op >> 4) & 0x03
		result, f := add16(c.indexReg(), c.regPair16OrSelf(dd), c.Regs.F)
		c.Regs.F = f
		c.setIndexReg(result)
		if c.index != indexNone {
			return 15, nil
		}
		return 11, nil
	}

	return 0, &UnknownOpcodeError{PC: c.Regs.PC - 1, Opcode: op}
}

// regPair16OrSelf resolves dd==2 to whichever register HL has been
// replaced by, so "ADD HL,HL" becomes "ADD IX,IX" under a DD prefix.
func (c *CPU) regPair16OrSelf(dd uint8) uint16 {
	if dd == 2 {
		return c.indexReg()
	}
	return c.regPair16(dd)
}

// executeQuadrant3 handles 0xC0-0xFF aside from the opcodes already
// special-cased in executeUnprefixed: conditional RET/JP/CALL, PUSH/POP,
// ALU A,n, and RST.
func (c *CPU) executeQuadrant3(op uint8) (int, error) {
	lowBits := op & 0x07
	field := (op >> 3) & 0x07

	switch lowBits {
	case 0x00: // RET cc
		if c.testCondition(field) {
			c.Regs.PC = c.pop()
			return 11, nil
		}
		return 5, nil
	case 0x01: // POP qq
		qq := (op >> 4) & 0x03
		c.setQQ(qq, c.pop())
		if qq == 2 && c.index != indexNone {
			return 14, nil
		}
		return 10, nil
	case 0x02: // JP cc,nn
		nn := c.fetchWord()
		if c.testCondition(field) {
			c.Regs.PC = nn
		}
		return 10, nil
	case 0x04: // CALL cc,nn
		nn := c.fetchWord()
		if c.testCondition(field) {
			c.push(c.Regs.PC)
			c.Regs.PC = nn
			return 17, nil
		}
		return 10, nil
	case 0x05: // PUSH qq
		qq := (op >> 4) & 0x03
		c.push(c.getQQ(qq))
		if qq == 2 && c.index != indexNone {
			return 15, nil
		}
		return 11, nil
	case 0x06: // ALU A,n
		n := c.fetchByte()
		result, f := c.aluOp(field, n)
		c.Regs.F = f
		if field != 7 {
			c.Regs.A = result
		}
		return 7, nil
	case 0x07: // RST p
		c.push(c.Regs.PC)
		c.Regs.PC = uint16(field) * 8
		return 11, nil
	}

	return 0, &UnknownOpcodeError{PC: c.Regs.PC - 1, Opcode: op}
}

// getQQ/setQQ resolve the PUSH/POP register-pair field, where qq==3 is AF.
func (c *CPU) getQQ(qq uint8) uint16 {
	if qq == 3 {
		return c.Regs.AF()
	}
	if qq == 2 {
		return c.indexReg()
	}
	return c.regPair16(qq)
}

func (c *CPU) setQQ(qq uint8, v uint16) {
	if qq == 3 {
		c.Regs.SetAF(v)
		return
	}
	if qq == 2 {
		c.setIndexReg(v)
		return
	}
	c.setRegPair16(qq, v)
}
