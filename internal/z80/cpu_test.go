package z80

import "testing"

// testBus is a flat 64KB memory with no I/O side effects beyond
// recording the last OUT and answering a fixed value for IN, enough to
// drive the CPU through a program without needing the real ULA.
type testBus struct {
	mem      [65536]byte
	outPort  uint16
	outValue uint8
	inValue  uint8
}

func newTestBus() *testBus {
	return &testBus{inValue: 0xFF}
}

func (b *testBus) ReadByte(addr uint16) uint8       { return b.mem[addr] }
func (b *testBus) WriteByte(addr uint16, v uint8)   { b.mem[addr] = v }
func (b *testBus) In(port uint16) uint8             { return b.inValue }
func (b *testBus) Out(port uint16, v uint8)         { b.outPort, b.outValue = port, v }

func (b *testBus) load(addr uint16, program ...uint8) {
	for i, v := range program {
		b.mem[int(addr)+i] = v
	}
}

func newTestCPU(program ...uint8) (*CPU, *testBus) {
	bus := newTestBus()
	bus.load(0x0000, program...)
	cpu := NewCPU(bus)
	return cpu, bus
}

func runN(t *testing.T, c *CPU, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := c.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}

func TestLDRN(t *testing.T) {
	// LD B,0x42
	c, _ := newTestCPU(0x06, 0x42)
	runN(t, c, 1)
	if c.Regs.B != 0x42 {
		t.Fatalf("B = 0x%02X, want 0x42", c.Regs.B)
	}
}

func TestAddThenSubRestoresA(t *testing.T) {
	// LD A,0x10 ; ADD A,0x05 ; SUB 0x05
	c, _ := newTestCPU(0x3E, 0x10, 0xC6, 0x05, 0xD6, 0x05)
	runN(t, c, 3)
	if c.Regs.A != 0x10 {
		t.Fatalf("A = 0x%02X, want 0x10 after ADD then SUB of same value", c.Regs.A)
	}
}

func TestPushPopRoundTrip(t *testing.T) {
	// LD BC,0x1234 ; PUSH BC ; LD BC,0 ; POP BC
	c, _ := newTestCPU(0x01, 0x34, 0x12, 0xC5, 0x01, 0x00, 0x00, 0xC1)
	c.Regs.SP = 0xFFF0
	runN(t, c, 4)
	if c.Regs.BC() != 0x1234 {
		t.Fatalf("BC = 0x%04X after PUSH/POP round trip, want 0x1234", c.Regs.BC())
	}
	if c.Regs.SP != 0xFFF0 {
		t.Fatalf("SP = 0x%04X, want back at 0xFFF0", c.Regs.SP)
	}
}

func TestJPAbsolute(t *testing.T) {
	// JP 0x8010
	c, _ := newTestCPU(0xC3, 0x10, 0x80)
	runN(t, c, 1)
	if c.Regs.PC != 0x8010 {
		t.Fatalf("PC = 0x%04X, want 0x8010", c.Regs.PC)
	}
}

func TestCallAndRet(t *testing.T) {
	bus := newTestBus()
	// at 0x0000: CALL 0x0010 ; NOP
	bus.load(0x0000, 0xCD, 0x10, 0x00, 0x00)
	// at 0x0010: RET
	bus.load(0x0010, 0xC9)
	c := NewCPU(bus)
	c.Regs.SP = 0xFFF0

	runN(t, c, 1) // CALL
	if c.Regs.PC != 0x0010 {
		t.Fatalf("PC = 0x%04X after CALL, want 0x0010", c.Regs.PC)
	}
	runN(t, c, 1) // RET
	if c.Regs.PC != 0x0003 {
		t.Fatalf("PC = 0x%04X after RET, want 0x0003 (return address)", c.Regs.PC)
	}
	if c.Regs.SP != 0xFFF0 {
		t.Fatalf("SP = 0x%04X, want back at 0xFFF0", c.Regs.SP)
	}
}

func TestDJNZTaken(t *testing.T) {
	// LD B,2 ; DJNZ -2 (loop back onto itself)
	c, _ := newTestCPU(0x06, 0x02, 0x10, 0xFE)
	runN(t, c, 1) // LD B,2
	cycles, err := c.Step()
	if err != nil {
		t.Fatal(err)
	}
	if c.Regs.B != 1 {
		t.Fatalf("B = %d after first DJNZ, want 1", c.Regs.B)
	}
	if cycles != 13 {
		t.Fatalf("DJNZ taken cost = %d, want 13", cycles)
	}
	if c.Regs.PC != 0x0002 {
		t.Fatalf("PC = 0x%04X after taken DJNZ, want back at 0x0002", c.Regs.PC)
	}
}

func TestDJNZNotTaken(t *testing.T) {
	// LD B,1 ; DJNZ -2
	c, _ := newTestCPU(0x06, 0x01, 0x10, 0xFE)
	runN(t, c, 1)
	cycles, err := c.Step()
	if err != nil {
		t.Fatal(err)
	}
	if c.Regs.B != 0 {
		t.Fatalf("B = %d, want 0", c.Regs.B)
	}
	if cycles != 8 {
		t.Fatalf("DJNZ not-taken cost = %d, want 8", cycles)
	}
	if c.Regs.PC != 0x0004 {
		t.Fatalf("PC = 0x%04X, want fallthrough to 0x0004", c.Regs.PC)
	}
}

func TestRLCAWithBit7(t *testing.T) {
	c, _ := newTestCPU(0x07) // RLCA
	c.Regs.A = 0x81
	runN(t, c, 1)
	if c.Regs.A != 0x03 {
		t.Fatalf("A = 0x%02X after RLCA on 0x81, want 0x03", c.Regs.A)
	}
	if !c.Regs.GetFlag(FlagC) {
		t.Fatal("expected carry set from bit 7")
	}
}

func TestCBBitZeroB(t *testing.T) {
	// CB 40: BIT 0,B
	c, _ := newTestCPU(0xCB, 0x40)
	c.Regs.B = 0x01
	runN(t, c, 1)
	if c.Regs.GetFlag(FlagZ) {
		t.Fatal("BIT 0,B should clear Z when bit 0 of B is set")
	}
	c.Regs.PC = 0
	c.Regs.B = 0x00
	runN(t, c, 1)
	if !c.Regs.GetFlag(FlagZ) {
		t.Fatal("BIT 0,B should set Z when bit 0 of B is clear")
	}
}

func TestLDIRSingleStep(t *testing.T) {
	bus := newTestBus()
	bus.mem[0x2000] = 0xAA
	bus.mem[0x3000] = 0x00
	// ED B0: LDIR
	bus.load(0x0000, 0xED, 0xB0)
	c := NewCPU(bus)
	c.Regs.SetHL(0x2000)
	c.Regs.SetDE(0x3000)
	c.Regs.SetBC(1)

	runN(t, c, 1)
	if bus.mem[0x3000] != 0xAA {
		t.Fatalf("(DE) = 0x%02X, want 0xAA copied from (HL)", bus.mem[0x3000])
	}
	if c.Regs.HL() != 0x2001 || c.Regs.DE() != 0x3001 {
		t.Fatalf("HL/DE = 0x%04X/0x%04X, want incremented to 0x2001/0x3001", c.Regs.HL(), c.Regs.DE())
	}
	if c.Regs.BC() != 0 {
		t.Fatalf("BC = 0x%04X, want 0 after single-count LDIR", c.Regs.BC())
	}
	if c.Regs.GetFlag(FlagPV) {
		t.Fatal("LDIR with BC reaching 0 should clear P/V")
	}
}

func TestLDIRBulkCopy(t *testing.T) {
	bus := newTestBus()
	for i := 0; i < 4; i++ {
		bus.mem[0x4000+i] = uint8(0x10 + i)
	}
	bus.load(0x0000, 0xED, 0xB0)
	c := NewCPU(bus)
	c.Regs.SetHL(0x4000)
	c.Regs.SetDE(0x5000)
	c.Regs.SetBC(4)

	for c.Regs.BC() != 0 {
		c.Regs.PC = 0
		if _, err := c.Step(); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 4; i++ {
		if bus.mem[0x5000+i] != uint8(0x10+i) {
			t.Fatalf("byte %d = 0x%02X, want 0x%02X", i, bus.mem[0x5000+i], 0x10+i)
		}
	}
}

func TestCPIRFindsMatch(t *testing.T) {
	bus := newTestBus()
	bus.mem[0x6000] = 0x01
	bus.mem[0x6001] = 0x02
	bus.mem[0x6002] = 0x99
	bus.load(0x0000, 0xED, 0xB1)
	c := NewCPU(bus)
	c.Regs.SetHL(0x6000)
	c.Regs.SetBC(3)
	c.Regs.A = 0x99

	for {
		c.Regs.PC = 0
		if _, err := c.Step(); err != nil {
			t.Fatal(err)
		}
		if c.Regs.GetFlag(FlagZ) || c.Regs.BC() == 0 {
			break
		}
	}
	if c.Regs.HL() != 0x6003 {
		t.Fatalf("HL = 0x%04X after CPIR found match, want 0x6003", c.Regs.HL())
	}
	if !c.Regs.GetFlag(FlagZ) {
		t.Fatal("expected Z set on match")
	}
	if c.Regs.BC() != 0 {
		t.Fatalf("BC = 0x%04X, want 0 after scanning all 3 bytes to find the match", c.Regs.BC())
	}
}

func TestMaskableInterruptIM1(t *testing.T) {
	c, _ := newTestCPU(0x00)
	c.Regs.IFF1 = true
	c.Regs.IM = 1
	c.Regs.PC = 0x8000
	c.Regs.SP = 0xFFF0

	cycles, accepted := c.AcceptMaskableInterrupt()
	if !accepted {
		t.Fatal("expected interrupt to be accepted with IFF1 set")
	}
	if cycles != 13 {
		t.Fatalf("IM1 interrupt cost = %d, want 13", cycles)
	}
	if c.Regs.PC != 0x0038 {
		t.Fatalf("PC = 0x%04X after IM1 interrupt, want 0x0038", c.Regs.PC)
	}
	if c.Regs.IFF1 {
		t.Fatal("expected IFF1 cleared after accepting interrupt")
	}
	if c.Regs.SP != 0xFFEE {
		t.Fatalf("SP = 0x%04X, want 0xFFEE after pushing return address", c.Regs.SP)
	}
}

func TestMaskableInterruptIgnoredWhenDisabled(t *testing.T) {
	c, _ := newTestCPU(0x00)
	c.Regs.IFF1 = false
	c.Regs.PC = 0x8000

	_, accepted := c.AcceptMaskableInterrupt()
	if accepted {
		t.Fatal("interrupt must not be accepted when IFF1 is clear")
	}
	if c.Regs.PC != 0x8000 {
		t.Fatal("PC must not move when interrupt is rejected")
	}
}

func TestEIDelayDefersEnable(t *testing.T) {
	// EI ; NOP
	c, _ := newTestCPU(0xFB, 0x00)
	c.Regs.IFF1 = false

	runN(t, c, 1) // EI itself does not enable interrupts yet
	if c.Regs.IFF1 {
		t.Fatal("EI must not take effect until after the following instruction")
	}
	runN(t, c, 1) // the instruction after EI
	if !c.Regs.IFF1 {
		t.Fatal("IFF1 should be set once the instruction following EI has completed")
	}
}

func TestIndexedLoadUsesRealHL(t *testing.T) {
	// DD 6E 05: LD L,(IX+5)  -- note: opcode 0x6E is reg=L(5), (HL) field;
	// actually targets (IX+d) since DD prefix is active and reg==6.
	bus := newTestBus()
	bus.mem[0x2005] = 0x77
	bus.load(0x0000, 0xDD, 0x6E, 0x05)
	c := NewCPU(bus)
	c.Regs.IX = 0x2000
	runN(t, c, 1)
	if c.Regs.L != 0x77 {
		t.Fatalf("L = 0x%02X after LD L,(IX+5), want 0x77", c.Regs.L)
	}
	if c.Regs.H != 0 {
		t.Fatalf("H must be untouched by LD L,(IX+d); H = 0x%02X", c.Regs.H)
	}
}

func TestIndexedCBShadowWrite(t *testing.T) {
	// DD CB 03 C0: SET 0,(IX+3) with shadow write into B (reg field 0)
	bus := newTestBus()
	bus.mem[0x2003] = 0x00
	bus.load(0x0000, 0xDD, 0xCB, 0x03, 0xC0)
	c := NewCPU(bus)
	c.Regs.IX = 0x2000
	runN(t, c, 1)
	if bus.mem[0x2003] != 0x01 {
		t.Fatalf("(IX+3) = 0x%02X after SET 0,(IX+3), want 0x01", bus.mem[0x2003])
	}
	if c.Regs.B != 0x01 {
		t.Fatalf("B = 0x%02X, want shadow-written 0x01", c.Regs.B)
	}
}

func TestUnknownOpcodeReturnsError(t *testing.T) {
	// 0xED 0xFF is not a defined extended opcode.
	c, _ := newTestCPU(0xED, 0xFF)
	_, err := c.Step()
	if err == nil {
		t.Fatal("expected an UnknownOpcodeError")
	}
}

func TestHaltHoldsPCAndCosts4(t *testing.T) {
	c, _ := newTestCPU(0x76) // HALT
	runN(t, c, 1)
	if !c.Regs.Halted {
		t.Fatal("expected Halted after executing HALT")
	}
	cycles, err := c.Step()
	if err != nil {
		t.Fatal(err)
	}
	if cycles != 4 {
		t.Fatalf("halted Step cost = %d, want 4", cycles)
	}
	if c.Regs.PC != 0 {
		t.Fatalf("PC while halted = 0x%04X, want 0x0000 (the HALT)", c.Regs.PC)
	}
}
