package z80

import "testing"

func TestParityTable(t *testing.T) {
	if !parityTable[0x00] {
		t.Fatal("0x00 has even parity (0 bits set)")
	}
	if parityTable[0x01] {
		t.Fatal("0x01 has odd parity (1 bit set)")
	}
	if !parityTable[0x03] {
		t.Fatal("0x03 has even parity (2 bits set)")
	}
	if !parityTable[0xFF] {
		t.Fatal("0xFF has even parity (8 bits set)")
	}
}

func TestAddByteBasic(t *testing.T) {
	result, f := addByte(0x0F, 0x01, false)
	if result != 0x10 {
		t.Fatalf("result = 0x%02X, want 0x10", result)
	}
	if f&FlagH == 0 {
		t.Fatal("expected half-carry from 0x0F+0x01")
	}
	if f&FlagC != 0 {
		t.Fatal("expected no carry")
	}
}

func TestAddByteOverflow(t *testing.T) {
	// 0x7F + 0x01 = 0x80: signed overflow (positive+positive=negative).
	result, f := addByte(0x7F, 0x01, false)
	if result != 0x80 {
		t.Fatalf("result = 0x%02X, want 0x80", result)
	}
	if f&FlagPV == 0 {
		t.Fatal("expected overflow flag set")
	}
	if f&FlagS == 0 {
		t.Fatal("expected sign flag set for 0x80")
	}
}

func TestAddByteCarry(t *testing.T) {
	result, f := addByte(0xFF, 0x01, false)
	if result != 0x00 {
		t.Fatalf("result = 0x%02X, want 0x00", result)
	}
	if f&FlagC == 0 {
		t.Fatal("expected carry flag")
	}
	if f&FlagZ == 0 {
		t.Fatal("expected zero flag")
	}
}

func TestAddByteWithCarryIn(t *testing.T) {
	result, _ := addByte(0x01, 0x01, true)
	if result != 0x03 {
		t.Fatalf("result = 0x%02X, want 0x03 (1+1+carry)", result)
	}
}

func TestSubByteBasic(t *testing.T) {
	result, f := subByte(0x10, 0x01, false)
	if result != 0x0F {
		t.Fatalf("result = 0x%02X, want 0x0F", result)
	}
	if f&FlagN == 0 {
		t.Fatal("expected N set for subtraction")
	}
	if f&FlagH == 0 {
		t.Fatal("expected half-borrow from 0x10-0x01")
	}
}

func TestSubByteBorrow(t *testing.T) {
	result, f := subByte(0x00, 0x01, false)
	if result != 0xFF {
		t.Fatalf("result = 0x%02X, want 0xFF", result)
	}
	if f&FlagC == 0 {
		t.Fatal("expected carry (borrow) flag")
	}
}

func TestAndOrXorByte(t *testing.T) {
	r, f := andByte(0xF0, 0x0F)
	if r != 0 || f&FlagZ == 0 {
		t.Fatalf("AND result = 0x%02X, want 0 with Z set", r)
	}
	if f&FlagH == 0 {
		t.Fatal("AND must always set H")
	}

	r, _ = orByte(0xF0, 0x0F)
	if r != 0xFF {
		t.Fatalf("OR result = 0x%02X, want 0xFF", r)
	}

	r, _ = xorByte(0xFF, 0xFF)
	if r != 0 {
		t.Fatalf("XOR result = 0x%02X, want 0", r)
	}
}

func TestIncDecByte(t *testing.T) {
	result, f := incByte(0x7F, 0)
	if result != 0x80 {
		t.Fatalf("INC result = 0x%02X, want 0x80", result)
	}
	if f&FlagPV == 0 {
		t.Fatal("expected overflow flag from INC 0x7F")
	}

	result, f = decByte(0x80, 0)
	if result != 0x7F {
		t.Fatalf("DEC result = 0x%02X, want 0x7F", result)
	}
	if f&FlagPV == 0 {
		t.Fatal("expected overflow flag from DEC 0x80")
	}
}

func TestIncDecPreservesCarry(t *testing.T) {
	_, f := incByte(0x01, FlagC)
	if f&FlagC == 0 {
		t.Fatal("INC must preserve incoming carry flag")
	}
	_, f = decByte(0x01, FlagC)
	if f&FlagC == 0 {
		t.Fatal("DEC must preserve incoming carry flag")
	}
}

func TestAdd16Sbc16(t *testing.T) {
	result, f := add16(0x0FFF, 0x0001, 0)
	if result != 0x1000 {
		t.Fatalf("ADD16 result = 0x%04X, want 0x1000", result)
	}
	if f&FlagH == 0 {
		t.Fatal("expected half-carry from bit 11")
	}

	result, f = sbc16(0x0000, 0x0001, false)
	if result != 0xFFFF {
		t.Fatalf("SBC16 result = 0x%04X, want 0xFFFF", result)
	}
	if f&FlagC == 0 {
		t.Fatal("expected carry from SBC16 underflow")
	}
}

func TestRotateShiftBasics(t *testing.T) {
	result, f := rlc(0x80)
	if result != 0x01 {
		t.Fatalf("RLC 0x80 = 0x%02X, want 0x01", result)
	}
	if f&FlagC == 0 {
		t.Fatal("expected carry out of bit 7")
	}

	result, _ = rrc(0x01)
	if result != 0x80 {
		t.Fatalf("RRC 0x01 = 0x%02X, want 0x80", result)
	}

	result, _ = sla(0x80)
	if result != 0x00 {
		t.Fatalf("SLA 0x80 = 0x%02X, want 0x00", result)
	}

	result, _ = sra(0x81)
	if result != 0xC0 {
		t.Fatalf("SRA 0x81 = 0x%02X, want 0xC0 (sign extended)", result)
	}

	result, _ = sll(0x00)
	if result != 0x01 {
		t.Fatalf("SLL 0x00 = 0x%02X, want 0x01", result)
	}

	result, _ = srl(0x01)
	if result != 0x00 {
		t.Fatalf("SRL 0x01 = 0x%02X, want 0x00", result)
	}
}

func TestBitTest(t *testing.T) {
	f := bitTest(0, 0x01, 0)
	if f&FlagZ != 0 {
		t.Fatal("BIT 0 on a set bit should clear Z")
	}
	f = bitTest(0, 0x00, 0)
	if f&FlagZ == 0 {
		t.Fatal("BIT 0 on a clear bit should set Z")
	}
	f = bitTest(7, 0x80, 0)
	if f&FlagS == 0 {
		t.Fatal("BIT 7 on a set bit should copy into S")
	}
}

func TestDAAAfterDecimalAdd(t *testing.T) {
	// 0x15 + 0x27 = 0x3C binary; DAA should correct to 0x42 BCD.
	sum, flags := addByte(0x15, 0x27, false)
	result, f := daa(sum, flags)
	if result != 0x42 {
		t.Fatalf("DAA result = 0x%02X, want 0x42", result)
	}
	if f&FlagC != 0 {
		t.Fatal("expected no carry out of this addition")
	}
}

func TestDAAAfterDecimalSub(t *testing.T) {
	// 0x42 - 0x27 = 0x1B binary with N set; DAA should correct to 0x15 BCD.
	diff, flags := subByte(0x42, 0x27, false)
	result, _ := daa(diff, flags)
	if result != 0x15 {
		t.Fatalf("DAA result = 0x%02X, want 0x15", result)
	}
}
