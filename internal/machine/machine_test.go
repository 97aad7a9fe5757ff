package machine

import "testing"

func blankROM() []byte {
	return make([]byte, 0x4000)
}

func TestLoadROMResetsCPU(t *testing.T) {
	m := New()
	rom := blankROM()
	rom[0] = 0x00 // NOP at reset vector
	if err := m.LoadROM(rom); err != nil {
		t.Fatalf("LoadROM: %v", err)
	}
	if m.CPU.Regs.PC != 0 {
		t.Fatalf("PC = 0x%04X, want 0", m.CPU.Regs.PC)
	}
}

func TestLoadROMWrongSize(t *testing.T) {
	m := New()
	if err := m.LoadROM(make([]byte, 10)); err == nil {
		t.Fatal("expected error for undersized ROM")
	}
}

func TestFrameRequiresRunning(t *testing.T) {
	m := New()
	m.LoadROM(blankROM())

	result, err := m.Frame()
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if result.TStates != 0 {
		t.Fatalf("expected no T-states consumed while stopped, got %d", result.TStates)
	}
}

func TestFrameRunsNOPsForOneFrame(t *testing.T) {
	m := New()
	rom := blankROM()
	// Fill ROM with NOPs so the CPU just free-runs.
	for i := range rom {
		rom[i] = 0x00
	}
	m.LoadROM(rom)
	m.Start()

	result, err := m.Frame()
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if result.TStates < 69888 {
		t.Fatalf("TStates = %d, want >= 69888", result.TStates)
	}
}

func TestPauseStopsFrameExecution(t *testing.T) {
	m := New()
	m.LoadROM(blankROM())
	m.Start()
	m.Pause()

	result, _ := m.Frame()
	if result.TStates != 0 {
		t.Fatalf("expected paused machine to consume no T-states, got %d", result.TStates)
	}
}

func TestSaveLoadStateRoundTrip(t *testing.T) {
	m := New()
	rom := blankROM()
	rom[0] = 0x3E // LD A,n
	rom[1] = 0x42
	m.LoadROM(rom)
	m.Step() // executes LD A,0x42

	if m.CPU.Regs.A != 0x42 {
		t.Fatalf("A = 0x%02X, want 0x42 before save", m.CPU.Regs.A)
	}

	data, err := m.SaveState()
	if err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	m2 := New()
	m2.LoadROM(blankROM())
	if err := m2.LoadState(data); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if m2.CPU.Regs.A != 0x42 {
		t.Fatalf("restored A = 0x%02X, want 0x42", m2.CPU.Regs.A)
	}
	if m2.CPU.Regs.PC != m.CPU.Regs.PC {
		t.Fatalf("restored PC = 0x%04X, want 0x%04X", m2.CPU.Regs.PC, m.CPU.Regs.PC)
	}
}

func TestSetKeyForwardsToKeyboard(t *testing.T) {
	m := New()
	m.SetKey(0, 0, true)
	if got := m.Keyboard.ReadPort(0b1111_1110); got&1 != 0 {
		t.Fatal("expected key press to clear bit0 on row 0")
	}
}
