// Command tracecpu steps a ROM image instruction by instruction and
// prints each step's PC, T-state cost and registers, grounded on the teacher's
// cmd/trace_cpu_execution — same "load ROM, step, print PC history"
// shape, adapted from the teacher's banked PC to a flat 16-bit PC.
package main

import (
	"flag"
	"fmt"
	"os"

	"zxspectrum/internal/machine"
)

func main() {
	romPath := flag.String("rom", "", "path to the 16KB Spectrum ROM image")
	steps := flag.Int("steps", 1000, "number of instructions to trace")
	flag.Parse()

	if *romPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: tracecpu -rom <rom> [-steps N]")
		os.Exit(1)
	}

	romData, err := os.ReadFile(*romPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading ROM: %v\n", err)
		os.Exit(1)
	}

	m := machine.New()
	if err := m.LoadROM(romData); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ROM: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("=== CPU execution trace (%d instructions) ===\n", *steps)
	for i := 0; i < *steps; i++ {
		pc := m.CPU.Regs.PC
		tStates, err := m.Step()
		if err != nil {
			fmt.Fprintf(os.Stderr, "stopped at PC=0x%04X: %v\n", pc, err)
			os.Exit(1)
		}
		fmt.Printf("#%05d PC=0x%04X T=%-2d AF=%04X BC=%04X DE=%04X HL=%04X SP=%04X\n",
			i, pc, tStates, m.CPU.Regs.AF(), m.CPU.Regs.BC(), m.CPU.Regs.DE(), m.CPU.Regs.HL(), m.CPU.Regs.SP)
	}
}
