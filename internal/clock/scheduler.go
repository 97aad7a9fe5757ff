// Package clock implements the frame scheduler: the component that
// drives the CPU for exactly one frame's worth of T-states and fans
// the T-states each instruction consumed out to the tape and audio
// subsystems. Adapted from the teacher's MasterClock, which coordinates
// several independently-clocked components (CPU/PPU/APU) against a
// shared cycle counter; the Spectrum has a single clock domain, so this
// specializes that design down to one driving step (the CPU) and a set
// of T-state-consuming followers.
package clock

// TStatesPerFrame is 69888: one 50Hz PAL frame at the Spectrum's
// 3.5MHz clock (312 scanlines x 224 T-states/scanline).
const TStatesPerFrame = 69888

// CPUClockHz is the Z80 clock rate driving the scheduler.
const CPUClockHz = 3500000

// Stepper advances the CPU by one instruction and reports how many
// T-states it consumed.
type Stepper interface {
	Step() (int, error)
}

// Follower is advanced by the T-states each CPU step consumed; tape
// playback and audio mixing both implement this.
type Follower interface {
	Advance(tStates int)
}

// Scheduler runs a single CPU across exactly TStatesPerFrame T-states
// per Frame call, carrying any overshoot into the next frame so the
// long-run average stays locked to the nominal frame rate.
type Scheduler struct {
	CPU       Stepper
	Followers []Follower

	carry int
}

// New creates a Scheduler driving cpu, fanning consumed T-states out to
// followers.
func New(cpu Stepper, followers ...Follower) *Scheduler {
	return &Scheduler{CPU: cpu, Followers: followers}
}

// Frame runs the CPU until TStatesPerFrame T-states have been consumed
// for this frame (carrying forward any overshoot from the instruction
// that crossed the boundary), returning the total T-states actually
// executed. onStep, if non-nil, is invoked before each CPU step with the
// in-frame T-state offset at which that step begins (and so before that
// step's count is reported to followers) — letting the caller (the
// Machine) stamp ULA port writes with the correct in-frame T-state.
func (s *Scheduler) Frame(onStep func(tStatesIntoFrame uint32)) (int, error) {
	consumed := s.carry
	s.carry = 0
	total := 0

	for consumed < TStatesPerFrame {
		if onStep != nil {
			onStep(uint32(consumed))
		}
		tStates, err := s.CPU.Step()
		if err != nil {
			return total, err
		}
		for _, f := range s.Followers {
			f.Advance(tStates)
		}
		consumed += tStates
		total += tStates
	}
	s.carry = consumed - TStatesPerFrame
	return total, nil
}

// Reset clears any carried-over T-state overshoot.
func (s *Scheduler) Reset() {
	s.carry = 0
}
