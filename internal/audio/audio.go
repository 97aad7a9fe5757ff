// Package audio implements the Spectrum's 1-bit beeper mix: the
// speaker bit driven by OUT to port 0xFE and the tape EAR input, both
// weighted and summed into 16-bit signed PCM at a fixed host sample
// rate. Grounded on the teacher's apu.go phase-accumulator mixer
// (GenerateSample/UpdateFrame), simplified from 4 waveform channels
// down to the Spectrum's two binary sources, and on its mutex-guarded
// double-buffer pattern for handing samples to the host audio callback.
package audio

import "sync"

const (
	// SampleRate is the host PCM output rate.
	SampleRate = 44100

	// CPUClockHz is the Z80 clock rate the T-state accumulator is
	// calibrated against.
	CPUClockHz = 3500000

	speakerWeight = int16(20000)
	earWeight     = int16(8000)
)

// tstatesPerSample is fractional: 3500000/44100 ≈ 79.365 T-states per
// output sample. Keeping the remainder in a running accumulator avoids
// systematic drift between the CPU and audio clocks.
const tstatesPerSampleNum = CPUClockHz
const tstatesPerSampleDen = SampleRate

// Mixer accumulates beeper/EAR levels across a frame's T-states and
// downsamples them into a PCM buffer the host can read back.
type Mixer struct {
	mu sync.Mutex

	speakerOn bool
	earOn     bool

	tstateAccum int // fractional T-state carry from the prior Advance call

	pending []int16
	shared  []int16

	lastSample int16
}

// NewMixer creates a Mixer with ~45ms of pre-filled silence, matching
// the teacher's reset behaviour so the very first host callback has
// something to play before the first frame completes.
func NewMixer() *Mixer {
	m := &Mixer{}
	prefill := make([]int16, SampleRate*45/1000)
	m.shared = prefill
	return m
}

// SetSpeaker updates the speaker bit (port 0xFE bit 4, written by OUT).
func (m *Mixer) SetSpeaker(on bool) {
	m.mu.Lock()
	m.speakerOn = on
	m.mu.Unlock()
}

// SetEAR updates the tape EAR input level mixed into monitor audio.
func (m *Mixer) SetEAR(on bool) {
	m.mu.Lock()
	m.earOn = on
	m.mu.Unlock()
}

// Advance steps the mixer by tStates T-states, appending any PCM
// samples whose accumulated T-state boundary was crossed.
func (m *Mixer) Advance(tStates int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	level := int16(0)
	if m.speakerOn {
		level += speakerWeight
	}
	if m.earOn {
		level += earWeight
	}

	m.tstateAccum += tStates * tstatesPerSampleDen
	for m.tstateAccum >= tstatesPerSampleNum {
		m.tstateAccum -= tstatesPerSampleNum
		m.pending = append(m.pending, level)
		m.lastSample = level
	}
}

// EndFrame merges this frame's pending samples into the buffer the
// host reads from, and clears pending for the next frame.
func (m *Mixer) EndFrame() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shared = append(m.shared, m.pending...)
	m.pending = m.pending[:0]
}

// ReadSamples copies up to len(buf) pending samples into buf and
// removes them from the shared buffer, returning the count copied. An
// underrun (nothing pending) holds the last sample rather than
// emitting silence, avoiding an audible click.
func (m *Mixer) ReadSamples(buf []int16) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := copy(buf, m.shared)
	m.shared = m.shared[n:]
	for i := n; i < len(buf); i++ {
		buf[i] = m.lastSample
	}
	return n
}

// MixerState is the serializable subset of Mixer a save state needs to
// resume mixing without an audible glitch: the two level bits and the
// fractional T-state accumulator. Buffered PCM samples themselves
// aren't carried since they're regenerated as the machine resumes
// running frames.
type MixerState struct {
	SpeakerOn   bool
	EarOn       bool
	TStateAccum int
	LastSample  int16
}

// State captures the Mixer's level/accumulator state for a save state.
func (m *Mixer) State() MixerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MixerState{
		SpeakerOn:   m.speakerOn,
		EarOn:       m.earOn,
		TStateAccum: m.tstateAccum,
		LastSample:  m.lastSample,
	}
}

// SetState restores level/accumulator state previously captured by State.
func (m *Mixer) SetState(s MixerState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speakerOn = s.SpeakerOn
	m.earOn = s.EarOn
	m.tstateAccum = s.TStateAccum
	m.lastSample = s.LastSample
}

// Reset clears all buffered audio and re-primes the silence prefill.
func (m *Mixer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = nil
	m.shared = make([]int16, SampleRate*45/1000)
	m.tstateAccum = 0
	m.lastSample = 0
	m.speakerOn = false
	m.earOn = false
}
