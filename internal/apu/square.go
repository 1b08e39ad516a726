package apu

import "github.com/kestrelcore/goba/internal/mmu"

// squareState is the per-channel phase/envelope state shared by the
// two square generators. The duty/envelope register and the frequency
// register are passed in by the caller since channel 1 and channel 2
// lay them out at different offsets (channel 1 carries an extra sweep
// register the mixer ignores).
type squareState struct {
	phase    uint32
	envelope uint8
}

// generate produces the channel's contribution to the current sample:
// a square wave with period (2048−freq)·4 cycles, high for the duty
// fraction of the period and low for the rest, at amplitude
// ±volume·256.
func (s *squareState) generate(m *mmu.MMU, ctrlOff, freqOff uint32) int16 {
	ctrl := m.ReadRaw16(ctrlOff)
	freq := uint32(m.ReadRaw16(freqOff)) & 0x7FF
	period := (2048 - freq) * 4

	s.phase = (s.phase + cyclesPerSample) % period

	vol := s.volume(ctrl)
	if s.phase < dutyThreshold(period, ctrl>>6&0x3) {
		return vol * 256
	}
	return -vol * 256
}

// volume returns the envelope's current value, falling back to the
// register's initial-volume nibble when no envelope step has run yet.
func (s *squareState) volume(ctrl uint16) int16 {
	if s.envelope != 0 {
		return int16(s.envelope)
	}
	return int16(ctrl >> 12 & 0xF)
}

// dutyThreshold maps the 2-bit duty code to the phase threshold below
// which the output is high: 1/8, 1/4, 1/2 or 3/4 of the period.
func dutyThreshold(period uint32, duty uint16) uint32 {
	switch duty {
	case 0:
		return period / 8
	case 1:
		return period / 4
	case 2:
		return period / 2
	default:
		return period * 3 / 4
	}
}
