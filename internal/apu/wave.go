package apu

import "github.com/kestrelcore/goba/internal/mmu"

// waveState clocks the wave channel at period (2048−freq)·2. Full
// wave-RAM playback is simplified to a single-level output scaled by
// the volume code.
type waveState struct {
	phase uint32
}

// waveLevel is the unscaled single-level output substituted for real
// wave RAM playback.
const waveLevel = 2048

func (w *waveState) generate(m *mmu.MMU) int16 {
	if m.ReadRaw16(regSound3CNT_L)&(1<<7) == 0 {
		// channel playback stopped
		return 0
	}

	freq := uint32(m.ReadRaw16(regSound3CNT_X)) & 0x7FF
	w.phase = (w.phase + cyclesPerSample) % ((2048 - freq) * 2)

	// volume code: 0=mute, 1=full, 2=half, 3=quarter.
	switch m.ReadRaw16(regSound3CNT_H) >> 13 & 0x3 {
	case 0:
		return 0
	case 1:
		return waveLevel
	case 2:
		return waveLevel / 2
	default:
		return waveLevel / 4
	}
}
