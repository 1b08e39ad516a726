package apu

import "github.com/kestrelcore/goba/internal/mmu"

// noiseState is the noise channel's LFSR and its clock accumulator.
// The accumulator is per-APU instance state, carried across generate
// calls, never shared between cores.
type noiseState struct {
	shift    uint16 // LFSR, seeded 0x7FFF on reset
	counter  uint32
	envelope uint8
}

// generate clocks the LFSR at period (divider==0 ? 8 : divider·16)<<shift
// and emits ±volume·256 from the register's low bit.
func (n *noiseState) generate(m *mmu.MMU) int16 {
	cntL := m.ReadRaw16(regSound4CNT_L)
	cntH := m.ReadRaw16(regSound4CNT_H)

	divider := uint32(cntH & 0x7)
	period := uint32(8)
	if divider != 0 {
		period = divider * 16
	}
	period <<= uint(cntH >> 4 & 0xF)

	n.counter += cyclesPerSample
	for n.counter >= period {
		n.counter -= period
		n.clock(cntH&(1<<3) != 0)
	}

	vol := n.volume(cntL)
	if n.shift&1 == 0 {
		return vol * 256
	}
	return -vol * 256
}

// clock advances the LFSR one step: the new top bit is the XOR of the
// two lowest bits, fed back into bit 6 (7-bit width) or bit 14
// (15-bit width).
func (n *noiseState) clock(width7 bool) {
	bit := (n.shift ^ n.shift>>1) & 1
	n.shift >>= 1
	if bit != 0 {
		if width7 {
			n.shift |= 1 << 6
		} else {
			n.shift |= 1 << 14
		}
	}
}

func (n *noiseState) volume(cntL uint16) int16 {
	if n.envelope != 0 {
		return int16(n.envelope)
	}
	return int16(cntL >> 12 & 0xF)
}
