// Package apu implements the GBA's audio mixer: four PSG channels
// (two square, one programmable wave, one noise) plus two direct-
// sound FIFOs, resampled into a stereo int16 stream. The mixer lives
// here; each generator family has its own file (square.go, wave.go,
// noise.go).
package apu

import (
	"github.com/kestrelcore/goba/internal/mmu"
	"github.com/kestrelcore/goba/internal/types"
)

// Sound register offsets relative to 0x04000000.
const (
	regSound1CNT_L = 0x60
	regSound1CNT_H = 0x62
	regSound1CNT_X = 0x64
	regSound2CNT_L = 0x68
	regSound2CNT_H = 0x6C
	regSound3CNT_L = 0x70
	regSound3CNT_H = 0x72
	regSound3CNT_X = 0x74
	regSound4CNT_L = 0x78
	regSound4CNT_H = 0x7C
	regSoundCNT_L  = 0x80
	regSoundCNT_H  = 0x82
	regSoundCNT_X  = 0x84
	regWaveRAM     = 0x90
	regFIFOA       = 0xA0
	regFIFOB       = 0xA4
)

const (
	cyclesPerSample = 512
	fifoDepth       = 32
)

// APU owns the four PSG generators' phase state and the two direct-
// sound FIFOs, emitting one stereo sample every 512 system cycles.
type APU struct {
	m *mmu.MMU

	cycleCounter int

	square1, square2 squareState
	wave             waveState
	noise            noiseState

	fifoA, fifoB fifo

	samples []int16
}

type fifo struct {
	buf   [fifoDepth]int8
	head  int
	count int
}

func (f *fifo) push(b byte) {
	if f.count >= fifoDepth {
		return
	}
	f.buf[(f.head+f.count)%fifoDepth] = int8(b)
	f.count++
}

func (f *fifo) pop() int8 {
	if f.count == 0 {
		return 0
	}
	v := f.buf[f.head]
	f.head = (f.head + 1) % fifoDepth
	f.count--
	return v
}

// New returns a new APU bound to m's sound registers.
func New(m *mmu.MMU) *APU {
	a := &APU{m: m}
	a.Reset()
	return a
}

// Reset clears all channel phase state, the FIFOs and the pending
// sample buffer.
func (a *APU) Reset() {
	*a = APU{m: a.m}
	a.noise.shift = 0x7FFF
}

// PushFIFOA appends one 32-bit word (four bytes, low byte first) to
// FIFO A. Bus stores to 0x040000A0, including DMA transfers, arrive
// through PushFIFOA16 instead.
func (a *APU) PushFIFOA(word uint32) { pushWord(&a.fifoA, word) }

// PushFIFOB appends one 32-bit word to FIFO B, targeting 0x040000A4.
func (a *APU) PushFIFOB(word uint32) { pushWord(&a.fifoB, word) }

// PushFIFOA16 and PushFIFOB16 are the halfword entry points the MMU
// routes FIFO register writes through; the bus splits a 32-bit store
// into two halfword writes, each carrying two sample bytes.
func (a *APU) PushFIFOA16(v uint16) { pushHalf(&a.fifoA, v) }

// PushFIFOB16 appends one halfword (two bytes) to FIFO B.
func (a *APU) PushFIFOB16(v uint16) { pushHalf(&a.fifoB, v) }

func pushWord(f *fifo, word uint32) {
	for i := 0; i < 4; i++ {
		f.push(byte(word >> (i * 8)))
	}
}

func pushHalf(f *fifo, v uint16) {
	f.push(byte(v))
	f.push(byte(v >> 8))
}

// Step advances the sample clock by cycles, emitting a stereo sample
// into the internal buffer every 512 cycles.
func (a *APU) Step(cycles int) {
	a.cycleCounter += cycles
	for a.cycleCounter >= cyclesPerSample {
		a.cycleCounter -= cyclesPerSample
		a.generateSample()
	}
}

// SampleBuffer returns the interleaved stereo samples accumulated
// since the last ClearSampleBuffer. The host drains and clears it
// between frames.
func (a *APU) SampleBuffer() []int16 { return a.samples }

// ClearSampleBuffer drops all buffered samples.
func (a *APU) ClearSampleBuffer() { a.samples = a.samples[:0] }

func (a *APU) masterEnabled() bool {
	return a.m.ReadRaw16(regSoundCNT_X)&(1<<7) != 0
}

func (a *APU) generateSample() {
	if !a.masterEnabled() {
		a.samples = append(a.samples, 0, 0)
		return
	}

	sq1 := a.square1.generate(a.m, regSound1CNT_H, regSound1CNT_X)
	sq2 := a.square2.generate(a.m, regSound2CNT_L, regSound2CNT_H)
	wv := a.wave.generate(a.m)
	ns := a.noise.generate(a.m)

	// SOUNDCNT_L: bits 0-2 right master volume, 4-6 left master
	// volume, 8-11 per-channel right enables, 12-15 left enables.
	cntL := a.m.ReadRaw16(regSoundCNT_L)
	psg := [4]int32{int32(sq1), int32(sq2), int32(wv), int32(ns)}
	var leftPSG, rightPSG int32
	for ch := 0; ch < 4; ch++ {
		if cntL&(1<<(8+ch)) != 0 {
			rightPSG += psg[ch]
		}
		if cntL&(1<<(12+ch)) != 0 {
			leftPSG += psg[ch]
		}
	}

	leftVol := int32(cntL>>4) & 0x7
	rightVol := int32(cntL) & 0x7
	leftPSG = leftPSG * (leftVol + 1) / 8
	rightPSG = rightPSG * (rightVol + 1) / 8

	fifoASample := int32(a.fifoA.pop()) * 256
	fifoBSample := int32(a.fifoB.pop()) * 256

	cntH := a.m.ReadRaw16(regSoundCNT_H)
	left, right := leftPSG, rightPSG
	if cntH&0x200 != 0 {
		left += fifoASample
	}
	if cntH&0x100 != 0 {
		right += fifoASample
	}
	if cntH&0x2000 != 0 {
		left += fifoBSample
	}
	if cntH&0x1000 != 0 {
		right += fifoBSample
	}

	a.samples = append(a.samples, saturate(left), saturate(right))
}

func saturate(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

var _ types.Stater = (*APU)(nil)

// Save writes the generators' phase state and the FIFO contents. The
// pending sample buffer is not persisted; the host drains it between
// frames anyway.
func (a *APU) Save(s *types.State) {
	s.Write32(uint32(a.cycleCounter))
	s.Write32(a.square1.phase)
	s.Write8(a.square1.envelope)
	s.Write32(a.square2.phase)
	s.Write8(a.square2.envelope)
	s.Write32(a.wave.phase)
	s.Write16(a.noise.shift)
	s.Write32(a.noise.counter)
	s.Write8(a.noise.envelope)
	saveFIFO(s, &a.fifoA)
	saveFIFO(s, &a.fifoB)
}

// Load restores state previously written by Save.
func (a *APU) Load(s *types.State) {
	a.cycleCounter = int(s.Read32())
	a.square1.phase = s.Read32()
	a.square1.envelope = s.Read8()
	a.square2.phase = s.Read32()
	a.square2.envelope = s.Read8()
	a.wave.phase = s.Read32()
	a.noise.shift = s.Read16()
	a.noise.counter = s.Read32()
	a.noise.envelope = s.Read8()
	loadFIFO(s, &a.fifoA)
	loadFIFO(s, &a.fifoB)
	a.samples = a.samples[:0]
}

func saveFIFO(s *types.State, f *fifo) {
	s.Write32(uint32(f.head))
	s.Write32(uint32(f.count))
	for i := range f.buf {
		s.Write8(uint8(f.buf[i]))
	}
}

func loadFIFO(s *types.State, f *fifo) {
	f.head = int(s.Read32())
	f.count = int(s.Read32())
	for i := range f.buf {
		f.buf[i] = int8(s.Read8())
	}
}
