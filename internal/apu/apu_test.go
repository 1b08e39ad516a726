package apu

import (
	"testing"

	"github.com/kestrelcore/goba/internal/interrupts"
	"github.com/kestrelcore/goba/internal/mmu"
)

func newTestAPU() (*APU, *mmu.MMU) {
	m := mmu.New(interrupts.New())
	return New(m), m
}

func TestSampleCadence(t *testing.T) {
	a, _ := newTestAPU()
	a.Step(cyclesPerSample*3 + 1)
	if got := len(a.SampleBuffer()); got != 6 {
		t.Fatalf("expected 3 stereo samples (6 values), got %d", got)
	}
}

func TestMasterDisableSilences(t *testing.T) {
	a, m := newTestAPU()
	m.WriteRaw16(regSound1CNT_H, 0xF000) // full volume square 1
	m.WriteRaw16(regSoundCNT_L, 0xFF77)  // all channels, max volumes
	a.Step(cyclesPerSample)
	for i, s := range a.SampleBuffer() {
		if s != 0 {
			t.Fatalf("sample %d: got %d want 0 with master disabled", i, s)
		}
	}
}

func TestSquareChannelProducesOutput(t *testing.T) {
	a, m := newTestAPU()
	m.WriteRaw16(regSoundCNT_X, 1<<7)    // master enable
	m.WriteRaw16(regSoundCNT_L, 0x1177)  // ch1 both sides, max volumes
	m.WriteRaw16(regSound1CNT_H, 0xF080) // volume 15, 50% duty
	m.WriteRaw16(regSound1CNT_X, 0x0400) // mid-range frequency

	a.Step(cyclesPerSample * 16)
	var nonZero bool
	for _, s := range a.SampleBuffer() {
		if s != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Fatalf("expected square output, all samples zero")
	}
}

func TestSquareAmplitudeIsVolumeTimes256(t *testing.T) {
	var s squareState
	m := mmu.New(interrupts.New())
	m.WriteRaw16(regSound1CNT_H, 0x7000) // volume 7
	m.WriteRaw16(regSound1CNT_X, 0)      // slowest frequency, period 8192

	got := s.generate(m, regSound1CNT_H, regSound1CNT_X)
	if got != 7*256 && got != -7*256 {
		t.Fatalf("amplitude: got %d want ±%d", got, 7*256)
	}
}

func TestFIFOPopsOneBytePerSample(t *testing.T) {
	a, m := newTestAPU()
	m.WriteRaw16(regSoundCNT_X, 1<<7)
	m.WriteRaw16(regSoundCNT_H, 0x0300) // FIFO A to both sides

	a.PushFIFOA(0x00000040) // first byte 0x40, then three zeros
	a.Step(cyclesPerSample)

	samples := a.SampleBuffer()
	if len(samples) != 2 {
		t.Fatalf("expected one stereo sample, got %d values", len(samples))
	}
	if samples[0] != 0x40*256 || samples[1] != 0x40*256 {
		t.Fatalf("fifo sample: got L=%d R=%d want %d", samples[0], samples[1], 0x40*256)
	}

	a.ClearSampleBuffer()
	a.Step(cyclesPerSample)
	if got := a.SampleBuffer()[0]; got != 0 {
		t.Fatalf("second sample should pop the next (zero) byte, got %d", got)
	}
}

func TestFIFOHalfwordPushOrdering(t *testing.T) {
	a, _ := newTestAPU()
	a.PushFIFOB16(0x2211)
	if got := a.fifoB.pop(); got != 0x11 {
		t.Fatalf("first byte: got %02X want 11", got)
	}
	if got := a.fifoB.pop(); got != 0x22 {
		t.Fatalf("second byte: got %02X want 22", got)
	}
}

func TestFIFOOverflowDropsWrites(t *testing.T) {
	a, _ := newTestAPU()
	for i := 0; i < 10; i++ {
		a.PushFIFOA(0x01010101)
	}
	if a.fifoA.count != fifoDepth {
		t.Fatalf("fifo depth: got %d want %d", a.fifoA.count, fifoDepth)
	}
}

func TestNoiseLFSRSequence(t *testing.T) {
	n := noiseState{shift: 0x7FFF}
	seen := map[uint16]bool{}
	for i := 0; i < 100; i++ {
		n.clock(false)
		seen[n.shift] = true
	}
	if len(seen) < 50 {
		t.Fatalf("LFSR cycling too short: %d distinct states in 100 clocks", len(seen))
	}
	if n.shift == 0 {
		t.Fatalf("LFSR must never reach the all-zero lock-up state")
	}
}

func TestMixSaturates(t *testing.T) {
	if got := saturate(40000); got != 32767 {
		t.Fatalf("positive clamp: got %d", got)
	}
	if got := saturate(-40000); got != -32768 {
		t.Fatalf("negative clamp: got %d", got)
	}
}

func TestResetSeedsLFSRAndClearsFIFOs(t *testing.T) {
	a, _ := newTestAPU()
	a.PushFIFOA(0x12345678)
	a.Reset()
	if a.noise.shift != 0x7FFF {
		t.Fatalf("LFSR seed: got %04X want 7FFF", a.noise.shift)
	}
	if a.fifoA.count != 0 {
		t.Fatalf("fifo not cleared on reset")
	}
}
