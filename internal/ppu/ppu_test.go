package ppu

import (
	"testing"

	"github.com/kestrelcore/goba/internal/interrupts"
	"github.com/kestrelcore/goba/internal/mmu"
)

func newTestPPU() (*PPU, *mmu.MMU) {
	m := mmu.New(interrupts.New())
	return New(m), m
}

func TestMode3RendersBitmap(t *testing.T) {
	p, m := newTestPPU()
	m.Write16(0x04000000, 3)    // DISPCNT mode 3
	m.Write16(0x06000000, 0x1F) // pure red in BGR555 (bits 0-4)

	p.Step(scanlineCycles)

	if got, want := p.Framebuffer()[0], uint32(0xFFF80000); got != want {
		t.Fatalf("unexpected pixel for red input: got %#08X want %#08X", got, want)
	}
}

func TestBackdropFallsBackWhenPaletteZero(t *testing.T) {
	p, m := newTestPPU()
	m.Write16(0x04000000, 0) // DISPCNT mode 0, all BGs disabled
	p.Step(scanlineCycles)
	if got := p.Framebuffer()[0]; got == 0xFF000000 {
		t.Fatalf("expected non-black fallback backdrop, got pure black")
	}
}

// TestVBlankIRQ checks that crossing scanline 159→160 with DISPSTAT's
// VBlank-IRQ-enable bit set raises IF bit 0.
func TestVBlankIRQ(t *testing.T) {
	p, m := newTestPPU()
	m.Write16(0x04000004, 1<<3) // DISPSTAT bit3: VBlank IRQ enable
	m.Write16(0x04000200, 1)    // IE bit0
	m.Write16(0x04000208, 1)    // IME

	for line := 0; line < ScreenHeight; line++ {
		p.Step(scanlineCycles)
	}

	if m.IF()&interrupts.VBlank == 0 {
		t.Fatalf("expected VBlank IF bit set after crossing into line 160")
	}
	if p.IsFrameReady() {
		t.Fatalf("frame should not be ready until all 228 scanlines complete")
	}
}

// TestHBlankFlagReadableMidScanline steps the dot clock across the
// HDRAW/HBLANK boundary and checks that a DISPSTAT read through the
// bus observes bit 1, in the visible band and during VBlank alike,
// and that the next line boundary clears it again.
func TestHBlankFlagReadableMidScanline(t *testing.T) {
	p, m := newTestPPU()

	if m.Read16(0x04000004)&(1<<1) != 0 {
		t.Fatalf("HBlank flag set during HDRAW")
	}
	p.Step(hdrawCycles)
	if m.Read16(0x04000004)&(1<<1) == 0 {
		t.Fatalf("HBlank flag not readable after crossing into HBlank")
	}
	p.Step(hblankCycles)
	if m.Read16(0x04000004)&(1<<1) != 0 {
		t.Fatalf("HBlank flag not cleared at the next line boundary")
	}

	// advance into the VBlank band and check the flag still toggles
	for line := 1; line < ScreenHeight+2; line++ {
		p.Step(scanlineCycles)
	}
	if m.Read16(0x04000004)&(1<<0) == 0 {
		t.Fatalf("expected VBlank flag set in the VBlank band")
	}
	p.Step(hdrawCycles)
	if m.Read16(0x04000004)&(1<<1) == 0 {
		t.Fatalf("HBlank flag not readable during VBlank")
	}
}

func TestFrameReadyAfterFullFrame(t *testing.T) {
	p, _ := newTestPPU()
	for line := 0; line < totalLines; line++ {
		p.Step(scanlineCycles)
	}
	if !p.IsFrameReady() {
		t.Fatalf("expected frame-ready after 228 scanlines")
	}
	p.ClearFrameReady()
	if p.IsFrameReady() {
		t.Fatalf("expected frame-ready cleared")
	}
}
