// Package ppu implements the GBA's scanline-driven pixel processing
// unit: the 1232-cycle/228-line frame clock, a mode-0 tile background
// renderer, bitmap modes 3/4/5, and an OAM sprite compositor. Affine
// backgrounds and sprites, windowing, mosaic and blending are not
// rendered.
package ppu

import (
	"github.com/kestrelcore/goba/internal/mmu"
	"github.com/kestrelcore/goba/internal/types"
)

// ScreenWidth and ScreenHeight are the GBA's visible resolution.
const (
	ScreenWidth  = 240
	ScreenHeight = 160
)

const (
	hdrawCycles    = 960
	hblankCycles   = 272
	scanlineCycles = hdrawCycles + hblankCycles
	totalLines     = 228
)

const (
	dispcntObjEnable = 1 << 12
)

// PPU owns the scanline clock and the 240×160 ARGB8888 framebuffer.
type PPU struct {
	m *mmu.MMU

	dot      int
	scanline int

	frameReady bool

	framebuffer [ScreenWidth * ScreenHeight]uint32

	vblankEntered func()
	hblankEntered func()
}

// New returns a new PPU bound to m's display registers.
func New(m *mmu.MMU) *PPU {
	p := &PPU{m: m}
	p.framebuffer = blankFrame()
	return p
}

func blankFrame() [ScreenWidth * ScreenHeight]uint32 {
	var fb [ScreenWidth * ScreenHeight]uint32
	for i := range fb {
		fb[i] = 0xFF000000
	}
	return fb
}

// Reset clears the scanline clock and framebuffer.
func (p *PPU) Reset() {
	p.dot = 0
	p.scanline = 0
	p.frameReady = false
	p.framebuffer = blankFrame()
}

// OnVBlank installs a callback invoked once per frame when the
// scanline clock crosses into VBlank (line 159→160), used by the host
// driver to fire DMA's VBlank-timed channels.
func (p *PPU) OnVBlank(fn func()) { p.vblankEntered = fn }

// OnHBlank installs a callback invoked every scanline when the
// scanline clock crosses into the HBlank period, used by the host
// driver to fire DMA's HBlank-timed channels.
func (p *PPU) OnHBlank(fn func()) { p.hblankEntered = fn }

// Step advances the scanline clock by cycles. Crossing a scanline
// boundary renders the outgoing line (if visible), updates VCOUNT,
// recomputes DISPSTAT, and raises the VBlank IRQ on entry.
func (p *PPU) Step(cycles int) {
	wasHBlank := p.dot >= hdrawCycles
	p.dot += cycles

	for p.dot >= scanlineCycles {
		p.dot -= scanlineCycles

		if p.scanline < ScreenHeight {
			p.renderScanline()
		}

		p.scanline++
		enteredVBlank := p.scanline == ScreenHeight
		if p.scanline >= totalLines {
			p.scanline = 0
			p.frameReady = true
		}

		p.m.SetVCOUNT(uint16(p.scanline))
		p.updateDISPSTAT(enteredVBlank)

		if enteredVBlank && p.vblankEntered != nil {
			p.vblankEntered()
		}
	}

	// The HBlank flag toggles every 1232-cycle period regardless of
	// which line band the scanline is in, so publish the DISPSTAT bit
	// and fire the HBlank callback the instant dot crosses into the
	// HBlank window, independent of the line-boundary loop above
	// (which only runs, and clears the bit, at the next line start).
	isHBlank := p.dot >= hdrawCycles
	if isHBlank && !wasHBlank {
		p.m.SetHBlankFlag(true)
		if p.hblankEntered != nil {
			p.hblankEntered()
		}
		if p.m.DISPSTAT()&(1<<4) != 0 {
			p.m.RequestInterrupt(1 << 1)
		}
	}
}

func (p *PPU) updateDISPSTAT(enteredVBlank bool) {
	vblank := p.scanline >= ScreenHeight
	hblank := p.dot >= hdrawCycles
	compare := uint8(p.m.DISPSTAT() >> 8)
	vcountMatch := uint8(p.scanline) == compare

	p.m.SetDISPSTAT(vblank, hblank, vcountMatch)

	if enteredVBlank && p.m.DISPSTAT()&(1<<3) != 0 {
		p.m.RequestInterrupt(1 << 0)
	}
	if vcountMatch && p.m.DISPSTAT()&(1<<5) != 0 {
		p.m.RequestInterrupt(1 << 2)
	}
}

// IsFrameReady reports whether a full frame has completed since the
// last ClearFrameReady.
func (p *PPU) IsFrameReady() bool { return p.frameReady }

// ClearFrameReady resets the frame-ready latch.
func (p *PPU) ClearFrameReady() { p.frameReady = false }

// Framebuffer returns the live 240×160 ARGB8888 pixel buffer.
func (p *PPU) Framebuffer() *[ScreenWidth * ScreenHeight]uint32 { return &p.framebuffer }

func (p *PPU) setPixel(x, y int, c uint32) {
	p.framebuffer[y*ScreenWidth+x] = c
}

func (p *PPU) renderScanline() {
	mode := p.m.DISPCNT() & 0x7
	switch mode {
	case 0:
		p.renderMode0()
	case 3:
		p.renderMode3()
	case 4:
		p.renderMode4()
	case 5:
		p.renderMode5()
	default:
		for x := 0; x < ScreenWidth; x++ {
			p.setPixel(x, p.scanline, 0xFF000000)
		}
	}

	if p.m.DISPCNT()&dispcntObjEnable != 0 {
		p.renderSprites()
	}
}

func (p *PPU) renderMode3() {
	for x := 0; x < ScreenWidth; x++ {
		addr := uint32(0x06000000) + uint32(p.scanline*ScreenWidth+x)*2
		p.setPixel(x, p.scanline, rgb15to32(p.m.Read16(addr)))
	}
}

func (p *PPU) renderMode4() {
	base := uint32(0x06000000)
	if p.m.DISPCNT()&(1<<4) != 0 {
		base += 0xA000
	}
	for x := 0; x < ScreenWidth; x++ {
		index := p.m.Read8(base + uint32(p.scanline*ScreenWidth+x))
		p.setPixel(x, p.scanline, rgb15to32(p.paletteColor(uint32(index))))
	}
}

const (
	mode5Width  = 160
	mode5Height = 128
)

func (p *PPU) renderMode5() {
	base := uint32(0x06000000)
	if p.m.DISPCNT()&(1<<4) != 0 {
		base += 0xA000
	}
	for x := 0; x < ScreenWidth; x++ {
		if p.scanline >= mode5Height || x >= mode5Width {
			p.setPixel(x, p.scanline, 0xFF000000)
			continue
		}
		addr := base + uint32(p.scanline*mode5Width+x)*2
		p.setPixel(x, p.scanline, rgb15to32(p.m.Read16(addr)))
	}
}

// paletteColor reads 16-bit palette entry index (0-511; BG occupies
// 0-255, OBJ 256-511) from palette RAM.
func (p *PPU) paletteColor(index uint32) uint16 {
	return p.m.Read16(0x05000000 + index*2)
}

// rgb15to32 expands a BGR555 palette entry into opaque ARGB8888: each
// 5-bit channel widens to 8 bits by a left shift of 3, discarding the
// low 3 bits rather than replicating them.
func rgb15to32(c uint16) uint32 {
	r := uint32(c&0x1F) << 3
	g := uint32((c>>5)&0x1F) << 3
	b := uint32((c>>10)&0x1F) << 3
	return 0xFF000000 | r<<16 | g<<8 | b
}

// backdropColor returns the mode-0 backdrop color, falling back to a
// dark-but-not-black constant when palette entry 0 is still zeroed
// (e.g. before the game has written a real backdrop), so a blank
// screen is visibly distinguishable from a rendering bug.
func (p *PPU) backdropColor() uint32 {
	raw := p.paletteColor(0)
	if raw == 0 {
		return 0xFF202020
	}
	return rgb15to32(raw)
}

var _ types.Stater = (*PPU)(nil)

// Save writes the scanline clock and frame-ready latch. The
// framebuffer itself is not persisted; it is fully reconstructed by
// the next rendered frame.
func (p *PPU) Save(s *types.State) {
	s.Write32(uint32(p.dot))
	s.Write32(uint32(p.scanline))
	s.WriteBool(p.frameReady)
}

// Load restores state previously written by Save.
func (p *PPU) Load(s *types.State) {
	p.dot = int(s.Read32())
	p.scanline = int(s.Read32())
	p.frameReady = s.ReadBool()
}
