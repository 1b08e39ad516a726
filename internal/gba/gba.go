// Package gba wires the emulator core together and exposes the
// host-facing surface: ROM loading, frame stepping, the framebuffer,
// button input, audio samples, save persistence and save states.
package gba

import (
	"fmt"

	"github.com/kestrelcore/goba/internal/apu"
	"github.com/kestrelcore/goba/internal/cpu"
	"github.com/kestrelcore/goba/internal/dma"
	"github.com/kestrelcore/goba/internal/interrupts"
	"github.com/kestrelcore/goba/internal/joypad"
	"github.com/kestrelcore/goba/internal/mmu"
	"github.com/kestrelcore/goba/internal/ppu"
	"github.com/kestrelcore/goba/internal/telemetry"
	"github.com/kestrelcore/goba/internal/timer"
	"github.com/kestrelcore/goba/pkg/log"
	"github.com/spf13/afero"
)

// GBA is the assembled emulator core. All components share one MMU;
// everything runs on the caller's goroutine.
type GBA struct {
	CPU        *cpu.CPU
	MMU        *mmu.MMU
	PPU        *ppu.PPU
	APU        *apu.APU
	Timer      *timer.Controller
	DMA        *dma.Controller
	Joypad     *joypad.State
	Interrupts *interrupts.Controller

	log.Logger

	fs        afero.Fs
	telemetry *telemetry.Server
	frames    uint64
}

// New returns an assembled GBA. ROM and BIOS images are installed
// separately (LoadROM / the WithBIOS option).
func New(opts ...Opt) *GBA {
	irq := interrupts.New()
	bus := mmu.New(irq)
	video := ppu.New(bus)
	sound := apu.New(bus)
	channels := dma.New(bus)

	g := &GBA{
		CPU:        cpu.New(bus),
		MMU:        bus,
		PPU:        video,
		APU:        sound,
		Timer:      timer.New(bus),
		DMA:        channels,
		Joypad:     joypad.New(bus),
		Interrupts: irq,
		Logger:     log.New(),
		fs:         afero.NewOsFs(),
	}

	bus.ConnectAPU(sound.PushFIFOA16, sound.PushFIFOB16)
	video.OnVBlank(channels.TriggerVBlank)
	video.OnHBlank(channels.TriggerHBlank)

	for _, opt := range opts {
		opt(g)
	}
	return g
}

// LoadROM reads a cartridge image from disk into ROM storage and
// resets the core.
func (g *GBA) LoadROM(path string) error {
	data, err := loadFile(g.fs, path)
	if err != nil {
		return fmt.Errorf("load rom: %w", err)
	}
	g.MMU.SetROM(data)
	g.Reset()
	g.Infof("gba: loaded %d byte rom from %s", g.MMU.ROMSize(), path)
	return nil
}

// LoadROMBytes installs an already-loaded cartridge image and resets
// the core. Used by hosts that source the image themselves.
func (g *GBA) LoadROMBytes(data []byte) {
	g.MMU.SetROM(data)
	g.Reset()
}

// Reset restores every component to power-on state. Component reset
// order is immaterial once the MMU's memory clear has run first.
func (g *GBA) Reset() {
	g.MMU.Reset()
	g.CPU.Reset()
	g.PPU.Reset()
	g.Timer.Reset()
	g.DMA.Reset()
	g.APU.Reset()
	g.frames = 0
}

// RunFrame executes the interleaved step loop until the PPU signals
// frame-ready: one CPU instruction, then one tick each for the
// timers, DMA poll, APU and PPU, then the IRQ check, so a store to IF
// is observed by the very next check.
func (g *GBA) RunFrame() {
	g.PPU.ClearFrameReady()
	for !g.PPU.IsFrameReady() {
		g.CPU.Step()
		g.Timer.Step()
		g.DMA.Step()
		g.APU.Step(1)
		g.PPU.Step(1)
		g.CPU.CheckIRQ()
	}
	g.frames++

	if g.telemetry != nil {
		g.telemetry.Broadcast(g.Snapshot())
	}
}

// Framebuffer returns the live 240×160 ARGB8888 buffer. Hosts must
// only read it between RunFrame calls.
func (g *GBA) Framebuffer() *[ppu.ScreenWidth * ppu.ScreenHeight]uint32 {
	return g.PPU.Framebuffer()
}

// IsFrameReady and ClearFrameReady expose the PPU's frame edge for
// poll-based hosts.
func (g *GBA) IsFrameReady() bool { return g.PPU.IsFrameReady() }

// ClearFrameReady resets the PPU's frame-ready latch.
func (g *GBA) ClearFrameReady() { g.PPU.ClearFrameReady() }

// UpdateKey presses or releases button id (0..9).
func (g *GBA) UpdateKey(id int, pressed bool) { g.Joypad.UpdateKey(id, pressed) }

// SampleBuffer returns the interleaved stereo samples accumulated
// since the last ClearSampleBuffer.
func (g *GBA) SampleBuffer() []int16 { return g.APU.SampleBuffer() }

// ClearSampleBuffer drops all buffered audio samples.
func (g *GBA) ClearSampleBuffer() { g.APU.ClearSampleBuffer() }

// Frames returns the number of frames run since the last Reset.
func (g *GBA) Frames() uint64 { return g.frames }

// Snapshot collects the debug state pushed over telemetry after each
// frame.
func (g *GBA) Snapshot() telemetry.Snapshot {
	return telemetry.Snapshot{
		PC:     g.CPU.PC(),
		CPSR:   g.CPU.CPSR(),
		VCount: g.MMU.VCOUNT(),
		IE:     g.MMU.IE(),
		IF:     g.MMU.IF(),
		IME:    g.MMU.IME(),
		Cycles: g.CPU.Cycles(),
		Frames: g.frames,
	}
}
