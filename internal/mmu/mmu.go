// Package mmu implements the GBA's unified memory map: address
// decoding, region-specific width quirks (palette/VRAM/OAM/SRAM
// broadcast rules), the I/O register file, and backup storage. It is
// a passive data fabric; the CPU, PPU, timers, DMA and APU each hold
// a reference to it and pull the bytes they need; beyond the FIFO
// push callbacks the MMU does not call back into any of them.
package mmu

import (
	"github.com/kestrelcore/goba/internal/flash"
	"github.com/kestrelcore/goba/internal/interrupts"
	"github.com/kestrelcore/goba/internal/ram"
	"github.com/kestrelcore/goba/internal/types"
	"github.com/kestrelcore/goba/pkg/log"
)

// MMU is the GBA's memory-mapped I/O fabric.
type MMU struct {
	Log log.Logger

	IRQ *interrupts.Controller

	bios          []byte
	lastBIOSFetch uint32
	cpuPC         uint32

	ewram *ram.RAM
	iwram *ram.RAM

	io      [ioSize]byte
	palette [paletteSize]byte
	vram    [vramSize]byte
	oam     [oamSize]byte

	rom []byte

	backup *flash.Chip

	keyinput uint16

	fifoA, fifoB func(uint16)
}

// New returns a new MMU with zero-initialized memory. SRAM/Flash is
// the exception; flash.New fills it with 0xFF, the erased-flash
// convention.
func New(irq *interrupts.Controller) *MMU {
	m := &MMU{
		Log:      log.New(),
		IRQ:      irq,
		ewram:    ram.New(ewramSize),
		iwram:    ram.New(iwramSize),
		backup:   flash.New(sramLarge),
		keyinput: 0x3FF, // all buttons unpressed (active low)
	}
	m.backup.Log = m.Log
	return m
}

// SetBIOS installs the BIOS image. Reading the image off disk is the
// host's concern; the MMU only stores the bytes it is handed.
func (m *MMU) SetBIOS(data []byte) {
	m.bios = make([]byte, biosSize)
	n := len(data)
	if n > biosSize {
		n = biosSize
	}
	copy(m.bios, data[:n])
}

// ConnectAPU hands the MMU the APU's FIFO push callbacks. Stores to
// the direct-sound FIFO registers are queue pushes, not memory writes,
// so the bus forwards them instead of backing them in the I/O array.
func (m *MMU) ConnectAPU(pushA, pushB func(uint16)) {
	m.fifoA, m.fifoB = pushA, pushB
}

// Backup returns the SRAM/Flash backup chip behind region 0x0E-0x0F,
// used by the host to persist and restore save files.
func (m *MMU) Backup() *flash.Chip { return m.backup }

// NotifyPC records the CPU's current program counter. It is called
// once per CPU.Step before the fetch, and is used solely to decide
// whether a BIOS-region read should see real BIOS bytes or the
// open-bus "last fetched opcode" value.
func (m *MMU) NotifyPC(pc uint32) {
	m.cpuPC = pc
}

// Reset clears all RAM and I/O state, reinitializing SRAM/Flash to
// its erased-flash convention. The ROM and BIOS image are untouched;
// they are supplied once by the host, not by Reset.
func (m *MMU) Reset() {
	m.ewram = ram.New(ewramSize)
	m.iwram = ram.New(iwramSize)
	m.io = [ioSize]byte{}
	m.palette = [paletteSize]byte{}
	m.vram = [vramSize]byte{}
	m.oam = [oamSize]byte{}
	m.backup.Reset()
	m.keyinput = 0x3FF
	m.lastBIOSFetch = 0
	m.cpuPC = 0x08000000
	m.IRQ.IE, m.IRQ.IF, m.IRQ.IME = 0, 0, false
}

// Read8 reads one byte at the given address.
func (m *MMU) Read8(addr uint32) uint8 {
	switch nibble(addr) {
	case 0x00:
		return m.readBIOS8(addr)
	case 0x02:
		return m.ewram.Read8(addr & 0x3FFFF)
	case 0x03:
		return m.iwram.Read8(addr & 0x7FFF)
	case 0x04:
		return m.readIO8(addr)
	case 0x05:
		return m.palette[addr&0x3FF]
	case 0x06:
		return m.vram[vramOffset(addr)]
	case 0x07:
		return m.oam[addr&0x3FF]
	case 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D:
		return m.readROM8(addr)
	case 0x0E, 0x0F:
		return m.backup.Read(addr)
	default:
		return 0
	}
}

// Read16 reads one halfword. addr is truncated to a halfword boundary,
// matching real hardware's misalignment-masking behaviour.
func (m *MMU) Read16(addr uint32) uint16 {
	addr &^= 1
	switch nibble(addr) {
	case 0x00:
		return m.readBIOS16(addr)
	case 0x02:
		return uint16(m.ewram.Read8(addr&0x3FFFF)) | uint16(m.ewram.Read8((addr+1)&0x3FFFF))<<8
	case 0x03:
		return uint16(m.iwram.Read8(addr&0x7FFF)) | uint16(m.iwram.Read8((addr+1)&0x7FFF))<<8
	case 0x04:
		return m.readIO16(addr)
	case 0x05:
		return uint16(m.palette[addr&0x3FF]) | uint16(m.palette[(addr+1)&0x3FF])<<8
	case 0x06:
		off := vramOffset(addr)
		return uint16(m.vram[off]) | uint16(m.vram[vramOffset(addr+1)])<<8
	case 0x07:
		return uint16(m.oam[addr&0x3FF]) | uint16(m.oam[(addr+1)&0x3FF])<<8
	case 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D:
		return uint16(m.readROM8(addr)) | uint16(m.readROM8(addr+1))<<8
	case 0x0E, 0x0F:
		// 16-bit reads broadcast the addressed byte across both lanes.
		b := m.backup.Read(addr)
		return uint16(b) | uint16(b)<<8
	default:
		return 0
	}
}

// Read32 reads one word, little-endian, from two consecutive halfwords.
func (m *MMU) Read32(addr uint32) uint32 {
	addr &^= 3
	switch nibble(addr) {
	case 0x00:
		// Latch the whole word so an ARM fetch is what open-bus reads
		// return once PC has left the BIOS.
		if m.cpuPC < biosSize && len(m.bios) > 0 {
			v := uint32(m.readBIOS16(addr)) | uint32(m.readBIOS16(addr+2))<<16
			m.lastBIOSFetch = v
			return v
		}
		return m.lastBIOSFetch
	case 0x0E, 0x0F:
		b := m.backup.Read(addr)
		v := uint32(b)
		return v | v<<8 | v<<16 | v<<24
	default:
		lo := uint32(m.Read16(addr))
		hi := uint32(m.Read16(addr + 2))
		return lo | hi<<16
	}
}

// Write8 writes one byte at the given address.
func (m *MMU) Write8(addr uint32, v uint8) {
	switch nibble(addr) {
	case 0x02:
		m.ewram.Write8(addr&0x3FFFF, v)
	case 0x03:
		m.iwram.Write8(addr&0x7FFF, v)
	case 0x04:
		m.writeIO8(addr, v)
	case 0x05:
		// 8-bit writes broadcast to both bytes of the addressed halfword.
		half := addr &^ 1
		m.palette[half&0x3FF] = v
		m.palette[(half+1)&0x3FF] = v
	case 0x06:
		m.writeVRAM8(addr, v)
	case 0x07:
		// 8-bit writes to OAM are ignored entirely.
	case 0x0E, 0x0F:
		m.backup.Write(addr, v)
	}
}

// Write16 writes one halfword.
func (m *MMU) Write16(addr uint32, v uint16) {
	if n := nibble(addr); n == 0x0E || n == 0x0F {
		// Wide writes to SRAM/Flash keep only the byte addressed by
		// the access's low bit, taken from the corresponding lane of v.
		m.backup.Write(addr, uint8(v>>((addr&1)*8)))
		return
	}
	addr &^= 1
	switch nibble(addr) {
	case 0x02:
		m.ewram.Write8(addr&0x3FFFF, uint8(v))
		m.ewram.Write8((addr+1)&0x3FFFF, uint8(v>>8))
	case 0x03:
		m.iwram.Write8(addr&0x7FFF, uint8(v))
		m.iwram.Write8((addr+1)&0x7FFF, uint8(v>>8))
	case 0x04:
		m.writeIO16(addr, v)
	case 0x05:
		m.palette[addr&0x3FF] = uint8(v)
		m.palette[(addr+1)&0x3FF] = uint8(v >> 8)
	case 0x06:
		off := vramOffset(addr)
		m.vram[off] = uint8(v)
		m.vram[vramOffset(addr+1)] = uint8(v >> 8)
	case 0x07:
		m.oam[addr&0x3FF] = uint8(v)
		m.oam[(addr+1)&0x3FF] = uint8(v >> 8)
	}
}

// Write32 writes one word as two consecutive halfwords.
func (m *MMU) Write32(addr uint32, v uint32) {
	if n := nibble(addr); n == 0x0E || n == 0x0F {
		m.backup.Write(addr, uint8(v>>((addr&3)*8)))
		return
	}
	addr &^= 3
	m.Write16(addr, uint16(v))
	m.Write16(addr+2, uint16(v>>16))
}

// vramOffset folds a VRAM address into the real 0x18000-byte region,
// mirroring every 128 KiB and then folding the top 32 KiB of that
// mirror back down by 0x8000.
func vramOffset(addr uint32) uint32 {
	off := addr & (vramSlot - 1)
	if off >= vramSize {
		off -= 0x8000
	}
	return off
}

func (m *MMU) readBIOS8(addr uint32) uint8 {
	if m.cpuPC < biosSize && len(m.bios) > 0 {
		v := m.bios[addr&(biosSize-1)]
		return v
	}
	return uint8(m.lastBIOSFetch)
}

func (m *MMU) readBIOS16(addr uint32) uint16 {
	if m.cpuPC < biosSize && len(m.bios) > 0 {
		v := uint16(m.bios[addr&(biosSize-1)]) | uint16(m.bios[(addr+1)&(biosSize-1)])<<8
		m.lastBIOSFetch = uint32(v)
		return v
	}
	return uint16(m.lastBIOSFetch)
}

func (m *MMU) writeVRAM8(addr uint32, v uint8) {
	off := vramOffset(addr)
	bound := vramBoundTile
	if bg := m.bgMode(); bg == 3 || bg == 4 || bg == 5 {
		bound = vramBoundBitmap
	}
	if off >= uint32(bound) {
		// OBJ tile area: 8-bit writes are ignored.
		return
	}
	// BG tile/screen area: 8-bit writes broadcast like palette.
	half := off &^ 1
	m.vram[half] = v
	m.vram[half+1] = v
}

func (m *MMU) bgMode() uint16 {
	return m.DISPCNT() & 0x7
}

var _ types.Stater = (*MMU)(nil)

// Save writes the full MMU state (RAM, I/O, VRAM/OAM/palette, backup
// storage) to the snapshot.
func (m *MMU) Save(s *types.State) {
	m.ewram.Save(s)
	m.iwram.Save(s)
	s.WriteData(m.io[:])
	s.WriteData(m.palette[:])
	s.WriteData(m.vram[:])
	s.WriteData(m.oam[:])
	s.Write16(m.keyinput)
	s.Write32(m.lastBIOSFetch)
	m.backup.Save(s)
	m.IRQ.Save(s)
}

// Load restores MMU state previously written by Save. ROM and BIOS
// contents are not part of the snapshot; the host is expected to
// have already loaded the same cartridge image.
func (m *MMU) Load(s *types.State) {
	m.ewram.Load(s)
	m.iwram.Load(s)
	s.ReadData(m.io[:])
	s.ReadData(m.palette[:])
	s.ReadData(m.vram[:])
	s.ReadData(m.oam[:])
	m.keyinput = s.Read16()
	m.lastBIOSFetch = s.Read32()
	m.backup.Load(s)
	m.IRQ.Load(s)
}
