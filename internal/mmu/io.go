package mmu

// I/O register offsets, relative to 0x04000000.
const (
	regDISPCNT  = 0x000
	regDISPSTAT = 0x004
	regVCOUNT   = 0x006
	regBG0CNT   = 0x008
	regBG0HOFS  = 0x010
	regBG0VOFS  = 0x012
	regKEYINPUT = 0x130
	regIE       = 0x200
	regIF       = 0x202
	regIME      = 0x208

	regFIFOA = 0x0A0
	regFIFOB = 0x0A4
)

// bgCNTOffset and bgOFSOffset return the register offset for
// background i's control/scroll registers.
func bgCNTOffset(i int) uint32  { return regBG0CNT + uint32(i)*2 }
func bgHOFSOffset(i int) uint32 { return regBG0HOFS + uint32(i)*4 }
func bgVOFSOffset(i int) uint32 { return regBG0VOFS + uint32(i)*4 }

func (m *MMU) rawIO16(off uint32) uint16 {
	off &= ioSize - 2
	return uint16(m.io[off]) | uint16(m.io[off+1])<<8
}

func (m *MMU) setRawIO16(off uint32, v uint16) {
	off &= ioSize - 2
	m.io[off] = uint8(v)
	m.io[off+1] = uint8(v >> 8)
}

// readIO8/16 and writeIO8/16 implement region 0x04's dispatch: a few
// named halfwords carry special semantics (IE/IF/IME backed by the
// interrupt controller with IF write-1-to-clear, KEYINPUT's live
// shadow, the FIFO push registers), everything else is a flat, byte-addressable
// backing array that the timer/DMA/APU/PPU components poll directly.
func (m *MMU) readIO8(addr uint32) uint8 {
	off := addr & (ioSize - 1)
	v := m.readIO16(addr &^ 1)
	if off&1 == 1 {
		return uint8(v >> 8)
	}
	return uint8(v)
}

func (m *MMU) writeIO8(addr uint32, v uint8) {
	off := addr & (ioSize - 1)
	cur := m.readIO16(addr &^ 1)
	if off&1 == 1 {
		cur = cur&0x00FF | uint16(v)<<8
	} else {
		cur = cur&0xFF00 | uint16(v)
	}
	m.writeIO16(addr&^1, cur)
}

func (m *MMU) readIO16(addr uint32) uint16 {
	off := addr & (ioSize - 1)
	switch off {
	case regVCOUNT, regDISPSTAT, regDISPCNT:
		return m.rawIO16(off)
	case regKEYINPUT:
		return m.keyinput
	case regIE:
		return m.IRQ.IE
	case regIF:
		return m.IRQ.IF
	case regIME:
		if m.IRQ.IME {
			return 1
		}
		return 0
	default:
		return m.rawIO16(off)
	}
}

func (m *MMU) writeIO16(addr uint32, v uint16) {
	off := addr & (ioSize - 1)
	switch off {
	case regVCOUNT, regKEYINPUT:
		// read-only from the CPU's perspective; PPU/joypad update
		// these through their own setters, not through the bus.
	case regIE:
		m.IRQ.IE = v & 0x3FFF
	case regIF:
		// write-1-to-clear.
		m.IRQ.IF &^= v
	case regIME:
		m.IRQ.IME = v&1 != 0
	case regFIFOA, regFIFOA + 2:
		if m.fifoA != nil {
			m.fifoA(v)
		}
	case regFIFOB, regFIFOB + 2:
		if m.fifoB != nil {
			m.fifoB(v)
		}
	default:
		m.setRawIO16(off, v)
	}
}

// DISPCNT returns the current display control register.
func (m *MMU) DISPCNT() uint16 { return m.rawIO16(regDISPCNT) }

// DISPSTAT returns the current display status register.
func (m *MMU) DISPSTAT() uint16 { return m.rawIO16(regDISPSTAT) }

// SetDISPSTAT overwrites the bits the PPU owns (VBlank/HBlank/
// VCount-match, bits 0-2) while leaving the CPU-writable enable bits
// (3-5) and compare value (8-15) untouched.
func (m *MMU) SetDISPSTAT(vblank, hblank, vcountMatch bool) {
	v := m.rawIO16(regDISPSTAT) &^ 0x7
	if vblank {
		v |= 1 << 0
	}
	if hblank {
		v |= 1 << 1
	}
	if vcountMatch {
		v |= 1 << 2
	}
	m.setRawIO16(regDISPSTAT, v)
}

// SetHBlankFlag sets or clears DISPSTAT bit 1 alone, used by the PPU
// at the mid-scanline HBlank transition so a CPU read of DISPSTAT
// between scanline boundaries observes the flag.
func (m *MMU) SetHBlankFlag(hblank bool) {
	v := m.rawIO16(regDISPSTAT) &^ (1 << 1)
	if hblank {
		v |= 1 << 1
	}
	m.setRawIO16(regDISPSTAT, v)
}

// VCOUNT returns the current scanline.
func (m *MMU) VCOUNT() uint16 { return m.rawIO16(regVCOUNT) }

// SetVCOUNT is the PPU's setter for the current scanline.
func (m *MMU) SetVCOUNT(line uint16) { m.setRawIO16(regVCOUNT, line) }

// BGCNT returns background i's control register.
func (m *MMU) BGCNT(i int) uint16 { return m.rawIO16(bgCNTOffset(i)) }

// BGHOFS returns background i's horizontal scroll offset (9 bits).
func (m *MMU) BGHOFS(i int) uint16 { return m.rawIO16(bgHOFSOffset(i)) & 0x1FF }

// BGVOFS returns background i's vertical scroll offset (9 bits).
func (m *MMU) BGVOFS(i int) uint16 { return m.rawIO16(bgVOFSOffset(i)) & 0x1FF }

// IE returns the interrupt enable register.
func (m *MMU) IE() uint16 { return m.IRQ.IE }

// IF returns the interrupt flag register.
func (m *MMU) IF() uint16 { return m.IRQ.IF }

// IME returns the interrupt master enable flag.
func (m *MMU) IME() bool { return m.IRQ.IME }

// RequestInterrupt sets the given bit(s) in IF. Timers, DMA and the
// PPU call this directly rather than going through Write16, since the
// write-1-to-clear rule only applies to CPU-initiated writes.
func (m *MMU) RequestInterrupt(flag uint16) { m.IRQ.Request(flag) }

// CheckIRQ reports whether IME and IE&IF together indicate a pending
// interrupt. The CPSR IRQ-disable bit is checked by the CPU itself.
func (m *MMU) CheckIRQ() bool { return m.IRQ.Pending() }

// ReadRaw16 reads an I/O halfword directly from the flat backing
// array, bypassing the named-register dispatch in readIO16. Timer,
// DMA and APU poll their control/reload registers this way each
// step, since those registers have no CPU-facing special semantics
// beyond plain storage.
func (m *MMU) ReadRaw16(offset uint32) uint16 { return m.rawIO16(offset) }

// WriteRaw16 writes an I/O halfword directly to the flat backing
// array, bypassing the named-register dispatch in writeIO16. DMA uses
// this to clear a channel's enable bit on completion and to rewrite
// its destination register when a repeating increment-and-reload
// channel is rearmed.
func (m *MMU) WriteRaw16(offset uint32, v uint16) { m.setRawIO16(offset, v) }

// KeyInput returns the live KEYINPUT shadow.
func (m *MMU) KeyInput() uint16 { return m.keyinput }

// SetKeyInput installs the current button state (bit clear = pressed).
func (m *MMU) SetKeyInput(state uint16) { m.keyinput = state & 0x3FF }
