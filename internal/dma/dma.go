// Package dma implements the GBA's four-channel DMA transfer engine:
// source/destination/count latches reloaded on each enable edge, and
// Immediate/VBlank/HBlank/Special trigger timing.
package dma

import (
	"github.com/kestrelcore/goba/internal/interrupts"
	"github.com/kestrelcore/goba/internal/mmu"
	"github.com/kestrelcore/goba/internal/types"
)

const numChannels = 4

// Control register bit layout.
const (
	destAdjustShift = 5
	srcAdjustShift  = 7
	ctrlRepeat      = 1 << 9
	ctrlWidth32     = 1 << 10
	timingShift     = 12
	ctrlIRQ         = 1 << 14
	ctrlEnable      = 1 << 15
)

const (
	adjustInc = iota
	adjustDec
	adjustFixed
	adjustIncReload
)

const (
	timingImmediate = iota
	timingVBlank
	timingHBlank
	timingSpecial
)

// channelBase returns the offset of channel i's source register
// within the DMA register block (0x040000B0 + i*0xC).
func channelBase(i int) uint32 { return 0xB0 + uint32(i)*0xC }

// Channel tracks one DMA engine's live latches, reloaded from its
// MMU-backed registers on each enable edge.
type Channel struct {
	src, dst uint32
	count    uint32
	ctrl     uint16
	prevCtrl uint16
}

// Controller owns the four DMA channels.
type Controller struct {
	m  *mmu.MMU
	ch [numChannels]Channel
}

// New returns a new, disabled Controller.
func New(m *mmu.MMU) *Controller { return &Controller{m: m} }

// Reset clears all channel latches and cached control state.
func (c *Controller) Reset() { c.ch = [numChannels]Channel{} }

func (c *Controller) srcOffset(i int) uint32   { return channelBase(i) }
func (c *Controller) dstOffset(i int) uint32   { return channelBase(i) + 4 }
func (c *Controller) countOffset(i int) uint32 { return channelBase(i) + 8 }
func (c *Controller) ctrlOffset(i int) uint32  { return channelBase(i) + 0xA }

func (c *Controller) readSrc(i int) uint32 {
	return uint32(c.m.ReadRaw16(c.srcOffset(i))) | uint32(c.m.ReadRaw16(c.srcOffset(i)+2))<<16
}

func (c *Controller) readDst(i int) uint32 {
	return uint32(c.m.ReadRaw16(c.dstOffset(i))) | uint32(c.m.ReadRaw16(c.dstOffset(i)+2))<<16
}

func (c *Controller) readCount(i int) uint32 {
	return uint32(c.m.ReadRaw16(c.countOffset(i)))
}

func (c *Controller) readCtrl(i int) uint16 {
	return c.m.ReadRaw16(c.ctrlOffset(i))
}

func (c *Controller) writeCtrl(i int, v uint16) {
	c.m.WriteRaw16(c.ctrlOffset(i), v)
}

func (c *Controller) writeDst(i int, v uint32) {
	c.m.WriteRaw16(c.dstOffset(i), uint16(v))
	c.m.WriteRaw16(c.dstOffset(i)+2, uint16(v>>16))
}

// Step polls every channel's control register for an enable edge and
// executes channels configured for Immediate timing.
func (c *Controller) Step() {
	for i := 0; i < numChannels; i++ {
		c.checkEdge(i)
		if c.ready(i) && c.timing(i) == timingImmediate {
			c.execute(i)
		}
	}
}

// TriggerVBlank executes every channel latched for VBlank timing.
func (c *Controller) TriggerVBlank() { c.triggerTiming(timingVBlank) }

// TriggerHBlank executes every channel latched for HBlank timing.
func (c *Controller) TriggerHBlank() { c.triggerTiming(timingHBlank) }

// TriggerSpecial executes every channel latched for Special timing
// (the sound FIFO / video-capture slot). Neither the PPU, the APU nor
// the host driver calls it, so Special-timed channels only run when a
// caller invokes it directly.
func (c *Controller) TriggerSpecial() { c.triggerTiming(timingSpecial) }

func (c *Controller) triggerTiming(timing uint16) {
	for i := 0; i < numChannels; i++ {
		c.checkEdge(i)
		if c.ready(i) && c.timing(i) == timing {
			c.execute(i)
		}
	}
}

func (c *Controller) ready(i int) bool {
	return c.ch[i].ctrl&ctrlEnable != 0
}

func (c *Controller) timing(i int) uint16 {
	return (c.ch[i].ctrl >> timingShift) & 0x3
}

// checkEdge latches the channel's source/destination/count from its
// registers on a 0→1 transition of the control enable bit. A count
// register of 0 is latched as 0x10000 on channel 3 and 0x4000 on
// channels 0-2.
func (c *Controller) checkEdge(i int) {
	ctrl := c.readCtrl(i)
	wasEnabled := c.ch[i].prevCtrl&ctrlEnable != 0
	enabled := ctrl&ctrlEnable != 0
	c.ch[i].prevCtrl = ctrl

	if enabled && !wasEnabled {
		c.ch[i].src = c.readSrc(i)
		c.ch[i].dst = c.readDst(i)
		c.ch[i].count = c.readCount(i)
		if c.ch[i].count == 0 {
			if i == 3 {
				c.ch[i].count = 0x10000
			} else {
				c.ch[i].count = 0x4000
			}
		}
		c.ch[i].ctrl = ctrl
		return
	}
	if !enabled {
		c.ch[i].ctrl = ctrl
	}
}

// execute performs one channel's full transfer: a count of 0 means
// 0x10000 transfers on channel 3 and 0x4000 on channels 0-2; width
// selects the per-transfer address step.
func (c *Controller) execute(i int) {
	ch := &c.ch[i]
	count := ch.count
	if count == 0 {
		if i == 3 {
			count = 0x10000
		} else {
			count = 0x4000
		}
	}

	wide := ch.ctrl&ctrlWidth32 != 0
	srcAdj := (ch.ctrl >> srcAdjustShift) & 0x3
	dstAdj := (ch.ctrl >> destAdjustShift) & 0x3

	src, dst := ch.src, ch.dst
	step := uint32(2)
	if wide {
		step = 4
	}

	for n := uint32(0); n < count; n++ {
		if wide {
			c.m.Write32(dst, c.m.Read32(src))
		} else {
			c.m.Write16(dst, c.m.Read16(src))
		}

		switch srcAdj {
		case adjustInc:
			src += step
		case adjustDec:
			src -= step
		case adjustFixed:
		}

		switch dstAdj {
		case adjustInc, adjustIncReload:
			dst += step
		case adjustDec:
			dst -= step
		case adjustFixed:
		}
	}

	ch.src, ch.dst = src, dst

	if ch.ctrl&ctrlIRQ != 0 {
		c.m.RequestInterrupt(dmaIRQFlag(i))
	}

	repeat := ch.ctrl&ctrlRepeat != 0
	timing := c.timing(i)
	if repeat && timing != timingImmediate && dstAdj == adjustIncReload {
		ch.dst = c.readDst(i)
		c.writeDst(i, ch.dst)
		return
	}

	ch.ctrl &^= ctrlEnable
	c.writeCtrl(i, ch.ctrl)
}

func dmaIRQFlag(i int) uint16 {
	switch i {
	case 0:
		return interrupts.DMA0
	case 1:
		return interrupts.DMA1
	case 2:
		return interrupts.DMA2
	default:
		return interrupts.DMA3
	}
}

var _ types.Stater = (*Controller)(nil)

// Save writes every channel's live latches and cached control state.
func (c *Controller) Save(s *types.State) {
	for i := 0; i < numChannels; i++ {
		s.Write32(c.ch[i].src)
		s.Write32(c.ch[i].dst)
		s.Write32(c.ch[i].count)
		s.Write16(c.ch[i].ctrl)
		s.Write16(c.ch[i].prevCtrl)
	}
}

// Load restores state previously written by Save.
func (c *Controller) Load(s *types.State) {
	for i := 0; i < numChannels; i++ {
		c.ch[i].src = s.Read32()
		c.ch[i].dst = s.Read32()
		c.ch[i].count = s.Read32()
		c.ch[i].ctrl = s.Read16()
		c.ch[i].prevCtrl = s.Read16()
	}
}
