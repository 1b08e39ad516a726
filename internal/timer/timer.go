// Package timer implements the GBA's four prescaled 16-bit counters
// with cascade-on-overflow chaining.
package timer

import (
	"github.com/kestrelcore/goba/internal/interrupts"
	"github.com/kestrelcore/goba/internal/mmu"
	"github.com/kestrelcore/goba/internal/types"
)

const numTimers = 4

// Control register bit layout.
const (
	ctrlEnable   = 1 << 7
	ctrlIRQ      = 1 << 6
	ctrlCascade  = 1 << 2
	prescalerBit = 0 // low 2 bits select the prescaler code
)

var prescalerShift = [4]uint{0, 6, 8, 10}

// Controller owns the four counters, each polled from its MMU-backed
// control/reload registers every step.
type Controller struct {
	m *mmu.MMU

	counter   [numTimers]uint16
	reload    [numTimers]uint16
	prescaler [numTimers]uint32
	prevCtrl  [numTimers]uint16
}

// New returns a new, disabled Controller.
func New(m *mmu.MMU) *Controller {
	return &Controller{m: m}
}

// Reset clears all counters and cached control state.
func (c *Controller) Reset() {
	c.counter = [numTimers]uint16{}
	c.reload = [numTimers]uint16{}
	c.prescaler = [numTimers]uint32{}
	c.prevCtrl = [numTimers]uint16{}
}

func (c *Controller) ctrlOffset(i int) uint32   { return 0x100 + uint32(i)*4 + 2 }
func (c *Controller) reloadOffset(i int) uint32 { return 0x100 + uint32(i)*4 }

func (c *Controller) readCtrl(i int) uint16   { return c.m.ReadRaw16(c.ctrlOffset(i)) }
func (c *Controller) readReload(i int) uint16 { return c.m.ReadRaw16(c.reloadOffset(i)) }

// Step advances every timer by one external tick. A 0→1 transition
// of the enable bit reloads the counter and consumes
// the tick that triggered it rather than also counting towards the
// prescaler; a cascade timer ignores its own prescaler and instead
// advances once per overflow of the timer below it; otherwise the
// prescaler accumulator absorbs ticks until it reaches the programmed
// threshold.
func (c *Controller) Step() {
	for i := 0; i < numTimers; i++ {
		ctrl := c.readCtrl(i)
		enabled := ctrl&ctrlEnable != 0
		wasEnabled := c.prevCtrl[i]&ctrlEnable != 0
		cascade := i > 0 && ctrl&ctrlCascade != 0

		if enabled && !wasEnabled {
			c.counter[i] = c.readReload(i)
			c.prescaler[i] = 0
			c.reload[i] = c.readReload(i)
			c.prevCtrl[i] = ctrl
			continue
		}
		c.reload[i] = c.readReload(i)
		c.prevCtrl[i] = ctrl

		if !enabled || cascade {
			continue
		}

		shift := prescalerShift[ctrl&0x3]
		c.prescaler[i]++
		if c.prescaler[i] < 1<<shift {
			continue
		}
		c.prescaler[i] = 0
		c.overflowTick(i, ctrl)
	}
}

// overflowTick increments timer i by one, handling the 0xFFFF wrap
// and cascading into timer i+1 when it is enabled with cascade set.
func (c *Controller) overflowTick(i int, ctrl uint16) {
	c.counter[i]++
	if c.counter[i] != 0 {
		return
	}
	c.counter[i] = c.reload[i]
	if ctrl&ctrlIRQ != 0 {
		c.m.RequestInterrupt(timerIRQFlag(i))
	}
	if i+1 < numTimers {
		nextCtrl := c.readCtrl(i + 1)
		if nextCtrl&ctrlEnable != 0 && nextCtrl&ctrlCascade != 0 {
			c.overflowTick(i+1, nextCtrl)
		}
	}
}

func timerIRQFlag(i int) uint16 {
	switch i {
	case 0:
		return interrupts.Timer0
	case 1:
		return interrupts.Timer1
	case 2:
		return interrupts.Timer2
	default:
		return interrupts.Timer3
	}
}

// Counter returns timer i's live 16-bit value. On real hardware a CPU
// read of TMxCNT_L returns this running value rather than the last
// written reload; that read-back path is not modeled here, so such a
// read instead observes the reload latch.
func (c *Controller) Counter(i int) uint16 { return c.counter[i] }

var _ types.Stater = (*Controller)(nil)

// Save writes the controller's counters and cached control state.
func (c *Controller) Save(s *types.State) {
	for i := 0; i < numTimers; i++ {
		s.Write16(c.counter[i])
		s.Write16(c.reload[i])
		s.Write32(c.prescaler[i])
		s.Write16(c.prevCtrl[i])
	}
}

// Load restores state previously written by Save.
func (c *Controller) Load(s *types.State) {
	for i := 0; i < numTimers; i++ {
		c.counter[i] = s.Read16()
		c.reload[i] = s.Read16()
		c.prescaler[i] = s.Read32()
		c.prevCtrl[i] = s.Read16()
	}
}
