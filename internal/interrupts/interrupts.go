// Package interrupts models the GBA's IE/IF/IME trio. It is consulted
// by the CPU on every step boundary and written to by the PPU, timers
// and DMA controllers when they raise a request.
package interrupts

import "github.com/kestrelcore/goba/internal/types"

// Flag bit positions within IE/IF.
const (
	VBlank  = 1 << 0
	HBlank  = 1 << 1
	VCount  = 1 << 2
	Timer0  = 1 << 3
	Timer1  = 1 << 4
	Timer2  = 1 << 5
	Timer3  = 1 << 6
	Serial  = 1 << 7
	DMA0    = 1 << 8
	DMA1    = 1 << 9
	DMA2    = 1 << 10
	DMA3    = 1 << 11
	Keypad  = 1 << 12
	GamePak = 1 << 13
)

// Controller owns the IE, IF and IME registers.
type Controller struct {
	IE  uint16
	IF  uint16
	IME bool
}

// New returns a new, all-zero interrupt controller.
func New() *Controller {
	return &Controller{}
}

// Request sets the given bits in IF. It is write-OR, not write-1-to-clear;
// that clearing rule only applies to CPU writes via MMU (see
// internal/mmu's IF accessor).
func (c *Controller) Request(flag uint16) {
	c.IF |= flag
}

// Pending reports whether IME is set and any enabled interrupt is
// currently flagged; the condition MMU.CheckIRQ and CPU.CheckIRQ
// both test, independent of the CPSR IRQ-disable bit (which the CPU
// checks itself).
func (c *Controller) Pending() bool {
	return c.IME && c.IE&c.IF != 0
}

var _ types.Stater = (*Controller)(nil)

// Save writes the controller state.
func (c *Controller) Save(s *types.State) {
	s.Write16(c.IE)
	s.Write16(c.IF)
	s.WriteBool(c.IME)
}

// Load reads the controller state.
func (c *Controller) Load(s *types.State) {
	c.IE = s.Read16()
	c.IF = s.Read16()
	c.IME = s.ReadBool()
}
