// Package cpu implements an ARM7TDMI interpreter: fetch/decode/execute
// for both the 32-bit ARM and 16-bit Thumb instruction sets, the seven
// processor modes with their banked register shadows, condition-code
// evaluation, and the BIOS high-level-emulation SWI handlers. Timing
// is approximate; one instruction is one cycle tick; wait states and
// the GamePak prefetcher are not modeled.
package cpu

import (
	"github.com/kestrelcore/goba/internal/mmu"
	"github.com/kestrelcore/goba/internal/types"
	"github.com/kestrelcore/goba/pkg/log"
)

// Processor modes, the low 5 bits of CPSR.
const (
	ModeUser = 0x10
	ModeFIQ  = 0x11
	ModeIRQ  = 0x12
	ModeSVC  = 0x13
	ModeAbt  = 0x17
	ModeUnd  = 0x1B
	ModeSys  = 0x1F
)

// CPSR bit positions.
const (
	flagN = 31
	flagZ = 30
	flagC = 29
	flagV = 28
	bitI  = 7 // IRQ disable
	bitF  = 6 // FIQ disable
	bitT  = 5 // Thumb
)

// bank identifies one of the six register-shadow groups. User and
// System share the bankUSR slot; they are architecturally the same
// non-privileged register set.
type bank int

const (
	bankUSR bank = iota
	bankFIQ
	bankIRQ
	bankSVC
	bankABT
	bankUND
	numBanks
)

func modeToBank(mode uint32) bank {
	switch mode {
	case ModeFIQ:
		return bankFIQ
	case ModeIRQ:
		return bankIRQ
	case ModeSVC:
		return bankSVC
	case ModeAbt:
		return bankABT
	case ModeUnd:
		return bankUND
	default:
		return bankUSR
	}
}

// CPU is an ARM7TDMI core: sixteen live general registers, CPSR, and
// the banked shadows that back them across mode switches.
type CPU struct {
	Log log.Logger

	m *mmu.MMU

	r    [16]uint32
	cpsr uint32

	spsr [numBanks]uint32
	r13  [numBanks]uint32
	r14  [numBanks]uint32

	fiqR8_12 [5]uint32
	usrR8_12 [5]uint32

	cycles uint64
}

// New returns a new CPU wired to the given MMU, left in its power-on
// state (see Reset).
func New(m *mmu.MMU) *CPU {
	c := &CPU{Log: log.New(), m: m}
	c.Reset()
	return c
}

// Reset restores the power-on register state: PC at the cartridge
// entry point, SP at the conventional BIOS-initialized value, System
// mode, ARM state, all flags clear.
func (c *CPU) Reset() {
	c.r = [16]uint32{}
	c.spsr = [numBanks]uint32{}
	c.r13 = [numBanks]uint32{}
	c.r14 = [numBanks]uint32{}
	c.fiqR8_12 = [5]uint32{}
	c.usrR8_12 = [5]uint32{}
	c.cpsr = uint32(ModeSys)
	c.r[15] = 0x08000000
	c.r[13] = 0x03007F00
	c.cycles = 0
}

// PC returns the current program counter.
func (c *CPU) PC() uint32 { return c.r[15] }

// R returns general register i (0..15).
func (c *CPU) R(i int) uint32 { return c.r[i] }

// SetR sets general register i (0..15).
func (c *CPU) SetR(i int, v uint32) { c.r[i] = v }

// CPSR returns the current status register.
func (c *CPU) CPSR() uint32 { return c.cpsr }

// Mode returns the current processor mode (CPSR bits 4..0).
func (c *CPU) Mode() uint32 { return c.cpsr & 0x1F }

// Thumb reports whether the CPU is currently decoding 16-bit Thumb
// opcodes.
func (c *CPU) Thumb() bool { return c.cpsr&(1<<bitT) != 0 }

func (c *CPU) flag(bit int) bool { return c.cpsr&(1<<bit) != 0 }
func (c *CPU) setFlag(bit int, v bool) {
	if v {
		c.cpsr |= 1 << bit
	} else {
		c.cpsr &^= 1 << bit
	}
}

// Cycles returns the running cycle-tick counter.
func (c *CPU) Cycles() uint64 { return c.cycles }

// Step fetches, decodes and executes exactly one instruction in the
// current ISA (the core's minimal atomic unit) and returns an
// approximate cycle-tick cost.
func (c *CPU) Step() uint8 {
	c.m.NotifyPC(c.r[15])

	if c.Thumb() {
		pc := c.r[15] &^ 1
		instr := c.m.Read16(pc)
		c.r[15] = pc + 2
		c.executeThumb(instr)
	} else {
		pc := c.r[15] &^ 3
		instr := c.m.Read32(pc)
		c.r[15] = pc + 4
		c.executeARM(instr)
	}

	c.cycles++
	return 1
}

// CheckIRQ delivers a pending IRQ exception if IME & (IE & IF) is
// non-zero and the CPSR IRQ-disable bit is clear. It returns whether
// an interrupt was taken.
func (c *CPU) CheckIRQ() bool {
	if !c.m.CheckIRQ() || c.flag(bitI) {
		return false
	}
	c.enterException(ModeIRQ, 0x18)
	return true
}

// enterException performs the mode switch, SPSR save, link-register
// save and vector jump for IRQ entry. The GBA's IRQ handler always
// resumes in ARM state and expects LR_irq = (address of the next
// instruction) + 4, regardless of the ISA active when the interrupt
// was taken (GBATEK's IRQ entry convention).
func (c *CPU) enterException(mode uint32, vector uint32) {
	returnPC := c.r[15]
	oldCPSR := c.cpsr

	c.switchMode(mode)
	c.spsr[modeToBank(mode)] = oldCPSR
	c.setFlag(bitT, false)
	c.setFlag(bitI, true)

	c.r[14] = returnPC + 4
	c.r[15] = vector
}

// switchMode performs the banked-register swap at a mode transition:
// save outgoing R13/R14 (and, if leaving FIQ, restore the
// User R8-R12), then if entering FIQ bank the current R8-R12 as User
// and load the FIQ set, then load the incoming R13/R14.
func (c *CPU) switchMode(newMode uint32) {
	oldMode := c.Mode()
	if oldMode == newMode {
		return
	}
	oldBank := modeToBank(oldMode)
	newBank := modeToBank(newMode)

	c.r13[oldBank] = c.r[13]
	c.r14[oldBank] = c.r[14]
	if oldBank == bankFIQ {
		copy(c.fiqR8_12[:], c.r[8:13])
		copy(c.r[8:13], c.usrR8_12[:])
	}

	if newBank == bankFIQ {
		copy(c.usrR8_12[:], c.r[8:13])
		copy(c.r[8:13], c.fiqR8_12[:])
	}

	c.r[13] = c.r13[newBank]
	c.r[14] = c.r14[newBank]

	c.cpsr = c.cpsr&^0x1F | newMode
}

// writeCPSR installs a full CPSR value, triggering a bank swap if the
// mode bits changed.
func (c *CPU) writeCPSR(v uint32) {
	newMode := v & 0x1F
	if newMode != c.Mode() {
		c.switchMode(newMode)
	}
	c.cpsr = v&^0x1F | newMode
}

// restoreFromSPSR copies the current mode's SPSR into CPSR, used by
// Rd=15/S=1 data-processing writes and by exception return sequences.
func (c *CPU) restoreFromSPSR() {
	c.writeCPSR(c.spsr[modeToBank(c.Mode())])
}

var _ types.Stater = (*CPU)(nil)

// Save writes the full CPU register and banking state.
func (c *CPU) Save(s *types.State) {
	for i := 0; i < 16; i++ {
		s.Write32(c.r[i])
	}
	s.Write32(c.cpsr)
	for i := 0; i < int(numBanks); i++ {
		s.Write32(c.spsr[i])
		s.Write32(c.r13[i])
		s.Write32(c.r14[i])
	}
	for i := 0; i < 5; i++ {
		s.Write32(c.fiqR8_12[i])
		s.Write32(c.usrR8_12[i])
	}
	s.Write32(uint32(c.cycles))
	s.Write32(uint32(c.cycles >> 32))
}

// Load restores state previously written by Save.
func (c *CPU) Load(s *types.State) {
	for i := 0; i < 16; i++ {
		c.r[i] = s.Read32()
	}
	c.cpsr = s.Read32()
	for i := 0; i < int(numBanks); i++ {
		c.spsr[i] = s.Read32()
		c.r13[i] = s.Read32()
		c.r14[i] = s.Read32()
	}
	for i := 0; i < 5; i++ {
		c.fiqR8_12[i] = s.Read32()
		c.usrR8_12[i] = s.Read32()
	}
	lo := uint64(s.Read32())
	hi := uint64(s.Read32())
	c.cycles = lo | hi<<32
}
