package cpu

import "github.com/kestrelcore/goba/pkg/bits"

// armBranchExchange implements BX: jump to the target address,
// entering Thumb state if its bit 0 is set.
func (c *CPU) armBranchExchange(instr uint32) {
	target := c.readReg(instr & 0xF)
	c.setFlag(bitT, target&1 != 0)
	if c.Thumb() {
		c.r[15] = target &^ 1
	} else {
		c.r[15] = target &^ 3
	}
}

// armPSRTransfer implements MRS (read CPSR/SPSR into a register) and
// MSR (write some combination of flags/control bits from a register
// or rotated immediate).
func (c *CPU) armPSRTransfer(instr uint32) {
	useSPSR := bits.Test(instr, 22)

	if !bits.Test(instr, 21) {
		// MRS
		rd := bitsRange(instr, 15, 12)
		if useSPSR {
			c.setReg(rd, c.spsr[modeToBank(c.Mode())])
		} else {
			c.setReg(rd, c.cpsr)
		}
		return
	}

	// MSR. fieldMask selects which byte lanes of the PSR are updated:
	// bit19=flags(31:24), bit18=status(23:16, unused on ARM7TDMI),
	// bit17=extension(15:8, unused), bit16=control(7:0).
	fieldMask := bitsRange(instr, 19, 16)
	var operand uint32
	if bits.Test(instr, 25) {
		imm8 := instr & 0xFF
		rotate := bitsRange(instr, 11, 8) * 2
		if rotate == 0 {
			operand = imm8
		} else {
			operand = (imm8 >> rotate) | (imm8 << (32 - rotate))
		}
	} else {
		operand = c.readReg(instr & 0xF)
	}

	var mask uint32
	if fieldMask&(1<<3) != 0 {
		mask |= 0xFF000000
	}
	if fieldMask&(1<<2) != 0 {
		mask |= 0x00FF0000
	}
	if fieldMask&(1<<1) != 0 {
		mask |= 0x0000FF00
	}
	if fieldMask&(1<<0) != 0 {
		mask |= 0x000000FF
	}

	if useSPSR {
		bank := modeToBank(c.Mode())
		c.spsr[bank] = c.spsr[bank]&^mask | operand&mask
		return
	}

	// A write to CPSR's control byte (mode bits) triggers the bank
	// swap; otherwise just merge the masked bits directly.
	if mask&0xFF != 0 {
		c.writeCPSR(c.cpsr&^mask | operand&mask)
	} else {
		c.cpsr = c.cpsr&^mask | operand&mask
	}
}
