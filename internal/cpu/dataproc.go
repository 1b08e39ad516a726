package cpu

import "github.com/kestrelcore/goba/pkg/bits"

// Data-processing opcodes, instr bits 24..21.
const (
	opAND = 0x0
	opEOR = 0x1
	opSUB = 0x2
	opRSB = 0x3
	opADD = 0x4
	opADC = 0x5
	opSBC = 0x6
	opRSC = 0x7
	opTST = 0x8
	opTEQ = 0x9
	opCMP = 0xA
	opCMN = 0xB
	opORR = 0xC
	opMOV = 0xD
	opBIC = 0xE
	opMVN = 0xF
)

// operand2 evaluates the Operand2 field of a data-processing
// instruction, returning the value and the shifter carry-out used by
// logical opcodes when S=1.
func (c *CPU) operand2(instr uint32) (value uint32, carryOut bool) {
	carryIn := c.flag(flagC)
	if bits.Test(instr, 25) {
		imm8 := instr & 0xFF
		rotate := bitsRange(instr, 11, 8) * 2
		if rotate == 0 {
			return imm8, carryIn
		}
		return (imm8 >> rotate) | (imm8 << (32 - rotate)), (imm8>>(rotate-1))&1 != 0
	}

	rm := c.readReg(instr & 0xF)
	shiftKind := bitsRange(instr, 6, 5)

	if bits.Test(instr, 4) {
		// Register-specified shift amount: low byte of Rs. Shifting
		// PC (Rm==15) here reads PC+12 on real hardware, a prefetch
		// quirk this interpreter does not model.
		rs := c.r[bitsRange(instr, 11, 8)]
		amount := rs & 0xFF
		if amount == 0 {
			return rm, carryIn
		}
		return barrelShift(shiftKind, rm, amount, false, carryIn)
	}

	amount := bitsRange(instr, 11, 7)
	return barrelShift(shiftKind, rm, amount, true, carryIn)
}

// readReg reads general register n, applying the ARM convention that
// reading R15 mid-instruction yields PC+4 (we already advanced PC by
// 4 for the current instruction in Step, so PC()+4 here is PC_fetch+8,
// the documented "PC+8" prefetch value).
func (c *CPU) readReg(n uint32) uint32 {
	if n == 15 {
		return c.r[15] + 4
	}
	return c.r[n]
}

// armDataProcessing executes one of the sixteen ALU opcodes.
func (c *CPU) armDataProcessing(instr uint32) {
	op := bitsRange(instr, 24, 21)
	s := bits.Test(instr, 20)
	rn := bitsRange(instr, 19, 16)
	rd := bitsRange(instr, 15, 12)

	op1 := c.readReg(rn)
	op2, shiftCarry := c.operand2(instr)

	var result uint32
	var writesResult = true

	switch op {
	case opAND:
		result = op1 & op2
	case opEOR:
		result = op1 ^ op2
	case opSUB:
		result = op1 - op2
	case opRSB:
		result = op2 - op1
	case opADD:
		result = op1 + op2
	case opADC:
		result = op1 + op2 + carryBit(c.flag(flagC))
	case opSBC:
		result = op1 - op2 - (1 - carryBit(c.flag(flagC)))
	case opRSC:
		result = op2 - op1 - (1 - carryBit(c.flag(flagC)))
	case opTST:
		result = op1 & op2
		writesResult = false
	case opTEQ:
		result = op1 ^ op2
		writesResult = false
	case opCMP:
		result = op1 - op2
		writesResult = false
	case opCMN:
		result = op1 + op2
		writesResult = false
	case opORR:
		result = op1 | op2
	case opMOV:
		result = op2
	case opBIC:
		result = op1 &^ op2
	case opMVN:
		result = ^op2
	}

	if s {
		switch op {
		case opSUB, opRSB, opADD, opADC, opSBC, opRSC, opCMP, opCMN:
			c.setArithmeticFlags(op, op1, op2, result)
		default:
			c.setFlag(flagN, result&0x80000000 != 0)
			c.setFlag(flagZ, result == 0)
			c.setFlag(flagC, shiftCarry)
		}
	}

	if writesResult {
		c.setReg(rd, result)
		if rd == 15 && s {
			c.restoreFromSPSR()
		}
	}
}

func carryBit(c bool) uint32 {
	if c {
		return 1
	}
	return 0
}

// setArithmeticFlags applies the N,Z,C,V rules for the arithmetic
// opcode group: C from the carry/borrow convention (SUB sets C on
// no-borrow), V from signed overflow.
func (c *CPU) setArithmeticFlags(op uint32, op1, op2, result uint32) {
	c.setFlag(flagN, result&0x80000000 != 0)
	c.setFlag(flagZ, result == 0)

	switch op {
	case opADD, opCMN:
		c.setFlag(flagC, uint64(op1)+uint64(op2) > 0xFFFFFFFF)
		c.setFlag(flagV, (op1^result)&(op2^result)&0x80000000 != 0)
	case opADC:
		c.setFlag(flagC, uint64(op1)+uint64(op2)+uint64(carryBit(c.flag(flagC))) > 0xFFFFFFFF)
		c.setFlag(flagV, (op1^result)&(op2^result)&0x80000000 != 0)
	case opSUB, opCMP:
		c.setFlag(flagC, op1 >= op2)
		c.setFlag(flagV, (op1^op2)&(op1^result)&0x80000000 != 0)
	case opSBC:
		borrow := 1 - carryBit(c.flag(flagC))
		c.setFlag(flagC, uint64(op1) >= uint64(op2)+uint64(borrow))
		c.setFlag(flagV, (op1^op2)&(op1^result)&0x80000000 != 0)
	case opRSB:
		c.setFlag(flagC, op2 >= op1)
		c.setFlag(flagV, (op2^op1)&(op2^result)&0x80000000 != 0)
	case opRSC:
		borrow := 1 - carryBit(c.flag(flagC))
		c.setFlag(flagC, uint64(op2) >= uint64(op1)+uint64(borrow))
		c.setFlag(flagV, (op2^op1)&(op2^result)&0x80000000 != 0)
	}
}

// setReg writes general register n, clearing the low two bits of the
// value when Rd is R15 (ARM writes to PC are always word-aligned).
func (c *CPU) setReg(n uint32, v uint32) {
	if n == 15 {
		c.r[15] = v &^ 3
		return
	}
	c.r[n] = v
}
