package cpu

import "github.com/kestrelcore/goba/pkg/bits"

// executeThumb decodes and runs one 16-bit Thumb instruction. Thumb's
// formats partition cleanly by their top bits, so decode is a
// straightforward priority match on fixed prefixes, where a longer
// prefix is always tested before any shorter prefix that contains it.
func (c *CPU) executeThumb(raw uint16) {
	instr := uint32(raw)

	switch {
	case bitsRange(instr, 15, 8) == 0b11011111:
		c.thumbSWI(instr)
	case bitsRange(instr, 15, 12) == 0b1111:
		c.thumbLongBranchLink(instr)
	case bitsRange(instr, 15, 11) == 0b11100:
		c.thumbUnconditionalBranch(instr)
	case bitsRange(instr, 15, 12) == 0b1101:
		c.thumbConditionalBranch(instr)
	case bitsRange(instr, 15, 12) == 0b1100:
		c.thumbBlockTransfer(instr)
	case bitsRange(instr, 15, 8) == 0b10110000:
		c.thumbAddOffsetToSP(instr)
	case bitsRange(instr, 15, 9) == 0b1011010:
		c.thumbPushPop(instr, false)
	case bitsRange(instr, 15, 9) == 0b1011110:
		c.thumbPushPop(instr, true)
	case bitsRange(instr, 15, 12) == 0b1010:
		c.thumbLoadAddress(instr)
	case bitsRange(instr, 15, 12) == 0b1001:
		c.thumbSPRelativeTransfer(instr)
	case bitsRange(instr, 15, 12) == 0b1000:
		c.thumbHalfwordTransfer(instr)
	case bitsRange(instr, 15, 13) == 0b011:
		c.thumbImmediateOffsetTransfer(instr)
	case bitsRange(instr, 15, 12) == 0b0101:
		if instr&(1<<9) != 0 {
			c.thumbSignExtendedTransfer(instr)
		} else {
			c.thumbRegisterOffsetTransfer(instr)
		}
	case bitsRange(instr, 15, 11) == 0b01001:
		c.thumbPCRelativeLoad(instr)
	case bitsRange(instr, 15, 10) == 0b010001:
		c.thumbHiRegisterOp(instr)
	case bitsRange(instr, 15, 10) == 0b010000:
		c.thumbALU(instr)
	case bitsRange(instr, 15, 13) == 0b001:
		c.thumbImmediateOp(instr)
	case bitsRange(instr, 15, 11) == 0b00011:
		c.thumbAddSubtract(instr)
	case bitsRange(instr, 15, 13) == 0b000:
		c.thumbMoveShifted(instr)
	default:
		c.Log.Debugf("cpu: unhandled Thumb opcode %04X at PC=%08X", raw, c.r[15]-2)
	}
}

// thumbMoveShifted implements format 1: LSL/LSR/ASR Rd, Rs, #imm5.
func (c *CPU) thumbMoveShifted(instr uint32) {
	op := bitsRange(instr, 12, 11)
	offset := bitsRange(instr, 10, 6)
	rs := bitsRange(instr, 5, 3)
	rd := bitsRange(instr, 2, 0)

	var kind uint32
	switch op {
	case 0:
		kind = shiftLSL
	case 1:
		kind = shiftLSR
	case 2:
		kind = shiftASR
	}
	result, carry := barrelShift(kind, c.r[rs], offset, true, c.flag(flagC))
	c.r[rd] = result
	c.setFlag(flagC, carry)
	c.setFlag(flagN, result&0x80000000 != 0)
	c.setFlag(flagZ, result == 0)
}

// thumbAddSubtract implements format 2: ADD/SUB Rd, Rs, Rn|#imm3.
func (c *CPU) thumbAddSubtract(instr uint32) {
	immediate := instr&(1<<10) != 0
	subtract := instr&(1<<9) != 0
	rnOrImm := bitsRange(instr, 8, 6)
	rs := bitsRange(instr, 5, 3)
	rd := bitsRange(instr, 2, 0)

	op1 := c.r[rs]
	var op2 uint32
	if immediate {
		op2 = rnOrImm
	} else {
		op2 = c.r[rnOrImm]
	}

	var result uint32
	if subtract {
		result = op1 - op2
		c.setArithmeticFlags(opSUB, op1, op2, result)
	} else {
		result = op1 + op2
		c.setArithmeticFlags(opADD, op1, op2, result)
	}
	c.r[rd] = result
}

// thumbImmediateOp implements format 3: MOV/CMP/ADD/SUB Rd, #imm8.
func (c *CPU) thumbImmediateOp(instr uint32) {
	op := bitsRange(instr, 12, 11)
	rd := bitsRange(instr, 10, 8)
	imm := instr & 0xFF

	switch op {
	case 0: // MOV
		c.r[rd] = imm
		c.setFlag(flagN, false)
		c.setFlag(flagZ, imm == 0)
	case 1: // CMP
		result := c.r[rd] - imm
		c.setArithmeticFlags(opCMP, c.r[rd], imm, result)
	case 2: // ADD
		result := c.r[rd] + imm
		c.setArithmeticFlags(opADD, c.r[rd], imm, result)
		c.r[rd] = result
	case 3: // SUB
		result := c.r[rd] - imm
		c.setArithmeticFlags(opSUB, c.r[rd], imm, result)
		c.r[rd] = result
	}
}

// thumbALU implements format 4: the low-register ALU operation set.
func (c *CPU) thumbALU(instr uint32) {
	op := bitsRange(instr, 9, 6)
	rs := bitsRange(instr, 5, 3)
	rd := bitsRange(instr, 2, 0)

	op1 := c.r[rd]
	op2 := c.r[rs]
	var result uint32
	write := true

	switch op {
	case 0x0: // AND
		result = op1 & op2
	case 0x1: // EOR
		result = op1 ^ op2
	case 0x2: // LSL
		result, _ = barrelShift(shiftLSL, op1, op2&0xFF, false, c.flag(flagC))
		c.applyShiftCarry(shiftLSL, op1, op2&0xFF)
	case 0x3: // LSR
		result, _ = barrelShift(shiftLSR, op1, op2&0xFF, false, c.flag(flagC))
		c.applyShiftCarry(shiftLSR, op1, op2&0xFF)
	case 0x4: // ASR
		result, _ = barrelShift(shiftASR, op1, op2&0xFF, false, c.flag(flagC))
		c.applyShiftCarry(shiftASR, op1, op2&0xFF)
	case 0x5: // ADC
		result = op1 + op2 + carryBit(c.flag(flagC))
		c.setArithmeticFlags(opADC, op1, op2, result)
	case 0x6: // SBC
		result = op1 - op2 - (1 - carryBit(c.flag(flagC)))
		c.setArithmeticFlags(opSBC, op1, op2, result)
	case 0x7: // ROR
		result, _ = barrelShift(shiftROR, op1, op2&0xFF, false, c.flag(flagC))
		c.applyShiftCarry(shiftROR, op1, op2&0xFF)
	case 0x8: // TST
		result = op1 & op2
		write = false
	case 0x9: // NEG
		result = 0 - op2
		c.setArithmeticFlags(opRSB, op2, 0, result)
	case 0xA: // CMP
		result = op1 - op2
		c.setArithmeticFlags(opCMP, op1, op2, result)
		write = false
	case 0xB: // CMN
		result = op1 + op2
		c.setArithmeticFlags(opCMN, op1, op2, result)
		write = false
	case 0xC: // ORR
		result = op1 | op2
	case 0xD: // MUL
		result = op1 * op2
	case 0xE: // BIC
		result = op1 &^ op2
	case 0xF: // MVN
		result = ^op2
	}

	switch op {
	case 0x0, 0x1, 0x2, 0x3, 0x4, 0x7, 0x8, 0xC, 0xD, 0xE, 0xF:
		c.setFlag(flagN, result&0x80000000 != 0)
		c.setFlag(flagZ, result == 0)
	}

	if write {
		c.r[rd] = result
	}
}

// applyShiftCarry sets the C flag for the format-4 register-shift
// forms, which (unlike ARM data-processing) always use a register-
// specified shift amount.
func (c *CPU) applyShiftCarry(kind uint32, value, amount uint32) {
	_, carry := barrelShift(kind, value, amount, false, c.flag(flagC))
	if amount != 0 {
		c.setFlag(flagC, carry)
	}
}

// thumbHiRegisterOp implements format 5: ADD/CMP/MOV across the full
// R0-R15 range, and BX.
func (c *CPU) thumbHiRegisterOp(instr uint32) {
	op := bitsRange(instr, 9, 8)
	h1 := instr&(1<<7) != 0
	h2 := instr&(1<<6) != 0
	rs := bitsRange(instr, 5, 3)
	rd := bitsRange(instr, 2, 0)
	if h2 {
		rs += 8
	}
	if h1 {
		rd += 8
	}

	switch op {
	case 0: // ADD
		c.setReg(rd, c.readReg(rd)+c.readReg(rs))
	case 1: // CMP
		op1, op2 := c.readReg(rd), c.readReg(rs)
		result := op1 - op2
		c.setArithmeticFlags(opCMP, op1, op2, result)
	case 2: // MOV
		c.setReg(rd, c.readReg(rs))
	case 3: // BX
		target := c.readReg(rs)
		c.setFlag(bitT, target&1 != 0)
		if c.Thumb() {
			c.r[15] = target &^ 1
		} else {
			c.r[15] = target &^ 3
		}
	}
}

// thumbPCRelativeLoad implements format 6: LDR Rd, [PC, #imm8*4].
func (c *CPU) thumbPCRelativeLoad(instr uint32) {
	rd := bitsRange(instr, 10, 8)
	imm := (instr & 0xFF) * 4
	base := (c.r[15] + 2) &^ 2 // PC read as (instruction address + 4) & ~2
	c.r[rd] = c.m.Read32((base + imm) &^ 3)
}

// thumbRegisterOffsetTransfer implements format 7: LDR/STR word/byte
// with a register offset.
func (c *CPU) thumbRegisterOffsetTransfer(instr uint32) {
	load := instr&(1<<11) != 0
	byteTransfer := instr&(1<<10) != 0
	ro := bitsRange(instr, 8, 6)
	rb := bitsRange(instr, 5, 3)
	rd := bitsRange(instr, 2, 0)
	addr := c.r[rb] + c.r[ro]

	if load {
		if byteTransfer {
			c.r[rd] = uint32(c.m.Read8(addr))
		} else {
			c.r[rd] = c.readWordRotated(addr)
		}
	} else {
		if byteTransfer {
			c.m.Write8(addr, uint8(c.r[rd]))
		} else {
			c.m.Write32(addr&^3, c.r[rd])
		}
	}
}

// thumbSignExtendedTransfer implements format 8: LDRH/STRH/LDSB/LDSH.
func (c *CPU) thumbSignExtendedTransfer(instr uint32) {
	hFlag := instr&(1<<11) != 0
	signExtend := instr&(1<<10) != 0
	ro := bitsRange(instr, 8, 6)
	rb := bitsRange(instr, 5, 3)
	rd := bitsRange(instr, 2, 0)
	addr := c.r[rb] + c.r[ro]

	switch {
	case !signExtend && !hFlag: // STRH
		c.m.Write16(addr, uint16(c.r[rd]))
	case !signExtend && hFlag: // LDRH
		c.r[rd] = uint32(c.m.Read16(addr))
	case signExtend && !hFlag: // LDSB
		c.r[rd] = uint32(int32(int8(c.m.Read8(addr))))
	case signExtend && hFlag: // LDSH
		c.r[rd] = uint32(int32(int16(c.m.Read16(addr))))
	}
}

// thumbImmediateOffsetTransfer implements format 9: LDR/STR word/byte
// with a 5-bit immediate offset.
func (c *CPU) thumbImmediateOffsetTransfer(instr uint32) {
	byteTransfer := instr&(1<<12) != 0
	load := instr&(1<<11) != 0
	offset := bitsRange(instr, 10, 6)
	rb := bitsRange(instr, 5, 3)
	rd := bitsRange(instr, 2, 0)

	var addr uint32
	if byteTransfer {
		addr = c.r[rb] + offset
	} else {
		addr = c.r[rb] + offset*4
	}

	if load {
		if byteTransfer {
			c.r[rd] = uint32(c.m.Read8(addr))
		} else {
			c.r[rd] = c.readWordRotated(addr)
		}
	} else {
		if byteTransfer {
			c.m.Write8(addr, uint8(c.r[rd]))
		} else {
			c.m.Write32(addr&^3, c.r[rd])
		}
	}
}

// thumbHalfwordTransfer implements format 10: LDRH/STRH with a 5-bit
// immediate offset (scaled by 2).
func (c *CPU) thumbHalfwordTransfer(instr uint32) {
	load := instr&(1<<11) != 0
	offset := bitsRange(instr, 10, 6) * 2
	rb := bitsRange(instr, 5, 3)
	rd := bitsRange(instr, 2, 0)
	addr := c.r[rb] + offset

	if load {
		c.r[rd] = uint32(c.m.Read16(addr))
	} else {
		c.m.Write16(addr, uint16(c.r[rd]))
	}
}

// thumbSPRelativeTransfer implements format 11: LDR/STR Rd, [SP, #imm8*4].
func (c *CPU) thumbSPRelativeTransfer(instr uint32) {
	load := instr&(1<<11) != 0
	rd := bitsRange(instr, 10, 8)
	imm := (instr & 0xFF) * 4
	addr := c.r[13] + imm

	if load {
		c.r[rd] = c.readWordRotated(addr)
	} else {
		c.m.Write32(addr&^3, c.r[rd])
	}
}

// thumbLoadAddress implements format 12: ADD Rd, PC|SP, #imm8*4.
func (c *CPU) thumbLoadAddress(instr uint32) {
	useSP := instr&(1<<11) != 0
	rd := bitsRange(instr, 10, 8)
	imm := (instr & 0xFF) * 4

	if useSP {
		c.r[rd] = c.r[13] + imm
	} else {
		c.r[rd] = (c.r[15]+2)&^2 + imm
	}
}

// thumbAddOffsetToSP implements format 13: ADD SP, #±imm7*4.
func (c *CPU) thumbAddOffsetToSP(instr uint32) {
	negative := instr&(1<<7) != 0
	imm := (instr & 0x7F) * 4
	if negative {
		c.r[13] -= imm
	} else {
		c.r[13] += imm
	}
}

// thumbPushPop implements format 14: PUSH/POP {Rlist}{LR|PC}.
func (c *CPU) thumbPushPop(instr uint32, pop bool) {
	includeLRorPC := instr&(1<<8) != 0
	list := instr & 0xFF

	if pop {
		addr := c.r[13]
		for i := 0; i < 8; i++ {
			if list&(1<<i) != 0 {
				c.r[i] = c.m.Read32(addr)
				addr += 4
			}
		}
		if includeLRorPC {
			c.r[15] = c.m.Read32(addr) &^ 1
			addr += 4
		}
		c.r[13] = addr
		return
	}

	count := popcount8(uint8(list))
	if includeLRorPC {
		count++
	}
	addr := c.r[13] - uint32(count)*4
	c.r[13] = addr

	for i := 0; i < 8; i++ {
		if list&(1<<i) != 0 {
			c.m.Write32(addr, c.r[i])
			addr += 4
		}
	}
	if includeLRorPC {
		c.m.Write32(addr, c.r[14])
	}
}

func popcount8(v uint8) int {
	n := 0
	for v != 0 {
		n += int(v & 1)
		v >>= 1
	}
	return n
}

// thumbBlockTransfer implements format 15: LDMIA/STMIA Rb!, {Rlist}.
func (c *CPU) thumbBlockTransfer(instr uint32) {
	load := instr&(1<<11) != 0
	rb := bitsRange(instr, 10, 8)
	list := instr & 0xFF

	addr := c.r[rb]
	for i := 0; i < 8; i++ {
		if list&(1<<i) == 0 {
			continue
		}
		if load {
			c.r[i] = c.m.Read32(addr)
		} else {
			c.m.Write32(addr, c.r[i])
		}
		addr += 4
	}
	c.r[rb] = addr
}

// thumbConditionalBranch implements format 16: Bcond PC+offset8*2.
func (c *CPU) thumbConditionalBranch(instr uint32) {
	cond := bitsRange(instr, 11, 8)
	offset := int32(int8(uint8(instr & 0xFF)))
	if !c.condPassed(cond) {
		return
	}
	c.r[15] = uint32(int64(c.r[15]) + 2 + int64(offset)*2)
}

// thumbUnconditionalBranch implements format 18: B PC+offset11*2.
func (c *CPU) thumbUnconditionalBranch(instr uint32) {
	offset := bits.SignExtend(instr&0x7FF, 11)
	c.r[15] = uint32(int64(c.r[15]) + 2 + int64(offset)*2)
}

// thumbSWI implements format 17: SWI #value8, dispatched through the
// same BIOS HLE table as ARM SWI.
func (c *CPU) thumbSWI(instr uint32) {
	c.biosCall(instr & 0xFF)
}

// thumbLongBranchLink implements format 19's two-halfword BL
// sequence: the H=0 half sets LR to PC+(signed offset<<12); the H=1
// half exchanges PC with LR+(offset<<1) and stores the return address
// OR 1 in LR. "PC" here means each halfword's own address (Step has
// already advanced r[15] past it by the time this runs), not the
// prefetch-adjusted value used elsewhere.
func (c *CPU) thumbLongBranchLink(instr uint32) {
	high := instr&(1<<11) != 0
	offset := instr & 0x7FF
	currentAddr := c.r[15] - 2

	if !high {
		signed := bits.SignExtend(offset, 11)
		c.r[14] = uint32(int64(currentAddr) + int64(signed)<<12)
		return
	}

	c.r[15] = c.r[14] + offset<<1
	c.r[14] = currentAddr | 1
}
