package cpu

import "github.com/kestrelcore/goba/pkg/bits"

// armMultiply implements 32×32→32 MUL and MLA, setting N,Z from the
// result when S=1. C is left unpredictable on real hardware; this
// interpreter leaves it unchanged.
func (c *CPU) armMultiply(instr uint32) {
	rd := bitsRange(instr, 19, 16)
	rn := bitsRange(instr, 15, 12) // accumulate operand for MLA
	rs := bitsRange(instr, 11, 8)
	rm := instr & 0xF
	accumulate := bits.Test(instr, 21)
	s := bits.Test(instr, 20)

	result := c.r[rm] * c.r[rs]
	if accumulate {
		result += c.r[rn]
	}
	c.r[rd] = result

	if s {
		c.setFlag(flagN, result&0x80000000 != 0)
		c.setFlag(flagZ, result == 0)
	}
}

// armMultiplyLong implements the 32×32→64 UMULL/UMLAL/SMULL/SMLAL
// family.
func (c *CPU) armMultiplyLong(instr uint32) {
	rdHi := bitsRange(instr, 19, 16)
	rdLo := bitsRange(instr, 15, 12)
	rs := bitsRange(instr, 11, 8)
	rm := instr & 0xF
	signed := bits.Test(instr, 22)
	accumulate := bits.Test(instr, 21)
	s := bits.Test(instr, 20)

	var result uint64
	if signed {
		result = uint64(int64(int32(c.r[rm])) * int64(int32(c.r[rs])))
	} else {
		result = uint64(c.r[rm]) * uint64(c.r[rs])
	}
	if accumulate {
		result += uint64(c.r[rdHi])<<32 | uint64(c.r[rdLo])
	}

	c.r[rdHi] = uint32(result >> 32)
	c.r[rdLo] = uint32(result)

	if s {
		c.setFlag(flagN, result&0x8000000000000000 != 0)
		c.setFlag(flagZ, result == 0)
	}
}
