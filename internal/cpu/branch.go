package cpu

import "github.com/kestrelcore/goba/pkg/bits"

// armBranch implements B and BL: a 24-bit signed word offset added to
// PC+8 (the prefetch slot). BL additionally stores the return address
// in R14 before jumping.
func (c *CPU) armBranch(instr uint32) {
	link := bits.Test(instr, 24)
	offset := bits.SignExtend(instr&0xFFFFFF, 24)
	target := uint32(int64(c.r[15]) + 4 + int64(offset)*4)

	if link {
		c.r[14] = c.r[15]
	}
	c.r[15] = target
}
