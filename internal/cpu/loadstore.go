package cpu

import "github.com/kestrelcore/goba/pkg/bits"

// armSingleTransfer implements LDR/STR, word or byte, with pre/post
// indexing, up/down offset and writeback.
func (c *CPU) armSingleTransfer(instr uint32) {
	registerOffset := bits.Test(instr, 25)
	pre := bits.Test(instr, 24)
	up := bits.Test(instr, 23)
	byteTransfer := bits.Test(instr, 22)
	writeback := bits.Test(instr, 21)
	load := bits.Test(instr, 20)
	rn := bitsRange(instr, 19, 16)
	rd := bitsRange(instr, 15, 12)

	var offset uint32
	if registerOffset {
		shiftKind := bitsRange(instr, 6, 5)
		amount := bitsRange(instr, 11, 7)
		rm := c.r[instr&0xF]
		offset, _ = barrelShift(shiftKind, rm, amount, true, c.flag(flagC))
	} else {
		offset = instr & 0xFFF
	}

	base := c.r[rn]
	addr := base
	if pre {
		if up {
			addr = base + offset
		} else {
			addr = base - offset
		}
	}

	if load {
		var v uint32
		if byteTransfer {
			v = uint32(c.m.Read8(addr))
		} else {
			v = c.readWordRotated(addr)
		}
		c.setReg(rd, v)
	} else {
		v := c.readReg(rd)
		if byteTransfer {
			c.m.Write8(addr, uint8(v))
		} else {
			c.m.Write32(addr&^3, v)
		}
	}

	if !pre {
		if up {
			addr = base + offset
		} else {
			addr = base - offset
		}
		c.r[rn] = addr
	} else if writeback {
		c.r[rn] = addr
	}
}

// readWordRotated performs a misaligned LDR word read the way
// ARM7TDMI actually behaves: read the aligned word, then rotate right
// by 8×(addr mod 4).
func (c *CPU) readWordRotated(addr uint32) uint32 {
	v := c.m.Read32(addr &^ 3)
	rot := (addr & 3) * 8
	if rot == 0 {
		return v
	}
	return (v >> rot) | (v << (32 - rot))
}

// armHalfwordTransfer implements LDRH/STRH/LDRSB/LDRSH, which use an
// encoding path distinct from the word/byte transfers; signed loads
// sign-extend into the full 32-bit register.
func (c *CPU) armHalfwordTransfer(instr uint32) {
	pre := bits.Test(instr, 24)
	up := bits.Test(instr, 23)
	immediate := bits.Test(instr, 22)
	writeback := bits.Test(instr, 21)
	load := bits.Test(instr, 20)
	rn := bitsRange(instr, 19, 16)
	rd := bitsRange(instr, 15, 12)
	signed := bits.Test(instr, 6)
	halfword := bits.Test(instr, 5)

	var offset uint32
	if immediate {
		offset = bitsRange(instr, 11, 8)<<4 | instr&0xF
	} else {
		offset = c.r[instr&0xF]
	}

	base := c.r[rn]
	addr := base
	if pre {
		if up {
			addr = base + offset
		} else {
			addr = base - offset
		}
	}

	if load {
		var v uint32
		switch {
		case signed && halfword:
			v = uint32(int32(int16(c.m.Read16(addr))))
		case signed:
			v = uint32(int32(int8(c.m.Read8(addr))))
		default:
			v = uint32(c.m.Read16(addr))
		}
		c.setReg(rd, v)
	} else {
		v := c.readReg(rd)
		if halfword {
			c.m.Write16(addr, uint16(v))
		} else {
			c.m.Write8(addr, uint8(v))
		}
	}

	if !pre {
		if up {
			addr = base + offset
		} else {
			addr = base - offset
		}
		c.r[rn] = addr
	} else if writeback {
		c.r[rn] = addr
	}
}

// armBlockTransfer implements LDM/STM: registers in the bitlist are
// touched in ascending address order regardless of bitlist order, and
// writeback updates the base by ±4·count.
func (c *CPU) armBlockTransfer(instr uint32) {
	pre := bits.Test(instr, 24)
	up := bits.Test(instr, 23)
	sBit := bits.Test(instr, 22)
	writeback := bits.Test(instr, 21)
	load := bits.Test(instr, 20)
	rn := bitsRange(instr, 19, 16)
	list := instr & 0xFFFF

	count := 0
	for i := 0; i < 16; i++ {
		if list&(1<<i) != 0 {
			count++
		}
	}
	if count == 0 {
		count = 16 // degenerate empty-list case, avoid a zero-size transfer
	}

	base := c.r[rn]
	var start uint32
	if up {
		start = base
	} else {
		start = base - uint32(count)*4
	}

	addr := start
	if pre == up {
		addr += 4
	}

	for i := 0; i < 16; i++ {
		if list&(1<<i) == 0 {
			continue
		}
		if load {
			c.setReg(uint32(i), c.m.Read32(addr&^3))
		} else {
			c.m.Write32(addr&^3, c.readReg(uint32(i)))
		}
		addr += 4
	}

	if load && sBit && list&(1<<15) != 0 {
		c.restoreFromSPSR()
	}

	if writeback {
		if up {
			c.r[rn] = base + uint32(count)*4
		} else {
			c.r[rn] = base - uint32(count)*4
		}
	}
}
