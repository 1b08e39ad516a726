package cpu

// bitsRange extracts the inclusive bit range [hi:lo] from v.
func bitsRange(v uint32, hi, lo uint) uint32 {
	return (v >> lo) & (1<<(hi-lo+1) - 1)
}

// executeARM decodes and runs one 32-bit ARM instruction. Decode is a
// priority-ordered match on fixed bit patterns:
// Branch-Exchange, then MRS/MSR, then multiply/halfword transfer
// forms, then the generic single/block transfer and branch groups,
// with Data-Processing last since its bits27:26==00 pattern would
// otherwise shadow the more specific forms above it.
func (c *CPU) executeARM(instr uint32) {
	cond := bitsRange(instr, 31, 28)
	if !c.condPassed(cond) {
		return
	}

	switch {
	case instr&0x0FFFFFF0 == 0x012FFF10:
		c.armBranchExchange(instr)
	case bitsRange(instr, 27, 26) == 0 && bitsRange(instr, 24, 23) == 0b10 && bitsRange(instr, 20, 20) == 0:
		c.armPSRTransfer(instr)
	case instr&0x0FC000F0 == 0x00000090:
		c.armMultiply(instr)
	case instr&0x0F8000F0 == 0x00800090:
		c.armMultiplyLong(instr)
	case instr&0x0E000090 == 0x00000090 && bitsRange(instr, 27, 25) == 0:
		c.armHalfwordTransfer(instr)
	case bitsRange(instr, 27, 26) == 0b01:
		c.armSingleTransfer(instr)
	case bitsRange(instr, 27, 25) == 0b100:
		c.armBlockTransfer(instr)
	case bitsRange(instr, 27, 25) == 0b101:
		c.armBranch(instr)
	case bitsRange(instr, 27, 24) == 0b1111:
		c.armSWI(instr)
	case bitsRange(instr, 27, 26) == 0b00:
		c.armDataProcessing(instr)
	default:
		c.Log.Debugf("cpu: unhandled ARM opcode %08X at PC=%08X", instr, c.r[15]-4)
	}
}
