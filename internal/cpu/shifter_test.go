package cpu

import "testing"

// Barrel-shifter edge cases: LSL#0 leaves carry unchanged, LSR/ASR#0
// means 32, ROR#0 is RRX.
func TestLSLZeroLeavesCarry(t *testing.T) {
	for _, carryIn := range []bool{false, true} {
		v, carry := barrelShift(shiftLSL, 0x1234, 0, true, carryIn)
		if v != 0x1234 || carry != carryIn {
			t.Fatalf("LSL#0 carryIn=%v: got %08X/%v", carryIn, v, carry)
		}
	}
}

func TestLSRImmediateZeroIsThirtyTwo(t *testing.T) {
	v, carry := barrelShift(shiftLSR, 0x80000000, 0, true, false)
	if v != 0 || !carry {
		t.Fatalf("LSR#0: got %08X carry=%v, want 0 with carry=MSB", v, carry)
	}
}

func TestASRImmediateZeroSignExtends(t *testing.T) {
	v, carry := barrelShift(shiftASR, 0x80000000, 0, true, false)
	if v != 0xFFFFFFFF || !carry {
		t.Fatalf("ASR#0 negative: got %08X carry=%v", v, carry)
	}
	v, carry = barrelShift(shiftASR, 0x7FFFFFFF, 0, true, true)
	if v != 0 || carry {
		t.Fatalf("ASR#0 positive: got %08X carry=%v", v, carry)
	}
}

func TestRORZeroIsRRX(t *testing.T) {
	v, carry := barrelShift(shiftROR, 0x00000003, 0, true, true)
	if v != 0x80000001 {
		t.Fatalf("RRX: got %08X want 80000001 (carry into bit 31)", v)
	}
	if !carry {
		t.Fatalf("RRX: carry-out must be bit 0 of the input")
	}
}

func TestLSLByThirtyTwoAndBeyond(t *testing.T) {
	v, carry := barrelShift(shiftLSL, 0x00000001, 32, false, false)
	if v != 0 || !carry {
		t.Fatalf("LSL#32: got %08X carry=%v, want 0 with carry=LSB", v, carry)
	}
	v, carry = barrelShift(shiftLSL, 0xFFFFFFFF, 33, false, true)
	if v != 0 || carry {
		t.Fatalf("LSL#33: got %08X carry=%v, want 0 with carry clear", v, carry)
	}
}

func TestLSRByThirtyTwoAndBeyond(t *testing.T) {
	v, carry := barrelShift(shiftLSR, 0x80000000, 32, false, false)
	if v != 0 || !carry {
		t.Fatalf("LSR#32: got %08X carry=%v", v, carry)
	}
	v, carry = barrelShift(shiftLSR, 0xFFFFFFFF, 40, false, true)
	if v != 0 || carry {
		t.Fatalf("LSR#40: got %08X carry=%v", v, carry)
	}
}

func TestASRAtLeastThirtyTwo(t *testing.T) {
	v, carry := barrelShift(shiftASR, 0x80000000, 40, false, false)
	if v != 0xFFFFFFFF || !carry {
		t.Fatalf("ASR#40 negative: got %08X carry=%v", v, carry)
	}
}

func TestRORRegisterAmountIsModuloThirtyTwo(t *testing.T) {
	v1, _ := barrelShift(shiftROR, 0x12345678, 4, false, false)
	v2, _ := barrelShift(shiftROR, 0x12345678, 36, false, false)
	if v1 != v2 {
		t.Fatalf("ROR#4 vs ROR#36: %08X != %08X", v1, v2)
	}
	if v1 != 0x81234567 {
		t.Fatalf("ROR#4: got %08X want 81234567", v1)
	}
}

func TestRegisterShiftZeroPassesCarryThrough(t *testing.T) {
	v, carry := barrelShift(shiftLSR, 0xFFFFFFFF, 0, false, true)
	if v != 0xFFFFFFFF || !carry {
		t.Fatalf("register LSR#0: got %08X carry=%v, want untouched", v, carry)
	}
}
