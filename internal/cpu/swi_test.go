package cpu

import "testing"

func TestSWIDivision(t *testing.T) {
	tests := []struct {
		num, den  int32
		quot, rem int32
	}{
		{7, 2, 3, 1},
		{-7, 2, -3, -1},
		{7, -2, -3, 1},
		{-7, -2, 3, -1},
		{100, 10, 10, 0},
	}
	for _, tt := range tests {
		c, _ := newTestCPU()
		c.SetR(0, uint32(tt.num))
		c.SetR(1, uint32(tt.den))
		c.biosCall(0x06)
		if int32(c.R(0)) != tt.quot || int32(c.R(1)) != tt.rem {
			t.Fatalf("%d/%d: got q=%d r=%d want q=%d r=%d",
				tt.num, tt.den, int32(c.R(0)), int32(c.R(1)), tt.quot, tt.rem)
		}
		// num = quot·den + rem
		if tt.quot*tt.den+tt.rem != tt.num {
			t.Fatalf("identity broken for %d/%d", tt.num, tt.den)
		}
	}
}

func TestSWIDivisionByZeroIsNoOp(t *testing.T) {
	c, _ := newTestCPU()
	c.SetR(0, 1234)
	c.SetR(1, 0)
	c.SetR(3, 0x55)
	c.biosCall(0x06)
	if c.R(0) != 1234 || c.R(1) != 0 || c.R(3) != 0x55 {
		t.Fatalf("divide by zero mutated registers: r0=%d r1=%d r3=%d", c.R(0), c.R(1), c.R(3))
	}
}

func TestSWIDivArmSwapsOperands(t *testing.T) {
	c, _ := newTestCPU()
	c.SetR(0, 3) // denominator in the swapped form
	c.SetR(1, 21)
	c.biosCall(0x07)
	if c.R(0) != 7 {
		t.Fatalf("swapped div: got %d want 7", c.R(0))
	}
}

func TestSWIGCD(t *testing.T) {
	c, _ := newTestCPU()
	c.SetR(0, 54)
	c.SetR(1, 24)
	c.biosCall(0x05)
	if c.R(0) != 6 {
		t.Fatalf("gcd(54,24): got %d want 6", c.R(0))
	}
}

func TestSWISqrt(t *testing.T) {
	for _, tt := range []struct{ in, out uint32 }{
		{0, 0}, {1, 1}, {16, 4}, {15, 3}, {90000, 300}, {0xFFFFFFFF, 0xFFFF},
	} {
		c, _ := newTestCPU()
		c.SetR(0, tt.in)
		c.biosCall(0x08)
		if c.R(0) != tt.out {
			t.Fatalf("sqrt(%d): got %d want %d", tt.in, c.R(0), tt.out)
		}
	}
}

func TestSWISine(t *testing.T) {
	c, _ := newTestCPU()
	c.SetR(0, 64) // quarter revolution
	c.biosCall(0x09)
	if int32(c.R(0)) != 0x7FFF {
		t.Fatalf("sin(64/256): got %d want 32767", int32(c.R(0)))
	}
	c.SetR(0, 0)
	c.biosCall(0x09)
	if c.R(0) != 0 {
		t.Fatalf("sin(0): got %d want 0", int32(c.R(0)))
	}
}

func TestSWICpuSetAdvancingCopy(t *testing.T) {
	c, m := newTestCPU()
	for i := uint32(0); i < 4; i++ {
		m.Write32(0x02000000+i*4, 0xA0A0A0A0+i)
	}
	c.SetR(0, 0x02000000)
	c.SetR(1, 0x03000000)
	c.SetR(2, 4|1<<26) // 4 words, 32-bit
	c.biosCall(0x0B)
	for i := uint32(0); i < 4; i++ {
		if got := m.Read32(0x03000000 + i*4); got != 0xA0A0A0A0+i {
			t.Fatalf("word %d: got %08X", i, got)
		}
	}
}

func TestSWICpuSetFixedSourceFill(t *testing.T) {
	c, m := newTestCPU()
	m.Write16(0x02000000, 0x1234)
	c.SetR(0, 0x02000000)
	c.SetR(1, 0x03000100)
	c.SetR(2, 3|1<<24) // 3 halfwords, fixed source
	c.biosCall(0x0B)
	for i := uint32(0); i < 3; i++ {
		if got := m.Read16(0x03000100 + i*2); got != 0x1234 {
			t.Fatalf("halfword %d: got %04X want 1234", i, got)
		}
	}
}

func TestUnimplementedSWIIsNoOp(t *testing.T) {
	c, _ := newTestCPU()
	c.SetR(0, 0x42)
	c.biosCall(0x1F)
	if c.R(0) != 0x42 {
		t.Fatalf("unimplemented SWI mutated r0: %08X", c.R(0))
	}
}
