package cpu

import "math"

// sineTable holds 256 entries of a fixed-point sine wave, consulted
// by SWI 0x09. Built once at package init from the generating formula
// (amplitude 0x7FFF, one full revolution over 256 entries) rather
// than hand-transcribed.
var sineTable [256]int16

func init() {
	for i := range sineTable {
		sineTable[i] = int16(math.Round(0x7FFF * math.Sin(2*math.Pi*float64(i)/256)))
	}
}

// armSWI intercepts SWI and dispatches to a fixed set of BIOS HLE
// handlers keyed by the instruction's comment field, rather than
// jumping to the SWI exception vector. Unimplemented calls are
// logged no-ops.
func (c *CPU) armSWI(instr uint32) {
	c.biosCall(bitsRange(instr, 23, 16))
}

func (c *CPU) biosCall(n uint32) {
	switch n {
	case 0x05: // GCD
		c.r[0] = gcd(c.r[0], c.r[1])
	case 0x06: // signed division: r0=number, r1=denominator
		c.biosDiv(c.r[0], c.r[1])
	case 0x07: // signed division, swapped operand order
		c.biosDiv(c.r[1], c.r[0])
	case 0x08: // integer square root
		c.r[0] = isqrt(c.r[0])
	case 0x09: // sine-table lookup
		c.r[0] = uint32(int32(sineTable[c.r[0]&0xFF]))
	case 0x0B:
		c.biosCpuSet()
	case 0x0C:
		c.biosCpuFastSet()
	default:
		c.Log.Debugf("cpu: unimplemented SWI %#02X", n)
	}
}

func gcd(a, b uint32) uint32 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// biosDiv implements the BIOS division contract: a zero denominator
// is a no-op, otherwise num = quot·den + rem with
// sign(rem) == sign(num).
func (c *CPU) biosDiv(number, denominator uint32) {
	den := int32(denominator)
	if den == 0 {
		return
	}
	num := int32(number)
	quot := num / den
	rem := num % den
	c.r[0] = uint32(quot)
	c.r[1] = uint32(rem)
	if quot < 0 {
		c.r[3] = uint32(-quot)
	} else {
		c.r[3] = uint32(quot)
	}
}

func isqrt(v uint32) uint32 {
	if v == 0 {
		return 0
	}
	x := v
	y := x/2 + x&1 // (x+1)/2 without wrapping at 0xFFFFFFFF
	for y < x {
		x = y
		y = (x + v/x) / 2
	}
	return x
}

// biosCpuSet implements the fixed-source-fill/advancing-copy CPU
// memory copy: r0=source, r1=dest, r2=control with
// bit24 fixed-source, bit26 width (0=16-bit,1=32-bit), bits20..0
// count.
func (c *CPU) biosCpuSet() {
	src, dst, ctrl := c.r[0], c.r[1], c.r[2]
	count := ctrl & 0x1FFFFF
	fixedSrc := ctrl&(1<<24) != 0
	wide := ctrl&(1<<26) != 0

	s, d := src, dst
	for i := uint32(0); i < count; i++ {
		if wide {
			c.m.Write32(d, c.m.Read32(s))
			d += 4
			if !fixedSrc {
				s += 4
			}
		} else {
			c.m.Write16(d, c.m.Read16(s))
			d += 2
			if !fixedSrc {
				s += 2
			}
		}
	}
}

// biosCpuFastSet is CpuSet's 32-bit-only, 8-word-block variant. The
// block-alignment requirement of real hardware is not modeled; a
// plain word loop is behaviorally equivalent for any count this
// emulator will be asked to copy.
func (c *CPU) biosCpuFastSet() {
	src, dst, ctrl := c.r[0], c.r[1], c.r[2]
	count := ctrl & 0x1FFFFF
	fixedSrc := ctrl&(1<<24) != 0

	s, d := src, dst
	for i := uint32(0); i < count; i++ {
		c.m.Write32(d, c.m.Read32(s))
		d += 4
		if !fixedSrc {
			s += 4
		}
	}
}
