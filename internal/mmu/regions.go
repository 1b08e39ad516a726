package mmu

// Region capacities and bounds, keyed by the top nibble of a 32-bit
// address.
const (
	biosSize    = 0x4000    // 16 KiB
	ewramSize   = 0x40000   // 256 KiB
	iwramSize   = 0x8000    // 32 KiB
	ioSize      = 0x400     // 1 KiB
	paletteSize = 0x400     // 1 KiB
	vramSize    = 0x18000   // 96 KiB
	vramSlot    = 0x20000   // 128 KiB mirrored window
	oamSize     = 0x400     // 1 KiB
	romMax      = 0x2000000 // 32 MiB
	sramSmall   = 0x10000   // 64 KiB
	sramLarge   = 0x20000   // 128 KiB

	// VRAM write bounds depend on the video mode: bitmap modes
	// (3/4/5) allow writes up to 0x14000, tile modes up to 0x10000;
	// this keeps 8-bit broadcast writes out of the OBJ tile area.
	vramBoundBitmap = 0x14000
	vramBoundTile   = 0x10000
)

// nibble returns bits 31..24 of a 32-bit address, which select the
// memory region.
func nibble(addr uint32) uint32 {
	return (addr >> 24) & 0xFF
}
