package mmu

// SetROM installs the cartridge image. Reading the file and any
// archive decompression is the loader's job (internal/gba); the MMU
// only stores the resulting bytes, truncated to the 32 MiB cartridge
// address space.
func (m *MMU) SetROM(data []byte) {
	n := len(data)
	if n > romMax {
		n = romMax
	}
	m.rom = make([]byte, n)
	copy(m.rom, data)
}

// ROMSize returns the number of cartridge bytes currently loaded.
func (m *MMU) ROMSize() int { return len(m.rom) }

// readROM8 reads a byte from the cartridge, mirrored across the
// 0x08-0x0D wait-state windows; bytes past the end of the image read
// as 0.
func (m *MMU) readROM8(addr uint32) uint8 {
	off := addr & (romMax - 1)
	if int(off) >= len(m.rom) {
		return 0
	}
	return m.rom[off]
}
