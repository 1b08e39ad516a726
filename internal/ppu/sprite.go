package ppu

// spriteSizeTable maps shape (0=square,1=wide,2=tall) × size (0..3)
// to (width, height) in pixels.
var spriteSizeTable = [3][4][2]int{
	{{8, 8}, {16, 16}, {32, 32}, {64, 64}},
	{{16, 8}, {32, 8}, {32, 16}, {64, 32}},
	{{8, 16}, {8, 32}, {16, 32}, {32, 64}},
}

const numOAMEntries = 128

// renderSprites composites OAM's 128 entries over the already-drawn
// background line. Sprites are drawn unconditionally over
// backgrounds; there is no priority interleaving between the two
// layers (an explicit scope limitation, not an oversight).
func (p *PPU) renderSprites() {
	oneD := p.m.DISPCNT()&(1<<6) != 0

	for i := 0; i < numOAMEntries; i++ {
		base := uint32(0x07000000) + uint32(i)*8
		attr0 := p.m.Read16(base)
		attr1 := p.m.Read16(base + 2)
		attr2 := p.m.Read16(base + 4)

		// bits 9:8 combine the rotation/scale flag and the disable
		// flag: 0=normal, 2=disabled, 1/3=affine (unsupported here).
		if objMode := (attr0 >> 8) & 0x3; objMode != 0 {
			continue
		}

		shape := int(attr0>>14) & 0x3
		if shape == 3 {
			continue
		}
		size := int(attr1>>14) & 0x3
		w, h := spriteSizeTable[shape][size][0], spriteSizeTable[shape][size][1]

		y := int(attr0 & 0xFF)
		if y >= 160 {
			y -= 256
		}
		x := int(attr1 & 0x1FF)
		if x >= 240 {
			x -= 512
		}

		if p.scanline < y || p.scanline >= y+h {
			continue
		}

		hflip := attr1&(1<<12) != 0
		vflip := attr1&(1<<13) != 0
		is8bpp := attr0&(1<<13) != 0
		baseTile := uint32(attr2 & 0x3FF)
		priorityBank := uint32(attr2 >> 12 & 0xF)

		texY := p.scanline - y
		if vflip {
			texY = h - 1 - texY
		}
		row := texY / 8
		intraY := texY % 8

		mul := 1
		if is8bpp {
			mul = 2
		}

		for col := 0; col < w; col++ {
			screenX := x + col
			if screenX < 0 || screenX >= ScreenWidth {
				continue
			}

			texX := col
			if hflip {
				texX = w - 1 - texX
			}
			colTile := texX / 8
			intraX := texX % 8

			var tile uint32
			if oneD {
				tile = baseTile + uint32(row*(w/8)+colTile)*uint32(mul)
			} else {
				tile = baseTile + uint32(row*32) + uint32(colTile*mul)
			}

			var rawIndex uint8
			var paletteIndex uint32
			if is8bpp {
				addr := uint32(0x06010000) + tile*32 + uint32(intraY*8+intraX)
				rawIndex = p.m.Read8(addr)
				paletteIndex = uint32(rawIndex)
			} else {
				addr := uint32(0x06010000) + tile*32 + uint32(intraY*4+intraX/2)
				b := p.m.Read8(addr)
				if intraX%2 == 0 {
					rawIndex = b & 0xF
				} else {
					rawIndex = b >> 4
				}
				paletteIndex = priorityBank*16 + uint32(rawIndex)
			}

			if rawIndex == 0 {
				continue
			}
			p.setPixel(screenX, p.scanline, rgb15to32(p.paletteColor(0x100+paletteIndex)))
		}
	}
}
