package ppu

// renderMode0 implements the tile-background compositor: the
// backdrop fills the line, then each priority level 3→0 is
// visited and, within it, each enabled background 3→0 whose own
// priority matches is drawn; a later draw at the same priority
// overwrites an earlier one, so priority 0 (closest) ends up on top.
func (p *PPU) renderMode0() {
	backdrop := p.backdropColor()
	for x := 0; x < ScreenWidth; x++ {
		p.setPixel(x, p.scanline, backdrop)
	}

	for priority := 3; priority >= 0; priority-- {
		for bg := 3; bg >= 0; bg-- {
			if p.m.DISPCNT()&(1<<(8+bg)) == 0 {
				continue
			}
			cnt := p.m.BGCNT(bg)
			if int(cnt&0x3) != priority {
				continue
			}
			p.renderBackgroundLine(bg, cnt)
		}
	}
}

// bgDimensions returns a background's pixel width/height for its
// BGCNT size code.
func bgDimensions(sizeCode uint16) (int, int) {
	switch sizeCode {
	case 0:
		return 256, 256
	case 1:
		return 512, 256
	case 2:
		return 256, 512
	default:
		return 512, 512
	}
}

func (p *PPU) renderBackgroundLine(bg int, cnt uint16) {
	charBase := uint32(cnt>>2&0x3) * 0x4000
	screenBase := uint32(cnt>>8&0x1F) * 0x800
	is8bpp := cnt&(1<<7) != 0
	width, height := bgDimensions(cnt >> 14 & 0x3)

	hofs := int(p.m.BGHOFS(bg))
	vofs := int(p.m.BGVOFS(bg))
	y := wrap(p.scanline+vofs, height)

	blocksX := width / 256
	blocksY := height / 256
	qy := 0
	if blocksY > 1 {
		qy = y / 256
	}

	for x := 0; x < ScreenWidth; x++ {
		wx := wrap(x+hofs, width)
		qx := 0
		if blocksX > 1 {
			qx = wx / 256
		}
		block := qy*blocksX + qx

		tileX := (wx % 256) / 8
		tileY := (y % 256) / 8
		tileMapIndex := tileY*32 + tileX
		entryAddr := 0x06000000 + screenBase + uint32(block)*0x800 + uint32(tileMapIndex)*2
		entry := p.m.Read16(entryAddr)

		tileIndex := entry & 0x3FF
		hflip := entry&(1<<10) != 0
		vflip := entry&(1<<11) != 0
		bank := uint32(entry >> 12 & 0xF)

		intraX := wx % 8
		intraY := y % 8
		if hflip {
			intraX = 7 - intraX
		}
		if vflip {
			intraY = 7 - intraY
		}

		var rawIndex uint8
		var paletteIndex uint32
		if is8bpp {
			addr := 0x06000000 + charBase + uint32(tileIndex)*64 + uint32(intraY*8+intraX)
			rawIndex = p.m.Read8(addr)
			paletteIndex = uint32(rawIndex)
		} else {
			addr := 0x06000000 + charBase + uint32(tileIndex)*32 + uint32(intraY*4+intraX/2)
			b := p.m.Read8(addr)
			if intraX%2 == 0 {
				rawIndex = b & 0xF
			} else {
				rawIndex = b >> 4
			}
			paletteIndex = bank*16 + uint32(rawIndex)
		}

		if rawIndex == 0 {
			continue
		}
		p.setPixel(x, p.scanline, rgb15to32(p.paletteColor(paletteIndex)))
	}
}

func wrap(v, m int) int {
	v %= m
	if v < 0 {
		v += m
	}
	return v
}
