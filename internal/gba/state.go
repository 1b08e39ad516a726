package gba

import (
	"fmt"

	"github.com/kestrelcore/goba/internal/types"
	"github.com/spf13/afero"
)

// staters returns every stateful component in a fixed serialization
// order. Save and Load must walk the same sequence.
func (g *GBA) staters() []types.Stater {
	return []types.Stater{g.CPU, g.MMU, g.PPU, g.Timer, g.DMA, g.APU}
}

// SaveState serializes the full core state into a byte snapshot. ROM
// and BIOS contents are excluded; restoring a snapshot assumes the
// same cartridge is loaded.
func (g *GBA) SaveState() []byte {
	s := types.NewState()
	s.Write64(g.frames)
	for _, st := range g.staters() {
		st.Save(s)
	}
	return s.Bytes()
}

// LoadState restores a snapshot previously produced by SaveState.
func (g *GBA) LoadState(data []byte) {
	s := types.StateFromBytes(data)
	g.frames = s.Read64()
	for _, st := range g.staters() {
		st.Load(s)
	}
}

// SaveBackup persists the raw SRAM/Flash contents to path as a plain
// 64 KiB or 128 KiB byte dump.
func (g *GBA) SaveBackup(path string) error {
	chip := g.MMU.Backup()
	if err := afero.WriteFile(g.fs, path, chip.Bytes(), 0644); err != nil {
		return fmt.Errorf("save backup: %w", err)
	}
	g.Infof("gba: wrote %d byte save to %s (checksum %016x)", len(chip.Bytes()), path, chip.Checksum())
	return nil
}

// LoadBackup restores a raw save dump from path. A dump shorter than
// the chip is applied as a prefix; the remainder keeps its erased
// 0xFF fill.
func (g *GBA) LoadBackup(path string) error {
	data, err := afero.ReadFile(g.fs, path)
	if err != nil {
		return fmt.Errorf("load backup: %w", err)
	}
	chip := g.MMU.Backup()
	if len(data) < len(chip.Bytes()) {
		g.Errorf("gba: save file %s is %d bytes, expected %d; loading as prefix", path, len(data), len(chip.Bytes()))
	}
	chip.LoadBytes(data)
	g.Infof("gba: loaded save from %s (checksum %016x)", path, chip.Checksum())
	return nil
}
