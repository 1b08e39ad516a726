package gba

import (
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/kestrelcore/goba/internal/cpu"
	"github.com/spf13/afero"
)

func gzipBytes(data []byte) []byte {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

// idleROM is an ARM branch-to-self at the reset vector, enough to keep
// the CPU spinning while the PPU walks a frame.
var idleROM = []byte{0xFE, 0xFF, 0xFF, 0xEA}

func newTestGBA(t *testing.T) (*GBA, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/game.gba", idleROM, 0644); err != nil {
		t.Fatal(err)
	}
	g := New(WithFilesystem(fsys))
	if err := g.LoadROM("/game.gba"); err != nil {
		t.Fatal(err)
	}
	return g, fsys
}

// TestPowerOn checks the documented power-on register state through
// the host surface.
func TestPowerOn(t *testing.T) {
	g, _ := newTestGBA(t)
	if g.CPU.PC() != 0x08000000 {
		t.Fatalf("PC: got %08X", g.CPU.PC())
	}
	if g.CPU.R(13) != 0x03007F00 {
		t.Fatalf("SP: got %08X", g.CPU.R(13))
	}
	if g.CPU.Mode() != cpu.ModeSys || g.CPU.Thumb() {
		t.Fatalf("mode/ISA: got %02X thumb=%v", g.CPU.Mode(), g.CPU.Thumb())
	}
}

func TestLoadROMMissingFile(t *testing.T) {
	g := New(WithFilesystem(afero.NewMemMapFs()))
	if err := g.LoadROM("/nope.gba"); err == nil {
		t.Fatalf("expected error for missing rom")
	}
}

func TestLoadROMUnpacksGzip(t *testing.T) {
	fsys := afero.NewMemMapFs()
	// gzip of the 4-byte idle rom, generated with compress/gzip defaults
	if err := afero.WriteFile(fsys, "/game.gba.gz", gzipBytes(idleROM), 0644); err != nil {
		t.Fatal(err)
	}
	g := New(WithFilesystem(fsys))
	if err := g.LoadROM("/game.gba.gz"); err != nil {
		t.Fatal(err)
	}
	if g.MMU.ROMSize() != len(idleROM) {
		t.Fatalf("rom size: got %d want %d", g.MMU.ROMSize(), len(idleROM))
	}
	if got := g.MMU.Read32(0x08000000); got != 0xEAFFFFFE {
		t.Fatalf("rom word: got %08X", got)
	}
}

func TestRunFrameCompletes(t *testing.T) {
	g, _ := newTestGBA(t)
	g.RunFrame()
	if !g.IsFrameReady() {
		t.Fatalf("expected frame-ready after RunFrame")
	}
	if g.MMU.VCOUNT() != 0 {
		t.Fatalf("VCOUNT after full frame: got %d want 0", g.MMU.VCOUNT())
	}
	if g.Frames() != 1 {
		t.Fatalf("frame counter: got %d", g.Frames())
	}

	// idempotent across frames
	g.RunFrame()
	if g.Frames() != 2 {
		t.Fatalf("second frame: got %d", g.Frames())
	}
}

func TestRunFrameEmitsAudio(t *testing.T) {
	g, _ := newTestGBA(t)
	g.RunFrame()
	// 228 lines × 1232 ticks / 512 ticks-per-sample ≈ 548 stereo pairs
	if got := len(g.SampleBuffer()); got < 1000 {
		t.Fatalf("expected roughly a frame of samples, got %d values", got)
	}
	g.ClearSampleBuffer()
	if len(g.SampleBuffer()) != 0 {
		t.Fatalf("sample buffer not cleared")
	}
}

func TestUpdateKeyShadowsKEYINPUT(t *testing.T) {
	g, _ := newTestGBA(t)
	g.UpdateKey(0, true) // press A
	if got := g.MMU.KeyInput(); got != 0x3FE {
		t.Fatalf("KEYINPUT after press: got %04X want 03FE", got)
	}
	g.UpdateKey(0, false)
	if got := g.MMU.KeyInput(); got != 0x3FF {
		t.Fatalf("KEYINPUT after release: got %04X want 03FF", got)
	}
	g.UpdateKey(99, true) // out of range, silently dropped
	if got := g.MMU.KeyInput(); got != 0x3FF {
		t.Fatalf("KEYINPUT after bogus id: got %04X", got)
	}
}

func TestSaveStateRoundTrip(t *testing.T) {
	g, _ := newTestGBA(t)
	g.RunFrame()
	g.MMU.Write32(0x02000040, 0x13371337)
	snap := g.SaveState()

	g.RunFrame()
	g.MMU.Write32(0x02000040, 0)

	g.LoadState(snap)
	if got := g.MMU.Read32(0x02000040); got != 0x13371337 {
		t.Fatalf("ewram after restore: got %08X", got)
	}
	if g.Frames() != 1 {
		t.Fatalf("frame counter after restore: got %d want 1", g.Frames())
	}
}

func TestBackupPersistence(t *testing.T) {
	g, fsys := newTestGBA(t)
	g.MMU.Write8(0x0E000010, 0x77)
	if err := g.SaveBackup("/game.sav"); err != nil {
		t.Fatal(err)
	}

	g2 := New(WithFilesystem(fsys))
	g2.LoadROMBytes(idleROM)
	if err := g2.LoadBackup("/game.sav"); err != nil {
		t.Fatal(err)
	}
	if got := g2.MMU.Read8(0x0E000010); got != 0x77 {
		t.Fatalf("restored save byte: got %02X want 77", got)
	}
}

func TestSnapshotReflectsCore(t *testing.T) {
	g, _ := newTestGBA(t)
	g.RunFrame()
	snap := g.Snapshot()
	if snap.PC != g.CPU.PC() || snap.Cycles != g.CPU.Cycles() || snap.Frames != 1 {
		t.Fatalf("snapshot mismatch: %+v", snap)
	}
}
