package flash

import (
	"fmt"
	"strings"
	"testing"

	"github.com/kestrelcore/goba/internal/types"
)

// recordingLogger captures Errorf output for assertions.
type recordingLogger struct {
	errors []string
}

func (r *recordingLogger) Infof(format string, args ...interface{})  {}
func (r *recordingLogger) Debugf(format string, args ...interface{}) {}
func (r *recordingLogger) Errorf(format string, args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func unlock(c *Chip, cmd uint8) {
	c.Write(0x5555, 0xAA)
	c.Write(0x2AAA, 0x55)
	c.Write(0x5555, cmd)
}

func TestErasedOnPowerOn(t *testing.T) {
	c := New(0x10000)
	for _, addr := range []uint32{0, 0x1234, 0xFFFF} {
		if got := c.Read(addr); got != 0xFF {
			t.Fatalf("byte %04X: got %02X want FF", addr, got)
		}
	}
}

func TestPlainSRAMWrite(t *testing.T) {
	c := New(0x10000)
	c.Write(0x0042, 0x99)
	if got := c.Read(0x0042); got != 0x99 {
		t.Fatalf("sram byte: got %02X want 99", got)
	}
}

func TestChipIDMode(t *testing.T) {
	c := New(0x10000)
	unlock(c, 0x90)
	if got := c.Read(0); got != ManufacturerID {
		t.Fatalf("manufacturer: got %02X want %02X", got, ManufacturerID)
	}
	if got := c.Read(1); got != DeviceID64KiB {
		t.Fatalf("device: got %02X want %02X", got, DeviceID64KiB)
	}

	// exit and confirm storage reads resume
	c.Write(0, 0xF0)
	if got := c.Read(0); got != 0xFF {
		t.Fatalf("after exit: got %02X want FF", got)
	}
}

func TestTwoBankVariantReportsSanyoID(t *testing.T) {
	c := New(0x20000)
	unlock(c, 0x90)
	if got := c.Read(1); got != DeviceID128KiB {
		t.Fatalf("device: got %02X want %02X", got, DeviceID128KiB)
	}
}

func TestProgramByte(t *testing.T) {
	c := New(0x10000)
	unlock(c, 0xA0)
	c.Write(0x0100, 0x5A)
	if got := c.Read(0x0100); got != 0x5A {
		t.Fatalf("programmed byte: got %02X want 5A", got)
	}
	// programming only clears bits (NOR flash): 0x5A & 0x0F == 0x0A
	unlock(c, 0xA0)
	c.Write(0x0100, 0x0F)
	if got := c.Read(0x0100); got != 0x0A {
		t.Fatalf("reprogram without erase: got %02X want 0A", got)
	}
}

func TestChipErase(t *testing.T) {
	c := New(0x10000)
	unlock(c, 0xA0)
	c.Write(0x0100, 0x00)

	unlock(c, 0x80)
	unlock(c, 0x10)
	if got := c.Read(0x0100); got != 0xFF {
		t.Fatalf("after chip erase: got %02X want FF", got)
	}
}

func TestSectorErase(t *testing.T) {
	c := New(0x10000)
	unlock(c, 0xA0)
	c.Write(0x1000, 0x00)
	unlock(c, 0xA0)
	c.Write(0x2000, 0x00)

	unlock(c, 0x80)
	c.Write(0x5555, 0xAA)
	c.Write(0x2AAA, 0x55)
	c.Write(0x1000, 0x30) // 4 KiB sector erase at 0x1000

	if got := c.Read(0x1000); got != 0xFF {
		t.Fatalf("erased sector: got %02X want FF", got)
	}
	if got := c.Read(0x2000); got != 0x00 {
		t.Fatalf("neighbour sector: got %02X want 00 (untouched)", got)
	}
}

func TestBankSelect(t *testing.T) {
	c := New(0x20000)
	unlock(c, 0xA0)
	c.Write(0x0000, 0x11) // bank 0, offset 0

	unlock(c, 0xB0)
	c.Write(0x0000, 1) // select bank 1
	unlock(c, 0xA0)
	c.Write(0x0000, 0x22) // bank 1, offset 0

	if got := c.Read(0x0000); got != 0x22 {
		t.Fatalf("bank 1 byte: got %02X want 22", got)
	}

	unlock(c, 0xB0)
	c.Write(0x0000, 0)
	if got := c.Read(0x0000); got != 0x11 {
		t.Fatalf("bank 0 byte: got %02X want 11", got)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := New(0x10000)
	rec := &recordingLogger{}
	c.Log = rec
	unlock(c, 0xA0)
	c.Write(0x0042, 0x12)

	s := types.NewState()
	c.Save(s)

	c2 := New(0x10000)
	c2.Log = rec
	c2.Load(types.StateFromBytes(s.Bytes()))
	if got := c2.Read(0x0042); got != 0x12 {
		t.Fatalf("restored byte: got %02X want 12", got)
	}
	if len(rec.errors) != 0 {
		t.Fatalf("unexpected checksum error on clean round trip: %v", rec.errors)
	}
}

func TestSnapshotChecksumMismatchIsLogged(t *testing.T) {
	c := New(0x10000)
	s := types.NewState()
	c.Save(s)

	// corrupt one storage byte inside the serialized blob
	raw := s.Bytes()
	raw[100] ^= 0xFF

	rec := &recordingLogger{}
	c2 := New(0x10000)
	c2.Log = rec
	c2.Load(types.StateFromBytes(raw))

	if len(rec.errors) != 1 || !strings.Contains(rec.errors[0], "checksum mismatch") {
		t.Fatalf("expected one checksum mismatch error, got %v", rec.errors)
	}
}

func TestLoadBytesRestoresDump(t *testing.T) {
	c := New(0x10000)
	dump := make([]byte, 0x10000)
	for i := range dump {
		dump[i] = byte(i)
	}
	c.LoadBytes(dump)
	if got := c.Read(0x0123); got != 0x23 {
		t.Fatalf("restored byte: got %02X want 23", got)
	}
	if c.Checksum() == New(0x10000).Checksum() {
		t.Fatalf("checksum did not change after restore")
	}
}
