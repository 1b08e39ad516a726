// Package flash implements the backup storage behind the GBA's
// 0x0E-0x0F address space: either plain battery-backed SRAM, or a
// JEDEC-style Flash chip driven by a five-byte unlock sequence,
// modeled as a plain tagged-enum state machine.
package flash

import (
	"github.com/cespare/xxhash"
	"github.com/kestrelcore/goba/internal/types"
	"github.com/kestrelcore/goba/pkg/log"
)

// state is the Flash chip's command state.
type state uint8

const (
	stateReady state = iota
	stateCmd1
	stateCmd2
	stateErase1
	stateErase2
	stateErase3
	stateProgram
	stateBankSelect
	stateChipID
)

const (
	// ManufacturerID and DeviceID are the values a ChipID-mode read
	// returns at offsets 0x0000/0x0001. The second device ID byte
	// distinguishes the 64 KiB (Macronix, 0x1B) and 128 KiB
	// (Sanyo, 0x09, two-bank) variants.
	ManufacturerID = 0x32
	DeviceID64KiB  = 0x1B
	DeviceID128KiB = 0x09
)

// Chip is the backup storage behind region 0x0E-0x0F. It behaves as
// plain SRAM for ordinary reads/writes and only enters the Flash
// command state machine when the five-byte unlock sequence is seen.
type Chip struct {
	Log log.Logger

	data     []byte
	st       state
	bank     uint8
	deviceID uint8
}

// New returns a new Chip with the given capacity (64 KiB or
// 128 KiB), erased to 0xFF.
func New(size uint32) *Chip {
	c := &Chip{
		Log:      log.NewNullLogger(),
		data:     make([]byte, size),
		deviceID: DeviceID64KiB,
	}
	if size > 0x10000 {
		c.deviceID = DeviceID128KiB
	}
	c.Reset()
	return c
}

// Reset erases the backing storage to 0xFF and returns the state
// machine to Ready.
func (c *Chip) Reset() {
	for i := range c.data {
		c.data[i] = 0xFF
	}
	c.st = stateReady
	c.bank = 0
}

func (c *Chip) bankOffset(addr uint32) uint32 {
	off := addr & 0xFFFF
	if int(c.bank)*0x10000+int(off) < len(c.data) {
		off += uint32(c.bank) * 0x10000
	}
	return off
}

// Read returns one byte at addr. In ChipID mode, offsets 0 and 1
// return the manufacturer/device ID instead of backing storage.
func (c *Chip) Read(addr uint32) uint8 {
	if c.st == stateChipID {
		switch addr & 0xFFFF {
		case 0:
			return ManufacturerID
		case 1:
			return c.deviceID
		}
	}
	off := c.bankOffset(addr)
	if int(off) >= len(c.data) {
		return 0xFF
	}
	return c.data[off]
}

// Write feeds the Flash command state machine, or, outside of any
// recognized command sequence, writes straight through to backing
// storage (the SRAM case).
func (c *Chip) Write(addr uint32, v uint8) {
	off := addr & 0xFFFF

	switch c.st {
	case stateReady:
		if off == 0x5555 && v == 0xAA {
			c.st = stateCmd1
			return
		}
	case stateCmd1:
		if off == 0x2AAA && v == 0x55 {
			c.st = stateCmd2
			return
		}
		c.st = stateReady
	case stateCmd2:
		c.st = stateReady
		switch v {
		case 0x90:
			c.st = stateChipID
		case 0xF0:
			c.st = stateReady
		case 0x80:
			c.st = stateErase1
		case 0xA0:
			c.st = stateProgram
		case 0xB0:
			c.st = stateBankSelect
		}
		return
	case stateErase1:
		if off == 0x5555 && v == 0xAA {
			c.st = stateErase2
			return
		}
		c.st = stateReady
	case stateErase2:
		if off == 0x2AAA && v == 0x55 {
			c.st = stateErase3
			return
		}
		c.st = stateReady
	case stateErase3:
		c.st = stateReady
		switch v {
		case 0x10:
			for i := range c.data {
				c.data[i] = 0xFF
			}
		default:
			// 4 KiB sector erase.
			base := c.bankOffset(addr) &^ 0xFFF
			for i := uint32(0); i < 0x1000 && int(base+i) < len(c.data); i++ {
				c.data[base+i] = 0xFF
			}
		}
		return
	case stateProgram:
		bo := c.bankOffset(addr)
		if int(bo) < len(c.data) {
			c.data[bo] &= v
		}
		c.st = stateReady
		return
	case stateBankSelect:
		c.bank = v & 1
		c.st = stateReady
		return
	case stateChipID:
		if v == 0xF0 {
			c.st = stateReady
		}
		return
	}

	// Plain SRAM write, or an unrecognized byte mid-sequence.
	bo := c.bankOffset(addr)
	if int(bo) < len(c.data) {
		c.data[bo] = v
	}
}

var _ types.Stater = (*Chip)(nil)

// Save writes the backup storage, the bank/command state, and a
// checksum of the storage so Load can detect a blob corrupted or
// truncated in transit.
func (c *Chip) Save(s *types.State) {
	s.WriteData(c.data)
	s.Write8(uint8(c.st))
	s.Write8(c.bank)
	s.Write64(xxhash.Sum64(c.data))
}

// Load restores backup storage and bank/command state, then compares
// the storage checksum against the one Save recorded; a mismatch
// means the blob was corrupted during persistence, which is logged
// rather than silently carried forward.
func (c *Chip) Load(s *types.State) {
	s.ReadData(c.data)
	c.st = state(s.Read8())
	c.bank = s.Read8()
	stored := s.Read64()
	if sum := xxhash.Sum64(c.data); sum != stored {
		c.Log.Errorf("flash: snapshot checksum mismatch: stored %016x, computed %016x", stored, sum)
	}
}

// Checksum returns the xxhash of the backing storage, used by
// internal/gba when persisting a save file to disk.
func (c *Chip) Checksum() uint64 {
	return xxhash.Sum64(c.data)
}

// Bytes returns the raw backup storage, the on-disk save format (a
// 64 KiB or 128 KiB raw byte dump).
func (c *Chip) Bytes() []byte {
	return c.data
}

// LoadBytes installs a raw save dump loaded by the host. A dump
// shorter than the chip is applied as a prefix; raw dumps carry no
// checksum, so length policing is the caller's job.
func (c *Chip) LoadBytes(data []byte) {
	copy(c.data, data)
}
