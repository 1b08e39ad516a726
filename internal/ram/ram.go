// Package ram provides a basic mirrored RAM block, used for EWRAM,
// IWRAM and the other fixed-capacity regions in the GBA address map.
package ram

import "github.com/kestrelcore/goba/internal/types"

// RAM is a fixed-size, address-mirrored block of bytes.
type RAM struct {
	data []byte
}

// New returns a new RAM block of the given size. Accesses beyond the
// block wrap (mirror) within it, the way EWRAM and IWRAM mirror
// within their regions.
func New(size uint32) *RAM {
	return &RAM{data: make([]byte, size)}
}

// Read8 returns the byte at the given offset, mirrored within the block.
func (r *RAM) Read8(offset uint32) uint8 {
	return r.data[offset%uint32(len(r.data))]
}

// Write8 writes the byte at the given offset, mirrored within the block.
func (r *RAM) Write8(offset uint32, value uint8) {
	r.data[offset%uint32(len(r.data))] = value
}

// Len returns the backing capacity of the block.
func (r *RAM) Len() int {
	return len(r.data)
}

var _ types.Stater = (*RAM)(nil)

// Save writes the raw contents of the block to the state.
func (r *RAM) Save(s *types.State) {
	s.WriteData(r.data)
}

// Load reads the raw contents of the block from the state.
func (r *RAM) Load(s *types.State) {
	s.ReadData(r.data)
}
