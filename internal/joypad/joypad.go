// Package joypad tracks the GBA's KEYINPUT shadow register and
// translates the host's id-based button protocol into its active-low
// bitmask.
package joypad

import "github.com/kestrelcore/goba/internal/mmu"

// Button ids 0..9, in KEYINPUT bit order:
// {A, B, Select, Start, Right, Left, Up, Down, R, L}.
const (
	ButtonA = iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonRight
	ButtonLeft
	ButtonUp
	ButtonDown
	ButtonR
	ButtonL

	numButtons
)

// State owns the joypad's live button mask and publishes it to the
// MMU's KEYINPUT shadow.
type State struct {
	m *mmu.MMU
}

// New returns a new joypad bound to m's KEYINPUT register.
func New(m *mmu.MMU) *State {
	return &State{m: m}
}

// UpdateKey sets or clears button id's bit in KEYINPUT (bit clear =
// pressed). Ids outside 0..9 are silently dropped.
func (s *State) UpdateKey(id int, pressed bool) {
	if id < 0 || id >= numButtons {
		return
	}
	bit := uint16(1) << uint(id)
	state := s.m.KeyInput()
	if pressed {
		state &^= bit
	} else {
		state |= bit
	}
	s.m.SetKeyInput(state)
}
