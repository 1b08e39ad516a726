package joypad

import (
	"testing"

	"github.com/kestrelcore/goba/internal/interrupts"
	"github.com/kestrelcore/goba/internal/mmu"
)

func TestUpdateKeyClearsAndSetsBit(t *testing.T) {
	m := mmu.New(interrupts.New())
	j := New(m)

	if m.KeyInput() != 0x3FF {
		t.Fatalf("expected all-unpressed reset state, got %#X", m.KeyInput())
	}

	j.UpdateKey(ButtonA, true)
	if m.KeyInput()&1 != 0 {
		t.Fatalf("expected A bit cleared on press")
	}

	j.UpdateKey(ButtonA, false)
	if m.KeyInput()&1 == 0 {
		t.Fatalf("expected A bit set again on release")
	}
}

func TestUpdateKeyIgnoresOutOfRangeID(t *testing.T) {
	m := mmu.New(interrupts.New())
	j := New(m)
	before := m.KeyInput()
	j.UpdateKey(42, true)
	if m.KeyInput() != before {
		t.Fatalf("expected out-of-range id to be a no-op")
	}
}
