package gba

import (
	"github.com/kestrelcore/goba/internal/telemetry"
	"github.com/kestrelcore/goba/pkg/log"
	"github.com/spf13/afero"
)

// Opt is a function that modifies a GBA instance at construction time.
type Opt func(g *GBA)

// WithLogger replaces the default logger on the core and its
// components.
func WithLogger(l log.Logger) Opt {
	return func(g *GBA) {
		g.Logger = l
		g.CPU.Log = l
		g.MMU.Log = l
		g.MMU.Backup().Log = l
	}
}

// WithBIOS installs a BIOS image. Without one, BIOS-region reads
// resolve through the open-bus path and SWIs are handled by the
// interpreter's HLE table either way.
func WithBIOS(data []byte) Opt {
	return func(g *GBA) {
		g.MMU.SetBIOS(data)
	}
}

// WithFilesystem replaces the filesystem used for ROM and save-file
// access, letting tests run against an in-memory one.
func WithFilesystem(fsys afero.Fs) Opt {
	return func(g *GBA) {
		g.fs = fsys
	}
}

// WithTelemetry starts a websocket debug-state server on addr and
// broadcasts a snapshot after every frame.
func WithTelemetry(addr string) Opt {
	return func(g *GBA) {
		g.telemetry = telemetry.NewServer()
		g.telemetry.Log = g.Logger
		g.telemetry.ListenAndServe(addr)
	}
}
