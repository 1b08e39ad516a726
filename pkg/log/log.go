// Package log provides the logging facade used across the emulator
// core. Components never fail on emulation anomalies (unknown
// opcodes, unmapped memory, divide-by-zero SWIs); the core runs
// adversarial machine code, so they carry on. The CPU logs unknown
// opcodes and unimplemented SWIs at Debug level; unmapped accesses
// and divide-by-zero SWIs are absorbed without a log line.
package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the subset of logrus's API that the core depends on.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type logger struct {
	*logrus.Logger
}

// New returns a logrus-backed Logger writing to stderr with a plain
// text formatter.
func New() Logger {
	l := logrus.New()
	l.Out = os.Stderr
	l.SetLevel(logrus.DebugLevel)
	l.Formatter = &logrus.TextFormatter{
		DisableColors:    true,
		DisableTimestamp: true,
		DisableSorting:   true,
		DisableQuote:     true,
	}
	return &logger{l}
}
