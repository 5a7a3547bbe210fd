package log

import "sync/atomic"

var process atomic.Pointer[Logger]

// SetDefaultLogger installs the logger used by code that is not handed
// one explicitly, such as the probe server middleware. Nil restores the
// discarding logger.
func SetDefaultLogger(logger *Logger) {
	process.Store(logger)
}

// DefaultLogger returns the installed logger. Until a command configures
// logging, output is discarded so library use stays silent.
func DefaultLogger() *Logger {
	if l := process.Load(); l != nil {
		return l
	}
	return Discard()
}
