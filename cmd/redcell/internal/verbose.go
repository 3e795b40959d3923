package internal

import "sync/atomic"

var verbose atomic.Bool

// SetVerbose records whether --verbose was passed so error handling
// can decide how much to print.
func SetVerbose(v bool) {
	verbose.Store(v)
}

// IsVerbose reports whether verbose output is enabled.
func IsVerbose() bool {
	return verbose.Load()
}
