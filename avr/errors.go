package avr

import "errors"

// Sentinel errors for the taxonomy spec.md §7 describes. The loader wraps
// ErrLoadFailed with github.com/pkg/errors to attach file context, so callers
// recover the root with that package's errors.Cause; Run returns
// ErrStepLimitExceeded unwrapped.
var (
	// ErrLoadFailed covers image-load failures: missing file, read error,
	// or an image that does not fit program memory.
	ErrLoadFailed = errors.New("avr: failed to load image")

	// ErrStepLimitExceeded is returned by Run when a program runs past its
	// step budget without reaching a PC fixed point.
	ErrStepLimitExceeded = errors.New("avr: step limit exceeded without halt")
)
