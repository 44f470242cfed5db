package toolbox

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch is carried by the panics raised when an input or
	// target row does not agree with the network's layer sizes.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrIO wraps failures opening, reading, or writing a weights file.
	ErrIO = errors.New("weights file i/o")

	// ErrFormat is returned when a weights file can be read but not parsed
	// into a valid network.
	ErrFormat = errors.New("malformed weights file")

	// ErrUnknownValue is returned for activation, initialization, or
	// regularization identifiers outside the recognized set.
	ErrUnknownValue = errors.New("unknown identifier")
)

func shapeMismatch(format string, args ...any) {
	panic(fmt.Errorf("%w: %s", ErrShapeMismatch, fmt.Sprintf(format, args...)))
}
