package types

import "errors"

// Sentinel errors shared across the kernel. Call sites wrap one of
// these with fmt.Errorf("context: %w", Err...) so callers can use
// errors.Is to classify a failure without string matching.
var (
	ErrInvalidOrder     = errors.New("invalid order")
	ErrInvalidState     = errors.New("invalid order state")
	ErrInvalidBar       = errors.New("invalid bar")
	ErrInvalidLevel     = errors.New("invalid level")
	ErrPositionMismatch = errors.New("position size mismatch")
)
