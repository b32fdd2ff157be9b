package core

import "errors"

// Sentinel errors returned across the public amio API. Callers compare with
// errors.Is, since most call sites wrap these with additional context via
// fmt.Errorf("...: %w", ...).
var (
	ErrInvalidArgument   = errors.New("amio: invalid argument")
	ErrClosedInterface   = errors.New("amio: operation on closed interface")
	ErrAlreadyInit       = errors.New("amio: interface already initialized")
	ErrDeviceUnavailable = errors.New("amio: audio device unavailable")
	ErrQueueFull         = errors.New("amio: queue full")
	ErrBugAssertion      = errors.New("amio: internal invariant violated")
)
