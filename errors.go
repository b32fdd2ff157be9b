package amio

import "github.com/smiszym/amio/internal/core"

// Sentinel errors returned by this package. Compare with errors.Is; most
// call sites wrap these with additional context.
var (
	ErrInvalidArgument   = core.ErrInvalidArgument
	ErrClosedInterface   = core.ErrClosedInterface
	ErrAlreadyInit       = core.ErrAlreadyInit
	ErrDeviceUnavailable = core.ErrDeviceUnavailable
	ErrQueueFull         = core.ErrQueueFull
	ErrBugAssertion      = core.ErrBugAssertion
)
