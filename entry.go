package amio

import (
	"fmt"

	"github.com/smiszym/amio/internal/core"
)

// Entry is one scheduled occurrence (or periodic family of occurrences) of
// a clip within a playspec. FrameA/FrameB select a half-open range of the
// clip's frames; RepeatInterval > 0 repeats that range every
// RepeatInterval frames starting at PlayAtFrame.
type Entry = core.Entry

func validateEntry(e Entry) error {
	if e.Clip == nil {
		return fmt.Errorf("amio: entry: %w (clip is nil)", ErrInvalidArgument)
	}
	if e.FrameA < 0 || e.FrameB < e.FrameA {
		return fmt.Errorf("amio: entry: %w (frame range [%d, %d) is negative)", ErrInvalidArgument, e.FrameA, e.FrameB)
	}
	if e.FrameB > e.Clip.Frames() {
		return fmt.Errorf("amio: entry: %w (frame_b %d exceeds clip length %d)", ErrInvalidArgument, e.FrameB, e.Clip.Frames())
	}
	if e.RepeatInterval < 0 {
		return fmt.Errorf("amio: entry: %w (negative repeat_interval)", ErrInvalidArgument)
	}
	return nil
}
