package core

import "time"

// InputChunkFrames is the fixed frame count of each emitted InputChunk,
// matching the original native interface's input-chunk buffer size.
const InputChunkFrames = 128

// InputChunk is a bounded block of captured stereo input audio, stamped with
// enough context for the control side to reassemble it against the timeline
// it was captured against.
type InputChunk struct {
	Samples       []float32 // interleaved L/R; len == InputChunkFrames*2 for chunks captured by the mixer (NullInterface's synthesized chunks are longer)
	PlayspecID    uint64
	StartingFrame int64
	WasRolling    bool
	WallTime      time.Time
}

// Transport is a point-in-time snapshot of the shared transport state.
type Transport struct {
	Position  int64
	Rolling   bool
	FrameRate float64
}
