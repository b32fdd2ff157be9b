package amio

import "github.com/smiszym/amio/internal/core"

// Clip is an immutable, interleaved 16-bit PCM buffer referenced by zero or
// more playspec entries. The zero value is not useful; clips are created by
// Pool.CreateClip.
type Clip = core.Clip

// InputChunk is a bounded block of captured stereo input audio, stamped
// with the playspec id, transport position, rolling state, and wall time it
// was captured at.
type InputChunk = core.InputChunk

// Transport is a point-in-time snapshot of transport state.
type Transport = core.Transport
