package amio

import "github.com/smiszym/amio/internal/pool"

// Pool allocates clip ids and validates raw PCM data. A Pool is safe to
// share across every Interface constructed against the same engine, since
// all of its work happens on the control thread.
type Pool = pool.Pool

// NewPool creates an empty Pool.
func NewPool() *Pool { return pool.New() }

// ClipFromFloat32 packs a user-supplied float array (expected range
// [-1, 1]) into interleaved little-endian int16 bytes suitable for
// Pool.CreateClip, clipping rather than wrapping out-of-range samples.
func ClipFromFloat32(samples []float32) []byte { return pool.ClipFromFloat32(samples) }
