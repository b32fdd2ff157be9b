// Package pool implements clip creation and the deferred-destruction
// protocol described by the mixing core: a clip dropped on the control side
// is only actually released once the realtime side confirms no live
// playspec still references it.
package pool

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/smiszym/amio/internal/core"
)

// Pool allocates clip ids and validates raw PCM data on the control thread.
type Pool struct {
	nextID atomic.Uint64
}

// New creates an empty Pool. Clip ids start at 1; 0 is reserved to mean
// "no clip."
func New() *Pool {
	p := &Pool{}
	p.nextID.Store(1)
	return p
}

// CreateClip validates and wraps raw interleaved little-endian int16 PCM
// data as an immutable Clip. data's length must be a multiple of
// channels*2.
func (p *Pool) CreateClip(data []byte, channels int, frameRate float64) (*core.Clip, error) {
	if channels < 1 {
		return nil, fmt.Errorf("amio: create clip: %w (channels must be >= 1, got %d)", core.ErrInvalidArgument, channels)
	}
	if frameRate <= 0 {
		return nil, fmt.Errorf("amio: create clip: %w (frame rate must be > 0, got %v)", core.ErrInvalidArgument, frameRate)
	}
	bytesPerFrame := channels * 2
	if len(data)%bytesPerFrame != 0 {
		return nil, fmt.Errorf("amio: create clip: %w (byte length %d is not a multiple of channels*2=%d)", core.ErrInvalidArgument, len(data), bytesPerFrame)
	}
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return &core.Clip{
		ID:        p.nextID.Add(1) - 1,
		Data:      samples,
		Channels:  channels,
		FrameRate: frameRate,
	}, nil
}

// ClipFromFloat32 packs a user-supplied float array (samples expected in
// [-1, 1]) into the raw int16 byte form CreateClip expects, clipping
// out-of-range samples rather than wrapping them.
func ClipFromFloat32(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s*32767)))
	}
	return out
}
