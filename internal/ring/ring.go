// Package ring implements a fixed-capacity single-producer/single-consumer
// byte ring buffer. Capacity must be a power of two so index wrapping is a
// plain mask, the same trick the jitter buffer this is grounded on uses for
// its per-sender slot ring.
package ring

import (
	"errors"
	"sync/atomic"
)

// ErrFull is returned by Write when there is not enough free space for the
// whole write. Writes never partially succeed.
var ErrFull = errors.New("ring: full")

// Ring is a byte ring buffer safe for exactly one writer goroutine and
// exactly one reader goroutine running concurrently with each other (but
// not with themselves).
//
// head is only ever written by the reader and read by both sides; tail is
// only ever written by the writer and read by both sides. Go's atomic
// Load/Store give the acquire/release ordering this handoff needs: the
// writer publishes new bytes by copying them into buf and only then
// advancing tail, so a reader that observes the new tail value is
// guaranteed to observe the bytes that were copied before it.
type Ring struct {
	buf  []byte
	mask uint64

	head atomic.Uint64
	tail atomic.Uint64
}

// New creates a Ring with the given capacity, which must be a power of two.
func New(capacity int) *Ring {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("ring: capacity must be a power of two")
	}
	return &Ring{buf: make([]byte, capacity), mask: uint64(capacity - 1)}
}

// Capacity returns the ring's total byte capacity.
func (r *Ring) Capacity() int { return len(r.buf) }

// Len returns the number of unread bytes currently buffered.
func (r *Ring) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Free returns the number of bytes available to write.
func (r *Ring) Free() int {
	return len(r.buf) - r.Len()
}

// Write copies p into the ring as a single atomic publish, or returns
// ErrFull without writing any bytes if there isn't room for all of it.
// Must only be called from the single producer goroutine.
func (r *Ring) Write(p []byte) error {
	if len(p) > r.Free() {
		return ErrFull
	}
	if len(p) == 0 {
		return nil
	}
	tail := r.tail.Load()
	for i, b := range p {
		r.buf[(tail+uint64(i))&r.mask] = b
	}
	r.tail.Store(tail + uint64(len(p)))
	return nil
}

// Read copies up to len(p) unread bytes into p and advances the read
// position, returning the number of bytes copied. Must only be called from
// the single consumer goroutine.
func (r *Ring) Read(p []byte) int {
	n := r.Peek(p)
	r.Discard(n)
	return n
}

// Peek copies up to len(p) unread bytes into p without advancing the read
// position, returning the number of bytes copied.
func (r *Ring) Peek(p []byte) int {
	head := r.head.Load()
	avail := r.Len()
	n := len(p)
	if n > avail {
		n = avail
	}
	for i := 0; i < n; i++ {
		p[i] = r.buf[(head+uint64(i))&r.mask]
	}
	return n
}

// Discard advances the read position by n bytes without copying them out.
// n must not exceed Len().
func (r *Ring) Discard(n int) {
	if n <= 0 {
		return
	}
	r.head.Store(r.head.Load() + uint64(n))
}
