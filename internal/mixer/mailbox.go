package mixer

import (
	"sync/atomic"

	"github.com/smiszym/amio/internal/core"
)

// SwapMailbox hands a *core.Playspec from the control thread to the
// realtime thread alongside a SetPlayspecCommand message on io_queue.
//
// The byte ring can carry the command's scalar fields (id, insert_at,
// start_from) directly, but a Go pointer has no meaningful wire encoding and
// needs none: Go's garbage collector already keeps the pointee alive for as
// long as any goroutine can reach it, so the pointer itself just needs a
// safe single-slot handoff. Post is always called before the matching
// io_queue write; take is always called while (or after) draining that same
// message. Since both sides only ever touch this mailbox through atomic
// operations, and Go's memory model treats all atomics as participating in
// one sequentially consistent order, a reader that observes the io_queue
// message is guaranteed to observe the Post that preceded it.
type SwapMailbox struct {
	pending atomic.Pointer[core.Playspec]
}

// Post stores ps for the realtime side to pick up. Only one playspec
// submission may be outstanding at a time (enforced by the facade), so this
// is always called with take having already consumed any previous value.
func (b *SwapMailbox) Post(ps *core.Playspec) {
	b.pending.Store(ps)
}

func (b *SwapMailbox) take() *core.Playspec {
	return b.pending.Swap(nil)
}
