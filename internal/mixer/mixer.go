// Package mixer implements the realtime audio callback body: draining
// control messages, swapping playspecs at the right block boundary,
// additively mixing active entries, capturing input, advancing the
// transport, and running the deferred clip-destruction handshake.
//
// Process runs on the realtime (audio callback) thread and must not
// allocate, block, or take a lock that a non-realtime thread could hold
// indefinitely. The state accessors (Position, Rolling, CurrentPlayspecID
// and the drop counters) are atomic loads, safe to call from any goroutine.
package mixer

import (
	"sync/atomic"
	"time"

	"github.com/smiszym/amio/internal/core"
	"github.com/smiszym/amio/internal/pool"
	"github.com/smiszym/amio/internal/proto"
	"github.com/smiszym/amio/internal/ring"
)

// maxMessagesPerBlock bounds how many io_queue messages are drained per
// Process call, keeping the work of a single callback bounded even if the
// control thread has queued up a burst of messages.
const maxMessagesPerBlock = 64

// destroyScratchCap mirrors pool.DestructionTracker's own bound; kept here
// so Process's reusable scratch slice never needs to grow.
const destroyScratchCap = 256

type retainedEntry struct {
	ps              *core.Playspec
	blocksRemaining int
}

type scheduledSwap struct {
	ps        *core.Playspec
	startFrom int64
	insertAt  int64
}

// Mixer is the realtime side of the control/realtime split described by the
// mixing core: it owns the transport, the active playspec, and the two
// message rings.
type Mixer struct {
	ioReader *proto.Reader
	events   *proto.Writer
	mailbox  *SwapMailbox

	position atomic.Int64
	rolling  atomic.Bool

	current   *core.Playspec
	currentID atomic.Uint64

	retained      []retainedEntry
	scheduledSwap *scheduledSwap
	justSwapped   bool

	destroy         pool.DestructionTracker
	releasedScratch []uint64

	captureAccum    [core.InputChunkFrames * 2]float32
	accumCount      int
	accumStartFrame int64
	accumWasRolling bool
	accumPlayspecID uint64

	occScratch []int64

	droppedInputChunks     atomic.Uint64
	droppedPlayspecApplied atomic.Uint64
	droppedClipDestroyed   atomic.Uint64
}

// New creates a Mixer reading ioQueue and writing pyQueue, sharing mailbox
// with whatever control-side facade posts playspec swaps.
func New(ioQueue, pyQueue *ring.Ring, mailbox *SwapMailbox) *Mixer {
	return &Mixer{
		ioReader:        proto.NewReader(ioQueue),
		events:          proto.NewWriter(pyQueue),
		mailbox:         mailbox,
		retained:        make([]retainedEntry, 0, 8),
		releasedScratch: make([]uint64, 0, destroyScratchCap),
		occScratch:      make([]int64, 0, 256),
	}
}

// Position returns the current transport position. Safe to call from any
// goroutine.
func (m *Mixer) Position() int64 { return m.position.Load() }

// Rolling reports whether the transport is currently rolling. Safe to call
// from any goroutine.
func (m *Mixer) Rolling() bool { return m.rolling.Load() }

// CurrentPlayspecID returns the id of the playspec currently mixed, or 0 if
// none has ever been applied. Safe to call from any goroutine.
func (m *Mixer) CurrentPlayspecID() uint64 { return m.currentID.Load() }

// DroppedInputChunks returns how many input chunks were dropped because
// py_queue was full.
func (m *Mixer) DroppedInputChunks() uint64 { return m.droppedInputChunks.Load() }

// DroppedPlayspecApplied returns how many PlayspecApplied acks were dropped
// because py_queue was full.
func (m *Mixer) DroppedPlayspecApplied() uint64 { return m.droppedPlayspecApplied.Load() }

// DroppedClipDestroyed returns how many ClipDestroyed acks were dropped
// because py_queue was full.
func (m *Mixer) DroppedClipDestroyed() uint64 { return m.droppedClipDestroyed.Load() }

// Process is the realtime audio callback body. nframes is the block size;
// inL/inR/outL/outR must each have at least nframes elements.
func (m *Mixer) Process(nframes int, inL, inR, outL, outR []float32) {
	m.ageRetained()

	blockStartPos := m.position.Load()

	startFromOverride, haveOverride := m.drainControlMessages(blockStartPos)
	if sfo, ok := m.applyScheduledSwapIfDue(blockStartPos); ok {
		startFromOverride, haveOverride = sfo, true
	}
	if haveOverride {
		m.position.Store(startFromOverride)
	}

	T0 := m.position.Load()
	rolling := m.rolling.Load()

	for i := 0; i < nframes; i++ {
		outL[i] = 0
		outR[i] = 0
	}

	if rolling && m.current != nil {
		for ei := range m.current.Entries {
			m.mixEntry(&m.current.Entries[ei], T0, nframes, outL, outR)
		}
	}

	m.captureInput(T0, rolling, nframes, inL, inR)

	if rolling {
		m.position.Add(int64(nframes))
	}

	m.releasedScratch = m.releasedScratch[:0]
	m.releasedScratch = m.destroy.ReleaseUnreferenced(m.isReferenced, m.releasedScratch)
	for _, id := range m.releasedScratch {
		if err := m.events.WriteClipDestroyed(id); err != nil {
			m.droppedClipDestroyed.Add(1)
		}
	}

	if m.justSwapped {
		if err := m.events.WritePlayspecApplied(m.current.ID); err != nil {
			m.droppedPlayspecApplied.Add(1)
		}
		m.justSwapped = false
	}
}

func (m *Mixer) drainControlMessages(blockStartPos int64) (startFromOverride int64, have bool) {
	for i := 0; i < maxMessagesPerBlock; i++ {
		kind, payload, ok := m.ioReader.Next()
		if !ok {
			break
		}
		switch kind {
		case proto.KindSetTransportRolling:
			m.rolling.Store(proto.DecodeSetTransportRolling(payload))
		case proto.KindSetPosition:
			m.position.Store(proto.DecodeSetPosition(payload))
		case proto.KindDestroyClip:
			m.destroy.MarkPendingDestroy(proto.DecodeDestroyClip(payload))
		case proto.KindSetPlayspecCommand:
			cmd := proto.DecodeSetPlayspecCommand(payload)
			ps := m.mailbox.take()
			if ps == nil {
				m.events.WriteLogLine("mixer: SetPlayspecCommand with no posted playspec, dropped")
				continue
			}
			if cmd.InsertAt <= blockStartPos {
				m.swapNow(ps)
				startFromOverride, have = cmd.StartFrom, true
			} else {
				m.scheduledSwap = &scheduledSwap{ps: ps, startFrom: cmd.StartFrom, insertAt: cmd.InsertAt}
			}
		}
	}
	return startFromOverride, have
}

func (m *Mixer) applyScheduledSwapIfDue(blockStartPos int64) (startFromOverride int64, have bool) {
	sw := m.scheduledSwap
	if sw == nil || sw.insertAt > blockStartPos {
		return 0, false
	}
	m.scheduledSwap = nil
	m.swapNow(sw.ps)
	return sw.startFrom, true
}

func (m *Mixer) swapNow(ps *core.Playspec) {
	if m.current != nil {
		m.retained = append(m.retained, retainedEntry{ps: m.current, blocksRemaining: 1})
	}
	m.current = ps
	m.currentID.Store(ps.ID)
	m.justSwapped = true
}

func (m *Mixer) ageRetained() {
	w := 0
	for _, r := range m.retained {
		r.blocksRemaining--
		if r.blocksRemaining > 0 {
			m.retained[w] = r
			w++
		}
	}
	m.retained = m.retained[:w]
}

func (m *Mixer) isReferenced(id uint64) bool {
	if m.current.ReferencesClip(id) {
		return true
	}
	for i := range m.retained {
		if m.retained[i].ps.ReferencesClip(id) {
			return true
		}
	}
	return false
}

func (m *Mixer) captureInput(T0 int64, rolling bool, nframes int, inL, inR []float32) {
	for i := 0; i < nframes; i++ {
		if m.accumCount == 0 {
			m.accumStartFrame = T0 + int64(i)
			m.accumWasRolling = rolling
			m.accumPlayspecID = m.currentID.Load()
		}
		m.captureAccum[m.accumCount*2] = inL[i]
		m.captureAccum[m.accumCount*2+1] = inR[i]
		m.accumCount++
		if m.accumCount == core.InputChunkFrames {
			if err := m.events.WriteInputChunk(m.accumPlayspecID, m.accumStartFrame, m.accumWasRolling, time.Now().UnixNano(), m.captureAccum[:]); err != nil {
				m.droppedInputChunks.Add(1)
			}
			m.accumCount = 0
		}
	}
}
