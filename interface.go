package amio

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smiszym/amio/internal/config"
	"github.com/smiszym/amio/internal/core"
	"github.com/smiszym/amio/internal/mixer"
	"github.com/smiszym/amio/internal/proto"
	"github.com/smiszym/amio/internal/ring"
)

type facadeState int32

const (
	stateUninitialized facadeState = iota
	stateRunning
	stateClosed
)

// pendingSubmission tracks one SchedulePlayspecChange call from the moment
// it's assigned an id until its on_result callback fires.
type pendingSubmission struct {
	id       uint64
	ps       *core.Playspec
	onResult func(bool)
	posted   bool
}

// Interface is the control-side facade described by spec.md §4.5: the
// Uninitialized -> Running -> Closed state machine, the pump that drains
// py_queue on a fixed cadence, and the playspec submission/ack/retry logic.
// Every exported method is safe to call from one goroutine at a time; user
// code calling it from several goroutines must serialize those calls
// itself, per spec.md §5.
type Interface struct {
	state atomic.Int32

	backend    Backend
	opts       config.Options
	sampleRate float64

	ioQueue  *ring.Ring
	pyReader *proto.Reader
	mailbox  *mixer.SwapMailbox
	mx       *mixer.Mixer

	nextID atomic.Uint64

	subMu   sync.Mutex
	pending []*pendingSubmission

	dropMu      sync.Mutex
	pendingDrop map[uint64]*core.Clip
	unsentDrops []uint64

	inputMu sync.Mutex
	inputCB func(InputChunk)

	logBuf string

	pumpStop chan struct{}
	pumpDone chan struct{}
}

// NewInterface creates an Interface bound to backend. It is not usable
// until Init succeeds. opts is normalized: any zero-valued field falls
// back to config.Default().
func NewInterface(backend Backend, opts config.Options) *Interface {
	return &Interface{
		backend:     backend,
		opts:        opts.Normalize(),
		pendingDrop: make(map[uint64]*core.Clip),
	}
}

// Init opens the backend's audio stream and starts the pump. It fails with
// AlreadyInitialized unless this is the first call, and with
// DeviceUnavailable if the backend rejects the open.
func (ifc *Interface) Init(clientName string) error {
	if !ifc.state.CompareAndSwap(int32(stateUninitialized), int32(stateRunning)) {
		return fmt.Errorf("amio: init: %w", ErrAlreadyInit)
	}

	ioQueue := ring.New(ifc.opts.IOQueueCapacity)
	pyQueue := ring.New(ifc.opts.PYQueueCapacity)
	mailbox := &mixer.SwapMailbox{}
	mx := mixer.New(ioQueue, pyQueue, mailbox)

	// transportFrame/transportRolling are the host's own diagnostic view of
	// the transport; the mixer holds its own authoritative (position,
	// rolling) state driven by SetPosition/SetTransportRolling, so the
	// adapter discards them rather than forwarding them into Process.
	process := func(nframes int, inL, inR, outL, outR []float32, _ int64, _ bool) {
		mx.Process(nframes, inL, inR, outL, outR)
	}

	sampleRate, err := ifc.backend.Open(clientName, process)
	if err != nil {
		ifc.state.Store(int32(stateClosed))
		return fmt.Errorf("amio: init: %w: %v", ErrDeviceUnavailable, err)
	}

	ifc.ioQueue = ioQueue
	ifc.pyReader = proto.NewReader(pyQueue)
	ifc.mailbox = mailbox
	ifc.mx = mx
	ifc.sampleRate = sampleRate

	ifc.pumpStop = make(chan struct{})
	ifc.pumpDone = make(chan struct{})
	go ifc.pumpLoop()

	return nil
}

func (ifc *Interface) checkOpen() error {
	switch facadeState(ifc.state.Load()) {
	case stateRunning:
		return nil
	default:
		return ErrClosedInterface
	}
}

// FrameRate returns the backend's sample rate, snapshotted at Init.
func (ifc *Interface) FrameRate() (float64, error) {
	if err := ifc.checkOpen(); err != nil {
		return 0, fmt.Errorf("amio: frame rate: %w", err)
	}
	return ifc.sampleRate, nil
}

// Position returns the mixer's current transport position, read directly
// from its atomic state (no ring round trip).
func (ifc *Interface) Position() (int64, error) {
	if err := ifc.checkOpen(); err != nil {
		return 0, fmt.Errorf("amio: position: %w", err)
	}
	return ifc.mx.Position(), nil
}

// SetPosition posts a position change to be applied at the next block
// boundary.
func (ifc *Interface) SetPosition(position int64) error {
	if err := ifc.checkOpen(); err != nil {
		return fmt.Errorf("amio: set position: %w", err)
	}
	if err := ifc.ioQueue.Write(proto.EncodeSetPosition(position)); err != nil {
		return fmt.Errorf("amio: set position: %w", ErrQueueFull)
	}
	return nil
}

// TransportRolling returns the mixer's current rolling state.
func (ifc *Interface) TransportRolling() (bool, error) {
	if err := ifc.checkOpen(); err != nil {
		return false, fmt.Errorf("amio: transport rolling: %w", err)
	}
	return ifc.mx.Rolling(), nil
}

// SetTransportRolling posts a rolling-state change to be applied at the
// next block boundary.
func (ifc *Interface) SetTransportRolling(rolling bool) error {
	if err := ifc.checkOpen(); err != nil {
		return fmt.Errorf("amio: set transport rolling: %w", err)
	}
	if err := ifc.ioQueue.Write(proto.EncodeSetTransportRolling(rolling)); err != nil {
		return fmt.Errorf("amio: set transport rolling: %w", ErrQueueFull)
	}
	return nil
}

// SchedulePlayspecChange submits ps as the next playspec. Only one
// submission may be outstanding at a time; if another is already in
// flight, ps is queued and Deferred is returned — onResult still fires
// exactly once, with true iff ps's id is the one PlayspecApplied reports,
// false if a later submission supersedes it first.
func (ifc *Interface) SchedulePlayspecChange(ps *Playspec, onResult func(bool)) (ScheduleResult, error) {
	if err := ifc.checkOpen(); err != nil {
		return 0, fmt.Errorf("amio: schedule playspec change: %w", err)
	}
	if ps == nil {
		return 0, fmt.Errorf("amio: schedule playspec change: %w (nil playspec)", ErrInvalidArgument)
	}

	id := ifc.nextID.Add(1)
	sub := &pendingSubmission{id: id, ps: ps.toCore(id), onResult: onResult}

	ifc.subMu.Lock()
	ifc.pending = append(ifc.pending, sub)
	isHead := len(ifc.pending) == 1
	ifc.subMu.Unlock()

	if !isHead {
		return Deferred, nil
	}
	ifc.postHead()
	return Submitted, nil
}

// postHead attempts to post the head of the pending-submission queue to
// the realtime side, if it hasn't been posted yet. Safe to call whether or
// not there's anything to post.
func (ifc *Interface) postHead() {
	ifc.subMu.Lock()
	defer ifc.subMu.Unlock()
	ifc.postHeadLocked()
}

func (ifc *Interface) postHeadLocked() {
	if len(ifc.pending) == 0 {
		return
	}
	head := ifc.pending[0]
	if head.posted {
		return
	}
	ifc.mailbox.Post(head.ps)
	msg := proto.EncodeSetPlayspecCommand(head.id, head.ps.InsertAt, head.ps.StartFrom)
	if err := ifc.ioQueue.Write(msg); err != nil {
		// io_queue full; leave head.posted false so the pump retries it
		// next tick, per spec.md §4.2's "Writers may fail with QueueFull"
		// retry policy.
		return
	}
	head.posted = true
}

// DropClip enqueues a destroy-clip request for clip. Once the realtime side
// acknowledges no live playspec still references it, clip.OnReleased (if
// set) runs on the pump goroutine.
func (ifc *Interface) DropClip(clip *Clip) error {
	if clip == nil {
		return nil
	}
	if err := ifc.checkOpen(); err != nil {
		return fmt.Errorf("amio: drop clip: %w", err)
	}
	ifc.dropMu.Lock()
	ifc.pendingDrop[clip.ID] = clip
	if err := ifc.ioQueue.Write(proto.EncodeDestroyClip(clip.ID)); err != nil {
		ifc.unsentDrops = append(ifc.unsentDrops, clip.ID)
	}
	ifc.dropMu.Unlock()
	return nil
}

func (ifc *Interface) retryUnsentDrops() {
	ifc.dropMu.Lock()
	defer ifc.dropMu.Unlock()
	w := 0
	for _, id := range ifc.unsentDrops {
		if err := ifc.ioQueue.Write(proto.EncodeDestroyClip(id)); err != nil {
			ifc.unsentDrops[w] = id
			w++
		}
	}
	ifc.unsentDrops = ifc.unsentDrops[:w]
}

// SetInputChunkCallback installs the handler invoked once per input chunk
// drained from py_queue. Pass nil to stop receiving chunks.
func (ifc *Interface) SetInputChunkCallback(cb func(InputChunk)) {
	ifc.inputMu.Lock()
	ifc.inputCB = cb
	ifc.inputMu.Unlock()
}

// Stats reports realtime-side drop counters, exposed for diagnostics.
type Stats struct {
	DroppedInputChunks     uint64
	DroppedPlayspecApplied uint64
	DroppedClipDestroyed   uint64
}

// Stats returns a snapshot of the mixer's py_queue drop counters.
func (ifc *Interface) Stats() (Stats, error) {
	if err := ifc.checkOpen(); err != nil {
		return Stats{}, fmt.Errorf("amio: stats: %w", err)
	}
	return Stats{
		DroppedInputChunks:     ifc.mx.DroppedInputChunks(),
		DroppedPlayspecApplied: ifc.mx.DroppedPlayspecApplied(),
		DroppedClipDestroyed:   ifc.mx.DroppedClipDestroyed(),
	}, nil
}

// Close signals the pump to stop, waits for it to exit, and releases the
// backend's audio connection. Idempotent: closing an already-closed or
// never-initialized Interface returns nil without side effects beyond the
// state transition.
func (ifc *Interface) Close() error {
	if !ifc.state.CompareAndSwap(int32(stateRunning), int32(stateClosed)) {
		ifc.state.Store(int32(stateClosed))
		return nil
	}
	close(ifc.pumpStop)
	<-ifc.pumpDone
	return ifc.backend.Close()
}

// IsClosed reports whether the Interface has been closed.
func (ifc *Interface) IsClosed() bool {
	return facadeState(ifc.state.Load()) == stateClosed
}

func (ifc *Interface) pumpLoop() {
	defer close(ifc.pumpDone)
	ticker := time.NewTicker(ifc.opts.PumpInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ifc.pumpStop:
			ifc.drainOnce()
			ifc.failRemainingSubmissions()
			return
		case <-ticker.C:
			ifc.drainOnce()
		}
	}
}

func (ifc *Interface) drainOnce() {
	ifc.retryUnsentDrops()
	ifc.postHead()

	for i := 0; i < ifc.opts.MaxPumpDrain; i++ {
		kind, payload, ok := ifc.pyReader.Next()
		if !ok {
			break
		}
		switch kind {
		case proto.KindPlayspecApplied:
			ifc.onPlayspecApplied(proto.DecodeDestroyClip(payload))
		case proto.KindClipDestroyed:
			ifc.onClipDestroyed(proto.DecodeDestroyClip(payload))
		case proto.KindLogLine:
			ifc.appendLogLine(string(payload))
		case proto.KindInputChunk:
			ifc.dispatchInputChunk(proto.DecodeInputChunk(payload))
		}
	}
}

// onPlayspecApplied implements spec.md §4.5's "for every pending id i <
// applied_id, invoke onResult(false); then invoke onResult(applied_id) with
// true" and immediately posts the next queued submission, if any.
func (ifc *Interface) onPlayspecApplied(appliedID uint64) {
	ifc.subMu.Lock()
	var superseded []*pendingSubmission
	var applied *pendingSubmission
	for len(ifc.pending) > 0 && ifc.pending[0].id < appliedID {
		superseded = append(superseded, ifc.pending[0])
		ifc.pending = ifc.pending[1:]
	}
	if len(ifc.pending) > 0 && ifc.pending[0].id == appliedID {
		applied = ifc.pending[0]
		ifc.pending = ifc.pending[1:]
	}
	ifc.postHeadLocked()
	ifc.subMu.Unlock()

	for _, s := range superseded {
		if s.onResult != nil {
			s.onResult(false)
		}
	}
	if applied != nil && applied.onResult != nil {
		applied.onResult(true)
	}
}

func (ifc *Interface) onClipDestroyed(clipID uint64) {
	ifc.dropMu.Lock()
	clip, ok := ifc.pendingDrop[clipID]
	if ok {
		delete(ifc.pendingDrop, clipID)
	}
	ifc.dropMu.Unlock()
	if ok && clip.OnReleased != nil {
		clip.OnReleased()
	}
}

func (ifc *Interface) appendLogLine(frag string) {
	ifc.logBuf += frag
	for {
		i := strings.IndexByte(ifc.logBuf, '\n')
		if i < 0 {
			break
		}
		line := ifc.logBuf[:i]
		ifc.logBuf = ifc.logBuf[i+1:]
		log.Printf("[amio] %s", line)
	}
}

func (ifc *Interface) dispatchInputChunk(dc proto.DecodedInputChunk) {
	ifc.inputMu.Lock()
	cb := ifc.inputCB
	ifc.inputMu.Unlock()
	if cb == nil {
		return
	}
	cb(InputChunk{
		Samples:       dc.Samples,
		PlayspecID:    dc.PlayspecID,
		StartingFrame: dc.StartingFrame,
		WasRolling:    dc.WasRolling,
		WallTime:      dc.WallTime,
	})
}

func (ifc *Interface) failRemainingSubmissions() {
	ifc.subMu.Lock()
	remaining := ifc.pending
	ifc.pending = nil
	ifc.subMu.Unlock()
	for _, s := range remaining {
		if s.onResult != nil {
			s.onResult(false)
		}
	}
}
