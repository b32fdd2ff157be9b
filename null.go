package amio

import (
	"fmt"
	"sync"
	"time"
)

// NullInterfaceChunkLength is the fixed frame count NullInterface advances
// by on each call to AdvanceSingleChunkLength: 0.1s at 48kHz, matching the
// original null interface's chunk_length.
const NullInterfaceChunkLength = 4800

// NullInterface is a control-side-only stand-in for Interface: same
// transport/playspec/input-chunk contract, but no mixer, no rings, and no
// pump. Input is synthesized as silence, and the only way time advances is
// an explicit call to AdvanceSingleChunkLength — useful for deterministic
// tests that would otherwise depend on wall-clock scheduling and a real
// audio thread.
type NullInterface struct {
	mu sync.Mutex

	frameRate float64
	position  int64
	rolling   bool
	closed    bool

	currentPlayspecID uint64
	nextID            uint64

	virtualTime time.Time

	inputCB func(InputChunk)
}

// NewNullInterface creates a NullInterface with the given nominal frame
// rate. If startingTime is the zero Time, the current wall clock is used.
func NewNullInterface(frameRate float64, startingTime time.Time) *NullInterface {
	if startingTime.IsZero() {
		startingTime = time.Now()
	}
	return &NullInterface{
		frameRate:         frameRate,
		currentPlayspecID: 1,
		nextID:            1,
		virtualTime:       startingTime,
	}
}

func (n *NullInterface) checkOpenLocked() error {
	if n.closed {
		return ErrClosedInterface
	}
	return nil
}

// FrameRate returns the configured frame rate.
func (n *NullInterface) FrameRate() (float64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.checkOpenLocked(); err != nil {
		return 0, fmt.Errorf("amio: frame rate: %w", err)
	}
	return n.frameRate, nil
}

// Position returns the virtual transport position.
func (n *NullInterface) Position() (int64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.checkOpenLocked(); err != nil {
		return 0, fmt.Errorf("amio: position: %w", err)
	}
	return n.position, nil
}

// SetPosition sets the virtual transport position immediately.
func (n *NullInterface) SetPosition(position int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.checkOpenLocked(); err != nil {
		return fmt.Errorf("amio: set position: %w", err)
	}
	n.position = position
	return nil
}

// TransportRolling returns the virtual rolling state.
func (n *NullInterface) TransportRolling() (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.checkOpenLocked(); err != nil {
		return false, fmt.Errorf("amio: transport rolling: %w", err)
	}
	return n.rolling, nil
}

// SetTransportRolling sets the virtual rolling state immediately.
func (n *NullInterface) SetTransportRolling(rolling bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.checkOpenLocked(); err != nil {
		return fmt.Errorf("amio: set transport rolling: %w", err)
	}
	n.rolling = rolling
	return nil
}

// SchedulePlayspecChange applies ps immediately: there is no realtime side
// to hand it off to, so it's always Submitted and onResult always fires
// with true before this call returns.
func (n *NullInterface) SchedulePlayspecChange(ps *Playspec, onResult func(bool)) (ScheduleResult, error) {
	n.mu.Lock()
	if err := n.checkOpenLocked(); err != nil {
		n.mu.Unlock()
		return 0, fmt.Errorf("amio: schedule playspec change: %w", err)
	}
	if ps == nil {
		n.mu.Unlock()
		return 0, fmt.Errorf("amio: schedule playspec change: %w (nil playspec)", ErrInvalidArgument)
	}
	n.nextID++
	n.currentPlayspecID = n.nextID
	n.position = ps.startFrom
	n.mu.Unlock()

	if onResult != nil {
		onResult(true)
	}
	return Submitted, nil
}

// SetInputChunkCallback installs the handler invoked once per call to
// AdvanceSingleChunkLength.
func (n *NullInterface) SetInputChunkCallback(cb func(InputChunk)) {
	n.mu.Lock()
	n.inputCB = cb
	n.mu.Unlock()
}

// AdvanceSingleChunkLength advances the virtual wall clock, and the virtual
// transport if it is rolling, by NullInterfaceChunkLength frames' worth of
// time, synthesizes a silent
// input chunk stamped with the current state, and delivers it to the input
// chunk callback (if any) before returning it.
func (n *NullInterface) AdvanceSingleChunkLength() (InputChunk, error) {
	n.mu.Lock()
	if err := n.checkOpenLocked(); err != nil {
		n.mu.Unlock()
		return InputChunk{}, fmt.Errorf("amio: advance single chunk length: %w", err)
	}

	chunk := InputChunk{
		Samples:       make([]float32, NullInterfaceChunkLength*2),
		PlayspecID:    n.currentPlayspecID,
		StartingFrame: n.position,
		WasRolling:    n.rolling,
		WallTime:      n.virtualTime,
	}
	if n.rolling {
		n.position += NullInterfaceChunkLength
	}
	n.virtualTime = n.virtualTime.Add(time.Duration(float64(NullInterfaceChunkLength) / n.frameRate * float64(time.Second)))
	cb := n.inputCB
	n.mu.Unlock()

	if cb != nil {
		cb(chunk)
	}
	return chunk, nil
}

// CurrentVirtualTime returns the NullInterface's simulated wall clock.
func (n *NullInterface) CurrentVirtualTime() (time.Time, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.checkOpenLocked(); err != nil {
		return time.Time{}, fmt.Errorf("amio: current virtual time: %w", err)
	}
	return n.virtualTime, nil
}

// Close marks the NullInterface closed. Idempotent.
func (n *NullInterface) Close() error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	return nil
}

// IsClosed reports whether Close has been called.
func (n *NullInterface) IsClosed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}
