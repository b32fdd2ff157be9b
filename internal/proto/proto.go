// Package proto implements the length-prefixed message framing carried over
// the two internal/ring byte rings (io_queue and py_queue). Each frame is
// [1 byte kind][4 byte little-endian payload length][payload]; a writer
// always builds one frame and hands it to Ring.Write as a single call, so a
// reader never observes a partially-written frame.
package proto

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/smiszym/amio/internal/core"
	"github.com/smiszym/amio/internal/ring"
)

// Kind identifies the payload shape of a framed message.
type Kind byte

const (
	// io_queue: control -> realtime.
	KindSetTransportRolling Kind = iota + 1
	KindSetPosition
	KindSetPlayspecCommand
	KindDestroyClip

	// py_queue: realtime -> control.
	KindPlayspecApplied
	KindClipDestroyed
	KindLogLine
	KindInputChunk
)

const headerLen = 1 + 4

// MaxLogLineBytes bounds a single LogLine payload; longer lines are
// truncated before framing.
const MaxLogLineBytes = 480

// inputChunkPayloadLen is fixed: playspec id (8) + starting frame (8) +
// was-rolling (1) + wall time unix nanos (8) + InputChunkFrames stereo
// float32 samples.
const inputChunkPayloadLen = 8 + 8 + 1 + 8 + core.InputChunkFrames*2*4

const maxFrameLen = headerLen + inputChunkPayloadLen

// ---- io_queue payloads (control thread encodes, may allocate freely) ----

// EncodeSetTransportRolling returns a framed SetTransportRolling message.
func EncodeSetTransportRolling(rolling bool) []byte {
	payload := make([]byte, 1)
	if rolling {
		payload[0] = 1
	}
	return frame(KindSetTransportRolling, payload)
}

// EncodeSetPosition returns a framed SetPosition message.
func EncodeSetPosition(position int64) []byte {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint64(payload, uint64(position))
	return frame(KindSetPosition, payload)
}

// EncodeSetPlayspecCommand returns a framed SetPlayspecCommand message. The
// actual *core.Playspec is handed off out of band (see mixer.SwapMailbox);
// this message only carries the scalar fields the realtime side needs to
// pick up and sequence that handoff.
func EncodeSetPlayspecCommand(id uint64, insertAt, startFrom int64) []byte {
	payload := make([]byte, 24)
	binary.LittleEndian.PutUint64(payload[0:8], id)
	binary.LittleEndian.PutUint64(payload[8:16], uint64(insertAt))
	binary.LittleEndian.PutUint64(payload[16:24], uint64(startFrom))
	return frame(KindSetPlayspecCommand, payload)
}

// EncodeDestroyClip returns a framed DestroyClip message.
func EncodeDestroyClip(clipID uint64) []byte {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint64(payload, clipID)
	return frame(KindDestroyClip, payload)
}

func frame(kind Kind, payload []byte) []byte {
	buf := make([]byte, headerLen+len(payload))
	buf[0] = byte(kind)
	binary.LittleEndian.PutUint32(buf[1:5], uint32(len(payload)))
	copy(buf[5:], payload)
	return buf
}

// DecodeSetTransportRolling decodes a SetTransportRolling payload.
func DecodeSetTransportRolling(payload []byte) bool {
	return len(payload) >= 1 && payload[0] != 0
}

// DecodeSetPosition decodes a SetPosition payload.
func DecodeSetPosition(payload []byte) int64 {
	return int64(binary.LittleEndian.Uint64(payload))
}

// SetPlayspecCommand is the decoded form of a SetPlayspecCommand payload.
type SetPlayspecCommand struct {
	ID        uint64
	InsertAt  int64
	StartFrom int64
}

// DecodeSetPlayspecCommand decodes a SetPlayspecCommand payload.
func DecodeSetPlayspecCommand(payload []byte) SetPlayspecCommand {
	return SetPlayspecCommand{
		ID:        binary.LittleEndian.Uint64(payload[0:8]),
		InsertAt:  int64(binary.LittleEndian.Uint64(payload[8:16])),
		StartFrom: int64(binary.LittleEndian.Uint64(payload[16:24])),
	}
}

// DecodeDestroyClip decodes a DestroyClip payload.
func DecodeDestroyClip(payload []byte) uint64 {
	return binary.LittleEndian.Uint64(payload)
}

// ---- py_queue writer (realtime thread, must never allocate) ----

// Writer serializes py_queue messages without allocating once constructed,
// by reusing an internal scratch buffer sized for the largest payload
// (InputChunk).
type Writer struct {
	ring    *ring.Ring
	scratch [maxFrameLen]byte
}

// NewWriter wraps r for non-allocating realtime-side writes.
func NewWriter(r *ring.Ring) *Writer {
	return &Writer{ring: r}
}

func (w *Writer) writeFrame(kind Kind, payloadLen int) []byte {
	total := headerLen + payloadLen
	buf := w.scratch[:total]
	buf[0] = byte(kind)
	binary.LittleEndian.PutUint32(buf[1:5], uint32(payloadLen))
	return buf
}

// WritePlayspecApplied emits a PlayspecApplied(id) message.
func (w *Writer) WritePlayspecApplied(id uint64) error {
	buf := w.writeFrame(KindPlayspecApplied, 8)
	binary.LittleEndian.PutUint64(buf[5:13], id)
	return w.ring.Write(buf)
}

// WriteClipDestroyed emits a ClipDestroyed(clipID) message.
func (w *Writer) WriteClipDestroyed(clipID uint64) error {
	buf := w.writeFrame(KindClipDestroyed, 8)
	binary.LittleEndian.PutUint64(buf[5:13], clipID)
	return w.ring.Write(buf)
}

// WriteLogLine emits a LogLine message, truncating to MaxLogLineBytes.
func (w *Writer) WriteLogLine(text string) error {
	if len(text) > MaxLogLineBytes {
		text = text[:MaxLogLineBytes]
	}
	buf := w.writeFrame(KindLogLine, len(text))
	copy(buf[5:], text)
	return w.ring.Write(buf)
}

// WriteInputChunk emits an InputChunk message. samples must have exactly
// core.InputChunkFrames*2 elements.
func (w *Writer) WriteInputChunk(playspecID uint64, startingFrame int64, wasRolling bool, wallTimeUnixNano int64, samples []float32) error {
	buf := w.writeFrame(KindInputChunk, inputChunkPayloadLen)
	body := buf[5:]
	binary.LittleEndian.PutUint64(body[0:8], playspecID)
	binary.LittleEndian.PutUint64(body[8:16], uint64(startingFrame))
	if wasRolling {
		body[16] = 1
	} else {
		body[16] = 0
	}
	binary.LittleEndian.PutUint64(body[17:25], uint64(wallTimeUnixNano))
	off := 25
	for _, s := range samples {
		binary.LittleEndian.PutUint32(body[off:off+4], math.Float32bits(s))
		off += 4
	}
	return w.ring.Write(buf)
}

// DecodedInputChunk is the decoded form of an InputChunk payload.
type DecodedInputChunk struct {
	PlayspecID    uint64
	StartingFrame int64
	WasRolling    bool
	WallTime      time.Time
	Samples       []float32
}

// ---- generic frame reader (safe for either side; does not allocate) ----

// Reader drains framed messages from a ring one at a time. The []byte
// payload returned by Next aliases Reader's own scratch buffer and is only
// valid until the next call to Next; callers must decode it (or copy it)
// immediately.
type Reader struct {
	ring    *ring.Ring
	scratch [maxFrameLen]byte
}

// NewReader wraps r for draining.
func NewReader(r *ring.Ring) *Reader {
	return &Reader{ring: r}
}

// Next returns the next framed message's kind and payload, or ok=false if
// the ring does not currently hold a complete frame.
func (rd *Reader) Next() (kind Kind, payload []byte, ok bool) {
	var header [headerLen]byte
	n := rd.ring.Peek(header[:])
	if n < headerLen {
		return 0, nil, false
	}
	payloadLen := int(binary.LittleEndian.Uint32(header[1:5]))
	total := headerLen + payloadLen
	if total > len(rd.scratch) {
		// A well-formed producer never emits a frame larger than
		// maxFrameLen; treat this as a framing desync rather than
		// grow unboundedly.
		rd.ring.Discard(rd.ring.Len())
		return 0, nil, false
	}
	buf := rd.scratch[:total]
	if rd.ring.Peek(buf) < total {
		return 0, nil, false
	}
	rd.ring.Discard(total)
	return Kind(buf[0]), buf[headerLen:], true
}

// DecodeInputChunk decodes an InputChunk payload into a fresh InputChunk.
// Called only from the control thread, which may allocate.
func DecodeInputChunk(payload []byte) DecodedInputChunk {
	samples := make([]float32, core.InputChunkFrames*2)
	off := 25
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[off : off+4]))
		off += 4
	}
	return DecodedInputChunk{
		PlayspecID:    binary.LittleEndian.Uint64(payload[0:8]),
		StartingFrame: int64(binary.LittleEndian.Uint64(payload[8:16])),
		WasRolling:    payload[16] != 0,
		WallTime:      time.Unix(0, int64(binary.LittleEndian.Uint64(payload[17:25]))),
		Samples:       samples,
	}
}
