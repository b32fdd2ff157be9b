package pool

import (
	"errors"
	"testing"

	"github.com/smiszym/amio/internal/core"
)

func TestCreateClipValidatesChannels(t *testing.T) {
	p := New()
	if _, err := p.CreateClip([]byte{0, 0}, 0, 48000); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("CreateClip(channels=0) error = %v, want ErrInvalidArgument", err)
	}
}

func TestCreateClipValidatesByteLength(t *testing.T) {
	p := New()
	if _, err := p.CreateClip([]byte{0, 0, 0}, 2, 48000); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("CreateClip(odd length, stereo) error = %v, want ErrInvalidArgument", err)
	}
}

func TestCreateClipAssignsMonotonicIDs(t *testing.T) {
	p := New()
	c1, err := p.CreateClip([]byte{0, 0}, 1, 48000)
	if err != nil {
		t.Fatalf("CreateClip failed: %v", err)
	}
	c2, err := p.CreateClip([]byte{0, 0}, 1, 48000)
	if err != nil {
		t.Fatalf("CreateClip failed: %v", err)
	}
	if c2.ID <= c1.ID {
		t.Fatalf("ids not monotonic: %d then %d", c1.ID, c2.ID)
	}
}

func TestCreateClipDecodesLittleEndianInt16(t *testing.T) {
	p := New()
	// -1 as little-endian int16 is 0xFFFF.
	c, err := p.CreateClip([]byte{0xFF, 0xFF, 0x00, 0x00}, 1, 48000)
	if err != nil {
		t.Fatalf("CreateClip failed: %v", err)
	}
	if len(c.Data) != 2 || c.Data[0] != -1 || c.Data[1] != 0 {
		t.Fatalf("Data = %v, want [-1 0]", c.Data)
	}
}

func TestClipFromFloat32ClipsOutOfRange(t *testing.T) {
	bytes := ClipFromFloat32([]float32{2.0, -2.0, 0.5})
	p := New()
	c, err := p.CreateClip(bytes, 1, 48000)
	if err != nil {
		t.Fatalf("CreateClip failed: %v", err)
	}
	if c.Data[0] != 32767 {
		t.Fatalf("Data[0] = %d, want 32767 (clamped)", c.Data[0])
	}
	if c.Data[1] != -32767 {
		t.Fatalf("Data[1] = %d, want -32767 (clamped)", c.Data[1])
	}
}

func TestDestructionTrackerHoldsUntilUnreferenced(t *testing.T) {
	var tr DestructionTracker
	tr.MarkPendingDestroy(1)
	tr.MarkPendingDestroy(2)

	referenced := map[uint64]bool{1: true, 2: false}
	released := tr.ReleaseUnreferenced(func(id uint64) bool { return referenced[id] }, nil)
	if len(released) != 1 || released[0] != 2 {
		t.Fatalf("released = %v, want [2]", released)
	}
	if tr.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1 (clip 1 still referenced)", tr.Pending())
	}

	referenced[1] = false
	released = tr.ReleaseUnreferenced(func(id uint64) bool { return referenced[id] }, released[:0])
	if len(released) != 1 || released[0] != 1 {
		t.Fatalf("released = %v, want [1]", released)
	}
	if tr.Pending() != 0 {
		t.Fatalf("Pending() = %d, want 0", tr.Pending())
	}
}

func TestDestructionTrackerDropsWhenFull(t *testing.T) {
	var tr DestructionTracker
	for i := 0; i < maxPendingDestroy+10; i++ {
		tr.MarkPendingDestroy(uint64(i))
	}
	if tr.Pending() != maxPendingDestroy {
		t.Fatalf("Pending() = %d, want %d", tr.Pending(), maxPendingDestroy)
	}
}
