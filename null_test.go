package amio

import (
	"testing"
	"time"
)

func TestNullInterfaceAdvanceSingleChunkLengthScenario(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := NewNullInterface(48000, start)
	if err := n.SetTransportRolling(true); err != nil {
		t.Fatalf("SetTransportRolling: %v", err)
	}

	wantStartingFrames := []int64{0, 4800, 9600, 14400}
	wantWallTimes := []time.Time{
		start,
		start.Add(100 * time.Millisecond),
		start.Add(200 * time.Millisecond),
		start.Add(300 * time.Millisecond),
	}

	for i, wantFrame := range wantStartingFrames {
		chunk, err := n.AdvanceSingleChunkLength()
		if err != nil {
			t.Fatalf("AdvanceSingleChunkLength #%d: %v", i, err)
		}
		if chunk.StartingFrame != wantFrame {
			t.Fatalf("chunk %d StartingFrame = %d, want %d", i, chunk.StartingFrame, wantFrame)
		}
		if !chunk.WallTime.Equal(wantWallTimes[i]) {
			t.Fatalf("chunk %d WallTime = %v, want %v", i, chunk.WallTime, wantWallTimes[i])
		}
		if !chunk.WasRolling {
			t.Fatalf("chunk %d WasRolling = false, want true", i)
		}
		if len(chunk.Samples) != NullInterfaceChunkLength*2 {
			t.Fatalf("chunk %d has %d samples, want %d", i, len(chunk.Samples), NullInterfaceChunkLength*2)
		}
	}

	pos, err := n.Position()
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if pos != 19200 {
		t.Fatalf("final Position() = %d, want 19200", pos)
	}
}

func TestNullInterfaceDoesNotAdvanceWhenNotRolling(t *testing.T) {
	n := NewNullInterface(48000, time.Time{})
	chunk, err := n.AdvanceSingleChunkLength()
	if err != nil {
		t.Fatalf("AdvanceSingleChunkLength: %v", err)
	}
	if chunk.WasRolling {
		t.Fatal("expected WasRolling false by default")
	}
	pos, _ := n.Position()
	if pos != 0 {
		t.Fatalf("Position() = %d, want 0 when not rolling", pos)
	}
}

func TestNullInterfaceSchedulePlayspecChangeAppliesImmediately(t *testing.T) {
	n := NewNullInterface(48000, time.Time{})
	ps := NewPlayspec()
	if err := ps.SetInsertionPoints(0, 1000); err != nil {
		t.Fatalf("SetInsertionPoints: %v", err)
	}

	applied := false
	result, err := n.SchedulePlayspecChange(ps, func(ok bool) { applied = ok })
	if err != nil {
		t.Fatalf("SchedulePlayspecChange: %v", err)
	}
	if result != Submitted {
		t.Fatalf("result = %v, want Submitted", result)
	}
	if !applied {
		t.Fatal("expected onResult(true) to fire synchronously")
	}
	pos, _ := n.Position()
	if pos != 1000 {
		t.Fatalf("Position() = %d, want 1000 (start_from)", pos)
	}
}

func TestNullInterfaceSchedulePlayspecChangeRejectsNil(t *testing.T) {
	n := NewNullInterface(48000, time.Time{})
	if _, err := n.SchedulePlayspecChange(nil, nil); err == nil {
		t.Fatal("expected nil playspec to be rejected")
	}
}

func TestNullInterfaceInputChunkCallback(t *testing.T) {
	n := NewNullInterface(48000, time.Time{})
	received := make(chan InputChunk, 1)
	n.SetInputChunkCallback(func(c InputChunk) { received <- c })

	if _, err := n.AdvanceSingleChunkLength(); err != nil {
		t.Fatalf("AdvanceSingleChunkLength: %v", err)
	}

	select {
	case <-received:
	default:
		t.Fatal("expected input chunk callback to fire")
	}
}

func TestNullInterfaceCloseIsIdempotent(t *testing.T) {
	n := NewNullInterface(48000, time.Time{})
	if err := n.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := n.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if !n.IsClosed() {
		t.Fatal("expected IsClosed true")
	}
	if _, err := n.Position(); err == nil {
		t.Fatal("expected Position to fail after Close")
	}
}
