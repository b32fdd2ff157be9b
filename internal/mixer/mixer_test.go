package mixer

import (
	"testing"

	"github.com/smiszym/amio/internal/core"
	"github.com/smiszym/amio/internal/proto"
	"github.com/smiszym/amio/internal/ring"
)

func newTestMixer(t *testing.T) (*Mixer, *ring.Ring, *ring.Ring, *SwapMailbox) {
	t.Helper()
	io := ring.New(4096)
	py := ring.New(65536)
	mb := &SwapMailbox{}
	return New(io, py, mb), io, py, mb
}

func submitPlayspec(t *testing.T, io *ring.Ring, mb *SwapMailbox, ps *core.Playspec, insertAt int64) {
	t.Helper()
	mb.Post(ps)
	if err := io.Write(proto.EncodeSetPlayspecCommand(ps.ID, insertAt, ps.StartFrom)); err != nil {
		t.Fatalf("Write(SetPlayspecCommand) failed: %v", err)
	}
}

func setRolling(t *testing.T, io *ring.Ring, rolling bool) {
	t.Helper()
	if err := io.Write(proto.EncodeSetTransportRolling(rolling)); err != nil {
		t.Fatalf("Write(SetTransportRolling) failed: %v", err)
	}
}

func monoClip(id uint64, samples ...int16) *core.Clip {
	return &core.Clip{ID: id, Data: samples, Channels: 1, FrameRate: 48000}
}

func allZero(buf []float32) bool {
	for _, v := range buf {
		if v != 0 {
			return false
		}
	}
	return true
}

func TestSilenceWhenNoPlayspec(t *testing.T) {
	m, io, _, _ := newTestMixer(t)
	setRolling(t, io, true)

	nframes := 64
	inL, inR := make([]float32, nframes), make([]float32, nframes)
	outL, outR := make([]float32, nframes), make([]float32, nframes)
	m.Process(nframes, inL, inR, outL, outR)

	if !allZero(outL) || !allZero(outR) {
		t.Fatalf("expected silence, got outL=%v outR=%v", outL, outR)
	}
}

func TestSingleShotEntryPlaysOnce(t *testing.T) {
	m, io, _, mb := newTestMixer(t)
	setRolling(t, io, true)

	clip := monoClip(1, 10000, 20000, 30000)
	ps := &core.Playspec{ID: 1, Entries: []core.Entry{{
		Clip: clip, FrameA: 0, FrameB: 3, PlayAtFrame: 5, GainL: 1, GainR: 1,
	}}}
	submitPlayspec(t, io, mb, ps, 0)

	nframes := 16
	inL, inR := make([]float32, nframes), make([]float32, nframes)
	outL, outR := make([]float32, nframes), make([]float32, nframes)
	m.Process(nframes, inL, inR, outL, outR)

	for i := 0; i < 5; i++ {
		if outL[i] != 0 {
			t.Fatalf("outL[%d] = %v, want 0 before play_at_frame", i, outL[i])
		}
	}
	want := []float32{float32(10000) * (1.0 / 32767), float32(20000) * (1.0 / 32767), float32(30000) * (1.0 / 32767)}
	for i, w := range want {
		if got := outL[5+i]; got != w {
			t.Fatalf("outL[%d] = %v, want %v", 5+i, got, w)
		}
	}
	for i := 8; i < nframes; i++ {
		if outL[i] != 0 {
			t.Fatalf("outL[%d] = %v, want 0 after clip ends", i, outL[i])
		}
	}
}

func TestRepeatLoopsEntry(t *testing.T) {
	m, io, _, mb := newTestMixer(t)
	setRolling(t, io, true)

	clip := monoClip(1, 16000, -16000)
	ps := &core.Playspec{ID: 1, Entries: []core.Entry{{
		Clip: clip, FrameA: 0, FrameB: 2, PlayAtFrame: 0, RepeatInterval: 4, GainL: 1, GainR: 1,
	}}}
	submitPlayspec(t, io, mb, ps, 0)

	nframes := 12
	inL, inR := make([]float32, nframes), make([]float32, nframes)
	outL, outR := make([]float32, nframes), make([]float32, nframes)
	m.Process(nframes, inL, inR, outL, outR)

	for k := 0; k < 3; k++ {
		base := k * 4
		if outL[base] != float32(16000)/32767 {
			t.Fatalf("outL[%d] (occurrence %d) = %v, want %v", base, k, outL[base], float32(16000)/32767)
		}
		if outL[base+1] != float32(-16000)/32767 {
			t.Fatalf("outL[%d] (occurrence %d) = %v, want %v", base+1, k, outL[base+1], float32(-16000)/32767)
		}
		if outL[base+2] != 0 || outL[base+3] != 0 {
			t.Fatalf("gap after occurrence %d not silent: %v %v", k, outL[base+2], outL[base+3])
		}
	}
}

func TestOverlappingEntriesSum(t *testing.T) {
	m, io, _, mb := newTestMixer(t)
	setRolling(t, io, true)

	clipA := monoClip(1, 10000, 10000)
	clipB := monoClip(2, 5000, 5000)
	ps := &core.Playspec{ID: 1, Entries: []core.Entry{
		{Clip: clipA, FrameA: 0, FrameB: 2, PlayAtFrame: 0, GainL: 1, GainR: 1},
		{Clip: clipB, FrameA: 0, FrameB: 2, PlayAtFrame: 0, GainL: 1, GainR: 1},
	}}
	submitPlayspec(t, io, mb, ps, 0)

	nframes := 4
	inL, inR := make([]float32, nframes), make([]float32, nframes)
	outL, outR := make([]float32, nframes), make([]float32, nframes)
	m.Process(nframes, inL, inR, outL, outR)

	want := float32(15000) / 32767
	if outL[0] != want || outL[1] != want {
		t.Fatalf("outL = %v, want [%v %v ...] (additive sum of both entries)", outL, want, want)
	}
}

func TestPlayspecSwapEmitsAppliedOnce(t *testing.T) {
	m, io, py, mb := newTestMixer(t)
	setRolling(t, io, true)

	ps := &core.Playspec{ID: 1}
	submitPlayspec(t, io, mb, ps, 0)

	nframes := 8
	inL, inR := make([]float32, nframes), make([]float32, nframes)
	outL, outR := make([]float32, nframes), make([]float32, nframes)
	m.Process(nframes, inL, inR, outL, outR)

	rd := proto.NewReader(py)
	var applied []uint64
	for {
		kind, payload, ok := rd.Next()
		if !ok {
			break
		}
		if kind == proto.KindPlayspecApplied {
			applied = append(applied, proto.DecodeDestroyClip(payload))
		}
	}
	if len(applied) != 1 || applied[0] != 1 {
		t.Fatalf("PlayspecApplied events = %v, want exactly one with id 1", applied)
	}

	// A second, unrelated block must not re-emit PlayspecApplied.
	rd2 := proto.NewReader(py)
	m.Process(nframes, inL, inR, outL, outR)
	if _, _, ok := rd2.Next(); ok {
		t.Fatalf("PlayspecApplied re-emitted on a block with no new swap")
	}
}

func TestPlayspecSwapSupersedesPreviousEntries(t *testing.T) {
	m, io, _, mb := newTestMixer(t)
	setRolling(t, io, true)

	clipA := monoClip(1, 9999)
	psA := &core.Playspec{ID: 1, Entries: []core.Entry{{Clip: clipA, FrameA: 0, FrameB: 1, PlayAtFrame: 0, GainL: 1, GainR: 1}}}
	submitPlayspec(t, io, mb, psA, 0)

	nframes := 4
	inL, inR := make([]float32, nframes), make([]float32, nframes)
	outL, outR := make([]float32, nframes), make([]float32, nframes)
	m.Process(nframes, inL, inR, outL, outR)

	clipB := monoClip(2, 1111)
	psB := &core.Playspec{ID: 2, Entries: []core.Entry{{Clip: clipB, FrameA: 0, FrameB: 1, PlayAtFrame: 4, GainL: 1, GainR: 1}}}
	submitPlayspec(t, io, mb, psB, 0)

	m.Process(nframes, inL, inR, outL, outR)
	want := float32(1111) / 32768
	if outL[0] != want {
		t.Fatalf("after swap, outL[0] = %v, want %v (new playspec's entry, old one gone)", outL[0], want)
	}
	if m.CurrentPlayspecID() != 2 {
		t.Fatalf("CurrentPlayspecID() = %d, want 2", m.CurrentPlayspecID())
	}
}

func TestMixingGatedByRolling(t *testing.T) {
	m, io, _, mb := newTestMixer(t)
	// Transport not set rolling.
	clip := monoClip(1, 12345)
	ps := &core.Playspec{ID: 1, Entries: []core.Entry{{Clip: clip, FrameA: 0, FrameB: 1, PlayAtFrame: 0, GainL: 1, GainR: 1}}}
	submitPlayspec(t, io, mb, ps, 0)

	nframes := 4
	inL, inR := make([]float32, nframes), make([]float32, nframes)
	outL, outR := make([]float32, nframes), make([]float32, nframes)
	m.Process(nframes, inL, inR, outL, outR)

	if !allZero(outL) {
		t.Fatalf("expected silence while transport not rolling, got %v", outL)
	}
	if m.Position() != 0 {
		t.Fatalf("Position() advanced while not rolling: %d", m.Position())
	}
}

func TestDeferredDestructionWaitsForUnreference(t *testing.T) {
	m, io, py, mb := newTestMixer(t)
	setRolling(t, io, true)

	clip := monoClip(1, 1)
	ps := &core.Playspec{ID: 1, Entries: []core.Entry{{Clip: clip, FrameA: 0, FrameB: 1, PlayAtFrame: 0, GainL: 1, GainR: 1}}}
	submitPlayspec(t, io, mb, ps, 0)

	nframes := 4
	buf := make([]float32, nframes)
	m.Process(nframes, buf, buf, make([]float32, nframes), make([]float32, nframes))

	if err := io.Write(proto.EncodeDestroyClip(1)); err != nil {
		t.Fatalf("Write(DestroyClip) failed: %v", err)
	}
	m.Process(nframes, buf, buf, make([]float32, nframes), make([]float32, nframes))

	rd := proto.NewReader(py)
	sawDestroyed := false
	for {
		kind, payload, ok := rd.Next()
		if !ok {
			break
		}
		if kind == proto.KindClipDestroyed && proto.DecodeDestroyClip(payload) == 1 {
			sawDestroyed = true
		}
	}
	if sawDestroyed {
		t.Fatalf("ClipDestroyed emitted while clip still referenced by current playspec")
	}

	// Swap to an empty playspec; the old one (and clip 1) should become
	// unreferenced once its one-block grace period elapses.
	empty := &core.Playspec{ID: 2}
	submitPlayspec(t, io, mb, empty, 0)
	m.Process(nframes, buf, buf, make([]float32, nframes), make([]float32, nframes))
	m.Process(nframes, buf, buf, make([]float32, nframes), make([]float32, nframes))

	rd2 := proto.NewReader(py)
	sawDestroyed = false
	for {
		kind, payload, ok := rd2.Next()
		if !ok {
			break
		}
		if kind == proto.KindClipDestroyed && proto.DecodeDestroyClip(payload) == 1 {
			sawDestroyed = true
		}
	}
	if !sawDestroyed {
		t.Fatalf("ClipDestroyed never emitted after clip became unreferenced")
	}
}

func TestScheduledSwapWaitsForInsertAt(t *testing.T) {
	m, io, _, mb := newTestMixer(t)
	setRolling(t, io, true)

	clip := monoClip(1, 7777)
	ps := &core.Playspec{ID: 1, Entries: []core.Entry{{Clip: clip, FrameA: 0, FrameB: 1, PlayAtFrame: 0, GainL: 1, GainR: 1}}}
	submitPlayspec(t, io, mb, ps, 100) // insert_at far in the future

	nframes := 16
	inL, inR := make([]float32, nframes), make([]float32, nframes)
	outL, outR := make([]float32, nframes), make([]float32, nframes)
	m.Process(nframes, inL, inR, outL, outR)

	if m.CurrentPlayspecID() != 0 {
		t.Fatalf("CurrentPlayspecID() = %d, want 0 (swap not yet due)", m.CurrentPlayspecID())
	}

	for i := 0; i < 20 && m.CurrentPlayspecID() != 1; i++ {
		m.Process(nframes, inL, inR, outL, outR)
	}
	if m.CurrentPlayspecID() != 1 {
		t.Fatalf("CurrentPlayspecID() = %d, want 1 once block boundary reached insert_at", m.CurrentPlayspecID())
	}
}

func TestProcessDoesNotAllocate(t *testing.T) {
	m, io, _, mb := newTestMixer(t)
	setRolling(t, io, true)
	clip := monoClip(1, 1, 2, 3, 4)
	ps := &core.Playspec{ID: 1, Entries: []core.Entry{{Clip: clip, FrameA: 0, FrameB: 4, PlayAtFrame: 0, RepeatInterval: 8, GainL: 1, GainR: 1}}}
	submitPlayspec(t, io, mb, ps, 0)

	nframes := 64
	inL, inR := make([]float32, nframes), make([]float32, nframes)
	outL, outR := make([]float32, nframes), make([]float32, nframes)
	m.Process(nframes, inL, inR, outL, outR) // absorb the one-time PlayspecApplied + swap

	allocs := testing.AllocsPerRun(50, func() {
		m.Process(nframes, inL, inR, outL, outR)
	})
	if allocs > 0 {
		t.Fatalf("Process allocated %.1f times per run on steady state, want 0", allocs)
	}
}
