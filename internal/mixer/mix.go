package mixer

import "github.com/smiszym/amio/internal/core"

// int16Scale converts a signed 16-bit PCM sample to the [-1, 1] float32
// range mixing happens in, mirroring pool.ClipFromFloat32's *32767
// encode-side scaling so a round trip is exact at full scale.
const int16Scale = float32(1.0) / float32(32767)

// mixEntry adds entry's contribution for the block [T0, T0+nframes) into
// outL/outR. It must not allocate.
func (m *Mixer) mixEntry(e *core.Entry, T0 int64, nframes int, outL, outR []float32) {
	clipLen := e.ClipLen()
	if clipLen <= 0 || e.Clip == nil {
		return
	}

	m.occScratch = m.occScratch[:0]
	m.occScratch = occurrences(e.PlayAtFrame, e.RepeatInterval, clipLen, T0, nframes, m.occScratch)

	for _, s := range m.occScratch {
		clipOff := T0 - s
		if clipOff < 0 {
			clipOff = 0
		}
		if clipOff >= clipLen {
			continue
		}
		outOff := s - T0
		if outOff < 0 {
			outOff = 0
		}
		if outOff >= int64(nframes) {
			continue
		}
		n := clipLen - clipOff
		if remaining := int64(nframes) - outOff; remaining < n {
			n = remaining
		}
		if n <= 0 {
			continue
		}
		mixRange(e, clipOff, outOff, n, outL, outR)
	}
}

// mixRange additively mixes n frames of e.Clip starting at e.FrameA+clipOff
// into outL/outR starting at outOff, scaled by e.GainL/e.GainR. A mono clip
// contributes the same sample to both channels; channels beyond the first
// two of a multichannel clip are ignored.
func mixRange(e *core.Entry, clipOff, outOff, n int64, outL, outR []float32) {
	clip := e.Clip
	base := e.FrameA + clipOff

	if clip.Channels == 1 {
		for i := int64(0); i < n; i++ {
			s := float32(clip.Data[base+i]) * int16Scale
			outL[outOff+i] += s * e.GainL
			outR[outOff+i] += s * e.GainR
		}
		return
	}

	stride := int64(clip.Channels)
	for i := int64(0); i < n; i++ {
		idx := (base + i) * stride
		l := float32(clip.Data[idx]) * int16Scale
		r := float32(clip.Data[idx+1]) * int16Scale
		outL[outOff+i] += l * e.GainL
		outR[outOff+i] += r * e.GainR
	}
}
