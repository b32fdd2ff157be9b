// Package portaudio implements amio.Backend on top of PortAudio, standing
// in for "JACK or equivalent" on a machine with no JACK server. It is a
// runnable demonstration of the Backend contract, not a reimplementation of
// JACK; AMIO's mixing core never imports this package.
package portaudio

import (
	"fmt"
	"sync"

	gopa "github.com/gordonklaus/portaudio"

	"github.com/smiszym/amio"
)

// BlockSize is the fixed frame count this backend requests from PortAudio
// per callback.
const BlockSize = 256

// Backend opens a single duplex stereo PortAudio stream and drives an
// amio.ProcessFunc from its callback.
type Backend struct {
	mu       sync.Mutex
	stream   *gopa.Stream
	closed   bool
	terminate bool
}

// New creates an unopened Backend. Call Open to start the stream.
func New() *Backend {
	return &Backend{}
}

// Open initializes PortAudio, opens a duplex stream on the default input
// and output devices, and starts it. process is invoked from the stream's
// own audio callback once per block.
func (b *Backend) Open(clientName string, process amio.ProcessFunc) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stream != nil {
		return 0, fmt.Errorf("portaudio backend: already open")
	}

	if err := gopa.Initialize(); err != nil {
		return 0, fmt.Errorf("portaudio backend: initialize: %w", err)
	}
	b.terminate = true

	inDev, err := gopa.DefaultInputDevice()
	if err != nil {
		return 0, fmt.Errorf("portaudio backend: default input device: %w", err)
	}
	outDev, err := gopa.DefaultOutputDevice()
	if err != nil {
		return 0, fmt.Errorf("portaudio backend: default output device: %w", err)
	}

	sampleRate := outDev.DefaultSampleRate
	params := gopa.StreamParameters{
		Input: gopa.StreamDeviceParameters{
			Device:   inDev,
			Channels: 2,
			Latency:  inDev.DefaultLowInputLatency,
		},
		Output: gopa.StreamDeviceParameters{
			Device:   outDev,
			Channels: 2,
			Latency:  outDev.DefaultLowOutputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: BlockSize,
	}

	// Planar scratch buffers reused across every callback invocation, kept
	// alive by the closure rather than reallocated per block.
	inL := make([]float32, BlockSize)
	inR := make([]float32, BlockSize)
	outL := make([]float32, BlockSize)
	outR := make([]float32, BlockSize)
	var transportFrame int64

	callback := func(in, out []float32) {
		for i := 0; i < BlockSize; i++ {
			inL[i] = in[i*2]
			inR[i] = in[i*2+1]
		}
		process(BlockSize, inL, inR, outL, outR, transportFrame, true)
		for i := 0; i < BlockSize; i++ {
			out[i*2] = outL[i]
			out[i*2+1] = outR[i]
		}
		transportFrame += int64(BlockSize)
	}

	stream, err := gopa.OpenStream(params, callback)
	if err != nil {
		return 0, fmt.Errorf("portaudio backend: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return 0, fmt.Errorf("portaudio backend: start stream: %w", err)
	}

	b.stream = stream
	return sampleRate, nil
}

// Close stops and closes the stream before terminating PortAudio.
//
// Sequence matters here, mirroring the teacher's own audio engine: Stop is
// thread-safe and unblocks the stream's internal callback before Close
// frees the native stream, avoiding a use-after-free if Close ran first.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var firstErr error
	if b.stream != nil {
		if err := b.stream.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := b.stream.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if b.terminate {
		if err := gopa.Terminate(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
