package amio

// ProcessFunc is the realtime audio callback a Backend drives once per
// block. transportFrame/transportRolling are the host's own notion of
// transport position, supplied for diagnostics only: AMIO's mixer holds its
// own authoritative (position, rolling) state, driven by SetPosition/
// SetTransportRolling rather than by whatever the host reports.
type ProcessFunc func(nframes int, inL, inR, outL, outR []float32, transportFrame int64, transportRolling bool)

// Backend is the abstract "JACK or equivalent" collaborator: something that
// opens a duplex audio stream and calls a ProcessFunc once per block on a
// realtime thread. AMIO's mixing core never imports a concrete Backend;
// backend/portaudio ships one implementation for use outside a JACK
// environment.
type Backend interface {
	// Open starts the audio stream and begins calling process on its
	// realtime thread. It returns the stream's sample rate.
	Open(clientName string, process ProcessFunc) (sampleRate float64, err error)

	// Close stops the stream. After Close returns, process will not be
	// called again.
	Close() error
}
