package amio

// DummyInterface offers frame/second conversion against a fixed frame rate
// without touching any realtime path at all: no rings, no pump, no mixer.
// It exists so tests that only need frame-rate arithmetic don't have to
// construct a full Interface or NullInterface.
type DummyInterface struct {
	frameRate float64
}

// NewDummyInterface creates a DummyInterface reporting frameRate.
func NewDummyInterface(frameRate float64) *DummyInterface {
	return &DummyInterface{frameRate: frameRate}
}

// FrameRate returns the configured frame rate.
func (d *DummyInterface) FrameRate() float64 { return d.frameRate }

// SecsToFrame converts a duration in seconds to a frame count at FrameRate.
func (d *DummyInterface) SecsToFrame(seconds float64) int64 {
	return int64(d.frameRate * seconds)
}

// FrameToSecs converts a frame count to seconds at FrameRate.
func (d *DummyInterface) FrameToSecs(frame int64) float64 {
	return float64(frame) / d.frameRate
}
