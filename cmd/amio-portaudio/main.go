// Command amio-portaudio is a minimal runnable demonstration of the AMIO
// facade: it opens a PortAudio-backed Interface, schedules a one-entry
// playspec built from a generated tone, and logs playback/capture activity
// until interrupted or until twice the tone's duration has elapsed. It is
// not part of AMIO's library surface.
package main

import (
	"flag"
	"log"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/smiszym/amio"
	"github.com/smiszym/amio/backend/portaudio"
	"github.com/smiszym/amio/internal/config"
)

func main() {
	clientName := flag.String("name", "amio-portaudio", "JACK/PortAudio client name")
	toneHz := flag.Float64("tone-hz", 440, "frequency of the demo tone, in Hz")
	toneSecs := flag.Float64("tone-secs", 2, "duration of the demo tone, in seconds")
	gain := flag.Float64("gain", 0.2, "linear gain applied to the demo tone")
	flag.Parse()

	backend := portaudio.New()
	ifc := amio.NewInterface(backend, config.Default())
	if err := ifc.Init(*clientName); err != nil {
		log.Fatalf("[amio-portaudio] init: %v", err)
	}
	defer ifc.Close()

	frameRate, err := ifc.FrameRate()
	if err != nil {
		log.Fatalf("[amio-portaudio] frame rate: %v", err)
	}
	log.Printf("[amio-portaudio] opened at %v Hz", frameRate)

	pool := amio.NewPool()
	clip, err := buildToneClip(pool, frameRate, *toneHz, *toneSecs)
	if err != nil {
		log.Fatalf("[amio-portaudio] build tone: %v", err)
	}

	entry := amio.Entry{
		Clip:        clip,
		FrameA:      0,
		FrameB:      clip.Frames(),
		PlayAtFrame: 0,
		GainL:       float32(*gain),
		GainR:       float32(*gain),
	}
	ps := amio.NewPlayspec()
	if err := ps.AddEntry(entry); err != nil {
		log.Fatalf("[amio-portaudio] add entry: %v", err)
	}

	result, err := ifc.SchedulePlayspecChange(ps, func(applied bool) {
		log.Printf("[amio-portaudio] playspec applied=%v", applied)
	})
	if err != nil {
		log.Fatalf("[amio-portaudio] schedule playspec change: %v", err)
	}
	log.Printf("[amio-portaudio] playspec submission: %v", result)

	ifc.SetInputChunkCallback(func(chunk amio.InputChunk) {
		log.Printf("[amio-portaudio] input chunk: playspec=%d frame=%d rolling=%v",
			chunk.PlayspecID, chunk.StartingFrame, chunk.WasRolling)
	})

	if err := ifc.SetTransportRolling(true); err != nil {
		log.Fatalf("[amio-portaudio] set transport rolling: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	select {
	case <-sig:
	case <-time.After(time.Duration(*toneSecs*2) * time.Second):
	}
}

// buildToneClip synthesizes a mono sine wave at hz for secs seconds and
// hands it to pool as a new clip.
func buildToneClip(pool *amio.Pool, frameRate, hz, secs float64) (*amio.Clip, error) {
	n := int(frameRate * secs)
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * hz * float64(i) / frameRate))
	}
	data := amio.ClipFromFloat32(samples)
	return pool.CreateClip(data, 1, frameRate)
}
