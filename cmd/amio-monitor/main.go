// Command amio-monitor is a runnable demonstration of wiring an Interface's
// input-chunk callback to a remote listener: every chunk delivered by the
// facade is downmixed to mono, Opus-encoded, and shipped as a binary
// websocket frame. It is a monitoring demo only, never imported by
// internal/*.
package main

import (
	"flag"
	"log"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"gopkg.in/hraban/opus.v2"

	"github.com/smiszym/amio"
	"github.com/smiszym/amio/backend/portaudio"
	"github.com/smiszym/amio/internal/config"
)

const (
	monitorChannels  = 1
	monitorFrameSize = 128 // one AMIO input chunk's frame count
	writeTimeout     = 5 * time.Second
)

func main() {
	clientName := flag.String("name", "amio-monitor", "JACK/PortAudio client name")
	addr := flag.String("addr", "localhost:8080", "monitor server host:port")
	path := flag.String("path", "/monitor", "monitor server websocket path")
	bitrate := flag.Int("bitrate", 24000, "Opus encoder bitrate, in bits/sec")
	flag.Parse()

	u := url.URL{Scheme: "ws", Host: *addr, Path: *path}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("[amio-monitor] dial %s: %v", u.String(), err)
	}
	defer conn.Close()
	log.Printf("[amio-monitor] connected to %s", u.String())

	backend := portaudio.New()
	ifc := amio.NewInterface(backend, config.Default())
	if err := ifc.Init(*clientName); err != nil {
		log.Fatalf("[amio-monitor] init: %v", err)
	}
	defer ifc.Close()

	frameRate, err := ifc.FrameRate()
	if err != nil {
		log.Fatalf("[amio-monitor] frame rate: %v", err)
	}

	enc, err := opus.NewEncoder(int(frameRate), monitorChannels, opus.AppAudio)
	if err != nil {
		log.Fatalf("[amio-monitor] new opus encoder: %v", err)
	}
	enc.SetBitrate(*bitrate)

	mono := make([]int16, monitorFrameSize)
	opusBuf := make([]byte, 4000)

	ifc.SetInputChunkCallback(func(chunk amio.InputChunk) {
		n := len(chunk.Samples) / 2
		if n > len(mono) {
			n = len(mono)
		}
		for i := 0; i < n; i++ {
			l := chunk.Samples[i*2]
			r := chunk.Samples[i*2+1]
			mono[i] = int16((l + r) * 0.5 * 32767)
		}
		encoded, err := enc.Encode(mono[:n], opusBuf)
		if err != nil {
			log.Printf("[amio-monitor] opus encode: %v", err)
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.BinaryMessage, opusBuf[:encoded]); err != nil {
			log.Printf("[amio-monitor] websocket write: %v", err)
		}
	})

	if err := ifc.SetTransportRolling(true); err != nil {
		log.Fatalf("[amio-monitor] set transport rolling: %v", err)
	}

	log.Printf("[amio-monitor] streaming input chunks to %s", u.String())
	select {}
}
