// simcam transmits procedurally generated depth frames over UDP in the
// sandtable wire format. It stands in for a depth camera when testing the
// pipeline end to end on a bench without hardware.
//
// Usage:
//
//	simcam -target localhost:2368 -fps 30
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/sandtable/internal/depth"
)

var (
	target   = flag.String("target", "localhost:2368", "UDP address of the sandtable listener")
	width    = flag.Int("width", 320, "Frame width in samples")
	height   = flag.Int("height", 240, "Frame height in samples")
	fps      = flag.Int("fps", 30, "Frames per second")
	minDepth = flag.Uint("min-depth", 500, "Nearest surface depth in millimetres")
	maxDepth = flag.Uint("max-depth", 1500, "Base plane depth in millimetres")
	dropout  = flag.Float64("dropout", 0.02, "Fraction of samples replaced with invalid returns")
	count    = flag.Int("count", 0, "Number of frames to send (0 = until interrupted)")
)

func main() {
	flag.Parse()

	if *fps <= 0 {
		log.Fatal("fps must be positive")
	}
	if *maxDepth <= *minDepth || *maxDepth > 65535 {
		log.Fatalf("invalid depth range [%d, %d] mm", *minDepth, *maxDepth)
	}

	addr, err := net.ResolveUDPAddr("udp", *target)
	if err != nil {
		log.Fatalf("Failed to resolve target: %v", err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		log.Fatalf("Failed to dial target: %v", err)
	}
	defer conn.Close()

	field := depth.NewDuneField(*width, *height, uint16(*minDepth), uint16(*maxDepth))
	field.DropoutRate = *dropout

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	interval := time.Second / time.Duration(*fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("Sending %dx%d frames to %s at %d fps", *width, *height, *target, *fps)

	start := time.Now()
	var seq uint32
	sent := 0
	for {
		select {
		case <-ctx.Done():
			log.Printf("Stopped after %d frames", sent)
			return
		case now := <-ticker.C:
			frame := field.Frame(now.Sub(start).Seconds())
			seq++
			for _, pkt := range depth.EncodeFramePackets(frame, seq) {
				if _, err := conn.Write(pkt); err != nil {
					log.Fatalf("Failed to send packet: %v", err)
				}
			}
			sent++
			if *count > 0 && sent >= *count {
				log.Printf("Sent %d frames", sent)
				return
			}
		}
	}
}
