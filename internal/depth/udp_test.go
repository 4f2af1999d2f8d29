package depth

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestUDPListenerAssemblesFrames(t *testing.T) {
	got := make(chan *Frame, 4)
	l := NewUDPListener(UDPListenerConfig{
		Address: "127.0.0.1:0",
		Handler: func(f *Frame) { got <- f },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- l.Start(ctx) }()

	// Wait for the socket to bind.
	var addr net.Addr
	deadline := time.Now().Add(2 * time.Second)
	for addr == nil {
		if time.Now().After(deadline) {
			t.Fatalf("listener never bound")
		}
		addr = l.Addr()
		time.Sleep(5 * time.Millisecond)
	}

	conn, err := net.Dial("udp", addr.String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	frame := sequentialFrame(32, 8)
	for _, pkt := range EncodeFramePackets(frame, 1) {
		if _, err := conn.Write(pkt); err != nil {
			t.Fatalf("send failed: %v", err)
		}
	}

	select {
	case f := <-got:
		if f.Width != 32 || f.Height != 8 || !f.Complete() {
			t.Fatalf("unexpected frame %dx%d with %d samples", f.Width, f.Height, len(f.Samples))
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no frame assembled from UDP packets")
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatalf("listener did not stop on cancellation")
	}
}

func TestUDPListenerRequiresHandler(t *testing.T) {
	l := NewUDPListener(UDPListenerConfig{Address: "127.0.0.1:0"})
	if err := l.Start(context.Background()); err != ErrNoHandler {
		t.Fatalf("expected ErrNoHandler, got %v", err)
	}
}
