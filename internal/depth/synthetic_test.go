package depth

import (
	"context"
	"testing"
	"time"
)

func TestDuneFieldFrameInRange(t *testing.T) {
	field := NewDuneField(32, 24, 500, 1500)
	f := field.Frame(1.7)

	if !f.Complete() {
		t.Fatalf("expected complete frame, got %d samples for %dx%d", len(f.Samples), f.Width, f.Height)
	}
	for i, s := range f.Samples {
		if s < 500 || s > 1500 {
			t.Fatalf("sample %d = %d outside configured depth range", i, s)
		}
	}
}

func TestDuneFieldVariesOverTime(t *testing.T) {
	field := NewDuneField(16, 16, 500, 1500)
	a := field.Frame(0)
	b := field.Frame(2.5)

	same := true
	for i := range a.Samples {
		if a.Samples[i] != b.Samples[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("expected dunes to drift between t=0 and t=2.5")
	}
}

func TestDuneFieldDropouts(t *testing.T) {
	field := NewDuneField(32, 32, 500, 1500)
	field.DropoutRate = 0.5
	f := field.Frame(0)

	zeros := 0
	for _, s := range f.Samples {
		if s == 0 {
			zeros++
		}
	}
	// With rate 0.5 over 1024 samples the count is tightly concentrated;
	// anything outside this band means dropouts are broken.
	if zeros < 300 || zeros > 700 {
		t.Fatalf("expected roughly half dropouts, got %d of %d", zeros, len(f.Samples))
	}
}

func TestSyntheticSourceDeliversFrames(t *testing.T) {
	got := make(chan *Frame, 8)
	src := NewSyntheticSource(SyntheticSourceConfig{
		Width:         16,
		Height:        12,
		FrameInterval: 5 * time.Millisecond,
		Handler:       func(f *Frame) { got <- f },
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- src.Start(ctx) }()

	select {
	case f := <-got:
		if f.Width != 16 || f.Height != 12 || !f.Complete() {
			t.Fatalf("unexpected frame %dx%d with %d samples", f.Width, f.Height, len(f.Samples))
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no frame delivered")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("source did not stop on cancellation")
	}
}

func TestSyntheticSourceRequiresHandler(t *testing.T) {
	src := NewSyntheticSource(SyntheticSourceConfig{})
	if err := src.Start(context.Background()); err != ErrNoHandler {
		t.Fatalf("expected ErrNoHandler, got %v", err)
	}
}
