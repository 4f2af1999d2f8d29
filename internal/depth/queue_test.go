package depth

import (
	"sync"
	"testing"
)

func testFrame(tag uint16) *Frame {
	return &Frame{Width: 2, Height: 2, Samples: []uint16{tag, tag, tag, tag}}
}

func TestQueueFIFOOrder(t *testing.T) {
	q := NewFrameQueue(4)
	for i := uint16(1); i <= 3; i++ {
		q.Push(testFrame(i))
	}
	if q.Len() != 3 {
		t.Fatalf("expected depth 3, got %d", q.Len())
	}
	for i := uint16(1); i <= 3; i++ {
		f, ok := q.TryPop()
		if !ok {
			t.Fatalf("expected frame %d, queue empty", i)
		}
		if f.Samples[0] != i {
			t.Fatalf("expected frame %d, got %d", i, f.Samples[0])
		}
	}
	if _, ok := q.TryPop(); ok {
		t.Fatalf("expected empty queue after draining")
	}
}

func TestQueueEvictsOldestWhenFull(t *testing.T) {
	q := NewFrameQueue(3)
	for i := uint16(1); i <= 5; i++ {
		q.Push(testFrame(i))
	}
	if q.Len() != 3 {
		t.Fatalf("expected depth pinned at capacity 3, got %d", q.Len())
	}

	// Frames 1 and 2 were evicted; 3, 4, 5 remain in order.
	want := []uint16{3, 4, 5}
	for _, w := range want {
		f, ok := q.TryPop()
		if !ok || f.Samples[0] != w {
			t.Fatalf("expected frame %d, got %+v ok=%v", w, f, ok)
		}
	}
}

func TestQueueIgnoresNilFrames(t *testing.T) {
	q := NewFrameQueue(2)
	q.Push(nil)
	if q.Len() != 0 {
		t.Fatalf("nil push should not change depth")
	}
}

func TestQueueDefaultCapacity(t *testing.T) {
	q := NewFrameQueue(0)
	for i := uint16(0); i < 10; i++ {
		q.Push(testFrame(i))
	}
	if q.Len() != DefaultQueueCapacity {
		t.Fatalf("expected default capacity %d, got %d", DefaultQueueCapacity, q.Len())
	}
}

func TestQueueCounters(t *testing.T) {
	q := NewFrameQueue(2)
	q.Push(testFrame(1))
	q.Push(testFrame(2))
	q.Push(testFrame(3)) // evicts frame 1
	q.TryPop()

	s := q.Stats()
	if s.Pushed != 3 || s.Dropped != 1 || s.Popped != 1 || s.Depth != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
	// Conservation: pushed = popped + dropped + depth.
	if s.Pushed != s.Popped+s.Dropped+uint64(s.Depth) {
		t.Fatalf("counter conservation violated: %+v", s)
	}
}

// Concurrent producers and a consumer must never corrupt the queue or exceed
// its capacity. Run with -race.
func TestQueueConcurrentPushPop(t *testing.T) {
	q := NewFrameQueue(6)

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				q.Push(testFrame(uint16(i)))
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			q.TryPop()
		}
	}()

	wg.Wait()
	<-done

	if q.Len() > 6 {
		t.Fatalf("queue exceeded capacity: %d", q.Len())
	}
	s := q.Stats()
	if s.Pushed != 2000 {
		t.Fatalf("expected 2000 pushes, got %d", s.Pushed)
	}
	if s.Pushed != s.Popped+s.Dropped+uint64(s.Depth) {
		t.Fatalf("counter conservation violated: %+v", s)
	}
}
