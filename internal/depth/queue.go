package depth

import "sync"

// DefaultQueueCapacity bounds the number of frames buffered between the
// camera delivery callback and the processing loop. Six frames is roughly
// 200 ms of slack at 30 fps; beyond that the camera is outrunning the
// consumer and older frames carry no value.
const DefaultQueueCapacity = 6

// QueueStats is a snapshot of queue counters for diagnostics.
type QueueStats struct {
	Pushed  uint64 `json:"pushed"`
	Popped  uint64 `json:"popped"`
	Dropped uint64 `json:"dropped"`
	Depth   int    `json:"depth"`
}

// FrameQueue is a bounded FIFO of depth frames shared between the camera
// delivery goroutine and the processing loop. Push never blocks the producer:
// when the queue is full the oldest frame is evicted to admit the newest.
// All mutations happen under a single mutex held only for the copy-in or
// copy-out; no processing runs inside the critical section.
type FrameQueue struct {
	mu       sync.Mutex
	frames   []*Frame
	capacity int

	pushed  uint64
	popped  uint64
	dropped uint64
}

// NewFrameQueue creates a queue with the given capacity. A capacity of zero
// or below selects DefaultQueueCapacity.
func NewFrameQueue(capacity int) *FrameQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &FrameQueue{
		frames:   make([]*Frame, 0, capacity),
		capacity: capacity,
	}
}

// Push appends a frame, evicting the oldest when the queue is full. Nil
// frames are ignored. Safe to call from the camera delivery goroutine.
func (q *FrameQueue) Push(f *Frame) {
	if f == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.frames) >= q.capacity {
		// Drop the oldest: a stale frame is worth less than the fresh one.
		copy(q.frames, q.frames[1:])
		q.frames = q.frames[:len(q.frames)-1]
		q.dropped++
	}
	q.frames = append(q.frames, f)
	q.pushed++
}

// TryPop removes and returns the oldest frame, or ok=false when the queue is
// empty. Called once per tick by the processing loop.
func (q *FrameQueue) TryPop() (*Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.frames) == 0 {
		return nil, false
	}
	f := q.frames[0]
	q.frames[0] = nil
	copy(q.frames, q.frames[1:])
	q.frames = q.frames[:len(q.frames)-1]
	q.popped++
	return f, true
}

// Len returns the current number of buffered frames.
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Stats returns a snapshot of the queue counters.
func (q *FrameQueue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Pushed:  q.pushed,
		Popped:  q.popped,
		Dropped: q.dropped,
		Depth:   len(q.frames),
	}
}
