package depth

import "context"

// FrameHandler receives each frame delivered by a camera source. Handlers are
// invoked from the source's delivery goroutine and must not block; the usual
// handler is FrameQueue.Push.
type FrameHandler func(*Frame)

// Source is the camera collaborator. Start blocks, delivering frames to the
// configured handler until the context is cancelled or a fatal error occurs;
// run it in its own goroutine. Close releases the underlying device and
// deregisters delivery, after which no further handler calls are made.
type Source interface {
	Start(ctx context.Context) error
	Close() error
}
