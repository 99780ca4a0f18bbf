package bridge

import (
	"context"
	"sync"

	"github.com/vk/blockflow/internal/tracker"
)

// ChanObserver delivers pushes on a channel, which is closed when the stream
// ends.
type ChanObserver struct {
	c    chan tracker.Status
	once sync.Once
}

// NewChanObserver creates a ChanObserver with the given channel buffer.
func NewChanObserver(buffer int) *ChanObserver {
	return &ChanObserver{c: make(chan tracker.Status, buffer)}
}

// C returns the receive side of the channel.
func (o *ChanObserver) C() <-chan tracker.Status {
	return o.c
}

// Push implements Observer. It blocks until the status is received or ctx
// is done.
func (o *ChanObserver) Push(ctx context.Context, status tracker.Status) error {
	select {
	case o.c <- status:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements Observer.
func (o *ChanObserver) Close() {
	o.once.Do(func() { close(o.c) })
}
