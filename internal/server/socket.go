package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vk/blockflow/internal/ctxlog"
	"github.com/vk/blockflow/internal/tracker"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"
)

// Socket events.
const (
	EventSubscribe = "subscribe"
	EventStatus    = "status"
	EventDone      = "done"
	EventError     = "error_message"
)

// socketSession tracks the workflow subscriptions of one socket.io client.
// Each subscription ends with its own done event; the client is disconnected
// only when the last one has ended.
type socketSession struct {
	bridge     Subscriber
	logger     *slog.Logger
	emit       func(ev string, args ...any) error
	connected  func() bool
	disconnect func()

	mu sync.Mutex
	// subs maps a handle to its unsubscribe func, which is nil while the
	// bridge subscription is being set up.
	subs   map[string]func()
	closed bool
}

func newSocketSession(bridge Subscriber, logger *slog.Logger, client *socket.Socket) *socketSession {
	return &socketSession{
		bridge:     bridge,
		logger:     logger,
		emit:       client.Emit,
		connected:  client.Connected,
		disconnect: func() { client.Disconnect(true) },
		subs:       make(map[string]func()),
	}
}

// subscribe starts streaming handle to the client. A second subscription to
// the same handle is refused.
func (ss *socketSession) subscribe(handle string) {
	ss.mu.Lock()
	if ss.closed {
		ss.mu.Unlock()
		return
	}
	if _, dup := ss.subs[handle]; dup {
		ss.mu.Unlock()
		_ = ss.emit(EventError, fmt.Sprintf("already subscribed to %s", handle))
		return
	}
	ss.subs[handle] = nil
	ss.mu.Unlock()

	ss.logger.Info("📡 Client subscribed to workflow.", "handle", handle)
	unsub := ss.bridge.Subscribe(handle, &socketObserver{session: ss, handle: handle})

	ss.mu.Lock()
	_, live := ss.subs[handle]
	if live && !ss.closed {
		ss.subs[handle] = unsub
		unsub = nil
	}
	ss.mu.Unlock()

	// Finished or dropped while subscribing.
	if unsub != nil {
		unsub()
	}
}

// finish ends the stream for handle.
func (ss *socketSession) finish(handle string) {
	ss.mu.Lock()
	_, ok := ss.subs[handle]
	delete(ss.subs, handle)
	last := ok && len(ss.subs) == 0 && !ss.closed
	if last {
		ss.closed = true
	}
	ss.mu.Unlock()

	if !ok || !ss.connected() {
		return
	}
	_ = ss.emit(EventDone, map[string]string{"task_id": handle})
	if last {
		ss.logger.Debug("Last subscription finished, disconnecting client.", "handle", handle)
		ss.disconnect()
	}
}

// drop unsubscribes everything once the client has gone.
func (ss *socketSession) drop() int {
	ss.mu.Lock()
	subs := ss.subs
	ss.subs = make(map[string]func())
	ss.closed = true
	ss.mu.Unlock()

	for _, unsub := range subs {
		if unsub != nil {
			unsub()
		}
	}
	return len(subs)
}

// socketObserver forwards bridge pushes for one handle to a socket session.
type socketObserver struct {
	session *socketSession
	handle  string
	once    sync.Once
}

// Push implements bridge.Observer. The handle follows the status so a client
// watching several runs can tell them apart.
func (o *socketObserver) Push(_ context.Context, status tracker.Status) error {
	if !o.session.connected() {
		return errors.New("client disconnected")
	}
	return o.session.emit(EventStatus, status, o.handle)
}

// Close implements bridge.Observer.
func (o *socketObserver) Close() {
	o.once.Do(func() { o.session.finish(o.handle) })
}

func (s *Server) newSocketServer(ctx context.Context) *socket.Server {
	logger := ctxlog.FromContext(ctx)
	opts := socket.DefaultServerOptions()
	opts.SetCors(&types.Cors{Origin: corsOrigin(s.opts.CORSOrigins), Credentials: true})
	io := socket.NewServer(nil, opts)

	_ = io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clog := logger.With("sid", client.Id())
		clog.Debug("Socket client connected.")
		session := newSocketSession(s.deps.Bridge, clog, client)

		_ = client.On(EventSubscribe, func(args ...any) {
			handle, ok := subscribeHandle(args)
			if !ok {
				_ = client.Emit(EventError, "subscribe expects a task id")
				return
			}
			session.subscribe(handle)
		})

		_ = client.On("disconnect", func(...any) {
			n := session.drop()
			clog.Debug("Socket client disconnected.", "subscriptions", n)
		})
	})
	return io
}

// subscribeHandle accepts either a bare task id or {"task_id": "..."}.
func subscribeHandle(args []any) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	switch v := args[0].(type) {
	case string:
		return v, v != ""
	case map[string]any:
		id, ok := v["task_id"].(string)
		return id, ok && id != ""
	default:
		s := fmt.Sprint(v)
		return s, false
	}
}

func corsOrigin(origins []string) any {
	switch len(origins) {
	case 0:
		return "*"
	case 1:
		return origins[0]
	}
	list := make([]any, len(origins))
	for i, o := range origins {
		list[i] = o
	}
	return list
}
