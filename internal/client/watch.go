package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"github.com/vk/blockflow/internal/ctxlog"
	"github.com/vk/blockflow/internal/tracker"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// ConnectTimeout bounds the socket.io handshake.
const ConnectTimeout = 15 * time.Second

// Watch subscribes to live status for handle and calls onStatus for every
// push until the server reports the stream done, ctx is cancelled, or the
// connection drops. It returns the last status received.
func (c *Client) Watch(ctx context.Context, handle string, onStatus func(tracker.Status)) (tracker.Status, error) {
	logger := ctxlog.FromContext(ctx).With("url", c.baseURL, "handle", handle)

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return tracker.Status{}, fmt.Errorf("failed to parse URL: %w", err)
	}

	opts := socket.DefaultOptions()
	opts.SetPath("/socket.io/")
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(fmt.Sprintf("%s://%s", u.Scheme, u.Host), opts)
	io := manager.Socket("/", opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	statuses := make(chan tracker.Status, 16)
	done := make(chan error, 1)
	stopped := make(chan struct{})
	defer close(stopped)
	finish := func(err error) {
		select {
		case done <- err:
		default:
		}
	}

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Successfully connected", "sid", io.Id())
		io.Emit("subscribe", handle)
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		finish(fmt.Errorf("socket.io connection failed: %v", firstArg(errs)))
	})
	io.On(types.EventName("status"), func(args ...any) {
		st, err := decodeStatus(firstArg(args))
		if err != nil {
			logger.Warn("Ignoring malformed status push.", "error", err)
			return
		}
		select {
		case statuses <- st:
		case <-stopped:
		}
	})
	io.On(types.EventName("done"), func(...any) {
		finish(nil)
	})
	io.On(types.EventName("error_message"), func(args ...any) {
		finish(fmt.Errorf("server refused subscription: %v", firstArg(args)))
	})

	io.Connect()

	connectTimer := time.NewTimer(ConnectTimeout)
	defer connectTimer.Stop()

	var last tracker.Status
	for {
		select {
		case st := <-statuses:
			connectTimer.Stop()
			last = st
			onStatus(st)
		case err := <-done:
			// Drain pushes that raced the done event.
			for {
				select {
				case st := <-statuses:
					last = st
					onStatus(st)
				default:
					return last, err
				}
			}
		case <-connectTimer.C:
			if last.State == "" {
				return last, fmt.Errorf("timed out after %s waiting for the first status", ConnectTimeout)
			}
		case <-ctx.Done():
			return last, ctx.Err()
		}
	}
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

// decodeStatus converts a decoded socket.io payload back into a Status.
func decodeStatus(v any) (tracker.Status, error) {
	var st tracker.Status
	b, err := json.Marshal(v)
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(b, &st); err != nil {
		return st, err
	}
	if st.State == "" {
		return st, fmt.Errorf("status push without a state")
	}
	return st, nil
}
