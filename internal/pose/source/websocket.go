package source

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lumenfield/mirrorwall/internal/monitoring"
	"github.com/lumenfield/mirrorwall/internal/timeutil"
)

// Reconnect backoff bounds for the detector connection.
const (
	reconnectMinDelay = 500 * time.Millisecond
	reconnectMaxDelay = 10 * time.Second
)

// WSSource dials the detector's WebSocket endpoint and feeds every received
// frame into an Inbox. Connection loss is expected during a long-running
// installation; the source reconnects forever with capped backoff and the
// pipeline simply holds its last state until frames resume.
type WSSource struct {
	url   string
	inbox *Inbox
	clock timeutil.Clock

	dial func(url string) (wsConn, error)
}

// wsConn is the slice of *websocket.Conn the source needs; tests substitute
// a fake.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// NewWSSource creates a source for the given ws:// or wss:// URL.
func NewWSSource(url string, inbox *Inbox, clock timeutil.Clock) *WSSource {
	return &WSSource{
		url:   url,
		inbox: inbox,
		clock: clock,
		dial: func(url string) (wsConn, error) {
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
	}
}

// Run connects and consumes frames until the context is cancelled. It only
// returns the context's error; connection failures are retried internally.
func (s *WSSource) Run(ctx context.Context) error {
	delay := reconnectMinDelay
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, err := s.dial(s.url)
		if err != nil {
			monitoring.Logf("source: detector dial %s failed: %v (retrying in %v)", s.url, err, delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.clock.After(delay):
			}
			delay = min(delay*2, reconnectMaxDelay)
			continue
		}

		monitoring.Logf("source: connected to detector at %s", s.url)
		delay = reconnectMinDelay
		s.readLoop(ctx, conn)
	}
}

// readLoop consumes messages until the connection breaks or the context is
// cancelled. Unparseable messages are counted against no one: the detector
// occasionally emits partial documents mid-shutdown and the next frame
// supersedes them anyway.
func (s *WSSource) readLoop(ctx context.Context, conn wsConn) {
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				monitoring.Logf("source: detector connection lost: %v", err)
			}
			return
		}
		frame, err := ParseFrame(data)
		if err != nil {
			monitoring.Debugf("source: dropping malformed frame: %v", err)
			continue
		}
		s.inbox.Put(frame)
	}
}
