package source

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lumenfield/mirrorwall/internal/pose"
	"github.com/lumenfield/mirrorwall/internal/timeutil"
)

// fakeConn hands out queued messages, then fails like a dropped connection.
type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || len(c.messages) == 0 {
		return 0, nil, errors.New("connection reset")
	}
	msg := c.messages[0]
	c.messages = c.messages[1:]
	return 1, msg, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func TestWSSourceReconnectsAndDeliversFrames(t *testing.T) {
	var in Inbox
	clock := timeutil.NewMockClock(time.Now())
	s := NewWSSource("ws://detector.test/skeletons", &in, clock)

	ctx, cancel := context.WithCancel(context.Background())
	dials := 0
	s.dial = func(url string) (wsConn, error) {
		dials++
		switch dials {
		case 1:
			// First dial fails; the source must back off and retry.
			return nil, errors.New("connection refused")
		case 2:
			return &fakeConn{messages: [][]byte{
				[]byte(`{"captured_at_ms": 1, "skeletons": [{"joints": {"nose": {"x": 0.4, "y": 0.3, "c": 0.9}}}]}`),
				[]byte(`garbage mid-stream`),
				[]byte(`{"captured_at_ms": 2, "skeletons": [{"joints": {"nose": {"x": 0.6, "y": 0.3, "c": 0.9}}}]}`),
			}}, nil
		default:
			cancel()
			return nil, errors.New("connection refused")
		}
	}

	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
	if dials < 3 {
		t.Errorf("dials = %d, want at least 3 (fail, serve, fail)", dials)
	}

	frame, seq := in.Take()
	if seq != 2 {
		t.Fatalf("delivered %d frames, want 2 (malformed one dropped)", seq)
	}
	if x := frame.Skeletons[0].Joints[pose.Nose].X; x != 0.6 {
		t.Errorf("latest nose x = %v, want 0.6", x)
	}
}

func TestWSSourceReturnsImmediatelyWhenCancelled(t *testing.T) {
	var in Inbox
	s := NewWSSource("ws://detector.test/skeletons", &in, timeutil.NewMockClock(time.Now()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}
