package source

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lumenfield/mirrorwall/internal/monitoring"
	"github.com/lumenfield/mirrorwall/internal/timeutil"
)

// Replayer feeds recorded skeleton frames from a JSONL file (one wire
// document per line) into an Inbox at a fixed cadence. Used for offline
// tuning runs and demos without a detector.
type Replayer struct {
	path     string
	interval time.Duration
	loop     bool
	inbox    *Inbox
	clock    timeutil.Clock
}

// NewReplayer creates a replayer delivering one frame per interval.
func NewReplayer(path string, interval time.Duration, loop bool, inbox *Inbox, clock timeutil.Clock) *Replayer {
	return &Replayer{path: path, interval: interval, loop: loop, inbox: inbox, clock: clock}
}

// Run replays the file until it is exhausted (or forever when looping) or
// the context is cancelled.
func (r *Replayer) Run(ctx context.Context) error {
	for {
		n, err := r.playOnce(ctx)
		if err != nil {
			return err
		}
		monitoring.Logf("source: replayed %d frames from %s", n, r.path)
		if !r.loop {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (r *Replayer) playOnce(ctx context.Context) (int, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return 0, fmt.Errorf("failed to open replay file: %w", err)
	}
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		frame, err := ParseFrame(line)
		if err != nil {
			monitoring.Debugf("source: skipping malformed replay line: %v", err)
			continue
		}
		// Replay stamps frames with delivery time: the lock FSM runs on
		// wall clock, not on the recording's original timestamps.
		frame.CapturedAt = r.clock.Now()
		r.inbox.Put(frame)
		n++

		select {
		case <-ctx.Done():
			return n, ctx.Err()
		case <-r.clock.After(r.interval):
		}
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("failed to read replay file: %w", err)
	}
	return n, nil
}
