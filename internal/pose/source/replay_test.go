package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lumenfield/mirrorwall/internal/pose"
	"github.com/lumenfield/mirrorwall/internal/timeutil"
)

func writeReplayFile(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frames.jsonl")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReplayerPlaysEveryFrame(t *testing.T) {
	path := writeReplayFile(t, []string{
		`{"captured_at_ms": 1, "skeletons": [{"joints": {"nose": {"x": 0.1, "y": 0.3, "c": 0.9}}}]}`,
		``,
		`{"captured_at_ms": 2, "skeletons": [{"joints": {"nose": {"x": 0.2, "y": 0.3, "c": 0.9}}}]}`,
		`not json at all`,
		`{"captured_at_ms": 3, "skeletons": [{"joints": {"nose": {"x": 0.3, "y": 0.3, "c": 0.9}}}]}`,
	})

	var in Inbox
	clock := timeutil.NewMockClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	r := NewReplayer(path, 33*time.Millisecond, false, &in, clock)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	frame, seq := in.Take()
	if seq != 3 {
		t.Errorf("delivered %d frames, want 3 (blank and malformed lines skipped)", seq)
	}
	if x := frame.Skeletons[0].Joints[pose.Nose].X; x != 0.3 {
		t.Errorf("last frame nose x = %v, want 0.3", x)
	}
	// Frames are stamped with delivery time, not the recording's timestamps.
	if frame.CapturedAt.UnixMilli() == 3 {
		t.Error("CapturedAt kept the recorded timestamp, want delivery time")
	}
}

func TestReplayerStopsOnCancel(t *testing.T) {
	path := writeReplayFile(t, []string{
		`{"captured_at_ms": 1, "skeletons": []}`,
		`{"captured_at_ms": 2, "skeletons": []}`,
	})

	var in Inbox
	clock := timeutil.NewMockClock(time.Now())
	r := NewReplayer(path, time.Millisecond, true, &in, clock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx); err != context.Canceled {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}
