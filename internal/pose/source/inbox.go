package source

import (
	"sync"

	"github.com/lumenfield/mirrorwall/internal/pose"
)

// Inbox is a latest-wins mailbox between the detector's delivery cadence and
// the render loop's frame ticks. The detector produces at its own rate; the
// pipeline consumes whatever is newest at each tick. Stale frames are
// overwritten, never queued, so there is no back-pressure to manage.
type Inbox struct {
	mu    sync.Mutex
	frame pose.Frame
	seq   uint64
}

// Put replaces the stored frame.
func (in *Inbox) Put(frame pose.Frame) {
	in.mu.Lock()
	in.frame = frame
	in.seq++
	in.mu.Unlock()
}

// Take returns the newest frame and its sequence number. The caller compares
// sequence numbers across ticks: an unchanged sequence means no new frame
// arrived and the pipeline should hold its state rather than re-process.
func (in *Inbox) Take() (pose.Frame, uint64) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.frame, in.seq
}
