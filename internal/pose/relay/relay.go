// Package relay notifies external show-control systems when a person locks a
// pose. Delivery is fire-and-forget UDP JSON: the lighting desk either hears
// the cue or it does not, and the installation never waits on it.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/lumenfield/mirrorwall/internal/monitoring"
	"github.com/lumenfield/mirrorwall/internal/pose"
	"github.com/lumenfield/mirrorwall/internal/timeutil"
)

// CueBundle is the caller-defined payload mapped to a pose label. The relay
// treats it as opaque bytes; the cue file decides what the show-control rig
// receives.
type CueBundle = json.RawMessage

// cueMessage is the wire envelope sent per lock event.
type cueMessage struct {
	EventID string          `json:"event_id"`
	SlotID  int             `json:"slot_id"`
	Label   pose.PoseLabel  `json:"label"`
	At      time.Time       `json:"at"`
	Bundle  json.RawMessage `json:"bundle,omitempty"`
}

// CueRelay sends debounced cue messages over UDP. Identical consecutive
// bundles inside the debounce window are suppressed so a person re-locking
// the same pose in quick succession fires the rig once.
type CueRelay struct {
	conn     *net.UDPConn
	clock    timeutil.Clock
	debounce time.Duration
	bundles  map[pose.PoseLabel]CueBundle

	ch chan cueMessage

	lastKey  string
	lastSent time.Time
	dropped  atomic.Int64
}

// NewCueRelay dials the show-control address and prepares the relay.
// bundles maps each pose label to its cue payload; labels with no bundle
// still produce an envelope with an empty bundle.
func NewCueRelay(addr string, debounce time.Duration, bundles map[pose.PoseLabel]CueBundle, clock timeutil.Clock) (*CueRelay, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve relay address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial relay address: %w", err)
	}
	return &CueRelay{
		conn:     conn,
		clock:    clock,
		debounce: debounce,
		bundles:  bundles,
		ch:       make(chan cueMessage, 256),
	}, nil
}

// Send queues a cue for a lock event. Non-blocking: when the queue is full
// the cue is dropped and counted, never stalling the frame path.
func (r *CueRelay) Send(ev pose.LockEvent) {
	msg := cueMessage{
		EventID: ev.ID,
		SlotID:  ev.SlotID,
		Label:   ev.Label,
		At:      ev.At,
		Bundle:  r.bundles[ev.Label],
	}
	select {
	case r.ch <- msg:
	default:
		r.dropped.Add(1)
	}
}

// Start runs the sender goroutine until the context is cancelled.
func (r *CueRelay) Start(ctx context.Context) {
	go func() {
		defer r.conn.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-r.ch:
				r.deliver(msg)
			}
		}
	}()
}

// deliver applies the debounce and writes the datagram.
func (r *CueRelay) deliver(msg cueMessage) {
	now := r.clock.Now()
	key := debounceKey(msg)
	if key == r.lastKey && now.Sub(r.lastSent) < r.debounce {
		monitoring.Debugf("relay: debounced %s for slot %d", msg.Label, msg.SlotID)
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		monitoring.Logf("relay: failed to encode cue: %v", err)
		return
	}
	if _, err := r.conn.Write(data); err != nil {
		monitoring.Logf("relay: failed to send cue: %v", err)
		return
	}
	r.lastKey = key
	r.lastSent = now
}

// debounceKey identifies "the same bundle": label plus payload, ignoring the
// per-event ID and timestamp.
func debounceKey(msg cueMessage) string {
	return fmt.Sprintf("%d|%s|%s", msg.SlotID, msg.Label, string(msg.Bundle))
}

// Dropped returns how many cues were discarded because the queue was full.
func (r *CueRelay) Dropped() int64 {
	return r.dropped.Load()
}

// LoadBundles reads the label→bundle mapping from a JSON file of the form
// {"arms_up": {...}, "star": {...}}.
func LoadBundles(data []byte) (map[pose.PoseLabel]CueBundle, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse cue bundles: %w", err)
	}
	out := make(map[pose.PoseLabel]CueBundle, len(raw))
	for label, bundle := range raw {
		out[pose.PoseLabel(label)] = CueBundle(bundle)
	}
	return out, nil
}
