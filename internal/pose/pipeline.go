package pose

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumenfield/mirrorwall/internal/config"
	"github.com/lumenfield/mirrorwall/internal/monitoring"
	"github.com/lumenfield/mirrorwall/internal/timeutil"
)

// PersonSlot is the persistent per-person state container. Slots are the
// unit of identity: smoothing history, the lock FSM, and the animation state
// all live here and survive across frames for as long as the slot does.
type PersonSlot struct {
	ID       int
	LastSeen time.Time

	// skeleton is the previous frame's raw skeleton, kept for identity
	// matching against the next frame.
	skeleton Skeleton

	smoother *Smoother
	fsm      *LockFSM
	anim     *Animator
}

// SlotOutput is what the rendering collaborator reads for one slot each
// frame.
type SlotOutput struct {
	SlotID        int       `json:"slot_id"`
	Locked        PoseLabel `json:"locked_label"`
	Phase         LockPhase `json:"phase"`
	Scale         float64   `json:"scale"`
	AnchorX       float64   `json:"anchor_x"`
	AnchorY       float64   `json:"anchor_y"`
	ShoulderWidth float64   `json:"shoulder_width"`
}

// LockEvent is emitted whenever a slot's locked label changes to a new
// non-none value.
type LockEvent struct {
	ID     string    `json:"id"`
	SlotID int       `json:"slot_id"`
	Label  PoseLabel `json:"label"`
	At     time.Time `json:"at"`
}

// Stats are cumulative pipeline counters.
type Stats struct {
	FramesProcessed int64 `json:"frames_processed"`
	SkeletonsSeen   int64 `json:"skeletons_seen"`
	SlotsCreated    int64 `json:"slots_created"`
	LocksAcquired   int64 `json:"locks_acquired"`
	ActiveSlots     int   `json:"active_slots"`
}

// Pipeline owns the PersonSlot collection and runs the full per-frame
// evaluation: identity matching, smoothing, classification, the lock FSM,
// and the animation controller, in that strict order for every slot. It is
// single-threaded by design — Step is called once per rendered frame from
// the render loop — but its read surface (Outputs, Stats) is safe to hit
// from the HTTP API concurrently.
type Pipeline struct {
	clock timeutil.Clock
	cfg   *config.Store

	slots []*PersonSlot

	mu      sync.RWMutex
	outputs []SlotOutput
	stats   Stats

	// onLock receives lock-change events. Must not block: downstream
	// consumers (relay, event log) buffer internally.
	onLock func(LockEvent)
}

// NewPipeline creates an empty pipeline on the given clock and live config.
func NewPipeline(clock timeutil.Clock, cfg *config.Store) *Pipeline {
	return &Pipeline{clock: clock, cfg: cfg}
}

// OnLock registers the lock-change event hook. Call before the first Step.
func (p *Pipeline) OnLock(fn func(LockEvent)) {
	p.onLock = fn
}

// Step evaluates one frame through the whole pipeline and returns the
// per-slot outputs. Never returns an error: missing or malformed input
// degrades to neutral classification and is absorbed by the lock FSM.
func (p *Pipeline) Step(frame Frame) []SlotOutput {
	now := p.clock.Now()
	tuning := p.cfg.Current()

	matchParams := MatchParamsFromTuning(tuning)
	smoothParams := SmootherParamsFromTuning(tuning)
	classParams := ClassifierParamsFromTuning(tuning)
	lockParams := LockParamsFromTuning(tuning)
	animParams := AnimParamsFromTuning(tuning)

	cur := frame.Skeletons

	// Identity matching: assign current skeletons to existing slots.
	previous := make([]Skeleton, len(p.slots))
	for i, slot := range p.slots {
		previous[i] = slot.skeleton
	}
	matcher := NewMatcher(tuning.GetMatcherAlgorithm())
	match := matcher.Match(previous, cur, matchParams)

	// Rebuild the slot collection at the new person count. Matched slots
	// keep their index; unmatched skeletons fill the free indices in the
	// order they were found; slots beyond the new count are truncated.
	next := make([]*PersonSlot, len(cur))
	slotSkeleton := make([]int, len(cur)) // slot index → current skeleton index
	taken := make([]bool, len(cur))
	var created int64
	for ci, si := range match {
		if si >= 0 && si < len(next) && next[si] == nil {
			next[si] = p.slots[si]
			slotSkeleton[si] = ci
			taken[ci] = true
		}
	}
	free := 0
	for ci := range cur {
		if taken[ci] {
			continue
		}
		for free < len(next) && next[free] != nil {
			free++
		}
		if free >= len(next) {
			break
		}
		next[free] = &PersonSlot{
			ID:       free,
			smoother: NewSmoother(),
			fsm:      NewLockFSM(p.clock),
			anim:     NewAnimator(p.clock),
		}
		slotSkeleton[free] = ci
		created++
	}
	p.slots = next

	// Per-slot evaluation: smooth → classify → lock → animate.
	outputs := make([]SlotOutput, 0, len(p.slots))
	var locks int64
	for si, slot := range p.slots {
		sk := cur[slotSkeleton[si]]
		slot.ID = si
		slot.skeleton = sk
		slot.LastSeen = now

		smoothed := slot.smoother.SmoothSkeleton(&sk, smoothParams)

		rawWidth := smoothed.ShoulderWidth(classParams.MinJointConfidence)
		width := slot.smoother.SmoothScalar(ScalarShoulderWidth, rawWidth, smoothParams)

		detected := Classify(&smoothed, classParams)

		before := slot.fsm.Locked()
		locked := slot.fsm.Observe(detected, lockParams)
		if locked != LabelNone && locked != before {
			locks++
			ev := LockEvent{
				ID:     uuid.NewString(),
				SlotID: si,
				Label:  locked,
				At:     now,
			}
			monitoring.Debugf("pose: slot %d locked %q", si, locked)
			if p.onLock != nil {
				p.onLock(ev)
			}
		}

		slot.anim.Observe(locked, animParams)

		ax, ay, _ := smoothed.Anchor(tuning.GetAnchorBlend(), classParams.MinJointConfidence)
		outputs = append(outputs, SlotOutput{
			SlotID:        si,
			Locked:        locked,
			Phase:         slot.fsm.Phase(),
			Scale:         slot.anim.Scale(),
			AnchorX:       ax,
			AnchorY:       ay,
			ShoulderWidth: width,
		})
	}

	p.mu.Lock()
	p.outputs = outputs
	p.stats.FramesProcessed++
	p.stats.SkeletonsSeen += int64(len(cur))
	p.stats.SlotsCreated += created
	p.stats.LocksAcquired += locks
	p.stats.ActiveSlots = len(p.slots)
	p.mu.Unlock()

	return outputs
}

// Outputs returns the most recent per-slot outputs. When the skeleton source
// stalls, this keeps reporting the last computed state: the installation
// holds rather than resets.
func (p *Pipeline) Outputs() []SlotOutput {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]SlotOutput, len(p.outputs))
	copy(out, p.outputs)
	return out
}

// Stats returns a snapshot of the cumulative counters.
func (p *Pipeline) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

// SlotCount returns the number of live slots.
func (p *Pipeline) SlotCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats.ActiveSlots
}

// Reset tears down all slots and their FSM/animation state. Used on session
// end; nothing survives a restart.
func (p *Pipeline) Reset() {
	p.slots = nil
	p.mu.Lock()
	p.outputs = nil
	p.stats.ActiveSlots = 0
	p.mu.Unlock()
}
