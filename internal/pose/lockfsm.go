package pose

import (
	"time"

	"github.com/lumenfield/mirrorwall/internal/config"
	"github.com/lumenfield/mirrorwall/internal/timeutil"
)

// LockPhase is the anti-flicker state machine phase.
type LockPhase string

const (
	LockIdle      LockPhase = "idle"      // Nothing observed, nothing held
	LockCandidate LockPhase = "candidate" // A label is accumulating dwell time
	LockLocked    LockPhase = "locked"    // A label is held and shown
	LockCooldown  LockPhase = "cooldown"  // Quiet period after an unlock
)

// LockParams holds the FSM timing configuration. All timers are wall-clock,
// not frame counts, so a stall in frame delivery cannot desynchronize them.
type LockParams struct {
	Dwell    time.Duration // Continuous candidate time required to lock
	MinShow  time.Duration // Minimum time a lock is held once acquired
	Grace    time.Duration // Tolerated detection dropout before reacting
	Cooldown time.Duration // Quiet period after unlock before a new candidate
}

// LockParamsFromTuning extracts FSM timings from the live tuning config.
func LockParamsFromTuning(t *config.Tuning) LockParams {
	return LockParams{
		Dwell:    t.GetDwellDuration(),
		MinShow:  t.GetMinShowDuration(),
		Grace:    t.GetGraceWindow(),
		Cooldown: t.GetCooldownDuration(),
	}
}

// LockFSM stabilizes the classifier's per-frame output for one person slot.
// idle → candidate → locked → cooldown → idle. Driven once per frame with
// the raw detected label; emits the locked label or LabelNone.
//
// Invariants: at most one locked label at a time, never LabelNeutral; a
// locked label cannot change to a different one without passing through
// cooldown.
type LockFSM struct {
	clock timeutil.Clock

	phase          LockPhase
	candidateLabel PoseLabel
	candidateSince time.Time
	lastCandidate  time.Time // Last frame the candidate label was seen
	lockedLabel    PoseLabel
	lockedSince    time.Time
	disagreeSince  time.Time // Start of post-minimum-show disagreement
	cooldownUntil  time.Time
}

// NewLockFSM creates an idle FSM on the given clock.
func NewLockFSM(clock timeutil.Clock) *LockFSM {
	return &LockFSM{clock: clock, phase: LockIdle}
}

// Observe consumes one frame's detected label (possibly LabelNeutral for a
// missing or unclassifiable detection) and returns the stabilized output:
// the locked label while locked, LabelNone otherwise. Never fails; malformed
// input is the caller's LabelNeutral.
func (f *LockFSM) Observe(detected PoseLabel, p LockParams) PoseLabel {
	now := f.clock.Now()
	if detected == LabelNone {
		detected = LabelNeutral
	}

	switch f.phase {
	case LockIdle:
		if detected != LabelNeutral && !now.Before(f.cooldownUntil) {
			f.phase = LockCandidate
			f.candidateLabel = detected
			f.candidateSince = now
			f.lastCandidate = now
		}

	case LockCandidate:
		switch detected {
		case f.candidateLabel:
			f.lastCandidate = now
			if now.Sub(f.candidateSince) >= p.Dwell {
				f.phase = LockLocked
				f.lockedLabel = f.candidateLabel
				f.lockedSince = now
				f.disagreeSince = time.Time{}
				f.candidateLabel = LabelNone
			}
		case LabelNeutral:
			// Brief dropouts are tolerated; dwell keeps accumulating.
			if now.Sub(f.lastCandidate) > p.Grace {
				f.phase = LockIdle
				f.candidateLabel = LabelNone
			}
		default:
			// A different pose restarts the dwell; partial dwell is
			// never carried between candidates.
			f.candidateLabel = detected
			f.candidateSince = now
			f.lastCandidate = now
		}

	case LockLocked:
		if detected == f.lockedLabel {
			f.disagreeSince = time.Time{}
			break
		}
		if now.Sub(f.lockedSince) < p.MinShow {
			break // Minimum-show holds the lock through any disagreement.
		}
		// The grace window is additional to minimum-show: disagreement
		// only starts counting once the lock is old enough to release.
		if f.disagreeSince.IsZero() {
			f.disagreeSince = now
		}
		if now.Sub(f.disagreeSince) >= p.Grace {
			f.phase = LockCooldown
			f.lockedLabel = LabelNone
			f.cooldownUntil = now.Add(p.Cooldown)
		}

	case LockCooldown:
		// Detections are ignored entirely until the cooldown elapses.
		if !now.Before(f.cooldownUntil) {
			f.phase = LockIdle
		}
	}

	return f.Locked()
}

// Locked returns the current stabilized label: the locked label while in the
// locked phase, LabelNone otherwise.
func (f *LockFSM) Locked() PoseLabel {
	if f.phase == LockLocked {
		return f.lockedLabel
	}
	return LabelNone
}

// Phase returns the current FSM phase.
func (f *LockFSM) Phase() LockPhase {
	return f.phase
}

// LockedSince returns when the current lock was acquired; zero when not
// locked.
func (f *LockFSM) LockedSince() time.Time {
	if f.phase != LockLocked {
		return time.Time{}
	}
	return f.lockedSince
}
