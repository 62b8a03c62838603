package pose

import (
	"testing"
	"time"

	"github.com/lumenfield/mirrorwall/internal/timeutil"
)

func testLockParams() LockParams {
	return LockParams{
		Dwell:    400 * time.Millisecond,
		MinShow:  1 * time.Second,
		Grace:    250 * time.Millisecond,
		Cooldown: 400 * time.Millisecond,
	}
}

func newTestFSM() (*LockFSM, *timeutil.MockClock) {
	clock := timeutil.NewMockClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	return NewLockFSM(clock), clock
}

// Drive the FSM at a fixed frame interval for a span, feeding the same label.
func drive(f *LockFSM, clock *timeutil.MockClock, label PoseLabel, span, step time.Duration, p LockParams) PoseLabel {
	out := f.Locked()
	for elapsed := time.Duration(0); elapsed < span; elapsed += step {
		clock.Advance(step)
		out = f.Observe(label, p)
	}
	return out
}

func TestLockRequiresFullDwell(t *testing.T) {
	p := testLockParams()

	f, clock := newTestFSM()
	f.Observe(LabelArmsUp, p)
	if got := drive(f, clock, LabelArmsUp, p.Dwell-50*time.Millisecond, 25*time.Millisecond, p); got != LabelNone {
		t.Errorf("before dwell elapsed: Locked = %q, want none", got)
	}
	if f.Phase() != LockCandidate {
		t.Errorf("Phase = %q, want candidate", f.Phase())
	}

	clock.Advance(50 * time.Millisecond)
	if got := f.Observe(LabelArmsUp, p); got != LabelArmsUp {
		t.Errorf("after dwell elapsed: Locked = %q, want arms_up", got)
	}
}

func TestLockFiresExactlyOnce(t *testing.T) {
	p := testLockParams()
	f, clock := newTestFSM()

	transitions := 0
	prev := LabelNone
	f.Observe(LabelArmsUp, p)
	for i := 0; i < 40; i++ { // 2s at 50ms steps
		clock.Advance(50 * time.Millisecond)
		got := f.Observe(LabelArmsUp, p)
		if got != prev {
			transitions++
			prev = got
		}
	}
	if transitions != 1 || prev != LabelArmsUp {
		t.Errorf("transitions = %d (final %q), want a single none->arms_up flip", transitions, prev)
	}
}

func TestCandidateToleratesDropoutWithinGrace(t *testing.T) {
	p := testLockParams()
	f, clock := newTestFSM()

	// 200ms of star, a 200ms dropout (within grace), then more star. The
	// dwell keeps accumulating through the dropout, so the lock lands at
	// 400ms total rather than restarting.
	f.Observe(LabelStar, p)
	drive(f, clock, LabelStar, 200*time.Millisecond, 50*time.Millisecond, p)
	drive(f, clock, LabelNeutral, 200*time.Millisecond, 50*time.Millisecond, p)
	if f.Phase() != LockCandidate {
		t.Fatalf("Phase after tolerated dropout = %q, want candidate", f.Phase())
	}
	if got := f.Observe(LabelStar, p); got != LabelStar {
		t.Errorf("Locked = %q, want star (dwell accumulated across dropout)", got)
	}
}

func TestCandidateAbandonedAfterGrace(t *testing.T) {
	p := testLockParams()
	f, clock := newTestFSM()

	f.Observe(LabelStar, p)
	drive(f, clock, LabelStar, 200*time.Millisecond, 50*time.Millisecond, p)
	drive(f, clock, LabelNeutral, p.Grace+100*time.Millisecond, 50*time.Millisecond, p)
	if f.Phase() != LockIdle {
		t.Errorf("Phase = %q, want idle after dropout beyond grace", f.Phase())
	}

	// Partial dwell must not carry over: a fresh candidate needs a full
	// dwell again.
	f.Observe(LabelStar, p)
	if got := drive(f, clock, LabelStar, p.Dwell-50*time.Millisecond, 50*time.Millisecond, p); got != LabelNone {
		t.Errorf("Locked = %q, want none: partial dwell must not carry over", got)
	}
}

func TestCandidateSwitchRestartsDwell(t *testing.T) {
	p := testLockParams()
	f, clock := newTestFSM()

	f.Observe(LabelStar, p)
	drive(f, clock, LabelStar, 300*time.Millisecond, 50*time.Millisecond, p)
	// Switch to t_pose at 300ms; 200ms later star's dwell would have
	// completed, but t_pose started fresh.
	drive(f, clock, LabelTPose, 200*time.Millisecond, 50*time.Millisecond, p)
	if got := f.Locked(); got != LabelNone {
		t.Errorf("Locked = %q, want none 200ms into the new candidate", got)
	}
	if got := drive(f, clock, LabelTPose, 250*time.Millisecond, 50*time.Millisecond, p); got != LabelTPose {
		t.Errorf("Locked = %q, want t_pose after its own full dwell", got)
	}
}

func TestMinimumShowHoldsThroughDisagreement(t *testing.T) {
	p := testLockParams()
	f, clock := newTestFSM()

	f.Observe(LabelArmsUp, p)
	drive(f, clock, LabelArmsUp, p.Dwell, 50*time.Millisecond, p)
	if f.Locked() != LabelArmsUp {
		t.Fatalf("setup: expected locked arms_up, got %q", f.Locked())
	}

	// Detection goes neutral immediately. The lock must survive the whole
	// minimum-show window plus the grace window.
	hold := p.MinShow + p.Grace - 50*time.Millisecond
	if got := drive(f, clock, LabelNeutral, hold, 50*time.Millisecond, p); got != LabelArmsUp {
		t.Errorf("Locked = %q, want arms_up held through min-show + grace", got)
	}
	clock.Advance(50 * time.Millisecond)
	if got := f.Observe(LabelNeutral, p); got != LabelNone {
		t.Errorf("Locked = %q, want unlocked once grace expires", got)
	}
	if f.Phase() != LockCooldown {
		t.Errorf("Phase = %q, want cooldown after unlock", f.Phase())
	}
}

func TestLockedAgreementClearsDisagreement(t *testing.T) {
	p := testLockParams()
	f, clock := newTestFSM()

	f.Observe(LabelArmsUp, p)
	drive(f, clock, LabelArmsUp, p.Dwell, 50*time.Millisecond, p)
	// Past min-show, start disagreeing, then agree again before grace runs
	// out: the disagreement timer must reset completely.
	drive(f, clock, LabelArmsUp, p.MinShow, 50*time.Millisecond, p)
	drive(f, clock, LabelNeutral, 200*time.Millisecond, 50*time.Millisecond, p)
	f.Observe(LabelArmsUp, p)
	if got := drive(f, clock, LabelNeutral, 200*time.Millisecond, 50*time.Millisecond, p); got != LabelArmsUp {
		t.Errorf("Locked = %q, want arms_up: re-agreement reset the grace timer", got)
	}
}

func TestLockedLabelNeverSwitchesDirectly(t *testing.T) {
	p := testLockParams()
	f, clock := newTestFSM()

	f.Observe(LabelArmsUp, p)
	drive(f, clock, LabelArmsUp, p.Dwell, 50*time.Millisecond, p)

	// A solid star detection for the whole min-show + grace span: the FSM
	// must first unlock into cooldown, never jump arms_up -> star.
	got := drive(f, clock, LabelStar, p.MinShow+p.Grace+50*time.Millisecond, 50*time.Millisecond, p)
	if got != LabelNone {
		t.Errorf("Locked = %q, want none: a locked label only changes via cooldown", got)
	}
	if f.Phase() != LockCooldown {
		t.Errorf("Phase = %q, want cooldown", f.Phase())
	}
}

func TestCooldownIgnoresDetections(t *testing.T) {
	p := testLockParams()
	f, clock := newTestFSM()

	// Lock, then unlock into cooldown.
	f.Observe(LabelArmsUp, p)
	drive(f, clock, LabelArmsUp, p.Dwell, 50*time.Millisecond, p)
	drive(f, clock, LabelNeutral, p.MinShow+p.Grace+50*time.Millisecond, 50*time.Millisecond, p)
	if f.Phase() != LockCooldown {
		t.Fatalf("setup: Phase = %q, want cooldown", f.Phase())
	}

	// Solid star through most of the cooldown: no candidate may form.
	drive(f, clock, LabelStar, p.Cooldown-100*time.Millisecond, 50*time.Millisecond, p)
	if f.Phase() != LockCooldown {
		t.Errorf("Phase = %q, want still cooldown", f.Phase())
	}

	// Once cooldown expires the same detection starts a fresh candidate
	// needing a full dwell.
	drive(f, clock, LabelStar, 150*time.Millisecond, 50*time.Millisecond, p)
	if f.Phase() != LockCandidate {
		t.Errorf("Phase = %q, want candidate after cooldown", f.Phase())
	}
	if got := drive(f, clock, LabelStar, p.Dwell, 50*time.Millisecond, p); got != LabelStar {
		t.Errorf("Locked = %q, want star after full dwell post-cooldown", got)
	}
}

func TestObserveTreatsNoneAsNeutral(t *testing.T) {
	p := testLockParams()
	f, _ := newTestFSM()

	if got := f.Observe(LabelNone, p); got != LabelNone {
		t.Errorf("Observe(none) = %q, want none", got)
	}
	if f.Phase() != LockIdle {
		t.Errorf("Phase = %q, want idle: none never becomes a candidate", f.Phase())
	}
}

func TestLockedSince(t *testing.T) {
	p := testLockParams()
	f, clock := newTestFSM()

	if !f.LockedSince().IsZero() {
		t.Errorf("LockedSince before lock = %v, want zero", f.LockedSince())
	}
	f.Observe(LabelArmsUp, p)
	drive(f, clock, LabelArmsUp, p.Dwell, 50*time.Millisecond, p)
	lockAt := clock.Now()
	if got := f.LockedSince(); !got.Equal(lockAt) {
		t.Errorf("LockedSince = %v, want %v", got, lockAt)
	}
}
