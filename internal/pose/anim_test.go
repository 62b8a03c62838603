package pose

import (
	"testing"
	"time"

	"github.com/lumenfield/mirrorwall/internal/timeutil"
)

func testAnimParams() AnimParams {
	return AnimParams{
		EnterDuration:  440 * time.Millisecond,
		ExitDuration:   220 * time.Millisecond,
		EnterFromScale: 0.58,
		ExitToScale:    0.76,
	}
}

func newTestAnimator() (*Animator, *timeutil.MockClock) {
	clock := timeutil.NewMockClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	return NewAnimator(clock), clock
}

func TestAnimatorEnterEasing(t *testing.T) {
	p := testAnimParams()
	a, clock := newTestAnimator()

	a.Observe(LabelArmsUp, p)
	if a.Phase() != AnimEntering {
		t.Fatalf("Phase = %q, want entering", a.Phase())
	}
	if got := a.Scale(); got != p.EnterFromScale {
		t.Errorf("scale at t=0 = %v, want %v", got, p.EnterFromScale)
	}

	// Ease-out: more than half the travel happens in the first half of the
	// transition.
	clock.Advance(p.EnterDuration / 2)
	mid := a.Scale()
	linear := p.EnterFromScale + (1.0-p.EnterFromScale)*0.5
	if mid <= linear {
		t.Errorf("midpoint scale = %v, want > linear %v (ease-out)", mid, linear)
	}
	if mid >= 1.0 {
		t.Errorf("midpoint scale = %v, want < 1.0", mid)
	}

	clock.Advance(p.EnterDuration / 2)
	if got := a.Scale(); got != 1.0 {
		t.Errorf("scale at end of enter = %v, want 1.0", got)
	}
	a.Observe(LabelArmsUp, p)
	if a.Phase() != AnimSteady {
		t.Errorf("Phase = %q, want steady after the enter completes", a.Phase())
	}
}

func TestAnimatorScaleIsRecomputedNotAccumulated(t *testing.T) {
	p := testAnimParams()
	a, clock := newTestAnimator()
	a.Observe(LabelArmsUp, p)

	// Reading the scale many times without advancing the clock returns the
	// same value; the scale depends only on elapsed time.
	clock.Advance(100 * time.Millisecond)
	first := a.Scale()
	for i := 0; i < 5; i++ {
		if got := a.Scale(); got != first {
			t.Fatalf("read %d: Scale = %v, want stable %v", i, got, first)
		}
	}

	// One big jump lands exactly where many small steps would.
	b, clockB := newTestAnimator()
	b.Observe(LabelArmsUp, p)
	clockB.Advance(100 * time.Millisecond)
	if got := b.Scale(); got != first {
		t.Errorf("single 100ms jump = %v, want %v", got, first)
	}
}

func TestAnimatorExitFromPartialEnter(t *testing.T) {
	p := testAnimParams()
	a, clock := newTestAnimator()

	a.Observe(LabelArmsUp, p)
	clock.Advance(p.EnterDuration / 4)
	partial := a.Scale()

	// Lock drops mid-enter: exit begins from the scale the enter reached,
	// not from 1.0.
	a.Observe(LabelNone, p)
	if a.Phase() != AnimExiting {
		t.Fatalf("Phase = %q, want exiting", a.Phase())
	}
	if got := a.Scale(); got != partial {
		t.Errorf("exit start scale = %v, want %v (no snap)", got, partial)
	}

	clock.Advance(p.ExitDuration)
	a.Observe(LabelNone, p)
	if a.Phase() != AnimHidden {
		t.Errorf("Phase = %q, want hidden after exit completes", a.Phase())
	}
	if a.Label() != LabelNone {
		t.Errorf("Label = %q, want cleared once hidden", a.Label())
	}
}

func TestAnimatorReplacementLabelReenters(t *testing.T) {
	p := testAnimParams()
	a, clock := newTestAnimator()

	a.Observe(LabelArmsUp, p)
	clock.Advance(p.EnterDuration)
	a.Observe(LabelArmsUp, p) // steady

	// A different locked label pops in fresh from the enter scale.
	a.Observe(LabelStar, p)
	if a.Phase() != AnimEntering || a.Label() != LabelStar {
		t.Errorf("Phase = %q label = %q, want entering star", a.Phase(), a.Label())
	}
	if got := a.Scale(); got != p.EnterFromScale {
		t.Errorf("replacement enter scale = %v, want %v", got, p.EnterFromScale)
	}
}

func TestAnimatorReenterDuringExit(t *testing.T) {
	p := testAnimParams()
	a, clock := newTestAnimator()

	a.Observe(LabelArmsUp, p)
	clock.Advance(p.EnterDuration)
	a.Observe(LabelNone, p) // exiting
	clock.Advance(p.ExitDuration / 2)

	// The pose locks again mid-exit: a fresh enter starts from the
	// configured pop-in scale.
	a.Observe(LabelArmsUp, p)
	if a.Phase() != AnimEntering {
		t.Errorf("Phase = %q, want entering", a.Phase())
	}
	if got := a.Scale(); got != p.EnterFromScale {
		t.Errorf("re-enter scale = %v, want %v", got, p.EnterFromScale)
	}
}

func TestAnimatorExitEasing(t *testing.T) {
	p := testAnimParams()
	a, clock := newTestAnimator()

	a.Observe(LabelArmsUp, p)
	clock.Advance(p.EnterDuration)
	a.Observe(LabelNone, p)

	// Ease-in: less than half the travel happens in the first half.
	clock.Advance(p.ExitDuration / 2)
	mid := a.Scale()
	linear := 1.0 + (p.ExitToScale-1.0)*0.5
	if mid <= linear {
		t.Errorf("midpoint scale = %v, want > linear %v (ease-in holds near start)", mid, linear)
	}

	clock.Advance(p.ExitDuration / 2)
	if got := a.Scale(); got != p.ExitToScale {
		t.Errorf("scale at end of exit = %v, want %v", got, p.ExitToScale)
	}
}
