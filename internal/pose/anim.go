package pose

import (
	"time"

	"github.com/lumenfield/mirrorwall/internal/config"
	"github.com/lumenfield/mirrorwall/internal/timeutil"
)

// AnimPhase is the overlay animation state.
type AnimPhase string

const (
	AnimHidden   AnimPhase = "hidden"
	AnimEntering AnimPhase = "entering"
	AnimSteady   AnimPhase = "steady"
	AnimExiting  AnimPhase = "exiting"
)

// AnimParams holds animation timing and scale endpoints.
type AnimParams struct {
	EnterDuration  time.Duration
	ExitDuration   time.Duration
	EnterFromScale float64 // Pop-in start scale
	ExitToScale    float64 // Pop-out end scale
}

// AnimParamsFromTuning extracts animation parameters from the live tuning
// config.
func AnimParamsFromTuning(t *config.Tuning) AnimParams {
	return AnimParams{
		EnterDuration:  t.GetEnterDuration(),
		ExitDuration:   t.GetExitDuration(),
		EnterFromScale: t.GetEnterFromScale(),
		ExitToScale:    t.GetExitToScale(),
	}
}

// Animator produces the per-slot overlay scale for enter/steady/exit
// transitions. The scale is recomputed from elapsed wall-clock time on every
// read, never accumulated per frame, so the animation is idempotent under
// frame-rate variation.
type Animator struct {
	clock timeutil.Clock

	phase     AnimPhase
	label     PoseLabel // Label currently shown; LabelNone when hidden
	startTime time.Time
	duration  time.Duration
	fromScale float64
	toScale   float64
}

// NewAnimator creates a hidden animator on the given clock.
func NewAnimator(clock timeutil.Clock) *Animator {
	return &Animator{clock: clock, phase: AnimHidden}
}

// Observe consumes the lock FSM's output for this frame and advances the
// animation state.
func (a *Animator) Observe(locked PoseLabel, p AnimParams) {
	now := a.clock.Now()
	a.advance(now)

	switch {
	case locked != LabelNone && (a.phase == AnimHidden || a.phase == AnimExiting || a.label != locked):
		// A new (or replacement) pose appears: pop in from the
		// configured start scale regardless of where the exit left off.
		a.phase = AnimEntering
		a.label = locked
		a.startTime = now
		a.duration = p.EnterDuration
		a.fromScale = p.EnterFromScale
		a.toScale = 1.0

	case locked == LabelNone && (a.phase == AnimEntering || a.phase == AnimSteady):
		a.phase = AnimExiting
		a.startTime = now
		a.fromScale = a.scaleAt(now) // Exit from wherever the enter got to
		a.duration = p.ExitDuration
		a.toScale = p.ExitToScale
	}
}

// advance completes any finished transition.
func (a *Animator) advance(now time.Time) {
	switch a.phase {
	case AnimEntering:
		if now.Sub(a.startTime) >= a.duration {
			a.phase = AnimSteady
		}
	case AnimExiting:
		if now.Sub(a.startTime) >= a.duration {
			a.phase = AnimHidden
			a.label = LabelNone // Clear the displayed image reference
		}
	}
}

// Scale returns the current overlay scale factor. Always within the bounds
// set by the configured pop-in/pop-out endpoints and 1.0.
func (a *Animator) Scale() float64 {
	return a.scaleAt(a.clock.Now())
}

func (a *Animator) scaleAt(now time.Time) float64 {
	switch a.phase {
	case AnimSteady:
		return 1.0
	case AnimHidden:
		return a.toScale
	}

	t := 1.0
	if a.duration > 0 {
		t = float64(now.Sub(a.startTime)) / float64(a.duration)
	}
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	if a.phase == AnimEntering {
		t = easeOutCubic(t)
	} else {
		t = easeInCubic(t)
	}
	return a.fromScale + (a.toScale-a.fromScale)*t
}

// Phase returns the current animation phase.
func (a *Animator) Phase() AnimPhase {
	return a.phase
}

// Label returns the label currently shown, or LabelNone when hidden.
func (a *Animator) Label() PoseLabel {
	return a.label
}

func easeOutCubic(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

func easeInCubic(t float64) float64 {
	return t * t * t
}
