package pose

import "github.com/lumenfield/mirrorwall/internal/config"

// SmootherParams holds the EMA coefficients. Higher alpha keeps more of the
// previous value: smoother output, more lag.
type SmootherParams struct {
	AlphaPoint  float64 // Joint positions
	AlphaScalar float64 // Derived scalars such as shoulder width
}

// SmootherParamsFromTuning extracts smoothing coefficients from the live
// tuning config.
func SmootherParamsFromTuning(t *config.Tuning) SmootherParams {
	return SmootherParams{
		AlphaPoint:  t.GetSmoothingAlphaPoint(),
		AlphaScalar: t.GetSmoothingAlphaScalar(),
	}
}

type emaPoint struct {
	x, y   float64
	seeded bool
}

type emaScalar struct {
	v      float64
	seeded bool
}

// ScalarName identifies a smoothed derived scalar.
type ScalarName string

const (
	// ScalarShoulderWidth is the smoothed shoulder distance used to size
	// overlays.
	ScalarShoulderWidth ScalarName = "shoulder_width"
)

// Smoother keeps one EMA accumulator per joint and per named scalar for a
// single person slot. History never crosses slot boundaries: a slot handed a
// different physical person keeps its accumulators, which is a known source
// of a brief visible transient after an identity reassignment.
type Smoother struct {
	points  [JointCount]emaPoint
	scalars map[ScalarName]emaScalar
}

// NewSmoother creates an empty smoother; every accumulator seeds itself from
// the first raw value it sees.
func NewSmoother() *Smoother {
	return &Smoother{scalars: make(map[ScalarName]emaScalar)}
}

// SmoothPoint folds a raw joint observation into the slot's EMA for that
// joint and returns the smoothed position.
func (sm *Smoother) SmoothPoint(name JointName, rawX, rawY float64, p SmootherParams) (x, y float64) {
	acc := sm.points[name]
	if !acc.seeded {
		acc = emaPoint{x: rawX, y: rawY, seeded: true}
	} else {
		acc.x = p.AlphaPoint*acc.x + (1-p.AlphaPoint)*rawX
		acc.y = p.AlphaPoint*acc.y + (1-p.AlphaPoint)*rawY
	}
	sm.points[name] = acc
	return acc.x, acc.y
}

// SmoothScalar folds a raw scalar into the named EMA and returns the
// smoothed value.
func (sm *Smoother) SmoothScalar(name ScalarName, raw float64, p SmootherParams) float64 {
	acc := sm.scalars[name]
	if !acc.seeded {
		acc = emaScalar{v: raw, seeded: true}
	} else {
		acc.v = p.AlphaScalar*acc.v + (1-p.AlphaScalar)*raw
	}
	sm.scalars[name] = acc
	return acc.v
}

// SmoothSkeleton returns a copy of the skeleton with every observed joint
// position smoothed. Confidences pass through untouched; unobserved joints
// are left alone so they stay unobserved.
func (sm *Smoother) SmoothSkeleton(s *Skeleton, p SmootherParams) Skeleton {
	out := *s
	for name := JointName(0); name < JointCount; name++ {
		j := s.Joints[name]
		if j.Confidence == 0 {
			continue
		}
		x, y := sm.SmoothPoint(name, j.X, j.Y, p)
		out.Joints[name].X = x
		out.Joints[name].Y = y
	}
	return out
}
