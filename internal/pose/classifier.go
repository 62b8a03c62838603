package pose

import (
	"math"

	"github.com/lumenfield/mirrorwall/internal/config"
)

// PoseLabel is a discrete named body posture. The zero value LabelNone means
// "no pose" and is only ever produced by the lock state machine; the
// classifier itself degrades to LabelNeutral.
type PoseLabel string

const (
	// LabelNone is the lock FSM's "nothing locked" output. Never a
	// classifier result and never a locked label.
	LabelNone PoseLabel = ""

	// LabelNeutral is the classifier's default when no rule matches or the
	// skeleton is too low-confidence to classify.
	LabelNeutral PoseLabel = "neutral"

	// LabelStar is a full-body spread: both arms raised and out, legs apart.
	LabelStar PoseLabel = "star"

	// LabelArmsUp is both wrists raised above the head.
	LabelArmsUp PoseLabel = "arms_up"

	// LabelTPose is both arms extended horizontally at shoulder height.
	LabelTPose PoseLabel = "t_pose"

	// LabelHandsOnHips is both wrists resting at the hips.
	LabelHandsOnHips PoseLabel = "hands_on_hips"
)

// Labels lists every non-neutral pose the classifier can produce, in rule
// priority order.
var Labels = []PoseLabel{LabelStar, LabelArmsUp, LabelTPose, LabelHandsOnHips}

// ClassifierParams holds the geometric rule thresholds. All ratios are in
// shoulder-width units so rules are scale-invariant. Thresholds are tuning
// values, not constants: the installation operators adjust them per venue.
type ClassifierParams struct {
	MinJointConfidence float64

	// arms_up: wrists must be above the nose by this margin.
	ArmsUpWristMargin float64

	// star: horizontal wrist offset from the shoulder, and ankle spread
	// relative to hip width.
	StarWristSpreadRatio float64
	StarLegSpreadRatio   float64

	// t_pose: minimum elbow angle (degrees) for a straight arm, and the
	// vertical band around shoulder height the wrists must stay inside.
	TPoseMinElbowAngle     float64
	TPoseVerticalBandRatio float64

	// hands_on_hips: maximum wrist-to-hip distance.
	HandsOnHipsRadiusRatio float64
}

// ClassifierParamsFromTuning extracts classifier thresholds from the live
// tuning config.
func ClassifierParamsFromTuning(t *config.Tuning) ClassifierParams {
	return ClassifierParams{
		MinJointConfidence:     t.GetMinJointConfidence(),
		ArmsUpWristMargin:      t.GetArmsUpWristMargin(),
		StarWristSpreadRatio:   t.GetStarWristSpreadRatio(),
		StarLegSpreadRatio:     t.GetStarLegSpreadRatio(),
		TPoseMinElbowAngle:     t.GetTPoseMinElbowAngleDeg(),
		TPoseVerticalBandRatio: t.GetTPoseVerticalBandRatio(),
		HandsOnHipsRadiusRatio: t.GetHandsOnHipsRadiusRatio(),
	}
}

// requiredJoints must all be confidently observed before any rule runs.
// Rules that need hips or ankles declare those separately and are skipped
// (not failed to neutral) when their extras are missing.
var requiredJoints = []JointName{Nose, LeftShoulder, RightShoulder, LeftWrist, RightWrist}

type rule struct {
	label  PoseLabel
	extras []JointName
	match  func(s *Skeleton, p ClassifierParams) bool
}

// rules is evaluated in order; the first satisfied rule wins. Distinctive
// full-body poses come first so that a loose common rule cannot mask them:
// a star also raises both wrists, so star must be tested before arms_up.
var rules = []rule{
	{label: LabelStar, extras: []JointName{LeftHip, RightHip, LeftAnkle, RightAnkle}, match: matchStar},
	{label: LabelArmsUp, match: matchArmsUp},
	{label: LabelTPose, extras: []JointName{LeftElbow, RightElbow}, match: matchTPose},
	{label: LabelHandsOnHips, extras: []JointName{LeftHip, RightHip}, match: matchHandsOnHips},
}

// Classify maps one skeleton to a pose label. Pure function: no hidden
// state, safe to call every frame for every slot. Returns LabelNeutral
// immediately when any required joint is below the confidence threshold.
func Classify(s *Skeleton, p ClassifierParams) PoseLabel {
	for _, name := range requiredJoints {
		if _, ok := s.Joint(name, p.MinJointConfidence); !ok {
			return LabelNeutral
		}
	}
	if s.ShoulderWidth(p.MinJointConfidence) <= 0 {
		return LabelNeutral
	}

	for _, r := range rules {
		if !hasJoints(s, r.extras, p.MinJointConfidence) {
			continue
		}
		if r.match(s, p) {
			return r.label
		}
	}
	return LabelNeutral
}

func hasJoints(s *Skeleton, names []JointName, minConfidence float64) bool {
	for _, name := range names {
		if _, ok := s.Joint(name, minConfidence); !ok {
			return false
		}
	}
	return true
}

// matchArmsUp: both wrists above the nose. Screen Y grows downward, so
// "above" is a smaller Y.
func matchArmsUp(s *Skeleton, p ClassifierParams) bool {
	sw := s.ShoulderWidth(p.MinJointConfidence)
	nose, _ := s.Joint(Nose, p.MinJointConfidence)
	lw, _ := s.Joint(LeftWrist, p.MinJointConfidence)
	rw, _ := s.Joint(RightWrist, p.MinJointConfidence)
	margin := p.ArmsUpWristMargin * sw
	return lw.Y < nose.Y-margin && rw.Y < nose.Y-margin
}

// matchStar: arms_up geometry plus wrists spread outward past the shoulders
// and ankles spread wider than the hips.
func matchStar(s *Skeleton, p ClassifierParams) bool {
	if !matchArmsUp(s, p) {
		return false
	}
	sw := s.ShoulderWidth(p.MinJointConfidence)
	ls, _ := s.Joint(LeftShoulder, p.MinJointConfidence)
	rs, _ := s.Joint(RightShoulder, p.MinJointConfidence)
	lw, _ := s.Joint(LeftWrist, p.MinJointConfidence)
	rw, _ := s.Joint(RightWrist, p.MinJointConfidence)

	spread := p.StarWristSpreadRatio * sw
	// Left/right here are the subject's, which mirror on screen; compare
	// each wrist against its own shoulder's outward direction instead.
	outward := func(wrist, own, other Joint) bool {
		dir := own.X - other.X // Points away from the body midline.
		if dir == 0 {
			return false
		}
		return (wrist.X-own.X)*sign(dir) > spread
	}
	if !outward(lw, ls, rs) || !outward(rw, rs, ls) {
		return false
	}

	lh, _ := s.Joint(LeftHip, p.MinJointConfidence)
	rh, _ := s.Joint(RightHip, p.MinJointConfidence)
	la, _ := s.Joint(LeftAnkle, p.MinJointConfidence)
	ra, _ := s.Joint(RightAnkle, p.MinJointConfidence)
	hipWidth := math.Abs(lh.X - rh.X)
	if hipWidth == 0 {
		return false
	}
	return math.Abs(la.X-ra.X) > p.StarLegSpreadRatio*hipWidth
}

// matchTPose: wrists level with the shoulders (within a vertical band) with
// straight arms (open elbow angle).
func matchTPose(s *Skeleton, p ClassifierParams) bool {
	sw := s.ShoulderWidth(p.MinJointConfidence)
	band := p.TPoseVerticalBandRatio * sw

	level := func(wrist, shoulder Joint) bool {
		return math.Abs(wrist.Y-shoulder.Y) < band
	}
	ls, _ := s.Joint(LeftShoulder, p.MinJointConfidence)
	rs, _ := s.Joint(RightShoulder, p.MinJointConfidence)
	lw, _ := s.Joint(LeftWrist, p.MinJointConfidence)
	rw, _ := s.Joint(RightWrist, p.MinJointConfidence)
	if !level(lw, ls) || !level(rw, rs) {
		return false
	}

	le, _ := s.Joint(LeftElbow, p.MinJointConfidence)
	re, _ := s.Joint(RightElbow, p.MinJointConfidence)
	return angleAt(ls, le, lw) >= p.TPoseMinElbowAngle &&
		angleAt(rs, re, rw) >= p.TPoseMinElbowAngle
}

// matchHandsOnHips: each wrist within a small radius of its own-side hip.
func matchHandsOnHips(s *Skeleton, p ClassifierParams) bool {
	sw := s.ShoulderWidth(p.MinJointConfidence)
	radius := p.HandsOnHipsRadiusRatio * sw

	lw, _ := s.Joint(LeftWrist, p.MinJointConfidence)
	rw, _ := s.Joint(RightWrist, p.MinJointConfidence)
	lh, _ := s.Joint(LeftHip, p.MinJointConfidence)
	rh, _ := s.Joint(RightHip, p.MinJointConfidence)

	return dist(lw.X, lw.Y, lh.X, lh.Y) < radius &&
		dist(rw.X, rw.Y, rh.X, rh.Y) < radius
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
