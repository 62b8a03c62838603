// Package pose turns the unstable per-frame skeleton stream from an external
// body-pose detector into stable, per-person locked pose labels and overlay
// animation scales. The pipeline runs once per rendered frame:
// identity matching, temporal smoothing, geometric classification, the
// anti-flicker lock state machine, and the overlay animation controller.
package pose

import (
	"fmt"
	"math"
	"time"
)

// JointName identifies one of the fixed set of detector keypoints.
// The set matches the usual 17-keypoint body model; using a closed enum
// instead of free-form string keys gives compile-time checking of
// required-joint access.
type JointName int

const (
	Nose JointName = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle

	// JointCount is the number of named joints in a skeleton.
	JointCount
)

var jointNames = [JointCount]string{
	"nose",
	"left_eye", "right_eye",
	"left_ear", "right_ear",
	"left_shoulder", "right_shoulder",
	"left_elbow", "right_elbow",
	"left_wrist", "right_wrist",
	"left_hip", "right_hip",
	"left_knee", "right_knee",
	"left_ankle", "right_ankle",
}

// String returns the wire name of the joint, e.g. "left_shoulder".
func (j JointName) String() string {
	if j < 0 || j >= JointCount {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// ParseJointName maps a wire name back to a JointName.
func ParseJointName(s string) (JointName, bool) {
	for i, name := range jointNames {
		if name == s {
			return JointName(i), true
		}
	}
	return 0, false
}

// AnchorJoints are the stable joints used for frame-to-frame identity
// matching. Extremities (wrists, ankles) move too fast to anchor on.
var AnchorJoints = []JointName{Nose, LeftShoulder, RightShoulder, LeftHip, RightHip}

// Joint is one named 2D observation. X and Y are screen-normalized to [0,1];
// Confidence is the detector's score in [0,1]. A zero-confidence joint is
// treated as unobserved.
type Joint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"c"`
}

// Skeleton is one frame's set of joint observations for one detected person.
// It carries no persistent identity; the detector's ordering is not stable
// across frames.
type Skeleton struct {
	Joints [JointCount]Joint
}

// Joint returns the named joint and whether it was observed at or above the
// given confidence.
func (s *Skeleton) Joint(name JointName, minConfidence float64) (Joint, bool) {
	j := s.Joints[name]
	if j.Confidence < minConfidence || j.Confidence == 0 {
		return Joint{}, false
	}
	return j, true
}

// ShoulderWidth returns the distance between the shoulders, or 0 if either
// shoulder is missing. It is the skeleton's own scale reference: every
// classifier ratio is expressed in shoulder-width units so the rules hold at
// any distance from the camera.
func (s *Skeleton) ShoulderWidth(minConfidence float64) float64 {
	ls, okL := s.Joint(LeftShoulder, minConfidence)
	rs, okR := s.Joint(RightShoulder, minConfidence)
	if !okL || !okR {
		return 0
	}
	return dist(ls.X, ls.Y, rs.X, rs.Y)
}

// Anchor returns the navel-blend anchor point: the shoulder midpoint blended
// toward the hip midpoint by the given weight. Falls back to whichever
// midpoint is observable when the other is missing, and reports ok=false when
// neither is.
func (s *Skeleton) Anchor(blend, minConfidence float64) (x, y float64, ok bool) {
	sx, sy, okS := s.midpoint(LeftShoulder, RightShoulder, minConfidence)
	hx, hy, okH := s.midpoint(LeftHip, RightHip, minConfidence)
	switch {
	case okS && okH:
		return sx + (hx-sx)*blend, sy + (hy-sy)*blend, true
	case okS:
		return sx, sy, true
	case okH:
		return hx, hy, true
	}
	return 0, 0, false
}

func (s *Skeleton) midpoint(a, b JointName, minConfidence float64) (x, y float64, ok bool) {
	ja, okA := s.Joint(a, minConfidence)
	jb, okB := s.Joint(b, minConfidence)
	if !okA || !okB {
		return 0, 0, false
	}
	return (ja.X + jb.X) / 2, (ja.Y + jb.Y) / 2, true
}

// Frame is one delivery from the skeleton source: zero or more skeletons
// observed at the same instant.
type Frame struct {
	Skeletons  []Skeleton
	CapturedAt time.Time
}

func dist(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}

// angleAt returns the interior angle in degrees at vertex b formed by the
// segments b→a and b→c.
func angleAt(a, b, c Joint) float64 {
	v1x, v1y := a.X-b.X, a.Y-b.Y
	v2x, v2y := c.X-b.X, c.Y-b.Y
	n1 := math.Hypot(v1x, v1y)
	n2 := math.Hypot(v2x, v2y)
	if n1 == 0 || n2 == 0 {
		return 0
	}
	cos := (v1x*v2x + v1y*v2y) / (n1 * n2)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}
