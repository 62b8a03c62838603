package pose

// Shared skeleton builders for the package tests. All figures are built in
// screen-normalized coordinates with shoulders 0.12 apart, centered at cx.

func testJoint(x, y float64) Joint {
	return Joint{X: x, Y: y, Confidence: 0.9}
}

// uprightSkeleton is a neutral standing figure centered at cx.
func uprightSkeleton(cx float64) Skeleton {
	var s Skeleton
	s.Joints[Nose] = testJoint(cx, 0.30)
	s.Joints[LeftShoulder] = testJoint(cx+0.06, 0.40)
	s.Joints[RightShoulder] = testJoint(cx-0.06, 0.40)
	s.Joints[LeftElbow] = testJoint(cx+0.09, 0.50)
	s.Joints[RightElbow] = testJoint(cx-0.09, 0.50)
	s.Joints[LeftWrist] = testJoint(cx+0.11, 0.60)
	s.Joints[RightWrist] = testJoint(cx-0.11, 0.60)
	s.Joints[LeftHip] = testJoint(cx+0.04, 0.62)
	s.Joints[RightHip] = testJoint(cx-0.04, 0.62)
	s.Joints[LeftKnee] = testJoint(cx+0.04, 0.78)
	s.Joints[RightKnee] = testJoint(cx-0.04, 0.78)
	s.Joints[LeftAnkle] = testJoint(cx+0.04, 0.93)
	s.Joints[RightAnkle] = testJoint(cx-0.04, 0.93)
	return s
}

// armsUpSkeleton raises both wrists above the nose.
func armsUpSkeleton(cx float64) Skeleton {
	s := uprightSkeleton(cx)
	s.Joints[LeftElbow] = testJoint(cx+0.08, 0.32)
	s.Joints[RightElbow] = testJoint(cx-0.08, 0.32)
	s.Joints[LeftWrist] = testJoint(cx+0.07, 0.18)
	s.Joints[RightWrist] = testJoint(cx-0.07, 0.18)
	return s
}

// starSkeleton raises the arms out wide and spreads the legs.
func starSkeleton(cx float64) Skeleton {
	s := uprightSkeleton(cx)
	s.Joints[LeftElbow] = testJoint(cx+0.12, 0.30)
	s.Joints[RightElbow] = testJoint(cx-0.12, 0.30)
	s.Joints[LeftWrist] = testJoint(cx+0.16, 0.20)
	s.Joints[RightWrist] = testJoint(cx-0.16, 0.20)
	s.Joints[LeftAnkle] = testJoint(cx+0.12, 0.93)
	s.Joints[RightAnkle] = testJoint(cx-0.12, 0.93)
	return s
}

// tPoseSkeleton extends both arms horizontally at shoulder height.
func tPoseSkeleton(cx float64) Skeleton {
	s := uprightSkeleton(cx)
	s.Joints[LeftElbow] = testJoint(cx+0.14, 0.40)
	s.Joints[RightElbow] = testJoint(cx-0.14, 0.40)
	s.Joints[LeftWrist] = testJoint(cx+0.22, 0.40)
	s.Joints[RightWrist] = testJoint(cx-0.22, 0.40)
	return s
}

// handsOnHipsSkeleton rests both wrists at the hips.
func handsOnHipsSkeleton(cx float64) Skeleton {
	s := uprightSkeleton(cx)
	s.Joints[LeftWrist] = testJoint(cx+0.05, 0.61)
	s.Joints[RightWrist] = testJoint(cx-0.05, 0.61)
	return s
}

func defaultClassifierParams() ClassifierParams {
	return ClassifierParams{
		MinJointConfidence:     0.3,
		ArmsUpWristMargin:      0.1,
		StarWristSpreadRatio:   0.5,
		StarLegSpreadRatio:     1.5,
		TPoseMinElbowAngle:     150,
		TPoseVerticalBandRatio: 0.35,
		HandsOnHipsRadiusRatio: 0.45,
	}
}
