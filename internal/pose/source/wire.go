// Package source delivers skeleton frames from the external body-pose
// detector. The detector is a black box that streams one JSON document per
// video frame; this package parses the wire format, keeps only the most
// recent frame, and reconnects when the detector drops the connection.
package source

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lumenfield/mirrorwall/internal/pose"
)

// wireFrame is the detector's JSON wire format. Joint keys are the detector's
// string names ("left_shoulder", ...); unknown names are ignored so detector
// upgrades that add keypoints do not break the pipeline.
type wireFrame struct {
	CapturedAtMs int64          `json:"captured_at_ms"`
	Skeletons    []wireSkeleton `json:"skeletons"`
}

type wireSkeleton struct {
	Joints map[string]pose.Joint `json:"joints"`
}

// ParseFrame decodes one wire document into a pose.Frame. A frame with no
// skeletons is valid (empty stage).
func ParseFrame(data []byte) (pose.Frame, error) {
	var wf wireFrame
	if err := json.Unmarshal(data, &wf); err != nil {
		return pose.Frame{}, fmt.Errorf("failed to parse skeleton frame: %w", err)
	}

	frame := pose.Frame{
		Skeletons:  make([]pose.Skeleton, 0, len(wf.Skeletons)),
		CapturedAt: time.UnixMilli(wf.CapturedAtMs),
	}
	for _, ws := range wf.Skeletons {
		var sk pose.Skeleton
		for name, joint := range ws.Joints {
			jn, ok := pose.ParseJointName(name)
			if !ok {
				continue
			}
			sk.Joints[jn] = joint
		}
		frame.Skeletons = append(frame.Skeletons, sk)
	}
	return frame, nil
}

// EncodeFrame is the inverse of ParseFrame; the simulator and tests use it.
func EncodeFrame(frame pose.Frame) ([]byte, error) {
	wf := wireFrame{
		CapturedAtMs: frame.CapturedAt.UnixMilli(),
		Skeletons:    make([]wireSkeleton, 0, len(frame.Skeletons)),
	}
	for _, sk := range frame.Skeletons {
		ws := wireSkeleton{Joints: make(map[string]pose.Joint)}
		for jn := pose.JointName(0); jn < pose.JointCount; jn++ {
			if sk.Joints[jn].Confidence > 0 {
				ws.Joints[jn.String()] = sk.Joints[jn]
			}
		}
		wf.Skeletons = append(wf.Skeletons, ws)
	}
	return json.Marshal(wf)
}
