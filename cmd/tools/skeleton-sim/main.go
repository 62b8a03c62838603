// Command skeleton-sim is a stand-in detector for dry runs: it serves a
// WebSocket endpoint that streams synthetic skeleton frames cycling through
// the recognizable poses, so the full pipeline can be exercised without a
// camera.
package main

import (
	"flag"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lumenfield/mirrorwall/internal/pose"
	"github.com/lumenfield/mirrorwall/internal/pose/source"
)

var (
	listen  = flag.String("listen", ":8765", "WebSocket listen address")
	fps     = flag.Float64("fps", 30, "Frame rate")
	people  = flag.Int("people", 2, "Number of simulated people")
	holdFor = flag.Duration("hold", 3*time.Second, "How long each pose is held")
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// script is the pose sequence each simulated person cycles through; neutral
// interludes between poses exercise the lock FSM's grace and cooldown paths.
var script = []func(cx float64, t float64) pose.Skeleton{
	neutralSkeleton,
	armsUpSkeleton,
	neutralSkeleton,
	tPoseSkeleton,
	neutralSkeleton,
	starSkeleton,
}

func main() {
	flag.Parse()

	http.HandleFunc("/skeletons", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		log.Printf("client connected: %s", r.RemoteAddr)
		stream(conn)
	})

	log.Printf("Simulating %d people on ws://%s/skeletons", *people, *listen)
	log.Fatal(http.ListenAndServe(*listen, nil))
}

func stream(conn *websocket.Conn) {
	interval := time.Duration(float64(time.Second) / *fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	for now := range ticker.C {
		elapsed := now.Sub(start)
		step := int(elapsed / *holdFor) % len(script)
		t := elapsed.Seconds()

		frame := pose.Frame{CapturedAt: now}
		for i := 0; i < *people; i++ {
			cx := (float64(i) + 0.5) / float64(*people)
			// A little sway keeps the identity tracker honest.
			cx += 0.01 * math.Sin(t+float64(i))
			frame.Skeletons = append(frame.Skeletons, script[step](cx, t))
		}

		data, err := source.EncodeFrame(frame)
		if err != nil {
			log.Printf("encode failed: %v", err)
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("client gone: %v", err)
			return
		}
	}
}

// base builds an upright figure centered at cx with shoulders at y=0.40.
func base(cx float64) pose.Skeleton {
	var s pose.Skeleton
	set := func(j pose.JointName, x, y float64) {
		s.Joints[j] = pose.Joint{X: x, Y: y, Confidence: 0.9}
	}
	set(pose.Nose, cx, 0.30)
	set(pose.LeftShoulder, cx+0.06, 0.40)
	set(pose.RightShoulder, cx-0.06, 0.40)
	set(pose.LeftElbow, cx+0.09, 0.50)
	set(pose.RightElbow, cx-0.09, 0.50)
	set(pose.LeftWrist, cx+0.11, 0.60)
	set(pose.RightWrist, cx-0.11, 0.60)
	set(pose.LeftHip, cx+0.04, 0.62)
	set(pose.RightHip, cx-0.04, 0.62)
	set(pose.LeftKnee, cx+0.04, 0.78)
	set(pose.RightKnee, cx-0.04, 0.78)
	set(pose.LeftAnkle, cx+0.04, 0.93)
	set(pose.RightAnkle, cx-0.04, 0.93)
	return s
}

func neutralSkeleton(cx float64, t float64) pose.Skeleton {
	return base(cx)
}

func armsUpSkeleton(cx float64, t float64) pose.Skeleton {
	s := base(cx)
	s.Joints[pose.LeftElbow] = pose.Joint{X: cx + 0.08, Y: 0.32, Confidence: 0.9}
	s.Joints[pose.RightElbow] = pose.Joint{X: cx - 0.08, Y: 0.32, Confidence: 0.9}
	s.Joints[pose.LeftWrist] = pose.Joint{X: cx + 0.07, Y: 0.18, Confidence: 0.9}
	s.Joints[pose.RightWrist] = pose.Joint{X: cx - 0.07, Y: 0.18, Confidence: 0.9}
	return s
}

func tPoseSkeleton(cx float64, t float64) pose.Skeleton {
	s := base(cx)
	s.Joints[pose.LeftElbow] = pose.Joint{X: cx + 0.14, Y: 0.40, Confidence: 0.9}
	s.Joints[pose.RightElbow] = pose.Joint{X: cx - 0.14, Y: 0.40, Confidence: 0.9}
	s.Joints[pose.LeftWrist] = pose.Joint{X: cx + 0.22, Y: 0.40, Confidence: 0.9}
	s.Joints[pose.RightWrist] = pose.Joint{X: cx - 0.22, Y: 0.40, Confidence: 0.9}
	return s
}

func starSkeleton(cx float64, t float64) pose.Skeleton {
	s := base(cx)
	s.Joints[pose.LeftElbow] = pose.Joint{X: cx + 0.12, Y: 0.30, Confidence: 0.9}
	s.Joints[pose.RightElbow] = pose.Joint{X: cx - 0.12, Y: 0.30, Confidence: 0.9}
	s.Joints[pose.LeftWrist] = pose.Joint{X: cx + 0.16, Y: 0.20, Confidence: 0.9}
	s.Joints[pose.RightWrist] = pose.Joint{X: cx - 0.16, Y: 0.20, Confidence: 0.9}
	s.Joints[pose.LeftAnkle] = pose.Joint{X: cx + 0.12, Y: 0.93, Confidence: 0.9}
	s.Joints[pose.RightAnkle] = pose.Joint{X: cx - 0.12, Y: 0.93, Confidence: 0.9}
	return s
}
