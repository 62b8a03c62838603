// Command mirrorwall runs the interactive-installation pose pipeline: it
// consumes skeleton frames from an external body-pose detector, stabilizes
// them into per-person locked poses, drives overlay animation state, relays
// show-control cues, and serves the live state over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lumenfield/mirrorwall/internal/api"
	"github.com/lumenfield/mirrorwall/internal/config"
	"github.com/lumenfield/mirrorwall/internal/monitoring"
	"github.com/lumenfield/mirrorwall/internal/pose"
	"github.com/lumenfield/mirrorwall/internal/pose/relay"
	"github.com/lumenfield/mirrorwall/internal/pose/source"
	"github.com/lumenfield/mirrorwall/internal/posedb"
	"github.com/lumenfield/mirrorwall/internal/timeutil"
)

var (
	listen      = flag.String("listen", ":8080", "HTTP listen address")
	detectorURL = flag.String("detector", "ws://127.0.0.1:8765/skeletons", "Detector WebSocket URL")
	replayFile  = flag.String("replay", "", "Replay skeleton frames from a JSONL file instead of the detector")
	replayLoop  = flag.Bool("replay-loop", false, "Loop the replay file forever")
	fps         = flag.Float64("fps", 30, "Render tick rate driving the pipeline")
	configPath  = flag.String("config", "config/tuning.defaults.json", "Tuning config JSON (empty for built-in defaults)")
	dbFile      = flag.String("db", "pose_events.db", "Event log sqlite file (empty to disable)")
	relayAddr   = flag.String("relay", "", "Show-control UDP address, e.g. 127.0.0.1:9000 (empty to disable)")
	cuesPath    = flag.String("cues", "", "JSON file mapping pose labels to show-control cue bundles")
	verbose     = flag.Bool("verbose", false, "Enable per-frame debug logging")
)

func main() {
	flag.Parse()
	monitoring.SetVerbose(*verbose)

	if *fps <= 0 {
		log.Fatal("fps must be positive")
	}

	clock := timeutil.RealClock{}

	// Tuning config: startup file, then hot-reloadable over the API.
	var tuning *config.Tuning
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuning(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	}
	cfg := config.NewStore(tuning)

	pipeline := pose.NewPipeline(clock, cfg)

	// Event log (optional).
	var eventDB *posedb.DB
	var eventWriter *posedb.Writer
	if *dbFile != "" {
		var err error
		eventDB, err = posedb.Open(*dbFile)
		if err != nil {
			log.Fatalf("Failed to open event database: %v", err)
		}
		defer eventDB.Close()
		eventWriter = posedb.NewWriter(eventDB)
	}

	// Show-control relay (optional).
	var cueRelay *relay.CueRelay
	if *relayAddr != "" {
		bundles := map[pose.PoseLabel]relay.CueBundle{}
		if *cuesPath != "" {
			data, err := os.ReadFile(*cuesPath)
			if err != nil {
				log.Fatalf("Failed to read cue bundles: %v", err)
			}
			bundles, err = relay.LoadBundles(data)
			if err != nil {
				log.Fatalf("Failed to parse cue bundles: %v", err)
			}
		}
		var err error
		cueRelay, err = relay.NewCueRelay(*relayAddr, cfg.Current().GetRelayDebounce(), bundles, clock)
		if err != nil {
			log.Fatalf("Failed to start show-control relay: %v", err)
		}
	}

	pipeline.OnLock(func(ev pose.LockEvent) {
		if eventWriter != nil {
			eventWriter.Enqueue(ev)
		}
		if cueRelay != nil {
			cueRelay.Send(ev)
		}
	})

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if eventWriter != nil {
		eventWriter.Start(ctx)
	}
	if cueRelay != nil {
		cueRelay.Start(ctx)
	}

	// Skeleton source: live detector or file replay.
	inbox := &source.Inbox{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		var err error
		if *replayFile != "" {
			interval := time.Duration(float64(time.Second) / *fps)
			err = source.NewReplayer(*replayFile, interval, *replayLoop, inbox, clock).Run(ctx)
		} else {
			err = source.NewWSSource(*detectorURL, inbox, clock).Run(ctx)
		}
		if err != nil && err != context.Canceled {
			log.Printf("Skeleton source stopped: %v", err)
		}
	}()

	// Render-tick loop: one pipeline step per tick, consuming only the
	// newest frame. When the source stalls the pipeline holds its last
	// state rather than resetting.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(time.Duration(float64(time.Second) / *fps))
		defer ticker.Stop()
		var lastSeq uint64
		for {
			select {
			case <-ctx.Done():
				pipeline.Reset()
				return
			case <-ticker.C:
				frame, seq := inbox.Take()
				if seq == lastSeq {
					continue // No new detector frame; hold.
				}
				lastSeq = seq
				pipeline.Step(frame)
			}
		}
	}()

	// HTTP API.
	server := api.NewServer(pipeline, cfg, eventDB)
	httpServer := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(server.ServeMux()),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("Listening on %s", *listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	wg.Wait()
}
