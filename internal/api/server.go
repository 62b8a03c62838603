// Package api exposes the installation's live state and tuning surface over
// HTTP. It reads pipeline snapshots and the event log; the only write it
// accepts is a validated tuning update.
package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/lumenfield/mirrorwall/internal/config"
	"github.com/lumenfield/mirrorwall/internal/pose"
	"github.com/lumenfield/mirrorwall/internal/posedb"
)

// ANSI escape codes for request logging
const (
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// Snapshotter is the pipeline surface the API reads. The pipeline itself
// satisfies it.
type Snapshotter interface {
	Outputs() []pose.SlotOutput
	Stats() pose.Stats
}

// Server serves the pose API.
type Server struct {
	pipeline Snapshotter
	cfg      *config.Store
	db       *posedb.DB // may be nil when event logging is disabled
}

// NewServer creates a Server. db may be nil.
func NewServer(pipeline Snapshotter, cfg *config.Store, db *posedb.DB) *Server {
	return &Server{pipeline: pipeline, cfg: cfg, db: db}
}

// ServeMux returns the route table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.health)
	mux.HandleFunc("/api/pose/slots", s.listSlots)
	mux.HandleFunc("/api/pose/stats", s.showStats)
	mux.HandleFunc("/api/pose/params", s.params)
	mux.HandleFunc("/api/pose/events", s.listEvents)
	return mux
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s %vms",
			statusCodeColor(lrw.statusCode), r.Method, r.URL.Path,
			time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: failed to encode response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

// listSlots returns the per-slot render outputs from the most recent frame.
func (s *Server) listSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	outputs := s.pipeline.Outputs()
	if outputs == nil {
		outputs = []pose.SlotOutput{}
	}
	s.writeJSON(w, outputs)
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	s.writeJSON(w, s.pipeline.Stats())
}

// params returns the live tuning config on GET and hot-reloads it on POST.
// Invalid updates are rejected wholesale; the pipeline keeps running on the
// last-known-good config.
func (s *Server) params(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, s.cfg.Current())
	case http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest, "failed to read body")
			return
		}
		next := config.EmptyTuning()
		if err := json.Unmarshal(body, next); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
		if err := s.cfg.Replace(next); err != nil {
			s.writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		log.Printf("api: tuning params replaced")
		s.writeJSON(w, s.cfg.Current())
	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "GET or POST only")
	}
}

// listEvents returns recent locked-pose events from the event log.
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	if s.db == nil {
		s.writeJSONError(w, http.StatusNotFound, "event log disabled")
		return
	}
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		if v, err := strconv.Atoi(q); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}
	events, err := s.db.RecentEvents(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []posedb.EventRow{}
	}
	s.writeJSON(w, events)
}
