// Package posedb persists locked-pose events to sqlite so operators can
// review what the installation did after the fact. Writes happen off the
// frame path via a buffered writer goroutine.
package posedb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lumenfield/mirrorwall/internal/monitoring"
	"github.com/lumenfield/mirrorwall/internal/pose"
)

// DB wraps the sqlite handle.
type DB struct {
	*sql.DB
}

// Open opens (or creates) the event database and applies pending migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event database: %w", err)
	}

	// Single writer; sqlite does not tolerate concurrent writers on one
	// connection pool without WAL.
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	db := &DB{sqlDB}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// EventRow is one stored lock event.
type EventRow struct {
	EventID  string         `json:"event_id"`
	SlotID   int            `json:"slot_id"`
	Label    pose.PoseLabel `json:"label"`
	LockedAt time.Time      `json:"locked_at"`
}

// RecordLockEvent inserts one lock event.
func (db *DB) RecordLockEvent(ev pose.LockEvent) error {
	_, err := db.Exec(
		`INSERT INTO pose_events (event_id, slot_id, label, locked_at) VALUES (?, ?, ?, ?)`,
		ev.ID, ev.SlotID, string(ev.Label), ev.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record lock event: %w", err)
	}
	return nil
}

// RecentEvents returns the newest events, most recent first.
func (db *DB) RecentEvents(limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(
		`SELECT event_id, slot_id, label, locked_at FROM pose_events ORDER BY locked_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// EventsBetween returns events in [from, to), oldest first.
func (db *DB) EventsBetween(from, to time.Time) ([]EventRow, error) {
	rows, err := db.Query(
		`SELECT event_id, slot_id, label, locked_at FROM pose_events
		 WHERE locked_at >= ? AND locked_at < ? ORDER BY locked_at ASC`,
		from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]EventRow, error) {
	var out []EventRow
	for rows.Next() {
		var ev EventRow
		var label string
		if err := rows.Scan(&ev.EventID, &ev.SlotID, &label, &ev.LockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Label = pose.PoseLabel(label)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Writer drains lock events into the database from a buffered channel so the
// pipeline never waits on disk.
type Writer struct {
	db *DB
	ch chan pose.LockEvent
}

// NewWriter creates a writer with a bounded queue.
func NewWriter(db *DB) *Writer {
	return &Writer{db: db, ch: make(chan pose.LockEvent, 256)}
}

// Enqueue queues an event for persistence; drops it when the queue is full.
func (w *Writer) Enqueue(ev pose.LockEvent) {
	select {
	case w.ch <- ev:
	default:
		monitoring.Logf("posedb: event queue full, dropping %s", ev.ID)
	}
}

// Start runs the writer until the context is cancelled, then drains what is
// already queued.
func (w *Writer) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				for {
					select {
					case ev := <-w.ch:
						w.write(ev)
					default:
						return
					}
				}
			case ev := <-w.ch:
				w.write(ev)
			}
		}
	}()
}

func (w *Writer) write(ev pose.LockEvent) {
	if err := w.db.RecordLockEvent(ev); err != nil {
		monitoring.Logf("posedb: %v", err)
	}
}
