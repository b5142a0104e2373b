// Package recorder implements a black-box flight data recorder: every
// committed ActuatorCommand tick is persisted to SQLite for post-flight
// analysis. Writes happen off the actuator task's goroutine since the task
// must never block on disk I/O (spec.md §5).
package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dustin/go-humanize"

	"actuatorcore/internal/uavobjects"
)

const schema = `
CREATE TABLE IF NOT EXISTS ticks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts_unix_nano INTEGER NOT NULL,
	update_time_ms REAL NOT NULL,
	max_update_time_ms REAL NOT NULL,
	channels TEXT NOT NULL
);
`

// entry is one queued tick awaiting a write.
type entry struct {
	cmd uavobjects.ActuatorCommand
	at  time.Time
}

// Recorder buffers committed ticks in a channel and drains them to SQLite
// on a background goroutine, grounded on the append-only structured
// telemetry pattern used for capture storage elsewhere in the retrieval
// pack.
type Recorder struct {
	db     *sql.DB
	queue  chan entry
	stopCh chan struct{}
	doneCh chan struct{}

	dropped uint64
}

// Open creates (if needed) and opens the SQLite database at path in WAL
// mode, and starts the background writer.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL", path))
	if err != nil {
		return nil, fmt.Errorf("recorder: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("recorder: create schema: %w", err)
	}

	r := &Recorder{
		db:     db,
		queue:  make(chan entry, 256),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go r.run()
	return r, nil
}

// Record enqueues cmd for asynchronous persistence. It never blocks: if the
// queue is full, the tick is dropped and counted rather than stalling the
// actuator task.
func (r *Recorder) Record(cmd uavobjects.ActuatorCommand, at time.Time) error {
	select {
	case r.queue <- entry{cmd: cmd, at: at}:
		return nil
	default:
		r.dropped++
		return fmt.Errorf("recorder: queue full, dropped tick (total dropped %s)", humanize.Comma(int64(r.dropped)))
	}
}

func (r *Recorder) run() {
	defer close(r.doneCh)

	stmt, err := r.db.Prepare(`INSERT INTO ticks (ts_unix_nano, update_time_ms, max_update_time_ms, channels) VALUES (?, ?, ?, ?)`)
	if err != nil {
		log.Printf("recorder: prepare insert: %v", err)
		return
	}
	defer stmt.Close()

	for {
		select {
		case e := <-r.queue:
			if _, err := stmt.Exec(e.at.UnixNano(), e.cmd.UpdateTime, e.cmd.MaxUpdateTime, formatChannels(e.cmd.Channel)); err != nil {
				log.Printf("recorder: insert failed: %v", err)
			}
		case <-r.stopCh:
			return
		}
	}
}

func formatChannels(ch [uavobjects.NCHAN]float64) string {
	s := ""
	for i, v := range ch {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%.1f", v)
	}
	return s
}

// Close stops the background writer and closes the database. It blocks
// until the writer goroutine drains and exits.
func (r *Recorder) Close() error {
	close(r.stopCh)
	<-r.doneCh
	return r.db.Close()
}

// Flush waits up to the given context deadline for the queue to drain,
// useful in tests that need deterministic write ordering.
func (r *Recorder) Flush(ctx context.Context) error {
	for {
		if len(r.queue) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}
