// Package coordinator tracks each Dispatcher worker's lifecycle state
// (WAITING/RUNNING/INTERRUPTED/ABORTED/FINISHED) and answers the
// anyRunning() predicate each Dispatcher polls to decide when a crawl
// is finished. Grounded on montycrawler's engine/logger.py Logger.status
// / some_running, reshaped around a SQLite-backed thread_status table
// with an in-memory mirror in front of it for the hot anyRunning() path.
package coordinator

import (
	"database/sql"
	"sync"
	"time"

	"github.com/rohmanhakim/pdfcrawler/pkg/failure"
)

// CoordinatorErrorCause classifies a Coordinator failure.
type CoordinatorErrorCause string

const ErrCausePersistFailure CoordinatorErrorCause = "thread_status persist failed"

type CoordinatorError struct {
	Message string
	Cause   CoordinatorErrorCause
}

func (e *CoordinatorError) Error() string { return string(e.Cause) + ": " + e.Message }

func (e *CoordinatorError) Severity() failure.Severity { return failure.SeverityRecoverable }

// LifecycleCoordinator is the single process-wide object every
// Dispatcher publishes its status to.
type LifecycleCoordinator struct {
	db *sql.DB

	mu     sync.RWMutex
	mirror map[string]WorkerStatus
}

func Open(db *sql.DB) *LifecycleCoordinator {
	return &LifecycleCoordinator{db: db, mirror: make(map[string]WorkerStatus)}
}

// Publish upserts worker's current status, both in the in-memory mirror
// and the durable thread_status row.
func (c *LifecycleCoordinator) Publish(worker string, status Status, parsed, added, downloaded int, startedAt time.Time) failure.ClassifiedError {
	runningTime := time.Since(startedAt)

	c.mu.Lock()
	c.mirror[worker] = WorkerStatus{
		Thread:      worker,
		State:       status,
		Parsed:      parsed,
		Added:       added,
		Downloaded:  downloaded,
		RunningTime: runningTime,
	}
	c.mu.Unlock()

	_, err := c.db.Exec(`
		INSERT INTO thread_status (thread, status, running_time, parsed, added, downloaded, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread) DO UPDATE SET
			status = excluded.status,
			running_time = excluded.running_time,
			parsed = excluded.parsed,
			added = excluded.added,
			downloaded = excluded.downloaded,
			timestamp = excluded.timestamp`,
		worker, string(status), int(runningTime.Seconds()), parsed, added, downloaded, time.Now(),
	)
	if err != nil {
		return &CoordinatorError{Message: err.Error(), Cause: ErrCausePersistFailure}
	}
	return nil
}

// AnyRunning reports whether any worker currently reports RUNNING,
// served from the in-memory mirror so the Dispatchers' poll loop
// never touches the database.
func (c *LifecycleCoordinator) AnyRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, status := range c.mirror {
		if status.State == StatusRunning {
			return true
		}
	}
	return false
}

// Snapshot returns a copy of every worker's last known status, used for
// the orchestrator's end-of-crawl summary.
func (c *LifecycleCoordinator) Snapshot() []WorkerStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]WorkerStatus, 0, len(c.mirror))
	for _, status := range c.mirror {
		out = append(out, status)
	}
	return out
}
