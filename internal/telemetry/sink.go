// Package telemetry is the crawl's observability sink: every other
// package logs fetches, errors, and written artifacts through it rather
// than importing a logger directly. It writes structured logs through
// go.uber.org/zap and durable rows into the log database's log_entries
// table, matching montycrawler's Logger.info/error dual console+DB
// writes, re-expressed as an explicit interface instead of a bag of
// methods threaded everywhere by convention.
package telemetry

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// MetadataSink is implemented by Sink and is the interface every
// crawl-path package (fetcher, robots, store, dispatcher) depends on.
type MetadataSink interface {
	RecordFetch(fetchURL string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int)
	RecordError(observedAt time.Time, packageName, action string, cause ErrorCause, details string, attrs []Attribute)
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

// CrawlFinalizer is implemented by Sink and called exactly once by the
// orchestrator after every worker has stopped.
type CrawlFinalizer interface {
	RecordCrawlStats(stats CrawlStats)
}

// Sink is the default MetadataSink/CrawlFinalizer, backed by a zap
// logger and the log database's log_entries table.
type Sink struct {
	logger  *zap.Logger
	db      *sql.DB
	worker  string
	verbose bool
}

func NewSink(logger *zap.Logger, db *sql.DB, worker string, verbose bool) *Sink {
	return &Sink{logger: logger, db: db, worker: worker, verbose: verbose}
}

func (s *Sink) RecordFetch(fetchURL string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int) {
	if s.verbose {
		s.logger.Info("fetch",
			zap.String("url", fetchURL),
			zap.Int("status", httpStatus),
			zap.Duration("duration", duration),
			zap.String("content_type", contentType),
			zap.Int("retries", retryCount),
			zap.Int("depth", crawlDepth),
		)
	}
	s.writeLogEntry("DOWNLOADED", "PROCESS_URL", fmt.Sprintf("%s status=%d depth=%d", fetchURL, httpStatus, crawlDepth))
}

func (s *Sink) RecordError(observedAt time.Time, packageName, action string, cause ErrorCause, details string, attrs []Attribute) {
	fields := make([]zap.Field, 0, len(attrs)+3)
	fields = append(fields,
		zap.String("package", packageName),
		zap.String("action", action),
		zap.String("cause", cause.String()),
	)
	for _, a := range attrs {
		fields = append(fields, zap.String(string(a.Key), a.Value))
	}
	s.logger.Error(details, fields...)

	s.writeLogEntry("ERROR", "ERROR", fmt.Sprintf("%s.%s: %s (%s)", packageName, action, details, cause))
}

func (s *Sink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	if s.verbose {
		fields := make([]zap.Field, 0, len(attrs)+2)
		fields = append(fields, zap.String("kind", string(kind)), zap.String("path", path))
		for _, a := range attrs {
			fields = append(fields, zap.String(string(a.Key), a.Value))
		}
		s.logger.Info("artifact", fields...)
	}
	s.writeLogEntry("DEBUG", "DOWNLOADED", fmt.Sprintf("%s -> %s", kind, path))
}

func (s *Sink) RecordCrawlStats(stats CrawlStats) {
	s.logger.Info("crawl finished",
		zap.Int("fetched", stats.TotalFetched),
		zap.Int("added", stats.TotalAdded),
		zap.Int("rejected", stats.TotalRejected),
		zap.Int("errors", stats.TotalErrors),
		zap.Int("documents", stats.TotalDocuments),
		zap.Duration("duration", stats.Duration),
	)
}

func (s *Sink) writeLogEntry(logType, messageLabel, text string) {
	if s.db == nil {
		return
	}
	_, _ = s.db.Exec(
		`INSERT INTO log_entries (type, message_label, text, thread, timestamp) VALUES (?, ?, ?, ?, ?)`,
		logType, messageLabel, text, s.worker, time.Now(),
	)
}
