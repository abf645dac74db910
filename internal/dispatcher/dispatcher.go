// Package dispatcher implements the worker loop of spec.md §4.F: pull an
// item from the Frontier, consult the RobotsCache, fetch it, route by
// MIME, enqueue discovered links or store an accepted document, then ack
// or retry. Grounded on the teacher's internal/scheduler.Scheduler, whose
// ExecuteCrawling loop drives the identical fetch -> extract -> submit ->
// write pipeline for a single worker; this package generalizes it to N
// concurrent Dispatchers gated on a LifecycleCoordinator instead of one
// synchronous frontier drain.
package dispatcher

import (
	"context"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/rohmanhakim/pdfcrawler/internal/coordinator"
	"github.com/rohmanhakim/pdfcrawler/internal/fetcher"
	"github.com/rohmanhakim/pdfcrawler/internal/frontier"
	"github.com/rohmanhakim/pdfcrawler/internal/store"
	"github.com/rohmanhakim/pdfcrawler/internal/telemetry"
	"github.com/rohmanhakim/pdfcrawler/pkg/failure"
)

const mimeHTML = "text/html"
const mimePDF = "application/pdf"

// Dispatcher is one concurrent consumer of the Frontier (spec.md
// GLOSSARY). Its Run method blocks until the Coordinator reports that no
// worker is RUNNING, an external cancellation arrives, or an unexpected
// error aborts it.
type Dispatcher struct {
	identity    Identity
	frontier    *frontier.Frontier
	fetcher     fetcher.Fetcher
	store       *store.Store
	coordinator *coordinator.LifecycleCoordinator
	sink        telemetry.MetadataSink
	rng         *rand.Rand
}

func New(
	identity Identity,
	f *frontier.Frontier,
	ftch fetcher.Fetcher,
	st *store.Store,
	coord *coordinator.LifecycleCoordinator,
	sink telemetry.MetadataSink,
	randomSeed int64,
) *Dispatcher {
	return &Dispatcher{
		identity:    identity,
		frontier:    f,
		fetcher:     ftch,
		store:       st,
		coordinator: coord,
		sink:        sink,
		rng:         rand.New(rand.NewSource(randomSeed)),
	}
}

// Run executes the worker lifecycle: WAITING -> RUNNING -> (loop) ->
// FINISHED | INTERRUPTED | ABORTED.
func (d *Dispatcher) Run(ctx context.Context) failure.ClassifiedError {
	startedAt := time.Now()
	var c counters

	publish := func(status coordinator.Status) {
		_ = d.coordinator.Publish(d.identity.Name, status, c.parsed, c.added, c.downloaded, startedAt)
	}

	publish(coordinator.StatusWaiting)
	if err := d.sleepOrInterrupt(ctx); err != nil {
		publish(coordinator.StatusInterrupted)
		return err
	}

	publish(coordinator.StatusRunning)

	for d.coordinator.AnyRunning() {
		if err := ctx.Err(); err != nil {
			publish(coordinator.StatusInterrupted)
			return &DispatcherError{Message: err.Error(), Cause: ErrCauseFrontierFailure}
		}

		item, nextErr := d.frontier.Next()
		if nextErr != nil {
			if frontier.IsQueueEmpty(nextErr) {
				publish(coordinator.StatusWaiting)
				if err := d.sleepOrInterrupt(ctx); err != nil {
					publish(coordinator.StatusInterrupted)
					return err
				}
				continue
			}
			// Unexpected: a storage failure reading the pending table is
			// not a per-URL condition, spec.md §7's Unexpected entry.
			publish(coordinator.StatusAborted)
			return nextErr
		}

		d.processItem(ctx, item, &c)
		publish(coordinator.StatusRunning)
	}

	publish(coordinator.StatusFinished)
	return nil
}

func (d *Dispatcher) sleepOrInterrupt(ctx context.Context) failure.ClassifiedError {
	select {
	case <-ctx.Done():
		return &DispatcherError{Message: ctx.Err().Error(), Cause: ErrCauseFrontierFailure}
	case <-time.After(waitingSleep(d.rng)):
		return nil
	}
}

// processItem runs steps 2.a-2.e and the terminal discard/retry decision
// for a single PendingItem. Every exit path is a log-and-continue; only
// Run's own loop/coordinator failures ever abort the worker.
func (d *Dispatcher) processItem(ctx context.Context, item frontier.PendingItem, c *counters) {
	allowed, robotsErr := d.identity.RobotsCache.Allowed(ctx, item.URL())
	if robotsErr != nil {
		d.recordError("dispatcher", "robots.Allowed", telemetry.CauseNetworkFailure, robotsErr.Error(), item.URL())
		d.discardOrRetry(item)
		return
	}
	if !allowed.Allowed {
		d.recordArtifact("DISALLOWED", item.URL())
		if err := d.frontier.Discard(item); err != nil {
			d.recordError("dispatcher", "frontier.Discard", telemetry.CauseStorageFailure, err.Error(), item.URL())
		}
		return
	}

	parsedURL, parseErr := url.Parse(item.URL())
	if parseErr != nil {
		// The Frontier only ever persists URLs that passed Add's
		// scheme/authority validation; a parse failure here would mean
		// that invariant broke, so treat it like any other per-item
		// failure rather than aborting the worker.
		d.recordError("dispatcher", "url.Parse", telemetry.CauseInvariantViolation, parseErr.Error(), item.URL())
		d.discardOrRetry(item)
		return
	}

	fetchParam := fetcher.NewFetchParam(*parsedURL, d.identity.UserAgent, d.identity.Timeout)
	result, fetchErr := d.fetcher.Fetch(ctx, fetchParam, d.identity.RetryParam, item.Depth())
	if fetchErr != nil {
		// The only failure Fetch ever returns is context cancellation
		// (spec.md §4.A: Fetch never raises otherwise). Leave the item's
		// retry count untouched; Run observes ctx.Err() on its next loop
		// check and publishes INTERRUPTED.
		return
	}

	if err := d.frontier.RecordFetchOutcome(item.ResourceID(), result.Code()); err != nil {
		d.recordError("dispatcher", "frontier.RecordFetchOutcome", telemetry.CauseStorageFailure, err.Error(), item.URL())
	}

	success := d.route(item, result, c)
	if success {
		if err := d.frontier.Discard(item); err != nil {
			d.recordError("dispatcher", "frontier.Discard", telemetry.CauseStorageFailure, err.Error(), item.URL())
			return
		}
		c.parsed++
		return
	}

	d.discardOrRetry(item)
}

// route implements step 2.c's MIME-based branching and returns whether
// the item reached a terminal successful state (spec.md §4.F).
func (d *Dispatcher) route(item frontier.PendingItem, result fetcher.FetchResult, c *counters) bool {
	code := result.Code()
	if code == nil {
		d.recordError("dispatcher", "fetch", telemetry.CauseNetworkFailure, "unreachable", item.URL())
		return false
	}
	if *code != 200 {
		d.recordError("dispatcher", "fetch", telemetry.CauseNetworkFailure, "non-200 status", item.URL())
		return false
	}

	mimeType := strings.ToLower(strings.TrimSpace(result.MIME()))
	switch {
	case strings.HasPrefix(mimeType, mimeHTML):
		return d.routeHTML(item, result, c)
	case mimeType == mimePDF:
		return d.routePDF(item, result, c)
	default:
		// Non-HTML, non-PDF 200 response: resolved per spec.md §9 open
		// question 1 (SPEC_FULL.md §9) as a successful discard rather
		// than a retry to exhaustion.
		d.recordArtifact("UNSUPPORTED_MIME", item.URL())
		return true
	}
}

func (d *Dispatcher) routeHTML(item frontier.PendingItem, result fetcher.FetchResult, c *counters) bool {
	if d.identity.MaxDepth > 0 && item.Depth() >= d.identity.MaxDepth {
		d.recordArtifact("MAX_DEPTH_REACHED", item.URL())
		return true
	}

	text, ok := decodeBody(result.Body(), result.Encoding())
	if !ok {
		d.recordError("dispatcher", "decodeBody", telemetry.CauseContentInvalid, "no candidate charset decoded cleanly", item.URL())
		return false
	}

	parsed, perr := d.identity.Parser.Parse(text)
	if perr != nil {
		d.recordError("dispatcher", "parser.Parse", telemetry.CauseContentInvalid, perr.Error(), item.URL())
		return false
	}

	added, _, aerr := d.frontier.AddList(item, parsed.Title, parsed.Links)
	if aerr != nil {
		d.recordError("dispatcher", "frontier.AddList", telemetry.CauseStorageFailure, aerr.Error(), item.URL())
		return false
	}
	c.added += added
	return true
}

func (d *Dispatcher) routePDF(item frontier.PendingItem, result fetcher.FetchResult, c *counters) bool {
	relevancy, metadata, perr := d.identity.Processor.Process(result.Body(), mimePDF)
	if perr != nil {
		// Processor failure is logged but not retryable: the content was
		// fetched successfully, per spec.md §7 ProcessorFailure.
		d.recordError("dispatcher", "processor.Process", telemetry.CauseContentInvalid, perr.Error(), item.URL())
		return true
	}

	resource, rerr := d.frontier.Resource(item.ResourceID())
	if rerr != nil {
		d.recordError("dispatcher", "frontier.Resource", telemetry.CauseStorageFailure, rerr.Error(), item.URL())
		return true
	}

	accepted := relevancy >= d.identity.MinRelevancy
	filename := result.Filename()
	if filename == "" {
		filename = "document.pdf"
	}

	_, werr := d.store.Write(accepted, resource, mimePDF, d.identity.AcceptedDir, d.identity.RejectedDir, filename, metadata, result.Body())
	if werr != nil {
		d.recordError("dispatcher", "store.Write", telemetry.CauseStorageFailure, werr.Error(), item.URL())
		return true
	}

	c.downloaded++
	return true
}

func (d *Dispatcher) discardOrRetry(item frontier.PendingItem) {
	exhausted, err := d.frontier.DiscardOrRetry(item)
	if err != nil {
		d.recordError("dispatcher", "frontier.DiscardOrRetry", telemetry.CauseStorageFailure, err.Error(), item.URL())
		return
	}
	if exhausted {
		d.recordArtifact("RETRY_EXHAUSTED", item.URL())
	}
}

func (d *Dispatcher) recordError(packageName, action string, cause telemetry.ErrorCause, details, url string) {
	if d.sink == nil {
		return
	}
	d.sink.RecordError(time.Now(), packageName, action, cause, details, []telemetry.Attribute{
		telemetry.NewAttr(telemetry.AttrURL, url),
		telemetry.NewAttr(telemetry.AttrWorker, d.identity.Name),
	})
}

func (d *Dispatcher) recordArtifact(kind string, url string) {
	if d.sink == nil {
		return
	}
	d.sink.RecordArtifact(telemetry.ArtifactKind(kind), url, []telemetry.Attribute{
		telemetry.NewAttr(telemetry.AttrWorker, d.identity.Name),
	})
}
