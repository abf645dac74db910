package dispatcher_test

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/pdfcrawler/internal/coordinator"
	"github.com/rohmanhakim/pdfcrawler/internal/fetcher"
	"github.com/rohmanhakim/pdfcrawler/internal/frontier"
	"github.com/rohmanhakim/pdfcrawler/internal/parser"
	"github.com/rohmanhakim/pdfcrawler/internal/robots"
	"github.com/rohmanhakim/pdfcrawler/internal/sqlitedb"
	"github.com/rohmanhakim/pdfcrawler/internal/store"
	"github.com/rohmanhakim/pdfcrawler/pkg/failure"
	"github.com/rohmanhakim/pdfcrawler/pkg/retry"
	"github.com/rohmanhakim/pdfcrawler/pkg/timeutil"
)

// harness wires the real Frontier/LifecycleCoordinator/Store against a
// temp-file SQLite pair, mirroring how the orchestrator builds a
// Dispatcher's collaborators, so the tests exercise the same persistence
// path a live crawl would.
type harness struct {
	Frontier    *frontier.Frontier
	Coordinator *coordinator.LifecycleCoordinator
	Store       *store.Store
	AcceptedDir string
	RejectedDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	crawlDB, err := sqlitedb.OpenCrawlDB(filepath.Join(dir, "crawl.sqlite3"), true)
	require.NoError(t, err)
	t.Cleanup(func() { crawlDB.Close() })

	logDB, err := sqlitedb.OpenLogDB(filepath.Join(dir, "log.sqlite3"), true)
	require.NoError(t, err)
	t.Cleanup(func() { logDB.Close() })

	fr, err := frontier.Open(crawlDB, frontier.Options{AllDomains: true, RetryCap: 3})
	require.NoError(t, err)

	acceptedDir := filepath.Join(dir, "accepted")
	rejectedDir := filepath.Join(dir, "rejected")
	require.NoError(t, os.MkdirAll(acceptedDir, 0o755))
	require.NoError(t, os.MkdirAll(rejectedDir, 0o755))

	return &harness{
		Frontier:    fr,
		Coordinator: coordinator.Open(logDB),
		Store:       store.NewStore(crawlDB, nil),
		AcceptedDir: acceptedDir,
		RejectedDir: rejectedDir,
	}
}

// newRobotsServer starts a local robots.txt server and returns a real
// robots.Cache pointed at it, plus the server for callers to close.
func newRobotsServer(t *testing.T, robotsTxt string) (*robots.Cache, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(robotsTxt))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	cache := robots.NewCache(server.Client(), "test-agent", testRetryParam(), nil)
	return cache, server
}

// testWorkerSeed is the randomSeed every test passes to dispatcher.New,
// so firstWaitDuration's replica of waitingSleep's arithmetic lines up
// with the actual Dispatcher's startup pause.
const testWorkerSeed = int64(1)

// firstWaitDuration replicates the unexported waitingSleep formula for
// testWorkerSeed: spec.md §4.F step 1 mandates an unconditional 3-7s
// pause before a worker's first frontier poll, so a test harness needs
// to know exactly how long that pause will run to size its context
// timeout instead of guessing.
func firstWaitDuration() time.Duration {
	rng := rand.New(rand.NewSource(testWorkerSeed))
	return 3*time.Second + time.Duration(rng.Int63n(int64(4*time.Second)))
}

// cumulativeWaitDuration replicates n successive draws from the same
// rng.Source a Dispatcher would consume across n WAITING pauses (the
// Dispatcher keeps one *rand.Rand for its whole lifetime, so the second
// pause is the second draw from the same source, not a fresh one), and
// returns their sum. A test that needs the worker to pass through n
// WAITING pauses before its next assertion sizes its context off this
// instead of guessing.
func cumulativeWaitDuration(n int) time.Duration {
	rng := rand.New(rand.NewSource(testWorkerSeed))
	var total time.Duration
	for i := 0; i < n; i++ {
		total += 3*time.Second + time.Duration(rng.Int63n(int64(4*time.Second)))
	}
	return total
}

func testRetryParam() retry.RetryParam {
	return retry.NewRetryParam(0, 0, 1, 1, timeutil.NewBackoffParam(time.Millisecond, 1, time.Millisecond))
}

// fakeFetcher returns a single canned result for every call, matching
// how scheduler_test.go's fetcherMock is set up per-subtest rather than
// per-URL.
type fakeFetcher struct {
	result fetcher.FetchResult
	err    failure.ClassifiedError
}

func (f *fakeFetcher) Fetch(ctx context.Context, param fetcher.FetchParam, retryParam retry.RetryParam, crawlDepth int) (fetcher.FetchResult, failure.ClassifiedError) {
	return f.result, f.err
}

// fakeParser returns a canned Result for every page, or a canned error.
type fakeParser struct {
	result parser.Result
	err    failure.ClassifiedError
}

func (p *fakeParser) Parse(htmlText string) (parser.Result, failure.ClassifiedError) {
	return p.result, p.err
}

// fakeProcessor returns a canned (relevancy, metadata) for every body.
type fakeProcessor struct {
	relevancy float64
	metadata  map[string]string
	err       failure.ClassifiedError
}

func (p *fakeProcessor) Process(body []byte, mimeType string) (float64, map[string]string, failure.ClassifiedError) {
	return p.relevancy, p.metadata, p.err
}
