package orchestrator_test

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/pdfcrawler/internal/config"
	"github.com/rohmanhakim/pdfcrawler/internal/coordinator"
	"github.com/rohmanhakim/pdfcrawler/internal/orchestrator"
)

// singleWorkerSeed matches the Orchestrator's cfg.RandomSeed()+int64(i)
// derivation for worker index 0, so the test can predict how long the
// lone worker's mandatory startup pause (spec.md §4.F step 1) runs.
const singleWorkerSeed = int64(42)

func firstWaitDuration(seed int64) time.Duration {
	rng := rand.New(rand.NewSource(seed))
	return 3*time.Second + time.Duration(rng.Int63n(int64(4*time.Second)))
}

// twoWaitsDuration replicates the sum of the first two draws a worker's
// persistent *rand.Rand makes across its lifetime: one startup pause,
// then one more once it finds the drained queue empty. The second draw
// continues the same source rather than starting fresh, so this is not
// just 2*firstWaitDuration.
func twoWaitsDuration(seed int64) time.Duration {
	rng := rand.New(rand.NewSource(seed))
	first := 3*time.Second + time.Duration(rng.Int63n(int64(4*time.Second)))
	second := 3*time.Second + time.Duration(rng.Int63n(int64(4*time.Second)))
	return first + second
}

func newCrawlServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/seed.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body><a href="/doc.pdf">Invoice</a></body></html>`))
	})
	mux.HandleFunc("/doc.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("invoice invoice invoice"))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// TestRun_SingleWorkerHarvestsSeedAndDiscoveredPDF drives a full crawl
// core (real SQLite files, real HTTPFetcher, default Parser/Processor)
// against a local HTTP server: the seed page links to one PDF, so one
// worker should fetch both, accept the PDF (it matches the configured
// keyword), and write it under the download folder, with no further
// interaction needed once the queue drains.
func TestRun_SingleWorkerHarvestsSeedAndDiscoveredPDF(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	server := newCrawlServer(t)
	seedURL, err := url.Parse(server.URL + "/seed.html")
	require.NoError(t, err)

	acceptedDir := dir + "/accepted"
	rejectedDir := dir + "/rejected"

	cfg, err := config.WithDefault(*seedURL).
		WithReset(true).
		WithThreads(1).
		WithRetries(3).
		WithRandomSeed(singleWorkerSeed).
		WithTimeout(2 * time.Second).
		WithDownloadFolder(acceptedDir).
		WithRejectedFolder(rejectedDir).
		WithKeywords([]string{"invoice"}).
		WithMinRelevancy(1).
		Build()
	require.NoError(t, err)

	// The lone worker's startup pause runs once before its first poll;
	// give it enough headroom past that to fetch the seed and the PDF it
	// discovers, then run through the second WAITING pause that follows
	// the drained queue so AnyRunning observes the worker's own WAITING
	// state and Run exits into FINISHED on its own rather than via ctx
	// cancellation.
	ctx, cancel := context.WithTimeout(context.Background(), twoWaitsDuration(singleWorkerSeed)+2*time.Second)
	defer cancel()

	summary, err := orchestrator.Run(ctx, cfg)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, summary.Stats.TotalFetched, 1)
	assert.GreaterOrEqual(t, summary.Stats.TotalDocuments, 1)

	require.Len(t, summary.Statuses, 1)
	assert.Equal(t, coordinator.StatusFinished, summary.Statuses[0].State)

	entries, rerr := os.ReadDir(acceptedDir)
	require.NoError(t, rerr)
	assert.Len(t, entries, 1)
}

// TestRun_InvalidConfigNeverReachesBootstrap exercises nothing: Build()
// itself already rejects a Threads() < 1 config, so there is no
// orchestrator.Run error path to test beyond construction failing before
// Run is ever called in production. This test documents that boundary.
func TestRun_InvalidConfigNeverReachesBootstrap(t *testing.T) {
	seedURL, err := url.Parse("http://example.com/seed")
	require.NoError(t, err)

	_, err = config.WithDefault(*seedURL).WithThreads(0).Build()
	assert.Error(t, err)
}
