package dispatcher

import (
	"math/rand"
	"time"

	"github.com/rohmanhakim/pdfcrawler/internal/parser"
	"github.com/rohmanhakim/pdfcrawler/internal/processor"
	"github.com/rohmanhakim/pdfcrawler/internal/robots"
	"github.com/rohmanhakim/pdfcrawler/pkg/retry"
)

// Identity carries the per-worker collaborators and settings spec.md §4.F
// lists: {name, parser, processor, maxDepth, acceptedDir, rejectedDir,
// minRelevancy, robotsCache}. A Dispatcher owns its own Parser/Processor
// instance — both are stateful per page — and its own RobotsCache, per
// §4.B's "cache is per-worker" rationale.
type Identity struct {
	Name         string
	Parser       parser.Parser
	Processor    processor.Processor
	RobotsCache  *robots.Cache
	MaxDepth     int
	AcceptedDir  string
	RejectedDir  string
	MinRelevancy float64
	UserAgent    string
	Timeout      time.Duration
	RetryParam   retry.RetryParam
}

// counters tracks a worker's running totals for its LifecycleCoordinator
// heartbeats and the orchestrator's final summary.
type counters struct {
	parsed     int
	added      int
	downloaded int
}

// waitingSleep returns a random 3-7 second duration, the inter-iteration
// pause spec.md §4.F steps 1 and 2a prescribe when the queue is observed
// empty.
func waitingSleep(rng *rand.Rand) time.Duration {
	return 3*time.Second + time.Duration(rng.Int63n(int64(4*time.Second)))
}
