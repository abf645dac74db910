package dispatcher

import (
	"fmt"

	"github.com/rohmanhakim/pdfcrawler/pkg/failure"
)

// DispatcherErrorCause classifies a worker-loop failure severe enough to
// abort the worker (spec.md §7's Unexpected taxonomy entry). Per-URL
// failures never reach this type — they are resolved into a retry or
// discard decision inside the loop instead.
type DispatcherErrorCause string

const (
	ErrCauseCoordinatorFailure DispatcherErrorCause = "coordinator publish failed"
	ErrCauseFrontierFailure    DispatcherErrorCause = "frontier operation failed"
)

type DispatcherError struct {
	Message string
	Cause   DispatcherErrorCause
}

func (e *DispatcherError) Error() string {
	return fmt.Sprintf("dispatcher error: %s: %s", e.Cause, e.Message)
}

func (e *DispatcherError) Severity() failure.Severity {
	return failure.SeverityFatal
}
