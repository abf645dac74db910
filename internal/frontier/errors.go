package frontier

import (
	"fmt"

	"github.com/rohmanhakim/pdfcrawler/pkg/failure"
)

type ErrorCause string

const (
	ErrCauseMalformedURL    ErrorCause = "malformed url"
	ErrCauseNotInBaseDomain ErrorCause = "not in base domain"
	ErrCauseQueueEmpty      ErrorCause = "queue empty"
	ErrCauseStorageFailure  ErrorCause = "storage failure"
)

// FrontierError is the classified error type for every Frontier failure
// mode in spec §7: MalformedUrl and NotInBaseDomain are never surfaced
// past addList (they are counted as rejected), QueueEmpty is the expected
// "nothing to pop" signal Next returns instead of raising, and
// StorageFailure wraps unexpected SQL errors.
type FrontierError struct {
	Message   string
	Retryable bool
	Cause     ErrorCause
}

func (e *FrontierError) Error() string {
	return fmt.Sprintf("frontier error: %s: %s", e.Cause, e.Message)
}

func (e *FrontierError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// IsQueueEmpty reports whether err is the Next() "nothing to pop" signal.
func IsQueueEmpty(err failure.ClassifiedError) bool {
	fe, ok := err.(*FrontierError)
	return ok && fe.Cause == ErrCauseQueueEmpty
}
