package fetcher

import (
	"fmt"

	"github.com/rohmanhakim/pdfcrawler/pkg/failure"
)

type FetchErrorCause string

const (
	ErrCauseNetworkFailure        FetchErrorCause = "network issues"
	ErrCauseReadResponseBodyError FetchErrorCause = "failed to read response body"
)

// FetchError is raised only for transport-level problems that never
// produced a usable response tuple (request construction, redirect
// loop). HTTP status errors are not FetchErrors — per spec.md §4.A they
// are encoded directly into FetchResult.Code(), never raised.
type FetchError struct {
	Message   string
	Retryable bool
	Cause     FetchErrorCause
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetcher error: %s: %s", e.Cause, e.Message)
}

func (e *FetchError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *FetchError) IsRetryable() bool {
	return e.Retryable
}
