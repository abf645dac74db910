package robots

import (
	"fmt"

	"github.com/rohmanhakim/pdfcrawler/pkg/failure"
)

type RobotsErrorCause string

const (
	ErrCauseInvalidRobotsURL RobotsErrorCause = "invalid robots.txt URL"
	ErrCauseHttpFetchFailure RobotsErrorCause = "failed to fetch"
	ErrCauseParseError       RobotsErrorCause = "failed to parse robots.txt"
)

type RobotsError struct {
	Message   string
	Retryable bool
	Cause     RobotsErrorCause
}

func (e *RobotsError) Error() string {
	return fmt.Sprintf("robots error: %s: %s", e.Cause, e.Message)
}

func (e *RobotsError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *RobotsError) IsRetryable() bool {
	return e.Retryable
}
