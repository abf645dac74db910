package processor

import (
	"fmt"

	"github.com/rohmanhakim/pdfcrawler/pkg/failure"
)

type ProcessorErrorCause string

const ErrCauseDecodeFailure ProcessorErrorCause = "decode failure"

type ProcessorError struct {
	Message string
	Cause   ProcessorErrorCause
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("processor error: %s: %s", e.Cause, e.Message)
}

func (e *ProcessorError) Severity() failure.Severity {
	return failure.SeverityFatal
}
