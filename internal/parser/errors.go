package parser

import (
	"fmt"

	"github.com/rohmanhakim/pdfcrawler/pkg/failure"
)

type ParserErrorCause string

const ErrCauseMalformedHTML ParserErrorCause = "malformed html"

type ParserError struct {
	Message string
	Cause   ParserErrorCause
}

func (e *ParserError) Error() string {
	return fmt.Sprintf("parser error: %s: %s", e.Cause, e.Message)
}

func (e *ParserError) Severity() failure.Severity {
	return failure.SeverityFatal
}
