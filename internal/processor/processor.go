// Package processor implements the default Processor contract of
// spec.md §6: score a fetched document's relevancy against configured
// keywords and return the reserved metadata keys. Grounded directly on
// montycrawler/processing.py's PDFProcessor: ten points per keyword
// match in the title/subject/keywords fields, plus a per-page scan
// weighted by a halving distance factor. No PDF-parsing library exists
// anywhere in the example pack (see SPEC_FULL.md DOMAIN STACK), so this
// default implementation scans the fetched bytes as text directly
// instead of through a parsed PDF page tree: ten points for each keyword
// found anywhere in that text plus one per occurrence, with no per-field
// matching and no distance weighting — a real PDF Processor is
// expected to replace it via the registry without touching the crawl
// core.
package processor

import (
	"strconv"
	"strings"

	"github.com/rohmanhakim/pdfcrawler/pkg/failure"
)

const keywordMatchScore = 10.0

// Processor is satisfied by DefaultProcessor and by any implementation
// configured via the registry.
type Processor interface {
	Process(body []byte, mimeType string) (relevancy float64, metadata map[string]string, err failure.ClassifiedError)
}

type DefaultProcessor struct {
	keywords []string
}

func NewDefaultProcessor(keywords []string) *DefaultProcessor {
	return &DefaultProcessor{keywords: keywords}
}

func (p *DefaultProcessor) Process(body []byte, mimeType string) (float64, map[string]string, failure.ClassifiedError) {
	metadata := map[string]string{}

	if mimeType != "application/pdf" || len(p.keywords) == 0 {
		metadata["_relevancy"] = "0"
		return 0, metadata, nil
	}

	text := strings.ToLower(string(body))
	metadata["_num_pages"] = "1"

	var relevancy float64
	for _, word := range p.keywords {
		if word == "" {
			continue
		}
		lowerWord := strings.ToLower(word)
		if strings.Contains(text, lowerWord) {
			relevancy += keywordMatchScore
		}
		relevancy += float64(strings.Count(text, lowerWord))
	}

	relevancy = roundToTenth(relevancy)
	metadata["_relevancy"] = strconv.FormatFloat(relevancy, 'f', -1, 64)
	return relevancy, metadata, nil
}

func roundToTenth(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
