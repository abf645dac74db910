// Package parser implements the default Parser contract of spec.md §6:
// extract a page title and its outbound links from HTML, or signal
// nofollow. Grounded on the teacher's internal/extractor/dom.go goquery
// usage, repurposed from content-isolation (strip chrome, keep the
// article body) to link-harvesting (walk every <a href>, respect
// <meta name="robots" content="nofollow">).
package parser

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rohmanhakim/pdfcrawler/internal/frontier"
	"github.com/rohmanhakim/pdfcrawler/internal/telemetry"
	"github.com/rohmanhakim/pdfcrawler/pkg/failure"
)

// Parser is satisfied by DefaultParser and by any implementation
// configured via the registry.
type Parser interface {
	Parse(htmlText string) (Result, failure.ClassifiedError)
}

type DefaultParser struct {
	sink telemetry.MetadataSink
}

func NewDefaultParser(sink telemetry.MetadataSink) *DefaultParser {
	return &DefaultParser{sink: sink}
}

func (p *DefaultParser) Parse(htmlText string) (Result, failure.ClassifiedError) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		parseErr := &ParserError{Message: err.Error(), Cause: ErrCauseMalformedHTML}
		if p.sink != nil {
			p.sink.RecordError(time.Now(), "parser", "Parse", telemetry.CauseContentInvalid, err.Error(), nil)
		}
		return Result{}, parseErr
	}

	if isNofollow(doc) {
		return Result{Follow: false}, nil
	}

	var title *string
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		title = &t
	}

	var links []frontier.LinkCandidate
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		if rel, ok := sel.Attr("rel"); ok && strings.Contains(strings.ToLower(rel), "nofollow") {
			return
		}
		links = append(links, frontier.LinkCandidate{
			URL:        href,
			AnchorText: strings.TrimSpace(sel.Text()),
		})
	})

	return Result{Title: title, Links: links, Follow: true}, nil
}

func isNofollow(doc *goquery.Document) bool {
	nofollow := false
	doc.Find(`meta[name="robots"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		content, ok := sel.Attr("content")
		if !ok {
			return true
		}
		if strings.Contains(strings.ToLower(content), "nofollow") {
			nofollow = true
			return false
		}
		return true
	})
	return nofollow
}
