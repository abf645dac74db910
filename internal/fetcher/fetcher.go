// Package fetcher performs the one HTTP GET per Resource the Dispatcher
// needs, encoding every outcome into a FetchResult tuple rather than an
// error: per spec.md §4.A the Fetcher never raises. Transport failure
// (DNS, connect, reset, redirect loop) produces a nil code; an HTTP
// protocol error produces the real status code with every other field
// empty; only context cancellation propagates as a ClassifiedError, so
// the Dispatcher can distinguish "stop the crawl" from "this one
// resource failed".
package fetcher

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rohmanhakim/pdfcrawler/internal/telemetry"
	"github.com/rohmanhakim/pdfcrawler/pkg/failure"
	"github.com/rohmanhakim/pdfcrawler/pkg/retry"
)

// Fetcher is satisfied by the default HTTP implementation below and by
// any other implementation handed to dispatcher.New.
type Fetcher interface {
	Fetch(ctx context.Context, param FetchParam, retryParam retry.RetryParam, crawlDepth int) (FetchResult, failure.ClassifiedError)
}

// HTTPFetcher is the default Fetcher, a thin wrapper around net/http
// that applies spec.md §4.A's status-code classification and retries
// transport-level failures through pkg/retry.
type HTTPFetcher struct {
	httpClient *http.Client
	sink       telemetry.MetadataSink
}

func NewHTTPFetcher(timeout time.Duration, sink telemetry.MetadataSink) *HTTPFetcher {
	return &HTTPFetcher{httpClient: &http.Client{Timeout: timeout}, sink: sink}
}

func (h *HTTPFetcher) Fetch(ctx context.Context, param FetchParam, retryParam retry.RetryParam, crawlDepth int) (FetchResult, failure.ClassifiedError) {
	if err := ctx.Err(); err != nil {
		return FetchResult{}, &FetchError{Message: err.Error(), Retryable: false, Cause: ErrCauseNetworkFailure}
	}

	start := time.Now()
	result := retry.Retry(retryParam, func() (FetchResult, failure.ClassifiedError) {
		return h.performFetch(ctx, param)
	})
	duration := time.Since(start)

	if result.IsFailure() {
		// Every transport-level failure — construction error, network
		// error, exhausted retries, body read failure — collapses to
		// the "unreachable" sentinel. Fetch never raises.
		out := unreachable(param.fetchURL)
		if h.sink != nil {
			h.sink.RecordFetch(param.fetchURL.String(), 0, duration, "", result.Attempts()-1, crawlDepth)
			h.sink.RecordError(time.Now(), "fetcher", "Fetch", telemetry.CauseNetworkFailure, result.Err().Error(), []telemetry.Attribute{
				telemetry.NewAttr(telemetry.AttrURL, param.fetchURL.String()),
			})
		}
		return out, nil
	}

	if h.sink != nil {
		code := 0
		if result.Value().Code() != nil {
			code = *result.Value().Code()
		}
		h.sink.RecordFetch(param.fetchURL.String(), code, duration, result.Value().MIME(), result.Attempts()-1, crawlDepth)
	}
	return result.Value(), nil
}

func unreachable(fetchURL url.URL) FetchResult {
	return FetchResult{url: fetchURL, fetchedAt: time.Now()}
}

func (h *HTTPFetcher) performFetch(ctx context.Context, param FetchParam) (FetchResult, failure.ClassifiedError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, param.fetchURL.String(), nil)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	for key, value := range requestHeaders(param.userAgent) {
		req.Header.Set(key, value)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: true,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		code := resp.StatusCode
		return FetchResult{url: param.fetchURL, code: &code, fetchedAt: time.Now()}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to read response body: %v", err),
			Retryable: true,
			Cause:     ErrCauseReadResponseBodyError,
		}
	}

	code := resp.StatusCode
	mimeType, encoding := parseContentType(resp.Header.Get("Content-Type"))
	filename := filenameFromResponse(resp, param.fetchURL)

	return FetchResult{
		url:       param.fetchURL,
		code:      &code,
		mime:      mimeType,
		filename:  filename,
		body:      body,
		encoding:  encoding,
		fetchedAt: time.Now(),
	}, nil
}

func parseContentType(header string) (mimeType, charset string) {
	if header == "" {
		return "", ""
	}
	parsed, params, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.TrimSpace(strings.Split(header, ";")[0]), ""
	}
	return parsed, params["charset"]
}

func filenameFromResponse(resp *http.Response, fetchURL url.URL) string {
	if disposition := resp.Header.Get("Content-Disposition"); disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
	}
	return path.Base(fetchURL.Path)
}

func requestHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "*/*",
		"Accept-Language": "en-US,en;q=0.5",
		"Connection":      "keep-alive",
	}
}
