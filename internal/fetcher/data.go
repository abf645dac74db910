package fetcher

import (
	"net/url"
	"time"
)

// FetchParam carries the request-side inputs to a Fetch call.
type FetchParam struct {
	fetchURL  url.URL
	userAgent string
	timeout   time.Duration
}

func NewFetchParam(fetchURL url.URL, userAgent string, timeout time.Duration) FetchParam {
	return FetchParam{fetchURL: fetchURL, userAgent: userAgent, timeout: timeout}
}

// FetchResult is the tuple spec.md §4.A describes: (code, mime,
// filename, bytes, encoding). Code is nil on transport failure
// (unreachable); all other fields are then empty. On an HTTP protocol
// error the real status code is returned with the remaining fields
// empty, since no body is worth keeping.
type FetchResult struct {
	url      url.URL
	code     *int
	mime     string
	filename string
	body     []byte
	encoding string
	fetchedAt time.Time
}

func (r FetchResult) URL() url.URL { return r.url }

func (r FetchResult) Code() *int { return r.code }

func (r FetchResult) MIME() string { return r.mime }

func (r FetchResult) Filename() string { return r.filename }

func (r FetchResult) Body() []byte { return r.body }

func (r FetchResult) Encoding() string { return r.encoding }

func (r FetchResult) FetchedAt() time.Time { return r.fetchedAt }

// NewFetchResultForTest builds a FetchResult without exposing its
// unexported fields to every caller.
func NewFetchResultForTest(url url.URL, code *int, mime, filename string, body []byte, encoding string, fetchedAt time.Time) FetchResult {
	return FetchResult{
		url:       url,
		code:      code,
		mime:      mime,
		filename:  filename,
		body:      body,
		encoding:  encoding,
		fetchedAt: fetchedAt,
	}
}
