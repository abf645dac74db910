// Package robots enforces robots.txt Disallow rules before a queued URL
// is fetched. Rules are fetched and cached per host for
// the lifetime of a crawl: a host is never re-fetched mid-crawl, and a
// host whose robots.txt could not be obtained is marked permit-all once
// and never revisited, so a transient fetch failure can never silently
// reinstate a Disallow rule it never actually read.
package robots

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/rohmanhakim/pdfcrawler/internal/telemetry"
	"github.com/rohmanhakim/pdfcrawler/pkg/failure"
	"github.com/rohmanhakim/pdfcrawler/pkg/retry"
)

const robotsTxtPath = "/robots.txt"

const maxRobotsBodyBytes = 512 * 1024

// Cache fetches and caches robots.txt rules per host.
type Cache struct {
	httpClient *http.Client
	userAgent  string
	retryParam retry.RetryParam
	sink       telemetry.MetadataSink

	mu      sync.RWMutex
	entries map[string]entry
}

// NewCache builds a Cache that fetches robots.txt with httpClient,
// evaluates rules against userAgent, and retries transient fetch
// failures per retryParam.
func NewCache(httpClient *http.Client, userAgent string, retryParam retry.RetryParam, sink telemetry.MetadataSink) *Cache {
	return &Cache{
		httpClient: httpClient,
		userAgent:  userAgent,
		retryParam: retryParam,
		sink:       sink,
		entries:    make(map[string]entry),
	}
}

// Allowed reports whether rawURL may be fetched under the target host's
// robots.txt, fetching and caching the policy on first use.
func (c *Cache) Allowed(ctx context.Context, rawURL string) (Decision, failure.ClassifiedError) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Decision{}, &RobotsError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseInvalidRobotsURL,
		}
	}

	host := strings.ToLower(parsed.Host)
	e, ok := c.getCached(host)
	if !ok {
		e = c.fetchAndCache(ctx, parsed.Scheme, host)
	}

	if e.allowAll || e.data == nil {
		return Decision{URL: *parsed, Allowed: true, Reason: decisionReasonForEmpty(e)}, nil
	}

	if !e.data.TestAgent(parsed.Path, c.userAgent) {
		return Decision{URL: *parsed, Allowed: false, Reason: DisallowedByRobots, CrawlDelay: e.crawlDelay}, nil
	}
	return Decision{URL: *parsed, Allowed: true, Reason: AllowedByRobots, CrawlDelay: e.crawlDelay}, nil
}

func decisionReasonForEmpty(e entry) DecisionReason {
	if e.allowAll {
		return FetchFailedAllow
	}
	return EmptyRuleSet
}

func (c *Cache) getCached(host string) (entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[host]
	return e, ok
}

// fetchAndCache fetches host's robots.txt and installs the resulting
// entry permanently. Any fetch or parse failure installs a permit-all
// entry instead — that entry, once written, is never overwritten by a
// later successful fetch for the same host during this process's
// lifetime.
func (c *Cache) fetchAndCache(ctx context.Context, scheme, host string) entry {
	if scheme == "" {
		scheme = "https"
	}

	result := retry.Retry(c.retryParam, func() (entry, failure.ClassifiedError) {
		return c.fetchOnce(ctx, scheme, host)
	})

	e := result.Value()
	if result.IsFailure() {
		e = entry{allowAll: true, fetchedAt: time.Now()}
		if c.sink != nil {
			c.sink.RecordError(time.Now(), "robots", "fetchAndCache", telemetry.CauseNetworkFailure, result.Err().Error(), []telemetry.Attribute{
				telemetry.NewAttr(telemetry.AttrHost, host),
			})
		}
	}

	c.mu.Lock()
	if existing, ok := c.entries[host]; ok {
		c.mu.Unlock()
		return existing
	}
	c.entries[host] = e
	c.mu.Unlock()

	return e
}

func (c *Cache) fetchOnce(ctx context.Context, scheme, host string) (entry, failure.ClassifiedError) {
	robotsURL := fmt.Sprintf("%s://%s%s", scheme, host, robotsTxtPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return entry{}, &RobotsError{Message: err.Error(), Retryable: false, Cause: ErrCauseInvalidRobotsURL}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return entry{}, &RobotsError{Message: err.Error(), Retryable: true, Cause: ErrCauseHttpFetchFailure}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return entry{allowAll: true, fetchedAt: time.Now()}, nil
	}
	if resp.StatusCode >= 500 {
		return entry{}, &RobotsError{
			Message:   fmt.Sprintf("server error %d fetching %s", resp.StatusCode, robotsURL),
			Retryable: true,
			Cause:     ErrCauseHttpFetchFailure,
		}
	}

	body := make([]byte, 0, maxRobotsBodyBytes)
	buf := make([]byte, 32*1024)
	for len(body) < maxRobotsBodyBytes {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			body = append(body, buf[:n]...)
		}
		if readErr != nil {
			break
		}
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return entry{}, &RobotsError{Message: err.Error(), Retryable: false, Cause: ErrCauseParseError}
	}

	var crawlDelay *time.Duration
	if group := data.FindGroup(c.userAgent); group != nil && group.CrawlDelay > 0 {
		d := group.CrawlDelay
		crawlDelay = &d
	}

	return entry{fetchedAt: time.Now(), data: data, crawlDelay: crawlDelay}, nil
}
