package robots

import (
	"net/url"
	"time"

	"github.com/temoto/robotstxt"
)

// DecisionReason records why a Decision was made, for logging/debugging.
// It never drives control flow outside this package.
type DecisionReason string

const (
	AllowedByRobots    DecisionReason = "allowed_by_robots"
	DisallowedByRobots DecisionReason = "disallowed_by_robots"
	EmptyRuleSet       DecisionReason = "empty_rule_set"
	FetchFailedAllow   DecisionReason = "fetch_failed_permit_all"
)

// Decision is the result of checking one URL against a host's robots.txt.
type Decision struct {
	URL        url.URL
	Allowed    bool
	Reason     DecisionReason
	CrawlDelay *time.Duration
}

// entry is the per-host cache line. A nil data field with allowAll true
// means robots.txt could not be obtained and every path is permitted;
// once installed, this entry is never replaced for the lifetime of the
// cache — see spec.md §9 Open Question 2.
type entry struct {
	allowAll   bool
	data       *robotstxt.RobotsData
	crawlDelay *time.Duration
	fetchedAt  time.Time
}
