package telemetry

import "time"

// ErrorCause is a closed, observability-only classification. It must
// never drive retry, continuation, or abort decisions — those are
// already owned by each package's own failure.ClassifiedError.
type ErrorCause int

const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CausePolicyDisallow
	CauseContentInvalid
	CauseStorageFailure
	CauseInvariantViolation
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CausePolicyDisallow:
		return "policy_disallow"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseStorageFailure:
		return "storage_failure"
	case CauseInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

type AttributeKey string

const (
	AttrURL        AttributeKey = "url"
	AttrHost        AttributeKey = "host"
	AttrDepth       AttributeKey = "depth"
	AttrField       AttributeKey = "field"
	AttrHTTPStatus  AttributeKey = "http_status"
	AttrWritePath   AttributeKey = "write_path"
	AttrMessage     AttributeKey = "message"
	AttrWorker      AttributeKey = "worker"
)

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// ArtifactKind classifies what RecordArtifact just persisted.
type ArtifactKind string

const (
	ArtifactDocument ArtifactKind = "document"
)

// CrawlStats is the terminal, derived summary the orchestrator computes
// once after every worker has stopped. It is never read back to drive
// scheduling.
type CrawlStats struct {
	TotalFetched  int
	TotalAdded    int
	TotalRejected int
	TotalErrors   int
	TotalDocuments int
	Duration      time.Duration
}
