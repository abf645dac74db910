package frontier

import "time"

// Resource is identified by its canonicalized URL. Its URL is immutable
// after creation; a Resource is created at most once per URL.
type Resource struct {
	id          int64
	url         string
	title       *string
	firstSeen   time.Time
	lastFetched *time.Time
	lastCode    *int
	documentID  *int64
}

func (r Resource) ID() int64 { return r.id }

func (r Resource) URL() string { return r.url }

func (r Resource) Title() *string { return r.title }

func (r Resource) FirstSeen() time.Time { return r.firstSeen }

func (r Resource) LastFetched() *time.Time { return r.lastFetched }

func (r Resource) LastCode() *int { return r.lastCode }

func (r Resource) DocumentID() *int64 { return r.documentID }

// LinkCandidate is one entry of a Parser's discovered-link list, before it
// has been resolved and admitted into the Frontier.
type LinkCandidate struct {
	URL        string
	AnchorText string
	Priority   *int
}

// PendingItem is a work ticket referencing exactly one Resource. At most
// one PendingItem exists per Resource at any moment.
type PendingItem struct {
	id         int64
	resourceID int64
	url        string
	priority   *int
	depth      int
	retries    int
	createdAt  time.Time
}

func (p PendingItem) ID() int64 { return p.id }

func (p PendingItem) ResourceID() int64 { return p.resourceID }

func (p PendingItem) URL() string { return p.url }

func (p PendingItem) Priority() *int { return p.priority }

func (p PendingItem) Depth() int { return p.depth }

func (p PendingItem) Retries() int { return p.retries }

func (p PendingItem) CreatedAt() time.Time { return p.createdAt }

// orderedEntry is the in-memory pop-order cache: (pendingId, priority)
// pairs, kept consistent with the pending table by every mutator.
type orderedEntry struct {
	pendingID int64
	priority  *int
}
