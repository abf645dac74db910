// Package frontier implements the persistent priority queue + URL dedup
// set + retry bookkeeping described as the Frontier component: a single
// process-wide object owning the durable queue plus two in-memory
// indexes (the pop-order sequence and the URL set).
package frontier

import (
	"database/sql"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/rohmanhakim/pdfcrawler/pkg/failure"
	"github.com/rohmanhakim/pdfcrawler/pkg/urlutil"
)

// Options configures a Frontier at construction time; it never changes
// afterward.
type Options struct {
	// AllDomains disables the domain gate in Add.
	AllDomains bool
	// BaseAuthority is the seed URL's authority; only used when
	// !AllDomains.
	BaseAuthority string
	// RetryCap is the total number of fetch attempts, the first included,
	// an item gets before discardOrRetry discards it permanently.
	RetryCap int
}

// Frontier is the single process-wide durable queue. Every mutator and
// every read of the ordered sequence is taken under mu; all DB writes
// issued under that lock are committed before release. The backing store
// is a single embedded SQL file, so correctness dominates throughput.
type Frontier struct {
	mu sync.Mutex

	db      *sql.DB
	opts    Options
	order   []orderedEntry
	urlSeen *Set[string]
	// activePending maps resourceID -> pendingID for resources that
	// currently have a PendingItem, so Add can tell "already processed"
	// (no entry here) from "still queued" (entry present).
	activePending map[int64]int64
}

// Open loads the in-memory order cache and URL set from db's existing
// pending/resources rows (e.g. after a process restart with
// --preserve-queue) and returns a ready Frontier.
func Open(db *sql.DB, opts Options) (*Frontier, error) {
	f := &Frontier{
		db:            db,
		opts:          opts,
		urlSeen:       NewSet[string](),
		activePending: make(map[int64]int64),
	}

	rows, err := db.Query(`
		SELECT p.id, p.priority, p.resource_id, r.url
		FROM pending p JOIN resources r ON r.id = p.resource_id
		ORDER BY p.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("load pending: %w", err)
	}
	defer rows.Close()

	var toInsert []orderedEntry
	for rows.Next() {
		var id, resourceID int64
		var priority sql.NullInt64
		var u string
		if err := rows.Scan(&id, &priority, &resourceID, &u); err != nil {
			return nil, fmt.Errorf("scan pending: %w", err)
		}
		entry := orderedEntry{pendingID: id}
		if priority.Valid {
			p := int(priority.Int64)
			entry.priority = &p
		}
		toInsert = append(toInsert, entry)
		f.activePending[resourceID] = id
		f.urlSeen.Add(u)
	}

	urlRows, err := db.Query(`SELECT url FROM resources`)
	if err != nil {
		return nil, fmt.Errorf("load resources: %w", err)
	}
	defer urlRows.Close()
	for urlRows.Next() {
		var u string
		if err := urlRows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan resources: %w", err)
		}
		f.urlSeen.Add(u)
	}

	for _, entry := range toInsert {
		f.insertOrdered(entry.pendingID, entry.priority)
	}

	return f, nil
}

// Len returns the current cached length of the ordered sequence.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}

// Next pops the front of the cached sequence and loads the full
// PendingItem from the database by id. The DB row is not deleted here;
// deletion happens only in Discard/DiscardOrRetry, so an in-flight item
// survives a crash. Returns a QueueEmpty FrontierError when the cache is
// empty.
func (f *Frontier) Next() (PendingItem, failure.ClassifiedError) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.order) == 0 {
		return PendingItem{}, &FrontierError{
			Message:   "no pending items",
			Retryable: true,
			Cause:     ErrCauseQueueEmpty,
		}
	}

	entry := f.order[0]
	f.order = f.order[1:]

	item, err := f.loadPendingItem(entry.pendingID)
	if err != nil {
		return PendingItem{}, &FrontierError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseStorageFailure,
		}
	}
	return item, nil
}

func (f *Frontier) loadPendingItem(id int64) (PendingItem, error) {
	row := f.db.QueryRow(`
		SELECT p.id, p.resource_id, r.url, p.priority, p.depth, p.retries, p.timestamp
		FROM pending p JOIN resources r ON r.id = p.resource_id
		WHERE p.id = ?`, id)

	var item PendingItem
	var priority sql.NullInt64
	if err := row.Scan(&item.id, &item.resourceID, &item.url, &priority, &item.depth, &item.retries, &item.createdAt); err != nil {
		return PendingItem{}, err
	}
	if priority.Valid {
		p := int(priority.Int64)
		item.priority = &p
	}
	return item, nil
}

// Add normalizes and validates targetURL, applies the domain gate, and
// either creates a fresh PendingItem or reuses/raises the priority of an
// existing one, per spec §4.D step-by-step.
func (f *Frontier) Add(targetURL string, referrer *PendingItem, priority *int) (PendingItem, bool, failure.ClassifiedError) {
	var base *url.URL
	var referrerURL string
	if referrer != nil {
		if parsed, err := url.Parse(referrer.URL()); err == nil {
			base = parsed
			referrerURL = referrer.URL()
		}
	}

	normalized, err := urlutil.Normalize(targetURL, base)
	if err != nil {
		return PendingItem{}, false, &FrontierError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseMalformedURL,
		}
	}
	if normalized.Scheme != "http" && normalized.Scheme != "https" {
		return PendingItem{}, false, &FrontierError{
			Message:   fmt.Sprintf("unsupported scheme %q", normalized.Scheme),
			Retryable: false,
			Cause:     ErrCauseMalformedURL,
		}
	}
	if normalized.Host == "" {
		return PendingItem{}, false, &FrontierError{
			Message:   "empty authority",
			Retryable: false,
			Cause:     ErrCauseMalformedURL,
		}
	}

	if !f.opts.AllDomains && referrerURL != "" && normalized.Host != f.opts.BaseAuthority {
		return PendingItem{}, false, &FrontierError{
			Message:   fmt.Sprintf("%s not in base domain %s", normalized.Host, f.opts.BaseAuthority),
			Retryable: false,
			Cause:     ErrCauseNotInBaseDomain,
		}
	}

	normalizedURL := normalized.String()
	depth := 0
	if referrer != nil {
		depth = referrer.Depth() + 1
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.addLocked(normalizedURL, depth, priority)
}

func (f *Frontier) addLocked(normalizedURL string, depth int, priority *int) (PendingItem, bool, failure.ClassifiedError) {
	now := time.Now()

	if f.urlSeen.Contains(normalizedURL) {
		resourceID, err := f.resourceIDForURL(normalizedURL)
		if err != nil {
			return PendingItem{}, false, &FrontierError{Message: err.Error(), Cause: ErrCauseStorageFailure}
		}

		if pendingID, active := f.activePending[resourceID]; active {
			// Existing PendingItem: raise priority if the new one is
			// higher, never lower it.
			item, err := f.loadPendingItem(pendingID)
			if err != nil {
				return PendingItem{}, false, &FrontierError{Message: err.Error(), Cause: ErrCauseStorageFailure}
			}
			if higherPriority(priority, item.priority) {
				item.priority = priority
				if _, err := f.db.Exec(`UPDATE pending SET priority = ? WHERE id = ?`, toNullInt64(priority), item.id); err != nil {
					return PendingItem{}, false, &FrontierError{Message: err.Error(), Cause: ErrCauseStorageFailure}
				}
				f.insertOrdered(item.id, item.priority)
			}
			return item, false, nil
		}

		// Already processed: fresh PendingItem against the existing
		// Resource row. Depth is not recomputed on rediscovery
		// (spec §9 open question 3) — it is irrelevant here since no
		// prior PendingItem depth exists to preserve, so the
		// rediscovery's own depth is used for this fresh ticket.
		item, err := f.insertPending(resourceID, normalizedURL, depth, priority, now)
		if err != nil {
			return PendingItem{}, false, &FrontierError{Message: err.Error(), Cause: ErrCauseStorageFailure}
		}
		return item, true, nil
	}

	resourceID, err := f.insertResource(normalizedURL, now)
	if err != nil {
		return PendingItem{}, false, &FrontierError{Message: err.Error(), Cause: ErrCauseStorageFailure}
	}
	f.urlSeen.Add(normalizedURL)

	item, err := f.insertPending(resourceID, normalizedURL, depth, priority, now)
	if err != nil {
		return PendingItem{}, false, &FrontierError{Message: err.Error(), Cause: ErrCauseStorageFailure}
	}
	return item, true, nil
}

// Resource loads the Resource row referenced by id, for callers (the
// Dispatcher, Store) that need the Resource's url/title/lastCode rather
// than just the PendingItem ticket pointing at it.
func (f *Frontier) Resource(id int64) (Resource, failure.ClassifiedError) {
	row := f.db.QueryRow(`
		SELECT id, title, url, timestamp, fetched, last_code, document_id
		FROM resources WHERE id = ?`, id)

	var r Resource
	var title sql.NullString
	var fetched sql.NullTime
	var lastCode sql.NullInt64
	var documentID sql.NullInt64
	if err := row.Scan(&r.id, &title, &r.url, &r.firstSeen, &fetched, &lastCode, &documentID); err != nil {
		return Resource{}, &FrontierError{Message: err.Error(), Cause: ErrCauseStorageFailure}
	}
	if title.Valid {
		r.title = &title.String
	}
	if fetched.Valid {
		r.lastFetched = &fetched.Time
	}
	if lastCode.Valid {
		code := int(lastCode.Int64)
		r.lastCode = &code
	}
	if documentID.Valid {
		r.documentID = &documentID.Int64
	}
	return r, nil
}

func (f *Frontier) resourceIDForURL(u string) (int64, error) {
	var id int64
	err := f.db.QueryRow(`SELECT id FROM resources WHERE url = ?`, u).Scan(&id)
	return id, err
}

func (f *Frontier) insertResource(u string, now time.Time) (int64, error) {
	res, err := f.db.Exec(`INSERT INTO resources (url, timestamp) VALUES (?, ?)`, u, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (f *Frontier) insertPending(resourceID int64, u string, depth int, priority *int, now time.Time) (PendingItem, error) {
	res, err := f.db.Exec(
		`INSERT INTO pending (priority, resource_id, depth, retries, timestamp) VALUES (?, ?, ?, 0, ?)`,
		toNullInt64(priority), resourceID, depth, now,
	)
	if err != nil {
		return PendingItem{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return PendingItem{}, err
	}

	item := PendingItem{
		id:         id,
		resourceID: resourceID,
		url:        u,
		priority:   priority,
		depth:      depth,
		createdAt:  now,
	}
	f.activePending[resourceID] = id
	f.insertOrdered(id, priority)
	return item, nil
}

// AddList applies referrerItem's referrer page title to its Resource,
// then calls Add for each discovered link, inserting a Link edge per
// successful add. Invalid URLs increment the rejected counter instead of
// propagating.
func (f *Frontier) AddList(referrerItem PendingItem, title *string, links []LinkCandidate) (added int, rejected int, err failure.ClassifiedError) {
	if title != nil {
		f.mu.Lock()
		_, execErr := f.db.Exec(`UPDATE resources SET title = ? WHERE id = ?`, *title, referrerItem.ResourceID())
		f.mu.Unlock()
		if execErr != nil {
			return 0, 0, &FrontierError{Message: execErr.Error(), Cause: ErrCauseStorageFailure}
		}
	}

	for _, link := range links {
		item, _, addErr := f.Add(link.URL, &referrerItem, link.Priority)
		if addErr != nil {
			rejected++
			continue
		}

		f.mu.Lock()
		_, execErr := f.db.Exec(
			`INSERT INTO links (text, referrer_id, target_id) VALUES (?, ?, ?)`,
			link.AnchorText, referrerItem.ResourceID(), item.ResourceID(),
		)
		f.mu.Unlock()
		if execErr != nil {
			return added, rejected, &FrontierError{Message: execErr.Error(), Cause: ErrCauseStorageFailure}
		}
		added++
	}
	return added, rejected, nil
}

// Discard deletes item's PendingItem row — the successful terminal state.
func (f *Frontier) Discard(item PendingItem) failure.ClassifiedError {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deletePending(item)
}

func (f *Frontier) deletePending(item PendingItem) failure.ClassifiedError {
	if _, err := f.db.Exec(`DELETE FROM pending WHERE id = ?`, item.ID()); err != nil {
		return &FrontierError{Message: err.Error(), Cause: ErrCauseStorageFailure}
	}
	delete(f.activePending, item.ResourceID())
	for i, e := range f.order {
		if e.pendingID == item.ID() {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

// DiscardOrRetry deletes item if its retry cap is reached (returning
// exhausted=true); otherwise it increments retries, halves the priority
// (if non-null), persists, and reinserts it into the ordered sequence.
func (f *Frontier) DiscardOrRetry(item PendingItem) (exhausted bool, err failure.ClassifiedError) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if item.retries+1 >= f.opts.RetryCap {
		return true, f.deletePending(item)
	}

	item.retries++
	if item.priority != nil {
		halved := *item.priority / 2
		item.priority = &halved
	}

	if _, execErr := f.db.Exec(
		`UPDATE pending SET retries = ?, priority = ? WHERE id = ?`,
		item.retries, toNullInt64(item.priority), item.id,
	); execErr != nil {
		return false, &FrontierError{Message: execErr.Error(), Cause: ErrCauseStorageFailure}
	}

	f.insertOrdered(item.id, item.priority)
	return false, nil
}

// Clear wipes the cache and the pending table; used when a new seed
// replaces the existing frontier. Resources and the URL set are kept, so
// re-adding a URL seen before Clear gives it a fresh PendingItem against
// its existing Resource.
func (f *Frontier) Clear() (int, failure.ClassifiedError) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := len(f.order)
	if _, err := f.db.Exec(`DELETE FROM pending`); err != nil {
		return 0, &FrontierError{Message: err.Error(), Cause: ErrCauseStorageFailure}
	}
	f.order = nil
	f.activePending = make(map[int64]int64)
	return count, nil
}

// RecordFetchOutcome stamps a Resource with its fetch timestamp and HTTP
// status code, called by the Dispatcher after every fetch attempt.
func (f *Frontier) RecordFetchOutcome(resourceID int64, code *int) failure.ClassifiedError {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.db.Exec(
		`UPDATE resources SET fetched = ?, last_code = ? WHERE id = ?`,
		time.Now(), toNullInt64(code), resourceID,
	); err != nil {
		return &FrontierError{Message: err.Error(), Cause: ErrCauseStorageFailure}
	}
	return nil
}

// insertOrdered implements spec §4.D's insertion algorithm: drop any
// existing entry with the same id, then if p is null append to the end,
// else insert before the first element whose priority is null or
// strictly less than p.
func (f *Frontier) insertOrdered(id int64, p *int) {
	for i, e := range f.order {
		if e.pendingID == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}

	if p == nil {
		f.order = append(f.order, orderedEntry{pendingID: id, priority: nil})
		return
	}

	for i, e := range f.order {
		if e.priority == nil || *e.priority < *p {
			f.order = append(f.order[:i], append([]orderedEntry{{pendingID: id, priority: p}}, f.order[i:]...)...)
			return
		}
	}
	f.order = append(f.order, orderedEntry{pendingID: id, priority: p})
}

// higherPriority reports whether a is strictly greater than b, treating
// nil as negative infinity.
func higherPriority(a, b *int) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return *a > *b
}

func toNullInt64(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}
