package parser

import "github.com/rohmanhakim/pdfcrawler/internal/frontier"

// Result is the Parser contract's (title, links) tuple from spec.md §6,
// plus the nofollow signal rolled into a single Follow flag: a
// not-Follow result carries a nil Title and an empty Links slice by
// construction, mirroring the contract's "return null, [] to indicate
// document forbids following".
type Result struct {
	Title  *string
	Links  []frontier.LinkCandidate
	Follow bool
}
