package urlutil

import (
	"net/url"
	"regexp"
)

var jsessionidSegment = regexp.MustCompile(`(?i);jsessionid=[^/?#]*`)

// Normalize resolves rawURL against base (if base is non-nil and rawURL is
// relative), strips the fragment, and strips any ";jsessionid=..." path
// segment, then returns the parsed, canonicalized result.
//
// It does not validate scheme/authority; callers enforce the
// http(s)-with-authority invariant separately so they can attach a
// MalformedUrl classification to the failure.
func Normalize(rawURL string, base *url.URL) (url.URL, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return url.URL{}, err
	}

	resolved := parsed
	if base != nil && !parsed.IsAbs() {
		resolved = base.ResolveReference(parsed)
	}

	stripped := *resolved
	stripped.Path = jsessionidSegment.ReplaceAllString(stripped.Path, "")
	stripped.Fragment = ""
	stripped.RawFragment = ""

	return Canonicalize(stripped), nil
}

// Canonicalize applies a deterministic normalization to a URL, producing a canonical form.
// It maps equivalent URL spellings to a single canonical representation.
//
// The normalization follows these rules:
//   - Scheme and host are lowercased
//   - Path is cleaned (trailing slashes removed, except for root "/")
//   - Fragments are removed
//   - Default ports are omitted (e.g., :80 for http, :443 for https)
//
// The query string is left untouched: distinct queries address distinct
// resources (e.g. "/dl?doc=1" vs "/dl?doc=2"), so collapsing them would
// merge unrelated downloads under one Resource.
//
// Properties:
//   - Pure: no state, no memory
//   - Deterministic: same input always produces same output
//   - Idempotent: Canonicalize(Canonicalize(url)) == Canonicalize(url)
//   - Context-free: does not depend on crawl history
func Canonicalize(sourceUrl url.URL) url.URL {
	// Create a copy to avoid mutating the original
	canonical := sourceUrl

	// Lowercase scheme and host
	canonical.Scheme = lowerASCII(canonical.Scheme)
	canonical.Host = lowerASCII(canonical.Host)

	// Remove default port if present
	if host, port := canonical.Hostname(), canonical.Port(); port != "" {
		if (canonical.Scheme == "http" && port == "80") ||
			(canonical.Scheme == "https" && port == "443") {
			canonical.Host = host
		}
	}

	// Clean the path: remove trailing slashes (except root)
	if len(canonical.Path) > 1 {
		canonical.Path = stripTrailingSlash(canonical.Path)
	}

	// Remove fragment (anchor)
	canonical.Fragment = ""
	canonical.RawFragment = ""

	return canonical
}

// lowerASCII converts ASCII characters to lowercase without allocating.
// This is faster than strings.ToLower for ASCII-only strings.
func lowerASCII(s string) string {
	var needsLower bool
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			needsLower = true
			break
		}
	}
	if !needsLower {
		return s
	}
	b := make([]byte, len(s))
	copy(b, s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

// stripTrailingSlash removes trailing slashes from a path.
func stripTrailingSlash(path string) string {
	for len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	return path
}
