package store

import "strings"

// canonicalExtensions maps a MIME type (without parameters) to the file
// extension Store appends when filename lacks one. Kept small and
// explicit rather than delegating to mime.ExtensionsByType, since that
// stdlib table is OS/mime.types-dependent and would make filenames
// non-deterministic across machines.
var canonicalExtensions = map[string]string{
	"application/pdf": ".pdf",
	"text/html":        ".html",
	"text/plain":       ".txt",
	"application/json": ".json",
	"application/xml":  ".xml",
	"text/xml":         ".xml",
}

func canonicalExtension(mimeType string) string {
	return canonicalExtensions[strings.ToLower(strings.TrimSpace(mimeType))]
}

func isTextMIME(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.HasPrefix(mimeType, "text/") ||
		mimeType == "application/json" ||
		mimeType == "application/xml"
}
