package policy

import (
	"net/url"
	"path"
	"strings"
)

// VideoExtensions are path suffixes that mark a URL as a playable file.
var VideoExtensions = []string{".mp4", ".webm", ".mov", ".mkv"}

// Class is the outcome of classifying a submitted URL.
type Class int

const (
	NeedsResolution Class = iota
	DirectFile
)

func (c Class) String() string {
	if c == DirectFile {
		return "direct-file"
	}
	return "needs-resolution"
}

// Classify marks URLs whose path ends in a known video extension as direct
// files. Query string and fragment are ignored.
func Classify(rawURL string) Class {
	base := strings.ToLower(stripQuery(rawURL))
	for _, ext := range VideoExtensions {
		if strings.HasSuffix(base, ext) {
			return DirectFile
		}
	}
	return NeedsResolution
}

// Extension returns the lower-cased file extension of the URL path without
// the dot, or "" when there is none.
func Extension(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	ext := path.Ext(u.Path)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func stripQuery(rawURL string) string {
	base := strings.TrimSpace(rawURL)
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	return base
}
