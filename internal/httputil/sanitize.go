package httputil

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// ValidateURL checks that a URL is well-formed and uses HTTP or HTTPS.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("only HTTP(S) URLs are allowed, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}

// Hostname returns the lower-cased host of rawURL without port,
// or "" when the URL cannot be parsed.
func Hostname(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// MediaExt reduces a container extension reported by a remote source to
// lower-case letters and digits, falling back to "mp4" when nothing usable
// remains. The result is safe to append to a temp base path.
func MediaExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	var b strings.Builder
	for _, r := range ext {
		if b.Len() == maxExtLen {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "mp4"
	}
	return b.String()
}

const maxExtLen = 8

// TempBase returns the absolute artifact base path dir/prefix-id. The id
// must be a plain token such as a UUID; anything that could name another
// directory is rejected.
func TempBase(dir, prefix, id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\.:`+"\x00") {
		return "", fmt.Errorf("invalid temp id %q", id)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving temp dir: %w", err)
	}
	base := filepath.Join(absDir, prefix+"-"+id)
	if filepath.Dir(base) != absDir {
		return "", fmt.Errorf("temp base %q escapes %q", base, absDir)
	}
	return base, nil
}
