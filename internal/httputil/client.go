// Package httputil provides a security-hardened HTTP client, input sanitization
// and the raw streamed fetch used as the last-resort download strategy.
package httputil

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/grafov/m3u8"
)

// UserAgent is sent with every outbound request.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// ErrPlaylist is returned by Fetch when the URL serves an HLS playlist
// rather than a media file.
var ErrPlaylist = errors.New("url serves an HLS playlist, not a media file")

// maxPlaylistSniff bounds how much of a suspected playlist is parsed.
const maxPlaylistSniff = 1 << 20

// NewClient creates a hardened HTTP client with secure defaults.
// timeout bounds the whole request including the body transfer.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			DisableCompression:  false,
			MaxIdleConnsPerHost: 5,
		},
	}
}

// Get performs a GET request with a browser-like user agent.
func Get(ctx context.Context, client *http.Client, rawURL string) (*http.Response, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	return client.Do(req)
}

// Fetch streams rawURL into dest and returns the number of bytes written.
// At most limit+1 bytes are written so callers can detect oversize bodies
// without filling the disk. The destination file is left in place on error;
// the caller owns its cleanup.
func Fetch(ctx context.Context, client *http.Client, rawURL, dest string, limit int64) (int64, error) {
	resp, err := Get(ctx, client, rawURL)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	if isPlaylistType(resp.Header.Get("Content-Type")) {
		return 0, ErrPlaylist
	}

	body := bufio.NewReaderSize(resp.Body, 64*1024)
	if head, _ := body.Peek(7); string(head) == "#EXTM3U" {
		if looksLikePlaylist(body) {
			return 0, ErrPlaylist
		}
	}

	f, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", dest, err)
	}

	n, err := io.Copy(f, io.LimitReader(body, limit+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("writing %s: %w", dest, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("empty response body from %s", rawURL)
	}

	return n, nil
}

func isPlaylistType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "mpegurl")
}

// looksLikePlaylist parses the buffered head of the body as an m3u8 playlist.
func looksLikePlaylist(r *bufio.Reader) bool {
	head, _ := r.Peek(min(r.Size(), maxPlaylistSniff))
	_, _, err := m3u8.DecodeFrom(bytes.NewReader(head), false)
	return err == nil
}
