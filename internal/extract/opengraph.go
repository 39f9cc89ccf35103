package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"fetchbot/internal/httputil"
)

// maxPageSize bounds how much HTML is parsed.
const maxPageSize = 5 * 1024 * 1024

// OpenGraph extracts a video URL from a page's og:video meta tags.
// It reports no formats; the result is only useful for direct streaming.
type OpenGraph struct {
	client *http.Client
}

// NewOpenGraph creates an OpenGraph extractor using client.
func NewOpenGraph(client *http.Client) *OpenGraph {
	return &OpenGraph{client: client}
}

// Extract implements Extractor.
func (o *OpenGraph) Extract(ctx context.Context, pageURL string) (*Info, error) {
	resp, err := httputil.Get(ctx, o.client, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	return parseOpenGraph(doc, pageURL)
}

// parseOpenGraph reads og:video (preferring the secure URL) and og:title.
func parseOpenGraph(doc *goquery.Document, pageURL string) (*Info, error) {
	meta := func(prop string) string {
		v, _ := doc.Find(fmt.Sprintf(`meta[property=%q]`, prop)).First().Attr("content")
		return strings.TrimSpace(v)
	}

	var videoURL string
	for _, prop := range []string{"og:video:secure_url", "og:video:url", "og:video"} {
		if v := meta(prop); v != "" && httputil.ValidateURL(v) == nil {
			videoURL = v
			break
		}
	}
	if videoURL == "" {
		return nil, fmt.Errorf("no og:video tag on %s", pageURL)
	}

	info := &Info{
		Title:      meta("og:title"),
		URL:        videoURL,
		Ext:        "mp4",
		WebpageURL: meta("og:url"),
	}
	if info.WebpageURL == "" {
		info.WebpageURL = pageURL
	}
	return info, nil
}
