// Package extract resolves page URLs into media metadata by running yt-dlp,
// optionally falling back to the page's OpenGraph tags.
package extract

import (
	"context"
	"errors"
	"fmt"
)

// Format is one raw format entry reported by the extractor.
type Format struct {
	FormatID       string `json:"format_id"`
	Height         int    `json:"height"`
	Ext            string `json:"ext"`
	Filesize       int64  `json:"filesize"`
	FilesizeApprox int64  `json:"filesize_approx"`
}

// Size returns the exact size when known, otherwise the approximation.
func (f Format) Size() int64 {
	if f.Filesize > 0 {
		return f.Filesize
	}
	return f.FilesizeApprox
}

// Info is the metadata of one extracted page.
type Info struct {
	Title      string   `json:"title"`
	Uploader   string   `json:"uploader"`
	Duration   float64  `json:"duration"`
	Thumbnail  string   `json:"thumbnail"`
	URL        string   `json:"url"` // Direct URL of the selected default format
	Ext        string   `json:"ext"`
	Filesize   int64    `json:"filesize"`
	WebpageURL string   `json:"webpage_url"`
	Formats    []Format `json:"formats"`
}

// Extractor turns a page URL into metadata.
type Extractor interface {
	Extract(ctx context.Context, pageURL string) (*Info, error)
}

// Chain tries each extractor in order and returns the first success.
type Chain []Extractor

// Extract implements Extractor.
func (c Chain) Extract(ctx context.Context, pageURL string) (*Info, error) {
	if len(c) == 0 {
		return nil, fmt.Errorf("no extractors configured")
	}
	var errs []error
	for _, e := range c {
		info, err := e.Extract(ctx, pageURL)
		if err == nil {
			return info, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(errs...)
}
