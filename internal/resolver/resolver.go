// Package resolver turns a submitted URL into an immutable media descriptor.
package resolver

import (
	"context"
	"errors"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"fetchbot/internal/extract"
	"fetchbot/internal/httputil"
	"fetchbot/internal/media"
	"fetchbot/internal/policy"
)

// GenericPlatform labels sources whose host yields no usable name.
const GenericPlatform = "link"

// DirectPlatform labels direct-file submissions.
const DirectPlatform = "direct"

var errNoPlayable = errors.New("no playable URL or quality list was found")

// Resolver resolves URLs, calling the extractor only for non-direct files.
type Resolver struct {
	ext extract.Extractor
}

// New creates a Resolver backed by ext.
func New(ext extract.Extractor) *Resolver {
	return &Resolver{ext: ext}
}

// Resolve returns a descriptor for rawURL or a *media.Failure tagged
// extraction-failed.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (*media.Descriptor, error) {
	if policy.Classify(rawURL) == policy.DirectFile {
		ext := policy.Extension(rawURL)
		if ext == "" {
			ext = "mp4"
		}
		return &media.Descriptor{
			Kind:        media.DirectFile,
			WebpageURL:  rawURL,
			PlaybackURL: rawURL,
			Ext:         ext,
			Platform:    DirectPlatform,
		}, nil
	}

	info, err := r.ext.Extract(ctx, rawURL)
	if err != nil {
		return nil, media.Fail(media.ReasonExtractionFailed, err)
	}

	variants := Variants(info.Formats)
	if info.URL == "" && len(variants) == 0 {
		return nil, media.Fail(media.ReasonExtractionFailed, errNoPlayable)
	}

	webpage := info.WebpageURL
	if webpage == "" {
		webpage = rawURL
	}
	ext := info.Ext
	if ext == "" {
		ext = "mp4"
	}

	return &media.Descriptor{
		Kind:        media.PlatformDelegate,
		Title:       strings.TrimSpace(info.Title),
		Uploader:    strings.TrimSpace(info.Uploader),
		Duration:    int(info.Duration),
		WebpageURL:  webpage,
		PlaybackURL: info.URL,
		Ext:         ext,
		Variants:    variants,
		Platform:    PlatformLabel(webpage),
	}, nil
}

// Variants keeps the first format seen per height, drops entries without a
// height or format id, and sorts by height descending.
func Variants(formats []extract.Format) []media.Variant {
	seen := make(map[int]bool)
	var out []media.Variant
	for _, f := range formats {
		if f.Height <= 0 || f.FormatID == "" {
			continue
		}
		if seen[f.Height] {
			continue
		}
		seen[f.Height] = true

		ext := f.Ext
		if ext == "" {
			ext = "mp4"
		}
		out = append(out, media.Variant{
			Height:   f.Height,
			FormatID: f.FormatID,
			Ext:      ext,
			Size:     f.Size(),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Height > out[j].Height })
	return out
}

// PlatformLabel returns the second-to-last label of the page host,
// e.g. "tiktok" for www.tiktok.com.
func PlatformLabel(pageURL string) string {
	host := httputil.Hostname(pageURL)
	parts := strings.Split(host, ".")
	if host == "" || len(parts) < 2 || parts[len(parts)-2] == "" {
		return GenericPlatform
	}
	return parts[len(parts)-2]
}

var titleCaser = cases.Title(language.Und)

// DisplayName is the human-readable platform name shown to users.
func DisplayName(d *media.Descriptor) string {
	switch {
	case d.Kind == media.DirectFile:
		return "Direct link"
	case d.Platform == "" || d.Platform == GenericPlatform:
		return "Unknown platform"
	default:
		return titleCaser.String(d.Platform)
	}
}
