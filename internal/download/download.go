// Package download fetches media to local artifacts using yt-dlp.
// yt-dlp is invoked with explicit argument slices, and every artifact is
// written under a caller-allocated base path so concurrent requests never
// share filenames.
package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fetchbot/internal/extract"
)

// Artifact is a downloaded file on local disk.
type Artifact struct {
	Path string
	Size int64
}

// Downloader fetches media for a page URL to files under base.
// base is a path without extension; implementations choose the extension.
type Downloader interface {
	Video(ctx context.Context, pageURL, formatID, base string) (Artifact, error)
	Audio(ctx context.Context, pageURL, base string) (Artifact, error)
}

var (
	videoExts = []string{"mp4", "webm", "mkv", "mov"}
	audioExts = []string{"mp3", "m4a", "webm", "opus", "ogg"}
)

// YtDlp downloads through the yt-dlp binary configured on ext.
type YtDlp struct {
	ext     *extract.YtDlp
	timeout time.Duration
}

// NewYtDlp creates a downloader sharing binary path, retries, size policy
// and runner with the metadata extractor. timeout bounds each download.
func NewYtDlp(ext *extract.YtDlp, timeout time.Duration) *YtDlp {
	return &YtDlp{ext: ext, timeout: timeout}
}

// Video downloads pageURL with formatID, or the default quality policy
// when formatID is empty.
func (y *YtDlp) Video(ctx context.Context, pageURL, formatID, base string) (Artifact, error) {
	format := formatID
	if format == "" {
		format = extract.VideoFormat(y.ext.MaxBytes)
	}
	if err := y.run(ctx, pageURL, format, base); err != nil {
		return Artifact{}, fmt.Errorf("video download failed: %w", err)
	}
	a, err := Find(base, videoExts)
	if err != nil {
		return Artifact{}, fmt.Errorf("video download failed: %w", err)
	}
	return a, nil
}

// Audio downloads the best audio stream under the size policy.
func (y *YtDlp) Audio(ctx context.Context, pageURL, base string) (Artifact, error) {
	if err := y.run(ctx, pageURL, extract.AudioFormat(y.ext.MaxBytes), base); err != nil {
		return Artifact{}, fmt.Errorf("audio download failed: %w", err)
	}
	a, err := Find(base, audioExts)
	if err != nil {
		return Artifact{}, fmt.Errorf("audio download failed: %w", err)
	}
	return a, nil
}

func (y *YtDlp) run(ctx context.Context, pageURL, format, base string) error {
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	args := append(y.ext.BaseArgs(),
		"--format", format,
		"--no-part",
		"--output", base+".%(ext)s",
		"--", pageURL,
	)
	_, err := y.ext.Run(ctx, y.ext.Path, args...)
	return err
}

// Find locates the first non-empty file named base.<ext>, trying exts in
// order and then any other extension.
func Find(base string, exts []string) (Artifact, error) {
	for _, ext := range exts {
		if a, ok := stat(base + "." + ext); ok {
			return a, nil
		}
	}

	matches, _ := filepath.Glob(globEscape(base) + ".*")
	for _, m := range matches {
		if strings.HasSuffix(m, ".part") || strings.HasSuffix(m, ".ytdl") {
			continue
		}
		if a, ok := stat(m); ok {
			return a, nil
		}
	}

	return Artifact{}, fmt.Errorf("no file was produced for %s", filepath.Base(base))
}

func stat(path string) (Artifact, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
		return Artifact{}, false
	}
	return Artifact{Path: path, Size: info.Size()}, true
}

// Cleanup removes every file whose name starts with base and returns the
// number removed.
func Cleanup(base string) (int, error) {
	matches, err := filepath.Glob(globEscape(base) + "*")
	if err != nil {
		return 0, err
	}
	removed := 0
	var firstErr error
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed++
	}
	return removed, firstErr
}

func globEscape(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `\`, `\\`)
	return r.Replace(s)
}
