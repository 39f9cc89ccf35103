package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Runner executes the extractor binary and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the binary with exec.CommandContext. Arguments are passed
// as an explicit slice; no shell is involved. On failure the last line of
// stderr is folded into the error.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", name, ctx.Err())
		}
		if msg := lastLine(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %s: %w", name, msg, err)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// VideoFormat is the default quality policy: at most 720p under the size
// ceiling, then 480p, then 360p.
func VideoFormat(maxBytes int64) string {
	return fmt.Sprintf("best[height<=720][filesize<%dM]/best[height<=480]/best[height<=360]", megabytes(maxBytes))
}

// AudioFormat prefers the best audio stream under the size ceiling.
func AudioFormat(maxBytes int64) string {
	return fmt.Sprintf("bestaudio[filesize<%dM]/bestaudio", megabytes(maxBytes))
}

func megabytes(n int64) int64 {
	mb := n / (1024 * 1024)
	if mb < 1 {
		mb = 1
	}
	return mb
}

// YtDlp runs yt-dlp with bounded retries and a per-call timeout.
type YtDlp struct {
	Path     string
	Timeout  time.Duration
	Retries  int
	MaxBytes int64
	Run      Runner
}

// NewYtDlp creates a yt-dlp extractor using the binary at path.
func NewYtDlp(path string, timeout time.Duration, retries int, maxBytes int64) *YtDlp {
	return &YtDlp{
		Path:     path,
		Timeout:  timeout,
		Retries:  retries,
		MaxBytes: maxBytes,
		Run:      ExecRunner,
	}
}

// BaseArgs are the flags shared by metadata and download invocations.
func (y *YtDlp) BaseArgs() []string {
	return []string{
		"--quiet",
		"--no-warnings",
		"--no-playlist",
		"--socket-timeout", "30",
		"--retries", strconv.Itoa(y.Retries),
		"--fragment-retries", strconv.Itoa(y.Retries),
		"--extractor-retries", strconv.Itoa(y.Retries),
	}
}

// Extract implements Extractor using `yt-dlp --dump-single-json`.
func (y *YtDlp) Extract(ctx context.Context, pageURL string) (*Info, error) {
	ctx, cancel := context.WithTimeout(ctx, y.Timeout)
	defer cancel()

	args := append(y.BaseArgs(),
		"--dump-single-json",
		"--skip-download",
		"--format", VideoFormat(y.MaxBytes),
		"--", pageURL,
	)

	out, err := y.Run(ctx, y.Path, args...)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", pageURL, err)
	}

	var info Info
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("decoding extractor output: %w", err)
	}
	if info.WebpageURL == "" {
		info.WebpageURL = pageURL
	}
	return &info, nil
}
