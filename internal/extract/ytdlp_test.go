package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

const sampleJSON = `{
	"title": "Sample clip",
	"uploader": "someone",
	"duration": 125.4,
	"url": "https://cdn.example.com/v/720.mp4",
	"ext": "mp4",
	"webpage_url": "https://www.tiktok.com/@someone/video/1",
	"formats": [
		{"format_id": "a1", "ext": "m4a", "height": null},
		{"format_id": "v480", "ext": "mp4", "height": 480, "filesize": 1000},
		{"format_id": "v1080", "ext": "mp4", "height": 1080, "filesize_approx": 9000}
	]
}`

func TestYtDlpExtract(t *testing.T) {
	var gotName string
	var gotArgs []string
	y := NewYtDlp("/opt/yt-dlp", time.Minute, 3, 50*1024*1024)
	y.Run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		if _, ok := ctx.Deadline(); !ok {
			t.Error("extractor call should carry a deadline")
		}
		return []byte(sampleJSON), nil
	}

	info, err := y.Extract(context.Background(), "https://www.tiktok.com/@someone/video/1")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if gotName != "/opt/yt-dlp" {
		t.Errorf("binary = %q", gotName)
	}
	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{
		"--dump-single-json",
		"--retries 3",
		"--extractor-retries 3",
		"--no-playlist",
		"--format best[height<=720][filesize<50M]/best[height<=480]/best[height<=360]",
		"-- https://www.tiktok.com/@someone/video/1",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}

	if info.Title != "Sample clip" || info.Uploader != "someone" {
		t.Errorf("metadata = %+v", info)
	}
	if int(info.Duration) != 125 {
		t.Errorf("duration = %v, want 125.4", info.Duration)
	}
	if len(info.Formats) != 3 || info.Formats[0].Height != 0 || info.Formats[2].Size() != 9000 {
		t.Errorf("formats = %+v", info.Formats)
	}
}

func TestYtDlpExtractErrors(t *testing.T) {
	y := NewYtDlp("yt-dlp", time.Minute, 1, 1)

	y.Run = func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("ERROR: Unsupported URL")
	}
	if _, err := y.Extract(context.Background(), "https://x.test"); err == nil {
		t.Error("Extract() should propagate runner errors")
	}

	y.Run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("not json"), nil
	}
	if _, err := y.Extract(context.Background(), "https://x.test"); err == nil {
		t.Error("Extract() should reject undecodable output")
	}
}

func TestYtDlpDefaultsWebpageURL(t *testing.T) {
	y := NewYtDlp("yt-dlp", time.Minute, 1, 1)
	y.Run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte(`{"title":"t"}`), nil
	}
	info, err := y.Extract(context.Background(), "https://x.test/p")
	if err != nil {
		t.Fatal(err)
	}
	if info.WebpageURL != "https://x.test/p" {
		t.Errorf("webpage url = %q", info.WebpageURL)
	}
}

func TestFormatPolicies(t *testing.T) {
	if got := AudioFormat(50 * 1024 * 1024); got != "bestaudio[filesize<50M]/bestaudio" {
		t.Errorf("AudioFormat = %q", got)
	}
	if got := VideoFormat(100); !strings.Contains(got, "filesize<1M") {
		t.Errorf("VideoFormat should round tiny ceilings up to 1M, got %q", got)
	}
}

func TestExecRunnerMissingBinary(t *testing.T) {
	_, err := ExecRunner(context.Background(), "fetchbot-no-such-binary-xyz")
	if err == nil {
		t.Fatal("ExecRunner() should fail for a missing binary")
	}
}

type stubExtractor struct {
	info *Info
	err  error
	hits int
}

func (s *stubExtractor) Extract(context.Context, string) (*Info, error) {
	s.hits++
	return s.info, s.err
}

func TestChain(t *testing.T) {
	failing := &stubExtractor{err: errors.New("first failed")}
	working := &stubExtractor{info: &Info{Title: "ok"}}
	unused := &stubExtractor{info: &Info{Title: "unused"}}

	info, err := Chain{failing, working, unused}.Extract(context.Background(), "https://x.test")
	if err != nil {
		t.Fatalf("Chain.Extract() error: %v", err)
	}
	if info.Title != "ok" || unused.hits != 0 {
		t.Errorf("chain should stop at first success, got %q (unused hits %d)", info.Title, unused.hits)
	}

	_, err = Chain{failing, &stubExtractor{err: errors.New("second failed")}}.Extract(context.Background(), "u")
	if err == nil || !strings.Contains(err.Error(), "first failed") || !strings.Contains(err.Error(), "second failed") {
		t.Errorf("chain error should join all failures, got %v", err)
	}

	if _, err := (Chain{}).Extract(context.Background(), "u"); err == nil {
		t.Error("empty chain should fail")
	}
}
