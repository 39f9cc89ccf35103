// Package deliver produces the final audio or video artifact for a resolved
// submission and hands it to the chat transport.
//
// Video delivery tries, in order: handing the remote playback URL to the
// transport, downloading with the extractor, and a raw HTTP fetch of the
// playback URL. Every local artifact is checked against the size ceiling
// before upload and removed afterwards, whatever the outcome.
package deliver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"unicode/utf8"

	"github.com/google/uuid"

	"fetchbot/internal/download"
	"fetchbot/internal/httputil"
	"fetchbot/internal/logging"
	"fetchbot/internal/media"
)

// Video is an outbound video message. Exactly one of URL and Path is set.
type Video struct {
	ChatID   int64
	URL      string
	Path     string
	Caption  string
	Duration int
}

// Audio is an outbound audio message from a local file.
type Audio struct {
	ChatID  int64
	Path    string
	Caption string
}

// Transport is the part of the chat transport the pipeline uses.
type Transport interface {
	SendVideo(ctx context.Context, v Video) error
	SendAudio(ctx context.Context, a Audio) error
	// Progress posts a best-effort status line; failures are ignored.
	Progress(ctx context.Context, chatID int64, text string)
}

// Request is one delivery to perform.
type Request struct {
	ChatID     int64
	SourceURL  string
	Descriptor *media.Descriptor
	Platform   string // Display name used in captions
	Choice     media.Choice
}

// Pipeline performs deliveries. It is safe for concurrent use.
type Pipeline struct {
	dl       download.Downloader
	client   *http.Client
	tr       Transport
	tempDir  string
	maxBytes int64
	log      logging.Logger
	newID    func() string
}

// New creates a pipeline writing temporary artifacts under tempDir and
// rejecting artifacts larger than maxBytes.
func New(dl download.Downloader, client *http.Client, tr Transport, tempDir string, maxBytes int64, log logging.Logger) *Pipeline {
	return &Pipeline{
		dl:       dl,
		client:   client,
		tr:       tr,
		tempDir:  tempDir,
		maxBytes: maxBytes,
		log:      log.With().Str("component", "deliver").Logger(),
		newID:    uuid.NewString,
	}
}

// Deliver performs req and reports its outcome. It never panics on
// transport errors; those surface as unexpected failures.
func (p *Pipeline) Deliver(ctx context.Context, req Request) media.Outcome {
	var (
		bytes  int64
		direct bool
		err    error
	)
	if req.Choice.Audio {
		bytes, err = p.audio(ctx, req)
	} else {
		bytes, direct, err = p.video(ctx, req)
	}
	if err != nil {
		return media.FailureOutcome(err)
	}
	return media.Success(bytes, direct)
}

func (p *Pipeline) audio(ctx context.Context, req Request) (int64, error) {
	base, err := p.allocate()
	if err != nil {
		return 0, err
	}
	defer p.cleanup(base)

	art, err := p.dl.Audio(ctx, req.SourceURL, base)
	if err != nil {
		return 0, media.Fail(media.ReasonAudioDownloadFailed, err)
	}

	size, err := p.checkArtifact(art.Path, media.ReasonAudioDownloadFailed)
	if err != nil {
		return 0, err
	}

	err = p.tr.SendAudio(ctx, Audio{
		ChatID:  req.ChatID,
		Path:    art.Path,
		Caption: AudioCaption(req.Platform, req.Descriptor.Title),
	})
	if err != nil {
		return 0, media.Fail(media.ReasonUnexpected, fmt.Errorf("uploading audio: %w", err))
	}
	return size, nil
}

func (p *Pipeline) video(ctx context.Context, req Request) (int64, bool, error) {
	d := req.Descriptor

	if p.streamable(req) {
		p.tr.Progress(ctx, req.ChatID, "📤 Trying to send directly without downloading...")
		err := p.tr.SendVideo(ctx, Video{
			ChatID:   req.ChatID,
			URL:      d.PlaybackURL,
			Caption:  VideoCaption(req.Platform, d.Title),
			Duration: d.Duration,
		})
		if err == nil {
			return 0, true, nil
		}
		p.log.Info().Err(err).Str("url", d.PlaybackURL).Msg("direct send failed, falling back to download")
		p.tr.Progress(ctx, req.ChatID, "⚠️ Direct send failed, downloading temporarily then sending...")
	}

	base, err := p.allocate()
	if err != nil {
		return 0, false, err
	}
	defer p.cleanup(base)

	path, err := p.fetchVideo(ctx, req, base)
	if err != nil {
		return 0, false, media.Fail(media.ReasonDownloadFailed, err)
	}

	size, err := p.checkArtifact(path, media.ReasonDownloadFailed)
	if err != nil {
		return 0, false, err
	}

	err = p.tr.SendVideo(ctx, Video{
		ChatID:   req.ChatID,
		Path:     path,
		Caption:  VideoCaption(req.Platform, d.Title),
		Duration: d.Duration,
	})
	if err != nil {
		return 0, false, media.Fail(media.ReasonUnexpected, fmt.Errorf("uploading video: %w", err))
	}
	return size, false, nil
}

// streamable reports whether the remote playback URL should be offered to
// the transport before downloading. Platform media only qualifies when the
// user left the quality to the default policy that chose that URL.
func (p *Pipeline) streamable(req Request) bool {
	d := req.Descriptor
	if d.PlaybackURL == "" {
		return false
	}
	if d.Kind == media.DirectFile {
		return true
	}
	_, exact := d.VariantForHeight(req.Choice.Height)
	return !exact
}

// fetchVideo downloads the chosen quality under base and returns the
// artifact path. Direct files skip the extractor and are fetched raw.
func (p *Pipeline) fetchVideo(ctx context.Context, req Request, base string) (string, error) {
	d := req.Descriptor

	var dlErr error
	if d.Kind != media.DirectFile {
		formatID := ""
		if v, ok := d.VariantForHeight(req.Choice.Height); ok {
			formatID = v.FormatID
		}
		art, err := p.dl.Video(ctx, req.SourceURL, formatID, base)
		if err == nil {
			return art.Path, nil
		}
		dlErr = err
		p.log.Info().Err(err).Str("url", req.SourceURL).Str("format", formatID).Msg("extractor download failed")
	}

	if d.PlaybackURL == "" {
		return "", dlErr
	}

	path := base + "." + httputil.MediaExt(d.Ext)
	if _, err := httputil.Fetch(ctx, p.client, d.PlaybackURL, path, p.maxBytes); err != nil {
		return "", errors.Join(dlErr, fmt.Errorf("raw fetch: %w", err))
	}
	return path, nil
}

// checkArtifact stats path and enforces the non-empty and ceiling rules.
// An artifact exactly at the ceiling is accepted.
func (p *Pipeline) checkArtifact(path string, missing media.Reason) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, media.Fail(missing, fmt.Errorf("artifact missing: %w", err))
	}
	if info.Size() == 0 {
		return 0, media.Fail(missing, errors.New("artifact is empty"))
	}
	if info.Size() > p.maxBytes {
		return 0, media.Fail(media.ReasonFileTooLarge, fmt.Errorf("artifact is %d bytes, limit %d", info.Size(), p.maxBytes))
	}
	return info.Size(), nil
}

// allocate returns a fresh base path unique to this request.
func (p *Pipeline) allocate() (string, error) {
	if err := os.MkdirAll(p.tempDir, 0700); err != nil {
		return "", media.Fail(media.ReasonUnexpected, fmt.Errorf("creating temp dir: %w", err))
	}
	base, err := httputil.TempBase(p.tempDir, "fetchbot", p.newID())
	if err != nil {
		return "", media.Fail(media.ReasonUnexpected, err)
	}
	return base, nil
}

func (p *Pipeline) cleanup(base string) {
	n, err := download.Cleanup(base)
	if err != nil {
		p.log.Warn().Err(err).Str("base", base).Msg("removing temporary artifacts")
		return
	}
	if n > 0 {
		p.log.Debug().Int("files", n).Str("base", base).Msg("removed temporary artifacts")
	}
}

// VideoCaption is the caption attached to delivered videos.
func VideoCaption(platform, title string) string {
	return "✅ " + platform + " | " + truncate(titleOr(title), 30)
}

// AudioCaption is the caption attached to delivered audio.
func AudioCaption(platform, title string) string {
	return "🎧 from: " + platform + " | " + truncate(titleOr(title), 30)
}

func titleOr(title string) string {
	if title == "" {
		return "Video"
	}
	return title
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
