package bot

import (
	"context"

	"fetchbot/internal/logging"
	"fetchbot/internal/store"
)

// Store is the durable store as seen by the bot.
type Store interface {
	UpsertUser(ctx context.Context, u store.User) (int64, error)
	LogRequest(ctx context.Context, r store.Request) error
	LogVideoUsage(ctx context.Context, title, url, domain string) error
	Stats(ctx context.Context) (store.Stats, error)
	TopDomains(ctx context.Context, limit int) ([]store.DomainCount, error)
	TopVideos(ctx context.Context, limit int) ([]store.VideoUsage, error)
	BannedUsers(ctx context.Context) ([]store.BanEntry, error)
	BlockedDomains(ctx context.Context) ([]store.DomainEntry, error)
}

// Recorder writes usage records. Failures are logged and never returned.
type Recorder struct {
	store Store
	log   logging.Logger
}

// NewRecorder creates a recorder over s.
func NewRecorder(s Store, log logging.Logger) *Recorder {
	return &Recorder{store: s, log: log.With().Str("component", "recorder").Logger()}
}

// User upserts u and returns its row id, or 0 when the write failed.
func (r *Recorder) User(ctx context.Context, u User) int64 {
	id, err := r.store.UpsertUser(ctx, store.User{
		TelegramID: u.ID,
		Username:   u.Username,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
	})
	if err != nil {
		r.log.Warn().Err(err).Int64("user", u.ID).Msg("recording user")
		return 0
	}
	return id
}

// Request appends a request record.
func (r *Recorder) Request(ctx context.Context, req store.Request) {
	if err := r.store.LogRequest(ctx, req); err != nil {
		r.log.Warn().Err(err).Str("url", req.URL).Str("action", req.Action).Msg("recording request")
	}
}

// VideoUsage bumps the usage counter of a video.
func (r *Recorder) VideoUsage(ctx context.Context, title, url, domain string) {
	if err := r.store.LogVideoUsage(ctx, title, url, domain); err != nil {
		r.log.Warn().Err(err).Str("url", url).Msg("recording video usage")
	}
}
