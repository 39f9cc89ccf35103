package store

import (
	"context"
	"database/sql"
	"fmt"
)

// User is the chat profile recorded on every submission.
type User struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
}

// Request is one row of the request log.
type Request struct {
	UserID  int64 // Internal user row id, 0 when unknown
	URL     string
	Domain  string
	Action  string // invalid, blocked, unknown, video, audio
	Quality string
	Status  string // success, fail
	Error   string
}

// UpsertUser records a submission by u and returns the internal row id.
// total_requests is incremented on every call.
func (s *Store) UpsertUser(ctx context.Context, u User) (int64, error) {
	now := s.timestamp()
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (telegram_id, username, first_name, last_name, created_at, last_seen_at, total_requests)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(telegram_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			last_seen_at = excluded.last_seen_at,
			total_requests = COALESCE(users.total_requests, 0) + 1
		RETURNING id`,
		u.TelegramID, u.Username, u.FirstName, u.LastName, now, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting user %d: %w", u.TelegramID, err)
	}
	return id, nil
}

// LogRequest appends a request record.
func (s *Store) LogRequest(ctx context.Context, r Request) error {
	userID := sql.NullInt64{Int64: r.UserID, Valid: r.UserID > 0}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requests (user_id, url, domain, action_type, quality, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, r.URL, r.Domain, r.Action, r.Quality, r.Status, r.Error, s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("logging request: %w", err)
	}
	return nil
}

// LogVideoUsage records that the video at url was requested.
func (s *Store) LogVideoUsage(ctx context.Context, title, url, domain string) error {
	now := s.timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO videos (title, url, domain, first_seen_at, last_used_at, times_used)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			domain = excluded.domain,
			last_used_at = excluded.last_used_at,
			times_used = COALESCE(videos.times_used, 0) + 1`,
		title, url, domain, now, now,
	)
	if err != nil {
		return fmt.Errorf("logging video usage: %w", err)
	}
	return nil
}
