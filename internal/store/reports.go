package store

import (
	"context"
	"fmt"
)

// Stats aggregates the request log.
type Stats struct {
	Users    int            `json:"users"`
	Requests int            `json:"requests"`
	ByAction map[string]int `json:"by_action"`
	ByStatus map[string]int `json:"by_status"`
}

// DomainCount is a domain with its request count.
type DomainCount struct {
	Domain   string `json:"domain"`
	Requests int    `json:"requests"`
}

// VideoUsage is a video with its usage count.
type VideoUsage struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Domain    string `json:"domain"`
	TimesUsed int    `json:"times_used"`
}

// Stats returns totals grouped by action type and status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByAction: map[string]int{}, ByStatus: map[string]int{}}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM requests`).Scan(&st.Requests); err != nil {
		return st, fmt.Errorf("counting requests: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&st.Users); err != nil {
		return st, fmt.Errorf("counting users: %w", err)
	}
	if err := s.groupCount(ctx, "action_type", st.ByAction); err != nil {
		return st, err
	}
	if err := s.groupCount(ctx, "status", st.ByStatus); err != nil {
		return st, err
	}
	return st, nil
}

// groupCount fills into with per-value counts of column. column is never user input.
func (s *Store) groupCount(ctx context.Context, column string, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT COALESCE(NULLIF(%[1]s, ''), 'unknown'), COUNT(*) FROM requests GROUP BY 1`, column))
	if err != nil {
		return fmt.Errorf("grouping by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] += n
	}
	return rows.Err()
}

// TopDomains returns the most requested domains.
func (s *Store) TopDomains(ctx context.Context, limit int) ([]DomainCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT domain, COUNT(*) AS cnt
		FROM requests
		WHERE domain IS NOT NULL AND domain <> ''
		GROUP BY domain
		ORDER BY cnt DESC, domain
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("top domains: %w", err)
	}
	defer rows.Close()

	var out []DomainCount
	for rows.Next() {
		var d DomainCount
		if err := rows.Scan(&d.Domain, &d.Requests); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// TopVideos returns the most used videos.
func (s *Store) TopVideos(ctx context.Context, limit int) ([]VideoUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(title, ''), url, COALESCE(domain, ''), times_used
		FROM videos
		ORDER BY times_used DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("top videos: %w", err)
	}
	defer rows.Close()

	var out []VideoUsage
	for rows.Next() {
		var v VideoUsage
		if err := rows.Scan(&v.Title, &v.URL, &v.Domain, &v.TimesUsed); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
