package store

import (
	"context"
	"fmt"
	"strings"
)

// BanEntry is one banned identity.
type BanEntry struct {
	TelegramID int64  `json:"telegram_id"`
	Reason     string `json:"reason"`
	BannedAt   string `json:"banned_at"`
}

// DomainEntry is one dynamically blocked domain.
type DomainEntry struct {
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
	AddedAt string `json:"added_at"`
}

// BanUser adds or refreshes a ban.
func (s *Store) BanUser(ctx context.Context, telegramID int64, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO banned_users (telegram_id, reason, banned_at) VALUES (?, ?, ?)`,
		telegramID, reason, s.timestamp())
	if err != nil {
		return fmt.Errorf("banning user: %w", err)
	}
	return nil
}

// UnbanUser removes a ban. Removing a missing ban is not an error.
func (s *Store) UnbanUser(ctx context.Context, telegramID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM banned_users WHERE telegram_id = ?`, telegramID); err != nil {
		return fmt.Errorf("unbanning user: %w", err)
	}
	return nil
}

// BannedUsers lists every ban.
func (s *Store) BannedUsers(ctx context.Context) ([]BanEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT telegram_id, COALESCE(reason, ''), COALESCE(banned_at, '') FROM banned_users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing banned users: %w", err)
	}
	defer rows.Close()

	var out []BanEntry
	for rows.Next() {
		var e BanEntry
		if err := rows.Scan(&e.TelegramID, &e.Reason, &e.BannedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// BannedIDs lists banned identities only.
func (s *Store) BannedIDs(ctx context.Context) ([]int64, error) {
	entries, err := s.BannedUsers(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.TelegramID
	}
	return ids, nil
}

// BlockDomain adds or refreshes a blocked domain. Domains are stored lower-cased.
func (s *Store) BlockDomain(ctx context.Context, domain, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO blocked_domains (domain, reason, added_at) VALUES (?, ?, ?)`,
		strings.ToLower(domain), reason, s.timestamp())
	if err != nil {
		return fmt.Errorf("blocking domain: %w", err)
	}
	return nil
}

// UnblockDomain removes a blocked domain.
func (s *Store) UnblockDomain(ctx context.Context, domain string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blocked_domains WHERE domain = ?`, strings.ToLower(domain)); err != nil {
		return fmt.Errorf("unblocking domain: %w", err)
	}
	return nil
}

// BlockedDomains lists every dynamically blocked domain.
func (s *Store) BlockedDomains(ctx context.Context) ([]DomainEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT domain, COALESCE(reason, ''), COALESCE(added_at, '') FROM blocked_domains WHERE domain IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing blocked domains: %w", err)
	}
	defer rows.Close()

	var out []DomainEntry
	for rows.Next() {
		var e DomainEntry
		if err := rows.Scan(&e.Domain, &e.Reason, &e.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// BlockedDomainNames lists blocked domain names only.
func (s *Store) BlockedDomainNames(ctx context.Context) ([]string, error) {
	entries, err := s.BlockedDomains(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Domain != "" {
			names = append(names, e.Domain)
		}
	}
	return names, nil
}
