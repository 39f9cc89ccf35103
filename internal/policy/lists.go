// Package policy implements admission control and URL classification.
// The ban set and dynamic domain denylist live in a Lists cache that is
// loaded from the durable store once and then mutated in place.
package policy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ListStore is the durable side of the ban set and domain denylist.
type ListStore interface {
	BannedIDs(ctx context.Context) ([]int64, error)
	BlockedDomainNames(ctx context.Context) ([]string, error)
	BanUser(ctx context.Context, id int64, reason string) error
	UnbanUser(ctx context.Context, id int64) error
	BlockDomain(ctx context.Context, domain, reason string) error
	UnblockDomain(ctx context.Context, domain string) error
}

// Lists caches banned identities and dynamically blocked domains.
// Lookups never touch the store; mutations write through to it first.
type Lists struct {
	store ListStore

	mu      sync.RWMutex
	banned  map[int64]struct{}
	blocked map[string]struct{}
}

// NewLists creates an empty cache backed by store. store may be nil for
// purely in-memory use.
func NewLists(store ListStore) *Lists {
	return &Lists{
		store:   store,
		banned:  make(map[int64]struct{}),
		blocked: make(map[string]struct{}),
	}
}

// Refresh replaces the cached sets with the store's current contents.
func (l *Lists) Refresh(ctx context.Context) error {
	if l.store == nil {
		return nil
	}

	ids, err := l.store.BannedIDs(ctx)
	if err != nil {
		return fmt.Errorf("loading banned users: %w", err)
	}
	domains, err := l.store.BlockedDomainNames(ctx)
	if err != nil {
		return fmt.Errorf("loading blocked domains: %w", err)
	}

	banned := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		banned[id] = struct{}{}
	}
	blocked := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		if d = normalizeDomain(d); d != "" {
			blocked[d] = struct{}{}
		}
	}

	l.mu.Lock()
	l.banned = banned
	l.blocked = blocked
	l.mu.Unlock()
	return nil
}

// Ban adds id to the ban set.
func (l *Lists) Ban(ctx context.Context, id int64, reason string) error {
	if l.store != nil {
		if err := l.store.BanUser(ctx, id, reason); err != nil {
			return fmt.Errorf("banning %d: %w", id, err)
		}
	}
	l.mu.Lock()
	l.banned[id] = struct{}{}
	l.mu.Unlock()
	return nil
}

// Unban removes id from the ban set.
func (l *Lists) Unban(ctx context.Context, id int64) error {
	if l.store != nil {
		if err := l.store.UnbanUser(ctx, id); err != nil {
			return fmt.Errorf("unbanning %d: %w", id, err)
		}
	}
	l.mu.Lock()
	delete(l.banned, id)
	l.mu.Unlock()
	return nil
}

// Block adds a domain substring to the dynamic denylist.
func (l *Lists) Block(ctx context.Context, domain, reason string) error {
	domain = normalizeDomain(domain)
	if domain == "" {
		return fmt.Errorf("domain cannot be empty")
	}
	if l.store != nil {
		if err := l.store.BlockDomain(ctx, domain, reason); err != nil {
			return fmt.Errorf("blocking %s: %w", domain, err)
		}
	}
	l.mu.Lock()
	l.blocked[domain] = struct{}{}
	l.mu.Unlock()
	return nil
}

// Unblock removes a domain from the dynamic denylist.
func (l *Lists) Unblock(ctx context.Context, domain string) error {
	domain = normalizeDomain(domain)
	if l.store != nil {
		if err := l.store.UnblockDomain(ctx, domain); err != nil {
			return fmt.Errorf("unblocking %s: %w", domain, err)
		}
	}
	l.mu.Lock()
	delete(l.blocked, domain)
	l.mu.Unlock()
	return nil
}

// IsBanned reports whether id is in the ban set.
func (l *Lists) IsBanned(id int64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.banned[id]
	return ok
}

// BlockedDomains returns the dynamic denylist, sorted.
func (l *Lists) BlockedDomains() []string {
	l.mu.RLock()
	out := make([]string, 0, len(l.blocked))
	for d := range l.blocked {
		out = append(out, d)
	}
	l.mu.RUnlock()
	sort.Strings(out)
	return out
}

// matchesBlocked reports whether host contains any dynamic denylist entry.
func (l *Lists) matchesBlocked(host string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for d := range l.blocked {
		if strings.Contains(host, d) {
			return true
		}
	}
	return false
}

func normalizeDomain(d string) string {
	return strings.ToLower(strings.TrimSpace(d))
}
