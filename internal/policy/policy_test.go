package policy

import (
	"context"
	"errors"
	"testing"

	"fetchbot/internal/media"
)

type memListStore struct {
	banned  map[int64]bool
	blocked map[string]bool
	failAll bool
}

func newMemListStore() *memListStore {
	return &memListStore{banned: map[int64]bool{}, blocked: map[string]bool{}}
}

var errStore = errors.New("store unavailable")

func (m *memListStore) BannedIDs(context.Context) ([]int64, error) {
	if m.failAll {
		return nil, errStore
	}
	var out []int64
	for id := range m.banned {
		out = append(out, id)
	}
	return out, nil
}

func (m *memListStore) BlockedDomainNames(context.Context) ([]string, error) {
	var out []string
	for d := range m.blocked {
		out = append(out, d)
	}
	return out, nil
}

func (m *memListStore) BanUser(_ context.Context, id int64, _ string) error {
	if m.failAll {
		return errStore
	}
	m.banned[id] = true
	return nil
}

func (m *memListStore) UnbanUser(_ context.Context, id int64) error {
	delete(m.banned, id)
	return nil
}

func (m *memListStore) BlockDomain(_ context.Context, d, _ string) error {
	m.blocked[d] = true
	return nil
}

func (m *memListStore) UnblockDomain(_ context.Context, d string) error {
	delete(m.blocked, d)
	return nil
}

func TestGateCheck(t *testing.T) {
	lists := NewLists(nil)
	ctx := context.Background()
	lists.Ban(ctx, 99, "spam")
	lists.Block(ctx, "Evil.example", "")
	gate := NewGate(lists)

	tests := []struct {
		name     string
		identity int64
		url      string
		want     media.Reason
	}{
		{"allowed", 1, "https://www.youtube.com/watch?v=x", ""},
		{"allowed http", 1, "http://example.com/clip.mp4", ""},
		{"banned with valid url", 99, "https://youtube.com/watch?v=x", media.ReasonIdentityBanned},
		{"banned with garbage", 99, "hello there", media.ReasonIdentityBanned},
		{"no scheme", 1, "youtube.com/watch", media.ReasonMalformedURL},
		{"ftp", 1, "ftp://example.com/a.mp4", media.ReasonMalformedURL},
		{"empty", 1, "", media.ReasonMalformedURL},
		{"base list", 1, "https://www.netflix.com/title/1", media.ReasonDomainBlocked},
		{"base substring", 1, "https://shahed4u.site/x", media.ReasonDomainBlocked},
		{"dynamic list", 1, "https://cdn.evil.example/v", media.ReasonDomainBlocked},
		{"path does not count", 1, "https://example.com/netflix.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.Check(tt.identity, tt.url)
			if got := media.ReasonOf(err); got != tt.want {
				t.Errorf("Check(%d, %q) reason = %q, want %q (err %v)", tt.identity, tt.url, got, tt.want, err)
			}
		})
	}
}

func TestGateUnblockReadmits(t *testing.T) {
	ctx := context.Background()
	store := newMemListStore()
	lists := NewLists(store)
	gate := NewGate(lists)
	url := "https://videos.blocked.test/watch/1"

	if err := lists.Block(ctx, "blocked.test", "manual block"); err != nil {
		t.Fatal(err)
	}
	if media.ReasonOf(gate.Check(1, url)) != media.ReasonDomainBlocked {
		t.Fatal("expected domain to be blocked")
	}
	if !store.blocked["blocked.test"] {
		t.Error("block should write through to the store")
	}

	if err := lists.Unblock(ctx, "BLOCKED.test"); err != nil {
		t.Fatal(err)
	}
	if err := gate.Check(1, url); err != nil {
		t.Errorf("unblocked domain should be admitted, got %v", err)
	}
	if store.blocked["blocked.test"] {
		t.Error("unblock should write through to the store")
	}
}

func TestListsRefresh(t *testing.T) {
	ctx := context.Background()
	store := newMemListStore()
	store.banned[5] = true
	store.blocked["Tube.test"] = true

	lists := NewLists(store)
	if lists.IsBanned(5) {
		t.Fatal("lists should be empty before refresh")
	}
	if err := lists.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if !lists.IsBanned(5) {
		t.Error("refresh should load banned ids")
	}
	if got := lists.BlockedDomains(); len(got) != 1 || got[0] != "tube.test" {
		t.Errorf("blocked domains = %v, want [tube.test]", got)
	}

	lists.Unban(ctx, 5)
	if lists.IsBanned(5) {
		t.Error("unban should take effect immediately")
	}
}

func TestListsStoreFailure(t *testing.T) {
	ctx := context.Background()
	store := newMemListStore()
	store.failAll = true
	lists := NewLists(store)

	if err := lists.Refresh(ctx); !errors.Is(err, errStore) {
		t.Errorf("Refresh() error = %v, want store error", err)
	}
	if err := lists.Ban(ctx, 3, ""); err == nil {
		t.Error("Ban() should fail when the store fails")
	}
	if lists.IsBanned(3) {
		t.Error("failed ban must not change the cache")
	}
	if err := lists.Block(ctx, "  ", ""); err == nil {
		t.Error("Block() should reject empty domains")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		url  string
		want Class
	}{
		{"https://example.com/clip.mp4", DirectFile},
		{"https://example.com/clip.MP4", DirectFile},
		{"https://example.com/a/b.webm?token=1", DirectFile},
		{"https://example.com/a.mov#t=10", DirectFile},
		{"https://example.com/a.mkv", DirectFile},
		{"https://example.com/watch?file=a.mp4", NeedsResolution},
		{"https://www.tiktok.com/@u/video/1", NeedsResolution},
		{"https://example.com/a.avi", NeedsResolution},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := Classify(tt.url); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/clip.MP4?x=1", "mp4"},
		{"https://example.com/v/a.webm", "webm"},
		{"https://example.com", ""},
		{"https://example.com/watch", ""},
	}
	for _, tt := range tests {
		if got := Extension(tt.url); got != tt.want {
			t.Errorf("Extension(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
