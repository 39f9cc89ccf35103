package bot

import (
	"context"
	"strings"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in    string
		cmd   string
		args  string
		isCmd bool
	}{
		{"/start", "start", "", true},
		{"/banuser 42", "banuser", "42", true},
		{"/BanURL@fetch_bot  example.com ", "banurl", "example.com", true},
		{"https://x.test", "", "", false},
		{"/", "", "", false},
	}
	for _, tt := range tests {
		cmd, args, ok := parseCommand(strings.TrimSpace(tt.in))
		if cmd != tt.cmd || args != tt.args || ok != tt.isCmd {
			t.Errorf("parseCommand(%q) = %q, %q, %v", tt.in, cmd, args, ok)
		}
	}
}

func TestAdminOnly(t *testing.T) {
	f := newFixture(t, &fakeResolver{d: platformDescriptor()})

	f.text(userID, "/banuser 7")
	if got := f.tr.lastSent(); got != textAdminOnly {
		t.Errorf("reply = %q, want admin-only notice", got)
	}
	if f.lists.IsBanned(7) {
		t.Error("non-admin must not ban")
	}
}

func TestBanCommands(t *testing.T) {
	f := newFixture(t, &fakeResolver{d: platformDescriptor()})
	ctx := context.Background()

	f.text(adminID, "/banuser abc")
	if got := f.tr.lastSent(); got != textBadID {
		t.Errorf("reply = %q, want invalid id", got)
	}

	f.text(adminID, "/banuser 7")
	if !f.lists.IsBanned(7) {
		t.Fatal("user 7 should be banned")
	}
	f.text(7, "https://www.video.test/watch/1")
	if got := f.tr.lastSent(); got != textBanned {
		t.Errorf("banned user got %q", got)
	}

	f.text(adminID, "/banlist")
	if got := f.tr.lastSent(); !strings.Contains(got, "👤 7 | reason: manual ban") {
		t.Errorf("ban list = %q", got)
	}

	f.text(adminID, "/unbanuser 7")
	if f.lists.IsBanned(7) {
		t.Error("user 7 should be unbanned")
	}

	f.text(adminID, "/banurl Video.Test")
	f.text(userID, "https://www.video.test/watch/1")
	if got := f.tr.lastSent(); got != textBlocked {
		t.Errorf("blocked domain reply = %q", got)
	}

	f.text(adminID, "/unbanurl video.test")
	domains, err := f.store.BlockedDomains(ctx)
	if err != nil || len(domains) != 0 {
		t.Errorf("blocked domains = %+v, %v", domains, err)
	}
}

func TestReportCommands(t *testing.T) {
	f := newFixture(t, &fakeResolver{d: platformDescriptor()})

	f.text(adminID, "/topvideos")
	if got := f.tr.lastSent(); got != "ℹ️ No videos recorded yet." {
		t.Errorf("empty top videos = %q", got)
	}

	f.text(userID, "not a link")
	f.text(userID, "https://www.netflix.com/x")

	f.text(adminID, "/statsdb")
	got := f.tr.lastSent()
	for _, want := range []string{"Total requests: 2", "• blocked: 1", "• invalid: 1", "• fail: 2"} {
		if !strings.Contains(got, want) {
			t.Errorf("stats %q missing %q", got, want)
		}
	}

	f.text(adminID, "/topdomains")
	if got := f.tr.lastSent(); !strings.Contains(got, "www.netflix.com: 1 requests") {
		t.Errorf("top domains = %q", got)
	}
}

func TestUnknownCommandIsSubmission(t *testing.T) {
	f := newFixture(t, &fakeResolver{d: platformDescriptor()})
	f.text(userID, "/whatever")
	if got := f.tr.lastSent(); got != textMalformed {
		t.Errorf("reply = %q, want malformed-url notice", got)
	}
}
