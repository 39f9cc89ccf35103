package httputil

import (
	"path/filepath"
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid HTTPS", "https://example.com/path", false},
		{"valid HTTP", "http://example.com/path", false},
		{"javascript scheme rejected", "javascript:alert(1)", true},
		{"data scheme rejected", "data:text/html,<h1>Hi</h1>", true},
		{"FTP rejected", "ftp://example.com/file", true},
		{"empty string", "", true},
		{"no host", "https://", true},
		{"valid with port", "https://example.com:8080/path", false},
		{"valid with query", "https://example.com/path?q=test&a=b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestHostname(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://WWW.TikTok.com/@user/video/1", "www.tiktok.com"},
		{"https://example.com:8443/a", "example.com"},
		{"  https://youtu.be/xyz  ", "youtu.be"},
		{"not a url", ""},
		{"%zz", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Hostname(tt.input); got != tt.expected {
				t.Errorf("Hostname(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMediaExt(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"mp4", "mp4"},
		{".WebM", "webm"},
		{"", "mp4"},
		{"../../etc/passwd", "etcpasswd"},
		{"m4a?x=1", "m4ax1"},
		{"/", "mp4"},
		{"verylongextension", "verylong"},
	}
	for _, tt := range tests {
		if got := MediaExt(tt.input); got != tt.want {
			t.Errorf("MediaExt(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTempBase(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"uuid", "3f1c2a9e-6b1d-4c55-9a57-0d5f1e2b7c10", false},
		{"empty", "", true},
		{"traversal", "../../etc", true},
		{"separator", "a/b", true},
		{"dotted", "a.b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TempBase(dir, "fetchbot", tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("TempBase(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if filepath.Dir(got) != dir || filepath.Base(got) != "fetchbot-"+tt.id {
				t.Errorf("TempBase(%q) = %q", tt.id, got)
			}
		})
	}
}
