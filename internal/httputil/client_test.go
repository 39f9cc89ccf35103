package httputil

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFetch(t *testing.T) {
	payload := bytes.Repeat([]byte("v"), 4096)
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "video/mp4")
		w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.mp4")
	n, err := Fetch(context.Background(), NewClient(5*time.Second), srv.URL+"/clip.mp4", dest, 1<<20)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if n != int64(len(payload)) {
		t.Errorf("bytes = %d, want %d", n, len(payload))
	}
	if gotUA != UserAgent {
		t.Errorf("user agent = %q, want %q", gotUA, UserAgent)
	}
	info, err := os.Stat(dest)
	if err != nil || info.Size() != int64(len(payload)) {
		t.Errorf("written file size mismatch: %v", err)
	}
}

func TestFetchCapsAtLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("x"), 1000))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.bin")
	n, err := Fetch(context.Background(), NewClient(5*time.Second), srv.URL, dest, 100)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if n != 101 {
		t.Errorf("bytes = %d, want limit+1 = 101", n)
	}
}

func TestFetchRejectsPlaylist(t *testing.T) {
	playlist := "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:10\n#EXTINF:10.0,\nseg0.ts\n#EXT-X-ENDLIST\n"

	tests := []struct {
		name        string
		contentType string
	}{
		{"by content type", "application/vnd.apple.mpegurl"},
		{"by body", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.Write([]byte(playlist))
			}))
			defer srv.Close()

			dest := filepath.Join(t.TempDir(), "out.mp4")
			_, err := Fetch(context.Background(), NewClient(5*time.Second), srv.URL, dest, 1<<20)
			if !errors.Is(err, ErrPlaylist) {
				t.Fatalf("Fetch() error = %v, want ErrPlaylist", err)
			}
			if _, err := os.Stat(dest); !os.IsNotExist(err) {
				t.Error("playlist fetch should not create the destination file")
			}
		})
	}
}

func TestFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty" {
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := NewClient(5 * time.Second)
	dir := t.TempDir()

	if _, err := Fetch(context.Background(), client, srv.URL+"/missing", filepath.Join(dir, "a"), 100); err == nil {
		t.Error("Fetch() should fail on 404")
	}
	if _, err := Fetch(context.Background(), client, srv.URL+"/empty", filepath.Join(dir, "b"), 100); err == nil {
		t.Error("Fetch() should fail on empty body")
	}
	if _, err := Fetch(context.Background(), client, "ftp://example.com/x", filepath.Join(dir, "c"), 100); err == nil {
		t.Error("Fetch() should reject non-HTTP schemes")
	}
}
