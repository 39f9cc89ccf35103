package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"fetchbot/internal/httputil"
)

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	return doc
}

func TestParseOpenGraph(t *testing.T) {
	doc := docFrom(t, `<html><head>
		<meta property="og:title" content="  A title ">
		<meta property="og:url" content="https://site.test/canonical">
		<meta property="og:video" content="https://cdn.site.test/plain.mp4">
		<meta property="og:video:secure_url" content="https://cdn.site.test/secure.mp4">
	</head></html>`)

	info, err := parseOpenGraph(doc, "https://site.test/page")
	if err != nil {
		t.Fatalf("parseOpenGraph() error: %v", err)
	}
	if info.URL != "https://cdn.site.test/secure.mp4" {
		t.Errorf("URL = %q, want the secure URL", info.URL)
	}
	if info.Title != "A title" {
		t.Errorf("Title = %q", info.Title)
	}
	if info.WebpageURL != "https://site.test/canonical" {
		t.Errorf("WebpageURL = %q", info.WebpageURL)
	}
	if len(info.Formats) != 0 {
		t.Error("OpenGraph results carry no formats")
	}
}

func TestParseOpenGraphRejectsUnsafeOrMissing(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"no tags", `<html><head><title>x</title></head></html>`},
		{"javascript url", `<meta property="og:video" content="javascript:alert(1)">`},
		{"relative url", `<meta property="og:video" content="/v.mp4">`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseOpenGraph(docFrom(t, tt.html), "https://site.test"); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestOpenGraphExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/watch" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`<meta property="og:video:url" content="https://cdn.test/v.mp4">`))
	}))
	defer srv.Close()

	og := NewOpenGraph(httputil.NewClient(5 * time.Second))
	info, err := og.Extract(context.Background(), srv.URL+"/watch")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if info.URL != "https://cdn.test/v.mp4" || info.WebpageURL != srv.URL+"/watch" {
		t.Errorf("info = %+v", info)
	}

	if _, err := og.Extract(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("Extract() should fail on 404")
	}
}
