package images

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestCacheFetchesRemoteImages(t *testing.T) {
	logo := pngBytes(t, 7, 3)
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/logo.png":
			hits++
			if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "pageflow/") {
				t.Errorf("user agent = %q", ua)
			}
			w.Header().Set("Content-Type", "image/png")
			w.Write(logo)
		case "/page.html":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<p>nope</p>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewCache(WithFetcher(NewHTTPFetcher("")))
	img, err := c.Load(srv.URL + "/logo.png")
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 7 || b.Dy() != 3 {
		t.Errorf("size = %v", b)
	}
	if _, err := c.Load(srv.URL + "/logo.png"); err != nil || hits != 1 {
		t.Errorf("second load should hit the cache: hits=%d err=%v", hits, err)
	}

	if _, err := c.Load(srv.URL + "/page.html"); err == nil || !strings.Contains(err.Error(), "content type") {
		t.Errorf("expected a content type error, got %v", err)
	}
	if _, err := c.Load(srv.URL + "/missing.png"); err == nil || !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("expected HTTP 404, got %v", err)
	}
}

func TestHTTPFetcherResolvesRelative(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL + "/assets/")
	body, _, err := f.Fetch(context.Background(), "img/a.png")
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "/assets/img/a.png" {
		t.Errorf("path = %q", body)
	}

	if _, _, err := NewHTTPFetcher("").Fetch(context.Background(), "img/a.png"); err == nil {
		t.Error("expected an error for a relative URI without a base")
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct{ base, ref, want string }{
		{"https://a.test/x/y.html", "z.png", "https://a.test/x/z.png"},
		{"https://a.test/x/", "/root.png", "https://a.test/root.png"},
		{"https://a.test/", "https://b.test/c.png", "https://b.test/c.png"},
	}
	for _, tt := range tests {
		if got := ResolveURL(tt.base, tt.ref); got != tt.want {
			t.Errorf("ResolveURL(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
		}
	}
}
