package player

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func TestArtworkCache(t *testing.T) {
	t.Run("Empty Ref Resolves To Empty Path", func(t *testing.T) {
		cache := NewArtworkCache(t.TempDir(), nil)

		p, err := cache.Resolve(context.Background(), "", "Song|Artist|Album")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p != "" {
			t.Errorf("path = %s, want empty", p)
		}
	})

	t.Run("Downloads Remote Artwork Once", func(t *testing.T) {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.Write([]byte("png-bytes"))
		}))
		defer srv.Close()

		cache := NewArtworkCache(t.TempDir(), nil)
		key := "Song|Artist|Album"

		p1, err := cache.Resolve(context.Background(), srv.URL+"/art.png", key)
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		data, err := os.ReadFile(p1)
		if err != nil {
			t.Fatalf("cached file unreadable: %v", err)
		}
		if string(data) != "png-bytes" {
			t.Errorf("cached content = %q", data)
		}
		if !strings.HasSuffix(p1, ".png") {
			t.Errorf("expected .png extension, got %s", p1)
		}

		p2, err := cache.Resolve(context.Background(), srv.URL+"/art.png", key)
		if err != nil {
			t.Fatalf("second resolve failed: %v", err)
		}
		if p2 != p1 {
			t.Errorf("paths differ: %s vs %s", p1, p2)
		}
		if n := atomic.LoadInt32(&hits); n != 1 {
			t.Errorf("server hits = %d, want 1", n)
		}
	})

	t.Run("Copies File URIs", func(t *testing.T) {
		srcDir := t.TempDir()
		src := filepath.Join(srcDir, "cover.jpg")
		if err := os.WriteFile(src, []byte("jpeg-bytes"), 0644); err != nil {
			t.Fatal(err)
		}

		cache := NewArtworkCache(t.TempDir(), nil)
		p, err := cache.Resolve(context.Background(), "file://"+src, "Song|Artist|Album")
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}

		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("cached file unreadable: %v", err)
		}
		if string(data) != "jpeg-bytes" {
			t.Errorf("cached content = %q", data)
		}
	})

	t.Run("Distinct Keys Get Distinct Paths", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("art"))
		}))
		defer srv.Close()

		cache := NewArtworkCache(t.TempDir(), nil)
		p1, err := cache.Resolve(context.Background(), srv.URL+"/a.jpg", "Track A|X|Y")
		if err != nil {
			t.Fatal(err)
		}
		p2, err := cache.Resolve(context.Background(), srv.URL+"/a.jpg", "Track B|X|Y")
		if err != nil {
			t.Fatal(err)
		}
		if p1 == p2 {
			t.Errorf("expected distinct cache paths, both %s", p1)
		}
	})

	t.Run("Download Failure Reports Error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		cache := NewArtworkCache(t.TempDir(), nil)
		if _, err := cache.Resolve(context.Background(), srv.URL+"/missing.jpg", "k"); err == nil {
			t.Error("expected an error for a 404 download")
		}
	})
}

func TestExtFor(t *testing.T) {
	cases := map[string]string{
		"https://img.example/a.png":          ".png",
		"https://img.example/a.jpeg?size=64": ".jpeg",
		"https://img.example/ab67616d0000":   ".jpg",
		"file:///home/u/.cache/cover.webp":   ".webp",
	}
	for ref, want := range cases {
		if got := extFor(ref); got != want {
			t.Errorf("extFor(%s) = %s, want %s", ref, got, want)
		}
	}
}
