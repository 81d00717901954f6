package player

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/soniclayer/nowplayd/internal/shared"
	"golang.org/x/time/rate"
)

// ArtworkCache resolves album-art references (remote URLs or file:// URIs
// from the media session) into content-addressed files under a cache
// directory. Files are named by a hash of the track key, so re-resolving the
// same track overwrites the same path and needs no locking.
type ArtworkCache struct {
	dir     string
	client  *retryablehttp.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewArtworkCache creates a cache rooted at dir. Downloads are retried a
// couple of times on transport errors and rate-limited so rapid track
// changes cannot hammer the image CDN.
func NewArtworkCache(dir string, logger *log.Logger) *ArtworkCache {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil

	return &ArtworkCache{
		dir:     dir,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(2), 1),
		logger:  logger,
	}
}

// Dir returns the cache directory.
func (a *ArtworkCache) Dir() string {
	return a.dir
}

// Resolve maps an artwork reference for the given track key to a local file
// path, fetching or copying it on first sight. An empty reference resolves
// to an empty path without error.
func (a *ArtworkCache) Resolve(ctx context.Context, ref, key string) (string, error) {
	if ref == "" {
		return "", nil
	}

	dest := a.pathFor(ref, key)
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create artwork dir: %w", err)
	}

	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		if err := a.download(ctx, ref, dest); err != nil {
			return "", err
		}
	case strings.HasPrefix(ref, "file://"):
		if err := copyFile(strings.TrimPrefix(ref, "file://"), dest); err != nil {
			return "", err
		}
	default:
		// Some MPRIS players hand out bare paths.
		if err := copyFile(ref, dest); err != nil {
			return "", err
		}
	}

	return dest, nil
}

func (a *ArtworkCache) pathFor(ref, key string) string {
	sum := md5.Sum([]byte(key))
	return filepath.Join(a.dir, "art_"+hex.EncodeToString(sum[:])+extFor(ref))
}

func (a *ArtworkCache) download(ctx context.Context, ref, dest string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("artwork download cancelled: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return fmt.Errorf("failed to create artwork request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("artwork download status %d", resp.StatusCode)
	}

	return writeFile(dest, resp.Body)
}

func copyFile(src, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open artwork source: %w", err)
	}
	defer f.Close()

	return writeFile(dest, f)
}

func writeFile(dest string, r io.Reader) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create artwork file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("failed to write artwork file: %w", err)
	}
	return nil
}

func extFor(ref string) string {
	if ext := path.Ext(strings.SplitN(ref, "?", 2)[0]); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".jpg"
}
