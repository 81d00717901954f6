// Spotify Web API implementation of [Source].
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/get-the-users-currently-playing-track
package player

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/soniclayer/nowplayd/internal/auth"
	"github.com/soniclayer/nowplayd/internal/shared"
)

const spotifyCurrentlyPlayingURL = "https://api.spotify.com/v1/me/player/currently-playing"

type spotifyImage struct {
	URL string `json:"url"`
}

type spotifyArtist struct {
	Name string `json:"name"`
}

type spotifyAlbum struct {
	Name   string         `json:"name"`
	Images []spotifyImage `json:"images"`
}

type spotifyItem struct {
	Name       string          `json:"name"`
	Artists    []spotifyArtist `json:"artists"`
	Album      spotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
}

type currentlyPlaying struct {
	Item       *spotifyItem `json:"item"`
	ProgressMS int          `json:"progress_ms"`
	IsPlaying  bool         `json:"is_playing"`
}

// SpotifySource polls the Spotify Web API for the currently-playing track.
type SpotifySource struct {
	auth     *auth.Manager
	client   *http.Client
	endpoint string
	logger   *log.Logger
}

// SpotifySourceOpts configures a SpotifySource. The endpoint override exists
// for tests.
type SpotifySourceOpts struct {
	HTTPClient *http.Client
	Endpoint   string
	Logger     *log.Logger
}

// NewSpotifySource creates a source backed by the given token manager.
func NewSpotifySource(manager *auth.Manager, opts SpotifySourceOpts) *SpotifySource {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Endpoint == "" {
		opts.Endpoint = spotifyCurrentlyPlayingURL
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &SpotifySource{
		auth:     manager,
		client:   opts.HTTPClient,
		endpoint: opts.Endpoint,
		logger:   opts.Logger,
	}
}

func (s *SpotifySource) Name() string {
	return "spotify-webapi"
}

// Poll fetches the currently-playing resource. A 401 triggers exactly one
// token refresh and one retry; a 204 is the definitive nothing-playing
// signal and maps to (nil, nil).
func (s *SpotifySource) Poll(ctx context.Context) (*TrackSnapshot, error) {
	if !s.auth.EnsureValid(ctx) {
		return nil, shared.ErrAuthRequired
	}

	resp, err := s.get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTransient, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		if !s.auth.Refresh(ctx) {
			return nil, shared.ErrAuthRequired
		}
		resp, err = s.get(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrTransient, err)
		}
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: spotify API status %d", shared.ErrTransient, resp.StatusCode)
	}

	var body currentlyPlaying
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformed, err)
	}
	if body.Item == nil {
		return nil, fmt.Errorf("%w: response missing item", shared.ErrMalformed)
	}

	names := make([]string, 0, len(body.Item.Artists))
	for _, artist := range body.Item.Artists {
		if artist.Name != "" {
			names = append(names, artist.Name)
		}
	}

	var artRef string
	if len(body.Item.Album.Images) > 0 {
		// Spotify orders images largest-first.
		artRef = body.Item.Album.Images[0].URL
	}

	return &TrackSnapshot{
		Track:       body.Item.Name,
		Artist:      strings.Join(names, ", "),
		Album:       body.Item.Album.Name,
		AlbumArtRef: artRef,
		DurationMS:  body.Item.DurationMS,
		ProgressMS:  body.ProgressMS,
		Playing:     body.IsPlaying,
	}, nil
}

func (s *SpotifySource) get(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.auth.AccessToken())

	return s.client.Do(req)
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
