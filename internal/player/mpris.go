// Local media-session implementation of [Source] on top of MPRIS
// (org.mpris.MediaPlayer2) over the D-Bus session bus.
package player

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/godbus/dbus/v5"
	"github.com/soniclayer/nowplayd/internal/shared"
)

const (
	mprisPrefix     = "org.mpris.MediaPlayer2."
	mprisObjectPath = "/org/mpris/MediaPlayer2"
	mprisPlayerIntf = "org.mpris.MediaPlayer2.Player"
)

// sessionState is the raw per-session data read from the provider.
type sessionState struct {
	Title      string
	Artist     string
	Album      string
	ArtURL     string
	DurationMS int
	ProgressMS int
	Playing    bool
}

// mediaSessionBus abstracts the D-Bus connection so tests can substitute a
// fake provider.
type mediaSessionBus interface {
	ListPlayers() ([]string, error)
	PlayerState(name string) (sessionState, error)
	Close() error
}

type dbusSessionBus struct {
	conn *dbus.Conn
}

// ConnectSessionBus opens the user's D-Bus session bus.
func ConnectSessionBus() (*dbusSessionBus, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &dbusSessionBus{conn: conn}, nil
}

func (b *dbusSessionBus) ListPlayers() ([]string, error) {
	var names []string
	if err := b.conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return nil, fmt.Errorf("failed to list bus names: %w", err)
	}

	var players []string
	for _, name := range names {
		if strings.HasPrefix(name, mprisPrefix) {
			players = append(players, name)
		}
	}
	return players, nil
}

func (b *dbusSessionBus) PlayerState(name string) (sessionState, error) {
	obj := b.conn.Object(name, mprisObjectPath)

	metaVar, err := obj.GetProperty(mprisPlayerIntf + ".Metadata")
	if err != nil {
		return sessionState{}, fmt.Errorf("failed to read metadata: %w", err)
	}
	meta, ok := metaVar.Value().(map[string]dbus.Variant)
	if !ok {
		return sessionState{}, fmt.Errorf("unexpected metadata shape %T", metaVar.Value())
	}

	state := sessionState{
		Title:      variantString(meta["xesam:title"]),
		Album:      variantString(meta["xesam:album"]),
		ArtURL:     variantString(meta["mpris:artUrl"]),
		DurationMS: int(variantInt64(meta["mpris:length"]) / 1000),
	}

	if artists, ok := meta["xesam:artist"].Value().([]string); ok {
		state.Artist = strings.Join(artists, ", ")
	} else {
		state.Artist = variantString(meta["xesam:artist"])
	}

	if statusVar, err := obj.GetProperty(mprisPlayerIntf + ".PlaybackStatus"); err == nil {
		state.Playing = variantString(statusVar) == "Playing"
	}

	// Position is optional in practice; some players reject the read.
	if posVar, err := obj.GetProperty(mprisPlayerIntf + ".Position"); err == nil {
		state.ProgressMS = int(variantInt64(posVar) / 1000)
	}

	return state, nil
}

func (b *dbusSessionBus) Close() error {
	return b.conn.Close()
}

func variantString(v dbus.Variant) string {
	s, _ := v.Value().(string)
	return s
}

func variantInt64(v dbus.Variant) int64 {
	switch n := v.Value().(type) {
	case int64:
		return n
	case uint64:
		return int64(n)
	case int32:
		return int64(n)
	case uint32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// MPRISSource polls the local media-session provider and extracts the
// session belonging to the configured app. Thumbnail extraction is
// deduplicated by track key: an unchanged track reuses the previously
// extracted path.
type MPRISSource struct {
	appID   string
	bus     mediaSessionBus
	artwork *ArtworkCache
	logger  *log.Logger

	// poll-goroutine state, only touched from Poll
	lastKey   string
	cachedArt string
}

// NewMPRISSource connects to the session bus and creates a local source
// matching sessions whose bus name contains appID (case-insensitive).
func NewMPRISSource(appID string, artwork *ArtworkCache, logger *log.Logger) (*MPRISSource, error) {
	bus, err := ConnectSessionBus()
	if err != nil {
		return nil, err
	}
	return newMPRISSource(appID, bus, artwork, logger), nil
}

func newMPRISSource(appID string, bus mediaSessionBus, artwork *ArtworkCache, logger *log.Logger) *MPRISSource {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &MPRISSource{
		appID:   strings.ToLower(appID),
		bus:     bus,
		artwork: artwork,
		logger:  logger,
	}
}

func (s *MPRISSource) Name() string {
	return "mpris"
}

// Poll finds the matching media session and reads its metadata, playback
// status and timeline.
func (s *MPRISSource) Poll(ctx context.Context) (*TrackSnapshot, error) {
	players, err := s.bus.ListPlayers()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTransient, err)
	}

	var session string
	for _, name := range players {
		if strings.Contains(strings.ToLower(name), s.appID) {
			session = name
			break
		}
	}
	if session == "" {
		return nil, shared.ErrNoSession
	}

	state, err := s.bus.PlayerState(session)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTransient, err)
	}
	if state.Title == "" {
		return nil, shared.ErrNoSession
	}

	snap := &TrackSnapshot{
		Track:      state.Title,
		Artist:     state.Artist,
		Album:      state.Album,
		DurationMS: state.DurationMS,
		ProgressMS: state.ProgressMS,
		Playing:    state.Playing,
	}

	key := snap.Key()
	if key == s.lastKey {
		snap.AlbumArtRef = s.cachedArt
	} else {
		art := ""
		if s.artwork != nil {
			art, err = s.artwork.Resolve(ctx, state.ArtURL, key)
			if err != nil {
				s.logger.Warnf("thumbnail extraction failed: %v", err)
				art = ""
			}
		}
		s.lastKey = key
		s.cachedArt = art
		snap.AlbumArtRef = art
	}

	return snap, nil
}

// Close releases the bus connection.
func (s *MPRISSource) Close() error {
	return s.bus.Close()
}
