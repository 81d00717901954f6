package player

import "context"

// TrackSnapshot is one observation of current playback. Immutable once
// constructed.
type TrackSnapshot struct {
	Track       string
	Artist      string
	Album       string
	AlbumArtRef string // URL or local file path, depending on the source
	DurationMS  int
	ProgressMS  int
	Playing     bool
}

// Key returns the composite track identity used for change detection and
// artwork caching.
func (t TrackSnapshot) Key() string {
	return t.Track + "|" + t.Artist + "|" + t.Album
}

// Source is a backend that can fetch one snapshot of current playback.
//
// Poll returns (nil, nil) when the backend definitively reports nothing
// playing (the Web API's 204). Other failures are reported through the
// shared sentinel errors: ErrNoSession when no matching session exists,
// ErrAuthRequired when credentials are invalid and could not be refreshed,
// ErrTransient for retry-worthy failures, and ErrMalformed for unexpected
// response shapes.
type Source interface {
	Name() string
	Poll(ctx context.Context) (*TrackSnapshot, error)
}

// Connectivity is the scheduler's view of the playback session.
type Connectivity int

const (
	ConnectivityUnknown Connectivity = iota
	ConnectivityConnected
	ConnectivityStopped
)

func (c Connectivity) String() string {
	switch c {
	case ConnectivityConnected:
		return "connected"
	case ConnectivityStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
