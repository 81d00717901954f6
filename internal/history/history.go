// package history persists a listening log of observed track changes.
//
// The store keeps one row per playback, deduplicating consecutive
// observations of the same track so a three-second poll interval does not
// produce a row per poll.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/soniclayer/nowplayd/internal/player"
	"github.com/soniclayer/nowplayd/internal/shared"
)

const schema = `
CREATE TABLE IF NOT EXISTS plays (
	id TEXT PRIMARY KEY,
	track_key TEXT NOT NULL,
	title TEXT NOT NULL,
	artist TEXT NOT NULL,
	album TEXT NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	source TEXT NOT NULL,
	played_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_plays_played_at ON plays(played_at DESC);
`

// Play is one row of the listening log.
type Play struct {
	ID         string
	TrackKey   string
	Title      string
	Artist     string
	Album      string
	DurationMS int
	Source     string
	PlayedAt   time.Time
}

// Store records track changes in SQLite.
type Store struct {
	db *sql.DB

	// lastKey dedupes consecutive records; the store is driven by the
	// single event-consumer goroutine.
	lastKey string
}

// NewStore opens (or creates) the listening log at path and applies the
// schema.
func NewStore(path string) (*Store, error) {
	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Record appends the snapshot to the log, unless it is the same track as the
// previous record. Pause/resume and progress updates of the current track
// never create rows.
func (s *Store) Record(snap player.TrackSnapshot, source string) error {
	key := snap.Key()
	if key == s.lastKey {
		return nil
	}

	query := `
		INSERT INTO plays (id, track_key, title, artist, album, duration_ms, source, played_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		shared.GenerateID(),
		key,
		snap.Track,
		snap.Artist,
		snap.Album,
		snap.DurationMS,
		source,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record play: %w", err)
	}

	s.lastKey = key
	return nil
}

// Break marks a gap in playback so the same track replayed later creates a
// fresh row.
func (s *Store) Break() {
	s.lastKey = ""
}

// Recent returns up to limit plays, most recent first.
func (s *Store) Recent(limit int) ([]Play, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, track_key, title, artist, album, duration_ms, source, played_at
		FROM plays
		ORDER BY played_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer rows.Close()

	var plays []Play
	for rows.Next() {
		var p Play
		if err := rows.Scan(&p.ID, &p.TrackKey, &p.Title, &p.Artist, &p.Album, &p.DurationMS, &p.Source, &p.PlayedAt); err != nil {
			return nil, fmt.Errorf("failed to scan play: %w", err)
		}
		plays = append(plays, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plays: %w", err)
	}

	return plays, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
