package history

import (
	"path/filepath"
	"testing"

	"github.com/soniclayer/nowplayd/internal/player"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore(t *testing.T) {
	t.Run("Records Plays", func(t *testing.T) {
		store := newTestStore(t)

		snap := player.TrackSnapshot{Track: "Pyramid Song", Artist: "Radiohead", Album: "Amnesiac", DurationMS: 296000}
		if err := store.Record(snap, "webapi"); err != nil {
			t.Fatalf("record failed: %v", err)
		}

		plays, err := store.Recent(10)
		if err != nil {
			t.Fatalf("recent failed: %v", err)
		}
		if len(plays) != 1 {
			t.Fatalf("plays = %d, want 1", len(plays))
		}

		p := plays[0]
		if p.Title != "Pyramid Song" || p.Artist != "Radiohead" || p.Album != "Amnesiac" {
			t.Errorf("play = %+v", p)
		}
		if p.TrackKey != snap.Key() {
			t.Errorf("track key = %s", p.TrackKey)
		}
		if p.Source != "webapi" {
			t.Errorf("source = %s", p.Source)
		}
		if p.ID == "" || p.PlayedAt.IsZero() {
			t.Errorf("missing id or timestamp: %+v", p)
		}
	})

	t.Run("Dedupes Consecutive Observations", func(t *testing.T) {
		store := newTestStore(t)
		snap := player.TrackSnapshot{Track: "Song A", Artist: "X"}

		for range 5 {
			if err := store.Record(snap, "local"); err != nil {
				t.Fatal(err)
			}
		}

		plays, err := store.Recent(10)
		if err != nil {
			t.Fatal(err)
		}
		if len(plays) != 1 {
			t.Errorf("plays = %d, want 1", len(plays))
		}
	})

	t.Run("Replay After Break Creates New Row", func(t *testing.T) {
		store := newTestStore(t)
		snap := player.TrackSnapshot{Track: "Song A", Artist: "X"}

		if err := store.Record(snap, "local"); err != nil {
			t.Fatal(err)
		}
		store.Break()
		if err := store.Record(snap, "local"); err != nil {
			t.Fatal(err)
		}

		plays, err := store.Recent(10)
		if err != nil {
			t.Fatal(err)
		}
		if len(plays) != 2 {
			t.Errorf("plays = %d, want 2", len(plays))
		}
	})

	t.Run("Recent Orders Newest First", func(t *testing.T) {
		store := newTestStore(t)

		for _, track := range []string{"First", "Second", "Third"} {
			if err := store.Record(player.TrackSnapshot{Track: track, Artist: "X"}, "local"); err != nil {
				t.Fatal(err)
			}
		}

		plays, err := store.Recent(2)
		if err != nil {
			t.Fatal(err)
		}
		if len(plays) != 2 {
			t.Fatalf("plays = %d, want 2", len(plays))
		}
		if plays[0].Title != "Third" || plays[1].Title != "Second" {
			t.Errorf("order = %s, %s", plays[0].Title, plays[1].Title)
		}
	})
}
