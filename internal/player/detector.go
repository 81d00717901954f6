package player

import "context"

// ArtifactResolver maps an artwork reference for a track key to a locally
// usable artifact (typically a cached file path). Resolution is the
// expensive step the detector deduplicates.
type ArtifactResolver func(ctx context.Context, ref, key string) (string, error)

// ChangeDetector compares consecutive snapshots. Progress and play/pause
// changes always propagate; only artifact resolution is deduplicated by the
// composite track key, so two snapshots of the same track never resolve
// artwork twice.
//
// Not safe for concurrent use; the scheduler drives it from a single
// goroutine.
type ChangeDetector struct {
	resolve ArtifactResolver

	last    *TrackSnapshot
	lastKey string
	lastRef string
}

// NewChangeDetector creates a detector. resolve may be nil, in which case
// the snapshot's artwork reference passes through untouched.
func NewChangeDetector(resolve ArtifactResolver) *ChangeDetector {
	return &ChangeDetector{resolve: resolve}
}

// Observe resolves the snapshot's artifact reference and reports whether the
// snapshot meaningfully differs from the previous observation.
func (d *ChangeDetector) Observe(ctx context.Context, snap TrackSnapshot) (TrackSnapshot, bool) {
	key := snap.Key()

	if d.resolve != nil {
		if key == d.lastKey {
			snap.AlbumArtRef = d.lastRef
		} else {
			if ref, err := d.resolve(ctx, snap.AlbumArtRef, key); err == nil {
				snap.AlbumArtRef = ref
			}
			d.lastRef = snap.AlbumArtRef
		}
	}
	d.lastKey = key

	changed := d.last == nil ||
		key != d.last.Key() ||
		snap.Playing != d.last.Playing ||
		snap.ProgressMS != d.last.ProgressMS

	copied := snap
	d.last = &copied

	return snap, changed
}

// Reset forgets the last emission so the next snapshot is always reported as
// changed. The artifact cache survives a reset: a track that resumes after a
// gap does not re-resolve its artwork.
func (d *ChangeDetector) Reset() {
	d.last = nil
}
