// Package history implements the incremental ingestion pipeline: it
// normalizes raw play events into flat relational records, reconciles them
// against the persisted high-water mark, and loads the new subset.
package history

import (
	"fmt"
	"time"
)

// ArtistRef identifies one artist credited on a track or album.
type ArtistRef struct {
	ID   string
	Name string
}

// AlbumRef identifies the album a track belongs to.
type AlbumRef struct {
	ID          string
	Name        string
	ReleaseDate string // e.g. "2020-05-01" or just "2020"
	Artists     []ArtistRef
}

// PlayEvent is one validated play of a track at a specific time. It is the
// typed boundary between the raw API payload and the rest of the pipeline;
// downstream code never touches raw payload shapes.
type PlayEvent struct {
	TrackID    string
	TrackName  string
	DurationMS int
	SpotifyURL string
	PlayedAt   time.Time
	Artists    []ArtistRef
	Album      AlbumRef
}

// MalformedRecordError reports a play event that cannot be normalized.
// It names the missing or invalid field so the skip can be logged usefully.
type MalformedRecordError struct {
	Field string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed play event: missing or invalid %s", e.Field)
}

// TruncatePlayedAt normalizes a play timestamp to second precision in UTC.
// Ingestion and watermark queries must agree on this rule exactly or the
// dedup cutoff breaks.
func TruncatePlayedAt(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
