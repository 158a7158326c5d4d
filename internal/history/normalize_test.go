package history

import (
	"errors"
	"testing"
	"time"
)

func validEvent() PlayEvent {
	return PlayEvent{
		TrackID:    "T1",
		TrackName:  "Test Song",
		DurationMS: 215000,
		SpotifyURL: "https://open.spotify.com/track/T1",
		PlayedAt:   time.Date(2020, 5, 1, 10, 0, 0, 0, time.UTC),
		Artists: []ArtistRef{
			{ID: "A1", Name: "Artist One"},
		},
		Album: AlbumRef{
			ID:          "AL1",
			Name:        "Test Album",
			ReleaseDate: "2020-05-01",
			Artists:     []ArtistRef{{ID: "A1", Name: "Artist One"}},
		},
	}
}

func TestNormalize_RoundTrip(t *testing.T) {
	event := validEvent()
	// Sub-second precision and zone must not survive normalization.
	event.PlayedAt = time.Date(2020, 5, 1, 10, 0, 0, 123000000, time.UTC)

	rec, err := Normalize(event)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if rec.Song.ID != "T1" {
		t.Errorf("Song.ID = %q, want %q", rec.Song.ID, "T1")
	}
	if len(rec.Artists) != 1 || rec.Artists[0].ID != "A1" {
		t.Errorf("Artists = %v, want single artist A1", rec.Artists)
	}
	if rec.Album.ReleaseYear != "2020" {
		t.Errorf("Album.ReleaseYear = %q, want %q", rec.Album.ReleaseYear, "2020")
	}
	if got := rec.Stream.PlayedAt.Format("2006-01-02T15:04:05"); got != "2020-05-01T10:00:00" {
		t.Errorf("Stream.PlayedAt = %q, want %q", got, "2020-05-01T10:00:00")
	}
	if rec.Stream.PlayedAt.Nanosecond() != 0 {
		t.Errorf("Stream.PlayedAt keeps sub-second precision: %v", rec.Stream.PlayedAt)
	}
	if rec.Song.LengthMS != 215000 {
		t.Errorf("Song.LengthMS = %d, want 215000", rec.Song.LengthMS)
	}
}

func TestNormalize_MalformedFields(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*PlayEvent)
		wantField string
	}{
		{"missing track id", func(e *PlayEvent) { e.TrackID = "" }, "track id"},
		{"missing track name", func(e *PlayEvent) { e.TrackName = "" }, "track name"},
		{"no artists", func(e *PlayEvent) { e.Artists = nil }, "artists"},
		{"missing album id", func(e *PlayEvent) { e.Album.ID = "" }, "album id"},
		{"short release date", func(e *PlayEvent) { e.Album.ReleaseDate = "202" }, "album release date"},
		{"zero played at", func(e *PlayEvent) { e.PlayedAt = time.Time{} }, "played at"},
		{"empty artist id", func(e *PlayEvent) { e.Artists[0].ID = "" }, "artist id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := validEvent()
			tt.mutate(&event)

			_, err := Normalize(event)
			var malformed *MalformedRecordError
			if !errors.As(err, &malformed) {
				t.Fatalf("Normalize() error = %v, want MalformedRecordError", err)
			}
			if malformed.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", malformed.Field, tt.wantField)
			}
		})
	}
}

func TestNormalize_YearOnlyReleaseDate(t *testing.T) {
	event := validEvent()
	event.Album.ReleaseDate = "1973"

	rec, err := Normalize(event)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if rec.Album.ReleaseYear != "1973" {
		t.Errorf("Album.ReleaseYear = %q, want %q", rec.Album.ReleaseYear, "1973")
	}
}

func TestNormalize_MultiArtist(t *testing.T) {
	event := validEvent()
	event.Artists = []ArtistRef{
		{ID: "A1", Name: "Artist One"},
		{ID: "A2", Name: "Artist Two"},
	}
	event.Album.Artists = []ArtistRef{
		{ID: "A1", Name: "Artist One"},
		{ID: "A3", Name: "Album Artist"},
	}

	rec, err := Normalize(event)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if len(rec.Artists) != 3 {
		t.Errorf("Artists = %d, want 3 deduplicated artists", len(rec.Artists))
	}
	if len(rec.SongArtists) != 2 {
		t.Errorf("SongArtists = %d, want 2", len(rec.SongArtists))
	}
	if len(rec.AlbumArtists) != 2 {
		t.Errorf("AlbumArtists = %d, want 2", len(rec.AlbumArtists))
	}
}

func TestCompileBatch_DeduplicatesEntities(t *testing.T) {
	first := validEvent()
	second := validEvent()
	second.PlayedAt = second.PlayedAt.Add(5 * time.Minute)

	recs := make([]Record, 0, 2)
	for _, e := range []PlayEvent{first, second} {
		rec, err := Normalize(e)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		recs = append(recs, rec)
	}

	batch := CompileBatch(recs)

	if len(batch.Artists) != 1 {
		t.Errorf("Artists = %d, want 1", len(batch.Artists))
	}
	if len(batch.Albums) != 1 {
		t.Errorf("Albums = %d, want 1", len(batch.Albums))
	}
	if len(batch.Songs) != 1 {
		t.Errorf("Songs = %d, want 1", len(batch.Songs))
	}
	if len(batch.SongArtists) != 1 {
		t.Errorf("SongArtists = %d, want 1", len(batch.SongArtists))
	}
	if len(batch.Streams) != 2 {
		t.Errorf("Streams = %d, want 2 (distinct play events)", len(batch.Streams))
	}
}

func TestCompileBatch_ReferentialIntegrity(t *testing.T) {
	event := validEvent()
	other := validEvent()
	other.TrackID = "T2"
	other.TrackName = "Other Song"
	other.PlayedAt = other.PlayedAt.Add(time.Hour)
	other.Artists = []ArtistRef{{ID: "A9", Name: "Someone Else"}}
	other.Album = AlbumRef{ID: "AL9", Name: "Other Album", ReleaseDate: "1999", Artists: []ArtistRef{{ID: "A9", Name: "Someone Else"}}}

	var recs []Record
	for _, e := range []PlayEvent{event, other} {
		rec, err := Normalize(e)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		recs = append(recs, rec)
	}

	batch := CompileBatch(recs)

	artists := make(map[string]bool)
	for _, a := range batch.Artists {
		artists[a.ID] = true
	}
	albums := make(map[string]bool)
	for _, a := range batch.Albums {
		albums[a.ID] = true
	}
	songs := make(map[string]bool)
	for _, s := range batch.Songs {
		songs[s.ID] = true
	}

	for _, s := range batch.Songs {
		if !albums[s.AlbumID] {
			t.Errorf("song %s references missing album %s", s.ID, s.AlbumID)
		}
	}
	for _, aa := range batch.AlbumArtists {
		if !albums[aa.AlbumID] || !artists[aa.ArtistID] {
			t.Errorf("album_artist %v references missing row", aa)
		}
	}
	for _, sa := range batch.SongArtists {
		if !songs[sa.SongID] || !artists[sa.ArtistID] {
			t.Errorf("song_artist %v references missing row", sa)
		}
	}
	for _, st := range batch.Streams {
		if !songs[st.SongID] {
			t.Errorf("stream references missing song %s", st.SongID)
		}
	}
}
