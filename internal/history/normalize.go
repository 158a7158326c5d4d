package history

import (
	"github.com/suzaram3/spotify-history/internal/store"
)

// Record holds the flat rows produced from one play event, ready for the
// loader. Artists contains every artist referenced by either the track or
// its album, deduplicated.
type Record struct {
	Artists      []store.Artist
	Album        store.Album
	AlbumArtists []store.AlbumArtist
	Song         store.Song
	SongArtists  []store.SongArtist
	Stream       store.SongStreamed
}

// Normalize maps one play event into flat records matching the storage
// schema. Returns a MalformedRecordError naming the offending field when the
// event is missing required data; the caller decides whether to skip or
// abort.
func Normalize(event PlayEvent) (Record, error) {
	switch {
	case event.TrackID == "":
		return Record{}, &MalformedRecordError{Field: "track id"}
	case event.TrackName == "":
		return Record{}, &MalformedRecordError{Field: "track name"}
	case len(event.Artists) == 0:
		return Record{}, &MalformedRecordError{Field: "artists"}
	case event.Album.ID == "":
		return Record{}, &MalformedRecordError{Field: "album id"}
	case len(event.Album.ReleaseDate) < 4:
		return Record{}, &MalformedRecordError{Field: "album release date"}
	case event.PlayedAt.IsZero():
		return Record{}, &MalformedRecordError{Field: "played at"}
	}

	playedAt := TruncatePlayedAt(event.PlayedAt)

	rec := Record{
		Album: store.Album{
			ID:          event.Album.ID,
			Name:        event.Album.Name,
			ReleaseYear: event.Album.ReleaseDate[:4],
		},
		Song: store.Song{
			ID:         event.TrackID,
			Name:       event.TrackName,
			AlbumID:    event.Album.ID,
			LengthMS:   event.DurationMS,
			SpotifyURL: event.SpotifyURL,
		},
		Stream: store.SongStreamed{
			SongID:   event.TrackID,
			PlayedAt: playedAt,
		},
	}

	seen := make(map[string]bool, len(event.Artists)+len(event.Album.Artists))

	for _, a := range event.Artists {
		if a.ID == "" {
			return Record{}, &MalformedRecordError{Field: "artist id"}
		}
		if !seen[a.ID] {
			seen[a.ID] = true
			rec.Artists = append(rec.Artists, store.Artist{ID: a.ID, Name: a.Name})
		}
		rec.SongArtists = append(rec.SongArtists, store.SongArtist{
			SongID:   event.TrackID,
			ArtistID: a.ID,
		})
	}

	for _, a := range event.Album.Artists {
		if a.ID == "" {
			continue
		}
		if !seen[a.ID] {
			seen[a.ID] = true
			rec.Artists = append(rec.Artists, store.Artist{ID: a.ID, Name: a.Name})
		}
		rec.AlbumArtists = append(rec.AlbumArtists, store.AlbumArtist{
			AlbumID:  event.Album.ID,
			ArtistID: a.ID,
		})
	}

	return rec, nil
}

// CompileBatch flattens records into per-table slices, deduplicating entity
// rows by primary key. Stream rows are appended as-is; the reconciler has
// already removed duplicate events.
func CompileBatch(records []Record) store.Batch {
	var batch store.Batch

	seenArtists := make(map[string]bool)
	seenAlbums := make(map[string]bool)
	seenAlbumArtists := make(map[store.AlbumArtist]bool)
	seenSongs := make(map[string]bool)
	seenSongArtists := make(map[store.SongArtist]bool)

	for _, rec := range records {
		for _, a := range rec.Artists {
			if !seenArtists[a.ID] {
				seenArtists[a.ID] = true
				batch.Artists = append(batch.Artists, a)
			}
		}
		if !seenAlbums[rec.Album.ID] {
			seenAlbums[rec.Album.ID] = true
			batch.Albums = append(batch.Albums, rec.Album)
		}
		for _, aa := range rec.AlbumArtists {
			if !seenAlbumArtists[aa] {
				seenAlbumArtists[aa] = true
				batch.AlbumArtists = append(batch.AlbumArtists, aa)
			}
		}
		if !seenSongs[rec.Song.ID] {
			seenSongs[rec.Song.ID] = true
			batch.Songs = append(batch.Songs, rec.Song)
		}
		for _, sa := range rec.SongArtists {
			if !seenSongArtists[sa] {
				seenSongArtists[sa] = true
				batch.SongArtists = append(batch.SongArtists, sa)
			}
		}
		batch.Streams = append(batch.Streams, rec.Stream)
	}

	return batch
}
