package store

import "time"

// Artist represents a row in the music.artists table.
type Artist struct {
	ID   string
	Name string
}

// Album represents a row in the music.albums table.
type Album struct {
	ID          string
	Name        string
	ReleaseYear string // 4-digit year
}

// AlbumArtist links an album to one of its artists.
type AlbumArtist struct {
	AlbumID  string
	ArtistID string
}

// Song represents a row in the music.songs table.
type Song struct {
	ID         string
	Name       string
	AlbumID    string
	LengthMS   int
	SpotifyURL string
}

// SongArtist links a song to one of its artists.
type SongArtist struct {
	SongID   string
	ArtistID string
}

// SongStreamed represents one play event in the music.streams table.
// The composite primary key (song_id, played_at) is the natural dedup key.
type SongStreamed struct {
	SongID   string
	PlayedAt time.Time
}

// Batch holds the flat records for one load, grouped per table.
type Batch struct {
	Artists      []Artist
	Albums       []Album
	AlbumArtists []AlbumArtist
	Songs        []Song
	SongArtists  []SongArtist
	Streams      []SongStreamed
}

// Empty reports whether the batch contains no stream rows.
func (b Batch) Empty() bool {
	return len(b.Streams) == 0
}
