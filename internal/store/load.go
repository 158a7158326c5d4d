package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Exported table names, used as keys in the counts returned by Load.
const (
	TableArtists      = "artists"
	TableAlbums       = "albums"
	TableAlbumArtists = "album_artists"
	TableSongs        = "songs"
	TableSongArtists  = "song_artists"
	TableStreams      = "streams"
)

// execer is the narrow statement surface the insert steps need. Both
// pgx.Tx and pgxpool.Pool satisfy it.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// insertSteps lists the per-table inserts in foreign-key dependency order.
// Loads must run in this order or the streams insert would reference songs
// that do not exist yet.
var insertSteps = []struct {
	table string
	run   func(context.Context, execer, Batch) (int64, error)
}{
	{TableArtists, func(ctx context.Context, db execer, b Batch) (int64, error) {
		return insertArtists(ctx, db, b.Artists)
	}},
	{TableAlbums, func(ctx context.Context, db execer, b Batch) (int64, error) {
		return insertAlbums(ctx, db, b.Albums)
	}},
	{TableAlbumArtists, func(ctx context.Context, db execer, b Batch) (int64, error) {
		return insertAlbumArtists(ctx, db, b.AlbumArtists)
	}},
	{TableSongs, func(ctx context.Context, db execer, b Batch) (int64, error) {
		return insertSongs(ctx, db, b.Songs)
	}},
	{TableSongArtists, func(ctx context.Context, db execer, b Batch) (int64, error) {
		return insertSongArtists(ctx, db, b.SongArtists)
	}},
	{TableStreams, func(ctx context.Context, db execer, b Batch) (int64, error) {
		return insertStreams(ctx, db, b.Streams)
	}},
}

// loadOrder is derived from insertSteps so the two cannot drift.
var loadOrder = func() []string {
	tables := make([]string, len(insertSteps))
	for i, step := range insertSteps {
		tables[i] = step.table
	}
	return tables
}()

// Load inserts a normalized batch into all tables within one transaction.
// Every insert is conflict-free: rows whose primary key already exists are
// skipped, never updated. Returns the number of rows actually inserted per
// table. Any other failure rolls back the whole transaction.
func (s *Store) Load(ctx context.Context, batch Batch) (map[string]int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning transaction: %v", ErrUnavailable, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	counts, err := loadBatch(ctx, tx, batch)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: committing load: %v", ErrUnavailable, err)
	}
	return counts, nil
}

// loadBatch runs the insert steps in dependency order against db.
func loadBatch(ctx context.Context, db execer, batch Batch) (map[string]int64, error) {
	counts := make(map[string]int64, len(insertSteps))
	for _, step := range insertSteps {
		n, err := step.run(ctx, db, batch)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", step.table, err)
		}
		counts[step.table] = n
	}
	return counts, nil
}

func insertArtists(ctx context.Context, db execer, artists []Artist) (int64, error) {
	if len(artists) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO music.artists (id, name)
		SELECT * FROM unnest($1::text[], $2::text[])
		ON CONFLICT (id) DO NOTHING
	`

	ids := make([]string, len(artists))
	names := make([]string, len(artists))
	for i, a := range artists {
		ids[i] = a.ID
		names[i] = a.Name
	}

	tag, err := db.Exec(ctx, query, ids, names)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func insertAlbums(ctx context.Context, db execer, albums []Album) (int64, error) {
	if len(albums) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO music.albums (id, name, release_year)
		SELECT * FROM unnest($1::text[], $2::text[], $3::text[])
		ON CONFLICT (id) DO NOTHING
	`

	ids := make([]string, len(albums))
	names := make([]string, len(albums))
	years := make([]string, len(albums))
	for i, a := range albums {
		ids[i] = a.ID
		names[i] = a.Name
		years[i] = a.ReleaseYear
	}

	tag, err := db.Exec(ctx, query, ids, names, years)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func insertAlbumArtists(ctx context.Context, db execer, links []AlbumArtist) (int64, error) {
	if len(links) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO music.album_artists (album_id, artist_id)
		SELECT * FROM unnest($1::text[], $2::text[])
		ON CONFLICT (album_id, artist_id) DO NOTHING
	`

	albumIDs := make([]string, len(links))
	artistIDs := make([]string, len(links))
	for i, l := range links {
		albumIDs[i] = l.AlbumID
		artistIDs[i] = l.ArtistID
	}

	tag, err := db.Exec(ctx, query, albumIDs, artistIDs)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func insertSongs(ctx context.Context, db execer, songs []Song) (int64, error) {
	if len(songs) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO music.songs (id, name, album_id, length_ms, spotify_url)
		SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::int[], $5::text[])
		ON CONFLICT (id) DO NOTHING
	`

	ids := make([]string, len(songs))
	names := make([]string, len(songs))
	albumIDs := make([]string, len(songs))
	lengths := make([]int, len(songs))
	urls := make([]string, len(songs))
	for i, s := range songs {
		ids[i] = s.ID
		names[i] = s.Name
		albumIDs[i] = s.AlbumID
		lengths[i] = s.LengthMS
		urls[i] = s.SpotifyURL
	}

	tag, err := db.Exec(ctx, query, ids, names, albumIDs, lengths, urls)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func insertSongArtists(ctx context.Context, db execer, links []SongArtist) (int64, error) {
	if len(links) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO music.song_artists (song_id, artist_id)
		SELECT * FROM unnest($1::text[], $2::text[])
		ON CONFLICT (song_id, artist_id) DO NOTHING
	`

	songIDs := make([]string, len(links))
	artistIDs := make([]string, len(links))
	for i, l := range links {
		songIDs[i] = l.SongID
		artistIDs[i] = l.ArtistID
	}

	tag, err := db.Exec(ctx, query, songIDs, artistIDs)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func insertStreams(ctx context.Context, db execer, streams []SongStreamed) (int64, error) {
	if len(streams) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO music.streams (song_id, played_at)
		SELECT * FROM unnest($1::text[], $2::timestamp[])
		ON CONFLICT (song_id, played_at) DO NOTHING
	`

	songIDs := make([]string, len(streams))
	playedAts := make([]time.Time, len(streams))
	for i, st := range streams {
		songIDs[i] = st.SongID
		playedAts[i] = st.PlayedAt
	}

	tag, err := db.Exec(ctx, query, songIDs, playedAts)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
