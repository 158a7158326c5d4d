package store

import (
	"context"
	"fmt"
	"time"
)

// MaxPlayedAt returns the most recent played_at timestamp on record, the
// high-water mark for incremental fetches. Returns the zero time when no
// streams have been recorded yet.
func (s *Store) MaxPlayedAt(ctx context.Context) (time.Time, error) {
	query := `SELECT MAX(played_at) FROM music.streams`

	var max *time.Time
	if err := s.pool.QueryRow(ctx, query).Scan(&max); err != nil {
		return time.Time{}, fmt.Errorf("%w: querying max played_at: %v", ErrUnavailable, err)
	}
	if max == nil {
		return time.Time{}, nil
	}
	return *max, nil
}

// TableCounts returns the current row count of every table.
func (s *Store) TableCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(loadOrder))
	for _, table := range loadOrder {
		var n int64
		query := fmt.Sprintf(`SELECT COUNT(*) FROM music.%s`, table)
		if err := s.pool.QueryRow(ctx, query).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// SongStreamCount returns how many times a song has been streamed.
func (s *Store) SongStreamCount(ctx context.Context, songID string) (int64, error) {
	query := `SELECT COUNT(*) FROM music.streams WHERE song_id = $1`

	var n int64
	if err := s.pool.QueryRow(ctx, query, songID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting streams for song: %w", err)
	}
	return n, nil
}

// DayCount is the number of streams recorded on one calendar day.
type DayCount struct {
	Day   time.Time
	Count int64
}

// DailyStreamCounts returns stream counts grouped by calendar day, most
// recent day first.
func (s *Store) DailyStreamCounts(ctx context.Context) ([]DayCount, error) {
	query := `
		SELECT played_at::date, COUNT(*)
		FROM music.streams
		GROUP BY played_at::date
		ORDER BY played_at::date DESC
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying daily stream counts: %w", err)
	}
	defer rows.Close()

	var days []DayCount
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, fmt.Errorf("scanning daily stream count: %w", err)
		}
		days = append(days, dc)
	}
	return days, rows.Err()
}

// NameCount pairs a display name with a stream count.
type NameCount struct {
	Name  string
	Count int64
}

// TopSongs returns the most streamed songs, highest count first.
func (s *Store) TopSongs(ctx context.Context, limit int) ([]NameCount, error) {
	query := `
		SELECT s.name, COUNT(st.song_id)
		FROM music.songs s
		JOIN music.streams st ON s.id = st.song_id
		GROUP BY s.id, s.name
		ORDER BY COUNT(st.song_id) DESC
		LIMIT $1
	`
	return s.queryNameCounts(ctx, query, limit)
}

// TopArtists returns the most streamed artists, highest count first. Streams
// reach artists through the song_artists join table, so a collaboration
// credits every listed artist.
func (s *Store) TopArtists(ctx context.Context, limit int) ([]NameCount, error) {
	query := `
		SELECT a.name, COUNT(st.song_id)
		FROM music.artists a
		JOIN music.song_artists sa ON a.id = sa.artist_id
		JOIN music.streams st ON st.song_id = sa.song_id
		GROUP BY a.id, a.name
		ORDER BY COUNT(st.song_id) DESC
		LIMIT $1
	`
	return s.queryNameCounts(ctx, query, limit)
}

func (s *Store) queryNameCounts(ctx context.Context, query string, limit int) ([]NameCount, error) {
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying name counts: %w", err)
	}
	defer rows.Close()

	var results []NameCount
	for rows.Next() {
		var nc NameCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, fmt.Errorf("scanning name count: %w", err)
		}
		results = append(results, nc)
	}
	return results, rows.Err()
}

// SongsMissingLength returns the ids of songs whose length has not been
// recorded yet, used by the enrichment job.
func (s *Store) SongsMissingLength(ctx context.Context) ([]string, error) {
	query := `SELECT id FROM music.songs WHERE length_ms = 0 ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying songs missing length: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning song id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateSongLengths sets length_ms for the given songs. Only rows still at
// the zero default are touched; loaded metadata is otherwise immutable.
func (s *Store) UpdateSongLengths(ctx context.Context, lengths map[string]int) (int64, error) {
	if len(lengths) == 0 {
		return 0, nil
	}

	query := `
		UPDATE music.songs AS s
		SET length_ms = u.length_ms
		FROM (SELECT * FROM unnest($1::text[], $2::int[])) AS u(id, length_ms)
		WHERE s.id = u.id AND s.length_ms = 0
	`

	ids := make([]string, 0, len(lengths))
	values := make([]int, 0, len(lengths))
	for id, ms := range lengths {
		ids = append(ids, id)
		values = append(values, ms)
	}

	tag, err := s.pool.Exec(ctx, query, ids, values)
	if err != nil {
		return 0, fmt.Errorf("updating song lengths: %w", err)
	}
	return tag.RowsAffected(), nil
}
