package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type recordingExecer struct {
	tables  []string
	failOn  string
	failErr error
}

func (r *recordingExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	table := tableFromInsert(sql)
	if table == "" {
		return pgconn.CommandTag{}, errors.New("statement does not target music schema: " + sql)
	}
	if table == r.failOn {
		return pgconn.CommandTag{}, r.failErr
	}
	r.tables = append(r.tables, table)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func tableFromInsert(sql string) string {
	const marker = "music."
	i := strings.Index(sql, marker)
	if i < 0 {
		return ""
	}
	rest := sql[i+len(marker):]
	if j := strings.IndexByte(rest, ' '); j >= 0 {
		return rest[:j]
	}
	return rest
}

func fullBatch() Batch {
	playedAt := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	return Batch{
		Artists:      []Artist{{ID: "A1", Name: "Artist One"}},
		Albums:       []Album{{ID: "AL1", Name: "Album One", ReleaseYear: "2020"}},
		AlbumArtists: []AlbumArtist{{AlbumID: "AL1", ArtistID: "A1"}},
		Songs:        []Song{{ID: "S1", Name: "Song One", AlbumID: "AL1", LengthMS: 215000}},
		SongArtists:  []SongArtist{{SongID: "S1", ArtistID: "A1"}},
		Streams:      []SongStreamed{{SongID: "S1", PlayedAt: playedAt}},
	}
}

func TestLoadBatch_ReferencedTablesFirst(t *testing.T) {
	db := &recordingExecer{}

	counts, err := loadBatch(context.Background(), db, fullBatch())
	if err != nil {
		t.Fatalf("loadBatch() error = %v", err)
	}

	want := []string{
		TableArtists,
		TableAlbums,
		TableAlbumArtists,
		TableSongs,
		TableSongArtists,
		TableStreams,
	}
	if len(db.tables) != len(want) {
		t.Fatalf("executed inserts = %v, want %v", db.tables, want)
	}
	for i, table := range want {
		if db.tables[i] != table {
			t.Errorf("insert %d hit %q, want %q", i, db.tables[i], table)
		}
	}

	for _, table := range want {
		if counts[table] != 1 {
			t.Errorf("counts[%q] = %d, want 1", table, counts[table])
		}
	}
}

func TestLoadOrderMatchesInsertSteps(t *testing.T) {
	if len(loadOrder) != len(insertSteps) {
		t.Fatalf("loadOrder has %d tables, insertSteps has %d", len(loadOrder), len(insertSteps))
	}
	for i, step := range insertSteps {
		if loadOrder[i] != step.table {
			t.Errorf("loadOrder[%d] = %q, insertSteps[%d] = %q", i, loadOrder[i], i, step.table)
		}
	}
}

func TestLoadBatch_EmptySlicesSkipped(t *testing.T) {
	db := &recordingExecer{}

	counts, err := loadBatch(context.Background(), db, Batch{
		Artists: []Artist{{ID: "A1", Name: "Solo"}},
	})
	if err != nil {
		t.Fatalf("loadBatch() error = %v", err)
	}

	if len(db.tables) != 1 || db.tables[0] != TableArtists {
		t.Errorf("executed inserts = %v, want only %q", db.tables, TableArtists)
	}
	if counts[TableStreams] != 0 {
		t.Errorf("counts[streams] = %d, want 0", counts[TableStreams])
	}
}

func TestLoadBatch_FailureStopsRun(t *testing.T) {
	boom := errors.New("deadlock detected")
	db := &recordingExecer{failOn: TableSongs, failErr: boom}

	_, err := loadBatch(context.Background(), db, fullBatch())
	if !errors.Is(err, boom) {
		t.Fatalf("loadBatch() error = %v, want wrapped %v", err, boom)
	}
	if !strings.Contains(err.Error(), TableSongs) {
		t.Errorf("error %q does not name the failing table", err)
	}

	want := []string{TableArtists, TableAlbums, TableAlbumArtists}
	if len(db.tables) != len(want) {
		t.Fatalf("executed inserts after failure = %v, want %v", db.tables, want)
	}
	for i, table := range want {
		if db.tables[i] != table {
			t.Errorf("insert %d hit %q, want %q", i, db.tables[i], table)
		}
	}
}
