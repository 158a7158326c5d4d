package store

import (
	"context"
	"fmt"
)

// schemaStatements create the music schema and its tables in dependency
// order. Statements are idempotent so setup can run repeatedly.
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS music`,
	`CREATE TABLE IF NOT EXISTS music.artists (
		id   VARCHAR(32)  PRIMARY KEY,
		name VARCHAR(256) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS music.albums (
		id           VARCHAR(32)  PRIMARY KEY,
		name         VARCHAR(256) NOT NULL,
		release_year VARCHAR(4)   NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS music.album_artists (
		album_id  VARCHAR(32) NOT NULL REFERENCES music.albums (id) ON DELETE CASCADE ON UPDATE CASCADE,
		artist_id VARCHAR(32) NOT NULL REFERENCES music.artists (id) ON DELETE CASCADE ON UPDATE CASCADE,
		PRIMARY KEY (album_id, artist_id)
	)`,
	`CREATE TABLE IF NOT EXISTS music.songs (
		id          VARCHAR(32)  PRIMARY KEY,
		name        VARCHAR(256) NOT NULL,
		album_id    VARCHAR(32)  NOT NULL REFERENCES music.albums (id) ON DELETE CASCADE ON UPDATE CASCADE,
		length_ms   INTEGER      NOT NULL DEFAULT 0,
		spotify_url VARCHAR(256) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS music.song_artists (
		song_id   VARCHAR(32) NOT NULL REFERENCES music.songs (id) ON DELETE CASCADE ON UPDATE CASCADE,
		artist_id VARCHAR(32) NOT NULL REFERENCES music.artists (id) ON DELETE CASCADE ON UPDATE CASCADE,
		PRIMARY KEY (song_id, artist_id)
	)`,
	`CREATE TABLE IF NOT EXISTS music.streams (
		song_id   VARCHAR(32) NOT NULL REFERENCES music.songs (id) ON DELETE CASCADE ON UPDATE CASCADE,
		played_at TIMESTAMP   NOT NULL,
		PRIMARY KEY (song_id, played_at)
	)`,
}

// CreateSchema creates the music schema and all tables if they do not exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}
