package spotify

import (
	"context"
	"fmt"
	"time"

	"github.com/zmb3/spotify/v2"

	"github.com/suzaram3/spotify-history/internal/history"
)

// RecentlyPlayed fetches the user's recently played tracks, newest first.
// A zero after time fetches the latest page without a cursor.
func (c *Client) RecentlyPlayed(ctx context.Context, limit int, after time.Time) ([]history.PlayEvent, error) {
	opts := spotify.RecentlyPlayedOptions{Limit: spotify.Numeric(limit)}
	if !after.IsZero() {
		opts.AfterEpochMs = after.UnixMilli()
	}

	items, err := c.api.PlayerRecentlyPlayedOpt(ctx, &opts)
	if err != nil {
		return nil, fmt.Errorf("fetching recently played: %w", err)
	}

	events := make([]history.PlayEvent, len(items))
	for i, item := range items {
		events[i] = convertPlayedItem(item)
	}
	return events, nil
}

// convertPlayedItem converts a Spotify RecentlyPlayedItem to a typed play event.
func convertPlayedItem(item spotify.RecentlyPlayedItem) history.PlayEvent {
	track := item.Track

	artists := make([]history.ArtistRef, len(track.Artists))
	for i, a := range track.Artists {
		artists[i] = history.ArtistRef{ID: a.ID.String(), Name: a.Name}
	}

	albumArtists := make([]history.ArtistRef, len(track.Album.Artists))
	for i, a := range track.Album.Artists {
		albumArtists[i] = history.ArtistRef{ID: a.ID.String(), Name: a.Name}
	}

	return history.PlayEvent{
		TrackID:    track.ID.String(),
		TrackName:  track.Name,
		DurationMS: int(track.Duration),
		SpotifyURL: track.ExternalURLs["spotify"],
		PlayedAt:   item.PlayedAt,
		Artists:    artists,
		Album: history.AlbumRef{
			ID:          track.Album.ID.String(),
			Name:        track.Album.Name,
			ReleaseDate: track.Album.ReleaseDate,
			Artists:     albumArtists,
		},
	}
}
