package spotify

import (
	"context"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"
)

// NowPlaying describes the track currently playing, if any.
type NowPlaying struct {
	TrackID    string
	TrackName  string
	Artist     string // comma-separated artist names
	Album      string
	ProgressMS int
	DurationMS int
}

// CurrentlyPlaying returns the track currently playing, or nil when playback
// is stopped.
func (c *Client) CurrentlyPlaying(ctx context.Context) (*NowPlaying, error) {
	playing, err := c.api.PlayerCurrentlyPlaying(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching currently playing: %w", err)
	}

	if playing == nil || !playing.Playing || playing.Item == nil {
		return nil, nil
	}

	return &NowPlaying{
		TrackID:    playing.Item.ID.String(),
		TrackName:  playing.Item.Name,
		Artist:     joinArtists(playing.Item.Artists),
		Album:      playing.Item.Album.Name,
		ProgressMS: int(playing.Progress),
		DurationMS: int(playing.Item.Duration),
	}, nil
}

func joinArtists(artists []spotify.SimpleArtist) string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}
