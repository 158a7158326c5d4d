package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

// maxTracksPerRequest is the Spotify API limit for bulk track lookups.
const maxTracksPerRequest = 50

// TrackLength holds the duration of one track.
type TrackLength struct {
	ID         string
	DurationMS int
}

// TrackLengths fetches track durations in bulk, batching requests to the API
// limit. Tracks the API no longer knows about are silently omitted.
func (c *Client) TrackLengths(ctx context.Context, ids []string) ([]TrackLength, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	spotifyIDs := make([]spotify.ID, len(ids))
	for i, id := range ids {
		spotifyIDs[i] = spotify.ID(id)
	}

	lengths := make([]TrackLength, 0, len(ids))

	for i := 0; i < len(spotifyIDs); i += maxTracksPerRequest {
		end := min(i+maxTracksPerRequest, len(spotifyIDs))
		batch := spotifyIDs[i:end]

		tracks, err := c.api.GetTracks(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("fetching tracks (batch %d-%d): %w", i+1, end, err)
		}

		for _, track := range tracks {
			if track == nil {
				continue
			}
			lengths = append(lengths, TrackLength{
				ID:         track.ID.String(),
				DurationMS: int(track.Duration),
			})
		}
	}

	return lengths, nil
}
