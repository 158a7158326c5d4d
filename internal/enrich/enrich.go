// Package enrich backfills song metadata that the recently-played payload
// does not carry.
package enrich

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/suzaram3/spotify-history/internal/spotify"
)

// Store is the persistence surface the enrichment job needs.
type Store interface {
	SongsMissingLength(ctx context.Context) ([]string, error)
	UpdateSongLengths(ctx context.Context, lengths map[string]int) (int64, error)
}

// Client fetches track durations in bulk.
type Client interface {
	TrackLengths(ctx context.Context, ids []string) ([]spotify.TrackLength, error)
}

// Service fills in length_ms for songs still at the zero default. Best
// effort: tracks the API no longer knows stay at zero and are retried on the
// next run.
type Service struct {
	client Client
	store  Store
	logger *zap.Logger
}

// New creates an enrichment service.
func New(client Client, st Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, store: st, logger: logger}
}

// Run performs one enrichment pass and returns the number of songs updated.
func (s *Service) Run(ctx context.Context) (int64, error) {
	ids, err := s.store.SongsMissingLength(ctx)
	if err != nil {
		return 0, fmt.Errorf("finding songs missing length: %w", err)
	}
	if len(ids) == 0 {
		s.logger.Info("no songs missing length")
		return 0, nil
	}

	lengths, err := s.client.TrackLengths(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("fetching track lengths: %w", err)
	}

	updates := make(map[string]int, len(lengths))
	for _, tl := range lengths {
		if tl.DurationMS > 0 {
			updates[tl.ID] = tl.DurationMS
		}
	}

	updated, err := s.store.UpdateSongLengths(ctx, updates)
	if err != nil {
		return 0, fmt.Errorf("updating song lengths: %w", err)
	}

	s.logger.Info("song lengths backfilled",
		zap.Int("missing", len(ids)),
		zap.Int64("updated", updated))
	return updated, nil
}
