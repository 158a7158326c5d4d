// Package report generates summary statistics from the accumulated
// listening history. It only reads from the store; ingestion never depends
// on it.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/suzaram3/spotify-history/internal/store"
)

// Store is the read-only surface the summary needs.
type Store interface {
	TableCounts(ctx context.Context) (map[string]int64, error)
	DailyStreamCounts(ctx context.Context) ([]store.DayCount, error)
	TopSongs(ctx context.Context, limit int) ([]store.NameCount, error)
	TopArtists(ctx context.Context, limit int) ([]store.NameCount, error)
}

// Summary holds the computed statistics for one report.
type Summary struct {
	TableCounts          map[string]int64
	StreamsToday         int64
	AverageStreamsPerDay int64
	WeekdayFrequency     map[time.Weekday]int64
	TopSongs             []store.NameCount
	TopArtists           []store.NameCount
}

// Service computes summaries.
type Service struct {
	store    Store
	topCount int
	now      func() time.Time
}

// New creates a report service. topCount bounds the top songs/artists lists.
func New(st Store, topCount int) *Service {
	return &Service{
		store:    st,
		topCount: topCount,
		now:      time.Now,
	}
}

// Summary gathers statistics from the store.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	counts, err := s.store.TableCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("gathering table counts: %w", err)
	}

	days, err := s.store.DailyStreamCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("gathering daily stream counts: %w", err)
	}

	topSongs, err := s.store.TopSongs(ctx, s.topCount)
	if err != nil {
		return nil, fmt.Errorf("gathering top songs: %w", err)
	}

	topArtists, err := s.store.TopArtists(ctx, s.topCount)
	if err != nil {
		return nil, fmt.Errorf("gathering top artists: %w", err)
	}

	return &Summary{
		TableCounts:          counts,
		StreamsToday:         streamsOn(days, s.now()),
		AverageStreamsPerDay: averagePerDay(days),
		WeekdayFrequency:     weekdayFrequency(days),
		TopSongs:             topSongs,
		TopArtists:           topArtists,
	}, nil
}

// streamsOn returns the stream count recorded on the given calendar day.
// Stored play timestamps are UTC, so the day buckets are UTC dates; the
// comparison happens in UTC regardless of the caller's zone.
func streamsOn(days []store.DayCount, day time.Time) int64 {
	y, m, d := day.UTC().Date()
	for _, dc := range days {
		dy, dm, dd := dc.Day.UTC().Date()
		if dy == y && dm == m && dd == d {
			return dc.Count
		}
	}
	return 0
}

// averagePerDay returns total streams divided by the number of active days.
func averagePerDay(days []store.DayCount) int64 {
	if len(days) == 0 {
		return 0
	}
	var total int64
	for _, dc := range days {
		total += dc.Count
	}
	return total / int64(len(days))
}

// weekdayFrequency aggregates stream counts by day of week.
func weekdayFrequency(days []store.DayCount) map[time.Weekday]int64 {
	freq := make(map[time.Weekday]int64, 7)
	for _, dc := range days {
		freq[dc.Day.Weekday()] += dc.Count
	}
	return freq
}

// weekdayOrder lists days Monday first, matching the original report layout.
var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// Render writes the summary as plain text.
func (sum *Summary) Render(w io.Writer) {
	fmt.Fprintf(w, "\n**SpotifyHistory**\n-Table Counts-\n")
	for _, table := range []string{
		store.TableArtists, store.TableAlbums, store.TableAlbumArtists,
		store.TableSongs, store.TableSongArtists, store.TableStreams,
	} {
		fmt.Fprintf(w, "%s: %d\n", table, sum.TableCounts[table])
	}

	fmt.Fprintf(w, "\n*Day Frequency*\n")
	for _, day := range weekdayOrder {
		fmt.Fprintf(w, "%s: %d\n", day, sum.WeekdayFrequency[day])
	}

	fmt.Fprintf(w, "\n*Miscellaneous Data*\n")
	fmt.Fprintf(w, "average_streams_per_day: %d\n", sum.AverageStreamsPerDay)
	fmt.Fprintf(w, "streams_today: %d\n", sum.StreamsToday)

	if len(sum.TopSongs) > 0 {
		fmt.Fprintf(w, "\n*Top Songs*\n")
		for _, nc := range sum.TopSongs {
			fmt.Fprintf(w, "%s: %d\n", nc.Name, nc.Count)
		}
	}
	if len(sum.TopArtists) > 0 {
		fmt.Fprintf(w, "\n*Top Artists*\n")
		for _, nc := range sum.TopArtists {
			fmt.Fprintf(w, "%s: %d\n", nc.Name, nc.Count)
		}
	}
}
