package report

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/suzaram3/spotify-history/internal/store"
)

type fakeStore struct {
	counts     map[string]int64
	days       []store.DayCount
	topSongs   []store.NameCount
	topArtists []store.NameCount
}

func (s *fakeStore) TableCounts(ctx context.Context) (map[string]int64, error) {
	return s.counts, nil
}

func (s *fakeStore) DailyStreamCounts(ctx context.Context) ([]store.DayCount, error) {
	return s.days, nil
}

func (s *fakeStore) TopSongs(ctx context.Context, limit int) ([]store.NameCount, error) {
	return s.topSongs, nil
}

func (s *fakeStore) TopArtists(ctx context.Context, limit int) ([]store.NameCount, error) {
	return s.topArtists, nil
}

func TestWeekdayFrequency(t *testing.T) {
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	days := []store.DayCount{
		{Day: monday, Count: 10},
		{Day: monday.AddDate(0, 0, 7), Count: 5},  // another Monday
		{Day: monday.AddDate(0, 0, 1), Count: 3},  // Tuesday
		{Day: monday.AddDate(0, 0, 5), Count: 12}, // Saturday
	}

	freq := weekdayFrequency(days)

	if freq[time.Monday] != 15 {
		t.Errorf("Monday = %d, want 15", freq[time.Monday])
	}
	if freq[time.Tuesday] != 3 {
		t.Errorf("Tuesday = %d, want 3", freq[time.Tuesday])
	}
	if freq[time.Saturday] != 12 {
		t.Errorf("Saturday = %d, want 12", freq[time.Saturday])
	}
	if freq[time.Sunday] != 0 {
		t.Errorf("Sunday = %d, want 0", freq[time.Sunday])
	}
}

func TestAveragePerDay(t *testing.T) {
	tests := []struct {
		name string
		days []store.DayCount
		want int64
	}{
		{"no days", nil, 0},
		{"single day", []store.DayCount{{Count: 42}}, 42},
		{"integer division", []store.DayCount{{Count: 10}, {Count: 5}, {Count: 7}}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := averagePerDay(tt.days); got != tt.want {
				t.Errorf("averagePerDay() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStreamsOn(t *testing.T) {
	today := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	days := []store.DayCount{
		{Day: today, Count: 9},
		{Day: today.AddDate(0, 0, -1), Count: 4},
	}

	if got := streamsOn(days, today.Add(15*time.Hour)); got != 9 {
		t.Errorf("streamsOn(today) = %d, want 9", got)
	}
	if got := streamsOn(days, today.AddDate(0, 0, 2)); got != 0 {
		t.Errorf("streamsOn(future) = %d, want 0", got)
	}
}

func TestStreamsOn_LocalZoneNearMidnight(t *testing.T) {
	// Day buckets come from played_at, which is stored in UTC. A clock in
	// UTC-7 reading 20:00 on March 4 is already March 5 in UTC, so it must
	// land in the March 5 bucket.
	days := []store.DayCount{
		{Day: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Count: 4},
		{Day: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), Count: 7},
	}

	phoenix := time.FixedZone("UTC-7", -7*60*60)
	now := time.Date(2024, 3, 4, 20, 0, 0, 0, phoenix)

	if got := streamsOn(days, now); got != 7 {
		t.Errorf("streamsOn(20:00 UTC-7 on Mar 4) = %d, want 7 (Mar 5 UTC bucket)", got)
	}
}

func TestService_Summary(t *testing.T) {
	today := time.Now()

	st := &fakeStore{
		counts: map[string]int64{
			store.TableArtists: 2,
			store.TableStreams: 13,
		},
		days: []store.DayCount{
			{Day: today, Count: 3},
			{Day: today.AddDate(0, 0, -1), Count: 10},
		},
		topSongs:   []store.NameCount{{Name: "Song A", Count: 7}},
		topArtists: []store.NameCount{{Name: "Artist B", Count: 11}},
	}

	summary, err := New(st, 10).Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}

	if summary.StreamsToday != 3 {
		t.Errorf("StreamsToday = %d, want 3", summary.StreamsToday)
	}
	if summary.AverageStreamsPerDay != 6 {
		t.Errorf("AverageStreamsPerDay = %d, want 6", summary.AverageStreamsPerDay)
	}

	var out strings.Builder
	summary.Render(&out)
	rendered := out.String()

	for _, want := range []string{"streams: 13", "Song A: 7", "Artist B: 11", "streams_today: 3"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("Render() missing %q in output:\n%s", want, rendered)
		}
	}
}
