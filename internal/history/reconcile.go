package history

import "time"

// Reconciled is the outcome of reconciling a fetched batch against the
// store's high-water mark. GapDetected is expected control flow, not an
// error: it means the watermark fell off the fetched page and plays may have
// been missed between runs.
type Reconciled struct {
	New         []Record
	GapDetected bool
}

// Reconcile filters a freshly fetched batch (newest first) down to the
// events strictly newer than the high-water mark, preserving order and
// dropping duplicate (song_id, played_at) pairs within the batch itself.
//
// A zero watermark means the store is empty and every event is new. When the
// watermark is set but every fetched event is newer than it, the watermark
// has fallen off the page: the whole batch is kept and GapDetected is set so
// the caller can log the potential gap.
func Reconcile(batch []Record, watermark time.Time) Reconciled {
	if len(batch) == 0 {
		return Reconciled{}
	}

	bootstrap := watermark.IsZero()
	cutoff := TruncatePlayedAt(watermark)

	var fresh []Record
	for _, rec := range batch {
		if bootstrap || rec.Stream.PlayedAt.After(cutoff) {
			fresh = append(fresh, rec)
		}
	}

	// Watermark absent from a full page of strictly-newer events signals a
	// potential gap: more plays may have occurred since the last run than
	// one page holds.
	gap := !bootstrap && len(fresh) == len(batch)

	return Reconciled{
		New:         dedupe(fresh),
		GapDetected: gap,
	}
}

// dedupe drops repeated (song_id, played_at) events, keeping the first
// occurrence. The upstream API has been seen returning the same play twice
// in one page.
func dedupe(records []Record) []Record {
	if len(records) == 0 {
		return nil
	}

	type eventKey struct {
		songID   string
		playedAt time.Time
	}

	seen := make(map[eventKey]bool, len(records))
	out := records[:0:0]
	for _, rec := range records {
		key := eventKey{songID: rec.Stream.SongID, playedAt: rec.Stream.PlayedAt}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rec)
	}
	return out
}
