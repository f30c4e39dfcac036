package prices

import "time"

// Window is an inclusive time range. A zero Window matches everything.
type Window struct {
	Start time.Time
	End   time.Time
}

func TrailingWeeks(now time.Time, n int) Window {
	return Window{Start: now.AddDate(0, 0, -n*7), End: now}
}

func (w Window) Contains(t time.Time) bool {
	if w.Start.IsZero() && w.End.IsZero() {
		return true
	}
	if t.Before(w.Start) || t.After(w.End) {
		return false
	}
	return true
}

// FilterWindow keeps the records whose timestamp falls inside w, preserving
// input order. A window with Start after End matches nothing.
func FilterWindow[R any](records []R, ts func(R) time.Time, w Window) []R {
	out := make([]R, 0, len(records))
	for _, r := range records {
		if w.Contains(ts(r)) {
			out = append(out, r)
		}
	}
	return out
}

// LatestPerGroup partitions records by key and keeps the record with the
// maximum timestamp in each group. When two records in a group share the
// maximum timestamp, the one appearing later in the input wins; callers feed
// records in insertion order, so the most recently inserted record is
// authoritative. Groups appear in first-seen order. Empty input yields an
// empty slice.
func LatestPerGroup[R any, K comparable](records []R, key func(R) K, ts func(R) time.Time) []R {
	idx := make(map[K]int, len(records))
	out := make([]R, 0, len(records))

	for _, r := range records {
		k := key(r)
		i, seen := idx[k]
		if !seen {
			idx[k] = len(out)
			out = append(out, r)
			continue
		}
		if !ts(r).Before(ts(out[i])) {
			out[i] = r
		}
	}
	return out
}
