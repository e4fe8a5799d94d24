// Package ledger is the single owner of completion accounting: recording and
// validating period completions, tracking catch-up backlog, and deriving
// streaks and completion rates. Every read surface computes progress through
// this package so the rules cannot drift apart.
package ledger

import (
	"sort"
	"time"

	"github.com/ajayprem/cadence/internal/period"
	apperrors "github.com/ajayprem/cadence/internal/platform/errors"
)

// dateLayout renders period keys and dates in error metadata.
const dateLayout = "2006-01-02"

// Series identifies the recurrence an obligation's completions run against.
type Series struct {
	Period period.Period
	Window period.Window
}

// Progress is one participant's completion state for one obligation.
// Completed holds canonical period keys (unique, order irrelevant).
// LastUncompleted is the earliest period key owed as a catch-up, nil when
// the participant is current.
type Progress struct {
	Completed       []time.Time
	LastUncompleted *time.Time
}

// Has reports whether the canonical key is in the completed set.
func (p Progress) Has(key time.Time) bool {
	for _, k := range p.Completed {
		if k.Equal(key) {
			return true
		}
	}
	return false
}

// Complete validates and records a completion for date. The date must not be
// in the future, must fall inside the obligation window, and, when a
// catch-up is owed, must land in the owed period: completions are applied
// oldest-first. On a successful backfill the owed period advances to the
// next outstanding one before today, or clears.
func Complete(s Series, pr Progress, date, today time.Time) (Progress, error) {
	date = period.DateOf(date)
	today = period.DateOf(today)

	if date.After(today) {
		return pr, apperrors.WithMetadata(apperrors.CodeCompletionFutureDate,
			"completion date is in the future", map[string]string{
				"date":  date.Format(dateLayout),
				"today": today.Format(dateLayout),
			})
	}
	if !s.Window.Contains(date) {
		return pr, apperrors.WithMetadata(apperrors.CodeCompletionOutOfRange,
			"completion date is outside the obligation date range", map[string]string{
				"date": date.Format(dateLayout),
			})
	}

	key := period.KeyFor(date, s.Period)
	if pr.LastUncompleted != nil {
		owed := period.KeyFor(*pr.LastUncompleted, s.Period)
		if !key.Equal(owed) {
			return pr, apperrors.WithMetadata(apperrors.CodeCompletionCatchUpRequired,
				"an earlier period must be completed first", map[string]string{
					"last_uncompleted_date": owed.Format(dateLayout),
				})
		}
	}

	if !pr.Has(key) {
		pr.Completed = append(append([]time.Time(nil), pr.Completed...), key)
	}
	if pr.LastUncompleted != nil {
		pr.LastUncompleted = nextOutstanding(s, pr, period.NextKey(key, s.Period), today)
	}
	return pr, nil
}

// Uncomplete removes the completion covering date. Removing an absent key is
// a no-op, not an error. A removed period that already elapsed becomes owed
// again if it predates the current backlog.
func Uncomplete(s Series, pr Progress, date, today time.Time) Progress {
	date = period.DateOf(date)
	today = period.DateOf(today)
	key := period.KeyFor(date, s.Period)

	if !pr.Has(key) {
		return pr
	}

	kept := make([]time.Time, 0, len(pr.Completed)-1)
	for _, k := range pr.Completed {
		if !k.Equal(key) {
			kept = append(kept, k)
		}
	}
	pr.Completed = kept

	if key.Before(period.KeyFor(today, s.Period)) {
		if pr.LastUncompleted == nil || key.Before(period.KeyFor(*pr.LastUncompleted, s.Period)) {
			owed := key
			pr.LastUncompleted = &owed
		}
	}
	return pr
}

// RecordMiss flags a swept period as owed. The earliest owed period wins.
func RecordMiss(s Series, pr Progress, key time.Time) Progress {
	key = period.KeyFor(key, s.Period)
	if pr.LastUncompleted == nil || key.Before(period.KeyFor(*pr.LastUncompleted, s.Period)) {
		pr.LastUncompleted = &key
	}
	return pr
}

// nextOutstanding walks forward from key to the period containing today and
// returns the first elapsed period missing from the completed set, bounded
// by the obligation window.
func nextOutstanding(s Series, pr Progress, key, today time.Time) *time.Time {
	todayKey := period.KeyFor(today, s.Period)
	for k := key; k.Before(todayKey); k = period.NextKey(k, s.Period) {
		if s.Window.End != nil && k.After(period.DateOf(*s.Window.End)) {
			return nil
		}
		if !pr.Has(k) {
			owed := k
			return &owed
		}
	}
	return nil
}

// CurrentStreak counts consecutive completed periods ending at the period
// containing asOf, walking backward one period at a time until the first
// gap.
func CurrentStreak(p period.Period, completed []time.Time, asOf time.Time) int {
	set := keySet(p, completed)
	streak := 0
	for k := period.KeyFor(asOf, p); ; k = period.PrevKey(k, p) {
		if _, ok := set[k]; !ok {
			break
		}
		streak++
	}
	return streak
}

// LongestStreak returns the maximal run of period-adjacent completed keys.
func LongestStreak(p period.Period, completed []time.Time) int {
	set := keySet(p, completed)
	if len(set) == 0 {
		return 0
	}
	keys := make([]time.Time, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	longest, current := 1, 1
	for i := 1; i < len(keys); i++ {
		if keys[i].Equal(period.NextKey(keys[i-1], p)) {
			current++
		} else {
			current = 1
		}
		if current > longest {
			longest = current
		}
	}
	return longest
}

// CompletionRate returns the percentage of expected periods completed
// between start and asOf inclusive, clamped to [0, 100]. Expected counts
// follow the domain's accepted approximation: day count, floor(days/7), and
// floor(days/30). A zero expectation yields zero, never a division error.
func CompletionRate(p period.Period, completed []time.Time, start, asOf time.Time) float64 {
	start = period.DateOf(start)
	asOf = period.DateOf(asOf)
	if asOf.Before(start) {
		return 0
	}

	days := int(asOf.Sub(start).Hours()/24) + 1
	var expected int
	switch p {
	case period.Weekly:
		expected = days / 7
	case period.Monthly:
		expected = days / 30
	default:
		expected = days
	}
	if expected <= 0 {
		return 0
	}

	rate := float64(len(keySet(p, completed))) * 100 / float64(expected)
	if rate > 100 {
		return 100
	}
	return rate
}

func keySet(p period.Period, completed []time.Time) map[time.Time]struct{} {
	set := make(map[time.Time]struct{}, len(completed))
	for _, c := range completed {
		set[period.KeyFor(c, p)] = struct{}{}
	}
	return set
}
