package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/ajayprem/cadence/internal/period"
	apperrors "github.com/ajayprem/cadence/internal/platform/errors"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dailySeries(start time.Time) Series {
	return Series{Period: period.Daily, Window: period.Window{Start: start}}
}

func TestCompleteRejectsFutureDate(t *testing.T) {
	t.Parallel()

	s := dailySeries(date(2024, time.January, 1))
	_, err := Complete(s, Progress{}, date(2024, time.January, 6), date(2024, time.January, 5))
	if !apperrors.IsCode(err, apperrors.CodeCompletionFutureDate) {
		t.Fatalf("err = %v, want future date error", err)
	}
}

func TestCompleteRejectsOutOfRange(t *testing.T) {
	t.Parallel()

	end := date(2024, time.January, 10)
	s := Series{Period: period.Daily, Window: period.Window{Start: date(2024, time.January, 5), End: &end}}
	today := date(2024, time.January, 20)

	_, err := Complete(s, Progress{}, date(2024, time.January, 4), today)
	if !apperrors.IsCode(err, apperrors.CodeCompletionOutOfRange) {
		t.Fatalf("before start err = %v, want out of range", err)
	}
	_, err = Complete(s, Progress{}, date(2024, time.January, 11), today)
	if !apperrors.IsCode(err, apperrors.CodeCompletionOutOfRange) {
		t.Fatalf("after end err = %v, want out of range", err)
	}
}

func TestCompleteCatchUpOrdering(t *testing.T) {
	t.Parallel()

	s := dailySeries(date(2024, time.January, 1))
	owed := date(2024, time.January, 3)
	pr := Progress{LastUncompleted: &owed}
	today := date(2024, time.January, 5)

	// Completing ahead of the owed period fails and reports the owed date.
	_, err := Complete(s, pr, date(2024, time.January, 5), today)
	if !apperrors.IsCode(err, apperrors.CodeCompletionCatchUpRequired) {
		t.Fatalf("err = %v, want catch-up required", err)
	}
	if got := apperrors.GetMetadata(err)["last_uncompleted_date"]; got != "2024-01-03" {
		t.Fatalf("owed date metadata = %q, want 2024-01-03", got)
	}

	// Clearing the owed period advances the backlog to the next elapsed gap.
	got, err := Complete(s, pr, owed, today)
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if !got.Has(owed) {
		t.Fatal("expected backfilled key in completed set")
	}
	if got.LastUncompleted == nil || !got.LastUncompleted.Equal(date(2024, time.January, 4)) {
		t.Fatalf("last uncompleted = %v, want 2024-01-04", got.LastUncompleted)
	}

	// Clearing that one too leaves nothing owed: today's period is not backlog.
	got, err = Complete(s, got, date(2024, time.January, 4), today)
	if err != nil {
		t.Fatalf("second backfill: %v", err)
	}
	if got.LastUncompleted != nil {
		t.Fatalf("last uncompleted = %v, want nil", got.LastUncompleted)
	}
}

func TestCompleteBacklogSkipsAlreadyCompleted(t *testing.T) {
	t.Parallel()

	s := dailySeries(date(2024, time.January, 1))
	owed := date(2024, time.January, 2)
	pr := Progress{
		Completed:       []time.Time{date(2024, time.January, 3)},
		LastUncompleted: &owed,
	}
	today := date(2024, time.January, 6)

	got, err := Complete(s, pr, owed, today)
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	// Jan 3 is already done, so the next outstanding period is Jan 4.
	if got.LastUncompleted == nil || !got.LastUncompleted.Equal(date(2024, time.January, 4)) {
		t.Fatalf("last uncompleted = %v, want 2024-01-04", got.LastUncompleted)
	}
}

func TestCompleteIdempotentPerPeriod(t *testing.T) {
	t.Parallel()

	s := Series{Period: period.Weekly, Window: period.Window{Start: date(2024, time.January, 1)}}
	today := date(2024, time.January, 20)

	pr, err := Complete(s, Progress{}, date(2024, time.January, 2), today)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	// A second completion in the same ISO week collapses onto the same key.
	pr, err = Complete(s, pr, date(2024, time.January, 4), today)
	if err != nil {
		t.Fatalf("same-week complete: %v", err)
	}
	if len(pr.Completed) != 1 {
		t.Fatalf("completed keys = %d, want 1", len(pr.Completed))
	}
	if !pr.Completed[0].Equal(date(2024, time.January, 1)) {
		t.Fatalf("key = %v, want week start 2024-01-01", pr.Completed[0])
	}
}

func TestCompleteThenUncompleteRoundTrip(t *testing.T) {
	t.Parallel()

	s := dailySeries(date(2024, time.January, 1))
	today := date(2024, time.January, 10)
	target := date(2024, time.January, 5)

	pr, err := Complete(s, Progress{}, target, today)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	pr = Uncomplete(s, pr, target, today)

	if len(pr.Completed) != 0 {
		t.Fatalf("completed set = %v, want empty", pr.Completed)
	}
	// The round trip is a no-op on the set but re-opens the elapsed period.
	if pr.LastUncompleted == nil || !pr.LastUncompleted.Equal(target) {
		t.Fatalf("last uncompleted = %v, want %v", pr.LastUncompleted, target)
	}
}

func TestUncompleteAbsentKeyIsNoop(t *testing.T) {
	t.Parallel()

	s := dailySeries(date(2024, time.January, 1))
	pr := Progress{Completed: []time.Time{date(2024, time.January, 2)}}
	got := Uncomplete(s, pr, date(2024, time.January, 3), date(2024, time.January, 5))

	if len(got.Completed) != 1 || got.LastUncompleted != nil {
		t.Fatalf("expected untouched progress, got %+v", got)
	}
}

func TestUncompleteTodayDoesNotCreateBacklog(t *testing.T) {
	t.Parallel()

	s := dailySeries(date(2024, time.January, 1))
	today := date(2024, time.January, 5)

	pr, err := Complete(s, Progress{}, today, today)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	pr = Uncomplete(s, pr, today, today)
	if pr.LastUncompleted != nil {
		t.Fatalf("last uncompleted = %v, want nil for current period", pr.LastUncompleted)
	}
}

func TestRecordMissKeepsEarliest(t *testing.T) {
	t.Parallel()

	s := dailySeries(date(2024, time.January, 1))
	pr := RecordMiss(s, Progress{}, date(2024, time.January, 4))
	pr = RecordMiss(s, pr, date(2024, time.January, 2))
	pr = RecordMiss(s, pr, date(2024, time.January, 6))

	if pr.LastUncompleted == nil || !pr.LastUncompleted.Equal(date(2024, time.January, 2)) {
		t.Fatalf("last uncompleted = %v, want 2024-01-02", pr.LastUncompleted)
	}
}

func TestStreaksAcrossGap(t *testing.T) {
	t.Parallel()

	// Daily task: complete Jan 1, Jan 2, skip Jan 3, complete Jan 4.
	completed := []time.Time{
		date(2024, time.January, 1),
		date(2024, time.January, 2),
		date(2024, time.January, 4),
	}

	if got := CurrentStreak(period.Daily, completed, date(2024, time.January, 4)); got != 1 {
		t.Fatalf("current streak = %d, want 1", got)
	}
	if got := LongestStreak(period.Daily, completed); got != 2 {
		t.Fatalf("longest streak = %d, want 2", got)
	}
}

func TestCurrentStreakMonotonicAcrossGap(t *testing.T) {
	t.Parallel()

	completed := []time.Time{
		date(2024, time.January, 1),
		date(2024, time.January, 2),
		date(2024, time.January, 4),
		date(2024, time.January, 5),
	}

	prev := CurrentStreak(period.Daily, completed, date(2024, time.January, 5))
	for d := date(2024, time.January, 4); !d.Before(date(2024, time.January, 1)); d = d.AddDate(0, 0, -1) {
		cur := CurrentStreak(period.Daily, completed, d)
		if d.Before(date(2024, time.January, 4)) && cur > prev {
			t.Fatalf("streak increased moving backward past gap at %v: %d > %d", d, cur, prev)
		}
		prev = cur
	}
}

func TestStreaksWeekly(t *testing.T) {
	t.Parallel()

	// Three consecutive ISO weeks, then a gap, then one more.
	completed := []time.Time{
		date(2024, time.January, 1),
		date(2024, time.January, 10),
		date(2024, time.January, 17),
		date(2024, time.February, 7),
	}

	if got := LongestStreak(period.Weekly, completed); got != 3 {
		t.Fatalf("longest weekly streak = %d, want 3", got)
	}
	if got := CurrentStreak(period.Weekly, completed, date(2024, time.February, 8)); got != 1 {
		t.Fatalf("current weekly streak = %d, want 1", got)
	}
}

func TestStreaksMonthly(t *testing.T) {
	t.Parallel()

	completed := []time.Time{
		date(2023, time.November, 15),
		date(2023, time.December, 2),
		date(2024, time.January, 30),
	}

	if got := LongestStreak(period.Monthly, completed); got != 3 {
		t.Fatalf("longest monthly streak = %d, want 3", got)
	}
	if got := CurrentStreak(period.Monthly, completed, date(2024, time.January, 31)); got != 3 {
		t.Fatalf("current monthly streak = %d, want 3", got)
	}
}

func TestCompletionRate(t *testing.T) {
	t.Parallel()

	start := date(2024, time.January, 1)
	completed := []time.Time{
		date(2024, time.January, 1),
		date(2024, time.January, 2),
		date(2024, time.January, 3),
	}

	if got := CompletionRate(period.Daily, completed, start, date(2024, time.January, 4)); got != 75 {
		t.Fatalf("daily rate = %v, want 75", got)
	}
	// Rate clamps at 100 even when the approximation under-counts periods.
	if got := CompletionRate(period.Daily, completed, start, date(2024, time.January, 2)); got != 100 {
		t.Fatalf("clamped rate = %v, want 100", got)
	}
	// Fewer than seven elapsed days expect zero weekly periods.
	if got := CompletionRate(period.Weekly, completed, start, date(2024, time.January, 3)); got != 0 {
		t.Fatalf("weekly rate with zero expectation = %v, want 0", got)
	}
	if got := CompletionRate(period.Daily, nil, start, start.AddDate(0, 0, -1)); got != 0 {
		t.Fatalf("rate before start = %v, want 0", got)
	}
}

func TestCompleteErrorLeavesProgressUntouched(t *testing.T) {
	t.Parallel()

	s := dailySeries(date(2024, time.January, 1))
	owed := date(2024, time.January, 2)
	pr := Progress{Completed: []time.Time{date(2024, time.January, 1)}, LastUncompleted: &owed}

	got, err := Complete(s, pr, date(2024, time.January, 4), date(2024, time.January, 5))
	if err == nil {
		t.Fatal("expected catch-up error")
	}
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected domain error, got %T", err)
	}
	if len(got.Completed) != 1 || !got.LastUncompleted.Equal(owed) {
		t.Fatalf("progress mutated on error: %+v", got)
	}
}
