package penalty

import (
	"context"
	"fmt"
	"time"

	"github.com/ajayprem/cadence/internal/challenge"
	"github.com/ajayprem/cadence/internal/obligation"
	"github.com/ajayprem/cadence/internal/obligation/ledger"
	"github.com/ajayprem/cadence/internal/period"
	apperrors "github.com/ajayprem/cadence/internal/platform/errors"
	"github.com/ajayprem/cadence/internal/platform/lock"
	"github.com/ajayprem/cadence/internal/storage"
)

// Sweeper runs the scheduled end-of-period pass: it records misses, accrues
// penalties, expires stale pending challenges, and terminates elapsed active
// ones.
//
// Cadence rules: daily obligations are swept for yesterday on every run;
// weekly obligations only on Mondays, for the previous week; monthly
// obligations only on the first of the month, for the previous month.
type Sweeper struct {
	tasks        storage.TaskStore
	challenges   storage.ChallengeStore
	participants storage.ParticipantStore
	ledger       *Ledger
	locks        *lock.Keyed
	threshold    float64
	now          func() time.Time
}

// SweeperConfig carries the sweeper dependencies. Threshold is the minimum
// completion rate an accepted participant needs for a terminated challenge
// to count as completed.
type SweeperConfig struct {
	Tasks        storage.TaskStore
	Challenges   storage.ChallengeStore
	Participants storage.ParticipantStore
	Ledger       *Ledger
	Locks        *lock.Keyed
	Threshold    float64
	Now          func() time.Time
}

func NewSweeper(cfg SweeperConfig) *Sweeper {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Locks == nil {
		cfg.Locks = lock.NewKeyed()
	}
	return &Sweeper{
		tasks:        cfg.Tasks,
		challenges:   cfg.Challenges,
		participants: cfg.Participants,
		ledger:       cfg.Ledger,
		locks:        cfg.Locks,
		threshold:    cfg.Threshold,
		now:          cfg.Now,
	}
}

// Report summarizes one sweep pass.
type Report struct {
	MissesRecorded       int
	PenaltiesAccrued     int
	ChallengesTerminated int
	ChallengesExpired    int
}

// Sweep runs one pass as of the given date.
func (s *Sweeper) Sweep(ctx context.Context, asOf time.Time) (Report, error) {
	asOf = period.DateOf(asOf)
	var report Report

	tasks, err := s.tasks.ListActiveTasks(ctx)
	if err != nil {
		return report, fmt.Errorf("list active tasks: %w", err)
	}
	for _, task := range tasks {
		if err := s.sweepTask(ctx, task, asOf, &report); err != nil {
			return report, err
		}
	}

	active, err := s.challenges.ListActiveChallenges(ctx)
	if err != nil {
		return report, fmt.Errorf("list active challenges: %w", err)
	}
	for _, ch := range active {
		if err := s.sweepChallenge(ctx, ch, asOf, &report); err != nil {
			return report, err
		}
	}

	pending, err := s.challenges.ListPendingChallenges(ctx)
	if err != nil {
		return report, fmt.Errorf("list pending challenges: %w", err)
	}
	for _, ch := range pending {
		if ch.EndDate == nil || !asOf.After(period.DateOf(*ch.EndDate)) {
			continue
		}
		if err := s.expirePending(ctx, ch.ID, asOf, &report); err != nil {
			return report, err
		}
	}

	return report, nil
}

// expirePending rejects a pending challenge whose window closed before the
// invitees settled the invite.
func (s *Sweeper) expirePending(ctx context.Context, challengeID string, asOf time.Time, report *Report) error {
	unlock := s.locks.Lock(challengeID)
	defer unlock()

	// Re-read under the lock; a response may have activated it since the list.
	ch, err := s.challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		return fmt.Errorf("get challenge %s: %w", challengeID, err)
	}
	if ch.Status != obligation.StatusPending {
		return nil
	}
	if ch.EndDate == nil || !asOf.After(period.DateOf(*ch.EndDate)) {
		return nil
	}

	ch.Status = obligation.StatusRejected
	ch.UpdatedAt = s.now().UTC()
	if err := s.challenges.PutChallenge(ctx, ch); err != nil {
		return fmt.Errorf("expire challenge %s: %w", ch.ID, err)
	}
	report.ChallengesExpired++
	return nil
}

func (s *Sweeper) sweepTask(ctx context.Context, task obligation.Task, asOf time.Time, report *Report) error {
	key, ok := sweepKey(task.Period, asOf)
	if !ok || !keyInWindow(key, task.Period, task.ActiveWindow()) {
		return nil
	}

	unlock := s.locks.Lock(task.ID)
	defer unlock()

	// Re-read under the lock; a completion may have landed since the list.
	task, err := s.tasks.GetTask(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("get task %s: %w", task.ID, err)
	}

	pr := ledger.Progress{Completed: task.Completed, LastUncompleted: task.LastUncompleted}
	if pr.Has(key) {
		return nil
	}

	series := ledger.Series{Period: task.Period, Window: task.ActiveWindow()}
	pr = ledger.RecordMiss(series, pr, key)
	task.Completed = pr.Completed
	task.LastUncompleted = pr.LastUncompleted
	task.UpdatedAt = s.now().UTC()
	if err := s.tasks.PutTask(ctx, task); err != nil {
		return fmt.Errorf("put task %s: %w", task.ID, err)
	}
	report.MissesRecorded++

	return s.accrue(ctx, task, task.OwnerID, key, report)
}

func (s *Sweeper) sweepChallenge(ctx context.Context, ch obligation.Challenge, asOf time.Time, report *Report) error {
	unlock := s.locks.Lock(ch.ID)
	defer unlock()

	ch, err := s.challenges.GetChallenge(ctx, ch.ID)
	if err != nil {
		return fmt.Errorf("get challenge %s: %w", ch.ID, err)
	}
	if ch.Status != obligation.StatusActive {
		return nil
	}

	participants, err := s.participants.ListParticipants(ctx, ch.ID)
	if err != nil {
		return fmt.Errorf("list participants %s: %w", ch.ID, err)
	}

	if ch.EndDate != nil && asOf.After(period.DateOf(*ch.EndDate)) {
		terminated, err := challenge.Terminate(ch, participants, asOf, s.threshold)
		if err != nil {
			return fmt.Errorf("terminate challenge %s: %w", ch.ID, err)
		}
		if err := s.challenges.PutChallenge(ctx, terminated); err != nil {
			return fmt.Errorf("put challenge %s: %w", ch.ID, err)
		}
		report.ChallengesTerminated++
		return nil
	}

	key, ok := sweepKey(ch.Period, asOf)
	if !ok || !keyInWindow(key, ch.Period, ch.ActiveWindow()) {
		return nil
	}

	series := ledger.Series{Period: ch.Period, Window: ch.ActiveWindow()}
	for _, p := range participants {
		if p.Status != obligation.ParticipantAccepted {
			continue
		}
		pr := ledger.Progress{Completed: p.Completed, LastUncompleted: p.LastUncompleted}
		if pr.Has(key) {
			continue
		}
		pr = ledger.RecordMiss(series, pr, key)
		p.Completed = pr.Completed
		p.LastUncompleted = pr.LastUncompleted
		p.UpdatedAt = s.now().UTC()
		if err := s.participants.PutParticipant(ctx, p); err != nil {
			return fmt.Errorf("put participant %s/%s: %w", ch.ID, p.UserID, err)
		}
		report.MissesRecorded++

		if err := s.accrue(ctx, ch, p.UserID, key, report); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sweeper) accrue(ctx context.Context, source obligation.Obligation, debtorID string, key time.Time, report *Report) error {
	records, err := s.ledger.Accrue(ctx, source, debtorID, key)
	switch {
	case err == nil:
		report.PenaltiesAccrued += len(records)
		return nil
	case apperrors.IsCode(err, apperrors.CodePenaltyNotConfigured):
		return nil
	case apperrors.IsCode(err, apperrors.CodePenaltyDuplicateAccrual):
		// A previous pass already charged this miss.
		return nil
	default:
		return fmt.Errorf("accrue %s: %w", source.ObligationID(), err)
	}
}

// sweepKey returns the period key a run on asOf is allowed to sweep, or
// false when the cadence boundary has not been crossed.
func sweepKey(p period.Period, asOf time.Time) (time.Time, bool) {
	switch p {
	case period.Daily:
		return period.PrevKey(period.KeyFor(asOf, p), p), true
	case period.Weekly:
		if asOf.Weekday() != time.Monday {
			return time.Time{}, false
		}
		return period.PrevKey(period.KeyFor(asOf, p), p), true
	case period.Monthly:
		if asOf.Day() != 1 {
			return time.Time{}, false
		}
		return period.PrevKey(period.KeyFor(asOf, p), p), true
	default:
		return time.Time{}, false
	}
}

func keyInWindow(key time.Time, p period.Period, w period.Window) bool {
	if key.Before(period.KeyFor(w.Start, p)) {
		return false
	}
	if w.End != nil && key.After(period.KeyFor(*w.End, p)) {
		return false
	}
	return true
}
