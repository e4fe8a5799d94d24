// Package penalty accrues, nets, and settles the monetary consequences of
// missed periods. Amounts are integer cents throughout; splitting never
// loses a cent.
package penalty

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ajayprem/cadence/internal/obligation"
	"github.com/ajayprem/cadence/internal/period"
	apperrors "github.com/ajayprem/cadence/internal/platform/errors"
	"github.com/ajayprem/cadence/internal/platform/id"
	"github.com/ajayprem/cadence/internal/platform/lock"
	"github.com/ajayprem/cadence/internal/storage"
)

// Ledger owns penalty accrual and settlement over the penalty store.
type Ledger struct {
	penalties   storage.PenaltyStore
	now         func() time.Time
	idGenerator func() (string, error)
	pairLocks   *lock.Keyed
}

func NewLedger(penalties storage.PenaltyStore, now func() time.Time, idGenerator func() (string, error)) *Ledger {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	return &Ledger{
		penalties:   penalties,
		now:         now,
		idGenerator: idGenerator,
		pairLocks:   lock.NewKeyed(),
	}
}

// SplitEven divides amountCents into n shares that sum exactly to the
// original amount. The first share absorbs the remainder.
func SplitEven(amountCents int64, n int) []int64 {
	if n <= 0 {
		return nil
	}
	shares := make([]int64, n)
	base := amountCents / int64(n)
	for i := range shares {
		shares[i] = base
	}
	shares[0] += amountCents % int64(n)
	return shares
}

// Accrue creates the penalty records for one missed period. For a task the
// configured amount splits across the owner's recipients; for a challenge
// the debtor owes the full amount to the creator. A second accrual for the
// same (source, debtor, period) is rejected without changing the ledger.
func (l *Ledger) Accrue(ctx context.Context, source obligation.Obligation, debtorID string, periodKey time.Time) ([]storage.Penalty, error) {
	var (
		recipients []string
		kind       string
	)
	switch v := source.(type) {
	case obligation.Task:
		kind = storage.PenaltyKindTask
		debtorID = v.OwnerID
		recipients = v.PenaltyRecipientIDs
	case obligation.Challenge:
		kind = storage.PenaltyKindChallenge
		if debtorID != v.CreatorID {
			recipients = []string{v.CreatorID}
		}
	default:
		return nil, apperrors.New(apperrors.CodeNotFound, "unknown obligation kind")
	}

	amount := source.PenaltyAmount()
	if amount <= 0 || len(recipients) == 0 {
		return nil, apperrors.WithMetadata(apperrors.CodePenaltyNotConfigured,
			"obligation has no penalty configured", map[string]string{
				"obligation_id": source.ObligationID(),
			})
	}

	key := period.KeyFor(periodKey, source.Cadence())
	shares := SplitEven(amount, len(recipients))
	accruedAt := l.now().UTC()
	reason := fmt.Sprintf("Missed %s %s %q", source.Cadence().Label(), kind, source.ObligationTitle())

	records := make([]storage.Penalty, 0, len(recipients))
	for i, recipientID := range recipients {
		recordID, err := l.idGenerator()
		if err != nil {
			return nil, fmt.Errorf("generate penalty id: %w", err)
		}
		records = append(records, storage.Penalty{
			ID:          recordID,
			SourceID:    source.ObligationID(),
			Kind:        kind,
			FromUserID:  debtorID,
			ToUserID:    recipientID,
			AmountCents: shares[i],
			Reason:      reason,
			PeriodKey:   key,
			AccruedAt:   accruedAt,
		})
	}

	if err := l.penalties.PutPenalties(ctx, records); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, apperrors.WithMetadata(apperrors.CodePenaltyDuplicateAccrual,
				"penalty already accrued for this period", map[string]string{
					"obligation_id": source.ObligationID(),
					"debtor_id":     debtorID,
					"period_key":    key.Format("2006-01-02"),
				})
		}
		return nil, fmt.Errorf("put penalties: %w", err)
	}
	return records, nil
}

// Balances is one user's unsettled penalty position. Net amounts are
// positive when the counterparty owes the user.
type Balances struct {
	TotalOwedCents       int64
	TotalReceivableCents int64
	PerCounterpartyCents map[string]int64
	Records              []storage.Penalty
}

// NetBalances sums the user's unsettled records into totals and per-friend
// net positions.
func (l *Ledger) NetBalances(ctx context.Context, userID string) (Balances, error) {
	records, err := l.penalties.ListUnsettledByUser(ctx, userID)
	if err != nil {
		return Balances{}, fmt.Errorf("list unsettled penalties: %w", err)
	}

	b := Balances{
		PerCounterpartyCents: make(map[string]int64),
		Records:              records,
	}
	for _, r := range records {
		switch userID {
		case r.FromUserID:
			b.TotalOwedCents += r.AmountCents
			b.PerCounterpartyCents[r.ToUserID] -= r.AmountCents
		case r.ToUserID:
			b.TotalReceivableCents += r.AmountCents
			b.PerCounterpartyCents[r.FromUserID] += r.AmountCents
		}
	}
	return b, nil
}

// Settle marks every unsettled record between the pair as paid and returns
// the net amount the debtor transferred. Settlement is all-or-nothing for
// the pair; there are no partial payments. Only the records visible in the
// snapshot that produced the net are settled; a record accrued mid-call
// stays open for the next settlement.
func (l *Ledger) Settle(ctx context.Context, debtorID, creditorID string) (int64, error) {
	unlock := l.pairLocks.Lock(lock.PairKey(debtorID, creditorID))
	defer unlock()

	owed, err := l.penalties.ListUnsettledBetween(ctx, debtorID, creditorID)
	if err != nil {
		return 0, fmt.Errorf("list unsettled %s->%s: %w", debtorID, creditorID, err)
	}
	receivable, err := l.penalties.ListUnsettledBetween(ctx, creditorID, debtorID)
	if err != nil {
		return 0, fmt.Errorf("list unsettled %s->%s: %w", creditorID, debtorID, err)
	}

	net := sumAmounts(owed) - sumAmounts(receivable)
	if net <= 0 {
		return 0, apperrors.WithMetadata(apperrors.CodePenaltyNothingToSettle,
			"debtor owes nothing to creditor", map[string]string{
				"debtor_id":   debtorID,
				"creditor_id": creditorID,
			})
	}

	ids := make([]string, 0, len(owed)+len(receivable))
	for _, r := range owed {
		ids = append(ids, r.ID)
	}
	for _, r := range receivable {
		ids = append(ids, r.ID)
	}
	if err := l.penalties.SettlePenalties(ctx, ids, l.now().UTC()); err != nil {
		return 0, fmt.Errorf("settle penalties: %w", err)
	}
	return net, nil
}

func sumAmounts(records []storage.Penalty) int64 {
	var sum int64
	for _, r := range records {
		sum += r.AmountCents
	}
	return sum
}

// Counterparties returns the sorted counterparty IDs of a balance map.
// Deterministic ordering keeps summaries stable for display and logs.
func (b Balances) Counterparties() []string {
	out := make([]string, 0, len(b.PerCounterpartyCents))
	for id := range b.PerCounterpartyCents {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
