// Package audit detects and repairs split drift: stored splits that no
// longer match what the expense's policy would produce with the group's
// current weights, typically after a member's weight changed.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmynk/tally/internal/calculator"
	"github.com/mmynk/tally/internal/models"
	"github.com/mmynk/tally/internal/storage"
)

// driftToleranceCents is how far a stored split may sit from the expected
// amount before it counts as drifted.
const driftToleranceCents = 1

// Auditor recomputes expected splits and optionally repairs stored ones in
// place. Repairs for one group are serialized so the multi-row writes never
// interleave with each other.
type Auditor struct {
	store storage.Store

	mu     sync.Mutex
	groups map[string]*sync.Mutex
}

// New creates an Auditor on top of the given store.
func New(store storage.Store) *Auditor {
	return &Auditor{
		store:  store,
		groups: make(map[string]*sync.Mutex),
	}
}

// groupLock returns the mutex guarding repairs for one group.
func (a *Auditor) groupLock(groupID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	lock, ok := a.groups[groupID]
	if !ok {
		lock = &sync.Mutex{}
		a.groups[groupID] = lock
	}
	return lock
}

// AuditGroup checks every recomputable expense of the group against the
// current roster. With fix set, drifted splits are rewritten in place,
// all-or-nothing per expense; the expense keeps its identity, so payments,
// attachments and comments hanging off it survive. Running it twice in a
// row with fix set yields zero issues the second time.
func (a *Auditor) AuditGroup(ctx context.Context, groupID string, fix bool) (*models.AuditReport, error) {
	if fix {
		lock := a.groupLock(groupID)
		lock.Lock()
		defer lock.Unlock()
	}

	members, err := a.store.ListMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	expenses, err := a.store.ListExpenses(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	report := &models.AuditReport{GroupID: groupID}
	for _, expense := range expenses {
		if !expense.Policy.Recomputable() {
			continue
		}
		report.CheckedExpenses++

		expected, err := expectedShares(expense, members)
		if err != nil {
			// A group that drifted into an uncomputable state (e.g.
			// every weight zeroed) is itself an issue, not a crash.
			report.Issues = append(report.Issues, models.AuditIssue{
				ExpenseID: expense.ID,
				Err:       err.Error(),
			})
			continue
		}

		drifted := diffSplits(expense, expected)
		if len(drifted) == 0 {
			continue
		}

		if !fix {
			report.Issues = append(report.Issues, drifted...)
			continue
		}
		if err := a.repair(ctx, expense, expected); err != nil {
			slog.Warn("split repair failed",
				"group_id", groupID,
				"expense_id", expense.ID,
				"error", err,
			)
			for i := range drifted {
				drifted[i].Err = err.Error()
			}
			report.Issues = append(report.Issues, drifted...)
			continue
		}
		report.Issues = append(report.Issues, drifted...)
		report.Fixed = append(report.Fixed, drifted...)
		slog.Info("repaired drifted splits",
			"group_id", groupID,
			"expense_id", expense.ID,
			"splits", len(drifted),
		)
	}
	return report, nil
}

// expectedShares recomputes the expense's splits from the current roster.
func expectedShares(expense *models.Expense, members []*models.Member) (map[string]int64, error) {
	switch expense.Policy {
	case models.SplitEqual, models.SplitWeighted:
		// Recompute over the members the expense was actually split
		// among, with their current weights. Members added to the group
		// later do not join old expenses.
		weights := make(map[string]int, len(members))
		for _, m := range members {
			weights[m.ID] = m.Weight
		}
		roster := make([]calculator.SplitMember, 0, len(expense.Splits))
		for _, split := range expense.Splits {
			roster = append(roster, calculator.SplitMember{
				ID:     split.MemberID,
				Weight: weights[split.MemberID],
			})
		}
		return calculator.ComputeSplits(calculator.SplitRequest{
			AmountCents: expense.AmountCents,
			Policy:      expense.Policy,
			Members:     roster,
		})
	case models.SplitPercentage:
		roster := make([]calculator.SplitMember, 0, len(expense.Splits))
		bp := make(map[string]int64, len(expense.Splits))
		for _, split := range expense.Splits {
			roster = append(roster, calculator.SplitMember{ID: split.MemberID})
			bp[split.MemberID] = split.PercentBP
		}
		return calculator.ComputeSplits(calculator.SplitRequest{
			AmountCents: expense.AmountCents,
			Policy:      models.SplitPercentage,
			Members:     roster,
			PercentBP:   bp,
		})
	default:
		return nil, fmt.Errorf("policy %s is not recomputable", expense.Policy)
	}
}

// diffSplits reports stored splits outside tolerance of the expected value.
func diffSplits(expense *models.Expense, expected map[string]int64) []models.AuditIssue {
	var issues []models.AuditIssue
	for _, split := range expense.Splits {
		want := expected[split.MemberID]
		delta := split.AmountCents - want
		if delta > driftToleranceCents || delta < -driftToleranceCents {
			issues = append(issues, models.AuditIssue{
				ExpenseID:     expense.ID,
				MemberID:      split.MemberID,
				StoredCents:   split.AmountCents,
				ExpectedCents: want,
			})
		}
	}
	return issues
}

// repair writes the expected shares over the stored splits, validating the
// total first so a bad recomputation can never be persisted.
func (a *Auditor) repair(ctx context.Context, expense *models.Expense, expected map[string]int64) error {
	var total int64
	for _, cents := range expected {
		total += cents
	}
	if total != expense.AmountCents {
		return fmt.Errorf("%w: recomputed shares sum to %d, expense is %d",
			calculator.ErrInvalidSplitTotal, total, expense.AmountCents)
	}

	err := a.store.UpdateSplitAmounts(ctx, expense.ID, expense.Version, expected)
	if errors.Is(err, storage.ErrConcurrentModification) {
		return err
	}
	if err != nil {
		return fmt.Errorf("update splits: %w", err)
	}
	return nil
}
