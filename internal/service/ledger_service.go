// Package service orchestrates the ledger core: expense creation, balance
// queries, payment transitions, advances, direct payments and drift audits.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mmynk/tally/internal/audit"
	"github.com/mmynk/tally/internal/calculator"
	"github.com/mmynk/tally/internal/metrics"
	"github.com/mmynk/tally/internal/models"
	"github.com/mmynk/tally/internal/payments"
	"github.com/mmynk/tally/internal/storage"
)

// LedgerService exposes the ledger operations to transport layers.
type LedgerService struct {
	store   storage.Store
	auditor *audit.Auditor
}

// NewLedgerService creates a LedgerService with the given storage backend.
func NewLedgerService(store storage.Store) *LedgerService {
	return &LedgerService{
		store:   store,
		auditor: audit.New(store),
	}
}

// CreateExpenseRequest carries everything needed to record one expense.
type CreateExpenseRequest struct {
	GroupID     string
	PayerID     string
	Description string
	AmountCents int64
	Policy      models.SplitPolicy
	Date        int64

	// CustomCents holds per-member shares for the Custom policy.
	CustomCents map[string]int64

	// Percentages holds per-member percentages for the Percentage policy.
	Percentages map[string]float64

	// Items holds line items for the Itemwise policy.
	Items []calculator.SplitItem
}

// CreateExpense computes the splits for the request and persists the
// expense, its splits and the Pending payments atomically. Splits are only
// ever written alongside their expense; a split set that does not reconcile
// to the amount never reaches storage.
func (s *LedgerService) CreateExpense(ctx context.Context, req CreateExpenseRequest) (*models.Expense, error) {
	if !req.Policy.Valid() {
		return nil, fmt.Errorf("%w: %q", calculator.ErrUnknownPolicy, req.Policy)
	}

	members, err := s.store.ListMembers(ctx, req.GroupID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	payerOK := false
	for _, m := range members {
		if m.ID == req.PayerID && m.Active {
			payerOK = true
			break
		}
	}
	if !payerOK {
		return nil, fmt.Errorf("payer %s is not an active member of group %s", req.PayerID, req.GroupID)
	}

	splitReq := calculator.SplitRequest{
		AmountCents: req.AmountCents,
		Policy:      req.Policy,
		CustomCents: req.CustomCents,
		Items:       req.Items,
	}

	// Equal, Weighted and Itemwise divide among the whole active roster;
	// Custom and Percentage divide among the members the caller named.
	switch req.Policy {
	case models.SplitCustom:
		splitReq.Members = namedMembers(members, keysOf(req.CustomCents))
	case models.SplitPercentage:
		bp, err := calculator.PercentToBasisPoints(req.Percentages)
		if err != nil {
			return nil, err
		}
		if err := s.requireMembers(ctx, req.GroupID, keysOf(bp)); err != nil {
			return nil, err
		}
		splitReq.PercentBP = bp
		splitReq.Members = namedMembers(members, keysOf(bp))
	default:
		for _, m := range members {
			if m.Active {
				splitReq.Members = append(splitReq.Members, calculator.SplitMember{ID: m.ID, Weight: m.Weight})
			}
		}
	}

	shares, err := calculator.ComputeSplits(splitReq)
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		GroupID:     req.GroupID,
		PayerID:     req.PayerID,
		Description: req.Description,
		AmountCents: req.AmountCents,
		Policy:      req.Policy,
		Date:        req.Date,
	}
	for _, m := range splitReq.Members {
		cents, ok := shares[m.ID]
		if !ok {
			continue
		}
		expense.Splits = append(expense.Splits, models.Split{
			MemberID:    m.ID,
			AmountCents: cents,
			PercentBP:   splitReq.PercentBP[m.ID],
		})
	}

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		slog.Error("CreateExpense failed", "group_id", req.GroupID, "error", err)
		return nil, err
	}
	metrics.ExpensesCreated.WithLabelValues(string(req.Policy)).Inc()
	slog.Info("expense created",
		"expense_id", expense.ID,
		"group_id", expense.GroupID,
		"policy", expense.Policy,
		"amount_cents", expense.AmountCents,
		"splits", len(expense.Splits),
	)
	return expense, nil
}

// GroupBalances recomputes the pairwise net balances of a group from its
// source records. Nothing is cached: the result always reflects the latest
// payment, advance and direct-payment state.
func (s *LedgerService) GroupBalances(ctx context.Context, groupID string) ([]models.PairBalance, error) {
	start := time.Now()

	expenses, err := s.store.ListExpenses(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	paymentList, err := s.store.ListPayments(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	advances, err := s.store.ListAdvances(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list advances: %w", err)
	}
	directPayments, err := s.store.ListDirectPayments(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list direct payments: %w", err)
	}
	members, err := s.store.ListMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	type legKey struct{ expenseID, memberID string }
	statuses := make(map[legKey]models.PaymentStatus, len(paymentList))
	for _, p := range paymentList {
		statuses[legKey{p.ExpenseID, p.MemberID}] = p.Status
	}
	weights := make(map[string]int, len(members))
	for _, m := range members {
		weights[m.ID] = m.Weight
	}

	expenseRecords := make([]calculator.ExpenseBalance, 0, len(expenses))
	for _, e := range expenses {
		record := calculator.ExpenseBalance{PayerID: e.PayerID}
		for _, split := range e.Splits {
			status, ok := statuses[legKey{split.ExpenseID, split.MemberID}]
			if !ok {
				status = models.PaymentPending
			}
			record.Legs = append(record.Legs, calculator.SplitLeg{
				MemberID:    split.MemberID,
				AmountCents: split.AmountCents,
				Status:      status,
			})
		}
		expenseRecords = append(expenseRecords, record)
	}

	advanceRecords := make([]calculator.AdvanceBalance, 0, len(advances))
	for _, a := range advances {
		record := calculator.AdvanceBalance{
			RecipientID:          a.RecipientID,
			AmountPerSenderCents: a.AmountPerSenderCents,
			Policy:               a.Policy,
		}
		for _, senderID := range a.SenderIDs {
			record.Senders = append(record.Senders, calculator.AdvanceSender{
				MemberID: senderID,
				Weight:   weights[senderID],
			})
		}
		advanceRecords = append(advanceRecords, record)
	}

	paymentRecords := make([]calculator.DirectPaymentBalance, 0, len(directPayments))
	for _, p := range directPayments {
		paymentRecords = append(paymentRecords, calculator.DirectPaymentBalance{
			FromID:      p.FromID,
			ToID:        p.ToID,
			AmountCents: p.AmountCents,
		})
	}

	balances := calculator.ComputeGroupBalances(expenseRecords, advanceRecords, paymentRecords)
	metrics.BalanceComputations.Inc()
	metrics.BalanceDuration.Observe(time.Since(start).Seconds())
	return balances, nil
}

// TransitionPayment applies a payment action on behalf of an actor and
// persists the outcome. Authorization failures leave the payment untouched
// and are the caller's problem, not a system error.
func (s *LedgerService) TransitionPayment(ctx context.Context, expenseID, memberID string, action payments.Action, actor payments.Actor, reason string) (*models.Payment, error) {
	payment, err := s.store.GetPayment(ctx, expenseID, memberID)
	if err != nil {
		return nil, err
	}
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}

	if err := payments.Transition(payment, action, actor, expense.PayerID, reason); err != nil {
		metrics.PaymentTransitions.WithLabelValues(string(action), "rejected").Inc()
		return nil, err
	}
	if err := s.store.UpdatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("persist payment: %w", err)
	}
	metrics.PaymentTransitions.WithLabelValues(string(action), "ok").Inc()
	slog.Info("payment transitioned",
		"expense_id", expenseID,
		"member_id", memberID,
		"action", action,
		"status", payment.Status,
		"actor", actor.MemberID,
	)
	return payment, nil
}

// RecordAdvance validates and persists an advance.
func (s *LedgerService) RecordAdvance(ctx context.Context, advance *models.Advance) error {
	if advance.AmountPerSenderCents <= 0 {
		return fmt.Errorf("advance amount must be positive")
	}
	if len(advance.SenderIDs) == 0 {
		return fmt.Errorf("advance needs at least one sender")
	}
	if advance.Policy == "" {
		advance.Policy = models.AdvanceFlat
	}
	if err := s.requireMembers(ctx, advance.GroupID, append([]string{advance.RecipientID}, advance.SenderIDs...)); err != nil {
		return err
	}
	return s.store.CreateAdvance(ctx, advance)
}

// DeleteAdvance removes an advance.
func (s *LedgerService) DeleteAdvance(ctx context.Context, advanceID string) error {
	return s.store.DeleteAdvance(ctx, advanceID)
}

// RecordDirectPayment validates and persists a direct payment.
func (s *LedgerService) RecordDirectPayment(ctx context.Context, payment *models.DirectPayment) error {
	if payment.AmountCents <= 0 {
		return fmt.Errorf("direct payment amount must be positive")
	}
	if payment.FromID == payment.ToID {
		return fmt.Errorf("direct payment cannot pay oneself")
	}
	if err := s.requireMembers(ctx, payment.GroupID, []string{payment.FromID, payment.ToID}); err != nil {
		return err
	}
	return s.store.CreateDirectPayment(ctx, payment)
}

// DeleteDirectPayment removes a direct payment.
func (s *LedgerService) DeleteDirectPayment(ctx context.Context, paymentID string) error {
	return s.store.DeleteDirectPayment(ctx, paymentID)
}

// AuditGroup runs a drift audit over one group.
func (s *LedgerService) AuditGroup(ctx context.Context, groupID string, fix bool) (*models.AuditReport, error) {
	report, err := s.auditor.AuditGroup(ctx, groupID, fix)
	if err != nil {
		return nil, err
	}
	metrics.AuditIssues.Add(float64(len(report.Issues)))
	metrics.AuditFixes.Add(float64(len(report.Fixed)))
	return report, nil
}

// AuditAllGroups audits every group, fanning out up to concurrency groups
// at a time. Groups are independent, so the sweep parallelizes safely.
func (s *LedgerService) AuditAllGroups(ctx context.Context, concurrency int, fix bool) ([]*models.AuditReport, error) {
	groupIDs, err := s.store.ListGroupIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	var mu sync.Mutex
	reports := make([]*models.AuditReport, 0, len(groupIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, groupID := range groupIDs {
		g.Go(func() error {
			report, err := s.AuditGroup(ctx, groupID, fix)
			if err != nil {
				return fmt.Errorf("audit group %s: %w", groupID, err)
			}
			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// requireMembers checks that every ID belongs to the group.
func (s *LedgerService) requireMembers(ctx context.Context, groupID string, ids []string) error {
	members, err := s.store.ListMembers(ctx, groupID)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	known := make(map[string]bool, len(members))
	for _, m := range members {
		known[m.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return fmt.Errorf("member %s is not in group %s", id, groupID)
		}
	}
	return nil
}

// namedMembers projects the roster onto the IDs a caller named. Unknown
// IDs are dropped here; their amounts stay in the request, so the
// calculator rejects the mismatch.
func namedMembers(members []*models.Member, ids []string) []calculator.SplitMember {
	weights := make(map[string]int, len(members))
	known := make(map[string]bool, len(members))
	for _, m := range members {
		weights[m.ID] = m.Weight
		known[m.ID] = true
	}
	out := make([]calculator.SplitMember, 0, len(ids))
	for _, id := range ids {
		if known[id] {
			out = append(out, calculator.SplitMember{ID: id, Weight: weights[id]})
		}
	}
	return out
}

func keysOf[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
