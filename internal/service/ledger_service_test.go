package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmynk/tally/internal/calculator"
	"github.com/mmynk/tally/internal/models"
	"github.com/mmynk/tally/internal/payments"
	"github.com/mmynk/tally/internal/storage/sqlite"
)

type testEnv struct {
	ledger *LedgerService
	groups *GroupService

	groupID string
	alice   string
	bob     string
	carol   string
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	tempDir, err := os.MkdirTemp("", "tally-service-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	env := &testEnv{
		ledger: NewLedgerService(store),
		groups: NewGroupService(store),
	}

	group, err := env.groups.CreateGroup(ctx, "Trip")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	env.groupID = group.ID

	for _, p := range []struct {
		name string
		dst  *string
	}{
		{"alice", &env.alice},
		{"bob", &env.bob},
		{"carol", &env.carol},
	} {
		member, err := env.groups.AddMember(ctx, group.ID, p.name, 1, false)
		if err != nil {
			t.Fatalf("AddMember(%s) failed: %v", p.name, err)
		}
		*p.dst = member.ID
	}
	return env
}

func netBetween(balances []models.PairBalance, a, b string) int64 {
	for _, bal := range balances {
		if bal.MemberA == a && bal.MemberB == b {
			return bal.NetCents
		}
		if bal.MemberA == b && bal.MemberB == a {
			return -bal.NetCents
		}
	}
	return 0
}

func TestCreateExpenseEqual(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	expense, err := env.ledger.CreateExpense(ctx, CreateExpenseRequest{
		GroupID:     env.groupID,
		PayerID:     env.alice,
		Description: "Dinner",
		AmountCents: 10000,
		Policy:      models.SplitEqual,
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	if len(expense.Splits) != 3 {
		t.Fatalf("got %d splits, want 3", len(expense.Splits))
	}

	var total int64
	for _, split := range expense.Splits {
		total += split.AmountCents
	}
	if total != 10000 {
		t.Errorf("splits sum to %d, want 10000", total)
	}
}

func TestCreateExpenseRejectsBadCustomTotal(t *testing.T) {
	env := setupEnv(t)

	_, err := env.ledger.CreateExpense(context.Background(), CreateExpenseRequest{
		GroupID:     env.groupID,
		PayerID:     env.alice,
		Description: "Broken",
		AmountCents: 1000,
		Policy:      models.SplitCustom,
		CustomCents: map[string]int64{env.alice: 500, env.bob: 499},
	})
	if !errors.Is(err, calculator.ErrInvalidSplitTotal) {
		t.Fatalf("error = %v, want ErrInvalidSplitTotal", err)
	}
}

func TestCreateExpenseRejectsNonMemberPayer(t *testing.T) {
	env := setupEnv(t)

	_, err := env.ledger.CreateExpense(context.Background(), CreateExpenseRequest{
		GroupID:     env.groupID,
		PayerID:     "stranger",
		AmountCents: 1000,
		Policy:      models.SplitEqual,
	})
	if err == nil {
		t.Fatal("expected error for non-member payer")
	}
}

func TestCreateExpensePercentageStoresBasis(t *testing.T) {
	env := setupEnv(t)

	expense, err := env.ledger.CreateExpense(context.Background(), CreateExpenseRequest{
		GroupID:     env.groupID,
		PayerID:     env.alice,
		Description: "Hotel",
		AmountCents: 20000,
		Policy:      models.SplitPercentage,
		Percentages: map[string]float64{env.alice: 50, env.bob: 30, env.carol: 20},
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	wantBP := map[string]int64{env.alice: 5000, env.bob: 3000, env.carol: 2000}
	wantCents := map[string]int64{env.alice: 10000, env.bob: 6000, env.carol: 4000}
	for _, split := range expense.Splits {
		if split.PercentBP != wantBP[split.MemberID] {
			t.Errorf("split %s basis = %d, want %d", split.MemberID, split.PercentBP, wantBP[split.MemberID])
		}
		if split.AmountCents != wantCents[split.MemberID] {
			t.Errorf("split %s = %d, want %d", split.MemberID, split.AmountCents, wantCents[split.MemberID])
		}
	}
}

// The full settle cycle from the ledger's point of view: a leg leaves the
// balance only once approved, and rejection brings it back whole.
func TestBalancesFollowPaymentLifecycle(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	_, err := env.ledger.CreateExpense(ctx, CreateExpenseRequest{
		GroupID:     env.groupID,
		PayerID:     env.alice,
		Description: "Groceries",
		AmountCents: 9000,
		Policy:      models.SplitEqual,
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	expenses, err := env.ledger.store.ListExpenses(ctx, env.groupID)
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	expenseID := expenses[0].ID

	balances, err := env.ledger.GroupBalances(ctx, env.groupID)
	if err != nil {
		t.Fatalf("GroupBalances failed: %v", err)
	}
	if net := netBetween(balances, env.bob, env.alice); net != 3000 {
		t.Fatalf("bob->alice = %d, want 3000", net)
	}

	// Bob declares payment: still owed until alice approves.
	if _, err := env.ledger.TransitionPayment(ctx, expenseID, env.bob, payments.ActionPay, payments.Actor{MemberID: env.bob}, ""); err != nil {
		t.Fatalf("pay: %v", err)
	}
	balances, err = env.ledger.GroupBalances(ctx, env.groupID)
	if err != nil {
		t.Fatalf("GroupBalances failed: %v", err)
	}
	if net := netBetween(balances, env.bob, env.alice); net != 3000 {
		t.Errorf("bob->alice = %d after declare, want 3000", net)
	}

	// Approval settles the leg.
	if _, err := env.ledger.TransitionPayment(ctx, expenseID, env.bob, payments.ActionApprove, payments.Actor{MemberID: env.alice}, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	balances, err = env.ledger.GroupBalances(ctx, env.groupID)
	if err != nil {
		t.Fatalf("GroupBalances failed: %v", err)
	}
	if net := netBetween(balances, env.bob, env.alice); net != 0 {
		t.Errorf("bob->alice = %d after approval, want 0", net)
	}
	if net := netBetween(balances, env.carol, env.alice); net != 3000 {
		t.Errorf("carol->alice = %d, want 3000 untouched", net)
	}
}

func TestBalancesReflectRejection(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	_, err := env.ledger.CreateExpense(ctx, CreateExpenseRequest{
		GroupID:     env.groupID,
		PayerID:     env.alice,
		AmountCents: 9000,
		Policy:      models.SplitEqual,
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	expenses, _ := env.ledger.store.ListExpenses(ctx, env.groupID)
	expenseID := expenses[0].ID

	if _, err := env.ledger.TransitionPayment(ctx, expenseID, env.bob, payments.ActionPay, payments.Actor{MemberID: env.bob}, ""); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if _, err := env.ledger.TransitionPayment(ctx, expenseID, env.bob, payments.ActionReject, payments.Actor{MemberID: env.alice}, "cash never arrived"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	balances, err := env.ledger.GroupBalances(ctx, env.groupID)
	if err != nil {
		t.Fatalf("GroupBalances failed: %v", err)
	}
	if net := netBetween(balances, env.bob, env.alice); net != 3000 {
		t.Errorf("bob->alice = %d after rejection, want original 3000", net)
	}
}

func TestUnauthorizedTransitionLeavesBalanceAlone(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	_, err := env.ledger.CreateExpense(ctx, CreateExpenseRequest{
		GroupID:     env.groupID,
		PayerID:     env.alice,
		AmountCents: 3000,
		Policy:      models.SplitEqual,
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	expenses, _ := env.ledger.store.ListExpenses(ctx, env.groupID)
	expenseID := expenses[0].ID

	// Carol cannot declare bob's payment.
	_, err = env.ledger.TransitionPayment(ctx, expenseID, env.bob, payments.ActionPay, payments.Actor{MemberID: env.carol}, "")
	if !errors.Is(err, payments.ErrUnauthorizedTransition) {
		t.Fatalf("error = %v, want ErrUnauthorizedTransition", err)
	}

	payment, err := env.ledger.store.GetPayment(ctx, expenseID, env.bob)
	if err != nil {
		t.Fatalf("GetPayment failed: %v", err)
	}
	if payment.Status != models.PaymentPending {
		t.Errorf("status = %s, want pending", payment.Status)
	}
}

func TestAdvancesAndDirectPaymentsReduceDebt(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	_, err := env.ledger.CreateExpense(ctx, CreateExpenseRequest{
		GroupID:     env.groupID,
		PayerID:     env.carol,
		AmountCents: 24000,
		Policy:      models.SplitEqual,
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	// Alice and bob each fronted carol $50 earlier.
	advance := &models.Advance{
		GroupID:              env.groupID,
		RecipientID:          env.carol,
		SenderIDs:            []string{env.alice, env.bob},
		AmountPerSenderCents: 5000,
	}
	if err := env.ledger.RecordAdvance(ctx, advance); err != nil {
		t.Fatalf("RecordAdvance failed: %v", err)
	}

	// Bob also settled $20 in cash.
	if err := env.ledger.RecordDirectPayment(ctx, &models.DirectPayment{
		GroupID:     env.groupID,
		FromID:      env.bob,
		ToID:        env.carol,
		AmountCents: 2000,
	}); err != nil {
		t.Fatalf("RecordDirectPayment failed: %v", err)
	}

	balances, err := env.ledger.GroupBalances(ctx, env.groupID)
	if err != nil {
		t.Fatalf("GroupBalances failed: %v", err)
	}
	if net := netBetween(balances, env.alice, env.carol); net != 3000 {
		t.Errorf("alice->carol = %d, want 8000-5000=3000", net)
	}
	if net := netBetween(balances, env.bob, env.carol); net != 1000 {
		t.Errorf("bob->carol = %d, want 8000-5000-2000=1000", net)
	}

	// Deleting the advance restores the full debt.
	if err := env.ledger.DeleteAdvance(ctx, advance.ID); err != nil {
		t.Fatalf("DeleteAdvance failed: %v", err)
	}
	balances, err = env.ledger.GroupBalances(ctx, env.groupID)
	if err != nil {
		t.Fatalf("GroupBalances failed: %v", err)
	}
	if net := netBetween(balances, env.alice, env.carol); net != 8000 {
		t.Errorf("alice->carol = %d after delete, want 8000", net)
	}
}

// Weight change -> drift -> repair -> balances reflect the repair.
func TestAuditRepairFlowsIntoBalances(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	_, err := env.ledger.CreateExpense(ctx, CreateExpenseRequest{
		GroupID:     env.groupID,
		PayerID:     env.alice,
		AmountCents: 9000,
		Policy:      models.SplitWeighted,
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	if err := env.groups.SetMemberWeight(ctx, env.bob, 2); err != nil {
		t.Fatalf("SetMemberWeight failed: %v", err)
	}

	report, err := env.ledger.AuditGroup(ctx, env.groupID, true)
	if err != nil {
		t.Fatalf("AuditGroup failed: %v", err)
	}
	if len(report.Fixed) == 0 {
		t.Fatal("expected repairs after weight change")
	}

	balances, err := env.ledger.GroupBalances(ctx, env.groupID)
	if err != nil {
		t.Fatalf("GroupBalances failed: %v", err)
	}
	// Weights 1/2/1 over 9000: bob now owes 4500.
	if net := netBetween(balances, env.bob, env.alice); net != 4500 {
		t.Errorf("bob->alice = %d after repair, want 4500", net)
	}
	if net := netBetween(balances, env.carol, env.alice); net != 2250 {
		t.Errorf("carol->alice = %d after repair, want 2250", net)
	}
}

func TestAuditAllGroups(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	// A second group with its own drifted expense.
	other, err := env.groups.CreateGroup(ctx, "Office")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	m1, err := env.groups.AddMember(ctx, other.ID, "dan", 1, false)
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	m2, err := env.groups.AddMember(ctx, other.ID, "eve", 1, false)
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if _, err := env.ledger.CreateExpense(ctx, CreateExpenseRequest{
		GroupID:     other.ID,
		PayerID:     m1.ID,
		AmountCents: 5000,
		Policy:      models.SplitWeighted,
	}); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	if err := env.groups.SetMemberWeight(ctx, m2.ID, 4); err != nil {
		t.Fatalf("SetMemberWeight failed: %v", err)
	}

	reports, err := env.ledger.AuditAllGroups(ctx, 2, true)
	if err != nil {
		t.Fatalf("AuditAllGroups failed: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}

	var fixed int
	for _, report := range reports {
		fixed += len(report.Fixed)
	}
	if fixed == 0 {
		t.Error("expected at least one repair across groups")
	}
}
