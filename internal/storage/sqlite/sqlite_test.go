package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmynk/tally/internal/models"
	"github.com/mmynk/tally/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "tally-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

// seedGroup creates a group with three members and returns their IDs.
func seedGroup(t *testing.T, store *SQLiteStore) (groupID string, memberIDs []string) {
	t.Helper()
	ctx := context.Background()

	group := &models.Group{Name: "Roommates"}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	for _, name := range []string{"alice", "bob", "carol"} {
		member := &models.Member{GroupID: group.ID, Name: name, Weight: 1, Active: true}
		if err := store.AddMember(ctx, member); err != nil {
			t.Fatalf("AddMember(%s) failed: %v", name, err)
		}
		memberIDs = append(memberIDs, member.ID)
	}
	return group.ID, memberIDs
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	groupID, memberIDs := seedGroup(t, store)
	alice, bob, carol := memberIDs[0], memberIDs[1], memberIDs[2]

	t.Run("CreateGroup generates ID and timestamp", func(t *testing.T) {
		group := &models.Group{Name: "Ski Trip"}
		if err := store.CreateGroup(ctx, group); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if group.ID == "" {
			t.Error("Expected group ID to be generated")
		}
		if group.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}

		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if got.Name != "Ski Trip" {
			t.Errorf("Name = %s, want Ski Trip", got.Name)
		}
	})

	t.Run("GetGroup unknown id", func(t *testing.T) {
		if _, err := store.GetGroup(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("member weight update", func(t *testing.T) {
		if err := store.SetMemberWeight(ctx, bob, 3); err != nil {
			t.Fatalf("SetMemberWeight failed: %v", err)
		}
		member, err := store.GetMember(ctx, bob)
		if err != nil {
			t.Fatalf("GetMember failed: %v", err)
		}
		if member.Weight != 3 {
			t.Errorf("Weight = %d, want 3", member.Weight)
		}
		// Restore for the tests below.
		if err := store.SetMemberWeight(ctx, bob, 1); err != nil {
			t.Fatalf("SetMemberWeight failed: %v", err)
		}
	})

	t.Run("RemoveMember keeps the row inactive", func(t *testing.T) {
		extra := &models.Member{GroupID: groupID, Name: "dave", Contact: true, Active: true}
		if err := store.AddMember(ctx, extra); err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}
		if err := store.RemoveMember(ctx, extra.ID); err != nil {
			t.Fatalf("RemoveMember failed: %v", err)
		}
		member, err := store.GetMember(ctx, extra.ID)
		if err != nil {
			t.Fatalf("GetMember failed: %v", err)
		}
		if member.Active {
			t.Error("Expected member to be inactive")
		}
	})

	t.Run("CreateExpense persists splits and pending payments", func(t *testing.T) {
		expense := &models.Expense{
			GroupID:     groupID,
			PayerID:     alice,
			Description: "Groceries",
			AmountCents: 9000,
			Policy:      models.SplitEqual,
			Splits: []models.Split{
				{MemberID: alice, AmountCents: 3000},
				{MemberID: bob, AmountCents: 3000},
				{MemberID: carol, AmountCents: 3000},
			},
		}
		if err := store.CreateExpense(ctx, expense); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		if expense.ID == "" {
			t.Error("Expected expense ID to be generated")
		}
		if expense.Version != 1 {
			t.Errorf("Version = %d, want 1", expense.Version)
		}

		got, err := store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if len(got.Splits) != 3 {
			t.Fatalf("got %d splits, want 3", len(got.Splits))
		}

		// The payer leg gets no payment row; the other two start Pending.
		if _, err := store.GetPayment(ctx, expense.ID, alice); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("payer payment error = %v, want ErrNotFound", err)
		}
		for _, id := range []string{bob, carol} {
			payment, err := store.GetPayment(ctx, expense.ID, id)
			if err != nil {
				t.Fatalf("GetPayment failed: %v", err)
			}
			if payment.Status != models.PaymentPending {
				t.Errorf("status = %s, want pending", payment.Status)
			}
		}
	})

	t.Run("UpdatePayment round trip", func(t *testing.T) {
		expense := &models.Expense{
			GroupID:     groupID,
			PayerID:     alice,
			Description: "Utilities",
			AmountCents: 600,
			Policy:      models.SplitEqual,
			Splits: []models.Split{
				{MemberID: alice, AmountCents: 200},
				{MemberID: bob, AmountCents: 200},
				{MemberID: carol, AmountCents: 200},
			},
		}
		if err := store.CreateExpense(ctx, expense); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}

		payment, err := store.GetPayment(ctx, expense.ID, bob)
		if err != nil {
			t.Fatalf("GetPayment failed: %v", err)
		}
		payment.Status = models.PaymentPaid
		payment.DeclaredBy = bob
		payment.UpdatedAt = 42
		if err := store.UpdatePayment(ctx, payment); err != nil {
			t.Fatalf("UpdatePayment failed: %v", err)
		}

		got, err := store.GetPayment(ctx, expense.ID, bob)
		if err != nil {
			t.Fatalf("GetPayment failed: %v", err)
		}
		if got.Status != models.PaymentPaid || got.DeclaredBy != bob || got.UpdatedAt != 42 {
			t.Errorf("payment = %+v, want paid/declared by bob", got)
		}
	})

	t.Run("UpdateSplitAmounts bumps version and rewrites in place", func(t *testing.T) {
		expense := &models.Expense{
			GroupID:     groupID,
			PayerID:     alice,
			Description: "Internet",
			AmountCents: 3000,
			Policy:      models.SplitWeighted,
			Splits: []models.Split{
				{MemberID: alice, AmountCents: 1000},
				{MemberID: bob, AmountCents: 1000},
				{MemberID: carol, AmountCents: 1000},
			},
		}
		if err := store.CreateExpense(ctx, expense); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}

		amounts := map[string]int64{alice: 500, bob: 1500, carol: 1000}
		if err := store.UpdateSplitAmounts(ctx, expense.ID, expense.Version, amounts); err != nil {
			t.Fatalf("UpdateSplitAmounts failed: %v", err)
		}

		got, err := store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if got.Version != expense.Version+1 {
			t.Errorf("Version = %d, want %d", got.Version, expense.Version+1)
		}
		if got.ID != expense.ID {
			t.Error("expense identity changed during repair")
		}
		for _, split := range got.Splits {
			if split.AmountCents != amounts[split.MemberID] {
				t.Errorf("split %s = %d, want %d", split.MemberID, split.AmountCents, amounts[split.MemberID])
			}
		}

		// Re-using the stale version must fail without touching anything.
		err = store.UpdateSplitAmounts(ctx, expense.ID, expense.Version, map[string]int64{alice: 3000, bob: 0, carol: 0})
		if !errors.Is(err, storage.ErrConcurrentModification) {
			t.Fatalf("error = %v, want ErrConcurrentModification", err)
		}
		again, err := store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		for _, split := range again.Splits {
			if split.AmountCents != amounts[split.MemberID] {
				t.Errorf("stale write leaked: split %s = %d", split.MemberID, split.AmountCents)
			}
		}
	})

	t.Run("UpdateSplitAmounts unknown member rolls back", func(t *testing.T) {
		expense := &models.Expense{
			GroupID:     groupID,
			PayerID:     alice,
			Description: "Gas",
			AmountCents: 1000,
			Policy:      models.SplitEqual,
			Splits: []models.Split{
				{MemberID: alice, AmountCents: 500},
				{MemberID: bob, AmountCents: 500},
			},
		}
		if err := store.CreateExpense(ctx, expense); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}

		err := store.UpdateSplitAmounts(ctx, expense.ID, expense.Version, map[string]int64{
			alice:   400,
			"ghost": 300,
			bob:     300,
		})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}

		got, err := store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if got.Version != expense.Version {
			t.Errorf("Version = %d, want unchanged %d", got.Version, expense.Version)
		}
		for _, split := range got.Splits {
			if split.AmountCents != 500 {
				t.Errorf("split %s = %d, want untouched 500", split.MemberID, split.AmountCents)
			}
		}
	})

	t.Run("advances round trip", func(t *testing.T) {
		advance := &models.Advance{
			GroupID:              groupID,
			RecipientID:          carol,
			SenderIDs:            []string{alice, bob},
			AmountPerSenderCents: 5000,
		}
		if err := store.CreateAdvance(ctx, advance); err != nil {
			t.Fatalf("CreateAdvance failed: %v", err)
		}
		if advance.Policy != models.AdvanceFlat {
			t.Errorf("Policy = %s, want flat default", advance.Policy)
		}

		advances, err := store.ListAdvances(ctx, groupID)
		if err != nil {
			t.Fatalf("ListAdvances failed: %v", err)
		}
		if len(advances) != 1 {
			t.Fatalf("got %d advances, want 1", len(advances))
		}
		if len(advances[0].SenderIDs) != 2 {
			t.Errorf("got %d senders, want 2", len(advances[0].SenderIDs))
		}

		if err := store.DeleteAdvance(ctx, advance.ID); err != nil {
			t.Fatalf("DeleteAdvance failed: %v", err)
		}
		advances, err = store.ListAdvances(ctx, groupID)
		if err != nil {
			t.Fatalf("ListAdvances failed: %v", err)
		}
		if len(advances) != 0 {
			t.Errorf("got %d advances after delete, want 0", len(advances))
		}
	})

	t.Run("direct payments round trip", func(t *testing.T) {
		payment := &models.DirectPayment{
			GroupID:     groupID,
			FromID:      bob,
			ToID:        alice,
			AmountCents: 1234,
			Note:        "venmo",
		}
		if err := store.CreateDirectPayment(ctx, payment); err != nil {
			t.Fatalf("CreateDirectPayment failed: %v", err)
		}

		payments, err := store.ListDirectPayments(ctx, groupID)
		if err != nil {
			t.Fatalf("ListDirectPayments failed: %v", err)
		}
		if len(payments) != 1 {
			t.Fatalf("got %d direct payments, want 1", len(payments))
		}
		if payments[0].AmountCents != 1234 || payments[0].FromID != bob {
			t.Errorf("payment = %+v", payments[0])
		}

		if err := store.DeleteDirectPayment(ctx, payment.ID); err != nil {
			t.Fatalf("DeleteDirectPayment failed: %v", err)
		}
		if err := store.DeleteDirectPayment(ctx, payment.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("second delete error = %v, want ErrNotFound", err)
		}
	})
}
