// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/tally/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConcurrentModification is returned when a versioned write loses
	// the race against another writer. Callers may retry.
	ErrConcurrentModification = errors.New("record modified concurrently")
)

// Store defines the persistence operations the ledger core needs.
// The abstraction allows swapping storage backends (SQLite, PostgreSQL,
// etc.) without changing the service layer.
type Store interface {
	// CreateGroup persists a new group, assigning ID and CreatedAt if
	// unset.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group by ID.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroupIDs returns the IDs of all groups.
	ListGroupIDs(ctx context.Context) ([]string, error)

	// AddMember persists a new group member, assigning ID and CreatedAt
	// if unset.
	AddMember(ctx context.Context, member *models.Member) error

	// GetMember retrieves a member by ID.
	GetMember(ctx context.Context, memberID string) (*models.Member, error)

	// ListMembers returns all members of a group, active and removed,
	// ordered by ID.
	ListMembers(ctx context.Context, groupID string) ([]*models.Member, error)

	// SetMemberWeight updates one member's split weight.
	SetMemberWeight(ctx context.Context, memberID string, weight int) error

	// RemoveMember marks a member inactive. Historical splits stay.
	RemoveMember(ctx context.Context, memberID string) error

	// CreateExpense persists an expense together with its splits and one
	// Pending payment per non-payer split, in a single transaction.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense with its splits.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListExpenses returns all expenses of a group with their splits,
	// ordered by date.
	ListExpenses(ctx context.Context, groupID string) ([]*models.Expense, error)

	// UpdateSplitAmounts rewrites split amounts for one expense in place,
	// keyed by member ID, guarded by the expense version read beforehand.
	// Returns ErrConcurrentModification if the version moved. The splits
	// keep their identity; the expense keeps its ID and its version is
	// bumped.
	UpdateSplitAmounts(ctx context.Context, expenseID string, version int64, amounts map[string]int64) error

	// GetPayment retrieves the payment for one split.
	GetPayment(ctx context.Context, expenseID, memberID string) (*models.Payment, error)

	// UpdatePayment persists a payment's state after a transition.
	UpdatePayment(ctx context.Context, payment *models.Payment) error

	// ListPayments returns all payments for a group's expenses.
	ListPayments(ctx context.Context, groupID string) ([]*models.Payment, error)

	// CreateAdvance persists an advance and its sender legs.
	CreateAdvance(ctx context.Context, advance *models.Advance) error

	// DeleteAdvance removes an advance and its sender legs.
	DeleteAdvance(ctx context.Context, advanceID string) error

	// ListAdvances returns all advances of a group.
	ListAdvances(ctx context.Context, groupID string) ([]*models.Advance, error)

	// CreateDirectPayment persists a direct payment.
	CreateDirectPayment(ctx context.Context, payment *models.DirectPayment) error

	// DeleteDirectPayment removes a direct payment.
	DeleteDirectPayment(ctx context.Context, paymentID string) error

	// ListDirectPayments returns all direct payments of a group.
	ListDirectPayments(ctx context.Context, groupID string) ([]*models.DirectPayment, error)

	// Close releases any resources held by the store.
	Close() error
}
