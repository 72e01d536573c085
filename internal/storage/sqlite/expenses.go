package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/tally/internal/models"
	"github.com/mmynk/tally/internal/storage"
)

// CreateExpense persists an expense, its splits and one Pending payment per
// non-payer split in a single transaction. The splits must already sum to
// the expense amount; the calculator guarantees that upstream.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if expense.CreatedAt == 0 {
		expense.CreatedAt = now
	}
	if expense.Date == 0 {
		expense.Date = now
	}
	if expense.Version == 0 {
		expense.Version = 1
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO expenses (id, group_id, payer_id, description, amount_cents, policy, date, created_at, version)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			expense.ID, expense.GroupID, expense.PayerID, expense.Description,
			expense.AmountCents, expense.Policy, expense.Date, expense.CreatedAt, expense.Version,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}

		for i := range expense.Splits {
			split := &expense.Splits[i]
			split.ExpenseID = expense.ID

			_, err := tx.ExecContext(ctx,
				"INSERT INTO splits (expense_id, member_id, amount_cents, percent_bp) VALUES (?, ?, ?, ?)",
				split.ExpenseID, split.MemberID, split.AmountCents, split.PercentBP,
			)
			if err != nil {
				return fmt.Errorf("failed to insert split: %w", err)
			}

			if split.MemberID == expense.PayerID {
				continue
			}
			_, err = tx.ExecContext(ctx,
				"INSERT INTO payments (expense_id, member_id, status, updated_at) VALUES (?, ?, ?, ?)",
				split.ExpenseID, split.MemberID, models.PaymentPending, now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert payment: %w", err)
			}
		}
		return nil
	})
}

// GetExpense retrieves an expense with its splits.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	expense := &models.Expense{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, payer_id, description, amount_cents, policy, date, created_at, version
		 FROM expenses WHERE id = ?`,
		expenseID,
	).Scan(&expense.ID, &expense.GroupID, &expense.PayerID, &expense.Description,
		&expense.AmountCents, &expense.Policy, &expense.Date, &expense.CreatedAt, &expense.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT expense_id, member_id, amount_cents, percent_bp FROM splits WHERE expense_id = ? ORDER BY member_id",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var split models.Split
		if err := rows.Scan(&split.ExpenseID, &split.MemberID, &split.AmountCents, &split.PercentBP); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		expense.Splits = append(expense.Splits, split)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}
	return expense, nil
}

// ListExpenses returns all expenses of a group with their splits.
func (s *SQLiteStore) ListExpenses(ctx context.Context, groupID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, payer_id, description, amount_cents, policy, date, created_at, version
		 FROM expenses WHERE group_id = ? ORDER BY date, id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	byID := make(map[string]*models.Expense)
	for rows.Next() {
		expense := &models.Expense{}
		if err := rows.Scan(&expense.ID, &expense.GroupID, &expense.PayerID, &expense.Description,
			&expense.AmountCents, &expense.Policy, &expense.Date, &expense.CreatedAt, &expense.Version); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
		byID[expense.ID] = expense
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	splitRows, err := s.db.QueryContext(ctx,
		`SELECT s.expense_id, s.member_id, s.amount_cents, s.percent_bp
		 FROM splits s JOIN expenses e ON e.id = s.expense_id
		 WHERE e.group_id = ? ORDER BY s.expense_id, s.member_id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}
	defer splitRows.Close()

	for splitRows.Next() {
		var split models.Split
		if err := splitRows.Scan(&split.ExpenseID, &split.MemberID, &split.AmountCents, &split.PercentBP); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		if expense, ok := byID[split.ExpenseID]; ok {
			expense.Splits = append(expense.Splits, split)
		}
	}
	if err := splitRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}
	return expenses, nil
}

// UpdateSplitAmounts rewrites split amounts for one expense in place. The
// expense row is version-checked first; losing the race aborts the whole
// write with ErrConcurrentModification so the repair stays all-or-nothing.
func (s *SQLiteStore) UpdateSplitAmounts(ctx context.Context, expenseID string, version int64, amounts map[string]int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE expenses SET version = version + 1 WHERE id = ? AND version = ?",
			expenseID, version,
		)
		if err != nil {
			return fmt.Errorf("failed to bump expense version: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("expense %s at version %d: %w", expenseID, version, storage.ErrConcurrentModification)
		}

		for memberID, cents := range amounts {
			res, err := tx.ExecContext(ctx,
				"UPDATE splits SET amount_cents = ? WHERE expense_id = ? AND member_id = ?",
				cents, expenseID, memberID,
			)
			if err != nil {
				return fmt.Errorf("failed to update split: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to check rows affected: %w", err)
			}
			if n == 0 {
				return fmt.Errorf("split (%s, %s): %w", expenseID, memberID, storage.ErrNotFound)
			}
		}
		return nil
	})
}
