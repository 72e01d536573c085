package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/tally/internal/models"
	"github.com/mmynk/tally/internal/storage"
)

// GetPayment retrieves the payment for one split.
func (s *SQLiteStore) GetPayment(ctx context.Context, expenseID, memberID string) (*models.Payment, error) {
	payment := &models.Payment{}
	err := s.db.QueryRowContext(ctx,
		`SELECT expense_id, member_id, status, declared_by, resolved_by, reject_reason, updated_at
		 FROM payments WHERE expense_id = ? AND member_id = ?`,
		expenseID, memberID,
	).Scan(&payment.ExpenseID, &payment.MemberID, &payment.Status,
		&payment.DeclaredBy, &payment.ResolvedBy, &payment.RejectReason, &payment.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment (%s, %s): %w", expenseID, memberID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}

// UpdatePayment persists a payment's state after a transition.
func (s *SQLiteStore) UpdatePayment(ctx context.Context, payment *models.Payment) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE payments SET status = ?, declared_by = ?, resolved_by = ?, reject_reason = ?, updated_at = ?
		 WHERE expense_id = ? AND member_id = ?`,
		payment.Status, payment.DeclaredBy, payment.ResolvedBy, payment.RejectReason, payment.UpdatedAt,
		payment.ExpenseID, payment.MemberID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("payment (%s, %s): %w", payment.ExpenseID, payment.MemberID, storage.ErrNotFound)
	}
	return nil
}

// ListPayments returns all payments for a group's expenses.
func (s *SQLiteStore) ListPayments(ctx context.Context, groupID string) ([]*models.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.expense_id, p.member_id, p.status, p.declared_by, p.resolved_by, p.reject_reason, p.updated_at
		 FROM payments p JOIN expenses e ON e.id = p.expense_id
		 WHERE e.group_id = ? ORDER BY p.expense_id, p.member_id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		payment := &models.Payment{}
		if err := rows.Scan(&payment.ExpenseID, &payment.MemberID, &payment.Status,
			&payment.DeclaredBy, &payment.ResolvedBy, &payment.RejectReason, &payment.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}
