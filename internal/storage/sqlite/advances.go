package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/tally/internal/models"
)

// CreateAdvance persists an advance and its sender legs.
func (s *SQLiteStore) CreateAdvance(ctx context.Context, advance *models.Advance) error {
	if advance.ID == "" {
		advance.ID = uuid.New().String()
	}
	if advance.CreatedAt == 0 {
		advance.CreatedAt = time.Now().Unix()
	}
	if advance.Policy == "" {
		advance.Policy = models.AdvanceFlat
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO advances (id, group_id, recipient_id, amount_per_sender_cents, policy, note, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			advance.ID, advance.GroupID, advance.RecipientID,
			advance.AmountPerSenderCents, advance.Policy, advance.Note, advance.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert advance: %w", err)
		}

		for _, senderID := range advance.SenderIDs {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO advance_senders (advance_id, member_id) VALUES (?, ?)",
				advance.ID, senderID,
			)
			if err != nil {
				return fmt.Errorf("failed to insert advance sender: %w", err)
			}
		}
		return nil
	})
}

// DeleteAdvance removes an advance; sender legs cascade.
func (s *SQLiteStore) DeleteAdvance(ctx context.Context, advanceID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM advances WHERE id = ?", advanceID)
	if err != nil {
		return fmt.Errorf("failed to delete advance: %w", err)
	}
	return checkFound(res, "advance", advanceID)
}

// ListAdvances returns all advances of a group with their senders.
func (s *SQLiteStore) ListAdvances(ctx context.Context, groupID string) ([]*models.Advance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, recipient_id, amount_per_sender_cents, policy, note, created_at
		 FROM advances WHERE group_id = ? ORDER BY created_at, id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list advances: %w", err)
	}
	defer rows.Close()

	var advances []*models.Advance
	byID := make(map[string]*models.Advance)
	for rows.Next() {
		advance := &models.Advance{}
		if err := rows.Scan(&advance.ID, &advance.GroupID, &advance.RecipientID,
			&advance.AmountPerSenderCents, &advance.Policy, &advance.Note, &advance.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan advance: %w", err)
		}
		advances = append(advances, advance)
		byID[advance.ID] = advance
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate advances: %w", err)
	}

	senderRows, err := s.db.QueryContext(ctx,
		`SELECT a.advance_id, a.member_id
		 FROM advance_senders a JOIN advances adv ON adv.id = a.advance_id
		 WHERE adv.group_id = ? ORDER BY a.advance_id, a.member_id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list advance senders: %w", err)
	}
	defer senderRows.Close()

	for senderRows.Next() {
		var advanceID, memberID string
		if err := senderRows.Scan(&advanceID, &memberID); err != nil {
			return nil, fmt.Errorf("failed to scan advance sender: %w", err)
		}
		if advance, ok := byID[advanceID]; ok {
			advance.SenderIDs = append(advance.SenderIDs, memberID)
		}
	}
	if err := senderRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate advance senders: %w", err)
	}
	return advances, nil
}

// CreateDirectPayment persists a direct payment.
func (s *SQLiteStore) CreateDirectPayment(ctx context.Context, payment *models.DirectPayment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if payment.CreatedAt == 0 {
		payment.CreatedAt = now
	}
	if payment.Date == 0 {
		payment.Date = now
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO direct_payments (id, group_id, from_id, to_id, amount_cents, note, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID, payment.GroupID, payment.FromID, payment.ToID,
		payment.AmountCents, payment.Note, payment.Date, payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert direct payment: %w", err)
	}
	return nil
}

// DeleteDirectPayment removes a direct payment.
func (s *SQLiteStore) DeleteDirectPayment(ctx context.Context, paymentID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM direct_payments WHERE id = ?", paymentID)
	if err != nil {
		return fmt.Errorf("failed to delete direct payment: %w", err)
	}
	return checkFound(res, "direct payment", paymentID)
}

// ListDirectPayments returns all direct payments of a group.
func (s *SQLiteStore) ListDirectPayments(ctx context.Context, groupID string) ([]*models.DirectPayment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, from_id, to_id, amount_cents, note, date, created_at
		 FROM direct_payments WHERE group_id = ? ORDER BY date, id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list direct payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.DirectPayment
	for rows.Next() {
		payment := &models.DirectPayment{}
		if err := rows.Scan(&payment.ID, &payment.GroupID, &payment.FromID, &payment.ToID,
			&payment.AmountCents, &payment.Note, &payment.Date, &payment.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan direct payment: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate direct payments: %w", err)
	}
	return payments, nil
}
