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

// CreateGroup persists a new group.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO groups (id, name, created_at) VALUES (?, ?, ?)",
		group.ID, group.Name, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM groups WHERE id = ?",
		groupID,
	).Scan(&group.ID, &group.Name, &group.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// ListGroupIDs returns the IDs of all groups.
func (s *SQLiteStore) ListGroupIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM groups ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return ids, nil
}

// AddMember persists a new group member.
func (s *SQLiteStore) AddMember(ctx context.Context, member *models.Member) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.CreatedAt == 0 {
		member.CreatedAt = time.Now().Unix()
	}
	if member.Weight == 0 {
		member.Weight = 1
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO members (id, group_id, name, weight, contact, active, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		member.ID, member.GroupID, member.Name, member.Weight, member.Contact, member.Active, member.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// GetMember retrieves a member by ID.
func (s *SQLiteStore) GetMember(ctx context.Context, memberID string) (*models.Member, error) {
	member := &models.Member{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, group_id, name, weight, contact, active, created_at FROM members WHERE id = ?",
		memberID,
	).Scan(&member.ID, &member.GroupID, &member.Name, &member.Weight, &member.Contact, &member.Active, &member.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %s: %w", memberID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

// ListMembers returns all members of a group ordered by ID.
func (s *SQLiteStore) ListMembers(ctx context.Context, groupID string) ([]*models.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, group_id, name, weight, contact, active, created_at FROM members WHERE group_id = ? ORDER BY id",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		member := &models.Member{}
		if err := rows.Scan(&member.ID, &member.GroupID, &member.Name, &member.Weight,
			&member.Contact, &member.Active, &member.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

// SetMemberWeight updates one member's split weight.
func (s *SQLiteStore) SetMemberWeight(ctx context.Context, memberID string, weight int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE members SET weight = ? WHERE id = ?",
		weight, memberID,
	)
	if err != nil {
		return fmt.Errorf("failed to update member weight: %w", err)
	}
	return checkFound(res, "member", memberID)
}

// RemoveMember marks a member inactive.
func (s *SQLiteStore) RemoveMember(ctx context.Context, memberID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE members SET active = 0 WHERE id = ?",
		memberID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return checkFound(res, "member", memberID)
}

// checkFound turns a zero-row update into ErrNotFound.
func checkFound(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}
