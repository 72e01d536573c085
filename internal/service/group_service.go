package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/tally/internal/models"
	"github.com/mmynk/tally/internal/storage"
)

// GroupService manages groups and their rosters.
type GroupService struct {
	store storage.Store
}

// NewGroupService creates a GroupService with the given storage backend.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{store: store}
}

// CreateGroup creates a new, empty group.
func (s *GroupService) CreateGroup(ctx context.Context, name string) (*models.Group, error) {
	if name == "" {
		return nil, fmt.Errorf("group name required")
	}
	group := &models.Group{Name: name}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, err
	}
	slog.Info("group created", "group_id", group.ID, "name", group.Name)
	return group, nil
}

// GetGroup retrieves a group by ID.
func (s *GroupService) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return s.store.GetGroup(ctx, groupID)
}

// AddMember adds a user or contact to a group. Weight defaults to 1.
func (s *GroupService) AddMember(ctx context.Context, groupID, name string, weight int, contact bool) (*models.Member, error) {
	if name == "" {
		return nil, fmt.Errorf("member name required")
	}
	if weight < 0 {
		return nil, fmt.Errorf("weight must not be negative")
	}
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}

	member := &models.Member{
		GroupID: groupID,
		Name:    name,
		Weight:  weight,
		Contact: contact,
		Active:  true,
	}
	if err := s.store.AddMember(ctx, member); err != nil {
		slog.Error("AddMember failed", "group_id", groupID, "error", err)
		return nil, err
	}
	slog.Info("member added", "group_id", groupID, "member_id", member.ID, "weight", member.Weight)
	return member, nil
}

// ListMembers returns a group's roster.
func (s *GroupService) ListMembers(ctx context.Context, groupID string) ([]*models.Member, error) {
	return s.store.ListMembers(ctx, groupID)
}

// SetMemberWeight updates a member's split weight. Existing weighted splits
// drift as a result; the auditor picks them up on its next pass.
func (s *GroupService) SetMemberWeight(ctx context.Context, memberID string, weight int) error {
	if weight < 0 {
		return fmt.Errorf("weight must not be negative")
	}
	if err := s.store.SetMemberWeight(ctx, memberID, weight); err != nil {
		return err
	}
	slog.Info("member weight updated", "member_id", memberID, "weight", weight)
	return nil
}

// RemoveMember deactivates a member. Their historical splits and payments
// remain in the ledger.
func (s *GroupService) RemoveMember(ctx context.Context, memberID string) error {
	return s.store.RemoveMember(ctx, memberID)
}
