package group

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/billsplit-backend/internal/domain"
	"github.com/simaogato/billsplit-backend/internal/logging"
	"go.uber.org/zap"
)

// CreateGroupInput represents the input for creating a group
type CreateGroupInput struct {
	Name        string
	Description string
	OwnerID     string
	MemberIDs   []string // Optional initial members besides the owner
}

// GroupService handles group and membership operations
type GroupService struct {
	GroupRepo domain.GroupRepository
	UserRepo  domain.UserRepository
	Publisher domain.EventPublisher
	Logger    *zap.Logger

	now func() time.Time
}

// NewGroupService creates a new GroupService instance
func NewGroupService(
	groupRepo domain.GroupRepository,
	userRepo domain.UserRepository,
	publisher domain.EventPublisher,
	logger *zap.Logger,
) *GroupService {
	return &GroupService{
		GroupRepo: groupRepo,
		UserRepo:  userRepo,
		Publisher: publisher,
		Logger:    logging.Component(logger, "group"),
		now:       time.Now,
	}
}

// CreateGroup creates a group owned by an existing user
// Logic:
//  1. Owner must exist
//  2. Members are the owner plus every initial member that exists
//     Unknown initial members are skipped with a warning
//  3. Validate and save using GroupRepo.Create
func (s *GroupService) CreateGroup(ctx context.Context, input CreateGroupInput) (*domain.Group, error) {
	// 1. Owner
	if _, err := s.UserRepo.GetByID(ctx, input.OwnerID); err != nil {
		return nil, fmt.Errorf("group owner %s: %w", input.OwnerID, err)
	}

	// 2. Members
	members := domain.NewMemberSet(input.OwnerID)
	for _, id := range input.MemberIDs {
		if members.Contains(id) {
			continue
		}
		if _, err := s.UserRepo.GetByID(ctx, id); err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				s.Logger.Warn("skipping unknown initial member", zap.String(logging.FieldUserID, id))
				continue
			}
			return nil, err
		}
		members[id] = struct{}{}
	}

	// 3. Validate and save
	group := &domain.Group{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		OwnerID:     input.OwnerID,
		Members:     members.Sorted(),
		CreatedAt:   s.now().UTC(),
	}
	if err := group.Validate(); err != nil {
		return nil, err
	}
	if err := s.GroupRepo.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	return group, nil
}

// GetGroup retrieves a group with its members
func (s *GroupService) GetGroup(ctx context.Context, id string) (*domain.Group, error) {
	return s.GroupRepo.GetByID(ctx, id)
}

// ListUserGroups returns every group the user belongs to
func (s *GroupService) ListUserGroups(ctx context.Context, userID string) ([]*domain.Group, error) {
	groups, err := s.GroupRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups of user %s: %w", userID, err)
	}
	return groups, nil
}

// UpdateGroup applies a partial update to a group's name and description
func (s *GroupService) UpdateGroup(ctx context.Context, id string, update domain.GroupUpdate) (*domain.Group, error) {
	current, err := s.GroupRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := current.Apply(update)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	if err := s.GroupRepo.Update(ctx, &merged); err != nil {
		return nil, fmt.Errorf("failed to update group %s: %w", id, err)
	}
	return &merged, nil
}

// DeleteGroup removes a group together with its expenses
func (s *GroupService) DeleteGroup(ctx context.Context, id string) error {
	if err := s.GroupRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, domain.EventGroupDeleted, id, "")
	return nil
}

// AddMember adds an existing user to a group
// Returns false if the user was already a member
func (s *GroupService) AddMember(ctx context.Context, groupID, userID string) (bool, error) {
	if _, err := s.UserRepo.GetByID(ctx, userID); err != nil {
		return false, err
	}
	added, err := s.GroupRepo.AddMember(ctx, groupID, userID)
	if err != nil {
		return false, err
	}
	if added {
		s.publish(ctx, domain.EventGroupMemberAdded, groupID, userID)
	}
	return added, nil
}

// RemoveMember removes a user from a group
// Existing expenses that reference the user are kept and surface as anomalies when settling
// Returns false if the user was not a member
func (s *GroupService) RemoveMember(ctx context.Context, groupID, userID string) (bool, error) {
	removed, err := s.GroupRepo.RemoveMember(ctx, groupID, userID)
	if err != nil {
		return false, err
	}
	if removed {
		s.publish(ctx, domain.EventGroupMemberRemoved, groupID, userID)
	}
	return removed, nil
}

func (s *GroupService) publish(ctx context.Context, eventType domain.EventType, groupID, userID string) {
	if s.Publisher == nil {
		return
	}
	event := domain.LedgerEvent{
		Type:       eventType,
		GroupID:    groupID,
		UserID:     userID,
		OccurredAt: s.now().UTC(),
	}
	if err := s.Publisher.Publish(ctx, event); err != nil {
		s.Logger.Warn("failed to publish ledger event",
			zap.String(logging.FieldEvent, string(eventType)),
			zap.String(logging.FieldGroupID, groupID),
			zap.Error(err),
		)
	}
}
