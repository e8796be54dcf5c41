package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simaogato/billsplit-backend/internal/domain"
)

// groupRepository implements domain.GroupRepository
type groupRepository struct {
	db *DB
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *DB) domain.GroupRepository {
	return &groupRepository{db: db}
}

// Create creates a group and its initial memberships in a database transaction
func (r *groupRepository) Create(ctx context.Context, group *domain.Group) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	insertGroupQuery := r.db.rebind(`
		INSERT INTO expense_groups (id, name, description, owner_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	_, err = dbTx.ExecContext(ctx, insertGroupQuery,
		group.ID,
		group.Name,
		group.Description,
		group.OwnerID,
		r.db.timeArg(group.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("group %s: %w", group.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert group: %w", err)
	}

	insertMemberQuery := r.db.rebind(`
		INSERT INTO group_members (group_id, user_id)
		VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`)
	for _, userID := range group.Members {
		if _, err := dbTx.ExecContext(ctx, insertMemberQuery, group.ID, userID); err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a group with its current members
func (r *groupRepository) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	query := r.db.rebind(`
		SELECT id, name, description, owner_id, created_at
		FROM expense_groups
		WHERE id = ?
	`)

	var group domain.Group
	var createdAt timestamp
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&group.ID,
		&group.Name,
		&group.Description,
		&group.OwnerID,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	group.CreatedAt = createdAt.Time

	members, err := r.members(ctx, id)
	if err != nil {
		return nil, err
	}
	group.Members = members.Sorted()

	return &group, nil
}

// GetGroupMembers returns the current membership of a group
func (r *groupRepository) GetGroupMembers(ctx context.Context, groupID string) (domain.MemberSet, error) {
	exists, err := r.exists(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrGroupNotFound
	}
	return r.members(ctx, groupID)
}

// ListForUser returns every group the user is a member of, ordered by ID
func (r *groupRepository) ListForUser(ctx context.Context, userID string) ([]*domain.Group, error) {
	groupsQuery := r.db.rebind(`
		SELECT g.id, g.name, g.description, g.owner_id, g.created_at
		FROM expense_groups g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.user_id = ?
		ORDER BY g.id
	`)

	rows, err := r.db.QueryContext(ctx, groupsQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	groups := make([]*domain.Group, 0)
	byID := make(map[string]*domain.Group)
	for rows.Next() {
		var group domain.Group
		var createdAt timestamp
		if err := rows.Scan(&group.ID, &group.Name, &group.Description, &group.OwnerID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		group.CreatedAt = createdAt.Time
		group.Members = []string{}
		groups = append(groups, &group)
		byID[group.ID] = &group
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}

	membersQuery := r.db.rebind(`
		SELECT group_id, user_id
		FROM group_members
		WHERE group_id IN (SELECT group_id FROM group_members WHERE user_id = ?)
		ORDER BY group_id, user_id
	`)
	memberRows, err := r.db.QueryContext(ctx, membersQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var groupID, memberID string
		if err := memberRows.Scan(&groupID, &memberID); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		if g, ok := byID[groupID]; ok {
			g.Members = append(g.Members, memberID)
		}
	}
	if err := memberRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group members: %w", err)
	}

	return groups, nil
}

// Update persists the name and description of a group
func (r *groupRepository) Update(ctx context.Context, group *domain.Group) error {
	query := r.db.rebind(`
		UPDATE expense_groups
		SET name = ?, description = ?
		WHERE id = ?
	`)

	result, err := r.db.ExecContext(ctx, query, group.Name, group.Description, group.ID)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	return requireAffected(result, domain.ErrGroupNotFound)
}

// Delete removes a group, its memberships and its expenses in a database transaction
func (r *groupRepository) Delete(ctx context.Context, id string) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	cascade := []string{
		`DELETE FROM expense_participants WHERE expense_id IN (SELECT id FROM expenses WHERE group_id = ?)`,
		`DELETE FROM expenses WHERE group_id = ?`,
		`DELETE FROM group_members WHERE group_id = ?`,
	}
	for _, q := range cascade {
		if _, err := dbTx.ExecContext(ctx, r.db.rebind(q), id); err != nil {
			return fmt.Errorf("failed to delete group data: %w", err)
		}
	}

	result, err := dbTx.ExecContext(ctx, r.db.rebind(`DELETE FROM expense_groups WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	if err := requireAffected(result, domain.ErrGroupNotFound); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// AddMember adds a user to a group, returning false if they were already a member
func (r *groupRepository) AddMember(ctx context.Context, groupID, userID string) (bool, error) {
	exists, err := r.exists(ctx, groupID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, domain.ErrGroupNotFound
	}

	query := r.db.rebind(`
		INSERT INTO group_members (group_id, user_id)
		VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`)
	result, err := r.db.ExecContext(ctx, query, groupID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to add group member: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// RemoveMember removes a user from a group, returning false if they were not a member
func (r *groupRepository) RemoveMember(ctx context.Context, groupID, userID string) (bool, error) {
	exists, err := r.exists(ctx, groupID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, domain.ErrGroupNotFound
	}

	query := r.db.rebind(`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`)
	result, err := r.db.ExecContext(ctx, query, groupID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove group member: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *groupRepository) exists(ctx context.Context, groupID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, r.db.rebind(`SELECT 1 FROM expense_groups WHERE id = ?`), groupID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check group: %w", err)
	}
	return true, nil
}

func (r *groupRepository) members(ctx context.Context, groupID string) (domain.MemberSet, error) {
	rows, err := r.db.QueryContext(ctx, r.db.rebind(`SELECT user_id FROM group_members WHERE group_id = ?`), groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	members := domain.NewMemberSet()
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members[userID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group members: %w", err)
	}

	return members, nil
}

// requireAffected returns notFound when the statement touched no rows
func requireAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
