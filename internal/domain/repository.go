package domain

import (
	"context"
	"time"
)

// UserRepository defines the interface for user persistence operations
type UserRepository interface {
	// Create creates a new user
	// Returns ErrAlreadyExists if the ID or email is taken
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID
	// Returns ErrUserNotFound if absent
	GetByID(ctx context.Context, id string) (*User, error)
}

// GroupRepository defines the interface for group and membership persistence operations
type GroupRepository interface {
	// Create creates a new group together with its initial members
	Create(ctx context.Context, group *Group) error

	// GetByID retrieves a group with its current members
	// Returns ErrGroupNotFound if absent
	GetByID(ctx context.Context, id string) (*Group, error)

	// GetGroupMembers returns the current membership of a group
	// Reflects every membership change committed before the call
	// Returns ErrGroupNotFound if the group does not exist
	GetGroupMembers(ctx context.Context, groupID string) (MemberSet, error)

	// ListForUser returns every group the user is a member of, ordered by ID
	ListForUser(ctx context.Context, userID string) ([]*Group, error)

	// Update persists the descriptive fields of an existing group
	Update(ctx context.Context, group *Group) error

	// Delete removes a group, its memberships and its expenses
	// Returns ErrGroupNotFound if absent
	Delete(ctx context.Context, id string) error

	// AddMember adds a user to a group
	// Returns false if the user was already a member
	AddMember(ctx context.Context, groupID, userID string) (bool, error)

	// RemoveMember removes a user from a group
	// Returns false if the user was not a member
	RemoveMember(ctx context.Context, groupID, userID string) (bool, error)
}

// ExpenseRepository defines the interface for expense persistence operations
type ExpenseRepository interface {
	// Create creates a new expense with its participants
	Create(ctx context.Context, expense *Expense) error

	// GetByID retrieves an expense by ID
	// Returns ErrExpenseNotFound if absent
	GetByID(ctx context.Context, id string) (*Expense, error)

	// GetExpensesForGroup returns every non-deleted expense of a group
	// Order is not significant to the settlement engine
	GetExpensesForGroup(ctx context.Context, groupID string) ([]Expense, error)

	// ListForUser returns every expense the user paid for or participates in
	ListForUser(ctx context.Context, userID string) ([]Expense, error)

	// Update replaces an existing expense
	// Returns ErrExpenseNotFound if absent
	Update(ctx context.Context, expense *Expense) error

	// Delete removes an expense
	// Returns ErrExpenseNotFound if absent
	Delete(ctx context.Context, id string) error
}

// EventType names a ledger event
type EventType string

const (
	EventExpenseCreated     EventType = "expense.created"
	EventExpenseUpdated     EventType = "expense.updated"
	EventExpenseDeleted     EventType = "expense.deleted"
	EventGroupMemberAdded   EventType = "group.member_added"
	EventGroupMemberRemoved EventType = "group.member_removed"
	EventGroupDeleted       EventType = "group.deleted"
)

// LedgerEvent notifies downstream consumers that a group's ledger changed
type LedgerEvent struct {
	Type       EventType `json:"type"`
	GroupID    string    `json:"group_id"`
	ExpenseID  string    `json:"expense_id,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher publishes ledger events
type EventPublisher interface {
	Publish(ctx context.Context, event LedgerEvent) error
}
