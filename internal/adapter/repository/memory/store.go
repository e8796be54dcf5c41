package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/simaogato/billsplit-backend/internal/domain"
)

// Store is an in-memory backing store for users, groups and expenses.
// It is safe for concurrent use. Records are cloned on the way in and out.
type Store struct {
	mu sync.RWMutex

	users       map[string]domain.User
	userByEmail map[string]string
	groups      map[string]domain.Group
	members     map[string]domain.MemberSet
	expenses    map[string]domain.Expense
}

func NewStore() *Store {
	return &Store{
		users:       make(map[string]domain.User),
		userByEmail: make(map[string]string),
		groups:      make(map[string]domain.Group),
		members:     make(map[string]domain.MemberSet),
		expenses:    make(map[string]domain.Expense),
	}
}

// Users returns the user repository view of the store
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// Groups returns the group repository view of the store
func (s *Store) Groups() *GroupRepo { return &GroupRepo{s: s} }

// Expenses returns the expense repository view of the store
func (s *Store) Expenses() *ExpenseRepo { return &ExpenseRepo{s: s} }

// UserRepo implements domain.UserRepository
type UserRepo struct{ s *Store }

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; ok {
		return domain.ErrAlreadyExists
	}
	if _, ok := r.s.userByEmail[user.Email]; ok {
		return domain.ErrAlreadyExists
	}
	r.s.users[user.ID] = *user
	r.s.userByEmail[user.Email] = user.ID
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	_ = ctx
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

// GroupRepo implements domain.GroupRepository
type GroupRepo struct{ s *Store }

func (r *GroupRepo) Create(ctx context.Context, group *domain.Group) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.groups[group.ID]; ok {
		return domain.ErrAlreadyExists
	}
	stored := *group
	stored.Members = nil
	r.s.groups[group.ID] = stored
	r.s.members[group.ID] = domain.NewMemberSet(group.Members...)
	return nil
}

func (r *GroupRepo) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	_ = ctx
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	g, ok := r.s.groups[id]
	if !ok {
		return nil, domain.ErrGroupNotFound
	}
	g.Members = r.s.members[id].Sorted()
	return &g, nil
}

func (r *GroupRepo) GetGroupMembers(ctx context.Context, groupID string) (domain.MemberSet, error) {
	_ = ctx
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if _, ok := r.s.groups[groupID]; !ok {
		return nil, domain.ErrGroupNotFound
	}
	return domain.NewMemberSet(r.s.members[groupID].Sorted()...), nil
}

func (r *GroupRepo) ListForUser(ctx context.Context, userID string) ([]*domain.Group, error) {
	_ = ctx
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Group, 0)
	for id, g := range r.s.groups {
		if !r.s.members[id].Contains(userID) {
			continue
		}
		g.Members = r.s.members[id].Sorted()
		out = append(out, &g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *GroupRepo) Update(ctx context.Context, group *domain.Group) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.groups[group.ID]
	if !ok {
		return domain.ErrGroupNotFound
	}
	existing.Name = group.Name
	existing.Description = group.Description
	r.s.groups[group.ID] = existing
	return nil
}

func (r *GroupRepo) Delete(ctx context.Context, id string) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.groups[id]; !ok {
		return domain.ErrGroupNotFound
	}
	delete(r.s.groups, id)
	delete(r.s.members, id)
	for eid, e := range r.s.expenses {
		if e.GroupID == id {
			delete(r.s.expenses, eid)
		}
	}
	return nil
}

func (r *GroupRepo) AddMember(ctx context.Context, groupID, userID string) (bool, error) {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.groups[groupID]; !ok {
		return false, domain.ErrGroupNotFound
	}
	set := r.s.members[groupID]
	if set.Contains(userID) {
		return false, nil
	}
	set[userID] = struct{}{}
	return true, nil
}

func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, userID string) (bool, error) {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.groups[groupID]; !ok {
		return false, domain.ErrGroupNotFound
	}
	set := r.s.members[groupID]
	if !set.Contains(userID) {
		return false, nil
	}
	delete(set, userID)
	return true, nil
}

// ExpenseRepo implements domain.ExpenseRepository
type ExpenseRepo struct{ s *Store }

func (r *ExpenseRepo) Create(ctx context.Context, expense *domain.Expense) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.groups[expense.GroupID]; !ok {
		return domain.ErrGroupNotFound
	}
	if _, ok := r.s.expenses[expense.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.s.expenses[expense.ID] = expense.Clone()
	return nil
}

func (r *ExpenseRepo) GetByID(ctx context.Context, id string) (*domain.Expense, error) {
	_ = ctx
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.expenses[id]
	if !ok {
		return nil, domain.ErrExpenseNotFound
	}
	out := e.Clone()
	return &out, nil
}

func (r *ExpenseRepo) GetExpensesForGroup(ctx context.Context, groupID string) ([]domain.Expense, error) {
	_ = ctx
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Expense, 0)
	for _, e := range r.s.expenses {
		if e.GroupID == groupID {
			out = append(out, e.Clone())
		}
	}
	sortExpenses(out)
	return out, nil
}

func (r *ExpenseRepo) ListForUser(ctx context.Context, userID string) ([]domain.Expense, error) {
	_ = ctx
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Expense, 0)
	for _, e := range r.s.expenses {
		if e.Involves(userID) {
			out = append(out, e.Clone())
		}
	}
	sortExpenses(out)
	return out, nil
}

func (r *ExpenseRepo) Update(ctx context.Context, expense *domain.Expense) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.expenses[expense.ID]
	if !ok {
		return domain.ErrExpenseNotFound
	}
	updated := expense.Clone()
	updated.GroupID = existing.GroupID
	updated.CreatedAt = existing.CreatedAt
	r.s.expenses[expense.ID] = updated
	return nil
}

func (r *ExpenseRepo) Delete(ctx context.Context, id string) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.expenses[id]; !ok {
		return domain.ErrExpenseNotFound
	}
	delete(r.s.expenses, id)
	return nil
}

// sortExpenses orders expenses by creation time, then ID
func sortExpenses(expenses []domain.Expense) {
	sort.Slice(expenses, func(i, j int) bool {
		if !expenses[i].CreatedAt.Equal(expenses[j].CreatedAt) {
			return expenses[i].CreatedAt.Before(expenses[j].CreatedAt)
		}
		return expenses[i].ID < expenses[j].ID
	})
}
