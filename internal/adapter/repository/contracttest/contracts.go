package contracttest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/billsplit-backend/internal/domain"
)

// Repos bundles the repositories of one backing store
type Repos struct {
	Users    domain.UserRepository
	Groups   domain.GroupRepository
	Expenses domain.ExpenseRepository
}

type CleanupFunc = func()

type ReposFactory func(t *testing.T) (Repos, CleanupFunc)

func open(t *testing.T, newRepos ReposFactory) Repos {
	t.Helper()
	repos, cleanup := newRepos(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}
	return repos
}

func createUsers(t *testing.T, repos Repos, names ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(names))
	for _, name := range names {
		u := &domain.User{
			ID:        uuid.NewString(),
			Username:  name,
			Email:     name + "-" + uuid.NewString()[:8] + "@example.com",
			CreatedAt: time.Unix(1000, 0).UTC(),
		}
		require.NoError(t, repos.Users.Create(context.Background(), u))
		ids = append(ids, u.ID)
	}
	return ids
}

func createGroup(t *testing.T, repos Repos, owner string, members ...string) *domain.Group {
	t.Helper()
	g := &domain.Group{
		ID:        uuid.NewString(),
		Name:      "Trip",
		OwnerID:   owner,
		Members:   domain.NewMemberSet(append([]string{owner}, members...)...).Sorted(),
		CreatedAt: time.Unix(2000, 0).UTC(),
	}
	require.NoError(t, repos.Groups.Create(context.Background(), g))
	return g
}

func share(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

// RunUserRepo checks the UserRepository contract
func RunUserRepo(t *testing.T, newRepos ReposFactory) {
	t.Helper()
	ctx := context.Background()
	repos := open(t, newRepos)

	created := time.Unix(1000, 0).UTC()
	u := &domain.User{ID: uuid.NewString(), Username: "alice", Email: "alice@example.com", CreatedAt: created}
	require.NoError(t, repos.Users.Create(ctx, u))

	got, err := repos.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.True(t, got.CreatedAt.Equal(created))

	dupEmail := &domain.User{ID: uuid.NewString(), Username: "alice2", Email: "alice@example.com", CreatedAt: created}
	assert.ErrorIs(t, repos.Users.Create(ctx, dupEmail), domain.ErrAlreadyExists)

	dupID := &domain.User{ID: u.ID, Username: "alice3", Email: "alice3@example.com", CreatedAt: created}
	assert.ErrorIs(t, repos.Users.Create(ctx, dupID), domain.ErrAlreadyExists)

	_, err = repos.Users.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

// RunGroupRepo checks the GroupRepository contract
func RunGroupRepo(t *testing.T, newRepos ReposFactory) {
	t.Helper()
	ctx := context.Background()
	repos := open(t, newRepos)

	ids := createUsers(t, repos, "alice", "bob", "carol")
	alice, bob, carol := ids[0], ids[1], ids[2]

	g := createGroup(t, repos, alice, bob)

	t.Run("get with members", func(t *testing.T) {
		got, err := repos.Groups.GetByID(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, "Trip", got.Name)
		assert.Equal(t, alice, got.OwnerID)
		assert.Equal(t, domain.NewMemberSet(alice, bob).Sorted(), got.Members)
		assert.True(t, got.CreatedAt.Equal(g.CreatedAt))

		_, err = repos.Groups.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrGroupNotFound)
	})

	t.Run("duplicate ID", func(t *testing.T) {
		dup := *g
		assert.ErrorIs(t, repos.Groups.Create(ctx, &dup), domain.ErrAlreadyExists)
	})

	t.Run("membership changes are visible", func(t *testing.T) {
		added, err := repos.Groups.AddMember(ctx, g.ID, carol)
		require.NoError(t, err)
		assert.True(t, added)

		added, err = repos.Groups.AddMember(ctx, g.ID, carol)
		require.NoError(t, err)
		assert.False(t, added)

		members, err := repos.Groups.GetGroupMembers(ctx, g.ID)
		require.NoError(t, err)
		assert.True(t, members.Contains(carol))

		removed, err := repos.Groups.RemoveMember(ctx, g.ID, bob)
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = repos.Groups.RemoveMember(ctx, g.ID, bob)
		require.NoError(t, err)
		assert.False(t, removed)

		members, err = repos.Groups.GetGroupMembers(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.NewMemberSet(alice, carol), members)

		_, err = repos.Groups.GetGroupMembers(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrGroupNotFound)
		_, err = repos.Groups.AddMember(ctx, uuid.NewString(), alice)
		assert.ErrorIs(t, err, domain.ErrGroupNotFound)
	})

	t.Run("list for user", func(t *testing.T) {
		other := createGroup(t, repos, carol)

		aliceGroups, err := repos.Groups.ListForUser(ctx, alice)
		require.NoError(t, err)
		require.Len(t, aliceGroups, 1)
		assert.Equal(t, g.ID, aliceGroups[0].ID)

		carolGroups, err := repos.Groups.ListForUser(ctx, carol)
		require.NoError(t, err)
		require.Len(t, carolGroups, 2)
		assert.Less(t, carolGroups[0].ID, carolGroups[1].ID)
		assert.ElementsMatch(t, []string{g.ID, other.ID}, []string{carolGroups[0].ID, carolGroups[1].ID})

		none, err := repos.Groups.ListForUser(ctx, bob)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("update descriptive fields", func(t *testing.T) {
		changed := *g
		changed.Name = "Summer trip"
		changed.Description = "Beach"
		require.NoError(t, repos.Groups.Update(ctx, &changed))

		got, err := repos.Groups.GetByID(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, "Summer trip", got.Name)
		assert.Equal(t, "Beach", got.Description)

		missing := changed
		missing.ID = uuid.NewString()
		assert.ErrorIs(t, repos.Groups.Update(ctx, &missing), domain.ErrGroupNotFound)
	})

	t.Run("delete cascades expenses", func(t *testing.T) {
		doomed := createGroup(t, repos, alice)
		e := &domain.Expense{
			ID: uuid.NewString(), GroupID: doomed.ID, PayerID: alice, Amount: decimal.NewFromInt(10),
			Participants: []domain.Participant{{UserID: alice}}, CreatedAt: time.Unix(3000, 0).UTC(),
		}
		require.NoError(t, repos.Expenses.Create(ctx, e))

		require.NoError(t, repos.Groups.Delete(ctx, doomed.ID))

		_, err := repos.Groups.GetByID(ctx, doomed.ID)
		assert.ErrorIs(t, err, domain.ErrGroupNotFound)
		_, err = repos.Expenses.GetByID(ctx, e.ID)
		assert.ErrorIs(t, err, domain.ErrExpenseNotFound)

		assert.ErrorIs(t, repos.Groups.Delete(ctx, doomed.ID), domain.ErrGroupNotFound)
	})
}

// RunExpenseRepo checks the ExpenseRepository contract
func RunExpenseRepo(t *testing.T, newRepos ReposFactory) {
	t.Helper()
	ctx := context.Background()
	repos := open(t, newRepos)

	ids := createUsers(t, repos, "alice", "bob", "carol")
	alice, bob, carol := ids[0], ids[1], ids[2]
	g := createGroup(t, repos, alice, bob, carol)

	dinner := &domain.Expense{
		ID:          uuid.NewString(),
		GroupID:     g.ID,
		Description: "Dinner",
		PayerID:     alice,
		Amount:      decimal.RequireFromString("100.10"),
		Participants: []domain.Participant{
			{UserID: carol},
			{UserID: alice},
			{UserID: bob, ShareAmount: share("12.345")},
		},
		CreatedAt: time.Unix(3000, 0).UTC(),
	}
	taxi := &domain.Expense{
		ID:           uuid.NewString(),
		GroupID:      g.ID,
		Description:  "Taxi",
		PayerID:      bob,
		Amount:       decimal.NewFromInt(30),
		Participants: []domain.Participant{{UserID: bob}, {UserID: alice}},
		CreatedAt:    time.Unix(4000, 0).UTC(),
	}

	t.Run("create and get", func(t *testing.T) {
		require.NoError(t, repos.Expenses.Create(ctx, dinner))
		require.NoError(t, repos.Expenses.Create(ctx, taxi))

		got, err := repos.Expenses.GetByID(ctx, dinner.ID)
		require.NoError(t, err)
		assert.Equal(t, g.ID, got.GroupID)
		assert.Equal(t, "Dinner", got.Description)
		assert.Equal(t, alice, got.PayerID)
		assert.True(t, got.Amount.Equal(dinner.Amount))
		assert.True(t, got.CreatedAt.Equal(dinner.CreatedAt))

		require.Len(t, got.Participants, 3)
		assert.Equal(t, carol, got.Participants[0].UserID, "participant order is preserved")
		assert.Nil(t, got.Participants[0].ShareAmount)
		assert.Equal(t, bob, got.Participants[2].UserID)
		require.NotNil(t, got.Participants[2].ShareAmount)
		assert.True(t, got.Participants[2].ShareAmount.Equal(decimal.RequireFromString("12.345")))

		_, err = repos.Expenses.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrExpenseNotFound)
	})

	t.Run("unknown group", func(t *testing.T) {
		orphan := *taxi
		orphan.ID = uuid.NewString()
		orphan.GroupID = uuid.NewString()
		assert.ErrorIs(t, repos.Expenses.Create(ctx, &orphan), domain.ErrGroupNotFound)
	})

	t.Run("list for group and user", func(t *testing.T) {
		groupExpenses, err := repos.Expenses.GetExpensesForGroup(ctx, g.ID)
		require.NoError(t, err)
		require.Len(t, groupExpenses, 2)
		assert.Equal(t, dinner.ID, groupExpenses[0].ID)
		assert.Equal(t, taxi.ID, groupExpenses[1].ID)
		assert.Len(t, groupExpenses[0].Participants, 3)

		carolExpenses, err := repos.Expenses.ListForUser(ctx, carol)
		require.NoError(t, err)
		require.Len(t, carolExpenses, 1)
		assert.Equal(t, dinner.ID, carolExpenses[0].ID)

		bobExpenses, err := repos.Expenses.ListForUser(ctx, bob)
		require.NoError(t, err)
		assert.Len(t, bobExpenses, 2)

		empty, err := repos.Expenses.GetExpensesForGroup(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("update replaces participants", func(t *testing.T) {
		changed := taxi.Clone()
		changed.Amount = decimal.NewFromInt(45)
		changed.Description = "Taxi home"
		changed.Participants = []domain.Participant{{UserID: carol, ShareAmount: share("5")}}
		require.NoError(t, repos.Expenses.Update(ctx, &changed))

		got, err := repos.Expenses.GetByID(ctx, taxi.ID)
		require.NoError(t, err)
		assert.Equal(t, "Taxi home", got.Description)
		assert.True(t, got.Amount.Equal(decimal.NewFromInt(45)))
		require.Len(t, got.Participants, 1)
		assert.Equal(t, carol, got.Participants[0].UserID)

		missing := changed
		missing.ID = uuid.NewString()
		assert.ErrorIs(t, repos.Expenses.Update(ctx, &missing), domain.ErrExpenseNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repos.Expenses.Delete(ctx, dinner.ID))

		_, err := repos.Expenses.GetByID(ctx, dinner.ID)
		assert.ErrorIs(t, err, domain.ErrExpenseNotFound)
		assert.ErrorIs(t, repos.Expenses.Delete(ctx, dinner.ID), domain.ErrExpenseNotFound)

		remaining, err := repos.Expenses.GetExpensesForGroup(ctx, g.ID)
		require.NoError(t, err)
		assert.Len(t, remaining, 1)
	})
}
