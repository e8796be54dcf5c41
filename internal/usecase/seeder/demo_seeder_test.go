package seeder

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/billsplit-backend/internal/adapter/repository/memory"
	"github.com/simaogato/billsplit-backend/internal/domain"
	"github.com/simaogato/billsplit-backend/internal/usecase/settlement"
)

// MockUserRepository stubs the user lookups the seeder performs
type MockUserRepository struct {
	mock.Mock
	domain.UserRepository
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func TestDemoSeeder_SeedsSettleableLedger(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seeder := NewDemoSeeder(store.Users(), store.Groups(), store.Expenses())

	require.NoError(t, seeder.Seed(ctx))

	group, err := store.Groups().GetByID(ctx, DemoGroup)
	require.NoError(t, err)
	assert.Equal(t, domain.NewMemberSet(DemoAlice, DemoBob, DemoCarol).Sorted(), group.Members)

	result, err := settlement.NewSettlementService(store.Groups(), store.Expenses(), store.Users(), nil).Settle(ctx, DemoGroup)
	require.NoError(t, err)

	// Dinner: alice +60, bob -30, carol -30. Cabin: alice -90, bob +110, carol -20
	assert.True(t, result.Balances[DemoAlice].Equal(decimal.NewFromInt(-30)))
	assert.True(t, result.Balances[DemoBob].Equal(decimal.NewFromInt(80)))
	assert.True(t, result.Balances[DemoCarol].Equal(decimal.NewFromInt(-50)))

	require.Len(t, result.Transactions, 2)
	assert.Equal(t, DemoCarol, result.Transactions[0].PayerID)
	assert.Equal(t, DemoBob, result.Transactions[0].ReceiverID)
	assert.True(t, result.Transactions[0].Amount.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "carol", result.Transactions[0].PayerName)
	assert.Equal(t, DemoAlice, result.Transactions[1].PayerID)
	assert.True(t, result.Transactions[1].Amount.Equal(decimal.NewFromInt(30)))
	assert.Empty(t, result.Anomalies)
}

func TestDemoSeeder_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seeder := NewDemoSeeder(store.Users(), store.Groups(), store.Expenses())

	require.NoError(t, seeder.Seed(ctx))
	require.NoError(t, seeder.Seed(ctx))

	expenses, err := store.Expenses().GetExpensesForGroup(ctx, DemoGroup)
	require.NoError(t, err)
	assert.Len(t, expenses, 2)
}

func TestDemoSeeder_KeepsExistingRecords(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seeder := NewDemoSeeder(store.Users(), store.Groups(), store.Expenses())
	require.NoError(t, seeder.Seed(ctx))

	// A member leaving after seeding is not undone by the next run
	_, err := store.Groups().RemoveMember(ctx, DemoGroup, DemoCarol)
	require.NoError(t, err)
	require.NoError(t, seeder.Seed(ctx))

	members, err := store.Groups().GetGroupMembers(ctx, DemoGroup)
	require.NoError(t, err)
	assert.False(t, members.Contains(DemoCarol))
}

func TestDemoSeeder_PropagatesRepositoryErrors(t *testing.T) {
	users := new(MockUserRepository)
	boom := errors.New("connection refused")
	users.On("GetByID", mock.Anything, DemoAlice).Return(nil, boom)

	store := memory.NewStore()
	seeder := NewDemoSeeder(users, store.Groups(), store.Expenses())

	err := seeder.Seed(context.Background())
	assert.ErrorIs(t, err, boom)
	users.AssertExpectations(t)
}
