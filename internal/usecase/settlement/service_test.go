package settlement

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/simaogato/billsplit-backend/internal/domain"
)

// MockGroupRepository is a mock implementation of GroupRepository for testing
type MockGroupRepository struct {
	mock.Mock
}

func (m *MockGroupRepository) Create(ctx context.Context, group *domain.Group) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *MockGroupRepository) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Group), args.Error(1)
}

func (m *MockGroupRepository) GetGroupMembers(ctx context.Context, groupID string) (domain.MemberSet, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.MemberSet), args.Error(1)
}

func (m *MockGroupRepository) ListForUser(ctx context.Context, userID string) ([]*domain.Group, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Group), args.Error(1)
}

func (m *MockGroupRepository) Update(ctx context.Context, group *domain.Group) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *MockGroupRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGroupRepository) AddMember(ctx context.Context, groupID, userID string) (bool, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGroupRepository) RemoveMember(ctx context.Context, groupID, userID string) (bool, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Bool(0), args.Error(1)
}

// MockExpenseRepository is a mock implementation of ExpenseRepository for testing
type MockExpenseRepository struct {
	mock.Mock
}

func (m *MockExpenseRepository) Create(ctx context.Context, expense *domain.Expense) error {
	args := m.Called(ctx, expense)
	return args.Error(0)
}

func (m *MockExpenseRepository) GetByID(ctx context.Context, id string) (*domain.Expense, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Expense), args.Error(1)
}

func (m *MockExpenseRepository) GetExpensesForGroup(ctx context.Context, groupID string) ([]domain.Expense, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Expense), args.Error(1)
}

func (m *MockExpenseRepository) ListForUser(ctx context.Context, userID string) ([]domain.Expense, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Expense), args.Error(1)
}

func (m *MockExpenseRepository) Update(ctx context.Context, expense *domain.Expense) error {
	args := m.Called(ctx, expense)
	return args.Error(0)
}

func (m *MockExpenseRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockUserRepository is a mock implementation of UserRepository for testing
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func TestSettlementService_Settle_EqualSplit(t *testing.T) {
	ctx := context.Background()
	groupRepo := new(MockGroupRepository)
	expenseRepo := new(MockExpenseRepository)
	userRepo := new(MockUserRepository)

	service := NewSettlementService(groupRepo, expenseRepo, userRepo, nil)

	groupRepo.On("GetGroupMembers", ctx, "g1").Return(domain.NewMemberSet("A", "B", "C"), nil)
	expenseRepo.On("GetExpensesForGroup", ctx, "g1").Return([]domain.Expense{{
		ID: "e1", GroupID: "g1", PayerID: "A", Amount: dec("90"),
		Participants: []domain.Participant{{UserID: "A"}, {UserID: "B"}, {UserID: "C"}},
	}}, nil)
	userRepo.On("GetByID", ctx, "A").Return(&domain.User{ID: "A", Username: "alice"}, nil)
	userRepo.On("GetByID", ctx, "B").Return(&domain.User{ID: "B", Username: "bob"}, nil)
	userRepo.On("GetByID", ctx, "C").Return(nil, domain.ErrUserNotFound)

	result, err := service.Settle(ctx, "g1")

	require.NoError(t, err)
	assert.Equal(t, "g1", result.GroupID)
	assert.True(t, result.Balances["A"].Equal(dec("60")))
	assert.True(t, result.Balances["B"].Equal(dec("-30")))
	assert.True(t, result.Balances["C"].Equal(dec("-30")))

	require.Len(t, result.Transactions, 2)
	assert.Equal(t, domain.Transaction{PayerID: "B", ReceiverID: "A", Amount: result.Transactions[0].Amount, PayerName: "bob", ReceiverName: "alice"}, result.Transactions[0])
	assert.True(t, result.Transactions[0].Amount.Equal(dec("30")))
	assert.Equal(t, "User C", result.Transactions[1].PayerName)
	assert.Empty(t, result.Anomalies)

	// Names are resolved once per user
	userRepo.AssertNumberOfCalls(t, "GetByID", 3)
	groupRepo.AssertExpectations(t)
	expenseRepo.AssertExpectations(t)
}

func TestSettlementService_Settle_GroupNotFound(t *testing.T) {
	ctx := context.Background()
	groupRepo := new(MockGroupRepository)
	expenseRepo := new(MockExpenseRepository)

	service := NewSettlementService(groupRepo, expenseRepo, new(MockUserRepository), nil)

	groupRepo.On("GetGroupMembers", ctx, "missing").Return(nil, domain.ErrGroupNotFound)

	result, err := service.Settle(ctx, "missing")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrGroupNotFound)
	expenseRepo.AssertNotCalled(t, "GetExpensesForGroup", mock.Anything, mock.Anything)
}

func TestSettlementService_Settle_EmptyGroup(t *testing.T) {
	ctx := context.Background()
	groupRepo := new(MockGroupRepository)
	expenseRepo := new(MockExpenseRepository)

	service := NewSettlementService(groupRepo, expenseRepo, new(MockUserRepository), nil)

	groupRepo.On("GetGroupMembers", ctx, "g1").Return(domain.NewMemberSet(), nil)

	result, err := service.Settle(ctx, "g1")

	require.NoError(t, err)
	assert.Empty(t, result.Balances)
	assert.Empty(t, result.Transactions)
	expenseRepo.AssertNotCalled(t, "GetExpensesForGroup", mock.Anything, mock.Anything)
}

func TestSettlementService_Settle_ExpenseReadFails(t *testing.T) {
	ctx := context.Background()
	groupRepo := new(MockGroupRepository)
	expenseRepo := new(MockExpenseRepository)
	dbErr := errors.New("connection reset")

	service := NewSettlementService(groupRepo, expenseRepo, new(MockUserRepository), nil)

	groupRepo.On("GetGroupMembers", ctx, "g1").Return(domain.NewMemberSet("A"), nil)
	expenseRepo.On("GetExpensesForGroup", ctx, "g1").Return(nil, dbErr)

	_, err := service.Settle(ctx, "g1")

	assert.ErrorIs(t, err, dbErr)
}

func TestSettlementService_Settle_LogsAnomalies(t *testing.T) {
	ctx := context.Background()
	groupRepo := new(MockGroupRepository)
	expenseRepo := new(MockExpenseRepository)
	userRepo := new(MockUserRepository)
	core, logs := observer.New(zapcore.WarnLevel)

	service := NewSettlementService(groupRepo, expenseRepo, userRepo, zap.New(core))

	groupRepo.On("GetGroupMembers", ctx, "g1").Return(domain.NewMemberSet("A", "B"), nil)
	expenseRepo.On("GetExpensesForGroup", ctx, "g1").Return([]domain.Expense{{
		ID: "e1", GroupID: "g1", PayerID: "A", Amount: dec("90"),
		Participants: []domain.Participant{{UserID: "A"}, {UserID: "B"}, {UserID: "C"}},
	}}, nil)
	userRepo.On("GetByID", ctx, mock.Anything).Return(nil, domain.ErrUserNotFound)

	result, err := service.Settle(ctx, "g1")

	require.NoError(t, err)
	require.Len(t, result.Anomalies, 1)
	assert.True(t, result.Balances.Sum().IsZero())

	entries := logs.FilterMessage("ledger anomaly").All()
	require.Len(t, entries, 1)
	assert.Equal(t, string(domain.AnomalyStaleParticipant), entries[0].ContextMap()["anomaly"])
	assert.Equal(t, "C", entries[0].ContextMap()["user_id"])
}
