package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/simaogato/billsplit-backend/internal/domain"
	"github.com/simaogato/billsplit-backend/internal/logging"
	"github.com/simaogato/billsplit-backend/internal/usecase/balance"
	"go.uber.org/zap"
)

// SettlementService computes balances and settlement plans for groups
// It holds no state besides its collaborators and is safe for concurrent use
type SettlementService struct {
	GroupRepo   domain.GroupRepository
	ExpenseRepo domain.ExpenseRepository
	UserRepo    domain.UserRepository
	Logger      *zap.Logger
}

// NewSettlementService creates a new SettlementService instance
func NewSettlementService(
	groupRepo domain.GroupRepository,
	expenseRepo domain.ExpenseRepository,
	userRepo domain.UserRepository,
	logger *zap.Logger,
) *SettlementService {
	return &SettlementService{
		GroupRepo:   groupRepo,
		ExpenseRepo: expenseRepo,
		UserRepo:    userRepo,
		Logger:      logging.Component(logger, "settlement"),
	}
}

// Settle computes the balances of a group and the payments that settle them
// Logic:
//  1. Read the current membership (ErrGroupNotFound if the group is absent)
//  2. An empty group settles to empty balances and no transactions
//  3. Read the group's expenses and aggregate them into balances
//  4. Log every anomaly found while aggregating
//  5. Check the balances sum to zero (ErrComputationInvariant otherwise)
//  6. Run the settlement engine and resolve display names
//
// Nothing is persisted.
func (s *SettlementService) Settle(ctx context.Context, groupID string) (*domain.SettlementResult, error) {
	// 1. Read membership
	members, err := s.GroupRepo.GetGroupMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get members of group %s: %w", groupID, err)
	}

	// 2. Empty group
	if len(members) == 0 {
		return &domain.SettlementResult{
			GroupID:      groupID,
			Balances:     domain.BalanceMap{},
			Transactions: []domain.Transaction{},
		}, nil
	}

	// 3. Aggregate
	expenses, err := s.ExpenseRepo.GetExpensesForGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses of group %s: %w", groupID, err)
	}
	agg := balance.Aggregate(members, expenses)

	// 4. Anomalies degrade to diagnostics
	for _, a := range agg.Anomalies {
		s.Logger.Warn("ledger anomaly",
			zap.String(logging.FieldGroupID, groupID),
			zap.String(logging.FieldAnomaly, string(a.Kind)),
			zap.String(logging.FieldExpenseID, a.ExpenseID),
			zap.String(logging.FieldUserID, a.UserID),
			zap.String("detail", a.Detail),
		)
	}

	// 5. Accounting identity
	if err := agg.Balances.Validate(); err != nil {
		s.Logger.Error("balances do not sum to zero",
			zap.String(logging.FieldGroupID, groupID),
			zap.String("sum", agg.Balances.Sum().String()),
		)
		return nil, fmt.Errorf("group %s: %w", groupID, err)
	}

	// 6. Settle
	transactions := Settle(agg.Balances)
	s.decorate(ctx, transactions)

	return &domain.SettlementResult{
		GroupID:      groupID,
		Balances:     agg.Balances,
		Transactions: transactions,
		Anomalies:    agg.Anomalies,
	}, nil
}

// decorate fills in payer and receiver display names, looking each user up once
func (s *SettlementService) decorate(ctx context.Context, transactions []domain.Transaction) {
	names := make(map[string]string)
	name := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		user, err := s.UserRepo.GetByID(ctx, id)
		if err != nil {
			if !errors.Is(err, domain.ErrUserNotFound) {
				s.Logger.Warn("failed to resolve display name", zap.String(logging.FieldUserID, id), zap.Error(err))
			}
			user = nil
		}
		n := domain.DisplayName(user, id)
		names[id] = n
		return n
	}

	for i := range transactions {
		transactions[i].PayerName = name(transactions[i].PayerID)
		transactions[i].ReceiverName = name(transactions[i].ReceiverID)
	}
}
