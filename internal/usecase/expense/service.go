package expense

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/billsplit-backend/internal/domain"
	"github.com/simaogato/billsplit-backend/internal/logging"
	"go.uber.org/zap"
)

// AddExpenseInput represents the input for recording an expense
type AddExpenseInput struct {
	GroupID      string
	Description  string
	PayerID      string
	Amount       decimal.Decimal
	Participants []domain.Participant // ShareAmount nil means an equal split of the remainder
}

// Validator admits or rejects an expense candidate before it is written
type Validator interface {
	Validate(ctx context.Context, candidate *domain.Expense) error
}

// ExpenseService handles expense recording operations
type ExpenseService struct {
	GroupRepo   domain.GroupRepository
	ExpenseRepo domain.ExpenseRepository
	Guard       Validator
	Publisher   domain.EventPublisher
	Logger      *zap.Logger

	now func() time.Time
}

// NewExpenseService creates a new ExpenseService instance
func NewExpenseService(
	groupRepo domain.GroupRepository,
	expenseRepo domain.ExpenseRepository,
	guard Validator,
	publisher domain.EventPublisher,
	logger *zap.Logger,
) *ExpenseService {
	return &ExpenseService{
		GroupRepo:   groupRepo,
		ExpenseRepo: expenseRepo,
		Guard:       guard,
		Publisher:   publisher,
		Logger:      logging.Component(logger, "expense"),
		now:         time.Now,
	}
}

// AddExpense records a new expense
// Logic:
//  1. Build the candidate with a fresh ID and timestamp
//  2. Run the guard (structure, group, membership, share overflow)
//  3. Save using ExpenseRepo.Create
//  4. Publish expense.created
func (s *ExpenseService) AddExpense(ctx context.Context, input AddExpenseInput) (*domain.Expense, error) {
	// 1. Candidate
	expense := &domain.Expense{
		ID:           uuid.NewString(),
		GroupID:      input.GroupID,
		Description:  input.Description,
		PayerID:      input.PayerID,
		Amount:       input.Amount,
		Participants: domain.CloneParticipants(input.Participants),
		CreatedAt:    s.now().UTC(),
	}

	// 2. Guard
	if err := s.Guard.Validate(ctx, expense); err != nil {
		return nil, err
	}

	// 3. Save
	if err := s.ExpenseRepo.Create(ctx, expense); err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}

	// 4. Publish
	s.publish(ctx, domain.EventExpenseCreated, expense.GroupID, expense.ID)

	return expense, nil
}

// GetExpense retrieves a single expense
func (s *ExpenseService) GetExpense(ctx context.Context, id string) (*domain.Expense, error) {
	return s.ExpenseRepo.GetByID(ctx, id)
}

// ListGroupExpenses returns every expense of an existing group
func (s *ExpenseService) ListGroupExpenses(ctx context.Context, groupID string) ([]domain.Expense, error) {
	if _, err := s.GroupRepo.GetByID(ctx, groupID); err != nil {
		return nil, err
	}
	expenses, err := s.ExpenseRepo.GetExpensesForGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses of group %s: %w", groupID, err)
	}
	return expenses, nil
}

// ListUserExpenses returns every expense the user paid for or participates in
func (s *ExpenseService) ListUserExpenses(ctx context.Context, userID string) ([]domain.Expense, error) {
	expenses, err := s.ExpenseRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses of user %s: %w", userID, err)
	}
	return expenses, nil
}

// UpdateExpense applies a partial update to an expense
// Logic:
//  1. Fetch the current expense
//  2. Merge the update into a copy (absent fields keep their value)
//  3. Re-run the guard when payer, amount or participants change
//     A description-only change skips it
//  4. Save using ExpenseRepo.Update and publish expense.updated
func (s *ExpenseService) UpdateExpense(ctx context.Context, id string, update domain.ExpenseUpdate) (*domain.Expense, error) {
	// 1. Fetch
	current, err := s.ExpenseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return current, nil
	}

	// 2. Merge
	merged := current.Apply(update)

	// 3. Guard
	if update.TouchesLedger() {
		if err := s.Guard.Validate(ctx, &merged); err != nil {
			return nil, err
		}
	}

	// 4. Save and publish
	if err := s.ExpenseRepo.Update(ctx, &merged); err != nil {
		return nil, fmt.Errorf("failed to update expense %s: %w", id, err)
	}
	s.publish(ctx, domain.EventExpenseUpdated, merged.GroupID, merged.ID)

	return &merged, nil
}

// DeleteExpense removes an expense and publishes expense.deleted
func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) error {
	current, err := s.ExpenseRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.ExpenseRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete expense %s: %w", id, err)
	}
	s.publish(ctx, domain.EventExpenseDeleted, current.GroupID, id)
	return nil
}

// publish sends a ledger event; failures are logged and never fail the write
func (s *ExpenseService) publish(ctx context.Context, eventType domain.EventType, groupID, expenseID string) {
	if s.Publisher == nil {
		return
	}
	event := domain.LedgerEvent{
		Type:       eventType,
		GroupID:    groupID,
		ExpenseID:  expenseID,
		OccurredAt: s.now().UTC(),
	}
	if err := s.Publisher.Publish(ctx, event); err != nil {
		s.Logger.Warn("failed to publish ledger event",
			zap.String(logging.FieldEvent, string(eventType)),
			zap.String(logging.FieldGroupID, groupID),
			zap.String(logging.FieldExpenseID, expenseID),
			zap.Error(err),
		)
	}
}
