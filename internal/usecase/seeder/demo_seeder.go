package seeder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/billsplit-backend/internal/domain"
)

// Fixed IDs for the demo data so seeding is repeatable
var (
	DemoAlice = uuid.MustParse("00000000-0000-0000-0000-00000000a001").String()
	DemoBob   = uuid.MustParse("00000000-0000-0000-0000-00000000a002").String()
	DemoCarol = uuid.MustParse("00000000-0000-0000-0000-00000000a003").String()

	DemoGroup = uuid.MustParse("00000000-0000-0000-0000-00000000b001").String()

	DemoDinner = uuid.MustParse("00000000-0000-0000-0000-00000000c001").String()
	DemoCabin  = uuid.MustParse("00000000-0000-0000-0000-00000000c002").String()
)

// DemoSeeder populates an empty store with a small demo ledger
type DemoSeeder struct {
	UserRepo    domain.UserRepository
	GroupRepo   domain.GroupRepository
	ExpenseRepo domain.ExpenseRepository

	now func() time.Time
}

// NewDemoSeeder creates a new DemoSeeder instance
func NewDemoSeeder(userRepo domain.UserRepository, groupRepo domain.GroupRepository, expenseRepo domain.ExpenseRepository) *DemoSeeder {
	return &DemoSeeder{
		UserRepo:    userRepo,
		GroupRepo:   groupRepo,
		ExpenseRepo: expenseRepo,
		now:         time.Now,
	}
}

// Seed ensures the demo users, group and expenses exist
// Records that already exist are left untouched
func (s *DemoSeeder) Seed(ctx context.Context) error {
	now := s.now().UTC()

	users := []domain.User{
		{ID: DemoAlice, Username: "alice", Email: "alice@example.com"},
		{ID: DemoBob, Username: "bob", Email: "bob@example.com"},
		{ID: DemoCarol, Username: "carol", Email: "carol@example.com"},
	}
	for _, u := range users {
		_, err := s.UserRepo.GetByID(ctx, u.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		user := u
		user.CreatedAt = now
		if err := user.Validate(); err != nil {
			return err
		}
		if err := s.UserRepo.Create(ctx, &user); err != nil {
			return err
		}
	}

	_, err := s.GroupRepo.GetByID(ctx, DemoGroup)
	switch {
	case errors.Is(err, domain.ErrGroupNotFound):
		group := &domain.Group{
			ID:          DemoGroup,
			Name:        "Weekend trip",
			Description: "Demo group",
			OwnerID:     DemoAlice,
			Members:     domain.NewMemberSet(DemoAlice, DemoBob, DemoCarol).Sorted(),
			CreatedAt:   now,
		}
		if err := group.Validate(); err != nil {
			return err
		}
		if err := s.GroupRepo.Create(ctx, group); err != nil {
			return err
		}
	case err != nil:
		return err
	}

	carolShare := decimal.NewFromInt(20)
	expenses := []domain.Expense{
		{
			ID:           DemoDinner,
			Description:  "Dinner",
			PayerID:      DemoAlice,
			Amount:       decimal.NewFromInt(90),
			Participants: []domain.Participant{{UserID: DemoAlice}, {UserID: DemoBob}, {UserID: DemoCarol}},
		},
		{
			ID:           DemoCabin,
			Description:  "Cabin",
			PayerID:      DemoBob,
			Amount:       decimal.NewFromInt(200),
			Participants: []domain.Participant{{UserID: DemoAlice}, {UserID: DemoBob}, {UserID: DemoCarol, ShareAmount: &carolShare}},
		},
	}
	for _, e := range expenses {
		_, err := s.ExpenseRepo.GetByID(ctx, e.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrExpenseNotFound) {
			return err
		}
		expense := e
		expense.GroupID = DemoGroup
		expense.CreatedAt = now
		if err := expense.Validate(); err != nil {
			return err
		}
		if err := s.ExpenseRepo.Create(ctx, &expense); err != nil {
			return err
		}
	}

	return nil
}
