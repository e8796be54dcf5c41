package dashboard

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/simaogato/billsplit-backend/internal/domain"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds how many groups are settled at once
const DefaultConcurrency = 4

// Settler computes the settlement of a single group
type Settler interface {
	Settle(ctx context.Context, groupID string) (*domain.SettlementResult, error)
}

// GroupSummary is the user's position within one group
type GroupSummary struct {
	GroupID      string
	GroupName    string
	Balance      decimal.Decimal
	Transactions []domain.Transaction // Only those in which the user pays or receives
}

// UserSummary is the user's position across every group they belong to
type UserSummary struct {
	UserID       string
	Groups       []GroupSummary
	TotalOwed    decimal.Decimal // What the user owes others
	TotalOwedTo  decimal.Decimal // What others owe the user
	NetBalance   decimal.Decimal
	AnomalyCount int
}

// DashboardService handles dashboard-related operations
type DashboardService struct {
	GroupRepo   domain.GroupRepository
	Settler     Settler
	Concurrency int
}

// NewDashboardService creates a new DashboardService instance
func NewDashboardService(groupRepo domain.GroupRepository, settler Settler, concurrency int) *DashboardService {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &DashboardService{
		GroupRepo:   groupRepo,
		Settler:     settler,
		Concurrency: concurrency,
	}
}

// GetUserSummary settles every group of the user and reports their position
// Logic:
//   - List the user's groups
//   - Settle them concurrently, at most Concurrency at a time
//   - Keep the user's balance and the transactions that involve the user
//   - TotalOwed sums negative balances, TotalOwedTo positive ones
//
// Groups keep the order returned by the repository.
// The first settlement error cancels the rest and is returned.
func (s *DashboardService) GetUserSummary(ctx context.Context, userID string) (*UserSummary, error) {
	groups, err := s.GroupRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups of user %s: %w", userID, err)
	}

	results := make([]*domain.SettlementResult, len(groups))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.Concurrency)
	for i, g := range groups {
		eg.Go(func() error {
			result, err := s.Settler.Settle(egCtx, g.ID)
			if err != nil {
				return fmt.Errorf("failed to settle group %s: %w", g.ID, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	summary := &UserSummary{
		UserID:      userID,
		Groups:      make([]GroupSummary, 0, len(groups)),
		TotalOwed:   decimal.Zero,
		TotalOwedTo: decimal.Zero,
	}
	for i, g := range groups {
		result := results[i]
		b := result.Balances[userID]

		involved := make([]domain.Transaction, 0)
		for _, tx := range result.Transactions {
			if tx.PayerID == userID || tx.ReceiverID == userID {
				involved = append(involved, tx)
			}
		}

		summary.Groups = append(summary.Groups, GroupSummary{
			GroupID:      g.ID,
			GroupName:    g.Name,
			Balance:      b,
			Transactions: involved,
		})
		if b.IsNegative() {
			summary.TotalOwed = summary.TotalOwed.Add(b.Neg())
		} else {
			summary.TotalOwedTo = summary.TotalOwedTo.Add(b)
		}
		summary.AnomalyCount += len(result.Anomalies)
	}
	summary.NetBalance = summary.TotalOwedTo.Sub(summary.TotalOwed)

	return summary, nil
}
