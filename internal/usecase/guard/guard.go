package guard

import (
	"context"
	"fmt"
	"strings"

	"github.com/simaogato/billsplit-backend/internal/domain"
	"github.com/simaogato/billsplit-backend/internal/logging"
	"go.uber.org/zap"
)

// OverflowPolicy decides what happens when explicit shares exceed the expense amount
type OverflowPolicy string

const (
	// OverflowReject rejects the expense with domain.ErrShareOverflow
	OverflowReject OverflowPolicy = "reject"
	// OverflowWarn logs a warning and admits the expense
	OverflowWarn OverflowPolicy = "warn"
)

// ParseOverflowPolicy converts a configuration value into an OverflowPolicy
// An empty value selects OverflowReject
func ParseOverflowPolicy(v string) (OverflowPolicy, error) {
	switch OverflowPolicy(strings.ToLower(strings.TrimSpace(v))) {
	case OverflowReject, "":
		return OverflowReject, nil
	case OverflowWarn:
		return OverflowWarn, nil
	default:
		return "", fmt.Errorf("invalid share overflow policy %q", v)
	}
}

// Guard admits or rejects expense writes against the current group membership
type Guard struct {
	GroupRepo domain.GroupRepository
	Policy    OverflowPolicy
	Logger    *zap.Logger
}

// NewGuard creates a new Guard instance
func NewGuard(groupRepo domain.GroupRepository, policy OverflowPolicy, logger *zap.Logger) *Guard {
	if policy == "" {
		policy = OverflowReject
	}
	return &Guard{
		GroupRepo: groupRepo,
		Policy:    policy,
		Logger:    logging.Component(logger, "guard"),
	}
}

// Validate checks an expense candidate before it is written
// Logic (short-circuits on the first failure):
//  1. Structural validation (domain.ErrInvalidExpense)
//  2. Referenced group exists (domain.ErrGroupNotFound)
//  3. Membership and share checks, see Check
func (g *Guard) Validate(ctx context.Context, candidate *domain.Expense) error {
	if err := candidate.Validate(); err != nil {
		return err
	}

	members, err := g.GroupRepo.GetGroupMembers(ctx, candidate.GroupID)
	if err != nil {
		return fmt.Errorf("failed to get members of group %s: %w", candidate.GroupID, err)
	}

	return g.Check(candidate, members)
}

// Check runs the membership and share checks against a known membership
// Logic (short-circuits on the first failure):
//  1. Payer is a current member
//  2. Every participant is a current member
//  3. Explicit shares do not exceed the amount, subject to Policy
func (g *Guard) Check(candidate *domain.Expense, members domain.MemberSet) error {
	if !members.Contains(candidate.PayerID) {
		return fmt.Errorf("%w: payer %s is not a member of group %s",
			domain.ErrReferentialInconsistency, candidate.PayerID, candidate.GroupID)
	}

	for _, p := range candidate.Participants {
		if !members.Contains(p.UserID) {
			return fmt.Errorf("%w: participant %s is not a member of group %s",
				domain.ErrReferentialInconsistency, p.UserID, candidate.GroupID)
		}
	}

	explicitTotal := candidate.ExplicitTotal()
	if explicitTotal.GreaterThan(candidate.Amount) {
		if g.Policy == OverflowWarn {
			g.Logger.Warn("explicit shares exceed expense amount, admitting",
				zap.String(logging.FieldGroupID, candidate.GroupID),
				zap.String(logging.FieldExpenseID, candidate.ID),
				zap.String("explicit_total", explicitTotal.String()),
				zap.String("amount", candidate.Amount.String()),
			)
			return nil
		}
		return fmt.Errorf("%w: explicit shares %s, amount %s",
			domain.ErrShareOverflow, explicitTotal.String(), candidate.Amount.String())
	}

	return nil
}
