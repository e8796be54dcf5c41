package balance

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/simaogato/billsplit-backend/internal/domain"
	"github.com/simaogato/billsplit-backend/internal/usecase/allocator"
)

// Places is the number of decimal places balances are rounded to
const Places = domain.MoneyPlaces

// Aggregation is the result of folding a ledger into balances
type Aggregation struct {
	Balances  domain.BalanceMap
	Anomalies []domain.Anomaly
}

// Aggregate folds a group's expenses into one net balance per member
// Logic:
//  1. Every member starts at zero (members with no activity still get an entry)
//  2. For each expense:
//     - Skip it with a STALE_PAYER anomaly if the payer is not a member
//     - Allocate shares; flag SHARE_OVERFLOW when explicit shares exceed the amount
//     - Subtract each member participant's share; skip non-members with STALE_PARTICIPANT
//     - Credit the payer with the total actually charged to members
//  3. Round each balance half-even to two places
//
// The payer absorbs whatever is not charged to a current member (an unassigned remainder
// or the share of a removed participant), so the unrounded balances sum to exactly zero.
// The payer is credited with what was charged, not with the amount paid: when explicit
// shares overflow and no participant is implicit, the payer is credited the explicit total,
// which is more than the expense amount. The SHARE_OVERFLOW anomaly reports that case.
// Expense order does not affect the result.
func Aggregate(members domain.MemberSet, expenses []domain.Expense) Aggregation {
	balances := make(domain.BalanceMap, len(members))
	for id := range members {
		balances[id] = decimal.Zero
	}

	var anomalies []domain.Anomaly

	for _, expense := range expenses {
		if !members.Contains(expense.PayerID) {
			anomalies = append(anomalies, domain.Anomaly{
				Kind:      domain.AnomalyStalePayer,
				ExpenseID: expense.ID,
				UserID:    expense.PayerID,
				Detail:    fmt.Sprintf("payer %s is not a group member, expense skipped", expense.PayerID),
			})
			continue
		}

		alloc := allocator.Allocate(expense.Amount, expense.Participants)
		if alloc.Overflow {
			anomalies = append(anomalies, domain.Anomaly{
				Kind:      domain.AnomalyShareOverflow,
				ExpenseID: expense.ID,
				Detail: fmt.Sprintf("explicit shares %s exceed amount %s",
					alloc.ExplicitTotal.String(), expense.Amount.String()),
			})
		}

		charged := decimal.Zero
		for i, p := range expense.Participants {
			if !members.Contains(p.UserID) {
				anomalies = append(anomalies, domain.Anomaly{
					Kind:      domain.AnomalyStaleParticipant,
					ExpenseID: expense.ID,
					UserID:    p.UserID,
					Detail:    fmt.Sprintf("participant %s is not a group member, share absorbed by payer", p.UserID),
				})
				continue
			}
			balances[p.UserID] = balances[p.UserID].Sub(alloc.Shares[i])
			charged = charged.Add(alloc.Shares[i])
		}

		balances[expense.PayerID] = balances[expense.PayerID].Add(charged)
	}

	return Aggregation{
		Balances:  roundBalances(balances),
		Anomalies: anomalies,
	}
}

// roundBalances rounds every balance half-even to Places independently
// The rounded sum may drift from zero by at most domain.BalanceTolerance
func roundBalances(exact domain.BalanceMap) domain.BalanceMap {
	rounded := make(domain.BalanceMap, len(exact))
	for id, v := range exact {
		rounded[id] = v.RoundBank(Places)
	}
	return rounded
}
