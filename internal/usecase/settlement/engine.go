package settlement

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/simaogato/billsplit-backend/internal/domain"
)

// party is a member with an outstanding balance during settlement
type party struct {
	id      string
	balance decimal.Decimal
}

// Settle computes a short list of payments that returns every balance to zero
//
// Logic:
//   - Discard members whose absolute balance is within domain.BalanceTolerance
//   - Split the rest into debtors (balance < 0) and creditors (balance > 0)
//   - Sort debtors ascending and creditors descending, ties broken by member ID
//   - Pair the first debtor with the first creditor and move min(|debtor|, creditor)
//   - Drop the debtor once its balance rounds to >= 0, the creditor once it rounds to <= 0
//
// Greedy largest-vs-largest matching is not guaranteed to be minimal but it is deterministic
// and emits at most len(debtors)+len(creditors)-1 transactions.
// Names are left empty; the caller decorates transactions with display names.
func Settle(balances domain.BalanceMap) []domain.Transaction {
	ids := make([]string, 0, len(balances))
	for id := range balances {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	debtors := make([]*party, 0)
	creditors := make([]*party, 0)
	for _, id := range ids {
		b := balances[id]
		if b.Abs().LessThanOrEqual(domain.BalanceTolerance) {
			continue
		}
		if b.IsNegative() {
			debtors = append(debtors, &party{id: id, balance: b})
		} else {
			creditors = append(creditors, &party{id: id, balance: b})
		}
	}

	// ids are already sorted, so a stable sort keeps member ID as the tie-break
	sort.SliceStable(debtors, func(i, j int) bool {
		return debtors[i].balance.LessThan(debtors[j].balance)
	})
	sort.SliceStable(creditors, func(i, j int) bool {
		return creditors[i].balance.GreaterThan(creditors[j].balance)
	})

	transactions := make([]domain.Transaction, 0)
	for len(debtors) > 0 && len(creditors) > 0 {
		debtor := debtors[0]
		creditor := creditors[0]

		amount := decimal.Min(debtor.balance.Abs(), creditor.balance).RoundBank(domain.MoneyPlaces)
		transactions = append(transactions, domain.Transaction{
			PayerID:    debtor.id,
			ReceiverID: creditor.id,
			Amount:     amount,
		})

		debtor.balance = debtor.balance.Add(amount)
		creditor.balance = creditor.balance.Sub(amount)

		if !debtor.balance.RoundBank(domain.MoneyPlaces).IsNegative() {
			debtors = debtors[1:]
		}
		if !creditor.balance.RoundBank(domain.MoneyPlaces).IsPositive() {
			creditors = creditors[1:]
		}
	}

	return transactions
}
