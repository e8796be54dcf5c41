package domain

import (
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places balances and payments are rounded to
const MoneyPlaces = 2

// BalanceTolerance is the largest deviation treated as zero when comparing balances
var BalanceTolerance = decimal.New(1, -MoneyPlaces)

// BalanceMap maps member ID to net balance
// Positive means the member is owed money, negative means the member owes money
type BalanceMap map[string]decimal.Decimal

// Sum returns the sum of all balances
func (b BalanceMap) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, v := range b {
		total = total.Add(v)
	}
	return total
}

// Clone returns a copy of the balance map
func (b BalanceMap) Clone() BalanceMap {
	out := make(BalanceMap, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Validate ensures the balances respect the accounting identity (sum is zero within tolerance)
func (b BalanceMap) Validate() error {
	if b.Sum().Abs().GreaterThan(BalanceTolerance) {
		return ErrComputationInvariant
	}
	return nil
}

// Transaction is a settlement instruction: PayerID pays Amount to ReceiverID
// It is computed on demand and never persisted
type Transaction struct {
	PayerID      string
	ReceiverID   string
	Amount       decimal.Decimal // Always positive, two decimal places
	PayerName    string
	ReceiverName string
}

// AnomalyKind classifies a data anomaly found while aggregating a ledger
type AnomalyKind string

const (
	AnomalyStalePayer       AnomalyKind = "STALE_PAYER"
	AnomalyStaleParticipant AnomalyKind = "STALE_PARTICIPANT"
	AnomalyShareOverflow    AnomalyKind = "SHARE_OVERFLOW"
)

// Anomaly is a diagnostic emitted when a historical expense cannot be applied cleanly
type Anomaly struct {
	Kind      AnomalyKind
	ExpenseID string
	UserID    string
	Detail    string
}

// SettlementResult is the outcome of settling a group
type SettlementResult struct {
	GroupID      string
	Balances     BalanceMap
	Transactions []Transaction
	Anomalies    []Anomaly
}
