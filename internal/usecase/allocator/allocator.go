package allocator

import (
	"github.com/shopspring/decimal"
	"github.com/simaogato/billsplit-backend/internal/domain"
)

// Allocation is the per-participant breakdown of one expense
// Shares is aligned index-by-index with the participants passed to Allocate
type Allocation struct {
	Shares        []decimal.Decimal
	ExplicitTotal decimal.Decimal
	Remainder     decimal.Decimal // amount - ExplicitTotal, negative on overflow
	ImplicitCount int
	Overflow      bool // explicit shares exceed the amount
}

// Unassigned returns the part of the remainder that no participant carries
// Non-zero only when there are no implicit participants
func (a Allocation) Unassigned() decimal.Decimal {
	if a.ImplicitCount > 0 {
		return decimal.Zero
	}
	return a.Remainder
}

// Allocate resolves how much of an expense each participant owes
// Logic:
//  1. Partition participants into explicit (ShareAmount set) and implicit
//  2. Sum the explicit shares
//  3. Flag Overflow when the explicit total exceeds amount (no clamping)
//  4. Remainder = amount - explicit total
//  5. Each implicit participant owes Remainder / implicit count
//     With no implicit participants the remainder is assigned to no one
//
// Shares are not rounded; rounding happens once, after aggregation
func Allocate(amount decimal.Decimal, participants []domain.Participant) Allocation {
	explicitTotal := decimal.Zero
	implicitCount := 0
	for _, p := range participants {
		if p.ShareAmount != nil {
			explicitTotal = explicitTotal.Add(*p.ShareAmount)
		} else {
			implicitCount++
		}
	}

	remainder := amount.Sub(explicitTotal)

	implicitShare := decimal.Zero
	if implicitCount > 0 {
		implicitShare = remainder.Div(decimal.NewFromInt(int64(implicitCount)))
	}

	shares := make([]decimal.Decimal, len(participants))
	for i, p := range participants {
		if p.ShareAmount != nil {
			shares[i] = *p.ShareAmount
		} else {
			shares[i] = implicitShare
		}
	}

	return Allocation{
		Shares:        shares,
		ExplicitTotal: explicitTotal,
		Remainder:     remainder,
		ImplicitCount: implicitCount,
		Overflow:      explicitTotal.GreaterThan(amount),
	}
}
