package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Participant is one user taking part in an expense
// ShareAmount is nil when the participant's share is implicit (equal split of the remainder)
type Participant struct {
	UserID      string
	ShareAmount *decimal.Decimal
}

// IsExplicit reports whether the participant carries an explicit share
func (p Participant) IsExplicit() bool {
	return p.ShareAmount != nil
}

// Expense represents an expense recorded against a group ledger
type Expense struct {
	ID           string
	GroupID      string
	Description  string
	PayerID      string
	Amount       decimal.Decimal
	Participants []Participant
	CreatedAt    time.Time
}

// Validate ensures the expense adheres to structural domain rules
// Membership and share-overflow checks belong to the ledger guard, not here
func (e *Expense) Validate() error {
	if e.GroupID == "" {
		return fmt.Errorf("%w: group ID cannot be empty", ErrInvalidExpense)
	}

	if e.PayerID == "" {
		return fmt.Errorf("%w: payer ID cannot be empty", ErrInvalidExpense)
	}

	if e.Amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: expense amount must be positive", ErrInvalidExpense)
	}

	if len(e.Participants) == 0 {
		return fmt.Errorf("%w: expense must have at least one participant", ErrInvalidExpense)
	}

	for _, p := range e.Participants {
		if p.UserID == "" {
			return fmt.Errorf("%w: participant user ID cannot be empty", ErrInvalidExpense)
		}
		if p.ShareAmount != nil && p.ShareAmount.IsNegative() {
			return fmt.Errorf("%w: share amount for participant %s cannot be negative", ErrInvalidExpense, p.UserID)
		}
	}

	return nil
}

// ExplicitTotal returns the sum of all explicit participant shares
func (e *Expense) ExplicitTotal() decimal.Decimal {
	total := decimal.Zero
	for _, p := range e.Participants {
		if p.ShareAmount != nil {
			total = total.Add(*p.ShareAmount)
		}
	}
	return total
}

// Clone returns a deep copy of the expense
func (e Expense) Clone() Expense {
	out := e
	out.Participants = CloneParticipants(e.Participants)
	return out
}

// CloneParticipants deep-copies a participant list, including share pointers
func CloneParticipants(ps []Participant) []Participant {
	if ps == nil {
		return nil
	}
	out := make([]Participant, len(ps))
	for i, p := range ps {
		out[i] = Participant{UserID: p.UserID}
		if p.ShareAmount != nil {
			v := *p.ShareAmount
			out[i].ShareAmount = &v
		}
	}
	return out
}

// ExpenseUpdate is a partial update of an expense
// A nil field means "absent": the existing value is kept
type ExpenseUpdate struct {
	Description  *string
	Amount       *decimal.Decimal
	PayerID      *string
	Participants *[]Participant
}

// IsEmpty reports whether the update carries no fields at all
func (u ExpenseUpdate) IsEmpty() bool {
	return u.Description == nil && u.Amount == nil && u.PayerID == nil && u.Participants == nil
}

// TouchesLedger reports whether the update changes anything that affects balances
func (u ExpenseUpdate) TouchesLedger() bool {
	return u.Amount != nil || u.PayerID != nil || u.Participants != nil
}

// Apply merges the update onto a copy of the expense and returns the copy
// The receiver is never modified
func (e Expense) Apply(u ExpenseUpdate) Expense {
	out := e.Clone()
	if u.Description != nil {
		out.Description = *u.Description
	}
	if u.Amount != nil {
		out.Amount = *u.Amount
	}
	if u.PayerID != nil {
		out.PayerID = *u.PayerID
	}
	if u.Participants != nil {
		out.Participants = CloneParticipants(*u.Participants)
	}
	return out
}

// Involves reports whether the user paid for or takes part in the expense
func (e *Expense) Involves(userID string) bool {
	if e.PayerID == userID {
		return true
	}
	for _, p := range e.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
