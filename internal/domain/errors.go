package domain

import "errors"

var (
	// ErrReferentialInconsistency indicates a payer or participant is not a current group member.
	ErrReferentialInconsistency = errors.New("referential inconsistency")

	// ErrGroupNotFound indicates the referenced group does not exist.
	ErrGroupNotFound = errors.New("group not found")

	// ErrExpenseNotFound indicates the referenced expense does not exist.
	ErrExpenseNotFound = errors.New("expense not found")

	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrShareOverflow indicates explicit participant shares exceed the expense amount.
	ErrShareOverflow = errors.New("explicit shares exceed expense amount")

	// ErrInvalidExpense indicates an expense failed structural validation.
	ErrInvalidExpense = errors.New("invalid expense")

	// ErrInvalidGroup indicates a group failed structural validation.
	ErrInvalidGroup = errors.New("invalid group")

	// ErrInvalidUser indicates a user failed structural validation.
	ErrInvalidUser = errors.New("invalid user")

	// ErrAlreadyExists indicates a record with the same identity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrComputationInvariant indicates aggregated balances do not sum to zero.
	// It signals a bug in the engine, never bad user input.
	ErrComputationInvariant = errors.New("balances do not sum to zero")
)
