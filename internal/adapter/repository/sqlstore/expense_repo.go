package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/simaogato/billsplit-backend/internal/domain"
)

// expenseRepository implements domain.ExpenseRepository
type expenseRepository struct {
	db *DB
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *DB) domain.ExpenseRepository {
	return &expenseRepository{db: db}
}

const expenseColumns = `id, group_id, description, payer_id, amount, created_at`

// Create inserts an expense and its participants in a database transaction
func (r *expenseRepository) Create(ctx context.Context, expense *domain.Expense) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	var one int
	err = dbTx.QueryRowContext(ctx, r.db.rebind(`SELECT 1 FROM expense_groups WHERE id = ?`), expense.GroupID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrGroupNotFound
		}
		return fmt.Errorf("failed to check group: %w", err)
	}

	query := r.db.rebind(`
		INSERT INTO expenses (` + expenseColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	_, err = dbTx.ExecContext(ctx, query,
		expense.ID,
		expense.GroupID,
		expense.Description,
		expense.PayerID,
		expense.Amount.String(),
		r.db.timeArg(expense.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("expense %s: %w", expense.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	if err := r.insertParticipants(ctx, dbTx, expense); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves an expense with its participants
func (r *expenseRepository) GetByID(ctx context.Context, id string) (*domain.Expense, error) {
	expenses, err := r.query(ctx, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(expenses) == 0 {
		return nil, domain.ErrExpenseNotFound
	}
	return &expenses[0], nil
}

// GetExpensesForGroup returns the group's expenses ordered by creation time, then ID
func (r *expenseRepository) GetExpensesForGroup(ctx context.Context, groupID string) ([]domain.Expense, error) {
	return r.query(ctx, `WHERE group_id = ?`, groupID)
}

// ListForUser returns every expense the user paid for or participates in
func (r *expenseRepository) ListForUser(ctx context.Context, userID string) ([]domain.Expense, error) {
	return r.query(ctx, `
		WHERE payer_id = ?
		   OR id IN (SELECT expense_id FROM expense_participants WHERE user_id = ?)
	`, userID, userID)
}

// Update replaces the descriptive and ledger fields of an expense
// The group and creation time of a stored expense never change
func (r *expenseRepository) Update(ctx context.Context, expense *domain.Expense) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := r.db.rebind(`
		UPDATE expenses
		SET description = ?, payer_id = ?, amount = ?
		WHERE id = ?
	`)
	result, err := dbTx.ExecContext(ctx, query,
		expense.Description,
		expense.PayerID,
		expense.Amount.String(),
		expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if err := requireAffected(result, domain.ErrExpenseNotFound); err != nil {
		return err
	}

	if _, err := dbTx.ExecContext(ctx, r.db.rebind(`DELETE FROM expense_participants WHERE expense_id = ?`), expense.ID); err != nil {
		return fmt.Errorf("failed to clear participants: %w", err)
	}
	if err := r.insertParticipants(ctx, dbTx, expense); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete removes an expense and its participants
func (r *expenseRepository) Delete(ctx context.Context, id string) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, r.db.rebind(`DELETE FROM expense_participants WHERE expense_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete participants: %w", err)
	}
	result, err := dbTx.ExecContext(ctx, r.db.rebind(`DELETE FROM expenses WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if err := requireAffected(result, domain.ErrExpenseNotFound); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *expenseRepository) insertParticipants(ctx context.Context, dbTx *sql.Tx, expense *domain.Expense) error {
	query := r.db.rebind(`
		INSERT INTO expense_participants (expense_id, position, user_id, share_amount)
		VALUES (?, ?, ?, ?)
	`)
	for i, p := range expense.Participants {
		var share interface{}
		if p.ShareAmount != nil {
			share = p.ShareAmount.String()
		}
		if _, err := dbTx.ExecContext(ctx, query, expense.ID, i, p.UserID, share); err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}
	return nil
}

// query loads expenses matching the filter, then their participants in a second pass
func (r *expenseRepository) query(ctx context.Context, where string, args ...interface{}) ([]domain.Expense, error) {
	query := r.db.rebind(`SELECT ` + expenseColumns + ` FROM expenses ` + where + ` ORDER BY created_at, id`)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0)
	index := make(map[string]int)
	for rows.Next() {
		var e domain.Expense
		var createdAt timestamp
		if err := rows.Scan(&e.ID, &e.GroupID, &e.Description, &e.PayerID, &e.Amount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		e.CreatedAt = createdAt.Time
		e.Participants = []domain.Participant{}
		index[e.ID] = len(expenses)
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}
	if len(expenses) == 0 {
		return expenses, nil
	}

	if err := r.loadParticipants(ctx, expenses, index); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *expenseRepository) loadParticipants(ctx context.Context, expenses []domain.Expense, index map[string]int) error {
	placeholders := make([]string, len(expenses))
	ids := make([]interface{}, len(expenses))
	for i, e := range expenses {
		placeholders[i] = "?"
		ids[i] = e.ID
	}

	query := r.db.rebind(`
		SELECT expense_id, user_id, share_amount
		FROM expense_participants
		WHERE expense_id IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY expense_id, position
	`)
	rows, err := r.db.QueryContext(ctx, query, ids...)
	if err != nil {
		return fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var expenseID string
		var p domain.Participant
		var share decimal.NullDecimal
		if err := rows.Scan(&expenseID, &p.UserID, &share); err != nil {
			return fmt.Errorf("failed to scan participant: %w", err)
		}
		if share.Valid {
			v := share.Decimal
			p.ShareAmount = &v
		}
		i, ok := index[expenseID]
		if !ok {
			continue
		}
		expenses[i].Participants = append(expenses[i].Participants, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating participants: %w", err)
	}

	return nil
}
