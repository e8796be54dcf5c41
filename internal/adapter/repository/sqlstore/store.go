package sqlstore

import "github.com/simaogato/billsplit-backend/internal/domain"

// Store bundles the SQL-backed repositories over one connection
type Store struct {
	db *DB
}

// NewStore creates a store over an open connection
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func (s *Store) Users() domain.UserRepository { return NewUserRepository(s.db) }

func (s *Store) Groups() domain.GroupRepository { return NewGroupRepository(s.db) }

func (s *Store) Expenses() domain.ExpenseRepository { return NewExpenseRepository(s.db) }

// Close closes the underlying connection
func (s *Store) Close() error { return s.db.Close() }
