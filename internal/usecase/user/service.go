package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/billsplit-backend/internal/domain"
)

// RegisterInput represents the input for registering a user
type RegisterInput struct {
	Username string
	Email    string
}

// TokenIssuer issues access tokens for registered users
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// Registration is a newly registered user with an access token
type Registration struct {
	User  *domain.User
	Token string
}

// UserService handles the user directory
type UserService struct {
	UserRepo domain.UserRepository
	Tokens   TokenIssuer

	now func() time.Time
}

// NewUserService creates a new UserService instance
func NewUserService(userRepo domain.UserRepository, tokens TokenIssuer) *UserService {
	return &UserService{
		UserRepo: userRepo,
		Tokens:   tokens,
		now:      time.Now,
	}
}

// Register creates a user and issues an access token
// Returns domain.ErrAlreadyExists if the email is already registered
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*Registration, error) {
	user := &domain.User{
		ID:        uuid.NewString(),
		Username:  strings.TrimSpace(input.Username),
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		CreatedAt: s.now().UTC(),
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", user.Email, err)
	}

	token, err := s.Tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	return &Registration{User: user, Token: token}, nil
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.UserRepo.GetByID(ctx, id)
}
