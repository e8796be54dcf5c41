package grpc

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/simaogato/billsplit-backend/internal/domain"
	"github.com/simaogato/billsplit-backend/internal/platform/auth"
	"github.com/simaogato/billsplit-backend/internal/usecase/dashboard"
)

// MockSettler is a mock implementation of Settler
type MockSettler struct {
	mock.Mock
}

func (m *MockSettler) Settle(ctx context.Context, groupID string) (*domain.SettlementResult, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SettlementResult), args.Error(1)
}

// MockSummarizer is a mock implementation of Summarizer
type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) GetUserSummary(ctx context.Context, userID string) (*dashboard.UserSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dashboard.UserSummary), args.Error(1)
}

// startServer serves the SettlementService over an in-memory listener
func startServer(t *testing.T, settler Settler, summarizer Summarizer, tokens *auth.TokenManager) *SettlementClient {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		LoggingInterceptor(nil),
		AuthInterceptor(tokens),
	))
	NewServer(settler, summarizer).Register(srv)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewSettlementClient(conn)
}

func authorized(t *testing.T, tokens *auth.TokenManager, userID string) context.Context {
	t.Helper()
	token, err := tokens.Issue(userID)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func TestServer_Settle(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	settler := new(MockSettler)
	client := startServer(t, settler, new(MockSummarizer), tokens)

	settler.On("Settle", mock.Anything, "g1").Return(&domain.SettlementResult{
		GroupID: "g1",
		Balances: domain.BalanceMap{
			"alice": decimal.NewFromInt(20),
			"bob":   decimal.NewFromInt(-20),
		},
		Transactions: []domain.Transaction{
			{PayerID: "bob", PayerName: "Bob", ReceiverID: "alice", ReceiverName: "Alice", Amount: decimal.NewFromInt(20)},
		},
	}, nil)

	resp, err := client.Settle(authorized(t, tokens, "alice"), "g1")
	require.NoError(t, err)

	out := resp.AsMap()
	assert.Equal(t, "g1", out["group_id"])
	assert.Equal(t, map[string]interface{}{"alice": "20.00", "bob": "-20.00"}, out["balances"])

	txs := out["transactions"].([]interface{})
	require.Len(t, txs, 1)
	tx := txs[0].(map[string]interface{})
	assert.Equal(t, "bob", tx["payer_id"])
	assert.Equal(t, "Alice", tx["receiver_name"])
	assert.Equal(t, "20.00", tx["amount"])
	settler.AssertExpectations(t)
}

func TestServer_SettleErrors(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)

	tests := []struct {
		name     string
		groupID  string
		err      error
		wantCode codes.Code
	}{
		{name: "missing group ID", groupID: "", wantCode: codes.InvalidArgument},
		{name: "group not found", groupID: "g404", err: domain.ErrGroupNotFound, wantCode: codes.NotFound},
		{
			name:     "broken invariant",
			groupID:  "g1",
			err:      fmt.Errorf("settle group g1: %w", domain.ErrComputationInvariant),
			wantCode: codes.Internal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settler := new(MockSettler)
			if tt.groupID != "" {
				settler.On("Settle", mock.Anything, tt.groupID).Return(nil, tt.err)
			}
			client := startServer(t, settler, new(MockSummarizer), tokens)

			_, err := client.Settle(authorized(t, tokens, "alice"), tt.groupID)
			assert.Equal(t, tt.wantCode, status.Code(err))
			settler.AssertExpectations(t)
		})
	}
}

func TestServer_RejectsUnauthenticated(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	settler := new(MockSettler)
	client := startServer(t, settler, new(MockSummarizer), tokens)

	_, err := client.Settle(context.Background(), "g1")
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	settler.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything)
}

func TestServer_GetUserSummary(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	summarizer := new(MockSummarizer)
	client := startServer(t, new(MockSettler), summarizer, tokens)

	summarizer.On("GetUserSummary", mock.Anything, "bob").Return(&dashboard.UserSummary{
		UserID: "bob",
		Groups: []dashboard.GroupSummary{
			{GroupID: "g1", GroupName: "Trip", Balance: decimal.NewFromInt(-20)},
		},
		TotalOwed:    decimal.NewFromInt(20),
		TotalOwedTo:  decimal.Zero,
		NetBalance:   decimal.NewFromInt(-20),
		AnomalyCount: 1,
	}, nil)

	resp, err := client.GetUserSummary(authorized(t, tokens, "bob"))
	require.NoError(t, err)

	out := resp.AsMap()
	assert.Equal(t, "bob", out["user_id"])
	assert.Equal(t, "20.00", out["total_owed"])
	assert.Equal(t, "0.00", out["total_owed_to"])
	assert.Equal(t, "-20.00", out["net_balance"])
	assert.Equal(t, float64(1), out["anomaly_count"])
	groups := out["groups"].([]interface{})
	require.Len(t, groups, 1)
	assert.Equal(t, "Trip", groups[0].(map[string]interface{})["group_name"])
	summarizer.AssertExpectations(t)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("wrap: %w", domain.ErrInvalidExpense), codes.InvalidArgument},
		{fmt.Errorf("wrap: %w", domain.ErrReferentialInconsistency), codes.InvalidArgument},
		{domain.ErrShareOverflow, codes.InvalidArgument},
		{domain.ErrUserNotFound, codes.NotFound},
		{domain.ErrExpenseNotFound, codes.NotFound},
		{domain.ErrAlreadyExists, codes.AlreadyExists},
		{auth.ErrInvalidToken, codes.Unauthenticated},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{fmt.Errorf("database is on fire"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(mapError(tt.err)))
		})
	}
	assert.NoError(t, mapError(nil))
}
