package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/simaogato/billsplit-backend/internal/domain"
	"github.com/simaogato/billsplit-backend/internal/platform/auth"
	"github.com/simaogato/billsplit-backend/internal/usecase/dashboard"
)

const (
	ServiceName              = "billsplit.v1.SettlementService"
	SettleFullMethod         = "/" + ServiceName + "/Settle"
	GetUserSummaryFullMethod = "/" + ServiceName + "/GetUserSummary"
)

// Settler settles a single group
type Settler interface {
	Settle(ctx context.Context, groupID string) (*domain.SettlementResult, error)
}

// Summarizer reports a user's position across their groups
type Summarizer interface {
	GetUserSummary(ctx context.Context, userID string) (*dashboard.UserSummary, error)
}

// SettlementServer is the server API for the SettlementService
type SettlementServer interface {
	Settle(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	GetUserSummary(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// Server implements the SettlementService gRPC server
type Server struct {
	SettlementService Settler
	DashboardService  Summarizer
}

// NewServer creates a new gRPC server instance
func NewServer(settlementService Settler, dashboardService Summarizer) *Server {
	return &Server{
		SettlementService: settlementService,
		DashboardService:  dashboardService,
	}
}

// Register attaches the service to a gRPC server
func (s *Server) Register(registrar grpc.ServiceRegistrar) {
	registrar.RegisterService(&SettlementServiceDesc, s)
}

// Settle handles the Settle RPC
// The request carries the group ID, the response the balances and transactions of the group
func (s *Server) Settle(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	groupID := req.GetValue()
	if groupID == "" {
		return nil, status.Error(codes.InvalidArgument, "group_id is required")
	}

	result, err := s.SettlementService.Settle(ctx, groupID)
	if err != nil {
		return nil, mapError(err)
	}

	out, err := structpb.NewStruct(settlementToMap(result))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode settlement: %v", err)
	}
	return out, nil
}

// GetUserSummary handles the GetUserSummary RPC for the authenticated user
func (s *Server) GetUserSummary(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing user")
	}

	summary, err := s.DashboardService.GetUserSummary(ctx, userID)
	if err != nil {
		return nil, mapError(err)
	}

	out, err := structpb.NewStruct(summaryToMap(summary))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode summary: %v", err)
	}
	return out, nil
}

// SettlementServiceDesc describes the SettlementService for grpc.Server.RegisterService
var SettlementServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SettlementServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Settle", Handler: settleHandler},
		{MethodName: "GetUserSummary", Handler: getUserSummaryHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "billsplit/v1/settlement.proto",
}

func settleHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SettlementServer).Settle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SettleFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SettlementServer).Settle(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getUserSummaryHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SettlementServer).GetUserSummary(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetUserSummaryFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SettlementServer).GetUserSummary(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// SettlementClient calls the SettlementService
type SettlementClient struct {
	cc grpc.ClientConnInterface
}

// NewSettlementClient creates a client over an established connection
func NewSettlementClient(cc grpc.ClientConnInterface) *SettlementClient {
	return &SettlementClient{cc: cc}
}

func (c *SettlementClient) Settle(ctx context.Context, groupID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SettleFullMethod, wrapperspb.String(groupID), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SettlementClient) GetUserSummary(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetUserSummaryFullMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// settlementToMap renders a settlement with money as two-decimal strings
func settlementToMap(result *domain.SettlementResult) map[string]interface{} {
	balances := make(map[string]interface{}, len(result.Balances))
	for id, b := range result.Balances {
		balances[id] = b.StringFixed(2)
	}

	anomalies := make([]interface{}, 0, len(result.Anomalies))
	for _, a := range result.Anomalies {
		anomalies = append(anomalies, map[string]interface{}{
			"kind":       string(a.Kind),
			"expense_id": a.ExpenseID,
			"user_id":    a.UserID,
			"detail":     a.Detail,
		})
	}

	return map[string]interface{}{
		"group_id":     result.GroupID,
		"balances":     balances,
		"transactions": transactionsToList(result.Transactions),
		"anomalies":    anomalies,
	}
}

func summaryToMap(summary *dashboard.UserSummary) map[string]interface{} {
	groups := make([]interface{}, 0, len(summary.Groups))
	for _, g := range summary.Groups {
		groups = append(groups, map[string]interface{}{
			"group_id":     g.GroupID,
			"group_name":   g.GroupName,
			"balance":      g.Balance.StringFixed(2),
			"transactions": transactionsToList(g.Transactions),
		})
	}

	return map[string]interface{}{
		"user_id":       summary.UserID,
		"groups":        groups,
		"total_owed":    summary.TotalOwed.StringFixed(2),
		"total_owed_to": summary.TotalOwedTo.StringFixed(2),
		"net_balance":   summary.NetBalance.StringFixed(2),
		"anomaly_count": float64(summary.AnomalyCount),
	}
}

func transactionsToList(transactions []domain.Transaction) []interface{} {
	out := make([]interface{}, 0, len(transactions))
	for _, tx := range transactions {
		out = append(out, map[string]interface{}{
			"payer_id":      tx.PayerID,
			"payer_name":    tx.PayerName,
			"receiver_id":   tx.ReceiverID,
			"receiver_name": tx.ReceiverName,
			"amount":        tx.Amount.StringFixed(2),
		})
	}
	return out
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrInvalidExpense),
		errors.Is(err, domain.ErrInvalidGroup),
		errors.Is(err, domain.ErrInvalidUser),
		errors.Is(err, domain.ErrReferentialInconsistency),
		errors.Is(err, domain.ErrShareOverflow):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrGroupNotFound),
		errors.Is(err, domain.ErrExpenseNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		// Default to Internal error for unknown errors
		return status.Error(codes.Internal, err.Error())
	}
}
