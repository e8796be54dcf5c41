package main

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/simaogato/billsplit-backend/internal/adapter/events"
	grpcadapter "github.com/simaogato/billsplit-backend/internal/adapter/grpc"
	"github.com/simaogato/billsplit-backend/internal/config"
	"github.com/simaogato/billsplit-backend/internal/platform/auth"
	"github.com/simaogato/billsplit-backend/internal/usecase/dashboard"
	"github.com/simaogato/billsplit-backend/internal/usecase/seeder"
	"github.com/simaogato/billsplit-backend/internal/usecase/settlement"
)

func TestOpenRepositories_Memory(t *testing.T) {
	repos, err := openRepositories(&config.Config{StorageBackend: config.BackendMemory}, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, repos.users)
	assert.NoError(t, repos.close())
}

func TestOpenPublisher_DisabledWithoutURL(t *testing.T) {
	pub, err := openPublisher(&config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, events.NoopPublisher{}, pub)
}

// TestEndToEnd_SQLiteOverGRPC seeds a migrated SQLite database and settles the demo group through the gRPC API
func TestEndToEnd_SQLiteOverGRPC(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		StorageBackend: config.BackendSQLite,
		SQLiteDBPath:   filepath.Join(t.TempDir(), "data", "billsplit.db"),
	}

	repos, err := openRepositories(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.close() })

	require.NoError(t, seeder.NewDemoSeeder(repos.users, repos.groups, repos.expenses).Seed(ctx))

	tokens := auth.NewTokenManager("e2e-secret", time.Hour)
	settlementService := settlement.NewSettlementService(repos.groups, repos.expenses, repos.users, nil)
	dashboardService := dashboard.NewDashboardService(repos.groups, settlementService, 2)

	lis := bufconn.Listen(1024 * 1024)
	srv := grpclib.NewServer(grpclib.ChainUnaryInterceptor(
		grpcadapter.LoggingInterceptor(nil),
		grpcadapter.AuthInterceptor(tokens),
	))
	grpcadapter.NewServer(settlementService, dashboardService).Register(srv)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpclib.NewClient("passthrough:///bufnet",
		grpclib.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpclib.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	client := grpcadapter.NewSettlementClient(conn)

	_, err = client.Settle(ctx, seeder.DemoGroup)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	token, err := tokens.Issue(seeder.DemoCarol)
	require.NoError(t, err)
	authCtx := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)

	resp, err := client.Settle(authCtx, seeder.DemoGroup)
	require.NoError(t, err)
	out := resp.AsMap()
	assert.Equal(t, map[string]interface{}{
		seeder.DemoAlice: "-30.00",
		seeder.DemoBob:   "80.00",
		seeder.DemoCarol: "-50.00",
	}, out["balances"])
	assert.Len(t, out["transactions"], 2)

	summary, err := client.GetUserSummary(authCtx)
	require.NoError(t, err)
	assert.Equal(t, "50.00", summary.AsMap()["total_owed"])

	_, err = client.Settle(authCtx, "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, codes.NotFound, status.Code(err))
}
