package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/simaogato/billsplit-backend/internal/adapter/events"
	grpcadapter "github.com/simaogato/billsplit-backend/internal/adapter/grpc"
	"github.com/simaogato/billsplit-backend/internal/adapter/httpapi"
	"github.com/simaogato/billsplit-backend/internal/adapter/repository/memory"
	"github.com/simaogato/billsplit-backend/internal/adapter/repository/sqlstore"
	"github.com/simaogato/billsplit-backend/internal/config"
	"github.com/simaogato/billsplit-backend/internal/domain"
	"github.com/simaogato/billsplit-backend/internal/logging"
	"github.com/simaogato/billsplit-backend/internal/platform/auth"
	"github.com/simaogato/billsplit-backend/internal/usecase/dashboard"
	"github.com/simaogato/billsplit-backend/internal/usecase/expense"
	"github.com/simaogato/billsplit-backend/internal/usecase/group"
	"github.com/simaogato/billsplit-backend/internal/usecase/guard"
	"github.com/simaogato/billsplit-backend/internal/usecase/seeder"
	"github.com/simaogato/billsplit-backend/internal/usecase/settlement"
	"github.com/simaogato/billsplit-backend/internal/usecase/user"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "billsplit: %v\n", err)
		os.Exit(1)
	}
}

// repositories groups the storage backend chosen by configuration
type repositories struct {
	users    domain.UserRepository
	groups   domain.GroupRepository
	expenses domain.ExpenseRepository
	close    func() error
}

// publisher is an event publisher that owns a connection
type publisher interface {
	domain.EventPublisher
	Close() error
}

func run() error {
	// 1. Configuration and logging
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, logging.Format(cfg.LogFormat))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.UsesDevSecret() {
		logger.Warn("JWT_SECRET is the development default; set it before exposing the server")
	}

	// 2. Storage
	repos, err := openRepositories(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := repos.close(); err != nil {
			logger.Warn("failed to close storage", zap.Error(err))
		}
	}()

	// 3. Event publisher
	pub, err := openPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Warn("failed to close event publisher", zap.Error(err))
		}
	}()

	// 4. Services (use cases)
	policy, err := guard.ParseOverflowPolicy(cfg.ShareOverflowPolicy)
	if err != nil {
		return err
	}
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	ledgerGuard := guard.NewGuard(repos.groups, policy, logger)

	userService := user.NewUserService(repos.users, tokens)
	groupService := group.NewGroupService(repos.groups, repos.users, pub, logger)
	expenseService := expense.NewExpenseService(repos.groups, repos.expenses, ledgerGuard, pub, logger)
	settlementService := settlement.NewSettlementService(repos.groups, repos.expenses, repos.users, logger)
	dashboardService := dashboard.NewDashboardService(repos.groups, settlementService, cfg.SettleConcurrency)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SeedDemo {
		if err := seeder.NewDemoSeeder(repos.users, repos.groups, repos.expenses).Seed(ctx); err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
		logger.Info("demo data seeded", zap.String(logging.FieldGroupID, seeder.DemoGroup))
	}

	// 5. gRPC server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(logger),
			grpcadapter.AuthInterceptor(tokens),
		),
	)
	grpcadapter.NewServer(settlementService, dashboardService).Register(grpcServer)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}

	// 6. HTTP server
	api := httpapi.NewServer(userService, groupService, expenseService, settlementService, dashboardService, tokens, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 7. Run both until a signal arrives, then shut down gracefully
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpclib.ErrServerStopped) {
			return fmt.Errorf("gRPC server: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		grpcServer.GracefulStop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP shutdown: %w", err)
		}
		logger.Info("servers stopped")
		return nil
	})

	return eg.Wait()
}

// openRepositories selects the storage backend, running migrations for SQL backends
func openRepositories(cfg *config.Config, logger *zap.Logger) (*repositories, error) {
	dialect, dsn, ok := cfg.Dialect()
	if !ok {
		store := memory.NewStore()
		logger.Info("using in-memory storage")
		return &repositories{
			users:    store.Users(),
			groups:   store.Groups(),
			expenses: store.Expenses(),
			close:    func() error { return nil },
		}, nil
	}

	db, err := sqlstore.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", dialect, err)
	}
	if err := sqlstore.RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("using SQL storage", zap.String("dialect", string(dialect)))

	store := sqlstore.NewStore(db)
	return &repositories{
		users:    store.Users(),
		groups:   store.Groups(),
		expenses: store.Expenses(),
		close:    store.Close,
	}, nil
}

// openPublisher connects to the broker, or discards events when none is configured
func openPublisher(cfg *config.Config, logger *zap.Logger) (publisher, error) {
	if cfg.AMQPURL == "" {
		return events.NoopPublisher{}, nil
	}
	pub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}
	logger.Info("publishing ledger events", zap.String("exchange", cfg.AMQPExchange))
	return pub, nil
}
