package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/simaogato/billsplit-backend/internal/logging"
	"github.com/simaogato/billsplit-backend/internal/usecase/dashboard"
	"github.com/simaogato/billsplit-backend/internal/usecase/expense"
	"github.com/simaogato/billsplit-backend/internal/usecase/group"
	"github.com/simaogato/billsplit-backend/internal/usecase/settlement"
	"github.com/simaogato/billsplit-backend/internal/usecase/user"
)

// Server exposes the use cases as a JSON API
type Server struct {
	UserService       *user.UserService
	GroupService      *group.GroupService
	ExpenseService    *expense.ExpenseService
	SettlementService *settlement.SettlementService
	DashboardService  *dashboard.DashboardService
	Tokens            TokenVerifier

	logger *zap.Logger
}

// NewServer creates a new HTTP API server instance
func NewServer(
	userService *user.UserService,
	groupService *group.GroupService,
	expenseService *expense.ExpenseService,
	settlementService *settlement.SettlementService,
	dashboardService *dashboard.DashboardService,
	tokens TokenVerifier,
	logger *zap.Logger,
) *Server {
	return &Server{
		UserService:       userService,
		GroupService:      groupService,
		ExpenseService:    expenseService,
		SettlementService: settlementService,
		DashboardService:  dashboardService,
		Tokens:            tokens,
		logger:            logging.Component(logger, "http"),
	}
}

// Handler builds the router wrapped in CORS handling for the given origins
func (s *Server) Handler(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(s.Tokens))

			r.Get("/users/me", s.handleMe)

			r.Route("/groups", func(r chi.Router) {
				r.Post("/", s.handleCreateGroup)
				r.Get("/", s.handleListGroups)
				r.Route("/{groupID}", func(r chi.Router) {
					r.Get("/", s.handleGetGroup)
					r.Put("/", s.handleUpdateGroup)
					r.Delete("/", s.handleDeleteGroup)
					r.Post("/members", s.handleAddMember)
					r.Delete("/members/{userID}", s.handleRemoveMember)
				})
			})

			r.Route("/expenses", func(r chi.Router) {
				r.Post("/", s.handleCreateExpense)
				r.Get("/group/{groupID}", s.handleListGroupExpenses)
				r.Get("/user/{userID}", s.handleListUserExpenses)
				r.Get("/{expenseID}", s.handleGetExpense)
				r.Put("/{expenseID}", s.handleUpdateExpense)
				r.Delete("/{expenseID}", s.handleDeleteExpense)
			})

			r.Get("/settlements/{groupID}", s.handleSettle)
			r.Get("/dashboard", s.handleDashboard)
		})
	})

	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}).Handler(r)
}
