package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/simaogato/billsplit-backend/internal/platform/auth"
	"github.com/simaogato/billsplit-backend/internal/usecase/expense"
	"github.com/simaogato/billsplit-backend/internal/usecase/group"
	"github.com/simaogato/billsplit-backend/internal/usecase/user"
)

// currentUser returns the user ID placed in the context by authMiddleware
func currentUser(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	reg, err := s.UserService.Register(r.Context(), user.RegisterInput{Username: req.Username, Email: req.Email})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{User: toUserResponse(reg.User), Token: reg.Token})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.UserService.GetUser(r.Context(), currentUser(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// Groups

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	g, err := s.GroupService.CreateGroup(r.Context(), group.CreateGroupInput{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     currentUser(r),
		MemberIDs:   req.MemberIDs,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupResponse(g))
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.GroupService.ListUserGroups(r.Context(), currentUser(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, toGroupResponse(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	g, err := s.GroupService.GetGroup(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(g))
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	var req updateGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	update, err := req.toUpdate()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	g, err := s.GroupService.UpdateGroup(r.Context(), chi.URLParam(r, "groupID"), update)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(g))
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.GroupService.DeleteGroup(r.Context(), chi.URLParam(r, "groupID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	groupID := chi.URLParam(r, "groupID")
	added, err := s.GroupService.AddMember(r.Context(), groupID, req.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, membershipResponse{GroupID: groupID, UserID: req.UserID, Changed: added})
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	userID := chi.URLParam(r, "userID")
	removed, err := s.GroupService.RemoveMember(r.Context(), groupID, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, membershipResponse{GroupID: groupID, UserID: userID, Changed: removed})
}

// Expenses

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.PayerID == "" {
		req.PayerID = currentUser(r)
	}

	e, err := s.ExpenseService.AddExpense(r.Context(), expense.AddExpenseInput{
		GroupID:      req.GroupID,
		Description:  req.Description,
		PayerID:      req.PayerID,
		Amount:       req.Amount,
		Participants: toParticipants(req.Participants),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseResponse(e))
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.ExpenseService.GetExpense(r.Context(), chi.URLParam(r, "expenseID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponse(e))
}

func (s *Server) handleListGroupExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.ExpenseService.ListGroupExpenses(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseList(expenses))
}

func (s *Server) handleListUserExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.ExpenseService.ListUserExpenses(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseList(expenses))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req updateExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	update, err := req.toUpdate()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	e, err := s.ExpenseService.UpdateExpense(r.Context(), chi.URLParam(r, "expenseID"), update)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponse(e))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.ExpenseService.DeleteExpense(r.Context(), chi.URLParam(r, "expenseID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Settlement

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	result, err := s.SettlementService.Settle(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlementResponse(result))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := s.DashboardService.GetUserSummary(r.Context(), currentUser(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardResponse(summary))
}
