package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/oapi-codegen/nullable"
	"github.com/shopspring/decimal"

	"github.com/simaogato/billsplit-backend/internal/domain"
	"github.com/simaogato/billsplit-backend/internal/usecase/dashboard"
)

var errBadRequest = errors.New("bad request")

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", errBadRequest, err)
	}
	return nil
}

// Requests

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type createGroupRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	MemberIDs   []string `json:"member_ids"`
}

// updateGroupRequest distinguishes absent fields from explicit nulls
type updateGroupRequest struct {
	Name        nullable.Nullable[string] `json:"name"`
	Description nullable.Nullable[string] `json:"description"`
}

func (req updateGroupRequest) toUpdate() (domain.GroupUpdate, error) {
	var update domain.GroupUpdate
	name, err := requiredField("name", req.Name)
	if err != nil {
		return update, err
	}
	update.Name = name
	update.Description = clearableString(req.Description)
	return update, nil
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
}

type participantBody struct {
	UserID      string           `json:"user_id"`
	ShareAmount *decimal.Decimal `json:"share_amount,omitempty"`
}

type createExpenseRequest struct {
	GroupID      string            `json:"group_id"`
	Description  string            `json:"description"`
	PayerID      string            `json:"payer_id"`
	Amount       decimal.Decimal   `json:"amount"`
	Participants []participantBody `json:"participants"`
}

// updateExpenseRequest distinguishes absent fields from explicit nulls
// A null description clears it, every other field rejects null
type updateExpenseRequest struct {
	Description  nullable.Nullable[string]            `json:"description"`
	PayerID      nullable.Nullable[string]            `json:"payer_id"`
	Amount       nullable.Nullable[decimal.Decimal]   `json:"amount"`
	Participants nullable.Nullable[[]participantBody] `json:"participants"`
}

func (req updateExpenseRequest) toUpdate() (domain.ExpenseUpdate, error) {
	var update domain.ExpenseUpdate
	var err error

	update.Description = clearableString(req.Description)
	if update.PayerID, err = requiredField("payer_id", req.PayerID); err != nil {
		return update, err
	}
	if update.Amount, err = requiredField("amount", req.Amount); err != nil {
		return update, err
	}
	participants, err := requiredField("participants", req.Participants)
	if err != nil {
		return update, err
	}
	if participants != nil {
		converted := toParticipants(*participants)
		update.Participants = &converted
	}
	return update, nil
}

func toParticipants(body []participantBody) []domain.Participant {
	out := make([]domain.Participant, 0, len(body))
	for _, p := range body {
		out = append(out, domain.Participant{UserID: p.UserID, ShareAmount: p.ShareAmount})
	}
	return out
}

// requiredField returns nil when absent and rejects an explicit null
func requiredField[T any](name string, n nullable.Nullable[T]) (*T, error) {
	if !n.IsSpecified() {
		return nil, nil
	}
	if n.IsNull() {
		return nil, fmt.Errorf("%w: %s cannot be null", errBadRequest, name)
	}
	v, err := n.Get()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errBadRequest, name, err)
	}
	return &v, nil
}

// clearableString maps an explicit null onto the empty string
func clearableString(n nullable.Nullable[string]) *string {
	if !n.IsSpecified() {
		return nil
	}
	if n.IsNull() {
		empty := ""
		return &empty
	}
	v, _ := n.Get()
	return &v
}

// Responses

func money(d decimal.Decimal) string { return d.StringFixed(2) }

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}

type registerResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

type groupResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id"`
	Members     []string  `json:"members"`
	CreatedAt   time.Time `json:"created_at"`
}

func toGroupResponse(g *domain.Group) groupResponse {
	members := g.Members
	if members == nil {
		members = []string{}
	}
	return groupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		OwnerID:     g.OwnerID,
		Members:     members,
		CreatedAt:   g.CreatedAt,
	}
}

type membershipResponse struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
	Changed bool   `json:"changed"`
}

type participantResponse struct {
	UserID      string  `json:"user_id"`
	ShareAmount *string `json:"share_amount,omitempty"`
}

type expenseResponse struct {
	ID           string                `json:"id"`
	GroupID      string                `json:"group_id"`
	Description  string                `json:"description"`
	PayerID      string                `json:"payer_id"`
	Amount       string                `json:"amount"`
	Participants []participantResponse `json:"participants"`
	CreatedAt    time.Time             `json:"created_at"`
}

func toExpenseResponse(e *domain.Expense) expenseResponse {
	participants := make([]participantResponse, 0, len(e.Participants))
	for _, p := range e.Participants {
		pr := participantResponse{UserID: p.UserID}
		if p.ShareAmount != nil {
			s := money(*p.ShareAmount)
			pr.ShareAmount = &s
		}
		participants = append(participants, pr)
	}
	return expenseResponse{
		ID:           e.ID,
		GroupID:      e.GroupID,
		Description:  e.Description,
		PayerID:      e.PayerID,
		Amount:       money(e.Amount),
		Participants: participants,
		CreatedAt:    e.CreatedAt,
	}
}

func toExpenseList(expenses []domain.Expense) []expenseResponse {
	out := make([]expenseResponse, 0, len(expenses))
	for i := range expenses {
		out = append(out, toExpenseResponse(&expenses[i]))
	}
	return out
}

type transactionResponse struct {
	PayerID      string `json:"payer_id"`
	PayerName    string `json:"payer_name"`
	ReceiverID   string `json:"receiver_id"`
	ReceiverName string `json:"receiver_name"`
	Amount       string `json:"amount"`
}

func toTransactions(transactions []domain.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		out = append(out, transactionResponse{
			PayerID:      tx.PayerID,
			PayerName:    tx.PayerName,
			ReceiverID:   tx.ReceiverID,
			ReceiverName: tx.ReceiverName,
			Amount:       money(tx.Amount),
		})
	}
	return out
}

type anomalyResponse struct {
	Kind      string `json:"kind"`
	ExpenseID string `json:"expense_id"`
	UserID    string `json:"user_id,omitempty"`
	Detail    string `json:"detail"`
}

type settlementResponse struct {
	GroupID      string                `json:"group_id"`
	Balances     map[string]string     `json:"balances"`
	Transactions []transactionResponse `json:"transactions"`
	Anomalies    []anomalyResponse     `json:"anomalies"`
}

func toSettlementResponse(result *domain.SettlementResult) settlementResponse {
	balances := make(map[string]string, len(result.Balances))
	for id, b := range result.Balances {
		balances[id] = money(b)
	}
	anomalies := make([]anomalyResponse, 0, len(result.Anomalies))
	for _, a := range result.Anomalies {
		anomalies = append(anomalies, anomalyResponse{
			Kind:      string(a.Kind),
			ExpenseID: a.ExpenseID,
			UserID:    a.UserID,
			Detail:    a.Detail,
		})
	}
	return settlementResponse{
		GroupID:      result.GroupID,
		Balances:     balances,
		Transactions: toTransactions(result.Transactions),
		Anomalies:    anomalies,
	}
}

type groupSummaryResponse struct {
	GroupID      string                `json:"group_id"`
	GroupName    string                `json:"group_name"`
	Balance      string                `json:"balance"`
	Transactions []transactionResponse `json:"transactions"`
}

type dashboardResponse struct {
	UserID       string                 `json:"user_id"`
	Groups       []groupSummaryResponse `json:"groups"`
	TotalOwed    string                 `json:"total_owed"`
	TotalOwedTo  string                 `json:"total_owed_to"`
	NetBalance   string                 `json:"net_balance"`
	AnomalyCount int                    `json:"anomaly_count"`
}

func toDashboardResponse(summary *dashboard.UserSummary) dashboardResponse {
	groups := make([]groupSummaryResponse, 0, len(summary.Groups))
	for _, g := range summary.Groups {
		groups = append(groups, groupSummaryResponse{
			GroupID:      g.GroupID,
			GroupName:    g.GroupName,
			Balance:      money(g.Balance),
			Transactions: toTransactions(g.Transactions),
		})
	}
	return dashboardResponse{
		UserID:       summary.UserID,
		Groups:       groups,
		TotalOwed:    money(summary.TotalOwed),
		TotalOwedTo:  money(summary.TotalOwedTo),
		NetBalance:   money(summary.NetBalance),
		AnomalyCount: summary.AnomalyCount,
	}
}
