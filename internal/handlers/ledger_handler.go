package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	mW "github.com/ruralpay/orgledger/internal/middleware"
	"github.com/ruralpay/orgledger/internal/services"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxTransactionsLimit = 500

type LedgerHandler struct {
	ledger    *services.LedgerService
	deposits  *services.DepositService
	validator *services.ValidationHelper
	logger    *zap.Logger
}

func NewLedgerHandler(ledger *services.LedgerService, deposits *services.DepositService, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledger:    ledger,
		deposits:  deposits,
		validator: services.NewValidationHelper(),
		logger:    logger,
	}
}

// Register mounts the ledger routes. idempotent guards the deposit POST.
func (h *LedgerHandler) Register(r chi.Router, idempotent func(http.Handler) http.Handler) {
	r.Get("/organizations/{orgId}/balance", h.GetBalance)
	r.Get("/organizations/{orgId}/transactions", h.ListTransactions)
	r.Get("/organizations/{orgId}/reconciliation", h.Reconcile)
	r.Get("/organizations/{orgId}/deposits", h.ListDeposits)
	r.With(mW.RequireRole(mW.RoleBankAdmin), idempotent).Post("/organizations/{orgId}/deposits", h.CreateDeposit)
}

// GetBalance returns the organization's current balance
// @Summary Organization balance
// @Tags Ledger
// @Produce json
// @Security BearerAuth
// @Param orgId path int true "Organization ID"
// @Success 200 {object} object{organizationId=int64,balance=string}
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /organizations/{orgId}/balance [get]
func (h *LedgerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := organizationParam(w, r)
	if !ok {
		return
	}

	balance, err := h.ledger.Balance(r.Context(), orgID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"organizationId": orgID,
		"balance":        balance.StringFixed(2),
	})
}

// ListTransactions returns the organization's ledger in creation order
// @Summary Ledger transactions
// @Tags Ledger
// @Produce json
// @Security BearerAuth
// @Param orgId path int true "Organization ID"
// @Param limit query int false "Most recent N transactions"
// @Success 200 {array} models.Transaction
// @Failure 400 {object} services.ErrorResponse
// @Router /organizations/{orgId}/transactions [get]
func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := organizationParam(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxTransactionsLimit {
			services.SendErrorResponse(w, "limit must be between 1 and 500", http.StatusBadRequest, nil)
			return
		}
		limit = n
	}

	txns, err := h.ledger.Transactions(r.Context(), orgID, limit)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

// Reconcile replays the ledger and compares it with the stored balance
// @Summary Ledger reconciliation
// @Tags Ledger
// @Produce json
// @Security BearerAuth
// @Param orgId path int true "Organization ID"
// @Success 200 {object} models.ReconciliationReport
// @Router /organizations/{orgId}/reconciliation [get]
func (h *LedgerHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := organizationParam(w, r)
	if !ok {
		return
	}

	report, err := h.ledger.Reconcile(r.Context(), orgID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type depositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// CreateDeposit credits funds to an organization
// @Summary Record a deposit
// @Tags Ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param orgId path int true "Organization ID"
// @Param Idempotency-Key header string false "Replay protection key"
// @Param request body object{amount=string} true "Deposit amount"
// @Success 201 {object} models.Deposit
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /organizations/{orgId}/deposits [post]
func (h *LedgerHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	orgID, p, ok := organizationParam(w, r)
	if !ok {
		return
	}

	var req depositRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	deposit, err := h.deposits.Deposit(r.Context(), orgID, req.Amount, p.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, deposit)
}

// ListDeposits returns the organization's deposit records
// @Summary Deposits
// @Tags Ledger
// @Produce json
// @Security BearerAuth
// @Param orgId path int true "Organization ID"
// @Success 200 {array} models.Deposit
// @Router /organizations/{orgId}/deposits [get]
func (h *LedgerHandler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := organizationParam(w, r)
	if !ok {
		return
	}

	deposits, err := h.deposits.List(r.Context(), orgID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, deposits)
}
