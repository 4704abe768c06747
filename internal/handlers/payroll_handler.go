package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mW "github.com/ruralpay/orgledger/internal/middleware"
	"github.com/ruralpay/orgledger/internal/models"
	"github.com/ruralpay/orgledger/internal/services"
	"go.uber.org/zap"
)

type PayrollHandler struct {
	service   *services.PayrollService
	validator *services.ValidationHelper
	logger    *zap.Logger
}

func NewPayrollHandler(service *services.PayrollService, logger *zap.Logger) *PayrollHandler {
	return &PayrollHandler{
		service:   service,
		validator: services.NewValidationHelper(),
		logger:    logger,
	}
}

// Register mounts the payroll routes. Organization admins submit batches,
// bank admins approve or reject them.
func (h *PayrollHandler) Register(r chi.Router) {
	r.With(mW.RequireRole(mW.RoleOrgAdmin)).Post("/organizations/{orgId}/payroll-batches", h.CreateBatch)
	r.Get("/organizations/{orgId}/payroll-batches", h.ListBatches)
	r.Get("/payroll-batches/{batchId}", h.GetBatch)
	r.Get("/payroll-batches/{batchId}/statement", h.GetStatement)
	r.With(mW.RequireRole(mW.RoleBankAdmin)).Post("/payroll-batches/{batchId}/approve", h.ApproveBatch)
	r.With(mW.RequireRole(mW.RoleBankAdmin)).Post("/payroll-batches/{batchId}/reject", h.RejectBatch)
}

type createBatchRequest struct {
	Month int `json:"month" validate:"required,min=1,max=12"`
	Year  int `json:"year" validate:"required,gte=2000,lte=2100"`
}

// CreateBatch snapshots eligible employees into a batch awaiting approval
// @Summary Create payroll batch
// @Tags Payroll
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param orgId path int true "Organization ID"
// @Param request body object{month=int,year=int} true "Payroll period"
// @Success 201 {object} models.PayrollBatch
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /organizations/{orgId}/payroll-batches [post]
func (h *PayrollHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	orgID, p, ok := organizationParam(w, r)
	if !ok {
		return
	}

	var req createBatchRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	batch, err := h.service.Create(r.Context(), orgID, req.Month, req.Year, p.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, batch)
}

// ListBatches returns the organization's payroll batches
// @Summary List payroll batches
// @Tags Payroll
// @Produce json
// @Security BearerAuth
// @Param orgId path int true "Organization ID"
// @Success 200 {array} models.PayrollBatch
// @Router /organizations/{orgId}/payroll-batches [get]
func (h *PayrollHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := organizationParam(w, r)
	if !ok {
		return
	}

	batches, err := h.service.List(r.Context(), orgID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, batches)
}

// loadBatch reads {batchId} and checks the caller may see the batch.
func (h *PayrollHandler) loadBatch(w http.ResponseWriter, r *http.Request) (*models.PayrollBatch, mW.Principal, bool) {
	batchID, err := pathID(r, "batchId")
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return nil, mW.Principal{}, false
	}
	batch, err := h.service.Get(r.Context(), batchID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return nil, mW.Principal{}, false
	}
	p, ok := authorize(w, r, batch.OrganizationID)
	return batch, p, ok
}

// GetBatch returns one payroll batch with its lines
// @Summary Get payroll batch
// @Tags Payroll
// @Produce json
// @Security BearerAuth
// @Param batchId path int true "Batch ID"
// @Success 200 {object} models.PayrollBatch
// @Failure 404 {object} services.ErrorResponse
// @Router /payroll-batches/{batchId} [get]
func (h *PayrollHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batch, _, ok := h.loadBatch(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

// GetStatement renders the printable batch statement
// @Summary Payroll statement
// @Tags Payroll
// @Produce html
// @Security BearerAuth
// @Param batchId path int true "Batch ID"
// @Success 200 {string} string "HTML document"
// @Router /payroll-batches/{batchId}/statement [get]
func (h *PayrollHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	batch, _, ok := h.loadBatch(w, r)
	if !ok {
		return
	}

	doc, err := h.service.Statement(r.Context(), batch.ID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeDocument(w, "text/html; charset=utf-8", doc)
}

// ApproveBatch debits the organization and completes the batch
// @Summary Approve payroll batch
// @Tags Payroll
// @Produce json
// @Security BearerAuth
// @Param batchId path int true "Batch ID"
// @Success 200 {object} models.PayrollBatch
// @Failure 402 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /payroll-batches/{batchId}/approve [post]
func (h *PayrollHandler) ApproveBatch(w http.ResponseWriter, r *http.Request) {
	batch, p, ok := h.loadBatch(w, r)
	if !ok {
		return
	}

	approved, err := h.service.Approve(r.Context(), batch.ID, p.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, approved)
}

type rejectBatchRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// RejectBatch closes a pending batch without touching the ledger
// @Summary Reject payroll batch
// @Tags Payroll
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param batchId path int true "Batch ID"
// @Param request body object{reason=string} true "Rejection reason"
// @Success 200 {object} models.PayrollBatch
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /payroll-batches/{batchId}/reject [post]
func (h *PayrollHandler) RejectBatch(w http.ResponseWriter, r *http.Request) {
	batch, p, ok := h.loadBatch(w, r)
	if !ok {
		return
	}

	var req rejectBatchRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	rejected, err := h.service.Reject(r.Context(), batch.ID, p.UserID, req.Reason)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rejected)
}
