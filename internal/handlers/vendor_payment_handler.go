package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	mW "github.com/ruralpay/orgledger/internal/middleware"
	"github.com/ruralpay/orgledger/internal/models"
	"github.com/ruralpay/orgledger/internal/services"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const paymentDateLayout = "2006-01-02"

type VendorPaymentHandler struct {
	payments  *services.VendorPaymentService
	bills     *services.BillService
	validator *services.ValidationHelper
	logger    *zap.Logger
}

func NewVendorPaymentHandler(payments *services.VendorPaymentService, bills *services.BillService, logger *zap.Logger) *VendorPaymentHandler {
	return &VendorPaymentHandler{
		payments:  payments,
		bills:     bills,
		validator: services.NewValidationHelper(),
		logger:    logger,
	}
}

func (h *VendorPaymentHandler) Register(r chi.Router, idempotent func(http.Handler) http.Handler) {
	r.With(mW.RequireRole(mW.RoleOrgAdmin), idempotent).Post("/organizations/{orgId}/vendor-payments", h.CreatePayment)
	r.Get("/organizations/{orgId}/vendor-payments", h.ListPayments)
	r.Get("/vendor-payments/{paymentId}", h.GetPayment)
	r.Get("/vendor-payments/{paymentId}/bill", h.GetBill)
	r.Get("/vendor-payments/{paymentId}/receipt", h.GetReceipt)
	r.Get("/vendor-payments/{paymentId}/advice", h.GetAdvice)
}

type createVendorPaymentRequest struct {
	VendorID    int64           `json:"vendorId" validate:"required,gt=0"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=255"`
	PaymentDate string          `json:"paymentDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// CreatePayment pays a vendor and issues its bill
// @Summary Create and process vendor payment
// @Tags Vendor Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param orgId path int true "Organization ID"
// @Param Idempotency-Key header string false "Replay protection key"
// @Param request body object{vendorId=int64,amount=string,description=string,paymentDate=string} true "Vendor payment"
// @Success 201 {object} services.VendorPaymentResult
// @Failure 402 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /organizations/{orgId}/vendor-payments [post]
func (h *VendorPaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	orgID, p, ok := organizationParam(w, r)
	if !ok {
		return
	}

	var req createVendorPaymentRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	var paymentDate time.Time
	if req.PaymentDate != "" {
		paymentDate, _ = time.Parse(paymentDateLayout, req.PaymentDate)
	}

	result, err := h.payments.CreateAndProcess(r.Context(), services.VendorPaymentRequest{
		OrganizationID: orgID,
		VendorID:       req.VendorID,
		Amount:         req.Amount,
		Description:    req.Description,
		PaymentDate:    paymentDate,
		CreatedBy:      p.UserID,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// ListPayments returns the organization's vendor payments, failed ones included
// @Summary List vendor payments
// @Tags Vendor Payments
// @Produce json
// @Security BearerAuth
// @Param orgId path int true "Organization ID"
// @Success 200 {array} models.VendorPayment
// @Router /organizations/{orgId}/vendor-payments [get]
func (h *VendorPaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := organizationParam(w, r)
	if !ok {
		return
	}

	payments, err := h.payments.List(r.Context(), orgID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (h *VendorPaymentHandler) loadPayment(w http.ResponseWriter, r *http.Request) (*models.VendorPayment, bool) {
	paymentID, err := pathID(r, "paymentId")
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return nil, false
	}
	payment, err := h.payments.Get(r.Context(), paymentID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return nil, false
	}
	if _, ok := authorize(w, r, payment.OrganizationID); !ok {
		return nil, false
	}
	return payment, true
}

// GetPayment returns one vendor payment
// @Summary Get vendor payment
// @Tags Vendor Payments
// @Produce json
// @Security BearerAuth
// @Param paymentId path int true "Payment ID"
// @Success 200 {object} models.VendorPayment
// @Failure 404 {object} services.ErrorResponse
// @Router /vendor-payments/{paymentId} [get]
func (h *VendorPaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	payment, ok := h.loadPayment(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// GetBill returns the bill issued for a processed payment
// @Summary Get bill
// @Tags Vendor Payments
// @Produce json
// @Security BearerAuth
// @Param paymentId path int true "Payment ID"
// @Success 200 {object} models.Bill
// @Failure 404 {object} services.ErrorResponse
// @Router /vendor-payments/{paymentId}/bill [get]
func (h *VendorPaymentHandler) GetBill(w http.ResponseWriter, r *http.Request) {
	payment, ok := h.loadPayment(w, r)
	if !ok {
		return
	}

	bill, err := h.bills.GetByPayment(r.Context(), payment.ID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

// GetReceipt renders the printable bill receipt
// @Summary Bill receipt
// @Tags Vendor Payments
// @Produce html
// @Security BearerAuth
// @Param paymentId path int true "Payment ID"
// @Success 200 {string} string "HTML document"
// @Router /vendor-payments/{paymentId}/receipt [get]
func (h *VendorPaymentHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	payment, ok := h.loadPayment(w, r)
	if !ok {
		return
	}

	doc, err := h.bills.Receipt(r.Context(), payment.ID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeDocument(w, "text/html; charset=utf-8", doc)
}

// GetAdvice returns the ISO 20022 pacs.008 advice of a processed payment
// @Summary ISO 20022 payment advice
// @Tags Vendor Payments
// @Produce xml
// @Security BearerAuth
// @Param paymentId path int true "Payment ID"
// @Success 200 {string} string "pacs.008 XML"
// @Failure 409 {object} services.ErrorResponse
// @Router /vendor-payments/{paymentId}/advice [get]
func (h *VendorPaymentHandler) GetAdvice(w http.ResponseWriter, r *http.Request) {
	payment, ok := h.loadPayment(w, r)
	if !ok {
		return
	}

	advice, err := h.payments.Advice(r.Context(), payment.ID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeDocument(w, "application/xml", []byte(advice))
}
