package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	mW "github.com/ruralpay/orgledger/internal/middleware"
	"github.com/ruralpay/orgledger/internal/models"
	"github.com/ruralpay/orgledger/internal/services"
	"github.com/ruralpay/orgledger/internal/storage"
	"go.uber.org/zap"
)

const maxBodyBytes = 1_048_576

// Passthrough is a no-op middleware for routes registered without a guard.
func Passthrough(next http.Handler) http.Handler { return next }

// decodeJSON reads exactly one JSON object into dst and validates it. It
// writes the error response itself and reports whether the caller may go on.
func decodeJSON(w http.ResponseWriter, r *http.Request, v *services.ValidationHelper, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	if err := v.ValidateStruct(dst); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    data,
	})
}

func writeDocument(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// statusFor maps a settlement error onto its HTTP status.
func statusFor(err error) int {
	var (
		insufficient *models.InsufficientFundsError
		duplicate    *models.DuplicateBatchError
		transition   *models.InvalidStateTransitionError
		notFound     *models.NotFoundError
		inactive     *models.InactiveVendorError
		noEmployees  *models.NoEligibleEmployeesError
	)
	switch {
	case errors.As(err, &insufficient):
		return http.StatusPaymentRequired
	case errors.As(err, &duplicate), errors.As(err, &transition), errors.Is(err, storage.ErrDuplicate):
		return http.StatusConflict
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &inactive), errors.As(err, &noEmployees):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNonPositiveAmount),
		errors.Is(err, models.ErrAmountPrecision),
		errors.Is(err, models.ErrInvalidPeriod),
		errors.Is(err, models.ErrRejectionReasonRequired),
		errors.Is(err, models.ErrMissingPaymentID),
		errors.Is(err, models.ErrMissingSource):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
		services.SendErrorResponse(w, "Internal server error", status, nil)
		return
	}
	services.SendErrorResponse(w, err.Error(), status, nil)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// authorize resolves the caller and checks it may act on orgID.
func authorize(w http.ResponseWriter, r *http.Request, orgID int64) (mW.Principal, bool) {
	p, ok := mW.PrincipalFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return p, false
	}
	if err := p.CanAccess(orgID); err != nil {
		services.SendErrorResponse(w, "Forbidden", http.StatusForbidden, nil)
		return p, false
	}
	return p, true
}

// organizationParam reads {orgId} and authorizes the caller for it.
func organizationParam(w http.ResponseWriter, r *http.Request) (int64, mW.Principal, bool) {
	orgID, err := pathID(r, "orgId")
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return 0, mW.Principal{}, false
	}
	p, ok := authorize(w, r, orgID)
	return orgID, p, ok
}
