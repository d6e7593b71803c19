package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"parkspot-backend/internal/discount"
	"parkspot-backend/internal/domain"
	"parkspot-backend/internal/logger"
	"parkspot-backend/internal/pricing"
	"parkspot-backend/internal/repository"
	"parkspot-backend/internal/security"
	"parkspot-backend/internal/service"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

var validationErrors = []error{
	errBadRequest,
	domain.ErrInvalidMoney,
	domain.ErrInvalidCurrency,
	domain.ErrCurrencyMismatch,
	domain.ErrNegativeMoney,
	domain.ErrInvalidFactor,
	domain.ErrInvalidPercentage,
	domain.ErrInvalidTimeRange,
	domain.ErrInvalidCoordinates,
	domain.ErrInvalidAddress,
	domain.ErrInvalidIdentifier,
	domain.ErrInvalidRule,
	domain.ErrConditionIndex,
}

type errorResponse struct {
	Error  string          `json:"error"`
	Issues []IssueResponse `json:"issues,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, discount.ErrRuleNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, security.ErrInvalidToken), errors.Is(err, security.ErrExpiredToken):
		return http.StatusUnauthorized
	case errors.Is(err, security.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, pricing.ErrMissingBaseRate):
		return http.StatusUnprocessableEntity
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}

	var verr *service.RuleValidationError
	if errors.As(err, &verr) {
		resp.Issues = toIssueResponses(verr.Issues)
	}

	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		resp.Error = http.StatusText(status)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads a single JSON object, keeping numbers exact.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
