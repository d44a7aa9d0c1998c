package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/infra/paygate"
	authsvc "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/services/auth"
	enrollsvc "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/services/enrollments"
	paymentsvc "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/services/payments"
	ratesvc "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/services/rate"
	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/transport/http/dto"
	httperrors "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/transport/http/errors"
)

type PaymentHandler struct {
	payments *paymentsvc.Service
	limiter  *ratesvc.Limiter
	logger   *zap.Logger
}

func NewPaymentHandler(payments *paymentsvc.Service, limiter *ratesvc.Limiter, logger *zap.Logger) *PaymentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentHandler{
		payments: payments,
		limiter:  limiter,
		logger:   logger,
	}
}

func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.payments == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	if h.limiter != nil {
		retryAfter, allowed, err := h.limiter.AllowVerify(r.Context(), identity.UserID)
		if err != nil {
			h.logger.Warn("verify rate limiter unavailable", zap.Error(err))
		} else if !allowed {
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
				Code:          "TOO_MANY_REQUESTS",
				Message:       "too many verification attempts",
				RetryAfterSec: retryAfter,
			})
			return
		}
	}

	transactionID := chi.URLParam(r, "transaction_id")
	result, err := h.payments.ProcessPayment(r.Context(), identity.UserID, transactionID)
	if err != nil {
		h.writeProcessError(w, transactionID, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PaymentVerifyResponse{
		TransactionID:    result.TransactionID,
		BuyerID:          result.BuyerID,
		CourseID:         result.CourseID,
		CourseTitle:      result.CourseTitle,
		Amount:           result.Amount,
		Currency:         result.Currency,
		AlreadyProcessed: result.AlreadyProcessed,
	})
}

func (h *PaymentHandler) writeProcessError(w http.ResponseWriter, transactionID string, err error) {
	var gatewayErr *paygate.APIError
	switch {
	case errors.Is(err, paymentsvc.ErrValidation), errors.Is(err, enrollsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid transaction id")
	case errors.Is(err, paygate.ErrNotConfigured):
		httperrors.Write(w, http.StatusServiceUnavailable, httperrors.APIError{
			Code:    "GATEWAY_NOT_CONFIGURED",
			Message: "payment gateway is not configured",
		})
	case errors.As(err, &gatewayErr):
		httperrors.Write(w, http.StatusBadGateway, httperrors.APIError{
			Code:    "GATEWAY_ERROR",
			Message: gatewayErr.Status,
		})
	case errors.Is(err, paymentsvc.ErrPaymentNotConfirmed):
		writeBadRequest(w, "PAYMENT_NOT_CONFIRMED", "the gateway did not confirm this payment")
	case errors.Is(err, enrollsvc.ErrIncompleteMetadata):
		writeBadRequest(w, "INCOMPLETE_METADATA", "checkout metadata is missing buyer or course")
	case errors.Is(err, enrollsvc.ErrBuyerNotFound), errors.Is(err, enrollsvc.ErrCourseNotFound):
		writeNotFound(w, "NOT_FOUND", "buyer or course no longer exists")
	default:
		h.logger.Error("process payment failed",
			zap.String("transaction_id", transactionID),
			zap.Error(err),
		)
		writeInternal(w, "INTERNAL_ERROR", "failed to process payment")
	}
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeNotFound(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusNotFound, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}
