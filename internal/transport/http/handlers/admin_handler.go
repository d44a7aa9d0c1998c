package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/domain/enums"
	pgrepo "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/repo/postgres"
	authsvc "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/services/auth"
	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/transport/http/dto"
	httperrors "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/transport/http/errors"
)

type AdminHandler struct {
	users    *pgrepo.UserRepo
	payments *pgrepo.PaymentRepo
	logger   *zap.Logger
}

func NewAdminHandler(users *pgrepo.UserRepo, payments *pgrepo.PaymentRepo, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		users:    users,
		payments: payments,
		logger:   logger,
	}
}

// UpdateNotificationPrefs merges category opt-outs into the caller's stored
// preference map. Only filterable categories are accepted; "general" cannot
// be switched off.
func (h *AdminHandler) UpdateNotificationPrefs(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.users == nil {
		writeInternal(w, "STORE_UNAVAILABLE", "user store is unavailable")
		return
	}

	var req dto.NotificationPrefsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_BODY", "request body must be valid JSON")
		return
	}
	if len(req.Prefs) == 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "prefs must not be empty")
		return
	}
	for category := range req.Prefs {
		if !enums.NotificationCategory(category).Filterable() {
			writeBadRequest(w, "VALIDATION_ERROR", "unknown or non-filterable category: "+category)
			return
		}
	}

	if err := h.users.UpdateNotificationPrefs(r.Context(), identity.UserID, req.Prefs); err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			writeNotFound(w, "NOT_FOUND", "user not found")
			return
		}
		h.logger.Error("update notification prefs failed",
			zap.String("user_id", identity.UserID),
			zap.Error(err),
		)
		writeInternal(w, "INTERNAL_ERROR", "failed to update notification preferences")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.NotificationPrefsResponse{OK: true})
}

// GetPayment returns the full payment record, including the fraud review
// sub-record when the asynchronous check has completed.
func (h *AdminHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	if h.payments == nil {
		writeInternal(w, "STORE_UNAVAILABLE", "payment store is unavailable")
		return
	}

	paymentID := chi.URLParam(r, "payment_id")
	rec, err := h.payments.FindByID(r.Context(), paymentID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPaymentNotFound) {
			writeNotFound(w, "NOT_FOUND", "payment not found")
			return
		}
		h.logger.Error("admin payment lookup failed",
			zap.String("payment_id", paymentID),
			zap.Error(err),
		)
		writeInternal(w, "INTERNAL_ERROR", "failed to load payment")
		return
	}

	resp := dto.AdminPaymentResponse{
		ID:           rec.ID,
		BuyerID:      rec.BuyerID,
		InstructorID: rec.InstructorID,
		CourseID:     rec.CourseID,
		CourseTitle:  rec.CourseTitle,
		Amount:       rec.Amount,
		Currency:     rec.Currency,
		Status:       rec.Status,
		CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
	}
	if rec.FraudReview != nil {
		resp.FraudReview = &dto.FraudReviewView{
			IsSuspicious: rec.FraudReview.IsSuspicious,
			RiskScore:    rec.FraudReview.RiskScore,
			Reason:       rec.FraudReview.Reason,
			CheckedAt:    rec.FraudReview.CheckedAt.Format(time.RFC3339),
			Reviewed:     rec.FraudReview.Reviewed,
		}
	}
	httperrors.Write(w, http.StatusOK, resp)
}
