package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	pgrepo "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/repo/postgres"
	authsvc "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/services/auth"
	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/transport/http/dto"
	httperrors "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/transport/http/errors"
)

type EnrollmentHandler struct {
	enrollments *pgrepo.EnrollmentRepo
	logger      *zap.Logger
}

func NewEnrollmentHandler(enrollments *pgrepo.EnrollmentRepo, logger *zap.Logger) *EnrollmentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentHandler{
		enrollments: enrollments,
		logger:      logger,
	}
}

func (h *EnrollmentHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.enrollments == nil {
		writeInternal(w, "STORE_UNAVAILABLE", "enrollment store is unavailable")
		return
	}

	records, err := h.enrollments.ListForBuyer(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("list enrollments failed",
			zap.String("user_id", identity.UserID),
			zap.Error(err),
		)
		writeInternal(w, "INTERNAL_ERROR", "failed to list enrollments")
		return
	}

	views := make([]dto.EnrollmentView, 0, len(records))
	for _, rec := range records {
		views = append(views, dto.EnrollmentView{
			ID:         rec.ID,
			CourseID:   rec.CourseID,
			Progress:   rec.Progress,
			PricePaid:  rec.PricePaid,
			EnrolledAt: rec.EnrolledAt.Format(time.RFC3339),
		})
	}
	httperrors.Write(w, http.StatusOK, dto.EnrollmentListResponse{Enrollments: views})
}
