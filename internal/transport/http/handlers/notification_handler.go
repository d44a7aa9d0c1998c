package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	pgrepo "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/repo/postgres"
	authsvc "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/services/auth"
	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/transport/http/dto"
	httperrors "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/transport/http/errors"
)

type NotificationHandler struct {
	store *pgrepo.NotificationRepo
}

func NewNotificationHandler(store *pgrepo.NotificationRepo) *NotificationHandler {
	return &NotificationHandler{store: store}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.store == nil {
		writeInternal(w, "NOTIFICATIONS_UNAVAILABLE", "notification store is unavailable")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	records, err := h.store.ListForUser(r.Context(), identity.UserID, limit)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to list notifications")
		return
	}

	views := make([]dto.NotificationView, 0, len(records))
	for _, rec := range records {
		views = append(views, dto.NotificationView{
			ID:        rec.ID,
			Text:      rec.Text,
			Link:      rec.Link,
			Category:  rec.Category,
			Read:      rec.Read,
			CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	httperrors.Write(w, http.StatusOK, dto.NotificationListResponse{Notifications: views})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.store == nil {
		writeInternal(w, "NOTIFICATIONS_UNAVAILABLE", "notification store is unavailable")
		return
	}

	notificationID := chi.URLParam(r, "id")
	if err := h.store.MarkRead(r.Context(), identity.UserID, notificationID); err != nil {
		if errors.Is(err, pgrepo.ErrNotificationNotFound) {
			writeNotFound(w, "NOT_FOUND", "notification not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to mark notification read")
		return
	}
	httperrors.Write(w, http.StatusOK, dto.MarkReadResponse{OK: true})
}
