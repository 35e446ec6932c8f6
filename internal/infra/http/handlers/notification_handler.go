package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type NotificationHandler struct {
	Notifications entity.NotificationRepositoryInterface
	Logger        *zap.Logger
}

func NewNotificationHandler(repo entity.NotificationRepositoryInterface, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{Notifications: repo, Logger: logger}
}

// List (GET /users/{userId}/notifications?unread=true)
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	unreadOnly := r.URL.Query().Get("unread") == "true"

	list, err := h.Notifications.ListByUser(r.Context(), userID, unreadOnly)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if list == nil {
		list = []entity.Notification{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"notifications": list})
}

// MarkRead (POST /users/{userId}/notifications/{id}/read)
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	id := chi.URLParam(r, "id")

	if err := h.Notifications.MarkRead(r.Context(), userID, id); err != nil {
		if errors.Is(err, entity.ErrNotificationNotFound) {
			writeMessage(w, http.StatusNotFound, "NOTIFICATION_NOT_FOUND", "notification not found")
			return
		}
		writeError(w, h.Logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
