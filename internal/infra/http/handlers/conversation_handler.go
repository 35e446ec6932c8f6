package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

const maxConversationLimit = 500

type ConversationHandler struct {
	Leads         entity.LeadRepositoryInterface
	Conversations entity.ConversationRepositoryInterface
	Logger        *zap.Logger
}

func NewConversationHandler(leads entity.LeadRepositoryInterface, conversations entity.ConversationRepositoryInterface, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{Leads: leads, Conversations: conversations, Logger: logger}
}

type ConversationResponse struct {
	LeadID  string                     `json:"lead_id"`
	Entries []entity.ConversationEntry `json:"entries"`
}

// GetConversation (GET /leads/{leadId}/conversation?order=&sender=&type=&limit=)
func (h *ConversationHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadId")

	filter, msg := parseConversationFilter(r)
	if msg != "" {
		writeMessage(w, http.StatusBadRequest, "VALIDATION_ERROR", msg)
		return
	}

	if _, err := h.Leads.FindByID(r.Context(), leadID); err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			writeMessage(w, http.StatusNotFound, "LEAD_NOT_FOUND", "lead not found")
			return
		}
		writeError(w, h.Logger, err)
		return
	}

	entries, err := h.Conversations.List(r.Context(), leadID, filter)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if entries == nil {
		entries = []entity.ConversationEntry{}
	}

	writeJSON(w, http.StatusOK, ConversationResponse{LeadID: leadID, Entries: entries})
}

func parseConversationFilter(r *http.Request) (entity.ConversationFilter, string) {
	q := r.URL.Query()
	f := entity.ConversationFilter{Order: entity.OrderAsc}

	switch order := entity.SortOrder(q.Get("order")); order {
	case "", entity.OrderAsc:
	case entity.OrderDesc:
		f.Order = order
	default:
		return f, "order must be asc or desc"
	}

	if s := entity.Sender(q.Get("sender")); s != "" {
		if !s.Valid() {
			return f, "sender must be assistant or user"
		}
		f.Sender = s
	}

	if t := entity.MessageType(q.Get("type")); t != "" {
		if !t.Valid() {
			return f, "unknown message type"
		}
		f.MessageType = t
	}

	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 || n > maxConversationLimit {
			return f, "limit must be between 1 and " + strconv.Itoa(maxConversationLimit)
		}
		f.Limit = n
	}

	return f, ""
}
