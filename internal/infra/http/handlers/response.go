package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Success: false, Code: code, Message: message})
}

// writeError maps use case errors onto status codes. Anything that is not a
// DomainError is logged and reported as a 500 without its details.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var domainErr *usecase.DomainError
	if errors.As(err, &domainErr) {
		writeMessage(w, domainStatus(domainErr.Code), domainErr.Code, domainErr.Message)
		return
	}

	logger.Error("request failed", zap.Error(err))
	writeMessage(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
}

func domainStatus(code string) int {
	switch code {
	case "LEAD_NOT_FOUND", "NOTIFICATION_NOT_FOUND":
		return http.StatusNotFound
	case "LEAD_ALREADY_EXISTS":
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
