package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/infra/worker"
)

type Triggerer interface {
	Trigger(name string) error
}

// AdminHandler starts out-of-schedule ticks. Runs go through the same
// overlap guard as scheduled ticks.
type AdminHandler struct {
	Scheduler Triggerer
	Logger    *zap.Logger
}

func NewAdminHandler(s Triggerer, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{Scheduler: s, Logger: logger}
}

// RunFollowUps (POST /admin/followups/run)
func (h *AdminHandler) RunFollowUps(w http.ResponseWriter, r *http.Request) {
	h.run(w, worker.FollowUpJobName)
}

// RunUsage (POST /admin/usage/run)
func (h *AdminHandler) RunUsage(w http.ResponseWriter, r *http.Request) {
	h.run(w, worker.UsageJobName)
}

func (h *AdminHandler) run(w http.ResponseWriter, job string) {
	err := h.Scheduler.Trigger(job)
	switch {
	case err == nil:
		h.Logger.Info("manual tick started", zap.String("job", job))
		writeJSON(w, http.StatusAccepted, map[string]string{"job": job, "status": "started"})
	case errors.Is(err, worker.ErrTickInProgress):
		writeMessage(w, http.StatusConflict, "TICK_IN_PROGRESS", "a tick of this job is already running")
	case errors.Is(err, worker.ErrNotRunning):
		writeMessage(w, http.StatusServiceUnavailable, "SCHEDULER_STOPPED", "scheduler is not running")
	default:
		writeError(w, h.Logger, err)
	}
}
