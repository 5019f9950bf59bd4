package handlers

import (
	"context"
	"net/http"
	"time"

	"babelBridge/api/dto"
)

// Health always reports healthy; it does not look at the translator or disk.
func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, dto.HealthResponse{Status: "healthy"})
}

// Check is one readiness check. Optional checks never fail readiness.
type Check struct {
	Name     string
	Optional bool
	Run      func(ctx context.Context) (string, error)
}

type ReadyHandler struct {
	checks  []Check
	timeout time.Duration
}

func NewReadyHandler(timeout time.Duration, checks ...Check) *ReadyHandler {
	return &ReadyHandler{checks: checks, timeout: timeout}
}

func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := dto.ReadinessResponse{Status: "ready", Checks: make([]dto.ReadinessCheck, 0, len(h.checks))}
	status := http.StatusOK

	for _, c := range h.checks {
		msg, err := c.Run(ctx)
		item := dto.ReadinessCheck{Name: c.Name, OK: err == nil, Message: msg}
		if err != nil {
			item.Message = err.Error()
			if !c.Optional {
				status = http.StatusServiceUnavailable
				resp.Status = "not_ready"
			}
		}
		resp.Checks = append(resp.Checks, item)
	}

	respondJSON(w, status, resp)
}
