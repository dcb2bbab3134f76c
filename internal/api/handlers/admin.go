package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/maumercado/nntp-queue/internal/logger"
	"github.com/maumercado/nntp-queue/internal/queue"
)

// AdminHandler exposes operational state of the scheduler: pool
// occupancy, transfer speed, and the online switch.
type AdminHandler struct {
	queue *queue.Queue
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(q *queue.Queue) *AdminHandler {
	return &AdminHandler{queue: q}
}

// StatsResponse summarizes task and connection counts.
type StatsResponse struct {
	ActiveTasks  int     `json:"active_tasks"`
	TotalTasks   int     `json:"total_tasks"`
	ActiveConns  int     `json:"active_connections"`
	IdleConns    int     `json:"idle_connections"`
	PendingConns int     `json:"pending_connections"`
	SpeedKiBps   float64 `json:"speed_kibps"`
	Online       bool    `json:"online"`
}

// GetStats handles GET /admin/stats.
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	active, total := h.queue.GetTaskCounts()
	activeConns, idleConns, pendingConns := h.queue.GetConnectionCounts()

	h.respondJSON(w, http.StatusOK, StatsResponse{
		ActiveTasks:  active,
		TotalTasks:   total,
		ActiveConns:  activeConns,
		IdleConns:    idleConns,
		PendingConns: pendingConns,
		SpeedKiBps:   h.queue.GetSpeedKiBps(),
		Online:       h.queue.IsOnline(),
	})
}

// PoolsResponse reports each configured server's connection pool.
type PoolsResponse struct {
	Servers map[string]queue.ServerConnStats `json:"servers"`
}

// GetPools handles GET /admin/pools.
func (h *AdminHandler) GetPools(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, PoolsResponse{Servers: h.queue.GetFullConnectionCounts()})
}

// OnlineRequest toggles the scheduler's online switch.
type OnlineRequest struct {
	Online bool `json:"online"`
}

// OnlineResponse reports the current online switch.
type OnlineResponse struct {
	Online bool `json:"online"`
}

// GetOnline handles GET /admin/online.
func (h *AdminHandler) GetOnline(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, OnlineResponse{Online: h.queue.IsOnline()})
}

// SetOnline handles POST /admin/online. Going online unfreezes
// dispatch for every queued task on the next upkeep tick; going
// offline stops new connections from being acquired without
// disturbing tasks already holding one.
func (h *AdminHandler) SetOnline(w http.ResponseWriter, r *http.Request) {
	var req OnlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.queue.SetOnline(req.Online)
	logger.Info().Bool("online", req.Online).Msg("online switch changed")
	h.respondJSON(w, http.StatusOK, OnlineResponse{Online: req.Online})
}

// HealthCheck handles GET /admin/health.
func (h *AdminHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"online": h.queue.IsOnline(),
	})
}

// RemoveLatestTask handles DELETE /admin/tasks/latest, removing the
// last task in the list regardless of its state.
func (h *AdminHandler) RemoveLatestTask(w http.ResponseWriter, r *http.Request) {
	h.queue.RemoveLatestTask()
	logger.Info().Msg("latest task removed")
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "latest task removed"})
}

func (h *AdminHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (h *AdminHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}
