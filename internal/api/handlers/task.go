package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maumercado/nntp-queue/internal/logger"
	"github.com/maumercado/nntp-queue/internal/queue"
	"github.com/maumercado/nntp-queue/internal/task"
	"github.com/maumercado/nntp-queue/internal/tasklist"
)

// TaskHandler handles task-related HTTP requests.
type TaskHandler struct {
	queue *queue.Queue
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(q *queue.Queue) *TaskHandler {
	return &TaskHandler{queue: q}
}

// CreateTaskRequest describes a task to enqueue. Which fields apply
// depends on Type: "article" needs Group/MessageID/Servers, "post"
// needs Body/Servers, "header-fetch" needs Group/Low/High/Servers.
type CreateTaskRequest struct {
	Type      string   `json:"type"`
	Group     string   `json:"group,omitempty"`
	MessageID string   `json:"message_id,omitempty"`
	Servers   []string `json:"servers"`
	Body      []byte   `json:"body,omitempty"`
	Low       int      `json:"low,omitempty"`
	High      int      `json:"high,omitempty"`
	Top       bool     `json:"top,omitempty"`
}

// TaskResponse is the API's view of a task.Task.
type TaskResponse struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Work    string   `json:"work"`
	Health  string   `json:"health"`
	Servers []string `json:"servers"`
	Active  bool     `json:"active"`
}

func toResponse(t task.Task, active bool) TaskResponse {
	state := t.GetState()
	return TaskResponse{
		ID:      t.ID(),
		Type:    t.GetType(),
		Work:    state.Work.String(),
		Health:  state.Health.String(),
		Servers: state.Servers,
		Active:  active,
	}
}

// singleTaskResponse looks up t's bucket once, for endpoints that
// return exactly one task rather than the full partitioned list.
func (h *TaskHandler) singleTaskResponse(t task.Task) TaskResponse {
	states := h.queue.GetAllTaskStates()
	for _, running := range states.Running {
		if running.ID() == t.ID() {
			return toResponse(t, true)
		}
	}
	return toResponse(t, false)
}

// Create handles POST /api/v1/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Type == "" {
		h.respondError(w, http.StatusBadRequest, "task type is required")
		return
	}
	if len(req.Servers) == 0 {
		h.respondError(w, http.StatusBadRequest, "at least one server is required")
		return
	}

	var t task.Task
	switch req.Type {
	case "article":
		if req.MessageID == "" {
			h.respondError(w, http.StatusBadRequest, "message_id is required for article tasks")
			return
		}
		if h.queue.Contains(req.MessageID) {
			h.respondError(w, http.StatusConflict, "message_id already queued")
			return
		}
		t = task.NewArticleTask(req.Group, req.MessageID, req.Servers)
	case "post":
		if len(req.Body) == 0 {
			h.respondError(w, http.StatusBadRequest, "body is required for post tasks")
			return
		}
		t = task.NewPostTask(req.Body, req.Servers)
	case "header-fetch":
		if req.Group == "" || req.Low > req.High {
			h.respondError(w, http.StatusBadRequest, "group and a valid low/high range are required")
			return
		}
		t = task.NewHeaderFetchTask(req.Group, req.Low, req.High, req.Servers)
	default:
		h.respondError(w, http.StatusBadRequest, "unknown task type: "+req.Type)
		return
	}

	mode := tasklist.Bottom
	if req.Top {
		mode = tasklist.Top
	}
	h.queue.AddTask(t, mode)

	logger.WithTask(t.ID()).Info().Str("type", t.GetType()).Msg("task created")
	h.respondJSON(w, http.StatusCreated, h.singleTaskResponse(t))
}

// Get handles GET /api/v1/tasks/{taskID}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	if taskID == "" {
		h.respondError(w, http.StatusBadRequest, "task ID is required")
		return
	}

	t, ok := h.queue.GetTask(taskID)
	if !ok {
		h.respondError(w, http.StatusNotFound, "task not found")
		return
	}

	h.respondJSON(w, http.StatusOK, h.singleTaskResponse(t))
}

// Remove handles DELETE /api/v1/tasks/{taskID}.
func (h *TaskHandler) Remove(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	if taskID == "" {
		h.respondError(w, http.StatusBadRequest, "task ID is required")
		return
	}

	t, ok := h.queue.GetTask(taskID)
	if !ok {
		h.respondError(w, http.StatusNotFound, "task not found")
		return
	}

	h.queue.RemoveTask(t)
	logger.WithTask(taskID).Info().Msg("task removed")
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "task removed", "task_id": taskID})
}

// Stop handles POST /api/v1/tasks/{taskID}/stop.
func (h *TaskHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.withTask(w, r, func(t task.Task) {
		h.queue.StopTasks([]task.Task{t})
		h.respondJSON(w, http.StatusOK, h.singleTaskResponse(t))
	})
}

// Restart handles POST /api/v1/tasks/{taskID}/restart.
func (h *TaskHandler) Restart(w http.ResponseWriter, r *http.Request) {
	h.withTask(w, r, func(t task.Task) {
		h.queue.RestartTasks([]task.Task{t})
		h.respondJSON(w, http.StatusOK, h.singleTaskResponse(t))
	})
}

// MoveRequest selects the reordering operation for POST /tasks/{taskID}/move.
type MoveRequest struct {
	Direction string `json:"direction"` // up, down, top, bottom
}

// Move handles POST /api/v1/tasks/{taskID}/move.
func (h *TaskHandler) Move(w http.ResponseWriter, r *http.Request) {
	h.withTask(w, r, func(t task.Task) {
		var req MoveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		tasks := []task.Task{t}
		switch req.Direction {
		case "up":
			h.queue.MoveUp(tasks)
		case "down":
			h.queue.MoveDown(tasks)
		case "top":
			h.queue.MoveTop(tasks)
		case "bottom":
			h.queue.MoveBottom(tasks)
		default:
			h.respondError(w, http.StatusBadRequest, "direction must be one of up, down, top, bottom")
			return
		}

		h.respondJSON(w, http.StatusOK, h.singleTaskResponse(t))
	})
}

func (h *TaskHandler) withTask(w http.ResponseWriter, r *http.Request, fn func(t task.Task)) {
	taskID := chi.URLParam(r, "taskID")
	if taskID == "" {
		h.respondError(w, http.StatusBadRequest, "task ID is required")
		return
	}

	t, ok := h.queue.GetTask(taskID)
	if !ok {
		h.respondError(w, http.StatusNotFound, "task not found")
		return
	}
	fn(t)
}

// ListResponse partitions the task list the way get_all_task_states does.
type ListResponse struct {
	Queued   []TaskResponse `json:"queued"`
	Stopped  []TaskResponse `json:"stopped"`
	Removing []TaskResponse `json:"removing"`
	Running  []TaskResponse `json:"running"`
}

// List handles GET /api/v1/tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	states := h.queue.GetAllTaskStates()

	resp := ListResponse{
		Queued:   toResponses(states.Queued, false),
		Stopped:  toResponses(states.Stopped, false),
		Removing: toResponses(states.Removing, false),
		Running:  toResponses(states.Running, true),
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func toResponses(tasks []task.Task, active bool) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toResponse(t, active))
	}
	return out
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *TaskHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (h *TaskHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
