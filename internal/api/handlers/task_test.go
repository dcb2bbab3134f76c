package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maumercado/nntp-queue/internal/config"
	"github.com/maumercado/nntp-queue/internal/logger"
	"github.com/maumercado/nntp-queue/internal/queue"
)

func init() {
	logger.Init("error", false)
}

// newTestHandler builds a TaskHandler backed by a real Queue with one
// configured server, no archive.
func newTestHandler(t *testing.T) *TaskHandler {
	t.Helper()

	cfg := &config.Config{
		Scheduler: config.SchedulerConfig{
			UpkeepInterval:    time.Second,
			SaveDebounce:      time.Second,
			DialTimeout:       time.Second,
			DialWorkerPoolMax: 1,
		},
		Servers: []config.ServerConfig{
			{ID: "eternal-september", Host: "127.0.0.1", Port: 119, MaxConnections: 2},
		},
	}

	q, err := queue.New(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	t.Cleanup(q.Stop)

	return NewTaskHandler(q)
}

func withTaskIDParam(req *http.Request, taskID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("taskID", taskID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestTaskHandler_respondJSON(t *testing.T) {
	h := &TaskHandler{}

	w := httptest.NewRecorder()
	data := map[string]string{"message": "hello"}

	h.respondJSON(w, http.StatusOK, data)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "hello", response["message"])
}

func TestTaskHandler_respondError(t *testing.T) {
	h := &TaskHandler{}

	w := httptest.NewRecorder()
	h.respondError(w, http.StatusBadRequest, "invalid input")

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "Bad Request", response.Error)
	assert.Equal(t, "invalid input", response.Message)
}

func TestTaskHandler_Create_InvalidJSON(t *testing.T) {
	h := newTestHandler(t)

	body := bytes.NewBufferString("invalid json")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "invalid request body", response.Message)
}

func TestTaskHandler_Create_MissingType(t *testing.T) {
	h := newTestHandler(t)

	reqBody := CreateTaskRequest{
		Servers: []string{"eternal-september"},
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "task type is required", response.Message)
}

func TestTaskHandler_Create_MissingServers(t *testing.T) {
	h := newTestHandler(t)

	reqBody := CreateTaskRequest{
		Type:      "article",
		Group:     "alt.test",
		MessageID: "<abc@test>",
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "at least one server is required", response.Message)
}

func TestTaskHandler_Create_UnknownType(t *testing.T) {
	h := newTestHandler(t)

	reqBody := CreateTaskRequest{
		Type:    "smoke-signal",
		Servers: []string{"eternal-september"},
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_Create_Article(t *testing.T) {
	h := newTestHandler(t)

	reqBody := CreateTaskRequest{
		Type:      "article",
		Group:     "alt.test",
		MessageID: "<abc@test>",
		Servers:   []string{"eternal-september"},
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp TaskResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "article", resp.Type)
	assert.NotEmpty(t, resp.ID)
}

func TestTaskHandler_Create_DuplicateMessageID(t *testing.T) {
	h := newTestHandler(t)

	reqBody := CreateTaskRequest{
		Type:      "article",
		Group:     "alt.test",
		MessageID: "<dup@test>",
		Servers:   []string{"eternal-september"},
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.Create(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewReader(body))
	w2 := httptest.NewRecorder()
	h.Create(w2, req2)

	assert.Equal(t, http.StatusConflict, w2.Code)
}

func TestTaskHandler_Create_PostRequiresBody(t *testing.T) {
	h := newTestHandler(t)

	reqBody := CreateTaskRequest{
		Type:    "post",
		Servers: []string{"eternal-september"},
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_Create_HeaderFetchInvalidRange(t *testing.T) {
	h := newTestHandler(t)

	reqBody := CreateTaskRequest{
		Type:    "header-fetch",
		Group:   "alt.test",
		Low:     100,
		High:    1,
		Servers: []string{"eternal-september"},
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_Get_MissingID(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/", nil)
	req = withTaskIDParam(req, "")
	w := httptest.NewRecorder()

	h.Get(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_Get_NotFound(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/missing", nil)
	req = withTaskIDParam(req, "missing")
	w := httptest.NewRecorder()

	h.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskHandler_Get_Found(t *testing.T) {
	h := newTestHandler(t)

	created := createArticle(t, h, "<get@test>")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+created.ID, nil)
	req = withTaskIDParam(req, created.ID)
	w := httptest.NewRecorder()

	h.Get(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp TaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, created.ID, resp.ID)
}

func TestTaskHandler_Remove_MissingID(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/tasks/", nil)
	req = withTaskIDParam(req, "")
	w := httptest.NewRecorder()

	h.Remove(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_Remove_NotFound(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/tasks/missing", nil)
	req = withTaskIDParam(req, "missing")
	w := httptest.NewRecorder()

	h.Remove(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskHandler_Remove_Found(t *testing.T) {
	h := newTestHandler(t)

	created := createArticle(t, h, "<remove@test>")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/tasks/"+created.ID, nil)
	req = withTaskIDParam(req, created.ID)
	w := httptest.NewRecorder()

	h.Remove(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+created.ID, nil)
	req2 = withTaskIDParam(req2, created.ID)
	w2 := httptest.NewRecorder()
	h.Get(w2, req2)
	assert.Equal(t, http.StatusNotFound, w2.Code)
}

func TestTaskHandler_Move_InvalidDirection(t *testing.T) {
	h := newTestHandler(t)

	created := createArticle(t, h, "<move@test>")

	reqBody := MoveRequest{Direction: "sideways"}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/"+created.ID+"/move", bytes.NewReader(body))
	req = withTaskIDParam(req, created.ID)
	w := httptest.NewRecorder()

	h.Move(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_Stop_Found(t *testing.T) {
	h := newTestHandler(t)

	created := createArticle(t, h, "<stop@test>")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/"+created.ID+"/stop", nil)
	req = withTaskIDParam(req, created.ID)
	w := httptest.NewRecorder()

	h.Stop(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTaskHandler_List_PartitionsBuckets(t *testing.T) {
	h := newTestHandler(t)

	createArticle(t, h, "<list1@test>")
	createArticle(t, h, "<list2@test>")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, len(resp.Queued)+len(resp.Stopped)+len(resp.Removing)+len(resp.Running))
}

func TestErrorResponse_Struct(t *testing.T) {
	resp := ErrorResponse{
		Error:   "Not Found",
		Message: "Task not found",
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded ErrorResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, resp.Error, decoded.Error)
	assert.Equal(t, resp.Message, decoded.Message)
}

func TestListResponse_Struct(t *testing.T) {
	resp := ListResponse{
		Queued: []TaskResponse{
			{ID: "task-1", Type: "article", Work: "need_nntp", Health: "ok"},
		},
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded ListResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Len(t, decoded.Queued, 1)
	assert.Equal(t, "task-1", decoded.Queued[0].ID)
}

// createArticle is a test helper that POSTs an article task and
// returns the decoded response.
func createArticle(t *testing.T, h *TaskHandler, messageID string) TaskResponse {
	t.Helper()

	reqBody := CreateTaskRequest{
		Type:      "article",
		Group:     "alt.test",
		MessageID: messageID,
		Servers:   []string{"eternal-september"},
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.Create(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp TaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
