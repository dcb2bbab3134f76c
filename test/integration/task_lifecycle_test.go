//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maumercado/nntp-queue/internal/api"
	"github.com/maumercado/nntp-queue/internal/api/handlers"
	"github.com/maumercado/nntp-queue/internal/archive"
	"github.com/maumercado/nntp-queue/internal/config"
	"github.com/maumercado/nntp-queue/internal/events"
	"github.com/maumercado/nntp-queue/internal/logger"
	"github.com/maumercado/nntp-queue/internal/queue"
)

func init() {
	logger.Init("error", false)
}

func setupTestServer(t *testing.T) (*api.Server, func()) {
	cfg := &config.Config{
		Servers: []config.ServerConfig{
			{ID: "eternal-september", Host: "127.0.0.1", Port: 119, MaxConnections: 2},
		},
		Scheduler: config.SchedulerConfig{
			UpkeepInterval:    time.Second,
			SaveDebounce:      time.Second,
			DialTimeout:       time.Second,
			DialWorkerPoolMax: 1,
		},
		Redis: config.RedisConfig{
			Addr:         "localhost:6379",
			DB:           15, // a separate DB for integration tests
			PoolSize:     10,
			MinIdleConns: 2,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Metrics: config.MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}

	ar, err := archive.NewRedisArchive(&cfg.Redis, "nntpqueue:test:tasks")
	require.NoError(t, err)

	publisher := events.NewRedisPubSub(ar.Client())

	ctx := context.Background()
	q, err := queue.New(ctx, cfg, ar, nil)
	require.NoError(t, err)
	q.AddListener(events.NewQueueBridge(publisher))

	server := api.NewServer(cfg, q, publisher)

	cleanup := func() {
		ar.Client().FlushDB(ctx)
		q.Stop()
		publisher.Close()
		ar.Close()
	}

	return server, cleanup
}

func TestTaskLifecycle_CreateAndGet(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	createReq := handlers.CreateTaskRequest{
		Type:      "article",
		Group:     "alt.test",
		MessageID: "<lifecycle1@test>",
		Servers:   []string{"eternal-september"},
	}
	body, _ := json.Marshal(createReq)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var createResp handlers.TaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &createResp))

	assert.NotEmpty(t, createResp.ID)
	assert.Equal(t, "need_nntp", createResp.Work)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+createResp.ID, nil)
	w = httptest.NewRecorder()

	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var getResp handlers.TaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &getResp))
	assert.Equal(t, createResp.ID, getResp.ID)
}

func TestTaskLifecycle_Remove(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	createReq := handlers.CreateTaskRequest{
		Type:      "article",
		Group:     "alt.test",
		MessageID: "<lifecycle2@test>",
		Servers:   []string{"eternal-september"},
	}
	body, _ := json.Marshal(createReq)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var createResp handlers.TaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &createResp))

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/tasks/"+createResp.ID, nil)
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+createResp.ID, nil)
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskLifecycle_List(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	for i, messageID := range []string{"<list1@test>", "<list2@test>", "<list3@test>"} {
		createReq := handlers.CreateTaskRequest{
			Type:      "article",
			Group:     "alt.test",
			MessageID: messageID,
			Servers:   []string{"eternal-september"},
		}
		body, _ := json.Marshal(createReq)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		server.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code, "task %d", i)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var listResp handlers.ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	assert.Equal(t, 3, len(listResp.Queued)+len(listResp.Stopped)+len(listResp.Removing)+len(listResp.Running))
}

func TestTaskLifecycle_GetNotFound(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/nonexistent-id", nil)
	w := httptest.NewRecorder()

	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminEndpoints_Health(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/admin/health", nil)
	w := httptest.NewRecorder()

	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestAdminEndpoints_Stats(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	w := httptest.NewRecorder()

	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp handlers.StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
}

func TestAdminEndpoints_Online(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	body, _ := json.Marshal(handlers.OnlineRequest{Online: true})
	req := httptest.NewRequest(http.MethodPost, "/admin/online", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/online", nil)
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp handlers.OnlineResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Online)
}
