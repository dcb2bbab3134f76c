package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// CreateTaskRequest describes a task to enqueue. Mirrors the server's
// internal/api/handlers.CreateTaskRequest wire format.
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

// TaskResponse is the server's view of a task.
type TaskResponse struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Work    string   `json:"work"`
	Health  string   `json:"health"`
	Servers []string `json:"servers"`
	Active  bool     `json:"active"`
}

// ListResponse partitions tasks the way the server does.
type ListResponse struct {
	Queued   []TaskResponse `json:"queued"`
	Stopped  []TaskResponse `json:"stopped"`
	Removing []TaskResponse `json:"removing"`
	Running  []TaskResponse `json:"running"`
}

// MoveRequest selects the reordering operation for Client.MoveTask.
type MoveRequest struct {
	Direction string `json:"direction"` // up, down, top, bottom
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

// ServerConnStats reports one server's pool partitions and transfer rate.
type ServerConnStats struct {
	Active  int     `json:"active"`
	Idle    int     `json:"idle"`
	Pending int     `json:"pending"`
	Max     int     `json:"max"`
	KiBps   float64 `json:"kibps"`
}

// PoolsResponse reports every configured server's connection pool.
type PoolsResponse struct {
	Servers map[string]ServerConnStats `json:"servers"`
}

// OnlineResponse reports the scheduler's online switch.
type OnlineResponse struct {
	Online bool `json:"online"`
}

// ErrorResponse is the server's error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Client is a hand-rolled HTTP client for the scheduler's REST API
// and its WebSocket event stream.
type Client struct {
	baseURL string
	opts    *options
	ws      *WebSocketClient
}

// New creates a new Client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Client{baseURL: baseURL, opts: o}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) (int, error) {
	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.opts.applyHeaders(req)

	resp, err := c.opts.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Message != "" {
			return resp.StatusCode, fmt.Errorf("%s: %s", errResp.Error, errResp.Message)
		}
		return resp.StatusCode, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

// SubmitTask creates a new task and returns the created task.
func (c *Client) SubmitTask(ctx context.Context, req CreateTaskRequest) (*TaskResponse, error) {
	var out TaskResponse
	if _, err := c.do(ctx, http.MethodPost, "/api/v1/tasks", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTask retrieves a task by its ID.
func (c *Client) GetTask(ctx context.Context, taskID string) (*TaskResponse, error) {
	var out TaskResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/tasks/"+taskID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTasks returns every task, partitioned by bucket.
func (c *Client) ListTasks(ctx context.Context) (*ListResponse, error) {
	var out ListResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/tasks", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveTask deletes a task by its ID.
func (c *Client) RemoveTask(ctx context.Context, taskID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/v1/tasks/"+taskID, nil, nil)
	return err
}

// StopTask stops a task by its ID.
func (c *Client) StopTask(ctx context.Context, taskID string) (*TaskResponse, error) {
	var out TaskResponse
	if _, err := c.do(ctx, http.MethodPost, "/api/v1/tasks/"+taskID+"/stop", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RestartTask restarts a stopped task by its ID.
func (c *Client) RestartTask(ctx context.Context, taskID string) (*TaskResponse, error) {
	var out TaskResponse
	if _, err := c.do(ctx, http.MethodPost, "/api/v1/tasks/"+taskID+"/restart", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MoveTask reorders a task within the task list.
func (c *Client) MoveTask(ctx context.Context, taskID, direction string) (*TaskResponse, error) {
	var out TaskResponse
	req := MoveRequest{Direction: direction}
	if _, err := c.do(ctx, http.MethodPost, "/api/v1/tasks/"+taskID+"/move", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStats returns the scheduler's task and connection counts.
func (c *Client) GetStats(ctx context.Context) (*StatsResponse, error) {
	var out StatsResponse
	if _, err := c.do(ctx, http.MethodGet, "/admin/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPools returns every configured server's connection pool.
func (c *Client) GetPools(ctx context.Context) (*PoolsResponse, error) {
	var out PoolsResponse
	if _, err := c.do(ctx, http.MethodGet, "/admin/pools", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOnline returns the scheduler's online switch.
func (c *Client) GetOnline(ctx context.Context) (bool, error) {
	var out OnlineResponse
	if _, err := c.do(ctx, http.MethodGet, "/admin/online", nil, &out); err != nil {
		return false, err
	}
	return out.Online, nil
}

// SetOnline flips the scheduler's online switch.
func (c *Client) SetOnline(ctx context.Context, online bool) error {
	req := map[string]bool{"online": online}
	_, err := c.do(ctx, http.MethodPost, "/admin/online", req, nil)
	return err
}

// CheckHealth checks the health of the API server.
func (c *Client) CheckHealth(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	if _, err := c.do(ctx, http.MethodGet, "/admin/health", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ConnectWebSocket establishes a WebSocket connection for real-time events.
func (c *Client) ConnectWebSocket(ctx context.Context) error {
	if c.ws != nil && c.ws.IsConnected() {
		return nil
	}
	c.ws = newWebSocketClient(c.baseURL, c.opts.apiKey)
	return c.ws.Connect(ctx)
}

// Events returns a channel that receives WebSocket events. Must call
// ConnectWebSocket first.
func (c *Client) Events() <-chan *Event {
	if c.ws == nil {
		ch := make(chan *Event)
		close(ch)
		return ch
	}
	return c.ws.Events()
}

// CloseWebSocket closes the WebSocket connection.
func (c *Client) CloseWebSocket() error {
	if c.ws == nil {
		return nil
	}
	return c.ws.Close()
}

// SubscribeEvents subscribes to specific event types over the open
// WebSocket connection.
func (c *Client) SubscribeEvents(eventTypes ...EventType) error {
	if c.ws == nil {
		return fmt.Errorf("websocket not connected")
	}
	return c.ws.Subscribe(eventTypes...)
}
