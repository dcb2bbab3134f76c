// Package client provides a Go SDK for the scheduler's HTTP API: task
// submission, lifecycle control, and admin introspection, plus a
// WebSocket client for the scheduler's event stream.
//
// # Basic Usage
//
//	c, err := client.New("http://localhost:8080")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	task, err := c.SubmitTask(ctx, client.CreateTaskRequest{
//	    Type:      "article",
//	    Group:     "alt.test",
//	    MessageID: "<abc@test>",
//	    Servers:   []string{"eternal-september"},
//	})
//
// # WebSocket Events
//
//	err := c.ConnectWebSocket(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.CloseWebSocket()
//
//	for event := range c.Events() {
//	    fmt.Printf("event: %s\n", event.Type)
//	}
//
// # Configuration
//
// The client supports functional options for configuration:
//
//	c, err := client.New("http://localhost:8080",
//	    client.WithAPIKey("your-api-key"),
//	    client.WithTimeout(30 * time.Second),
//	)
package client
