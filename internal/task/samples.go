package task

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/maumercado/nntp-queue/internal/logger"
	"github.com/maumercado/nntp-queue/internal/nntp"
)

// ArticleTask downloads a single article by message-id from any of a
// set of mirror servers. It implements MessageIDer so the queue can
// maintain its dedup index.
type ArticleTask struct {
	id        string
	messageID string
	group     string

	mu       sync.Mutex
	state    State
	policy   *RetryPolicy
	attempts int
}

// NewArticleTask creates a task wanting messageID, dispatchable on any
// of servers.
func NewArticleTask(group, messageID string, servers []string) *ArticleTask {
	return &ArticleTask{
		id:        uuid.New().String(),
		messageID: messageID,
		group:     group,
		state:     State{Work: WorkNeedNNTP, Health: HealthOK, Servers: servers},
		policy:    DefaultRetryPolicy(),
	}
}

func (t *ArticleTask) ID() string       { return t.id }
func (t *ArticleTask) GetType() string  { return "article-download" }
func (t *ArticleTask) MessageID() string { return t.messageID }

func (t *ArticleTask) GetState() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// GiveConnection issues the ARTICLE command and reads the response on
// its own goroutine, then checks the connection back in and updates
// its own state before the scheduler's next process_task call observes
// it. Actual NNTP wire framing is intentionally minimal — parsing the
// multi-line article body is outside the scheduler's concerns.
func (t *ArticleTask) GiveConnection(q ConnChecker, conn *nntp.Connection) {
	go func() {
		defer RecoverGiveConnection(q, conn, t.id)

		log := logger.WithTask(t.id)
		cmd := fmt.Sprintf("ARTICLE <%s>\r\n", t.messageID)
		_, err := conn.Socket.Conn().Write([]byte(cmd))
		ok := err == nil
		if ok {
			buf := make([]byte, 4096)
			n, readErr := conn.Socket.Conn().Read(buf)
			if readErr != nil {
				ok = false
			} else {
				conn.Socket.RecordBytes(n)
			}
		}

		t.mu.Lock()
		if ok {
			t.state.Work = WorkCompleted
			t.state.Health = HealthOK
		} else {
			t.attempts++
			if t.policy.ShouldRetry(t.attempts) {
				t.state.Health = HealthRetry
				t.state.Work = WorkNeedNNTP
			} else {
				t.state.Health = HealthFail
			}
		}
		t.mu.Unlock()

		if !ok {
			log.Warn().Str("message_id", t.messageID).Msg("article fetch failed")
		}
		q.CheckIn(conn, ok)
	}()
}

type articleTaskPayload struct {
	Group     string   `json:"group"`
	MessageID string   `json:"message_id"`
	Servers   []string `json:"servers"`
}

// Payload implements archive.Persistable.
func (t *ArticleTask) Payload() (json.RawMessage, error) {
	return json.Marshal(articleTaskPayload{Group: t.group, MessageID: t.messageID, Servers: t.state.Servers})
}

// ArticleTaskFromPayload rebuilds an ArticleTask from a Payload
// produced by a previous Marshal, restoring its original id rather
// than minting a new one.
func ArticleTaskFromPayload(id string, payload json.RawMessage) (*ArticleTask, error) {
	var p articleTaskPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal article task payload: %w", err)
	}
	t := NewArticleTask(p.Group, p.MessageID, p.Servers)
	t.id = id
	return t, nil
}

// PostTask posts an article's body to one of a set of servers.
type PostTask struct {
	id      string
	body    []byte
	servers []string

	mu    sync.Mutex
	state State
}

// NewPostTask creates a task that posts body to any of servers.
func NewPostTask(body []byte, servers []string) *PostTask {
	return &PostTask{
		id:      uuid.New().String(),
		body:    body,
		servers: servers,
		state:   State{Work: WorkNeedNNTP, Health: HealthOK, Servers: servers},
	}
}

func (t *PostTask) ID() string      { return t.id }
func (t *PostTask) GetType() string { return "post" }

func (t *PostTask) GetState() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *PostTask) GiveConnection(q ConnChecker, conn *nntp.Connection) {
	go func() {
		defer RecoverGiveConnection(q, conn, t.id)

		log := logger.WithTask(t.id)
		_, err := conn.Socket.Conn().Write(append([]byte("POST\r\n"), t.body...))
		ok := err == nil
		if ok {
			conn.Socket.RecordBytes(len(t.body))
		} else {
			log.Warn().Err(err).Msg("post failed")
		}

		t.mu.Lock()
		if ok {
			t.state.Work = WorkCompleted
		} else {
			t.state.Health = HealthFail
		}
		t.mu.Unlock()

		q.CheckIn(conn, ok)
	}()
}

type postTaskPayload struct {
	Body    []byte   `json:"body"`
	Servers []string `json:"servers"`
}

// Payload implements archive.Persistable.
func (t *PostTask) Payload() (json.RawMessage, error) {
	return json.Marshal(postTaskPayload{Body: t.body, Servers: t.servers})
}

// PostTaskFromPayload rebuilds a PostTask from a Payload produced by a
// previous Marshal, restoring its original id.
func PostTaskFromPayload(id string, payload json.RawMessage) (*PostTask, error) {
	var p postTaskPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal post task payload: %w", err)
	}
	t := NewPostTask(p.Body, p.Servers)
	t.id = id
	return t, nil
}

// HeaderFetchTask fetches a range of article headers (an XOVER-style
// scan) for one newsgroup.
type HeaderFetchTask struct {
	id        string
	group     string
	low, high int
	servers   []string

	mu    sync.Mutex
	state State
}

// NewHeaderFetchTask creates a task that fetches headers [low, high]
// of group from any of servers.
func NewHeaderFetchTask(group string, low, high int, servers []string) *HeaderFetchTask {
	return &HeaderFetchTask{
		id:      uuid.New().String(),
		group:   group,
		low:     low,
		high:    high,
		servers: servers,
		state:   State{Work: WorkNeedNNTP, Health: HealthOK, Servers: servers},
	}
}

func (t *HeaderFetchTask) ID() string      { return t.id }
func (t *HeaderFetchTask) GetType() string { return "header-fetch" }

func (t *HeaderFetchTask) GetState() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

type headerFetchTaskPayload struct {
	Group   string   `json:"group"`
	Low     int      `json:"low"`
	High    int      `json:"high"`
	Servers []string `json:"servers"`
}

// Payload implements archive.Persistable.
func (t *HeaderFetchTask) Payload() (json.RawMessage, error) {
	return json.Marshal(headerFetchTaskPayload{Group: t.group, Low: t.low, High: t.high, Servers: t.servers})
}

// HeaderFetchTaskFromPayload rebuilds a HeaderFetchTask from a Payload
// produced by a previous Marshal, restoring its original id.
func HeaderFetchTaskFromPayload(id string, payload json.RawMessage) (*HeaderFetchTask, error) {
	var p headerFetchTaskPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal header fetch task payload: %w", err)
	}
	t := NewHeaderFetchTask(p.Group, p.Low, p.High, p.Servers)
	t.id = id
	return t, nil
}

func (t *HeaderFetchTask) GiveConnection(q ConnChecker, conn *nntp.Connection) {
	go func() {
		defer RecoverGiveConnection(q, conn, t.id)

		log := logger.WithTask(t.id)
		cmd := fmt.Sprintf("XOVER %d-%d\r\n", t.low, t.high)
		_, err := conn.Socket.Conn().Write([]byte(cmd))
		ok := err == nil
		if !ok {
			log.Warn().Err(err).Str("group", t.group).Msg("header fetch failed")
		}

		t.mu.Lock()
		if ok {
			t.state.Work = WorkCompleted
		} else {
			t.state.Health = HealthFail
		}
		t.mu.Unlock()

		q.CheckIn(conn, ok)
	}()
}
