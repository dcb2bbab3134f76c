// Package archive implements TaskArchive, the opaque persistence
// backend the Queue debounce-saves the task list to: json.Marshal a
// domain type, client.Set/client.Get under a key, fmt.Errorf wrapping,
// one JSON snapshot of the whole ordered list under one key rather
// than one entry per task, since SaveTasks operates on the full
// sequence in one call.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maumercado/nntp-queue/internal/config"
	"github.com/maumercado/nntp-queue/internal/logger"
	"github.com/maumercado/nntp-queue/internal/metrics"
	"github.com/maumercado/nntp-queue/internal/task"
)

// Record is the serialized form of one task. Payload is opaque to the
// archive — it is whatever a Persistable task chooses to export, and
// is handed back verbatim to the matching Factory on load.
type Record struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Work    string          `json:"work"`
	Health  string          `json:"health"`
	Servers []string        `json:"servers"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Persistable is an optional capability: tasks that want to survive a
// restart implement it so SaveTasks can capture enough to rebuild them.
// Tasks that don't implement it are still saved, as a Record with no
// Payload.
type Persistable interface {
	task.Task
	Payload() (json.RawMessage, error)
}

// Factory reconstructs a concrete Task from its saved Record. The
// caller of LoadTasks supplies one Factory per task type it knows how
// to rehydrate; unrecognized types are skipped with a warning.
type Factory func(rec Record) (task.Task, error)

// TaskArchive is the interface the Queue depends on: load once at
// construction, save at most once per debounce window thereafter.
type TaskArchive interface {
	LoadTasks(ctx context.Context, factories map[string]Factory) ([]task.Task, error)
	SaveTasks(ctx context.Context, tasks []task.Task) error
}

// RedisArchive implements TaskArchive by storing one JSON array under
// a single Redis key.
type RedisArchive struct {
	client *redis.Client
	key    string
}

// NewRedisArchive builds a Redis client from cfg and returns an archive
// that persists the task list under key.
func NewRedisArchive(cfg *config.RedisConfig, key string) (*RedisArchive, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisArchiveWithClient(client, key), nil
}

// NewRedisArchiveWithClient wraps an already-constructed client —
// the seam tests use to point the archive at miniredis.
func NewRedisArchiveWithClient(client *redis.Client, key string) *RedisArchive {
	return &RedisArchive{client: client, key: key}
}

// Client returns the underlying Redis client, so callers can share the
// connection with other Redis-backed components (the event publisher).
func (a *RedisArchive) Client() *redis.Client {
	return a.client
}

// Close closes the underlying Redis client.
func (a *RedisArchive) Close() error {
	return a.client.Close()
}

// SaveTasks serializes tasks to a single JSON array and stores it
// under the archive's key.
func (a *RedisArchive) SaveTasks(ctx context.Context, tasks []task.Task) error {
	records := make([]Record, 0, len(tasks))
	for _, t := range tasks {
		state := t.GetState()
		rec := Record{
			ID:      t.ID(),
			Type:    t.GetType(),
			Work:    state.Work.String(),
			Health:  state.Health.String(),
			Servers: state.Servers,
		}
		if p, ok := t.(Persistable); ok {
			payload, err := p.Payload()
			if err != nil {
				return fmt.Errorf("failed to build payload for task %s: %w", t.ID(), err)
			}
			rec.Payload = payload
		}
		records = append(records, rec)
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal task snapshot: %w", err)
	}

	start := time.Now()
	err = a.client.Set(ctx, a.key, data, 0).Err()
	metrics.RecordRedisOperation("archive_save", time.Since(start).Seconds())
	if err != nil {
		metrics.RecordRedisError("archive_save")
		return fmt.Errorf("failed to save task snapshot: %w", err)
	}
	return nil
}

// LoadTasks fetches the snapshot and reconstructs each record via the
// Factory registered for its type. Missing factories and individually
// malformed records are logged and skipped rather than failing the
// whole load — a queue should come up with whatever it can recover.
func (a *RedisArchive) LoadTasks(ctx context.Context, factories map[string]Factory) ([]task.Task, error) {
	start := time.Now()
	data, err := a.client.Get(ctx, a.key).Bytes()
	metrics.RecordRedisOperation("archive_load", time.Since(start).Seconds())

	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		metrics.RecordRedisError("archive_load")
		return nil, fmt.Errorf("failed to load task snapshot: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task snapshot: %w", err)
	}

	tasks := make([]task.Task, 0, len(records))
	for _, rec := range records {
		factory, ok := factories[rec.Type]
		if !ok {
			logger.Warn().Str("type", rec.Type).Str("id", rec.ID).Msg("no factory registered for archived task type, skipping")
			continue
		}
		t, err := factory(rec)
		if err != nil {
			logger.Error().Err(err).Str("type", rec.Type).Str("id", rec.ID).Msg("failed to rehydrate archived task, skipping")
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
