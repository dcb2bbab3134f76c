package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/maumercado/nntp-queue/internal/logger"
)

const (
	channelPrefix = "nntpqueue:events:"
)

// RedisPubSub implements Publisher using Redis Pub/Sub
type RedisPubSub struct {
	client      *redis.Client
	subscribers map[string]*redis.PubSub
	mu          sync.RWMutex
}

// NewRedisPubSub creates a new Redis Pub/Sub publisher
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{
		client:      client,
		subscribers: make(map[string]*redis.PubSub),
	}
}

// Publish publishes an event to Redis
func (r *RedisPubSub) Publish(ctx context.Context, event *Event) error {
	channel := r.channelName(event.Type)
	data, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	if err := r.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	logger.Debug().
		Str("event_type", string(event.Type)).
		Str("channel", channel).
		Msg("event published")

	return nil
}

// Subscribe subscribes to events of the specified types
func (r *RedisPubSub) Subscribe(ctx context.Context, eventTypes ...EventType) (<-chan *Event, error) {
	channels := make([]string, len(eventTypes))
	for i, et := range eventTypes {
		channels[i] = r.channelName(et)
	}

	pubsub := r.client.Subscribe(ctx, channels...)

	// Wait for subscription confirmation
	_, err := pubsub.Receive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	eventCh := make(chan *Event, 100)

	go func() {
		defer close(eventCh)
		ch := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				event, err := FromJSON([]byte(msg.Payload))
				if err != nil {
					logger.Error().Err(err).Msg("failed to parse event")
					continue
				}

				select {
				case eventCh <- event:
				default:
					// Channel full, drop event
					logger.Warn().
						Str("event_type", string(event.Type)).
						Msg("event channel full, dropping event")
				}
			}
		}
	}()

	return eventCh, nil
}

// SubscribeAll subscribes to all event types
func (r *RedisPubSub) SubscribeAll(ctx context.Context) (<-chan *Event, error) {
	pattern := channelPrefix + "*"
	pubsub := r.client.PSubscribe(ctx, pattern)

	// Wait for subscription confirmation
	_, err := pubsub.Receive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	eventCh := make(chan *Event, 100)

	go func() {
		defer close(eventCh)
		ch := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				event, err := FromJSON([]byte(msg.Payload))
				if err != nil {
					logger.Error().Err(err).Msg("failed to parse event")
					continue
				}

				select {
				case eventCh <- event:
				default:
					logger.Warn().
						Str("event_type", string(event.Type)).
						Msg("event channel full, dropping event")
				}
			}
		}
	}()

	return eventCh, nil
}

// Close closes all subscriptions
func (r *RedisPubSub) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, pubsub := range r.subscribers {
		pubsub.Close()
	}
	r.subscribers = make(map[string]*redis.PubSub)

	return nil
}

func (r *RedisPubSub) channelName(eventType EventType) string {
	return channelPrefix + string(eventType)
}

// PublishTasksAdded is a helper to publish a tasks_added event.
func (r *RedisPubSub) PublishTasksAdded(ctx context.Context, pos int, taskIDs []string) error {
	event := NewEvent(EventTasksAdded, TasksAddedData(pos, taskIDs))
	return r.Publish(ctx, event)
}

// PublishTaskRemoved is a helper to publish a task_removed event.
func (r *RedisPubSub) PublishTaskRemoved(ctx context.Context, taskID, taskType string) error {
	event := NewEvent(EventTaskRemoved, TaskEventData(taskID, taskType, nil))
	return r.Publish(ctx, event)
}

// PublishTaskMoved is a helper to publish a task_moved event.
func (r *RedisPubSub) PublishTaskMoved(ctx context.Context, taskID string, newPos, oldPos int) error {
	event := NewEvent(EventTaskMoved, TaskMovedData(taskID, newPos, oldPos))
	return r.Publish(ctx, event)
}

// PublishTaskActiveChanged is a helper to publish a
// task_active_changed event.
func (r *RedisPubSub) PublishTaskActiveChanged(ctx context.Context, taskID, taskType string, active bool) error {
	event := NewEvent(EventTaskActiveChanged, TaskEventData(taskID, taskType, map[string]interface{}{"active": active}))
	return r.Publish(ctx, event)
}

// PublishConnectionCountChanged is a helper to publish a
// connection_count_changed event.
func (r *RedisPubSub) PublishConnectionCountChanged(ctx context.Context, server string, active, idle, pending, max int) error {
	event := NewEvent(EventConnectionCountChanged, ConnectionCountData(server, active, idle, pending, max))
	return r.Publish(ctx, event)
}

// PublishSizeChanged is a helper to publish a size_changed event.
func (r *RedisPubSub) PublishSizeChanged(ctx context.Context, size int) error {
	event := NewEvent(EventSizeChanged, SizeChangedData(size))
	return r.Publish(ctx, event)
}

// PublishOnlineChanged is a helper to publish an online_changed event.
func (r *RedisPubSub) PublishOnlineChanged(ctx context.Context, online bool) error {
	event := NewEvent(EventOnlineChanged, OnlineChangedData(online))
	return r.Publish(ctx, event)
}

// PublishQueueError is a helper to publish a queue_error event.
func (r *RedisPubSub) PublishQueueError(ctx context.Context, server, message string) error {
	event := NewEvent(EventQueueError, QueueErrorData(server, message))
	return r.Publish(ctx, event)
}
