package events

import (
	"context"

	"github.com/maumercado/nntp-queue/internal/logger"
	"github.com/maumercado/nntp-queue/internal/task"
)

// QueueBridge forwards queue.Listener callbacks to a RedisPubSub,
// structurally satisfying queue.Listener without internal/events
// importing internal/queue. Every Publish call uses context.Background
// since listener callbacks carry no request-scoped context of their
// own; a publish failure is logged and otherwise ignored — a dropped
// event never blocks the scheduler.
type QueueBridge struct {
	pub *RedisPubSub
}

// NewQueueBridge wraps pub for registration via Queue.AddListener.
func NewQueueBridge(pub *RedisPubSub) *QueueBridge {
	return &QueueBridge{pub: pub}
}

func (b *QueueBridge) TasksAdded(pos int, tasks []task.Task) {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID()
	}
	if err := b.pub.PublishTasksAdded(context.Background(), pos, ids); err != nil {
		logger.Error().Err(err).Msg("failed to publish tasks_added event")
	}
}

func (b *QueueBridge) TaskRemoved(t task.Task, pos int) {
	if err := b.pub.PublishTaskRemoved(context.Background(), t.ID(), t.GetType()); err != nil {
		logger.Error().Err(err).Msg("failed to publish task_removed event")
	}
}

func (b *QueueBridge) TaskMoved(t task.Task, newPos, oldPos int) {
	if err := b.pub.PublishTaskMoved(context.Background(), t.ID(), newPos, oldPos); err != nil {
		logger.Error().Err(err).Msg("failed to publish task_moved event")
	}
}

func (b *QueueBridge) TaskActiveChanged(t task.Task, active bool) {
	if err := b.pub.PublishTaskActiveChanged(context.Background(), t.ID(), t.GetType(), active); err != nil {
		logger.Error().Err(err).Msg("failed to publish task_active_changed event")
	}
}

// ConnectionCountChanged reports the scheduler-wide connection total.
// Queue.Listener only carries the aggregate, so this is published
// under a synthetic "aggregate" server key rather than a real one;
// per-server breakdowns are available from GET /admin/pools instead.
func (b *QueueBridge) ConnectionCountChanged(count int) {
	if err := b.pub.PublishConnectionCountChanged(context.Background(), "aggregate", count, 0, 0, 0); err != nil {
		logger.Error().Err(err).Msg("failed to publish connection_count_changed event")
	}
}

func (b *QueueBridge) SizeChanged(active, total int) {
	if err := b.pub.PublishSizeChanged(context.Background(), total); err != nil {
		logger.Error().Err(err).Msg("failed to publish size_changed event")
	}
}

func (b *QueueBridge) OnlineChanged(online bool) {
	if err := b.pub.PublishOnlineChanged(context.Background(), online); err != nil {
		logger.Error().Err(err).Msg("failed to publish online_changed event")
	}
}

func (b *QueueBridge) QueueError(message string) {
	if err := b.pub.PublishQueueError(context.Background(), "", message); err != nil {
		logger.Error().Err(err).Msg("failed to publish queue_error event")
	}
}
