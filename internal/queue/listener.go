package queue

import "github.com/maumercado/nntp-queue/internal/task"

// Listener receives every Queue-visible event: task list changes,
// connection churn, and online/error state. Dispatch is registration
// order, synchronous, and tolerant of a listener removing itself
// mid-dispatch (fan-out iterates a snapshot of the listener slice).
type Listener interface {
	TasksAdded(pos int, tasks []task.Task)
	TaskRemoved(t task.Task, pos int)
	TaskMoved(t task.Task, newPos, oldPos int)
	TaskActiveChanged(t task.Task, active bool)
	ConnectionCountChanged(count int)
	SizeChanged(active, total int)
	OnlineChanged(online bool)
	QueueError(message string)
}
