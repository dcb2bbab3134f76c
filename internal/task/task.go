// Package task defines the scheduler's view of a unit of work: the
// abstract Task interface and a handful of sample implementations
// (article download, posting, header fetch) that exercise it. Per-task
// business logic is otherwise out of scope for the scheduler itself —
// these samples exist to give the queue something real to dispatch.
package task

import (
	"fmt"
	"runtime/debug"

	"github.com/maumercado/nntp-queue/internal/logger"
	"github.com/maumercado/nntp-queue/internal/nntp"
)

// ConnChecker is the surface of the scheduler a Task is allowed to call
// back into: check_in, plus reporting an operator-visible error.
// Defined here, rather than importing the queue package directly, to
// keep task free of a cycle back to its own caller.
type ConnChecker interface {
	CheckIn(conn *nntp.Connection, ok bool)
	ReportError(message string)
}

// RecoverGiveConnection recovers a panic raised while a task is
// working a connection handed to it via GiveConnection. Call it as
// the first deferred statement in every GiveConnection goroutine. On
// panic it reports the error and then checks conn back in as failed, so a
// malformed task never takes the scheduler down with it.
func RecoverGiveConnection(q ConnChecker, conn *nntp.Connection, taskID string) {
	if r := recover(); r != nil {
		logger.Error().
			Str("task_id", taskID).
			Interface("panic", r).
			Str("stack", string(debug.Stack())).
			Msg("task handler panicked")
		q.ReportError(fmt.Sprintf("task %s: handler panicked: %v", taskID, r))
		q.CheckIn(conn, false)
	}
}

// Task is the abstract entity the scheduler dispatches connections to.
// Identity is by pointer; two distinct Task values are never considered
// equal even with identical fields.
type Task interface {
	// ID returns a stable identifier, for logging and API responses.
	ID() string

	// GetType returns a diagnostics-only type name.
	GetType() string

	// GetState must be cheap, idempotent, and side-effect-free.
	GetState() State

	// GiveConnection transfers ownership of conn to the task. The task
	// must call queue.CheckIn(conn, ok) exactly once for every
	// connection it receives, when it is done with that connection.
	GiveConnection(queue ConnChecker, conn *nntp.Connection)
}

// MessageIDer is an optional capability: article-download tasks expose
// a message-id so the queue can maintain the dedup index described in
// §3 of the scheduling design. Tasks that don't implement it (posts,
// header fetches) are simply never considered for the dedup set.
type MessageIDer interface {
	MessageID() string
}
