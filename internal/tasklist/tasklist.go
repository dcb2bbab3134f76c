// Package tasklist implements TaskList, the ordered container of
// tasks the scheduler drives. Grounded on queue.cc's _tasks (a
// PtrArraySet-like ordered container with move/insert/remove and
// listener notifications).
package tasklist

import (
	"sync"

	"github.com/maumercado/nntp-queue/internal/task"
)

// InsertMode selects where a newly-added task lands in the list.
type InsertMode int

const (
	Default InsertMode = iota
	Top
	Bottom
)

// Listener receives notifications whenever the list's contents or
// order changes. The Queue is the list's sole listener.
type Listener interface {
	ItemsAdded(pos int, items []task.Task)
	ItemRemoved(t task.Task, pos int)
	ItemMoved(t task.Task, newPos, oldPos int)
}

// TaskList is a mutex-guarded, order-preserving slice of tasks.
// Ordering is user-visible and persisted, so every mutation notifies
// the installed listener before returning.
type TaskList struct {
	mu       sync.Mutex
	items    []task.Task
	listener Listener
}

// New creates an empty TaskList.
func New() *TaskList {
	return &TaskList{}
}

// SetListener installs l as the list's sole listener. Not safe to call
// concurrently with mutating operations.
func (tl *TaskList) SetListener(l Listener) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.listener = l
}

// Len returns the number of tasks in the list.
func (tl *TaskList) Len() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return len(tl.items)
}

// Snapshot returns a copy of the list's current order, safe to range
// over without holding the list's lock.
func (tl *TaskList) Snapshot() []task.Task {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	out := make([]task.Task, len(tl.items))
	copy(out, tl.items)
	return out
}

// IndexOf returns the position of t, or -1 if it is not present.
func (tl *TaskList) IndexOf(t task.Task) int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.indexOfLocked(t)
}

func (tl *TaskList) indexOfLocked(t task.Task) int {
	for i, existing := range tl.items {
		if existing == t {
			return i
		}
	}
	return -1
}

// Add inserts tasks per mode (Top, Bottom, or Default which behaves as
// Bottom — the TaskList's native insertion point) and notifies the
// listener once with the position of the first inserted item.
func (tl *TaskList) Add(tasks []task.Task, mode InsertMode) {
	if len(tasks) == 0 {
		return
	}

	tl.mu.Lock()
	var pos int
	switch mode {
	case Top:
		pos = 0
		tl.items = append(append([]task.Task{}, tasks...), tl.items...)
	default: // Bottom, Default
		pos = len(tl.items)
		tl.items = append(tl.items, tasks...)
	}
	listener := tl.listener
	tl.mu.Unlock()

	if listener != nil {
		listener.ItemsAdded(pos, tasks)
	}
}

// Remove deletes t from the list, if present, and notifies the
// listener with its former position.
func (tl *TaskList) Remove(t task.Task) {
	tl.mu.Lock()
	idx := tl.indexOfLocked(t)
	if idx < 0 {
		tl.mu.Unlock()
		return
	}
	tl.items = append(tl.items[:idx], tl.items[idx+1:]...)
	listener := tl.listener
	tl.mu.Unlock()

	if listener != nil {
		listener.ItemRemoved(t, idx)
	}
}

// MoveUp moves each of tasks one position earlier in the list, in the
// order given, preserving relative order among siblings.
func (tl *TaskList) MoveUp(tasks []task.Task) {
	tl.move(tasks, -1, false)
}

// MoveDown moves each of tasks one position later in the list.
// Iteration is reversed so that moving a contiguous block down
// preserves the siblings' relative order.
func (tl *TaskList) MoveDown(tasks []task.Task) {
	tl.move(tasks, 1, true)
}

// MoveTop moves tasks to the front of the list, preserving their
// relative order. Iteration is reversed so that each successive
// move-to-front doesn't invert the block.
func (tl *TaskList) MoveTop(tasks []task.Task) {
	tl.moveToEnd(tasks, true)
}

// MoveBottom moves tasks to the back of the list, preserving their
// relative order.
func (tl *TaskList) MoveBottom(tasks []task.Task) {
	tl.moveToEnd(tasks, false)
}

func (tl *TaskList) move(tasks []task.Task, delta int, reverse bool) {
	ordered := tasks
	if reverse {
		ordered = reversedCopy(tasks)
	}

	for _, t := range ordered {
		tl.mu.Lock()
		oldPos := tl.indexOfLocked(t)
		if oldPos < 0 {
			tl.mu.Unlock()
			continue
		}
		newPos := oldPos + delta
		if newPos < 0 || newPos >= len(tl.items) {
			tl.mu.Unlock()
			continue
		}
		tl.items[oldPos], tl.items[newPos] = tl.items[newPos], tl.items[oldPos]
		listener := tl.listener
		tl.mu.Unlock()

		if listener != nil {
			listener.ItemMoved(t, newPos, oldPos)
		}
	}
}

func (tl *TaskList) moveToEnd(tasks []task.Task, top bool) {
	ordered := tasks
	if top {
		ordered = reversedCopy(tasks)
	}

	for _, t := range ordered {
		tl.mu.Lock()
		oldPos := tl.indexOfLocked(t)
		if oldPos < 0 {
			tl.mu.Unlock()
			continue
		}
		tl.items = append(tl.items[:oldPos], tl.items[oldPos+1:]...)

		var newPos int
		if top {
			newPos = 0
			tl.items = append([]task.Task{t}, tl.items...)
		} else {
			newPos = len(tl.items)
			tl.items = append(tl.items, t)
		}
		listener := tl.listener
		tl.mu.Unlock()

		if listener != nil {
			listener.ItemMoved(t, newPos, oldPos)
		}
	}
}

func reversedCopy(tasks []task.Task) []task.Task {
	out := make([]task.Task, len(tasks))
	for i, t := range tasks {
		out[len(tasks)-1-i] = t
	}
	return out
}
