// Package queue implements Queue, the scheduling kernel: it owns the
// TaskList, the per-server ConnectionPools, and the connection↔task
// map, and drives each task to completion while respecting per-server
// concurrency limits, online/offline state, and user reordering.
// Grounded directly on pan/tasks/queue.cc (process_task,
// find_best_server, find_first_task_needing_server, check_in, upkeep,
// fire_if_counts_have_changed) for the scheduling algorithms, in a
// ticker-driven loop joined by a sync.WaitGroup and stopped via a
// closed channel.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/maumercado/nntp-queue/internal/archive"
	"github.com/maumercado/nntp-queue/internal/config"
	"github.com/maumercado/nntp-queue/internal/logger"
	"github.com/maumercado/nntp-queue/internal/metrics"
	"github.com/maumercado/nntp-queue/internal/nntp"
	"github.com/maumercado/nntp-queue/internal/pool"
	"github.com/maumercado/nntp-queue/internal/task"
	"github.com/maumercado/nntp-queue/internal/tasklist"
)

// ServerSpec is the dial target and capacity for one configured
// server, used to lazily construct its ConnectionPool.
type ServerSpec struct {
	Addr string
	UseTLS bool
	Max    int
}

// ServerConnStats reports one server's pool partitions plus its
// aggregate transfer rate, for get_full_connection_counts.
type ServerConnStats struct {
	Active  int
	Idle    int
	Pending int
	Max     int
	KiBps   float64
}

// TaskStates partitions the current task list the way get_all_task_states
// does: every task appears in exactly one bucket.
type TaskStates struct {
	Queued   []task.Task
	Stopped  []task.Task
	Removing []task.Task
	Running  []task.Task
}

// Queue is the scheduling kernel. All exported methods are safe for
// concurrent use; internally, state mutations happen under a single
// mutex in short critical sections so that synchronous listener
// callbacks (from TaskList or ConnectionPool) never attempt to
// re-enter a lock already held by the calling goroutine.
type Queue struct {
	taskList *tasklist.TaskList
	archive  archive.TaskArchive
	creator  *nntp.Creator

	idleTimeout time.Duration

	mu             sync.Mutex
	serverSpecs    map[string]ServerSpec
	pools          map[string]*pool.ConnectionPool
	connToTask     map[*nntp.Connection]task.Task
	stopped        map[task.Task]struct{}
	removing       map[task.Task]struct{}
	messageIDs     map[string]int
	unknownServers map[string]struct{}

	online       bool
	needsSaving  bool
	lastSavedAt  time.Time
	saveDebounce time.Duration

	listenersMu sync.Mutex
	listeners   []Listener

	prevConnCount   int
	prevActiveTasks int
	prevTotalTasks  int

	upkeepInterval time.Duration
	stopCh         chan struct{}
	stopOnce       sync.Once
	wg             sync.WaitGroup
}

// New constructs a Queue from cfg, wiring one ConnectionPool spec per
// configured server, and loads the persisted task list from ar via
// factories (one per archived task type) — placed at the bottom of
// the list in their saved order, per the archive contract.
func New(ctx context.Context, cfg *config.Config, ar archive.TaskArchive, factories map[string]archive.Factory) (*Queue, error) {
	specs := make(map[string]ServerSpec, len(cfg.Servers))
	for _, sc := range cfg.Servers {
		specs[sc.ID] = ServerSpec{
			Addr:   fmt.Sprintf("%s:%d", sc.Host, sc.Port),
			UseTLS: sc.TLS,
			Max:    sc.MaxConnections,
		}
	}

	q := &Queue{
		taskList:       tasklist.New(),
		archive:        ar,
		creator:        nntp.NewCreator(cfg.Scheduler.DialWorkerPoolMax, cfg.Scheduler.DialTimeout, false),
		idleTimeout:    cfg.Scheduler.IdleConnTimeout,
		serverSpecs:    specs,
		pools:          make(map[string]*pool.ConnectionPool),
		connToTask:     make(map[*nntp.Connection]task.Task),
		stopped:        make(map[task.Task]struct{}),
		removing:       make(map[task.Task]struct{}),
		messageIDs:     make(map[string]int),
		unknownServers: make(map[string]struct{}),
		online:         true,
		saveDebounce:   cfg.Scheduler.SaveDebounce,
		upkeepInterval: cfg.Scheduler.UpkeepInterval,
		stopCh:         make(chan struct{}),
	}
	q.taskList.SetListener(q)

	if ar != nil {
		loaded, err := ar.LoadTasks(ctx, factories)
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted tasks: %w", err)
		}
		if len(loaded) > 0 {
			q.AddTasks(loaded, tasklist.Bottom)
		}
	}

	return q, nil
}

// AddListener registers l to receive future events. Not safe to call
// concurrently with Queue mutations that might fire events.
func (q *Queue) AddListener(l Listener) {
	q.listenersMu.Lock()
	defer q.listenersMu.Unlock()
	q.listeners = append(q.listeners, l)
}

// RemoveListener deregisters l.
func (q *Queue) RemoveListener(l Listener) {
	q.listenersMu.Lock()
	defer q.listenersMu.Unlock()
	for i, existing := range q.listeners {
		if existing == l {
			q.listeners = append(q.listeners[:i], q.listeners[i+1:]...)
			return
		}
	}
}

// AddTask inserts task at the position mode selects, registers its
// message-id for dedup if it has one, then attempts to dispatch it
// immediately.
func (q *Queue) AddTask(t task.Task, mode tasklist.InsertMode) {
	q.AddTasks([]task.Task{t}, mode)
}

// AddTasks is the batch form of AddTask.
func (q *Queue) AddTasks(tasks []task.Task, mode tasklist.InsertMode) {
	if len(tasks) == 0 {
		return
	}

	q.mu.Lock()
	for _, t := range tasks {
		if mid, ok := t.(task.MessageIDer); ok {
			q.messageIDs[mid.MessageID()]++
		}
	}
	q.mu.Unlock()

	q.taskList.Add(tasks, mode)

	for _, t := range tasks {
		q.processTask(t)
	}
}

// RemoveTask removes task from the queue. If it is currently active
// (holding a connection), deletion is deferred until its last
// connection checks in.
func (q *Queue) RemoveTask(t task.Task) {
	q.mu.Lock()
	active := q.isActiveLocked(t)
	if active {
		q.removing[t] = struct{}{}
		q.mu.Unlock()
		return
	}
	delete(q.stopped, t)
	delete(q.removing, t)
	if mid, ok := t.(task.MessageIDer); ok {
		q.decrementMessageIDLocked(mid.MessageID())
	}
	q.mu.Unlock()

	q.taskList.Remove(t)
}

// RemoveTasks is the batch form of RemoveTask.
func (q *Queue) RemoveTasks(tasks []task.Task) {
	for _, t := range tasks {
		q.RemoveTask(t)
	}
}

// RemoveLatestTask removes the last task in the list; a no-op on an
// empty queue.
func (q *Queue) RemoveLatestTask() {
	snapshot := q.taskList.Snapshot()
	if len(snapshot) == 0 {
		return
	}
	q.RemoveTask(snapshot[len(snapshot)-1])
}

// StopTasks marks tasks as stopped: they remain in the list but are
// not dispatched until restarted.
func (q *Queue) StopTasks(tasks []task.Task) {
	q.mu.Lock()
	for _, t := range tasks {
		q.stopped[t] = struct{}{}
	}
	q.mu.Unlock()
}

// RestartTasks clears the stopped flag on tasks and re-attempts
// dispatch immediately.
func (q *Queue) RestartTasks(tasks []task.Task) {
	q.mu.Lock()
	for _, t := range tasks {
		delete(q.stopped, t)
	}
	q.mu.Unlock()

	for _, t := range tasks {
		q.processTask(t)
	}
}

// MoveUp reorders tasks one position earlier each.
func (q *Queue) MoveUp(tasks []task.Task) { q.taskList.MoveUp(tasks) }

// MoveDown reorders tasks one position later each.
func (q *Queue) MoveDown(tasks []task.Task) { q.taskList.MoveDown(tasks) }

// MoveTop moves tasks to the front of the list.
func (q *Queue) MoveTop(tasks []task.Task) { q.taskList.MoveTop(tasks) }

// MoveBottom moves tasks to the back of the list.
func (q *Queue) MoveBottom(tasks []task.Task) { q.taskList.MoveBottom(tasks) }

// SetOnline toggles the online flag. While offline, every server
// scores zero and no new connections are drawn (see findBestServer).
func (q *Queue) SetOnline(online bool) {
	q.mu.Lock()
	changed := q.online != online
	q.online = online
	q.mu.Unlock()

	if changed {
		q.fireOnlineChanged(online)
	}
}

// IsOnline reports the current online flag.
func (q *Queue) IsOnline() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.online
}

// Contains reports whether an article task with messageID is already
// queued — an O(1) dedup query.
func (q *Queue) Contains(messageID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.messageIDs[messageID] > 0
}

// GetTask looks up a task by ID, a linear scan over the current
// snapshot. The API layer is the only caller; the scheduler itself
// never needs to address a task by ID.
func (q *Queue) GetTask(id string) (task.Task, bool) {
	for _, t := range q.taskList.Snapshot() {
		if t.ID() == id {
			return t, true
		}
	}
	return nil, false
}

// ReportError implements task.ConnChecker. Tasks use it to surface an
// operator-visible problem (currently: a recovered handler panic)
// through the same queue_error channel as internal scheduler faults.
func (q *Queue) ReportError(message string) {
	q.fireQueueError(message)
}

// CheckIn implements task.ConnChecker. Tasks call it exactly once per
// connection they were handed, when done with it.
func (q *Queue) CheckIn(conn *nntp.Connection, ok bool) {
	t, fastPathTask, takeFastPath := q.checkInDecision(conn, ok)
	if takeFastPath {
		logger.WithConnection(conn.ID).Debug().Str("task", fastPathTask.ID()).Msg("fast-path retaining connection")
		fastPathTask.GiveConnection(q, conn)
		return
	}

	if t == nil {
		return
	}

	// checkInDecision already removed conn's mapping to t under lock, so
	// any remaining activity reflects t's other connections.
	stillActive := q.isActive(t)
	p := q.poolFor(conn.Server)
	p.CheckIn(conn, ok)

	if !stillActive {
		q.fireTaskActiveChanged(t, false)
	}
	q.processTask(t)
}

// checkInDecision evaluates the fast-path/slow-path split from
// spec §4.1 under the lock, then releases it before any pool or
// listener call.
func (q *Queue) checkInDecision(conn *nntp.Connection, ok bool) (slowPathTask task.Task, fastPathTask task.Task, fastPath bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, tracked := q.connToTask[conn]
	if !tracked {
		return nil, nil, false
	}

	if ok {
		state := t.GetState()
		_, isRemoving := q.removing[t]
		if state.Health != task.HealthFail && state.Work == task.WorkNeedNNTP && !isRemoving && state.HasServer(conn.Server) {
			if candidate, found := q.findFirstTaskNeedingServerLocked(conn.Server); found && candidate == t {
				return nil, t, true
			}
		}
	}

	delete(q.connToTask, conn)
	return t, nil, false
}

// Upkeep runs one periodic maintenance pass: debounced persistence,
// completed/removing cleanup, re-dispatch of every task still in the
// list (active or queued — this is what lets a task waiting on an
// offline server, or a task whose pool just gained capacity, make
// progress without a fresh add/move/stop call), pool idle upkeep, and
// count-change event emission.
func (q *Queue) Upkeep() {
	snapshot := q.taskList.Snapshot()

	q.maybeSave(snapshot)

	for _, t := range snapshot {
		state := t.GetState()
		q.mu.Lock()
		_, isRemoving := q.removing[t]
		q.mu.Unlock()
		if state.Work == task.WorkCompleted || isRemoving {
			q.RemoveTask(t)
		}
	}

	for _, t := range snapshot {
		q.processTask(t)
	}

	for server, p := range q.poolSnapshot() {
		p.IdleUpkeep()
		c := p.Counts()
		metrics.SetPoolCounts(server, c.Active, c.Idle, c.Pending)
		metrics.SetPoolSpeed(server, p.SpeedKiBps())
	}

	q.fireIfCountsChanged(len(snapshot))
}

func (q *Queue) maybeSave(snapshot []task.Task) {
	q.mu.Lock()
	needs := q.needsSaving
	due := time.Since(q.lastSavedAt) > q.saveDebounce
	q.mu.Unlock()

	if !needs || !due || q.archive == nil {
		return
	}

	if err := q.archive.SaveTasks(context.Background(), snapshot); err != nil {
		metrics.RecordTaskSave("error")
		logger.Error().Err(err).Msg("failed to persist task snapshot, will retry next upkeep")
		return
	}

	metrics.RecordTaskSave("success")
	q.mu.Lock()
	q.needsSaving = false
	q.lastSavedAt = time.Now()
	q.mu.Unlock()
}

// Start launches the periodic upkeep loop on its own goroutine.
func (q *Queue) Start(ctx context.Context) {
	q.wg.Add(1)
	go q.upkeepLoop(ctx)
	logger.Info().Dur("interval", q.upkeepInterval).Msg("queue upkeep loop started")
}

// Stop halts the upkeep loop and the dial creator, blocking until both
// have fully wound down.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.stopCh)
	})
	q.wg.Wait()
	q.creator.Stop()
	logger.Info().Msg("queue upkeep loop stopped")
}

func (q *Queue) upkeepLoop(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.upkeepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stopCh:
			return
		case <-ticker.C:
			q.Upkeep()
		}
	}
}

// GetTaskCounts returns (active, total) task counts.
func (q *Queue) GetTaskCounts() (active, total int) {
	total = q.taskList.Len()
	active = len(q.activeTasks())
	return active, total
}

// GetConnectionCounts returns the aggregate (active, idle, pending)
// across all pools.
func (q *Queue) GetConnectionCounts() (active, idle, pending int) {
	for _, p := range q.poolSnapshot() {
		c := p.Counts()
		active += c.Active
		idle += c.Idle
		pending += c.Pending
	}
	return active, idle, pending
}

// GetFullConnectionCounts returns per-server partition counts and
// transfer rate.
func (q *Queue) GetFullConnectionCounts() map[string]ServerConnStats {
	out := make(map[string]ServerConnStats)
	for server, p := range q.poolSnapshot() {
		c := p.Counts()
		out[server] = ServerConnStats{
			Active:  c.Active,
			Idle:    c.Idle,
			Pending: c.Pending,
			Max:     c.Max,
			KiBps:   p.SpeedKiBps(),
		}
	}
	return out
}

// GetSpeedKiBps returns the aggregate transfer rate across all pools.
func (q *Queue) GetSpeedKiBps() float64 {
	var total float64
	for _, p := range q.poolSnapshot() {
		total += p.SpeedKiBps()
	}
	return total
}

// GetTaskSpeedKiBps returns the aggregate transfer rate of t's
// currently-held connections.
func (q *Queue) GetTaskSpeedKiBps(t task.Task) float64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	var total float64
	for conn, owner := range q.connToTask {
		if owner == t {
			total += conn.KiBps()
		}
	}
	return total
}

// GetAllTaskStates partitions the current task list into queued,
// stopped, removing, and running buckets.
func (q *Queue) GetAllTaskStates() TaskStates {
	var states TaskStates
	for _, t := range q.taskList.Snapshot() {
		q.mu.Lock()
		_, isRemoving := q.removing[t]
		_, isStopped := q.stopped[t]
		q.mu.Unlock()

		switch {
		case isRemoving:
			states.Removing = append(states.Removing, t)
		case q.isActive(t):
			states.Running = append(states.Running, t)
		case isStopped:
			states.Stopped = append(states.Stopped, t)
		default:
			states.Queued = append(states.Queued, t)
		}
	}
	return states
}

// processTask is the scheduling kernel: the decision table from
// spec.md §4.1, evaluated on task's current State.
func (q *Queue) processTask(t task.Task) {
	state := t.GetState()

	q.mu.Lock()
	_, isRemoving := q.removing[t]
	_, isStopped := q.stopped[t]
	q.mu.Unlock()

	switch {
	case state.Work == task.WorkCompleted:
		q.RemoveTask(t)
		return
	case isRemoving:
		q.RemoveTask(t)
		return
	case isStopped:
		return
	case state.Health == task.HealthFail:
		return
	case state.Work == task.WorkWorking:
		return
	case state.Work != task.WorkNeedNNTP:
		return
	}

	q.acquisitionLoop(t)
}

// acquisitionLoop repeats while t reports WorkNeedNNTP, dispatching a
// connection per iteration until no server scores above zero or none
// yields a checked-out connection.
func (q *Queue) acquisitionLoop(t task.Task) {
	for {
		state := t.GetState()
		if state.Work != task.WorkNeedNNTP {
			return
		}

		for _, server := range state.Servers {
			q.poolFor(server).RequestNNTP()
		}

		best, ok := q.findBestServer(state.Servers)
		if !ok {
			return
		}

		conn := q.poolFor(best).CheckOut()
		if conn == nil {
			return
		}

		q.giveTaskAConnection(t, conn)
	}
}

// findBestServer scores every candidate per spec.md §4.1 and returns
// the highest-scoring one, provided its score is greater than zero.
func (q *Queue) findBestServer(candidates []string) (string, bool) {
	if !q.IsOnline() {
		return "", false
	}

	var best string
	bestScore := 0
	for _, server := range candidates {
		c := q.poolFor(server).Counts()
		empty := c.Max - (c.Active + c.Idle)
		score := 10*c.Idle + empty
		if score > bestScore {
			bestScore = score
			best = server
		}
	}

	if bestScore <= 0 {
		return "", false
	}
	return best, true
}

// findFirstTaskNeedingServer linearly scans the task list in
// user-visible order (the fairness/priority rule) for the first task
// dispatchable on server.
func (q *Queue) findFirstTaskNeedingServer(server string) (task.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.findFirstTaskNeedingServerLocked(server)
}

func (q *Queue) findFirstTaskNeedingServerLocked(server string) (task.Task, bool) {
	for _, t := range q.taskList.Snapshot() {
		if _, stopped := q.stopped[t]; stopped {
			continue
		}
		if _, removing := q.removing[t]; removing {
			continue
		}
		if t.GetState().Dispatchable(server) {
			return t, true
		}
	}
	return nil, false
}

// giveTaskAConnection registers conn as dispatched to t, resets its
// speed counter, fires task_active_changed on the first connection,
// then hands the connection over.
func (q *Queue) giveTaskAConnection(t task.Task, conn *nntp.Connection) {
	q.mu.Lock()
	wasActive := q.isActiveLocked(t)
	q.connToTask[conn] = t
	q.mu.Unlock()

	conn.ResetSpeedCounter()

	if !wasActive {
		q.fireTaskActiveChanged(t, true)
	}

	t.GiveConnection(q, conn)
}

// unknownServerMax is the fallback connection cap given to a pool for
// a server id absent from configuration, so a misconfigured task can
// still be dispatched rather than starving forever at a zero score.
const unknownServerMax = 1

// poolFor returns the pool for server, constructing it lazily on
// first reference. An unrecognized server id — spec.md §9's open
// question — gets a pool built with unknownServerMax and fires a
// queue_error once per unknown id, so the operator notices a
// misconfigured task instead of it silently starving.
func (q *Queue) poolFor(server string) *pool.ConnectionPool {
	q.mu.Lock()
	if p, ok := q.pools[server]; ok {
		q.mu.Unlock()
		return p
	}

	spec, known := q.serverSpecs[server]
	fireUnknown := false
	if !known {
		spec.Max = unknownServerMax
		if _, already := q.unknownServers[server]; !already {
			q.unknownServers[server] = struct{}{}
			fireUnknown = true
		}
	}
	q.mu.Unlock()

	if fireUnknown {
		logger.WithServer(server).Warn().Msg("task referenced unconfigured server, using fallback connection cap")
		q.fireQueueError(fmt.Sprintf("%s: task referenced unconfigured server", server))
	}

	p := pool.New(server, spec.Addr, spec.UseTLS, spec.Max, q.idleTimeout, q.creator)
	p.SetListener(q)

	q.mu.Lock()
	defer q.mu.Unlock()
	if existing, ok := q.pools[server]; ok {
		return existing
	}
	q.pools[server] = p
	return p
}

func (q *Queue) poolSnapshot() map[string]*pool.ConnectionPool {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[string]*pool.ConnectionPool, len(q.pools))
	for k, v := range q.pools {
		out[k] = v
	}
	return out
}

func (q *Queue) activeTasks() []task.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	seen := make(map[task.Task]struct{})
	var out []task.Task
	for _, t := range q.connToTask {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (q *Queue) isActive(t task.Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.isActiveLocked(t)
}

func (q *Queue) isActiveLocked(t task.Task) bool {
	for _, owner := range q.connToTask {
		if owner == t {
			return true
		}
	}
	return false
}

func (q *Queue) decrementMessageIDLocked(messageID string) {
	if q.messageIDs[messageID] <= 1 {
		delete(q.messageIDs, messageID)
		return
	}
	q.messageIDs[messageID]--
}

func (q *Queue) fireIfCountsChanged(totalTasks int) {
	active, idle, pending := q.GetConnectionCounts()
	connCount := active + idle + pending
	activeTasks := len(q.activeTasks())

	q.mu.Lock()
	connChanged := connCount != q.prevConnCount
	sizeChanged := activeTasks != q.prevActiveTasks || totalTasks != q.prevTotalTasks
	q.prevConnCount = connCount
	q.prevActiveTasks = activeTasks
	q.prevTotalTasks = totalTasks
	q.mu.Unlock()

	if connChanged {
		q.fireConnectionCountChanged(connCount)
	}
	if sizeChanged {
		q.fireSizeChanged(activeTasks, totalTasks)
	}
}

// --- tasklist.Listener ---

// ItemsAdded implements tasklist.Listener.
func (q *Queue) ItemsAdded(pos int, items []task.Task) {
	q.markNeedsSaving()
	for _, t := range items {
		metrics.RecordTaskAdded(t.GetType())
	}
	q.fireTasksAdded(pos, items)
}

// ItemRemoved implements tasklist.Listener.
func (q *Queue) ItemRemoved(t task.Task, pos int) {
	q.markNeedsSaving()
	metrics.RecordTaskRemoved(t.GetType())
	q.fireTaskRemoved(t, pos)
}

// ItemMoved implements tasklist.Listener.
func (q *Queue) ItemMoved(t task.Task, newPos, oldPos int) {
	q.markNeedsSaving()
	q.fireTaskMoved(t, newPos, oldPos)
}

func (q *Queue) markNeedsSaving() {
	q.mu.Lock()
	q.needsSaving = true
	q.mu.Unlock()
}

// --- pool.Listener ---

// OnPoolHasNNTPAvailable implements pool.Listener. It wakes the first
// dispatchable task for server, if any.
func (q *Queue) OnPoolHasNNTPAvailable(server string) {
	if t, ok := q.findFirstTaskNeedingServer(server); ok {
		q.processTask(t)
	}
}

// OnPoolError implements pool.Listener.
func (q *Queue) OnPoolError(server, message string) {
	q.fireQueueError(fmt.Sprintf("%s: %s", server, message))
}

// --- listener fan-out ---

func (q *Queue) listenerSnapshot() []Listener {
	q.listenersMu.Lock()
	defer q.listenersMu.Unlock()
	out := make([]Listener, len(q.listeners))
	copy(out, q.listeners)
	return out
}

func (q *Queue) fireTasksAdded(pos int, items []task.Task) {
	for _, l := range q.listenerSnapshot() {
		l.TasksAdded(pos, items)
	}
}

func (q *Queue) fireTaskRemoved(t task.Task, pos int) {
	for _, l := range q.listenerSnapshot() {
		l.TaskRemoved(t, pos)
	}
}

func (q *Queue) fireTaskMoved(t task.Task, newPos, oldPos int) {
	for _, l := range q.listenerSnapshot() {
		l.TaskMoved(t, newPos, oldPos)
	}
}

func (q *Queue) fireTaskActiveChanged(t task.Task, active bool) {
	for _, l := range q.listenerSnapshot() {
		l.TaskActiveChanged(t, active)
	}
}

func (q *Queue) fireConnectionCountChanged(count int) {
	for _, l := range q.listenerSnapshot() {
		l.ConnectionCountChanged(count)
	}
}

func (q *Queue) fireSizeChanged(active, total int) {
	metrics.SetTaskCounts(active, total)
	for _, l := range q.listenerSnapshot() {
		l.SizeChanged(active, total)
	}
}

func (q *Queue) fireOnlineChanged(online bool) {
	for _, l := range q.listenerSnapshot() {
		l.OnlineChanged(online)
	}
}

func (q *Queue) fireQueueError(message string) {
	logger.Error().Str("message", message).Msg("queue error")
	for _, l := range q.listenerSnapshot() {
		l.QueueError(message)
	}
}
