// Package pool implements ConnectionPool, the per-server connection
// cap-tracker the scheduler draws on, grounded on the NNTP_Pool usage
// in Pan's scheduler: request_nntp/check_out/check_in/counts/idle_upkeep.
package pool

import (
	"fmt"
	"sync"
	"time"

	"github.com/maumercado/nntp-queue/internal/logger"
	"github.com/maumercado/nntp-queue/internal/metrics"
	"github.com/maumercado/nntp-queue/internal/nntp"
)

// Listener receives pool readiness and error notifications. The Queue
// is the pool's sole listener.
type Listener interface {
	OnPoolHasNNTPAvailable(server string)
	OnPoolError(server, message string)
}

// Counts reports a pool's partition sizes and capacity.
type Counts struct {
	Active  int
	Idle    int
	Pending int
	Max     int
}

// ConnectionPool tracks the connections to one server, partitioned
// into active (checked out to a task), idle (available), and pending
// (a dial is in flight). active+idle+pending never exceeds Max.
type ConnectionPool struct {
	server  string
	addr    string
	useTLS  bool
	max     int
	creator *nntp.Creator

	mu       sync.Mutex
	idle     []*nntp.Connection
	active   map[string]*nntp.Connection // keyed by Connection.ID
	pending  int
	listener Listener

	idleTimeout   time.Duration
	idleSince     map[string]time.Time // Connection.ID -> went-idle timestamp
}

// New creates a pool for server, dialing addr via creator, capped at
// max simultaneous connections.
func New(server, addr string, useTLS bool, max int, idleTimeout time.Duration, creator *nntp.Creator) *ConnectionPool {
	return &ConnectionPool{
		server:      server,
		addr:        addr,
		useTLS:      useTLS,
		max:         max,
		creator:     creator,
		active:      make(map[string]*nntp.Connection),
		idleTimeout: idleTimeout,
		idleSince:   make(map[string]time.Time),
	}
}

// SetListener installs the pool's callback target. Not safe to call
// concurrently with pool operations; intended for one-time wiring at
// construction.
func (p *ConnectionPool) SetListener(l Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = l
}

// Server returns the server identifier this pool serves.
func (p *ConnectionPool) Server() string {
	return p.server
}

// RequestNNTP advisably signals that a task wants a connection. If
// there is spare capacity, it starts an asynchronous dial and reserves
// one pending slot.
func (p *ConnectionPool) RequestNNTP() {
	p.mu.Lock()
	total := len(p.active) + len(p.idle) + p.pending
	if total >= p.max {
		p.mu.Unlock()
		return
	}
	p.pending++
	p.mu.Unlock()

	p.creator.CreateSocket(p.server, p.addr, p.useTLS, p)
}

// OnSocketCreated implements nntp.CreateListener. It is invoked from a
// Creator worker goroutine, so it must only touch pool-internal state
// under the mutex; the readiness/error callback to the listener is the
// one piece of cross-goroutine hand-off the scheduler relies on.
func (p *ConnectionPool) OnSocketCreated(server string, ok bool, conn *nntp.Connection, err error) {
	p.mu.Lock()
	p.pending--
	if p.pending < 0 {
		p.pending = 0
	}
	if ok {
		p.idle = append(p.idle, conn)
		p.idleSince[conn.ID] = time.Now()
	}
	listener := p.listener
	p.mu.Unlock()

	if !ok {
		logger.WithServer(server).Warn().Err(err).Msg("pool socket creation failed")
		metrics.RecordQueueError(server)
		if listener != nil {
			listener.OnPoolError(server, fmt.Sprintf("socket creation failed: %v", err))
		}
		return
	}

	if listener != nil {
		listener.OnPoolHasNNTPAvailable(server)
	}
}

// CheckOut returns an idle connection, making it active, or nil if
// none is available. Never blocks.
func (p *ConnectionPool) CheckOut() *nntp.Connection {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.idle) == 0 {
		return nil
	}

	conn := p.idle[0]
	p.idle = p.idle[1:]
	delete(p.idleSince, conn.ID)
	p.active[conn.ID] = conn
	return conn
}

// CheckIn returns conn to the pool. If ok, it becomes idle again;
// otherwise it is closed and the active slot is freed.
func (p *ConnectionPool) CheckIn(conn *nntp.Connection, ok bool) {
	p.mu.Lock()
	delete(p.active, conn.ID)

	if ok {
		p.idle = append(p.idle, conn)
		p.idleSince[conn.ID] = time.Now()
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	if err := conn.Close(); err != nil {
		logger.WithConnection(conn.ID).Debug().Err(err).Msg("error closing discarded connection")
	}
}

// Counts reports the pool's current partition sizes.
func (p *ConnectionPool) Counts() Counts {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Counts{
		Active:  len(p.active),
		Idle:    len(p.idle),
		Pending: p.pending,
		Max:     p.max,
	}
}

// SpeedKiBps reports the aggregate transfer rate of all active
// connections in this pool.
func (p *ConnectionPool) SpeedKiBps() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	var total float64
	for _, conn := range p.active {
		total += conn.KiBps()
	}
	return total
}

// IdleUpkeep closes idle connections that have sat unused beyond the
// pool's idle timeout.
func (p *ConnectionPool) IdleUpkeep() {
	if p.idleTimeout <= 0 {
		return
	}

	p.mu.Lock()
	now := time.Now()
	kept := p.idle[:0]
	var toClose []*nntp.Connection
	for _, conn := range p.idle {
		if now.Sub(p.idleSince[conn.ID]) > p.idleTimeout {
			toClose = append(toClose, conn)
			delete(p.idleSince, conn.ID)
			continue
		}
		kept = append(kept, conn)
	}
	p.idle = kept
	p.mu.Unlock()

	for _, conn := range toClose {
		if err := conn.Close(); err != nil {
			logger.WithConnection(conn.ID).Debug().Err(err).Msg("error closing idle connection")
		}
	}
}
