// Package nntp provides the thin connection and socket types the
// scheduler hands to tasks, and the asynchronous dialer that produces
// them.
package nntp

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Socket wraps a raw network connection to a single NNTP server and
// tracks its transfer speed. Pan's GIOChannelSocket played the same
// role: a thin wrapper the pool can reset between uses.
type Socket struct {
	conn net.Conn

	mu          sync.Mutex
	bytesWindow int64
	windowStart time.Time
}

// NewSocket wraps an already-dialed net.Conn.
func NewSocket(conn net.Conn) *Socket {
	return &Socket{conn: conn, windowStart: time.Now()}
}

// Conn returns the underlying network connection.
func (s *Socket) Conn() net.Conn {
	return s.conn
}

// Close closes the underlying connection.
func (s *Socket) Close() error {
	return s.conn.Close()
}

// RecordBytes accounts for n bytes transferred, for speed reporting.
func (s *Socket) RecordBytes(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bytesWindow += int64(n)
}

// ResetSpeedCounter zeroes the transfer window. Called whenever a
// connection changes hands between pool and task.
func (s *Socket) ResetSpeedCounter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bytesWindow = 0
	s.windowStart = time.Now()
}

// KiBps reports the average transfer rate since the last reset.
func (s *Socket) KiBps() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	elapsed := time.Since(s.windowStart).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.bytesWindow) / 1024.0 / elapsed
}

// Connection is an opaque handle bound to exactly one server, owned by
// exactly one ConnectionPool at a time except while checked out to a
// task. It carries the socket and nothing else the scheduler needs to
// interpret — application-level NNTP framing lives entirely in tasks.
type Connection struct {
	ID     string
	Server string
	Socket *Socket
}

// NewConnection wraps socket as a Connection bound to server.
func NewConnection(server string, socket *Socket) *Connection {
	return &Connection{
		ID:     uuid.New().String(),
		Server: server,
		Socket: socket,
	}
}

// ResetSpeedCounter resets the underlying socket's transfer window.
func (c *Connection) ResetSpeedCounter() {
	c.Socket.ResetSpeedCounter()
}

// KiBps reports the connection's current transfer rate.
func (c *Connection) KiBps() float64 {
	return c.Socket.KiBps()
}

// Close tears down the underlying socket.
func (c *Connection) Close() error {
	return c.Socket.Close()
}
