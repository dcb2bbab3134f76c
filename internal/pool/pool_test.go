package pool

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maumercado/nntp-queue/internal/nntp"
)

type recordingListener struct {
	mu        sync.Mutex
	available []string
	errors    []string
	readyCh   chan struct{}
	errCh     chan struct{}
}

func newRecordingListener() *recordingListener {
	return &recordingListener{readyCh: make(chan struct{}, 8), errCh: make(chan struct{}, 8)}
}

func (l *recordingListener) OnPoolHasNNTPAvailable(server string) {
	l.mu.Lock()
	l.available = append(l.available, server)
	l.mu.Unlock()
	l.readyCh <- struct{}{}
}

func (l *recordingListener) OnPoolError(server, message string) {
	l.mu.Lock()
	l.errors = append(l.errors, server)
	l.mu.Unlock()
	l.errCh <- struct{}{}
}

func (l *recordingListener) waitReady(t *testing.T) {
	t.Helper()
	select {
	case <-l.readyCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pool readiness")
	}
}

func (l *recordingListener) waitError(t *testing.T) {
	t.Helper()
	select {
	case <-l.errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pool error")
	}
}

func startEchoServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.(*net.TCPConn).SetNoDelay(true)
			go func() {
				defer conn.Close()
				// Keep the connection open until the test closes it.
				buf := make([]byte, 1)
				for {
					if _, err := conn.Read(buf); err != nil {
						return
					}
				}
			}()
		}
	}()
	return ln.Addr().String()
}

func TestConnectionPool_RequestNNTP_FillsIdle(t *testing.T) {
	addr := startEchoServer(t)
	creator := nntp.NewCreator(2, time.Second, false)
	defer creator.Stop()

	p := New("eternal-september", addr, false, 2, time.Minute, creator)
	listener := newRecordingListener()
	p.SetListener(listener)

	p.RequestNNTP()
	listener.waitReady(t)

	counts := p.Counts()
	assert.Equal(t, 0, counts.Active)
	assert.Equal(t, 1, counts.Idle)
	assert.Equal(t, 0, counts.Pending)
}

func TestConnectionPool_RequestNNTP_RespectsMax(t *testing.T) {
	addr := startEchoServer(t)
	creator := nntp.NewCreator(4, time.Second, false)
	defer creator.Stop()

	p := New("eternal-september", addr, false, 1, time.Minute, creator)
	listener := newRecordingListener()
	p.SetListener(listener)

	p.RequestNNTP()
	listener.waitReady(t)

	// A second request should be a no-op: active+idle+pending already at max.
	p.RequestNNTP()
	time.Sleep(50 * time.Millisecond)

	counts := p.Counts()
	assert.Equal(t, 1, counts.Idle)
	assert.Equal(t, 0, counts.Pending)
}

func TestConnectionPool_CheckOut_CheckIn(t *testing.T) {
	addr := startEchoServer(t)
	creator := nntp.NewCreator(2, time.Second, false)
	defer creator.Stop()

	p := New("eternal-september", addr, false, 2, time.Minute, creator)
	listener := newRecordingListener()
	p.SetListener(listener)

	p.RequestNNTP()
	listener.waitReady(t)

	conn := p.CheckOut()
	require.NotNil(t, conn)
	assert.Equal(t, 1, p.Counts().Active)
	assert.Equal(t, 0, p.Counts().Idle)

	assert.Nil(t, p.CheckOut()) // nothing else idle

	p.CheckIn(conn, true)
	assert.Equal(t, 0, p.Counts().Active)
	assert.Equal(t, 1, p.Counts().Idle)
}

func TestConnectionPool_CheckIn_NotOK_Discards(t *testing.T) {
	addr := startEchoServer(t)
	creator := nntp.NewCreator(2, time.Second, false)
	defer creator.Stop()

	p := New("eternal-september", addr, false, 2, time.Minute, creator)
	listener := newRecordingListener()
	p.SetListener(listener)

	p.RequestNNTP()
	listener.waitReady(t)

	conn := p.CheckOut()
	require.NotNil(t, conn)

	p.CheckIn(conn, false)
	counts := p.Counts()
	assert.Equal(t, 0, counts.Active)
	assert.Equal(t, 0, counts.Idle)
}

func TestConnectionPool_OnSocketCreated_Error(t *testing.T) {
	creator := nntp.NewCreator(1, 200*time.Millisecond, false)
	defer creator.Stop()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close() // guarantees connection refused

	p := New("eternal-september", addr, false, 1, time.Minute, creator)
	listener := newRecordingListener()
	p.SetListener(listener)

	p.RequestNNTP()
	listener.waitError(t)

	counts := p.Counts()
	assert.Equal(t, 0, counts.Pending)
	assert.Equal(t, 0, counts.Idle)
}

func TestConnectionPool_IdleUpkeep_ClosesStaleConnections(t *testing.T) {
	addr := startEchoServer(t)
	creator := nntp.NewCreator(2, time.Second, false)
	defer creator.Stop()

	p := New("eternal-september", addr, false, 2, 10*time.Millisecond, creator)
	listener := newRecordingListener()
	p.SetListener(listener)

	p.RequestNNTP()
	listener.waitReady(t)
	require.Equal(t, 1, p.Counts().Idle)

	time.Sleep(30 * time.Millisecond)
	p.IdleUpkeep()

	assert.Equal(t, 0, p.Counts().Idle)
}

func TestConnectionPool_SpeedKiBps_NoActiveConnections(t *testing.T) {
	addr := startEchoServer(t)
	creator := nntp.NewCreator(1, time.Second, false)
	defer creator.Stop()

	p := New("eternal-september", addr, false, 1, time.Minute, creator)
	assert.Equal(t, 0.0, p.SpeedKiBps())
}
