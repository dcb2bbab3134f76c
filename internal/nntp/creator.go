package nntp

import (
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maumercado/nntp-queue/internal/logger"
	"github.com/maumercado/nntp-queue/internal/metrics"
)

// CreateListener receives the asynchronous result of a dial started by
// Creator.CreateSocket. For a dial that a worker runs, OnSocketCreated
// is invoked from that worker goroutine; once the Creator is stopped,
// CreateSocket reports failure on the calling goroutine instead.
// Callers that touch shared state must guard it themselves.
type CreateListener interface {
	OnSocketCreated(server string, ok bool, conn *Connection, err error)
}

type dialJob struct {
	server   string
	addr     string
	useTLS   bool
	listener CreateListener
}

// Creator dials NNTP servers on a small fixed pool of worker goroutines
// so that a slow or hanging DNS lookup on one server cannot stall
// dials to every other server: a job channel drained by a
// sync.WaitGroup-tracked set of goroutines, stopped cooperatively via a
// closed channel.
type Creator struct {
	dialTimeout time.Duration
	insecureTLS bool

	jobs     chan dialJob
	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
	stopped  atomic.Bool
}

// NewCreator starts a Creator with the given number of dial workers.
// insecureTLS, when true, skips certificate verification; SSL policy
// otherwise is out of scope here and left to the caller's config.
func NewCreator(workers int, dialTimeout time.Duration, insecureTLS bool) *Creator {
	if workers < 1 {
		workers = 1
	}
	c := &Creator{
		dialTimeout: dialTimeout,
		insecureTLS: insecureTLS,
		jobs:        make(chan dialJob, workers*4),
		stopCh:      make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		c.wg.Add(1)
		go c.worker()
	}
	return c
}

// CreateSocket starts asynchronous creation of a connection to addr for
// server. listener.OnSocketCreated is called once, on a worker
// goroutine, when the dial completes or fails. A job still queued when
// Stop is called is abandoned and its listener is never called.
func (c *Creator) CreateSocket(server, addr string, useTLS bool, listener CreateListener) {
	if c.stopped.Load() {
		listener.OnSocketCreated(server, false, nil, fmt.Errorf("nntp: creator stopped"))
		return
	}
	job := dialJob{server: server, addr: addr, useTLS: useTLS, listener: listener}
	select {
	case c.jobs <- job:
	case <-c.stopCh:
		listener.OnSocketCreated(server, false, nil, fmt.Errorf("nntp: creator stopped"))
	}
}

// Stop waits for in-flight dials to finish and retires the worker
// goroutines. Queued-but-not-started jobs are abandoned.
func (c *Creator) Stop() {
	c.stopOnce.Do(func() {
		c.stopped.Store(true)
		close(c.stopCh)
	})
	c.wg.Wait()
}

func (c *Creator) worker() {
	defer c.wg.Done()
	for {
		select {
		case job := <-c.jobs:
			c.dial(job)
		case <-c.stopCh:
			return
		}
	}
}

func (c *Creator) dial(job dialJob) {
	log := logger.WithServer(job.server)
	start := time.Now()

	dialer := &net.Dialer{Timeout: c.dialTimeout}

	var conn net.Conn
	var err error
	if job.useTLS {
		conn, err = tls.DialWithDialer(dialer, "tcp", job.addr, &tls.Config{
			InsecureSkipVerify: c.insecureTLS,
			ServerName:         hostOnly(job.addr),
		})
	} else {
		conn, err = dialer.Dial("tcp", job.addr)
	}

	elapsed := time.Since(start).Seconds()
	if err != nil {
		metrics.RecordDialAttempt(job.server, "error", elapsed)
		log.Warn().Err(err).Str("addr", job.addr).Msg("socket dial failed")
		job.listener.OnSocketCreated(job.server, false, nil, err)
		return
	}

	metrics.RecordDialAttempt(job.server, "ok", elapsed)
	log.Debug().Str("addr", job.addr).Dur("elapsed", time.Since(start)).Msg("socket dial succeeded")
	job.listener.OnSocketCreated(job.server, true, NewConnection(job.server, NewSocket(conn)), nil)
}

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
