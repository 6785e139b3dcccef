// Package tcp runs a single accept loop and hands every connection to a
// pluggable ConnHandler in its own goroutine.
package tcp

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophlink/internal/logging"
)

// ConnHandler serves one connection to completion. The server closes conn
// after ServeConn returns. ctx is cancelled when the server stops.
type ConnHandler interface {
	ServeConn(ctx context.Context, conn net.Conn)
}

// HandlerFunc adapts a function to ConnHandler.
type HandlerFunc func(ctx context.Context, conn net.Conn)

func (f HandlerFunc) ServeConn(ctx context.Context, conn net.Conn) { f(ctx, conn) }

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

type Server struct {
	address       string
	handler       ConnHandler
	logger        logging.Logger
	shutdownGrace time.Duration

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
	addr  net.Addr
	ready chan struct{}
}

func NewServer(address string, h ConnHandler, l logging.Logger, shutdownGrace time.Duration) *Server {
	if l == nil {
		l = logging.Nop()
	}
	return &Server{
		address:       address,
		handler:       h,
		logger:        l.With("module", "tcp_server"),
		shutdownGrace: shutdownGrace,
		conns:         make(map[net.Conn]struct{}),
		ready:         make(chan struct{}),
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Addr blocks until the listener is up and returns its address.
func (s *Server) Addr() net.Addr {
	<-s.ready
	return s.addr
}

// Serve accepts on ln until ctx is done. On stop it closes ln, lets live
// connections finish for the shutdown grace period and then closes them.
// Serve must be called at most once.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.addr = ln.Addr()
	close(s.ready)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping TCP server...")
			ln.Close()
		case <-stop:
		}
	}()

	s.logger.Info(ctx, "Starting TCP server", "address", s.addr.String())

	var serveErr error
	backoff := time.Duration(0)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				serveErr = err
				break
			}
			// EMFILE and friends clear once connections close
			backoff = nextBackoff(backoff)
			s.logger.Warn(ctx, "accept failed, retrying", "error", err, "backoff", backoff.String())
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
			}
			continue
		}
		backoff = 0

		s.track(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			defer conn.Close()
			s.handler.ServeConn(ctx, conn)
		}()
	}

	s.drain(ctx)
	return serveErr
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptBackoff
	}
	return min(d*2, maxAcceptBackoff)
}

func (s *Server) track(c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c] = struct{}{}
}

func (s *Server) untrack(c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}

// ActiveConns returns the number of connections being served.
func (s *Server) ActiveConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) drain(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(s.shutdownGrace)
	defer timer.Stop()

	select {
	case <-done:
		return
	case <-timer.C:
	}

	s.mu.Lock()
	n := len(s.conns)
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	s.logger.Warn(ctx, "force-closed connections after shutdown grace", "count", n)
	<-done
}
