package tcp

import (
	"bufio"
	"context"
	"io"
	"net"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, h ConnHandler, grace time.Duration) (*Server, context.CancelFunc, <-chan error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer("", h, nil, grace)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()
	t.Cleanup(cancel)
	return s, cancel, errCh
}

func echoLine(ctx context.Context, conn net.Conn) {
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		if _, err := io.WriteString(conn, line); err != nil {
			return
		}
	}
}

func TestServer_ServesConnections(t *testing.T) {
	s, cancel, errCh := startServer(t, HandlerFunc(echoLine), time.Second)

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = io.WriteString(conn, "hello\n")
	require.NoError(t, err)
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "hello\n", line)

	conn.Close()
	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_SlowClientDoesNotBlockOthers(t *testing.T) {
	s, _, _ := startServer(t, HandlerFunc(echoLine), 0)

	// a client that connects and never sends anything
	idle, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer idle.Close()

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(2*time.Second)))

	_, err = io.WriteString(conn, "ping\n")
	require.NoError(t, err)
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "ping\n", line)

	assert.Eventually(t, func() bool { return s.ActiveConns() == 2 }, time.Second, 10*time.Millisecond)
}

func TestServer_ForceClosesAfterGrace(t *testing.T) {
	var finished atomic.Bool
	h := HandlerFunc(func(ctx context.Context, conn net.Conn) {
		// blocks until the server closes the connection
		_, _ = io.Copy(io.Discard, conn)
		finished.Store(true)
	})
	s, cancel, errCh := startServer(t, h, 50*time.Millisecond)

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	assert.Eventually(t, func() bool { return s.ActiveConns() == 1 }, time.Second, 5*time.Millisecond)

	start := time.Now()
	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.True(t, finished.Load())
	assert.Equal(t, 0, s.ActiveConns())

	// the client observes the close
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, err = conn.Read(make([]byte, 1))
	assert.Error(t, err)
}

func TestServer_GracefulFinishWithinGrace(t *testing.T) {
	release := make(chan struct{})
	var finished atomic.Bool
	h := HandlerFunc(func(ctx context.Context, conn net.Conn) {
		<-ctx.Done()
		<-release
		finished.Store(true)
	})
	s, cancel, errCh := startServer(t, h, 5*time.Second)

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	assert.Eventually(t, func() bool { return s.ActiveConns() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)
	close(release)

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.True(t, finished.Load())
}

// flakyListener fails the first accept the way an exhausted fd table does.
type flakyListener struct {
	net.Listener
	failed atomic.Bool
}

func (l *flakyListener) Accept() (net.Conn, error) {
	if l.failed.CompareAndSwap(false, true) {
		return nil, &net.OpError{Op: "accept", Net: "tcp", Err: os.NewSyscallError("accept", syscall.EMFILE)}
	}
	return l.Listener.Accept()
}

func TestServer_KeepsAcceptingAfterTemporaryError(t *testing.T) {
	inner, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ln := &flakyListener{Listener: inner}

	s := NewServer("", HandlerFunc(echoLine), nil, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(2*time.Second)))

	_, err = io.WriteString(conn, "still up\n")
	require.NoError(t, err)
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "still up\n", line)
	assert.True(t, ln.failed.Load())

	conn.Close()
	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_RunListenError(t *testing.T) {
	s := NewServer("256.0.0.1:99999", HandlerFunc(echoLine), nil, 0)
	assert.Error(t, s.Run(context.Background()))
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, minAcceptBackoff, nextBackoff(0))
	assert.Equal(t, 2*minAcceptBackoff, nextBackoff(minAcceptBackoff))
	assert.Equal(t, maxAcceptBackoff, nextBackoff(maxAcceptBackoff))
}
