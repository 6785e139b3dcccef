package client

import (
	"context"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophlink/internal/channel"
	"github.com/dmitrijs2005/gophlink/internal/common"
	"github.com/dmitrijs2005/gophlink/internal/cryptox"
	"github.com/dmitrijs2005/gophlink/internal/protocol"
	"github.com/dmitrijs2005/gophlink/internal/server/secure"
)

// scriptDispatcher records requests and answers a fixed set of actions.
type scriptDispatcher struct {
	mu      sync.Mutex
	reqs    []protocol.Request
	release chan struct{}
}

func (d *scriptDispatcher) Dispatch(_ context.Context, req protocol.Request) protocol.Response {
	d.mu.Lock()
	d.reqs = append(d.reqs, req)
	d.mu.Unlock()

	token, _ := req.Data.String(common.SessionTokenKey)
	switch req.Action {
	case common.ActionLogin:
		email, _ := req.Data.String(common.EmailKey)
		if email == "bad@example.com" {
			return protocol.Fail(common.MessageInvalidCredentials)
		}
		v := protocol.StringValue("tok-" + email)
		return protocol.OK(common.MessageLoggedIn, &v)
	case common.ActionLogout:
		if token == "" {
			return protocol.Fail(common.MessageInvalidSession)
		}
		return protocol.OK(common.MessageLoggedOut, nil)
	case "Expire":
		return protocol.Fail(common.MessageInvalidSession)
	case "Whoami":
		v := protocol.StringValue(token)
		return protocol.OK("", &v)
	case "Slow":
		<-d.release
		return protocol.OK("late", nil)
	default:
		return protocol.OK(common.MessagePong, nil)
	}
}

func (d *scriptDispatcher) last() protocol.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reqs[len(d.reqs)-1]
}

// pipeServer hands out net.Pipe connections served by a secure.Handler.
type pipeServer struct {
	keys       cryptox.KeyPair
	dispatcher *scriptDispatcher
	dials      atomic.Int32
	brokenDial int32
}

func newPipeServer(t *testing.T, keys cryptox.KeyPair) *pipeServer {
	t.Helper()
	d := &scriptDispatcher{release: make(chan struct{})}
	t.Cleanup(func() { close(d.release) })
	return &pipeServer{keys: keys, dispatcher: d}
}

func (p *pipeServer) dial(_ context.Context, _, _ string) (net.Conn, error) {
	n := p.dials.Add(1)
	cli, srv := net.Pipe()
	if n == p.brokenDial {
		srv.Close()
		return cli, nil
	}

	h := secure.NewHandler(channel.NewCodec(p.keys, 0), p.dispatcher, nil, 0, time.Second)
	go func() {
		defer srv.Close()
		h.ServeConn(context.Background(), srv)
	}()
	return cli, nil
}

func testKeys(t *testing.T) cryptox.KeyPair {
	t.Helper()
	kp, err := cryptox.GenerateKeyPair()
	require.NoError(t, err)
	return kp
}

func newTestClient(t *testing.T, p *pipeServer, keys cryptox.KeyPair, opts ...Option) *Client {
	t.Helper()
	c := New("pipe", keys, append([]Option{WithDialer(p.dial), WithRequestTimeout(2 * time.Second)}, opts...)...)
	t.Cleanup(func() { c.Close() })
	return c
}

func isCommunicationError(resp protocol.Response) bool {
	return !resp.Success && strings.HasPrefix(resp.Message, common.MessageCommunicationError+": ")
}

func TestClient_LazyDialAndSingleConnection(t *testing.T) {
	keys := testKeys(t)
	p := newPipeServer(t, keys)
	c := newTestClient(t, p, keys)

	assert.Equal(t, int32(0), p.dials.Load())

	for i := 0; i < 3; i++ {
		resp := c.Ping(context.Background())
		require.True(t, resp.Success, resp.Message)
		assert.Equal(t, common.MessagePong, resp.Message)
	}
	assert.Equal(t, int32(1), p.dials.Load())
}

func TestClient_TokenCaptureAndInjection(t *testing.T) {
	keys := testKeys(t)
	p := newPipeServer(t, keys)
	c := newTestClient(t, p, keys)
	ctx := context.Background()

	c.Ping(ctx)
	assert.False(t, p.dispatcher.last().Data.Has(common.SessionTokenKey))

	resp := c.Login(ctx, "a@example.com", "pw")
	require.True(t, resp.Success)
	assert.True(t, c.LoggedIn())

	resp = c.Call(ctx, "Whoami", nil)
	got, _ := resp.ResultValue().AsString()
	assert.Equal(t, "tok-a@example.com", got)

	c.Ping(ctx)
	tok, _ := p.dispatcher.last().Data.String(common.SessionTokenKey)
	assert.Equal(t, "tok-a@example.com", tok, "ping renews the session")

	c.Register(ctx, "n", "x@example.com", "pw")
	assert.False(t, p.dispatcher.last().Data.Has(common.SessionTokenKey), "register never carries a token")

	c.Login(ctx, "b@example.com", "pw")
	assert.False(t, p.dispatcher.last().Data.Has(common.SessionTokenKey), "login never carries a token")

	resp = c.Call(ctx, "Whoami", nil)
	got, _ = resp.ResultValue().AsString()
	assert.Equal(t, "tok-b@example.com", got, "a new login replaces the token")
}

func TestClient_FailedLoginKeepsToken(t *testing.T) {
	keys := testKeys(t)
	p := newPipeServer(t, keys)
	c := newTestClient(t, p, keys)
	ctx := context.Background()

	require.True(t, c.Login(ctx, "a@example.com", "pw").Success)
	require.False(t, c.Login(ctx, "bad@example.com", "pw").Success)
	assert.True(t, c.LoggedIn())
}

func TestClient_ExplicitTokenWins(t *testing.T) {
	keys := testKeys(t)
	p := newPipeServer(t, keys)
	c := newTestClient(t, p, keys)
	ctx := context.Background()

	c.Login(ctx, "a@example.com", "pw")
	resp := c.Call(ctx, "Whoami", protocol.Args{common.SessionTokenKey: protocol.StringValue("other")})
	got, _ := resp.ResultValue().AsString()
	assert.Equal(t, "other", got)
}

func TestClient_CallDoesNotMutateArgs(t *testing.T) {
	keys := testKeys(t)
	p := newPipeServer(t, keys)
	c := newTestClient(t, p, keys)
	ctx := context.Background()

	c.Login(ctx, "a@example.com", "pw")
	args := protocol.Args{"MovieId": protocol.IntValue(1)}
	c.Call(ctx, "RentMovie", args)
	assert.Len(t, args, 1)
}

func TestClient_LogoutClearsToken(t *testing.T) {
	keys := testKeys(t)
	p := newPipeServer(t, keys)
	c := newTestClient(t, p, keys)
	ctx := context.Background()

	c.Login(ctx, "a@example.com", "pw")
	resp := c.Logout(ctx)
	require.True(t, resp.Success)
	assert.False(t, c.LoggedIn())

	c.Ping(ctx)
	assert.False(t, p.dispatcher.last().Data.Has(common.SessionTokenKey))

	resp = c.Logout(ctx)
	assert.False(t, resp.Success)
	assert.Equal(t, common.MessageInvalidSession, resp.Message)
}

func TestClient_InvalidSessionReplyClearsToken(t *testing.T) {
	keys := testKeys(t)
	p := newPipeServer(t, keys)
	c := newTestClient(t, p, keys)
	ctx := context.Background()

	c.Login(ctx, "a@example.com", "pw")
	resp := c.Call(ctx, "Expire", nil)
	assert.False(t, resp.Success)
	assert.False(t, c.LoggedIn())
}

func TestClient_RedialsAfterFailure(t *testing.T) {
	keys := testKeys(t)
	p := newPipeServer(t, keys)
	p.brokenDial = 1
	c := newTestClient(t, p, keys)
	ctx := context.Background()

	resp := c.Ping(ctx)
	assert.True(t, isCommunicationError(resp), resp.Message)

	resp = c.Ping(ctx)
	assert.True(t, resp.Success, resp.Message)
	assert.Equal(t, int32(2), p.dials.Load())
}

func TestClient_WrongKeysIsCommunicationError(t *testing.T) {
	p := newPipeServer(t, testKeys(t))
	c := newTestClient(t, p, testKeys(t))

	resp := c.Ping(context.Background())
	assert.True(t, isCommunicationError(resp), resp.Message)
}

func TestClient_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := New(addr, testKeys(t), WithDialTimeout(time.Second))
	defer c.Close()

	resp := c.Ping(context.Background())
	assert.True(t, isCommunicationError(resp), resp.Message)
	assert.Contains(t, resp.Message, addr)
}

func TestClient_ContextCancelUnblocksCall(t *testing.T) {
	keys := testKeys(t)
	p := newPipeServer(t, keys)
	c := newTestClient(t, p, keys, WithRequestTimeout(0))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	resp := c.Call(ctx, "Slow", nil)
	assert.True(t, isCommunicationError(resp), resp.Message)
	assert.Contains(t, resp.Message, context.DeadlineExceeded.Error())
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_RequestTimeout(t *testing.T) {
	keys := testKeys(t)
	p := newPipeServer(t, keys)
	c := newTestClient(t, p, keys, WithRequestTimeout(50*time.Millisecond))

	resp := c.Call(context.Background(), "Slow", nil)
	assert.True(t, isCommunicationError(resp), resp.Message)
}

func TestClient_ConcurrentCallsAreSerialized(t *testing.T) {
	keys := testKeys(t)
	p := newPipeServer(t, keys)
	c := newTestClient(t, p, keys)
	ctx := context.Background()

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Ping(ctx).Success {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(20), ok.Load())
	assert.Equal(t, int32(1), p.dials.Load())
}
