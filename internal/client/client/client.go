package client

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophlink/internal/channel"
	"github.com/dmitrijs2005/gophlink/internal/common"
	"github.com/dmitrijs2005/gophlink/internal/cryptox"
	"github.com/dmitrijs2005/gophlink/internal/logging"
	"github.com/dmitrijs2005/gophlink/internal/protocol"
)

const (
	DefaultDialTimeout    = 5 * time.Second
	DefaultRequestTimeout = 30 * time.Second
)

// DialFunc opens the transport stream.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

type Client struct {
	address        string
	codec          *channel.Codec
	dial           DialFunc
	dialTimeout    time.Duration
	requestTimeout time.Duration
	maxFrameSize   uint32
	logger         logging.Logger

	mu    sync.Mutex
	conn  net.Conn
	token string
}

type Option func(*Client)

// WithDialer replaces the TCP dialer, e.g. with one returning net.Pipe ends.
func WithDialer(d DialFunc) Option {
	return func(c *Client) { c.dial = d }
}

func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) { c.dialTimeout = d }
}

// WithRequestTimeout bounds one request/response exchange. Zero disables it.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) { c.requestTimeout = d }
}

func WithMaxFrameSize(n uint32) Option {
	return func(c *Client) { c.maxFrameSize = n }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for address. Nothing is dialed until the first call.
func New(address string, keys cryptox.KeyPair, opts ...Option) *Client {
	c := &Client{
		address:        address,
		dial:           (&net.Dialer{}).DialContext,
		dialTimeout:    DefaultDialTimeout,
		requestTimeout: DefaultRequestTimeout,
		logger:         logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.codec = channel.NewCodec(keys, c.maxFrameSize)
	c.logger = c.logger.With("module", "client", "server", address)
	return c
}

// Call sends one request and waits for its response.
func (c *Client) Call(ctx context.Context, action string, args protocol.Args) protocol.Response {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := args.Clone()
	if c.token != "" && injectsToken(action) && !data.Has(common.SessionTokenKey) {
		data[common.SessionTokenKey] = protocol.StringValue(c.token)
	}

	resp, err := c.roundTrip(ctx, protocol.Request{Action: action, Data: data})
	if err != nil {
		c.logger.Warn(ctx, "call failed", "action", action, "error", err)
		c.dropConn()
		return protocol.Fail(fmt.Sprintf("%s: %v", common.MessageCommunicationError, err))
	}

	if !resp.Success && resp.Message == common.MessageSecurityError {
		// the server closes the stream after a security reply
		c.dropConn()
	}
	c.observe(action, resp)
	return resp
}

func injectsToken(action string) bool {
	return action != common.ActionLogin && action != common.ActionRegister
}

// observe updates the stored token from a response. Caller holds c.mu.
func (c *Client) observe(action string, resp protocol.Response) {
	switch {
	case action == common.ActionLogin && resp.Success:
		if token, ok := resp.ResultValue().AsString(); ok && token != "" {
			c.token = token
		}
	case action == common.ActionLogout && resp.Success:
		c.token = ""
	case !resp.Success && resp.Message == common.MessageInvalidSession:
		c.token = ""
	}
}

func (c *Client) roundTrip(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return protocol.Response{}, err
	}

	var deadline time.Time
	if c.requestTimeout > 0 {
		deadline = time.Now().Add(c.requestTimeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return protocol.Response{}, err
	}
	// unblock the exchange when ctx is cancelled
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })

	if err := c.codec.WriteRequest(conn, req); err != nil {
		stop()
		return protocol.Response{}, c.ctxErr(ctx, err)
	}
	resp, err := c.codec.ReadResponse(conn)
	if !stop() {
		// the forced deadline may land after this exchange
		c.dropConn()
	}
	if err != nil {
		return protocol.Response{}, c.ctxErr(ctx, err)
	}
	return resp, nil
}

func (c *Client) ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// connect returns the live connection, dialing one if needed. Caller holds c.mu.
func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}

	dialCtx := ctx
	if c.dialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.dialTimeout)
		defer cancel()
	}

	conn, err := c.dial(dialCtx, "tcp", c.address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.address, err)
	}
	c.logger.Debug(ctx, "connected")
	c.conn = conn
	return conn, nil
}

// dropConn closes the current connection. Caller holds c.mu.
func (c *Client) dropConn() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Register(ctx context.Context, name, email, password string) protocol.Response {
	return c.Call(ctx, common.ActionRegister, protocol.Args{
		common.NameKey:     protocol.StringValue(name),
		common.EmailKey:    protocol.StringValue(email),
		common.PasswordKey: protocol.StringValue(password),
	})
}

func (c *Client) Login(ctx context.Context, email, password string) protocol.Response {
	return c.Call(ctx, common.ActionLogin, protocol.Args{
		common.EmailKey:    protocol.StringValue(email),
		common.PasswordKey: protocol.StringValue(password),
	})
}

func (c *Client) Logout(ctx context.Context) protocol.Response {
	return c.Call(ctx, common.ActionLogout, nil)
}

func (c *Client) Ping(ctx context.Context) protocol.Response {
	return c.Call(ctx, common.ActionPing, nil)
}

// LoggedIn reports whether a session token is stored.
func (c *Client) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != ""
}

// Close drops the connection and forgets the token. The client stays usable.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
