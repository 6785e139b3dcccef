package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophlink/internal/client/client"
	"github.com/dmitrijs2005/gophlink/internal/client/config"
	"github.com/dmitrijs2005/gophlink/internal/logging"
	"github.com/dmitrijs2005/gophlink/internal/protocol"
)

// caller is the part of client.Client the commands use.
type caller interface {
	Register(ctx context.Context, name, email, password string) protocol.Response
	Login(ctx context.Context, email, password string) protocol.Response
	Logout(ctx context.Context) protocol.Response
	Ping(ctx context.Context) protocol.Response
	Call(ctx context.Context, action string, args protocol.Args) protocol.Response
	LoggedIn() bool
	Close() error
}

type App struct {
	config *config.Config
	client caller
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	keys, err := c.KeyPair()
	if err != nil {
		return nil, fmt.Errorf("key init error: %w", err)
	}

	logger, err := logging.New(os.Stderr, c.LogLevel, c.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	cl := client.New(c.ServerAddress, keys,
		client.WithDialTimeout(c.DialTimeout),
		client.WithRequestTimeout(c.RequestTimeout),
		client.WithMaxFrameSize(c.MaxFrameSize),
		client.WithLogger(logger),
	)

	return &App{config: c, client: cl, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.client.Close()

	printlnFn("Welcome to gophlink CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.client.LoggedIn()
}

func (a *App) getStatus() string {
	if a.isLoggedIn() {
		return "(logged in)"
	}
	return ""
}
