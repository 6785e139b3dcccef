package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Call(ctx context.Context, action string, params []string) error
}

// runREPL reads commands from reader until EOF, "exit" or "quit". Command
// handlers prompt from the same reader, so input is never buffered twice.
//
//	help                       show available commands
//	register                   create an account
//	login                      open a session
//	logout                     close the session
//	ping                       check the server (renews the session)
//	call <Action> [k=v ...]    run any server action
//	exit | quit                leave the program
//
// Errors returned by command handlers are ignored here; handlers report
// their own failures.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("gl %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: call <Action> [key=value ...], ping, logout, exit")
			} else {
				printlnFn("Available commands: register, login, ping, call <Action> [key=value ...], exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "ping":
			_ = a.Ping(ctx)

		case "call":
			if len(args) == 0 {
				printlnFn("Usage: call <Action> [key=value ...]")
				continue
			}
			_ = a.Call(ctx, args[0], args[1:])

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
