package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool

	calls  []string
	action string
	params []string
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Register(ctx context.Context) error {
	f.calls = append(f.calls, "register")
	return nil
}
func (f *fakeExec) Login(ctx context.Context) error {
	f.calls = append(f.calls, "login")
	f.loggedIn = true
	return nil
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "logout")
	f.loggedIn = false
	return nil
}
func (f *fakeExec) Ping(ctx context.Context) error { f.calls = append(f.calls, "ping"); return nil }
func (f *fakeExec) Call(ctx context.Context, action string, params []string) error {
	f.calls = append(f.calls, "call")
	f.action, f.params = action, params
	return nil
}

func silence(t *testing.T) *[]string {
	t.Helper()
	var printed []string
	origPrint := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, len(a))
		for i, v := range a {
			parts[i], _ = v.(string)
		}
		printed = append(printed, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = origPrint })
	return &printed
}

func TestRunREPL_CommandsInOrder(t *testing.T) {
	silence(t)

	input := strings.NewReader(strings.Join([]string{
		"help",
		"register",
		"login",
		"",
		"ping",
		"call RentMovie MovieId=3",
		"logout",
		"exit",
		"ping",
	}, "\n"))

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewReader(input))

	assert.Equal(t, []string{"register", "login", "ping", "call", "logout"}, exec.calls)
	assert.Equal(t, "RentMovie", exec.action)
	assert.Equal(t, []string{"MovieId=3"}, exec.params)
}

func TestRunREPL_UsageUnknownAndEOF(t *testing.T) {
	printed := silence(t)

	input := strings.NewReader("call\nfoobar\nping")
	exec := &fakeExec{loggedIn: true}
	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewReader(input))

	assert.Equal(t, []string{"ping"}, exec.calls, "last line without newline still runs")
	assert.Contains(t, *printed, "Usage: call <Action> [key=value ...]")
	assert.Contains(t, *printed, "Unknown command: foobar")
}

func TestRunREPL_HelpDependsOnLogin(t *testing.T) {
	printed := silence(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("help\nlogin\nhelp\nquit\n")))

	var helps []string
	for _, p := range *printed {
		if strings.HasPrefix(p, "Available commands") {
			helps = append(helps, p)
		}
	}
	assert.Len(t, helps, 2)
	assert.Contains(t, helps[0], "register")
	assert.NotContains(t, helps[1], "register")
	assert.Contains(t, helps[1], "logout")
}
