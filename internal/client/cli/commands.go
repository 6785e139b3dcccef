package cli

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophlink/internal/common"
	"github.com/dmitrijs2005/gophlink/internal/protocol"
)

func (a *App) Register(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Enter your name", a.out)
	if err != nil {
		return a.inputFailed(err)
	}
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return a.inputFailed(err)
	}
	password, err := GetPassword(a.reader, a.out)
	if err != nil {
		return a.inputFailed(err)
	}
	defer common.WipeByteArray(password)

	return a.report(a.client.Register(ctx, name, email, string(password)))
}

func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return a.inputFailed(err)
	}
	password, err := GetPassword(a.reader, a.out)
	if err != nil {
		return a.inputFailed(err)
	}
	defer common.WipeByteArray(password)

	resp := a.client.Login(ctx, email, string(password))
	if resp.Success {
		// the token stays inside the client
		resp.Result = nil
	}
	return a.report(resp)
}

func (a *App) Logout(ctx context.Context) error {
	return a.report(a.client.Logout(ctx))
}

func (a *App) Ping(ctx context.Context) error {
	return a.report(a.client.Ping(ctx))
}

// Call runs action with params given as key=value words.
func (a *App) Call(ctx context.Context, action string, params []string) error {
	args, err := parseParams(params)
	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return err
	}
	return a.report(a.client.Call(ctx, action, args))
}

func (a *App) inputFailed(err error) error {
	fmt.Fprintln(a.out, "Input error:", err)
	return err
}

// report prints resp and turns a failed one into an error.
func (a *App) report(resp protocol.Response) error {
	if !resp.Success {
		fmt.Fprintln(a.out, "Error:", resp.Message)
		return errors.New(resp.Message)
	}
	if resp.Message != "" {
		fmt.Fprintln(a.out, resp.Message)
	}
	if resp.Result != nil && !resp.Result.IsNull() {
		fmt.Fprintln(a.out, resp.Result.String())
	}
	return nil
}

// parseParams builds request arguments from key=value words. Values are
// typed: null, true/false, integers and floats are recognized, anything
// else is a string. Wrap a value in double quotes to force a string.
func parseParams(params []string) (protocol.Args, error) {
	args := make(protocol.Args, len(params))
	for _, p := range params {
		key, raw, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		args[key] = parseValue(raw)
	}
	return args, nil
}

func parseValue(raw string) protocol.Value {
	if len(raw) >= 2 && strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) {
		return protocol.StringValue(raw[1 : len(raw)-1])
	}
	switch raw {
	case "null":
		return protocol.NullValue()
	case "true":
		return protocol.BoolValue(true)
	case "false":
		return protocol.BoolValue(false)
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return protocol.IntValue(i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return protocol.FloatValue(f)
	}
	return protocol.StringValue(raw)
}
