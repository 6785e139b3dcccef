// Package dispatch routes decrypted requests: it classifies the action,
// enforces the session rule, runs control-plane handlers itself and hands
// every other action to the business layer.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/dmitrijs2005/gophlink/internal/common"
	"github.com/dmitrijs2005/gophlink/internal/logging"
	"github.com/dmitrijs2005/gophlink/internal/protocol"
	"github.com/dmitrijs2005/gophlink/internal/server/models"
	"github.com/dmitrijs2005/gophlink/internal/server/sessions"
)

// BusinessLayer executes the actions this package does not own.
type BusinessLayer interface {
	// RequiresSession classifies action. Unknown actions should report true
	// so anonymous peers cannot probe which actions exist.
	RequiresSession(action string) bool
	// Execute runs action. userID is nil for anonymous actions. Returning
	// common.ErrUnknownAction yields the "unknown action" response; any other
	// error's message is sent to the peer as is.
	Execute(ctx context.Context, action string, args protocol.Args, userID *int64) (protocol.Response, error)
}

// Users is the credential side of the control plane.
type Users interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

// Sessions is the token side of the control plane.
type Sessions interface {
	Create(ctx context.Context, userID int64) (sessions.Session, error)
	Validate(ctx context.Context, token string) (sessions.Session, error)
	Revoke(ctx context.Context, token string) (bool, error)
}

type ctxKey string

const userIDKey ctxKey = "userID"

// UserIDFromContext returns the user resolved from the session, if any.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

type Dispatcher struct {
	users    Users
	sessions Sessions
	business BusinessLayer
	logger   logging.Logger
}

func New(users Users, sessions Sessions, business BusinessLayer, logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Dispatcher{users: users, sessions: sessions, business: business, logger: logger}
}

// RequiresSession reports whether action needs a valid token.
func (d *Dispatcher) RequiresSession(action string) bool {
	switch action {
	case common.ActionRegister, common.ActionLogin, common.ActionPing:
		return false
	case common.ActionLogout:
		return true
	}
	if d.business == nil {
		return true
	}
	return d.business.RequiresSession(action)
}

// Dispatch never fails: every outcome, including a panic in a handler, is
// turned into a Response.
func (d *Dispatcher) Dispatch(ctx context.Context, req protocol.Request) (resp protocol.Response) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error(ctx, "handler panic", "action", req.Action, "panic", fmt.Sprint(p), "stack", string(debug.Stack()))
			resp = protocol.Fail(common.MessageInternalError)
		}
	}()

	args := req.Data
	if args == nil {
		args = protocol.Args{}
	}

	var userID *int64
	if d.RequiresSession(req.Action) {
		s, err := d.resolveSession(ctx, args)
		if err != nil {
			return d.sessionFailure(ctx, req.Action, err)
		}
		uid := s.UserID
		userID = &uid
		ctx = context.WithValue(ctx, userIDKey, uid)
		if !args.Has(common.UserIDKey) {
			args = args.Clone()
			args[common.UserIDKey] = protocol.IntValue(uid)
		}
	}

	switch req.Action {
	case common.ActionRegister:
		return d.register(ctx, args)
	case common.ActionLogin:
		return d.login(ctx, args)
	case common.ActionPing:
		return d.ping(ctx, args)
	case common.ActionLogout:
		return d.logout(ctx, args)
	}

	return d.execute(ctx, req.Action, args, userID)
}

func (d *Dispatcher) resolveSession(ctx context.Context, args protocol.Args) (sessions.Session, error) {
	token, _ := args.String(common.SessionTokenKey)
	return d.sessions.Validate(ctx, token)
}

func (d *Dispatcher) sessionFailure(ctx context.Context, action string, err error) protocol.Response {
	if errors.Is(err, common.ErrInvalidOrMissingSession) {
		d.logger.Debug(ctx, "session rejected", "action", action)
		return protocol.Fail(common.MessageInvalidSession)
	}
	d.logger.Error(ctx, "session lookup failed", "action", action, "error", err)
	return protocol.Fail(common.MessageInternalError)
}

func (d *Dispatcher) execute(ctx context.Context, action string, args protocol.Args, userID *int64) protocol.Response {
	if d.business == nil {
		return protocol.Fail(common.MessageUnknownAction)
	}

	resp, err := d.business.Execute(ctx, action, args, userID)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrUnknownAction):
			return protocol.Fail(common.MessageUnknownAction)
		case errors.Is(err, common.ErrorInternal):
			d.logger.Error(ctx, "business action failed", "action", action, "error", err)
			return protocol.Fail(common.MessageInternalError)
		default:
			d.logger.Debug(ctx, "business action rejected", "action", action, "error", err)
			return protocol.Fail(err.Error())
		}
	}
	return resp
}
