package dispatch

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophlink/internal/common"
	"github.com/dmitrijs2005/gophlink/internal/protocol"
)

func (d *Dispatcher) register(ctx context.Context, args protocol.Args) protocol.Response {
	name, _ := args.String(common.NameKey)
	email, _ := args.String(common.EmailKey)
	password, _ := args.String(common.PasswordKey)

	user, err := d.users.Register(ctx, name, email, password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrValidation):
			return protocol.Fail(err.Error())
		case errors.Is(err, common.ErrorAlreadyExists):
			return protocol.Fail(common.MessageEmailTaken)
		default:
			d.logger.Error(ctx, "registration failed", "error", err)
			return protocol.Fail(common.MessageInternalError)
		}
	}

	d.logger.Info(ctx, "user registered", "user_id", user.ID)
	return protocol.OK(common.MessageRegistered, nil)
}

func (d *Dispatcher) login(ctx context.Context, args protocol.Args) protocol.Response {
	email, _ := args.String(common.EmailKey)
	password, _ := args.String(common.PasswordKey)
	if email == "" || password == "" {
		return protocol.Fail(common.ErrValidation.Error() + ": email and password are required")
	}

	user, err := d.users.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			d.logger.Info(ctx, "login rejected")
			return protocol.Fail(common.MessageInvalidCredentials)
		}
		d.logger.Error(ctx, "login failed", "error", err)
		return protocol.Fail(common.MessageInternalError)
	}

	s, err := d.sessions.Create(ctx, user.ID)
	if err != nil {
		d.logger.Error(ctx, "session creation failed", "error", err)
		return protocol.Fail(common.MessageInternalError)
	}

	d.logger.Info(ctx, "user logged in", "user_id", user.ID)
	token := protocol.StringValue(s.Token)
	return protocol.OK(common.MessageLoggedIn, &token)
}

// ping is anonymous, but a presented token is still renewed.
func (d *Dispatcher) ping(ctx context.Context, args protocol.Args) protocol.Response {
	if token, ok := args.String(common.SessionTokenKey); ok && token != "" {
		if _, err := d.sessions.Validate(ctx, token); err != nil && !errors.Is(err, common.ErrInvalidOrMissingSession) {
			d.logger.Warn(ctx, "session renewal on ping failed", "error", err)
		}
	}
	return protocol.OK(common.MessagePong, nil)
}

// logout runs after the session gate, so the token is known to be valid.
func (d *Dispatcher) logout(ctx context.Context, args protocol.Args) protocol.Response {
	token, _ := args.String(common.SessionTokenKey)

	removed, err := d.sessions.Revoke(ctx, token)
	if err != nil {
		d.logger.Error(ctx, "logout failed", "error", err)
		return protocol.Fail(common.MessageInternalError)
	}
	if !removed {
		// revoked concurrently by another connection
		return protocol.Fail(common.MessageInvalidSession)
	}

	if uid, ok := UserIDFromContext(ctx); ok {
		d.logger.Info(ctx, "user logged out", "user_id", uid)
	}
	return protocol.OK(common.MessageLoggedOut, nil)
}
