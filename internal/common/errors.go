package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrValidation marks missing or empty required arguments. Its message is safe
	// to return to the peer.
	ErrValidation = errors.New("validation error")

	// ErrInvalidOrMissingSession is the single rejection for session-required
	// actions. It never tells missing, expired and unknown tokens apart.
	ErrInvalidOrMissingSession = errors.New(MessageInvalidSession)

	// ErrUnknownAction is returned by a business layer that has no handler bound.
	ErrUnknownAction = errors.New(MessageUnknownAction)
)
