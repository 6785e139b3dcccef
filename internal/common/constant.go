// Package common contains shared constants and sentinel errors used across
// gophlink components.
package common

// Control-plane action names. Every other action is routed to the business layer.
const (
	ActionRegister = "Register"
	ActionLogin    = "Login"
	ActionLogout   = "Logout"
	ActionPing     = "Ping"
)

// Reserved argument keys carried inside a request's Data map.
const (
	// SessionTokenKey carries the bearer token for session-required actions.
	SessionTokenKey = "SessionToken"
	// UserIDKey is injected by the server after the session was resolved.
	UserIDKey = "UserId"
)

// Credential argument keys used by Register and Login.
const (
	NameKey     = "Name"
	EmailKey    = "Email"
	PasswordKey = "Password"
)

// Generic messages returned to the remote peer.
const (
	MessagePong           = "Pong"
	MessageUnknownAction  = "unknown action"
	MessageInvalidSession = "invalid or missing session"
	MessageSecurityError  = "security error"
	MessageInternalError  = "internal error"
	MessageMalformed      = "malformed request"
)

// Control-plane outcome messages.
const (
	MessageRegistered         = "Registration successful"
	MessageEmailTaken         = "a user with this email already exists"
	MessageLoggedIn           = "Login successful"
	MessageInvalidCredentials = "invalid email or password"
	MessageLoggedOut          = "Logged out"
)

// MessageCommunicationError prefixes client-side transport and crypto failures.
const MessageCommunicationError = "communication error"
