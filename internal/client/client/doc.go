// Package client is the caller side of the gophlink protocol.
//
// A Client owns at most one connection and one session token. The connection
// is dialed lazily on the first call and re-dialed on the next call after
// any failure. Calls are serialized, so a Client is safe for concurrent use
// but never has two requests in flight.
//
// # Session token
//
// Every request other than Register and Login carries the stored token under
// the SessionToken key, unless the caller set one explicitly. A successful
// Login replaces the stored token, a successful Logout or an "invalid or
// missing session" reply clears it.
//
// # Errors
//
// Call never returns an error. Dial, framing, crypto and timeout failures are
// reported as a failed Response whose message starts with
// "communication error: ", and the connection is dropped.
package client
