// Package cli implements the interactive gophlink client: a line-oriented
// REPL over a single client.Client.
package cli
