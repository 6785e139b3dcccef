// Package channel composes the framer, the crypto engine and the envelope
// codec into a single secure message codec used by both endpoints.
package channel

import (
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophlink/internal/cryptox"
	"github.com/dmitrijs2005/gophlink/internal/protocol"
	"github.com/dmitrijs2005/gophlink/internal/protocol/envelope"
	"github.com/dmitrijs2005/gophlink/internal/protocol/frame"
)

// Codec is stateless apart from its configuration and is safe for concurrent
// use, but callers must not interleave messages on the same stream.
type Codec struct {
	keys     cryptox.KeyPair
	maxFrame uint32
}

// NewCodec returns a codec. maxFrame == 0 selects frame.DefaultMaxSize.
func NewCodec(keys cryptox.KeyPair, maxFrame uint32) *Codec {
	if maxFrame == 0 {
		maxFrame = frame.DefaultMaxSize
	}
	return &Codec{keys: keys, maxFrame: maxFrame}
}

// WriteMessage encrypts, packs and frames plaintext.
func (c *Codec) WriteMessage(w io.Writer, plaintext []byte) error {
	payload, err := envelope.Seal(plaintext, c.keys)
	if err != nil {
		return fmt.Errorf("sealing message: %w", err)
	}
	return frame.Write(w, payload, c.maxFrame)
}

// ReadMessage reads one frame and returns the verified plaintext. io.EOF is
// returned unwrapped when the peer closed cleanly between messages.
func (c *Codec) ReadMessage(r io.Reader) ([]byte, error) {
	payload, err := frame.Read(r, c.maxFrame)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	plaintext, err := envelope.Open(payload, c.keys)
	if err != nil {
		return nil, fmt.Errorf("opening message: %w", err)
	}
	return plaintext, nil
}

func (c *Codec) WriteRequest(w io.Writer, req protocol.Request) error {
	b, err := protocol.MarshalRequest(req)
	if err != nil {
		return err
	}
	return c.WriteMessage(w, b)
}

func (c *Codec) WriteResponse(w io.Writer, resp protocol.Response) error {
	b, err := protocol.MarshalResponse(resp)
	if err != nil {
		return err
	}
	return c.WriteMessage(w, b)
}

func (c *Codec) ReadResponse(r io.Reader) (protocol.Response, error) {
	b, err := c.ReadMessage(r)
	if err != nil {
		return protocol.Response{}, err
	}
	return protocol.UnmarshalResponse(b)
}

// IsSecurityError reports whether err came from envelope parsing or
// verification rather than from the transport.
func IsSecurityError(err error) bool {
	return errors.Is(err, envelope.ErrMalformedFieldCount) ||
		errors.Is(err, envelope.ErrBadBase64) ||
		errors.Is(err, cryptox.ErrIntegrity) ||
		errors.Is(err, cryptox.ErrBadPadding)
}

// IsFramingError reports whether err is one of the framer's failures.
func IsFramingError(err error) bool {
	return errors.Is(err, frame.ErrTruncated) ||
		errors.Is(err, frame.ErrConnectionClosed) ||
		errors.Is(err, frame.ErrTooLarge) ||
		errors.Is(err, frame.ErrEmpty)
}
