// Package frame implements the length-prefixed transport framing: a 4-byte
// little-endian unsigned length followed by exactly that many payload bytes.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// HeaderLen is the size of the length prefix.
	HeaderLen = 4
	// ChunkSize bounds a single Write call on the underlying stream.
	ChunkSize = 4096
	// DefaultMaxSize is the frame limit used when none is configured.
	DefaultMaxSize uint32 = 4 * 1024 * 1024
)

var (
	// ErrTruncated means the stream closed inside the length header.
	ErrTruncated = errors.New("frame: truncated header")
	// ErrConnectionClosed means the stream closed before the declared payload arrived.
	ErrConnectionClosed = errors.New("frame: connection closed mid-payload")
	// ErrTooLarge means the declared or supplied payload is over the limit.
	ErrTooLarge = errors.New("frame: payload too large")
	// ErrEmpty means a zero-length frame was declared or supplied.
	ErrEmpty = errors.New("frame: empty payload")
)

// Read reads one frame from r and returns its payload. It rejects frames
// larger than maxSize before allocating. A stream that closes exactly on a
// frame boundary yields io.EOF.
func Read(r io.Reader, maxSize uint32) ([]byte, error) {
	var header [HeaderLen]byte
	n, err := io.ReadFull(r, header[:])
	if err != nil {
		switch {
		case errors.Is(err, io.EOF) && n == 0:
			return nil, io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
			return nil, ErrTruncated
		default:
			return nil, err
		}
	}

	size := binary.LittleEndian.Uint32(header[:])
	if size == 0 {
		return nil, ErrEmpty
	}
	if size > maxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLarge, size, maxSize)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ErrConnectionClosed
		}
		return nil, err
	}
	return payload, nil
}

// Write writes the length header and then payload in chunks of at most
// ChunkSize bytes. Short writes without an error are retried.
func Write(w io.Writer, payload []byte, maxSize uint32) error {
	if len(payload) == 0 {
		return ErrEmpty
	}
	if uint64(len(payload)) > uint64(maxSize) {
		return fmt.Errorf("%w: %d > %d", ErrTooLarge, len(payload), maxSize)
	}

	var header [HeaderLen]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))
	if err := writeAll(w, header[:]); err != nil {
		return err
	}

	for offset := 0; offset < len(payload); offset += ChunkSize {
		end := min(offset+ChunkSize, len(payload))
		if err := writeAll(w, payload[offset:end]); err != nil {
			return err
		}
	}
	return nil
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		b = b[n:]
	}
	return nil
}
