// Package secure implements the per-connection request loop: read an
// authenticated envelope, dispatch the request, answer through the same
// envelope codec.
package secure

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/dmitrijs2005/gophlink/internal/channel"
	"github.com/dmitrijs2005/gophlink/internal/common"
	"github.com/dmitrijs2005/gophlink/internal/logging"
	"github.com/dmitrijs2005/gophlink/internal/protocol"
	"github.com/dmitrijs2005/gophlink/internal/protocol/frame"
	"github.com/google/uuid"
)

// DefaultWriteTimeout bounds a single response write.
const DefaultWriteTimeout = 30 * time.Second

// Dispatcher turns a request into a response. It must not fail.
type Dispatcher interface {
	Dispatch(ctx context.Context, req protocol.Request) protocol.Response
}

// Handler implements tcp.ConnHandler.
type Handler struct {
	codec        *channel.Codec
	dispatcher   Dispatcher
	logger       logging.Logger
	idleTimeout  time.Duration
	writeTimeout time.Duration
}

// NewHandler returns a handler. idleTimeout == 0 disables the idle limit.
func NewHandler(codec *channel.Codec, d Dispatcher, l logging.Logger, idleTimeout, writeTimeout time.Duration) *Handler {
	if l == nil {
		l = logging.Nop()
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &Handler{
		codec:        codec,
		dispatcher:   d,
		logger:       l.With("module", "secure_handler"),
		idleTimeout:  idleTimeout,
		writeTimeout: writeTimeout,
	}
}

// ServeConn handles requests sequentially until the peer leaves, the
// server stops, or the framing or envelope layer fails.
func (h *Handler) ServeConn(ctx context.Context, conn net.Conn) {
	log := h.logger.With("conn_id", uuid.NewString(), "remote", conn.RemoteAddr().String())
	log.Info(ctx, "connection opened")

	served := 0
	defer func() { log.Info(ctx, "connection closed", "requests", served) }()

	// an in-flight request finishes even if the server is stopping
	reqCtx := context.WithoutCancel(ctx)

	for ctx.Err() == nil {
		if h.idleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(h.idleTimeout))
		}

		plaintext, err := h.codec.ReadMessage(conn)
		if err != nil {
			h.readFailed(ctx, log, conn, err)
			return
		}

		var resp protocol.Response
		req, err := protocol.UnmarshalRequest(plaintext)
		if err != nil {
			log.Warn(ctx, "malformed request", "error", err)
			resp = protocol.Fail(common.MessageMalformed)
		} else {
			log.Debug(ctx, "request", "action", req.Action)
			resp = h.dispatcher.Dispatch(reqCtx, req)
		}

		err = h.write(conn, resp)
		if errors.Is(err, frame.ErrTooLarge) {
			// nothing reached the wire yet
			log.Error(ctx, "response exceeds frame limit", "action", req.Action, "error", err)
			err = h.write(conn, protocol.Fail(common.MessageInternalError))
		}
		if err != nil {
			log.Warn(ctx, "response write failed", "error", err)
			return
		}
		served++
	}
}

func (h *Handler) write(conn net.Conn, resp protocol.Response) error {
	_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	return h.codec.WriteResponse(conn, resp)
}

func (h *Handler) readFailed(ctx context.Context, log logging.Logger, conn net.Conn, err error) {
	var ne net.Error
	switch {
	case errors.Is(err, io.EOF):
		log.Debug(ctx, "peer closed connection")
	case channel.IsSecurityError(err):
		// never echo parse detail to the peer
		log.Warn(ctx, "envelope rejected", "event", "security", "error", err)
		if werr := h.write(conn, protocol.Fail(common.MessageSecurityError)); werr != nil {
			log.Debug(ctx, "security error reply not delivered", "error", werr)
		}
	case channel.IsFramingError(err):
		log.Warn(ctx, "framing error", "error", err)
	case errors.As(err, &ne) && ne.Timeout():
		log.Info(ctx, "idle timeout")
	case errors.Is(err, net.ErrClosed):
		log.Debug(ctx, "connection closed locally")
	default:
		log.Warn(ctx, "read failed", "error", err)
	}
}
