// Package ws implements the real-time chat transport: the per-project
// connection registry, broadcast fan-out and the per-connection turn loop.
package ws

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/coder/websocket"
)

// WriteResult classifies the outcome of a connection write so callers never
// have to inspect error text.
type WriteResult int

const (
	// WriteOK means the payload was accepted by the transport.
	WriteOK WriteResult = iota
	// WriteClosed means the peer is gone; the connection must be pruned.
	WriteClosed
	// WriteFailed means a transient failure; the connection is kept.
	WriteFailed
)

// Conn is the write side of one live client connection, as seen by the Hub.
type Conn interface {
	Write(ctx context.Context, payload []byte) (WriteResult, error)
}

// sessionConn is the full transport surface of one chat session: the Hub's
// write side plus the read and close operations the turn loop needs.
type sessionConn interface {
	Conn
	Read(ctx context.Context) ([]byte, error)
	Close(code websocket.StatusCode, reason string) error
}

// wsConn adapts a coder/websocket connection to the sessionConn interface.
type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) Write(ctx context.Context, payload []byte) (WriteResult, error) {
	err := c.ws.Write(ctx, websocket.MessageText, payload)
	if err == nil {
		return WriteOK, nil
	}
	if isClosedErr(err) {
		return WriteClosed, err
	}
	return WriteFailed, err
}

func (c *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.ws.Read(ctx)
	return data, err
}

func (c *wsConn) Close(code websocket.StatusCode, reason string) error {
	return c.ws.Close(code, reason)
}

// isClosedErr reports whether err means the connection is gone for good.
func isClosedErr(err error) bool {
	if websocket.CloseStatus(err) != -1 {
		return true
	}
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, context.Canceled)
}
