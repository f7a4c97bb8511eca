// Package transport is the narrow boundary between the session and the
// network. The session only ever talks to a Dialer and the Conn it returns;
// WSDialer is the default implementation on top of gobwas/ws.
package transport

import (
	"context"
	"errors"
	"net/http"
)

var ErrClosed = errors.New("transport: connection closed")

// Handler receives connection events. Both callbacks run on the connection's
// read goroutine, never on the goroutine that called Dial.
type Handler struct {
	OnMessage func(data []byte, binary bool)
	// OnClose is called exactly once, after which no more messages arrive.
	OnClose func(code int, reason string)
}

// Conn is an open websocket.
type Conn interface {
	Send(data []byte, binary bool) error
	Close(code int, reason string) error
}

// Dialer opens websockets.
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header, h Handler) (Conn, error)
}

// HTTPDoer is the part of *http.Client the session needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
