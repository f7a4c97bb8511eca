package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// WSDialer dials websockets with gobwas/ws.
type WSDialer struct {
	Timeout time.Duration // handshake timeout; zero means no limit beyond ctx
}

type outbound struct {
	data   []byte
	binary bool
}

type wsConn struct {
	conn      net.Conn
	wmu       sync.Mutex // serialises frame writes (writeLoop, pongs, close)
	sendCh    chan outbound
	done      chan struct{}
	closeOnce sync.Once
}

// Dial performs the websocket handshake and starts the read and write loops.
func (d WSDialer) Dial(ctx context.Context, url string, header http.Header, h Handler) (Conn, error) {
	dialer := ws.Dialer{
		Header:  ws.HandshakeHeaderHTTP(header),
		Timeout: d.Timeout,
	}
	conn, br, _, err := dialer.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	c := &wsConn{
		conn:   conn,
		sendCh: make(chan outbound, 256),
		done:   make(chan struct{}),
	}

	// Frames the server sent straight after the handshake may already sit in br.
	var r io.Reader = conn
	if br != nil {
		r = br
	}

	go c.readLoop(r, h)
	go c.writeLoop()
	return c, nil
}

func (c *wsConn) Send(data []byte, binary bool) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.sendCh <- outbound{data: data, binary: binary}:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

func (c *wsConn) Close(code int, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.wmu.Lock()
		body := ws.NewCloseFrameBody(ws.StatusCode(code), reason)
		_ = wsutil.WriteClientMessage(c.conn, ws.OpClose, body)
		c.wmu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// Write lets the read side answer pings and close frames without racing the
// write loop.
func (c *wsConn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.conn.Write(p)
}

func (c *wsConn) readLoop(r io.Reader, h Handler) {
	rw := struct {
		io.Reader
		io.Writer
	}{r, c}

	for {
		data, op, err := wsutil.ReadServerData(rw)
		if err != nil {
			code, reason := closeStatus(err)
			select {
			case <-c.done:
			default:
				slog.Debug("websocket read ended", "code", code, "error", err)
			}
			c.closeOnce.Do(func() {
				close(c.done)
				c.conn.Close()
			})
			if h.OnClose != nil {
				h.OnClose(code, reason)
			}
			return
		}
		if h.OnMessage != nil {
			h.OnMessage(data, op == ws.OpBinary)
		}
	}
}

func (c *wsConn) writeLoop() {
	for {
		select {
		case m := <-c.sendCh:
			op := ws.OpText
			if m.binary {
				op = ws.OpBinary
			}
			c.wmu.Lock()
			err := wsutil.WriteClientMessage(c.conn, op, m.data)
			c.wmu.Unlock()
			if err != nil {
				slog.Warn("write error", "error", err)
				c.conn.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func closeStatus(err error) (int, string) {
	var ce wsutil.ClosedError
	if errors.As(err, &ce) {
		return int(ce.Code), ce.Reason
	}
	return CloseAbnormal, err.Error()
}
