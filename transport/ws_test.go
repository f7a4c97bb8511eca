package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type closeInfo struct {
	code   int
	reason string
}

// wsServer runs a gorilla websocket endpoint that hands each connection to fn.
func wsServer(t *testing.T, fn func(*websocket.Conn, *http.Request)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		fn(conn, r)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialTest(t *testing.T, url string, header http.Header) (Conn, chan string, chan closeInfo) {
	t.Helper()
	msgs := make(chan string, 16)
	closed := make(chan closeInfo, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := WSDialer{Timeout: 5 * time.Second}.Dial(ctx, url, header, Handler{
		OnMessage: func(data []byte, binary bool) { msgs <- string(data) },
		OnClose:   func(code int, reason string) { closed <- closeInfo{code, reason} },
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn, msgs, closed
}

func TestDialSendsHeadersAndExchangesFrames(t *testing.T) {
	gotAuth := make(chan string, 1)
	echoed := make(chan string, 1)
	url := wsServer(t, func(c *websocket.Conn, r *http.Request) {
		gotAuth <- r.Header.Get("Authorization")
		c.WriteMessage(websocket.TextMessage, []byte(`{"type":"method","method":"hello"}`))
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		echoed <- string(data)
		c.ReadMessage()
	})

	header := http.Header{}
	header.Set("Authorization", "Bearer abc")
	conn, msgs, _ := dialTest(t, url, header)
	defer conn.Close(CloseNormal, "")

	if got := <-gotAuth; got != "Bearer abc" {
		t.Errorf("authorization header: got %q", got)
	}
	select {
	case m := <-msgs:
		if !strings.Contains(m, "hello") {
			t.Errorf("message: %q", m)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no message from server")
	}

	if err := conn.Send([]byte("ping-text"), false); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case got := <-echoed:
		if got != "ping-text" {
			t.Errorf("server got %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not receive frame")
	}
}

func TestServerCloseCodeIsReported(t *testing.T) {
	url := wsServer(t, func(c *websocket.Conn, r *http.Request) {
		c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(CloseClientBanned, "banned"),
			time.Now().Add(time.Second))
		c.ReadMessage()
	})

	conn, _, closed := dialTest(t, url, nil)
	defer conn.Close(CloseNormal, "")

	select {
	case ci := <-closed:
		if ci.code != CloseClientBanned {
			t.Errorf("code: got %d, want %d", ci.code, CloseClientBanned)
		}
		if ci.reason != "banned" {
			t.Errorf("reason: got %q", ci.reason)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("close not reported")
	}

	if err := conn.Send([]byte("x"), false); err != ErrClosed {
		t.Errorf("send after close: got %v, want ErrClosed", err)
	}
}

func TestDroppedConnectionIsAbnormal(t *testing.T) {
	url := wsServer(t, func(c *websocket.Conn, r *http.Request) {
		c.UnderlyingConn().Close()
	})

	conn, _, closed := dialTest(t, url, nil)
	defer conn.Close(CloseNormal, "")

	select {
	case ci := <-closed:
		if ci.code != CloseAbnormal {
			t.Errorf("code: got %d, want %d", ci.code, CloseAbnormal)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("close not reported")
	}
}

func TestFatalCodes(t *testing.T) {
	for _, code := range []int{CloseVersionNotFound, CloseSessionElsewhere, CloseClientBanned, CloseAccessRevoked, CloseTerminated} {
		if !IsFatal(code) {
			t.Errorf("%d should be fatal", code)
		}
	}
	for _, code := range []int{CloseNormal, CloseGoingAway, CloseAbnormal, 4000} {
		if IsFatal(code) {
			t.Errorf("%d should be retriable", code)
		}
	}
	if Describe(CloseAbnormal, "") != "connection lost" {
		t.Errorf("describe 1006: %q", Describe(CloseAbnormal, ""))
	}
}
