package interactive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/NeboLoop/interactive-go-sdk/frame"
	"github.com/NeboLoop/interactive-go-sdk/timer"
	"github.com/NeboLoop/interactive-go-sdk/tokenstore"
	"github.com/NeboLoop/interactive-go-sdk/transport"
)

// --------------------------------------------------------------------------
// Transport fakes
// --------------------------------------------------------------------------

type sentFrame struct {
	Method string
	ID     uint32
	Params json.RawMessage
	Binary bool
}

type fakeConn struct {
	mu        sync.Mutex
	sent      []sentFrame
	closed    bool
	closeCode int
}

func (c *fakeConn) Send(data []byte, binary bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return transport.ErrClosed
	}
	if binary {
		plain, err := frame.Decompress(frame.SchemeGzip, data)
		if err != nil {
			return err
		}
		data = plain
	}
	var env frame.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	c.sent = append(c.sent, sentFrame{Method: env.Method, ID: env.ID, Params: env.Params, Binary: binary})
	return nil
}

func (c *fakeConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeCode = code
	return nil
}

func (c *fakeConn) frames() []sentFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentFrame(nil), c.sent...)
}

func (c *fakeConn) methods() []string {
	var out []string
	for _, f := range c.frames() {
		out = append(out, f.Method)
	}
	return out
}

func (c *fakeConn) count(method string) int {
	n := 0
	for _, f := range c.frames() {
		if f.Method == method {
			n++
		}
	}
	return n
}

// last returns the most recent frame sent with method.
func (c *fakeConn) last(t *testing.T, method string) sentFrame {
	t.Helper()
	frames := c.frames()
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Method == method {
			return frames[i]
		}
	}
	t.Fatalf("no %s frame sent; sent %v", method, c.methods())
	return sentFrame{}
}

type dialAttempt struct {
	url    string
	header http.Header
	h      transport.Handler
	conn   *fakeConn
}

// push delivers a server frame as the transport's read goroutine would.
func (a *dialAttempt) push(raw string) {
	a.h.OnMessage([]byte(raw), false)
}

func (a *dialAttempt) pushf(format string, args ...any) {
	a.push(fmt.Sprintf(format, args...))
}

func (a *dialAttempt) reply(t *testing.T, method, result string) {
	t.Helper()
	id := a.conn.last(t, method).ID
	a.pushf(`{"type":"reply","id":%d,"result":%s,"error":null}`, id, result)
}

func (a *dialAttempt) close(code int) {
	a.h.OnClose(code, "")
}

type fakeDialer struct {
	mu       sync.Mutex
	attempts []*dialAttempt
	reject   func(header http.Header) error // fails the upgrade when it returns an error
}

func (d *fakeDialer) Dial(_ context.Context, url string, header http.Header, h transport.Handler) (transport.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a := &dialAttempt{url: url, header: header, h: h, conn: &fakeConn{}}
	d.attempts = append(d.attempts, a)
	if d.reject != nil {
		if err := d.reject(header); err != nil {
			return nil, err
		}
	}
	return a.conn, nil
}

func (d *fakeDialer) setReject(fn func(header http.Header) error) {
	d.mu.Lock()
	d.reject = fn
	d.mu.Unlock()
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.attempts)
}

func (d *fakeDialer) attempt(i int) *dialAttempt {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts[i]
}

// --------------------------------------------------------------------------
// REST fake
// --------------------------------------------------------------------------

type fakeAPI struct {
	mu         sync.Mutex
	hosts      []string
	check      int // status code returned by the short-code check
	shortCodes int
	verified   []string
	revoked    map[string]bool // access tokens the verify endpoint rejects
}

func (a *fakeAPI) revoke(token string) {
	a.mu.Lock()
	if a.revoked == nil {
		a.revoked = make(map[string]bool)
	}
	a.revoked[token] = true
	a.mu.Unlock()
}

func (a *fakeAPI) verifyCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.verified)
}

func (a *fakeAPI) setCheck(status int) {
	a.mu.Lock()
	a.check = status
	a.mu.Unlock()
}

func (a *fakeAPI) router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/interactive/hosts", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		defer a.mu.Unlock()
		var entries []map[string]string
		for _, h := range a.hosts {
			entries = append(entries, map[string]string{"address": h})
		}
		json.NewEncoder(w).Encode(entries)
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/oauth/shortcode", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.shortCodes++
		n := a.shortCodes
		a.mu.Unlock()
		fmt.Fprintf(w, `{"code":"CODE%d","handle":"h%d","expires_in":120}`, n, n)
	}).Methods(http.MethodPost)

	r.HandleFunc("/api/v1/oauth/shortcode/check/{handle}", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		status := a.check
		a.mu.Unlock()
		if status == http.StatusOK {
			w.Write([]byte(`{"code":"auth-code"}`))
			return
		}
		w.WriteHeader(status)
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Code         string `json:"code"`
			RefreshToken string `json:"refresh_token"`
			GrantType    string `json:"grant_type"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		switch {
		case req.GrantType == "authorization_code" && req.Code == "auth-code":
			w.Write([]byte(`{"access_token":"access-1","refresh_token":"refresh-1","expires_in":3600}`))
		case req.GrantType == "refresh_token" && req.RefreshToken == "refresh-1":
			w.Write([]byte(`{"access_token":"access-2","refresh_token":"refresh-2","expires_in":3600}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}).Methods(http.MethodPost)

	r.HandleFunc("/api/v1/users/current", func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		a.mu.Lock()
		a.verified = append(a.verified, token)
		revoked := a.revoked[token]
		a.mu.Unlock()
		if !revoked && (token == "good" || strings.HasPrefix(token, "access-")) {
			w.Write([]byte(`{}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}).Methods(http.MethodGet)
	return r
}

// routerDoer serves requests in process without a listener.
type routerDoer struct {
	h http.Handler
}

func (d routerDoer) Do(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	d.h.ServeHTTP(rec, req)
	return rec.Result(), nil
}

// --------------------------------------------------------------------------
// Harness
// --------------------------------------------------------------------------

var testNow = time.Unix(1_700_000_000, 0)

type harness struct {
	t      *testing.T
	s      *Session
	dialer *fakeDialer
	timers *timer.Manual
	api    *fakeAPI
	tokens *tokenstore.Memory
	events []Event
}

func newHarness(t *testing.T, configure func(*Config)) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		dialer: &fakeDialer{},
		timers: timer.NewManual(),
		api:    &fakeAPI{hosts: []string{"wss://a.test/gameClient", "wss://b.test/gameClient"}, check: http.StatusNoContent},
		tokens: tokenstore.NewMemory(tokenstore.Tokens{}),
	}
	cfg := Config{
		ClientID:         "client-1",
		ProjectVersionID: "1234",
		ShareCode:        "share-1",
		APIServer:        "https://api.test",
		Dialer:           h.dialer,
		HTTPClient:       routerDoer{h.api.router()},
		Scheduler:        h.timers,
		TokenStore:       h.tokens,
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:              func() time.Time { return testNow },
	}
	if configure != nil {
		configure(&cfg)
	}
	h.s = New(cfg)
	h.record()
	t.Cleanup(h.s.Dispose)
	return h
}

func (h *harness) record() {
	s := h.s
	s.OnStateChanged(func(e StateChangedEvent) { h.events = append(h.events, e) })
	s.OnParticipantStateChanged(func(e ParticipantStateChangedEvent) { h.events = append(h.events, e) })
	s.OnButton(func(e ButtonEvent) { h.events = append(h.events, e) })
	s.OnJoystick(func(e JoystickEvent) { h.events = append(h.events, e) })
	s.OnMouseButton(func(e MouseButtonEvent) { h.events = append(h.events, e) })
	s.OnCoordinates(func(e CoordinatesEvent) { h.events = append(h.events, e) })
	s.OnTextInput(func(e TextInputEvent) { h.events = append(h.events, e) })
	s.OnError(func(e ErrorEvent) { h.events = append(h.events, e) })
	s.OnMessage(func(e MessageEvent) { h.events = append(h.events, e) })
}

// pollUntil polls until cond holds. Work done on other goroutines (REST
// calls, dials) needs a few cycles to come back.
func (h *harness) pollUntil(what string, cond func() bool) {
	h.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		h.s.Poll()
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	h.t.Fatalf("timed out waiting for %s (state %v)", what, h.s.State())
}

func (h *harness) states() []State {
	var out []State
	for _, e := range h.events {
		if e, ok := e.(StateChangedEvent); ok {
			out = append(out, e.State)
		}
	}
	return out
}

func (h *harness) errors() []ErrorEvent {
	var out []ErrorEvent
	for _, e := range h.events {
		if e, ok := e.(ErrorEvent); ok {
			out = append(out, e)
		}
	}
	return out
}

func eventsOf[E Event](h *harness) []E {
	var out []E
	for _, e := range h.events {
		if e, ok := e.(E); ok {
			out = append(out, e)
		}
	}
	return out
}

// connected initializes the session and waits for the socket to open.
func (h *harness) connected(autoStart bool, token string) *dialAttempt {
	h.t.Helper()
	n := h.dialer.count()
	h.s.Initialize(autoStart, token)
	h.pollUntil("socket open", func() bool { return h.dialer.count() > n && h.s.conn != nil })
	return h.dialer.attempt(n)
}

const (
	groupsJSON = `{"groups":[{"groupID":"default","sceneID":"default","etag":"g1"},{"groupID":"vip","sceneID":"bonus","etag":"g2"}]}`
	scenesJSON = `{"scenes":[
		{"sceneID":"default","etag":"s1","controls":[
			{"controlID":"jump","kind":"button","cost":5,"etag":"c1"},
			{"controlID":"stick","kind":"joystick","etag":"c2"},
			{"controlID":"screen","kind":"screen","etag":"c3"},
			{"controlID":"name","kind":"textbox","etag":"c4"}]},
		{"sceneID":"bonus","etag":"s2","controls":[{"controlID":"bonus-btn","kind":"button","etag":"c5"}]}]}`
)

// initialized drives a connection through hello and the initial fetch.
func (h *harness) initialized(autoStart bool) *dialAttempt {
	h.t.Helper()
	a := h.connected(autoStart, "good")
	a.push(`{"type":"method","id":0,"method":"hello","params":{}}`)
	h.s.Poll()
	a.reply(h.t, "getGroups", groupsJSON)
	a.reply(h.t, "getScenes", scenesJSON)
	h.s.Poll()
	if !h.s.ready {
		h.t.Fatalf("not initialized, state %v", h.s.State())
	}
	return a
}

// enabled brings the session to InteractivityEnabled.
func (h *harness) enabled() *dialAttempt {
	h.t.Helper()
	a := h.initialized(true)
	a.push(`{"type":"method","id":0,"method":"onReady","params":{"isReady":true}}`)
	h.s.Poll()
	if h.s.State() != InteractivityEnabled {
		h.t.Fatalf("state %v, want InteractivityEnabled", h.s.State())
	}
	return a
}

func tokenstoreTokens(access, refresh string) tokenstore.Tokens {
	return tokenstore.Tokens{AccessToken: access, RefreshToken: refresh}
}

func itoa(id uint32) string { return fmt.Sprint(id) }
