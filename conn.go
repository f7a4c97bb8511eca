package interactive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/NeboLoop/interactive-go-sdk/frame"
	"github.com/NeboLoop/interactive-go-sdk/transport"
	"github.com/NeboLoop/interactive-go-sdk/wire"
)

var errNoHosts = errors.New("interactive: no websocket hosts")

// maxQueuedFrames bounds the frames held while the socket is down.
const maxQueuedFrames = 256

// nextBackoff returns the delay for the next retry and doubles the one after,
// up to MaxReconnectBackoff.
func (s *Session) nextBackoff() time.Duration {
	d := s.backoff
	s.backoff = min(2*s.backoff, s.cfg.MaxReconnectBackoff)
	return d
}

func (s *Session) upgradeHeader() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+s.accessToken)
	h.Set("X-Interactive-Version", s.cfg.ProjectVersionID)
	h.Set("X-Protocol-Version", ProtocolVersion)
	if s.cfg.ShareCode != "" {
		h.Set("X-Interactive-Sharecode", s.cfg.ShareCode)
	}
	return h
}

// connect dials the active host. Frames and the close notification of every
// connection are tagged with its generation so that late callbacks from an
// abandoned socket are ignored.
func (s *Session) connect() {
	if len(s.hosts) == 0 {
		s.raise(0, "%v", errNoHosts)
		s.after(timerDiscover, s.nextBackoff(), s.discover)
		return
	}
	s.connGen++
	gen := s.connGen
	s.conn = nil
	s.compression = frame.SchemeNone

	url := s.hosts[s.hostIndex]
	header := s.upgradeHeader()
	h := transport.Handler{
		OnMessage: func(data []byte, binary bool) {
			s.enqueue(func() { s.onFrame(gen, data, binary) })
		},
		OnClose: func(code int, reason string) {
			s.enqueue(func() { s.onClose(gen, code, reason) })
		},
	}
	s.log.Info("connecting", "host", url, "gen", gen)

	s.async(func(ctx context.Context) func() {
		conn, err := s.cfg.Dialer.Dial(ctx, url, header, h)
		return func() {
			if gen != s.connGen {
				if conn != nil {
					conn.Close(transport.CloseNormal, "superseded")
				}
				return
			}
			if err != nil {
				s.dialFailures++
				s.onClose(gen, transport.CloseAbnormal, err.Error())
				return
			}
			s.onOpen(conn)
		}
	})
}

func (s *Session) onOpen(conn transport.Conn) {
	s.conn = conn
	s.dialFailures = 0
	s.log.Info("connected", "host", s.hosts[s.hostIndex])
	queued := s.outq
	s.outq = nil
	for _, data := range queued {
		s.write(data)
	}
}

func (s *Session) onClose(gen int, code int, reason string) {
	if gen != s.connGen {
		return
	}
	// a dial result still in flight for this generation is now stale
	s.connGen++
	s.conn = nil
	s.outq = nil
	s.outstanding = make(map[uint32]string)
	s.initPending = make(map[string]bool)
	s.compression = frame.SchemeNone

	msg := transport.Describe(code, reason)
	if transport.IsFatal(code) {
		s.log.Error("connection closed", "code", code, "reason", msg)
		s.wantReady = false
		s.halted = true
		s.timers.CancelAll()
		s.setState(InteractivityDisabled)
		s.queue(ErrorEvent{eventTime: s.stamp(), Code: code, Message: msg, Fatal: true})
		return
	}

	s.hostIndex = (s.hostIndex + 1) % len(s.hosts)
	delay := s.nextBackoff()
	s.raise(code, "%s, reconnecting to %s in %s", msg, s.hosts[s.hostIndex], delay)
	if s.dialFailures >= len(s.hosts) {
		// every host refused the upgrade: the token may have expired
		s.dialFailures = 0
		s.after(timerReconnect, delay, s.authenticate)
		return
	}
	s.after(timerReconnect, delay, s.connect)
}

// onFrame handles one inbound websocket message.
func (s *Session) onFrame(gen int, data []byte, binary bool) {
	if gen != s.connGen {
		return
	}
	if binary {
		plain, err := frame.Decompress(s.compression, data)
		if err != nil {
			s.queue(MessageEvent{eventTime: s.stamp(), Raw: string(data)})
			s.raise(0, "dropped frame: %v", err)
			return
		}
		data = plain
	}
	s.queue(MessageEvent{eventTime: s.stamp(), Raw: string(data)})
	s.log.Debug("frame received", "bytes", len(data))

	msg, err := frame.Decode(data)
	if err != nil {
		s.raise(0, "dropped frame: %v", err)
		return
	}
	if msg.IsReply() {
		err = s.handleReply(msg)
	} else {
		err = s.handleMethod(msg)
	}
	if err != nil {
		s.raise(0, "dropped frame: %v", err)
	}
}

// --------------------------------------------------------------------------
// Outbound
// --------------------------------------------------------------------------

// send encodes and writes one method call. Before the socket is open the
// frame is held and written as soon as it opens.
func (s *Session) send(method string, params any) (uint32, error) {
	id := s.ids.Next()
	data, err := frame.Encode(method, id, params)
	if err != nil {
		return 0, err
	}
	s.log.Debug("frame sent", "method", method, "id", id)
	if s.conn == nil {
		if len(s.outq) >= maxQueuedFrames {
			s.log.Warn("socket not open, dropping oldest queued frame", "queued", len(s.outq))
			s.outq = s.outq[1:]
		}
		s.outq = append(s.outq, data)
		return id, nil
	}
	return id, s.write(data)
}

// sendTracked sends a method whose reply is routed by the name it is
// tracked under.
func (s *Session) sendTracked(method, trackAs string, params any) error {
	id, err := s.send(method, params)
	if err != nil {
		return err
	}
	s.outstanding[id] = trackAs
	return nil
}

func (s *Session) write(data []byte) error {
	binary := false
	if s.compression != frame.SchemeNone {
		packed, err := frame.Compress(s.compression, data)
		if err != nil {
			return err
		}
		data, binary = packed, true
	}
	if err := s.conn.Send(data, binary); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (s *Session) sendReady(ready bool) {
	if _, err := s.send(wire.MethodReady, wire.ReadyPayload{IsReady: ready}); err != nil {
		s.raise(0, "send ready: %v", err)
	}
}
