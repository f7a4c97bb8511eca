// Package frame implements the JSON envelope codec for the interactive protocol.
//
// Every frame is a single JSON object:
//
//	method: {"type":"method","id":<uint>,"method":<string>,"params":{...}}
//	reply:  {"type":"reply","id":<uint>,"result":{...}}
//	        {"type":"reply","id":<uint>,"result":null,"error":{"code":..,"message":..,"path":..}}
//
// Unknown fields are ignored everywhere so that the server can extend the
// protocol without breaking older clients.
package frame

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Envelope types.
const (
	TypeMethod = "method"
	TypeReply  = "reply"
)

var (
	ErrMalformed     = errors.New("frame: malformed envelope")
	ErrUnknownType   = errors.New("frame: unknown message type")
	ErrMissingMethod = errors.New("frame: method frame without method name")
)

var emptyObject = json.RawMessage(`{}`)

// Envelope is the outer object of every frame.
type Envelope struct {
	Type   string          `json:"type"`
	ID     uint32          `json:"id"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ReplyError     `json:"error,omitempty"`
}

// ReplyError is the error object the server attaches to a failed reply.
type ReplyError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

func (e *ReplyError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("interactive error %d: %s (at %s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("interactive error %d: %s", e.Code, e.Message)
}

// Message is a decoded inbound frame: either a method call or a reply.
type Message struct {
	Type   string
	ID     uint32
	Method string
	Params json.RawMessage
	Result json.RawMessage
	Err    *ReplyError
}

// IsReply reports whether m answers an earlier client request.
func (m Message) IsReply() bool { return m.Type == TypeReply }

// Bind decodes the method params, or the reply result, into v.
func (m Message) Bind(v any) error {
	raw := m.Params
	if m.IsReply() {
		raw = m.Result
	}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s %q: %w", m.Type, m.Method, err)
	}
	return nil
}

// Encode serialises a method call. A nil params encodes as an empty object.
func Encode(method string, id uint32, params any) ([]byte, error) {
	env := Envelope{Type: TypeMethod, ID: id, Method: method, Params: emptyObject}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encode %s params: %w", method, err)
		}
		env.Params = raw
	}
	return json.Marshal(env)
}

// Decode parses one inbound frame.
func Decode(data []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch env.Type {
	case TypeMethod:
		if env.Method == "" {
			return Message{}, ErrMissingMethod
		}
	case TypeReply:
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	return Message{
		Type:   env.Type,
		ID:     env.ID,
		Method: env.Method,
		Params: env.Params,
		Result: env.Result,
		Err:    env.Error,
	}, nil
}
