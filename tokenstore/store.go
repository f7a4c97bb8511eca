// Package tokenstore persists the access/refresh token pair between runs.
package tokenstore

import (
	"context"
	"sync"
)

// Tokens is the persisted blob.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Empty reports whether nothing usable is stored.
func (t Tokens) Empty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

// Store loads and saves tokens under a stable key namespace. Each call must be
// atomic on its own; callers do not coordinate concurrent access.
type Store interface {
	Load(ctx context.Context) (Tokens, error)
	Save(ctx context.Context, t Tokens) error
}

// Namespace returns the key prefix used for an app's tokens.
func Namespace(appID string) string {
	if appID == "" {
		return "interactive"
	}
	return "interactive:" + appID
}

// Memory keeps tokens in process.
type Memory struct {
	mu sync.Mutex
	t  Tokens
}

func NewMemory(t Tokens) *Memory { return &Memory{t: t} }

func (m *Memory) Load(context.Context) (Tokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t, nil
}

func (m *Memory) Save(_ context.Context, t Tokens) error {
	m.mu.Lock()
	m.t = t
	m.mu.Unlock()
	return nil
}
