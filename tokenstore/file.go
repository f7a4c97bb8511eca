package tokenstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
)

// File stores tokens for many apps in one JSON document, keyed by Namespace.
type File struct {
	mu   sync.Mutex
	path string
	key  string
}

// NewFile creates a store backed by path for the given app.
func NewFile(path, appID string) *File {
	return &File{path: path, key: Namespace(appID)}
}

func (f *File) Load(context.Context) (Tokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.readAll()
	if err != nil {
		return Tokens{}, err
	}
	return all[f.key], nil
}

func (f *File) Save(_ context.Context, t Tokens) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.readAll()
	if err != nil {
		return err
	}
	all[f.key] = t

	b, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("token store: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("token store: %w", err)
	}
	return os.Rename(tmp, f.path)
}

func (f *File) readAll() (map[string]Tokens, error) {
	all := map[string]Tokens{}
	b, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return all, nil
		}
		return nil, fmt.Errorf("token store: %w", err)
	}
	if len(b) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, fmt.Errorf("token store: decode %s: %w", f.path, err)
	}
	return all, nil
}
