package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestMemory(t *testing.T) {
	m := NewMemory(Tokens{})
	ctx := context.Background()
	got, _ := m.Load(ctx)
	if !got.Empty() {
		t.Errorf("fresh store: %+v", got)
	}
	m.Save(ctx, Tokens{AccessToken: "a", RefreshToken: "r"})
	got, _ = m.Load(ctx)
	if got.AccessToken != "a" || got.RefreshToken != "r" {
		t.Errorf("after save: %+v", got)
	}
}

func TestFileRoundTripAndNamespaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tokens.json")
	ctx := context.Background()

	a := NewFile(path, "app-a")
	b := NewFile(path, "app-b")

	got, err := a.Load(ctx)
	if err != nil {
		t.Fatalf("load missing file: %v", err)
	}
	if !got.Empty() {
		t.Errorf("missing file should load empty: %+v", got)
	}

	if err := a.Save(ctx, Tokens{AccessToken: "a1", RefreshToken: "ra"}); err != nil {
		t.Fatalf("save a: %v", err)
	}
	if err := b.Save(ctx, Tokens{AccessToken: "b1", RefreshToken: "rb"}); err != nil {
		t.Fatalf("save b: %v", err)
	}

	got, err = a.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.AccessToken != "a1" || got.RefreshToken != "ra" {
		t.Errorf("app-a: %+v", got)
	}
	got, _ = b.Load(ctx)
	if got.AccessToken != "b1" {
		t.Errorf("app-b: %+v", got)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away")
	}
}

func TestFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	os.WriteFile(path, []byte("{nope"), 0o600)
	if _, err := NewFile(path, "x").Load(context.Background()); err == nil {
		t.Error("expected decode error")
	}
}

func TestNamespace(t *testing.T) {
	if Namespace("") != "interactive" || Namespace("42") != "interactive:42" {
		t.Errorf("namespace: %q %q", Namespace(""), Namespace("42"))
	}
}
