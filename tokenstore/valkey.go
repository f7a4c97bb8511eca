package tokenstore

import (
	"context"
	"fmt"

	"github.com/valkey-io/valkey-go"
)

// Valkey stores tokens as two string keys under the app namespace, e.g.
// "interactive:1234:access_token".
type Valkey struct {
	client valkey.Client
	prefix string
}

// NewValkey wraps an existing client.
func NewValkey(client valkey.Client, appID string) *Valkey {
	return &Valkey{client: client, prefix: Namespace(appID)}
}

// DialValkey connects to addr and returns a store for appID.
func DialValkey(addr, appID string) (*Valkey, error) {
	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		return nil, fmt.Errorf("token store: valkey: %w", err)
	}
	return NewValkey(client, appID), nil
}

func (v *Valkey) accessKey() string  { return v.prefix + ":access_token" }
func (v *Valkey) refreshKey() string { return v.prefix + ":refresh_token" }

func (v *Valkey) Load(ctx context.Context) (Tokens, error) {
	vals, err := v.client.Do(ctx, v.client.B().Mget().Key(v.accessKey(), v.refreshKey()).Build()).ToArray()
	if err != nil {
		return Tokens{}, fmt.Errorf("token store: valkey load: %w", err)
	}
	var t Tokens
	if len(vals) == 2 {
		t.AccessToken, _ = vals[0].ToString()
		t.RefreshToken, _ = vals[1].ToString()
	}
	return t, nil
}

func (v *Valkey) Save(ctx context.Context, t Tokens) error {
	cmd := v.client.B().Mset().KeyValue().
		KeyValue(v.accessKey(), t.AccessToken).
		KeyValue(v.refreshKey(), t.RefreshToken).
		Build()
	if err := v.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("token store: valkey save: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (v *Valkey) Close() {
	v.client.Close()
}
