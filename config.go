package interactive

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/NeboLoop/interactive-go-sdk/oauth"
	"github.com/NeboLoop/interactive-go-sdk/timer"
	"github.com/NeboLoop/interactive-go-sdk/tokenstore"
	"github.com/NeboLoop/interactive-go-sdk/transport"
)

// ProtocolVersion is sent in the X-Protocol-Version upgrade header.
const ProtocolVersion = "2.0"

// Config holds session parameters. Zero values are replaced with defaults.
type Config struct {
	ClientID         string // OAuth client ID, also the token namespace
	ProjectVersionID string // sent as X-Interactive-Version
	ShareCode        string // optional, sent as X-Interactive-Sharecode
	Scope            string // OAuth scope, defaults to oauth.DefaultScope

	APIServer string          // REST server, defaults to oauth.DefaultAPIServer
	Endpoints oauth.Endpoints // REST paths, defaults to oauth.DefaultEndpoints()
	Hosts     []string        // skips host discovery when set

	ShortCodePollInterval time.Duration // default 1s
	ReconnectBackoff      time.Duration // first retry delay, default 1s
	MaxReconnectBackoff   time.Duration // default 30s

	// Compression lists the frame compression schemes to offer after hello,
	// preferred first. Empty means frames stay uncompressed.
	Compression []string

	Dialer     transport.Dialer
	HTTPClient transport.HTTPDoer
	Scheduler  timer.Scheduler
	TokenStore tokenstore.Store
	Logger     *slog.Logger
	Now        func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Scope == "" {
		c.Scope = oauth.DefaultScope
	}
	if c.APIServer == "" {
		c.APIServer = oauth.DefaultAPIServer
	}
	if c.Endpoints == (oauth.Endpoints{}) {
		c.Endpoints = oauth.DefaultEndpoints()
	}
	if c.ShortCodePollInterval <= 0 {
		c.ShortCodePollInterval = time.Second
	}
	if c.ReconnectBackoff <= 0 {
		c.ReconnectBackoff = time.Second
	}
	if c.MaxReconnectBackoff <= 0 {
		c.MaxReconnectBackoff = 30 * time.Second
	}
	if c.MaxReconnectBackoff < c.ReconnectBackoff {
		c.MaxReconnectBackoff = c.ReconnectBackoff
	}
	if c.Dialer == nil {
		c.Dialer = transport.WSDialer{Timeout: 10 * time.Second}
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.Scheduler == nil {
		c.Scheduler = timer.NewReal()
	}
	if c.TokenStore == nil {
		c.TokenStore = tokenstore.NewMemory(tokenstore.Tokens{})
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
