// Package oauth talks to the REST side of the interactive service: websocket
// host discovery and the OAuth short-code flow. Every call blocks; the session
// runs them on their own goroutines and feeds the results back through Poll.
package oauth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// DefaultAPIServer is the production REST API server.
const DefaultAPIServer = "https://mixer.com"

// DefaultScope is the OAuth scope an interactive client needs.
const DefaultScope = "interactive:robot:self"

var (
	ErrUnauthorized = errors.New("oauth: token rejected")
	ErrNoHosts      = errors.New("oauth: host discovery returned no hosts")
)

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Endpoints holds the paths of every REST call, relative to the API server.
type Endpoints struct {
	Hosts          string
	ShortCode      string
	ShortCodeCheck string // the handle is appended
	Token          string
	Verify         string
}

// DefaultEndpoints returns the production paths.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Hosts:          "/api/v1/interactive/hosts",
		ShortCode:      "/api/v1/oauth/shortcode",
		ShortCodeCheck: "/api/v1/oauth/shortcode/check/",
		Token:          "/api/v1/oauth/token",
		Verify:         "/api/v1/users/current",
	}
}

// Client performs REST calls against one API server.
type Client struct {
	apiServer string
	clientID  string
	endpoints Endpoints
	http      Doer
}

// NewClient creates a client. A nil doer uses a 30 second http.Client.
func NewClient(apiServer, clientID string, endpoints Endpoints, doer Doer) *Client {
	if apiServer == "" {
		apiServer = DefaultAPIServer
	}
	if doer == nil {
		doer = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		apiServer: strings.TrimRight(apiServer, "/"),
		clientID:  clientID,
		endpoints: endpoints,
		http:      doer,
	}
}

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Token is an OAuth bearer/refresh pair.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type,omitempty"`
}

// ShortCode is a code the user types into the companion web page.
type ShortCode struct {
	Code      string `json:"code"`
	Handle    string `json:"handle"`
	ExpiresIn int    `json:"expires_in"`
}

// Expiry returns how long the short code stays valid.
func (s ShortCode) Expiry() time.Duration {
	return time.Duration(s.ExpiresIn) * time.Second
}

// CheckStatus is the outcome of polling a short code.
type CheckStatus int

const (
	CheckPending CheckStatus = iota
	CheckApproved
	CheckDenied
	CheckExpired
)

func (s CheckStatus) String() string {
	switch s {
	case CheckPending:
		return "pending"
	case CheckApproved:
		return "approved"
	case CheckDenied:
		return "denied"
	case CheckExpired:
		return "expired"
	}
	return "unknown"
}

type hostEntry struct {
	Address string `json:"address"`
}

type shortCodeRequest struct {
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	Code         string `json:"code,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	GrantType    string `json:"grant_type"`
}

// --------------------------------------------------------------------------
// Calls
// --------------------------------------------------------------------------

// Hosts returns the websocket hosts in the order the service prefers them.
func (c *Client) Hosts(ctx context.Context) ([]string, error) {
	var entries []hostEntry
	if err := c.doJSON(ctx, http.MethodGet, c.endpoints.Hosts, nil, &entries); err != nil {
		return nil, fmt.Errorf("discover hosts: %w", err)
	}
	hosts := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Address != "" {
			hosts = append(hosts, e.Address)
		}
	}
	if len(hosts) == 0 {
		return nil, ErrNoHosts
	}
	return hosts, nil
}

// RequestShortCode asks for a new short code.
func (c *Client) RequestShortCode(ctx context.Context, scope string) (ShortCode, error) {
	if scope == "" {
		scope = DefaultScope
	}
	var sc ShortCode
	err := c.doJSON(ctx, http.MethodPost, c.endpoints.ShortCode, shortCodeRequest{
		ClientID: c.clientID,
		Scope:    scope,
	}, &sc)
	if err != nil {
		return ShortCode{}, fmt.Errorf("request short code: %w", err)
	}
	return sc, nil
}

// CheckShortCode polls whether the user approved the short code. The returned
// authorization code is only set for CheckApproved.
func (c *Client) CheckShortCode(ctx context.Context, handle string) (string, CheckStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.apiServer+c.endpoints.ShortCodeCheck+url.PathEscape(handle), nil)
	if err != nil {
		return "", CheckPending, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", CheckPending, fmt.Errorf("check short code: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body struct {
			Code string `json:"code"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return "", CheckPending, fmt.Errorf("decode short code check: %w", err)
		}
		return body.Code, CheckApproved, nil
	case http.StatusNoContent:
		return "", CheckPending, nil
	case http.StatusForbidden:
		return "", CheckDenied, nil
	case http.StatusNotFound:
		return "", CheckExpired, nil
	}
	b, _ := io.ReadAll(resp.Body)
	return "", CheckPending, fmt.Errorf("check short code: service returned %d: %s", resp.StatusCode, string(b))
}

// ExchangeCode trades an approved authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code string) (Token, error) {
	return c.token(ctx, tokenRequest{ClientID: c.clientID, Code: code, GrantType: "authorization_code"})
}

// Refresh trades a refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (Token, error) {
	if refreshToken == "" {
		return Token{}, fmt.Errorf("refresh token: %w", ErrUnauthorized)
	}
	return c.token(ctx, tokenRequest{ClientID: c.clientID, RefreshToken: refreshToken, GrantType: "refresh_token"})
}

func (c *Client) token(ctx context.Context, body tokenRequest) (Token, error) {
	var tok Token
	if err := c.doJSON(ctx, http.MethodPost, c.endpoints.Token, body, &tok); err != nil {
		return Token{}, fmt.Errorf("%s grant: %w", body.GrantType, err)
	}
	if tok.AccessToken == "" {
		return Token{}, fmt.Errorf("%s grant: empty access token", body.GrantType)
	}
	return tok, nil
}

// Verify checks token against the service. 200 and 400 both prove the token was
// accepted; 401 means it was not.
func (c *Client) Verify(ctx context.Context, token string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiServer+c.endpoints.Verify, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("verify token: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusBadRequest:
		return true, nil
	case http.StatusUnauthorized:
		return false, nil
	}
	return false, fmt.Errorf("verify token: service returned %d", resp.StatusCode)
}

// --------------------------------------------------------------------------
// HTTP helpers
// --------------------------------------------------------------------------

func (c *Client) doJSON(ctx context.Context, method, path string, reqBody any, dest any) error {
	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiServer+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("service returned %d: %s", resp.StatusCode, string(b))
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
