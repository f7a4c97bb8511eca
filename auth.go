package interactive

import (
	"context"
	"errors"
	"net/http"

	"github.com/NeboLoop/interactive-go-sdk/oauth"
	"github.com/NeboLoop/interactive-go-sdk/tokenstore"
)

// bootstrap loads persisted tokens and discovers hosts, then authenticates.
func (s *Session) bootstrap() {
	s.async(func(ctx context.Context) func() {
		stored, err := s.cfg.TokenStore.Load(ctx)
		if err != nil {
			s.log.Warn("load tokens", "error", err)
		}
		return func() {
			if s.accessToken == "" {
				s.accessToken = stored.AccessToken
			}
			s.refreshToken = stored.RefreshToken
			s.discover()
		}
	})
}

func (s *Session) discover() {
	if len(s.cfg.Hosts) > 0 {
		s.hosts = append([]string(nil), s.cfg.Hosts...)
		s.authenticate()
		return
	}
	s.async(func(ctx context.Context) func() {
		hosts, err := s.api.Hosts(ctx)
		return func() {
			if err != nil {
				s.raise(0, "host discovery failed: %v", err)
				s.after(timerDiscover, s.nextBackoff(), s.discover)
				return
			}
			s.log.Info("discovered hosts", "count", len(hosts))
			s.hosts = hosts
			s.hostIndex = 0
			s.backoff = s.cfg.ReconnectBackoff
			s.authenticate()
		}
	})
}

// authenticate picks the cheapest path to a usable token: verify what we
// have, refresh it, or fall back to the short-code flow.
func (s *Session) authenticate() {
	if s.accessToken == "" {
		s.refresh()
		return
	}
	if oauth.Expired(s.accessToken, s.now()) {
		s.raise(http.StatusUnauthorized, "access token expired, refreshing")
		s.refresh()
		return
	}
	token := s.accessToken
	s.async(func(ctx context.Context) func() {
		ok, err := s.api.Verify(ctx, token)
		return func() {
			switch {
			case err != nil:
				s.raise(0, "token check failed: %v", err)
				s.after(timerAuth, s.nextBackoff(), s.authenticate)
			case ok:
				s.connect()
			default:
				s.raise(http.StatusUnauthorized, "access token rejected, refreshing")
				s.refresh()
			}
		}
	})
}

func (s *Session) refresh() {
	if s.refreshToken == "" {
		s.requestShortCode()
		return
	}
	refreshToken := s.refreshToken
	s.async(func(ctx context.Context) func() {
		tok, err := s.api.Refresh(ctx, refreshToken)
		return func() {
			if err != nil {
				code := 0
				if errors.Is(err, oauth.ErrUnauthorized) {
					code = http.StatusUnauthorized
				}
				s.raise(code, "token refresh failed, requesting a short code: %v", err)
				s.accessToken, s.refreshToken = "", ""
				s.requestShortCode()
				return
			}
			s.useTokens(tok)
			s.connect()
		}
	})
}

// useTokens adopts a fresh token pair and persists it in the background.
func (s *Session) useTokens(tok oauth.Token) {
	s.accessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		s.refreshToken = tok.RefreshToken
	}
	saved := tokenstore.Tokens{AccessToken: s.accessToken, RefreshToken: s.refreshToken}
	store := s.cfg.TokenStore
	log := s.log
	go func() {
		if err := store.Save(context.Background(), saved); err != nil {
			log.Warn("save tokens", "error", err)
		}
	}()
}

// --------------------------------------------------------------------------
// Short-code flow
// --------------------------------------------------------------------------

func (s *Session) requestShortCode() {
	s.timers.Cancel(timerShortCodeCheck)
	s.timers.Cancel(timerShortCodeExpiry)
	s.accessToken = ""
	s.setState(ShortCodeRequired)
	s.async(func(ctx context.Context) func() {
		sc, err := s.api.RequestShortCode(ctx, s.cfg.Scope)
		return func() {
			if s.state != ShortCodeRequired || s.accessToken != "" {
				return
			}
			if err != nil {
				s.raise(0, "short code request failed: %v", err)
				s.after(timerShortCodeExpiry, s.nextBackoff(), s.requestShortCode)
				return
			}
			s.shortCode = sc
			s.log.Info("short code issued", "code", sc.Code, "expires_in", sc.Expiry())
			s.after(timerShortCodeExpiry, sc.Expiry(), s.requestShortCode)
			s.after(timerShortCodeCheck, s.cfg.ShortCodePollInterval, s.checkShortCode)
		}
	})
}

func (s *Session) checkShortCode() {
	handle := s.shortCode.Handle
	s.async(func(ctx context.Context) func() {
		code, status, err := s.api.CheckShortCode(ctx, handle)
		return func() {
			// a newer code replaced this one while the check was in flight
			if s.state != ShortCodeRequired || s.shortCode.Handle != handle {
				return
			}
			if err != nil {
				s.raise(0, "short code check failed: %v", err)
				s.after(timerShortCodeCheck, s.cfg.ShortCodePollInterval, s.checkShortCode)
				return
			}
			switch status {
			case oauth.CheckPending:
				s.after(timerShortCodeCheck, s.cfg.ShortCodePollInterval, s.checkShortCode)
			case oauth.CheckApproved:
				s.timers.Cancel(timerShortCodeExpiry)
				s.exchange(code)
			case oauth.CheckDenied:
				s.raise(403, "short code %s was denied", s.shortCode.Code)
				s.requestShortCode()
			case oauth.CheckExpired:
				s.log.Info("short code expired", "code", s.shortCode.Code)
				s.requestShortCode()
			}
		}
	})
}

func (s *Session) exchange(code string) {
	s.async(func(ctx context.Context) func() {
		tok, err := s.api.ExchangeCode(ctx, code)
		return func() {
			if err != nil {
				s.raise(0, "authorization failed: %v", err)
				s.requestShortCode()
				return
			}
			s.shortCode = oauth.ShortCode{}
			s.useTokens(tok)
			s.connect()
		}
	})
}
