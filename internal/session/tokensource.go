package session

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenSource adapts the manager to oauth2.TokenSource so the generated
// Google API clients pull tokens through the session lifecycle, including
// silent renewal and the degraded stale-token fallback.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &managerSource{ctx: ctx, m: m}
}

type managerSource struct {
	ctx context.Context
	m   *Manager
}

func (s *managerSource) Token() (*oauth2.Token, error) {
	token, err := s.m.EnsureValidToken(s.ctx)
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
	if expiry, ok, err := s.m.tokenExpiry(s.ctx); err == nil && ok {
		tok.Expiry = expiry
	}
	return tok, nil
}
