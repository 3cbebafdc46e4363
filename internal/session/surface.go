package session

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MessageTypeCallback identifies OAuth completion messages posted by the
// redirect target back to the opener.
const MessageTypeCallback = "oauth-callback"

const (
	// silentRefreshTimeout abandons a hidden-surface renewal attempt.
	silentRefreshTimeout = 10 * time.Second

	// popupPollInterval is how often the visible flow checks whether the
	// user closed the surface.
	popupPollInterval = 500 * time.Millisecond
)

// Message is the cross-surface completion message. Origin is stamped by the
// transport; messages whose origin differs from the opener's own origin are
// ignored.
type Message struct {
	Type             string `json:"type"`
	AccessToken      string `json:"access_token,omitempty"`
	ExpiresIn        int64  `json:"expires_in,omitempty"`
	State            string `json:"state"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`

	Origin string `json:"-"`
}

// Surface is a hidden frame or visible popup hosting an OAuth redirect.
type Surface interface {
	// Messages delivers completion messages posted to the opener.
	Messages() <-chan Message

	// Closed reports whether the user dismissed the surface.
	Closed() bool

	// Close tears the surface down. Safe to call more than once.
	Close()
}

// Opener creates surfaces navigated to an authorization URL.
type Opener interface {
	// Open navigates a new surface to authURL. visible selects a popup
	// over a hidden frame.
	Open(ctx context.Context, authURL string, visible bool) (Surface, error)

	// Origin is the opener's own origin, used to reject messages from
	// anywhere else.
	Origin() string
}

// authURL builds the implicit-flow authorization URL with a fresh
// per-attempt state nonce.
func (m *Manager) authURL(prompt string) (string, string) {
	state := uuid.NewString()

	q := url.Values{}
	q.Set("client_id", m.cfg.ClientID)
	q.Set("redirect_uri", m.cfg.RedirectURI)
	q.Set("response_type", "token")
	q.Set("scope", strings.Join(m.cfg.Scopes, " "))
	q.Set("state", state)
	q.Set("include_granted_scopes", "true")
	if prompt != "" {
		q.Set("prompt", prompt)
	}
	return m.cfg.Endpoints.Auth + "?" + q.Encode(), state
}

// silentGrant renews the token through a hidden surface with prompt=none.
// The attempt is abandoned if no matching message arrives within the
// timeout.
func (m *Manager) silentGrant(ctx context.Context) (Grant, error) {
	authURL, state := m.authURL("none")
	surface, err := m.cfg.Opener.Open(ctx, authURL, false)
	if err != nil {
		return Grant{}, err
	}
	return m.awaitCallback(ctx, surface, state, silentRefreshTimeout, false)
}

// popupGrant runs the interactive flow through a visible surface. There is
// no timeout; the flow terminates on completion or when the user closes the
// surface.
func (m *Manager) popupGrant(ctx context.Context) (Grant, error) {
	authURL, state := m.authURL("consent")
	surface, err := m.cfg.Opener.Open(ctx, authURL, true)
	if err != nil {
		return Grant{}, err
	}
	return m.awaitCallback(ctx, surface, state, 0, true)
}

// awaitCallback is the rendezvous between the surface and the manager.
// Settlement happens exactly once: teardown is guarded by a latch so the
// message path, the timeout path, and the closed-poll path cannot race.
func (m *Manager) awaitCallback(ctx context.Context, surface Surface, state string, timeout time.Duration, pollClosed bool) (Grant, error) {
	cleanup := sync.OnceFunc(surface.Close)
	defer cleanup()

	var timeoutC <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timeoutC = t.C
	}

	var pollC <-chan time.Time
	if pollClosed {
		tick := time.NewTicker(popupPollInterval)
		defer tick.Stop()
		pollC = tick.C
	}

	origin := m.cfg.Opener.Origin()
	for {
		select {
		case msg, ok := <-surface.Messages():
			if !ok {
				return Grant{}, ErrCancelled
			}
			if msg.Origin != origin {
				m.logger.Warn("ignoring oauth message from foreign origin", "origin", msg.Origin)
				continue
			}
			if msg.Type != MessageTypeCallback {
				continue
			}
			cleanup()
			if msg.Error != "" {
				desc := msg.ErrorDescription
				if desc == "" {
					desc = msg.Error
				}
				return Grant{}, errors.New(desc)
			}
			if msg.State != state {
				return Grant{}, ErrStateMismatch
			}
			if msg.AccessToken == "" {
				return Grant{}, errors.New("no access token received")
			}
			return Grant{AccessToken: msg.AccessToken, ExpiresIn: msg.ExpiresIn}, nil

		case <-timeoutC:
			cleanup()
			return Grant{}, ErrRefreshTimeout

		case <-pollC:
			if surface.Closed() {
				cleanup()
				return Grant{}, ErrCancelled
			}

		case <-ctx.Done():
			cleanup()
			return Grant{}, ctx.Err()
		}
	}
}
