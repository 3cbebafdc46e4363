package session

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"tabdash/internal/kvstore"
)

func newLoopbackFixture(t *testing.T) (*LoopbackOpener, func() string) {
	t.Helper()

	var mu sync.Mutex
	var lastURL string
	opener, err := NewLoopbackOpener(nil, func(authURL string, visible bool) {
		mu.Lock()
		lastURL = authURL
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("new opener: %v", err)
	}
	t.Cleanup(func() { opener.Close() })

	lastAuthURL := func() string {
		mu.Lock()
		defer mu.Unlock()
		return lastURL
	}
	return opener, lastAuthURL
}

// complete simulates the redirect page forwarding the URL fragment.
func complete(t *testing.T, opener *LoopbackOpener, params url.Values) {
	t.Helper()
	resp, err := http.Get(opener.Origin() + "/complete?" + params.Encode())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 from /complete, got %d", resp.StatusCode)
	}
}

func TestLoopbackOpener_FullFlow(t *testing.T) {
	opener, lastAuthURL := newLoopbackFixture(t)

	mgr := New(kvstore.NewMemStore(0), Config{
		ClientID:    "test-client",
		RedirectURI: opener.RedirectURI(),
		Scopes:      []string{"scope-a"},
		Opener:      opener,
	}, nil)

	done := make(chan struct{})
	var grant Grant
	var err error
	go func() {
		defer close(done)
		grant, err = mgr.silentGrant(context.Background())
	}()

	waitFor(t, func() bool { return lastAuthURL() != "" })

	u, parseErr := url.Parse(lastAuthURL())
	if parseErr != nil {
		t.Fatalf("parse auth url: %v", parseErr)
	}
	complete(t, opener, url.Values{
		"access_token": {"loopback-token"},
		"expires_in":   {"3600"},
		"state":        {u.Query().Get("state")},
	})

	<-done
	if err != nil {
		t.Fatalf("silent grant: %v", err)
	}
	if grant.AccessToken != "loopback-token" || grant.ExpiresIn != 3600 {
		t.Errorf("unexpected grant: %+v", grant)
	}
}

func TestLoopbackOpener_SingleFlowAtATime(t *testing.T) {
	opener, _ := newLoopbackFixture(t)

	first, err := opener.Open(context.Background(), "https://auth.example.com", false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, err := opener.Open(context.Background(), "https://auth.example.com", false); err == nil {
		t.Error("expected a second concurrent flow to be rejected")
	}

	// Closing the first surface frees the slot.
	first.Close()
	if _, err := opener.Open(context.Background(), "https://auth.example.com", false); err != nil {
		t.Errorf("expected open after close to succeed, got %v", err)
	}
}

func TestLoopbackOpener_CompleteWithoutFlow(t *testing.T) {
	opener, _ := newLoopbackFixture(t)

	resp, err := http.Get(opener.Origin() + "/complete?access_token=x")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 with no flow in progress, got %d", resp.StatusCode)
	}
}
