package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
)

// LoopbackOpener hosts the implicit-flow redirect target on a loopback HTTP
// server and turns redirects into callback messages. The redirect page runs
// a small script that forwards the URL fragment, since fragments never reach
// the server directly.
type LoopbackOpener struct {
	server   *http.Server
	listener net.Listener
	origin   string
	logger   *slog.Logger
	out      func(authURL string, visible bool)

	mu      sync.Mutex
	pending *loopbackSurface
}

// NewLoopbackOpener binds a loopback port and starts serving the redirect
// target at /callback. announce is invoked with each authorization URL so
// the host application can surface it (print it, open a browser); nil means
// log at Info.
func NewLoopbackOpener(logger *slog.Logger, announce func(authURL string, visible bool)) (*LoopbackOpener, error) {
	if logger == nil {
		logger = slog.Default()
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("bind oauth callback port: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	o := &LoopbackOpener{
		listener: listener,
		origin:   "http://127.0.0.1:" + strconv.Itoa(port),
		logger:   logger,
	}
	if announce != nil {
		o.out = announce
	} else {
		o.out = func(authURL string, visible bool) {
			logger.Info("authorization required", "url", authURL, "visible", visible)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", o.handleCallback)
	mux.HandleFunc("/complete", o.handleComplete)
	o.server = &http.Server{Handler: mux}
	go o.server.Serve(listener)

	return o, nil
}

// RedirectURI returns the URI to register as the OAuth redirect target.
func (o *LoopbackOpener) RedirectURI() string { return o.origin + "/callback" }

// Origin implements Opener.
func (o *LoopbackOpener) Origin() string { return o.origin }

// Close shuts the callback server down.
func (o *LoopbackOpener) Close() error { return o.server.Close() }

// Open implements Opener.
func (o *LoopbackOpener) Open(ctx context.Context, authURL string, visible bool) (Surface, error) {
	s := &loopbackSurface{msgs: make(chan Message, 1)}
	o.mu.Lock()
	if o.pending != nil {
		o.mu.Unlock()
		return nil, errors.New("an oauth flow is already in progress")
	}
	o.pending = s
	o.mu.Unlock()

	s.onClose = func() {
		o.mu.Lock()
		if o.pending == s {
			o.pending = nil
		}
		o.mu.Unlock()
	}

	o.out(authURL, visible)
	return s, nil
}

// handleCallback serves the page the provider redirects to. The token lives
// in the URL fragment, so the page forwards it to /complete as a query.
func (o *LoopbackOpener) handleCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<html><body><p>Completing sign in…</p><script>
var p = new URLSearchParams(window.location.hash.slice(1));
fetch('/complete?' + p.toString()).then(function(){ document.body.textContent = 'You may close this window.'; });
</script></body></html>`)
}

// handleComplete converts the forwarded fragment parameters into a callback
// message for the pending surface.
func (o *LoopbackOpener) handleComplete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	expiresIn, _ := strconv.ParseInt(q.Get("expires_in"), 10, 64)
	msg := Message{
		Type:             MessageTypeCallback,
		AccessToken:      q.Get("access_token"),
		ExpiresIn:        expiresIn,
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
		Origin:           o.origin,
	}

	o.mu.Lock()
	pending := o.pending
	o.mu.Unlock()
	if pending == nil {
		o.logger.Warn("oauth callback received with no flow in progress")
		http.Error(w, "no flow in progress", http.StatusConflict)
		return
	}
	pending.deliver(msg)
	w.WriteHeader(http.StatusNoContent)
}

type loopbackSurface struct {
	msgs    chan Message
	closed  atomic.Bool
	once    sync.Once
	onClose func()
}

func (s *loopbackSurface) Messages() <-chan Message { return s.msgs }

func (s *loopbackSurface) Closed() bool { return s.closed.Load() }

func (s *loopbackSurface) Close() {
	s.once.Do(func() {
		s.closed.Store(true)
		if s.onClose != nil {
			s.onClose()
		}
	})
}

func (s *loopbackSurface) deliver(msg Message) {
	if s.closed.Load() {
		return
	}
	select {
	case s.msgs <- msg:
	default:
	}
}
