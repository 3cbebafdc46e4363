package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// oauthCallbackTimeout bounds how long the interactive code flow waits
	// for the browser redirect.
	oauthCallbackTimeout = 5 * time.Minute

	// tokenExchangeTimeout bounds the code-for-token exchange.
	tokenExchangeTimeout = 30 * time.Second

	// Starting port for the loopback callback server.
	oauthStartPort = 8085

	oauthMaxPortAttempts = 5
)

// FileTokenAPI is a host-provided token facility backed by an OAuth client
// config and a refresh token stored on disk. Silent acquisition refreshes
// through the stored refresh token; interactive acquisition runs the
// authorization-code flow against a loopback redirect.
type FileTokenAPI struct {
	config    *oauth2.Config
	tokenPath string
	logger    *slog.Logger
	out       io.Writer
}

// NewFileTokenAPI creates a token API storing its token at tokenPath.
// The authorization URL for interactive flows is printed to out.
func NewFileTokenAPI(config *oauth2.Config, tokenPath string, logger *slog.Logger, out io.Writer) *FileTokenAPI {
	if logger == nil {
		logger = slog.Default()
	}
	if out == nil {
		out = os.Stderr
	}
	return &FileTokenAPI{config: config, tokenPath: tokenPath, logger: logger, out: out}
}

// Token implements TokenAPI.
func (f *FileTokenAPI) Token(ctx context.Context, interactive bool) (Grant, error) {
	tok, err := f.loadToken()
	if err == nil {
		source := f.config.TokenSource(ctx, tok)
		fresh, refreshErr := source.Token()
		if refreshErr == nil {
			if fresh.AccessToken != tok.AccessToken || fresh.RefreshToken != tok.RefreshToken {
				if saveErr := f.saveToken(fresh); saveErr != nil {
					f.logger.Warn("failed to persist refreshed token", "error", saveErr)
				}
			}
			return grantFromToken(fresh), nil
		}
		f.logger.Debug("stored token refresh failed", "error", refreshErr)
		if !interactive {
			return Grant{}, refreshErr
		}
	} else if !interactive {
		return Grant{}, ErrNotSignedIn
	}

	tok, err = f.interactiveFlow(ctx)
	if err != nil {
		return Grant{}, err
	}
	if err := f.saveToken(tok); err != nil {
		f.logger.Warn("failed to save token", "error", err)
	}
	return grantFromToken(tok), nil
}

// Revoke implements TokenAPI. The stored token file is always removed;
// remote revocation is best-effort.
func (f *FileTokenAPI) Revoke(ctx context.Context, token string) error {
	if err := os.Remove(f.tokenPath); err != nil && !os.IsNotExist(err) {
		f.logger.Warn("failed to remove token file", "error", err)
	}

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://oauth2.googleapis.com/revoke", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// interactiveFlow runs the PKCE authorization-code flow against a loopback
// callback server and exchanges the code for a token.
func (f *FileTokenAPI) interactiveFlow(ctx context.Context) (*oauth2.Token, error) {
	port, listener, err := findAvailablePort()
	if err != nil {
		return nil, errors.New("could not bind a local port for the OAuth callback")
	}
	defer listener.Close()

	cfg := *f.config
	cfg.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	verifier := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL("state",
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)

	fmt.Fprintln(f.out, "Open this URL in your browser:")
	fmt.Fprintln(f.out, authURL)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "No code in callback", http.StatusBadRequest)
			errCh <- errors.New("no code in callback")
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Authentication successful</h1><p>You may close this window.</p></body></html>")
		codeCh <- code
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-time.After(oauthCallbackTimeout):
		return nil, errors.New("oauth callback timed out")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)

	exchangeCtx, cancelExchange := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancelExchange()

	tok, err := cfg.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}
	return tok, nil
}

func (f *FileTokenAPI) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(f.tokenPath)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid token file: %w", err)
	}
	return &tok, nil
}

func (f *FileTokenAPI) saveToken(tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.tokenPath, data, 0600)
}

func grantFromToken(tok *oauth2.Token) Grant {
	expiresIn := int64(defaultExpiresIn)
	if !tok.Expiry.IsZero() {
		if secs := int64(time.Until(tok.Expiry).Seconds()); secs > 0 {
			expiresIn = secs
		}
	}
	return Grant{AccessToken: tok.AccessToken, ExpiresIn: expiresIn}
}

// findAvailablePort tries a small range of loopback ports.
func findAvailablePort() (int, net.Listener, error) {
	for i := 0; i < oauthMaxPortAttempts; i++ {
		port := oauthStartPort + i
		addr := fmt.Sprintf("localhost:%d", port)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			return port, listener, nil
		}
	}
	return 0, nil, errors.New("no available port found")
}
