package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
)

const (
	credentialsFile = "credentials.json"
	tokenFile       = "token.json"
	authPort        = "6789"
)

var scopes = []string{gcal.CalendarReadonlyScope}

// oauthConfig loads the OAuth client configuration from credentials.json in
// the config directory.
func oauthConfig(configDir string) (*oauth2.Config, error) {
	path := filepath.Join(configDir, credentialsFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read client secret file %s: %w", path, err)
	}

	cfg, err := googleoauth.ConfigFromJSON(raw, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secret file: %w", err)
	}
	cfg.RedirectURL = "http://localhost:" + authPort + "/oauth2callback"
	return cfg, nil
}

// Client returns an authenticated HTTP client using the stored token,
// refreshing it transparently. Returns an error when no token exists yet;
// run Authorize first.
func Client(ctx context.Context, configDir string) (*http.Client, error) {
	cfg, err := oauthConfig(configDir)
	if err != nil {
		return nil, err
	}

	tok, err := tokenFromFile(filepath.Join(configDir, tokenFile))
	if err != nil {
		return nil, fmt.Errorf("no stored token, run the auth flow first: %w", err)
	}

	return cfg.Client(ctx, tok), nil
}

// Authorize runs the browser-based authorization code flow and stores the
// resulting token in the config directory.
func Authorize(ctx context.Context, configDir string) error {
	cfg, err := oauthConfig(configDir)
	if err != nil {
		return err
	}

	tok, err := tokenFromWeb(ctx, cfg)
	if err != nil {
		return err
	}

	return saveToken(filepath.Join(configDir, tokenFile), tok)
}

// tokenFromWeb serves a local redirect endpoint, prints the consent URL, and
// exchanges the captured authorization code for a token.
func tokenFromWeb(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", ":"+authPort)
	if err != nil {
		return nil, fmt.Errorf("listen on port %s: %w", authPort, err)
	}
	defer listener.Close() //nolint:errcheck

	server := &http.Server{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "authorization code not found", http.StatusBadRequest)
				errCh <- fmt.Errorf("authorization code not found in redirect")
				return
			}
			fmt.Fprint(w, "Authentication successful! You can close this window.")
			codeCh <- code
		}),
	}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	defer server.Shutdown(context.Background()) //nolint:errcheck

	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Open the following URL in your browser to authorize calendar access:\n%s\n", authURL)

	select {
	case code := <-codeCh:
		exchangeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		return cfg.Exchange(exchangeCtx, code)
	case err := <-errCh:
		return nil, err
	case <-time.After(5 * time.Minute):
		return nil, fmt.Errorf("authorization timed out")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode token file %s: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	return json.NewEncoder(f).Encode(tok)
}
