package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// Spotify rejects "localhost" redirect URIs; the loopback address must be
// spelled out. See the redirect-uri notes in the Web API docs.
const (
	redirectURI  = "http://127.0.0.1:8080/callback"
	loginTimeout = 2 * time.Minute
)

var (
	// ErrMissingCredentials is returned when the client id or secret is empty.
	ErrMissingCredentials = errors.New("missing Spotify client id or secret")

	// ErrNotAuthenticated is returned when a batch run finds no usable cached token.
	ErrNotAuthenticated = errors.New("no cached token, run the login command first")

	// ErrAuthTimeout is returned when no callback arrives before loginTimeout.
	ErrAuthTimeout = errors.New("authentication timed out waiting for callback")

	// ErrStateMismatch is returned when the callback carries an unexpected state parameter.
	ErrStateMismatch = errors.New("OAuth state mismatch")
)

// Credentials holds the Spotify application credentials.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Authenticator handles Spotify OAuth2 authentication.
type Authenticator struct {
	auth  *spotifyauth.Authenticator
	cache *TokenCache
}

// New creates an Authenticator for the given credentials and token cache.
// Returns ErrMissingCredentials if either credential is empty.
func New(creds Credentials, cache *TokenCache) (*Authenticator, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(creds.ClientID),
		spotifyauth.WithClientSecret(creds.ClientSecret),
		spotifyauth.WithRedirectURL(redirectURI),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserReadRecentlyPlayed,
			spotifyauth.ScopeUserReadCurrentlyPlaying,
		),
	)

	return &Authenticator{
		auth:  auth,
		cache: cache,
	}, nil
}

// Client returns an authenticated Spotify client from the cached token.
// Batch runs are headless: there is no interactive fallback here, only
// ErrNotAuthenticated when the cache is empty. The oauth2 transport
// refreshes expired tokens automatically; a refreshed token is written back
// to the cache best-effort.
func (a *Authenticator) Client(ctx context.Context) (*spotify.Client, error) {
	token, err := a.cache.Load()
	if err != nil {
		return nil, fmt.Errorf("loading cached token: %w", err)
	}
	if token == nil {
		return nil, ErrNotAuthenticated
	}

	client := spotify.New(a.auth.Client(ctx, token), spotify.WithRetry(true))

	newToken, err := client.Token()
	if err == nil && newToken.AccessToken != token.AccessToken {
		_ = a.cache.Save(newToken)
	}

	return client, nil
}

// Login runs the authorization-code flow once and caches the resulting
// token. The authorization URL is printed instead of opened in a browser so
// the flow also works over SSH; a short-lived loopback server collects the
// callback.
func (a *Authenticator) Login(ctx context.Context) (*spotify.Client, error) {
	state, err := newState()
	if err != nil {
		return nil, fmt.Errorf("generating state: %w", err)
	}

	tokenCh := make(chan *oauth2.Token, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		a.completeLogin(w, r, state, tokenCh, errCh)
	})
	server := &http.Server{Addr: "127.0.0.1:8080", Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("callback server: %w", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	fmt.Println("\nTo authenticate, open this URL in your browser:")
	fmt.Println(a.auth.AuthURL(state))
	fmt.Println("\nWaiting for authentication...")

	var token *oauth2.Token
	select {
	case token = <-tokenCh:
	case err := <-errCh:
		return nil, err
	case <-time.After(loginTimeout):
		return nil, ErrAuthTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := a.cache.Save(token); err != nil {
		// Auth itself succeeded; a cache miss only means logging in again next time.
		fmt.Printf("Warning: failed to cache token: %v\n", err)
	}

	return spotify.New(a.auth.Client(ctx, token), spotify.WithRetry(true)), nil
}

// completeLogin validates the callback request and exchanges the code for a token.
func (a *Authenticator) completeLogin(w http.ResponseWriter, r *http.Request, wantState string, tokenCh chan<- *oauth2.Token, errCh chan<- error) {
	query := r.URL.Query()

	if query.Get("state") != wantState {
		http.Error(w, "state mismatch", http.StatusBadRequest)
		errCh <- ErrStateMismatch
		return
	}

	// Spotify reports a declined consent screen via the error query param.
	if reason := query.Get("error"); reason != "" {
		http.Error(w, "authentication failed: "+reason, http.StatusBadRequest)
		errCh <- fmt.Errorf("spotify auth error: %s", reason)
		return
	}

	token, err := a.auth.Token(r.Context(), wantState, r)
	if err != nil {
		http.Error(w, "token exchange failed", http.StatusInternalServerError)
		errCh <- fmt.Errorf("exchanging code for token: %w", err)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>spotify-history</title></head>
<body>
<p>Logged in. This window can be closed; the terminal has the rest.</p>
</body>
</html>`)

	tokenCh <- token
}

// newState returns a random hex token for the OAuth state parameter.
func newState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Logout removes the cached token.
func (a *Authenticator) Logout() error {
	return a.cache.Delete()
}
