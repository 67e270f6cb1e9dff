package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/pfrederiksen/f1-calendar/internal/logger"
	"github.com/pfrederiksen/f1-calendar/internal/storage"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
)

var ErrUnauthenticated = errors.New("calendar authorization was not granted")

// Scopes are the OAuth scopes required to list and create events
var Scopes = []string{gcal.CalendarScope}

// AuthorizeFunc obtains a fresh token through user consent
type AuthorizeFunc func(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error)

// Authenticator produces an authorized HTTP client from the client secret
// file and the stored token, running the consent flow when needed
type Authenticator struct {
	credentialsFile string
	store           *storage.Storage
	scopes          []string
	prompt          io.Writer
	authorize       AuthorizeFunc
}

// NewAuthenticator creates an Authenticator. The consent URL, when needed,
// is written to prompt.
func NewAuthenticator(credentialsFile string, store *storage.Storage, prompt io.Writer) *Authenticator {
	a := &Authenticator{
		credentialsFile: credentialsFile,
		store:           store,
		scopes:          Scopes,
		prompt:          prompt,
	}
	a.authorize = a.localServerFlow
	return a
}

// WithAuthorizeFunc replaces the interactive consent flow
func (a *Authenticator) WithAuthorizeFunc(fn AuthorizeFunc) *Authenticator {
	a.authorize = fn
	return a
}

func (a *Authenticator) oauthConfig() (*oauth2.Config, error) {
	data, err := os.ReadFile(a.credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading client secret file: %w", err)
	}
	cfg, err := google.ConfigFromJSON(data, a.scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing client secret file: %w", err)
	}
	return cfg, nil
}

// storedToken loads the saved token, discarding it when it is unreadable,
// granted for other scopes, or expired without a refresh token
func (a *Authenticator) storedToken() *oauth2.Token {
	record, err := a.store.LoadToken()
	if err != nil {
		logger.Warn("Unreadable token, deleting it", logger.Fields{"path": a.store.TokenPath(), "error": err.Error()})
		a.discardToken()
		return nil
	}
	if record == nil {
		return nil
	}
	if !record.HasScopes(a.scopes) {
		logger.Warn("Invalid or insufficient token scopes, deleting token", logger.Fields{"path": a.store.TokenPath()})
		a.discardToken()
		return nil
	}
	if !record.Token.Valid() && record.Token.RefreshToken == "" {
		logger.Warn("Expired token without refresh token, deleting token", logger.Fields{"path": a.store.TokenPath()})
		a.discardToken()
		return nil
	}
	return record.Token
}

func (a *Authenticator) discardToken() {
	if err := a.store.DeleteToken(); err != nil {
		logger.Error("Failed to delete token", logger.Fields{"path": a.store.TokenPath()}, err)
	}
}

// Client returns an HTTP client authorized for the calendar scopes.
// Refreshed tokens are written back to storage.
func (a *Authenticator) Client(ctx context.Context) (*http.Client, error) {
	cfg, err := a.oauthConfig()
	if err != nil {
		return nil, err
	}

	token := a.storedToken()
	if token == nil {
		token, err = a.authorize(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
		}
		if err := a.store.SaveToken(token, a.scopes); err != nil {
			return nil, err
		}
		logger.Info("Stored calendar token", logger.Fields{"path": a.store.TokenPath()})
	}

	src := &persistingTokenSource{
		base:   cfg.TokenSource(ctx, token),
		store:  a.store,
		scopes: a.scopes,
		last:   token.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(token, src)), nil
}

// localServerFlow runs the installed-app consent flow with a loopback redirect
func (a *Authenticator) localServerFlow(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("starting callback listener: %w", err)
	}

	flowCfg := *cfg
	flowCfg.RedirectURL = fmt.Sprintf("http://%s/", ln.Addr().String())
	state := uuid.NewString()

	type callback struct {
		code string
		err  error
	}
	results := make(chan callback, 1)

	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			q := r.URL.Query()
			var cb callback
			switch {
			case q.Get("state") != state:
				cb.err = errors.New("state mismatch in authorization callback")
			case q.Get("error") != "":
				cb.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
			case q.Get("code") == "":
				cb.err = errors.New("authorization callback without code")
			default:
				cb.code = q.Get("code")
			}
			if cb.err != nil {
				http.Error(w, cb.err.Error(), http.StatusBadRequest)
			} else {
				fmt.Fprintln(w, "Authorization complete. You can close this window.")
			}
			select {
			case results <- cb:
			default:
			}
		}),
	}
	go srv.Serve(ln) // nolint:errcheck
	defer srv.Close() // nolint:errcheck

	authURL := flowCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintf(a.prompt, "Open this URL in your browser to authorize calendar access:\n%s\n", authURL)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case cb := <-results:
		if cb.err != nil {
			return nil, cb.err
		}
		token, err := flowCfg.Exchange(ctx, cb.code)
		if err != nil {
			return nil, fmt.Errorf("exchanging authorization code: %w", err)
		}
		return token, nil
	}
}

// persistingTokenSource saves every newly issued access token
type persistingTokenSource struct {
	base   oauth2.TokenSource
	store  *storage.Storage
	scopes []string
	last   string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken != s.last {
		s.last = token.AccessToken
		if err := s.store.SaveToken(token, s.scopes); err != nil {
			logger.Error("Failed to store refreshed token", nil, err)
		} else {
			logger.Debug("Stored refreshed token", logger.Fields{"path": s.store.TokenPath()})
		}
	}
	return token, nil
}
