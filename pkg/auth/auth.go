// Package auth keeps a catalogue access token usable across invocations.
//
// A cached Token is classified against the current time and then reused,
// refreshed with its refresh token, or replaced by a password grant. The
// caller owns persistence: EnsureValid takes the cached token and returns the
// token to store.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
)

const (
	// DefaultTokenURL is the Copernicus Data Space identity endpoint.
	DefaultTokenURL = "https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token"
	// DefaultClientID is the public client registered for command line use.
	DefaultClientID = "cdse-public"
)

// Option configures an Authenticator.
type Option func(*Authenticator)

// Authenticator obtains and renews tokens from the identity provider.
type Authenticator struct {
	http     *resty.Client
	tokenURL string
	clientID string
	timeout  time.Duration
	now      func() time.Time
	logger   *log.Logger
}

// WithTokenURL overrides the identity endpoint.
func WithTokenURL(u string) Option {
	return func(a *Authenticator) { a.tokenURL = u }
}

// WithClientID overrides the OAuth client id.
func WithClientID(id string) Option {
	return func(a *Authenticator) { a.clientID = id }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithTimeout sets the timeout for token requests. It also applies to a
// client passed with WithRestyClient, whatever the option order.
func WithTimeout(d time.Duration) Option {
	return func(a *Authenticator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithRestyClient injects the HTTP client used for token requests.
func WithRestyClient(c *resty.Client) Option {
	return func(a *Authenticator) {
		if c != nil {
			a.http = c
		}
	}
}

// WithLogger registers a logger for state decisions and requests.
func WithLogger(l *log.Logger) Option {
	return func(a *Authenticator) {
		if l != nil {
			a.logger = l
		}
	}
}

// New constructs an Authenticator for the default identity endpoint.
func New(opts ...Option) *Authenticator {
	a := &Authenticator{
		http:     resty.New(),
		timeout:  30 * time.Second,
		tokenURL: DefaultTokenURL,
		clientID: DefaultClientID,
		now:      time.Now,
		logger:   log.New(io.Discard),
	}
	for _, o := range opts {
		o(a)
	}
	a.http.SetTimeout(a.timeout).SetLogger(a.logger)
	return a
}

// EnsureValid returns a token that is usable now. A nil cached token or one
// whose refresh window has passed is replaced using creds; a token whose
// access part expired is refreshed; a valid token is returned unchanged.
// Failures are not retried, and a failed refresh does not fall back to a
// password grant.
func (a *Authenticator) EnsureValid(ctx context.Context, cached *Token, creds Credentials) (*Token, error) {
	if cached == nil {
		a.logger.Debug("auth: no cached token, authenticating")
		return a.Authenticate(ctx, creds)
	}

	state := Classify(cached, a.now())
	a.logger.Debug("auth: cached token classified", "state", state, "expires", cached.Expiry())
	switch state {
	case Valid:
		return cached, nil
	case NeedsRefresh:
		return a.Refresh(ctx, cached)
	default:
		return a.Authenticate(ctx, creds)
	}
}

// Authenticate performs a password grant. Incomplete credentials are not
// rejected locally: an empty form is sent and the provider's answer decides.
func (a *Authenticator) Authenticate(ctx context.Context, creds Credentials) (*Token, error) {
	form := map[string]string{}
	if creds.Complete() {
		form = map[string]string{
			"client_id":  a.clientID,
			"grant_type": "password",
			"username":   creds.User,
			"password":   creds.Pass,
		}
	}
	return a.requestToken(ctx, form, !creds.Complete())
}

// Refresh exchanges the refresh token of t for a new token.
func (a *Authenticator) Refresh(ctx context.Context, t *Token) (*Token, error) {
	form := map[string]string{
		"client_id":     a.clientID,
		"grant_type":    "refresh_token",
		"refresh_token": t.RefreshToken,
	}
	return a.requestToken(ctx, form, false)
}

func (a *Authenticator) requestToken(ctx context.Context, form map[string]string, anonymous bool) (*Token, error) {
	a.logger.Debug("auth: requesting token", "url", a.tokenURL, "grant", form["grant_type"])

	resp, err := a.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetFormData(form).
		Post(a.tokenURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if !resp.IsSuccess() {
		a.logger.Error("auth: token request rejected", "status", resp.StatusCode())
		return nil, &ProviderError{Status: resp.StatusCode(), Body: resp.String(), Anonymous: anonymous}
	}

	var token Token
	if err := json.Unmarshal(resp.Body(), &token); err != nil {
		return nil, fmt.Errorf("%w: decode token response: %w", ErrTransport, err)
	}
	token.AcquiredAt = a.now()
	return &token, nil
}
