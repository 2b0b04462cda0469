package auth

import (
	"net/http"
	"time"
)

// Credentials are the account details used to mint a new token. Empty
// strings are absent.
type Credentials struct {
	User string
	Pass string
}

// Complete reports whether both user and password are present.
func (c Credentials) Complete() bool {
	return c.User != "" && c.Pass != ""
}

// Token is the identity provider's token response. AcquiredAt is local: it is
// stamped from the client clock when the response is accepted and any value
// sent by the server is discarded.
type Token struct {
	AcquiredAt       time.Time `json:"acquired_at" yaml:"acquired_at"`
	AccessToken      string    `json:"access_token" yaml:"access_token"`
	ExpiresIn        int64     `json:"expires_in" yaml:"expires_in"`
	RefreshToken     string    `json:"refresh_token" yaml:"refresh_token"`
	RefreshExpiresIn int64     `json:"refresh_expires_in" yaml:"refresh_expires_in"`
	TokenType        string    `json:"token_type" yaml:"token_type"`
	NotBeforePolicy  int64     `json:"not-before-policy" yaml:"not-before-policy"`
	SessionState     string    `json:"session_state" yaml:"session_state"`
	Scope            string    `json:"scope" yaml:"scope"`
}

// Expiry is when the access token stops being usable.
func (t *Token) Expiry() time.Time {
	return t.AcquiredAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// RefreshExpiry is when the refresh token stops being usable.
func (t *Token) RefreshExpiry() time.Time {
	return t.AcquiredAt.Add(time.Duration(t.RefreshExpiresIn) * time.Second)
}

// Authorize sets the bearer Authorization header on req.
func (t *Token) Authorize(req *http.Request) {
	if t == nil || t.AccessToken == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+t.AccessToken)
}
