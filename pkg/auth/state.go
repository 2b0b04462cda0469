package auth

import "time"

// State is the action a cached token calls for.
type State int

const (
	// Valid tokens are reused as-is.
	Valid State = iota
	// NeedsRefresh tokens have an expired access token but a live refresh token.
	NeedsRefresh
	// NeedsReauthentication tokens must be replaced using credentials.
	NeedsReauthentication
)

func (s State) String() string {
	switch s {
	case Valid:
		return "valid"
	case NeedsRefresh:
		return "needs-refresh"
	default:
		return "needs-reauthentication"
	}
}

// Classify decides what to do with token at instant now. Any combination
// other than "both live" or "only the access token expired" falls back to
// NeedsReauthentication, including a refresh expiry that precedes the access
// token expiry.
func Classify(token *Token, now time.Time) State {
	if token == nil {
		return NeedsReauthentication
	}
	expired := now.After(token.Expiry())
	refreshExpired := now.After(token.RefreshExpiry())

	switch {
	case !expired && !refreshExpired:
		return Valid
	case expired && !refreshExpired:
		return NeedsRefresh
	default:
		return NeedsReauthentication
	}
}
