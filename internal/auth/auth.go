// Package auth answers one question: which user owns this process's ledger.
// The service runs single-user, so identity is configuration rather than a
// login flow; remote sync stays off when no identity is configured.
package auth

// Provider reports the current user identity.
type Provider interface {
	// CurrentUser returns the opaque user id, or ok=false when the process
	// runs anonymously.
	CurrentUser() (id string, ok bool)
}

// Static is a fixed identity taken from configuration.
type Static struct {
	UserID string
}

var _ Provider = Static{}

func (s Static) CurrentUser() (string, bool) {
	return s.UserID, s.UserID != ""
}

// Anonymous is the no-identity provider.
type Anonymous struct{}

var _ Provider = Anonymous{}

func (Anonymous) CurrentUser() (string, bool) {
	return "", false
}
