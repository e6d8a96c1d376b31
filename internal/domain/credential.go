package domain

import "time"

// Credential is an opaque bearer token with an absolute expiry. The expiry is
// already discounted by the broker's safety margin, so Valid means usable for
// an in-flight request. Never persisted.
type Credential struct {
	Token  string
	Expiry time.Time
}

// Valid reports whether the credential can authenticate a call starting now.
func (c Credential) Valid(now time.Time) bool {
	return c.Token != "" && now.Before(c.Expiry)
}
