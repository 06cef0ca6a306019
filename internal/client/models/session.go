package models

import "time"

// Session is the client-visible projection of the server-issued session
// credential. The credential itself lives in an HTTP-only cookie.
type Session struct {
	SubjectID string
	Email     string
	Username  string
	Expiry    time.Time
}

// Expired reports whether the session expiry lies before now. A zero expiry
// never expires on the client side; the backend stays authoritative.
func (s Session) Expired(now time.Time) bool {
	return !s.Expiry.IsZero() && now.After(s.Expiry)
}
