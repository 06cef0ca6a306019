// Package common contains shared constants and sentinel errors used across
// CipherSafe components.
package common

const (
	// SessionCookieName is the HTTP-only cookie the backend sets after a
	// successful OTP verification. Client code never reads its value.
	SessionCookieName = "access_token"

	// RequestIDHeaderName correlates a client call with backend logs.
	RequestIDHeaderName = "X-Request-Id"

	// OTPLength is the number of digits in a one-time passcode.
	OTPLength = 6
)
