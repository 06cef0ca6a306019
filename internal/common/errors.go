package common

import "errors"

// Token errors raised while validating a session cookie.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
