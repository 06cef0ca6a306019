package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy. Match with errors.Is; *APIError unwraps to one of these.
var (
	// ErrValidation is a client-side form constraint violation; nothing is sent.
	ErrValidation = errors.New("validation error")

	// ErrUnavailable covers transport failures and 5xx responses.
	ErrUnavailable = errors.New("server unavailable")

	// ErrUnauthorized means bad credentials or a missing/expired session.
	ErrUnauthorized = errors.New("unauthorized")

	ErrNotFound        = errors.New("not found")
	ErrBadRequest      = errors.New("bad request")
	ErrTooManyRequests = errors.New("too many requests")

	// ErrOtpTerminal marks OTP failures after which the challenge cannot be
	// salvaged; the flow restarts from login.
	ErrOtpTerminal = errors.New("otp challenge is no longer valid")

	// ErrOtpRetryable marks a wrong code; the user may submit again.
	ErrOtpRetryable = errors.New("otp rejected")

	// ErrDisclosure wraps any failure to reveal a stored secret.
	ErrDisclosure = errors.New("could not reveal password")

	ErrOtpNotFound     = fmt.Errorf("otp not found: %w", ErrOtpTerminal)
	ErrOtpExpired      = fmt.Errorf("otp expired: %w", ErrOtpTerminal)
	ErrTooManyAttempts = fmt.Errorf("too many otp attempts: %w", ErrOtpTerminal)
	ErrOtpInvalid      = fmt.Errorf("invalid otp: %w", ErrOtpRetryable)
)

// APIError is a non-2xx backend response. Detail is the server message
// suitable for a notification; Kind is the taxonomy sentinel.
type APIError struct {
	Status int
	Detail string
	Kind   error

	code string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if text := http.StatusText(e.Status); text != "" {
		return text
	}
	return fmt.Sprintf("unexpected status %d", e.Status)
}

func (e *APIError) Unwrap() error { return e.Kind }

// kindForStatus maps an HTTP status to the generic taxonomy.
func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusTooManyRequests:
		return ErrTooManyRequests
	case status >= 500:
		return ErrUnavailable
	default:
		return ErrBadRequest
	}
}

// Machine-readable OTP failure codes. Backends that only send a detail
// string are classified by the messages below instead.
const (
	otpCodeNotFound        = "otp_not_found"
	otpCodeExpired         = "otp_expired"
	otpCodeTooManyAttempts = "too_many_attempts"
	otpCodeInvalid         = "otp_invalid"
)

var otpDetailKinds = map[string]error{
	"OTP not found or expired": ErrOtpNotFound,
	"OTP expired":              ErrOtpExpired,
	"Too many failed attempts. Please request a new OTP.": ErrTooManyAttempts,
}

// classifyOTP refines a verify-otp failure into the OTP kinds.
func classifyOTP(e *APIError, code string) {
	switch code {
	case otpCodeNotFound:
		e.Kind = ErrOtpNotFound
		return
	case otpCodeExpired:
		e.Kind = ErrOtpExpired
		return
	case otpCodeTooManyAttempts:
		e.Kind = ErrTooManyAttempts
		return
	case otpCodeInvalid:
		e.Kind = ErrOtpInvalid
		return
	}

	if kind, ok := otpDetailKinds[e.Detail]; ok {
		e.Kind = kind
		return
	}
	switch e.Status {
	case http.StatusNotFound:
		e.Kind = ErrOtpNotFound
	case http.StatusGone:
		e.Kind = ErrOtpExpired
	case http.StatusTooManyRequests:
		e.Kind = ErrTooManyAttempts
	case http.StatusBadRequest, http.StatusUnauthorized:
		e.Kind = ErrOtpInvalid
	}
}

// Message renders err for a user notification, falling back to fallback
// when err carries no server detail.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	if errors.Is(err, ErrValidation) {
		return err.Error()
	}
	if errors.Is(err, ErrUnavailable) {
		return "server unavailable, try again later"
	}
	return fallback
}
