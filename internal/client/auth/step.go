package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/ciphersafe/internal/client/client"
)

// ErrEmptyEmail rejects an Otp step without an email to verify.
var ErrEmptyEmail = fmt.Errorf("%w: otp step requires an email", client.ErrValidation)

// Step is the active authentication screen. Exactly one step is active at
// a time. The set of variants is closed: LoginStep, SignUpStep,
// ForgotPasswordStep and OtpStep.
type Step interface {
	Name() string
	isStep()
}

type LoginStep struct{}

type SignUpStep struct{}

type ForgotPasswordStep struct{}

// OtpStep carries the email the one-time passcode was sent to. Build it
// with NewOtpStep; the zero value is not a valid step.
type OtpStep struct {
	email string
}

// NewOtpStep returns an Otp step for email, or ErrEmptyEmail when email is
// blank.
func NewOtpStep(email string) (OtpStep, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return OtpStep{}, ErrEmptyEmail
	}
	return OtpStep{email: email}, nil
}

func (s OtpStep) Email() string { return s.email }

func (LoginStep) Name() string          { return "login" }
func (SignUpStep) Name() string         { return "signup" }
func (ForgotPasswordStep) Name() string { return "forgot-password" }
func (OtpStep) Name() string            { return "otp" }

func (LoginStep) isStep()          {}
func (SignUpStep) isStep()         {}
func (ForgotPasswordStep) isStep() {}
func (OtpStep) isStep()            {}

// valid reports whether s carries all of its required payload.
func valid(s Step) bool {
	switch v := s.(type) {
	case LoginStep, SignUpStep, ForgotPasswordStep:
		return true
	case OtpStep:
		return v.email != ""
	default:
		return false
	}
}

// ErrInvalidTransition is returned for an event the active step does not
// accept. The step is left unchanged.
var ErrInvalidTransition = errors.New("invalid auth transition")
