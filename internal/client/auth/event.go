package auth

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/ciphersafe/internal/client/client"
)

// Event is a transition request raised by the active screen.
type Event interface {
	isEvent()
}

// LoginSucceeded carries the email the server confirmed for the submitted
// credentials.
type LoginSucceeded struct{ Email string }

type ForgotPasswordRequested struct{}
type CreateAccountRequested struct{}
type SignUpSucceeded struct{}
type HaveAccountRequested struct{}
type BackToLoginRequested struct{}

// OtpVerified leaves the machine for the protected area.
type OtpVerified struct{}

// OtpFailed reports a rejected verify-otp call. Terminal kinds restart the
// flow at Login; other kinds keep the Otp step.
type OtpFailed struct{ Err error }

// OtpSessionLost reports that the server no longer knows the OTP challenge,
// e.g. resend returned not found.
type OtpSessionLost struct{ Err error }

func (LoginSucceeded) isEvent()          {}
func (ForgotPasswordRequested) isEvent() {}
func (CreateAccountRequested) isEvent()  {}
func (SignUpSucceeded) isEvent()         {}
func (HaveAccountRequested) isEvent()    {}
func (BackToLoginRequested) isEvent()    {}
func (OtpVerified) isEvent()             {}
func (OtpFailed) isEvent()               {}
func (OtpSessionLost) isEvent()          {}

// Next is the pure transition function. exit is true only for OtpVerified
// from an Otp step. A LoginSucceeded without an email redirects to Login.
func Next(cur Step, ev Event) (next Step, exit bool, err error) {
	if !valid(cur) {
		return LoginStep{}, false, nil
	}

	switch cur.(type) {
	case LoginStep:
		switch e := ev.(type) {
		case LoginSucceeded:
			otp, err := NewOtpStep(e.Email)
			if err != nil {
				return LoginStep{}, false, nil
			}
			return otp, false, nil
		case ForgotPasswordRequested:
			return ForgotPasswordStep{}, false, nil
		case CreateAccountRequested:
			return SignUpStep{}, false, nil
		}

	case SignUpStep:
		switch ev.(type) {
		case SignUpSucceeded, HaveAccountRequested:
			return LoginStep{}, false, nil
		}

	case ForgotPasswordStep:
		if _, ok := ev.(BackToLoginRequested); ok {
			return LoginStep{}, false, nil
		}

	case OtpStep:
		switch e := ev.(type) {
		case OtpVerified:
			return cur, true, nil
		case OtpFailed:
			if errors.Is(e.Err, client.ErrOtpTerminal) {
				return LoginStep{}, false, nil
			}
			return cur, false, nil
		case OtpSessionLost:
			return LoginStep{}, false, nil
		}
	}

	return cur, false, fmt.Errorf("%w: %T from %s", ErrInvalidTransition, ev, cur.Name())
}
