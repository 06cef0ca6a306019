package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/ciphersafe/internal/client/client"
	"github.com/dmitrijs2005/ciphersafe/internal/client/models"
	"github.com/dmitrijs2005/ciphersafe/internal/client/notify"
	"github.com/dmitrijs2005/ciphersafe/internal/client/pending"
	"github.com/dmitrijs2005/ciphersafe/internal/logging"
	"github.com/dmitrijs2005/ciphersafe/internal/redact"
)

// ForgotPasswordNotice is shown after every forgot-password submission so
// the response never reveals whether an account exists.
const ForgotPasswordNotice = "If an account exists for that email, a reset link is on its way. Check your inbox."

// API is the subset of the backend the auth screens call.
type API interface {
	Login(ctx context.Context, email string, password []byte) (string, error)
	Register(ctx context.Context, reg models.Registration) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, reset models.PasswordReset) error
}

// Flow runs the submissions of the Login, SignUp and ForgotPassword screens
// and drives the machine with their outcomes.
type Flow struct {
	m        *Machine
	api      API
	notifier notify.Notifier
	log      logging.Logger

	login  pending.Guard
	signup pending.Guard
	forgot pending.Guard
	reset  pending.Guard
}

func NewFlow(m *Machine, api API, n notify.Notifier, log logging.Logger) *Flow {
	return &Flow{m: m, api: api, notifier: n, log: log.With("component", "auth-flow")}
}

func (f *Flow) Machine() *Machine { return f.m }

// at returns the current epoch if the active step has type T.
func at[T Step](m *Machine) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.exited {
		return 0, ErrExited
	}
	if _, ok := m.step.(T); !ok {
		var want T
		return 0, fmt.Errorf("%w: %s screen is not active", ErrInvalidTransition, want.Name())
	}
	return m.epoch, nil
}

// SubmitLogin checks the credentials. On success the server sends an OTP
// and the machine moves to Otp with the email the server confirmed.
func (f *Flow) SubmitLogin(ctx context.Context, email string, password []byte) error {
	email = strings.TrimSpace(email)
	if err := ValidateLogin(email, password); err != nil {
		f.notifier.Error(client.Message(err, "invalid input"))
		return err
	}

	epoch, err := at[LoginStep](f.m)
	if err != nil {
		return err
	}
	done, ok := f.login.TryStart()
	if !ok {
		return pending.ErrPending
	}
	defer done()

	confirmed, err := f.api.Login(ctx, email, password)
	if err != nil {
		f.log.Info(ctx, "login rejected", "email", redact.Email(email), "error", err)
		f.notifier.Error(client.Message(err, "Login failed"))
		return err
	}

	if err := f.m.FireAt(epoch, LoginSucceeded{Email: confirmed}); err != nil {
		return err
	}
	if _, ok := f.m.Step().(OtpStep); !ok {
		// Server confirmed no usable email; stay on Login.
		f.notifier.Error("Login failed, please try again")
		return fmt.Errorf("%w: server did not confirm an email", client.ErrBadRequest)
	}
	f.notifier.Info("A one-time passcode was sent to your email")
	return nil
}

// SubmitSignUp registers the account and returns to Login.
func (f *Flow) SubmitSignUp(ctx context.Context, reg models.Registration) error {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Username = strings.TrimSpace(reg.Username)
	reg.PhoneNumber = strings.TrimSpace(reg.PhoneNumber)
	if err := ValidateRegistration(reg); err != nil {
		f.notifier.Error(client.Message(err, "invalid input"))
		return err
	}

	epoch, err := at[SignUpStep](f.m)
	if err != nil {
		return err
	}
	done, ok := f.signup.TryStart()
	if !ok {
		return pending.ErrPending
	}
	defer done()

	if err := f.api.Register(ctx, reg); err != nil {
		f.log.Info(ctx, "registration rejected", "email", redact.Email(reg.Email), "error", err)
		f.notifier.Error(client.Message(err, "Registration failed"))
		return err
	}

	if err := f.m.FireAt(epoch, SignUpSucceeded{}); err != nil {
		return err
	}
	f.notifier.Success("Account created, please log in")
	return nil
}

// SubmitForgotPassword requests a reset link. The user always sees the
// same neutral notice; only malformed input is reported.
func (f *Flow) SubmitForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := ValidateEmail(email); err != nil {
		f.notifier.Error(client.Message(err, "invalid input"))
		return err
	}

	if _, err := at[ForgotPasswordStep](f.m); err != nil {
		return err
	}
	done, ok := f.forgot.TryStart()
	if !ok {
		return pending.ErrPending
	}
	defer done()

	if err := f.api.ForgotPassword(ctx, email); err != nil && !errors.Is(err, context.Canceled) {
		f.log.Warn(ctx, "forgot-password request failed", "email", redact.Email(email), "error", err)
	}
	f.notifier.Info(ForgotPasswordNotice)
	return nil
}

// ResetPassword completes a reset link. It is reached from the link in the
// reset email, outside the step machine; on success the user logs in again.
func (f *Flow) ResetPassword(ctx context.Context, reset models.PasswordReset, confirm []byte) error {
	if err := ValidateReset(reset, confirm); err != nil {
		f.notifier.Error(client.Message(err, "invalid input"))
		return err
	}

	done, ok := f.reset.TryStart()
	if !ok {
		return pending.ErrPending
	}
	defer done()

	if err := f.api.ResetPassword(ctx, reset); err != nil {
		f.notifier.Error(client.Message(err, "Password reset failed"))
		return err
	}
	f.notifier.Success("Password updated, please log in")
	return nil
}
