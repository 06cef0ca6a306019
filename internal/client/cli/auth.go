package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/ciphersafe/internal/client/auth"
	"github.com/dmitrijs2005/ciphersafe/internal/client/models"
	"github.com/dmitrijs2005/ciphersafe/internal/client/notify"
	"github.com/dmitrijs2005/ciphersafe/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for credentials, prefilled with the email of the last
// successful sign-in, and submits them. On success the passcode screen
// follows.
func (a *App) Login(ctx context.Context) error {
	if _, ok := a.machine.Step().(auth.LoginStep); !ok {
		return auth.ErrInvalidTransition
	}

	last, err := a.prefs.LastEmail(ctx)
	if err != nil {
		a.log.Warn(ctx, "could not read last email", "error", err)
	}
	email, err := getTextOr(a.reader, "Email", last, a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	return notify.WithSpinner(a.out, "Signing in", func() error {
		return a.flow.SubmitLogin(ctx, email, password)
	})
}

// SignUp collects the registration form.
func (a *App) SignUp(ctx context.Context) error {
	if _, ok := a.machine.Step().(auth.SignUpStep); !ok {
		return auth.ErrInvalidTransition
	}

	var reg models.Registration
	var err error
	if reg.Email, err = getSimpleText(a.reader, "Email", a.out); err != nil {
		return err
	}
	if reg.Username, err = getSimpleText(a.reader, "Username", a.out); err != nil {
		return err
	}
	if reg.PhoneNumber, err = getSimpleText(a.reader, "Phone number", a.out); err != nil {
		return err
	}
	if reg.Password, err = getPassword(a.out, "Password"); err != nil {
		return err
	}
	defer common.WipeByteArray(reg.Password)

	return notify.WithSpinner(a.out, "Creating account", func() error {
		return a.flow.SubmitSignUp(ctx, reg)
	})
}

// ForgotPassword asks for a reset link.
func (a *App) ForgotPassword(ctx context.Context) error {
	if _, ok := a.machine.Step().(auth.ForgotPasswordStep); !ok {
		return auth.ErrInvalidTransition
	}
	email, err := getSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	return a.flow.SubmitForgotPassword(ctx, email)
}

// Verify submits the passcode given as argument, or prompts for it.
func (a *App) Verify(ctx context.Context, args []string) error {
	if a.otp == nil {
		return auth.ErrInvalidTransition
	}
	code := strings.Join(args, "")
	if code == "" {
		var err error
		if code, err = getSimpleText(a.reader, fmt.Sprintf("Code sent to %s", a.otpEmail), a.out); err != nil {
			return err
		}
	}
	c := a.otp
	return notify.WithSpinner(a.out, "Verifying", func() error {
		return c.Verify(ctx, code)
	})
}

// Resend requests a new passcode once the cooldown is over.
func (a *App) Resend(ctx context.Context) error {
	if a.otp == nil {
		return auth.ErrInvalidTransition
	}
	w := a.otp.Window()
	if !w.ResendEnabled {
		a.notify.Info(fmt.Sprintf("You can resend the code in %ds", w.CooldownRemaining))
		return nil
	}
	return a.otp.Resend(ctx)
}

// Navigate follows the links between the auth screens.
func (a *App) Navigate(to string) error {
	switch to {
	case "signup":
		return a.machine.CreateAccountLink()
	case "forgot":
		return a.machine.ForgotPasswordLink()
	case "back":
		switch a.machine.Step().(type) {
		case auth.SignUpStep:
			return a.machine.HaveAccountLink()
		case auth.ForgotPasswordStep:
			return a.machine.BackToLogin()
		}
	}
	return auth.ErrInvalidTransition
}

// Forget drops the remembered login email.
func (a *App) Forget(ctx context.Context) error {
	if err := a.prefs.Forget(ctx); err != nil {
		return fmt.Errorf("forget login: %w", err)
	}
	a.notify.Success("Remembered email cleared")
	return nil
}

// ResetPassword completes a reset link: token and id come from the link in
// the reset email. The new password is asked twice.
func (a *App) ResetPassword(ctx context.Context, token, userID string) error {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(userID) == "" {
		err := errors.New("reset link is missing the token or the user id")
		a.notify.Error(err.Error())
		return err
	}

	pw, err := getPassword(a.out, "New password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	again, err := getPassword(a.out, "Confirm password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(again)

	return notify.WithSpinner(a.out, "Updating password", func() error {
		return a.flow.ResetPassword(ctx, models.PasswordReset{Token: token, UserID: userID, NewPassword: pw}, again)
	})
}
