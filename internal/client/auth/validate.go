package auth

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/ciphersafe/internal/client/client"
	"github.com/dmitrijs2005/ciphersafe/internal/client/models"
)

// Form constraints enforced before anything is sent.
const (
	MinUsernameLength      = 4
	MinPhoneLength         = 10
	MinPasswordLength      = 6
	MinResetPasswordLength = 12
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{client.ErrValidation}, args...)...)
}

// ValidateEmail accepts a bare address with a dotted domain.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return invalid("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("invalid email address")
	}
	_, domain, _ := strings.Cut(email, "@")
	if !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return invalid("invalid email address")
	}
	return nil
}

func ValidateLogin(email string, password []byte) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if len(password) == 0 {
		return invalid("password is required")
	}
	return nil
}

func ValidateRegistration(reg models.Registration) error {
	if err := ValidateEmail(reg.Email); err != nil {
		return err
	}
	if len([]rune(strings.TrimSpace(reg.Username))) < MinUsernameLength {
		return invalid("username must be at least %d characters", MinUsernameLength)
	}
	phone := strings.TrimSpace(reg.PhoneNumber)
	if len(phone) < MinPhoneLength {
		return invalid("phone number must be at least %d characters", MinPhoneLength)
	}
	for _, r := range strings.TrimPrefix(phone, "+") {
		if !unicode.IsDigit(r) {
			return invalid("phone number may contain digits only")
		}
	}
	if len(reg.Password) < MinPasswordLength {
		return invalid("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// ValidateReset checks a reset link's payload and the repeated password.
func ValidateReset(reset models.PasswordReset, confirm []byte) error {
	if strings.TrimSpace(reset.Token) == "" || strings.TrimSpace(reset.UserID) == "" {
		return invalid("reset link is incomplete")
	}
	if len(reset.NewPassword) < MinResetPasswordLength {
		return invalid("password must be at least %d characters", MinResetPasswordLength)
	}
	if string(reset.NewPassword) != string(confirm) {
		return invalid("passwords do not match")
	}
	return nil
}
