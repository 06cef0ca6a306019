package auth

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/ciphersafe/internal/client/client"
	"github.com/dmitrijs2005/ciphersafe/internal/client/models"
	"github.com/stretchr/testify/assert"
)

const (
	testTimeout = 2 * time.Second
	testTick    = 5 * time.Millisecond
)

func TestValidateEmail(t *testing.T) {
	for _, ok := range []string{"a@b.io", "first.last@sub.example.com", " padded@example.com "} {
		assert.NoError(t, ValidateEmail(ok), ok)
	}
	for _, bad := range []string{"", "plain", "a@b", "a@b.", "Name <a@b.io>", "a@@b.io"} {
		assert.ErrorIs(t, ValidateEmail(bad), client.ErrValidation, bad)
	}
}

func TestValidateRegistration(t *testing.T) {
	ok := validRegistration()
	assert.NoError(t, ValidateRegistration(ok))

	short := ok
	short.Username = "abc"
	assert.ErrorContains(t, ValidateRegistration(short), "username")

	phone := ok
	phone.PhoneNumber = "12345"
	assert.ErrorContains(t, ValidateRegistration(phone), "phone")

	letters := ok
	letters.PhoneNumber = "555-CALL-NOW"
	assert.ErrorContains(t, ValidateRegistration(letters), "digits")

	pw := ok
	pw.Password = []byte("12345")
	assert.ErrorContains(t, ValidateRegistration(pw), "password")
}

func TestValidateReset(t *testing.T) {
	good := models.PasswordReset{Token: "t", UserID: "1", NewPassword: []byte("twelve-chars")}
	assert.NoError(t, ValidateReset(good, []byte("twelve-chars")))

	assert.ErrorContains(t, ValidateReset(good, []byte("mismatch-pass")), "do not match")

	short := good
	short.NewPassword = []byte("short")
	assert.ErrorContains(t, ValidateReset(short, []byte("short")), "at least 12")

	noToken := good
	noToken.Token = ""
	assert.ErrorContains(t, ValidateReset(noToken, []byte("twelve-chars")), "incomplete")
}
