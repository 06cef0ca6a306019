package auth

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/dmitrijs2005/ciphersafe/internal/client/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustOtp(t *testing.T, email string) OtpStep {
	t.Helper()
	s, err := NewOtpStep(email)
	require.NoError(t, err)
	return s
}

func TestNewOtpStep(t *testing.T) {
	s, err := NewOtpStep("  a@b.io ")
	require.NoError(t, err)
	assert.Equal(t, "a@b.io", s.Email())

	_, err = NewOtpStep("   ")
	require.ErrorIs(t, err, ErrEmptyEmail)
	require.ErrorIs(t, err, client.ErrValidation)
}

func TestNext_Table(t *testing.T) {
	otp := mustOtp(t, "a@b.io")

	tests := []struct {
		name     string
		from     Step
		ev       Event
		want     Step
		wantExit bool
		wantErr  error
	}{
		{"login -> otp", LoginStep{}, LoginSucceeded{Email: "a@b.io"}, otp, false, nil},
		{"login with empty email stays", LoginStep{}, LoginSucceeded{Email: " "}, LoginStep{}, false, nil},
		{"login -> forgot", LoginStep{}, ForgotPasswordRequested{}, ForgotPasswordStep{}, false, nil},
		{"login -> signup", LoginStep{}, CreateAccountRequested{}, SignUpStep{}, false, nil},
		{"signup success -> login", SignUpStep{}, SignUpSucceeded{}, LoginStep{}, false, nil},
		{"signup have account -> login", SignUpStep{}, HaveAccountRequested{}, LoginStep{}, false, nil},
		{"forgot back -> login", ForgotPasswordStep{}, BackToLoginRequested{}, LoginStep{}, false, nil},
		{"otp verified exits", otp, OtpVerified{}, otp, true, nil},
		{"otp expired -> login", otp, OtpFailed{Err: client.ErrOtpExpired}, LoginStep{}, false, nil},
		{"otp not found -> login", otp, OtpFailed{Err: client.ErrOtpNotFound}, LoginStep{}, false, nil},
		{"otp too many -> login", otp, OtpFailed{Err: client.ErrTooManyAttempts}, LoginStep{}, false, nil},
		{"otp wrong code stays", otp, OtpFailed{Err: client.ErrOtpInvalid}, otp, false, nil},
		{"otp network error stays", otp, OtpFailed{Err: client.ErrUnavailable}, otp, false, nil},
		{"otp session lost -> login", otp, OtpSessionLost{}, LoginStep{}, false, nil},
		{"signup from login rejected", LoginStep{}, SignUpSucceeded{}, LoginStep{}, false, ErrInvalidTransition},
		{"verify from login rejected", LoginStep{}, OtpVerified{}, LoginStep{}, false, ErrInvalidTransition},
		{"forgot from signup rejected", SignUpStep{}, ForgotPasswordRequested{}, SignUpStep{}, false, ErrInvalidTransition},
		{"login success from otp rejected", otp, LoginSucceeded{Email: "c@d.io"}, otp, false, ErrInvalidTransition},
		{"zero otp redirects to login", OtpStep{}, OtpVerified{}, LoginStep{}, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, exit, err := Next(tt.from, tt.ev)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantExit, exit)
		})
	}
}

func TestNext_OtpExpiredAlwaysLandsOnLogin(t *testing.T) {
	for _, email := range []string{"a@b.io", "someone.else@example.org"} {
		next, _, err := Next(mustOtp(t, email), OtpFailed{Err: fmt.Errorf("wrapped: %w", client.ErrOtpExpired)})
		require.NoError(t, err)
		assert.Equal(t, LoginStep{}, next)
	}
}

// Random event sequences never leave the four variants nor produce an Otp
// step without an email.
func TestNext_RandomSequencesKeepInvariant(t *testing.T) {
	events := []Event{
		LoginSucceeded{Email: "a@b.io"},
		LoginSucceeded{Email: ""},
		LoginSucceeded{Email: "  "},
		ForgotPasswordRequested{},
		CreateAccountRequested{},
		SignUpSucceeded{},
		HaveAccountRequested{},
		BackToLoginRequested{},
		OtpFailed{Err: client.ErrOtpInvalid},
		OtpFailed{Err: client.ErrOtpExpired},
		OtpSessionLost{},
	}

	rnd := rand.New(rand.NewSource(42))
	for run := 0; run < 200; run++ {
		var cur Step = LoginStep{}
		for i := 0; i < 50; i++ {
			next, exit, err := Next(cur, events[rnd.Intn(len(events))])
			require.False(t, exit)
			if err != nil {
				require.ErrorIs(t, err, ErrInvalidTransition)
				require.Equal(t, cur, next)
			}
			cur = next

			switch s := cur.(type) {
			case LoginStep, SignUpStep, ForgotPasswordStep:
			case OtpStep:
				require.NotEmpty(t, s.Email())
			default:
				t.Fatalf("unexpected step %T", cur)
			}
		}
	}
}
