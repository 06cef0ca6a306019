package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/ciphersafe/internal/client/client"
	"github.com/dmitrijs2005/ciphersafe/internal/client/models"
	"github.com/dmitrijs2005/ciphersafe/internal/client/notify"
	"github.com/dmitrijs2005/ciphersafe/internal/client/pending"
	"github.com/dmitrijs2005/ciphersafe/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu sync.Mutex

	loginEmail string
	loginErr   error
	loginGate  chan struct{}
	loginCalls int

	registerErr error
	registered  []models.Registration

	forgotErr   error
	forgotCalls int

	resetErr error
	resets   []models.PasswordReset
}

func (f *fakeAPI) Login(ctx context.Context, email string, password []byte) (string, error) {
	f.mu.Lock()
	f.loginCalls++
	gate := f.loginGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.loginEmail, f.loginErr
}

func (f *fakeAPI) Register(ctx context.Context, reg models.Registration) error {
	f.registered = append(f.registered, reg)
	return f.registerErr
}

func (f *fakeAPI) ForgotPassword(ctx context.Context, email string) error {
	f.forgotCalls++
	return f.forgotErr
}

func (f *fakeAPI) ResetPassword(ctx context.Context, reset models.PasswordReset) error {
	f.resets = append(f.resets, reset)
	return f.resetErr
}

func newFlow(api API) (*Flow, *notify.Recorder) {
	rec := &notify.Recorder{}
	m := NewMachine(logging.Nop(), nil)
	return NewFlow(m, api, rec, logging.Nop()), rec
}

func TestSubmitLogin_UsesServerEmail(t *testing.T) {
	api := &fakeAPI{loginEmail: "alice@example.com"}
	f, rec := newFlow(api)

	require.NoError(t, f.SubmitLogin(context.Background(), "ALICE@example.com", []byte("pw")))

	step, ok := f.Machine().Step().(OtpStep)
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", step.Email())
	assert.Equal(t, notify.LevelInfo, rec.Last().Level)
}

func TestSubmitLogin_ValidationBlocksSubmit(t *testing.T) {
	api := &fakeAPI{loginEmail: "a@b.io"}
	f, rec := newFlow(api)

	err := f.SubmitLogin(context.Background(), "not-an-email", []byte("pw"))
	require.ErrorIs(t, err, client.ErrValidation)

	err = f.SubmitLogin(context.Background(), "a@b.io", nil)
	require.ErrorIs(t, err, client.ErrValidation)

	assert.Zero(t, api.loginCalls)
	assert.Equal(t, LoginStep{}, f.Machine().Step())
	assert.Equal(t, notify.LevelError, rec.Last().Level)
}

func TestSubmitLogin_FailureStaysOnLogin(t *testing.T) {
	api := &fakeAPI{loginErr: &client.APIError{Status: 401, Detail: "Invalid credentials", Kind: client.ErrUnauthorized}}
	f, rec := newFlow(api)

	err := f.SubmitLogin(context.Background(), "a@b.io", []byte("pw"))
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, LoginStep{}, f.Machine().Step())
	assert.Equal(t, notify.Entry{Level: notify.LevelError, Message: "Invalid credentials"}, rec.Last())
}

func TestSubmitLogin_EmptyServerEmailStaysOnLogin(t *testing.T) {
	f, _ := newFlow(&fakeAPI{loginEmail: ""})

	err := f.SubmitLogin(context.Background(), "a@b.io", []byte("pw"))
	require.Error(t, err)
	assert.Equal(t, LoginStep{}, f.Machine().Step())
}

func TestSubmitLogin_OverHTTPWithoutConfirmedEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"OTP sent successfully!"}`))
	}))
	defer srv.Close()

	api, err := client.NewHTTPClient(srv.URL, 5*time.Second, logging.Nop())
	require.NoError(t, err)
	f, rec := newFlow(api)

	err = f.SubmitLogin(context.Background(), "a@b.io", []byte("pw"))
	require.ErrorIs(t, err, client.ErrBadRequest)
	assert.Equal(t, LoginStep{}, f.Machine().Step())
	assert.Equal(t, notify.LevelError, rec.Last().Level)
}

func TestSubmitLogin_RejectsDuplicateWhilePending(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{loginEmail: "a@b.io", loginGate: gate}
	f, _ := newFlow(api)

	errc := make(chan error, 1)
	go func() { errc <- f.SubmitLogin(context.Background(), "a@b.io", []byte("pw")) }()

	require.Eventually(t, func() bool { return f.login.Busy() }, testTimeout, testTick)
	require.ErrorIs(t, f.SubmitLogin(context.Background(), "a@b.io", []byte("pw")), pending.ErrPending)

	close(gate)
	require.NoError(t, <-errc)
	assert.Equal(t, 1, api.loginCalls)
}

func TestSubmitLogin_StaleAfterNavigation(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{loginEmail: "a@b.io", loginGate: gate}
	f, _ := newFlow(api)

	errc := make(chan error, 1)
	go func() { errc <- f.SubmitLogin(context.Background(), "a@b.io", []byte("pw")) }()
	require.Eventually(t, func() bool { return f.login.Busy() }, testTimeout, testTick)

	require.NoError(t, f.Machine().ForgotPasswordLink())
	close(gate)

	require.ErrorIs(t, <-errc, ErrStale)
	assert.Equal(t, ForgotPasswordStep{}, f.Machine().Step())
}

func TestSubmitLogin_WrongScreen(t *testing.T) {
	f, _ := newFlow(&fakeAPI{loginEmail: "a@b.io"})
	require.NoError(t, f.Machine().CreateAccountLink())

	err := f.SubmitLogin(context.Background(), "a@b.io", []byte("pw"))
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func validRegistration() models.Registration {
	return models.Registration{
		Email:       "new@example.com",
		Username:    "newbie",
		PhoneNumber: "+15551234567",
		Password:    []byte("secret1"),
	}
}

func TestSubmitSignUp_SuccessReturnsToLogin(t *testing.T) {
	api := &fakeAPI{}
	f, rec := newFlow(api)
	require.NoError(t, f.Machine().CreateAccountLink())

	require.NoError(t, f.SubmitSignUp(context.Background(), validRegistration()))
	assert.Equal(t, LoginStep{}, f.Machine().Step())
	require.Len(t, api.registered, 1)
	assert.Equal(t, "+15551234567", api.registered[0].PhoneNumber)
	assert.Equal(t, notify.LevelSuccess, rec.Last().Level)
}

func TestSubmitSignUp_FailureStays(t *testing.T) {
	api := &fakeAPI{registerErr: &client.APIError{Status: 400, Detail: "Email already registered", Kind: client.ErrBadRequest}}
	f, rec := newFlow(api)
	require.NoError(t, f.Machine().CreateAccountLink())

	err := f.SubmitSignUp(context.Background(), validRegistration())
	require.ErrorIs(t, err, client.ErrBadRequest)
	assert.Equal(t, SignUpStep{}, f.Machine().Step())
	assert.Equal(t, "Email already registered", rec.Last().Message)
}

func TestSubmitForgotPassword_AlwaysNeutral(t *testing.T) {
	for _, apiErr := range []error{nil, &client.APIError{Status: 404, Kind: client.ErrNotFound}, client.ErrUnavailable} {
		api := &fakeAPI{forgotErr: apiErr}
		f, rec := newFlow(api)
		require.NoError(t, f.Machine().ForgotPasswordLink())

		require.NoError(t, f.SubmitForgotPassword(context.Background(), "who@example.com"))
		assert.Equal(t, notify.Entry{Level: notify.LevelInfo, Message: ForgotPasswordNotice}, rec.Last())
		assert.Equal(t, ForgotPasswordStep{}, f.Machine().Step())
		assert.Equal(t, 1, api.forgotCalls)
	}
}

func TestResetPassword(t *testing.T) {
	api := &fakeAPI{}
	f, rec := newFlow(api)
	reset := models.PasswordReset{Token: "tok", UserID: "7", NewPassword: []byte("a-long-password")}

	err := f.ResetPassword(context.Background(), reset, []byte("different-password"))
	require.ErrorIs(t, err, client.ErrValidation)
	assert.Empty(t, api.resets)

	require.NoError(t, f.ResetPassword(context.Background(), reset, []byte("a-long-password")))
	require.Len(t, api.resets, 1)
	assert.Equal(t, notify.LevelSuccess, rec.Last().Level)

	api.resetErr = errors.New("boom")
	require.Error(t, f.ResetPassword(context.Background(), reset, []byte("a-long-password")))
	assert.Equal(t, "Password reset failed", rec.Last().Message)
}
