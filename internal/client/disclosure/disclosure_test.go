package disclosure

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/ciphersafe/internal/client/client"
	"github.com/dmitrijs2005/ciphersafe/internal/client/models"
	"github.com/dmitrijs2005/ciphersafe/internal/client/notify"
	"github.com/dmitrijs2005/ciphersafe/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	secret   string
	err      error
	requests []models.DisclosureRequest
	returned [][]byte

	started chan struct{}
	release chan struct{}
}

func (f *fakeAPI) GetPassword(ctx context.Context, req models.DisclosureRequest) ([]byte, error) {
	snapshot := req
	snapshot.AccountPassword = append([]byte(nil), req.AccountPassword...)
	f.requests = append(f.requests, snapshot)
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	b := []byte(f.secret)
	f.returned = append(f.returned, b)
	return b, nil
}

func reveal(t *testing.T, d *Dialog) string {
	t.Helper()
	var got string
	require.NoError(t, d.Reveal(func(s Secret) { got = string(s) }))
	return got
}

func TestRequest_RevealsSecret(t *testing.T) {
	api := &fakeAPI{secret: "hunter2"}
	d := Open(api, 42, &notify.Recorder{}, logging.Nop())
	defer d.Close()

	require.Equal(t, StateRequest, d.State())
	require.NoError(t, d.Request(context.Background(), " a@b.io ", []byte("account-pw")))

	assert.Equal(t, StateRevealed, d.State())
	assert.Equal(t, "hunter2", reveal(t, d))
	require.Len(t, api.requests, 1)
	assert.Equal(t, models.DisclosureRequest{ItemID: 42, AccountEmail: "a@b.io", AccountPassword: []byte("account-pw")}, api.requests[0])
}

func TestRequest_FailureStaysInRequest(t *testing.T) {
	api := &fakeAPI{err: &client.APIError{Status: 401, Detail: "Invalid password", Kind: client.ErrUnauthorized}}
	rec := &notify.Recorder{}
	d := Open(api, 1, rec, logging.Nop())
	defer d.Close()

	err := d.Request(context.Background(), "a@b.io", []byte("wrong"))
	require.ErrorIs(t, err, client.ErrDisclosure)
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, StateRequest, d.State())
	assert.Equal(t, "Invalid password", rec.Last().Message)
	assert.ErrorIs(t, d.Reveal(func(Secret) {}), ErrNotRevealed)

	api.err = nil
	api.secret = "ok"
	require.NoError(t, d.Request(context.Background(), "a@b.io", []byte("right")))
	assert.Equal(t, "ok", reveal(t, d))
}

func TestRequest_FreshRequestEachAttempt(t *testing.T) {
	api := &fakeAPI{err: errors.New("nope")}
	d := Open(api, 5, &notify.Recorder{}, logging.Nop())
	defer d.Close()

	pw := []byte("first")
	_ = d.Request(context.Background(), "a@b.io", pw)
	_ = d.Request(context.Background(), "a@b.io", []byte("second"))

	require.Len(t, api.requests, 2)
	assert.Equal(t, "first", string(api.requests[0].AccountPassword))
	assert.Equal(t, "second", string(api.requests[1].AccountPassword))
	assert.Equal(t, "first", string(pw), "caller's buffer is not modified")
}

func TestRequest_Validation(t *testing.T) {
	api := &fakeAPI{secret: "x"}
	d := Open(api, 1, &notify.Recorder{}, logging.Nop())
	defer d.Close()

	require.ErrorIs(t, d.Request(context.Background(), "", []byte("pw")), client.ErrValidation)
	require.ErrorIs(t, d.Request(context.Background(), "a@b.io", nil), client.ErrValidation)
	assert.Empty(t, api.requests)
}

func TestClose_WipesSecretAndReopenStartsFresh(t *testing.T) {
	api := &fakeAPI{secret: "hunter2"}
	d := Open(api, 7, &notify.Recorder{}, logging.Nop())
	require.NoError(t, d.Request(context.Background(), "a@b.io", []byte("pw")))

	d.Close()
	assert.Equal(t, StateClosed, d.State())
	assert.Equal(t, make([]byte, len("hunter2")), api.returned[0])
	assert.ErrorIs(t, d.Reveal(func(Secret) {}), ErrClosed)
	assert.ErrorIs(t, d.Request(context.Background(), "a@b.io", []byte("pw")), ErrClosed)

	again := Open(api, 7, &notify.Recorder{}, logging.Nop())
	defer again.Close()
	assert.Equal(t, StateRequest, again.State())
	assert.ErrorIs(t, again.Reveal(func(Secret) {}), ErrNotRevealed)
}

func TestClose_DropsLateResult(t *testing.T) {
	api := &fakeAPI{secret: "late", started: make(chan struct{}), release: make(chan struct{})}
	d := Open(api, 1, &notify.Recorder{}, logging.Nop())

	errc := make(chan error, 1)
	go func() { errc <- d.Request(context.Background(), "a@b.io", []byte("pw")) }()
	<-api.started
	d.Close()
	close(api.release)

	require.ErrorIs(t, <-errc, ErrClosed)
	assert.Equal(t, StateClosed, d.State())
	assert.Equal(t, make([]byte, len("late")), api.returned[0])
}

func TestWithDialog_ClosesOnEveryPath(t *testing.T) {
	api := &fakeAPI{secret: "s"}
	var held *Dialog

	boom := errors.New("boom")
	err := WithDialog(api, 1, &notify.Recorder{}, logging.Nop(), func(d *Dialog) error {
		held = d
		require.NoError(t, d.Request(context.Background(), "a@b.io", []byte("pw")))
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, StateClosed, held.State())

	assert.Panics(t, func() {
		_ = WithDialog(api, 2, &notify.Recorder{}, logging.Nop(), func(d *Dialog) error {
			held = d
			panic("view crashed")
		})
	})
	assert.Equal(t, StateClosed, held.State())
}

func TestCopy(t *testing.T) {
	api := &fakeAPI{secret: "hunter2"}
	rec := &notify.Recorder{}
	d := Open(api, 1, rec, logging.Nop())
	defer d.Close()

	require.ErrorIs(t, d.Copy(func(string) error { return nil }), ErrNotRevealed)
	require.NoError(t, d.Request(context.Background(), "a@b.io", []byte("pw")))

	var clip string
	require.NoError(t, d.Copy(func(s string) error { clip = s; return nil }))
	assert.Equal(t, "hunter2", clip)
	assert.Equal(t, notify.LevelSuccess, rec.Last().Level)

	require.Error(t, d.Copy(func(string) error { return errors.New("no clipboard") }))
	assert.Equal(t, notify.LevelError, rec.Last().Level)
}

func TestSecret_FormatsRedacted(t *testing.T) {
	s := Secret("hunter2")
	assert.NotContains(t, fmt.Sprintf("%v %s %#v", s, s, s), "hunter2")
}
