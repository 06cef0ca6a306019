// Package disclosure reveals one stored password at a time. The account
// password is exchanged for the item secret inside a Dialog, and the secret
// lives only as long as that dialog is open.
package disclosure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/ciphersafe/internal/client/client"
	"github.com/dmitrijs2005/ciphersafe/internal/client/models"
	"github.com/dmitrijs2005/ciphersafe/internal/client/notify"
	"github.com/dmitrijs2005/ciphersafe/internal/client/pending"
	"github.com/dmitrijs2005/ciphersafe/internal/common"
	"github.com/dmitrijs2005/ciphersafe/internal/logging"
	"github.com/dmitrijs2005/ciphersafe/internal/redact"
)

var (
	ErrClosed      = errors.New("disclosure dialog closed")
	ErrNotRevealed = errors.New("password not revealed")
	ErrRevealed    = errors.New("password already revealed")
)

// API is the re-authenticated password lookup.
type API interface {
	GetPassword(ctx context.Context, req models.DisclosureRequest) ([]byte, error)
}

type State int

const (
	StateRequest State = iota
	StateRevealed
	StateClosed
)

// Secret is a revealed password. It formats as a redaction marker so it
// cannot leak through logging by accident; convert explicitly to display.
type Secret []byte

func (Secret) String() string   { return redact.Password() }
func (Secret) GoString() string { return redact.Password() }

// Dialog is one open disclosure view for one item.
type Dialog struct {
	api    API
	itemID int64
	notify notify.Notifier
	log    logging.Logger

	mu     sync.Mutex
	state  State
	secret []byte

	inflight pending.Guard
}

// Open starts a dialog for itemID in the request state.
func Open(api API, itemID int64, n notify.Notifier, log logging.Logger) *Dialog {
	return &Dialog{
		api:    api,
		itemID: itemID,
		notify: n,
		log:    log.With("component", "disclosure", "item_id", itemID),
	}
}

// WithDialog opens a dialog, passes it to fn and closes it on every return
// path, panics included.
func WithDialog(api API, itemID int64, n notify.Notifier, log logging.Logger, fn func(*Dialog) error) error {
	d := Open(api, itemID, n, log)
	defer d.Close()
	return fn(d)
}

func (d *Dialog) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Request re-authenticates with the account credentials and reveals the
// item password. On failure the dialog stays in the request state so the
// user can correct the password and submit again.
func (d *Dialog) Request(ctx context.Context, email string, password []byte) error {
	switch d.State() {
	case StateClosed:
		return ErrClosed
	case StateRevealed:
		return ErrRevealed
	}

	email = strings.TrimSpace(email)
	if email == "" || len(password) == 0 {
		err := fmt.Errorf("%w: email and password are required", client.ErrValidation)
		d.notify.Error(client.Message(err, ""))
		return err
	}

	done, ok := d.inflight.TryStart()
	if !ok {
		return pending.ErrPending
	}
	defer done()

	req := models.DisclosureRequest{
		ItemID:          d.itemID,
		AccountEmail:    email,
		AccountPassword: append([]byte(nil), password...),
	}
	secret, err := d.api.GetPassword(ctx, req)
	common.WipeByteArray(req.AccountPassword)

	d.mu.Lock()
	if d.state == StateClosed {
		d.mu.Unlock()
		common.WipeByteArray(secret)
		return ErrClosed
	}
	if err != nil {
		d.mu.Unlock()
		d.log.Info(ctx, "disclosure rejected", "error", err)
		d.notify.Error(client.Message(err, "Could not reveal the password"))
		return fmt.Errorf("%w: %w", client.ErrDisclosure, err)
	}
	d.secret = secret
	d.state = StateRevealed
	d.mu.Unlock()

	d.log.Info(ctx, "password revealed")
	return nil
}

// Reveal passes the secret to fn. fn must not retain it.
func (d *Dialog) Reveal(fn func(Secret)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.state {
	case StateClosed:
		return ErrClosed
	case StateRequest:
		return ErrNotRevealed
	}
	fn(Secret(d.secret))
	return nil
}

// Copy hands the secret to write, typically a clipboard writer.
func (d *Dialog) Copy(write func(string) error) error {
	var werr error
	err := d.Reveal(func(s Secret) { werr = write(string(s)) })
	if err != nil {
		return err
	}
	if werr != nil {
		d.notify.Error("Could not copy the password")
		return werr
	}
	d.notify.Success("Password copied")
	return nil
}

// Close wipes the secret. The dialog cannot be reused; open a new one to
// start again from the request state.
func (d *Dialog) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	common.WipeByteArray(d.secret)
	d.secret = nil
	d.state = StateClosed
}
