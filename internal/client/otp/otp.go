// Package otp runs the one-time-passcode screen: the resend cooldown, the
// verify and resend calls, and the hand-off back to the auth machine.
package otp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/ciphersafe/internal/client/auth"
	"github.com/dmitrijs2005/ciphersafe/internal/client/client"
	"github.com/dmitrijs2005/ciphersafe/internal/client/notify"
	"github.com/dmitrijs2005/ciphersafe/internal/client/pending"
	"github.com/dmitrijs2005/ciphersafe/internal/common"
	"github.com/dmitrijs2005/ciphersafe/internal/logging"
	"github.com/dmitrijs2005/ciphersafe/internal/redact"
)

const (
	DefaultInitialCooldown = 20 * time.Second
	DefaultResendCooldown  = 60 * time.Second
)

var (
	ErrResendNotAllowed = errors.New("resend is not available yet")
	ErrClosed           = errors.New("otp screen closed")
	ErrInvalidCode      = fmt.Errorf("%w: enter the %d-digit code", client.ErrValidation, common.OTPLength)
)

// Window is a snapshot of the attempt window. ResendEnabled is true exactly
// when CooldownRemaining is zero.
type Window struct {
	Email             string
	CooldownRemaining int
	ResendEnabled     bool
}

// API is the subset of the backend used on the OTP screen.
type API interface {
	VerifyOTP(ctx context.Context, email, code string) error
	ResendOTP(ctx context.Context, email string) error
}

// Machine receives the outcome of verify and resend. Events carry the
// epoch the controller was started for.
type Machine interface {
	FireAt(epoch uint64, ev auth.Event) error
}

type Options struct {
	InitialCooldown time.Duration
	ResendCooldown  time.Duration
}

func (o Options) withDefaults() Options {
	if o.InitialCooldown <= 0 {
		o.InitialCooldown = DefaultInitialCooldown
	}
	if o.ResendCooldown <= 0 {
		o.ResendCooldown = DefaultResendCooldown
	}
	return o
}

// Controller owns one Otp step. It must be closed when the step is left;
// completions that arrive after Close are discarded.
type Controller struct {
	email   string
	epoch   uint64
	machine Machine
	api     API
	notify  notify.Notifier
	log     logging.Logger
	opts    Options

	// newTicker is replaced in tests.
	newTicker func(d time.Duration) (<-chan time.Time, func())

	mu        sync.Mutex
	remaining int
	closed    bool
	stop      chan struct{}
	done      chan struct{}
	observers []func(Window)

	verifying pending.Guard
	resending pending.Guard
}

// New prepares a controller for step, entered at epoch of m. The cooldown
// starts at opts.InitialCooldown; call Start to begin ticking.
func New(step auth.OtpStep, epoch uint64, m Machine, api API, n notify.Notifier, log logging.Logger, opts Options) *Controller {
	opts = opts.withDefaults()
	return &Controller{
		email:     step.Email(),
		epoch:     epoch,
		machine:   m,
		api:       api,
		notify:    n,
		log:       log.With("component", "otp", "email", redact.Email(step.Email())),
		opts:      opts,
		newTicker: realTicker,
		remaining: seconds(opts.InitialCooldown),
	}
}

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

func seconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}

// Start begins the once-per-second countdown. It is a no-op after Close or
// a second call.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.stop != nil {
		return
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	ticks, stopTicker := c.newTicker(time.Second)
	go func(stop, done chan struct{}) {
		defer close(done)
		defer stopTicker()
		for {
			select {
			case <-stop:
				return
			case <-ticks:
				c.tick()
			}
		}
	}(c.stop, c.done)
}

// tick advances the countdown by one second.
func (c *Controller) tick() {
	c.mu.Lock()
	if c.closed || c.remaining == 0 {
		c.mu.Unlock()
		return
	}
	c.remaining--
	w, observers := c.snapshotLocked()
	c.mu.Unlock()

	for _, fn := range observers {
		fn(w)
	}
}

func (c *Controller) snapshotLocked() (Window, []func(Window)) {
	w := Window{Email: c.email, CooldownRemaining: c.remaining, ResendEnabled: c.remaining == 0}
	return w, slices.Clone(c.observers)
}

func (c *Controller) Window() Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, _ := c.snapshotLocked()
	return w
}

// OnChange registers fn to receive the window after every change.
func (c *Controller) OnChange(fn func(Window)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Close stops the countdown and detaches the controller. Safe to call more
// than once, but not from an OnChange callback.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	stop, done := c.stop, c.done
	c.observers = nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Resend requests a new code. Only allowed once the cooldown reached zero.
// A successful resend restarts the cooldown at the resend duration. If the
// server no longer knows the challenge the flow returns to Login.
func (c *Controller) Resend(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.remaining > 0:
		c.mu.Unlock()
		return ErrResendNotAllowed
	}
	c.mu.Unlock()

	done, ok := c.resending.TryStart()
	if !ok {
		return pending.ErrPending
	}
	defer done()

	err := c.api.ResendOTP(ctx, c.email)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if err == nil {
		c.remaining = seconds(c.opts.ResendCooldown)
	}
	w, observers := c.snapshotLocked()
	c.mu.Unlock()

	if err != nil {
		c.log.Info(ctx, "resend rejected", "error", err)
		c.notify.Error(client.Message(err, "Could not resend the code"))
		if errors.Is(err, client.ErrNotFound) || errors.Is(err, client.ErrOtpTerminal) {
			c.leave(auth.OtpSessionLost{Err: err})
		}
		return err
	}

	for _, fn := range observers {
		fn(w)
	}
	c.notify.Success("A new code was sent to your email")
	return nil
}

// Verify submits code. Success exits the auth flow; terminal failures
// return to Login; any other failure keeps the screen and its cooldown.
func (c *Controller) Verify(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if !validCode(code) {
		c.notify.Error(client.Message(ErrInvalidCode, ""))
		return ErrInvalidCode
	}
	if c.isClosed() {
		return ErrClosed
	}

	done, ok := c.verifying.TryStart()
	if !ok {
		return pending.ErrPending
	}
	defer done()

	err := c.api.VerifyOTP(ctx, c.email, code)
	if c.isClosed() {
		return ErrClosed
	}

	if err == nil {
		c.log.Info(ctx, "otp verified")
		c.leave(auth.OtpVerified{})
		return nil
	}

	c.notify.Error(client.Message(err, "Verification failed"))
	if errors.Is(err, client.ErrOtpTerminal) {
		c.log.Info(ctx, "otp challenge ended", "error", err)
		c.leave(auth.OtpFailed{Err: err})
		return err
	}
	if ferr := c.machine.FireAt(c.epoch, auth.OtpFailed{Err: err}); ferr != nil {
		c.log.Debug(ctx, "otp failure not applied", "error", ferr)
	}
	return err
}

// leave reports an event that ends the Otp step and closes the controller.
func (c *Controller) leave(ev auth.Event) {
	if err := c.machine.FireAt(c.epoch, ev); err != nil {
		c.log.Debug(context.Background(), "otp outcome not applied", "error", err)
	}
	c.Close()
}

func validCode(code string) bool {
	if len(code) != common.OTPLength {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
