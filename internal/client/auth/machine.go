package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/ciphersafe/internal/logging"
)

var (
	// ErrStale rejects an event raised for a step that is no longer active.
	ErrStale = errors.New("auth step changed before completion")

	// ErrExited rejects events after the machine handed over to the
	// protected area.
	ErrExited = errors.New("auth flow already completed")
)

// Machine holds the active Step and applies transitions serially.
//
// Every step change bumps an epoch. Asynchronous completions capture the
// epoch when they start and report through FireAt, so a result that
// arrives after the user moved on is dropped instead of applied.
type Machine struct {
	mu        sync.Mutex
	step      Step
	epoch     uint64
	exited    bool
	observers []func(Step)
	onExit    func()
	log       logging.Logger
}

// NewMachine starts at Login. onExit runs once, after a verified OTP.
func NewMachine(log logging.Logger, onExit func()) *Machine {
	return &Machine{
		step:   LoginStep{},
		onExit: onExit,
		log:    log.With("component", "auth"),
	}
}

func (m *Machine) Step() Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step
}

func (m *Machine) Epoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

func (m *Machine) Exited() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exited
}

// Subscribe registers fn to receive every new step. Callbacks run outside
// the machine lock and may read the machine.
func (m *Machine) Subscribe(fn func(Step)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Fire applies ev to the active step.
func (m *Machine) Fire(ev Event) error {
	return m.apply(ev, func(uint64) bool { return true })
}

// FireAt applies ev only if the machine is still at epoch.
func (m *Machine) FireAt(epoch uint64, ev Event) error {
	return m.apply(ev, func(cur uint64) bool { return cur == epoch })
}

func (m *Machine) apply(ev Event, current func(uint64) bool) error {
	m.mu.Lock()
	if m.exited {
		m.mu.Unlock()
		return ErrExited
	}
	if !current(m.epoch) {
		m.mu.Unlock()
		return ErrStale
	}

	prev := m.step
	next, exit, err := Next(prev, ev)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	var (
		observers []func(Step)
		onExit    func()
	)
	switch {
	case exit:
		m.exited = true
		m.epoch++
		onExit = m.onExit
	case next != prev:
		m.step = next
		m.epoch++
		observers = append(observers, m.observers...)
	}
	m.mu.Unlock()

	if exit {
		m.log.Info(context.Background(), "auth flow completed")
		if onExit != nil {
			onExit()
		}
		return nil
	}
	if next != prev {
		m.log.Debug(context.Background(), "auth step changed", "from", prev.Name(), "to", next.Name())
	}
	for _, fn := range observers {
		fn(next)
	}
	return nil
}

func (m *Machine) LoginSucceeded(serverEmail string) error {
	return m.Fire(LoginSucceeded{Email: serverEmail})
}

func (m *Machine) ForgotPasswordLink() error { return m.Fire(ForgotPasswordRequested{}) }
func (m *Machine) CreateAccountLink() error  { return m.Fire(CreateAccountRequested{}) }
func (m *Machine) SignUpSucceeded() error    { return m.Fire(SignUpSucceeded{}) }
func (m *Machine) HaveAccountLink() error    { return m.Fire(HaveAccountRequested{}) }
func (m *Machine) BackToLogin() error        { return m.Fire(BackToLoginRequested{}) }
func (m *Machine) OtpVerified() error        { return m.Fire(OtpVerified{}) }
func (m *Machine) OtpFailed(err error) error { return m.Fire(OtpFailed{Err: err}) }

func (m *Machine) OtpSessionGone(err error) error {
	return m.Fire(OtpSessionLost{Err: err})
}
