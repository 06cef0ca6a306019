package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/ciphersafe/internal/redact"
)

type State int

const (
	StateLoading State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Gate guards the protected area. A Gate verifies the session exactly once,
// on its first Activate; a fresh activation needs a fresh Gate. It moves
// from StateLoading to one of the two resolved states and never back.
type Gate struct {
	provider *Provider
	now      func() time.Time

	once      sync.Once
	mu        sync.Mutex
	state     State
	observers []func(State)
}

func NewGate(p *Provider) *Gate {
	return &Gate{provider: p, now: time.Now}
}

// Activate runs the verification on first use and returns the resolved
// state. Later calls return the same state without calling the backend.
func (g *Gate) Activate(ctx context.Context) State {
	g.once.Do(func() { g.verify(ctx) })
	return g.State()
}

func (g *Gate) verify(ctx context.Context) {
	p := g.provider
	s, err := p.api.VerifyToken(ctx)
	if err == nil && s != nil && !s.Expired(g.now()) {
		p.set(*s)
		p.log.Info(ctx, "session verified", "email", redact.Email(s.Email))
		g.resolve(StateAuthenticated)
		return
	}

	if err != nil {
		p.log.Info(ctx, "session rejected", "error", err)
	} else {
		p.log.Info(ctx, "session rejected", "reason", "expired or empty payload")
	}
	p.clear()
	g.resolve(StateUnauthenticated)
	p.nav.ToLogin()
}

func (g *Gate) resolve(s State) {
	g.mu.Lock()
	g.state = s
	observers := slices.Clone(g.observers)
	g.mu.Unlock()

	for _, fn := range observers {
		fn(s)
	}
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// OnChange registers fn for the single resolution of this gate.
func (g *Gate) OnChange(fn func(State)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observers = append(g.observers, fn)
}

// Render shows placeholder while loading and protected only once the
// session is verified. Nothing is rendered for an unauthenticated gate.
func (g *Gate) Render(placeholder, protected func()) {
	switch g.State() {
	case StateLoading:
		if placeholder != nil {
			placeholder()
		}
	case StateAuthenticated:
		protected()
	}
}
