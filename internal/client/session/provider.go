// Package session holds the authenticated session for the protected area
// and gates that area behind a single verify-token call.
package session

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/ciphersafe/internal/client/models"
	"github.com/dmitrijs2005/ciphersafe/internal/logging"
	"github.com/dmitrijs2005/ciphersafe/internal/redact"
)

// Navigator switches between the auth area and the protected area.
type Navigator interface {
	ToLogin()
	ToProtected()
}

// API is the subset of the backend that manages the session credential.
type API interface {
	VerifyToken(ctx context.Context) (*models.Session, error)
	Logout(ctx context.Context) error
}

// Provider is the session context handed to protected views. Only a Gate
// (on activation) and Logout write it.
type Provider struct {
	api API
	nav Navigator
	log logging.Logger

	mu      sync.RWMutex
	session *models.Session
}

func NewProvider(api API, nav Navigator, log logging.Logger) *Provider {
	return &Provider{api: api, nav: nav, log: log.With("component", "session")}
}

// Session returns the current session, if any.
func (p *Provider) Session() (models.Session, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.session == nil {
		return models.Session{}, false
	}
	return *p.session, true
}

func (p *Provider) set(s models.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = &s
}

func (p *Provider) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = nil
}

// Logout invalidates the server session. The local session is cleared and
// the user is sent to login whatever the server answered; the call error,
// if any, is returned for reporting.
func (p *Provider) Logout(ctx context.Context) error {
	s, _ := p.Session()
	err := p.api.Logout(ctx)
	if err != nil {
		p.log.Warn(ctx, "logout call failed", "error", err)
	}

	p.clear()
	p.log.Info(ctx, "logged out", "email", redact.Email(s.Email))
	p.nav.ToLogin()
	return err
}
