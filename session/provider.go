package session

import (
	"context"
	"errors"
	"sync"
)

// Provider owns the current session and its load/clear lifecycle.
type Provider struct {
	store Store

	mu      sync.RWMutex
	current *Session
}

func NewProvider(store Store) *Provider {
	return &Provider{store: store}
}

// Load reads the session from the store. A missing session is not an error:
// Current simply returns ErrNoSession afterwards.
func (p *Provider) Load(ctx context.Context) error {
	s, err := p.store.Load(ctx)
	if err != nil && !errors.Is(err, ErrNoSession) {
		return err
	}
	p.mu.Lock()
	p.current = s
	p.mu.Unlock()
	return nil
}

// Login stores s as the current session.
func (p *Provider) Login(ctx context.Context, s *Session) error {
	if err := p.store.Save(ctx, s); err != nil {
		return err
	}
	p.mu.Lock()
	cp := *s
	p.current = &cp
	p.mu.Unlock()
	return nil
}

func (p *Provider) Current() (*Session, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return nil, ErrNoSession
	}
	cp := *p.current
	return &cp, nil
}

// Clear logs out.
func (p *Provider) Clear(ctx context.Context) error {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	return p.store.Clear(ctx)
}
