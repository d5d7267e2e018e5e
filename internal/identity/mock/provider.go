// Package mock provides a mock implementation of identity.Provider for testing.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/obot-platform/botmaker/internal/identity"
)

// Default values used by the mock provider.
const (
	DefaultToken    = "mock-session-token"
	DefaultCode     = "mock-auth-code"
	DefaultVerifier = "mock-verifier"
	DefaultState    = "mock-state"
	DefaultAuthURL  = "https://auth.example.com/authorize"
)

// DefaultIdentity is the identity behind DefaultToken.
var DefaultIdentity = identity.Identity{
	ID:                "user-1",
	Email:             "builder@example.com",
	PreferredUsername: "builder",
	GlobalName:        "Builder",
	AvatarURL:         "https://cdn.discordapp.com/avatars/42/abc.png",
	ProviderID:        "42",
}

// Provider is a mock identity provider for testing.
type Provider struct {
	mu       sync.Mutex
	sessions map[string]identity.Identity

	// Calls records provider invocations by method name.
	Calls []string
	// LastSignIn is the most recent BeginSignIn request.
	LastSignIn identity.SignInRequest
	// LastFlow is the flow passed to the most recent CompleteSignIn.
	LastFlow identity.Flow
	// Ended lists tokens passed to EndSession.
	Ended []string

	// Configurable behaviors for testing
	BeginSignInFunc     func(ctx context.Context, req identity.SignInRequest) (*identity.SignIn, error)
	CompleteSignInFunc  func(ctx context.Context, code string, flow identity.Flow) (*identity.Session, error)
	CurrentIdentityFunc func(ctx context.Context, token string) (*identity.Identity, error)
	EndSessionFunc      func(ctx context.Context, token string) error
}

// NewProvider creates a mock provider that knows DefaultToken.
func NewProvider() *Provider {
	return &Provider{
		sessions: map[string]identity.Identity{DefaultToken: DefaultIdentity},
	}
}

// AddSession registers an extra token.
func (p *Provider) AddSession(token string, ident identity.Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[token] = ident
}

func (p *Provider) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, call)
}

// CallCount returns how many times the named method was invoked.
func (p *Provider) CallCount(call string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.Calls {
		if c == call {
			n++
		}
	}
	return n
}

// BeginSignIn returns DefaultAuthURL with the state and redirect appended.
func (p *Provider) BeginSignIn(ctx context.Context, req identity.SignInRequest) (*identity.SignIn, error) {
	p.record("BeginSignIn")
	p.mu.Lock()
	p.LastSignIn = req
	p.mu.Unlock()

	if p.BeginSignInFunc != nil {
		return p.BeginSignInFunc(ctx, req)
	}
	return &identity.SignIn{
		URL:  DefaultAuthURL + "?state=" + DefaultState + "&redirect_to=" + req.RedirectURL,
		Flow: identity.Flow{Verifier: DefaultVerifier, RedirectURL: req.RedirectURL, State: DefaultState},
	}, nil
}

// CompleteSignIn accepts DefaultCode and returns a session for DefaultToken.
func (p *Provider) CompleteSignIn(ctx context.Context, code string, flow identity.Flow) (*identity.Session, error) {
	p.record("CompleteSignIn")
	p.mu.Lock()
	p.LastFlow = flow
	p.mu.Unlock()

	if p.CompleteSignInFunc != nil {
		return p.CompleteSignInFunc(ctx, code, flow)
	}
	if code != DefaultCode {
		return nil, fmt.Errorf("%w: unknown code %q", identity.ErrExchangeFailed, code)
	}
	ident := DefaultIdentity
	return &identity.Session{Token: DefaultToken, Identity: &ident}, nil
}

// CurrentIdentity looks the token up among registered sessions.
func (p *Provider) CurrentIdentity(ctx context.Context, token string) (*identity.Identity, error) {
	p.record("CurrentIdentity")

	if p.CurrentIdentityFunc != nil {
		return p.CurrentIdentityFunc(ctx, token)
	}
	if token == "" {
		return nil, identity.ErrMissingToken
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ident, ok := p.sessions[token]
	if !ok {
		return nil, fmt.Errorf("%w: unknown session", identity.ErrUnauthenticated)
	}
	return &ident, nil
}

// EndSession forgets the token.
func (p *Provider) EndSession(ctx context.Context, token string) error {
	p.record("EndSession")
	p.mu.Lock()
	p.Ended = append(p.Ended, token)
	p.mu.Unlock()

	if p.EndSessionFunc != nil {
		return p.EndSessionFunc(ctx, token)
	}
	if token == "" {
		return identity.ErrMissingToken
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessions, token)
	return nil
}

// Ensure Provider implements identity.Provider
var _ identity.Provider = (*Provider)(nil)
