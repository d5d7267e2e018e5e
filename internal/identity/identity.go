// Package identity adapts external OAuth identity providers behind a narrow
// interface: start a sign-in, exchange the callback code for a session, look up
// the identity behind a session token, and end a session.
package identity

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Sentinel errors for provider operations.
var (
	// ErrMissingToken indicates no session token was supplied.
	ErrMissingToken = errors.New("no token provided")

	// ErrUnauthenticated indicates the provider rejected the session token.
	ErrUnauthenticated = errors.New("invalid token")

	// ErrExchangeFailed indicates the authorization code could not be exchanged.
	ErrExchangeFailed = errors.New("authorization code exchange failed")
)

// ProviderError is returned when the identity provider rejects a request.
// Message is the provider's own description and is safe to show to clients.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("identity provider error (%d): %s", e.Status, e.Message)
}

// IsProviderError reports whether err carries a provider rejection and returns it.
func IsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// Provider is implemented by every external identity service.
type Provider interface {
	// BeginSignIn returns the URL the browser must visit to authorize.
	BeginSignIn(ctx context.Context, req SignInRequest) (*SignIn, error)
	// CompleteSignIn exchanges a one-time authorization code for a session.
	CompleteSignIn(ctx context.Context, code string, flow Flow) (*Session, error)
	// CurrentIdentity resolves the identity behind a session token.
	CurrentIdentity(ctx context.Context, token string) (*Identity, error)
	// EndSession invalidates a session token.
	EndSession(ctx context.Context, token string) error
}

// Scope sets requested from the provider.
var (
	ScopesWithGuilds = []string{"identify", "email", "guilds"}
	ScopesBasic      = []string{"identify", "email"}
)

// SignInRequest describes a sign-in to start.
type SignInRequest struct {
	RedirectURL string
	Scopes      []string
}

// SignIn is a started sign-in flow.
type SignIn struct {
	URL  string
	Flow Flow
}

// Flow is the state a sign-in must carry from BeginSignIn to CompleteSignIn.
// Verifier is the PKCE code verifier; RedirectURL must match the one used
// when the flow began. State is set only by providers that echo the OAuth
// state parameter back to the callback.
type Flow struct {
	Verifier    string `json:"v,omitempty"`
	RedirectURL string `json:"r,omitempty"`
	State       string `json:"s,omitempty"`
}

// CheckState reports whether the state returned to the callback belongs to
// this flow.
func (f Flow) CheckState(state string) bool {
	if f.State == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(f.State), []byte(state)) == 1
}

// Session is the result of a completed sign-in.
type Session struct {
	Token    string
	Identity *Identity
}

// Identity is the user as described by the provider. It lives for one request.
type Identity struct {
	ID                string
	Email             string
	PreferredUsername string
	FullName          string
	GlobalName        string
	AvatarURL         string
	// ProviderID is the user's id at the upstream OAuth provider (Discord).
	ProviderID string
}

const placeholderAvatarURL = "https://ui-avatars.com/api/?name=%s&background=5865F2&color=fff"

// Username picks the best display handle: preferred username, then full
// name, then the local part of the email address.
func (i *Identity) Username() string {
	if i.PreferredUsername != "" {
		return i.PreferredUsername
	}
	if i.FullName != "" {
		return i.FullName
	}
	if local, _, _ := strings.Cut(i.Email, "@"); local != "" {
		return local
	}
	return ""
}

// Avatar returns the provider avatar or a generated placeholder keyed by username.
func (i *Identity) Avatar() string {
	if i.AvatarURL != "" {
		return i.AvatarURL
	}
	name := i.Username()
	if name == "" {
		name = "User"
	}
	return fmt.Sprintf(placeholderAvatarURL, url.QueryEscape(name))
}

// Discriminator returns the global display name, or "0000" when unset.
func (i *Identity) Discriminator() string {
	if i.GlobalName != "" {
		return i.GlobalName
	}
	return "0000"
}

// CreatorName is the name credited in generated packages.
func (i *Identity) CreatorName() string {
	if name := i.Username(); name != "" {
		return name
	}
	return "Discord User"
}

// DiscordID returns the upstream provider id, falling back to the local id.
func (i *Identity) DiscordID() string {
	if i.ProviderID != "" {
		return i.ProviderID
	}
	return i.ID
}
