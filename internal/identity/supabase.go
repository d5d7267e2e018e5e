package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	gotrue "github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
)

// SupabaseConfig configures the Supabase Auth (GoTrue) adapter.
type SupabaseConfig struct {
	// URL is the project base URL, e.g. https://xyz.supabase.co
	URL string
	// ServiceKey is sent as the apikey header on every call.
	ServiceKey string
	// OAuthProvider is the upstream provider name; defaults to discord.
	OAuthProvider types.Provider
	HTTPClient    *http.Client
}

// SupabaseProvider signs users in through Supabase Auth, which in turn
// federates to Discord. Session tokens are Supabase access tokens.
//
// Supabase keeps its own OAuth state with Discord and does not echo one back
// to redirect_to, so flows are bound by the PKCE verifier alone.
type SupabaseProvider struct {
	authURL    string
	serviceKey string
	oauth      types.Provider
	client     *http.Client
	api        gotrue.Client
}

// NewSupabaseProvider creates a Supabase-backed identity provider.
func NewSupabaseProvider(cfg SupabaseConfig) *SupabaseProvider {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	oauth := cfg.OAuthProvider
	if oauth == "" {
		oauth = types.ProviderDiscord
	}

	var authURL string
	if base := strings.TrimRight(cfg.URL, "/"); base != "" {
		authURL = base + "/auth/v1"
	}

	return &SupabaseProvider{
		authURL:    authURL,
		serviceKey: cfg.ServiceKey,
		oauth:      oauth,
		client:     client,
		api: gotrue.New("", cfg.ServiceKey).
			WithCustomGoTrueURL(authURL).
			WithClient(*client),
	}
}

func supabaseIdentity(u *types.User) *Identity {
	meta := func(key string) string {
		v, _ := u.UserMetadata[key].(string)
		return v
	}

	ident := &Identity{
		ID:                u.ID.String(),
		Email:             u.Email,
		PreferredUsername: meta("preferred_username"),
		FullName:          meta("full_name"),
		AvatarURL:         meta("avatar_url"),
		ProviderID:        meta("provider_id"),
	}
	if claims, ok := u.UserMetadata["custom_claims"].(map[string]any); ok {
		ident.GlobalName, _ = claims["global_name"].(string)
	}
	return ident
}

// BeginSignIn builds the authorize URL. Supabase redirects the browser to
// Discord and back to RedirectURL with a code bound to the PKCE challenge.
func (p *SupabaseProvider) BeginSignIn(_ context.Context, req SignInRequest) (*SignIn, error) {
	if p.authURL == "" {
		return nil, &ProviderError{Message: "identity provider URL is not configured"}
	}

	pkce := GeneratePKCE()
	params := url.Values{
		"provider":              {string(p.oauth)},
		"code_challenge":        {pkce.CodeChallenge},
		"code_challenge_method": {strings.ToLower(pkce.CodeChallengeMethod)},
	}
	if req.RedirectURL != "" {
		params.Set("redirect_to", req.RedirectURL)
	}
	if len(req.Scopes) > 0 {
		params.Set("scopes", strings.Join(req.Scopes, " "))
	}

	return &SignIn{
		URL:  p.authURL + "/authorize?" + params.Encode(),
		Flow: pkce.Flow(req.RedirectURL),
	}, nil
}

// CompleteSignIn exchanges the callback code for a Supabase session.
func (p *SupabaseProvider) CompleteSignIn(ctx context.Context, code string, flow Flow) (*Session, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", ErrExchangeFailed)
	}

	resp, err := p.exchangeCode(ctx, code, flow.Verifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token in response", ErrExchangeFailed)
	}

	return &Session{
		Token:    resp.AccessToken,
		Identity: supabaseIdentity(&resp.User),
	}, nil
}

// CurrentIdentity fetches the user that owns token.
func (p *SupabaseProvider) CurrentIdentity(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	resp, err := p.api.WithToken(token).GetUser()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if resp.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty user in response", ErrUnauthenticated)
	}

	return supabaseIdentity(&resp.User), nil
}

// EndSession revokes every refresh token of the session's user.
func (p *SupabaseProvider) EndSession(_ context.Context, token string) error {
	if token == "" {
		return ErrMissingToken
	}
	if err := p.api.WithToken(token).Logout(); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

// exchangeCode performs the PKCE grant. GoTrue reads the code from auth_code,
// which gotrue-go's Token request does not send.
func (p *SupabaseProvider) exchangeCode(ctx context.Context, code, verifier string) (*types.TokenResponse, error) {
	data, err := json.Marshal(map[string]string{
		"auth_code":     code,
		"code_verifier": verifier,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.authURL+"/token?grant_type=pkce", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", p.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{Status: resp.StatusCode, Message: supabaseErrorMessage(body, resp.Status)}
	}

	var token types.TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &token, nil
}

// supabaseErrorMessage extracts the human message from a GoTrue error body.
// GoTrue has used several field names across versions.
func supabaseErrorMessage(body []byte, fallback string) string {
	var e struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		for _, m := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
			if m != "" {
				return m
			}
		}
	}
	return fallback
}

// compile-time interface check
var _ Provider = (*SupabaseProvider)(nil)
