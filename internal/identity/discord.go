package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	defaultDiscordAPIURL       = "https://discord.com/api"
	defaultDiscordAuthorizeURL = "https://discord.com/oauth2/authorize"
	discordAvatarURL           = "https://cdn.discordapp.com/avatars/%s/%s.png"
)

// DiscordConfig configures the direct Discord OAuth2 adapter.
type DiscordConfig struct {
	ClientID     string
	ClientSecret string

	// Overridable for tests
	APIURL       string
	AuthorizeURL string

	HTTPClient *http.Client
}

// DiscordProvider talks to Discord directly. The Discord access token is the
// session token, so validating a session is a call to /users/@me.
type DiscordProvider struct {
	config *oauth2.Config
	apiURL string
	client *http.Client
}

// NewDiscordProvider creates a Discord-backed identity provider.
func NewDiscordProvider(cfg DiscordConfig) *DiscordProvider {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultDiscordAPIURL
	}
	authURL := cfg.AuthorizeURL
	if authURL == "" {
		authURL = defaultDiscordAuthorizeURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &DiscordProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  apiURL + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiURL: apiURL,
		client: client,
	}
}

type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
	Email      string `json:"email"`
}

func (u *discordUser) identity() *Identity {
	ident := &Identity{
		ID:                u.ID,
		Email:             u.Email,
		PreferredUsername: u.Username,
		FullName:          u.GlobalName,
		GlobalName:        u.GlobalName,
		ProviderID:        u.ID,
	}
	if u.Avatar != "" {
		ident.AvatarURL = fmt.Sprintf(discordAvatarURL, u.ID, u.Avatar)
	}
	return ident
}

// oauthConfig returns a per-request copy carrying the redirect URL and scopes.
func (p *DiscordProvider) oauthConfig(redirectURL string, scopes []string) *oauth2.Config {
	cfg := *p.config
	cfg.RedirectURL = redirectURL
	cfg.Scopes = scopes
	return &cfg
}

// BeginSignIn builds the Discord authorize URL with a PKCE challenge and a
// random state that Discord echoes back to the callback.
func (p *DiscordProvider) BeginSignIn(_ context.Context, req SignInRequest) (*SignIn, error) {
	if p.config.ClientID == "" {
		return nil, &ProviderError{Message: "Discord OAuth not configured"}
	}

	pkce := GeneratePKCE()
	flow := pkce.Flow(req.RedirectURL)
	flow.State = uuid.NewString()

	authURL := p.oauthConfig(req.RedirectURL, req.Scopes).AuthCodeURL(
		flow.State,
		oauth2.S256ChallengeOption(pkce.CodeVerifier),
		oauth2.SetAuthURLParam("prompt", "consent"),
	)

	return &SignIn{
		URL:  authURL,
		Flow: flow,
	}, nil
}

// CompleteSignIn exchanges the code for a Discord access token and resolves its owner.
// Discord rejects the exchange unless redirect_uri matches the authorize request.
func (p *DiscordProvider) CompleteSignIn(ctx context.Context, code string, flow Flow) (*Session, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", ErrExchangeFailed)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	var opts []oauth2.AuthCodeOption
	if flow.Verifier != "" {
		opts = append(opts, oauth2.VerifierOption(flow.Verifier))
	}
	token, err := p.oauthConfig(flow.RedirectURL, nil).Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}

	user, err := p.fetchUser(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}

	return &Session{Token: token.AccessToken, Identity: user.identity()}, nil
}

// CurrentIdentity resolves the Discord user behind an access token.
func (p *DiscordProvider) CurrentIdentity(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	user, err := p.fetchUser(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	return user.identity(), nil
}

// EndSession revokes the access token at Discord.
func (p *DiscordProvider) EndSession(ctx context.Context, token string) error {
	if token == "" {
		return ErrMissingToken
	}

	form := url.Values{
		"token":           {token},
		"token_type_hint": {"access_token"},
		"client_id":       {p.config.ClientID},
		"client_secret":   {p.config.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/oauth2/token/revoke", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("revoke request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &ProviderError{Status: resp.StatusCode, Message: string(body)}
	}
	return nil
}

func (p *DiscordProvider) fetchUser(ctx context.Context, accessToken string) (*discordUser, error) {
	client := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, p.client),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"/users/@me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{Status: resp.StatusCode, Message: string(body)}
	}

	var user discordUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("empty user id in response")
	}
	return &user, nil
}

// compile-time interface check
var _ Provider = (*DiscordProvider)(nil)
