package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

const testUserID = "5b1f0c2e-8d3a-4c7e-9f61-2a4b6c8d0e12"

const testUserJSON = `{
	"id": "5b1f0c2e-8d3a-4c7e-9f61-2a4b6c8d0e12",
	"email": "builder@example.com",
	"user_metadata": {
		"preferred_username": "builder",
		"full_name": "Bot Builder",
		"avatar_url": "https://cdn.discordapp.com/avatars/42/abc.png",
		"provider_id": "42",
		"custom_claims": {"global_name": "The Builder"}
	}
}`

// fakeGoTrue mimics the handful of Supabase Auth endpoints the provider calls.
func fakeGoTrue(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grant_type") != "pkce" {
			http.Error(w, `{"msg":"unsupported grant type"}`, http.StatusBadRequest)
			return
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, `{"msg":"bad body"}`, http.StatusBadRequest)
			return
		}
		if body["auth_code"] != "good-code" || body["code_verifier"] != "verifier" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"invalid flow state"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"session-token","user":` + testUserJSON + `}`))
	})
	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "service-key" {
			http.Error(w, `{"message":"no api key"}`, http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Authorization") != "Bearer session-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
			return
		}
		_, _ = w.Write([]byte(testUserJSON))
	})
	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer session-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestSupabase(t *testing.T) *SupabaseProvider {
	srv := fakeGoTrue(t)
	return NewSupabaseProvider(SupabaseConfig{
		URL:        srv.URL + "/",
		ServiceKey: "service-key",
		HTTPClient: srv.Client(),
	})
}

func TestSupabase_BeginSignIn(t *testing.T) {
	p := NewSupabaseProvider(SupabaseConfig{URL: "https://project.supabase.co", ServiceKey: "k"})

	signIn, err := p.BeginSignIn(context.Background(), SignInRequest{
		RedirectURL: "https://app.example.com/auth/callback",
		Scopes:      ScopesWithGuilds,
	})
	if err != nil {
		t.Fatalf("BeginSignIn() error = %v", err)
	}

	u, err := url.Parse(signIn.URL)
	if err != nil {
		t.Fatalf("invalid URL %q: %v", signIn.URL, err)
	}
	if u.Host != "project.supabase.co" || u.Path != "/auth/v1/authorize" {
		t.Errorf("URL = %s, want project authorize endpoint", signIn.URL)
	}

	q := u.Query()
	if q.Get("provider") != "discord" {
		t.Errorf("provider = %q, want discord", q.Get("provider"))
	}
	if q.Get("scopes") != "identify email guilds" {
		t.Errorf("scopes = %q", q.Get("scopes"))
	}
	if q.Get("redirect_to") != "https://app.example.com/auth/callback" {
		t.Errorf("redirect_to = %q", q.Get("redirect_to"))
	}
	if q.Get("code_challenge") == "" || q.Get("code_challenge_method") != "s256" {
		t.Errorf("missing PKCE challenge in %s", signIn.URL)
	}
	if signIn.Flow.Verifier == "" {
		t.Error("Flow.Verifier should be set")
	}
	if signIn.Flow.RedirectURL != "https://app.example.com/auth/callback" {
		t.Errorf("Flow.RedirectURL = %q", signIn.Flow.RedirectURL)
	}
}

func TestSupabase_BeginSignIn_NotConfigured(t *testing.T) {
	p := NewSupabaseProvider(SupabaseConfig{})

	_, err := p.BeginSignIn(context.Background(), SignInRequest{})
	if _, ok := IsProviderError(err); !ok {
		t.Fatalf("BeginSignIn() error = %v, want *ProviderError", err)
	}
}

func TestSupabase_CompleteSignIn(t *testing.T) {
	p := newTestSupabase(t)

	session, err := p.CompleteSignIn(context.Background(), "good-code", Flow{Verifier: "verifier"})
	if err != nil {
		t.Fatalf("CompleteSignIn() error = %v", err)
	}
	if session.Token != "session-token" {
		t.Errorf("Token = %q, want session-token", session.Token)
	}
	if session.Identity.ID != testUserID || session.Identity.ProviderID != "42" {
		t.Errorf("Identity = %+v", session.Identity)
	}
}

func TestSupabase_CompleteSignIn_Rejected(t *testing.T) {
	p := newTestSupabase(t)

	_, err := p.CompleteSignIn(context.Background(), "bad-code", Flow{Verifier: "verifier"})
	if !errors.Is(err, ErrExchangeFailed) {
		t.Fatalf("CompleteSignIn() error = %v, want ErrExchangeFailed", err)
	}
	pe, ok := IsProviderError(err)
	if !ok {
		t.Fatalf("error should carry *ProviderError, got %v", err)
	}
	if pe.Message != "invalid flow state" {
		t.Errorf("Message = %q, want provider description", pe.Message)
	}

	_, err = p.CompleteSignIn(context.Background(), "", Flow{})
	if !errors.Is(err, ErrExchangeFailed) {
		t.Errorf("empty code error = %v, want ErrExchangeFailed", err)
	}
}

func TestSupabase_CurrentIdentity(t *testing.T) {
	p := newTestSupabase(t)

	ident, err := p.CurrentIdentity(context.Background(), "session-token")
	if err != nil {
		t.Fatalf("CurrentIdentity() error = %v", err)
	}

	want := Identity{
		ID:                testUserID,
		Email:             "builder@example.com",
		PreferredUsername: "builder",
		FullName:          "Bot Builder",
		GlobalName:        "The Builder",
		AvatarURL:         "https://cdn.discordapp.com/avatars/42/abc.png",
		ProviderID:        "42",
	}
	if *ident != want {
		t.Errorf("CurrentIdentity() = %+v, want %+v", *ident, want)
	}
}

func TestSupabase_CurrentIdentity_Errors(t *testing.T) {
	p := newTestSupabase(t)

	if _, err := p.CurrentIdentity(context.Background(), ""); !errors.Is(err, ErrMissingToken) {
		t.Errorf("empty token error = %v, want ErrMissingToken", err)
	}

	_, err := p.CurrentIdentity(context.Background(), "forged")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("forged token error = %v, want ErrUnauthenticated", err)
	}
	if !strings.Contains(err.Error(), "invalid JWT") {
		t.Errorf("error %q should include the provider message", err)
	}
}

func TestSupabase_EndSession(t *testing.T) {
	p := newTestSupabase(t)

	if err := p.EndSession(context.Background(), "session-token"); err != nil {
		t.Errorf("EndSession() error = %v", err)
	}
	if err := p.EndSession(context.Background(), "expired"); err == nil {
		t.Error("EndSession() with rejected token should return an error")
	}
	if err := p.EndSession(context.Background(), ""); !errors.Is(err, ErrMissingToken) {
		t.Errorf("EndSession(\"\") error = %v, want ErrMissingToken", err)
	}
}

func TestSupabaseErrorMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"msg":"from msg"}`, "from msg"},
		{`{"message":"from message"}`, "from message"},
		{`{"error":"invalid_grant","error_description":"from description"}`, "from description"},
		{`{"error":"invalid_grant"}`, "invalid_grant"},
		{`not json`, "400 Bad Request"},
	}

	for _, tt := range tests {
		if got := supabaseErrorMessage([]byte(tt.body), "400 Bad Request"); got != tt.want {
			t.Errorf("supabaseErrorMessage(%s) = %q, want %q", tt.body, got, tt.want)
		}
	}
}
