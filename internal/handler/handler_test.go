package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/obot-platform/botmaker/internal/config"
	"github.com/obot-platform/botmaker/internal/identity/mock"
	"github.com/obot-platform/botmaker/internal/logger"
)

const testPublicURL = "https://botmaker.example.com"

// testServer wires a router around a mock identity provider.
type testServer struct {
	t        *testing.T
	cfg      *config.Config
	provider *mock.Provider
	router   http.Handler
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.Server.PublicURL = testPublicURL
	cfg.RateLimit.Requests = 0
	for _, m := range mutate {
		m(cfg)
	}

	provider := mock.NewProvider()
	h := New(cfg, provider, logger.Nop())

	return &testServer{
		t:        t,
		cfg:      cfg,
		provider: provider,
		router:   NewRouter(h),
	}
}

// do sends a request; body, when non-nil, is JSON encoded.
func (s *testServer) do(method, target string, body any, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withCookie(c *http.Cookie) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(c) }
}

func withOrigin(origin string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Origin", origin) }
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	return v
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, w)["error"]
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestOptions_AllEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/discord-auth", "/api/generate-bot", "/api/deploy-bot", "/api/templates", "/does-not-exist"} {
		t.Run(path, func(t *testing.T) {
			w := s.do(http.MethodOptions, path, `{"garbage":`)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", w.Code)
			}
			if w.Body.Len() != 0 {
				t.Errorf("body = %q, want empty", w.Body.String())
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
				t.Errorf("Allow-Origin = %q, want *", got)
			}
			if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
				t.Errorf("Allow-Credentials = %q, want true", got)
			}
			if w.Header().Get("Access-Control-Allow-Methods") == "" || w.Header().Get("Access-Control-Allow-Headers") == "" {
				t.Error("missing Allow-Methods or Allow-Headers")
			}
		})
	}

	if n := len(s.provider.Calls); n != 0 {
		t.Errorf("OPTIONS reached the identity provider %d times", n)
	}
}

func TestCORSHeadersOnResponses(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/generate-bot", GenerateRequest{BotName: "x"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin on 401 = %q, want *", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/generate-bot"},
		{http.MethodGet, "/api/deploy-bot"},
		{http.MethodPut, "/api/discord-auth"},
		{http.MethodDelete, "/api/deploy-bot"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := s.do(tt.method, tt.path, nil)
			if w.Code != http.StatusMethodNotAllowed {
				t.Fatalf("status = %d, want 405", w.Code)
			}
			if msg := errorMessage(t, w); msg != "Method not allowed" {
				t.Errorf("error = %q", msg)
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"unknown path", http.MethodGet, "/api/unknown", nil},
		{"unknown GET action", http.MethodGet, "/api/discord-auth?action=bogus", nil},
		{"GET without action", http.MethodGet, "/api/discord-auth", nil},
		{"unknown POST action", http.MethodPost, "/api/discord-auth", AuthRequest{Action: "bogus"}},
		{"POST without body", http.MethodPost, "/api/discord-auth", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, tt.body)
			if w.Code != http.StatusNotFound {
				t.Fatalf("status = %d, want 404", w.Code)
			}
			if msg := errorMessage(t, w); msg != "Endpoint not found" {
				t.Errorf("error = %q", msg)
			}
		})
	}
}

func TestInvalidJSONBody(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/discord-auth", "/api/generate-bot", "/api/deploy-bot"} {
		w := s.do(http.MethodPost, path, `{"action":`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, w.Code)
		}
	}
}

func TestBodyTooLarge(t *testing.T) {
	s := newTestServer(t)

	huge := `{"botName":"x","botCode":"` + string(bytes.Repeat([]byte("a"), maxBodyBytes+1)) + `"}`
	w := s.do(http.MethodPost, "/api/deploy-bot", huge, withBearer(mock.DefaultToken))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decode[map[string]string](t, w)
	if body["status"] != "ok" || body["version"] == "" {
		t.Errorf("body = %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	s.do(http.MethodGet, "/health", nil)
	w := s.do(http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("botmaker_http_request_duration_seconds")) {
		t.Error("metrics output missing request duration histogram")
	}
}

func TestListTemplates(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/templates", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decode[struct {
		Templates []struct {
			ID string `json:"id"`
		} `json:"templates"`
	}](t, w)
	if len(body.Templates) != 8 {
		t.Errorf("got %d templates, want 8", len(body.Templates))
	}
}

func TestSessionTokenPrecedence(t *testing.T) {
	s := newTestServer(t)
	h := New(s.cfg, s.provider, nil)

	tests := []struct {
		name   string
		header string
		cookie string
		body   string
		want   string
	}{
		{"header wins", "Bearer from-header", "from-cookie", "from-body", "from-header"},
		{"cookie before body", "", "from-cookie", "from-body", "from-cookie"},
		{"body fallback", "", "", "from-body", "from-body"},
		{"non-bearer header ignored", "Basic abc", "", "from-body", "from-body"},
		{"empty bearer ignored", "Bearer  ", "from-cookie", "", "from-cookie"},
		{"nothing", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: tt.cookie})
			}
			if got := h.sessionToken(req, tt.body); got != tt.want {
				t.Errorf("sessionToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOrigin(t *testing.T) {
	s := newTestServer(t)
	h := New(s.cfg, s.provider, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := h.origin(req); got != testPublicURL {
		t.Errorf("origin() without header = %q, want %q", got, testPublicURL)
	}

	req.Header.Set("Origin", "https://app.example.com/")
	if got := h.origin(req); got != "https://app.example.com" {
		t.Errorf("origin() = %q", got)
	}
}
