package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/obot-platform/botmaker/internal/config"
	"github.com/obot-platform/botmaker/internal/identity"
	"github.com/obot-platform/botmaker/internal/logger"
)

const (
	sessionCookieName = "botmaker_session"
	flowCookieName    = "botmaker_oauth_flow"

	sessionCookieMaxAge = 30 * 24 * time.Hour
	flowCookieMaxAge    = 10 * time.Minute

	maxBodyBytes = 1 << 20
)

// Handler contains all HTTP handlers
type Handler struct {
	cfg      *config.Config
	provider identity.Provider
	log      *logger.Logger
}

// New creates a new Handler backed by the given identity provider.
func New(cfg *config.Config, provider identity.Provider, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		cfg:      cfg,
		provider: provider,
		log:      log,
	}
}

// JSON helper to write JSON responses
func (h *Handler) JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error helper to write error responses
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// requestLog returns the handler logger tagged with the request id.
func (h *Handler) requestLog(r *http.Request) *logger.Logger {
	if id := chimiddleware.GetReqID(r.Context()); id != "" {
		return h.log.With("request_id", id)
	}
	return h.log
}

// InternalError logs err and writes a generic 500. The underlying message is
// only included in development.
func (h *Handler) InternalError(w http.ResponseWriter, r *http.Request, err error) {
	h.requestLog(r).Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)

	body := map[string]string{"error": "Internal server error"}
	if h.cfg.Development {
		body["details"] = err.Error()
	}
	h.JSON(w, http.StatusInternalServerError, body)
}

// DecodeJSON helper to decode request body. Bodies are capped at 1 MiB and an
// empty body decodes to the zero value.
func (h *Handler) DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// decodeBody decodes the request body or writes a 400. It reports whether the
// handler should continue.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := h.DecodeJSON(w, r, v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.Error(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		h.Error(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// sessionToken resolves the caller's session token. The Authorization bearer
// header is canonical; the session cookie and a token field in the JSON body
// are accepted as fallbacks, in that order.
func (h *Handler) sessionToken(r *http.Request, bodyToken string) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return bodyToken
}

// authenticate resolves the identity behind token. Callers map any error to 401.
func (h *Handler) authenticate(ctx context.Context, token string) (*identity.Identity, error) {
	if token == "" {
		return nil, identity.ErrMissingToken
	}
	return h.provider.CurrentIdentity(ctx, token)
}

// origin is the frontend base URL for redirects: the request Origin header,
// else the configured public URL.
func (h *Handler) origin(r *http.Request) string {
	if o := r.Header.Get("Origin"); o != "" && o != "null" {
		return strings.TrimRight(o, "/")
	}
	return strings.TrimRight(h.cfg.Server.PublicURL, "/")
}

// setSessionCookie sets the session cookie
func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(sessionCookieMaxAge.Seconds()),
	})
}

// clearSessionCookie clears the session cookie
func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

// setFlowCookie stores the in-progress sign-in flow until the callback.
// Lax so it survives the top-level redirect back from the provider.
func (h *Handler) setFlowCookie(w http.ResponseWriter, flow identity.Flow) {
	data, err := json.Marshal(flow)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flowCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(flowCookieMaxAge.Seconds()),
	})
}

// takeFlowCookie reads and clears the sign-in flow cookie. It reports false
// when the cookie is missing, unreadable or carries no verifier.
func (h *Handler) takeFlowCookie(w http.ResponseWriter, r *http.Request) (identity.Flow, bool) {
	var flow identity.Flow

	cookie, err := r.Cookie(flowCookieName)
	if err != nil {
		return flow, false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flowCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	data, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return flow, false
	}
	if err := json.Unmarshal(data, &flow); err != nil {
		return identity.Flow{}, false
	}
	return flow, flow.Verifier != ""
}
