package handler

import (
	"errors"
	"net/http"

	"github.com/obot-platform/botmaker/internal/identity"
	"github.com/obot-platform/botmaker/internal/metrics"
)

// Auth actions.
const (
	actionGetAuthURL = "get-auth-url"
	actionGetUser    = "get-user"
	actionLogout     = "logout"
	actionSignIn     = "signin"
	actionSignOut    = "signout"
	actionValidate   = "validate"
	actionCallback   = "callback"
)

// UserResponse is the public shape of an identity.
type UserResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Username      string `json:"username"`
	Avatar        string `json:"avatar"`
	DiscordID     string `json:"discordId"`
	Discriminator string `json:"discriminator"`
}

func newUserResponse(ident *identity.Identity) UserResponse {
	return UserResponse{
		ID:            ident.ID,
		Email:         ident.Email,
		Username:      ident.Username(),
		Avatar:        ident.Avatar(),
		DiscordID:     ident.ProviderID,
		Discriminator: ident.Discriminator(),
	}
}

// AuthRequest is the POST body of the auth endpoint.
type AuthRequest struct {
	Action string `json:"action"`
	Token  string `json:"token"`
}

// AuthGet dispatches GET requests on ?action=, or completes an OAuth callback
// when the provider redirected back with a code or an error.
func (h *Handler) AuthGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	action := q.Get("action")

	if action == "" && (q.Get("code") != "" || q.Has("error")) {
		h.authCallback(w, r)
		return
	}

	switch action {
	case actionGetAuthURL:
		redirectURL := h.cfg.Identity.RedirectURL
		if redirectURL == "" {
			redirectURL = h.origin(r) + "/auth/callback"
		}
		h.beginSignIn(w, r, actionGetAuthURL, identity.SignInRequest{
			RedirectURL: redirectURL,
			Scopes:      identity.ScopesWithGuilds,
		})
	case actionGetUser:
		h.getUser(w, r)
	case actionLogout:
		h.endSession(w, r, actionLogout, h.sessionToken(r, ""))
	default:
		h.Error(w, http.StatusNotFound, "Endpoint not found")
	}
}

// AuthPost dispatches POST requests on the body's action field.
func (h *Handler) AuthPost(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	switch req.Action {
	case actionSignIn:
		redirectURL := h.cfg.Identity.RedirectURL
		if redirectURL == "" {
			redirectURL = h.origin(r) + "/api/discord-auth?callback=true"
		}
		h.beginSignIn(w, r, actionSignIn, identity.SignInRequest{
			RedirectURL: redirectURL,
			Scopes:      identity.ScopesBasic,
		})
	case actionSignOut:
		h.endSession(w, r, actionSignOut, h.sessionToken(r, req.Token))
	case actionValidate:
		h.validate(w, r, req.Token)
	default:
		h.Error(w, http.StatusNotFound, "Endpoint not found")
	}
}

func (h *Handler) beginSignIn(w http.ResponseWriter, r *http.Request, action string, req identity.SignInRequest) {
	signIn, err := h.provider.BeginSignIn(r.Context(), req)
	metrics.RecordAuthEvent(action, err == nil)
	if err != nil {
		if pe, ok := identity.IsProviderError(err); ok {
			h.Error(w, http.StatusBadRequest, pe.Message)
			return
		}
		h.InternalError(w, r, err)
		return
	}

	h.setFlowCookie(w, signIn.Flow)
	h.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"url":     signIn.URL,
	})
}

// authCallback finishes a sign-in. It always answers with a redirect.
func (h *Handler) authCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	origin := h.origin(r)
	log := h.requestLog(r)
	flow, ok := h.takeFlowCookie(w, r)

	code := q.Get("code")
	if code == "" {
		log.Warn("oauth callback without code",
			"error", q.Get("error"),
			"error_description", q.Get("error_description"),
		)
		h.callbackFailed(w, r, origin)
		return
	}
	if !ok {
		log.Warn("oauth callback without a sign-in flow")
		h.callbackFailed(w, r, origin)
		return
	}
	if !flow.CheckState(q.Get("state")) {
		log.Warn("oauth callback state mismatch")
		h.callbackFailed(w, r, origin)
		return
	}

	session, err := h.provider.CompleteSignIn(r.Context(), code, flow)
	if err != nil {
		log.Warn("oauth code exchange failed", "error", err)
		h.callbackFailed(w, r, origin)
		return
	}

	metrics.RecordAuthEvent(actionCallback, true)
	log.Info("user signed in", "user_id", session.Identity.ID)
	h.setSessionCookie(w, session.Token)
	http.Redirect(w, r, origin+"/dashboard?auth=success", http.StatusFound)
}

func (h *Handler) callbackFailed(w http.ResponseWriter, r *http.Request, origin string) {
	metrics.RecordAuthEvent(actionCallback, false)
	http.Redirect(w, r, origin+"/?error=auth_failed", http.StatusFound)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	token := h.sessionToken(r, "")
	ident, err := h.authenticate(r.Context(), token)
	metrics.RecordAuthEvent(actionGetUser, err == nil)
	if err != nil {
		h.unauthorized(w, err, "No token provided", "Invalid token")
		return
	}

	h.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    newUserResponse(ident),
		"token":   token,
	})
}

// validate checks an explicit token from the body, falling back to the
// caller's own session.
func (h *Handler) validate(w http.ResponseWriter, r *http.Request, token string) {
	if token == "" {
		token = h.sessionToken(r, "")
	}
	ident, err := h.authenticate(r.Context(), token)
	metrics.RecordAuthEvent(actionValidate, err == nil)
	if err != nil {
		h.unauthorized(w, err, "No token provided", "Invalid token")
		return
	}

	h.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    newUserResponse(ident),
	})
}

// endSession always succeeds from the client's point of view.
func (h *Handler) endSession(w http.ResponseWriter, r *http.Request, action, token string) {
	h.clearSessionCookie(w)

	var err error
	if token != "" {
		err = h.provider.EndSession(r.Context(), token)
		if err != nil {
			h.requestLog(r).Warn("failed to end session", "error", err)
		}
	}
	metrics.RecordAuthEvent(action, err == nil)

	h.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// unauthorized writes a 401, distinguishing a missing token from a rejected one.
func (h *Handler) unauthorized(w http.ResponseWriter, err error, missing, invalid string) {
	if errors.Is(err, identity.ErrMissingToken) {
		h.Error(w, http.StatusUnauthorized, missing)
		return
	}
	h.log.Debug("token rejected", "error", err)
	h.Error(w, http.StatusUnauthorized, invalid)
}
