package handler

import (
	"net/http"
	"strings"

	"github.com/obot-platform/botmaker/internal/botgen"
	"github.com/obot-platform/botmaker/internal/metrics"
)

// GenerateRequest is the body of POST /api/generate-bot.
type GenerateRequest struct {
	BotName    string `json:"botName"`
	Template   string `json:"template"`
	CustomCode string `json:"customCode"`
	AuthToken  string `json:"authToken"`
}

// GenerateResponse is returned on success.
type GenerateResponse struct {
	Success      bool   `json:"success"`
	Code         string `json:"code"`
	DownloadLink string `json:"downloadLink"`
	Instructions string `json:"instructions"`
	Template     string `json:"template"`
}

// GenerateBot renders bot source from a template for an authenticated user.
func (h *Handler) GenerateBot(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	ident, err := h.authenticate(r.Context(), h.sessionToken(r, req.AuthToken))
	if err != nil {
		h.unauthorized(w, err, "No authentication token provided", "Invalid authentication token")
		return
	}

	botName := strings.TrimSpace(req.BotName)
	if botName == "" {
		h.Error(w, http.StatusBadRequest, "botName is required")
		return
	}

	template := botgen.Resolve(req.Template, req.CustomCode)
	code, err := botgen.Generate(botName, req.Template, req.CustomCode)
	if err != nil {
		h.InternalError(w, r, err)
		return
	}

	metrics.RecordBotGenerated(template)
	h.requestLog(r).Info("bot generated", "user_id", ident.ID, "template", template)

	h.JSON(w, http.StatusOK, GenerateResponse{
		Success:      true,
		Code:         code,
		DownloadLink: botgen.DownloadLink(botName, ident.ID),
		Instructions: botgen.Instructions,
		Template:     template,
	})
}
