package handler

import (
	"net/http"

	"github.com/obot-platform/botmaker/internal/botgen"
)

// ListTemplates returns the bot template catalog.
func (h *Handler) ListTemplates(w http.ResponseWriter, _ *http.Request) {
	h.JSON(w, http.StatusOK, map[string]any{
		"templates": botgen.Templates(),
	})
}
