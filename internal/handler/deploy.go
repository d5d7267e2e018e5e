package handler

import (
	"net/http"
	"strings"

	"github.com/obot-platform/botmaker/internal/bundle"
	"github.com/obot-platform/botmaker/internal/metrics"
)

const discordDeveloperPortal = "https://discord.com/developers/applications"

// DeployRequest is the body of POST /api/deploy-bot.
type DeployRequest struct {
	BotCode   string `json:"botCode"`
	BotName   string `json:"botName"`
	AuthToken string `json:"authToken"`
}

// DeployResponse carries the assembled package.
type DeployResponse struct {
	Success      bool               `json:"success"`
	Message      string             `json:"message"`
	User         DeployUser         `json:"user"`
	Bot          DeployBot          `json:"bot"`
	Files        map[string]string  `json:"files"`
	Instructions DeployInstructions `json:"instructions"`
	Links        DeployLinks        `json:"links"`
	// DiscordDevLink duplicates Links.DeveloperPortal for older clients.
	DiscordDevLink string `json:"discordDevLink"`
}

// DeployUser credits the creator.
type DeployUser struct {
	DiscordUsername string `json:"discordUsername"`
	DiscordID       string `json:"discordId"`
	Email           string `json:"email"`
}

// DeployBot summarizes the packaged bot.
type DeployBot struct {
	Name     string   `json:"name"`
	Slug     string   `json:"slug"`
	Commands []string `json:"commands"`
}

// DeployInstructions is static reference text for the client.
type DeployInstructions struct {
	Setup   []string `json:"setup"`
	Invite  []string `json:"invite"`
	Run     []string `json:"run"`
	Warning string   `json:"warning"`
}

// DeployLinks points at external documentation.
type DeployLinks struct {
	DeveloperPortal string `json:"developerPortal"`
	DiscordJSGuide  string `json:"discordJsGuide"`
	NodeJS          string `json:"nodeJs"`
}

var deployInstructions = DeployInstructions{
	Setup: []string{
		"Create an application at the Discord Developer Portal",
		"Add a bot and copy its token",
		"Enable the Message Content intent",
	},
	Invite: []string{
		"Open OAuth2 → URL Generator",
		"Select the bot and applications.commands scopes",
		"Pick the permissions your bot needs and open the generated URL",
	},
	Run: []string{
		"Save every file into one folder",
		"Copy .env.example to .env and set DISCORD_TOKEN",
		"Run npm install",
		"Run npm start",
	},
	Warning: "Never share your bot token with anyone.",
}

var deployLinks = DeployLinks{
	DeveloperPortal: discordDeveloperPortal,
	DiscordJSGuide:  "https://discordjs.guide/",
	NodeJS:          "https://nodejs.org/",
}

// DeployBot packages bot source into a downloadable project for an
// authenticated user. Nothing is written anywhere; the files are returned.
func (h *Handler) DeployBot(w http.ResponseWriter, r *http.Request) {
	var req DeployRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	ident, err := h.authenticate(r.Context(), h.sessionToken(r, req.AuthToken))
	if err != nil {
		h.unauthorized(w, err, "No authentication token provided", "Invalid authentication. Please login with Discord first.")
		return
	}

	botName := strings.TrimSpace(req.BotName)
	if botName == "" || req.BotCode == "" {
		h.Error(w, http.StatusBadRequest, "botName and botCode are required")
		return
	}

	pkg, err := bundle.Assemble(ident.CreatorName(), botName, req.BotCode)
	if err != nil {
		h.InternalError(w, r, err)
		return
	}

	metrics.RecordPackageAssembled()
	h.requestLog(r).Info("bot packaged", "user_id", ident.ID, "slug", pkg.Slug)

	h.JSON(w, http.StatusOK, DeployResponse{
		Success: true,
		Message: "✅ Bot package ready!",
		User: DeployUser{
			DiscordUsername: ident.CreatorName(),
			DiscordID:       ident.DiscordID(),
			Email:           ident.Email,
		},
		Bot: DeployBot{
			Name:     botName,
			Slug:     pkg.Slug,
			Commands: pkg.Commands,
		},
		Files:          pkg.Files,
		Instructions:   deployInstructions,
		Links:          deployLinks,
		DiscordDevLink: discordDeveloperPortal,
	})
}
