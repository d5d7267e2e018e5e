// Package botgen renders Discord bot source code from a fixed catalog of
// templates. Each template is a complete discord.js program; only the bot's
// display name is substituted into its startup log lines.
package botgen

import (
	"embed"
	"fmt"
	"net/url"
	"strings"
	"text/template"
)

//go:embed templates/*.js.tmpl
var templateFS embed.FS

// Template identifiers.
const (
	Basic      = "basic"
	Moderation = "moderation"
	Music      = "music"
	Economy    = "economy"
	Ticket     = "ticket"
	Giveaway   = "giveaway"
	Leveling   = "leveling"
	Custom     = "custom"
)

// Instructions is the fixed how-to returned alongside generated code.
const Instructions = "1. Copy this code to a file named 'bot.js'\n" +
	"2. Run 'npm install discord.js'\n" +
	"3. Add your bot token\n" +
	"4. Run 'node bot.js'"

// Template describes one catalog entry.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var catalog = []Template{
	{ID: Basic, Name: "Basic Bot", Description: "Ping, hello and help commands"},
	{ID: Moderation, Name: "Moderation Bot", Description: "Kick, ban, warn and clear messages"},
	{ID: Music, Name: "Music Bot", Description: "Voice channel queue with play, skip and stop"},
	{ID: Economy, Name: "Economy Bot", Description: "Balances, daily rewards, work and a leaderboard"},
	{ID: Ticket, Name: "Ticket Bot", Description: "Button-driven private support tickets"},
	{ID: Giveaway, Name: "Giveaway Bot", Description: "Timed reaction giveaways with random winners"},
	{ID: Leveling, Name: "Leveling Bot", Description: "XP for chatting, levels and rank cards"},
}

// literalEscaper makes a string safe inside a JS template literal. Anything
// else passes through untouched so the name appears as typed.
var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"${", `\${`,
)

var funcs = template.FuncMap{
	"literal": literalEscaper.Replace,
}

// skeletons maps template id to its parsed body.
var skeletons = mustLoad()

func mustLoad() map[string]*template.Template {
	set := template.Must(template.New("botgen").Funcs(funcs).ParseFS(templateFS, "templates/*.js.tmpl"))

	m := make(map[string]*template.Template, len(catalog))
	for _, t := range catalog {
		tmpl := set.Lookup(t.ID + ".js.tmpl")
		if tmpl == nil {
			panic(fmt.Sprintf("botgen: missing template %q", t.ID))
		}
		m[t.ID] = tmpl
	}
	return m
}

// Templates lists the catalog, custom code last.
func Templates() []Template {
	out := make([]Template, 0, len(catalog)+1)
	out = append(out, catalog...)
	return append(out, Template{ID: Custom, Name: "Custom Code", Description: "Your own discord.js code, packaged as-is"})
}

// Resolve returns the template that Generate will actually use.
func Resolve(templateID, customCode string) string {
	if templateID == Custom && customCode != "" {
		return Custom
	}
	if _, ok := skeletons[templateID]; ok {
		return templateID
	}
	return Basic
}

// Generate returns bot source for templateID. Custom code is returned
// unchanged; unknown ids, and custom without code, fall back to basic.
func Generate(displayName, templateID, customCode string) (string, error) {
	id := Resolve(templateID, customCode)
	if id == Custom {
		return customCode, nil
	}

	var sb strings.Builder
	data := struct{ BotName string }{BotName: displayName}
	if err := skeletons[id].Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", id, err)
	}
	return sb.String(), nil
}

// DownloadLink points at the packaging endpoint for this bot.
func DownloadLink(botName, userID string) string {
	return "/api/deploy-bot?botName=" + url.QueryEscape(botName) + "&userId=" + url.QueryEscape(userID)
}
