// Package bundle assembles a runnable Node.js project around generated bot
// source: package.json, README, and an environment template.
//
// Assembly is pure. Identical input always yields byte-identical files.
package bundle

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/template"

	"github.com/obot-platform/botmaker/internal/commands"
)

// File names in a package.
const (
	FileSource     = "index.js"
	FileManifest   = "package.json"
	FileReadme     = "README.md"
	FileEnvExample = ".env.example"
)

// DefaultSlug is used when a display name has no usable characters.
const DefaultSlug = "discord-bot"

// Feature markers that pull in extra npm dependencies.
const (
	voiceMarker     = "@discordjs/voice"
	streamingMarker = "ytdl"
	membersMarker   = "GuildMembers"
)

var (
	baseDependencies = map[string]string{
		"discord.js": "^14.14.1",
		"dotenv":     "^16.3.1",
	}
	voiceDependencies = map[string]string{
		"@discordjs/voice":   "^0.16.1",
		"libsodium-wrappers": "^0.7.13",
	}
	streamingDependencies = map[string]string{
		"ytdl-core":       "^4.11.5",
		"@discordjs/opus": "^0.9.0",
		"ffmpeg-static":   "^5.2.0",
	}
)

const envExample = `# Copy this file to .env and fill in your values.
# Never commit .env to version control.

# Required: bot token from https://discord.com/developers/applications
DISCORD_TOKEN=your_token_here

# Optional: application ID, used when registering slash commands
CLIENT_ID=

# Optional: server ID for guild-scoped commands during development
GUILD_ID=

# Optional: command prefix (default "!")
PREFIX=!
`

//go:embed templates/readme.md.tmpl
var templateFS embed.FS

var readmeTemplate = template.Must(template.ParseFS(templateFS, "templates/readme.md.tmpl"))

// Manifest is the package.json document. Field order is the output order.
type Manifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Description  string            `json:"description"`
	Main         string            `json:"main"`
	Scripts      Scripts           `json:"scripts"`
	Dependencies map[string]string `json:"dependencies"`
	Engines      Engines           `json:"engines"`
}

// Scripts are the npm run scripts.
type Scripts struct {
	Start string `json:"start"`
	Dev   string `json:"dev"`
}

// Engines pins the supported Node.js range.
type Engines struct {
	Node string `json:"node"`
}

// Package is an assembled bot project.
type Package struct {
	Slug     string
	Manifest Manifest
	Commands []string
	// Files maps file name to content.
	Files map[string]string
}

// Slugify lowercases name and collapses every run of characters outside
// [a-z0-9] into a single hyphen, trimming hyphens at both ends.
func Slugify(name string) string {
	var sb strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			pendingSep = false
			sb.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	if sb.Len() == 0 {
		return DefaultSlug
	}
	return sb.String()
}

// Dependencies derives npm dependencies from markers in source.
func Dependencies(source string) map[string]string {
	deps := maps.Clone(baseDependencies)
	if strings.Contains(source, voiceMarker) {
		maps.Copy(deps, voiceDependencies)
	}
	if strings.Contains(source, streamingMarker) {
		maps.Copy(deps, streamingDependencies)
	}
	return deps
}

// NewManifest builds the package.json document for a bot.
func NewManifest(displayName, source string) Manifest {
	return Manifest{
		Name:        Slugify(displayName),
		Version:     "1.0.0",
		Description: displayName + " - Discord bot created with Discord Bot Maker",
		Main:        FileSource,
		Scripts: Scripts{
			Start: "node " + FileSource,
			Dev:   "node --watch " + FileSource,
		},
		Dependencies: Dependencies(source),
		Engines:      Engines{Node: ">=16.11.0"},
	}
}

// Assemble builds the full package for source, crediting creator.
func Assemble(creator, displayName, source string) (*Package, error) {
	manifest := NewManifest(displayName, source)

	manifestJSON, err := encodeManifest(manifest)
	if err != nil {
		return nil, err
	}

	detected := commands.Detect(source)
	readme, err := renderReadme(readmeData{
		BotName:      displayName,
		Creator:      creator,
		Commands:     detected,
		Dependencies: dependencyLines(manifest.Dependencies),
		NeedsMembers: strings.Contains(source, membersMarker),
	})
	if err != nil {
		return nil, err
	}

	return &Package{
		Slug:     manifest.Name,
		Manifest: manifest,
		Commands: detected,
		Files: map[string]string{
			FileSource:     source,
			FileManifest:   manifestJSON,
			FileReadme:     readme,
			FileEnvExample: envExample,
		},
	}, nil
}

// encodeManifest writes package.json with two-space indentation. HTML
// escaping is off so ">=" survives as written.
func encodeManifest(m Manifest) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return "", fmt.Errorf("failed to encode package.json: %w", err)
	}
	return buf.String(), nil
}

type readmeData struct {
	BotName      string
	Creator      string
	Commands     []string
	Dependencies []string
	NeedsMembers bool
}

func renderReadme(data readmeData) (string, error) {
	var buf bytes.Buffer
	if err := readmeTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render README: %w", err)
	}
	return buf.String(), nil
}

func dependencyLines(deps map[string]string) []string {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	slices.Sort(names)
	lines := make([]string, 0, len(deps))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("`%s` %s", name, deps[name]))
	}
	return lines
}
