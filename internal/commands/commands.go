// Package commands finds known chat commands in bot source text.
//
// Detection is plain case-sensitive substring containment, so a trigger inside
// a comment or string literal counts the same as a registered command.
package commands

import "strings"

// NoCommandsDetected is returned when no known trigger appears in the source.
const NoCommandsDetected = "No commands detected"

// Command pairs a trigger substring with its human-readable description.
type Command struct {
	Trigger     string
	Description string
}

// Known is the ordered trigger table. Detect reports matches in this order.
var Known = []Command{
	{"!ping", "!ping - Check if the bot is responsive"},
	{"!hello", "!hello - Get a friendly greeting"},
	{"!help", "!help - Show the list of commands"},
	{"!kick", "!kick @user - Kick a member from the server"},
	{"!ban", "!ban @user - Ban a member from the server"},
	{"!clear", "!clear <amount> - Bulk delete recent messages"},
	{"!play", "!play <song> - Add a song to the queue"},
	{"!stop", "!stop - Stop playback and clear the queue"},
	{"!skip", "!skip - Skip the current song"},
	{"!balance", "!balance - Show your coin balance"},
	{"!daily", "!daily - Claim your daily reward"},
	{"!work", "!work - Work to earn coins"},
	{"!leaderboard", "!leaderboard - Show the top users"},
	{"!level", "!level - Show your level and XP"},
	{"!setup-tickets", "!setup-tickets - Post the ticket creation panel"},
	{"!giveaway", "!giveaway <duration> <prize> - Start a giveaway"},
}

// Detect returns descriptions of every known trigger contained in source,
// or a single NoCommandsDetected entry when none match.
func Detect(source string) []string {
	var found []string
	for _, c := range Known {
		if strings.Contains(source, c.Trigger) {
			found = append(found, c.Description)
		}
	}
	if len(found) == 0 {
		return []string{NoCommandsDetected}
	}
	return found
}
