package bot

import (
	"strings"

	"github.com/byytelope/awwbot/pkg/config"
	"github.com/byytelope/awwbot/pkg/discord"
)

// CommandKind is the closed set of slash commands the bot understands.
type CommandKind int

const (
	KindUnknown CommandKind = iota
	KindAww
	KindInvite
	KindPing
	KindHelp
	KindStats
	KindHealth
)

const optionSubreddit = "subreddit"

var kindNames = map[CommandKind]string{
	KindAww:    "awwww",
	KindInvite: "invite",
	KindPing:   "ping",
	KindHelp:   "help",
	KindStats:  "stats",
	KindHealth: "health",
}

var kindsByName = func() map[string]CommandKind {
	m := make(map[string]CommandKind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

func (k CommandKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// AdminOnly reports whether the command is restricted to the owner.
func (k CommandKind) AdminOnly() bool {
	return k == KindStats || k == KindHealth
}

// ParseKind maps a command name to its kind, ignoring case.
func ParseKind(name string) CommandKind {
	if k, ok := kindsByName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return k
	}
	return KindUnknown
}

// Commands returns the definitions to register with Discord. The content
// command offers the configured subreddits as fixed choices.
func Commands(cfg *config.Config) []discord.Command {
	choices := make([]discord.Choice, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		label := s.Label
		if label == "" {
			label = "r/" + s.Name
		}
		choices = append(choices, discord.Choice{Name: label, Value: s.Name})
	}

	return []discord.Command{
		{
			Name:        KindAww.String(),
			Description: "Drop some cuteness on this channel.",
			Options: []discord.CommandOptDef{{
				Type:        discord.OptionString,
				Name:        optionSubreddit,
				Description: "Choose which subreddit to get cute content from",
				Choices:     choices,
			}},
		},
		{Name: KindInvite.String(), Description: "Get an invite link to add the bot to your server"},
		{Name: KindPing.String(), Description: "Check latency stats of the bot."},
		{Name: KindHelp.String(), Description: "List the available commands."},
		{Name: KindStats.String(), Description: "Show usage statistics (owner only)."},
		{Name: KindHealth.String(), Description: "Show cache and service health (owner only)."},
	}
}
