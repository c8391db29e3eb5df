// Package discord holds the subset of the Discord interactions wire format
// the bot speaks, plus request signature verification.
package discord

import (
	"encoding/json"
	"strconv"
	"time"
)

// InteractionType discriminates inbound interactions.
type InteractionType int

const (
	InteractionPing               InteractionType = 1
	InteractionApplicationCommand InteractionType = 2
	InteractionComponent          InteractionType = 3
	InteractionAutocomplete       InteractionType = 4
	InteractionModalSubmit        InteractionType = 5
)

// ResponseType discriminates outbound interaction responses.
type ResponseType int

const (
	ResponsePong                     ResponseType = 1
	ResponseChannelMessageWithSource ResponseType = 4
	ResponseDeferredChannelMessage   ResponseType = 5
)

// FlagEphemeral makes a message visible only to the invoking user.
const FlagEphemeral = 1 << 6

// OptionType values used in command definitions.
const (
	OptionString  = 3
	OptionInteger = 4
)

// discordEpoch is the first millisecond of 2015, the origin of snowflake timestamps.
const discordEpoch = 1420070400000

// Interaction is the payload Discord POSTs for every user interaction.
type Interaction struct {
	ID            string          `json:"id"`
	ApplicationID string          `json:"application_id"`
	Type          InteractionType `json:"type"`
	Token         string          `json:"token"`
	Data          *CommandData    `json:"data,omitempty"`
	GuildID       string          `json:"guild_id,omitempty"`
	Member        *Member         `json:"member,omitempty"`
	User          *User           `json:"user,omitempty"`
}

// CommandData names the invoked command and carries its options.
type CommandData struct {
	ID      string          `json:"id,omitempty"`
	Name    string          `json:"name"`
	Options []CommandOption `json:"options,omitempty"`
}

// CommandOption carries one user-supplied option. Value is kept raw
// because Discord sends strings, integers and booleans in the same field.
type CommandOption struct {
	Name  string          `json:"name"`
	Type  int             `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Member is the invoking guild member; it is absent in DMs.
type Member struct {
	User  *User    `json:"user,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// User identifies a Discord account.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// CallerID returns the invoking user's id, from the guild member when the
// command ran in a guild and from the user object in DMs.
func (i *Interaction) CallerID() string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// StringOption returns the named option as a string. Non-string JSON
// values are returned in their literal form.
func (i *Interaction) StringOption(name string) (string, bool) {
	if i.Data == nil {
		return "", false
	}
	for _, o := range i.Data.Options {
		if o.Name != name || len(o.Value) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(o.Value, &s); err == nil {
			return s, true
		}
		return string(o.Value), true
	}
	return "", false
}

// CreatedAt decodes the timestamp embedded in the interaction's snowflake id.
func (i *Interaction) CreatedAt() (time.Time, bool) {
	id, err := strconv.ParseUint(i.ID, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(id>>22) + discordEpoch), true
}

// Response is the JSON body returned to Discord for an interaction.
type Response struct {
	Type ResponseType  `json:"type"`
	Data *ResponseData `json:"data,omitempty"`
}

// ResponseData is the message part of a Response.
type ResponseData struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
	Flags   int     `json:"flags,omitempty"`
}

// Embed is a rich message block; PostEmbed fills one from a cache item.
type Embed struct {
	Title  string       `json:"title,omitempty"`
	URL    string       `json:"url,omitempty"`
	Color  int          `json:"color,omitempty"`
	Image  *EmbedImage  `json:"image,omitempty"`
	Footer *EmbedFooter `json:"footer,omitempty"`
}

// EmbedImage is the large image shown in an Embed.
type EmbedImage struct {
	URL string `json:"url"`
}

// EmbedFooter is the small text line under an Embed.
type EmbedFooter struct {
	Text string `json:"text"`
}

// IsEphemeral reports whether the response is flagged visible to the caller only.
func (r Response) IsEphemeral() bool {
	return r.Data != nil && r.Data.Flags&FlagEphemeral != 0
}

// Command is an application command definition as registered with Discord.
type Command struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Options     []CommandOptDef `json:"options,omitempty"`
}

// CommandOptDef declares one option of a Command.
type CommandOptDef struct {
	Type        int      `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Choices     []Choice `json:"choices,omitempty"`
}

// Choice is a fixed value offered for a CommandOptDef.
type Choice struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
