package discord

import (
	"fmt"
	"net/url"

	"github.com/byytelope/awwbot/pkg/cache"
)

// DefaultEmbedColor is Reddit orange.
const DefaultEmbedColor = 0xff4500

// Pong acknowledges the webhook handshake.
func Pong() Response {
	return Response{Type: ResponsePong}
}

// Message is a plain channel message visible to everyone.
func Message(content string) Response {
	return Response{
		Type: ResponseChannelMessageWithSource,
		Data: &ResponseData{Content: content},
	}
}

// Ephemeral is a message only the invoking user sees. Errors always use it.
func Ephemeral(content string) Response {
	r := Message(content)
	r.Data.Flags = FlagEphemeral
	return r
}

// EmbedMessage is a public channel message carrying a single embed.
func EmbedMessage(e Embed) Response {
	return Response{
		Type: ResponseChannelMessageWithSource,
		Data: &ResponseData{Embeds: []Embed{e}},
	}
}

// PostEmbed renders a content item as an image embed linking back to the post.
func PostEmbed(item cache.Item, color int) Embed {
	return Embed{
		Title: item.Title,
		URL:   item.Permalink,
		Color: color,
		Image: &EmbedImage{URL: item.URL},
		Footer: &EmbedFooter{
			Text: fmt.Sprintf("👍 %d upvotes • Posted by u/%s in r/%s", item.Score, item.Author, item.Source),
		},
	}
}

// InviteURL builds the OAuth2 link that installs the application's commands.
func InviteURL(applicationID string) string {
	q := url.Values{}
	q.Set("client_id", applicationID)
	q.Set("scope", "applications.commands")
	return "https://discord.com/oauth2/authorize?" + q.Encode()
}
