package discord

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byytelope/awwbot/pkg/cache"
)

func TestVerifier(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	v, err := NewVerifier(hex.EncodeToString(pub))
	require.NoError(t, err)

	body := []byte(`{"type":1}`)
	ts := "1700000000"
	sig := hex.EncodeToString(ed25519.Sign(priv, append([]byte(ts), body...)))

	assert.True(t, v.Verify(sig, ts, body))
	assert.False(t, v.Verify(sig, "1700000001", body), "timestamp is part of the signed message")
	assert.False(t, v.Verify(sig, ts, []byte(`{"type":2}`)))
	assert.False(t, v.Verify("zz", ts, body))
	assert.False(t, v.Verify("", ts, body))
	assert.False(t, v.Verify(sig, "", body))

	h := http.Header{}
	h.Set(HeaderSignature, sig)
	h.Set(HeaderTimestamp, ts)
	assert.True(t, v.VerifyRequest(h, body))
}

func TestNewVerifierRejectsBadKeys(t *testing.T) {
	_, err := NewVerifier("not-hex")
	assert.ErrorIs(t, err, ErrInvalidPublicKey)

	_, err = NewVerifier("abcd")
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestInteractionDecoding(t *testing.T) {
	raw := `{
		"id":"1170000000000000000",
		"application_id":"42",
		"type":2,
		"token":"tok",
		"data":{"name":"AWWWW","options":[{"name":"subreddit","type":3,"value":"cats"},{"name":"count","type":4,"value":3}]},
		"member":{"user":{"id":"111"},"roles":["r1"]}
	}`

	var in Interaction
	require.NoError(t, json.Unmarshal([]byte(raw), &in))

	assert.Equal(t, InteractionApplicationCommand, in.Type)
	assert.Equal(t, "111", in.CallerID())

	v, ok := in.StringOption("subreddit")
	assert.True(t, ok)
	assert.Equal(t, "cats", v)

	v, ok = in.StringOption("count")
	assert.True(t, ok)
	assert.Equal(t, "3", v)

	_, ok = in.StringOption("missing")
	assert.False(t, ok)
}

func TestCallerIDFromDM(t *testing.T) {
	in := Interaction{User: &User{ID: "222"}}
	assert.Equal(t, "222", in.CallerID())
	assert.Empty(t, (&Interaction{}).CallerID())
}

func TestCreatedAt(t *testing.T) {
	// 1000ms after the Discord epoch, shifted into the timestamp bits.
	in := Interaction{ID: "4194304000"}
	got, ok := in.CreatedAt()
	require.True(t, ok)
	assert.Equal(t, time.UnixMilli(discordEpoch+1000), got)

	_, ok = (&Interaction{ID: "abc"}).CreatedAt()
	assert.False(t, ok)
}

func TestResponses(t *testing.T) {
	pong, err := json.Marshal(Pong())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":1}`, string(pong))

	msg, err := json.Marshal(Message("hi"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":4,"data":{"content":"hi"}}`, string(msg))

	eph := Ephemeral("secret")
	assert.True(t, eph.IsEphemeral())
	assert.False(t, Message("x").IsEphemeral())
	assert.False(t, Pong().IsEphemeral())
}

func TestPostEmbed(t *testing.T) {
	item := cache.Item{
		URL:       "https://i.redd.it/cute.jpg",
		Title:     "A cat",
		Author:    "alice",
		Score:     42,
		Permalink: "https://www.reddit.com/r/aww/comments/1/",
		Source:    "aww",
	}

	res, err := json.Marshal(EmbedMessage(PostEmbed(item, DefaultEmbedColor)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":4,"data":{"embeds":[{
		"title":"A cat",
		"url":"https://www.reddit.com/r/aww/comments/1/",
		"color":16729344,
		"image":{"url":"https://i.redd.it/cute.jpg"},
		"footer":{"text":"👍 42 upvotes • Posted by u/alice in r/aww"}
	}]}}`, string(res))
}

func TestInviteURL(t *testing.T) {
	assert.Equal(t,
		"https://discord.com/oauth2/authorize?client_id=123&scope=applications.commands",
		InviteURL("123"))
}
