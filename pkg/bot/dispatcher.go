// Package bot routes verified Discord interactions to command handlers and
// serves cached subreddit content within Discord's response deadline.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/byytelope/awwbot/pkg/cache"
	"github.com/byytelope/awwbot/pkg/config"
	"github.com/byytelope/awwbot/pkg/deadline"
	"github.com/byytelope/awwbot/pkg/discord"
	"github.com/byytelope/awwbot/pkg/reddit"
	"github.com/byytelope/awwbot/pkg/stats"
)

// User-facing messages.
const (
	MsgFetchFailed       = "Sorry, I encountered an error fetching cute content. Please try again later! 😿"
	MsgTimeout           = "Sorry, the request took too long to process. Please try again! ⏱️"
	MsgUnauthorized      = "You are not authorized to use this command."
	MsgUnknownCommand    = "Unknown command"
	MsgUnknownType       = "Unknown interaction type"
	MsgModalSubmitted    = "Thanks for submitting!"
	msgUnsupportedSource = "r/%s isn't one of my subreddits. Try one of: %s"
)

// Fetcher loads fresh content for a subreddit.
type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]cache.Item, error)
}

// Result is a routed interaction: the HTTP status to answer with and the body.
type Result struct {
	Status   int
	Response discord.Response
}

type handlerFunc func(d *Dispatcher, ctx context.Context, in *discord.Interaction) discord.Response

// Dispatcher owns the cache, fetcher and stats used to answer interactions.
// A single Dispatcher serves all requests concurrently.
type Dispatcher struct {
	cfg      *config.Config
	cache    *cache.Cache
	fetcher  Fetcher
	stats    *stats.Stats
	logger   *slog.Logger
	now      func() time.Time
	intn     func(n int) int
	handlers map[CommandKind]handlerFunc
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock replaces time.Now for latency and duration measurements.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithRand replaces the index picker used right after a cache refresh.
func WithRand(intn func(n int) int) Option {
	return func(d *Dispatcher) { d.intn = intn }
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher wires a Dispatcher around its collaborators.
func NewDispatcher(cfg *config.Config, c *cache.Cache, f Fetcher, s *stats.Stats, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		cfg:     cfg,
		cache:   c,
		fetcher: f,
		stats:   s,
		logger:  slog.Default(),
		now:     time.Now,
		intn:    rand.IntN,
		handlers: map[CommandKind]handlerFunc{
			KindAww:    (*Dispatcher).handleAww,
			KindInvite: (*Dispatcher).handleInvite,
			KindPing:   (*Dispatcher).handlePing,
			KindHelp:   (*Dispatcher).handleHelp,
			KindStats:  adminOnly((*Dispatcher).handleStats),
			KindHealth: adminOnly((*Dispatcher).handleHealth),
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle routes one verified interaction. It never returns an error: every
// failure past signature verification becomes a user-visible response.
func (d *Dispatcher) Handle(ctx context.Context, in *discord.Interaction) Result {
	switch in.Type {
	case discord.InteractionPing:
		return Result{http.StatusOK, discord.Pong()}

	case discord.InteractionModalSubmit:
		return Result{http.StatusOK, discord.Message(MsgModalSubmitted)}

	case discord.InteractionApplicationCommand:
		name := ""
		if in.Data != nil {
			name = in.Data.Name
		}
		kind := ParseKind(name)
		if kind == KindUnknown {
			d.logger.WarnContext(ctx, "unknown command", "command", name)
			return Result{http.StatusBadRequest, discord.Ephemeral(MsgUnknownCommand)}
		}

		start := d.now()
		d.stats.RecordCommand(kind.String())
		res := d.handlers[kind](d, ctx, in)
		d.logger.InfoContext(ctx, "command handled",
			"command", kind.String(),
			"caller", in.CallerID(),
			"duration_ms", d.now().Sub(start).Milliseconds(),
		)
		return Result{http.StatusOK, res}
	}

	d.logger.WarnContext(ctx, "unknown interaction type", "type", int(in.Type))
	return Result{http.StatusBadRequest, discord.Ephemeral(MsgUnknownType)}
}

// Stats exposes the dispatcher's counters for other surfaces (RPC, metrics).
func (d *Dispatcher) Stats() *stats.Stats {
	return d.stats
}

// Cache exposes the content cache for health reporting.
func (d *Dispatcher) Cache() *cache.Cache {
	return d.cache
}

func (d *Dispatcher) authorized(in *discord.Interaction) bool {
	return d.cfg.OwnerID != "" && in.CallerID() == d.cfg.OwnerID
}

// adminOnly answers with a fixed refusal unless the caller is the owner.
// Refusals are not counted as errors.
func adminOnly(h handlerFunc) handlerFunc {
	return func(d *Dispatcher, ctx context.Context, in *discord.Interaction) discord.Response {
		if !d.authorized(in) {
			d.logger.WarnContext(ctx, "unauthorized admin command", "caller", in.CallerID())
			return discord.Ephemeral(MsgUnauthorized)
		}
		return h(d, ctx, in)
	}
}

func (d *Dispatcher) postResponse(item cache.Item) discord.Response {
	return discord.EmbedMessage(discord.PostEmbed(item, d.cfg.EmbedColor))
}

// fetch bounds the upstream call by the operation timeout. The fetch is not
// cancelled on timeout; its late result is discarded.
func (d *Dispatcher) fetch(ctx context.Context, source string) ([]cache.Item, error) {
	items, err := deadline.Run(ctx, d.cfg.OperationTimeout, "fetch", func(ctx context.Context) ([]cache.Item, error) {
		return d.fetcher.Fetch(ctx, source)
	})
	if err == nil && len(items) == 0 {
		err = reddit.ErrNoValidPosts
	}
	return items, err
}

func (d *Dispatcher) unsupportedSource(source string) discord.Response {
	return discord.Ephemeral(fmt.Sprintf(msgUnsupportedSource, source, joinNames(d.cfg.SourceNames())))
}
