package bot

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/byytelope/awwbot/pkg/deadline"
	"github.com/byytelope/awwbot/pkg/discord"
	"github.com/byytelope/awwbot/pkg/stats"
)

// handleAww serves a random post for the requested subreddit, from the
// cache when it is fresh and from Reddit otherwise.
func (d *Dispatcher) handleAww(ctx context.Context, in *discord.Interaction) discord.Response {
	source := d.cfg.DefaultSource
	if v, ok := in.StringOption(optionSubreddit); ok && strings.TrimSpace(v) != "" {
		source = strings.ToLower(strings.TrimSpace(v))
	}
	if !d.cfg.IsSource(source) {
		return d.unsupportedSource(source)
	}

	d.stats.RecordSourceRequest(source)

	if item, ok := d.cache.GetRandom(source); ok {
		d.stats.RecordCacheHit()
		d.logger.DebugContext(ctx, "cache hit", "source", source)
		return d.postResponse(item)
	}

	start := d.now()
	items, err := d.fetch(ctx, source)
	elapsed := d.now().Sub(start)
	if err != nil {
		timedOut := deadline.IsTimeout(err)
		d.stats.RecordError(timedOut)
		d.logger.ErrorContext(ctx, "content fetch failed",
			"op", "fetch",
			"source", source,
			"elapsed_ms", elapsed.Milliseconds(),
			"timeout", timedOut,
			"error", err,
		)
		if timedOut {
			return discord.Ephemeral(MsgTimeout)
		}
		return discord.Ephemeral(MsgFetchFailed)
	}

	d.cache.Put(source, items)
	d.stats.RecordCacheMiss()
	d.logger.InfoContext(ctx, "cache refreshed",
		"source", source,
		"items", len(items),
		"elapsed_ms", elapsed.Milliseconds(),
	)

	return d.postResponse(items[d.intn(len(items))])
}

func (d *Dispatcher) handleInvite(_ context.Context, in *discord.Interaction) discord.Response {
	appID := in.ApplicationID
	if appID == "" {
		appID = d.cfg.ApplicationID
	}
	return discord.Ephemeral(discord.InviteURL(appID))
}

func (d *Dispatcher) handlePing(_ context.Context, in *discord.Interaction) discord.Response {
	created, ok := in.CreatedAt()
	if !ok {
		return discord.Message("Pong!")
	}
	latency := d.now().Sub(created).Milliseconds()
	return discord.Message(fmt.Sprintf("Pong! Latency: %dms (rounded to nearest integer)", latency))
}

func (d *Dispatcher) handleHelp(_ context.Context, _ *discord.Interaction) discord.Response {
	var b strings.Builder
	b.WriteString("**Commands**\n")
	for _, c := range Commands(d.cfg) {
		fmt.Fprintf(&b, "`/%s` %s\n", c.Name, c.Description)
	}
	fmt.Fprintf(&b, "Subreddits: %s", joinNames(d.cfg.SourceNames()))
	return discord.Ephemeral(b.String())
}

func (d *Dispatcher) handleStats(_ context.Context, _ *discord.Interaction) discord.Response {
	snap := d.stats.Snapshot()

	var b strings.Builder
	b.WriteString("📊 **awwbot stats**\n")
	fmt.Fprintf(&b, "Uptime: %s\n", stats.FormatUptime(snap.Uptime))
	fmt.Fprintf(&b, "Commands: %d", snap.TotalCommands)
	if len(snap.CommandCounts) > 0 {
		fmt.Fprintf(&b, " (%s)", formatCounts(snap.CommandCounts))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Cache: %d hits / %d misses (%.1f%% hit rate)\n", snap.CacheHits, snap.CacheMisses, snap.HitRate())
	fmt.Fprintf(&b, "Errors: %d (timeouts: %d)\n", snap.Errors, snap.Timeouts)
	fmt.Fprintf(&b, "Subreddits: %s", formatCounts(snap.SourceRequests))
	return discord.Ephemeral(b.String())
}

func (d *Dispatcher) handleHealth(_ context.Context, _ *discord.Interaction) discord.Response {
	snap := d.stats.Snapshot()

	var fresh []string
	for _, e := range d.cache.Entries() {
		if e.Valid {
			fresh = append(fresh, e.Key)
		}
	}
	slices.Sort(fresh)

	var b strings.Builder
	b.WriteString("✅ **Healthy**\n")
	fmt.Fprintf(&b, "Uptime: %s\n", stats.FormatUptime(snap.Uptime))
	fmt.Fprintf(&b, "Fresh subreddits: %d/%d", len(fresh), len(d.cfg.Sources))
	if len(fresh) > 0 {
		fmt.Fprintf(&b, " (%s)", joinNames(fresh))
	}
	fmt.Fprintf(&b, "\nCache TTL: %s · Fetch timeout: %s", d.cache.TTL(), d.cfg.OperationTimeout)
	return discord.Ephemeral(b.String())
}

func joinNames(names []string) string {
	return strings.Join(names, ", ")
}

// formatCounts renders "a: 1, b: 2" sorted by key, or "none".
func formatCounts(m map[string]uint64) string {
	if len(m) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %d", k, m[k]))
	}
	return strings.Join(parts, ", ")
}
