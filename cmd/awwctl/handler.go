package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"text/tabwriter"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/byytelope/awwbot/pkg/bot"
	"github.com/byytelope/awwbot/pkg/config"
)

const (
	getStatsProcedure = "/awwbot.v1.StatsService/GetStats"
	healthProcedure   = "/grpc.health.v1.Health/Check"
)

// Handler runs awwctl subcommands against one daemon and writes their output.
type Handler struct {
	httpClient *http.Client
	addr       string
	token      string
	out        io.Writer
	err        io.Writer
}

// Stats prints the daemon's usage counters and a table of cached subreddits.
func (h *Handler) Stats(ctx context.Context) error {
	client := connect.NewClient[emptypb.Empty, structpb.Struct](h.httpClient, h.addr+getStatsProcedure)

	req := connect.NewRequest(&emptypb.Empty{})
	if h.token != "" {
		req.Header().Set("Authorization", "Bearer "+h.token)
	}

	res, err := client.CallUnary(ctx, req)
	if err != nil {
		fmt.Fprintln(h.err, "Stats error:", err)
		return err
	}

	f := res.Msg.GetFields()
	fmt.Fprintf(h.out, "Uptime:    %s\n", f["uptime"].GetStringValue())
	fmt.Fprintf(h.out, "Commands:  %.0f (%s)\n", f["total_commands"].GetNumberValue(), counts(f["command_counts"]))
	fmt.Fprintf(h.out, "Cache:     %.0f hits / %.0f misses (%.1f%% hit rate)\n",
		f["cache_hits"].GetNumberValue(), f["cache_misses"].GetNumberValue(), f["hit_rate"].GetNumberValue())
	fmt.Fprintf(h.out, "Errors:    %.0f (timeouts: %.0f)\n", f["errors"].GetNumberValue(), f["timeouts"].GetNumberValue())
	fmt.Fprintf(h.out, "Requests:  %s\n\n", counts(f["source_requests"]))

	tw := tabwriter.NewWriter(h.out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBREDDIT\tITEMS\tVALID\tEXPIRES")
	for _, v := range f["cache_entries"].GetListValue().GetValues() {
		e := v.GetStructValue().GetFields()
		fmt.Fprintf(tw, "%s\t%.0f\t%t\t%s\n",
			e["source"].GetStringValue(),
			e["size"].GetNumberValue(),
			e["valid"].GetBoolValue(),
			e["expires_at"].GetStringValue(),
		)
	}

	return tw.Flush()
}

// Health calls the standard gRPC health service. The Connect JSON codec lets
// the well-known Struct type stand in for the health response message.
func (h *Handler) Health(ctx context.Context, service string) error {
	client := connect.NewClient[structpb.Struct, structpb.Struct](
		h.httpClient,
		h.addr+healthProcedure,
		connect.WithProtoJSON(),
	)

	msg, err := structpb.NewStruct(map[string]any{"service": service})
	if err != nil {
		return err
	}

	res, err := client.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		fmt.Fprintln(h.err, "Health error:", err)
		return err
	}

	status := servingStatus(res.Msg.GetFields()["status"].GetStringValue())
	name := service
	if name == "" {
		name = "(server)"
	}
	fmt.Fprintf(h.out, "%s: %s\n", name, status)

	if status != "SERVING" {
		return fmt.Errorf("%s is %s", name, status)
	}
	return nil
}

// servingStatus drops the enum prefix grpchealth puts on its JSON status
// names, so "SERVING_STATUS_SERVING" reads as "SERVING".
func servingStatus(s string) string {
	return strings.TrimPrefix(s, "SERVING_STATUS_")
}

// Commands prints the slash command definitions as JSON, ready to PUT to
// Discord's application commands endpoint.
func (h *Handler) Commands(cfg *config.Config) error {
	enc := json.NewEncoder(h.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(bot.Commands(cfg)); err != nil {
		fmt.Fprintln(h.err, "Commands error:", err)
		return err
	}
	return nil
}

func counts(v *structpb.Value) string {
	fields := v.GetStructValue().GetFields()
	if len(fields) == 0 {
		return "none"
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %.0f", k, fields[k].GetNumberValue()))
	}
	return strings.Join(parts, ", ")
}
