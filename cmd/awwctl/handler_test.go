package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/byytelope/awwbot/pkg/config"
	"github.com/byytelope/awwbot/pkg/discord"
)

func newDaemon(t *testing.T, checker grpchealth.Checker) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.Handle(grpchealth.NewHandler(checker))
	mux.Handle(getStatsProcedure, connect.NewUnaryHandler(getStatsProcedure,
		func(_ context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
			if req.Header().Get("Authorization") != "Bearer tok" {
				return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("invalid admin token"))
			}
			msg, err := structpb.NewStruct(map[string]any{
				"uptime":          "3m 4s",
				"total_commands":  3,
				"command_counts":  map[string]any{"awwww": 2, "stats": 1},
				"cache_hits":      1,
				"cache_misses":    1,
				"hit_rate":        50.0,
				"errors":          0,
				"timeouts":        0,
				"source_requests": map[string]any{"aww": 2},
				"cache_entries": []any{map[string]any{
					"source":     "aww",
					"size":       25,
					"valid":      true,
					"expires_at": "2024-06-01T12:05:00Z",
				}},
			})
			if err != nil {
				return nil, err
			}
			return connect.NewResponse(msg), nil
		},
	))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newHandler(srv *httptest.Server, token string) (*Handler, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return &Handler{
		httpClient: srv.Client(),
		addr:       srv.URL,
		token:      token,
		out:        &out,
		err:        &errOut,
	}, &out, &errOut
}

func TestStats(t *testing.T) {
	srv := newDaemon(t, grpchealth.NewStaticChecker())
	h, out, _ := newHandler(srv, "tok")

	require.NoError(t, h.Stats(context.Background()))

	got := out.String()
	assert.Contains(t, got, "Uptime:    3m 4s")
	assert.Contains(t, got, "Commands:  3 (awwww: 2, stats: 1)")
	assert.Contains(t, got, "Cache:     1 hits / 1 misses (50.0% hit rate)")
	assert.Contains(t, got, "Requests:  aww: 2")
	assert.Contains(t, got, "SUBREDDIT")
	assert.Regexp(t, `aww\s+25\s+true\s+2024-06-01T12:05:00Z`, got)
}

func TestStatsUnauthenticated(t *testing.T) {
	srv := newDaemon(t, grpchealth.NewStaticChecker())
	h, out, errOut := newHandler(srv, "")

	err := h.Stats(context.Background())
	require.Error(t, err)
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "Stats error:")
}

func TestHealth(t *testing.T) {
	checker := grpchealth.NewStaticChecker("awwbot.v1.StatsService")
	srv := newDaemon(t, checker)
	h, out, _ := newHandler(srv, "")

	require.NoError(t, h.Health(context.Background(), ""))
	assert.Equal(t, "(server): SERVING\n", out.String())

	out.Reset()
	checker.SetStatus("awwbot.v1.StatsService", grpchealth.StatusNotServing)
	err := h.Health(context.Background(), "awwbot.v1.StatsService")
	require.Error(t, err)
	assert.Equal(t, "awwbot.v1.StatsService: NOT_SERVING\n", out.String())
}

func TestServingStatus(t *testing.T) {
	tests := map[string]string{
		"SERVING_STATUS_SERVING":         "SERVING",
		"SERVING_STATUS_NOT_SERVING":     "NOT_SERVING",
		"SERVING_STATUS_SERVICE_UNKNOWN": "SERVICE_UNKNOWN",
		"SERVING":                        "SERVING",
		"":                               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, servingStatus(in), in)
	}
}

func TestCommands(t *testing.T) {
	var out bytes.Buffer
	h := &Handler{out: &out}

	cfg := config.Default()
	require.NoError(t, h.Commands(cfg))

	var cmds []discord.Command
	require.NoError(t, json.Unmarshal(out.Bytes(), &cmds))

	names := make([]string, 0, len(cmds))
	for _, c := range cmds {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"awwww", "invite", "ping", "help", "stats", "health"}, names)
	require.Len(t, cmds[0].Options, 1)
	assert.Len(t, cmds[0].Options[0].Choices, len(cfg.Sources))
}

func TestRootCmd(t *testing.T) {
	srv := newDaemon(t, grpchealth.NewStaticChecker())

	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs([]string{"health", "--addr", srv.URL + "/"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "(server): SERVING\n", out.String())

	out.Reset()
	root = newRootCmd(&out, &errOut)
	root.SetArgs([]string{"stats", "extra"})
	assert.Error(t, root.Execute())
}
