package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/byytelope/awwbot/pkg/stats"
)

const getStatsProcedure = "/" + statsServiceName + "/GetStats"

var errBadToken = errors.New("invalid admin token")

// GetStats reports the usage counters and the state of every cached subreddit.
func (s *server) GetStats(
	ctx context.Context,
	_ *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	snap := s.dispatcher.Stats().Snapshot()
	ents := s.dispatcher.Cache().Entries()

	entries := make([]any, 0, len(ents))
	for _, e := range ents {
		entries = append(entries, map[string]any{
			"source":     e.Key,
			"size":       e.Size,
			"created_at": e.CreatedAt.Format(time.RFC3339),
			"expires_at": e.ExpiresAt.Format(time.RFC3339),
			"valid":      e.Valid,
		})
	}

	out, err := structpb.NewStruct(map[string]any{
		"uptime":          stats.FormatUptime(snap.Uptime),
		"uptime_seconds":  int64(snap.Uptime / time.Second),
		"total_commands":  snap.TotalCommands,
		"command_counts":  countsToAny(snap.CommandCounts),
		"cache_hits":      snap.CacheHits,
		"cache_misses":    snap.CacheMisses,
		"hit_rate":        snap.HitRate(),
		"errors":          snap.Errors,
		"timeouts":        snap.Timeouts,
		"source_requests": countsToAny(snap.SourceRequests),
		"cache_entries":   entries,
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(out), nil
}

func countsToAny(m map[string]uint64) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// adminAuth rejects calls that do not carry "Authorization: Bearer <token>".
func adminAuth(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			got, ok := strings.CutPrefix(req.Header().Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return nil, connect.NewError(connect.CodeUnauthenticated, errBadToken)
			}
			return next(ctx, req)
		}
	}
}

func waitForShutdown(hs *http.Server, s *server, timeout time.Duration) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
	s.logger.Info("shutting down...")
	s.checker.SetStatus("", grpchealth.StatusNotServing)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := hs.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
	}
}
