package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"connectrpc.com/grpcreflect"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/byytelope/awwbot/pkg/bot"
	"github.com/byytelope/awwbot/pkg/config"
	"github.com/byytelope/awwbot/pkg/deadline"
	"github.com/byytelope/awwbot/pkg/discord"
)

const (
	interactionServiceName = "awwbot.v1.InteractionService"
	statsServiceName       = "awwbot.v1.StatsService"
	healthServiceName      = "grpc.health.v1.Health"

	// Discord interaction payloads are small; anything larger is not from Discord.
	maxBodyBytes = 1 << 20

	msgNotFound     = "Not Found."
	msgBadSignature = "Bad request signature."
	msgBadRequest   = "Bad request."
)

type server struct {
	cfg        *config.Config
	dispatcher *bot.Dispatcher
	verifier   *discord.Verifier
	registry   *prometheus.Registry
	checker    *grpchealth.StaticChecker
	logger     *slog.Logger
}

func newServer(cfg *config.Config, d *bot.Dispatcher, v *discord.Verifier, reg *prometheus.Registry, logger *slog.Logger) *server {
	return &server{
		cfg:        cfg,
		dispatcher: d,
		verifier:   v,
		registry:   reg,
		checker:    grpchealth.NewStaticChecker(interactionServiceName, statsServiceName),
		logger:     logger,
	}
}

// handler mounts the Connect services next to the echo app that serves
// Discord and the plain HTTP endpoints.
func (s *server) handler() http.Handler {
	reflector := grpcreflect.NewStaticReflector(healthServiceName)

	mux := http.NewServeMux()
	mux.Handle(grpcreflect.NewHandlerV1(reflector))
	mux.Handle(grpcreflect.NewHandlerV1Alpha(reflector))
	mux.Handle(grpchealth.NewHandler(s.checker))
	if s.cfg.AdminToken != "" {
		mux.Handle(getStatsProcedure, connect.NewUnaryHandler(
			getStatsProcedure,
			s.GetStats,
			connect.WithInterceptors(unaryLogging(s.logger), adminAuth(s.cfg.AdminToken)),
		))
	}
	mux.Handle("/", s.app())

	return mux
}

func (s *server) app() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpError

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger(s.logger))
	e.Use(middleware.Recover())

	e.GET("/", s.handleRoot)
	e.POST("/", s.handleInteraction)
	e.POST("/interactions", s.handleInteraction)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	return e
}

// httpError answers every unmatched route or method with a plain 404.
func (s *server) httpError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) && (he.Code == http.StatusNotFound || he.Code == http.StatusMethodNotAllowed) {
		_ = c.String(http.StatusNotFound, msgNotFound)
		return
	}

	s.logger.ErrorContext(c.Request().Context(), "unhandled error", "error", err)
	c.Echo().DefaultHTTPErrorHandler(err, c)
}

func (s *server) handleRoot(c echo.Context) error {
	return c.String(http.StatusOK, "👋 "+s.cfg.ApplicationID)
}

func (s *server) handleInteraction(c echo.Context) error {
	req := c.Request()
	ctx := req.Context()

	body, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes))
	if err != nil {
		return c.String(http.StatusBadRequest, msgBadRequest)
	}

	if !s.verifier.VerifyRequest(req.Header, body) {
		s.logger.WarnContext(ctx, "invalid request signature",
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		)
		return c.String(http.StatusUnauthorized, msgBadSignature)
	}

	var in discord.Interaction
	if err := json.Unmarshal(body, &in); err != nil {
		s.logger.WarnContext(ctx, "malformed interaction", "error", err)
		return c.JSON(http.StatusBadRequest, discord.Ephemeral(msgBadRequest))
	}

	res, err := deadline.Run(ctx, s.cfg.ResponseDeadline, "interaction", func(ctx context.Context) (bot.Result, error) {
		return s.dispatcher.Handle(ctx, &in), nil
	})
	if err != nil {
		timedOut := deadline.IsTimeout(err)
		s.logger.ErrorContext(ctx, "interaction failed",
			"interaction_id", in.ID,
			"type", int(in.Type),
			"timeout", timedOut,
			"error", err,
		)
		msg := bot.MsgFetchFailed
		if timedOut {
			msg = bot.MsgTimeout
		}
		res = bot.Result{Status: http.StatusOK, Response: discord.Ephemeral(msg)}
	}

	return c.JSON(res.Status, res.Response)
}
