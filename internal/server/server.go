// Package server exposes the copilot over HTTP. A turn endpoint streams UI
// snapshots as server-sent events while the graph runs, then closes with the
// turn delta.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cms-copilot/server/internal/agent/graph"
	"github.com/cms-copilot/server/internal/agent/model"
	"github.com/cms-copilot/server/internal/agent/repo"
	logx "github.com/cms-copilot/server/pkg/logger"
)

type Server struct {
	echo        *echo.Echo
	runner      graph.Runner
	checkpoints repo.CheckpointRepository
	addr        string
	turnTimeout time.Duration
}

func New(runner graph.Runner, checkpoints repo.CheckpointRepository, cfg model.ServerConfig) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:        e,
		runner:      runner,
		checkpoints: checkpoints,
		addr:        cfg.Addr,
		turnTimeout: cfg.ParseTurnTimeout(),
	}

	e.POST("/api/conversations/:id/turns", s.handleTurn)
	e.DELETE("/api/conversations/:id", s.handleClear)
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return s
}

func (s *Server) Start() error {
	logx.Info().Str("addr", s.addr).Msg("http server listening")
	return s.echo.Start(s.addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type turnRequest struct {
	UserText     string `json:"user_text"`
	TenantID     string `json:"tenant_id"`
	SiteID       string `json:"site_id"`
	DirectIntent string `json:"direct_intent"`
}

type turnResult struct {
	delta *model.TurnDelta
	err   error
}

// handleTurn runs one conversation turn. Clients that accept
// text/event-stream get every UI snapshot as its own event followed by a
// final delta event; everyone else gets the delta as a plain JSON body.
func (s *Server) handleTurn(c echo.Context) error {
	conversationID := c.Param("id")
	if conversationID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "conversation id is required")
	}

	var req turnRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.UserText) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_text is required")
	}

	in := &model.TurnInput{
		ConversationID: conversationID,
		TenantID:       req.TenantID,
		SiteID:         req.SiteID,
		UserText:       req.UserText,
		DirectIntent:   model.Intent(req.DirectIntent),
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.turnTimeout)
	defer cancel()

	if wantsEventStream(c) {
		return s.streamTurn(c, ctx, in)
	}

	delta, err := s.runner.RunTurn(ctx, in, nil)
	if err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("turn failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "turn failed")
	}
	return c.JSON(http.StatusOK, delta)
}

func wantsEventStream(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), "text/event-stream")
}

func (s *Server) streamTurn(c echo.Context, ctx context.Context, in *model.TurnInput) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	events := make(chan model.UISnapshot, 16)
	done := make(chan turnResult, 1)

	go func() {
		delta, err := s.runner.RunTurn(ctx, in, func(snap model.UISnapshot) {
			select {
			case events <- snap:
			case <-ctx.Done():
			}
		})
		close(events)
		done <- turnResult{delta: delta, err: err}
	}()

	for snap := range events {
		if err := writeEvent(res, "ui", snap); err != nil {
			// Client went away; let the turn finish so state still persists.
			logx.Warn().Err(err).Str("conversation_id", in.ConversationID).Msg("sse write failed")
			<-done
			return nil
		}
	}

	out := <-done
	if out.err != nil {
		logx.Error().Err(out.err).Str("conversation_id", in.ConversationID).Msg("turn failed")
		return writeEvent(res, "error", map[string]string{"error": out.err.Error()})
	}
	return writeEvent(res, "delta", out.delta)
}

func writeEvent(res *echo.Response, event string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sse payload: %w", err)
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, b); err != nil {
		return err
	}
	res.Flush()
	return nil
}

// handleClear drops the persisted conversation state.
func (s *Server) handleClear(c echo.Context) error {
	conversationID := c.Param("id")
	if conversationID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "conversation id is required")
	}
	if err := s.checkpoints.Clear(c.Request().Context(), conversationID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to clear conversation")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
