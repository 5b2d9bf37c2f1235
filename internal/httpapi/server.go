// Package httpapi exposes a read-only ops API over the issue store. It
// serves pipeline counters and issue listings for dashboards and manual
// review; all writes go through the CLI pipeline commands.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"hotissue.kr/ember/internal/db"
	"hotissue.kr/ember/internal/globaltime"
)

const (
	defaultListLimit = 25
	maxListLimit     = 200
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	pool   *db.Pool
	logger zerolog.Logger
	opts   Options
}

type issueDetail struct {
	Issue     db.IssueRow           `json:"issue"`
	News      []db.NewsItemRow      `json:"news"`
	Community []db.CommunityItemRow `json:"community"`
}

func NewServer(pool *db.Pool, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		pool:   pool,
		logger: logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/stats", s.handleStats)
	api.GET("/issues", s.handleIssues)
	api.GET("/issues/:issue_id", s.handleIssueDetail)
	api.GET("/candidates", s.handleCandidates)

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("ember ops server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("ember ops server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "ember",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.pool.QueryPipelineStats(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query pipeline stats failed")
		return internalError(c, "Failed to load stats")
	}
	return success(c, stats)
}

func (s *Server) handleIssues(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultListLimit, 1, maxListLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	status := strings.TrimSpace(c.QueryParam("status"))
	if status != "" && status != db.StatusIgnite && status != db.StatusDebated && status != db.StatusClosed {
		return failValidation(c, map[string]string{"status": "must be 점화, 논란중 or 종결"})
	}
	approval := strings.TrimSpace(c.QueryParam("approval"))
	if approval != "" && approval != db.ApprovalPending && approval != db.ApprovalApproved && approval != db.ApprovalRejected {
		return failValidation(c, map[string]string{"approval": "must be 대기, 승인 or 반려"})
	}

	items, err := s.pool.ListIssueSummaries(c.Request().Context(), db.IssueListOptions{
		Status:         status,
		ApprovalStatus: approval,
		Limit:          limit,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("query issues failed")
		return internalError(c, "Failed to load issues")
	}

	return success(c, map[string]any{
		"items": items,
		"filters": map[string]any{
			"status":   status,
			"approval": approval,
			"limit":    limit,
		},
	})
}

func (s *Server) handleIssueDetail(c echo.Context) error {
	issueID, err := strconv.ParseInt(strings.TrimSpace(c.Param("issue_id")), 10, 64)
	if err != nil || issueID <= 0 {
		return failValidation(c, map[string]string{"issue_id": "must be a positive integer"})
	}

	ctx := c.Request().Context()
	issue, found, err := s.pool.GetIssueByID(ctx, issueID)
	if err != nil {
		s.logger.Error().Err(err).Int64("issue_id", issueID).Msg("query issue failed")
		return internalError(c, "Failed to load issue")
	}
	if !found {
		return failNotFound(c, "Issue not found")
	}

	news, err := s.pool.ListNewsByIssue(ctx, issueID)
	if err != nil {
		s.logger.Error().Err(err).Int64("issue_id", issueID).Msg("query issue news failed")
		return internalError(c, "Failed to load issue members")
	}
	community, err := s.pool.ListCommunityByIssue(ctx, issueID)
	if err != nil {
		s.logger.Error().Err(err).Int64("issue_id", issueID).Msg("query issue community failed")
		return internalError(c, "Failed to load issue members")
	}

	return success(c, issueDetail{
		Issue:     issue,
		News:      news,
		Community: community,
	})
}

func (s *Server) handleCandidates(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultListLimit, 1, maxListLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	items, err := s.pool.ListPendingCandidates(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("query candidates failed")
		return internalError(c, "Failed to load candidates")
	}

	return success(c, map[string]any{
		"items": items,
		"limit": limit,
	})
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}
