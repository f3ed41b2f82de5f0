package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/celltrans/internal/db"
	"horse.fit/celltrans/internal/globaltime"
	"horse.fit/celltrans/internal/translation"
)

var errBodyTooLarge = errors.New("request body is too large")

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// AdminTokenHash is the bcrypt hash guarding backend updates. Empty
	// disables the update endpoint.
	AdminTokenHash     string
	CORSAllowedOrigins []string
	MaxBodyBytes       int64
}

func (o Options) withDefaults() Options {
	o.Host = strings.TrimSpace(o.Host)
	if o.Host == "" {
		o.Host = "0.0.0.0"
	}
	if o.Port <= 0 {
		o.Port = 8095
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 30 * time.Second
	}
	// Streamed batches keep the response open for the whole job.
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 15 * time.Minute
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 10 * time.Second
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 8 << 20
	}
	if len(o.CORSAllowedOrigins) == 0 {
		o.CORSAllowedOrigins = []string{"*"}
	}
	o.AdminTokenHash = strings.TrimSpace(o.AdminTokenHash)
	return o
}

// JobStore serves the job history endpoints.
type JobStore interface {
	ListJobs(ctx context.Context, limit int) ([]db.JobSummary, error)
	GetJobByUUID(ctx context.Context, jobUUID string) (db.JobDetail, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	manager *translation.Manager
	jobs    JobStore
	logger  zerolog.Logger
	opts    Options
}

// NewServer builds the HTTP API. jobs may be nil when no database is
// configured; the job history endpoints then answer 503.
func NewServer(manager *translation.Manager, jobs JobStore, logger zerolog.Logger, opts Options) *Server {
	return &Server{
		manager: manager,
		jobs:    jobs,
		logger:  logger,
		opts:    opts.withDefaults(),
	}
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.manager == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.newEcho()
	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("server shutdown failed")
		}
	})
	defer stop()

	s.logger.Info().Str("addr", addr).Bool("job_history", s.jobs != nil).Msg("celltrans api server started")
	err := e.StartServer(&http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  time.Minute,
	})
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("celltrans api server stopped")
	return nil
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.opts.CORSAllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		MaxAge:       3600,
	}))
	e.Use(requestLogger(s.logger))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/languages", s.handleLanguages)
	api.GET("/backends", s.handleBackends)
	api.PUT("/backends", s.handleUpdateBackends, s.requireAdmin())
	api.GET("/backends/:id/probe", s.handleProbeBackend)
	api.POST("/translate", s.handleTranslate)
	api.GET("/jobs", s.handleJobs)
	api.GET("/jobs/:job_uuid", s.handleJobDetail)

	return e
}

// requestLogger writes one line per request, leveled by outcome.
func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:       true,
		LogMethod:       true,
		LogURI:          true,
		LogLatency:      true,
		LogRemoteIP:     true,
		LogRequestID:    true,
		LogResponseSize: true,
		LogError:        true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			level := zerolog.InfoLevel
			switch {
			case v.Error != nil || v.Status >= http.StatusInternalServerError:
				level = zerolog.ErrorLevel
			case v.Status >= http.StatusBadRequest:
				level = zerolog.WarnLevel
			}
			logger.WithLevel(level).
				Err(v.Error).
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Int64("bytes", v.ResponseSize).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("http request")
			return nil
		},
	})
}

// httpErrorHandler renders routing and middleware errors as JSend. Handler
// errors that are not *echo.HTTPError are never shown to the client.
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code >= http.StatusInternalServerError {
		_ = internalError(c, "Internal server error")
		return
	}
	message, _ := he.Message.(string)
	if strings.TrimSpace(message) == "" {
		message = http.StatusText(he.Code)
	}
	_ = fail(c, he.Code, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	database := "disabled"
	if p, ok := s.jobs.(pinger); ok {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		database = "ok"
		if err := p.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("database ping failed")
			database = "unavailable"
		}
	}

	return success(c, map[string]any{
		"service":          "celltrans",
		"time":             globaltime.UTC(),
		"database":         database,
		"snapshot_version": s.manager.Registry().Snapshot().Version(),
	})
}

func (s *Server) readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, s.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if int64(len(body)) > s.opts.MaxBodyBytes {
		return nil, errBodyTooLarge
	}
	return body, nil
}

func (s *Server) failBody(c echo.Context, err error) error {
	if errors.Is(err, errBodyTooLarge) {
		return fail(c, http.StatusRequestEntityTooLarge, "Request body is too large", nil)
	}
	return failValidation(c, map[string]string{"body": err.Error()})
}

// queryInt reads an optional integer query parameter bounded to [lo, hi].
func queryInt(c echo.Context, name string, def, lo, hi int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("must be an integer")
	}
	if value < lo || value > hi {
		return 0, fmt.Errorf("must be between %d and %d", lo, hi)
	}
	return value, nil
}
