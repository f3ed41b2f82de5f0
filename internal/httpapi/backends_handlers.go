package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"horse.fit/celltrans/internal/auth"
	"horse.fit/celltrans/internal/globaltime"
	"horse.fit/celltrans/internal/jobschema"
	"horse.fit/celltrans/internal/translation"
)

const probeTimeout = 10 * time.Second

type backendView struct {
	ID            string  `json:"id"`
	Enabled       bool    `json:"enabled"`
	Priority      int     `json:"priority"`
	TimeoutMS     int64   `json:"timeout_ms"`
	MaxRetries    int     `json:"max_retries"`
	BackoffBaseMS int64   `json:"backoff_base_ms"`
	RateLimitRPS  float64 `json:"rate_limit_rps,omitempty"`
	Burst         int     `json:"burst,omitempty"`
	Probe         bool    `json:"probe"`
}

type probeResult struct {
	Backend   string    `json:"backend"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	LatencyMS int64     `json:"latency_ms"`
	CheckedAt time.Time `json:"checked_at"`
}

func (s *Server) requireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s.opts.AdminTokenHash == "" {
				return fail(c, http.StatusForbidden, "Backend updates are disabled", nil)
			}
			token := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" || !auth.VerifyToken(token, s.opts.AdminTokenHash) {
				return unauthorizedResponse(c)
			}
			return next(c)
		}
	}
}

func (s *Server) handleLanguages(c echo.Context) error {
	return success(c, map[string]any{
		"items": translation.TranslationLanguageOptions(s.manager.Registry()),
	})
}

func (s *Server) handleBackends(c echo.Context) error {
	return success(c, s.backendsPayload())
}

func (s *Server) handleUpdateBackends(c echo.Context) error {
	body, err := s.readBody(c)
	if err != nil {
		return s.failBody(c, err)
	}

	file, err := jobschema.ValidateBackendsUpdate(body)
	if err != nil {
		return failValidation(c, jobschema.FieldErrors(err))
	}

	registry := s.manager.Registry()
	configs, unknown := translation.BackendConfigsFromFile(file, registry)
	if len(unknown) > 0 {
		fields := make(map[string]string, len(unknown))
		for _, id := range unknown {
			fields["backends."+id] = "is not a registered backend"
		}
		return failValidation(c, fields)
	}

	if err := registry.Update(configs); err != nil {
		return failValidation(c, map[string]string{"backends": err.Error()})
	}

	s.logger.Info().
		Int64("snapshot_version", registry.Snapshot().Version()).
		Strs("backends", file.IDs()).
		Msg("backend configuration replaced")
	return success(c, s.backendsPayload())
}

func (s *Server) handleProbeBackend(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return failValidation(c, map[string]string{"id": "is required"})
	}

	backend, err := s.manager.Registry().Backend(id)
	if err != nil {
		if errors.Is(err, translation.ErrUnknownBackend) {
			return failNotFound(c, "Backend not found")
		}
		return internalError(c, "Failed to look up backend")
	}

	prober, ok := backend.(translation.Prober)
	if !ok {
		return fail(c, http.StatusNotImplemented, "Backend does not support probing", nil)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), probeTimeout)
	defer cancel()

	start := globaltime.Now()
	probeErr := prober.Probe(ctx)
	result := probeResult{
		Backend:   backend.Name(),
		OK:        probeErr == nil,
		LatencyMS: globaltime.Since(start).Milliseconds(),
		CheckedAt: globaltime.UTC(),
	}
	if probeErr != nil {
		result.Error = probeErr.Error()
		s.logger.Warn().Err(probeErr).Str("backend", result.Backend).Msg("backend probe failed")
	}
	return success(c, result)
}

func (s *Server) backendsPayload() map[string]any {
	registry := s.manager.Registry()
	snapshot := registry.Snapshot()

	probers := map[string]bool{}
	for _, backend := range registry.Backends() {
		_, ok := backend.(translation.Prober)
		probers[strings.ToLower(backend.Name())] = ok
	}

	configs := snapshot.Configs()
	items := make([]backendView, 0, len(configs))
	for _, cfg := range configs {
		items = append(items, backendView{
			ID:            cfg.ID,
			Enabled:       cfg.Enabled,
			Priority:      cfg.Priority,
			TimeoutMS:     cfg.Timeout.Milliseconds(),
			MaxRetries:    cfg.MaxRetries,
			BackoffBaseMS: cfg.BackoffBase.Milliseconds(),
			RateLimitRPS:  cfg.RateLimit,
			Burst:         cfg.Burst,
			Probe:         probers[cfg.ID],
		})
	}

	return map[string]any{
		"snapshot_version": snapshot.Version(),
		"items":            items,
	}
}
