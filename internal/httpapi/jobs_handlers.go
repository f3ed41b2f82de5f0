package httpapi

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"horse.fit/celltrans/internal/db"
)

func (s *Server) handleJobs(c echo.Context) error {
	if s.jobs == nil {
		return failUnavailable(c, "Job history requires a database")
	}

	limit, err := queryInt(c, "limit", 50, 1, 500)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	items, err := s.jobs.ListJobs(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("query translation jobs failed")
		return internalError(c, "Failed to load translation jobs")
	}

	return success(c, map[string]any{
		"items": items,
		"limit": limit,
	})
}

func (s *Server) handleJobDetail(c echo.Context) error {
	if s.jobs == nil {
		return failUnavailable(c, "Job history requires a database")
	}

	jobUUID := strings.TrimSpace(c.Param("job_uuid"))
	if _, err := uuid.Parse(jobUUID); err != nil {
		return failValidation(c, map[string]string{"job_uuid": "must be a UUID"})
	}

	detail, err := s.jobs.GetJobByUUID(c.Request().Context(), jobUUID)
	if err != nil {
		if errors.Is(err, db.ErrJobNotFound) {
			return failNotFound(c, "Translation job not found")
		}
		s.logger.Error().Err(err).Str("job_uuid", jobUUID).Msg("query translation job failed")
		return internalError(c, "Failed to load translation job")
	}

	return success(c, detail)
}
