package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/celltrans/internal/jobschema"
	"horse.fit/celltrans/internal/translation"
)

const mimeNDJSON = "application/x-ndjson"

// streamLine is one NDJSON line of a streamed translate response.
type streamLine struct {
	Type  string                     `json:"type"`
	Event *translation.ProgressEvent `json:"event,omitempty"`
	Data  *translation.RowReport     `json:"data,omitempty"`
}

// ndjsonWriter commits the response lazily so validation failures found
// before the first event can still be answered with a JSend body.
type ndjsonWriter struct {
	resp    *echo.Response
	enc     *json.Encoder
	started bool
	broken  bool
}

func newNDJSONWriter(resp *echo.Response) *ndjsonWriter {
	return &ndjsonWriter{resp: resp, enc: json.NewEncoder(resp)}
}

func (w *ndjsonWriter) write(line streamLine) {
	if !w.started {
		w.started = true
		header := w.resp.Header()
		header.Set(echo.HeaderContentType, mimeNDJSON)
		header.Set("Cache-Control", "no-cache")
		header.Set("X-Accel-Buffering", "no")
		w.resp.WriteHeader(http.StatusOK)
	}
	if w.broken {
		return
	}
	if err := w.enc.Encode(line); err != nil {
		w.broken = true
		return
	}
	w.resp.Flush()
}

func (s *Server) handleTranslate(c echo.Context) error {
	body, err := s.readBody(c)
	if err != nil {
		return s.failBody(c, err)
	}

	job, err := jobschema.ValidateTranslateJob(body)
	if err != nil {
		return failValidation(c, jobschema.FieldErrors(err))
	}

	stream := false
	if raw := strings.TrimSpace(c.QueryParam("stream")); raw != "" {
		stream, err = strconv.ParseBool(raw)
		if err != nil {
			return failValidation(c, map[string]string{"stream": "must be a boolean"})
		}
	}

	ctx := c.Request().Context()
	opts := job.RunOptions()

	var writer *ndjsonWriter
	if stream {
		writer = newNDJSONWriter(c.Response())
		opts.Progress = func(ev translation.ProgressEvent) {
			writer.write(streamLine{Type: "progress", Event: &ev})
		}
	}

	report, err := s.manager.TranslateRows(ctx, job.RowJob(), opts)
	if err != nil {
		return s.failTranslate(c, err)
	}

	if ctx.Err() != nil {
		s.logger.Warn().
			Str("job_uuid", report.JobUUID).
			Int("cancelled", report.Stats.Cancelled).
			Msg("translate request cancelled by client")
	}

	if writer != nil {
		writer.write(streamLine{Type: "result", Data: &report})
		return nil
	}
	return success(c, report)
}

func (s *Server) failTranslate(c echo.Context, err error) error {
	switch {
	case errors.Is(err, translation.ErrTargetLangRequired):
		return failValidation(c, map[string]string{
			"target_lang": "is required unless target_column names a language",
		})
	case errors.Is(err, translation.ErrDuplicateRow):
		return failValidation(c, map[string]string{"rows": err.Error()})
	default:
		s.logger.Error().Err(err).Msg("translate rows failed")
		return internalError(c, "Failed to translate rows")
	}
}
