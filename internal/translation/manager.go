package translation

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"horse.fit/celltrans/internal/db"
	"horse.fit/celltrans/internal/globaltime"
	"horse.fit/celltrans/internal/language"
)

var (
	ErrTargetLangRequired = errors.New("target language is required")
	ErrDuplicateRow       = errors.New("duplicate row index")
)

// Store persists the translation cache and job history.
type Store interface {
	LookupCachedTranslation(ctx context.Context, contentHash []byte, sourceLang, targetLang string) (*db.CachedTranslationRow, error)
	UpsertCachedTranslation(ctx context.Context, row db.UpsertCachedTranslationParams) error
	InsertJob(ctx context.Context, job db.InsertJobParams) error
}

// RunOptions controls one batch run.
type RunOptions struct {
	// Workers bounds concurrent items; values below 1 use the manager default.
	Workers int
	// Backends overrides the configured priority order for this run.
	Backends []string
	Progress func(ProgressEvent)
	// Force bypasses the translation cache.
	Force bool
}

// Manager drives the dispatcher across a batch of requests.
type Manager struct {
	registry   *Registry
	dispatcher *Dispatcher
	store      Store
	detect     func(string) string
	workers    int
	logger     zerolog.Logger
}

func NewManager(registry *Registry, dispatcher *Dispatcher, logger zerolog.Logger) *Manager {
	return &Manager{
		registry:   registry,
		dispatcher: dispatcher,
		workers:    1,
		logger:     logger,
	}
}

// WithStore enables the translation cache and job history.
func (m *Manager) WithStore(store Store) *Manager {
	m.store = store
	return m
}

// WithDetector sets the language detector used for "auto" source languages.
func (m *Manager) WithDetector(detect func(string) string) *Manager {
	m.detect = detect
	return m
}

// WithWorkers sets the default worker count.
func (m *Manager) WithWorkers(workers int) *Manager {
	m.workers = max(1, workers)
	return m
}

func (m *Manager) Registry() *Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Run translates requests and returns outcomes index-aligned with them.
// Cancelling ctx stops new items from starting; items already dispatched
// finish on a detached context and the rest are reported as cancelled.
func (m *Manager) Run(ctx context.Context, requests []Request, opts RunOptions) Report {
	total := len(requests)
	outcomes := make([]Outcome, total)
	for i := range outcomes {
		outcomes[i] = cancelledOutcome()
	}
	if total == 0 {
		return newReport(outcomes)
	}

	snapshot := m.registry.Snapshot()
	workers := opts.Workers
	if workers < 1 {
		workers = m.workers
	}
	workers = min(max(1, workers), total)
	itemCtx := context.WithoutCancel(ctx)

	m.logger.Info().
		Int("items", total).
		Int("workers", workers).
		Int64("config_version", snapshot.Version()).
		Msg("translation batch started")

	var (
		mu        sync.Mutex
		completed int
	)
	finish := func(idx int, outcome Outcome) {
		mu.Lock()
		defer mu.Unlock()
		outcomes[idx] = outcome
		completed++
		if opts.Progress != nil {
			opts.Progress(ProgressEvent{
				Completed: completed,
				Total:     total,
				Index:     idx,
				Row:       idx,
				Outcome:   outcome,
			})
		}
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for idx := range requests {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			finish(idx, m.translateOne(itemCtx, snapshot, requests[idx], opts))
			return nil
		})
	}
	_ = g.Wait()

	report := newReport(outcomes)
	event := m.logger.Info()
	if ctx.Err() != nil {
		event = m.logger.Warn()
	}
	event.
		Int("total", report.Stats.Total).
		Int("translated", report.Stats.Translated).
		Int("cached", report.Stats.Cached).
		Int("skipped", report.Stats.Skipped).
		Int("failed", report.Stats.Failed).
		Int("cancelled", report.Stats.Cancelled).
		Msg("translation batch finished")
	return report
}

func (m *Manager) translateOne(ctx context.Context, snapshot *Snapshot, req Request, opts RunOptions) Outcome {
	if req.IsBlank() {
		return skippedOutcome()
	}
	req = m.resolveSourceLang(req)
	targetLang := normalizeLangCode(req.TargetLang)

	var hash []byte
	if m.store != nil {
		sum := sha256.Sum256([]byte(req.Text))
		hash = sum[:]
	}

	if m.store != nil && !opts.Force {
		cached, err := m.store.LookupCachedTranslation(ctx, hash, normalizeLangCode(req.SourceLang), targetLang)
		if err != nil {
			m.logger.Warn().Err(err).Msg("translation cache lookup failed")
		} else if cached != nil && strings.TrimSpace(cached.TranslatedText) != "" {
			return Outcome{
				Kind:    OutcomeTranslated,
				Text:    cached.TranslatedText,
				Backend: cached.BackendName,
				Cached:  true,
			}
		}
	}

	outcome := m.dispatcher.Dispatch(ctx, snapshot, req, opts.Backends)

	if outcome.Kind == OutcomeTranslated && m.store != nil {
		if err := m.store.UpsertCachedTranslation(ctx, db.UpsertCachedTranslationParams{
			ContentHash:    hash,
			SourceLang:     normalizeLangCode(req.SourceLang),
			TargetLang:     targetLang,
			OriginalText:   req.Text,
			TranslatedText: outcome.Text,
			BackendName:    outcome.Backend,
		}); err != nil {
			m.logger.Warn().Err(err).Str("backend", outcome.Backend).Msg("translation cache write failed")
		}
	}
	return outcome
}

func (m *Manager) resolveSourceLang(req Request) Request {
	source := normalizeLangCode(req.SourceLang)
	if source != "" && source != AutoLang {
		req.SourceLang = source
		return req
	}
	req.SourceLang = AutoLang
	if m.detect != nil {
		if detected := normalizeLangCode(m.detect(req.Text)); detected != "" {
			req.SourceLang = detected
		}
	}
	return req
}

// Row is one table cell handed over by the caller.
type Row struct {
	Index int    `json:"row"`
	Text  string `json:"text"`
}

// RowJob asks for a range of cells to be translated.
type RowJob struct {
	SourceLang   string
	TargetLang   string
	SourceColumn string
	TargetColumn string
	Backends     []string
	Rows         []Row
}

// RowResult is the outcome for one row, keyed by the caller's row index.
type RowResult struct {
	Row int `json:"row"`
	Outcome
}

// RowReport is the result of a row job.
type RowReport struct {
	JobUUID    string      `json:"job_uuid"`
	SourceLang string      `json:"source_lang"`
	TargetLang string      `json:"target_lang"`
	Results    []RowResult `json:"results"`
	Stats      RunStats    `json:"stats"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}

// ByRow indexes results by row.
func (r RowReport) ByRow() map[int]Outcome {
	out := make(map[int]Outcome, len(r.Results))
	for _, result := range r.Results {
		out[result.Row] = result.Outcome
	}
	return out
}

// TranslateRows translates a column range and returns results keyed by row.
// Progress events carry the caller's row index in Row.
func (m *Manager) TranslateRows(ctx context.Context, job RowJob, opts RunOptions) (RowReport, error) {
	if m == nil || m.registry == nil || m.dispatcher == nil {
		return RowReport{}, fmt.Errorf("translation manager is not initialized")
	}

	sourceLang, targetLang := ResolveJobLanguages(job)
	if targetLang == "" {
		return RowReport{}, ErrTargetLangRequired
	}

	seen := make(map[int]struct{}, len(job.Rows))
	requests := make([]Request, 0, len(job.Rows))
	for _, row := range job.Rows {
		if _, dup := seen[row.Index]; dup {
			return RowReport{}, fmt.Errorf("%w: %d", ErrDuplicateRow, row.Index)
		}
		seen[row.Index] = struct{}{}
		requests = append(requests, Request{
			Text:       row.Text,
			SourceLang: sourceLang,
			TargetLang: targetLang,
		})
	}

	if len(opts.Backends) == 0 {
		opts.Backends = job.Backends
	}
	if progress := opts.Progress; progress != nil {
		opts.Progress = func(ev ProgressEvent) {
			ev.Row = job.Rows[ev.Index].Index
			progress(ev)
		}
	}

	startedAt := globaltime.UTC()
	report := m.Run(ctx, requests, opts)
	finishedAt := globaltime.UTC()

	results := make([]RowResult, len(job.Rows))
	for i, row := range job.Rows {
		results[i] = RowResult{Row: row.Index, Outcome: report.Outcomes[i]}
	}

	out := RowReport{
		JobUUID:    uuid.NewString(),
		SourceLang: sourceLang,
		TargetLang: targetLang,
		Results:    results,
		Stats:      report.Stats,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}
	m.recordJob(ctx, out)
	return out, nil
}

// ResolveJobLanguages fills missing languages from the column headers.
// The source falls back to "auto"; the target stays empty when unknown.
func ResolveJobLanguages(job RowJob) (string, string) {
	sourceLang := normalizeLangCode(job.SourceLang)
	if sourceLang == "" {
		sourceLang = language.FromColumnHeader(job.SourceColumn)
	}
	if sourceLang == "" {
		sourceLang = AutoLang
	}

	targetLang := normalizeLangCode(job.TargetLang)
	if targetLang == AutoLang {
		targetLang = ""
	}
	if targetLang == "" {
		targetLang = language.FromColumnHeader(job.TargetColumn)
	}
	return sourceLang, targetLang
}

func (m *Manager) recordJob(ctx context.Context, report RowReport) {
	if m.store == nil {
		return
	}

	items := make([]db.InsertJobItemParams, 0, len(report.Results))
	for _, result := range report.Results {
		items = append(items, db.InsertJobItemParams{
			RowIndex:       result.Row,
			Kind:           string(result.Kind),
			TranslatedText: result.Text,
			BackendName:    result.Backend,
			Cached:         result.Cached,
			Reason:         result.Reason,
			LastError:      result.LastError,
			Attempts:       result.Attempts,
		})
	}

	err := m.store.InsertJob(context.WithoutCancel(ctx), db.InsertJobParams{
		JobUUID:    report.JobUUID,
		SourceLang: report.SourceLang,
		TargetLang: report.TargetLang,
		Total:      report.Stats.Total,
		Translated: report.Stats.Translated,
		Cached:     report.Stats.Cached,
		Skipped:    report.Stats.Skipped,
		Failed:     report.Stats.Failed,
		Cancelled:  report.Stats.Cancelled,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Items:      items,
	})
	if err != nil {
		m.logger.Warn().Err(err).Str("job_uuid", report.JobUUID).Msg("record translation job failed")
	}
}
