package translation

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/celltrans/internal/db"
)

type stubTranslationStore struct {
	mu           sync.Mutex
	lookupResult *db.CachedTranslationRow
	lookupErr    error
	lookups      int
	upserts      []db.UpsertCachedTranslationParams
	jobs         []db.InsertJobParams
}

func (s *stubTranslationStore) LookupCachedTranslation(
	_ context.Context,
	_ []byte,
	_ string,
	_ string,
) (*db.CachedTranslationRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	return s.lookupResult, nil
}

func (s *stubTranslationStore) UpsertCachedTranslation(_ context.Context, row db.UpsertCachedTranslationParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, row)
	return nil
}

func (s *stubTranslationStore) InsertJob(_ context.Context, job db.InsertJobParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	return nil
}

func newTestManager(t *testing.T, backends ...Backend) *Manager {
	t.Helper()
	registry := newTestRegistry(t, nil, backends...)
	return NewManager(registry, newTestDispatcher((&sleepRecorder{}).Sleep), zerolog.Nop())
}

func requestsFor(texts ...string) []Request {
	out := make([]Request, 0, len(texts))
	for _, text := range texts {
		out = append(out, Request{Text: text, SourceLang: "en", TargetLang: "zh"})
	}
	return out
}

func TestRunPreservesOrder(t *testing.T) {
	t.Parallel()

	slow := &scriptedBackend{
		name: "a",
		respond: func(req Request) AttemptResult {
			// Later items finish first under concurrency.
			time.Sleep(time.Duration(10-len(req.Text)%10) * time.Millisecond)
			return success("T(" + req.Text + ")")
		},
	}
	manager := newTestManager(t, slow)

	texts := make([]string, 0, 12)
	for i := range 12 {
		texts = append(texts, fmt.Sprintf("item-%02d", i))
	}
	texts[5] = "   "

	for _, workers := range []int{1, 4} {
		report := manager.Run(context.Background(), requestsFor(texts...), RunOptions{Workers: workers})
		if len(report.Outcomes) != len(texts) {
			t.Fatalf("workers=%d: expected %d outcomes, got %d", workers, len(texts), len(report.Outcomes))
		}
		for i, outcome := range report.Outcomes {
			if i == 5 {
				if outcome.Kind != OutcomeSkipped {
					t.Fatalf("workers=%d: expected blank item skipped, got %+v", workers, outcome)
				}
				continue
			}
			if want := "T(" + texts[i] + ")"; outcome.Text != want {
				t.Fatalf("workers=%d: outcome %d = %q, want %q", workers, i, outcome.Text, want)
			}
		}
		if report.Stats.Translated != 11 || report.Stats.Skipped != 1 || report.Stats.Total != 12 {
			t.Fatalf("workers=%d: unexpected stats %+v", workers, report.Stats)
		}
	}
}

func TestRunCancelAfterSecondItem(t *testing.T) {
	t.Parallel()

	backend := echoBackend("a")
	manager := newTestManager(t, backend)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	report := manager.Run(ctx, requestsFor("one", "two", "three", "four", "five"), RunOptions{
		Progress: func(ev ProgressEvent) {
			if ev.Completed == 2 {
				cancel()
			}
		},
	})

	want := []OutcomeKind{OutcomeTranslated, OutcomeTranslated, OutcomeCancelled, OutcomeCancelled, OutcomeCancelled}
	for i, kind := range want {
		if report.Outcomes[i].Kind != kind {
			t.Fatalf("outcome %d: got %s want %s", i, report.Outcomes[i].Kind, kind)
		}
	}
	if report.Outcomes[2].Reason != ReasonCancelled {
		t.Fatalf("expected cancelled reason, got %q", report.Outcomes[2].Reason)
	}
	if backend.Calls() != 2 {
		t.Fatalf("expected 2 backend calls, got %d", backend.Calls())
	}
	if report.Stats.Cancelled != 3 || report.Stats.Translated != 2 {
		t.Fatalf("unexpected stats: %+v", report.Stats)
	}
}

func TestRunCancelledItemsNeverStartUnderConcurrency(t *testing.T) {
	t.Parallel()

	backend := echoBackend("a")
	manager := newTestManager(t, backend)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	report := manager.Run(ctx, requestsFor("a", "b", "c", "d", "e", "f", "g", "h"), RunOptions{
		Workers: 2,
		Progress: func(ev ProgressEvent) {
			if ev.Completed == 1 {
				cancel()
			}
		},
	})

	if len(report.Outcomes) != 8 {
		t.Fatalf("expected 8 outcomes, got %d", len(report.Outcomes))
	}
	if report.Stats.Translated+report.Stats.Cancelled != 8 {
		t.Fatalf("every item must be translated or cancelled: %+v", report.Stats)
	}
	if report.Stats.Translated != backend.Calls() {
		t.Fatalf("translated=%d but backend calls=%d", report.Stats.Translated, backend.Calls())
	}
	if report.Stats.Cancelled == 0 {
		t.Fatalf("expected some items to be cancelled")
	}
}

func TestRunIsIdempotentWithDeterministicBackends(t *testing.T) {
	t.Parallel()

	flaky := &scriptedBackend{
		name: "a",
		respond: func(req Request) AttemptResult {
			if req.Text == "bad" {
				return permanent("rejected")
			}
			return success("A:" + req.Text)
		},
	}
	manager := newTestManager(t, flaky)
	requests := requestsFor("x", "", "bad", "y")

	first := manager.Run(context.Background(), requests, RunOptions{Workers: 3})
	second := manager.Run(context.Background(), requests, RunOptions{Workers: 3})
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("reports differ:\n%+v\n%+v", first, second)
	}
	if first.Outcomes[2].Kind != OutcomeFailed || first.Outcomes[2].Reason != ReasonAllExhausted {
		t.Fatalf("expected failed item, got %+v", first.Outcomes[2])
	}
}

func TestRunProgressIsSerializedAndCumulative(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t, echoBackend("a"))
	var completed []int
	manager.Run(context.Background(), requestsFor("a", "b", "c", "d", "e", "f"), RunOptions{
		Workers: 3,
		Progress: func(ev ProgressEvent) {
			completed = append(completed, ev.Completed)
			if ev.Total != 6 {
				t.Errorf("unexpected total %d", ev.Total)
			}
		},
	})
	for i, got := range completed {
		if got != i+1 {
			t.Fatalf("progress %d reported completed=%d", i, got)
		}
	}
	if len(completed) != 6 {
		t.Fatalf("expected 6 progress events, got %d", len(completed))
	}
}

func TestRunEmptyBatch(t *testing.T) {
	t.Parallel()

	report := newTestManager(t, echoBackend("a")).Run(context.Background(), nil, RunOptions{})
	if len(report.Outcomes) != 0 || report.Stats.Total != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestRunUsesCacheBeforeDispatch(t *testing.T) {
	t.Parallel()

	backend := echoBackend("a")
	store := &stubTranslationStore{
		lookupResult: &db.CachedTranslationRow{TranslatedText: "缓存", BackendName: "deeplx"},
	}
	manager := newTestManager(t, backend).WithStore(store)

	report := manager.Run(context.Background(), requestsFor("cached"), RunOptions{})
	outcome := report.Outcomes[0]
	if outcome.Kind != OutcomeTranslated || !outcome.Cached || outcome.Text != "缓存" || outcome.Backend != "deeplx" {
		t.Fatalf("unexpected cached outcome: %+v", outcome)
	}
	if backend.Calls() != 0 {
		t.Fatalf("expected cache hit to skip dispatch, got %d calls", backend.Calls())
	}
	if report.Stats.Cached != 1 {
		t.Fatalf("expected cached stat, got %+v", report.Stats)
	}
}

func TestRunWritesCacheOnMiss(t *testing.T) {
	t.Parallel()

	backend := echoBackend("a")
	store := &stubTranslationStore{}
	manager := newTestManager(t, backend).WithStore(store)

	manager.Run(context.Background(), requestsFor("Hello world"), RunOptions{})
	if len(store.upserts) != 1 {
		t.Fatalf("expected one cache write, got %d", len(store.upserts))
	}
	row := store.upserts[0]
	wantHash := sha256.Sum256([]byte("Hello world"))
	if !bytes.Equal(row.ContentHash, wantHash[:]) {
		t.Fatalf("unexpected content hash")
	}
	if row.SourceLang != "en" || row.TargetLang != "zh" || row.TranslatedText != "a:Hello world" || row.BackendName != "a" {
		t.Fatalf("unexpected cache row: %+v", row)
	}
}

func TestRunForceBypassesCache(t *testing.T) {
	t.Parallel()

	backend := echoBackend("a")
	store := &stubTranslationStore{lookupResult: &db.CachedTranslationRow{TranslatedText: "stale"}}
	manager := newTestManager(t, backend).WithStore(store)

	report := manager.Run(context.Background(), requestsFor("fresh"), RunOptions{Force: true})
	if report.Outcomes[0].Text != "a:fresh" || report.Outcomes[0].Cached {
		t.Fatalf("expected forced dispatch, got %+v", report.Outcomes[0])
	}
	if store.lookups != 0 {
		t.Fatalf("expected no cache lookups, got %d", store.lookups)
	}
}

func TestRunIgnoresCacheErrors(t *testing.T) {
	t.Parallel()

	store := &stubTranslationStore{lookupErr: errors.New("connection refused")}
	manager := newTestManager(t, echoBackend("a")).WithStore(store)

	report := manager.Run(context.Background(), requestsFor("x"), RunOptions{})
	if report.Outcomes[0].Kind != OutcomeTranslated {
		t.Fatalf("store failure must not fail the item: %+v", report.Outcomes[0])
	}
}

func TestRunDetectsAutoSourceLanguage(t *testing.T) {
	t.Parallel()

	backend := echoBackend("a")
	manager := newTestManager(t, backend).WithDetector(func(text string) string {
		if text == "Guten Tag" {
			return "de"
		}
		return ""
	})

	manager.Run(context.Background(), []Request{
		{Text: "Guten Tag", SourceLang: "auto", TargetLang: "en"},
		{Text: "42", SourceLang: "", TargetLang: "en"},
		{Text: "hi", SourceLang: "EN-us", TargetLang: "de"},
	}, RunOptions{})

	got := map[string]string{}
	for _, req := range backend.requests {
		got[req.Text] = req.SourceLang
	}
	if got["Guten Tag"] != "de" || got["42"] != AutoLang || got["hi"] != "en" {
		t.Fatalf("unexpected source languages: %v", got)
	}
}

func TestTranslateRowsInfersLanguagesAndKeysByRow(t *testing.T) {
	t.Parallel()

	backend := echoBackend("a")
	store := &stubTranslationStore{}
	manager := newTestManager(t, backend).WithStore(store)

	var rows []int
	report, err := manager.TranslateRows(context.Background(), RowJob{
		SourceColumn: "English",
		TargetColumn: "Japanese",
		Rows: []Row{
			{Index: 7, Text: "apple"},
			{Index: 3, Text: ""},
			{Index: 12, Text: "pear"},
		},
	}, RunOptions{
		Progress: func(ev ProgressEvent) { rows = append(rows, ev.Row) },
	})
	if err != nil {
		t.Fatalf("translate rows: %v", err)
	}
	if report.SourceLang != "en" || report.TargetLang != "ja" {
		t.Fatalf("unexpected languages: %s -> %s", report.SourceLang, report.TargetLang)
	}
	if report.JobUUID == "" {
		t.Fatalf("expected job uuid")
	}

	byRow := report.ByRow()
	if byRow[7].Text != "a:apple" || byRow[12].Text != "a:pear" || byRow[3].Kind != OutcomeSkipped {
		t.Fatalf("unexpected results: %+v", byRow)
	}
	if len(rows) != 3 || rows[0] != 7 || rows[1] != 3 || rows[2] != 12 {
		t.Fatalf("unexpected progress rows: %v", rows)
	}

	if len(store.jobs) != 1 {
		t.Fatalf("expected job recorded, got %d", len(store.jobs))
	}
	job := store.jobs[0]
	if job.JobUUID != report.JobUUID || job.Total != 3 || job.Translated != 2 || job.Skipped != 1 || len(job.Items) != 3 {
		t.Fatalf("unexpected recorded job: %+v", job)
	}
	if job.Items[0].RowIndex != 7 || job.Items[1].Kind != string(OutcomeSkipped) {
		t.Fatalf("unexpected recorded items: %+v", job.Items)
	}
}

func TestTranslateRowsValidation(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t, echoBackend("a"))

	_, err := manager.TranslateRows(context.Background(), RowJob{
		SourceColumn: "English",
		TargetColumn: "Notes",
		Rows:         []Row{{Index: 1, Text: "x"}},
	}, RunOptions{})
	if !errors.Is(err, ErrTargetLangRequired) {
		t.Fatalf("expected ErrTargetLangRequired, got %v", err)
	}

	_, err = manager.TranslateRows(context.Background(), RowJob{
		TargetLang: "fr",
		Rows:       []Row{{Index: 1, Text: "x"}, {Index: 1, Text: "y"}},
	}, RunOptions{})
	if !errors.Is(err, ErrDuplicateRow) {
		t.Fatalf("expected ErrDuplicateRow, got %v", err)
	}
}

func TestResolveJobLanguagesPrefersExplicitCodes(t *testing.T) {
	t.Parallel()

	source, target := ResolveJobLanguages(RowJob{
		SourceLang:   "zh-CN",
		TargetLang:   "KO",
		SourceColumn: "English",
		TargetColumn: "Japanese",
	})
	if source != "zh" || target != "ko" {
		t.Fatalf("unexpected languages: %s -> %s", source, target)
	}

	source, target = ResolveJobLanguages(RowJob{TargetLang: "auto", TargetColumn: "Korean"})
	if source != AutoLang || target != "ko" {
		t.Fatalf("unexpected fallback languages: %s -> %s", source, target)
	}
}
