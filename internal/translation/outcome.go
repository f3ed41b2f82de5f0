package translation

// OutcomeKind tags the final per-item result.
type OutcomeKind string

const (
	OutcomeTranslated OutcomeKind = "translated"
	OutcomeSkipped    OutcomeKind = "skipped"
	OutcomeFailed     OutcomeKind = "failed"
	OutcomeCancelled  OutcomeKind = "cancelled"
)

const (
	ReasonAllExhausted = "all backends exhausted"
	ReasonNoBackend    = "no backend available"
	ReasonCancelled    = "cancelled"
)

// Outcome is the final result for one input item.
type Outcome struct {
	Kind      OutcomeKind `json:"kind"`
	Text      string      `json:"text,omitempty"`
	Backend   string      `json:"backend,omitempty"`
	Cached    bool        `json:"cached,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	LastError string      `json:"last_error,omitempty"`
	Attempts  int         `json:"attempts"`
}

func translatedOutcome(text, backend string, attempts int) Outcome {
	return Outcome{Kind: OutcomeTranslated, Text: text, Backend: backend, Attempts: attempts}
}

func skippedOutcome() Outcome {
	return Outcome{Kind: OutcomeSkipped}
}

func failedOutcome(reason, lastError string, attempts int) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: reason, LastError: lastError, Attempts: attempts}
}

func cancelledOutcome() Outcome {
	return Outcome{Kind: OutcomeCancelled, Reason: ReasonCancelled}
}

// ProgressEvent is emitted after each item completes.
type ProgressEvent struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Index     int     `json:"index"`
	// Row is the caller's row index; equal to Index for plain batches.
	Row       int     `json:"row"`
	Outcome   Outcome `json:"outcome"`
}

// RunStats reports per-kind counters for one batch.
type RunStats struct {
	Total      int `json:"total"`
	Translated int `json:"translated"`
	Cached     int `json:"cached"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
}

// Report holds outcomes index-aligned with the request list.
type Report struct {
	Outcomes []Outcome `json:"outcomes"`
	Stats    RunStats  `json:"stats"`
}

func newReport(outcomes []Outcome) Report {
	stats := RunStats{Total: len(outcomes)}
	for _, outcome := range outcomes {
		switch outcome.Kind {
		case OutcomeTranslated:
			stats.Translated++
			if outcome.Cached {
				stats.Cached++
			}
		case OutcomeSkipped:
			stats.Skipped++
		case OutcomeFailed:
			stats.Failed++
		case OutcomeCancelled:
			stats.Cancelled++
		}
	}
	return Report{Outcomes: outcomes, Stats: stats}
}
