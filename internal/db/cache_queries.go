package db

import (
	"context"
	"fmt"
	"time"
)

// CachedTranslationRow is one cached translation for a text+language pair.
type CachedTranslationRow struct {
	CacheUUID      string
	SourceLang     string
	TargetLang     string
	OriginalText   string
	TranslatedText string
	BackendName    string
	HitCount       int64
	CreatedAt      time.Time
}

// UpsertCachedTranslationParams controls translation cache upserts.
type UpsertCachedTranslationParams struct {
	ContentHash    []byte
	SourceLang     string
	TargetLang     string
	OriginalText   string
	TranslatedText string
	BackendName    string
}

// LookupCachedTranslation returns the cached translation and records the hit.
// It returns nil without error on a cache miss.
func (p *Pool) LookupCachedTranslation(
	ctx context.Context,
	contentHash []byte,
	sourceLang string,
	targetLang string,
) (*CachedTranslationRow, error) {
	if p == nil {
		return nil, ErrNotConfigured
	}

	const q = `
UPDATE celltrans.translation_cache
SET
	hit_count = hit_count + 1,
	last_hit_at = now()
WHERE content_hash = $1
  AND source_lang = $2
  AND target_lang = $3
RETURNING
	cache_uuid::text,
	source_lang,
	target_lang,
	original_text,
	translated_text,
	backend_name,
	hit_count,
	created_at
`

	var row CachedTranslationRow
	err := p.QueryRow(ctx, q, contentHash, sourceLang, targetLang).Scan(
		&row.CacheUUID,
		&row.SourceLang,
		&row.TargetLang,
		&row.OriginalText,
		&row.TranslatedText,
		&row.BackendName,
		&row.HitCount,
		&row.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("query cached translation: %w", err)
	}
	return &row, nil
}

func (p *Pool) UpsertCachedTranslation(ctx context.Context, row UpsertCachedTranslationParams) error {
	if p == nil {
		return ErrNotConfigured
	}

	const q = `
INSERT INTO celltrans.translation_cache (
	content_hash,
	source_lang,
	target_lang,
	original_text,
	translated_text,
	backend_name
)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (content_hash, source_lang, target_lang)
DO UPDATE SET
	original_text = EXCLUDED.original_text,
	translated_text = EXCLUDED.translated_text,
	backend_name = EXCLUDED.backend_name,
	updated_at = now()
`

	if _, err := p.Exec(
		ctx,
		q,
		row.ContentHash,
		row.SourceLang,
		row.TargetLang,
		row.OriginalText,
		row.TranslatedText,
		row.BackendName,
	); err != nil {
		return fmt.Errorf("upsert cached translation: %w", err)
	}
	return nil
}
