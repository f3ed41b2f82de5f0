package db

import "time"

// TranslationCacheEntry maps celltrans.translation_cache.
type TranslationCacheEntry struct {
	CacheID        int64      `gorm:"column:cache_id;primaryKey;autoIncrement"`
	CacheUUID      string     `gorm:"column:cache_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	ContentHash    []byte     `gorm:"column:content_hash;type:bytea;not null;uniqueIndex:translation_cache_lookup_key,priority:1"`
	SourceLang     string     `gorm:"column:source_lang;type:text;not null;uniqueIndex:translation_cache_lookup_key,priority:2"`
	TargetLang     string     `gorm:"column:target_lang;type:text;not null;uniqueIndex:translation_cache_lookup_key,priority:3"`
	OriginalText   string     `gorm:"column:original_text;type:text;not null"`
	TranslatedText string     `gorm:"column:translated_text;type:text;not null"`
	BackendName    string     `gorm:"column:backend_name;type:text;not null"`
	HitCount       int64      `gorm:"column:hit_count;type:bigint;not null;default:0"`
	LastHitAt      *time.Time `gorm:"column:last_hit_at;type:timestamptz"`
	CreatedAt      time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (TranslationCacheEntry) TableName() string { return "celltrans.translation_cache" }

// TranslationJob maps celltrans.translation_jobs.
type TranslationJob struct {
	JobID      int64     `gorm:"column:job_id;primaryKey;autoIncrement"`
	JobUUID    string    `gorm:"column:job_uuid;type:uuid;not null;unique"`
	SourceLang string    `gorm:"column:source_lang;type:text;not null"`
	TargetLang string    `gorm:"column:target_lang;type:text;not null"`
	Total      int       `gorm:"column:total;type:integer;not null;default:0"`
	Translated int       `gorm:"column:translated;type:integer;not null;default:0"`
	Cached     int       `gorm:"column:cached;type:integer;not null;default:0"`
	Skipped    int       `gorm:"column:skipped;type:integer;not null;default:0"`
	Failed     int       `gorm:"column:failed;type:integer;not null;default:0"`
	Cancelled  int       `gorm:"column:cancelled;type:integer;not null;default:0"`
	StartedAt  time.Time `gorm:"column:started_at;type:timestamptz;not null"`
	FinishedAt time.Time `gorm:"column:finished_at;type:timestamptz;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (TranslationJob) TableName() string { return "celltrans.translation_jobs" }

// TranslationJobItem maps celltrans.translation_job_items.
type TranslationJobItem struct {
	JobItemID      int64  `gorm:"column:job_item_id;primaryKey;autoIncrement"`
	JobID          int64  `gorm:"column:job_id;type:bigint;not null;uniqueIndex:translation_job_items_row_key,priority:1"`
	RowIndex       int    `gorm:"column:row_index;type:integer;not null;uniqueIndex:translation_job_items_row_key,priority:2"`
	Kind           string `gorm:"column:kind;type:text;not null"`
	TranslatedText string `gorm:"column:translated_text;type:text;not null;default:''"`
	BackendName    string `gorm:"column:backend_name;type:text;not null;default:''"`
	Cached         bool   `gorm:"column:cached;type:boolean;not null;default:false"`
	Reason         string `gorm:"column:reason;type:text;not null;default:''"`
	LastError      string `gorm:"column:last_error;type:text;not null;default:''"`
	Attempts       int    `gorm:"column:attempts;type:integer;not null;default:0"`
}

func (TranslationJobItem) TableName() string { return "celltrans.translation_job_items" }

func autoMigrateModels() []any {
	return []any{
		&TranslationCacheEntry{},
		&TranslationJob{},
		&TranslationJobItem{},
	}
}
