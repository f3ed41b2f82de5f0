package db

import (
	"context"
	"fmt"
	"strings"
)

const preAutoMigrateSQL = `CREATE SCHEMA IF NOT EXISTS celltrans`

const postAutoMigrateSQL = `
CREATE INDEX IF NOT EXISTS translation_jobs_created_at_idx
	ON celltrans.translation_jobs (created_at DESC, job_id DESC);
ALTER TABLE celltrans.translation_job_items
	DROP CONSTRAINT IF EXISTS translation_job_items_job_fk;
ALTER TABLE celltrans.translation_job_items
	ADD CONSTRAINT translation_job_items_job_fk
	FOREIGN KEY (job_id) REFERENCES celltrans.translation_jobs (job_id) ON DELETE CASCADE;
`

func (p *Pool) autoMigrate(ctx context.Context) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	if err := executeMigrationSQL(ctx, p, "pre-auto-migrate", preAutoMigrateSQL); err != nil {
		return err
	}

	if err := p.gdb.WithContext(ctx).AutoMigrate(autoMigrateModels()...); err != nil {
		return fmt.Errorf("gorm auto-migrate models: %w", err)
	}

	if err := executeMigrationSQL(ctx, p, "post-auto-migrate", postAutoMigrateSQL); err != nil {
		return err
	}

	return nil
}

func executeMigrationSQL(ctx context.Context, p *Pool, label, sqlText string) error {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return nil
	}
	if err := p.gdb.WithContext(ctx).Exec(trimmed).Error; err != nil {
		return fmt.Errorf("execute %s SQL: %w", label, err)
	}
	return nil
}
