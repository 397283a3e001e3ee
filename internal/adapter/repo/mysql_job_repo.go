package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/entity"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/usecase"
)

// Schema is the archive table. EnsureSchema applies it on startup.
const Schema = `
CREATE TABLE IF NOT EXISTS print_jobs (
    id           VARCHAR(64)  NOT NULL PRIMARY KEY,
    type         VARCHAR(16)  NOT NULL,
    order_id     VARCHAR(64)  NULL,
    printer_id   VARCHAR(128) NULL,
    status       VARCHAR(16)  NOT NULL,
    error        TEXT         NULL,
    bytes        INT          NOT NULL,
    created_at   DATETIME(3)  NOT NULL,
    completed_at DATETIME(3)  NULL,
    KEY idx_print_jobs_order (order_id),
    KEY idx_print_jobs_created (created_at)
)`

// MySQLJobRepo archives finished print jobs. The in-memory job log stays the
// source of truth for the API; this table is for end-of-day reconciliation.
type MySQLJobRepo struct{ db *sql.DB }

func NewMySQLJobRepo(db *sql.DB) *MySQLJobRepo { return &MySQLJobRepo{db: db} }

func (r *MySQLJobRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create print_jobs: %w", err)
	}
	return nil
}

func (r *MySQLJobRepo) SaveJob(ctx context.Context, job entity.PrintJob) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO print_jobs (id,type,order_id,printer_id,status,error,bytes,created_at,completed_at)
VALUES (?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE status=VALUES(status), error=VALUES(error), printer_id=VALUES(printer_id), completed_at=VALUES(completed_at)
`, jobArgs(job)...)
	if err != nil {
		return fmt.Errorf("archive job %s: %w", job.ID, err)
	}
	return nil
}

func jobArgs(job entity.PrintJob) []any {
	var completed sql.NullTime
	if job.CompletedAt != nil {
		completed = sql.NullTime{Time: job.CompletedAt.UTC(), Valid: true}
	}
	return []any{
		job.ID,
		string(job.Type),
		nullString(job.OrderID),
		nullString(job.PrinterID),
		string(job.Status),
		nullString(job.Error),
		job.Bytes,
		job.CreatedAt.UTC().Truncate(time.Millisecond),
		completed,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ usecase.JobArchive = (*MySQLJobRepo)(nil)
