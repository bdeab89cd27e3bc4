package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hrms-payroll-api/internal/models"
)

// UploadLogRepository handles persistence for upload deduplication logs.
type UploadLogRepository struct {
	db *sqlx.DB
}

// NewUploadLogRepository constructs the repository.
func NewUploadLogRepository(db *sqlx.DB) *UploadLogRepository {
	return &UploadLogRepository{db: db}
}

// GetByHash returns the log entry for a content hash or sql.ErrNoRows.
func (r *UploadLogRepository) GetByHash(ctx context.Context, fileHash string) (*models.UploadLog, error) {
	query := `SELECT id, file_hash, filename, uploaded_by, report_type, file_path, uploaded_at
FROM upload_logs WHERE file_hash = $1`
	var log models.UploadLog
	if err := r.db.GetContext(ctx, &log, query, fileHash); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get upload log: %w", err)
	}
	return &log, nil
}

// Create records a newly processed upload.
func (r *UploadLogRepository) Create(ctx context.Context, log *models.UploadLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.UploadedAt.IsZero() {
		log.UploadedAt = time.Now().UTC()
	}
	query := `INSERT INTO upload_logs (id, file_hash, filename, uploaded_by, report_type, file_path, uploaded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query,
		log.ID, log.FileHash, log.Filename, log.UploadedBy, log.ReportType, log.FilePath, log.UploadedAt); err != nil {
		return fmt.Errorf("create upload log: %w", err)
	}
	return nil
}

// List returns upload history newest first.
func (r *UploadLogRepository) List(ctx context.Context, limit int) ([]models.UploadLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, file_hash, filename, uploaded_by, report_type, file_path, uploaded_at
FROM upload_logs ORDER BY uploaded_at DESC LIMIT %d`, limit)
	var rows []models.UploadLog
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list upload logs: %w", err)
	}
	return rows, nil
}
