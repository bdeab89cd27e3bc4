package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/hrms-payroll-api/internal/cleaner"
	"github.com/noah-isme/hrms-payroll-api/internal/models"
	appErrors "github.com/noah-isme/hrms-payroll-api/pkg/errors"
	"github.com/noah-isme/hrms-payroll-api/pkg/jobs"
	"github.com/noah-isme/hrms-payroll-api/pkg/storage"
)

const (
	directoryCacheKey = "hrms:employees:active"

	// Pre-validation reports at most this many row errors verbatim; the
	// remainder collapses into a "(+N more)" suffix.
	maxReportedRowErrors = 3
)

type attendanceWriter interface {
	GetByEmpAndDate(ctx context.Context, empID string, date time.Time) (*models.AttendanceRecord, error)
	Upsert(ctx context.Context, rec *models.AttendanceRecord) (*models.AttendanceRecord, error)
}

type uploadLogRepository interface {
	GetByHash(ctx context.Context, fileHash string) (*models.UploadLog, error)
	Create(ctx context.Context, log *models.UploadLog) error
	List(ctx context.Context, limit int) ([]models.UploadLog, error)
}

type employeeDirectory interface {
	ActiveEmpIDs(ctx context.Context) (map[string]struct{}, error)
}

type directoryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// IngestionService runs the attendance report pipeline: dedup by content
// hash, clean, pre-validate, then reconcile row by row against stored
// attendance.
type IngestionService struct {
	attendance attendanceWriter
	uploads    uploadLogRepository
	employees  employeeDirectory
	cache      directoryCache
	blobs      storage.BlobStore
	normalizer *cleaner.Normalizer
	cacheTTL   time.Duration
	logger     *zap.Logger

	queue *jobs.Queue
}

// NewIngestionService constructs the ingestion service.
func NewIngestionService(attendance attendanceWriter, uploads uploadLogRepository, employees employeeDirectory, cache directoryCache, blobs storage.BlobStore, normalizer *cleaner.Normalizer, cacheTTL time.Duration, logger *zap.Logger) *IngestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &IngestionService{
		attendance: attendance,
		uploads:    uploads,
		employees:  employees,
		cache:      cache,
		blobs:      blobs,
		normalizer: normalizer,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// AttachQueue wires the background queue used by UploadAsync.
func (s *IngestionService) AttachQueue(q *jobs.Queue) {
	s.queue = q
}

// UploadRequest is one attendance report submission.
type UploadRequest struct {
	Filename   string
	Content    []byte
	UploadedBy string
}

// IngestionResult summarises one processed upload.
type IngestionResult struct {
	UploadID   string   `json:"upload_id"`
	FileHash   string   `json:"file_hash"`
	ReportType string   `json:"report_type,omitempty"`
	Duplicate  bool     `json:"duplicate"`
	RowsParsed int      `json:"rows_parsed"`
	Inserted   int      `json:"inserted"`
	Updated    int      `json:"updated"`
	Skipped    int      `json:"skipped"`
	SkippedIDs []string `json:"skipped_emp_ids,omitempty"`
}

// ingestJob is the queue payload for asynchronous processing.
type ingestJob struct {
	Request UploadRequest
}

// JobType identifies attendance ingestion jobs on the shared queue.
const JobType = "attendance_ingest"

// HandleJob adapts Process to the queue handler signature.
func (s *IngestionService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(ingestJob)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	result, err := s.Process(ctx, payload.Request)
	if err != nil {
		// Cleaning and validation failures are final; retrying the same
		// bytes cannot succeed.
		var appErr *appErrors.Error
		if e := appErrors.FromError(err); e.Status < 500 {
			appErr = e
		}
		if appErr != nil {
			s.logger.Warn("ingestion rejected",
				zap.String("filename", payload.Request.Filename),
				zap.String("code", appErr.Code),
				zap.Error(err))
			return nil
		}
		return err
	}
	s.logger.Info("ingestion completed",
		zap.String("upload_id", result.UploadID),
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped))
	return nil
}

// UploadAsync validates the file synchronously and queues reconciliation.
// The returned result carries the accepted hash; row counts arrive later.
func (s *IngestionService) UploadAsync(ctx context.Context, req UploadRequest) (*IngestionResult, error) {
	if s.queue == nil {
		return s.Process(ctx, req)
	}
	hash := contentHash(req.Content)
	duplicate := false
	uploadID := ""
	if existing, err := s.uploads.GetByHash(ctx, hash); err == nil {
		// Known bytes still reconcile rows; only log and archive are skipped.
		duplicate = true
		uploadID = existing.ID
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "upload dedup lookup failed")
	}
	// Fail fast on files that can never ingest.
	rows, _, err := cleaner.Clean(req.Content)
	if err != nil {
		return nil, cleanErrToApp(err)
	}
	if err := s.preValidate(rows); err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    JobType,
		Payload: ingestJob{Request: req},
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue upload")
	}
	return &IngestionResult{UploadID: uploadID, FileHash: hash, ReportType: cleaner.ReportType, Duplicate: duplicate, RowsParsed: len(rows)}, nil
}

// Process runs the full pipeline synchronously.
func (s *IngestionService) Process(ctx context.Context, req UploadRequest) (*IngestionResult, error) {
	hash := contentHash(req.Content)

	duplicate := false
	uploadID := ""
	existing, err := s.uploads.GetByHash(ctx, hash)
	switch {
	case err == nil:
		// The hash gate covers only the upload log and the archive; attendance
		// rows may have been corrected or deleted since the first ingest, so
		// re-submitted bytes still reconcile row by row.
		duplicate = true
		uploadID = existing.ID
		s.logger.Info("duplicate upload, re-reconciling rows",
			zap.String("file_hash", hash),
			zap.String("filename", req.Filename))
	case err != sql.ErrNoRows:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "upload dedup lookup failed")
	}

	rows, reportType, err := cleaner.Clean(req.Content)
	if err != nil {
		return nil, cleanErrToApp(err)
	}
	if err := s.preValidate(rows); err != nil {
		return nil, err
	}

	if !duplicate {
		storedName := storage.SafeFilename(req.Filename)
		if s.blobs != nil {
			// Archival is best effort; a full disk must not block ingestion.
			if err := s.blobs.Store(ctx, storedName, req.Content, "text/csv"); err != nil {
				s.logger.Warn("raw upload archive failed",
					zap.String("filename", req.Filename),
					zap.Error(err))
			}
		}

		log := &models.UploadLog{
			FileHash:   hash,
			Filename:   req.Filename,
			UploadedBy: req.UploadedBy,
			ReportType: reportType,
			FilePath:   storedName,
		}
		if err := s.uploads.Create(ctx, log); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record upload")
		}
		uploadID = log.ID
	}

	known, err := s.knownEmployees(ctx)
	if err != nil {
		return nil, err
	}

	result := &IngestionResult{
		UploadID:   uploadID,
		FileHash:   hash,
		ReportType: reportType,
		Duplicate:  duplicate,
		RowsParsed: len(rows),
	}
	skippedSet := map[string]struct{}{}

	for _, row := range rows {
		empID := s.normalizer.Normalize(row.EmpID)
		if _, ok := known[empID]; !ok {
			result.Skipped++
			if _, seen := skippedSet[empID]; !seen {
				skippedSet[empID] = struct{}{}
				result.SkippedIDs = append(result.SkippedIDs, empID)
			}
			continue
		}

		date, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			// Pre-validation already rejected unparseable dates; a failure
			// here is a programming error.
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "date re-parse failed")
		}

		status := row.Status
		prev, err := s.attendance.GetByEmpAndDate(ctx, empID, date)
		switch {
		case err == nil:
			status = models.MergeStatus(prev.Status, row.Status)
			result.Updated++
		case err == sql.ErrNoRows:
			result.Inserted++
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "attendance lookup failed")
		}

		rec := &models.AttendanceRecord{
			EmpID:         empID,
			Date:          date,
			FirstIn:       strPtr(row.FirstIn),
			LastOut:       strPtr(row.LastOut),
			InDuration:    strPtr(row.InDuration),
			OutDuration:   strPtr(row.OutDuration),
			TotalDuration: strPtr(row.TotalDuration),
			PunchRecords:  strPtr(row.PunchRecords),
			Status:        status,
			EmployeeName:  strPtr(row.EmployeeName),
			SourceFile:    strPtr(req.Filename),
		}
		if _, err := s.attendance.Upsert(ctx, rec); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "attendance upsert failed")
		}
	}

	if result.Skipped > 0 {
		s.logger.Warn("rows skipped for unknown employees",
			zap.Int("skipped", result.Skipped),
			zap.Strings("emp_ids", result.SkippedIDs))
	}
	return result, nil
}

// UploadHistory lists recent uploads.
func (s *IngestionService) UploadHistory(ctx context.Context, limit int) ([]models.UploadLog, error) {
	logs, err := s.uploads.List(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list uploads")
	}
	return logs, nil
}

// preValidate rejects a batch whose rows cannot all be persisted. Errors
// aggregate so the operator sees every broken row class at once.
func (s *IngestionService) preValidate(rows []cleaner.Row) error {
	var reasons []string
	for i, row := range rows {
		empID := s.normalizer.Normalize(row.EmpID)
		if empID == "" {
			reasons = append(reasons, fmt.Sprintf("row %d: missing employee id", i+1))
			continue
		}
		if _, err := time.Parse("2006-01-02", row.Date); err != nil {
			reasons = append(reasons, fmt.Sprintf("row %d: invalid date '%s'", i+1, row.Date))
			continue
		}
		if !row.Status.Valid() {
			reasons = append(reasons, fmt.Sprintf("row %d: invalid status '%s'", i+1, row.Status))
		}
	}
	if len(reasons) == 0 {
		return nil
	}
	shown := reasons
	suffix := ""
	if len(reasons) > maxReportedRowErrors {
		shown = reasons[:maxReportedRowErrors]
		suffix = fmt.Sprintf(" (+%d more)", len(reasons)-maxReportedRowErrors)
	}
	return appErrors.Clone(appErrors.ErrValidation,
		"Validation failed: "+strings.Join(shown, "; ")+suffix)
}

// knownEmployees returns the active directory set, cached between uploads.
func (s *IngestionService) knownEmployees(ctx context.Context) (map[string]struct{}, error) {
	if s.cache != nil {
		var ids []string
		if err := s.cache.Get(ctx, directoryCacheKey, &ids); err == nil {
			set := make(map[string]struct{}, len(ids))
			for _, id := range ids {
				set[id] = struct{}{}
			}
			return set, nil
		}
	}
	set, err := s.employees.ActiveEmpIDs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "employee directory lookup failed")
	}
	if s.cache != nil {
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		if err := s.cache.Set(ctx, directoryCacheKey, ids, s.cacheTTL); err != nil {
			s.logger.Warn("directory cache set failed", zap.Error(err))
		}
	}
	return set, nil
}

func cleanErrToApp(err error) error {
	cerr, ok := err.(*cleaner.CleanError)
	if !ok {
		return appErrors.Wrap(err, appErrors.ErrInvalidFormat.Code, appErrors.ErrInvalidFormat.Status, "report cleaning failed")
	}
	switch cerr.Kind {
	case cleaner.KindStructural:
		return appErrors.Clone(appErrors.ErrStructuralMismatch, cerr.Reason)
	case cleaner.KindData:
		return appErrors.Clone(appErrors.ErrValidation, cerr.Reason)
	default:
		return appErrors.Clone(appErrors.ErrInvalidFormat, cerr.Reason)
	}
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
