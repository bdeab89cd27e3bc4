package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hrms-payroll-api/internal/cleaner"
	"github.com/noah-isme/hrms-payroll-api/internal/models"
	appErrors "github.com/noah-isme/hrms-payroll-api/pkg/errors"
)

type mockAttendanceStore struct {
	records map[string]*models.AttendanceRecord
	upserts int
}

func attKey(empID string, date time.Time) string {
	return empID + "|" + date.Format("2006-01-02")
}

func (m *mockAttendanceStore) GetByEmpAndDate(_ context.Context, empID string, date time.Time) (*models.AttendanceRecord, error) {
	if rec, ok := m.records[attKey(empID, date)]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAttendanceStore) Upsert(_ context.Context, rec *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	if m.records == nil {
		m.records = map[string]*models.AttendanceRecord{}
	}
	cp := *rec
	m.records[attKey(rec.EmpID, rec.Date)] = &cp
	m.upserts++
	return &cp, nil
}

type mockUploadLogs struct {
	byHash  map[string]*models.UploadLog
	created []*models.UploadLog
}

func (m *mockUploadLogs) GetByHash(_ context.Context, hash string) (*models.UploadLog, error) {
	if log, ok := m.byHash[hash]; ok {
		return log, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUploadLogs) Create(_ context.Context, log *models.UploadLog) error {
	if m.byHash == nil {
		m.byHash = map[string]*models.UploadLog{}
	}
	log.ID = fmt.Sprintf("upload-%d", len(m.created)+1)
	m.byHash[log.FileHash] = log
	m.created = append(m.created, log)
	return nil
}

func (m *mockUploadLogs) List(_ context.Context, _ int) ([]models.UploadLog, error) {
	return nil, nil
}

type mockDirectory struct {
	ids   map[string]struct{}
	calls int
}

func (m *mockDirectory) ActiveEmpIDs(_ context.Context) (map[string]struct{}, error) {
	m.calls++
	return m.ids, nil
}

type memoryKV struct {
	values map[string][]byte
}

func (m *memoryKV) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryKV) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.values == nil {
		m.values = map[string][]byte{}
	}
	m.values[key] = raw
	return nil
}

func newIngestion(att *mockAttendanceStore, uploads *mockUploadLogs, dir *mockDirectory) *IngestionService {
	return NewIngestionService(att, uploads, dir, nil, nil, cleaner.NewNormalizer("RBIS"), 0, nil)
}

func reportCSV(dateLine string, dataRows ...string) []byte {
	lines := []string{
		"In Out Duration Report,,,,,",
		dateLine,
		"S.No,Employee ID,Employee Name,In Duration,Out Duration,Punch Records",
	}
	lines = append(lines, dataRows...)
	return []byte(strings.Join(lines, "\n"))
}

func presentRow(sno int, rawID, name string) string {
	return fmt.Sprintf(`%d,%s,%s,09:05,18:10,"09:05(in), 13:00(out), 13:30(in), 18:10(out)"`, sno, rawID, name)
}

func absentRow(sno int, rawID, name string) string {
	return fmt.Sprintf(`%d,%s,%s,09:05,10:00,"09:05(in), 10:00(out)"`, sno, rawID, name)
}

func TestIngestionProcessInsertsRows(t *testing.T) {
	att := &mockAttendanceStore{}
	uploads := &mockUploadLogs{}
	dir := &mockDirectory{ids: map[string]struct{}{"RBIS0042": {}}}
	svc := newIngestion(att, uploads, dir)

	content := reportCSV("Attendance Date- 5-Jan-2026,,,,,", presentRow(1, "42", "Asha"))
	result, err := svc.Process(context.Background(), UploadRequest{Filename: "jan.csv", Content: content, UploadedBy: "hr"})
	require.NoError(t, err)

	assert.False(t, result.Duplicate)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 0, result.Skipped)
	require.Len(t, uploads.created, 1)

	stored := att.records["RBIS0042|2026-01-05"]
	require.NotNil(t, stored)
	assert.Equal(t, models.StatusPresent, stored.Status)
}

func TestIngestionDuplicateHashSkipsLogButReconcilesRows(t *testing.T) {
	att := &mockAttendanceStore{}
	uploads := &mockUploadLogs{}
	dir := &mockDirectory{ids: map[string]struct{}{"RBIS0042": {}}}
	svc := newIngestion(att, uploads, dir)

	content := reportCSV("Attendance Date- 5-Jan-2026,,,,,", presentRow(1, "42", "Asha"))
	first, err := svc.Process(context.Background(), UploadRequest{Filename: "jan.csv", Content: content, UploadedBy: "hr"})
	require.NoError(t, err)

	// Simulate a manual deletion between the two uploads.
	delete(att.records, "RBIS0042|2026-01-05")

	// Same bytes under a new filename dedupe the log but still write rows.
	second, err := svc.Process(context.Background(), UploadRequest{Filename: "jan-copy.csv", Content: content, UploadedBy: "hr"})
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.UploadID, second.UploadID)
	assert.Len(t, uploads.created, 1)
	assert.Equal(t, 1, second.Inserted)
	assert.Equal(t, 2, att.upserts)
	require.NotNil(t, att.records["RBIS0042|2026-01-05"])
}

func TestIngestionAbsentFeedNeverOverwritesApprovedLeave(t *testing.T) {
	date := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	att := &mockAttendanceStore{records: map[string]*models.AttendanceRecord{
		attKey("RBIS0042", date): {EmpID: "RBIS0042", Date: date, Status: models.StatusOnLeave},
	}}
	uploads := &mockUploadLogs{}
	dir := &mockDirectory{ids: map[string]struct{}{"RBIS0042": {}}}
	svc := newIngestion(att, uploads, dir)

	content := reportCSV("Attendance Date- 5-Jan-2026,,,,,", absentRow(1, "42", "Asha"))
	result, err := svc.Process(context.Background(), UploadRequest{Filename: "jan.csv", Content: content, UploadedBy: "hr"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)

	stored := att.records[attKey("RBIS0042", date)]
	assert.Equal(t, models.StatusOnLeave, stored.Status)
	// Punch detail from the feed is still recorded.
	require.NotNil(t, stored.PunchRecords)
}

func TestIngestionPresentFeedOverwritesLeave(t *testing.T) {
	date := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	att := &mockAttendanceStore{records: map[string]*models.AttendanceRecord{
		attKey("RBIS0042", date): {EmpID: "RBIS0042", Date: date, Status: models.StatusOnLeave},
	}}
	uploads := &mockUploadLogs{}
	dir := &mockDirectory{ids: map[string]struct{}{"RBIS0042": {}}}
	svc := newIngestion(att, uploads, dir)

	content := reportCSV("Attendance Date- 5-Jan-2026,,,,,", presentRow(1, "42", "Asha"))
	_, err := svc.Process(context.Background(), UploadRequest{Filename: "jan.csv", Content: content, UploadedBy: "hr"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPresent, att.records[attKey("RBIS0042", date)].Status)
}

func TestIngestionSkipsUnknownEmployees(t *testing.T) {
	att := &mockAttendanceStore{}
	uploads := &mockUploadLogs{}
	dir := &mockDirectory{ids: map[string]struct{}{"RBIS0042": {}}}
	svc := newIngestion(att, uploads, dir)

	content := reportCSV("Attendance Date- 5-Jan-2026,,,,,",
		presentRow(1, "42", "Asha"),
		presentRow(2, "99", "Ghost"))
	result, err := svc.Process(context.Background(), UploadRequest{Filename: "jan.csv", Content: content, UploadedBy: "hr"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, []string{"RBIS0099"}, result.SkippedIDs)
}

func TestIngestionPreValidationAggregatesErrors(t *testing.T) {
	att := &mockAttendanceStore{}
	uploads := &mockUploadLogs{}
	dir := &mockDirectory{ids: map[string]struct{}{}}
	svc := newIngestion(att, uploads, dir)

	// An unparseable date token survives cleaning as raw text and every
	// row fails validation.
	content := reportCSV("Attendance Date- 99/99/2026,,,,,",
		presentRow(1, "1", "A"),
		presentRow(2, "2", "B"),
		presentRow(3, "3", "C"),
		presentRow(4, "4", "D"),
		presentRow(5, "5", "E"))
	_, err := svc.Process(context.Background(), UploadRequest{Filename: "bad.csv", Content: content, UploadedBy: "hr"})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "(+2 more)")
	// Nothing persisted for a rejected batch.
	assert.Empty(t, uploads.created)
	assert.Equal(t, 0, att.upserts)
}

func TestIngestionInvalidFormatRejected(t *testing.T) {
	svc := newIngestion(&mockAttendanceStore{}, &mockUploadLogs{}, &mockDirectory{})

	_, err := svc.Process(context.Background(), UploadRequest{
		Filename: "notes.csv",
		Content:  []byte("just,some,random\ncells,with,nothing"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidFormat.Code, appErrors.FromError(err).Code)
}

func TestIngestionDirectoryCachedBetweenUploads(t *testing.T) {
	att := &mockAttendanceStore{}
	uploads := &mockUploadLogs{}
	dir := &mockDirectory{ids: map[string]struct{}{"RBIS0042": {}}}
	cache := &memoryKV{}
	svc := NewIngestionService(att, uploads, dir, cache, nil, cleaner.NewNormalizer("RBIS"), time.Minute, nil)

	a := reportCSV("Attendance Date- 5-Jan-2026,,,,,", presentRow(1, "42", "Asha"))
	b := reportCSV("Attendance Date- 6-Jan-2026,,,,,", presentRow(1, "42", "Asha"))
	_, err := svc.Process(context.Background(), UploadRequest{Filename: "a.csv", Content: a, UploadedBy: "hr"})
	require.NoError(t, err)
	_, err = svc.Process(context.Background(), UploadRequest{Filename: "b.csv", Content: b, UploadedBy: "hr"})
	require.NoError(t, err)

	assert.Equal(t, 1, dir.calls)
}
