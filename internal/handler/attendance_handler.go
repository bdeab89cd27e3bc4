package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hrms-payroll-api/internal/service"
	appErrors "github.com/noah-isme/hrms-payroll-api/pkg/errors"
	"github.com/noah-isme/hrms-payroll-api/pkg/response"
)

// maxUploadBytes caps biometric report uploads at 10 MiB.
const maxUploadBytes = 10 << 20

// AttendanceHandler exposes attendance feed and correction endpoints.
type AttendanceHandler struct {
	ingestion  *service.IngestionService
	attendance *service.AttendanceService
	reports    *service.ReportService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(ingestion *service.IngestionService, attendance *service.AttendanceService, reports *service.ReportService) *AttendanceHandler {
	return &AttendanceHandler{ingestion: ingestion, attendance: attendance, reports: reports}
}

// UploadOutcome reports the fate of one file in a multi-file upload.
type UploadOutcome struct {
	Filename string                   `json:"filename"`
	Result   *service.IngestionResult `json:"result,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

// Upload godoc
// @Summary Upload one or more biometric attendance reports
// @Tags Attendance
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Report file (csv or xlsx); repeat the field to batch"
// @Success 202 {object} response.Envelope
// @Router /attendance/upload [post]
func (h *AttendanceHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart form"))
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing file field"))
		return
	}

	// Single files keep the original flat response shape.
	if len(headers) == 1 {
		result, err := h.ingest(c, headers[0])
		if err != nil {
			response.Error(c, err)
			return
		}
		if result.Duplicate {
			response.JSON(c, http.StatusOK, result, nil)
			return
		}
		response.Accepted(c, result)
		return
	}

	// Batch uploads run sequentially; a bad file never blocks its siblings.
	outcomes := make([]UploadOutcome, 0, len(headers))
	queued := false
	for _, fh := range headers {
		outcome := UploadOutcome{Filename: fh.Filename}
		result, err := h.ingest(c, fh)
		if err != nil {
			outcome.Error = appErrors.FromError(err).Message
		} else {
			outcome.Result = result
			if !result.Duplicate {
				queued = true
			}
		}
		outcomes = append(outcomes, outcome)
	}
	if queued {
		response.Accepted(c, outcomes)
		return
	}
	response.JSON(c, http.StatusOK, outcomes, nil)
}

func (h *AttendanceHandler) ingest(c *gin.Context, fh *multipart.FileHeader) (*service.IngestionResult, error) {
	if fh.Size > maxUploadBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file exceeds 10 MiB limit")
	}
	file, err := fh.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "open upload")
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "read upload")
	}
	return h.ingestion.UploadAsync(c.Request.Context(), service.UploadRequest{
		Filename:   fh.Filename,
		Content:    content,
		UploadedBy: actorID(c),
	})
}

// Uploads godoc
// @Summary Recent upload history
// @Tags Attendance
// @Produce json
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Envelope
// @Router /attendance/uploads [get]
func (h *AttendanceHandler) Uploads(c *gin.Context) {
	logs, err := h.ingestion.UploadHistory(c.Request.Context(), queryInt(c, "limit", 50))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param emp_id query string false "Filter by employee"
// @Param status query string false "Filter by status"
// @Param date_from query string false "Range start (YYYY-MM-DD)"
// @Param date_to query string false "Range end (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	req := service.AttendanceListRequest{
		EmpID:    c.Query("emp_id"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "limit", 50),
	}
	if v := c.Query("status"); v != "" {
		req.Status = &v
	}
	if v := c.Query("date_from"); v != "" {
		req.DateFrom = &v
	}
	if v := c.Query("date_to"); v != "" {
		req.DateTo = &v
	}

	records, pagination, err := h.attendance.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Update godoc
// @Summary Correct one attendance record
// @Tags Attendance
// @Accept json
// @Produce json
// @Param emp_id path string true "Employee ID"
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param payload body service.AttendanceUpdateRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /attendance/{emp_id}/{date} [put]
func (h *AttendanceHandler) Update(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD"))
		return
	}
	var req service.AttendanceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rec, err := h.attendance.Update(c.Request.Context(), c.Param("emp_id"), date, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec, nil)
}

// Delete godoc
// @Summary Delete one attendance record
// @Tags Attendance
// @Produce json
// @Param id path int true "Record ID"
// @Success 204
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid record id"))
		return
	}
	if err := h.attendance.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Summary godoc
// @Summary Monthly attendance summary for one employee
// @Tags Attendance
// @Produce json
// @Param emp_id path string true "Employee ID"
// @Param month query int true "Month (1-12)"
// @Param year query int true "Year"
// @Success 200 {object} response.Envelope
// @Router /attendance/{emp_id}/summary [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	month := queryInt(c, "month", int(time.Now().Month()))
	year := queryInt(c, "year", time.Now().Year())
	summary, err := h.attendance.MonthlySummary(c.Request.Context(), c.Param("emp_id"), month, year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Register godoc
// @Summary Download a monthly attendance register
// @Tags Attendance
// @Produce octet-stream
// @Param emp_id path string true "Employee ID"
// @Param month query int true "Month (1-12)"
// @Param year query int true "Year"
// @Param format query string false "csv, xlsx or pdf" default(csv)
// @Success 200 {file} binary
// @Router /attendance/{emp_id}/register [get]
func (h *AttendanceHandler) Register(c *gin.Context) {
	month := queryInt(c, "month", int(time.Now().Month()))
	year := queryInt(c, "year", time.Now().Year())
	format := service.ReportFormat(c.DefaultQuery("format", "csv"))

	file, err := h.reports.AttendanceRegister(c.Request.Context(), c.Param("emp_id"), month, year, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Payload)
}
