package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hrms-payroll-api/internal/models"
	"github.com/noah-isme/hrms-payroll-api/internal/service"
	appErrors "github.com/noah-isme/hrms-payroll-api/pkg/errors"
	"github.com/noah-isme/hrms-payroll-api/pkg/response"
)

// OvertimeHandler exposes overtime computation and review endpoints.
type OvertimeHandler struct {
	overtime *service.OvertimeService
}

// NewOvertimeHandler constructs OvertimeHandler.
func NewOvertimeHandler(overtime *service.OvertimeService) *OvertimeHandler {
	return &OvertimeHandler{overtime: overtime}
}

// RecordRequest selects the employee and day to evaluate.
type RecordRequest struct {
	EmpID string `json:"emp_id" binding:"required"`
	Date  string `json:"date" binding:"required"`
}

// Record godoc
// @Summary Compute overtime for one attendance day
// @Tags Overtime
// @Accept json
// @Produce json
// @Param payload body RecordRequest true "Day selection"
// @Success 201 {object} response.Envelope
// @Router /overtime [post]
func (h *OvertimeHandler) Record(c *gin.Context) {
	var req RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD"))
		return
	}
	rec, err := h.overtime.Record(c.Request.Context(), req.EmpID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rec)
}

// ReviewRequest carries the approval decision.
type ReviewRequest struct {
	Approve bool    `json:"approve"`
	Remarks *string `json:"remarks"`
}

// Review godoc
// @Summary Approve or reject a pending overtime record
// @Tags Overtime
// @Accept json
// @Produce json
// @Param id path int true "Overtime ID"
// @Param payload body ReviewRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /overtime/{id}/review [post]
func (h *OvertimeHandler) Review(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid overtime id"))
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rec, err := h.overtime.Review(c.Request.Context(), id, actorID(c), req.Approve, req.Remarks)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec, nil)
}

// List godoc
// @Summary List overtime records
// @Tags Overtime
// @Produce json
// @Param emp_id query string false "Filter by employee"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /overtime [get]
func (h *OvertimeHandler) List(c *gin.Context) {
	var status *models.OvertimeStatus
	if v := c.Query("status"); v != "" {
		s := models.OvertimeStatus(v)
		status = &s
	}
	records, pagination, err := h.overtime.List(c.Request.Context(), c.Query("emp_id"), status, queryInt(c, "page", 1), queryInt(c, "limit", 50))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}
