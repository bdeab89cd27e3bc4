package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hrms-payroll-api/internal/models"
	"github.com/noah-isme/hrms-payroll-api/internal/service"
	appErrors "github.com/noah-isme/hrms-payroll-api/pkg/errors"
	"github.com/noah-isme/hrms-payroll-api/pkg/response"
)

// LeaveHandler exposes leave application, approval and calendar endpoints.
type LeaveHandler struct {
	leaves *service.LeaveService
}

// NewLeaveHandler constructs LeaveHandler.
func NewLeaveHandler(leaves *service.LeaveService) *LeaveHandler {
	return &LeaveHandler{leaves: leaves}
}

// Types godoc
// @Summary List leave types
// @Tags Leaves
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /leaves/types [get]
func (h *LeaveHandler) Types(c *gin.Context) {
	types, err := h.leaves.ListTypes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types, nil)
}

// Apply godoc
// @Summary Apply for leave
// @Tags Leaves
// @Accept json
// @Produce json
// @Param payload body service.ApplyLeaveRequest true "Application"
// @Success 201 {object} response.Envelope
// @Router /leaves [post]
func (h *LeaveHandler) Apply(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.ApplyLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	leave, err := h.leaves.Apply(c.Request.Context(), claims.EmpID, claims.Role, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, leave)
}

// ApproveHR godoc
// @Summary First-stage HR decision on a leave request
// @Tags Leaves
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body service.ApprovalRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /leaves/{id}/approve-hr [post]
func (h *LeaveHandler) ApproveHR(c *gin.Context) {
	h.decide(c, h.leaves.ApproveByHR)
}

// ApproveFinal godoc
// @Summary Final decision on an HR-approved leave request
// @Tags Leaves
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body service.ApprovalRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /leaves/{id}/approve-final [post]
func (h *LeaveHandler) ApproveFinal(c *gin.Context) {
	h.decide(c, h.leaves.FinalApprove)
}

type decisionFunc func(ctx context.Context, requestID int64, approverID string, req service.ApprovalRequest) (*models.LeaveRequest, error)

func (h *LeaveHandler) decide(c *gin.Context, fn decisionFunc) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request id"))
		return
	}
	var req service.ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	leave, err := fn(c.Request.Context(), id, actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leave, nil)
}

// List godoc
// @Summary List leave requests
// @Tags Leaves
// @Produce json
// @Param emp_id query string false "Filter by employee"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /leaves [get]
func (h *LeaveHandler) List(c *gin.Context) {
	var status *models.LeaveStatus
	if v := c.Query("status"); v != "" {
		s := models.LeaveStatus(v)
		status = &s
	}
	leaves, pagination, err := h.leaves.ListRequests(c.Request.Context(), c.Query("emp_id"), status, queryInt(c, "page", 1), queryInt(c, "limit", 50))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leaves, pagination)
}

// Balances godoc
// @Summary Leave balances for one employee
// @Tags Leaves
// @Produce json
// @Param emp_id path string true "Employee ID"
// @Param year query int false "Year"
// @Success 200 {object} response.Envelope
// @Router /leaves/balances/{emp_id} [get]
func (h *LeaveHandler) Balances(c *gin.Context) {
	year := queryInt(c, "year", time.Now().Year())
	balances, err := h.leaves.Balances(c.Request.Context(), c.Param("emp_id"), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balances, nil)
}

// History godoc
// @Summary Approval history for one leave request
// @Tags Leaves
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /leaves/{id}/history [get]
func (h *LeaveHandler) History(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request id"))
		return
	}
	logs, err := h.leaves.History(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

// AddHoliday godoc
// @Summary Add a holiday to the calendar
// @Tags Holidays
// @Accept json
// @Produce json
// @Param payload body service.HolidayRequest true "Holiday"
// @Success 201 {object} response.Envelope
// @Router /holidays [post]
func (h *LeaveHandler) AddHoliday(c *gin.Context) {
	var req service.HolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	holiday, err := h.leaves.AddHoliday(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, holiday)
}

// Holidays godoc
// @Summary List holidays for a year
// @Tags Holidays
// @Produce json
// @Param year query int false "Year"
// @Success 200 {object} response.Envelope
// @Router /holidays [get]
func (h *LeaveHandler) Holidays(c *gin.Context) {
	holidays, err := h.leaves.ListHolidays(c.Request.Context(), queryInt(c, "year", time.Now().Year()))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, holidays, nil)
}

// DeleteHoliday godoc
// @Summary Remove a holiday
// @Tags Holidays
// @Produce json
// @Param id path int true "Holiday ID"
// @Success 204
// @Router /holidays/{id} [delete]
func (h *LeaveHandler) DeleteHoliday(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid holiday id"))
		return
	}
	if err := h.leaves.DeleteHoliday(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
