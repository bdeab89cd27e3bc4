package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hrms-payroll-api/internal/service"
	appErrors "github.com/noah-isme/hrms-payroll-api/pkg/errors"
	"github.com/noah-isme/hrms-payroll-api/pkg/response"
)

// PayrollHandler exposes payroll processing and disbursement endpoints.
type PayrollHandler struct {
	payrolls *service.PayrollService
	reports  *service.ReportService
	metrics  *service.MetricsService
}

// NewPayrollHandler constructs PayrollHandler.
func NewPayrollHandler(payrolls *service.PayrollService, reports *service.ReportService, metrics *service.MetricsService) *PayrollHandler {
	return &PayrollHandler{payrolls: payrolls, reports: reports, metrics: metrics}
}

// ProcessRequest selects the employee and period to compute.
type ProcessRequest struct {
	EmpID string `json:"emp_id" binding:"required"`
	Month int    `json:"month" binding:"required"`
	Year  int    `json:"year" binding:"required"`
}

// Process godoc
// @Summary Compute and freeze one employee's monthly payroll
// @Tags Payroll
// @Accept json
// @Produce json
// @Param payload body ProcessRequest true "Period selection"
// @Success 201 {object} response.Envelope
// @Router /payroll/process [post]
func (h *PayrollHandler) Process(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rec, err := h.payrolls.Process(c.Request.Context(), req.EmpID, req.Month, req.Year, actorID(c))
	if err != nil {
		h.recordRun("failed")
		response.Error(c, err)
		return
	}
	h.recordRun("processed")
	response.Created(c, rec)
}

// ProcessAllRequest selects the period and optional employee subset.
type ProcessAllRequest struct {
	EmpIDs []string `json:"emp_ids"`
	Month  int      `json:"month" binding:"required"`
	Year   int      `json:"year" binding:"required"`
}

// ProcessAll godoc
// @Summary Compute payroll for many employees in one call
// @Tags Payroll
// @Accept json
// @Produce json
// @Param payload body ProcessAllRequest true "Period selection"
// @Success 200 {object} response.Envelope
// @Router /payroll/process-all [post]
func (h *PayrollHandler) ProcessAll(c *gin.Context) {
	var req ProcessAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.payrolls.ProcessAll(c.Request.Context(), req.EmpIDs, req.Month, req.Year, actorID(c))
	if err != nil {
		h.recordRun("failed")
		response.Error(c, err)
		return
	}
	h.recordRun("batch")
	response.JSON(c, http.StatusOK, result, nil)
}

// PayRequest sets the disbursement method.
type PayRequest struct {
	Method string `json:"method"`
}

// Pay godoc
// @Summary Disburse a processed payroll through the payout gateway
// @Tags Payroll
// @Accept json
// @Produce json
// @Param id path int true "Payroll ID"
// @Param payload body PayRequest false "Payment method"
// @Success 200 {object} response.Envelope
// @Router /payroll/{id}/pay [post]
func (h *PayrollHandler) Pay(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payroll id"))
		return
	}
	var req PayRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.Method == "" {
		req.Method = "BANK_TRANSFER"
	}
	rec, err := h.payrolls.Pay(c.Request.Context(), id, req.Method)
	if err != nil {
		h.recordPayout("failed")
		response.Error(c, err)
		return
	}
	h.recordPayout("paid")
	response.JSON(c, http.StatusOK, rec, nil)
}

// Get godoc
// @Summary Get one payroll record
// @Tags Payroll
// @Produce json
// @Param id path int true "Payroll ID"
// @Success 200 {object} response.Envelope
// @Router /payroll/{id} [get]
func (h *PayrollHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payroll id"))
		return
	}
	rec, err := h.payrolls.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec, nil)
}

// List godoc
// @Summary List payroll records
// @Tags Payroll
// @Produce json
// @Param emp_id query string false "Filter by employee"
// @Param month query int false "Filter by month"
// @Param year query int false "Filter by year"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /payroll [get]
func (h *PayrollHandler) List(c *gin.Context) {
	records, pagination, err := h.payrolls.List(
		c.Request.Context(),
		c.Query("emp_id"),
		queryInt(c, "month", 0),
		queryInt(c, "year", 0),
		queryInt(c, "page", 1),
		queryInt(c, "limit", 50),
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Period godoc
// @Summary Get one employee's payroll for a period
// @Tags Payroll
// @Produce json
// @Param emp_id path string true "Employee ID"
// @Param month query int true "Month (1-12)"
// @Param year query int true "Year"
// @Success 200 {object} response.Envelope
// @Router /payroll/period/{emp_id} [get]
func (h *PayrollHandler) Period(c *gin.Context) {
	month := queryInt(c, "month", int(time.Now().Month()))
	year := queryInt(c, "year", time.Now().Year())
	rec, err := h.payrolls.GetByPeriod(c.Request.Context(), c.Param("emp_id"), month, year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec, nil)
}

// Payslip godoc
// @Summary Download a payslip PDF
// @Tags Payroll
// @Produce application/pdf
// @Param id path int true "Payroll ID"
// @Success 200 {file} binary
// @Router /payroll/{id}/payslip [get]
func (h *PayrollHandler) Payslip(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payroll id"))
		return
	}
	file, err := h.reports.Payslip(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Payload)
}

func (h *PayrollHandler) recordRun(outcome string) {
	if h.metrics != nil {
		h.metrics.RecordPayrollRun(outcome)
	}
}

func (h *PayrollHandler) recordPayout(outcome string) {
	if h.metrics != nil {
		h.metrics.RecordPayout(outcome)
	}
}
