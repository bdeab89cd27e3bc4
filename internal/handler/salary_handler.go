package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hrms-payroll-api/internal/service"
	appErrors "github.com/noah-isme/hrms-payroll-api/pkg/errors"
	"github.com/noah-isme/hrms-payroll-api/pkg/response"
)

// SalaryHandler exposes salary structure and deduction endpoints.
type SalaryHandler struct {
	salaries *service.SalaryService
}

// NewSalaryHandler constructs SalaryHandler.
func NewSalaryHandler(salaries *service.SalaryService) *SalaryHandler {
	return &SalaryHandler{salaries: salaries}
}

// Assign godoc
// @Summary Assign a new salary structure
// @Tags Salaries
// @Accept json
// @Produce json
// @Param payload body service.AssignSalaryRequest true "Structure components"
// @Success 201 {object} response.Envelope
// @Router /salaries [post]
func (h *SalaryHandler) Assign(c *gin.Context) {
	var req service.AssignSalaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	structure, err := h.salaries.Assign(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, structure)
}

// Active godoc
// @Summary Active salary structure for one employee
// @Tags Salaries
// @Produce json
// @Param emp_id path string true "Employee ID"
// @Success 200 {object} response.Envelope
// @Router /salaries/{emp_id} [get]
func (h *SalaryHandler) Active(c *gin.Context) {
	structure, err := h.salaries.Active(c.Request.Context(), c.Param("emp_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, structure, nil)
}

// History godoc
// @Summary Salary structure history for one employee
// @Tags Salaries
// @Produce json
// @Param emp_id path string true "Employee ID"
// @Success 200 {object} response.Envelope
// @Router /salaries/{emp_id}/history [get]
func (h *SalaryHandler) History(c *gin.Context) {
	structures, err := h.salaries.History(c.Request.Context(), c.Param("emp_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, structures, nil)
}

// DeductionTypes godoc
// @Summary List the deduction catalog
// @Tags Deductions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /deductions/types [get]
func (h *SalaryHandler) DeductionTypes(c *gin.Context) {
	types, err := h.salaries.DeductionTypes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types, nil)
}

// AssignDeduction godoc
// @Summary Assign a deduction to an employee
// @Tags Deductions
// @Accept json
// @Produce json
// @Param payload body service.AssignDeductionRequest true "Deduction assignment"
// @Success 201 {object} response.Envelope
// @Router /deductions [post]
func (h *SalaryHandler) AssignDeduction(c *gin.Context) {
	var req service.AssignDeductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	deduction, err := h.salaries.AssignDeduction(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, deduction)
}

// EmployeeDeductions godoc
// @Summary Active deductions for one employee
// @Tags Deductions
// @Produce json
// @Param emp_id path string true "Employee ID"
// @Success 200 {object} response.Envelope
// @Router /deductions/{emp_id} [get]
func (h *SalaryHandler) EmployeeDeductions(c *gin.Context) {
	deductions, err := h.salaries.EmployeeDeductions(c.Request.Context(), c.Param("emp_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, deductions, nil)
}

// RemoveDeduction godoc
// @Summary Deactivate an employee deduction
// @Tags Deductions
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 204
// @Router /deductions/{id} [delete]
func (h *SalaryHandler) RemoveDeduction(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid deduction id"))
		return
	}
	if err := h.salaries.RemoveDeduction(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
