package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hrms-payroll-api/internal/service"
	appErrors "github.com/noah-isme/hrms-payroll-api/pkg/errors"
	"github.com/noah-isme/hrms-payroll-api/pkg/response"
)

// EmployeeHandler exposes directory endpoints.
type EmployeeHandler struct {
	employees *service.EmployeeService
}

// NewEmployeeHandler constructs EmployeeHandler.
func NewEmployeeHandler(employees *service.EmployeeService) *EmployeeHandler {
	return &EmployeeHandler{employees: employees}
}

// Onboard godoc
// @Summary Onboard a new employee
// @Tags Employees
// @Accept json
// @Produce json
// @Param payload body service.OnboardRequest true "Employee payload"
// @Success 201 {object} response.Envelope
// @Router /employees [post]
func (h *EmployeeHandler) Onboard(c *gin.Context) {
	var req service.OnboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	emp, err := h.employees.Onboard(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, emp)
}

// List godoc
// @Summary List employees
// @Tags Employees
// @Produce json
// @Param status query string false "Filter by status"
// @Param search query string false "Search by name or email"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /employees [get]
func (h *EmployeeHandler) List(c *gin.Context) {
	status := c.Query("status")
	search := strings.TrimSpace(c.Query("search"))
	page := queryInt(c, "page", 1)
	size := queryInt(c, "limit", 50)

	employees, pagination, err := h.employees.List(c.Request.Context(), status, search, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, employees, pagination)
}

// Get godoc
// @Summary Get one employee
// @Tags Employees
// @Produce json
// @Param emp_id path string true "Employee ID"
// @Success 200 {object} response.Envelope
// @Router /employees/{emp_id} [get]
func (h *EmployeeHandler) Get(c *gin.Context) {
	emp, err := h.employees.Get(c.Request.Context(), c.Param("emp_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, emp, nil)
}

// Update godoc
// @Summary Update an employee profile
// @Tags Employees
// @Accept json
// @Produce json
// @Param emp_id path string true "Employee ID"
// @Param payload body service.UpdateEmployeeRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /employees/{emp_id} [put]
func (h *EmployeeHandler) Update(c *gin.Context) {
	var req service.UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	emp, err := h.employees.Update(c.Request.Context(), c.Param("emp_id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, emp, nil)
}
