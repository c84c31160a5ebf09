package handler

import (
	"netbanking/internal/service"
	"netbanking/pkg/response"

	"github.com/gin-gonic/gin"
)

// ============================================================
// Admin and manager views
// ============================================================

// Stats GET /api/admin/stats, /api/manager/stats
func (h *Handler) Stats(c *gin.Context) {
	resp, err := h.reportService.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, resp)
}

// AdminUsers GET /api/admin/users
func (h *Handler) AdminUsers(c *gin.Context) {
	h.users(c, false)
}

// ManagerUsers GET /api/manager/users, Active accounts only
func (h *Handler) ManagerUsers(c *gin.Context) {
	h.users(c, true)
}

func (h *Handler) users(c *gin.Context, activeOnly bool) {
	resp, err := h.reportService.Users(c.Request.Context(), activeOnly)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, resp)
}

// AllTransactions GET /api/admin/transactions, /api/manager/transactions
func (h *Handler) AllTransactions(c *gin.Context) {
	resp, err := h.reportService.Transactions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, resp)
}

// OutstandingLoans GET /api/admin/loans, /api/manager/loans
func (h *Handler) OutstandingLoans(c *gin.Context) {
	resp, err := h.reportService.Loans(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, resp)
}

// Reconciliation GET /api/admin/reconciliation
func (h *Handler) Reconciliation(c *gin.Context) {
	resp, err := h.reportService.Reconcile(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, resp)
}

type freezeRequest struct {
	Freeze bool `json:"freeze"`
}

// FreezeAccount PUT /api/admin/users/:accountNo/freeze
func (h *Handler) FreezeAccount(c *gin.Context) {
	var req freezeRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.adminService.SetFrozen(c.Request.Context(), c.Param("accountNo"), req.Freeze)
	if err != nil {
		h.fail(c, err)
		return
	}
	msg := "Account unfrozen successfully"
	if req.Freeze {
		msg = "Account frozen successfully"
	}
	response.SuccessMsg(c, msg, resp)
}

// ApproveAccount PUT /api/admin/users/:accountNo/approve
func (h *Handler) ApproveAccount(c *gin.Context) {
	resp, err := h.adminService.Approve(c.Request.Context(), c.Param("accountNo"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessMsg(c, "Account approved successfully", resp)
}

// DeleteAccount DELETE /api/admin/users/:accountNo
func (h *Handler) DeleteAccount(c *gin.Context) {
	resp, err := h.adminService.DeleteAccount(c.Request.Context(), c.Param("accountNo"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessMsg(c, "Account and all associated data deleted permanently", resp)
}

// ============================================================
// Employees (admin)
// ============================================================

func (h *Handler) ListEmployees(c *gin.Context) {
	resp, err := h.employeeService.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, resp)
}

func (h *Handler) GetEmployee(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	resp, err := h.employeeService.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, resp)
}

func (h *Handler) CreateEmployee(c *gin.Context) {
	var req service.EmployeeRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.employeeService.Create(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, "Employee added successfully", resp)
}

func (h *Handler) UpdateEmployee(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req service.EmployeeRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.employeeService.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessMsg(c, "Employee updated successfully", resp)
}

func (h *Handler) DeleteEmployee(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.employeeService.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessMsg(c, "Employee deleted successfully", nil)
}
