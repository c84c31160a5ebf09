package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"netbanking/internal/config"
	"netbanking/internal/infrastructure/lock"
	"netbanking/internal/infrastructure/mail"
	"netbanking/internal/logger"
	"netbanking/internal/service"
	"netbanking/internal/token"
	"netbanking/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Dependencies is everything the HTTP layer needs from main.
type Dependencies struct {
	DB     *gorm.DB
	Locker lock.Locker
	Mailer mail.Mailer
	Tokens *token.Manager
	Config *config.Config
	Log    zerolog.Logger
}

// Handler holds every service the routes call into.
type Handler struct {
	authService     *service.AuthService
	ledgerService   *service.LedgerService
	billService     *service.BillService
	loanService     *service.LoanService
	adminService    *service.AdminService
	reportService   *service.ReportService
	employeeService *service.EmployeeService
	log             zerolog.Logger
}

func NewHandler(deps Dependencies) (*Handler, error) {
	auth, err := service.NewAuthService(deps.DB, deps.Config, deps.Tokens, deps.Log)
	if err != nil {
		return nil, err
	}
	mailer := deps.Mailer
	if mailer == nil {
		mailer = mail.NoopMailer{}
	}
	return &Handler{
		authService:     auth,
		ledgerService:   service.NewLedgerService(deps.DB, deps.Locker, deps.Config, deps.Log),
		billService:     service.NewBillService(deps.DB, deps.Locker, deps.Config, deps.Log),
		loanService:     service.NewLoanService(deps.DB, deps.Locker, mailer, deps.Config, deps.Log),
		adminService:    service.NewAdminService(deps.DB, deps.Locker, deps.Config, deps.Log),
		reportService:   service.NewReportService(deps.DB, deps.Config, deps.Log),
		employeeService: service.NewEmployeeService(deps.DB, deps.Log),
		log:             deps.Log,
	}, nil
}

// fail writes the error envelope for err. Internal failures are logged with
// their cause; the client only sees the service message.
func (h *Handler) fail(c *gin.Context, err error) {
	var se *service.Error
	if !errors.As(err, &se) {
		se = &service.Error{Kind: service.KindInternal, Message: "Internal server error", Err: err}
	}
	if se.Kind == service.KindInternal {
		l := logger.FromContext(c.Request.Context(), h.log)
		l.Error().
			Err(se.Err).
			Str("path", c.FullPath()).
			Msg(se.Message)
	}
	response.Error(c, statusFor(se.Kind), se.Message)
}

func statusFor(k service.Kind) int {
	switch k {
	case service.KindValidation, service.KindBusiness:
		return http.StatusBadRequest
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// bind decodes the JSON body into req. An empty body leaves req zero so the
// service reports the missing fields.
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		response.ParamError(c, "Invalid request body")
		return false
	}
	return true
}

func caller(c *gin.Context) service.Caller {
	cl := claimsOf(c)
	if cl == nil {
		return service.Caller{}
	}
	return service.Caller{CustomerID: cl.CustomerID, AccountID: cl.AccountID, Phone: cl.Phone}
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "Invalid employee id")
		return 0, false
	}
	return id, true
}

// Health GET /health, /api/health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    response.StatusSuccess,
		"message":   "Internet Banking API is running!",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ============================================================
// Auth
// ============================================================

// Register POST /api/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, "Account created successfully!", resp)
}

// Login POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req service.LoginRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessMsg(c, "Login successful", resp)
}

// AdminLogin POST /api/auth/admin-login
func (h *Handler) AdminLogin(c *gin.Context) {
	var req service.StaffLoginRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.authService.AdminLogin(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessMsg(c, "Admin login successful", resp)
}

// ManagerLogin POST /api/auth/manager-login
func (h *Handler) ManagerLogin(c *gin.Context) {
	var req service.StaffLoginRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.authService.ManagerLogin(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessMsg(c, "Manager login successful", resp)
}

// ============================================================
// Transactions
// ============================================================

// GetBalance GET /api/transactions/balance
func (h *Handler) GetBalance(c *gin.Context) {
	resp, err := h.ledgerService.Balance(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, resp)
}

// AddMoney POST /api/transactions/add-money
func (h *Handler) AddMoney(c *gin.Context) {
	var req service.AmountRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.ledgerService.Deposit(c.Request.Context(), caller(c), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessMsg(c, "Money added successfully", resp)
}

// CashOut POST /api/transactions/cash-out
func (h *Handler) CashOut(c *gin.Context) {
	var req service.AmountRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.ledgerService.Withdraw(c.Request.Context(), caller(c), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessMsg(c, "Cash out successful", resp)
}

// Transfer POST /api/transactions/transfer
func (h *Handler) Transfer(c *gin.Context) {
	var req service.TransferRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.ledgerService.Transfer(c.Request.Context(), caller(c), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessMsg(c, "Transfer successful", resp)
}

// TransactionHistory GET /api/transactions/history
func (h *Handler) TransactionHistory(c *gin.Context) {
	resp, err := h.ledgerService.History(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, resp)
}

// ============================================================
// Bills
// ============================================================

// PayBill POST /api/bills/pay
func (h *Handler) PayBill(c *gin.Context) {
	var req service.PayBillRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.billService.PayBill(c.Request.Context(), caller(c), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessMsg(c, "Bill paid successfully", resp)
}

// BillHistory GET /api/bills/history
func (h *Handler) BillHistory(c *gin.Context) {
	resp, err := h.billService.History(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, resp)
}

// ============================================================
// Loans
// ============================================================

// LoanEligibility GET /api/loans/eligibility
func (h *Handler) LoanEligibility(c *gin.Context) {
	resp, err := h.loanService.Eligibility(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, resp)
}

// TakeLoan POST /api/loans/take-loan
func (h *Handler) TakeLoan(c *gin.Context) {
	var req service.TakeLoanRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.loanService.TakeLoan(c.Request.Context(), caller(c), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessMsg(c, "Loan approved successfully", resp)
}

// ActiveLoan GET /api/loans/active. data is null without an outstanding loan.
func (h *Handler) ActiveLoan(c *gin.Context) {
	resp, err := h.loanService.Active(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if resp == nil {
		c.JSON(http.StatusOK, gin.H{"status": response.StatusSuccess, "data": nil})
		return
	}
	response.Success(c, resp)
}

// PayLoan POST /api/loans/pay-loan
func (h *Handler) PayLoan(c *gin.Context) {
	var req service.RepayRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.loanService.Repay(c.Request.Context(), caller(c), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	msg := "Loan payment successful"
	if resp.Settled() {
		msg = "Loan fully paid off!"
	}
	response.SuccessMsg(c, msg, resp)
}

// LoanHistory GET /api/loans/history
func (h *Handler) LoanHistory(c *gin.Context) {
	resp, err := h.loanService.History(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, resp)
}
