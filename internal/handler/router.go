package handler

import (
	"net/http"

	"netbanking/pkg/response"

	"github.com/gin-gonic/gin"
)

// SetupRouter wires middleware and every route.
func SetupRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.Config.Server.Mode != "" {
		gin.SetMode(deps.Config.Server.Mode)
	}

	h, err := NewHandler(deps)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	r.Use(RequestIDMiddleware(deps.Log))
	r.Use(RecoveryMiddleware(deps.Log))
	r.Use(LoggerMiddleware(deps.Log))
	r.Use(CORSMiddleware(deps.Config.Server.AllowOrigins))

	r.GET("/health", h.Health)

	authed := AuthMiddleware(deps.Tokens)

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)

		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
			auth.POST("/admin-login", h.AdminLogin)
			auth.POST("/manager-login", h.ManagerLogin)
		}

		txn := api.Group("/transactions", authed, RequireCustomer())
		{
			txn.GET("/balance", h.GetBalance)
			txn.POST("/add-money", h.AddMoney)
			txn.POST("/cash-out", h.CashOut)
			txn.POST("/transfer", h.Transfer)
			txn.GET("/history", h.TransactionHistory)
		}

		bills := api.Group("/bills", authed, RequireCustomer())
		{
			bills.POST("/pay", h.PayBill)
			bills.GET("/history", h.BillHistory)
		}

		loans := api.Group("/loans", authed, RequireCustomer())
		{
			loans.GET("/eligibility", h.LoanEligibility)
			loans.POST("/take-loan", h.TakeLoan)
			loans.GET("/active", h.ActiveLoan)
			loans.POST("/pay-loan", h.PayLoan)
			loans.GET("/history", h.LoanHistory)
		}

		admin := api.Group("/admin", authed, RequireAdmin())
		{
			admin.GET("/stats", h.Stats)
			admin.GET("/users", h.AdminUsers)
			admin.GET("/transactions", h.AllTransactions)
			admin.GET("/loans", h.OutstandingLoans)
			admin.GET("/reconciliation", h.Reconciliation)
			admin.PUT("/users/:accountNo/freeze", h.FreezeAccount)
			admin.PUT("/users/:accountNo/approve", h.ApproveAccount)
			admin.DELETE("/users/:accountNo", h.DeleteAccount)
		}

		manager := api.Group("/manager", authed, RequireManager())
		{
			manager.GET("/stats", h.Stats)
			manager.GET("/users", h.ManagerUsers)
			manager.GET("/transactions", h.AllTransactions)
			manager.GET("/loans", h.OutstandingLoans)
		}

		employees := api.Group("/employees", authed, RequireAdmin())
		{
			employees.GET("", h.ListEmployees)
			employees.POST("", h.CreateEmployee)
			employees.GET("/:id", h.GetEmployee)
			employees.PUT("/:id", h.UpdateEmployee)
			employees.DELETE("/:id", h.DeleteEmployee)
		}
	}

	if dir := deps.Config.Server.StaticDir; dir != "" {
		r.Static("/app", dir)
		r.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusFound, "/app/")
		})
	}

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Route not found")
	})

	return r, nil
}
