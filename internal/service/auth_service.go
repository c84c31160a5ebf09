package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"netbanking/internal/config"
	"netbanking/internal/model"
	"netbanking/internal/repository"
	"netbanking/internal/token"
	"netbanking/internal/validation"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	msgDuplicateCustomer = "Email or phone number already registered"
	msgBadLogin          = "Invalid phone number or account number"
	msgStaffRequired     = "Employee ID and name are required"
	msgBadCredentials    = "Invalid credentials"
	msgNoAccountNumbers  = "No account numbers are available, please contact the bank"
)

// superuser is a configured staff login. Only the bcrypt hash is kept.
type superuser struct {
	id   string
	name string
	role string
	hash []byte
}

type AuthService struct {
	db           *gorm.DB
	log          zerolog.Logger
	tokens       *token.Manager
	opening      decimal.Decimal
	superusers   []superuser
	customerRepo *repository.CustomerRepository
	accountRepo  *repository.AccountRepository
	employeeRepo *repository.EmployeeRepository
	now          func() time.Time
}

func NewAuthService(db *gorm.DB, cfg *config.Config, tokens *token.Manager, log zerolog.Logger) (*AuthService, error) {
	opening, err := cfg.Business.OpeningAmount()
	if err != nil {
		return nil, err
	}

	supers := make([]superuser, 0, len(cfg.Auth.Superusers))
	for _, su := range cfg.Auth.Superusers {
		hash := []byte(su.PasswordHash)
		if len(hash) == 0 {
			hash, err = bcrypt.GenerateFromPassword([]byte(su.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, fmt.Errorf("hash password of superuser %s: %w", su.ID, err)
			}
		}
		name := su.Name
		if name == "" {
			name = su.ID
		}
		supers = append(supers, superuser{id: su.ID, name: name, role: su.Role, hash: hash})
	}

	return &AuthService{
		db:           db,
		log:          log,
		tokens:       tokens,
		opening:      opening,
		superusers:   supers,
		customerRepo: repository.NewCustomerRepository(db),
		accountRepo:  repository.NewAccountRepository(db),
		employeeRepo: repository.NewEmployeeRepository(db),
		now:          time.Now,
	}, nil
}

// ============================================================================
// Customers
// ============================================================================

type RegisterRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	DOB     string `json:"dob"`
}

type RegisterResponse struct {
	CustomerID int64  `json:"customerId"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	AccountNo  string `json:"accountNo"`
}

// Register creates the customer and its Savings account in one transaction.
// The account number is derived from the customer id, so the account row is
// written after the customer insert returns its id.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	name, err := validation.Name(req.Name)
	if err != nil {
		return nil, asServiceError(err, "")
	}
	email, err := validation.Email(req.Email)
	if err != nil {
		return nil, asServiceError(err, "")
	}
	phone, err := validation.Phone(req.Phone)
	if err != nil {
		return nil, asServiceError(err, "")
	}
	dob, err := validation.DateOfBirth(req.DOB, s.now())
	if err != nil {
		return nil, asServiceError(err, "")
	}

	customer := &model.Customer{
		Name:    name,
		Email:   email,
		Phone:   phone,
		Address: strings.TrimSpace(req.Address),
		DOB:     dob,
	}
	var account *model.Account

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.customerRepo.ExistsByPhoneOrEmail(ctx, tx, phone, email)
		if err != nil {
			return err
		}
		if exists {
			return newErr(KindConflict, msgDuplicateCustomer)
		}
		if err := s.customerRepo.Create(ctx, tx, customer); err != nil {
			return err
		}
		if customer.ID > model.MaxAccountSerial {
			return newErr(KindConflict, msgNoAccountNumbers)
		}

		account = &model.Account{
			AccountNo:      model.FormatAccountNo(customer.ID),
			Type:           model.AccountTypeSavings,
			Balance:        s.opening,
			OpeningBalance: s.opening,
			Status:         model.AccountStatusActive,
			CustomerID:     customer.ID,
		}
		return s.accountRepo.Create(ctx, tx, account)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		err = newErr(KindConflict, msgDuplicateCustomer)
	}
	if err != nil {
		if KindOf(err) == KindInternal {
			s.log.Error().Err(err).Str("phone", phone).Msg("registration failed")
		}
		return nil, asServiceError(err, "Registration failed")
	}

	s.log.Info().
		Int64("customer_id", customer.ID).
		Str("account_no", account.AccountNo).
		Msg("customer registered")

	return &RegisterResponse{
		CustomerID: customer.ID,
		Name:       customer.Name,
		Phone:      customer.Phone,
		AccountNo:  account.AccountNo,
	}, nil
}

type LoginRequest struct {
	Phone     string `json:"phone"`
	AccountNo string `json:"accountNo"`
}

type CustomerProfile struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Phone       string          `json:"phone"`
	AccountNo   string          `json:"accountNo"`
	AccountType string          `json:"accountType"`
	Balance     decimal.Decimal `json:"balance"`
}

type LoginResponse struct {
	Token    string          `json:"token"`
	Customer CustomerProfile `json:"customer"`
}

// Login authenticates a customer by phone and account number. Only Active
// accounts may sign in; every other outcome looks the same to the client.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	phone, err := validation.Phone(req.Phone)
	if err != nil {
		return nil, asServiceError(err, "")
	}
	accountNo, err := validation.AccountNumber(req.AccountNo)
	if err != nil {
		return nil, asServiceError(err, "")
	}

	ca, err := s.customerRepo.FindByPhoneAndAccountNo(ctx, phone, accountNo)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, newErr(KindUnauthorized, msgBadLogin)
		}
		return nil, internalErr("Login failed", err)
	}
	if ca.Status != model.AccountStatusActive {
		return nil, newErr(KindUnauthorized, msgBadLogin)
	}

	signed, err := s.tokens.Issue(token.Claims{
		CustomerID: ca.CustomerID,
		AccountID:  ca.AccountID,
		AccountNo:  ca.AccountNo,
		Phone:      ca.Phone,
	})
	if err != nil {
		return nil, internalErr("Login failed", err)
	}

	return &LoginResponse{
		Token: signed,
		Customer: CustomerProfile{
			ID:          ca.CustomerID,
			Name:        ca.Name,
			Email:       ca.Email,
			Phone:       ca.Phone,
			AccountNo:   ca.AccountNo,
			AccountType: ca.AccountType,
			Balance:     ca.Balance,
		},
	}, nil
}

// ============================================================================
// Staff
// ============================================================================

// StaffLoginRequest identifies an employee. EmployeeID may arrive as a JSON
// number (table rows) or a string (configured superusers). Password is the
// superuser secret; older clients send it in Name, which is accepted too.
type StaffLoginRequest struct {
	EmployeeID interface{} `json:"employeeId"`
	Name       string      `json:"name"`
	Password   string      `json:"password"`
}

func (r *StaffLoginRequest) id() string {
	if r.EmployeeID == nil {
		return ""
	}
	if f, ok := r.EmployeeID.(float64); ok {
		return strconv.FormatInt(int64(f), 10)
	}
	return strings.TrimSpace(fmt.Sprint(r.EmployeeID))
}

type StaffEmployee struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Role    string `json:"role"`
}

type StaffLoginResponse struct {
	Token      string        `json:"token"`
	EmployeeID string        `json:"employeeId"`
	Name       string        `json:"name"`
	Employee   StaffEmployee `json:"employee"`
}

// AdminLogin accepts admin superusers and employee rows with the admin role.
func (s *AuthService) AdminLogin(ctx context.Context, req *StaffLoginRequest) (*StaffLoginResponse, error) {
	return s.staffLogin(ctx, req, model.RoleAdmin)
}

// ManagerLogin accepts any staff member; admins get a manager session.
func (s *AuthService) ManagerLogin(ctx context.Context, req *StaffLoginRequest) (*StaffLoginResponse, error) {
	return s.staffLogin(ctx, req, model.RoleManager)
}

func (s *AuthService) staffLogin(ctx context.Context, req *StaffLoginRequest, want string) (*StaffLoginResponse, error) {
	id := req.id()
	name := strings.TrimSpace(req.Name)
	if id == "" || name == "" {
		return nil, newErr(KindValidation, msgStaffRequired)
	}
	secret := req.Password
	if secret == "" {
		secret = name
	}

	if su, ok := s.matchSuperuser(id, secret); ok {
		if want == model.RoleAdmin && su.role != model.RoleAdmin {
			return nil, newErr(KindUnauthorized, msgBadCredentials)
		}
		return s.issueStaff(StaffEmployee{ID: su.id, Name: su.name, Address: "Head Office", Role: su.role}, want)
	}

	empID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, newErr(KindUnauthorized, msgBadCredentials)
	}
	emp, err := s.employeeRepo.FindByIDAndName(ctx, empID, name)
	if err != nil {
		if errors.Is(err, repository.ErrEmployeeNotFound) {
			return nil, newErr(KindUnauthorized, msgBadCredentials)
		}
		return nil, internalErr("Login failed", err)
	}
	if want == model.RoleAdmin && emp.Role != model.RoleAdmin {
		return nil, newErr(KindUnauthorized, msgBadCredentials)
	}

	return s.issueStaff(StaffEmployee{
		ID:      strconv.FormatInt(emp.ID, 10),
		Name:    emp.Name,
		Address: emp.Address,
		Role:    emp.Role,
	}, want)
}

func (s *AuthService) matchSuperuser(id, secret string) (superuser, bool) {
	for _, su := range s.superusers {
		if su.id != id {
			continue
		}
		if bcrypt.CompareHashAndPassword(su.hash, []byte(secret)) == nil {
			return su, true
		}
	}
	return superuser{}, false
}

func (s *AuthService) issueStaff(emp StaffEmployee, session string) (*StaffLoginResponse, error) {
	claims := token.Claims{
		EmployeeID: emp.ID,
		Name:       emp.Name,
		IsAdmin:    session == model.RoleAdmin,
		IsManager:  session == model.RoleManager,
	}
	signed, err := s.tokens.Issue(claims)
	if err != nil {
		return nil, internalErr("Login failed", err)
	}

	s.log.Info().Str("employee_id", emp.ID).Str("session", session).Msg("staff login")

	return &StaffLoginResponse{
		Token:      signed,
		EmployeeID: emp.ID,
		Name:       emp.Name,
		Employee:   emp,
	}, nil
}
