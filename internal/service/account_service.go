package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"produce-ledger/internal/auth"
	"produce-ledger/internal/models"
	"produce-ledger/internal/store"
	"produce-ledger/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+`)
	phonePattern = regexp.MustCompile(`^\(?([2-9][0-9]{2})\)?[-.\s]?([0-9]{3})[-.\s]?([0-9]{4})$`)
)

// CustomerEventPublisher receives an event when an account is created
type CustomerEventPublisher interface {
	PublishCustomerRegistered(ctx context.Context, event *models.CustomerRegisteredEvent) error
}

// AccountService manages the customers table
type AccountService struct {
	store         *store.Store
	adminUsername string
	withPassword  bool
	publisher     CustomerEventPublisher
	logger        *zap.Logger
}

// AccountOption configures an AccountService
type AccountOption func(*AccountService)

// WithPasswords requires a password at registration and checks it at login
func WithPasswords() AccountOption {
	return func(s *AccountService) {
		s.withPassword = true
	}
}

// WithCustomerEvents publishes registration events to p
func WithCustomerEvents(p CustomerEventPublisher) AccountOption {
	return func(s *AccountService) {
		s.publisher = p
	}
}

// NewAccountService creates a new account service. A registration whose
// username equals adminUsername (case-insensitively) gets the admin role.
func NewAccountService(st *store.Store, adminUsername string, opts ...AccountOption) *AccountService {
	s := &AccountService{
		store:         st,
		adminUsername: strings.TrimSpace(adminUsername),
		logger:        util.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRequest represents a registration form
type RegisterRequest struct {
	Username  string `json:"username" binding:"required"`
	FirstName string `json:"firstname" binding:"required"`
	LastName  string `json:"lastname" binding:"required"`
	Phone     string `json:"phone" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password,omitempty"`
}

// Register validates and stores a new customer
func (s *AccountService) Register(ctx context.Context, req *RegisterRequest) (*models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.Register")
	defer span.End()

	c := &models.Customer{
		Username:  strings.TrimSpace(req.Username),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     strings.TrimSpace(req.Phone),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Role:      models.RoleCustomer,
		CreatedAt: models.Now(),
	}
	if err := validateCustomer(c); err != nil {
		return nil, err
	}

	if s.withPassword {
		hash, err := auth.HashPassword(req.Password)
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if err != nil {
			return nil, err
		}
		c.PasswordHash = hash
	}

	if s.adminUsername != "" && strings.EqualFold(c.Username, s.adminUsername) {
		c.Role = models.RoleAdmin
	}

	t, err := s.customersTable(ctx)
	if err != nil {
		return nil, err
	}

	err = t.WithWriteLock(ctx, func(ctx context.Context) error {
		if _, err := s.find(ctx, t, c.Username); err == nil {
			return fmt.Errorf("%s: %w", c.Username, ErrUsernameTaken)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		return t.Append(ctx, store.CustomerRow(c, t.Header()))
	})
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	util.CustomersRegisteredTotal.Inc()
	s.logger.Info("Customer registered",
		zap.String("username", c.Username),
		zap.String("role", c.Role))

	s.publish(ctx, c)
	return c, nil
}

// Authenticate resolves username (case-insensitively) to an account. In
// password mode the password must match the stored hash.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.Authenticate")
	defer span.End()

	c, err := s.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		util.LoginAttemptsTotal.WithLabelValues("unknown_user").Inc()
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		util.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if s.withPassword && !auth.CheckPassword(c.PasswordHash, password) {
		util.LoginAttemptsTotal.WithLabelValues("bad_password").Inc()
		return nil, ErrInvalidCredentials
	}

	util.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return c, nil
}

// GetByUsername looks an account up case-insensitively
func (s *AccountService) GetByUsername(ctx context.Context, username string) (*models.Customer, error) {
	t, err := s.customersTable(ctx)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, t, username)
}

func (s *AccountService) find(ctx context.Context, t *store.Table, username string) (*models.Customer, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("customer %q: %w", username, ErrNotFound)
	}

	rows, err := store.Records(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to read customers: %w", err)
	}

	for _, r := range rows {
		c := store.CustomerFromRow(r)
		if strings.EqualFold(c.Username, username) {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("customer %s: %w", username, ErrNotFound)
}

func (s *AccountService) customersTable(ctx context.Context) (*store.Table, error) {
	return s.store.EnsureTable(ctx, models.TableCustomers, models.CustomerHeaderFor(s.withPassword))
}

func (s *AccountService) publish(ctx context.Context, c *models.Customer) {
	if s.publisher == nil {
		return
	}

	event := &models.CustomerRegisteredEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeCustomerRegistered,
			Timestamp: models.Now(),
		},
		Username: c.Username,
		Role:     c.Role,
	}
	if err := s.publisher.PublishCustomerRegistered(ctx, event); err != nil {
		s.logger.Error("Failed to publish registration event",
			zap.String("username", c.Username),
			zap.Error(err))
	}
}

func validateCustomer(c *models.Customer) error {
	if c.Username == "" || c.FirstName == "" || c.LastName == "" || c.Phone == "" || c.Email == "" {
		return fmt.Errorf("%w: all fields are required", ErrInvalidInput)
	}
	if strings.ContainsAny(c.Username, " \t\r\n") {
		return fmt.Errorf("%w: username must not contain spaces", ErrInvalidInput)
	}
	if !emailPattern.MatchString(c.Email) {
		return fmt.Errorf("%w: invalid email format", ErrInvalidInput)
	}
	if !phonePattern.MatchString(c.Phone) {
		return fmt.Errorf("%w: invalid Canadian phone number format", ErrInvalidInput)
	}
	return nil
}
