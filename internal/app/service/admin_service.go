package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"podpal/internal/common"
	"podpal/internal/common/security"
	"podpal/internal/domain/model"
	"podpal/internal/domain/repository"
	"podpal/internal/platform/logging"
	"podpal/internal/platform/metrics"
)

const (
	DefaultUserPageSize = 20
	MaxUserPageSize     = 100
)

type AdminService struct {
	admins     repository.AdminRepository
	accounts   repository.AccountRepository
	hasher     security.PasswordHasher
	tokens     *security.TokenIssuer
	production bool
	newID      func() string
}

func NewAdminService(admins repository.AdminRepository, accounts repository.AccountRepository, hasher security.PasswordHasher, tokens *security.TokenIssuer, production bool) *AdminService {
	return &AdminService{
		admins:     admins,
		accounts:   accounts,
		hasher:     hasher,
		tokens:     tokens,
		production: production,
		newID:      uuid.NewString,
	}
}

type AdminSignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AdminSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type AdminAuthResponse struct {
	Success bool         `json:"success"`
	Token   string       `json:"token"`
	Admin   AdminSummary `json:"admin"`
}

type UserPage struct {
	Users []model.User `json:"users"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

// Signup creates an admin. Without an admin caller it only succeeds while no
// admin exists yet; once one does, further admins must be created by an admin.
func (s *AdminService) Signup(ctx context.Context, caller *security.Identity, req AdminSignupRequest) (*AdminAuthResponse, error) {
	admin, err := s.newAdmin(req)
	if err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx)
	if caller != nil && caller.Role == model.RoleAdmin {
		err = s.admins.Create(ctx, admin)
		logger = logger.With("path", "admin", "created_by", caller.Subject)
	} else {
		err = s.admins.CreateFirst(ctx, admin)
		logger = logger.With("path", "bootstrap")
	}
	if err != nil {
		return nil, s.translateCreateError(err)
	}

	logger.InfoContext(ctx, "admin created", "admin_id", admin.ID)
	return s.respond(admin)
}

// Provision creates an admin unconditionally. It backs the create-admin command.
func (s *AdminService) Provision(ctx context.Context, req AdminSignupRequest) (*model.Admin, error) {
	admin, err := s.newAdmin(req)
	if err != nil {
		return nil, err
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, s.translateCreateError(err)
	}
	logging.FromContext(ctx).InfoContext(ctx, "admin created", "admin_id", admin.ID, "path", "provision")
	return admin, nil
}

func (s *AdminService) Login(ctx context.Context, req LoginRequest) (*AdminAuthResponse, error) {
	resp, err := s.login(ctx, req)
	metrics.RecordAuthAttempt("admin_login", outcomeFor(err))
	return resp, err
}

func (s *AdminService) login(ctx context.Context, req LoginRequest) (*AdminAuthResponse, error) {
	id, ok := model.ParseIdentifier(req.Email, req.Username)
	if !ok || req.Password == "" {
		return nil, common.NewAPIError(common.ErrValidation, "Email and password are required")
	}

	admin, err := s.admins.FindByIdentifier(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			logging.FromContext(ctx).InfoContext(ctx, "admin login rejected: no such admin")
			return nil, common.NewAPIError(common.ErrUnauthorized, msgInvalidCredentials)
		}
		return nil, common.NewAPIError(common.ErrInternalServer, "Login failed").
			WithCause(err).WithDetail(s.production)
	}
	if !s.hasher.Verify(req.Password, admin.PasswordHash) {
		logging.FromContext(ctx).InfoContext(ctx, "admin login rejected: password mismatch", "admin_id", admin.ID)
		return nil, common.NewAPIError(common.ErrUnauthorized, msgInvalidCredentials)
	}
	return s.respond(admin)
}

func (s *AdminService) ListUsers(ctx context.Context, page, limit int) (*UserPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultUserPageSize
	}
	if limit > MaxUserPageSize {
		limit = MaxUserPageSize
	}

	users, total, err := s.accounts.ListUsers(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return &UserPage{Users: users, Total: total, Page: page, Limit: limit}, nil
}

func (s *AdminService) Stats(ctx context.Context) (model.Stats, error) {
	return s.accounts.Stats(ctx)
}

func (s *AdminService) newAdmin(req AdminSignupRequest) (*model.Admin, error) {
	username := strings.TrimSpace(req.Username)
	email := security.NormalizeEmail(req.Email)
	if username == "" || email == "" || req.Password == "" {
		return nil, common.NewAPIError(common.ErrValidation, "Username, email and password are required")
	}
	if !security.ValidateEmail(email) {
		return nil, common.NewAPIError(common.ErrValidation, "Invalid email format")
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return &model.Admin{ID: s.newID(), Username: username, Email: email, PasswordHash: hash}, nil
}

func (s *AdminService) translateCreateError(err error) error {
	switch {
	case errors.Is(err, common.ErrForbidden):
		return common.NewAPIError(common.ErrForbidden, "Admin access required").WithCause(err)
	case errors.Is(err, common.ErrConflict):
		return common.NewAPIError(common.ErrBadRequest, msgEmailTaken).WithCause(err)
	default:
		return common.NewAPIError(common.ErrInternalServer, "Admin registration failed").
			WithCause(err).WithDetail(s.production)
	}
}

func (s *AdminService) respond(admin *model.Admin) (*AdminAuthResponse, error) {
	token, err := s.tokens.Issue(admin.ID, admin.Role())
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AdminAuthResponse{
		Success: true,
		Token:   token,
		Admin:   AdminSummary{ID: admin.ID, Username: admin.Username, Email: admin.Email, Role: admin.Role()},
	}, nil
}
