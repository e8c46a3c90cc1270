package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"podpal/internal/common"
	"podpal/internal/common/security"
	"podpal/internal/domain/model"
	"podpal/internal/domain/repository"
	"podpal/internal/platform/logging"
	"podpal/internal/platform/metrics"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgEmailTaken         = "Email already registered"
)

type AuthService struct {
	accounts   repository.AccountRepository
	hasher     security.PasswordHasher
	tokens     *security.TokenIssuer
	production bool
	newID      func() string
}

func NewAuthService(accounts repository.AccountRepository, hasher security.PasswordHasher, tokens *security.TokenIssuer, production bool) *AuthService {
	return &AuthService{
		accounts:   accounts,
		hasher:     hasher,
		tokens:     tokens,
		production: production,
		newID:      uuid.NewString,
	}
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest accepts either an email or a display name in Email, or an explicit Username.
type LoginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Success bool              `json:"success"`
	Token   string            `json:"token"`
	User    model.UserSummary `json:"user"`
}

// passwordFeedback is attached to weak-password rejections.
type passwordFeedback struct {
	security.PasswordRequirements
	Failed []string `json:"failed"`
}

func (s *AuthService) PasswordRequirements() security.PasswordRequirements {
	return security.Requirements()
}

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	resp, err := s.signup(ctx, req)
	metrics.RecordAuthAttempt("signup", outcomeFor(err))
	return resp, err
}

func (s *AuthService) signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	logger := logging.FromContext(ctx)

	name := strings.TrimSpace(req.Name)
	email := security.NormalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, common.NewAPIError(common.ErrValidation, "Name, email and password are required")
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if !security.ValidateEmail(email) {
		return nil, common.NewAPIError(common.ErrValidation, "Invalid email format")
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	exists, err := s.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, common.NewAPIError(common.ErrInternalServer, "Registration failed").
			WithCause(err).WithDetail(s.production)
	}
	if exists {
		return nil, common.NewAPIError(common.ErrBadRequest, msgEmailTaken).WithCause(common.ErrConflict)
	}

	user := &model.User{
		ID:    s.newID(),
		Name:  name,
		Email: email,
		Role:  model.RoleUser,
	}
	user.SetPassword(req.Password)
	channel := newDefaultChannel(s.newID(), user)

	if err := s.accounts.CreateUserAndChannel(ctx, user, channel); err != nil {
		// The unique constraint catches signups that raced past the pre-check.
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, common.NewAPIError(common.ErrBadRequest, msgEmailTaken).WithCause(err)
		}
		logger.ErrorContext(ctx, "signup transaction failed", "email", email, "error", err)
		return nil, common.NewAPIError(common.ErrInternalServer, "Registration failed").
			WithCause(err).WithDetail(s.production)
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return &AuthResponse{Success: true, Token: token, User: user.Summary(channel)}, nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	resp, err := s.login(ctx, req)
	metrics.RecordAuthAttempt("login", outcomeFor(err))
	return resp, err
}

func (s *AuthService) login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	logger := logging.FromContext(ctx)

	id, ok := model.ParseIdentifier(req.Email, req.Username)
	if !ok || req.Password == "" {
		return nil, common.NewAPIError(common.ErrValidation, "Email and password are required")
	}

	user, err := s.accounts.FindUserByIdentifier(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			logger.InfoContext(ctx, "login rejected: no such user", "identifier_kind", id.Kind.String())
			return nil, common.NewAPIError(common.ErrUnauthorized, msgInvalidCredentials)
		}
		return nil, common.NewAPIError(common.ErrInternalServer, "Login failed").
			WithCause(err).WithDetail(s.production)
	}

	if !user.CanLogin() {
		logger.InfoContext(ctx, "login rejected: account cannot log in", "user_id", user.ID)
		return nil, common.NewAPIError(common.ErrUnauthorized, msgInvalidCredentials)
	}
	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		logger.InfoContext(ctx, "login rejected: password mismatch", "user_id", user.ID)
		return nil, common.NewAPIError(common.ErrUnauthorized, msgInvalidCredentials)
	}

	channel, err := s.accounts.FindChannelByUser(ctx, user.ID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			logger.WarnContext(ctx, "channel lookup failed during login", "user_id", user.ID, "error", err)
		}
		channel = nil
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{Success: true, Token: token, User: user.Summary(channel)}, nil
}

func newDefaultChannel(id string, owner *model.User) *model.Channel {
	name := model.DefaultChannelName(owner.Name)
	return &model.Channel{
		ID:          id,
		UserID:      owner.ID,
		Name:        name,
		Slug:        channelSlug(name, id),
		Description: model.DefaultChannelDescription,
	}
}

// channelSlug suffixes the readable slug with part of the channel ID so that
// users sharing a display name still get distinct handles.
func channelSlug(name, id string) string {
	suffix := strings.ReplaceAll(id, "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	base := slug.Make(name)
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

func validateName(name string) error {
	if name == "" {
		return common.NewAPIError(common.ErrValidation, "Name is required")
	}
	if utf8.RuneCountInString(name) > model.MaxNameLength {
		return common.NewAPIError(common.ErrValidation,
			fmt.Sprintf("Name must be at most %d characters", model.MaxNameLength))
	}
	return nil
}

func validatePassword(password string) error {
	check := security.CheckPassword(password)
	if check.Valid() {
		return nil
	}
	return common.NewAPIError(common.ErrValidation, "Password does not meet requirements").
		WithPayload(passwordFeedback{PasswordRequirements: security.Requirements(), Failed: check.Failed()})
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, common.ErrConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, common.ErrUnauthorized):
		return metrics.OutcomeUnauthorized
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrBadRequest):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}
