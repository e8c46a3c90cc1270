package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"podpal/internal/common"
	"podpal/internal/domain/model"
	"podpal/internal/domain/repository"
)

type ProfileService struct {
	accounts repository.AccountRepository
}

func NewProfileService(accounts repository.AccountRepository) *ProfileService {
	return &ProfileService{accounts: accounts}
}

type Profile struct {
	User    *model.User    `json:"user"`
	Channel *model.Channel `json:"channel"`
}

// UpdateProfileRequest fields are optional; nil leaves the value unchanged.
type UpdateProfileRequest struct {
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

func (s *ProfileService) Me(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.accounts.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewAPIError(common.ErrNotFound, "User not found")
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	channel, err := s.accounts.FindChannelByUser(ctx, userID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("load channel: %w", err)
	}
	return &Profile{User: user, Channel: channel}, nil
}

func (s *ProfileService) Update(ctx context.Context, userID string, req UpdateProfileRequest) (*Profile, error) {
	if req.Name == nil && req.Password == nil {
		return nil, common.NewAPIError(common.ErrValidation, "Nothing to update")
	}

	user, err := s.accounts.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewAPIError(common.ErrNotFound, "User not found")
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := validateName(name); err != nil {
			return nil, err
		}
		user.Name = name
	}
	if req.Password != nil {
		if user.IsSystem {
			return nil, common.NewAPIError(common.ErrForbidden, "System accounts cannot set a password")
		}
		if err := validatePassword(*req.Password); err != nil {
			return nil, err
		}
		user.SetPassword(*req.Password)
	}

	if err := s.accounts.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.Me(ctx, userID)
}
