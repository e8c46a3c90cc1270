package service

import (
	"context"
	"errors"
	"fmt"

	"podpal/internal/common"
	"podpal/internal/domain/model"
	"podpal/internal/domain/repository"
)

type ChannelService struct {
	accounts repository.AccountRepository
	podcasts repository.PodcastRepository
}

func NewChannelService(accounts repository.AccountRepository, podcasts repository.PodcastRepository) *ChannelService {
	return &ChannelService{accounts: accounts, podcasts: podcasts}
}

func (s *ChannelService) Get(ctx context.Context, channelID string) (*model.ChannelPage, error) {
	ch, err := s.accounts.FindChannelByID(ctx, channelID)
	if err != nil {
		return nil, channelLookupError(err)
	}
	return s.page(ctx, ch)
}

func (s *ChannelService) GetBySlug(ctx context.Context, slug string) (*model.ChannelPage, error) {
	ch, err := s.accounts.FindChannelBySlug(ctx, slug)
	if err != nil {
		return nil, channelLookupError(err)
	}
	return s.page(ctx, ch)
}

func (s *ChannelService) page(ctx context.Context, ch *model.Channel) (*model.ChannelPage, error) {
	podcasts, err := s.podcasts.ListByChannel(ctx, ch.ID)
	if err != nil {
		return nil, fmt.Errorf("list channel podcasts: %w", err)
	}
	return &model.ChannelPage{Channel: ch, Podcasts: podcasts}, nil
}

func (s *ChannelService) Subscribe(ctx context.Context, channelID, userID string) error {
	ch, err := s.accounts.FindChannelByID(ctx, channelID)
	if err != nil {
		return channelLookupError(err)
	}
	if ch.UserID == userID {
		return common.NewAPIError(common.ErrBadRequest, "Cannot subscribe to your own channel")
	}
	if err := s.accounts.Subscribe(ctx, channelID, userID); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

func (s *ChannelService) Unsubscribe(ctx context.Context, channelID, userID string) error {
	if _, err := s.accounts.FindChannelByID(ctx, channelID); err != nil {
		return channelLookupError(err)
	}
	if err := s.accounts.Unsubscribe(ctx, channelID, userID); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	return nil
}

func channelLookupError(err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return common.NewAPIError(common.ErrNotFound, "Channel not found")
	}
	return fmt.Errorf("load channel: %w", err)
}
