// Package funding carries the platform core: campaign lifecycle operations,
// the donation transaction coordinator, and the expiry sweep.
package funding

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"server/internal/adapter/cache"
	"server/internal/domain"
)

// Service coordinates campaign and donation operations over the persistence
// contracts. Cache writes are best effort and never fail an operation.
type Service struct {
	users     domain.UserRepository
	campaigns domain.CampaignRepository
	store     domain.FundingStore
	cache     cache.Cache
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates a Service. A nil cache falls back to the noop implementation.
func New(users domain.UserRepository, campaigns domain.CampaignRepository, store domain.FundingStore, c cache.Cache, logger zerolog.Logger) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{
		users:     users,
		campaigns: campaigns,
		store:     store,
		cache:     c,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateCampaignInput carries the caller-supplied campaign fields.
type CreateCampaignInput struct {
	Title       string
	Description string
	GoalAmount  decimal.Decimal
	Deadline    time.Time
}

// CreateCampaign validates and persists a new campaign in on-moderation
// status. Nothing is persisted on validation failure.
func (s *Service) CreateCampaign(ctx context.Context, owner *domain.User, in CreateCampaignInput) (*domain.Campaign, error) {
	now := s.now()
	campaign := &domain.Campaign{
		ID:          uuid.NewString(),
		OwnerID:     owner.ID,
		Title:       in.Title,
		Description: in.Description,
		GoalAmount:  in.GoalAmount,
		Deadline:    in.Deadline,
		Status:      domain.CampaignOnModeration,
		CreatedAt:   now,
	}
	if err := campaign.Validate(now); err != nil {
		return nil, err
	}
	if err := s.campaigns.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	s.invalidate(ctx, cache.KeyCampaignList(owner.ID), cache.KeyMyCampaigns(owner.ID))
	s.logger.Info().Str("campaign_id", campaign.ID).Str("owner_id", owner.ID).Msg("campaign created")
	return campaign, nil
}

// Approve moves an on-moderation campaign to active.
func (s *Service) Approve(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	return s.moderate(ctx, campaignID, domain.CampaignActive)
}

// Reject moves an on-moderation campaign to rejected.
func (s *Service) Reject(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	return s.moderate(ctx, campaignID, domain.CampaignRejected)
}

func (s *Service) moderate(ctx context.Context, campaignID string, target domain.CampaignStatus) (*domain.Campaign, error) {
	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status != domain.CampaignOnModeration {
		return nil, domain.ErrInvalidTransition
	}
	if err := s.campaigns.SetStatus(ctx, campaignID, target); err != nil {
		return nil, fmt.Errorf("set status: %w", err)
	}
	campaign.Status = target
	s.invalidate(ctx, cache.KeyCampaignList(campaign.OwnerID), cache.KeyMyCampaigns(campaign.OwnerID))
	s.logger.Info().Str("campaign_id", campaignID).Str("status", string(target)).Msg("campaign moderated")
	return campaign, nil
}

// invalidate drops cache keys after a successful mutation. Failures are
// logged and swallowed; the TTL bounds the resulting staleness.
func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.Warn().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
	}
}
