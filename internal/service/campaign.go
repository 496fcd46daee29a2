// Package service implements the business logic for campaign management and
// checkout discount application.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/domain"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/event"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/repository"
	apperrors "github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/errors"
)

// CampaignService implements the admin-side campaign operations.
type CampaignService struct {
	campaigns   repository.CampaignRepository
	redemptions repository.RedemptionRepository
	producer    *event.Producer
	logger      *slog.Logger
}

// NewCampaignService creates a new campaign service.
func NewCampaignService(
	campaigns repository.CampaignRepository,
	redemptions repository.RedemptionRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *CampaignService {
	return &CampaignService{
		campaigns:   campaigns,
		redemptions: redemptions,
		producer:    producer,
		logger:      logger,
	}
}

// CreateCampaignInput holds the parameters for creating a campaign.
type CreateCampaignInput struct {
	Code               string
	Name               string
	DiscountType       string
	DiscountValue      decimal.Decimal
	ValidFrom          *time.Time
	ValidUntil         *time.Time
	ApplyScope         string
	IncludeCategoryIDs []string
	ExcludeCategoryIDs []string
	IncludeProductIDs  []string
	ExcludeProductIDs  []string
	MaxDiscountAmount  *decimal.Decimal
	MinCartAmount      *decimal.Decimal
	MonthlyUsageLimit  int
	Status             string
}

// UpdateCampaignInput holds the parameters for a partial campaign update.
// Nil pointer fields are left unchanged; nil slices are left unchanged.
type UpdateCampaignInput struct {
	Code               *string
	Name               *string
	DiscountType       *string
	DiscountValue      *decimal.Decimal
	ValidFrom          *time.Time
	ValidUntil         *time.Time
	ClearValidFrom     bool
	ClearValidUntil    bool
	ApplyScope         *string
	IncludeCategoryIDs []string
	ExcludeCategoryIDs []string
	IncludeProductIDs  []string
	ExcludeProductIDs  []string
	MaxDiscountAmount  *decimal.Decimal
	ClearMaxDiscount   bool
	MinCartAmount      *decimal.Decimal
	ClearMinCart       bool
	MonthlyUsageLimit  *int
	Status             *string
}

// CreateCampaign validates and persists a new campaign for the store.
func (s *CampaignService) CreateCampaign(ctx context.Context, storeID string, input *CreateCampaignInput) (*domain.Campaign, error) {
	code := strings.ToLower(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, apperrors.InvalidInput("campaign code is required")
	}
	if input.Name == "" {
		return nil, apperrors.InvalidInput("campaign name is required")
	}

	scope := input.ApplyScope
	if scope == "" {
		scope = domain.ScopeAll
	}
	status := input.Status
	if status == "" {
		status = domain.CampaignStatusActive
	}

	now := time.Now().UTC()
	campaign := &domain.Campaign{
		ID:                 uuid.New().String(),
		StoreID:            storeID,
		Code:               code,
		Name:               input.Name,
		DiscountType:       input.DiscountType,
		DiscountValue:      input.DiscountValue,
		ValidFrom:          input.ValidFrom,
		ValidUntil:         input.ValidUntil,
		ApplyScope:         scope,
		IncludeCategoryIDs: emptyIfNil(input.IncludeCategoryIDs),
		ExcludeCategoryIDs: emptyIfNil(input.ExcludeCategoryIDs),
		IncludeProductIDs:  emptyIfNil(input.IncludeProductIDs),
		ExcludeProductIDs:  emptyIfNil(input.ExcludeProductIDs),
		MaxDiscountAmount:  input.MaxDiscountAmount,
		MinCartAmount:      input.MinCartAmount,
		MonthlyUsageLimit:  input.MonthlyUsageLimit,
		Status:             status,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := campaign.ValidateRules(); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	if err := s.campaigns.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}

	if err := s.producer.PublishCampaignCreated(ctx, campaign); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish campaign.created event",
			slog.String("campaign_id", campaign.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "campaign created",
		slog.String("campaign_id", campaign.ID),
		slog.String("store_id", storeID),
		slog.String("code", campaign.Code),
	)

	return campaign, nil
}

// GetCampaign retrieves a campaign by its ID.
func (s *CampaignService) GetCampaign(ctx context.Context, storeID, id string) (*domain.Campaign, error) {
	campaign, err := s.campaigns.GetByID(ctx, storeID, id)
	if err != nil {
		return nil, fmt.Errorf("get campaign by id: %w", err)
	}
	return campaign, nil
}

// ListCampaigns returns a filtered, paginated list of the store's campaigns.
func (s *CampaignService) ListCampaigns(ctx context.Context, storeID string, filter repository.CampaignFilter) ([]domain.Campaign, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	campaigns, total, err := s.campaigns.List(ctx, storeID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	return campaigns, total, nil
}

// UpdateCampaign applies partial updates to an existing campaign.
func (s *CampaignService) UpdateCampaign(ctx context.Context, storeID, id string, input *UpdateCampaignInput) (*domain.Campaign, error) {
	campaign, err := s.campaigns.GetByID(ctx, storeID, id)
	if err != nil {
		return nil, fmt.Errorf("get campaign for update: %w", err)
	}

	if input.Code != nil {
		code := strings.ToLower(strings.TrimSpace(*input.Code))
		if code == "" {
			return nil, apperrors.InvalidInput("campaign code must not be empty")
		}
		campaign.Code = code
	}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("campaign name must not be empty")
		}
		campaign.Name = *input.Name
	}
	if input.DiscountType != nil {
		campaign.DiscountType = *input.DiscountType
	}
	if input.DiscountValue != nil {
		campaign.DiscountValue = *input.DiscountValue
	}
	if input.ClearValidFrom {
		campaign.ValidFrom = nil
	} else if input.ValidFrom != nil {
		campaign.ValidFrom = input.ValidFrom
	}
	if input.ClearValidUntil {
		campaign.ValidUntil = nil
	} else if input.ValidUntil != nil {
		campaign.ValidUntil = input.ValidUntil
	}
	if input.ApplyScope != nil {
		campaign.ApplyScope = *input.ApplyScope
	}
	if input.IncludeCategoryIDs != nil {
		campaign.IncludeCategoryIDs = input.IncludeCategoryIDs
	}
	if input.ExcludeCategoryIDs != nil {
		campaign.ExcludeCategoryIDs = input.ExcludeCategoryIDs
	}
	if input.IncludeProductIDs != nil {
		campaign.IncludeProductIDs = input.IncludeProductIDs
	}
	if input.ExcludeProductIDs != nil {
		campaign.ExcludeProductIDs = input.ExcludeProductIDs
	}
	if input.ClearMaxDiscount {
		campaign.MaxDiscountAmount = nil
	} else if input.MaxDiscountAmount != nil {
		campaign.MaxDiscountAmount = input.MaxDiscountAmount
	}
	if input.ClearMinCart {
		campaign.MinCartAmount = nil
	} else if input.MinCartAmount != nil {
		campaign.MinCartAmount = input.MinCartAmount
	}
	if input.MonthlyUsageLimit != nil {
		campaign.MonthlyUsageLimit = *input.MonthlyUsageLimit
	}
	if input.Status != nil {
		campaign.Status = *input.Status
	}

	if err := campaign.ValidateRules(); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	if err := s.campaigns.Update(ctx, campaign); err != nil {
		return nil, fmt.Errorf("update campaign: %w", err)
	}

	if err := s.producer.PublishCampaignUpdated(ctx, campaign); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish campaign.updated event",
			slog.String("campaign_id", campaign.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "campaign updated",
		slog.String("campaign_id", campaign.ID),
		slog.String("store_id", storeID),
		slog.String("code", campaign.Code),
	)

	return campaign, nil
}

// PauseCampaign sets a campaign's status to paused.
func (s *CampaignService) PauseCampaign(ctx context.Context, storeID, id string) (*domain.Campaign, error) {
	return s.setStatus(ctx, storeID, id, domain.CampaignStatusPaused)
}

// ActivateCampaign sets a campaign's status to active.
func (s *CampaignService) ActivateCampaign(ctx context.Context, storeID, id string) (*domain.Campaign, error) {
	return s.setStatus(ctx, storeID, id, domain.CampaignStatusActive)
}

func (s *CampaignService) setStatus(ctx context.Context, storeID, id, status string) (*domain.Campaign, error) {
	campaign, err := s.campaigns.GetByID(ctx, storeID, id)
	if err != nil {
		return nil, fmt.Errorf("get campaign for status change: %w", err)
	}

	campaign.Status = status

	if err := s.campaigns.Update(ctx, campaign); err != nil {
		return nil, fmt.Errorf("set campaign status: %w", err)
	}

	if err := s.producer.PublishCampaignUpdated(ctx, campaign); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish campaign.updated event",
			slog.String("campaign_id", campaign.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "campaign status changed",
		slog.String("campaign_id", campaign.ID),
		slog.String("status", status),
	)

	return campaign, nil
}

// DeleteCampaign removes a campaign and its redemption history.
func (s *CampaignService) DeleteCampaign(ctx context.Context, storeID, id string) error {
	campaign, err := s.campaigns.GetByID(ctx, storeID, id)
	if err != nil {
		return fmt.Errorf("get campaign for delete: %w", err)
	}

	if err := s.campaigns.Delete(ctx, storeID, id); err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}

	if err := s.producer.PublishCampaignDeleted(ctx, campaign); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish campaign.deleted event",
			slog.String("campaign_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "campaign deleted",
		slog.String("campaign_id", id),
		slog.String("store_id", storeID),
	)

	return nil
}

// CampaignStats returns per-campaign redemption aggregates for the store's
// dashboard.
func (s *CampaignService) CampaignStats(ctx context.Context, storeID string) ([]domain.CampaignStats, error) {
	stats, err := s.redemptions.StatsByCampaign(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("campaign stats: %w", err)
	}
	return stats, nil
}

func emptyIfNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
