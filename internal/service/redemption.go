package service

import (
	"context"
	"errors"
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

// RedemptionService implements the checkout-side discount decisions: code
// validation, session apply/remove, and redemption commit from the order
// webhook.
type RedemptionService struct {
	campaigns   repository.CampaignRepository
	redemptions repository.RedemptionRepository
	sessions    repository.SessionRepository
	limiter     repository.UsageLimiter
	producer    *event.Producer
	logger      *slog.Logger
	now         func() time.Time
}

// NewRedemptionService creates a new redemption service.
func NewRedemptionService(
	campaigns repository.CampaignRepository,
	redemptions repository.RedemptionRepository,
	sessions repository.SessionRepository,
	limiter repository.UsageLimiter,
	producer *event.Producer,
	logger *slog.Logger,
) *RedemptionService {
	return &RedemptionService{
		campaigns:   campaigns,
		redemptions: redemptions,
		sessions:    sessions,
		limiter:     limiter,
		producer:    producer,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ApplyCodeInput holds the parameters of a widget apply request.
type ApplyCodeInput struct {
	SessionID string
	ClientID  string
	Code      string
	Cart      domain.Cart
}

// ValidateCode runs the discount decision for a code against a cart without
// touching session state or usage counters. The ErrorKind is the expected
// outcome channel; the error return is reserved for infrastructure failures.
func (s *RedemptionService) ValidateCode(ctx context.Context, storeID, code string, cart domain.Cart) (*domain.AppliedDiscount, domain.ErrorKind, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrorKindCodeNotFound, nil
	}

	campaign, err := s.campaigns.GetByCode(ctx, storeID, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.ErrorKindCodeNotFound, nil
		}
		return nil, domain.ErrorKindInternal, fmt.Errorf("get campaign by code: %w", err)
	}

	applied, kind := domain.Apply(campaign, cart, s.now())
	if kind != domain.ErrorKindNone {
		return nil, kind, nil
	}
	return &applied, domain.ErrorKindNone, nil
}

// ApplyCode validates the code, reserves a monthly usage slot for the client,
// and stores the discount on the checkout session. A session holds at most one
// discount; applying a new code replaces the previous one.
func (s *RedemptionService) ApplyCode(ctx context.Context, storeID string, input *ApplyCodeInput) (*domain.AppliedDiscount, domain.ErrorKind, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return nil, domain.ErrorKindCodeNotFound, nil
	}

	campaign, err := s.campaigns.GetByCode(ctx, storeID, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.ErrorKindCodeNotFound, nil
		}
		return nil, domain.ErrorKindInternal, fmt.Errorf("get campaign by code: %w", err)
	}

	applied, kind := domain.Apply(campaign, input.Cart, s.now())
	if kind != domain.ErrorKindNone {
		return nil, kind, nil
	}

	reserved := false
	if campaign.MonthlyUsageLimit > 0 && input.ClientID != "" {
		err := s.limiter.Reserve(ctx, storeID, input.ClientID, campaign.ID, campaign.MonthlyUsageLimit, s.now())
		if errors.Is(err, repository.ErrLimitReached) {
			return nil, domain.ErrorKindCapReached, nil
		}
		if err != nil {
			return nil, domain.ErrorKindInternal, fmt.Errorf("reserve usage slot: %w", err)
		}
		reserved = true
	}

	// A session holds a single discount. Capture what this apply replaces so
	// its reservation can be freed once the new discount is stored.
	var replaced *domain.AppliedDiscount
	if input.ClientID != "" {
		prev, err := s.sessions.GetApplied(ctx, storeID, input.SessionID)
		switch {
		case err == nil:
			replaced = prev
		case !errors.Is(err, apperrors.ErrNotFound):
			s.logger.WarnContext(ctx, "could not read previously applied discount",
				slog.String("session_id", input.SessionID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.sessions.SetApplied(ctx, storeID, input.SessionID, &applied); err != nil {
		if reserved {
			if relErr := s.limiter.Release(ctx, storeID, input.ClientID, campaign.ID, s.now()); relErr != nil {
				s.logger.ErrorContext(ctx, "failed to release usage slot after apply failure",
					slog.String("campaign_id", campaign.ID),
					slog.String("error", relErr.Error()),
				)
			}
		}
		return nil, domain.ErrorKindInternal, fmt.Errorf("store applied discount: %w", err)
	}

	if replaced != nil {
		s.releaseReservation(ctx, storeID, input.ClientID, replaced.Code)
	}

	s.logger.InfoContext(ctx, "discount applied to session",
		slog.String("store_id", storeID),
		slog.String("session_id", input.SessionID),
		slog.String("code", applied.Code),
		slog.String("amount", applied.Amount.String()),
	)

	return &applied, domain.ErrorKindNone, nil
}

// RemoveCode clears the discount applied to a session and frees the client's
// usage reservation. Removing from a session with nothing applied is a no-op.
func (s *RedemptionService) RemoveCode(ctx context.Context, storeID, sessionID, clientID string) error {
	applied, err := s.sessions.GetApplied(ctx, storeID, sessionID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get applied discount: %w", err)
	}

	if clientID != "" {
		s.releaseReservation(ctx, storeID, clientID, applied.Code)
	}

	if err := s.sessions.ClearApplied(ctx, storeID, sessionID); err != nil {
		return fmt.Errorf("clear applied discount: %w", err)
	}

	s.logger.InfoContext(ctx, "discount removed from session",
		slog.String("store_id", storeID),
		slog.String("session_id", sessionID),
		slog.String("code", applied.Code),
	)

	return nil
}

// releaseReservation frees the client's monthly usage slot for the campaign
// behind code, when that campaign is capped.
func (s *RedemptionService) releaseReservation(ctx context.Context, storeID, clientID, code string) {
	campaign, err := s.campaigns.GetByCode(ctx, storeID, code)
	if err != nil || campaign.MonthlyUsageLimit <= 0 {
		return
	}
	if err := s.limiter.Release(ctx, storeID, clientID, campaign.ID, s.now()); err != nil {
		s.logger.ErrorContext(ctx, "failed to release usage slot",
			slog.String("campaign_id", campaign.ID),
			slog.String("error", err.Error()),
		)
	}
}

// GetApplied returns the discount currently applied to a session, or nil when
// none is applied.
func (s *RedemptionService) GetApplied(ctx context.Context, storeID, sessionID string) (*domain.AppliedDiscount, error) {
	applied, err := s.sessions.GetApplied(ctx, storeID, sessionID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get applied discount: %w", err)
	}
	return applied, nil
}

// CommitRedemptionInput holds the fields consumed from the order-created
// webhook payload.
type CommitRedemptionInput struct {
	OrderID   string
	ClientID  string
	SessionID string
	Code      string
	Amount    decimal.Decimal
}

// CommitRedemption records a completed redemption: a redemption row for the
// stats rollup, the usage reservation pinned for the rest of the month, a
// coupon.redeemed event, and the session's discount cleared.
func (s *RedemptionService) CommitRedemption(ctx context.Context, storeID string, input *CommitRedemptionInput) (*domain.Redemption, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return nil, apperrors.InvalidInput("redemption code is required")
	}

	campaign, err := s.campaigns.GetByCode(ctx, storeID, code)
	if err != nil {
		return nil, fmt.Errorf("get campaign for redemption: %w", err)
	}

	redemption := &domain.Redemption{
		ID:         uuid.New().String(),
		StoreID:    storeID,
		CampaignID: campaign.ID,
		Code:       campaign.Code,
		OrderID:    input.OrderID,
		ClientID:   input.ClientID,
		Amount:     input.Amount,
		CreatedAt:  s.now(),
	}

	if err := s.redemptions.Record(ctx, redemption); err != nil {
		return nil, fmt.Errorf("record redemption: %w", err)
	}

	if campaign.MonthlyUsageLimit > 0 && input.ClientID != "" {
		if err := s.limiter.Commit(ctx, storeID, input.ClientID, campaign.ID, s.now()); err != nil {
			s.logger.ErrorContext(ctx, "failed to commit usage slot",
				slog.String("campaign_id", campaign.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.producer.PublishCouponRedeemed(ctx, redemption); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish coupon.redeemed event",
			slog.String("redemption_id", redemption.ID),
			slog.String("error", err.Error()),
		)
	}

	if input.SessionID != "" {
		if err := s.sessions.ClearApplied(ctx, storeID, input.SessionID); err != nil {
			s.logger.ErrorContext(ctx, "failed to clear session discount after redemption",
				slog.String("session_id", input.SessionID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "redemption committed",
		slog.String("redemption_id", redemption.ID),
		slog.String("campaign_id", campaign.ID),
		slog.String("order_id", input.OrderID),
		slog.String("amount", redemption.Amount.String()),
	)

	return redemption, nil
}
