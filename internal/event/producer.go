package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/internal/domain"
	pkgkafka "github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/kafka"
)

// Kafka topics for discount domain events.
const (
	TopicCampaignCreated = "descuentos.campaign.created"
	TopicCampaignUpdated = "descuentos.campaign.updated"
	TopicCampaignDeleted = "descuentos.campaign.deleted"
	TopicCouponRedeemed  = "descuentos.coupon.redeemed"
)

const AggregateTypeCampaign = "campaign"

// Source identifier for events originating from this service.
const SourceDescuentos = "merci-descuentos"

// CampaignEventData is the payload for campaign lifecycle events.
type CampaignEventData struct {
	ID            string          `json:"id"`
	StoreID       string          `json:"store_id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	DiscountType  string          `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	Status        string          `json:"status"`
}

// CouponRedeemedData is the payload for a coupon.redeemed event.
type CouponRedeemedData struct {
	RedemptionID string          `json:"redemption_id"`
	CampaignID   string          `json:"campaign_id"`
	StoreID      string          `json:"store_id"`
	Code         string          `json:"code"`
	OrderID      string          `json:"order_id"`
	ClientID     string          `json:"client_id,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
}

// Producer publishes discount domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func campaignData(campaign *domain.Campaign) CampaignEventData {
	return CampaignEventData{
		ID:            campaign.ID,
		StoreID:       campaign.StoreID,
		Code:          campaign.Code,
		Name:          campaign.Name,
		DiscountType:  campaign.DiscountType,
		DiscountValue: campaign.DiscountValue,
		Status:        campaign.Status,
	}
}

// PublishCampaignCreated publishes a campaign.created event.
func (p *Producer) PublishCampaignCreated(ctx context.Context, campaign *domain.Campaign) error {
	return p.publishCampaign(ctx, TopicCampaignCreated, campaign)
}

// PublishCampaignUpdated publishes a campaign.updated event.
func (p *Producer) PublishCampaignUpdated(ctx context.Context, campaign *domain.Campaign) error {
	return p.publishCampaign(ctx, TopicCampaignUpdated, campaign)
}

// PublishCampaignDeleted publishes a campaign.deleted event.
func (p *Producer) PublishCampaignDeleted(ctx context.Context, campaign *domain.Campaign) error {
	return p.publishCampaign(ctx, TopicCampaignDeleted, campaign)
}

func (p *Producer) publishCampaign(ctx context.Context, topic string, campaign *domain.Campaign) error {
	event, err := pkgkafka.NewEvent(topic, campaign.ID, AggregateTypeCampaign, SourceDescuentos, campaignData(campaign))
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published campaign event",
		slog.String("topic", topic),
		slog.String("campaign_id", campaign.ID),
		slog.String("code", campaign.Code),
	)

	return nil
}

// PublishCouponRedeemed publishes a coupon.redeemed event for a committed
// redemption.
func (p *Producer) PublishCouponRedeemed(ctx context.Context, redemption *domain.Redemption) error {
	data := CouponRedeemedData{
		RedemptionID: redemption.ID,
		CampaignID:   redemption.CampaignID,
		StoreID:      redemption.StoreID,
		Code:         redemption.Code,
		OrderID:      redemption.OrderID,
		ClientID:     redemption.ClientID,
		Amount:       redemption.Amount,
	}

	event, err := pkgkafka.NewEvent(TopicCouponRedeemed, redemption.CampaignID, AggregateTypeCampaign, SourceDescuentos, data)
	if err != nil {
		return fmt.Errorf("create coupon.redeemed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCouponRedeemed, event); err != nil {
		return fmt.Errorf("publish coupon.redeemed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published coupon.redeemed event",
		slog.String("campaign_id", redemption.CampaignID),
		slog.String("order_id", redemption.OrderID),
	)

	return nil
}
