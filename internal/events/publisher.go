package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/database"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/models"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeProductDiscovered is published when a crawl yields a product
	EventTypeProductDiscovered EventType = "PRODUCT_DISCOVERED"
)

// ProductDiscoveredPayload is the wire form of a discovered product.
type ProductDiscoveredPayload struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	Timestamp     time.Time `json:"timestamp"`
	ProductID     string    `json:"product_id"`
	Title         string    `json:"title"`
	CurrentPrice  float64   `json:"current_price"`
	OriginalPrice float64   `json:"original_price"`
	DiscountText  string    `json:"discount_text,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	UnitSize      string    `json:"unit_size,omitempty"`
	Category      string    `json:"category,omitempty"`
	URL           string    `json:"url,omitempty"`
	Store         string    `json:"store"`
	Source        string    `json:"source"` // "html" or "api"
}

// Publisher writes product events through the transactional outbox:
// the product upsert and its event land in the same transaction, so
// downstream consumers never see an event for a row that rolled back.
type Publisher struct {
	db     *database.DB
	outbox *database.OutboxRepository
	stream string
	logger *slog.Logger
}

func NewPublisher(db *database.DB, stream string, logger *slog.Logger) *Publisher {
	return &Publisher{
		db:     db,
		outbox: database.NewOutboxRepository(db),
		stream: stream,
		logger: logger.With("component", "event_publisher"),
	}
}

// PublishProductDiscovered upserts the product and enqueues a
// PRODUCT_DISCOVERED event atomically. Records without an id are
// skipped with a warning since they cannot key a row.
func (p *Publisher) PublishProductDiscovered(ctx context.Context, record models.ProductRecord, source string) error {
	if record.ID == "" {
		p.logger.Warn("skipping product without id", "title", record.Title)
		return nil
	}

	payload := ProductDiscoveredPayload{
		EventID:       uuid.New().String(),
		EventType:     string(EventTypeProductDiscovered),
		Timestamp:     time.Now(),
		ProductID:     record.ID,
		Title:         record.Title,
		CurrentPrice:  record.CurrentPrice.Amount,
		OriginalPrice: record.OriginalPrice.Amount,
		DiscountText:  record.DiscountText,
		ImageURL:      record.ImageURL,
		UnitSize:      record.UnitSize,
		Category:      record.Category,
		URL:           record.SourceURL,
		Store:         models.StoreName,
		Source:        source,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	outboxEvent := &database.OutboxEvent{
		AggregateType: "product",
		AggregateID:   record.ID,
		EventType:     string(EventTypeProductDiscovered),
		Payload:       data,
		TargetStream:  p.stream,
	}

	err = p.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := database.UpsertProductTx(ctx, tx, record); err != nil {
			return err
		}
		return p.outbox.InsertWithTx(ctx, tx, outboxEvent)
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("event published to outbox",
		"type", payload.EventType,
		"event_id", payload.EventID,
		"product_id", record.ID,
	)

	return nil
}
