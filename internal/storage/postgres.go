package storage

import (
	"context"
	"log/slog"

	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/events"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/models"
)

// PostgresSink persists records through the event publisher, so every
// stored product also lands in the outbox for downstream consumers.
type PostgresSink struct {
	publisher *events.Publisher
	source    string
	logger    *slog.Logger
}

func NewPostgresSink(publisher *events.Publisher, source string, logger *slog.Logger) *PostgresSink {
	return &PostgresSink{
		publisher: publisher,
		source:    source,
		logger:    logger.With("component", "postgres_sink"),
	}
}

func (s *PostgresSink) Write(ctx context.Context, records []models.ProductRecord) error {
	if len(records) == 0 {
		s.logger.Warn("no products to save")
		return nil
	}

	saved := 0
	for _, r := range records {
		if err := s.publisher.PublishProductDiscovered(ctx, r, s.source); err != nil {
			return err
		}
		saved++
	}

	s.logger.Info("saved products", "count", saved)
	return nil
}
