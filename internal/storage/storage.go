package storage

import (
	"context"

	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/models"
)

// Sink persists a finished crawl's records. Implementations own the
// serialization format; callers guarantee a stable field order and flat
// string/number fields only.
type Sink interface {
	Write(ctx context.Context, records []models.ProductRecord) error
}
