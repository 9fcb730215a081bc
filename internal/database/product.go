package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/models"
)

// ProductRow is the persisted form of a crawled product. One row per
// webshop id; re-crawls update prices in place.
type ProductRow struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	CurrentPrice  float64   `json:"current_price"`
	OriginalPrice float64   `json:"original_price"`
	DiscountText  string    `json:"discount_text,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	UnitSize      string    `json:"unit_size,omitempty"`
	Category      string    `json:"category,omitempty"`
	URL           string    `json:"url,omitempty"`
	Store         string    `json:"store"`
	ScrapedAt     time.Time `json:"scraped_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UpsertProductTx inserts a product or refreshes it if the id is
// already known, inside the caller's transaction so the write can be
// paired with an outbox event. Records without an id are skipped by
// the caller; the table keys on the webshop id.
func UpsertProductTx(ctx context.Context, tx pgx.Tx, r models.ProductRecord) error {
	query := `
		INSERT INTO products
			(id, title, current_price, original_price, discount_text,
			 image_url, unit_size, category, url, store, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			current_price = EXCLUDED.current_price,
			original_price = EXCLUDED.original_price,
			discount_text = EXCLUDED.discount_text,
			image_url = EXCLUDED.image_url,
			unit_size = EXCLUDED.unit_size,
			category = EXCLUDED.category,
			url = EXCLUDED.url,
			scraped_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP`

	_, err := tx.Exec(ctx, query,
		r.ID, r.Title, r.CurrentPrice.Amount, r.OriginalPrice.Amount, r.DiscountText,
		r.ImageURL, r.UnitSize, r.Category, r.SourceURL, models.StoreName,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", r.ID, err)
	}

	return nil
}

// GetProduct fetches one stored product by webshop id.
func (db *DB) GetProduct(ctx context.Context, id string) (*ProductRow, error) {
	query := `
		SELECT id, title, current_price, original_price, discount_text,
		       image_url, unit_size, category, url, store,
		       scraped_at, created_at, updated_at
		FROM products
		WHERE id = $1`

	row := &ProductRow{}
	err := db.QueryRow(ctx, query, id).Scan(
		&row.ID, &row.Title, &row.CurrentPrice, &row.OriginalPrice, &row.DiscountText,
		&row.ImageURL, &row.UnitSize, &row.Category, &row.URL, &row.Store,
		&row.ScrapedAt, &row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}

	return row, nil
}

// CountProducts returns the number of stored products.
func (db *DB) CountProducts(ctx context.Context) (int, error) {
	var count int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// CountDiscountedProducts returns the number of stored products whose
// original price exceeds the current one.
func (db *DB) CountDiscountedProducts(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM products WHERE original_price > current_price`
	if err := db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count discounted products: %w", err)
	}
	return count, nil
}
