package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/models"
)

// csvHeader is the stable column order of every export.
var csvHeader = []string{
	"id",
	"title",
	"current_price",
	"original_price",
	"discount_text",
	"image_url",
	"unit_size",
	"category",
	"url",
	"scrape_date",
	"store",
}

// CSVSink writes one timestamped CSV file per crawl into a directory.
type CSVSink struct {
	dir    string
	prefix string
	logger *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

func NewCSVSink(dir, prefix string, logger *slog.Logger) *CSVSink {
	return &CSVSink{
		dir:    dir,
		prefix: prefix,
		logger: logger.With("component", "csv_sink"),
		now:    time.Now,
	}
}

func (s *CSVSink) Write(ctx context.Context, records []models.ProductRecord) error {
	if len(records) == 0 {
		s.logger.Warn("no products to save")
		return nil
	}

	name := fmt.Sprintf("%s_%s.csv", s.prefix, s.now().Format("20060102_150405"))
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	scrapeDate := s.now().Format("2006-01-02")
	for _, r := range records {
		row := []string{
			r.ID,
			r.Title,
			r.CurrentPrice.Display,
			r.OriginalPrice.Display,
			r.DiscountText,
			r.ImageURL,
			r.UnitSize,
			r.Category,
			r.SourceURL,
			scrapeDate,
			models.StoreName,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}

	s.logger.Info("saved products", "count", len(records), "path", path)
	return nil
}
