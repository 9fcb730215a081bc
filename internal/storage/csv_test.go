package storage

import (
	"context"
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/models"
)

func fixedClock() time.Time {
	return time.Date(2026, 8, 14, 10, 30, 0, 0, time.UTC)
}

func TestCSVSinkWrite(t *testing.T) {
	dir := t.TempDir()
	sink := NewCSVSink(dir, "ah_bonus", slog.Default())
	sink.now = fixedClock

	records := []models.ProductRecord{
		{
			ID:            "wi193679",
			Title:         "AH Halfvolle melk",
			CurrentPrice:  models.Price{Amount: 1.19, Display: "€1,19"},
			OriginalPrice: models.Price{Amount: 1.39, Display: "€1,39"},
			DiscountText:  "2e halve prijs",
			ImageURL:      "https://static.ah.nl/image/wi193679.jpg",
			UnitSize:      "1 l",
			Category:      "Zuivel",
			SourceURL:     "https://www.ah.nl/producten/product/wi193679",
		},
		{
			ID:            "wi2",
			Title:         "AH Bananen",
			CurrentPrice:  models.Price{Amount: 1.99, Display: "€1,99"},
			OriginalPrice: models.Price{Amount: 1.99, Display: "€1,99"},
		},
	}

	require.NoError(t, sink.Write(context.Background(), records))

	path := filepath.Join(dir, "ah_bonus_20260814_103000.csv")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{
		"id", "title", "current_price", "original_price", "discount_text",
		"image_url", "unit_size", "category", "url", "scrape_date", "store",
	}, rows[0])

	assert.Equal(t, []string{
		"wi193679", "AH Halfvolle melk", "€1,19", "€1,39", "2e halve prijs",
		"https://static.ah.nl/image/wi193679.jpg", "1 l", "Zuivel",
		"https://www.ah.nl/producten/product/wi193679", "2026-08-14", "Albert Heijn",
	}, rows[1])

	assert.Equal(t, "wi2", rows[2][0])
	assert.Equal(t, "", rows[2][4], "empty fields stay empty columns")
	assert.Equal(t, "Albert Heijn", rows[2][10])
}

func TestCSVSinkWriteEmpty(t *testing.T) {
	dir := t.TempDir()
	sink := NewCSVSink(dir, "ah_bonus", slog.Default())
	sink.now = fixedClock

	require.NoError(t, sink.Write(context.Background(), nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no file is created for an empty crawl")
}
