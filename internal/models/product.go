package models

const (
	// PlaceholderTitle is substituted when no title can be resolved.
	PlaceholderTitle = "Unknown product"

	// StoreName is stamped onto every exported row.
	StoreName = "Albert Heijn"

	productURLPrefix = "https://www.ah.nl/producten/product/"
)

// Price couples the numeric amount with its display form
// ("€2,50" - euro sign, two decimals, comma separator).
type Price struct {
	Amount  float64 `json:"amount"`
	Display string  `json:"display"`
}

// ProductRecord is the canonical record produced for every listed item,
// regardless of whether it came from the website markup or the mobile API.
// Records are constructed once and never mutated afterwards.
type ProductRecord struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	CurrentPrice  Price  `json:"current_price"`
	OriginalPrice Price  `json:"original_price"`
	DiscountText  string `json:"discount_text"`
	ImageURL      string `json:"image_url"`
	UnitSize      string `json:"unit_size"`
	Category      string `json:"category"`
	SourceURL     string `json:"url"`
}

// ProductURL builds the public product page URL for a webshop id.
// Returns "" for an empty id, matching the record's empty-id default.
func ProductURL(id string) string {
	if id == "" {
		return ""
	}
	return productURLPrefix + id
}

// IsDiscounted reports whether the record carries a genuine markdown.
func (p *ProductRecord) IsDiscounted() bool {
	return p.OriginalPrice.Amount > p.CurrentPrice.Amount
}
