package parser

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/models"
)

const sampleCard = `
<article data-testhook="product-card" id="wi193679">
	<div data-testhook="product-title">AH Halfvolle melk</div>
	<span class="price-amount__amount">1,19</span>
	<span class="price-amount__amount">1,39</span>
	<div class="product-card__discount">2e halve prijs</div>
	<img src="https://static.ah.nl/image/wi193679.jpg">
	<span class="product-card__unit-size">1 l</span>
</article>`

func document(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		amount   float64
		expected string
	}{
		{3, "€3,00"},
		{2.49, "€2,49"},
		{0, "€0,00"},
		{10.5, "€10,50"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatPrice(tt.amount))
	}
}

func TestParsePriceText(t *testing.T) {
	tests := []struct {
		text     string
		expected float64
	}{
		{"2,49", 2.49},
		{"€ 2.49", 2.49},
		{"2.49 p/st", 2.49},
		{"geen prijs", 0},
		{"", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParsePriceText(tt.text))
	}
}

func TestFindProductCards(t *testing.T) {
	doc := document(t, `<main>`+sampleCard+sampleCard+`</main>`)

	cards, found := FindProductCards(doc)
	require.True(t, found)
	assert.Equal(t, 2, cards.Length())
}

func TestFindProductCardsLegacyMarkup(t *testing.T) {
	doc := document(t, `<div class="product-card"><h3>x</h3></div>`)

	cards, found := FindProductCards(doc)
	require.True(t, found)
	assert.Equal(t, 1, cards.Length())
}

func TestFindProductCardsNone(t *testing.T) {
	doc := document(t, `<div class="content"><p>geen producten</p></div>`)

	_, found := FindProductCards(doc)
	assert.False(t, found)
}

func TestFromCard(t *testing.T) {
	n := NewNormalizer(nil)
	n.Category = "6401"
	doc := document(t, sampleCard)
	cards, _ := FindProductCards(doc)

	record := n.FromCard(cards.First())

	assert.Equal(t, "wi193679", record.ID)
	assert.Equal(t, "AH Halfvolle melk", record.Title)
	assert.Equal(t, 1.19, record.CurrentPrice.Amount)
	assert.Equal(t, "€1,19", record.CurrentPrice.Display)
	assert.Equal(t, 1.39, record.OriginalPrice.Amount)
	assert.Equal(t, "2e halve prijs", record.DiscountText)
	assert.Equal(t, "https://static.ah.nl/image/wi193679.jpg", record.ImageURL)
	assert.Equal(t, "1 l", record.UnitSize)
	assert.Equal(t, "6401", record.Category)
	assert.Equal(t, "https://www.ah.nl/producten/product/wi193679", record.SourceURL)
	assert.True(t, record.IsDiscounted())
}

func TestFromCardSinglePrice(t *testing.T) {
	n := NewNormalizer(nil)
	doc := document(t, `
		<article data-testhook="product-card">
			<div data-testhook="product-title">AH Bananen</div>
			<span class="price-amount__amount">1,99</span>
		</article>`)
	cards, _ := FindProductCards(doc)

	record := n.FromCard(cards.First())

	assert.Equal(t, 1.99, record.CurrentPrice.Amount)
	assert.Equal(t, 1.99, record.OriginalPrice.Amount, "single price means no markdown")
	assert.False(t, record.IsDiscounted())
}

func TestFromCardEmptyCard(t *testing.T) {
	n := NewNormalizer(nil)
	doc := document(t, `<article data-testhook="product-card"></article>`)
	cards, _ := FindProductCards(doc)

	record := n.FromCard(cards.First())

	assert.Equal(t, "", record.ID)
	assert.Equal(t, models.PlaceholderTitle, record.Title)
	assert.Equal(t, "€0,00", record.CurrentPrice.Display)
	assert.Equal(t, "€0,00", record.OriginalPrice.Display)
	assert.Equal(t, "", record.SourceURL)
}

func TestFromCardDeterministic(t *testing.T) {
	n := NewNormalizer(nil)
	doc := document(t, sampleCard)
	cards, _ := FindProductCards(doc)

	first := n.FromCard(cards.First())
	second := n.FromCard(cards.First())
	assert.Equal(t, first, second)
}

func TestIsBonusCard(t *testing.T) {
	n := NewNormalizer(nil)

	tests := []struct {
		name     string
		html     string
		expected bool
	}{
		{
			name:     "Discount block",
			html:     sampleCard,
			expected: true,
		},
		{
			name:     "Bonus text in span",
			html:     `<article data-testhook="product-card"><span>Bonus 2 voor 3</span></article>`,
			expected: true,
		},
		{
			name:     "Plain card",
			html:     `<article data-testhook="product-card"><h3>melk</h3><span class="price-amount__amount">1,19</span></article>`,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := document(t, tt.html)
			cards, found := FindProductCards(doc)
			require.True(t, found)
			assert.Equal(t, tt.expected, n.IsBonusCard(cards.First()))
		})
	}
}

func TestFromJSON(t *testing.T) {
	n := NewNormalizer(nil)

	raw := `{
		"webshopId": "wi520842",
		"title": "AH Scharreleieren",
		"price": {"now": 2.79, "was": 3.29},
		"priceBeforeBonus": 3.29,
		"discountLabels": [{"code": "DISCOUNT_X_FOR_Y", "text": "2 voor 5.00"}],
		"images": [{"url": "https://static.ah.nl/image/wi520842.jpg", "width": 200}],
		"packageSizeText": "10 stuks",
		"taxonomy": {"category": {"nodes": [{"name": "Zuivel, eieren"}]}}
	}`
	var product map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &product))

	record := n.FromJSON(product)

	assert.Equal(t, "wi520842", record.ID)
	assert.Equal(t, "AH Scharreleieren", record.Title)
	assert.Equal(t, 2.79, record.CurrentPrice.Amount)
	assert.Equal(t, "€2,79", record.CurrentPrice.Display)
	assert.Equal(t, 3.29, record.OriginalPrice.Amount)
	assert.Equal(t, "2 voor 5.00", record.DiscountText)
	assert.Equal(t, "https://static.ah.nl/image/wi520842.jpg", record.ImageURL)
	assert.Equal(t, "10 stuks", record.UnitSize)
	assert.Equal(t, "Zuivel, eieren", record.Category)
	assert.Equal(t, "https://www.ah.nl/producten/product/wi520842", record.SourceURL)
}

func TestFromJSONNumericID(t *testing.T) {
	n := NewNormalizer(nil)

	var product map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"webshopId": 193679, "title": "melk", "price": 1.19}`), &product))

	record := n.FromJSON(product)
	assert.Equal(t, "193679", record.ID)
}

func TestFromJSONPromotionPriceFallback(t *testing.T) {
	n := NewNormalizer(nil)

	var product map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{
		"webshopId": "wi1",
		"title": "x",
		"price": {},
		"promotionPrice": {"amount": 1.5}
	}`), &product))

	record := n.FromJSON(product)
	assert.Equal(t, 1.5, record.CurrentPrice.Amount)
	assert.Equal(t, 1.5, record.OriginalPrice.Amount)
}

func TestFromJSONMissingEverything(t *testing.T) {
	n := NewNormalizer(nil)

	record := n.FromJSON(map[string]any{})

	assert.Equal(t, "", record.ID)
	assert.Equal(t, models.PlaceholderTitle, record.Title)
	assert.Equal(t, "€0,00", record.CurrentPrice.Display)
	assert.Equal(t, "€0,00", record.OriginalPrice.Display)
}
