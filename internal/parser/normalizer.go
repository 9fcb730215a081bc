package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/models"
)

// cardSelectors locate the product card containers on a listing page.
// The markup changes frequently, so several generations of selectors
// are kept and tried in order.
var cardSelectors = []string{
	`article[data-testhook="product-card"]`,
	".product-card",
	".product-card-portrait",
	"article.product",
	`div[data-testid="product-card"]`,
	"[data-order]",
	"div.lane-item",
}

var (
	idCascade = []Strategy{
		OwnAttr("id", "data-id", "data-product-id"),
	}
	titleCascade = []Strategy{
		Selector(`[data-testhook="product-title"]`),
		Selector(".product-card__title"),
		Selector(".product-title"),
		Selector("h3"),
		Selector("h2"),
		Selector(".name"),
	}
	priceSelectors = []string{
		".price-amount__amount",
		".price-amount",
		".price",
		`[data-testhook="price"]`,
		".product-card__price",
	}
	discountCascade = []Strategy{
		Selector(".product-card__discount"),
		Selector(".discount-block"),
		Selector(".bonus-block"),
		Selector(".promotion"),
	}
	bonusCascade = []Strategy{
		Selector(".price-amount--is-bonus"),
		Selector(".discount"),
		Selector(".bonus"),
		Selector(`[data-testhook="bonus-label"]`),
		Selector(".product-card__discount"),
		TextContains("span", "bonus"),
	}
	imageCascade = []Strategy{
		ChildAttr("img", "src", "data-src", "data-lazy-src"),
	}
	unitCascade = []Strategy{
		Selector(".product-card__unit-size"),
		Selector(".unit-size"),
		Selector(".product-unit"),
	}
)

var priceDigits = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// FormatPrice renders an amount the way the exports expect: euro sign,
// two decimals, comma as the decimal separator. Applied uniformly, so
// an unresolved price still yields a well-formed "€0,00".
func FormatPrice(amount float64) string {
	return strings.Replace(fmt.Sprintf("€%.2f", amount), ".", ",", 1)
}

// NewPrice pairs an amount with its display form.
func NewPrice(amount float64) models.Price {
	return models.Price{Amount: amount, Display: FormatPrice(amount)}
}

// ParsePriceText extracts a numeric amount from a displayed price such
// as "2,49", "€ 2.49" or "2.49 p/st". Returns 0 when no digits appear.
func ParsePriceText(text string) float64 {
	match := priceDigits.FindString(text)
	if match == "" {
		return 0
	}
	match = strings.Replace(match, ",", ".", 1)
	amount, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return amount
}

// Normalizer builds canonical product records from either a product
// card in listing markup or a decoded JSON product object. Building a
// record never fails: every field falls back to its default
// independently.
type Normalizer struct {
	locator  *FieldLocator
	resolver *ValueResolver

	// Category label attached to records built from markup, where the
	// card itself carries no taxonomy information.
	Category string
}

func NewNormalizer(observer Observer) *Normalizer {
	return &Normalizer{
		locator:  NewFieldLocator(observer),
		resolver: NewValueResolver(observer),
	}
}

// FindProductCards returns the card containers of a listing page, using
// the first container selector that matches anything. The second result
// is false when no recognizable container exists in the document.
func FindProductCards(doc *goquery.Document) (*goquery.Selection, bool) {
	for _, css := range cardSelectors {
		if cards := doc.Find(css); cards.Length() > 0 {
			return cards, true
		}
	}
	return nil, false
}

// FromCard builds a record from one product card selection.
func (n *Normalizer) FromCard(card *goquery.Selection) models.ProductRecord {
	id, _ := n.locator.Locate(card, "id", idCascade)

	title, ok := n.locator.Locate(card, "title", titleCascade)
	if !ok {
		title = models.PlaceholderTitle
	}

	current, original := n.cardPrices(card)

	discount, _ := n.locator.Locate(card, "discount", discountCascade)
	image, _ := n.locator.Locate(card, "image", imageCascade)
	unit, _ := n.locator.Locate(card, "unit_size", unitCascade)

	return models.ProductRecord{
		ID:            id,
		Title:         title,
		CurrentPrice:  current,
		OriginalPrice: original,
		DiscountText:  discount,
		ImageURL:      image,
		UnitSize:      unit,
		Category:      n.Category,
		SourceURL:     models.ProductURL(id),
	}
}

// IsBonusCard reports whether a card advertises a promotion.
func (n *Normalizer) IsBonusCard(card *goquery.Selection) bool {
	_, ok := n.locator.Locate(card, "bonus", bonusCascade)
	return ok
}

// cardPrices reads the price elements of a card. Two or more matches
// mean current then original; a single match means no markdown, so the
// original equals the current.
func (n *Normalizer) cardPrices(card *goquery.Selection) (models.Price, models.Price) {
	texts := n.locator.LocateAll(card, "price", priceSelectors)

	currentAmount := 0.0
	originalAmount := 0.0
	if len(texts) > 0 {
		currentAmount = ParsePriceText(texts[0])
	}
	if len(texts) > 1 {
		originalAmount = ParsePriceText(texts[1])
	}
	if originalAmount == 0 {
		originalAmount = currentAmount
	}

	return NewPrice(currentAmount), NewPrice(originalAmount)
}

// FromJSON builds a record from a decoded product object of the mobile
// API. The price shapes have drifted across API versions, so every
// numeric field goes through the shape-tolerant resolver.
func (n *Normalizer) FromJSON(product map[string]any) models.ProductRecord {
	id := jsonID(product)
	title := StringKey(product, "title", models.PlaceholderTitle)

	currentAmount, found := n.resolver.ResolveNumber("current_price", product["price"], CurrentPriceShapes())
	if !found || currentAmount == 0 {
		if promo, ok := n.resolver.ResolveNumber("promotion_price", product["promotionPrice"], CurrentPriceShapes()); ok {
			currentAmount = promo
		}
	}

	originalAmount, _ := n.resolver.ResolveNumber("original_price", product["priceBeforeBonus"], OriginalPriceShapes())
	if originalAmount == 0 {
		originalAmount = currentAmount
	}

	return models.ProductRecord{
		ID:            id,
		Title:         title,
		CurrentPrice:  NewPrice(currentAmount),
		OriginalPrice: NewPrice(originalAmount),
		DiscountText:  jsonDiscount(product),
		ImageURL:      jsonImage(product),
		UnitSize:      jsonUnitSize(product),
		Category:      jsonCategory(product),
		SourceURL:     models.ProductURL(id),
	}
}

func jsonID(product map[string]any) string {
	switch v := product["webshopId"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	}
	return ""
}

func jsonDiscount(product map[string]any) string {
	if labels, ok := product["discountLabels"].([]any); ok && len(labels) > 0 {
		if label, ok := labels[0].(map[string]any); ok {
			if text := StringKey(label, "text", ""); text != "" {
				return text
			}
		}
	}
	if discount, ok := product["discount"].(map[string]any); ok {
		if label := StringKey(discount, "label", ""); label != "" {
			return label
		}
		return StringKey(discount, "text", "")
	}
	return ""
}

func jsonImage(product map[string]any) string {
	switch images := product["images"].(type) {
	case []any:
		if len(images) > 0 {
			if image, ok := images[0].(map[string]any); ok {
				return StringKey(image, "url", "")
			}
		}
	case map[string]any:
		return StringKey(images, "url", "")
	}
	return ""
}

func jsonUnitSize(product map[string]any) string {
	if size := StringKey(product, "packageSizeText", ""); size != "" {
		return size
	}
	return StringKey(product, "unitSize", "")
}

func jsonCategory(product map[string]any) string {
	if taxonomy, ok := product["taxonomy"].(map[string]any); ok {
		if category, ok := taxonomy["category"].(map[string]any); ok {
			if nodes, ok := category["nodes"].([]any); ok && len(nodes) > 0 {
				if node, ok := nodes[0].(map[string]any); ok {
					return StringKey(node, "name", "")
				}
			}
		}
	}
	return StringKey(product, "categoryName", "")
}
