package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy is one way of pulling a textual value out of a document node.
// Strategies are pure: they inspect the selection and return the trimmed
// text, or "" when they do not apply.
type Strategy struct {
	Name  string
	Apply func(*goquery.Selection) string
}

// Selector matches the first descendant for a CSS selector and returns
// its text content.
func Selector(css string) Strategy {
	return Strategy{
		Name: "selector:" + css,
		Apply: func(s *goquery.Selection) string {
			return strings.TrimSpace(s.Find(css).First().Text())
		},
	}
}

// OwnAttr reads attributes of the node itself; the first attribute that
// is present wins.
func OwnAttr(attrs ...string) Strategy {
	return Strategy{
		Name: "attr:" + strings.Join(attrs, "|"),
		Apply: func(s *goquery.Selection) string {
			for _, attr := range attrs {
				if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
					return strings.TrimSpace(v)
				}
			}
			return ""
		},
	}
}

// ChildAttr matches the first descendant for a CSS selector and reads
// the first of the given attributes that is present on it.
func ChildAttr(css string, attrs ...string) Strategy {
	return Strategy{
		Name: "childattr:" + css + ":" + strings.Join(attrs, "|"),
		Apply: func(s *goquery.Selection) string {
			node := s.Find(css).First()
			for _, attr := range attrs {
				if v, ok := node.Attr(attr); ok && strings.TrimSpace(v) != "" {
					return strings.TrimSpace(v)
				}
			}
			return ""
		},
	}
}

// TextContains scans elements of the given tag for one whose visible
// text contains the phrase (case-insensitive). CSS selectors cannot
// express text predicates, so this is a deliberate linear scan rather
// than a query.
func TextContains(tag, phrase string) Strategy {
	lower := strings.ToLower(phrase)
	return Strategy{
		Name: "contains:" + tag + ":" + phrase,
		Apply: func(s *goquery.Selection) string {
			var found string
			s.Find(tag).EachWithBreak(func(_ int, node *goquery.Selection) bool {
				text := strings.TrimSpace(node.Text())
				if strings.Contains(strings.ToLower(text), lower) {
					found = text
					return false
				}
				return true
			})
			return found
		},
	}
}

// FieldLocator evaluates ordered strategy cascades against document
// nodes. The first strategy yielding a non-empty result wins and later
// ones are never consulted. A miss is reported to the observer and
// never aborts record construction.
type FieldLocator struct {
	observer Observer
}

func NewFieldLocator(observer Observer) *FieldLocator {
	if observer == nil {
		observer = NopObserver{}
	}
	return &FieldLocator{observer: observer}
}

// Locate runs the cascade and returns the winning value, or ("", false)
// when no strategy matched.
func (l *FieldLocator) Locate(node *goquery.Selection, field string, cascade []Strategy) (string, bool) {
	for _, strategy := range cascade {
		if value := strings.TrimSpace(strategy.Apply(node)); value != "" {
			l.observer.StrategyHit(field, strategy.Name)
			return value, true
		}
	}
	l.observer.FieldMissed(field)
	return "", false
}

// LocateAll tries each CSS selector in order and returns the text of
// every element matched by the first selector that matches anything.
// Used for fields where the count of matches carries meaning, like the
// current/original price pair on a discounted card.
func (l *FieldLocator) LocateAll(node *goquery.Selection, field string, selectors []string) []string {
	for _, css := range selectors {
		matches := node.Find(css)
		if matches.Length() == 0 {
			continue
		}
		values := make([]string, 0, matches.Length())
		matches.Each(func(_ int, m *goquery.Selection) {
			if text := strings.TrimSpace(m.Text()); text != "" {
				values = append(values, text)
			}
		})
		if len(values) > 0 {
			l.observer.StrategyHit(field, "selector:"+css)
			return values
		}
	}
	l.observer.FieldMissed(field)
	return nil
}
