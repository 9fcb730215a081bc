package parser

import (
	"sort"
	"strconv"
)

// NumberShape is one interpretation of how a numeric value may be
// nested inside a decoded JSON value. Shapes are pure and tolerant:
// absent keys, nulls and type mismatches simply report no match.
type NumberShape struct {
	Name  string
	Apply func(value any) (float64, bool)
}

// AsNumber interprets the value itself as a number (or numeric string).
func AsNumber() NumberShape {
	return NumberShape{
		Name:  "number",
		Apply: toFloat,
	}
}

// KnownKey interprets the value as an object carrying the number under
// a well-known key, e.g. {"now": 2.5} or {"was": 3.0}.
func KnownKey(key string) NumberShape {
	return NumberShape{
		Name: "key:" + key,
		Apply: func(value any) (float64, bool) {
			obj, ok := value.(map[string]any)
			if !ok {
				return 0, false
			}
			return toFloat(obj[key])
		},
	}
}

// AmountKey interprets the value as an object with an "amount" entry,
// which the upstream schema sometimes nests one level deeper:
// {"amount": 2.5} or {"amount": {"amount": 2.5}}.
func AmountKey() NumberShape {
	return NumberShape{
		Name: "key:amount",
		Apply: func(value any) (float64, bool) {
			obj, ok := value.(map[string]any)
			if !ok {
				return 0, false
			}
			amount, present := obj["amount"]
			if !present {
				return 0, false
			}
			if nested, ok := amount.(map[string]any); ok {
				return toFloat(nested["amount"])
			}
			return toFloat(amount)
		},
	}
}

// ScanPositive handles objects of unknown shape by taking the first
// positive numeric value found among the entries, visiting keys in
// sorted order so the same object always resolves the same way.
// Last resort.
func ScanPositive() NumberShape {
	return NumberShape{
		Name: "scan",
		Apply: func(value any) (float64, bool) {
			obj, ok := value.(map[string]any)
			if !ok {
				return 0, false
			}
			keys := make([]string, 0, len(obj))
			for k := range obj {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if f, ok := toFloat(obj[k]); ok && f > 0 {
					return f, true
				}
			}
			return 0, false
		},
	}
}

// CurrentPriceShapes is the interpretation order for a current price.
func CurrentPriceShapes() []NumberShape {
	return []NumberShape{AsNumber(), KnownKey("now"), AmountKey(), ScanPositive()}
}

// OriginalPriceShapes is the interpretation order for a before-discount
// price.
func OriginalPriceShapes() []NumberShape {
	return []NumberShape{AsNumber(), KnownKey("was"), AmountKey(), ScanPositive()}
}

// ValueResolver resolves numbers out of schema-tolerant JSON values.
// It never fails: the result is always a usable number, with the found
// flag distinguishing a genuine value from the 0 default.
type ValueResolver struct {
	observer Observer
}

func NewValueResolver(observer Observer) *ValueResolver {
	if observer == nil {
		observer = NopObserver{}
	}
	return &ValueResolver{observer: observer}
}

// ResolveNumber tries each shape in priority order and returns the
// first match, or (0, false) when nothing fits.
func (r *ValueResolver) ResolveNumber(field string, value any, shapes []NumberShape) (float64, bool) {
	if value == nil {
		r.observer.FieldMissed(field)
		return 0, false
	}
	for _, shape := range shapes {
		if f, ok := shape.Apply(value); ok {
			r.observer.StrategyHit(field, shape.Name)
			return f, true
		}
	}
	r.observer.FieldMissed(field)
	return 0, false
}

// StringKey reads a string field with a default, tolerating absence and
// non-string values.
func StringKey(obj map[string]any, key, fallback string) string {
	if v, ok := obj[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
