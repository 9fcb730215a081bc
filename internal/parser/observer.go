package parser

import "log/slog"

// Observer receives diagnostics about how fields were resolved. The
// extraction code itself never logs; callers inject an implementation
// when they want visibility into which strategy matched.
type Observer interface {
	StrategyHit(field, strategy string)
	FieldMissed(field string)
}

// NopObserver discards all observations.
type NopObserver struct{}

func (NopObserver) StrategyHit(field, strategy string) {}
func (NopObserver) FieldMissed(field string)           {}

// SlogObserver forwards observations to a structured logger at debug level.
type SlogObserver struct {
	Logger *slog.Logger
}

func (o SlogObserver) StrategyHit(field, strategy string) {
	o.Logger.Debug("field resolved", "field", field, "strategy", strategy)
}

func (o SlogObserver) FieldMissed(field string) {
	o.Logger.Debug("field not found", "field", field)
}
