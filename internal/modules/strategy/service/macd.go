package service

import (
	"fmt"

	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
)

// MACD - классическое пересечение линии MACD и сигнальной.
type MACD struct {
	p models.MACDParams
}

func NewMACD(p models.MACDParams) *MACD { return &MACD{p: p} }

func (s *MACD) Kind() models.StrategyKind { return models.StrategyMACD }
func (s *MACD) Params() any               { return s.p }
func (s *MACD) MinCandles() int           { return s.p.SlowPeriod + s.p.SignalPeriod + 5 }

func (s *MACD) Analyze(series []models.Candle, symbol, timeframe string) (models.Signal, bool) {
	if len(series) < s.MinCandles() {
		return models.Signal{}, false
	}

	closes := models.Closes(series)
	line, signal, hist := indicator.MACD(closes, s.p.FastPeriod, s.p.SlowPeriod, s.p.SignalPeriod)
	last := len(closes) - 1

	var dir models.Direction
	cross := indicator.CrossAt(line, signal, last, indicator.Reach)
	switch cross {
	case indicator.CrossUp:
		dir = models.DirectionLong
	case indicator.CrossDown:
		dir = models.DirectionShort
	default:
		return models.Signal{}, false
	}

	msg := fmt.Sprintf("%s MACD CROSS %s\nSymbol: %s\nTimeframe: %s\nMACD: %.6f\nSignal(%d): %.6f\nHistogram: %.6f",
		arrow(dir), cross, symbol, timeframe, line[last], s.p.SignalPeriod, signal[last], hist[last])

	sig := newSignal(s.Kind(), symbol, timeframe, dir, closes[last], msg)
	sig.MACD = models.Value(indicator.Round(line[last], 6))
	sig.MACDSignal = models.Value(indicator.Round(signal[last], 6))
	sig.Raw = map[string]any{
		"macd":       indicator.Round(line[last], 6),
		"signal":     indicator.Round(signal[last], 6),
		"histogram":  indicator.Round(hist[last], 6),
		"cross_up":   cross == indicator.CrossUp,
		"cross_down": cross == indicator.CrossDown,
	}
	return sig, true
}
