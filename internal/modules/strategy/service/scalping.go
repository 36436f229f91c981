package service

import (
	"fmt"

	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
)

// Scalping - EMA fast/slow + RSI относительно нейтрали. Для 3m/5m.
type Scalping struct {
	p models.ScalpingParams
}

func NewScalping(p models.ScalpingParams) *Scalping { return &Scalping{p: p} }

func (s *Scalping) Kind() models.StrategyKind { return models.StrategyScalping }
func (s *Scalping) Params() any               { return s.p }
func (s *Scalping) MinCandles() int           { return max(60, s.p.EMASlow+10) }

func (s *Scalping) Analyze(series []models.Candle, symbol, timeframe string) (models.Signal, bool) {
	if len(series) < s.MinCandles() {
		return models.Signal{}, false
	}

	closes := models.Closes(series)
	fast := indicator.EMA(closes, s.p.EMAFast)
	slow := indicator.EMA(closes, s.p.EMASlow)
	rsi := indicator.RSIWilder(closes, s.p.RSIPeriod)

	last := len(closes) - 1
	rsiCurr := rsi[last]
	if !indicator.Defined(rsiCurr) {
		return models.Signal{}, false
	}

	var dir models.Direction
	switch indicator.CrossAt(fast, slow, last, indicator.Break) {
	case indicator.CrossUp:
		if rsiCurr > s.p.RSINeutral {
			dir = models.DirectionLong
		}
	case indicator.CrossDown:
		if rsiCurr < s.p.RSINeutral {
			dir = models.DirectionShort
		}
	}
	if dir == "" {
		return models.Signal{}, false
	}

	word, cmp := "above", ">"
	if dir == models.DirectionShort {
		word, cmp = "below", "<"
	}
	msg := fmt.Sprintf("%s SCALPING %s: EMA%d crossed %s EMA%d, RSI=%.1f (%s%.0f)",
		arrow(dir), dir, s.p.EMAFast, word, s.p.EMASlow, rsiCurr, cmp, s.p.RSINeutral)

	sig := newSignal(s.Kind(), symbol, timeframe, dir, closes[last], msg)
	sig.RSI = models.Value(indicator.Round(rsiCurr, 2))
	sig.EMA50 = models.Value(slow[last])
	sig.Raw = map[string]any{
		"ema_fast": indicator.Round(fast[last], 6),
		"ema_slow": indicator.Round(slow[last], 6),
		"rsi":      indicator.Round(rsiCurr, 2),
	}
	return sig, true
}
