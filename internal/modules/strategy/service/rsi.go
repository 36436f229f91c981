package service

import (
	"fmt"

	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
)

// RSI - пересечение RSI со своей SMA при выходе из зоны перекупленности/перепроданности.
type RSI struct {
	p models.RSIParams
}

func NewRSI(p models.RSIParams) *RSI { return &RSI{p: p} }

func (s *RSI) Kind() models.StrategyKind { return models.StrategyRSI }
func (s *RSI) Params() any               { return s.p }
func (s *RSI) MinCandles() int           { return s.p.Period + s.p.SignalPeriod + 5 }

func (s *RSI) Analyze(series []models.Candle, symbol, timeframe string) (models.Signal, bool) {
	if len(series) < s.MinCandles() {
		return models.Signal{}, false
	}

	closes := models.Closes(series)
	rsi := indicator.RSIWilder(closes, s.p.Period)
	rsiSignal := indicator.SMA(rsi, s.p.SignalPeriod)
	ema50 := indicator.Last(indicator.EMA(closes, 50))

	last := len(closes) - 1
	rsiCurr, rsiPrev := rsi[last], rsi[last-1]
	sigCurr := rsiSignal[last]
	price := closes[last]

	cross := indicator.CrossAt(rsi, rsiSignal, last, indicator.Reach)

	var dir models.Direction
	switch cross {
	case indicator.CrossUp:
		fromOversold := rsiPrev <= s.p.Oversold || rsiCurr <= s.p.Oversold+5
		if fromOversold && (!s.p.UseEMAFilter || price > ema50) {
			dir = models.DirectionLong
		}
	case indicator.CrossDown:
		fromOverbought := rsiPrev >= s.p.Overbought || rsiCurr >= s.p.Overbought-5
		if fromOverbought && (!s.p.UseEMAFilter || price < ema50) {
			dir = models.DirectionShort
		}
	}
	if dir == "" {
		return models.Signal{}, false
	}

	msg := fmt.Sprintf("%s RSI CROSS %s\nSymbol: %s\nTimeframe: %s\nRSI(%d): %.2f\nSignal(%d): %.2f",
		arrow(dir), cross, symbol, timeframe, s.p.Period, rsiCurr, s.p.SignalPeriod, sigCurr)
	if s.p.UseEMAFilter {
		if dir == models.DirectionLong {
			msg += "\nPrice > EMA50 ✓"
		} else {
			msg += "\nPrice < EMA50 ✓"
		}
	}

	sig := newSignal(s.Kind(), symbol, timeframe, dir, price, msg)
	sig.RSI = models.Value(indicator.Round(rsiCurr, 2))
	sig.EMA50 = models.Value(indicator.Round(ema50, 2))
	sig.Raw = map[string]any{
		"rsi":        indicator.Round(rsiCurr, 2),
		"rsi_signal": indicator.Round(sigCurr, 2),
		"ema50":      sig.EMA50,
		"cross_up":   cross == indicator.CrossUp,
		"cross_down": cross == indicator.CrossDown,
	}
	return sig, true
}
