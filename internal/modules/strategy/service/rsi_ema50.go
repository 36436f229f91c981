package service

import (
	"fmt"

	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
)

// RSIEMA50 - пересечение RSI со средней, пока RSI в зоне OB/OS, с фильтром EMA.
type RSIEMA50 struct {
	p models.RSIEMA50Params
}

func NewRSIEMA50(p models.RSIEMA50Params) *RSIEMA50 { return &RSIEMA50{p: p} }

func (s *RSIEMA50) Kind() models.StrategyKind { return models.StrategyRSIEMA50 }
func (s *RSIEMA50) Params() any               { return s.p }
func (s *RSIEMA50) MinCandles() int           { return max(60, s.p.EMAPeriod+10) }

func (s *RSIEMA50) Analyze(series []models.Candle, symbol, timeframe string) (models.Signal, bool) {
	if len(series) < s.MinCandles() {
		return models.Signal{}, false
	}

	closes := models.Closes(series)
	rsi := indicator.RSIWilder(closes, s.p.RSIPeriod)
	rsiMA := indicator.SMA(rsi, s.p.RSISignal)
	ema := indicator.EMA(closes, s.p.EMAPeriod)

	last := len(closes) - 1
	rsiCurr, maCurr, emaCurr := rsi[last], rsiMA[last], ema[last]
	price := closes[last]
	if !indicator.Defined(rsiCurr) || !indicator.Defined(maCurr) || !indicator.Defined(emaCurr) {
		return models.Signal{}, false
	}

	state := ""
	switch {
	case rsiCurr >= s.p.Overbought:
		state = "overbought"
	case rsiCurr <= s.p.Oversold:
		state = "oversold"
	}

	cross := indicator.CrossAt(rsi, rsiMA, last, indicator.Break)

	var dir models.Direction
	switch {
	case cross == indicator.CrossUp && price > emaCurr && state == "oversold":
		dir = models.DirectionLong
	case cross == indicator.CrossDown && price < emaCurr && state == "overbought":
		dir = models.DirectionShort
	default:
		return models.Signal{}, false
	}

	side := "above"
	if dir == models.DirectionShort {
		side = "below"
	}
	msg := fmt.Sprintf("%s RSI+EMA50 %s: RSI crossed its average, price %s EMA%d | RSI %.2f (min %.0f / max %.0f)",
		arrow(dir), dir, side, s.p.EMAPeriod, rsiCurr, s.p.Oversold, s.p.Overbought)

	sig := newSignal(s.Kind(), symbol, timeframe, dir, price, msg)
	sig.RSI = models.Value(indicator.Round(rsiCurr, 2))
	sig.EMA50 = models.Value(emaCurr)
	sig.Raw = map[string]any{
		"rsi":            indicator.Round(rsiCurr, 2),
		"rsi_signal":     indicator.Round(maCurr, 2),
		"ema50":          indicator.Round(emaCurr, 6),
		"rsi_overbought": s.p.Overbought,
		"rsi_oversold":   s.p.Oversold,
		"rsi_state":      state,
		"cross_up":       cross == indicator.CrossUp,
		"cross_down":     cross == indicator.CrossDown,
	}
	return sig, true
}
