package service

import (
	"fmt"

	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
)

// DayTrade - MACD и RSI (против своей SMA) пересеклись в одну сторону
// в пределах окна подтверждения, не обязательно на одной свече.
type DayTrade struct {
	p models.DayTradeParams
}

func NewDayTrade(p models.DayTradeParams) *DayTrade { return &DayTrade{p: p} }

func (s *DayTrade) Kind() models.StrategyKind { return models.StrategyDayTrade }
func (s *DayTrade) Params() any               { return s.p }
func (s *DayTrade) MinCandles() int           { return max(50, s.p.MACDSlow+s.p.MACDSignal) }

func (s *DayTrade) Analyze(series []models.Candle, symbol, timeframe string) (models.Signal, bool) {
	if len(series) < s.MinCandles() {
		return models.Signal{}, false
	}

	closes := models.Closes(series)
	macd, macdSig, _ := indicator.MACD(closes, s.p.MACDFast, s.p.MACDSlow, s.p.MACDSignal)
	rsi := indicator.RSIWilder(closes, s.p.RSIPeriod)
	rsiMA := indicator.SMA(rsi, s.p.RSIMAPeriod)

	last := len(closes) - 1
	if !indicator.Defined(rsi[last]) || !indicator.Defined(macd[last]) {
		return models.Signal{}, false
	}

	w := s.p.ConfirmWindow
	var dir models.Direction
	switch {
	case crossedWithin(macd, macdSig, last, w, indicator.CrossUp) && crossedWithin(rsi, rsiMA, last, w, indicator.CrossUp):
		dir = models.DirectionLong
	case crossedWithin(macd, macdSig, last, w, indicator.CrossDown) && crossedWithin(rsi, rsiMA, last, w, indicator.CrossDown):
		dir = models.DirectionShort
	default:
		return models.Signal{}, false
	}

	msg := fmt.Sprintf("%s DAY TRADE %s: MACD + RSI crossed in the same direction", arrow(dir), dir)

	sig := newSignal(s.Kind(), symbol, timeframe, dir, closes[last], msg)
	sig.RSI = models.Value(indicator.Round(rsi[last], 2))
	sig.MACD = models.Value(indicator.Round(macd[last], 6))
	sig.MACDSignal = models.Value(indicator.Round(macdSig[last], 6))
	sig.Raw = map[string]any{
		"confirm_window": w,
	}
	return sig, true
}

// crossedWithin проверяет пересечение want на свечах last-window+1..last.
func crossedWithin(a, b []float64, last, window int, want indicator.Cross) bool {
	for k := 0; k < window; k++ {
		if indicator.CrossAt(a, b, last-k, indicator.Break) == want {
			return true
		}
	}
	return false
}
