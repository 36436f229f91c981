package service

import (
	"fmt"

	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
)

// GCM - Heikin-Ashi RSI (центрирован в нуле). Сигнал - разворот быстрой линии
// (HA close), только если точка разворота лежит за уровнем покупки/продажи.
type GCM struct {
	p models.GCMParams
}

func NewGCM(p models.GCMParams) *GCM { return &GCM{p: p} }

func (s *GCM) Kind() models.StrategyKind { return models.StrategyGCM }
func (s *GCM) Params() any               { return s.p }
func (s *GCM) MinCandles() int           { return s.p.Length + s.p.Smoothing + 10 }

func (s *GCM) Analyze(series []models.Candle, symbol, timeframe string) (models.Signal, bool) {
	if len(series) < s.MinCandles() {
		return models.Signal{}, false
	}

	closes := models.Closes(series)
	ha := indicator.HeikinAshiRSI(models.Highs(series), models.Lows(series), closes, s.p.Length, s.p.Smoothing)

	last := len(closes) - 1
	curr, prev, prev2 := ha.Close[last], ha.Close[last-1], ha.Close[last-2]
	if !indicator.Defined(curr) || !indicator.Defined(prev) || !indicator.Defined(prev2) {
		return models.Signal{}, false
	}

	// разворот: prev - локальный экстремум быстрой линии
	turnUp := prev <= prev2 && curr > prev && prev <= s.p.BuyLevel
	turnDown := prev >= prev2 && curr < prev && prev >= s.p.SellLevel

	var (
		dir  models.Direction
		text string
	)
	switch {
	case turnUp:
		dir = models.DirectionLong
		text = fmt.Sprintf("HA-RSI turned up from %.2f (buy level %.0f)", prev, s.p.BuyLevel)
	case turnDown:
		dir = models.DirectionShort
		text = fmt.Sprintf("HA-RSI turned down from %.2f (sell level %.0f)", prev, s.p.SellLevel)
	default:
		return models.Signal{}, false
	}

	cloud := "BEARISH"
	if ha.Close[last] > ha.Open[last] {
		cloud = "BULLISH"
	}

	msg := fmt.Sprintf("%s GCM FAST TURN %s\nSymbol: %s\nTimeframe: %s\n%s",
		arrow(dir), dir, symbol, timeframe, text)

	ema50 := indicator.Last(indicator.EMA(closes, 50))
	rsi := indicator.Last(indicator.RSIWilder(closes, 14))

	sig := newSignal(s.Kind(), symbol, timeframe, dir, closes[last], msg)
	sig.RSI = models.Value(indicator.Round(rsi, 2))
	sig.EMA50 = models.Value(indicator.Round(ema50, 2))
	sig.Raw = map[string]any{
		"ha_close":      indicator.Round(ha.Close[last], 4),
		"ha_open":       indicator.Round(ha.Open[last], 4),
		"ha_high":       indicator.Round(ha.High[last], 4),
		"ha_low":        indicator.Round(ha.Low[last], 4),
		"ha_close_prev": indicator.Round(prev, 4),
		"buy_level":     s.p.BuyLevel,
		"sell_level":    s.p.SellLevel,
		"cloud_status":  cloud,
	}
	return sig, true
}
