package service

import (
	"fmt"

	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
)

const swingMidline = 50

// SwingTrade - сглаженный HA-RSI пересекает 50, цена с той же стороны длинной EMA.
type SwingTrade struct {
	p models.SwingTradeParams
}

func NewSwingTrade(p models.SwingTradeParams) *SwingTrade { return &SwingTrade{p: p} }

func (s *SwingTrade) Kind() models.StrategyKind { return models.StrategySwingTrade }
func (s *SwingTrade) Params() any               { return s.p }
func (s *SwingTrade) MinCandles() int           { return max(120, s.p.EMAFilter+2) }

func (s *SwingTrade) Analyze(series []models.Candle, symbol, timeframe string) (models.Signal, bool) {
	if len(series) < s.MinCandles() {
		return models.Signal{}, false
	}

	closes := models.Closes(series)
	haRSI := indicator.SmoothedRSI(closes, s.p.HARSILength, s.p.HARSISmooth)
	ema := indicator.EMA(closes, s.p.EMAFilter)

	last := len(closes) - 1
	price, emaCurr := closes[last], ema[last]
	if !indicator.Defined(emaCurr) {
		return models.Signal{}, false
	}

	var dir models.Direction
	switch indicator.CrossLevelAt(haRSI, swingMidline, last, indicator.Break) {
	case indicator.CrossUp:
		if price > emaCurr {
			dir = models.DirectionLong
		}
	case indicator.CrossDown:
		if price < emaCurr {
			dir = models.DirectionShort
		}
	}
	if dir == "" {
		return models.Signal{}, false
	}

	side := "above"
	if dir == models.DirectionShort {
		side = "below"
	}
	msg := fmt.Sprintf("%s SWING TRADE %s: HA-RSI crossed 50, price %s EMA%d",
		arrow(dir), dir, side, s.p.EMAFilter)

	sig := newSignal(s.Kind(), symbol, timeframe, dir, price, msg)
	sig.RSI = models.Value(indicator.Round(haRSI[last], 2))
	sig.EMA50 = models.Value(emaCurr)
	sig.Raw = map[string]any{
		"ha_rsi":      indicator.Round(haRSI[last], 2),
		"ha_rsi_prev": indicator.Round(haRSI[last-1], 2),
		"ema_filter":  s.p.EMAFilter,
	}
	return sig, true
}
