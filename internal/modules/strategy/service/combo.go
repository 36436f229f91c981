package service

import (
	"fmt"
	"strings"

	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
)

const (
	ComboMACDPastRSINow = "MACD_PAST_RSI_NOW"
	ComboRSIPastMACDNow = "RSI_PAST_MACD_NOW"
	ComboBothNow        = "BOTH_NOW"
)

// Combo - подтверждение пересечений MACD и RSI в пределах окна.
type Combo struct {
	p models.ComboParams
}

func NewCombo(p models.ComboParams) *Combo { return &Combo{p: p} }

func (s *Combo) Kind() models.StrategyKind { return models.StrategyCombo }
func (s *Combo) Params() any               { return s.p }
func (s *Combo) MinCandles() int {
	return max(s.p.MACDSlow, s.p.RSIPeriod) + s.p.MACDSignal + 20
}

type comboCase struct {
	label string
	lead  indicator.Cross
	now   indicator.Cross
}

func (s *Combo) Analyze(series []models.Candle, symbol, timeframe string) (models.Signal, bool) {
	if len(series) < s.MinCandles() {
		return models.Signal{}, false
	}

	closes := models.Closes(series)
	rsi := indicator.RSIWilder(closes, s.p.RSIPeriod)
	rsiSig := indicator.SMA(rsi, s.p.RSISignal)
	macd, macdSig, _ := indicator.MACD(closes, s.p.MACDFast, s.p.MACDSlow, s.p.MACDSignal)
	ema50 := indicator.Last(indicator.EMA(closes, 50))

	last := len(closes) - 1
	price := closes[last]

	rsiNow := indicator.CrossAt(rsi, rsiSig, last, indicator.Reach)
	macdNow := indicator.CrossAt(macd, macdSig, last, indicator.Reach)
	rsiPast := earliestCross(rsi, rsiSig, last, s.p.ConfirmWindow)
	macdPast := earliestCross(macd, macdSig, last, s.p.ConfirmWindow)

	// порядок важен только для метки
	cases := []comboCase{
		{label: ComboMACDPastRSINow, lead: macdPast, now: rsiNow},
		{label: ComboRSIPastMACDNow, lead: rsiPast, now: macdNow},
		{label: ComboBothNow, lead: macdNow, now: rsiNow},
	}

	for _, c := range cases {
		if c.lead == indicator.NoCross || c.now == indicator.NoCross {
			continue
		}
		if !s.p.AllowMixedDir && c.lead != c.now {
			continue
		}
		dir := models.DirectionLong
		if c.now == indicator.CrossDown {
			dir = models.DirectionShort
		}
		if s.p.RequireEMA50 && !priceAgrees(dir, price, ema50) {
			continue
		}
		return s.signal(symbol, timeframe, dir, c.label, price, rsi[last], macd[last], macdSig[last], ema50), true
	}
	return models.Signal{}, false
}

func (s *Combo) signal(symbol, timeframe string, dir models.Direction, label string,
	price, rsi, macd, macdSig, ema50 float64) models.Signal {

	msg := fmt.Sprintf("⚡ COMBO CONFIRMED!\nTimeframe: %s\nSymbol: %s\nAction: %s %s\nRSI + MACD confluence (%s)",
		timeframe, strings.ToUpper(symbol), dir, arrow(dir), label)

	sig := newSignal(s.Kind(), symbol, timeframe, dir, price, msg)
	sig.RSI = models.Value(indicator.Round(rsi, 2))
	sig.MACD = models.Value(indicator.Round(macd, 6))
	sig.MACDSignal = models.Value(indicator.Round(macdSig, 6))
	sig.EMA50 = models.Value(indicator.Round(ema50, 2))
	sig.Raw = map[string]any{
		"combo_type":     label,
		"rsi":            sig.RSI,
		"macd":           sig.MACD,
		"macd_signal":    sig.MACDSignal,
		"ema50":          sig.EMA50,
		"confirm_window": s.p.ConfirmWindow,
	}
	return sig
}

// earliestCross ищет первое пересечение в window свечах перед last.
func earliestCross(a, b []float64, last, window int) indicator.Cross {
	for i := max(1, last-window); i < last; i++ {
		if c := indicator.CrossAt(a, b, i, indicator.Reach); c != indicator.NoCross {
			return c
		}
	}
	return indicator.NoCross
}

func priceAgrees(dir models.Direction, price, level float64) bool {
	if dir == models.DirectionLong {
		return price > level
	}
	return price < level
}
