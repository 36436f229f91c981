package service

import (
	"fmt"

	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
)

// JFN - пересечение EMA fast/slow. Assertiveness - доля выигрышных сделок
// среди последних TradesWindow сделок, смоделированных по тому же правилу входа.
type JFN struct {
	p models.JFNParams
}

func NewJFN(p models.JFNParams) *JFN { return &JFN{p: p} }

func (s *JFN) Kind() models.StrategyKind { return models.StrategyJFN }
func (s *JFN) Params() any               { return s.p }
func (s *JFN) MinCandles() int           { return max(s.p.SlowLength+5, s.p.MaxHoldBars+2) }

// Assertiveness - итог моделирования.
type Assertiveness struct {
	HitRate float64
	Wins    int
	Losses  int
	Shown   int
}

func (s *JFN) Analyze(series []models.Candle, symbol, timeframe string) (models.Signal, bool) {
	if len(series) < s.MinCandles() {
		return models.Signal{}, false
	}

	closes := models.Closes(series)
	fast := indicator.EMA(closes, s.p.FastLength)
	slow := indicator.EMA(closes, s.p.SlowLength)

	last := len(closes) - 1
	var dir models.Direction
	switch indicator.CrossAt(fast, slow, last, indicator.Break) {
	case indicator.CrossUp:
		dir = models.DirectionLong
	case indicator.CrossDown:
		dir = models.DirectionShort
	default:
		return models.Signal{}, false
	}

	stats, ok := s.assertiveness(s.simulate(series, fast, slow))
	if s.p.AssertGate && (!ok || stats.HitRate < s.p.AssertMin) {
		return models.Signal{}, false
	}

	word := "BUY"
	if dir == models.DirectionShort {
		word = "SELL"
	}

	sig := newSignal(s.Kind(), symbol, timeframe, dir, closes[last], fmt.Sprintf("%s signal", word))
	sig.Raw = map[string]any{
		"ema_fast": indicator.Round(fast[last], 6),
		"ema_slow": indicator.Round(slow[last], 6),
		"take_pct": s.p.TakePct,
		"stop_pct": s.p.StopPct,
	}
	if ok {
		sig.Raw["assertiveness"] = indicator.Round(stats.HitRate, 2)
		sig.Raw["wins"] = stats.Wins
		sig.Raw["losses"] = stats.Losses
		sig.Raw["trades"] = stats.Shown
	}
	return sig, true
}

// exit: 1 - тейк, -1 - стоп, 0 - ни то ни другое.
// Бар, задевший оба уровня, считается стопом.
func (s *JFN) exit(long bool, entry, high, low float64) int {
	var tp, sl float64
	var hitTP, hitSL bool
	if long {
		tp = entry * (1 + s.p.TakePct/100)
		sl = entry * (1 - s.p.StopPct/100)
		hitTP, hitSL = high >= tp, low <= sl
	} else {
		tp = entry * (1 - s.p.TakePct/100)
		sl = entry * (1 + s.p.StopPct/100)
		hitTP, hitSL = low <= tp, high >= sl
	}
	switch {
	case hitSL:
		return -1
	case hitTP:
		return 1
	default:
		return 0
	}
}

// simulate проигрывает все исторические пересечения: вход по close свечи
// пересечения, выход по TP/SL или по таймауту MaxHoldBars.
// Результат: true - выигрыш, false - проигрыш.
func (s *JFN) simulate(series []models.Candle, fast, slow []float64) []bool {
	var (
		results  []bool
		inTrade  bool
		long     bool
		entry    float64
		barsHeld int
	)

	for i := 1; i < len(series); i++ {
		if !indicator.Defined(fast[i]) || !indicator.Defined(slow[i]) {
			continue
		}

		if !inTrade {
			switch indicator.CrossAt(fast, slow, i, indicator.Break) {
			case indicator.CrossUp:
				inTrade, long = true, true
			case indicator.CrossDown:
				inTrade, long = true, false
			default:
				continue
			}
			entry = series[i].Close
			barsHeld = 0
			continue
		}

		barsHeld++
		outcome := s.exit(long, entry, series[i].High, series[i].Low)
		timeout := outcome == 0 && barsHeld >= s.p.MaxHoldBars
		if outcome == 0 && !timeout {
			continue
		}

		switch {
		case outcome == 1:
			results = append(results, true)
		case outcome == -1, timeout && s.p.CountTimeoutAsLoss:
			results = append(results, false)
		}
		inTrade = false
	}
	return results
}

func (s *JFN) assertiveness(results []bool) (Assertiveness, bool) {
	if len(results) == 0 {
		return Assertiveness{}, false
	}

	var a Assertiveness
	for _, win := range results {
		if win {
			a.Wins++
		} else {
			a.Losses++
		}
	}

	window := results
	if s.p.TradesWindow > 0 && len(results) > s.p.TradesWindow {
		window = results[len(results)-s.p.TradesWindow:]
	}
	wins := 0
	for _, win := range window {
		if win {
			wins++
		}
	}
	a.Shown = len(window)
	a.HitRate = 100 * float64(wins) / float64(len(window))
	return a, true
}
