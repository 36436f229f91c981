package service

import (
	"strings"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
)

// Filter - подписка клиента. Пустое поле = без ограничения.
type Filter struct {
	Symbols    []string `json:"symbols,omitempty"`
	Timeframes []string `json:"timeframes,omitempty"`
	Strategies []string `json:"strategies,omitempty"`

	symbols    map[string]struct{}
	timeframes map[string]struct{}
	strategies map[string]struct{}
}

// NewFilter нормализует значения: BTC/USDT -> BTCUSDT, 1H -> 1h, rsi -> RSI.
func NewFilter(symbols, timeframes, strategies []string) Filter {
	f := Filter{}
	f.Symbols, f.symbols = normSet(symbols, helper.PlainSymbol)
	f.Timeframes, f.timeframes = normSet(timeframes, helper.NormTF)
	f.Strategies, f.strategies = normSet(strategies, func(s string) string {
		return strings.ToUpper(strings.TrimSpace(s))
	})
	return f
}

func normSet(in []string, norm func(string) string) ([]string, map[string]struct{}) {
	if len(in) == 0 {
		return nil, nil
	}
	list := make([]string, 0, len(in))
	set := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = norm(v)
		if v == "" {
			continue
		}
		if _, ok := set[v]; ok {
			continue
		}
		set[v] = struct{}{}
		list = append(list, v)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list, set
}

func (f Filter) Match(sig models.Signal) bool {
	if f.symbols != nil {
		if _, ok := f.symbols[helper.PlainSymbol(sig.Symbol)]; !ok {
			return false
		}
	}
	if f.timeframes != nil {
		if _, ok := f.timeframes[sig.Timeframe]; !ok {
			return false
		}
	}
	if f.strategies != nil {
		if _, ok := f.strategies[string(sig.Strategy)]; !ok {
			return false
		}
	}
	return true
}
