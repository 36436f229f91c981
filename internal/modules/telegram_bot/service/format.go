package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"signal_bot/internal/models"
)

const disclaimer = "⚠️ DISCLAIMER ⚠️\n" +
	"This is NOT investment advice.\n" +
	"Do your own analysis before trading."

var displayNames = map[models.StrategyKind]string{
	models.StrategyRSIEMA50:   "RSI EMA50",
	models.StrategyDayTrade:   "DAY TRADE",
	models.StrategySwingTrade: "SWING TRADE",
}

func displayName(kind models.StrategyKind) string {
	if n, ok := displayNames[kind]; ok {
		return n
	}
	return strings.ReplaceAll(string(kind), "_", " ")
}

// formatPrice: >=1 - 4 знака, >=0.01 - 6, мельче - 8.
func formatPrice(v float64) string {
	d := decimal.NewFromFloat(v)
	switch {
	case v >= 1:
		return d.StringFixed(4)
	case v >= 0.01:
		return d.StringFixed(6)
	default:
		return d.StringFixed(8)
	}
}

// FormatSignal - Markdown-текст сигнала для телеграма.
func FormatSignal(sig models.Signal, withDisclaimer bool) string {
	arrow := "⬆️"
	if sig.Direction == models.DirectionShort {
		arrow = "⬇️"
	}

	lines := []string{
		"*" + displayName(sig.Strategy) + "*",
		"",
		fmt.Sprintf("*Asset: %s 🧩*", sig.Symbol),
		fmt.Sprintf("_Signal: %s %s_", sig.Direction, arrow),
		"",
		fmt.Sprintf("Timeframe: %s ⏱️", sig.Timeframe),
		fmt.Sprintf("Price: %s", formatPrice(sig.Price)),
	}

	if ind := indicatorLines(sig); len(ind) > 0 {
		lines = append(lines, "")
		lines = append(lines, ind...)
	}

	if sig.Strategy == models.StrategyJFN {
		if a, ok := sig.RawFloat("assertiveness"); ok {
			lines = append(lines, "", fmt.Sprintf("Assertiveness: %.2f%% 🎯", a))
		}
	}

	text := strings.Join(lines, "\n")
	if withDisclaimer {
		text += "\n\n" + disclaimer
	}
	return text
}

func indicatorLines(sig models.Signal) []string {
	var out []string
	switch sig.Strategy {
	case models.StrategyRSI:
		if sig.RSI != nil {
			out = append(out, fmt.Sprintf("RSI: %.2f", *sig.RSI))
		}
	case models.StrategyMACD:
		if sig.MACD != nil && sig.MACDSignal != nil {
			out = append(out, fmt.Sprintf("MACD: %.4f | Signal: %.4f", *sig.MACD, *sig.MACDSignal))
		}
	case models.StrategyRSIEMA50, models.StrategyScalping:
		if sig.RSI != nil {
			out = append(out, fmt.Sprintf("RSI: %.2f", *sig.RSI))
		}
		if sig.EMA50 != nil {
			out = append(out, "EMA50: "+formatPrice(*sig.EMA50))
		}
	}
	return out
}
