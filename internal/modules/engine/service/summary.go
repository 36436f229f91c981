package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
)

const summaryTop = 5

// maybeSummary шлёт сводку рынка не чаще раза за SummaryEvery по часам.
// Бакет отмечается до отправки: неудачная попытка не повторяется.
func (e *Engine) maybeSummary(ctx context.Context, signals []models.Signal) {
	if e.deps.Summarizer == nil || e.cfg.SummaryEvery <= 0 {
		return
	}
	now := e.now()
	bucket := helper.BucketStart(now, int64(e.cfg.SummaryEvery/time.Second))
	prev := e.summaryBucket.Load()
	if prev == bucket || !e.summaryBucket.CompareAndSwap(prev, bucket) {
		return
	}

	var gainers, losers []models.Ticker
	if e.deps.Overview != nil {
		gainers = e.deps.Overview.TopGainers(ctx, summaryTop)
		losers = e.deps.Overview.TopLosers(ctx, summaryTop)
	}

	text := BuildSummary(time.Unix(bucket, 0).UTC(), gainers, losers, signals)
	if !e.deps.Summarizer.SendSummary(ctx, text) {
		e.log.Warnf("[ENGINE] market summary not delivered")
	}
}

// BuildSummary - Markdown-текст сводки.
func BuildSummary(at time.Time, gainers, losers []models.Ticker, signals []models.Signal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *MARKET SUMMARY* %s UTC\n", at.Format("2006-01-02 15:04"))

	if len(gainers) > 0 {
		b.WriteString("\n🚀 *Top gainers (24h)*\n")
		writeTickers(&b, gainers)
	}
	if len(losers) > 0 {
		b.WriteString("\n📉 *Top losers (24h)*\n")
		writeTickers(&b, losers)
	}

	fmt.Fprintf(&b, "\n⚡ Signals in last cycle: %d\n", len(signals))
	long, short := 0, 0
	for _, s := range signals {
		if s.Direction == models.DirectionLong {
			long++
		} else {
			short++
		}
	}
	if len(signals) > 0 {
		fmt.Fprintf(&b, "LONG: %d | SHORT: %d\n", long, short)
	}
	for i, s := range signals {
		if i == summaryTop {
			fmt.Fprintf(&b, "... +%d more\n", len(signals)-summaryTop)
			break
		}
		fmt.Fprintf(&b, "• %s %s %s %s\n", s.Strategy, helper.PairSymbol(s.Symbol), s.Timeframe, s.Direction)
	}
	return b.String()
}

func writeTickers(b *strings.Builder, tickers []models.Ticker) {
	for i, t := range tickers {
		if i == summaryTop {
			break
		}
		fmt.Fprintf(b, "%d. %s %+.2f%%\n", i+1, helper.PairSymbol(t.Symbol), t.ChangePercent)
	}
}
