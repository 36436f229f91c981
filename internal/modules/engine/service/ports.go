package service

import (
	"context"
	"time"

	"signal_bot/internal/models"
)

// MarketData - источник свечей. Ошибки не возвращаются: неудачная
// загрузка даёт пустую серию.
type MarketData interface {
	FetchCandles(ctx context.Context, symbol, timeframe string, limit int) []models.Candle
	FetchMultipleCandles(ctx context.Context, symbols []string, timeframe string, limit int) map[string][]models.Candle
}

// SymbolRanker - топ символов по модулю изменения за 24ч. Пустой ответ = недоступно.
type SymbolRanker interface {
	TopVolatileSymbols(ctx context.Context, limit int, excludeStable bool, minVolume float64) []string
}

// MarketOverview - данные для периодической сводки рынка.
type MarketOverview interface {
	TopGainers(ctx context.Context, limit int) []models.Ticker
	TopLosers(ctx context.Context, limit int) []models.Ticker
}

// Summarizer отправляет сводку; false - некуда или не удалось.
type Summarizer interface {
	SendSummary(ctx context.Context, text string) bool
}

// Publisher - рассылка принятых сигналов (notify.Fanout).
type Publisher interface {
	Publish(ctx context.Context, sig models.Signal) int
}

// Metrics - то, что движок пишет в prometheus.
type Metrics interface {
	RecordCycle(outcome string, d time.Duration)
	RecordSignal(strategy, stage string)
	RecordFetchFailure(timeframe string)
	SetDedupSize(n int)
}

// CycleObserver получает отметку о завершённом цикле (health).
type CycleObserver interface {
	TouchTick(t time.Time)
	SetReady(v bool)
}
