package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"signal_bot/internal/models"
	strategy "signal_bot/internal/modules/strategy/service"
)

// Config - параметры планировщика.
type Config struct {
	Symbols       []string
	Timeframes    []string
	UseRanking    bool
	RankingLimit  int
	ExcludeStable bool
	MinVolume     float64
	CandleLimit   int
	Concurrency   int
	Interval      time.Duration
	ErrorDelay    time.Duration
	SummaryEvery  time.Duration
}

// Deps - коллабораторы движка. Ranker, Overview, Summarizer, Metrics и
// Observer необязательны.
type Deps struct {
	Market     MarketData
	Ranker     SymbolRanker
	Overview   MarketOverview
	Summarizer Summarizer
	Publisher  Publisher
	Dedup      Deduper
	Metrics    Metrics
	Observer   CycleObserver
	Log        *zap.SugaredLogger
}

type timeframeMap = map[models.StrategyKind][]string

// Engine - планировщик сигналов: один фоновый цикл, стратегии и их
// таймфреймы лежат за atomic.Pointer и подменяются целиком.
type Engine struct {
	cfg  Config
	deps Deps
	log  *zap.SugaredLogger

	strategies atomic.Pointer[strategy.Set]
	timeframes atomic.Pointer[timeframeMap]
	// сериализует UpdateStrategy/SetTimeframes между собой
	writeMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	lastCycle     atomic.Pointer[CycleReport]
	summaryBucket atomic.Int64

	now func() time.Time
}

func New(cfg Config, set strategy.Set, timeframes map[models.StrategyKind][]string, deps Deps) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.ErrorDelay <= 0 {
		cfg.ErrorDelay = 10 * time.Second
	}
	if cfg.CandleLimit <= 0 {
		cfg.CandleLimit = 200
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if deps.Dedup == nil {
		deps.Dedup = NewMemoryDedup(DefaultRetention)
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	e := &Engine{
		cfg:  cfg,
		deps: deps,
		log:  log,
		now:  time.Now,
	}

	setCopy := make(strategy.Set, len(set))
	for k, s := range set {
		setCopy[k] = s
	}
	e.strategies.Store(&setCopy)

	tfs := make(timeframeMap, len(timeframes))
	for k, v := range timeframes {
		tfs[k] = append([]string(nil), v...)
	}
	e.timeframes.Store(&tfs)
	e.summaryBucket.Store(-1)
	return e
}

// Start запускает фоновый цикл. Повторный Start только пишет предупреждение.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		e.log.Warnf("[ENGINE] already running")
		return
	}
	// Stop вышел по таймауту, а прежний цикл ещё не завершился: второй
	// цикл поверх него не запускаем. Его ctx уже отменён.
	if e.done != nil {
		select {
		case <-e.done:
		default:
			e.log.Warnf("[ENGINE] waiting for previous loop to exit")
			<-e.done
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.cancel, e.done = cancel, done

	go e.loop(ctx, done)
	e.log.Infof("[ENGINE] started: interval=%s strategies=%d", e.cfg.Interval, len(*e.strategies.Load()))
}

// Stop отменяет текущий сон/загрузку и ждёт выхода цикла (или ctx).
// После таймаута done остаётся у движка: повторный Stop ждёт того же цикла,
// Start дождётся его выхода. На остановленном движке ничего не делает.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel = nil
	e.mu.Unlock()

	if done == nil {
		return nil
	}
	if cancel != nil {
		cancel()
	}

	select {
	case <-done:
		e.log.Infof("[ENGINE] stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancel != nil
}

func (e *Engine) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		delay := e.cfg.Interval
		if _, err := e.RunOnce(ctx, nil, nil); err != nil {
			if ctx.Err() != nil {
				return
			}
			e.log.Errorf("[ENGINE] cycle failed, retry in %s: %v", e.cfg.ErrorDelay, err)
			delay = e.cfg.ErrorDelay
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// Status - снимок состояния для API.
type Status struct {
	Running         bool         `json:"running"`
	Strategies      []string     `json:"strategies"`
	SymbolsCount    int          `json:"symbols_count"`
	Timeframes      []string     `json:"timeframes"`
	IntervalSeconds int64        `json:"interval_seconds"`
	UseRanking      bool         `json:"use_ranking"`
	CacheSize       int          `json:"cache_size"`
	LastCycle       *CycleReport `json:"last_cycle,omitempty"`
}

func (e *Engine) Status(ctx context.Context) Status {
	set := *e.strategies.Load()
	st := Status{
		Running:         e.Running(),
		Strategies:      kindNames(orderedKinds(set)),
		SymbolsCount:    len(e.cfg.Symbols),
		Timeframes:      e.RequiredTimeframes(nil),
		IntervalSeconds: int64(e.cfg.Interval / time.Second),
		UseRanking:      e.cfg.UseRanking,
		CacheSize:       e.deps.Dedup.Size(ctx),
		LastCycle:       e.lastCycle.Load(),
	}
	if st.LastCycle != nil {
		st.SymbolsCount = st.LastCycle.Symbols
	}
	return st
}

func kindNames(kinds []models.StrategyKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
