package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"golang.org/x/sync/errgroup"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
	strategy "signal_bot/internal/modules/strategy/service"
)

// CycleReport - итог одного прохода.
type CycleReport struct {
	StartedAt  time.Time       `json:"started_at"`
	DurationMs int64           `json:"duration_ms"`
	Symbols    int             `json:"symbols"`
	Timeframes []string        `json:"timeframes"`
	Generated  int             `json:"generated"`
	Accepted   int             `json:"accepted"`
	Suppressed int             `json:"suppressed"`
	Signals    []models.Signal `json:"signals"`
	Error      string          `json:"error,omitempty"`
}

// RunOnce выполняет один цикл: символы, таймфреймы, загрузка, стратегии,
// дедупликация, рассылка. Пустые symbols/timeframes - значения из конфига.
// Паника внутри цикла превращается в ошибку.
func (e *Engine) RunOnce(ctx context.Context, symbols, timeframes []string) (report CycleReport, err error) {
	started := e.now()
	report.StartedAt = started.UTC()

	span, ctx := opentracing.StartSpanFromContext(ctx, "engine.cycle")
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("Engine.RunOnce: panic: %v", r)
			e.log.Errorf("[ENGINE] cycle panic: %v\n%s", r, debug.Stack())
		}

		report.DurationMs = time.Since(started).Milliseconds()
		outcome := "ok"
		if err != nil {
			outcome = "error"
			report.Error = err.Error()
			ext.Error.Set(span, true)
			span.SetTag("error.message", err.Error())
		}
		if e.deps.Metrics != nil {
			e.deps.Metrics.RecordCycle(outcome, time.Since(started))
		}
		span.Finish()

		rep := report
		e.lastCycle.Store(&rep)
	}()

	// снимок на весь цикл
	set := *e.strategies.Load()
	assigned := *e.timeframes.Load()

	syms := e.resolveSymbols(ctx, symbols)
	if len(timeframes) == 0 {
		timeframes = e.cfg.Timeframes
	}
	tfs := requiredTimeframes(set, assigned, timeframes)

	report.Symbols = len(syms)
	report.Timeframes = tfs
	span.SetTag("symbols", len(syms))
	span.SetTag("timeframes", len(tfs))

	var generated []models.Signal
	for _, tf := range tfs {
		if err = ctx.Err(); err != nil {
			return report, err
		}
		strats := strategiesFor(set, assigned, tf)
		if len(strats) == 0 {
			continue
		}
		generated = append(generated, e.evaluateTimeframe(ctx, syms, tf, strats)...)
	}
	report.Generated = len(generated)

	for _, sig := range generated {
		if e.gate(ctx, sig) {
			report.Accepted++
			report.Signals = append(report.Signals, sig)
			if e.deps.Publisher != nil {
				e.deps.Publisher.Publish(ctx, sig)
			}
		} else {
			report.Suppressed++
		}
	}

	if e.deps.Metrics != nil {
		e.deps.Metrics.SetDedupSize(e.deps.Dedup.Size(ctx))
	}
	if e.deps.Observer != nil {
		e.deps.Observer.TouchTick(e.now())
		e.deps.Observer.SetReady(true)
	}

	e.maybeSummary(ctx, report.Signals)

	e.log.Infof("[ENGINE] cycle: symbols=%d tfs=%v generated=%d accepted=%d suppressed=%d in %s",
		report.Symbols, tfs, report.Generated, report.Accepted, report.Suppressed, time.Since(started).Round(time.Millisecond))
	return report, nil
}

func (e *Engine) resolveSymbols(ctx context.Context, explicit []string) []string {
	if len(explicit) > 0 {
		out := make([]string, 0, len(explicit))
		for _, s := range explicit {
			out = append(out, helper.PlainSymbol(s))
		}
		return out
	}
	if e.cfg.UseRanking && e.deps.Ranker != nil {
		top := e.deps.Ranker.TopVolatileSymbols(ctx, e.cfg.RankingLimit, e.cfg.ExcludeStable, e.cfg.MinVolume)
		if len(top) > 0 {
			return top
		}
		e.log.Warnf("[ENGINE] ranking returned nothing, using static symbols")
	}
	return e.cfg.Symbols
}

// evaluateTimeframe загружает свечи tf по всем символам и прогоняет
// назначенные стратегии. Порядок сигналов: символы, затем стратегии.
func (e *Engine) evaluateTimeframe(ctx context.Context, symbols []string, tf string, strats []strategy.Strategy) []models.Signal {
	span, ctx := opentracing.StartSpanFromContext(ctx, "engine.timeframe")
	span.SetTag("timeframe", tf)
	defer span.Finish()

	data := e.deps.Market.FetchMultipleCandles(ctx, symbols, tf, e.cfg.CandleLimit)

	perSymbol := make([][]models.Signal, len(symbols))
	g := new(errgroup.Group)
	g.SetLimit(e.cfg.Concurrency)

	for i, sym := range symbols {
		series := data[sym]
		if len(series) == 0 {
			if e.deps.Metrics != nil {
				e.deps.Metrics.RecordFetchFailure(tf)
			}
			continue
		}
		i, sym := i, sym
		g.Go(func() error {
			for _, s := range strats {
				if sig, ok := e.analyze(s, series, sym, tf); ok {
					perSymbol[i] = append(perSymbol[i], sig)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	var out []models.Signal
	for _, sigs := range perSymbol {
		for _, sig := range sigs {
			if e.deps.Metrics != nil {
				e.deps.Metrics.RecordSignal(string(sig.Strategy), "generated")
			}
			out = append(out, sig)
		}
	}
	return out
}

// analyze изолирует панику одной стратегии от остальных.
func (e *Engine) analyze(s strategy.Strategy, series []models.Candle, symbol, tf string) (sig models.Signal, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorf("[ENGINE] %s %s %s panic: %v", s.Kind(), symbol, tf, r)
			sig, ok = models.Signal{}, false
		}
	}()
	return s.Analyze(series, symbol, tf)
}

// gate - дедупликация. Ошибка хранилища пропускает сигнал без рассылки.
func (e *Engine) gate(ctx context.Context, sig models.Signal) bool {
	accepted, err := e.deps.Dedup.Accept(ctx, KeyOf(sig), e.now())
	if err != nil {
		e.log.Errorf("[ENGINE] dedup %s %s %s: %v", sig.Strategy, sig.Symbol, sig.Timeframe, err)
		accepted = false
	}
	if e.deps.Metrics != nil {
		stage := "suppressed"
		if accepted {
			stage = "accepted"
		}
		e.deps.Metrics.RecordSignal(string(sig.Strategy), stage)
	}
	return accepted
}
