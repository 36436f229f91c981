package engine

import (
	"context"
	"log"

	"go.uber.org/fx"

	bubblessvc "signal_bot/internal/modules/bubbles/service"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/engine/service"
	healthsvc "signal_bot/internal/modules/health/service"
	marketsvc "signal_bot/internal/modules/market/service"
	"signal_bot/internal/modules/settings"
	strategy "signal_bot/internal/modules/strategy/service"
	tgsvc "signal_bot/internal/modules/telegram_bot/service"
	"signal_bot/internal/notify"
	"signal_bot/pkg/logger"
	"signal_bot/pkg/metrics"
)

func newDedup(lc fx.Lifecycle, cfg *config.Config) (service.Deduper, error) {
	if cfg.Dedup.Backend != "redis" {
		return service.NewMemoryDedup(cfg.Dedup.Retention), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Market.Timeout)
	defer cancel()
	client, err := service.DialRedis(ctx, cfg.Dedup.RedisURL)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error { return client.Close() },
	})
	log.Printf("[BOOT] dedup backend: redis")
	return service.NewRedisDedup(client, cfg.Dedup.KeyPrefix), nil
}

type engineIn struct {
	fx.In

	Cfg      *config.Config
	Set      strategy.Set
	Market   *marketsvc.Client
	Ranker   *bubblessvc.Service
	Telegram *tgsvc.Service
	Fanout   *notify.Fanout
	Dedup    service.Deduper
	Metrics  *metrics.Recorder
	State    *healthsvc.State
	Settings *settings.Store
}

func newEngine(in engineIn) (*service.Engine, error) {
	assigned, err := in.Cfg.StrategyTimeframes()
	if err != nil {
		return nil, err
	}
	// сохранённые через API назначения важнее конфига
	for k, tfs := range in.Settings.StrategyTimeframes() {
		assigned[k] = tfs
	}

	ec := in.Cfg.Engine
	// сводка: при ранжировании - по всему рынку, иначе по своим символам
	var overview service.MarketOverview = in.Market.Movers(ec.Symbols)
	if ec.UseRanking {
		overview = in.Ranker
	}
	return service.New(service.Config{
		Symbols:       ec.Symbols,
		Timeframes:    ec.Timeframes,
		UseRanking:    ec.UseRanking,
		RankingLimit:  ec.RankingLimit,
		ExcludeStable: ec.ExcludeStable,
		MinVolume:     ec.MinVolume,
		CandleLimit:   ec.CandleLimit,
		Concurrency:   ec.Concurrency,
		Interval:      ec.Interval,
		ErrorDelay:    ec.ErrorDelay,
		SummaryEvery:  ec.SummaryEvery,
	}, in.Set, assigned, service.Deps{
		Market:     in.Market,
		Ranker:     in.Ranker,
		Overview:   overview,
		Summarizer: in.Telegram,
		Publisher:  in.Fanout,
		Dedup:      in.Dedup,
		Metrics:    in.Metrics,
		Observer:   in.State,
		Log:        logger.Named("engine"),
	}), nil
}

func Module() fx.Option {
	return fx.Module("engine",
		fx.Provide(
			newDedup,
			newEngine,
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, e *service.Engine) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					if cfg.Engine.StartOnBoot {
						e.Start()
					} else {
						log.Printf("[BOOT] engine idle, start it via API")
					}
					return nil
				},
				OnStop: func(ctx context.Context) error {
					return e.Stop(ctx)
				},
			})
		}),
	)
}
