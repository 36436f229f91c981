package strategy

import (
	"context"
	"log"

	"go.uber.org/fx"

	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/strategy/service"
)

func newSet(cfg *config.Config) (service.Set, error) {
	kinds, err := cfg.ActiveStrategies()
	if err != nil {
		return nil, err
	}
	return service.BuildAll(kinds, cfg.StrategyParams)
}

func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			newSet, // service.Set из engine.strategies + strategy_params
		),

		fx.Invoke(func(lc fx.Lifecycle, set service.Set) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					for kind, s := range set {
						log.Printf("[STRAT] %s active, min candles %d", kind, s.MinCandles())
					}
					return nil
				},
			})
		}),
	)
}
