package market

import (
	"context"

	"go.uber.org/fx"

	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/market/service"
	"signal_bot/pkg/logger"
)

func newClient(cfg *config.Config) *service.Client {
	return service.NewClient(service.Config{
		BaseURLs:     cfg.Market.BaseURLs,
		Timeout:      cfg.Market.Timeout,
		Concurrency:  cfg.Engine.Concurrency,
		RequestDelay: cfg.Engine.RequestDelay,
	}, logger.Named("market"))
}

func Module() fx.Option {
	return fx.Module("market",
		fx.Provide(
			newClient,
		),

		fx.Invoke(func(lc fx.Lifecycle, c *service.Client) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					c.Close()
					return nil
				},
			})
		}),
	)
}
