package bubbles

import (
	"context"
	"log"

	"go.uber.org/fx"

	"signal_bot/internal/modules/bubbles/service"
	"signal_bot/internal/modules/config"
	"signal_bot/pkg/logger"
)

func newService(cfg *config.Config) *service.Service {
	return service.NewService(service.Config{
		URLs:     cfg.Bubbles.URLs,
		HostIPs:  cfg.Bubbles.HostIPs,
		CacheTTL: cfg.Bubbles.CacheTTL,
		Timeout:  cfg.Bubbles.Timeout,
	}, logger.Named("bubbles"))
}

func Module() fx.Option {
	return fx.Module("bubbles",
		fx.Provide(
			newService,
		),

		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, svc *service.Service) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					// без ранжирования кэш нужен только API, грузим по запросу
					if !cfg.Engine.UseRanking {
						return nil
					}
					log.Printf("[BOOT] bubbles refresh every %s", cfg.Bubbles.CacheTTL)
					return svc.Start()
				},
				OnStop: func(ctx context.Context) error {
					svc.Stop()
					return nil
				},
			})
		}),
	)
}
