package websocket

import (
	"context"

	"go.uber.org/fx"

	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/websocket/service"
	"signal_bot/internal/notify"
	"signal_bot/pkg/logger"
	"signal_bot/pkg/metrics"
)

func newHub(cfg *config.Config, m *metrics.Recorder) *service.Hub {
	return service.NewHub(cfg.WebSocket.Heartbeat, m, logger.Named("websocket"))
}

func Module() fx.Option {
	return fx.Module("websocket",
		fx.Provide(
			newHub,
		),

		// хаб - один из получателей сигналов; роуты /ws вешает api
		fx.Invoke(func(lc fx.Lifecycle, hub *service.Hub, fanout *notify.Fanout) {
			fanout.Add(hub)
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					hub.Close()
					return nil
				},
			})
		}),
	)
}
