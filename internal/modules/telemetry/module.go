package telemetry

import (
	"context"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"signal_bot/internal/modules/config"
	"signal_bot/internal/notify"
	"signal_bot/pkg/logger"
	"signal_bot/pkg/metrics"
	"signal_bot/pkg/tracing"
)

const serviceName = "signal_bot"

// initLogging должен отработать раньше остальных модулей: их конструкторы
// берут logger.Named.
func initLogging(lc fx.Lifecycle, cfg *config.Config) error {
	logger.SetServiceName(serviceName)
	if err := logger.Init(cfg.LogLevel); err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Sync()
			return nil
		},
	})
	return nil
}

func initTracing(lc fx.Lifecycle, cfg *config.Config) error {
	tracing.SetServiceName(serviceName)
	tc := tracing.Config{Host: cfg.Tracing.Host, Port: cfg.Tracing.Port}
	_, closer, err := tracing.InitTracer(tc)
	if err != nil {
		return err
	}
	if tc.Enabled() {
		log.Printf("[BOOT] tracing to %s:%d", tc.Host, tc.Port)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			closer()
			return nil
		},
	})
	return nil
}

func newGatherer(reg *prometheus.Registry) prometheus.Gatherer { return reg }

func newRecorder(reg *prometheus.Registry) *metrics.Recorder { return metrics.New(reg) }

// newFanout - синки добавляют модули websocket, telegram и journal.
func newFanout(m *metrics.Recorder) *notify.Fanout {
	return notify.NewFanout(logger.Named("notify"), m)
}

func Module() fx.Option {
	return fx.Module("telemetry",
		fx.Provide(
			metrics.NewRegistry,
			newGatherer,
			newRecorder,
			newFanout,
		),
		fx.Invoke(initLogging, initTracing),
	)
}
