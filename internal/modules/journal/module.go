package journal

import (
	"context"
	"log"

	"go.uber.org/fx"

	"signal_bot/internal/modules/journal/service"
	"signal_bot/internal/notify"
	"signal_bot/pkg/db"
	"signal_bot/pkg/logger"
)

var _ service.Runner = (*db.PgTxManager)(nil)

func newJournal(tx *db.PgTxManager) *service.Journal {
	if tx == nil {
		return service.New(nil, logger.Named("journal"))
	}
	return service.New(tx, logger.Named("journal"))
}

func Module() fx.Option {
	return fx.Module("journal",
		fx.Provide(
			newJournal,
		),

		fx.Invoke(func(lc fx.Lifecycle, j *service.Journal, fanout *notify.Fanout) {
			if !j.Enabled() {
				return
			}
			fanout.Add(j)
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					if err := j.Migrate(ctx); err != nil {
						return err
					}
					log.Printf("[BOOT] signal journal enabled")
					return nil
				},
			})
		}),
	)
}
