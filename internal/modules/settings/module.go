package settings

import (
	"log"

	"go.uber.org/fx"

	"signal_bot/internal/modules/config"
)

func newStore(cfg *config.Config) (*Store, error) {
	s, err := Open(cfg.Settings.Dir)
	if err != nil {
		return nil, err
	}
	log.Printf("[BOOT] runtime settings: %s", s.Path())
	return s, nil
}

func Module() fx.Option {
	return fx.Module("settings",
		fx.Provide(
			newStore,
		),
	)
}
