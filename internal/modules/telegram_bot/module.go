package telegram

import (
	"log"
	"strings"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"

	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/settings"
	"signal_bot/internal/modules/telegram_bot/service"
	"signal_bot/internal/notify"
	"signal_bot/pkg/logger"
)

func newService(cfg *config.Config, store *settings.Store) (*service.Service, error) {
	dest := settings.Destinations{
		DefaultChatID: cfg.Telegram.DefaultChatID,
		SummaryChatID: cfg.Telegram.SummaryChatID,
		StrategyChats: map[string]int64{},
	}
	for k, id := range cfg.Telegram.StrategyChats {
		dest.StrategyChats[strings.ToUpper(k)] = id
	}
	// получатели, сохранённые через API, важнее конфига
	if saved, ok := store.Telegram(); ok {
		dest = saved
	}

	var bot service.Sender
	if cfg.Telegram.Token != "" {
		b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			return nil, err
		}
		log.Printf("[BOOT] telegram bot @%s", b.Self.UserName)
		bot = b
	} else {
		log.Printf("[BOOT] telegram disabled: no token")
	}

	return service.NewService(bot, dest, cfg.Telegram.Disclaimer, store, logger.Named("telegram")), nil
}

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			newService,
		),

		fx.Invoke(func(svc *service.Service, fanout *notify.Fanout) {
			fanout.Add(svc)
			// без бота сигналы хотя бы видны в логе
			if !svc.Status().HasBot {
				fanout.Add(notify.NewStdout(logger.Named("signal")))
			}
		}),
	)
}
