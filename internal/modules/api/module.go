package api

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"

	"signal_bot/internal/modules/api/service"
	bubblessvc "signal_bot/internal/modules/bubbles/service"
	"signal_bot/internal/modules/config"
	enginesvc "signal_bot/internal/modules/engine/service"
	journalsvc "signal_bot/internal/modules/journal/service"
	marketsvc "signal_bot/internal/modules/market/service"
	"signal_bot/internal/modules/settings"
	tgsvc "signal_bot/internal/modules/telegram_bot/service"
	wssvc "signal_bot/internal/modules/websocket/service"
	"signal_bot/pkg/logger"
)

type handlerIn struct {
	fx.In

	Engine   *enginesvc.Engine
	Settings *settings.Store
	Telegram *tgsvc.Service
	Ranking  *bubblessvc.Service
	Market   *marketsvc.Client
	Journal  *journalsvc.Journal
	Hub      *wssvc.Hub
}

func newHandler(in handlerIn) *service.Handler {
	return service.NewHandler(service.Deps{
		Engine:    in.Engine,
		Settings:  in.Settings,
		Messenger: in.Telegram,
		Ranking:   in.Ranking,
		Market:    in.Market,
		Journal:   in.Journal,
		Stream:    in.Hub,
		Log:       logger.Named("api"),
	})
}

func runHTTP(lc fx.Lifecycle, cfg *config.Config, h *service.Handler) {
	srv := &http.Server{
		Addr:              cfg.PublicAddr(),
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Printf("[BOOT] api on %s", srv.Addr)
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Printf("[API] serve: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("api",
		fx.Provide(
			newHandler,
		),
		fx.Invoke(runHTTP),
	)
}
