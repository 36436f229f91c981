package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/fx"

	"signal_bot/internal/modules/api"
	"signal_bot/internal/modules/bubbles"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/engine"
	"signal_bot/internal/modules/health"
	"signal_bot/internal/modules/journal"
	"signal_bot/internal/modules/market"
	"signal_bot/internal/modules/postgres"
	"signal_bot/internal/modules/settings"
	"signal_bot/internal/modules/strategy"
	telegram "signal_bot/internal/modules/telegram_bot"
	"signal_bot/internal/modules/telemetry"
	"signal_bot/internal/modules/websocket"
)

func main() {
	app := fx.New(
		config.Module(),
		// логгер и метрики раньше всех
		telemetry.Module(),
		postgres.Module(),
		settings.Module(),
		market.Module(),
		bubbles.Module(),
		strategy.Module(),
		websocket.Module(),
		telegram.Module(),
		journal.Module(),
		engine.Module(),
		health.Module(),
		api.Module(),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		log.Fatal(err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("[BOOT] shutting down")

	stopCtx, cancelStop := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		log.Printf("[BOOT] stop: %v", err)
	}
}
