package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/settings"
)

type fakeBot struct {
	mu   sync.Mutex
	sent []tgbot.MessageConfig
	err  error
}

func (b *fakeBot) Send(c tgbot.Chattable) (tgbot.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return tgbot.Message{}, b.err
	}
	b.sent = append(b.sent, c.(tgbot.MessageConfig))
	return tgbot.Message{MessageID: len(b.sent)}, nil
}

type fakeStore struct{ saved []settings.Destinations }

func (s *fakeStore) SetTelegram(d settings.Destinations) error {
	s.saved = append(s.saved, d)
	return nil
}

func sig(kind models.StrategyKind, dir models.Direction, price float64) models.Signal {
	return models.Signal{
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		Strategy:  kind,
		Direction: dir,
		Price:     price,
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Raw:       map[string]any{},
	}
}

func TestFormatSignal(t *testing.T) {
	s := sig(models.StrategyRSIEMA50, models.DirectionLong, 64250.5)
	s.RSI = models.Value(31.456)
	s.EMA50 = models.Value(63000.12345)

	got := FormatSignal(s, false)
	want := strings.Join([]string{
		"*RSI EMA50*",
		"",
		"*Asset: BTCUSDT 🧩*",
		"_Signal: LONG ⬆️_",
		"",
		"Timeframe: 1h ⏱️",
		"Price: 64250.5000",
		"",
		"RSI: 31.46",
		"EMA50: 63000.1235",
	}, "\n")
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatVariants(t *testing.T) {
	m := sig(models.StrategyMACD, models.DirectionShort, 0.05)
	m.MACD = models.Value(-0.00123)
	m.MACDSignal = models.Value(0.0004)
	got := FormatSignal(m, true)
	for _, part := range []string{"*MACD*", "_Signal: SHORT ⬇️_", "Price: 0.050000", "MACD: -0.0012 | Signal: 0.0004", "NOT investment advice"} {
		if !strings.Contains(got, part) {
			t.Fatalf("missing %q in:\n%s", part, got)
		}
	}

	j := sig(models.StrategyJFN, models.DirectionLong, 0.00001234)
	j.Raw["assertiveness"] = 66.666
	got = FormatSignal(j, false)
	if !strings.Contains(got, "Assertiveness: 66.67% 🎯") || !strings.Contains(got, "Price: 0.00001234") {
		t.Fatalf("jfn:\n%s", got)
	}

	d := FormatSignal(sig(models.StrategyDayTrade, models.DirectionLong, 2), false)
	if !strings.HasPrefix(d, "*DAY TRADE*") || strings.Contains(d, "RSI:") {
		t.Fatalf("day trade:\n%s", d)
	}
}

func TestPublishRouting(t *testing.T) {
	bot := &fakeBot{}
	svc := NewService(bot, settings.Destinations{
		DefaultChatID: -100,
		StrategyChats: map[string]int64{"GCM": -200},
	}, true, nil, nil)
	ctx := context.Background()

	if err := svc.Publish(ctx, sig(models.StrategyGCM, models.DirectionLong, 1)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := svc.Publish(ctx, sig(models.StrategyRSI, models.DirectionLong, 1)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(bot.sent) != 2 || bot.sent[0].ChatID != -200 || bot.sent[1].ChatID != -100 {
		t.Fatalf("routing: %+v", bot.sent)
	}
	if bot.sent[0].ParseMode != tgbot.ModeMarkdown {
		t.Fatalf("parse mode: %q", bot.sent[0].ParseMode)
	}

	// без группы и чата по умолчанию сигнал пропускается
	if err := svc.SetDefaultChat(0); err != nil {
		t.Fatal(err)
	}
	if err := svc.Publish(ctx, sig(models.StrategyRSI, models.DirectionLong, 1)); err != nil {
		t.Fatalf("Publish without chat: %v", err)
	}
	if len(bot.sent) != 2 {
		t.Fatalf("signal without destination was sent")
	}

	svc.SetEnabled(false)
	_ = svc.Publish(ctx, sig(models.StrategyGCM, models.DirectionLong, 1))
	if len(bot.sent) != 2 {
		t.Fatalf("disabled service sent a message")
	}
}

func TestSummaryAndErrors(t *testing.T) {
	bot := &fakeBot{}
	store := &fakeStore{}
	svc := NewService(bot, settings.Destinations{}, false, store, nil)
	ctx := context.Background()

	if svc.SendSummary(ctx, "summary") {
		t.Fatalf("summary without group must not be sent")
	}
	if err := svc.SetSummaryChat(-300); err != nil {
		t.Fatal(err)
	}
	if !svc.SendSummary(ctx, "summary") || bot.sent[0].ChatID != -300 {
		t.Fatalf("summary: %+v", bot.sent)
	}

	if err := svc.SetStrategyChat(models.StrategyJFN, -400); err != nil {
		t.Fatal(err)
	}
	if err := svc.SetStrategyChat(models.StrategyJFN, 0); err != nil {
		t.Fatal(err)
	}
	if len(store.saved) != 3 || store.saved[1].StrategyChats["JFN"] != -400 || len(store.saved[2].StrategyChats) != 0 {
		t.Fatalf("persisted: %+v", store.saved)
	}

	bot.err = errors.New("flood")
	if err := svc.Publish(ctx, sig(models.StrategyRSI, models.DirectionLong, 1)); err != nil {
		t.Fatalf("no destination must not error: %v", err)
	}
	if err := svc.SendTest(ctx, -1, ""); err == nil {
		t.Fatalf("expected send error")
	}
	if svc.SendSummary(ctx, "x") {
		t.Fatalf("failed summary reported as sent")
	}
}

func TestNoBot(t *testing.T) {
	svc := NewService(nil, settings.Destinations{DefaultChatID: -1}, true, nil, nil)
	if svc.Enabled() {
		t.Fatalf("service without bot must be disabled")
	}
	if err := svc.Publish(context.Background(), sig(models.StrategyRSI, models.DirectionLong, 1)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := svc.SendTest(context.Background(), 0, ""); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("SendTest: %v", err)
	}
	if st := svc.Status(); st.HasBot || st.DefaultChatID != -1 {
		t.Fatalf("status: %+v", st)
	}
}
