package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/settings"
)

// ErrNotConfigured - нет токена или получателя.
var ErrNotConfigured = errors.New("telegram: not configured")

// Sender - часть tgbot.BotAPI, которой хватает сервису.
type Sender interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

// Store - куда сохраняются получатели, изменённые через API.
type Store interface {
	SetTelegram(d settings.Destinations) error
}

// Service рассылает сигналы и сводки в телеграм-группы.
// Сигнал уходит в группу стратегии, иначе в чат по умолчанию, иначе никуда.
type Service struct {
	bot        Sender
	store      Store
	disclaimer bool
	log        *zap.SugaredLogger

	enabled atomic.Bool

	mu   sync.RWMutex
	dest settings.Destinations
}

func NewService(bot Sender, dest settings.Destinations, disclaimer bool, store Store, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if dest.StrategyChats == nil {
		dest.StrategyChats = map[string]int64{}
	}
	s := &Service{
		bot:        bot,
		store:      store,
		disclaimer: disclaimer,
		log:        log,
		dest:       dest,
	}
	s.enabled.Store(bot != nil)
	return s
}

func (s *Service) Name() string { return "telegram" }

// Enabled - есть бот и рассылка не выключена через API.
func (s *Service) Enabled() bool { return s.bot != nil && s.enabled.Load() }

func (s *Service) SetEnabled(v bool) { s.enabled.Store(v) }

// chatFor - группа стратегии или чат по умолчанию; 0 - некуда.
func (s *Service) chatFor(kind models.StrategyKind) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id := s.dest.StrategyChats[string(kind)]; id != 0 {
		return id
	}
	return s.dest.DefaultChatID
}

// Publish - синк для notify.Fanout. Без получателя сигнал молча пропускается.
func (s *Service) Publish(ctx context.Context, sig models.Signal) error {
	if !s.Enabled() {
		return nil
	}
	chat := s.chatFor(sig.Strategy)
	if chat == 0 {
		s.log.Debugf("[TG] no chat for %s, skip", sig.Strategy)
		return nil
	}
	return s.send(ctx, chat, FormatSignal(sig, s.disclaimer))
}

// SendSummary отправляет сводку рынка в группу сводок.
func (s *Service) SendSummary(ctx context.Context, text string) bool {
	if !s.Enabled() {
		return false
	}
	s.mu.RLock()
	chat := s.dest.SummaryChatID
	s.mu.RUnlock()
	if chat == 0 {
		return false
	}
	if err := s.send(ctx, chat, text); err != nil {
		s.log.Warnf("[TG] summary: %v", err)
		return false
	}
	return true
}

// SendTest - пробное сообщение в chatID (0 = чат по умолчанию).
func (s *Service) SendTest(ctx context.Context, chatID int64, text string) error {
	if s.bot == nil {
		return ErrNotConfigured
	}
	if chatID == 0 {
		s.mu.RLock()
		chatID = s.dest.DefaultChatID
		s.mu.RUnlock()
	}
	if chatID == 0 {
		return ErrNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		text = "✅ signal bot is connected"
	}
	return s.send(ctx, chatID, text)
}

func (s *Service) send(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbot.NewMessage(chatID, text)
	msg.ParseMode = tgbot.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("Service.send chat %d: %w", chatID, err)
	}
	return nil
}

// Destinations - текущие получатели (копия).
func (s *Service) Destinations() settings.Destinations {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyDest(s.dest)
}

func (s *Service) SetDefaultChat(id int64) error {
	return s.update(func(d *settings.Destinations) { d.DefaultChatID = id })
}

func (s *Service) SetSummaryChat(id int64) error {
	return s.update(func(d *settings.Destinations) { d.SummaryChatID = id })
}

// SetStrategyChat назначает группу стратегии; 0 снимает назначение.
func (s *Service) SetStrategyChat(kind models.StrategyKind, id int64) error {
	return s.update(func(d *settings.Destinations) {
		if id == 0 {
			delete(d.StrategyChats, string(kind))
			return
		}
		d.StrategyChats[string(kind)] = id
	})
}

func (s *Service) update(fn func(d *settings.Destinations)) error {
	s.mu.Lock()
	next := copyDest(s.dest)
	fn(&next)
	s.dest = next
	s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	if err := s.store.SetTelegram(next); err != nil {
		return fmt.Errorf("Service.update: %w", err)
	}
	return nil
}

func copyDest(d settings.Destinations) settings.Destinations {
	chats := make(map[string]int64, len(d.StrategyChats))
	for k, v := range d.StrategyChats {
		chats[k] = v
	}
	d.StrategyChats = chats
	return d
}

// Status - сводка для API.
type Status struct {
	Enabled       bool             `json:"enabled"`
	HasBot        bool             `json:"has_bot"`
	DefaultChatID int64            `json:"default_chat_id"`
	SummaryChatID int64            `json:"summary_chat_id"`
	StrategyChats map[string]int64 `json:"strategy_chats"`
	Configured    []string         `json:"configured_strategies"`
	Disclaimer    bool             `json:"disclaimer"`
}

func (s *Service) Status() Status {
	d := s.Destinations()
	kinds := make([]string, 0, len(d.StrategyChats))
	for k := range d.StrategyChats {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return Status{
		Enabled:       s.Enabled(),
		HasBot:        s.bot != nil,
		DefaultChatID: d.DefaultChatID,
		SummaryChatID: d.SummaryChatID,
		StrategyChats: d.StrategyChats,
		Configured:    kinds,
		Disclaimer:    s.disclaimer,
	}
}
