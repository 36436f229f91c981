package settings

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
)

const fileName = "settings.json"

// Destinations - куда телеграм шлёт сигналы и сводки.
type Destinations struct {
	DefaultChatID int64            `mapstructure:"default_chat_id" json:"default_chat_id"`
	SummaryChatID int64            `mapstructure:"summary_chat_id" json:"summary_chat_id"`
	StrategyChats map[string]int64 `mapstructure:"strategy_chats" json:"strategy_chats"`
}

type state struct {
	StrategyTimeframes map[string][]string `mapstructure:"strategy_timeframes"`
	Telegram           *Destinations       `mapstructure:"telegram"`
}

// Store - изменяемые через API настройки, переживающие рестарт.
// Хранится в <dir>/settings.json. Пустой Store = всё из конфига.
type Store struct {
	mu   sync.RWMutex
	v    *viper.Viper
	path string

	timeframes map[models.StrategyKind][]string
	telegram   *Destinations
}

// Open читает сохранённые настройки; отсутствие файла не ошибка.
func Open(dir string) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	s := &Store{
		v:          viper.New(),
		path:       filepath.Join(dir, fileName),
		timeframes: map[models.StrategyKind][]string{},
	}
	s.v.SetConfigFile(s.path)
	s.v.SetConfigType("json")

	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err := s.v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "read %s", s.path)
	}

	var st state
	if err := s.v.Unmarshal(&st); err != nil {
		return nil, errors.Wrapf(err, "decode %s", s.path)
	}
	for k, tfs := range st.StrategyTimeframes {
		// viper приводит ключи к нижнему регистру
		kind, ok := models.ParseStrategyKind(strings.ToUpper(k))
		if !ok {
			continue
		}
		s.timeframes[kind] = cleanTimeframes(tfs)
	}
	if st.Telegram != nil {
		d := *st.Telegram
		d.StrategyChats = upperKeys(d.StrategyChats)
		s.telegram = &d
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

// StrategyTimeframes - сохранённые назначения таймфреймов (копия).
func (s *Store) StrategyTimeframes() map[models.StrategyKind][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[models.StrategyKind][]string, len(s.timeframes))
	for k, tfs := range s.timeframes {
		out[k] = append([]string(nil), tfs...)
	}
	return out
}

func (s *Store) SetStrategyTimeframes(kind models.StrategyKind, tfs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeframes[kind] = cleanTimeframes(tfs)
	return s.saveLocked()
}

// Telegram - сохранённые получатели; false, если через API их не меняли.
func (s *Store) Telegram() (Destinations, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.telegram == nil {
		return Destinations{}, false
	}
	d := *s.telegram
	d.StrategyChats = upperKeys(d.StrategyChats)
	return d, true
}

func (s *Store) SetTelegram(d Destinations) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.StrategyChats = upperKeys(d.StrategyChats)
	s.telegram = &d
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	tfs := make(map[string]any, len(s.timeframes))
	for k, v := range s.timeframes {
		tfs[string(k)] = v
	}
	s.v.Set("strategy_timeframes", tfs)

	if s.telegram != nil {
		chats := make(map[string]any, len(s.telegram.StrategyChats))
		for k, v := range s.telegram.StrategyChats {
			chats[k] = v
		}
		s.v.Set("telegram", map[string]any{
			"default_chat_id": s.telegram.DefaultChatID,
			"summary_chat_id": s.telegram.SummaryChatID,
			"strategy_chats":  chats,
		})
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "Store.save")
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return errors.Wrap(err, "Store.save")
	}
	return nil
}

func cleanTimeframes(tfs []string) []string {
	out := make([]string, 0, len(tfs))
	for _, tf := range tfs {
		if tf = helper.NormTF(tf); helper.ValidTF(tf) {
			out = append(out, tf)
		}
	}
	return helper.SortTimeframes(out)
}

func upperKeys(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[strings.ToUpper(k)] = v
	}
	return out
}
