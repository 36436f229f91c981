package settings

import (
	"os"
	"path/filepath"
	"testing"

	"signal_bot/internal/models"
)

func TestOpenMissingFile(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "nested"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(s.StrategyTimeframes()) != 0 {
		t.Fatalf("expected no overrides")
	}
	if _, ok := s.Telegram(); ok {
		t.Fatalf("expected no telegram override")
	}
}

func TestPersistAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err = s.SetStrategyTimeframes(models.StrategyRSIEMA50, []string{"4H", "15m", "7m", "15m"}); err != nil {
		t.Fatalf("SetStrategyTimeframes: %v", err)
	}
	err = s.SetTelegram(Destinations{
		DefaultChatID: -1001,
		SummaryChatID: -1002,
		StrategyChats: map[string]int64{"gcm": -1003},
	})
	if err != nil {
		t.Fatalf("SetTelegram: %v", err)
	}
	if _, err = os.Stat(filepath.Join(dir, "settings.json")); err != nil {
		t.Fatalf("settings file: %v", err)
	}

	again, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	tfs := again.StrategyTimeframes()[models.StrategyRSIEMA50]
	if len(tfs) != 2 || tfs[0] != "15m" || tfs[1] != "4h" {
		t.Fatalf("timeframes: %v", tfs)
	}
	d, ok := again.Telegram()
	if !ok || d.DefaultChatID != -1001 || d.SummaryChatID != -1002 || d.StrategyChats["GCM"] != -1003 {
		t.Fatalf("telegram: %+v %v", d, ok)
	}
}

func TestUnknownKindIgnored(t *testing.T) {
	dir := t.TempDir()
	body := `{"strategy_timeframes":{"rsi":["1h"],"nope":["1h"]}}`
	if err := os.WriteFile(filepath.Join(dir, "settings.json"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got := s.StrategyTimeframes()
	if len(got) != 1 || got[models.StrategyRSI][0] != "1h" {
		t.Fatalf("timeframes: %v", got)
	}
}
