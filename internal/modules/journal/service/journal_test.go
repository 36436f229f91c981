package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"signal_bot/internal/models"
)

type fakeRow struct{ id int64 }

func (r fakeRow) Scan(dest ...any) error {
	*(dest[0].(*int64)) = r.id
	return nil
}

// fakeTx реализует только то, что зовёт журнал.
type fakeTx struct {
	pgx.Tx
	sql  []string
	args [][]any
}

func (t *fakeTx) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	t.sql = append(t.sql, sql)
	t.args = append(t.args, args)
	return fakeRow{id: int64(len(t.sql))}
}

func (t *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.sql = append(t.sql, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

type fakeRunner struct {
	tx  *fakeTx
	err error
	txs int
}

func (r *fakeRunner) RunMaster(ctx context.Context, fn func(ctxTx context.Context, tx pgx.Tx) error) error {
	r.txs++
	if r.err != nil {
		return r.err
	}
	return fn(ctx, r.tx)
}

func TestPublishWritesPayload(t *testing.T) {
	r := &fakeRunner{tx: &fakeTx{}}
	j := New(r, nil)

	sig := models.Signal{
		Symbol:    "ETHUSDT",
		Timeframe: "4h",
		Strategy:  models.StrategyCombo,
		Direction: models.DirectionShort,
		Price:     3120.25,
		Message:   "combo",
		RSI:       models.Value(71.2),
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Raw:       map[string]any{"case": "BOTH_NOW"},
	}
	if err := j.Publish(context.Background(), sig); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(r.tx.args) != 1 || !strings.Contains(r.tx.sql[0], "INSERT INTO signals") {
		t.Fatalf("queries: %v", r.tx.sql)
	}
	args := r.tx.args[0]
	if args[0] != "ETHUSDT" || args[2] != "COMBO" || args[3] != "SHORT" || args[4] != 3120.25 {
		t.Fatalf("args: %v", args)
	}

	var back models.Signal
	if err := sonic.Unmarshal(args[7].([]byte), &back); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if back.Symbol != "ETHUSDT" || back.RSI == nil || *back.RSI != 71.2 || back.Raw["case"] != "BOTH_NOW" {
		t.Fatalf("payload decoded: %+v", back)
	}
}

func TestPublishOneTransactionPerSignal(t *testing.T) {
	r := &fakeRunner{tx: &fakeTx{}}
	j := New(r, nil)

	for _, sym := range []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"} {
		if err := j.Publish(context.Background(), models.Signal{Symbol: sym, Strategy: models.StrategyRSI}); err != nil {
			t.Fatalf("Publish %s: %v", sym, err)
		}
	}
	if r.txs != 3 || len(r.tx.sql) != 3 {
		t.Fatalf("transactions %d, statements %d; want 3 each", r.txs, len(r.tx.sql))
	}
	if r.tx.args[2][0] != "SOLUSDT" {
		t.Fatalf("last insert: %v", r.tx.args[2])
	}
}

func TestMigrate(t *testing.T) {
	r := &fakeRunner{tx: &fakeTx{}}
	if err := New(r, nil).Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if !strings.Contains(r.tx.sql[0], "CREATE TABLE IF NOT EXISTS signals") {
		t.Fatalf("schema: %s", r.tx.sql[0])
	}
}

func TestDisabledAndErrors(t *testing.T) {
	off := New(nil, nil)
	if off.Enabled() {
		t.Fatalf("journal without db must be disabled")
	}
	if err := off.Publish(context.Background(), models.Signal{}); err != nil {
		t.Fatalf("disabled Publish: %v", err)
	}
	if _, err := off.Recent(context.Background(), "", "", 10); !errors.Is(err, ErrDisabled) {
		t.Fatalf("disabled Recent: %v", err)
	}

	boom := errors.New("conn refused")
	j := New(&fakeRunner{err: boom}, nil)
	if err := j.Publish(context.Background(), models.Signal{Symbol: "BTCUSDT"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
