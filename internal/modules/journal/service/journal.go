package service

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"signal_bot/internal/models"
)

// ErrDisabled - db_dsn не задан, журнал не ведётся.
var ErrDisabled = errors.New("journal disabled")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS signals (
	id         BIGSERIAL PRIMARY KEY,
	symbol     TEXT             NOT NULL,
	timeframe  TEXT             NOT NULL,
	strategy   TEXT             NOT NULL,
	direction  TEXT             NOT NULL,
	price      DOUBLE PRECISION NOT NULL,
	message    TEXT             NOT NULL DEFAULT '',
	emitted_at TIMESTAMPTZ      NOT NULL,
	payload    JSONB            NOT NULL,
	created_at TIMESTAMPTZ      NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS signals_emitted_at_idx ON signals (emitted_at DESC);
CREATE INDEX IF NOT EXISTS signals_symbol_tf_idx ON signals (symbol, timeframe, strategy);
`

const insertSQL = `
INSERT INTO signals (symbol, timeframe, strategy, direction, price, message, emitted_at, payload)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`

const recentSQL = `
SELECT payload FROM signals
WHERE ($1 = '' OR symbol = $1) AND ($2 = '' OR strategy = $2)
ORDER BY emitted_at DESC, id DESC
LIMIT $3`

// Runner - транзакции на мастере (db.PgTxManager).
type Runner interface {
	RunMaster(ctx context.Context, fn func(ctxTx context.Context, tx pgx.Tx) error) error
}

// Journal - аудит принятых сигналов в postgres. Ядро его не читает,
// выборка нужна только API.
type Journal struct {
	db  Runner
	log *zap.SugaredLogger
}

// New - db == nil даёт выключенный журнал.
func New(db Runner, log *zap.SugaredLogger) *Journal {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Journal{db: db, log: log}
}

func (j *Journal) Name() string { return "journal" }

func (j *Journal) Enabled() bool { return j.db != nil }

// Migrate создаёт таблицу, если её нет.
func (j *Journal) Migrate(ctx context.Context) error {
	if !j.Enabled() {
		return ErrDisabled
	}
	return j.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, schemaSQL)
		return err
	})
}

// Publish пишет сигнал. Выключенный журнал принимает всё без записи.
func (j *Journal) Publish(ctx context.Context, sig models.Signal) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Journal.Publish: %w", err)
		}
	}()
	if !j.Enabled() {
		return nil
	}

	payload, err := sonic.Marshal(sig)
	if err != nil {
		return err
	}
	var id int64
	err = j.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		return tx.QueryRow(ctxTx, insertSQL,
			sig.Symbol,
			sig.Timeframe,
			string(sig.Strategy),
			string(sig.Direction),
			sig.Price,
			sig.Message,
			sig.Timestamp,
			payload,
		).Scan(&id)
	})
	if err != nil {
		return err
	}
	j.log.Debugf("[JOURNAL] #%d %s %s %s", id, sig.Strategy, sig.Symbol, sig.Timeframe)
	return nil
}

// Recent - последние limit сигналов, опционально по символу и стратегии.
func (j *Journal) Recent(ctx context.Context, symbol string, strategy models.StrategyKind, limit int) (out []models.Signal, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Journal.Recent: %w", err)
		}
	}()
	if !j.Enabled() {
		return nil, ErrDisabled
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	err = j.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctxTx, recentSQL, symbol, string(strategy), limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var payload []byte
			if err = rows.Scan(&payload); err != nil {
				return err
			}
			var sig models.Signal
			if err = sonic.Unmarshal(payload, &sig); err != nil {
				return err
			}
			out = append(out, sig)
		}
		return rows.Err()
	})
	return out, err
}
