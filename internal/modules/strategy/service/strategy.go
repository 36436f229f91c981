package service

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"signal_bot/internal/models"
)

var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy - одна торговая идея. Реализации не хранят состояние между вызовами,
// поэтому их можно вызывать параллельно для разных символов и таймфреймов.
type Strategy interface {
	Kind() models.StrategyKind
	// MinCandles - минимальная длина серии, короче которой Analyze молчит.
	MinCandles() int
	// Params возвращает копию параметров.
	Params() any
	// ok==true когда есть сигнал на последней свече серии
	Analyze(series []models.Candle, symbol, timeframe string) (sig models.Signal, ok bool)
}

// Set - активные стратегии по виду.
type Set map[models.StrategyKind]Strategy

var validate = validator.New()

// DefaultParams - параметры всех стратегий из default-тегов.
func DefaultParams() models.StrategyParams {
	var p models.StrategyParams
	if err := defaults.Set(&p); err != nil {
		panic(fmt.Sprintf("strategy defaults: %v", err))
	}
	return p
}

// New строит стратегию kind из параметров конфига.
func New(kind models.StrategyKind, params models.StrategyParams) (Strategy, error) {
	var (
		s   Strategy
		cfg any
	)
	switch kind {
	case models.StrategyRSI:
		cfg, s = params.RSI, NewRSI(params.RSI)
	case models.StrategyMACD:
		cfg, s = params.MACD, NewMACD(params.MACD)
	case models.StrategyGCM:
		cfg, s = params.GCM, NewGCM(params.GCM)
	case models.StrategyCombo:
		cfg, s = params.Combo, NewCombo(params.Combo)
	case models.StrategyScalping:
		cfg, s = params.Scalping, NewScalping(params.Scalping)
	case models.StrategySwingTrade:
		cfg, s = params.SwingTrade, NewSwingTrade(params.SwingTrade)
	case models.StrategyDayTrade:
		cfg, s = params.DayTrade, NewDayTrade(params.DayTrade)
	case models.StrategyRSIEMA50:
		cfg, s = params.RSIEMA50, NewRSIEMA50(params.RSIEMA50)
	case models.StrategyJFN:
		cfg, s = params.JFN, NewJFN(params.JFN)
	default:
		return nil, errors.Wrapf(ErrUnknownStrategy, "%q", kind)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, errors.Wrapf(err, "invalid %s params", kind)
	}
	return s, nil
}

// BuildAll строит набор стратегий; неизвестные имена и ошибки параметров
// возвращаются ошибкой.
func BuildAll(kinds []models.StrategyKind, params models.StrategyParams) (Set, error) {
	out := make(Set, len(kinds))
	for _, k := range kinds {
		s, err := New(k, params)
		if err != nil {
			return nil, err
		}
		out[k] = s
	}
	return out, nil
}

// Reconfigure накладывает частичный JSON patch на копию параметров s и
// возвращает новую стратегию. s не меняется.
func Reconfigure(s Strategy, patch []byte) (Strategy, error) {
	switch cur := s.(type) {
	case *RSI:
		p := cur.p
		return rebuild(&p, patch, func() Strategy { return NewRSI(p) })
	case *MACD:
		p := cur.p
		return rebuild(&p, patch, func() Strategy { return NewMACD(p) })
	case *GCM:
		p := cur.p
		return rebuild(&p, patch, func() Strategy { return NewGCM(p) })
	case *Combo:
		p := cur.p
		return rebuild(&p, patch, func() Strategy { return NewCombo(p) })
	case *Scalping:
		p := cur.p
		return rebuild(&p, patch, func() Strategy { return NewScalping(p) })
	case *SwingTrade:
		p := cur.p
		return rebuild(&p, patch, func() Strategy { return NewSwingTrade(p) })
	case *DayTrade:
		p := cur.p
		return rebuild(&p, patch, func() Strategy { return NewDayTrade(p) })
	case *RSIEMA50:
		p := cur.p
		return rebuild(&p, patch, func() Strategy { return NewRSIEMA50(p) })
	case *JFN:
		p := cur.p
		return rebuild(&p, patch, func() Strategy { return NewJFN(p) })
	default:
		return nil, errors.Wrapf(ErrUnknownStrategy, "%T", s)
	}
}

func rebuild(params any, patch []byte, build func() Strategy) (Strategy, error) {
	if len(patch) > 0 {
		if err := sonic.Unmarshal(patch, params); err != nil {
			return nil, errors.Wrap(err, "decode params patch")
		}
	}
	if err := validate.Struct(params); err != nil {
		return nil, errors.Wrap(err, "invalid params")
	}
	return build(), nil
}

func newSignal(kind models.StrategyKind, symbol, timeframe string, dir models.Direction, price float64, msg string) models.Signal {
	return models.Signal{
		Symbol:    symbol,
		Timeframe: timeframe,
		Strategy:  kind,
		Direction: dir,
		Price:     price,
		Message:   msg,
		Timestamp: time.Now().UTC(),
	}
}

func arrow(dir models.Direction) string {
	if dir == models.DirectionLong {
		return "🟢"
	}
	return "🔴"
}
