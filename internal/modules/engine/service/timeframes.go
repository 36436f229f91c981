package service

import (
	"github.com/pkg/errors"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
	strategy "signal_bot/internal/modules/strategy/service"
)

// orderedKinds - активные стратегии в порядке models.StrategyKinds.
func orderedKinds(set strategy.Set) []models.StrategyKind {
	out := make([]models.StrategyKind, 0, len(set))
	for _, k := range models.StrategyKinds {
		if _, ok := set[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// RequiredTimeframes - объединение explicit и таймфреймов всех активных
// стратегий, по возрастанию длительности.
func (e *Engine) RequiredTimeframes(explicit []string) []string {
	return requiredTimeframes(*e.strategies.Load(), *e.timeframes.Load(), explicit)
}

func requiredTimeframes(set strategy.Set, assigned timeframeMap, explicit []string) []string {
	all := make([]string, 0, len(explicit)+len(set)*3)
	for _, tf := range explicit {
		if helper.ValidTF(tf) {
			all = append(all, helper.NormTF(tf))
		}
	}
	for _, k := range orderedKinds(set) {
		all = append(all, assigned[k]...)
	}
	return helper.SortTimeframes(all)
}

// strategiesFor - активные стратегии, назначенные на tf.
func strategiesFor(set strategy.Set, assigned timeframeMap, tf string) []strategy.Strategy {
	var out []strategy.Strategy
	for _, k := range orderedKinds(set) {
		for _, t := range assigned[k] {
			if helper.NormTF(t) == tf {
				out = append(out, set[k])
				break
			}
		}
	}
	return out
}

// Timeframes возвращает копию назначений.
func (e *Engine) Timeframes() map[models.StrategyKind][]string {
	cur := *e.timeframes.Load()
	out := make(map[models.StrategyKind][]string, len(cur))
	for k, v := range cur {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// SetTimeframes заменяет таймфреймы стратегии kind. Текущий цикл
// дорабатывает со старым снимком.
func (e *Engine) SetTimeframes(kind models.StrategyKind, tfs []string) ([]string, error) {
	if _, ok := models.ParseStrategyKind(string(kind)); !ok {
		return nil, errors.Wrapf(strategy.ErrUnknownStrategy, "%q", kind)
	}
	norm := make([]string, 0, len(tfs))
	for _, tf := range tfs {
		if !helper.ValidTF(tf) {
			return nil, errors.Wrapf(helper.ErrInvalidTimeframe, "%q", tf)
		}
		norm = append(norm, helper.NormTF(tf))
	}
	norm = helper.SortTimeframes(norm)

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	next := e.Timeframes()
	next[kind] = norm
	e.timeframes.Store(&next)

	e.log.Infof("[ENGINE] %s timeframes -> %v", kind, norm)
	return norm, nil
}

// StrategyInfo - описание активной стратегии для API.
type StrategyInfo struct {
	Kind       models.StrategyKind `json:"kind"`
	Params     any                 `json:"params"`
	Timeframes []string            `json:"timeframes"`
	MinCandles int                 `json:"min_candles"`
}

func (e *Engine) Strategies() []StrategyInfo {
	set := *e.strategies.Load()
	assigned := *e.timeframes.Load()

	out := make([]StrategyInfo, 0, len(set))
	for _, k := range orderedKinds(set) {
		s := set[k]
		out = append(out, StrategyInfo{
			Kind:       k,
			Params:     s.Params(),
			Timeframes: append([]string(nil), assigned[k]...),
			MinCandles: s.MinCandles(),
		})
	}
	return out
}

// UpdateStrategy накладывает JSON patch на параметры активной стратегии
// и атомарно подменяет её в наборе.
func (e *Engine) UpdateStrategy(kind models.StrategyKind, patch []byte) (StrategyInfo, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	cur := *e.strategies.Load()
	old, ok := cur[kind]
	if !ok {
		return StrategyInfo{}, errors.Wrapf(strategy.ErrUnknownStrategy, "%q is not active", kind)
	}

	updated, err := strategy.Reconfigure(old, patch)
	if err != nil {
		return StrategyInfo{}, err
	}

	next := make(strategy.Set, len(cur))
	for k, s := range cur {
		next[k] = s
	}
	next[kind] = updated
	e.strategies.Store(&next)

	e.log.Infof("[ENGINE] %s params updated: %+v", kind, updated.Params())
	return StrategyInfo{
		Kind:       kind,
		Params:     updated.Params(),
		Timeframes: append([]string(nil), (*e.timeframes.Load())[kind]...),
		MinCandles: updated.MinCandles(),
	}, nil
}
