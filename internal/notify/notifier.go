package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"signal_bot/internal/models"
)

// Sink - получатель принятых сигналов (websocket, telegram, журнал).
type Sink interface {
	Name() string
	Publish(ctx context.Context, sig models.Signal) error
}

// FailureRecorder считает неудачные доставки.
type FailureRecorder interface {
	RecordDeliveryFailure(sink string)
}

// Fanout рассылает сигнал всем синкам параллельно. Ошибка одного синка
// логируется и не мешает остальным; повторной доставки нет.
type Fanout struct {
	sinks   []Sink
	metrics FailureRecorder
	log     *zap.SugaredLogger
}

func NewFanout(log *zap.SugaredLogger, metrics FailureRecorder, sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks, metrics: metrics, log: log}
}

func (f *Fanout) Add(s Sink) { f.sinks = append(f.sinks, s) }

func (f *Fanout) Sinks() []string {
	out := make([]string, 0, len(f.sinks))
	for _, s := range f.sinks {
		out = append(out, s.Name())
	}
	return out
}

// Publish возвращает число синков, принявших сигнал без ошибки.
func (f *Fanout) Publish(ctx context.Context, sig models.Signal) int {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for _, s := range f.sinks {
		wg.Add(1)
		go func(s Sink) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					f.log.Errorw("sink panic", "sink", s.Name(), "panic", r)
					f.fail(s.Name())
				}
			}()
			if err := s.Publish(ctx, sig); err != nil {
				f.log.Warnw("delivery failed",
					"sink", s.Name(),
					"strategy", sig.Strategy,
					"symbol", sig.Symbol,
					"timeframe", sig.Timeframe,
					"error", err,
				)
				f.fail(s.Name())
				return
			}
			mu.Lock()
			ok++
			mu.Unlock()
		}(s)
	}
	wg.Wait()
	return ok
}

func (f *Fanout) fail(name string) {
	if f.metrics != nil {
		f.metrics.RecordDeliveryFailure(name)
	}
}

// Stdout - синк для локального запуска без телеграма.
type Stdout struct {
	log *zap.SugaredLogger
}

func NewStdout(log *zap.SugaredLogger) *Stdout { return &Stdout{log: log} }
func (s *Stdout) Name() string                 { return "stdout" }
func (s *Stdout) Publish(_ context.Context, sig models.Signal) error {
	s.log.Infof("%s %s %s %s @ %.8g", sig.Strategy, sig.Symbol, sig.Timeframe, sig.Direction, sig.Price)
	return nil
}
