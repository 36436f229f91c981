package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder - метрики движка сигналов. Методы nil-получателя ничего не делают.
type Recorder struct {
	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	signals       *prometheus.CounterVec
	fetchFailures *prometheus.CounterVec
	deliveryFails *prometheus.CounterVec
	dedupSize     prometheus.Gauge
	wsClients     prometheus.Gauge
}

// New регистрирует метрики в reg (NewRegistry в проде, отдельный registry в тестах).
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		cycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_bot_cycles_total",
				Help: "Engine cycles by outcome",
			},
			[]string{"outcome"},
		),
		cycleDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "signal_bot_cycle_duration_seconds",
				Help:    "Duration of one engine cycle",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
			},
		),
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_bot_signals_total",
				Help: "Signals by strategy and stage (generated, accepted, suppressed)",
			},
			[]string{"strategy", "stage"},
		),
		fetchFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_bot_fetch_failures_total",
				Help: "Empty or failed candle fetches",
			},
			[]string{"timeframe"},
		),
		deliveryFails: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_bot_delivery_failures_total",
				Help: "Signal deliveries that failed per sink",
			},
			[]string{"sink"},
		),
		dedupSize: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "signal_bot_dedup_entries",
				Help: "Entries held by the de-duplication cache",
			},
		),
		wsClients: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "signal_bot_ws_clients",
				Help: "Connected websocket clients",
			},
		),
	}
}

func (r *Recorder) RecordCycle(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.cycles.WithLabelValues(outcome).Inc()
	r.cycleDuration.Observe(d.Seconds())
}

func (r *Recorder) RecordSignal(strategy, stage string) {
	if r == nil {
		return
	}
	r.signals.WithLabelValues(strategy, stage).Inc()
}

func (r *Recorder) RecordFetchFailure(timeframe string) {
	if r == nil {
		return
	}
	r.fetchFailures.WithLabelValues(timeframe).Inc()
}

func (r *Recorder) RecordDeliveryFailure(sink string) {
	if r == nil {
		return
	}
	r.deliveryFails.WithLabelValues(sink).Inc()
}

func (r *Recorder) SetDedupSize(n int) {
	if r == nil {
		return
	}
	r.dedupSize.Set(float64(n))
}

func (r *Recorder) SetWSClients(n int) {
	if r == nil {
		return
	}
	r.wsClients.Set(float64(n))
}

// NewRegistry - registry процесса: метрики бота плюс go/process коллекторы.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
