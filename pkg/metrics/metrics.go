// Package metrics exposes Prometheus collectors shared by the collector and bridge services.
package metrics

import (
	"database/sql"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	metricPrefix = "esm_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	telegramsTotal      *prometheus.CounterVec
	readingsStoredTotal *prometheus.CounterVec
	liveClients         prometheus.Gauge

	pricingTotal   *prometheus.CounterVec
	pricingLatency *prometheus.HistogramVec
	publishedTotal *prometheus.CounterVec
	componentCost  *prometheus.GaugeVec
	cyclesTotal    *prometheus.CounterVec
)

// Init registers the collectors once. db, if set, also exposes meter table sizes.
func Init(db *sql.DB, logger *zap.Logger) {
	registerOnce.Do(func() {
		telegramsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "p1_telegrams_total",
				Help: "P1 telegrams read by result",
			},
			[]string{"result"},
		)
		readingsStoredTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "meter_readings_stored_total",
				Help: "Meter totals written to the database by kind",
			},
			[]string{"kind"},
		)
		liveClients = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "live_clients",
				Help: "Connected live reading WebSocket clients",
			},
		)

		pricingTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "pricing_runs_total",
				Help: "Cost computations by device and result",
			},
			[]string{"device", "result"},
		)
		pricingLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "pricing_latency_seconds",
				Help:    "Cost computation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		publishedTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "published_statistics_total",
				Help: "Statistic points imported into Home Assistant by device",
			},
			[]string{"device"},
		)
		componentCost = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "cumulative_cost",
				Help: "Last published cumulative cost by device and component",
			},
			[]string{"device", "component"},
		)
		cyclesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "bridge_cycles_total",
				Help: "Bridge poll cycles by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			telegramsTotal,
			readingsStoredTotal,
			liveClients,
			pricingTotal,
			pricingLatency,
			publishedTotal,
			componentCost,
			cyclesTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func IncTelegram(result string) {
	if result == "" {
		result = "unknown"
	}
	if telegramsTotal != nil {
		telegramsTotal.WithLabelValues(result).Inc()
	}
}

func IncReadingStored(kind string) {
	if readingsStoredTotal != nil {
		readingsStoredTotal.WithLabelValues(kind).Inc()
	}
}

func SetLiveClients(n int) {
	if liveClients != nil {
		liveClients.Set(float64(n))
	}
}

// ObservePricing records one cost computation.
func ObservePricing(device string, err error, duration time.Duration) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if pricingTotal != nil {
		pricingTotal.WithLabelValues(device, result).Inc()
	}
	if pricingLatency != nil {
		pricingLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

func AddPublished(device string, points int) {
	if points <= 0 {
		return
	}
	if publishedTotal != nil {
		publishedTotal.WithLabelValues(device).Add(float64(points))
	}
}

func SetCumulativeCost(device, component string, value float64) {
	if componentCost != nil {
		componentCost.WithLabelValues(device, component).Set(value)
	}
}

func IncCycle(err error) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if cyclesTotal != nil {
		cyclesTotal.WithLabelValues(result).Inc()
	}
}

// Exported constants for callers.
const (
	TelegramOK         = "ok"
	TelegramInvalidCRC = "invalid_crc"
	TelegramError      = "error"
)
