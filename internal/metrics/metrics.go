package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	metricPrefix = "mes_staging_"

	resultSuccess = "success"
	resultError   = "error"

	scanAccepted  = "accepted"
	scanDuplicate = "duplicate"
	scanRejected  = "rejected"
)

var (
	registerOnce sync.Once

	fanOutTotal    *prometheus.CounterVec
	fanOutLatency  *prometheus.HistogramVec
	fanOutLeftover prometheus.Counter

	stageStatusTotal    *prometheus.CounterVec
	stageStatusFallback prometheus.Counter

	closureTotal   *prometheus.CounterVec
	closureLatency *prometheus.HistogramVec

	scanTotal *prometheus.CounterVec

	ledgerCommitTotal *prometheus.CounterVec
)

// Init registers service metrics and, when db is set, connection pool stats.
func Init(db *sql.DB, dbName string) {
	registerOnce.Do(func() {
		fanOutTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "fan_out_total",
				Help: "Total fan-out requests by result",
			},
			[]string{"result"},
		)
		fanOutLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "fan_out_latency_seconds",
				Help:    "Fan-out latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		fanOutLeftover = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "fan_out_leftover_lines_total",
				Help: "Pool lines left partly unallocated after fan-out",
			},
		)

		stageStatusTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "stage_status_total",
				Help: "Stage status classifications by status",
			},
			[]string{"status"},
		)
		stageStatusFallback = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "stage_status_fallback_total",
				Help: "Classifications answered by the existence check fallback",
			},
		)

		closureTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "closure_total",
				Help: "Total closure requests by result",
			},
			[]string{"result"},
		)
		closureLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "closure_latency_seconds",
				Help:    "Closure latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		scanTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "scan_total",
				Help: "Scans by outcome",
			},
			[]string{"outcome"},
		)

		ledgerCommitTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_commit_total",
				Help: "Ledger commits by kind and result",
			},
			[]string{"kind", "result"},
		)

		prometheus.MustRegister(
			fanOutTotal,
			fanOutLatency,
			fanOutLeftover,
			stageStatusTotal,
			stageStatusFallback,
			closureTotal,
			closureLatency,
			scanTotal,
			ledgerCommitTotal,
		)

		if db != nil {
			prometheus.MustRegister(collectors.NewDBStatsCollector(db, dbName))
		}
	})
}

// ObserveFanOut records fan-out duration and result.
func ObserveFanOut(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if fanOutTotal != nil {
		fanOutTotal.WithLabelValues(result).Inc()
	}
	if fanOutLatency != nil {
		fanOutLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

func AddFanOutLeftover(lines int) {
	if lines <= 0 {
		return
	}
	if fanOutLeftover != nil {
		fanOutLeftover.Add(float64(lines))
	}
}

func IncStageStatus(status string) {
	if status == "" {
		status = "unknown"
	}
	if stageStatusTotal != nil {
		stageStatusTotal.WithLabelValues(status).Inc()
	}
}

func IncStageStatusFallback() {
	if stageStatusFallback != nil {
		stageStatusFallback.Inc()
	}
}

// ObserveClosure records closure duration and result.
func ObserveClosure(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if closureTotal != nil {
		closureTotal.WithLabelValues(result).Inc()
	}
	if closureLatency != nil {
		closureLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

func IncScan(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	if scanTotal != nil {
		scanTotal.WithLabelValues(outcome).Inc()
	}
}

func IncLedgerCommit(kind, result string) {
	if kind == "" {
		kind = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if ledgerCommitTotal != nil {
		ledgerCommitTotal.WithLabelValues(kind, result).Inc()
	}
}

// Result reports the label for err.
func Result(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	ScanAccepted  = scanAccepted
	ScanDuplicate = scanDuplicate
	ScanRejected  = scanRejected
)
