package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	updateCheckMetric     = "ota_update_checks_total"
	cacheLookupMetric     = "ota_response_cache_lookups_total"
	ledgerDroppedMetric   = "ota_ledger_dropped_total"
	requestDurationMetric = "ota_request_duration_seconds"

	resultLabel = "result"
	reasonLabel = "reason"
	pathLabel   = "path"
	methodLabel = "method"
)

var (
	updateChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: updateCheckMetric,
			Help: "Update checks by outcome",
		}, []string{resultLabel})
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: cacheLookupMetric,
			Help: "Response cache lookups by outcome",
		}, []string{resultLabel})
	ledgerDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: ledgerDroppedMetric,
			Help: "Metric writes that were dropped",
		}, []string{reasonLabel})
	resTimeBucket = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    requestDurationMetric,
			Help:    "Request duration seconds",
			Buckets: []float64{0.005, 0.01, 0.03, 0.1, 0.3, 1, 3},
		}, []string{pathLabel, methodLabel})
)

// UpdateCheck 记录更新检查结果: update/no_update/fail_closed/error
func UpdateCheck(result string) {
	updateChecks.WithLabelValues(result).Inc()
}

// CacheLookup 记录缓存查询结果: hit/miss/error
func CacheLookup(result string) {
	cacheLookups.WithLabelValues(result).Inc()
}

// LedgerDropped 记录被丢弃的指标写入
func LedgerDropped(reason string) {
	ledgerDropped.WithLabelValues(reason).Inc()
}

// AddRequestDuration 记录请求耗时
func AddRequestDuration(path, method string, duration time.Duration) {
	resTimeBucket.WithLabelValues(path, method).Observe(duration.Seconds())
}
