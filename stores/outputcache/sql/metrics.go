package sql

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusOutputCacheGet    prometheus.Counter
	prometheusOutputCachePut    prometheus.Counter
	prometheusOutputCacheCommit prometheus.Counter
	prometheusOutputCacheMiss   prometheus.Counter
	prometheusOutputCacheErrors *prometheus.CounterVec

	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusOutputCacheGet = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sql_outputcache_get",
			Help: "Number of output cache get calls done to sql",
		},
	)
	prometheusOutputCachePut = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sql_outputcache_put",
			Help: "Number of output cache put calls done to sql",
		},
	)
	prometheusOutputCacheCommit = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sql_outputcache_commit",
			Help: "Number of output cache commits done to sql",
		},
	)
	prometheusOutputCacheMiss = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sql_outputcache_miss",
			Help: "Number of output cache get calls that found nothing",
		},
	)
	prometheusOutputCacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sql_outputcache_errors",
			Help: "Number of output cache errors",
		},
		[]string{
			"function", // function raising the error
			"error",    // error code returned
		},
	)
}
