package leveldb

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
			Name: "leveldb_outputcache_get",
			Help: "Number of output cache get calls done to leveldb",
		},
	)
	prometheusOutputCachePut = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leveldb_outputcache_put",
			Help: "Number of output cache put calls done to leveldb",
		},
	)
	prometheusOutputCacheCommit = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leveldb_outputcache_commit",
			Help: "Number of output cache commits done to leveldb",
		},
	)
	prometheusOutputCacheMiss = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leveldb_outputcache_miss",
			Help: "Number of output cache get calls that found nothing",
		},
	)
	prometheusOutputCacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leveldb_outputcache_errors",
			Help: "Number of output cache errors",
		},
		[]string{
			"function", // function raising the error
			"error",    // error code returned
		},
	)
}
