package metrics

import (
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(buildInfo, dbPoolConns, cacheRequestsTotal)
}

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "A constant metric with labels for version and commit hash.",
		},
		[]string{"version", "commit"},
	)

	dbPoolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_pool_conns",
			Help: "Connections in the Postgres pool by state.",
		},
		[]string{"state"}, // 'total', 'idle', 'acquired'
	)

	cacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Cache lookups by cache name and result.",
		},
		[]string{"cache", "result"}, // result: 'hit', 'miss', 'error'
	)
)

func SetBuildInfo(version, commit string) {
	buildInfo.WithLabelValues(version, commit).Set(1)
}

// ObservePool copies a pgxpool snapshot into the pool gauges.
func ObservePool(st *pgxpool.Stat) {
	if st == nil {
		return
	}
	dbPoolConns.WithLabelValues("total").Set(float64(st.TotalConns()))
	dbPoolConns.WithLabelValues("idle").Set(float64(st.IdleConns()))
	dbPoolConns.WithLabelValues("acquired").Set(float64(st.AcquiredConns()))
}

func IncCacheRequest(cacheName, result string) {
	cacheRequestsTotal.WithLabelValues(norm(cacheName), norm(result)).Inc()
}
