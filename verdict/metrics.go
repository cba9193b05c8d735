package verdict

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type result string

const (
	resultHit     result = "hit"
	resultMiss    result = "miss"
	resultStale   result = "stale"
	resultRefresh result = "refresh"
)

var lookups = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
	Name: "linkclient_verdict_cache_total",
	Help: "The total number of verdict cache lookups, by cache and result",
}, []string{"cache", "result"})

func record(cache string, r result) {
	lookups.WithLabelValues(cache, string(r)).Inc()
}
