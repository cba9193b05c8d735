package executor

import (
	"time"

	"github.com/linkforge/apiclient/apierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{ //nolint:gochecknoglobals
		Name:    "linkclient_request_duration_seconds",
		Help:    "Duration of single API request attempts",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "outcome"})

	requestErrors = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "linkclient_request_errors_total",
		Help: "The total number of failed API request attempts, by error code",
	}, []string{"code"})
)

func observe(method string, start time.Time, err *apierror.Error) {
	outcome := "success"

	if err != nil {
		outcome = "error"

		requestErrors.WithLabelValues(string(err.Code)).Inc()
	}

	requestDuration.WithLabelValues(method, outcome).Observe(time.Since(start).Seconds())
}
