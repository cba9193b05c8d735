package client

import (
	"context"
	"net/http"

	"github.com/linkforge/apiclient/logger"
	"github.com/linkforge/apiclient/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var retries = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
	Name: "linkclient_retries_total",
	Help: "The total number of retried API requests, by HTTP method",
}, []string{"method"})

func observeRetry(ctx context.Context, attempt uint, err error, decision retry.Decision) {
	if !decision.Retry {
		return
	}

	retries.WithLabelValues(http.MethodGet).Inc()

	logger.Get(ctx).Debug("retrying request",
		"attempt", attempt+1,
		"delay", decision.Delay,
		"error", err)
}
