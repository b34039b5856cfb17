package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	prospectGrid = "prospectgrid"

	campaignsProcessedTotal = "campaigns_processed_total"
	propertiesTotal         = "properties_processed_total"
	scoringRetriesTotal     = "scoring_retries_total"
	cacheRequestsTotal      = "cache_requests_total"

	statusLabel  = "status"
	outcomeLabel = "outcome"
)

var campaignsProcessedMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: prospectGrid,
		Name:      campaignsProcessedTotal,
		Help:      "number of campaign jobs finished, by terminal status",
	},
	[]string{statusLabel},
)

var propertiesProcessedMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: prospectGrid,
		Name:      propertiesTotal,
		Help:      "number of properties run through the pipeline, by terminal status",
	},
	[]string{statusLabel},
)

var scoringRetriesMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: prospectGrid,
		Name:      scoringRetriesTotal,
		Help:      "number of scoring calls retried after a retryable failure",
	},
)

var cacheRequestsMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: prospectGrid,
		Name:      cacheRequestsTotal,
		Help:      "cache lookups partitioned by hit/miss/error",
	},
	[]string{outcomeLabel},
)

func IncreaseCampaignsProcessed(status string) {
	campaignsProcessedMetric.With(prometheus.Labels{statusLabel: status}).Inc()
}

func IncreasePropertiesProcessed(status string) {
	propertiesProcessedMetric.With(prometheus.Labels{statusLabel: status}).Inc()
}

func IncreaseScoringRetries() {
	scoringRetriesMetric.Inc()
}

func IncreaseCacheRequests(outcome string) {
	cacheRequestsMetric.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
}

func init() {
	prometheus.MustRegister(
		campaignsProcessedMetric,
		propertiesProcessedMetric,
		scoringRetriesMetric,
		cacheRequestsMetric,
	)
}
